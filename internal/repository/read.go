package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/deppfellow/readlog/internal/model"
)

const readColumns = `id, title, author, book_type, page_count, rating, start_date, finish_date,
	demographic, standalone, partofseries, fiction, reread`

type ReadRepository struct {
	pool *pgxpool.Pool
}

func NewReadRepository(pool *pgxpool.Pool) *ReadRepository {
	return &ReadRepository{pool: pool}
}

// ListReads returns every read ordered by finish date, then title.
func (r *ReadRepository) ListReads(ctx context.Context) ([]model.Read, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+readColumns+` FROM allreads ORDER BY finish_date, title`)
	if err != nil {
		return nil, errors.Wrap(err, "query reads")
	}

	reads, err := pgx.CollectRows(rows, scanRead)
	if err != nil {
		return nil, errors.Wrap(err, "scan reads")
	}

	if reads == nil {
		reads = []model.Read{}
	}
	return reads, nil
}

// CreateRead inserts read in its own transaction and returns the new id.
func (r *ReadRepository) CreateRead(ctx context.Context, read model.Read) (int, error) {
	var id int

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, `
			INSERT INTO allreads (
				title, author, book_type, page_count, rating, start_date, finish_date,
				demographic, standalone, partofseries, fiction, reread
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			RETURNING id`,
			read.Title,
			read.Author,
			read.BookType,
			read.PageCount,
			read.Rating,
			read.StartDate,
			read.FinishDate,
			read.Demographic,
			read.Standalone,
			read.PartOfSeries,
			read.Fiction,
			read.Reread,
		).Scan(&id)
	})
	if err != nil {
		return 0, errors.Wrap(err, "insert read")
	}

	return id, nil
}

func scanRead(row pgx.CollectableRow) (model.Read, error) {
	var read model.Read
	err := row.Scan(
		&read.ID,
		&read.Title,
		&read.Author,
		&read.BookType,
		&read.PageCount,
		&read.Rating,
		&read.StartDate,
		&read.FinishDate,
		&read.Demographic,
		&read.Standalone,
		&read.PartOfSeries,
		&read.Fiction,
		&read.Reread,
	)
	return read, err
}
