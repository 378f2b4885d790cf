package database

import (
	"context"
	"embed"
	"io/fs"

	"github.com/jackc/pgx/v5"
	tern "github.com/jackc/tern/v2/migrate"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

//go:embed migrations/*.sql
var migrations embed.FS

// SchemaVersionTable records the applied migration version.
const SchemaVersionTable = "schema_version"

// Migrate applies every pending embedded migration to the database at dsn.
// It runs on its own connection, before the pool is opened.
func Migrate(ctx context.Context, logger *zerolog.Logger, dsn string) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return errors.Wrap(err, "connect for migrations")
	}
	defer conn.Close(ctx)

	m, err := newMigrator(ctx, conn)
	if err != nil {
		return err
	}

	m.OnStart = func(sequence int32, name, direction, _ string) {
		logger.Info().
			Int32("sequence", sequence).
			Str("migration", name).
			Str("direction", direction).
			Msg("applying migration")
	}

	from, err := m.GetCurrentVersion(ctx)
	if err != nil {
		return errors.Wrap(err, "read schema version")
	}

	if err := m.Migrate(ctx); err != nil {
		return errors.Wrap(err, "apply migrations")
	}

	latest := int32(len(m.Migrations))
	if from == latest {
		logger.Info().Int32("version", latest).Msg("database schema up to date")
	} else {
		logger.Info().Int32("from", from).Int32("to", latest).Msg("database schema migrated")
	}
	return nil
}

func newMigrator(ctx context.Context, conn *pgx.Conn) (*tern.Migrator, error) {
	m, err := tern.NewMigrator(ctx, conn, SchemaVersionTable)
	if err != nil {
		return nil, errors.Wrap(err, "construct migrator")
	}

	subtree, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return nil, errors.Wrap(err, "open migrations subtree")
	}

	if err := m.LoadMigrations(subtree); err != nil {
		return nil, errors.Wrap(err, "load migrations")
	}
	return m, nil
}
