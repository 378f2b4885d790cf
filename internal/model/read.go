package model

import (
	"strings"

	"github.com/deppfellow/readlog/internal/validation"
)

// Read is one finished book, as stored in the allreads table.
type Read struct {
	ID           int      `json:"id" db:"id"`
	Title        string   `json:"title" db:"title"`
	Author       string   `json:"author" db:"author"`
	BookType     string   `json:"book_type" db:"book_type"`
	PageCount    int      `json:"page_count" db:"page_count"`
	Rating       *float64 `json:"rating" db:"rating"`
	StartDate    Date     `json:"start_date" db:"start_date"`
	FinishDate   Date     `json:"finish_date" db:"finish_date"`
	Demographic  string   `json:"demographic" db:"demographic"`
	Standalone   bool     `json:"standalone" db:"standalone"`
	PartOfSeries *string  `json:"partofseries" db:"partofseries"`
	Fiction      bool     `json:"fiction" db:"fiction"`
	Reread       *bool    `json:"reread" db:"reread"`
}

// ------------------------------------------------------------

// ListReadsPayload is the empty request of GET /; the list takes no input.
type ListReadsPayload struct{}

// Validate accepts every request.
func (p *ListReadsPayload) Validate() error {
	return nil
}

// ------------------------------------------------------------

// CreateReadPayload is the body of POST /post-read.
//
// Booleans and numbers are pointers so that "missing" and "zero" can be
// told apart by the required tag.
type CreateReadPayload struct {
	Title        string   `json:"title" validate:"required,max=90"`
	Author       string   `json:"author" validate:"required,max=35"`
	BookType     string   `json:"book_type" validate:"required,max=13"`
	PageCount    *int     `json:"page_count" validate:"required,min=1"`
	Rating       *float64 `json:"rating" validate:"omitempty,gte=0,lte=5"`
	StartDate    string   `json:"start_date" validate:"required,datetime=2006-01-02"`
	FinishDate   string   `json:"finish_date" validate:"required,datetime=2006-01-02"`
	Demographic  string   `json:"demographic" validate:"required,max=12"`
	Standalone   *bool    `json:"standalone" validate:"required"`
	PartOfSeries *string  `json:"partofseries" validate:"omitempty,max=40"`
	Fiction      *bool    `json:"fiction" validate:"required"`
	Reread       *bool    `json:"reread"`
}

// Validate trims the text fields, then checks the tags on the trimmed
// values and that the read did not finish before it started.
func (p *CreateReadPayload) Validate() error {
	p.trim()

	if err := validation.Struct(p); err != nil {
		return err
	}

	start, _ := ParseDate(p.StartDate)
	finish, _ := ParseDate(p.FinishDate)
	if finish.Before(start.Time) {
		return validation.CustomValidationErrors{
			{Field: "finish_date", Message: "must not be before start_date"},
		}
	}

	return nil
}

func (p *CreateReadPayload) trim() {
	p.Title = strings.TrimSpace(p.Title)
	p.Author = strings.TrimSpace(p.Author)
	p.BookType = strings.TrimSpace(p.BookType)
	p.Demographic = strings.TrimSpace(p.Demographic)
	p.StartDate = strings.TrimSpace(p.StartDate)
	p.FinishDate = strings.TrimSpace(p.FinishDate)
	if p.PartOfSeries != nil {
		series := strings.TrimSpace(*p.PartOfSeries)
		p.PartOfSeries = &series
	}
}

// ToRead maps a validated payload onto a Read. Blank strings in optional
// columns become NULL.
func (p *CreateReadPayload) ToRead() Read {
	start, _ := ParseDate(p.StartDate)
	finish, _ := ParseDate(p.FinishDate)

	read := Read{
		Title:       strings.TrimSpace(p.Title),
		Author:      strings.TrimSpace(p.Author),
		BookType:    strings.TrimSpace(p.BookType),
		Rating:      p.Rating,
		StartDate:   start,
		FinishDate:  finish,
		Demographic: strings.TrimSpace(p.Demographic),
		Reread:      p.Reread,
	}
	if p.PageCount != nil {
		read.PageCount = *p.PageCount
	}
	if p.Standalone != nil {
		read.Standalone = *p.Standalone
	}
	if p.Fiction != nil {
		read.Fiction = *p.Fiction
	}
	if p.PartOfSeries != nil {
		if series := strings.TrimSpace(*p.PartOfSeries); series != "" {
			read.PartOfSeries = &series
		}
	}

	return read
}

// CreateReadResponse is the 201 body of POST /post-read.
type CreateReadResponse struct {
	Message string `json:"message"`
	ID      int    `json:"id"`
}
