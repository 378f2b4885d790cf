package sqlerr

import (
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/deppfellow/readlog/internal/errs"
)

// entityAliases names tables whose identifiers don't read as an entity.
var entityAliases = map[string]string{
	"allreads": "read",
}

var uniqueKeyPattern = regexp.MustCompile(`_([^_]+)_(?:key|ukey)$`)

// codeSuffix is appended to the entity in the machine readable code,
// e.g. READ_TOO_LONG.
var codeSuffix = map[Code]string{
	ForeignKeyViolation:       "NOT_FOUND",
	UniqueViolation:           "ALREADY_EXISTS",
	NotNullViolation:          "REQUIRED",
	CheckViolation:            "INVALID",
	InvalidDatetimeFormat:     "INVALID",
	DatetimeFieldOverflow:     "INVALID",
	NumericValueOutOfRange:    "INVALID",
	StringDataRightTruncation: "TOO_LONG",
}

// ConvertPgError converts a raw *pgconn.PgError into an *Error.
func ConvertPgError(src *pgconn.PgError) *Error {
	return &Error{
		Code:           MapCode(src.Code),
		Severity:       MapSeverity(src.Severity),
		DatabaseCode:   src.Code,
		Message:        src.Message,
		SchemaName:     src.SchemaName,
		TableName:      src.TableName,
		ColumnName:     src.ColumnName,
		DataTypeName:   src.DataTypeName,
		ConstraintName: src.ConstraintName,
		driverErr:      src,
	}
}

// HandleError converts a database error into an *errs.HTTPError.
//
// API errors pass through unchanged. Constraint and data errors the client
// caused become 400s, a missing row becomes a 404 and anything else is a
// 500 that carries no driver detail.
func HandleError(err error) error {
	var httpErr *errs.HTTPError
	if errors.As(err, &httpErr) {
		return err
	}

	var pgerr *pgconn.PgError
	if errors.As(err, &pgerr) {
		return fromPgError(ConvertPgError(pgerr))
	}

	if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) {
		return errs.NewNotFoundError("Resource not found", false, nil)
	}

	return errs.NewInternalServerError()
}

func fromPgError(e *Error) *errs.HTTPError {
	suffix, known := codeSuffix[e.Code]
	if !known {
		return errs.NewInternalServerError()
	}

	code := strings.ToUpper(strings.ReplaceAll(entityForTable(e.TableName), " ", "_")) + "_" + suffix
	entity := entityName(e.TableName, e.ColumnName)
	column := humanizeText(e.ColumnName)

	switch e.Code {
	case ForeignKeyViolation:
		return errs.NewBadRequestError(fmt.Sprintf("The referenced %s does not exist", entity), false, &code, nil)

	case UniqueViolation:
		what := "identifier"
		if name := extractColumnForUniqueViolation(e.ConstraintName); name != "" {
			what = humanizeText(name)
		}
		return errs.NewBadRequestError(fmt.Sprintf("A %s with this %s already exists", entity, what), true, &code, nil)

	case NotNullViolation:
		if column == "" {
			column = "field"
		}
		fieldErrors := []errs.FieldError{{Field: strings.ToLower(e.ColumnName), Error: "is required"}}
		return errs.NewBadRequestError(fmt.Sprintf("The %s is required", column), true, &code, fieldErrors)

	case CheckViolation:
		msg := "One or more values do not meet required conditions"
		if column != "" {
			msg = fmt.Sprintf("The %s value does not meet required conditions", column)
		}
		return errs.NewBadRequestError(msg, true, &code, nil)

	case StringDataRightTruncation:
		return errs.NewBadRequestError("One or more values exceed the maximum allowed length", true, &code, nil)

	case InvalidDatetimeFormat, DatetimeFieldOverflow:
		return errs.NewBadRequestError("One or more dates are invalid", true, &code, nil)

	default:
		return errs.NewBadRequestError("One or more numbers are out of range", true, &code, nil)
	}
}

// entityName prefers the base of an "_id" column, then the table.
func entityName(tableName, columnName string) string {
	if column := strings.ToLower(columnName); strings.HasSuffix(column, "_id") {
		return humanizeText(strings.TrimSuffix(column, "_id"))
	}
	return humanizeText(entityForTable(tableName))
}

func entityForTable(tableName string) string {
	if tableName == "" {
		return "record"
	}
	if alias, ok := entityAliases[strings.ToLower(tableName)]; ok {
		return alias
	}
	return strings.TrimSuffix(tableName, "s")
}

// humanizeText turns "finish_date" into "Finish Date".
func humanizeText(text string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(text, "_", " "))
}

// extractColumnForUniqueViolation reads the column out of constraint names
// shaped like unique_<table>_<column> or <table>_<column>_key.
func extractColumnForUniqueViolation(constraintName string) string {
	if rest, ok := strings.CutPrefix(constraintName, "unique_"); ok {
		if i := strings.LastIndex(rest, "_"); i >= 0 {
			return rest[i+1:]
		}
	}

	if matches := uniqueKeyPattern.FindStringSubmatch(constraintName); len(matches) > 1 {
		return matches[1]
	}
	return ""
}
