package validation

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/deppfellow/readlog/internal/errs"
)

// Validatable is a request payload that checks itself, usually by calling
// Struct and adding cross-field rules as CustomValidationErrors.
type Validatable interface {
	Validate() error
}

// CustomValidationError is a rule violation struct tags cannot express,
// such as one date preceding another.
type CustomValidationError struct {
	Field   string
	Message string
}

type CustomValidationErrors []CustomValidationError

func (c CustomValidationErrors) Error() string {
	return "Validation failed"
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared validator. Field names in its errors come
// from the json tag, so they match what the client sent.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				name = strings.SplitN(fld.Tag.Get("query"), ",", 2)[0]
			}
			if name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// Struct validates s with the shared validator.
func Struct(s any) error {
	return Validator().Struct(s)
}

// BindAndValidate binds request data into payload and validates it.
//
// payload must be a pointer. A bind failure (malformed JSON, wrong types)
// and a validation failure both become a 400 *errs.HTTPError.
func BindAndValidate(c echo.Context, payload Validatable) error {
	if err := c.Bind(payload); err != nil {
		return errs.NewBadRequestError(bindErrorMessage(err), false, nil, nil)
	}

	if msg, fieldErrors := validateStruct(payload); fieldErrors != nil {
		return errs.NewBadRequestError(msg, true, nil, fieldErrors)
	}

	return nil
}

// bindErrorMessage pulls the client facing text out of echo's bind error.
func bindErrorMessage(err error) string {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if msg, ok := he.Message.(string); ok && msg != "" {
			return msg
		}
		if he.Code != 0 {
			return http.StatusText(he.Code)
		}
	}
	return "Invalid request body"
}

func validateStruct(v Validatable) (string, []errs.FieldError) {
	if err := v.Validate(); err != nil {
		return "Validation failed", fieldErrors(err)
	}
	return "", nil
}

func fieldErrors(err error) []errs.FieldError {
	var custom CustomValidationErrors
	if errors.As(err, &custom) {
		out := make([]errs.FieldError, 0, len(custom))
		for _, ce := range custom {
			out = append(out, errs.FieldError{Field: ce.Field, Error: ce.Message})
		}
		return out
	}

	var tagged validator.ValidationErrors
	if !errors.As(err, &tagged) {
		return []errs.FieldError{{Field: "body", Error: err.Error()}}
	}

	out := make([]errs.FieldError, 0, len(tagged))
	for _, fe := range tagged {
		out = append(out, errs.FieldError{Field: fe.Field(), Error: tagMessage(fe)})
	}
	return out
}

// tagMessage phrases a failed validator tag for the client.
func tagMessage(fe validator.FieldError) string {
	unit := ""
	if fe.Kind() == reflect.String {
		unit = " characters"
	}

	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s%s", fe.Param(), unit)
	case "max":
		return fmt.Sprintf("must not exceed %s%s", fe.Param(), unit)
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "datetime":
		return "must be a date in YYYY-MM-DD format"
	}

	if fe.Param() != "" {
		return fmt.Sprintf("failed %s=%s", fe.Tag(), fe.Param())
	}
	return "failed " + fe.Tag()
}
