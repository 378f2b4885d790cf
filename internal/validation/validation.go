// Package validation binds request input and checks it against struct
// tags with go-playground/validator.
//
// Failures come back as an errs.HTTPError whose field list uses the json
// (or query) names the client sent, e.g. {"field":"page_count","error":"is required"}.
package validation
