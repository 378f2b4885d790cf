// Package errs defines the error shape returned to API clients.
//
// Every failure that reaches the global error handler is rendered as an
// HTTPError so clients always see the same JSON structure, with optional
// field-level errors for rejected request bodies.
package errs
