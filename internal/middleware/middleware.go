// Package middleware stores the global middleware chain: CORS, request
// ids, request scoped logging, New Relic tracing, rate limiting, panic
// recovery and the global error handler.
package middleware
