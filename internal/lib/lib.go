// Package lib groups support code that does not belong to a single layer:
// the Redis read cache and background jobs running on asynq.
package lib
