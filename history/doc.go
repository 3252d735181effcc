// Package history keeps the most recent successful request/response exchanges
// in memory, newest first, up to a configured limit.
package history
