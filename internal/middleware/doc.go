// Package middleware holds the HTTP middleware of the series API: request IDs,
// structured access logs, panic recovery, rate limiting, CORS, tracing and
// request body validation.
package middleware
