package utils

type contextKey string

// RequestIDKey carries the per-request id through the request context.
const RequestIDKey contextKey = "request_id"
