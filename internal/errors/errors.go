package errors

import "errors"

// Remote adapter errors. The status of a failed GitHub call is mapped to one
// of these exactly once, at the adapter boundary; pull and push logic consume
// them with errors.Is and never look at HTTP status codes.
var (
	ErrNotFound     = errors.New("remote path not found")
	ErrUnauthorized = errors.New("invalid or expired credential")
	ErrTransient    = errors.New("transient remote failure")
)
