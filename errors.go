package linkdb

import "fmt"

// ErrInvalidArgument is returned, before any I/O, when the options or the
// completion callback passed to a create are unusable.
type ErrInvalidArgument struct {
	msg string
}

func (e *ErrInvalidArgument) Error() string {
	return e.msg
}

// ErrLinkExists is returned when a create collides with an existing link.
// Field is "uri" or "id".
type ErrLinkExists struct {
	Field string
	Value string
}

func (e *ErrLinkExists) Error() string {
	if e.Field == FieldURI {
		return fmt.Sprintf("URI already exists: %s", e.Value)
	}
	return fmt.Sprintf("%s already exists: %s", e.Field, e.Value)
}

type ErrShortURLAttemptsExhausted struct {
	attempts int
}

func (e *ErrShortURLAttemptsExhausted) Error() string {
	return fmt.Sprintf("exhausted %d attempts to generate a unique short URL", e.attempts)
}
