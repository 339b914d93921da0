package chat

import "errors"

var (
	// ErrNotFound indicates the referenced conversation, message or
	// notification does not exist.
	ErrNotFound = errors.New("chat: not found")

	// ErrForbidden indicates the caller is not a participant or owner.
	ErrForbidden = errors.New("chat: forbidden")

	// ErrInvalidArgument indicates empty content or a malformed payload.
	ErrInvalidArgument = errors.New("chat: invalid argument")

	// ErrUnauthenticated indicates an anonymous caller.
	ErrUnauthenticated = errors.New("chat: unauthenticated")
)
