package destino

import (
	"errors"

	"github.com/eringen/destino/content"
)

var (
	// ErrNotFound is returned when a requested record does not exist or is not public.
	ErrNotFound = content.ErrNotFound
	// ErrInvalidSlug is returned when no slug can be derived for a record.
	ErrInvalidSlug = errors.New("slug is required")
)
