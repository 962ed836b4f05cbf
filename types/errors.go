package types

import (
	"context"
	"errors"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrUnavailable = errors.New("unavailable")
	ErrUnsupported = errors.New("unsupported")
)

// ErrorMessage converts a provider failure into the message shown to the
// user.
func ErrorMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "the folder does not exist: " + err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return "timed out while loading: " + err.Error()
	case errors.Is(err, ErrUnavailable):
		return "the source is unavailable: " + err.Error()
	}
	return "failed to load directory: " + err.Error()
}
