package coords

import (
	"errors"

	"github.com/rotisserie/eris"
)

var (
	// ErrNoCoordinate means the record carried no coordinate evidence at all.
	ErrNoCoordinate = eris.New("coords: no coordinate")
	// ErrMalformed means the evidence could not be parsed.
	ErrMalformed = eris.New("coords: malformed coordinate")
	// ErrOutOfBounds means the value parsed but falls outside the country envelope.
	ErrOutOfBounds = eris.New("coords: outside bounding envelope")
	// ErrResolve means a shortened link could not be followed.
	ErrResolve = eris.New("coords: link resolution failed")
)

// Reason maps a normalization error to a short label for run summaries.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrOutOfBounds):
		return "out_of_bounds"
	case errors.Is(err, ErrResolve):
		return "resolve_failed"
	case errors.Is(err, ErrNoCoordinate):
		return "missing"
	case errors.Is(err, ErrMalformed):
		return "malformed"
	default:
		return "other"
	}
}
