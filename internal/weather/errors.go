package weather

import "errors"

var (
	// ErrUpstream covers provider failures: unreachable, non-2xx, open circuit,
	// undecodable payload or an unparsable last_updated timestamp.
	ErrUpstream = errors.New("upstream provider error")

	// ErrNotFound is returned when no record matches a lookup.
	ErrNotFound = errors.New("record not found")

	// ErrValidation is returned for malformed client input.
	ErrValidation = errors.New("invalid input")

	// ErrStorage wraps unexpected persistence failures.
	ErrStorage = errors.New("storage error")

	// ErrDuplicate is returned by Insert when the dedup triple already exists.
	ErrDuplicate = errors.New("record already exists")
)
