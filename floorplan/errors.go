package floorplan

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSegment is wrapped by every ValidationError.
	ErrInvalidSegment = errors.New("invalid wall segment")

	// ErrGeometry is wrapped by every GeometryError.
	ErrGeometry = errors.New("geometry processing failed")

	// ErrDeadlineExceeded is returned when the context expires while splitting.
	ErrDeadlineExceeded = errors.New("room detection deadline exceeded")
)

// ValidationError reports a malformed or degenerate input segment.
type ValidationError struct {
	Index  int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("wall segment %d: %s", e.Index, e.Reason)
	}
	return fmt.Sprintf("wall segment %d: %s: %s", e.Index, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidSegment }

// GeometryError reports an internal fault of a face-finding strategy.
type GeometryError struct {
	Stage string
	Err   error
}

func (e *GeometryError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Stage, ErrGeometry)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

// Is reports ErrGeometry for every GeometryError.
func (e *GeometryError) Is(target error) bool { return target == ErrGeometry }

func (e *GeometryError) Unwrap() error { return e.Err }

func geometryErrorf(stage, format string, args ...any) error {
	return &GeometryError{Stage: stage, Err: fmt.Errorf(format, args...)}
}
