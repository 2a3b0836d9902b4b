package wsi

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFormat is returned by Registry.Open when no registered
	// backend recognizes the file. It is not fatal: callers may hand the
	// path to another opener or abort gracefully.
	ErrUnsupportedFormat = errors.New("wsi: unsupported format")

	// ErrClosed is returned by any operation on a slide after Close.
	ErrClosed = errors.New("wsi: slide is closed")
)

// InvalidLevelError reports a level index outside [0, LevelCount).
type InvalidLevelError struct {
	Level      int
	LevelCount int
}

func (e *InvalidLevelError) Error() string {
	return fmt.Sprintf("wsi: invalid level %d (slide has %d levels)", e.Level, e.LevelCount)
}

// InvalidSizeError reports a non-positive region width or height.
type InvalidSizeError struct {
	Width  int
	Height int
}

func (e *InvalidSizeError) Error() string {
	return fmt.Sprintf("wsi: invalid region size %dx%d", e.Width, e.Height)
}

// InvalidDownsampleError reports a downsample factor that is not positive.
type InvalidDownsampleError struct {
	Downsample float64
}

func (e *InvalidDownsampleError) Error() string {
	return fmt.Sprintf("wsi: invalid downsample factor %g", e.Downsample)
}

// DecodeError wraps a failure of a backend's raw block read. Decode
// failures are propagated unchanged and never retried.
type DecodeError struct {
	Level int
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("wsi: reading block at level %d: %v", e.Level, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
