// Package wsi provides format-independent random-access reading of
// multi-resolution pyramidal whole-slide images.
//
// Pixel decoding is delegated to format backends implementing the Backend
// interface. This package contributes the geometry and compositing engine
// on top of them: level selection for arbitrary downsample factors,
// coordinate conversion between zoom frames, assembly of regions that may
// straddle tile boundaries or extend beyond the image bounds, per-pixel
// validity masking, value normalization and whole-slide thumbnails.
package wsi

import "image"

// DType identifies the sample type of a slide's pixel data.
type DType int

const (
	DTypeUint8 DType = iota
	DTypeUint16
	DTypeFloat32
)

// SampleSize returns the width of a single sample in bytes.
func (d DType) SampleSize() int {
	switch d {
	case DTypeUint16:
		return 2
	case DTypeFloat32:
		return 4
	default:
		return 1
	}
}

// maxValue is the top of the dtype's native value range.
func (d DType) maxValue() float64 {
	switch d {
	case DTypeUint16:
		return 65535
	case DTypeFloat32:
		return 1
	default:
		return 255
	}
}

func (d DType) String() string {
	switch d {
	case DTypeUint16:
		return "uint16"
	case DTypeFloat32:
		return "float32"
	default:
		return "uint8"
	}
}

// Backend is the capability contract a format-specific decoder must satisfy
// to be readable through this package. Implementations only decode pixels;
// clipping, padding and mask construction are the slide's responsibility.
//
// A backend that exposes a single resolution presents one level with
// dimensions equal to the full image.
type Backend interface {
	// LevelCount returns the number of stored pyramid levels, at least 1.
	LevelCount() int

	// LevelDimensions returns the pixel dimensions of every level,
	// level 0 (full resolution) first. Point.X is width, Point.Y height.
	LevelDimensions() []image.Point

	// TileDimensions returns the native block size the backend reads
	// efficiently at each level. Untiled levels report their full
	// dimensions.
	TileDimensions() []image.Point

	// DType returns the sample type of decoded pixel data.
	DType() DType

	// NumChannels returns the number of samples per pixel.
	NumChannels() int

	// MPP returns the microns-per-pixel calibration of level 0, or
	// ok == false when the file carries none.
	MPP() (x, y float64, ok bool)

	// ReadBlock decodes the rectangle (x, y)-(x+width, y+height) of the
	// given level into a row-major height×width×channels buffer with
	// multi-byte samples little-endian. The rectangle is clipped to the
	// level bounds by the caller, but implementations may still return a
	// buffer shorter than width*height*channels samples; callers must
	// detect and pad.
	//
	// ReadBlock is not required to be safe for concurrent use; the
	// owning slide serializes calls into it.
	ReadBlock(level, x, y, width, height int) ([]byte, error)

	// Close releases the decoder resource.
	Close() error
}
