// Package wsitest provides a deterministic in-memory slide backend for
// tests. Pixel values follow PixelValue, so expected region contents can
// be computed without touching the backend.
package wsitest

import (
	"encoding/binary"
	"fmt"
	"image"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GeorgeBatch/wsi-reader/pkg/wsi"
)

// LevelSpec describes one synthetic pyramid level.
type LevelSpec struct {
	Width      int
	Height     int
	TileWidth  int
	TileHeight int
}

// ReadCall records one raw block read issued to the backend.
type ReadCall struct {
	Level  int
	X      int
	Y      int
	Width  int
	Height int
}

// Backend is a deterministic in-memory pyramid.
type Backend struct {
	// FailErr, when set, is returned by every ReadBlock call.
	FailErr error

	// ShortRows truncates that many trailing rows from every returned
	// block, exercising the caller's short-buffer padding.
	ShortRows int

	// Delay stretches each ReadBlock, making concurrent-call overlap
	// observable.
	Delay time.Duration

	levels   []LevelSpec
	channels int
	dtype    wsi.DType
	mppX     float64
	mppY     float64
	hasMPP   bool

	active     int32
	overlapped int32

	mu         sync.Mutex
	reads      []ReadCall
	closeCount int
}

// New returns a backend with the given levels, channel count and dtype.
func New(levels []LevelSpec, channels int, dtype wsi.DType) *Backend {
	return &Backend{levels: levels, channels: channels, dtype: dtype}
}

// SetMPP sets the reported level-0 calibration.
func (b *Backend) SetMPP(x, y float64) {
	b.mppX, b.mppY, b.hasMPP = x, y, true
}

func (b *Backend) LevelCount() int { return len(b.levels) }

func (b *Backend) LevelDimensions() []image.Point {
	out := make([]image.Point, len(b.levels))
	for i, lv := range b.levels {
		out[i] = image.Point{X: lv.Width, Y: lv.Height}
	}
	return out
}

func (b *Backend) TileDimensions() []image.Point {
	out := make([]image.Point, len(b.levels))
	for i, lv := range b.levels {
		out[i] = image.Point{X: lv.TileWidth, Y: lv.TileHeight}
	}
	return out
}

func (b *Backend) DType() wsi.DType { return b.dtype }

func (b *Backend) NumChannels() int { return b.channels }

func (b *Backend) MPP() (x, y float64, ok bool) { return b.mppX, b.mppY, b.hasMPP }

func (b *Backend) ReadBlock(level, x, y, width, height int) ([]byte, error) {
	if atomic.AddInt32(&b.active, 1) > 1 {
		atomic.StoreInt32(&b.overlapped, 1)
	}
	defer atomic.AddInt32(&b.active, -1)
	if b.Delay > 0 {
		time.Sleep(b.Delay)
	}

	b.mu.Lock()
	b.reads = append(b.reads, ReadCall{Level: level, X: x, Y: y, Width: width, Height: height})
	b.mu.Unlock()

	if b.FailErr != nil {
		return nil, b.FailErr
	}
	if level < 0 || level >= len(b.levels) {
		return nil, fmt.Errorf("wsitest: no level %d", level)
	}

	size := b.dtype.SampleSize()
	buf := make([]byte, width*height*b.channels*size)
	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			for c := 0; c < b.channels; c++ {
				i := ((row*width+col)*b.channels + c) * size
				putSample(buf[i:], b.dtype, PixelValue(level, x+col, y+row, c))
			}
		}
	}

	if b.ShortRows > 0 {
		keep := height - b.ShortRows
		if keep < 0 {
			keep = 0
		}
		buf = buf[:keep*width*b.channels*size]
	}
	return buf, nil
}

func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closeCount++
	return nil
}

// Reads returns every block read issued so far.
func (b *Backend) Reads() []ReadCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]ReadCall, len(b.reads))
	copy(out, b.reads)
	return out
}

// Overlapped reports whether two ReadBlock calls were ever active at once.
func (b *Backend) Overlapped() bool { return atomic.LoadInt32(&b.overlapped) != 0 }

// CloseCount returns how many times Close has been called.
func (b *Backend) CloseCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closeCount
}

// PixelValue is the deterministic 8-bit pattern value at (level, x, y, c).
func PixelValue(level, x, y, c int) uint8 {
	return uint8((x*7 + y*13 + c*29 + level*101) % 251)
}

// SampleValue returns the pattern value as the float a Region read of the
// given dtype reports.
func SampleValue(dtype wsi.DType, level, x, y, c int) float64 {
	v := float64(PixelValue(level, x, y, c))
	switch dtype {
	case wsi.DTypeUint16:
		return v * 257
	case wsi.DTypeFloat32:
		return v / 255
	default:
		return v
	}
}

func putSample(dst []byte, dtype wsi.DType, v uint8) {
	switch dtype {
	case wsi.DTypeUint16:
		binary.LittleEndian.PutUint16(dst, uint16(v)*257)
	case wsi.DTypeFloat32:
		binary.LittleEndian.PutUint32(dst, math.Float32bits(float32(v)/255))
	default:
		dst[0] = v
	}
}
