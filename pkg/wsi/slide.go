package wsi

import (
	"image"
	"math"
	"sync"
)

// ReadOptions controls how a region is materialized. The zero value reads
// raw pixels from the stored pyramid level.
type ReadOptions struct {
	// Normalize rescales integer samples into [0, 1] float32.
	Normalize bool

	// DownsampleLevel0 reads the equivalent full-resolution rectangle and
	// area-averages it down instead of trusting the backend's stored
	// lower-resolution level. Slower, but immune to whatever resampling
	// artifacts the file was written with.
	DownsampleLevel0 bool
}

// Slide is an open whole-slide image: one backend resource plus the level
// table derived from it at open time.
//
// Region reads may be issued from multiple goroutines; the slide serializes
// the raw backend reads while compositing and resampling run unlocked.
// Nothing is cached: every read goes back to the backend.
type Slide struct {
	backend Backend
	pyramid *Pyramid

	dtype    DType
	channels int
	mppX     float64
	mppY     float64
	hasMPP   bool

	mu     sync.Mutex
	closed bool
}

// NewSlide derives the pyramid from the backend's introspection and wraps
// it in a slide handle. On failure the backend is closed before returning.
func NewSlide(b Backend) (*Slide, error) {
	pyramid, err := NewPyramid(b.LevelDimensions(), b.TileDimensions())
	if err != nil {
		b.Close()
		return nil, err
	}
	s := &Slide{
		backend:  b,
		pyramid:  pyramid,
		dtype:    b.DType(),
		channels: b.NumChannels(),
	}
	s.mppX, s.mppY, s.hasMPP = b.MPP()
	return s, nil
}

// LevelCount returns the number of pyramid levels.
func (s *Slide) LevelCount() int { return s.pyramid.LevelCount() }

// LevelDimensions returns the pixel dimensions of every level.
func (s *Slide) LevelDimensions() []image.Point {
	out := make([]image.Point, s.pyramid.LevelCount())
	for i := range out {
		lv := s.pyramid.Level(i)
		out[i] = image.Point{X: lv.Width, Y: lv.Height}
	}
	return out
}

// TileDimensions returns the native tile size of every level.
func (s *Slide) TileDimensions() []image.Point {
	out := make([]image.Point, s.pyramid.LevelCount())
	for i := range out {
		lv := s.pyramid.Level(i)
		out[i] = image.Point{X: lv.TileWidth, Y: lv.TileHeight}
	}
	return out
}

// LevelDownsamples returns the downsample factor of every level.
func (s *Slide) LevelDownsamples() []float64 { return s.pyramid.Downsamples() }

// DType returns the sample type of the slide's pixel data.
func (s *Slide) DType() DType { return s.dtype }

// NumChannels returns the number of samples per pixel.
func (s *Slide) NumChannels() int { return s.channels }

// MPP returns the level-0 microns-per-pixel calibration, if known.
func (s *Slide) MPP() (x, y float64, ok bool) { return s.mppX, s.mppY, s.hasMPP }

// BestLevelForDownsample returns the highest-resolution level whose
// downsample does not exceed the requested one.
func (s *Slide) BestLevelForDownsample(downsample float64) int {
	return s.pyramid.BestLevelForDownsample(downsample)
}

// DimensionsForDownsample returns the logical slide size at the given
// downsample factor.
func (s *Slide) DimensionsForDownsample(downsample float64) image.Point {
	return s.pyramid.DimensionsForDownsample(downsample)
}

// ReadRegion reads a width×height region whose top-left corner is (x, y)
// in the pixel space of the given level. The region may extend beyond the
// level bounds on any side: out-of-bounds pixels come back zero with mask
// 0, and the result always has exactly the requested size.
func (s *Slide) ReadRegion(x, y, level, width, height int, opts *ReadOptions) (*Region, error) {
	var o ReadOptions
	if opts != nil {
		o = *opts
	}
	if level < 0 || level >= s.pyramid.LevelCount() {
		return nil, &InvalidLevelError{Level: level, LevelCount: s.pyramid.LevelCount()}
	}
	if width <= 0 || height <= 0 {
		return nil, &InvalidSizeError{Width: width, Height: height}
	}
	if s.isClosed() {
		return nil, ErrClosed
	}

	var (
		region *Region
		err    error
	)
	if o.DownsampleLevel0 {
		region, err = s.readRegionLevel0(x, y, level, width, height)
	} else {
		region, err = s.readRegionDirect(x, y, level, width, height)
	}
	if err != nil {
		return nil, err
	}
	if o.Normalize {
		region = region.Normalized()
	}
	return region, nil
}

// ReadRegionDownsample reads a width×height region addressed in the
// coordinate space of an arbitrary downsample factor rather than a stored
// level. The factor is resolved to the best stored level; when it is not
// exactly a stored level's downsample, the read is issued at the chosen
// level over the covering rectangle and the result is area-resampled to
// the requested size.
func (s *Slide) ReadRegionDownsample(x, y int, downsample float64, width, height int, opts *ReadOptions) (*Region, error) {
	var o ReadOptions
	if opts != nil {
		o = *opts
	}
	if downsample <= 0 {
		return nil, &InvalidDownsampleError{Downsample: downsample}
	}
	if width <= 0 || height <= 0 {
		return nil, &InvalidSizeError{Width: width, Height: height}
	}
	if downsample == 1 {
		// Level 0 already is the requested zoom.
		o.DownsampleLevel0 = false
	}

	level := s.pyramid.BestLevelForDownsample(downsample)
	levelDS := s.pyramid.Level(level).Downsample
	if downsample == levelDS {
		// The requested frame is exactly the chosen level's frame.
		return s.ReadRegion(x, y, level, width, height, &o)
	}

	// Map the request through level-0 space into the chosen level's frame,
	// flooring the origin and ceiling the extent so the read covers the
	// requested area.
	x0 := roundScale(x, downsample)
	y0 := roundScale(y, downsample)
	w0 := roundScale(width, downsample)
	h0 := roundScale(height, downsample)
	rect := scaleRect(image.Rect(x0, y0, x0+w0, y0+h0), levelDS)

	region, err := s.ReadRegion(rect.Min.X, rect.Min.Y, level, rect.Dx(), rect.Dy(), &o)
	if err != nil {
		return nil, err
	}
	if rect.Dx() == width && rect.Dy() == height {
		return region, nil
	}
	return resampleArea(region, width, height), nil
}

// Thumbnail reads the whole slide scaled to fit within width×height. The
// result preserves the slide's aspect ratio and never exceeds the given
// bounds on either axis.
func (s *Slide) Thumbnail(width, height int, normalize bool) (*Region, error) {
	if width <= 0 || height <= 0 {
		return nil, &InvalidSizeError{Width: width, Height: height}
	}
	lv0 := s.pyramid.Level(0)
	downsample := math.Max(
		float64(lv0.Width)/float64(width),
		float64(lv0.Height)/float64(height),
	)
	dims := s.pyramid.DimensionsForDownsample(downsample)
	// An extreme aspect ratio can round the minor axis down to zero.
	dims.X = max(dims.X, 1)
	dims.Y = max(dims.Y, 1)
	return s.ReadRegionDownsample(0, 0, downsample, dims.X, dims.Y, &ReadOptions{Normalize: normalize})
}

// Close releases the backend resource. It is idempotent: calling Close on
// an already-closed slide is a no-op returning nil.
func (s *Slide) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.backend.Close()
}

func (s *Slide) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// readRegionDirect reads from the stored level, clipping the request to the
// level bounds and padding the rest with zeros.
func (s *Slide) readRegionDirect(x, y, level, width, height int) (*Region, error) {
	lv := s.pyramid.Level(level)
	out := NewRegion(width, height, s.channels, s.dtype)

	clip := image.Rect(x, y, x+width, y+height).Intersect(image.Rect(0, 0, lv.Width, lv.Height))
	if clip.Empty() {
		// Entirely outside the slide: zero pixels, zero mask, no error.
		return out, nil
	}

	block, err := s.readBlock(level, clip.Min.X, clip.Min.Y, clip.Dx(), clip.Dy())
	if err != nil {
		return nil, err
	}
	s.compose(out, block, clip.Dx(), clip.Dy(), clip.Min.X-x, clip.Min.Y-y)
	return out, nil
}

// readRegionLevel0 serves a read addressed at the given level by reading
// the equivalent level-0 rectangle and area-averaging it down to the
// requested size.
func (s *Slide) readRegionLevel0(x, y, level, width, height int) (*Region, error) {
	d := s.pyramid.Level(level).Downsample
	x0 := roundScale(x, d)
	y0 := roundScale(y, d)
	w0 := roundScale(width, d)
	h0 := roundScale(height, d)
	if w0 < 1 {
		w0 = 1
	}
	if h0 < 1 {
		h0 = 1
	}

	full, err := s.readRegionDirect(x0, y0, 0, w0, h0)
	if err != nil {
		return nil, err
	}
	if w0 == width && h0 == height {
		return full, nil
	}
	return resampleArea(full, width, height), nil
}

// readBlock issues the raw backend read under the slide's lock.
func (s *Slide) readBlock(level, x, y, width, height int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	block, err := s.backend.ReadBlock(level, x, y, width, height)
	if err != nil {
		return nil, &DecodeError{Level: level, Err: err}
	}
	return block, nil
}

// compose copies a decoded blockWidth×blockHeight block into out at offset
// (dx, dy) and marks the covered pixels valid. Backends may legally return
// fewer bytes than the block geometry implies; whatever is missing stays
// zero-padded with mask 0.
func (s *Slide) compose(out *Region, block []byte, blockWidth, blockHeight, dx, dy int) {
	px := s.channels * s.dtype.SampleSize()
	rowBytes := blockWidth * px
	outRowBytes := out.Width * px

	rows := blockHeight
	if rowBytes > 0 && len(block)/rowBytes < rows {
		rows = len(block) / rowBytes
	}

	for row := 0; row < rows; row++ {
		src := block[row*rowBytes : (row+1)*rowBytes]
		dst := (dy+row)*outRowBytes + dx*px
		copy(out.Data[dst:dst+rowBytes], src)
		maskRow := (dy+row)*out.Width + dx
		for i := 0; i < blockWidth; i++ {
			out.Mask[maskRow+i] = 1
		}
	}

	// Partial trailing row, whole pixels only.
	if rest := block[rows*rowBytes:]; len(rest) >= px && rows < blockHeight {
		cols := len(rest) / px
		if cols > blockWidth {
			cols = blockWidth
		}
		dst := (dy+rows)*outRowBytes + dx*px
		copy(out.Data[dst:dst+cols*px], rest[:cols*px])
		maskRow := (dy+rows)*out.Width + dx
		for i := 0; i < cols; i++ {
			out.Mask[maskRow+i] = 1
		}
	}
}
