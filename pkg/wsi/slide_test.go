package wsi_test

import (
	"bytes"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/GeorgeBatch/wsi-reader/pkg/wsi"
	"github.com/GeorgeBatch/wsi-reader/pkg/wsi/wsitest"
)

func singleLevelSlide(t *testing.T) (*wsi.Slide, *wsitest.Backend) {
	t.Helper()
	backend := wsitest.New([]wsitest.LevelSpec{
		{Width: 100, Height: 100, TileWidth: 32, TileHeight: 32},
	}, 3, wsi.DTypeUint8)

	slide, err := wsi.NewSlide(backend)
	if err != nil {
		t.Fatalf("Failed to open slide: %v", err)
	}
	t.Cleanup(func() { slide.Close() })
	return slide, backend
}

func twoLevelSlide(t *testing.T) (*wsi.Slide, *wsitest.Backend) {
	t.Helper()
	backend := wsitest.New([]wsitest.LevelSpec{
		{Width: 100, Height: 100, TileWidth: 32, TileHeight: 32},
		{Width: 50, Height: 50, TileWidth: 32, TileHeight: 32},
	}, 3, wsi.DTypeUint8)

	slide, err := wsi.NewSlide(backend)
	if err != nil {
		t.Fatalf("Failed to open slide: %v", err)
	}
	t.Cleanup(func() { slide.Close() })
	return slide, backend
}

func TestSlideIntrospection(t *testing.T) {
	slide, _ := twoLevelSlide(t)

	if got := slide.LevelCount(); got != 2 {
		t.Errorf("Expected 2 levels, got %d", got)
	}

	dims := slide.LevelDimensions()
	if dims[0].X != 100 || dims[1].X != 50 {
		t.Errorf("Expected level widths 100 and 50, got %d and %d", dims[0].X, dims[1].X)
	}

	ds := slide.LevelDownsamples()
	if ds[0] != 1.0 || ds[1] != 2.0 {
		t.Errorf("Expected downsamples [1 2], got %v", ds)
	}

	tiles := slide.TileDimensions()
	if tiles[0].X != 32 || tiles[0].Y != 32 {
		t.Errorf("Expected 32x32 tiles, got %dx%d", tiles[0].X, tiles[0].Y)
	}

	if slide.DType() != wsi.DTypeUint8 {
		t.Errorf("Expected dtype uint8, got %v", slide.DType())
	}
	if slide.NumChannels() != 3 {
		t.Errorf("Expected 3 channels, got %d", slide.NumChannels())
	}
	if _, _, ok := slide.MPP(); ok {
		t.Error("Expected no calibration on the synthetic slide")
	}
}

func TestReadRegionInsideBounds(t *testing.T) {
	slide, _ := twoLevelSlide(t)

	region, err := slide.ReadRegion(10, 20, 0, 16, 8, nil)
	if err != nil {
		t.Fatalf("Failed to read region: %v", err)
	}

	if region.Width != 16 || region.Height != 8 {
		t.Fatalf("Expected 16x8 output, got %dx%d", region.Width, region.Height)
	}
	for y := 0; y < 8; y++ {
		for x := 0; x < 16; x++ {
			if region.MaskAt(x, y) != 1 {
				t.Fatalf("Expected mask 1 at (%d,%d)", x, y)
			}
			for c := 0; c < 3; c++ {
				expected := wsitest.SampleValue(wsi.DTypeUint8, 0, 10+x, 20+y, c)
				if got := region.Value(x, y, c); got != expected {
					t.Fatalf("Expected %g at (%d,%d,%d), got %g", expected, x, y, c, got)
				}
			}
		}
	}
}

func TestReadRegionClipsAndPads(t *testing.T) {
	slide, _ := singleLevelSlide(t)

	region, err := slide.ReadRegion(90, 90, 0, 20, 20, nil)
	if err != nil {
		t.Fatalf("Failed to read region: %v", err)
	}

	if region.Width != 20 || region.Height != 20 {
		t.Fatalf("Expected 20x20 output, got %dx%d", region.Width, region.Height)
	}

	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			inside := x < 10 && y < 10
			if inside {
				if region.MaskAt(x, y) != 1 {
					t.Fatalf("Expected mask 1 at (%d,%d)", x, y)
				}
				expected := wsitest.SampleValue(wsi.DTypeUint8, 0, 90+x, 90+y, 0)
				if got := region.Value(x, y, 0); got != expected {
					t.Fatalf("Expected %g at (%d,%d), got %g", expected, x, y, got)
				}
			} else {
				if region.MaskAt(x, y) != 0 {
					t.Fatalf("Expected mask 0 at (%d,%d)", x, y)
				}
				for c := 0; c < 3; c++ {
					if region.Value(x, y, c) != 0 {
						t.Fatalf("Expected zero padding at (%d,%d,%d)", x, y, c)
					}
				}
			}
		}
	}
}

func TestReadRegionNegativeOrigin(t *testing.T) {
	slide, _ := singleLevelSlide(t)

	region, err := slide.ReadRegion(-5, -5, 0, 10, 10, nil)
	if err != nil {
		t.Fatalf("Failed to read region: %v", err)
	}

	if region.MaskAt(4, 4) != 0 {
		t.Error("Expected mask 0 in the padded corner")
	}
	if region.MaskAt(5, 5) != 1 {
		t.Error("Expected mask 1 where the slide starts")
	}
	expected := wsitest.SampleValue(wsi.DTypeUint8, 0, 0, 0, 0)
	if got := region.Value(5, 5, 0); got != expected {
		t.Errorf("Expected %g at the slide origin, got %g", expected, got)
	}
}

func TestReadRegionEntirelyOutside(t *testing.T) {
	slide, backend := singleLevelSlide(t)

	region, err := slide.ReadRegion(200, 200, 0, 10, 10, nil)
	if err != nil {
		t.Fatalf("Expected out-of-bounds reads to succeed, got %v", err)
	}

	for i, m := range region.Mask {
		if m != 0 {
			t.Fatalf("Expected all-zero mask, got 1 at index %d", i)
		}
	}
	for i, b := range region.Data {
		if b != 0 {
			t.Fatalf("Expected all-zero pixels, got %d at byte %d", b, i)
		}
	}
	if reads := backend.Reads(); len(reads) != 0 {
		t.Errorf("Expected no backend reads, got %d", len(reads))
	}
}

func TestReadRegionInvalidArguments(t *testing.T) {
	slide, _ := twoLevelSlide(t)

	t.Run("level out of range", func(t *testing.T) {
		for _, level := range []int{-1, 2, 99} {
			_, err := slide.ReadRegion(0, 0, level, 10, 10, nil)
			var levelErr *wsi.InvalidLevelError
			if !errors.As(err, &levelErr) {
				t.Errorf("Expected InvalidLevelError for level %d, got %v", level, err)
			}
		}
	})

	t.Run("non-positive size", func(t *testing.T) {
		for _, size := range [][2]int{{0, 10}, {10, 0}, {-1, 10}} {
			_, err := slide.ReadRegion(0, 0, 0, size[0], size[1], nil)
			var sizeErr *wsi.InvalidSizeError
			if !errors.As(err, &sizeErr) {
				t.Errorf("Expected InvalidSizeError for %dx%d, got %v", size[0], size[1], err)
			}
		}
	})

	t.Run("non-positive downsample", func(t *testing.T) {
		for _, ds := range []float64{0, -2} {
			_, err := slide.ReadRegionDownsample(0, 0, ds, 10, 10, nil)
			var dsErr *wsi.InvalidDownsampleError
			if !errors.As(err, &dsErr) {
				t.Errorf("Expected InvalidDownsampleError for %g, got %v", ds, err)
			}
		}
	})
}

func TestReadRegionShortBlockPadding(t *testing.T) {
	slide, backend := singleLevelSlide(t)
	backend.ShortRows = 2

	region, err := slide.ReadRegion(0, 0, 0, 10, 10, nil)
	if err != nil {
		t.Fatalf("Failed to read region: %v", err)
	}

	for y := 0; y < 10; y++ {
		expected := uint8(1)
		if y >= 8 {
			expected = 0
		}
		for x := 0; x < 10; x++ {
			if region.MaskAt(x, y) != expected {
				t.Fatalf("Expected mask %d in row %d, got %d", expected, y, region.MaskAt(x, y))
			}
		}
	}
}

func TestReadRegionDecodeFailure(t *testing.T) {
	slide, backend := singleLevelSlide(t)
	cause := errors.New("corrupt tile")
	backend.FailErr = cause

	_, err := slide.ReadRegion(0, 0, 0, 10, 10, nil)
	var decodeErr *wsi.DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("Expected DecodeError, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Error("Expected the backend error to be preserved in the chain")
	}
}

func TestReadRegionNormalize(t *testing.T) {
	slide, _ := singleLevelSlide(t)

	region, err := slide.ReadRegion(10, 10, 0, 4, 4, &wsi.ReadOptions{Normalize: true})
	if err != nil {
		t.Fatalf("Failed to read region: %v", err)
	}

	if region.DType != wsi.DTypeFloat32 {
		t.Fatalf("Expected normalized dtype float32, got %v", region.DType)
	}
	expected := wsitest.SampleValue(wsi.DTypeUint8, 0, 10, 10, 0) / 255
	if got := region.Value(0, 0, 0); math.Abs(got-expected) > 1e-6 {
		t.Errorf("Expected %g, got %g", expected, got)
	}
}

func TestReadRegionUint16Normalize(t *testing.T) {
	backend := wsitest.New([]wsitest.LevelSpec{
		{Width: 16, Height: 16, TileWidth: 16, TileHeight: 16},
	}, 1, wsi.DTypeUint16)
	slide, err := wsi.NewSlide(backend)
	if err != nil {
		t.Fatalf("Failed to open slide: %v", err)
	}
	defer slide.Close()

	region, err := slide.ReadRegion(0, 0, 0, 4, 4, &wsi.ReadOptions{Normalize: true})
	if err != nil {
		t.Fatalf("Failed to read region: %v", err)
	}

	// 16-bit samples are the 8-bit pattern scaled by 257, so the
	// normalized value matches the 8-bit fraction exactly.
	expected := wsitest.SampleValue(wsi.DTypeUint8, 0, 1, 2, 0) / 255
	if got := region.Value(1, 2, 0); math.Abs(got-expected) > 1e-6 {
		t.Errorf("Expected %g, got %g", expected, got)
	}
}

func TestReadRegionDownsampleRoundTrip(t *testing.T) {
	slide, _ := twoLevelSlide(t)

	direct, err := slide.ReadRegion(0, 0, 0, 100, 100, nil)
	if err != nil {
		t.Fatalf("Failed to read level 0: %v", err)
	}
	viaDS, err := slide.ReadRegionDownsample(0, 0, 1.0, 100, 100, nil)
	if err != nil {
		t.Fatalf("Failed to read at downsample 1.0: %v", err)
	}

	if !bytes.Equal(direct.Data, viaDS.Data) {
		t.Error("Expected identical pixels for downsample 1.0 and level 0")
	}
	if !bytes.Equal(direct.Mask, viaDS.Mask) {
		t.Error("Expected identical masks for downsample 1.0 and level 0")
	}
}

func TestReadRegionDownsampleExactLevel(t *testing.T) {
	slide, _ := twoLevelSlide(t)

	direct, err := slide.ReadRegion(10, 10, 1, 20, 20, nil)
	if err != nil {
		t.Fatalf("Failed to read level 1: %v", err)
	}
	viaDS, err := slide.ReadRegionDownsample(10, 10, 2.0, 20, 20, nil)
	if err != nil {
		t.Fatalf("Failed to read at downsample 2.0: %v", err)
	}

	if !bytes.Equal(direct.Data, viaDS.Data) {
		t.Error("Expected a stored-level downsample to read that level directly")
	}
}

func TestReadRegionDownsampleFractional(t *testing.T) {
	slide, _ := twoLevelSlide(t)

	region, err := slide.ReadRegionDownsample(2, 2, 2.5, 20, 20, nil)
	if err != nil {
		t.Fatalf("Failed to read at downsample 2.5: %v", err)
	}

	if region.Width != 20 || region.Height != 20 {
		t.Fatalf("Expected 20x20 output, got %dx%d", region.Width, region.Height)
	}
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			if region.MaskAt(x, y) != 1 {
				t.Fatalf("Expected mask 1 at (%d,%d) for an in-bounds read", x, y)
			}
		}
	}
}

func TestReadRegionDownsampleLevel0(t *testing.T) {
	slide, _ := twoLevelSlide(t)

	region, err := slide.ReadRegion(10, 10, 1, 4, 4, &wsi.ReadOptions{DownsampleLevel0: true})
	if err != nil {
		t.Fatalf("Failed to read region: %v", err)
	}

	// Each output pixel averages the corresponding 2x2 level-0 block.
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			for c := 0; c < 3; c++ {
				sum := 0.0
				for dy := 0; dy < 2; dy++ {
					for dx := 0; dx < 2; dx++ {
						sum += wsitest.SampleValue(wsi.DTypeUint8, 0, 20+2*x+dx, 20+2*y+dy, c)
					}
				}
				expected := math.Round(sum / 4)
				if got := region.Value(x, y, c); got != expected {
					t.Fatalf("Expected %g at (%d,%d,%d), got %g", expected, x, y, c, got)
				}
			}
		}
	}
}

func TestReadRegionDownsampleLevel0EdgeMask(t *testing.T) {
	slide, _ := twoLevelSlide(t)

	region, err := slide.ReadRegion(48, 0, 1, 4, 4, &wsi.ReadOptions{DownsampleLevel0: true})
	if err != nil {
		t.Fatalf("Failed to read region: %v", err)
	}

	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			expected := uint8(1)
			if x >= 2 {
				expected = 0
			}
			if got := region.MaskAt(x, y); got != expected {
				t.Fatalf("Expected mask %d at (%d,%d), got %d", expected, x, y, got)
			}
		}
	}
}

func TestThumbnail(t *testing.T) {
	backend := wsitest.New([]wsitest.LevelSpec{
		{Width: 200, Height: 100, TileWidth: 64, TileHeight: 64},
	}, 3, wsi.DTypeUint8)
	slide, err := wsi.NewSlide(backend)
	if err != nil {
		t.Fatalf("Failed to open slide: %v", err)
	}
	defer slide.Close()

	testCases := []struct {
		name          string
		maxW, maxH    int
		expectedW     int
		expectedH     int
	}{
		{"landscape bound", 50, 50, 50, 25},
		{"exact size", 200, 100, 200, 100},
		{"height bound", 1000, 25, 50, 25},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			thumb, err := slide.Thumbnail(tc.maxW, tc.maxH, false)
			if err != nil {
				t.Fatalf("Failed to build thumbnail: %v", err)
			}
			if thumb.Width != tc.expectedW || thumb.Height != tc.expectedH {
				t.Errorf("Expected %dx%d, got %dx%d", tc.expectedW, tc.expectedH, thumb.Width, thumb.Height)
			}
			if thumb.Width > tc.maxW || thumb.Height > tc.maxH {
				t.Errorf("Thumbnail %dx%d exceeds bounds %dx%d", thumb.Width, thumb.Height, tc.maxW, tc.maxH)
			}
		})
	}
}

func TestThumbnailExtremeAspect(t *testing.T) {
	// The minor axis rounds to zero at the fitting downsample; the
	// thumbnail must still come back with at least one pixel on it.
	backend := wsitest.New([]wsitest.LevelSpec{
		{Width: 1000, Height: 1, TileWidth: 64, TileHeight: 64},
	}, 3, wsi.DTypeUint8)
	slide, err := wsi.NewSlide(backend)
	if err != nil {
		t.Fatalf("Failed to open slide: %v", err)
	}
	defer slide.Close()

	thumb, err := slide.Thumbnail(10, 10, false)
	if err != nil {
		t.Fatalf("Failed to build thumbnail: %v", err)
	}
	if thumb.Width != 10 || thumb.Height != 1 {
		t.Errorf("Expected 10x1, got %dx%d", thumb.Width, thumb.Height)
	}
}

func TestCloseIdempotent(t *testing.T) {
	slide, backend := singleLevelSlide(t)

	if err := slide.Close(); err != nil {
		t.Fatalf("Failed to close slide: %v", err)
	}
	if err := slide.Close(); err != nil {
		t.Fatalf("Expected second close to be a no-op, got %v", err)
	}
	if got := backend.CloseCount(); got != 1 {
		t.Errorf("Expected backend closed exactly once, got %d", got)
	}

	_, err := slide.ReadRegion(0, 0, 0, 10, 10, nil)
	if !errors.Is(err, wsi.ErrClosed) {
		t.Errorf("Expected ErrClosed after close, got %v", err)
	}
}

func TestConcurrentReadsSerialized(t *testing.T) {
	slide, backend := singleLevelSlide(t)
	backend.Delay = 2 * time.Millisecond

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(offset int) {
			defer wg.Done()
			_, err := slide.ReadRegion(offset, offset, 0, 16, 16, nil)
			errs <- err
		}(i * 4)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("Concurrent read failed: %v", err)
		}
	}
	if backend.Overlapped() {
		t.Error("Expected raw block reads to be serialized")
	}
	if got := len(backend.Reads()); got != 8 {
		t.Errorf("Expected 8 backend reads, got %d", got)
	}
}

func TestNewSlideClosesBackendOnBadPyramid(t *testing.T) {
	backend := wsitest.New([]wsitest.LevelSpec{
		{Width: 100, Height: 100, TileWidth: 16, TileHeight: 16},
		{Width: 100, Height: 100, TileWidth: 16, TileHeight: 16},
	}, 3, wsi.DTypeUint8)

	if _, err := wsi.NewSlide(backend); err == nil {
		t.Fatal("Expected an error for a non-decreasing pyramid")
	}
	if got := backend.CloseCount(); got != 1 {
		t.Errorf("Expected backend closed on failure, got close count %d", got)
	}
}
