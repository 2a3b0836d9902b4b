package wsi

import (
	"math"
	"testing"
)

// fillRegion builds a w×h single-channel uint8 region from row-major
// values, with the whole mask valid.
func fillRegion(w, h int, values []float64) *Region {
	r := NewRegion(w, h, 1, DTypeUint8)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r.SetValue(x, y, 0, values[y*w+x])
			r.Mask[y*w+x] = 1
		}
	}
	return r
}

func TestResampleAreaUniform(t *testing.T) {
	src := fillRegion(4, 4, []float64{
		7, 7, 7, 7,
		7, 7, 7, 7,
		7, 7, 7, 7,
		7, 7, 7, 7,
	})

	out := resampleArea(src, 2, 2)
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			if got := out.Value(x, y, 0); got != 7 {
				t.Errorf("Expected uniform value 7 at (%d,%d), got %g", x, y, got)
			}
			if out.MaskAt(x, y) != 1 {
				t.Errorf("Expected mask 1 at (%d,%d)", x, y)
			}
		}
	}
}

func TestResampleAreaAverages(t *testing.T) {
	src := fillRegion(2, 2, []float64{
		10, 20,
		30, 40,
	})

	out := resampleArea(src, 1, 1)
	if got := out.Value(0, 0, 0); got != 25 {
		t.Errorf("Expected average 25, got %g", got)
	}
}

func TestResampleAreaMaskWeighted(t *testing.T) {
	src := fillRegion(2, 2, []float64{
		10, 200,
		30, 200,
	})
	// Invalidate the right column; its values must not contribute.
	src.Mask[1] = 0
	src.Mask[3] = 0

	out := resampleArea(src, 1, 1)
	if got := out.Value(0, 0, 0); got != 20 {
		t.Errorf("Expected mask-weighted average 20, got %g", got)
	}
	if out.MaskAt(0, 0) != 1 {
		t.Error("Expected mask 1 where some source pixels were valid")
	}
}

func TestResampleAreaAllInvalid(t *testing.T) {
	src := NewRegion(4, 4, 1, DTypeUint8)

	out := resampleArea(src, 2, 2)
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			if out.MaskAt(x, y) != 0 {
				t.Errorf("Expected mask 0 at (%d,%d)", x, y)
			}
			if out.Value(x, y, 0) != 0 {
				t.Errorf("Expected zero value at (%d,%d)", x, y)
			}
		}
	}
}

func TestResampleAreaFractionalBoxes(t *testing.T) {
	src := fillRegion(3, 1, []float64{0, 30, 60})

	// Boxes [0,1.5) and [1.5,3): the middle pixel contributes half to each.
	out := resampleArea(src, 2, 1)
	if got := out.Value(0, 0, 0); got != 10 {
		t.Errorf("Expected 10 for the left box, got %g", got)
	}
	if got := out.Value(1, 0, 0); got != 50 {
		t.Errorf("Expected 50 for the right box, got %g", got)
	}
}

func TestResampleAreaFloat32(t *testing.T) {
	src := NewRegion(2, 1, 1, DTypeFloat32)
	src.SetValue(0, 0, 0, 0.25)
	src.SetValue(1, 0, 0, 0.75)
	src.Mask[0] = 1
	src.Mask[1] = 1

	out := resampleArea(src, 1, 1)
	if got := out.Value(0, 0, 0); math.Abs(got-0.5) > 1e-6 {
		t.Errorf("Expected 0.5, got %g", got)
	}
	if out.DType != DTypeFloat32 {
		t.Errorf("Expected dtype float32, got %v", out.DType)
	}
}

func TestResampleAreaMultiChannel(t *testing.T) {
	src := NewRegion(2, 1, 3, DTypeUint8)
	for x := 0; x < 2; x++ {
		for c := 0; c < 3; c++ {
			src.SetValue(x, 0, c, float64(10*(c+1)+x*2))
		}
		src.Mask[x] = 1
	}

	out := resampleArea(src, 1, 1)
	for c := 0; c < 3; c++ {
		expected := float64(10*(c+1) + 1)
		if got := out.Value(0, 0, c); got != expected {
			t.Errorf("Expected %g in channel %d, got %g", expected, c, got)
		}
	}
}
