package wsi

import (
	"image"
	"testing"
)

func TestImageTwoChannelLuminance(t *testing.T) {
	r := NewRegion(2, 1, 2, DTypeUint8)
	r.SetValue(0, 0, 0, 40)
	r.SetValue(0, 0, 1, 200)
	r.SetValue(1, 0, 0, 90)
	r.Mask[0] = 1
	r.Mask[1] = 1

	img, ok := r.Image().(*image.NRGBA)
	if !ok {
		t.Fatalf("Expected NRGBA, got %T", r.Image())
	}

	// Channel 0 replicated across R, G and B; channel 1 does not leak in.
	for x, want := range []uint8{40, 90} {
		i := img.PixOffset(x, 0)
		if img.Pix[i] != want || img.Pix[i+1] != want || img.Pix[i+2] != want {
			t.Errorf("Expected gray %d at x=%d, got RGB %d,%d,%d",
				want, x, img.Pix[i], img.Pix[i+1], img.Pix[i+2])
		}
		if img.Pix[i+3] != 255 {
			t.Errorf("Expected opaque pixel at x=%d, got alpha %d", x, img.Pix[i+3])
		}
	}
}

func TestImageMaskBecomesAlpha(t *testing.T) {
	r := NewRegion(2, 1, 3, DTypeUint8)
	r.SetValue(0, 0, 0, 10)
	r.Mask[0] = 1

	img := r.Image().(*image.NRGBA)
	if a := img.Pix[img.PixOffset(0, 0)+3]; a != 255 {
		t.Errorf("Expected valid pixel opaque, got alpha %d", a)
	}
	if a := img.Pix[img.PixOffset(1, 0)+3]; a != 0 {
		t.Errorf("Expected padded pixel transparent, got alpha %d", a)
	}
}
