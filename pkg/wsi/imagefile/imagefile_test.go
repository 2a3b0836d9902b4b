package imagefile

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/GeorgeBatch/wsi-reader/pkg/wsi"
)

func pix(x, y, c int) uint8 {
	return uint8((x*11 + y*17 + c*23) % 251)
}

func writePNG(t *testing.T, width, height int) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: pix(x, y, 0), G: pix(x, y, 1), B: pix(x, y, 2), A: 255,
			})
		}
	}

	path := filepath.Join(t.TempDir(), "slide.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating file: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encoding png: %v", err)
	}
	return path
}

func TestOpenIntrospection(t *testing.T) {
	b, err := Open(writePNG(t, 60, 40))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer b.Close()

	if b.LevelCount() != 1 {
		t.Errorf("Expected 1 level, got %d", b.LevelCount())
	}
	if dims := b.LevelDimensions()[0]; dims.X != 60 || dims.Y != 40 {
		t.Errorf("Expected 60x40, got %dx%d", dims.X, dims.Y)
	}
	if tile := b.TileDimensions()[0]; tile.X != 60 || tile.Y != 40 {
		t.Errorf("Expected untiled 60x40, got %dx%d", tile.X, tile.Y)
	}
	if b.DType() != wsi.DTypeUint8 || b.NumChannels() != 3 {
		t.Errorf("Expected uint8 x3, got %v x%d", b.DType(), b.NumChannels())
	}
	if _, _, ok := b.MPP(); ok {
		t.Error("Expected no mpp calibration for a plain image")
	}
}

func TestReadBlock(t *testing.T) {
	b, err := Open(writePNG(t, 60, 40))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer b.Close()

	got, err := b.ReadBlock(0, 10, 5, 20, 15)
	if err != nil {
		t.Fatalf("ReadBlock failed: %v", err)
	}
	for row := 0; row < 15; row++ {
		for col := 0; col < 20; col++ {
			for c := 0; c < 3; c++ {
				want := pix(10+col, 5+row, c)
				if v := got[(row*20+col)*3+c]; v != want {
					t.Fatalf("pixel (%d,%d) channel %d: expected %d, got %d",
						10+col, 5+row, c, want, v)
				}
			}
		}
	}

	if _, err := b.ReadBlock(1, 0, 0, 1, 1); err == nil {
		t.Error("Expected error for level 1 on a single-level backend")
	}
}

func TestRegistryOpenByExtension(t *testing.T) {
	reg := wsi.NewRegistry()
	reg.Register(Format())

	slide, err := reg.Open(writePNG(t, 30, 20))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer slide.Close()

	// Region partly outside the image: data clipped, mask marks it.
	region, err := slide.ReadRegion(20, 10, 0, 20, 20, nil)
	if err != nil {
		t.Fatalf("ReadRegion failed: %v", err)
	}
	if region.Width != 20 || region.Height != 20 {
		t.Fatalf("Expected 20x20, got %dx%d", region.Width, region.Height)
	}
	if region.MaskAt(5, 5) != 1 {
		t.Error("Expected mask 1 inside the image")
	}
	if region.MaskAt(15, 15) != 0 {
		t.Error("Expected mask 0 outside the image")
	}
	if got, want := region.Value(0, 0, 1), float64(pix(20, 10, 1)); got != want {
		t.Errorf("Expected %g at origin, got %g", want, got)
	}
}
