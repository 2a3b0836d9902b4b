// Package imagefile adapts plain raster images (PNG, JPEG) into wsi
// backends. The whole file decodes at open time into a one-level pyramid
// with downsample 1.0, which is how single-resolution sources fit the
// pyramid model.
package imagefile

import (
	"bytes"
	"image"

	"github.com/disintegration/imaging"

	"github.com/GeorgeBatch/wsi-reader/pkg/wsi"
)

// Backend holds one decoded image.
type Backend struct {
	img *image.NRGBA
}

var (
	pngMagic  = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	jpegMagic = []byte{0xFF, 0xD8, 0xFF}
)

// Sniff reports whether the header bytes start a PNG or JPEG stream.
func Sniff(header []byte) bool {
	return bytes.HasPrefix(header, pngMagic) || bytes.HasPrefix(header, jpegMagic)
}

// Format describes the plain-image backend to a wsi.Registry.
func Format() wsi.Format {
	return wsi.Format{
		Name:       "image",
		Extensions: []string{".png", ".jpg", ".jpeg"},
		Sniff:      Sniff,
		Open: func(path string) (wsi.Backend, error) {
			return Open(path)
		},
	}
}

// Open decodes the file into memory.
func Open(path string) (*Backend, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}
	return &Backend{img: imaging.Clone(img)}, nil
}

func (b *Backend) LevelCount() int { return 1 }

func (b *Backend) LevelDimensions() []image.Point {
	r := b.img.Bounds()
	return []image.Point{{X: r.Dx(), Y: r.Dy()}}
}

// TileDimensions reports the full image: an in-memory image has no block
// granularity worth exposing.
func (b *Backend) TileDimensions() []image.Point {
	return b.LevelDimensions()
}

func (b *Backend) DType() wsi.DType { return wsi.DTypeUint8 }

func (b *Backend) NumChannels() int { return 3 }

// MPP is never known for plain image files.
func (b *Backend) MPP() (x, y float64, ok bool) { return 0, 0, false }

// ReadBlock copies the RGB samples of the requested rectangle out of the
// decoded image, dropping the alpha channel.
func (b *Backend) ReadBlock(level, x, y, width, height int) ([]byte, error) {
	if level != 0 {
		return nil, &wsi.InvalidLevelError{Level: level, LevelCount: 1}
	}

	out := make([]byte, width*height*3)
	for row := 0; row < height; row++ {
		src := b.img.PixOffset(x, y+row)
		for col := 0; col < width; col++ {
			i := (row*width + col) * 3
			copy(out[i:i+3], b.img.Pix[src:src+3])
			src += 4
		}
	}
	return out, nil
}

func (b *Backend) Close() error {
	b.img = nil
	return nil
}
