package wsi

import (
	"encoding/binary"
	"image"
	"image/color"
	"math"
)

// Region is the result of a region read: a row-major height×width×channels
// pixel buffer plus a per-pixel validity mask. Mask entries are 1 where the
// pyramid actually had data and 0 where the request fell outside the slide
// extent (those pixels are zero in Data).
//
// Multi-byte samples are stored little-endian regardless of the source
// file's byte order.
type Region struct {
	Data     []byte
	Mask     []uint8
	Width    int
	Height   int
	Channels int
	DType    DType
}

// NewRegion allocates a zero-filled region with an all-zero mask.
func NewRegion(width, height, channels int, dtype DType) *Region {
	return &Region{
		Data:     make([]byte, width*height*channels*dtype.SampleSize()),
		Mask:     make([]uint8, width*height),
		Width:    width,
		Height:   height,
		Channels: channels,
		DType:    dtype,
	}
}

// sampleIndex returns the byte offset of sample (x, y, c).
func (r *Region) sampleIndex(x, y, c int) int {
	return ((y*r.Width+x)*r.Channels + c) * r.DType.SampleSize()
}

// Value returns sample (x, y, c) as a float64.
func (r *Region) Value(x, y, c int) float64 {
	i := r.sampleIndex(x, y, c)
	switch r.DType {
	case DTypeUint16:
		return float64(binary.LittleEndian.Uint16(r.Data[i:]))
	case DTypeFloat32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(r.Data[i:])))
	default:
		return float64(r.Data[i])
	}
}

// SetValue stores v into sample (x, y, c), rounding and clamping to the
// dtype's range for integer dtypes.
func (r *Region) SetValue(x, y, c int, v float64) {
	i := r.sampleIndex(x, y, c)
	switch r.DType {
	case DTypeUint16:
		binary.LittleEndian.PutUint16(r.Data[i:], uint16(clampRound(v, 65535)))
	case DTypeFloat32:
		binary.LittleEndian.PutUint32(r.Data[i:], math.Float32bits(float32(v)))
	default:
		r.Data[i] = uint8(clampRound(v, 255))
	}
}

func clampRound(v, max float64) float64 {
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}

// MaskAt returns the validity mask at (x, y).
func (r *Region) MaskAt(x, y int) uint8 { return r.Mask[y*r.Width+x] }

// Image converts the region into a drawable image for encoding or display.
// Three- and four-channel data becomes NRGBA with the mask mapped onto the
// alpha channel, so out-of-bounds padding renders transparent.
// Single-channel uint8 data becomes Gray, single-channel uint16 Gray16.
// Two-channel data renders channel 0 as luminance. uint16 color and
// float32 samples are rescaled into 8 bits.
func (r *Region) Image() image.Image {
	if r.Channels == 1 {
		switch r.DType {
		case DTypeUint16:
			img := image.NewGray16(image.Rect(0, 0, r.Width, r.Height))
			for y := 0; y < r.Height; y++ {
				for x := 0; x < r.Width; x++ {
					img.SetGray16(x, y, color.Gray16{Y: uint16(r.Value(x, y, 0))})
				}
			}
			return img
		case DTypeFloat32:
			img := image.NewGray(image.Rect(0, 0, r.Width, r.Height))
			for y := 0; y < r.Height; y++ {
				for x := 0; x < r.Width; x++ {
					img.SetGray(x, y, color.Gray{Y: r.sample8(x, y, 0)})
				}
			}
			return img
		default:
			img := image.NewGray(image.Rect(0, 0, r.Width, r.Height))
			for y := 0; y < r.Height; y++ {
				copy(img.Pix[y*img.Stride:], r.Data[y*r.Width:(y+1)*r.Width])
			}
			return img
		}
	}

	img := image.NewNRGBA(image.Rect(0, 0, r.Width, r.Height))
	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			i := img.PixOffset(x, y)
			if r.Channels == 2 {
				// Two-channel data renders as luminance; the second
				// channel has no color meaning.
				v := r.sample8(x, y, 0)
				img.Pix[i] = v
				img.Pix[i+1] = v
				img.Pix[i+2] = v
			} else {
				img.Pix[i] = r.sample8(x, y, 0)
				img.Pix[i+1] = r.sample8(x, y, 1)
				img.Pix[i+2] = r.sample8(x, y, 2)
			}
			if r.Channels >= 4 {
				img.Pix[i+3] = r.sample8(x, y, 3)
			} else {
				img.Pix[i+3] = 255
			}
			if r.MaskAt(x, y) == 0 {
				img.Pix[i+3] = 0
			}
		}
	}
	return img
}

// sample8 returns sample (x, y, c) rescaled into 0..255.
func (r *Region) sample8(x, y, c int) uint8 {
	v := r.Value(x, y, c)
	switch r.DType {
	case DTypeUint16:
		return uint8(uint16(v) >> 8)
	case DTypeFloat32:
		return uint8(clampRound(v*255, 255))
	default:
		return uint8(v)
	}
}
