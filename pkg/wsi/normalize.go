package wsi

import (
	"encoding/binary"
	"math"
)

// Normalized returns the region with integer samples rescaled from the
// dtype's native range into [0, 1] float32. Float32 regions are returned
// unchanged. The validity mask is never rescaled.
func (r *Region) Normalized() *Region {
	if r.DType == DTypeFloat32 {
		return r
	}

	out := &Region{
		Data:     make([]byte, r.Width*r.Height*r.Channels*4),
		Mask:     append([]uint8(nil), r.Mask...),
		Width:    r.Width,
		Height:   r.Height,
		Channels: r.Channels,
		DType:    DTypeFloat32,
	}

	scale := float32(1 / r.DType.maxValue())
	n := r.Width * r.Height * r.Channels
	switch r.DType {
	case DTypeUint16:
		for i := 0; i < n; i++ {
			v := binary.LittleEndian.Uint16(r.Data[i*2:])
			binary.LittleEndian.PutUint32(out.Data[i*4:], math.Float32bits(float32(v)*scale))
		}
	default:
		for i := 0; i < n; i++ {
			binary.LittleEndian.PutUint32(out.Data[i*4:], math.Float32bits(float32(r.Data[i])*scale))
		}
	}
	return out
}
