package wsi

// resampleArea rescales a region to dstWidth×dstHeight by area averaging.
// Every output pixel is the mean of the source pixels its box covers,
// weighted by fractional coverage and by the validity mask, so padding
// outside the slide never bleeds into edge pixels. Output pixels whose box
// contains no valid source data stay zero with mask 0.
func resampleArea(src *Region, dstWidth, dstHeight int) *Region {
	out := NewRegion(dstWidth, dstHeight, src.Channels, src.DType)
	if src.Width == 0 || src.Height == 0 {
		return out
	}

	sx := float64(src.Width) / float64(dstWidth)
	sy := float64(src.Height) / float64(dstHeight)
	acc := make([]float64, src.Channels)

	for oy := 0; oy < dstHeight; oy++ {
		y0 := float64(oy) * sy
		y1 := y0 + sy
		iy0, iy1 := boxPixels(y0, y1, src.Height)

		for ox := 0; ox < dstWidth; ox++ {
			x0 := float64(ox) * sx
			x1 := x0 + sx
			ix0, ix1 := boxPixels(x0, x1, src.Width)

			for c := range acc {
				acc[c] = 0
			}
			weight := 0.0

			for iy := iy0; iy < iy1; iy++ {
				wy := overlap(y0, y1, iy)
				for ix := ix0; ix < ix1; ix++ {
					if src.MaskAt(ix, iy) == 0 {
						continue
					}
					w := wy * overlap(x0, x1, ix)
					weight += w
					for c := 0; c < src.Channels; c++ {
						acc[c] += src.Value(ix, iy, c) * w
					}
				}
			}

			if weight == 0 {
				continue
			}
			for c := 0; c < src.Channels; c++ {
				out.SetValue(ox, oy, c, acc[c]/weight)
			}
			out.Mask[oy*dstWidth+ox] = 1
		}
	}
	return out
}

// boxPixels returns the half-open integer pixel range intersecting the
// continuous interval [v0, v1), clipped to [0, limit).
func boxPixels(v0, v1 float64, limit int) (int, int) {
	i0 := int(v0)
	i1 := int(v1)
	if v1 > float64(i1) {
		i1++
	}
	if i0 < 0 {
		i0 = 0
	}
	if i1 > limit {
		i1 = limit
	}
	return i0, i1
}

// overlap returns the length of the intersection between [v0, v1) and the
// unit interval starting at pixel i.
func overlap(v0, v1 float64, i int) float64 {
	lo := float64(i)
	hi := lo + 1
	if v0 > lo {
		lo = v0
	}
	if v1 < hi {
		hi = v1
	}
	if hi <= lo {
		return 0
	}
	return hi - lo
}
