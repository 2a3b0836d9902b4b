package wsi

import (
	"fmt"
	"image"
	"math"
)

// PyramidLevel describes one resolution tier of a slide. Level 0 is full
// resolution and has Downsample exactly 1.0.
type PyramidLevel struct {
	Width      int
	Height     int
	TileWidth  int
	TileHeight int

	// Downsample is the ratio of the level-0 width to this level's width.
	Downsample float64
}

// Pyramid is the ordered, immutable level table of an open slide, built
// once from backend introspection. Downsamples increase strictly with the
// level index.
type Pyramid struct {
	levels []PyramidLevel
}

// NewPyramid derives the level table from per-level pixel and tile
// dimensions. Downsamples are computed as the exact width ratio against
// level 0.
func NewPyramid(dims, tiles []image.Point) (*Pyramid, error) {
	if len(dims) == 0 {
		return nil, fmt.Errorf("wsi: pyramid has no levels")
	}
	if len(tiles) != len(dims) {
		return nil, fmt.Errorf("wsi: %d levels but %d tile sizes", len(dims), len(tiles))
	}

	levels := make([]PyramidLevel, len(dims))
	for i, d := range dims {
		if d.X <= 0 || d.Y <= 0 {
			return nil, fmt.Errorf("wsi: level %d has dimensions %dx%d", i, d.X, d.Y)
		}
		t := tiles[i]
		if t.X <= 0 || t.Y <= 0 {
			t = d
		}
		levels[i] = PyramidLevel{
			Width:      d.X,
			Height:     d.Y,
			TileWidth:  t.X,
			TileHeight: t.Y,
			Downsample: float64(dims[0].X) / float64(d.X),
		}
		if i > 0 && levels[i].Downsample <= levels[i-1].Downsample {
			return nil, fmt.Errorf("wsi: level %d downsample %g does not increase over level %d",
				i, levels[i].Downsample, i-1)
		}
	}
	return &Pyramid{levels: levels}, nil
}

// LevelCount returns the number of levels, at least 1.
func (p *Pyramid) LevelCount() int { return len(p.levels) }

// Level returns the level table entry at index i.
func (p *Pyramid) Level(i int) PyramidLevel { return p.levels[i] }

// Downsamples returns the downsample factor of every level, level 0 first.
func (p *Pyramid) Downsamples() []float64 {
	out := make([]float64, len(p.levels))
	for i, lv := range p.levels {
		out[i] = lv.Downsample
	}
	return out
}

// BestLevelForDownsample returns the index of the highest-resolution level
// whose own downsample does not exceed the requested one. Comparisons are
// exact; no epsilon is applied. Requests below level 0's downsample return
// level 0.
func (p *Pyramid) BestLevelForDownsample(downsample float64) int {
	if downsample < p.levels[0].Downsample {
		return 0
	}
	for i := 1; i < len(p.levels); i++ {
		if downsample < p.levels[i].Downsample {
			return i - 1
		}
	}
	return len(p.levels) - 1
}

// DimensionsForDownsample returns the logical slide size at the given
// downsample factor, always derived from level 0 regardless of which
// stored level a read would use.
func (p *Pyramid) DimensionsForDownsample(downsample float64) image.Point {
	lv0 := p.levels[0]
	return image.Point{
		X: int(math.Round(float64(lv0.Width) / downsample)),
		Y: int(math.Round(float64(lv0.Height) / downsample)),
	}
}

// scaleRect maps a rectangle from level-0 pixel space into the pixel space
// of a level with the given downsample. The origin is floored and the
// extent ceiled so the mapped rectangle always covers the source area.
func scaleRect(r image.Rectangle, downsample float64) image.Rectangle {
	return image.Rect(
		int(math.Floor(float64(r.Min.X)/downsample)),
		int(math.Floor(float64(r.Min.Y)/downsample)),
		int(math.Ceil(float64(r.Max.X)/downsample)),
		int(math.Ceil(float64(r.Max.Y)/downsample)),
	)
}

// roundScale converts a coordinate into level-0 space by a downsample
// factor, rounding to the nearest pixel.
func roundScale(v int, downsample float64) int {
	return int(math.Round(float64(v) * downsample))
}
