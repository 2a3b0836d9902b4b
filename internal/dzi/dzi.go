// Package dzi serves a Deep Zoom (DZI) tile pyramid over an open slide.
// Deep Zoom levels form a halving chain: the deepest level equals the
// slide's full resolution and each level up is half the size, down to 1x1.
// Tiles are addressed (level, col, row) and carry the usual one-pixel-style
// overlap on interior edges.
package dzi

import (
	"encoding/xml"
	"fmt"
	"image"
	"math"

	"github.com/GeorgeBatch/wsi-reader/pkg/wsi"
)

// Generator maps Deep Zoom tile addresses onto slide region reads.
type Generator struct {
	slide    *wsi.Slide
	tileSize int
	overlap  int
	dims     []image.Point // per DZ level, index 0 = 1x1 end of the chain
}

// New wraps a slide. tileSize must be positive; overlap must be
// non-negative and smaller than tileSize.
func New(slide *wsi.Slide, tileSize, overlap int) (*Generator, error) {
	if tileSize <= 0 {
		return nil, fmt.Errorf("dzi: tile size %d", tileSize)
	}
	if overlap < 0 || overlap >= tileSize {
		return nil, fmt.Errorf("dzi: overlap %d with tile size %d", overlap, tileSize)
	}

	size := slide.LevelDimensions()[0]
	dims := []image.Point{size}
	for size.X > 1 || size.Y > 1 {
		size = image.Point{
			X: max(1, (size.X+1)/2),
			Y: max(1, (size.Y+1)/2),
		}
		dims = append(dims, size)
	}
	// Reverse into DZ order, smallest level first.
	for i, j := 0, len(dims)-1; i < j; i, j = i+1, j-1 {
		dims[i], dims[j] = dims[j], dims[i]
	}

	return &Generator{slide: slide, tileSize: tileSize, overlap: overlap, dims: dims}, nil
}

// LevelCount returns the number of Deep Zoom levels.
func (g *Generator) LevelCount() int { return len(g.dims) }

// LevelDimensions returns the pixel size of a Deep Zoom level.
func (g *Generator) LevelDimensions(level int) (image.Point, error) {
	if level < 0 || level >= len(g.dims) {
		return image.Point{}, fmt.Errorf("dzi: no level %d", level)
	}
	return g.dims[level], nil
}

// TileGrid returns the tile column and row counts of a Deep Zoom level.
func (g *Generator) TileGrid(level int) (image.Point, error) {
	dims, err := g.LevelDimensions(level)
	if err != nil {
		return image.Point{}, err
	}
	return image.Point{
		X: (dims.X + g.tileSize - 1) / g.tileSize,
		Y: (dims.Y + g.tileSize - 1) / g.tileSize,
	}, nil
}

// Tile reads one Deep Zoom tile. Interior edges are expanded by the
// overlap; tiles in the last row or column are cut to the level bounds, so
// only full interior tiles have exactly tileSize+2*overlap pixels.
func (g *Generator) Tile(level, col, row int) (*wsi.Region, error) {
	dims, err := g.LevelDimensions(level)
	if err != nil {
		return nil, err
	}
	grid, _ := g.TileGrid(level)
	if col < 0 || col >= grid.X || row < 0 || row >= grid.Y {
		return nil, fmt.Errorf("dzi: no tile (%d,%d) at level %d", col, row, level)
	}

	left := g.overlap * boolToInt(col > 0)
	top := g.overlap * boolToInt(row > 0)
	right := g.overlap * boolToInt(col < grid.X-1)
	bottom := g.overlap * boolToInt(row < grid.Y-1)

	x := col*g.tileSize - left
	y := row*g.tileSize - top
	w := min(g.tileSize, dims.X-col*g.tileSize) + left + right
	h := min(g.tileSize, dims.Y-row*g.tileSize) + top + bottom

	downsample := math.Pow(2, float64(len(g.dims)-1-level))
	return g.slide.ReadRegionDownsample(x, y, downsample, w, h, nil)
}

// dziImage is the DZI descriptor document.
type dziImage struct {
	XMLName  xml.Name `xml:"Image"`
	Xmlns    string   `xml:"xmlns,attr"`
	TileSize int      `xml:"TileSize,attr"`
	Overlap  int      `xml:"Overlap,attr"`
	Format   string   `xml:"Format,attr"`
	Size     struct {
		Width  int `xml:"Width,attr"`
		Height int `xml:"Height,attr"`
	} `xml:"Size"`
}

// Descriptor renders the DZI XML document for the given tile format
// ("png" or "jpeg").
func (g *Generator) Descriptor(format string) ([]byte, error) {
	doc := dziImage{
		Xmlns:    "http://schemas.microsoft.com/deepzoom/2008",
		TileSize: g.tileSize,
		Overlap:  g.overlap,
		Format:   format,
	}
	full := g.dims[len(g.dims)-1]
	doc.Size.Width = full.X
	doc.Size.Height = full.Y

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
