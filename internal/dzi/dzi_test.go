package dzi

import (
	"encoding/xml"
	"testing"

	"github.com/GeorgeBatch/wsi-reader/pkg/wsi"
	"github.com/GeorgeBatch/wsi-reader/pkg/wsi/wsitest"
)

func testSlide(t *testing.T) *wsi.Slide {
	t.Helper()
	backend := wsitest.New([]wsitest.LevelSpec{
		{Width: 1024, Height: 768, TileWidth: 256, TileHeight: 256},
		{Width: 256, Height: 192, TileWidth: 256, TileHeight: 256},
	}, 3, wsi.DTypeUint8)
	slide, err := wsi.NewSlide(backend)
	if err != nil {
		t.Fatalf("NewSlide failed: %v", err)
	}
	t.Cleanup(func() { slide.Close() })
	return slide
}

func TestNewValidation(t *testing.T) {
	slide := testSlide(t)

	if _, err := New(slide, 0, 0); err == nil {
		t.Error("Expected error for zero tile size")
	}
	if _, err := New(slide, 254, -1); err == nil {
		t.Error("Expected error for negative overlap")
	}
	if _, err := New(slide, 254, 254); err == nil {
		t.Error("Expected error for overlap >= tile size")
	}
}

func TestLevelChain(t *testing.T) {
	g, err := New(testSlide(t), 254, 1)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	// 1024 halves to 1 in ten steps, so the chain is eleven levels.
	if g.LevelCount() != 11 {
		t.Fatalf("Expected 11 levels, got %d", g.LevelCount())
	}

	deepest, err := g.LevelDimensions(g.LevelCount() - 1)
	if err != nil {
		t.Fatalf("LevelDimensions failed: %v", err)
	}
	if deepest.X != 1024 || deepest.Y != 768 {
		t.Errorf("Expected deepest level 1024x768, got %dx%d", deepest.X, deepest.Y)
	}

	smallest, _ := g.LevelDimensions(0)
	if smallest.X != 1 || smallest.Y != 1 {
		t.Errorf("Expected smallest level 1x1, got %dx%d", smallest.X, smallest.Y)
	}

	// Each level is the ceil-half of the next deeper one.
	for level := 0; level < g.LevelCount()-1; level++ {
		cur, _ := g.LevelDimensions(level)
		deeper, _ := g.LevelDimensions(level + 1)
		if cur.X != max(1, (deeper.X+1)/2) || cur.Y != max(1, (deeper.Y+1)/2) {
			t.Errorf("level %d is %dx%d, not the half of %dx%d",
				level, cur.X, cur.Y, deeper.X, deeper.Y)
		}
	}

	if _, err := g.LevelDimensions(11); err == nil {
		t.Error("Expected error for level past the chain")
	}
}

func TestTileGrid(t *testing.T) {
	g, err := New(testSlide(t), 254, 1)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	grid, err := g.TileGrid(g.LevelCount() - 1)
	if err != nil {
		t.Fatalf("TileGrid failed: %v", err)
	}
	if grid.X != 5 || grid.Y != 4 {
		t.Errorf("Expected 5x4 tiles, got %dx%d", grid.X, grid.Y)
	}
}

func TestTileSizes(t *testing.T) {
	g, err := New(testSlide(t), 254, 1)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	deepest := g.LevelCount() - 1

	cases := []struct {
		name     string
		col, row int
		wantW    int
		wantH    int
	}{
		// Corner tile: overlap only on its two interior edges.
		{"corner", 0, 0, 255, 255},
		// Interior tile: overlap on all four edges.
		{"interior", 1, 1, 256, 256},
		// Last column: 1024 - 4*254 = 8 columns left, plus left overlap.
		{"last column", 4, 1, 9, 256},
		// Last row: 768 - 3*254 = 6 rows left, plus top overlap.
		{"last row", 1, 3, 256, 7},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tile, err := g.Tile(deepest, tc.col, tc.row)
			if err != nil {
				t.Fatalf("Tile failed: %v", err)
			}
			if tile.Width != tc.wantW || tile.Height != tc.wantH {
				t.Errorf("Expected %dx%d, got %dx%d", tc.wantW, tc.wantH, tile.Width, tile.Height)
			}
		})
	}

	if _, err := g.Tile(deepest, 5, 0); err == nil {
		t.Error("Expected error for column past the grid")
	}
	if _, err := g.Tile(deepest, 0, -1); err == nil {
		t.Error("Expected error for negative row")
	}
}

func TestTileContent(t *testing.T) {
	g, err := New(testSlide(t), 254, 1)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	// The deepest level is the slide's full resolution, so tile (1,1)
	// covers level-0 pixels starting at 254-1 on both axes.
	tile, err := g.Tile(g.LevelCount()-1, 1, 1)
	if err != nil {
		t.Fatalf("Tile failed: %v", err)
	}
	for _, p := range [][2]int{{0, 0}, {100, 37}, {255, 255}} {
		x, y := p[0], p[1]
		want := wsitest.SampleValue(wsi.DTypeUint8, 0, 253+x, 253+y, 0)
		if got := tile.Value(x, y, 0); got != want {
			t.Errorf("tile pixel (%d,%d): expected %g, got %g", x, y, want, got)
		}
	}
	if tile.MaskAt(128, 128) != 1 {
		t.Error("Expected mask 1 inside the slide")
	}
}

func TestDescriptor(t *testing.T) {
	g, err := New(testSlide(t), 254, 1)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	raw, err := g.Descriptor("png")
	if err != nil {
		t.Fatalf("Descriptor failed: %v", err)
	}

	var doc dziImage
	if err := xml.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("Descriptor is not valid XML: %v", err)
	}
	if doc.TileSize != 254 || doc.Overlap != 1 || doc.Format != "png" {
		t.Errorf("Unexpected attributes: %+v", doc)
	}
	if doc.Size.Width != 1024 || doc.Size.Height != 768 {
		t.Errorf("Expected size 1024x768, got %dx%d", doc.Size.Width, doc.Size.Height)
	}
}
