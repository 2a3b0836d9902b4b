package tiff

import (
	"bytes"
	"compress/flate"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"image"
	"image/jpeg"
	"io"

	"golang.org/x/image/tiff/lzw"
)

// ReadBlock assembles the requested rectangle from the tiles or strips it
// intersects. The rectangle must lie inside the level bounds; the slide
// clips before calling.
func (b *Backend) ReadBlock(level, x, y, width, height int) ([]byte, error) {
	if level < 0 || level >= len(b.levels) {
		return nil, fmt.Errorf("tiff: no level %d", level)
	}
	p := &b.levels[level]

	px := b.channels * b.dtype.SampleSize()
	out := make([]byte, width*height*px)

	if p.tiled {
		if err := b.readTiled(p, x, y, width, height, px, out); err != nil {
			return nil, err
		}
	} else {
		if err := b.readStripped(p, x, y, width, height, px, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (b *Backend) readTiled(p *page, x, y, width, height, px int, out []byte) error {
	tilesPerRow := (p.width + p.tileWidth - 1) / p.tileWidth

	tx0 := x / p.tileWidth
	tx1 := (x + width - 1) / p.tileWidth
	ty0 := y / p.tileHeight
	ty1 := (y + height - 1) / p.tileHeight

	for ty := ty0; ty <= ty1; ty++ {
		for tx := tx0; tx <= tx1; tx++ {
			index := ty*tilesPerRow + tx
			tile, err := b.decodeBlock(p, index, p.tileWidth, p.tileHeight)
			if err != nil {
				return fmt.Errorf("tiff: tile (%d,%d): %w", tx, ty, err)
			}
			copyIntersection(out, tile,
				x, y, width, height,
				tx*p.tileWidth, ty*p.tileHeight, p.tileWidth, p.tileHeight,
				px)
		}
	}
	return nil
}

func (b *Backend) readStripped(p *page, x, y, width, height, px int, out []byte) error {
	s0 := y / p.rowsPerStrip
	s1 := (y + height - 1) / p.rowsPerStrip

	for s := s0; s <= s1; s++ {
		top := s * p.rowsPerStrip
		rows := p.rowsPerStrip
		if top+rows > p.height {
			rows = p.height - top
		}
		strip, err := b.decodeBlock(p, s, p.width, rows)
		if err != nil {
			return fmt.Errorf("tiff: strip %d: %w", s, err)
		}
		copyIntersection(out, strip,
			x, y, width, height,
			0, top, p.width, rows,
			px)
	}
	return nil
}

// copyIntersection copies the overlap between the destination rectangle
// (dstX, dstY, dstW, dstH) and a decoded block at (blockX, blockY, blockW,
// blockH), both in level pixel coordinates, one row at a time.
func copyIntersection(dst, block []byte, dstX, dstY, dstW, dstH, blockX, blockY, blockW, blockH, px int) {
	x0 := max(dstX, blockX)
	y0 := max(dstY, blockY)
	x1 := min(dstX+dstW, blockX+blockW)
	y1 := min(dstY+dstH, blockY+blockH)
	if x1 <= x0 || y1 <= y0 {
		return
	}

	rowBytes := (x1 - x0) * px
	for row := y0; row < y1; row++ {
		src := ((row-blockY)*blockW + (x0 - blockX)) * px
		d := ((row-dstY)*dstW + (x0 - dstX)) * px
		copy(dst[d:d+rowBytes], block[src:src+rowBytes])
	}
}

// decodeBlock reads and decompresses tile or strip number index, returning
// exactly blockW*blockH pixels with multi-byte samples little-endian.
func (b *Backend) decodeBlock(p *page, index, blockW, blockH int) ([]byte, error) {
	if index < 0 || index >= len(p.offsets) || index >= len(p.byteCounts) {
		return nil, fmt.Errorf("block index %d out of range", index)
	}
	raw := make([]byte, p.byteCounts[index])
	if _, err := b.file.ReadAt(raw, int64(p.offsets[index])); err != nil {
		return nil, fmt.Errorf("reading %d bytes at %d: %w", len(raw), p.offsets[index], err)
	}

	px := b.channels * b.dtype.SampleSize()
	expected := blockW * blockH * px

	var data []byte
	switch p.compression {
	case compressionNone:
		data = raw

	case compressionLZW:
		// TIFF LZW is MSB-first, but a few old writers used LSB order.
		r := lzw.NewReader(bytes.NewReader(raw), lzw.MSB, 8)
		decoded, err := io.ReadAll(r)
		r.Close()
		if err != nil {
			r = lzw.NewReader(bytes.NewReader(raw), lzw.LSB, 8)
			decoded, err = io.ReadAll(r)
			r.Close()
		}
		if err != nil {
			return nil, fmt.Errorf("lzw: %w", err)
		}
		data = decoded

	case compressionDeflate, compressionDeflateAlt:
		r, err := zlibOrFlate(raw)
		if err != nil {
			return nil, err
		}
		decoded, err := io.ReadAll(r)
		r.Close()
		if err != nil {
			return nil, fmt.Errorf("deflate: %w", err)
		}
		data = decoded

	case compressionJPEG:
		return b.decodeJPEG(p, raw, blockW, blockH)

	default:
		return nil, fmt.Errorf("unsupported compression %d", p.compression)
	}

	if len(data) < expected {
		return nil, fmt.Errorf("block has %d bytes, want %d", len(data), expected)
	}
	data = data[:expected]

	// File samples follow the container's byte order; regions are
	// little-endian.
	if b.order == binary.ByteOrder(binary.BigEndian) && b.dtype.SampleSize() > 1 {
		swapToLittleEndian(data, b.dtype.SampleSize())
	}
	return data, nil
}

// decodeJPEG decodes a JPEG-compressed block, splicing in the shared
// JPEGTables stream when the page carries one (tiles then hold only an
// abbreviated SOI+SOS stream).
func (b *Backend) decodeJPEG(p *page, raw []byte, blockW, blockH int) ([]byte, error) {
	stream := raw
	if t := p.jpegTables; len(t) > 4 && len(raw) > 2 {
		// tables = SOI, DQT/DHT segments, EOI; keep only the middle.
		spliced := make([]byte, 0, len(raw)+len(t)-4)
		spliced = append(spliced, raw[:2]...)
		spliced = append(spliced, t[2:len(t)-2]...)
		spliced = append(spliced, raw[2:]...)
		stream = spliced
	}

	img, err := jpeg.Decode(bytes.NewReader(stream))
	if err != nil {
		return nil, fmt.Errorf("jpeg: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > blockW {
		w = blockW
	}
	if h > blockH {
		h = blockH
	}

	px := b.channels
	out := make([]byte, blockW*blockH*px)
	if gray, ok := img.(*image.Gray); ok && px == 1 {
		for row := 0; row < h; row++ {
			copy(out[row*blockW:], gray.Pix[row*gray.Stride:row*gray.Stride+w])
		}
		return out, nil
	}

	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			r, g, bl, _ := img.At(bounds.Min.X+col, bounds.Min.Y+row).RGBA()
			i := (row*blockW + col) * px
			out[i] = uint8(r >> 8)
			if px >= 3 {
				out[i+1] = uint8(g >> 8)
				out[i+2] = uint8(bl >> 8)
			}
			if px >= 4 {
				out[i+3] = 255
			}
		}
	}
	return out, nil
}

// zlibOrFlate opens a Deflate stream with or without the zlib wrapper;
// TIFF writers disagree on which one tag 8 means.
func zlibOrFlate(raw []byte) (io.ReadCloser, error) {
	if len(raw) >= 2 && raw[0] == 0x78 {
		return zlib.NewReader(bytes.NewReader(raw))
	}
	return flate.NewReader(bytes.NewReader(raw)), nil
}

func swapToLittleEndian(data []byte, sampleSize int) {
	switch sampleSize {
	case 2:
		for i := 0; i+1 < len(data); i += 2 {
			data[i], data[i+1] = data[i+1], data[i]
		}
	case 4:
		for i := 0; i+3 < len(data); i += 4 {
			data[i], data[i+3] = data[i+3], data[i]
			data[i+1], data[i+2] = data[i+2], data[i+1]
		}
	}
}
