// Package tiff reads pyramidal TIFF files as wsi backends. It understands
// classic and BigTIFF containers in either byte order, tiled and stripped
// layouts, and the None, LZW, Deflate and JPEG compression schemes. Reduced
// resolution pages whose aspect ratio matches the first page are assembled
// into the pyramid; everything else (labels, macro images) is skipped.
package tiff

import (
	"encoding/binary"
	"fmt"
	"image"
	"os"

	"github.com/GeorgeBatch/wsi-reader/pkg/wsi"
)

// TIFF tag IDs used by the reader.
const (
	tagNewSubfileType   = 254
	tagImageWidth       = 256
	tagImageLength      = 257
	tagBitsPerSample    = 258
	tagCompression      = 259
	tagPhotometric      = 262
	tagImageDescription = 270
	tagStripOffsets     = 273
	tagSamplesPerPixel  = 277
	tagRowsPerStrip     = 278
	tagStripByteCounts  = 279
	tagXResolution      = 282
	tagYResolution      = 283
	tagResolutionUnit   = 296
	tagTileWidth        = 322
	tagTileLength       = 323
	tagTileOffsets      = 324
	tagTileByteCounts   = 325
	tagSampleFormat     = 339
	tagJPEGTables       = 347
)

// Compression scheme values.
const (
	compressionNone    = 1
	compressionLZW     = 5
	compressionJPEG    = 7
	compressionDeflate = 8
	// Old-style code some writers still emit for deflate.
	compressionDeflateAlt = 32946
)

// Photometric interpretation values.
const (
	photometricMinIsBlack = 1
	photometricRGB        = 2
	photometricYCbCr      = 6
)

const sampleFormatFloat = 3

// page is one parsed IFD.
type page struct {
	width        int
	height       int
	tileWidth    int
	tileHeight   int
	rowsPerStrip int
	tiled        bool

	compression     uint16
	photometric     uint16
	bitsPerSample   int
	samplesPerPixel int
	sampleFormat    uint16

	offsets    []uint64
	byteCounts []uint64
	jpegTables []byte

	description    string
	xResolution    float64
	yResolution    float64
	resolutionUnit int
}

// Backend reads one pyramidal TIFF file.
type Backend struct {
	file     *os.File
	order    binary.ByteOrder
	levels   []page
	dtype    wsi.DType
	channels int
	mppX     float64
	mppY     float64
	hasMPP   bool
}

// Sniff reports whether the header bytes start a TIFF stream: the II or MM
// byte-order mark followed by magic 42 (classic) or 43 (BigTIFF).
func Sniff(header []byte) bool {
	if len(header) < 4 {
		return false
	}
	var order binary.ByteOrder
	switch {
	case header[0] == 'I' && header[1] == 'I':
		order = binary.LittleEndian
	case header[0] == 'M' && header[1] == 'M':
		order = binary.BigEndian
	default:
		return false
	}
	magic := order.Uint16(header[2:4])
	return magic == 42 || magic == 43
}

// Format describes the TIFF backend to a wsi.Registry.
func Format() wsi.Format {
	return wsi.Format{
		Name:       "tiff",
		Extensions: []string{".tif", ".tiff", ".svs", ".ndpi", ".btf"},
		Sniff:      Sniff,
		Open: func(path string) (wsi.Backend, error) {
			return Open(path)
		},
	}
}

// Open parses the file's IFD chain and assembles the pyramid.
func Open(path string) (*Backend, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	b, err := newBackend(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	return b, nil
}

func newBackend(file *os.File) (*Backend, error) {
	pages, order, err := parsePages(file)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("tiff: file has no images")
	}

	levels := selectPyramid(pages)
	base := levels[0]

	b := &Backend{file: file, order: order, levels: levels}
	switch {
	case base.sampleFormat == sampleFormatFloat && base.bitsPerSample == 32:
		b.dtype = wsi.DTypeFloat32
	case base.bitsPerSample == 16:
		b.dtype = wsi.DTypeUint16
	case base.bitsPerSample == 8:
		b.dtype = wsi.DTypeUint8
	default:
		return nil, fmt.Errorf("tiff: unsupported %d-bit samples", base.bitsPerSample)
	}
	b.channels = base.samplesPerPixel
	b.mppX, b.mppY, b.hasMPP = calibration(base)
	return b, nil
}

// selectPyramid keeps the first page plus every later page that is a
// reduced-resolution version of it: strictly smaller, same sample layout
// and matching aspect ratio within one part in fifty. Pages are assumed to
// appear largest first, as every pyramidal writer emits them.
func selectPyramid(pages []page) []page {
	base := pages[0]
	levels := []page{base}
	baseAspect := float64(base.width) / float64(base.height)

	for _, p := range pages[1:] {
		if p.width >= levels[len(levels)-1].width || p.width <= 0 || p.height <= 0 {
			continue
		}
		if p.bitsPerSample != base.bitsPerSample || p.samplesPerPixel != base.samplesPerPixel {
			continue
		}
		aspect := float64(p.width) / float64(p.height)
		if aspect/baseAspect > 1.02 || baseAspect/aspect > 1.02 {
			continue
		}
		levels = append(levels, p)
	}
	return levels
}

func (b *Backend) LevelCount() int { return len(b.levels) }

func (b *Backend) LevelDimensions() []image.Point {
	out := make([]image.Point, len(b.levels))
	for i, p := range b.levels {
		out[i] = image.Point{X: p.width, Y: p.height}
	}
	return out
}

func (b *Backend) TileDimensions() []image.Point {
	out := make([]image.Point, len(b.levels))
	for i, p := range b.levels {
		if p.tiled {
			out[i] = image.Point{X: p.tileWidth, Y: p.tileHeight}
		} else {
			out[i] = image.Point{X: p.width, Y: p.rowsPerStrip}
		}
	}
	return out
}

func (b *Backend) DType() wsi.DType { return b.dtype }

func (b *Backend) NumChannels() int { return b.channels }

func (b *Backend) MPP() (x, y float64, ok bool) { return b.mppX, b.mppY, b.hasMPP }

func (b *Backend) Close() error { return b.file.Close() }

// parsePages walks the IFD chain and returns every page in file order.
func parsePages(file *os.File) ([]page, binary.ByteOrder, error) {
	header := make([]byte, 16)
	if _, err := file.ReadAt(header[:8], 0); err != nil {
		return nil, nil, fmt.Errorf("tiff: reading header: %w", err)
	}

	var order binary.ByteOrder
	switch {
	case header[0] == 'I' && header[1] == 'I':
		order = binary.LittleEndian
	case header[0] == 'M' && header[1] == 'M':
		order = binary.BigEndian
	default:
		return nil, nil, fmt.Errorf("tiff: bad byte-order mark %q", header[:2])
	}

	var big bool
	var next uint64
	switch order.Uint16(header[2:4]) {
	case 42:
		next = uint64(order.Uint32(header[4:8]))
	case 43:
		big = true
		if order.Uint16(header[4:6]) != 8 {
			return nil, nil, fmt.Errorf("tiff: bad BigTIFF offset size")
		}
		if _, err := file.ReadAt(header[8:16], 8); err != nil {
			return nil, nil, fmt.Errorf("tiff: reading BigTIFF header: %w", err)
		}
		next = order.Uint64(header[8:16])
	default:
		return nil, nil, fmt.Errorf("tiff: bad magic %d", order.Uint16(header[2:4]))
	}

	var pages []page
	for next != 0 {
		p, n, err := parseIFD(file, order, big, next)
		if err != nil {
			return nil, nil, err
		}
		pages = append(pages, p)
		if n <= next && n != 0 {
			return nil, nil, fmt.Errorf("tiff: IFD chain loops at offset %d", n)
		}
		next = n
		if len(pages) > 64 {
			return nil, nil, fmt.Errorf("tiff: more than 64 IFDs")
		}
	}
	return pages, order, nil
}

// parseIFD reads the directory at the given offset and returns the page
// plus the offset of the next IFD (0 at the end of the chain).
func parseIFD(file *os.File, order binary.ByteOrder, big bool, offset uint64) (page, uint64, error) {
	entrySize := 12
	countSize := 2
	if big {
		entrySize = 20
		countSize = 8
	}

	countBuf := make([]byte, countSize)
	if _, err := file.ReadAt(countBuf, int64(offset)); err != nil {
		return page{}, 0, fmt.Errorf("tiff: reading IFD at %d: %w", offset, err)
	}
	var count uint64
	if big {
		count = order.Uint64(countBuf)
	} else {
		count = uint64(order.Uint16(countBuf))
	}
	if count > 4096 {
		return page{}, 0, fmt.Errorf("tiff: IFD with %d entries", count)
	}

	nextSize := 4
	if big {
		nextSize = 8
	}
	buf := make([]byte, int(count)*entrySize+nextSize)
	if _, err := file.ReadAt(buf, int64(offset)+int64(countSize)); err != nil {
		return page{}, 0, fmt.Errorf("tiff: reading IFD entries at %d: %w", offset, err)
	}

	p := page{
		compression:     compressionNone,
		photometric:     photometricRGB,
		bitsPerSample:   8,
		samplesPerPixel: 1,
		resolutionUnit:  2,
		rowsPerStrip:    1 << 30,
	}

	for i := 0; i < int(count); i++ {
		entry := buf[i*entrySize : (i+1)*entrySize]
		tag := order.Uint16(entry[0:2])
		if err := applyTag(file, order, big, tag, entry, &p); err != nil {
			return page{}, 0, err
		}
	}

	var next uint64
	tail := buf[int(count)*entrySize:]
	if big {
		next = order.Uint64(tail)
	} else {
		next = uint64(order.Uint32(tail))
	}

	if p.rowsPerStrip > p.height && p.height > 0 {
		p.rowsPerStrip = p.height
	}
	return p, next, nil
}

func applyTag(file *os.File, order binary.ByteOrder, big bool, tag uint16, entry []byte, p *page) error {
	switch tag {
	case tagImageWidth, tagImageLength, tagCompression, tagPhotometric,
		tagBitsPerSample, tagSamplesPerPixel, tagRowsPerStrip,
		tagTileWidth, tagTileLength, tagSampleFormat, tagResolutionUnit:
		vals, err := tagValues(file, order, big, entry)
		if err != nil || len(vals) == 0 {
			return err
		}
		v := vals[0]
		switch tag {
		case tagImageWidth:
			p.width = int(v)
		case tagImageLength:
			p.height = int(v)
		case tagCompression:
			p.compression = uint16(v)
		case tagPhotometric:
			p.photometric = uint16(v)
		case tagBitsPerSample:
			p.bitsPerSample = int(v)
		case tagSamplesPerPixel:
			p.samplesPerPixel = int(v)
		case tagRowsPerStrip:
			p.rowsPerStrip = int(v)
		case tagTileWidth:
			p.tileWidth = int(v)
		case tagTileLength:
			p.tileHeight = int(v)
		case tagSampleFormat:
			p.sampleFormat = uint16(v)
		case tagResolutionUnit:
			p.resolutionUnit = int(v)
		}

	case tagStripOffsets, tagStripByteCounts, tagTileOffsets, tagTileByteCounts:
		vals, err := tagValues(file, order, big, entry)
		if err != nil {
			return err
		}
		switch tag {
		case tagStripOffsets:
			p.offsets = vals
		case tagStripByteCounts:
			p.byteCounts = vals
		case tagTileOffsets:
			p.offsets = vals
			p.tiled = true
		case tagTileByteCounts:
			p.byteCounts = vals
			p.tiled = true
		}

	case tagXResolution, tagYResolution:
		vals, err := tagValues(file, order, big, entry)
		if err != nil || len(vals) < 2 {
			return err
		}
		if vals[1] == 0 {
			return nil
		}
		r := float64(vals[0]) / float64(vals[1])
		if tag == tagXResolution {
			p.xResolution = r
		} else {
			p.yResolution = r
		}

	case tagImageDescription:
		raw, err := tagBytes(file, order, big, entry)
		if err != nil {
			return err
		}
		for len(raw) > 0 && raw[len(raw)-1] == 0 {
			raw = raw[:len(raw)-1]
		}
		p.description = string(raw)

	case tagJPEGTables:
		raw, err := tagBytes(file, order, big, entry)
		if err != nil {
			return err
		}
		p.jpegTables = raw
	}
	return nil
}

// typeSize maps TIFF field types to their byte width.
func typeSize(fieldType uint16) int {
	switch fieldType {
	case 1, 2, 6, 7: // BYTE, ASCII, SBYTE, UNDEFINED
		return 1
	case 3, 8: // SHORT, SSHORT
		return 2
	case 4, 9, 11: // LONG, SLONG, FLOAT
		return 4
	case 5, 10, 12, 16, 17: // RATIONAL, SRATIONAL, DOUBLE, LONG8, SLONG8
		return 8
	default:
		return 0
	}
}

// tagBytes returns the raw value bytes of an IFD entry, following the
// offset indirection when the value does not fit inline.
func tagBytes(file *os.File, order binary.ByteOrder, big bool, entry []byte) ([]byte, error) {
	fieldType := order.Uint16(entry[2:4])
	size := typeSize(fieldType)
	if size == 0 {
		return nil, fmt.Errorf("tiff: unknown field type %d", fieldType)
	}

	var count uint64
	var value []byte
	inline := 4
	if big {
		count = order.Uint64(entry[4:12])
		value = entry[12:20]
		inline = 8
	} else {
		count = uint64(order.Uint32(entry[4:8]))
		value = entry[8:12]
	}

	total := int(count) * size
	if total <= inline {
		return append([]byte(nil), value[:total]...), nil
	}

	var offset uint64
	if big {
		offset = order.Uint64(value)
	} else {
		offset = uint64(order.Uint32(value))
	}
	raw := make([]byte, total)
	if _, err := file.ReadAt(raw, int64(offset)); err != nil {
		return nil, fmt.Errorf("tiff: reading tag value at %d: %w", offset, err)
	}
	return raw, nil
}

// tagValues decodes an IFD entry into unsigned integers. RATIONAL values
// expand into numerator/denominator pairs.
func tagValues(file *os.File, order binary.ByteOrder, big bool, entry []byte) ([]uint64, error) {
	fieldType := order.Uint16(entry[2:4])
	raw, err := tagBytes(file, order, big, entry)
	if err != nil {
		return nil, err
	}

	size := typeSize(fieldType)
	if fieldType == 5 || fieldType == 10 {
		size = 4 // rationals decode as two LONGs
	}

	out := make([]uint64, 0, len(raw)/size)
	for i := 0; i+size <= len(raw); i += size {
		switch size {
		case 1:
			out = append(out, uint64(raw[i]))
		case 2:
			out = append(out, uint64(order.Uint16(raw[i:])))
		case 4:
			out = append(out, uint64(order.Uint32(raw[i:])))
		case 8:
			out = append(out, order.Uint64(raw[i:]))
		}
	}
	return out, nil
}
