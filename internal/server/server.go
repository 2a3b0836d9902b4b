// Package server implements the HTTP API over a directory of slides. It
// adapts the generated api.ServerInterface onto the wsi core: slide handles
// are pooled per file and closed on shutdown, region reads map onto
// ReadRegion/ReadRegionDownsample, and errors surface as JSON envelopes
// with machine-readable codes.
package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/GeorgeBatch/wsi-reader/internal/api"
	"github.com/GeorgeBatch/wsi-reader/internal/dzi"
	"github.com/GeorgeBatch/wsi-reader/pkg/wsi"
)

// Region dimensions above this are rejected before any backend read.
const maxRegionDim = 8192

// Deep Zoom tiling parameters served by the deepzoom endpoints.
const (
	dzTileSize = 254
	dzOverlap  = 1
)

// Server implements the ServerInterface from the generated API.
type Server struct {
	root      string
	pool      *slidePool
	startTime time.Time
	version   string
}

// NewServer serves the slides under root, opening them through the given
// registry.
func NewServer(root string, registry *wsi.Registry, version string) *Server {
	return &Server{
		root:      root,
		pool:      newSlidePool(registry),
		startTime: time.Now(),
		version:   version,
	}
}

// Close releases every pooled slide handle.
func (s *Server) Close() {
	s.pool.closeAll()
}

// GetHealth implements the health check endpoint.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	uptime := int(time.Since(s.startTime).Seconds())

	response := api.HealthResponse{
		Status:    api.Healthy,
		Timestamp: time.Now(),
		Uptime:    &uptime,
		Version:   &s.version,
	}

	writeJSON(w, http.StatusOK, response)
}

// ListSlides lists the files under the root that a registered format
// recognizes.
func (s *Server) ListSlides(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()

	entries, err := os.ReadDir(s.root)
	if err != nil {
		log.Printf("Error listing slide root: %v", err)
		s.writeErrorResponse(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"Cannot list slide directory", requestID)
		return
	}

	response := api.SlideListResponse{Slides: []api.SlideSummary{}}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(s.root, entry.Name())
		if !s.pool.registry.Recognizes(path) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		response.Slides = append(response.Slides, api.SlideSummary{
			Name:      entry.Name(),
			SizeBytes: info.Size(),
		})
	}
	sort.Slice(response.Slides, func(i, j int) bool {
		return response.Slides[i].Name < response.Slides[j].Name
	})

	writeJSON(w, http.StatusOK, response)
}

// GetSlideInfo returns the level table and calibration of one slide.
func (s *Server) GetSlideInfo(w http.ResponseWriter, r *http.Request, slideName string) {
	requestID := uuid.NewString()

	slide, ok := s.acquireSlide(w, slideName, requestID)
	if !ok {
		return
	}

	dims := slide.LevelDimensions()
	tiles := slide.TileDimensions()
	downsamples := slide.LevelDownsamples()

	response := api.SlideInfoResponse{
		Name:       slideName,
		LevelCount: slide.LevelCount(),
		Dtype:      slide.DType().String(),
		Channels:   slide.NumChannels(),
		Levels:     make([]api.SlideLevel, slide.LevelCount()),
	}
	for i := range response.Levels {
		response.Levels[i] = api.SlideLevel{
			Level:      i,
			Width:      dims[i].X,
			Height:     dims[i].Y,
			Downsample: downsamples[i],
			TileWidth:  tiles[i].X,
			TileHeight: tiles[i].Y,
		}
	}
	if x, y, ok := slide.MPP(); ok {
		response.Mpp = &api.Calibration{X: x, Y: y}
	}

	writeJSON(w, http.StatusOK, response)
}

// GetSlideRegion extracts a region addressed by level or by downsample
// factor and streams it back as PNG or JPEG.
func (s *Server) GetSlideRegion(w http.ResponseWriter, r *http.Request, slideName string, params api.GetSlideRegionParams) {
	requestID := uuid.NewString()

	if params.Level != nil && params.Downsample != nil {
		s.writeValidationError(w, "level and downsample are mutually exclusive", requestID)
		return
	}
	if params.Width <= 0 || params.Height <= 0 {
		s.writeValidationError(w, "width and height must be positive", requestID)
		return
	}
	if params.Width > maxRegionDim || params.Height > maxRegionDim {
		s.writeValidationError(w, "requested region is too large", requestID)
		return
	}

	slide, ok := s.acquireSlide(w, slideName, requestID)
	if !ok {
		return
	}

	x, y := 0, 0
	if params.X != nil {
		x = *params.X
	}
	if params.Y != nil {
		y = *params.Y
	}

	opts := &wsi.ReadOptions{}
	if params.DownsampleLevel0 != nil {
		opts.DownsampleLevel0 = *params.DownsampleLevel0
	}

	var region *wsi.Region
	var err error
	if params.Downsample != nil {
		region, err = slide.ReadRegionDownsample(x, y, *params.Downsample, params.Width, params.Height, opts)
	} else {
		level := 0
		if params.Level != nil {
			level = *params.Level
		}
		region, err = slide.ReadRegion(x, y, level, params.Width, params.Height, opts)
	}
	if err != nil {
		s.writeReadError(w, err, requestID)
		return
	}

	writeImage(w, region, imageFormat(params.Format), requestID)
}

// GetSlideThumbnail renders a whole-slide preview bounded by the requested
// dimensions.
func (s *Server) GetSlideThumbnail(w http.ResponseWriter, r *http.Request, slideName string, params api.GetSlideThumbnailParams) {
	requestID := uuid.NewString()

	width, height := 512, 512
	if params.Width != nil {
		width = *params.Width
	}
	if params.Height != nil {
		height = *params.Height
	}
	if width <= 0 || height <= 0 {
		s.writeValidationError(w, "width and height must be positive", requestID)
		return
	}
	if width > maxRegionDim || height > maxRegionDim {
		s.writeValidationError(w, "requested thumbnail is too large", requestID)
		return
	}

	slide, ok := s.acquireSlide(w, slideName, requestID)
	if !ok {
		return
	}

	region, err := slide.Thumbnail(width, height, false)
	if err != nil {
		s.writeReadError(w, err, requestID)
		return
	}

	writeImage(w, region, imageFormat(params.Format), requestID)
}

// GetDeepZoomDescriptor serves the DZI XML document for a slide.
func (s *Server) GetDeepZoomDescriptor(w http.ResponseWriter, r *http.Request, slideName string) {
	requestID := uuid.NewString()

	slide, ok := s.acquireSlide(w, slideName, requestID)
	if !ok {
		return
	}

	gen, err := dzi.New(slide, dzTileSize, dzOverlap)
	if err != nil {
		log.Printf("Error building deepzoom generator: %v", err)
		s.writeErrorResponse(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"Cannot build Deep Zoom pyramid", requestID)
		return
	}
	doc, err := gen.Descriptor("png")
	if err != nil {
		log.Printf("Error rendering DZI descriptor: %v", err)
		s.writeErrorResponse(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"Cannot render DZI descriptor", requestID)
		return
	}

	w.Header().Set("Content-Type", "application/xml")
	w.Header().Set("X-Request-ID", requestID)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc); err != nil {
		log.Printf("Error writing response: %v", err)
	}
}

// GetDeepZoomTile serves one Deep Zoom tile.
func (s *Server) GetDeepZoomTile(w http.ResponseWriter, r *http.Request, slideName string, dzLevel, col, row int, params api.GetDeepZoomTileParams) {
	requestID := uuid.NewString()

	slide, ok := s.acquireSlide(w, slideName, requestID)
	if !ok {
		return
	}

	gen, err := dzi.New(slide, dzTileSize, dzOverlap)
	if err != nil {
		log.Printf("Error building deepzoom generator: %v", err)
		s.writeErrorResponse(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"Cannot build Deep Zoom pyramid", requestID)
		return
	}

	tile, err := gen.Tile(dzLevel, col, row)
	if err != nil {
		var decodeErr *wsi.DecodeError
		if errors.As(err, &decodeErr) {
			s.writeErrorResponse(w, http.StatusBadGateway, "DECODE_ERROR",
				err.Error(), requestID)
			return
		}
		s.writeValidationError(w, err.Error(), requestID)
		return
	}

	writeImage(w, tile, imageFormat(params.Format), requestID)
}

// acquireSlide resolves a slide name inside the root and fetches its
// pooled handle, writing the error envelope itself on failure.
func (s *Server) acquireSlide(w http.ResponseWriter, name, requestID string) (*wsi.Slide, bool) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == ".." {
		s.writeErrorResponse(w, http.StatusNotFound, "SLIDE_NOT_FOUND",
			"No such slide: "+name, requestID)
		return nil, false
	}

	slide, err := s.pool.acquire(filepath.Join(s.root, name))
	if err != nil {
		switch {
		case os.IsNotExist(err):
			s.writeErrorResponse(w, http.StatusNotFound, "SLIDE_NOT_FOUND",
				"No such slide: "+name, requestID)
		case errors.Is(err, wsi.ErrUnsupportedFormat):
			s.writeErrorResponse(w, http.StatusUnsupportedMediaType, "UNSUPPORTED_FORMAT",
				"No registered format can read "+name, requestID)
		default:
			log.Printf("Error opening slide %s: %v", name, err)
			s.writeErrorResponse(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Cannot open slide", requestID)
		}
		return nil, false
	}
	return slide, true
}

// writeReadError maps core read failures onto the error envelope.
func (s *Server) writeReadError(w http.ResponseWriter, err error, requestID string) {
	var levelErr *wsi.InvalidLevelError
	var sizeErr *wsi.InvalidSizeError
	var dsErr *wsi.InvalidDownsampleError
	var decodeErr *wsi.DecodeError

	switch {
	case errors.As(err, &levelErr), errors.As(err, &sizeErr), errors.As(err, &dsErr):
		s.writeValidationError(w, err.Error(), requestID)
	case errors.As(err, &decodeErr):
		s.writeErrorResponse(w, http.StatusBadGateway, "DECODE_ERROR", err.Error(), requestID)
	default:
		log.Printf("Error reading region: %v", err)
		s.writeErrorResponse(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"Internal server error", requestID)
	}
}

// writeErrorResponse writes a standard error envelope.
func (s *Server) writeErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message, requestID string) {
	response := api.ErrorResponse{
		Error:     errorCode,
		Message:   message,
		RequestId: &requestID,
	}
	w.Header().Set("X-Request-ID", requestID)
	writeJSON(w, statusCode, response)
}

func (s *Server) writeValidationError(w http.ResponseWriter, message, requestID string) {
	s.writeErrorResponse(w, http.StatusBadRequest, "VALIDATION_ERROR", message, requestID)
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func imageFormat(f *api.ImageFormat) api.ImageFormat {
	if f == nil {
		return api.Png
	}
	return *f
}
