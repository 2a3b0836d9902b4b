package server

import (
	"bytes"
	"log"
	"net/http"
	"strconv"

	"github.com/disintegration/imaging"

	"github.com/GeorgeBatch/wsi-reader/internal/api"
	"github.com/GeorgeBatch/wsi-reader/pkg/wsi"
)

// writeImage encodes a region and streams it to the client. PNG keeps the
// validity mask as transparency; JPEG flattens it.
func writeImage(w http.ResponseWriter, region *wsi.Region, format api.ImageFormat, requestID string) {
	var buf bytes.Buffer
	var contentType string
	var err error

	img := region.Image()
	switch format {
	case api.Jpeg:
		contentType = "image/jpeg"
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(90))
	default:
		contentType = "image/png"
		err = imaging.Encode(&buf, img, imaging.PNG)
	}
	if err != nil {
		log.Printf("Error encoding image: %v", err)
		http.Error(w, "image encoding failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Request-ID", requestID)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Printf("Error writing response: %v", err)
	}
}
