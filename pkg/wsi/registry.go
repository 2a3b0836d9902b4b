package wsi

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Opener opens a file as a format backend.
type Opener func(path string) (Backend, error)

// Format describes one registered file format.
type Format struct {
	// Name identifies the format in error messages and listings.
	Name string

	// Extensions are matched case-insensitively against the file
	// extension, dot included.
	Extensions []string

	// Sniff, if set, recognizes the format from the first bytes of the
	// file when no extension matched.
	Sniff func(header []byte) bool

	// Open constructs the backend.
	Open Opener
}

// Registry maps file types to backend openers. It is assembled explicitly
// at startup; there is no process-wide default. Register all formats before
// the first Open call.
type Registry struct {
	formats []Format
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends a format. Extension matches are tried in registration
// order, so more specific formats should be registered first.
func (r *Registry) Register(f Format) {
	r.formats = append(r.formats, f)
}

// Names returns the registered format names in order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.formats))
	for i, f := range r.formats {
		out[i] = f.Name
	}
	return out
}

// Recognizes reports whether any registered format claims the file, by
// extension or by header sniff, without opening a backend.
func (r *Registry) Recognizes(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, f := range r.formats {
		for _, e := range f.Extensions {
			if e == ext {
				return true
			}
		}
	}
	header, err := readHeader(path)
	if err != nil {
		return false
	}
	for _, f := range r.formats {
		if f.Sniff != nil && f.Sniff(header) {
			return true
		}
	}
	return false
}

// Open dispatches the path to the first format claiming its extension,
// falling back to header sniffing when no extension matches, and wraps the
// resulting backend in a slide handle. It returns ErrUnsupportedFormat
// when no registered format recognizes the file.
func (r *Registry) Open(path string) (*Slide, error) {
	ext := strings.ToLower(filepath.Ext(path))
	for _, f := range r.formats {
		for _, e := range f.Extensions {
			if e == ext {
				return openAs(f, path)
			}
		}
	}

	header, err := readHeader(path)
	if err != nil {
		return nil, err
	}
	for _, f := range r.formats {
		if f.Sniff != nil && f.Sniff(header) {
			return openAs(f, path)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(path))
}

func openAs(f Format, path string) (*Slide, error) {
	backend, err := f.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s as %s: %w", filepath.Base(path), f.Name, err)
	}
	return NewSlide(backend)
}

func readHeader(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	header := make([]byte, 16)
	n, err := file.Read(header)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return header[:n], nil
}
