package server

import (
	"sync"

	"github.com/GeorgeBatch/wsi-reader/pkg/wsi"
)

// slidePool caches one open slide handle per file path. The core itself
// never caches, so reusing handles across requests is the server's job;
// everything here is layered strictly outside pkg/wsi.
type slidePool struct {
	registry *wsi.Registry

	mu     sync.RWMutex
	slides map[string]*wsi.Slide
}

func newSlidePool(registry *wsi.Registry) *slidePool {
	return &slidePool{
		registry: registry,
		slides:   make(map[string]*wsi.Slide),
	}
}

// acquire returns the pooled handle for path, opening it on first use.
// Concurrent first requests for the same path may race to open; the
// loser's handle is closed and the winner's kept.
func (p *slidePool) acquire(path string) (*wsi.Slide, error) {
	p.mu.RLock()
	slide, ok := p.slides[path]
	p.mu.RUnlock()
	if ok {
		return slide, nil
	}

	opened, err := p.registry.Open(path)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if existing, ok := p.slides[path]; ok {
		opened.Close()
		return existing, nil
	}
	p.slides[path] = opened
	return opened, nil
}

// closeAll releases every pooled handle.
func (p *slidePool) closeAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for path, slide := range p.slides {
		slide.Close()
		delete(p.slides, path)
	}
}
