package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"sort"
	"sync"

	"picpic.bench/internal/core/domain"
	"picpic.bench/internal/core/ports"
)

const (
	DefaultTransform  = "filter-chain"
	DefaultBrightness = 20
	jpegQuality       = 95
)

// Stage is one filter of the chain.
type Stage func(*image.Gray) *image.Gray

// Chain decodes an image, runs grayscale followed by its stages, and re-encodes the
// result in the input's format.
type Chain struct {
	Stages []Stage
}

// NewFilterChain returns grayscale -> gaussian blur -> sobel -> sharpen -> brightness.
func NewFilterChain(brightness int) *Chain {
	return &Chain{Stages: []Stage{
		GaussianBlur,
		SobelEdge,
		Sharpen,
		func(g *image.Gray) *image.Gray { return AdjustBrightness(g, brightness) },
	}}
}

func (c *Chain) Transform(raw []byte) ([]byte, error) {
	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, domain.Wrap(domain.KindItemDecodeFailure, "transform", "decode image", err)
	}

	gray := Grayscale(img)
	for _, stage := range c.Stages {
		gray = stage(gray)
	}

	var buf bytes.Buffer
	switch format {
	case "jpeg":
		err = jpeg.Encode(&buf, gray, &jpeg.Options{Quality: jpegQuality})
	default:
		err = png.Encode(&buf, gray)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", format, err)
	}
	return buf.Bytes(), nil
}

// Factory builds a fresh transformer. Child worker processes rebuild their transform
// from the registered name since nothing is shared across process boundaries.
type Factory func() ports.Transformer

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{
		DefaultTransform: func() ports.Transformer { return NewFilterChain(DefaultBrightness) },
	}
)

// Register adds or replaces a named transform factory
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = f
}

// Lookup builds the transform registered under name
func Lookup(name string) (ports.Transformer, error) {
	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, domain.Newf(domain.KindConfig, "lookup_transform", "unknown transform %q (known: %v)", name, Names())
	}
	return f(), nil
}

// Names lists registered transforms
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
