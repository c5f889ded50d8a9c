// Package imagingtest writes small deterministic image fixtures for tests.
package imagingtest

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// Pattern builds a w x h RGBA image whose content depends on seed.
func Pattern(w, h, seed int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8((x*7 + seed*31) % 256),
				G: uint8((y*13 + seed*17) % 256),
				B: uint8(((x ^ y) + seed*5) % 256),
				A: 255,
			})
		}
	}
	return img
}

// PNG returns the encoded bytes of Pattern(w, h, seed).
func PNG(t testing.TB, w, h, seed int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, Pattern(w, h, seed)); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// JPEG returns the encoded bytes of Pattern(w, h, seed).
func JPEG(t testing.TB, w, h, seed int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, Pattern(w, h, seed), nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

// WriteDataset writes n valid PNG images named img00.png.. into dir and, when corrupt
// is set, one additional file with a .png extension that cannot be decoded.
// It returns the names of the valid images.
func WriteDataset(t testing.TB, dir string, n int, corrupt bool) []string {
	t.Helper()
	names := make([]string, 0, n)
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("img%02d.png", i)
		if err := os.WriteFile(filepath.Join(dir, name), PNG(t, 24, 16, i), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		names = append(names, name)
	}
	if corrupt {
		if err := os.WriteFile(filepath.Join(dir, "broken.png"), []byte("definitely not a png"), 0o644); err != nil {
			t.Fatalf("write corrupt file: %v", err)
		}
	}
	return names
}
