package domain

import (
	"path/filepath"
	"strings"
)

// WorkItem is one image subject to the transform. It is never mutated after enumeration.
type WorkItem struct {
	SourcePath      string `json:"source_path"`
	DestinationPath string `json:"destination_path,omitempty"` // empty when output is not persisted
	PersistOutput   bool   `json:"persist_output"`
}

// Name returns the base file name of the source image
func (w WorkItem) Name() string {
	return filepath.Base(w.SourcePath)
}

// Dataset is the ordered, stable set of work items derived from one input directory.
type Dataset struct {
	Name  string     `json:"name"`
	Dir   string     `json:"dir"`
	Items []WorkItem `json:"items"`
}

// Len returns the number of work items
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Items)
}

var imageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
}

// IsImageFile reports whether the file name carries a recognised image extension.
// The match is case-insensitive.
func IsImageFile(name string) bool {
	_, ok := imageExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// ValidateWorkerCount rejects degrees of parallelism below one.
func ValidateWorkerCount(workers int) error {
	if workers < 1 {
		return Newf(KindWorkerStartupFailure, "validate_workers", "worker count must be >= 1, got %d", workers)
	}
	return nil
}
