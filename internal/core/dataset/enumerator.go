package dataset

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"picpic.bench/internal/core/domain"
)

// Options control how work items are derived from a directory.
type Options struct {
	Name string
	// Persist switches to materialization mode: every item gets a destination
	// path under OutputDir with the source's base name.
	Persist   bool
	OutputDir string
}

// Enumerate lists the image files of dir as a Dataset. Items are sorted by base
// name so repeated enumeration of an unchanged directory yields the same order.
func Enumerate(dir string, opts Options) (*domain.Dataset, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.Wrap(domain.KindDirectoryNotFound, "enumerate", dir, err)
		}
		return nil, domain.Wrap(domain.KindStorage, "enumerate", "stat "+dir, err)
	}
	if !info.IsDir() {
		return nil, domain.Newf(domain.KindDirectoryNotFound, "enumerate", "%s is not a directory", dir)
	}
	if opts.Persist && opts.OutputDir == "" {
		return nil, domain.New(domain.KindConfig, "enumerate", "persist requested without an output directory")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, domain.Wrap(domain.KindStorage, "enumerate", "read "+dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !domain.IsImageFile(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	name := opts.Name
	if name == "" {
		name = filepath.Base(dir)
	}

	ds := &domain.Dataset{
		Name:  name,
		Dir:   dir,
		Items: make([]domain.WorkItem, 0, len(names)),
	}
	for _, n := range names {
		item := domain.WorkItem{SourcePath: filepath.Join(dir, n)}
		if opts.Persist {
			item.PersistOutput = true
			item.DestinationPath = filepath.Join(opts.OutputDir, n)
		}
		ds.Items = append(ds.Items, item)
	}
	return ds, nil
}

// PrepareOutputDir creates the materialization directory for a dataset
func PrepareOutputDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return domain.Wrap(domain.KindStorage, "prepare_output", dir, err)
	}
	return nil
}
