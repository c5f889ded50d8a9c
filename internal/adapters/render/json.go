package render

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"picpic.bench/internal/core/domain"
)

// JSONFile writes all reports keyed by dataset name, the input for external charting.
type JSONFile struct {
	path string
}

func NewJSONFile(path string) *JSONFile {
	return &JSONFile{path: path}
}

func (j *JSONFile) Path() string { return j.path }

func (j *JSONFile) Render(ctx context.Context, reports []domain.MetricsReport) error {
	byDataset := make(map[string]domain.MetricsReport, len(reports))
	for _, r := range reports {
		byDataset[r.Dataset] = r
	}

	data, err := json.MarshalIndent(byDataset, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal reports: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(j.path), 0o755); err != nil {
		return domain.Wrap(domain.KindStorage, "render_json", j.path, err)
	}

	// write then rename so a reader never sees a partial file
	tmp := j.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return domain.Wrap(domain.KindStorage, "render_json", tmp, err)
	}
	if err := os.Rename(tmp, j.path); err != nil {
		return domain.Wrap(domain.KindStorage, "render_json", j.path, err)
	}
	return nil
}
