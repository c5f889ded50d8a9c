package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"picpic.bench/internal/core/domain"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", n, err)
		}
	}
}

func TestEnumerate_FiltersByExtension(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "b.PNG", "a.jpg", "c.JpEg", "notes.txt", "d.gif", "e.png.bak")
	if err := os.Mkdir(filepath.Join(dir, "nested.png"), 0o755); err != nil {
		t.Fatal(err)
	}

	ds, err := Enumerate(dir, Options{Name: "sample"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got []string
	for _, item := range ds.Items {
		got = append(got, item.Name())
		if item.PersistOutput || item.DestinationPath != "" {
			t.Errorf("measurement mode item %s should not carry a destination", item.Name())
		}
	}
	want := []string{"a.jpg", "b.PNG", "c.JpEg"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("items = %v, want %v", got, want)
	}
	if ds.Name != "sample" {
		t.Errorf("name = %q, want sample", ds.Name)
	}
}

func TestEnumerate_MaterializationMode(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(t.TempDir(), "out")
	writeFiles(t, dir, "img1.png", "img2.jpg")

	ds, err := Enumerate(dir, Options{Persist: true, OutputDir: out})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, item := range ds.Items {
		if !item.PersistOutput {
			t.Errorf("item %s should persist", item.Name())
		}
		if want := filepath.Join(out, item.Name()); item.DestinationPath != want {
			t.Errorf("destination = %q, want %q", item.DestinationPath, want)
		}
	}
}

func TestEnumerate_MissingDirectory(t *testing.T) {
	_, err := Enumerate(filepath.Join(t.TempDir(), "missing"), Options{})
	if !errors.Is(err, domain.ErrDirectoryNotFound) {
		t.Fatalf("expected ErrDirectoryNotFound, got %v", err)
	}
	if !domain.IsKind(err, domain.KindDirectoryNotFound) {
		t.Errorf("expected directory_not_found kind, got %v", err)
	}
}

func TestEnumerate_FileInsteadOfDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.png")
	_, err := Enumerate(filepath.Join(dir, "a.png"), Options{})
	if !errors.Is(err, domain.ErrDirectoryNotFound) {
		t.Fatalf("expected ErrDirectoryNotFound, got %v", err)
	}
}

func TestEnumerate_Idempotent(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "z.png", "m.jpg", "a.jpeg", "q.png")

	first, err := Enumerate(dir, Options{})
	if err != nil {
		t.Fatal(err)
	}
	second, err := Enumerate(dir, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first.Items, second.Items) {
		t.Errorf("enumeration not stable:\n%v\n%v", first.Items, second.Items)
	}
}

func TestEnumerate_EmptyDirectory(t *testing.T) {
	ds, err := Enumerate(t.TempDir(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if ds.Len() != 0 {
		t.Errorf("expected empty dataset, got %d items", ds.Len())
	}
}
