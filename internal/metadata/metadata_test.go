package metadata

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestStatFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	stamp := time.Date(2023, 5, 6, 7, 8, 9, 0, time.UTC)
	if err := os.Chtimes(path, stamp, stamp); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	meta, err := Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if meta.IsDir {
		t.Fatalf("expected file")
	}
	if !meta.Modified.Equal(stamp) {
		t.Fatalf("expected modified %v, got %v", stamp, meta.Modified)
	}
	if meta.Modified.Location() != time.UTC || meta.Created.Location() != time.UTC {
		t.Fatalf("expected UTC timestamps")
	}
}

func TestStatDirectory(t *testing.T) {
	meta, err := Stat(t.TempDir())
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if !meta.IsDir {
		t.Fatalf("expected directory")
	}
}

func TestStatMissing(t *testing.T) {
	if _, err := Stat(filepath.Join(t.TempDir(), "missing")); !os.IsNotExist(err) {
		t.Fatalf("expected not exist error, got %v", err)
	}
}

func TestMetadataJSON(t *testing.T) {
	meta := Metadata{
		IsDir:    true,
		Created:  Epoch,
		Modified: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	data, err := json.Marshal(meta)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"isDir":true,"created":"1970-01-01T00:00:00Z","modified":"2024-01-02T03:04:05Z"}`
	if string(data) != want {
		t.Fatalf("expected %s, got %s", want, data)
	}
	if strings.Contains(string(data), "IsDir") {
		t.Fatalf("expected camelCase keys")
	}
}
