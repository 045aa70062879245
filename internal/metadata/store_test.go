package metadata

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

type fakeFS map[string]Metadata

func (fake fakeFS) stat(path string) (Metadata, error) {
	meta, ok := fake[path]
	if !ok {
		return Metadata{}, &fs.PathError{Op: "stat", Path: path, Err: fs.ErrNotExist}
	}
	return meta, nil
}

func dirMeta() Metadata {
	return Metadata{IsDir: true, Created: Epoch, Modified: Epoch}
}

func fileMeta(modified time.Time) Metadata {
	return Metadata{Created: Epoch, Modified: modified}
}

func TestStoreAddGetRemove(t *testing.T) {
	stamp := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	fake := fakeFS{"/root/a.txt": fileMeta(stamp)}
	store := NewStoreWithStat(fake.stat)

	meta, err := store.Add("/root/a.txt")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !meta.Modified.Equal(stamp) {
		t.Fatalf("expected modified %v, got %v", stamp, meta.Modified)
	}
	got, ok := store.Get("/root/./a.txt")
	if !ok || got != meta {
		t.Fatalf("expected cleaned lookup to hit, got %#v %v", got, ok)
	}
	if store.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", store.Len())
	}

	removed, ok := store.Remove("/root/a.txt")
	if !ok || removed != meta {
		t.Fatalf("expected removed entry, got %#v %v", removed, ok)
	}
	if _, ok := store.Get("/root/a.txt"); ok {
		t.Fatalf("expected entry to be gone")
	}
	if _, ok := store.Remove("/root/a.txt"); ok {
		t.Fatalf("expected second remove to miss")
	}
}

func TestStoreAddOverwrites(t *testing.T) {
	first := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	fake := fakeFS{"/root/a.txt": fileMeta(first)}
	store := NewStoreWithStat(fake.stat)
	if _, err := store.Add("/root/a.txt"); err != nil {
		t.Fatalf("add: %v", err)
	}

	second := first.Add(time.Minute)
	fake["/root/a.txt"] = fileMeta(second)
	if _, err := store.Add("/root/a.txt"); err != nil {
		t.Fatalf("add: %v", err)
	}
	got, _ := store.Get("/root/a.txt")
	if !got.Modified.Equal(second) {
		t.Fatalf("expected overwrite to %v, got %v", second, got.Modified)
	}
}

func TestStoreAddFailureLeavesStoreUnchanged(t *testing.T) {
	stamp := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	fake := fakeFS{"/root/a.txt": fileMeta(stamp)}
	store := NewStoreWithStat(fake.stat)
	if _, err := store.Add("/root/a.txt"); err != nil {
		t.Fatalf("add: %v", err)
	}

	delete(fake, "/root/a.txt")
	_, err := store.Add("/root/a.txt")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected not exist error, got %v", err)
	}
	got, ok := store.Get("/root/a.txt")
	if !ok || !got.Modified.Equal(stamp) {
		t.Fatalf("expected previous entry to survive, got %#v %v", got, ok)
	}

	if _, err := store.Add("/root/missing"); err == nil {
		t.Fatalf("expected error for missing path")
	}
	if store.Len() != 1 {
		t.Fatalf("expected store size 1, got %d", store.Len())
	}
}

func TestStoreChildPaths(t *testing.T) {
	fake := fakeFS{
		"/root/d":     dirMeta(),
		"/root/d/a":   dirMeta(),
		"/root/d/a/b": fileMeta(Epoch),
		"/root/d/c":   fileMeta(Epoch),
		"/root/db":    fileMeta(Epoch),
		"/root/f":     fileMeta(Epoch),
	}
	store := NewStoreWithStat(fake.stat)
	for path := range fake {
		if _, err := store.Add(path); err != nil {
			t.Fatalf("add %s: %v", path, err)
		}
	}

	got := store.ChildPaths("/root/d")
	want := []string{"/root/d/a/b", "/root/d/a", "/root/d/c"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	if children := store.ChildPaths("/root/f"); len(children) != 0 {
		t.Fatalf("expected no children for a file, got %v", children)
	}
	if children := store.ChildPaths("/root/unknown"); len(children) != 0 {
		t.Fatalf("expected no children for an unknown path, got %v", children)
	}
}

func TestStoreChildPathsFilesystemRoot(t *testing.T) {
	root := string(os.PathSeparator)
	child := filepath.Join(root, "a")
	fake := fakeFS{root: dirMeta(), child: fileMeta(Epoch)}
	store := NewStoreWithStat(fake.stat)
	for path := range fake {
		if _, err := store.Add(path); err != nil {
			t.Fatalf("add %s: %v", path, err)
		}
	}
	got := store.ChildPaths(root)
	if !reflect.DeepEqual(got, []string{child}) {
		t.Fatalf("expected [%s], got %v", child, got)
	}
}

func TestNilStore(t *testing.T) {
	var store *Store
	if _, ok := store.Get("/a"); ok {
		t.Fatalf("expected nil store miss")
	}
	if _, err := store.Add("/a"); err == nil {
		t.Fatalf("expected nil store add error")
	}
	if store.Len() != 0 || store.ChildPaths("/a") != nil {
		t.Fatalf("expected empty nil store")
	}
}
