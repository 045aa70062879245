package metadata

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Stater loads metadata for a path. Stat is the default.
type Stater func(path string) (Metadata, error)

// Store maps absolute paths to their last observed metadata.
// It is not safe for concurrent use; the owner serializes access.
type Store struct {
	entries map[string]Metadata
	stat    Stater
}

func NewStore() *Store {
	return NewStoreWithStat(Stat)
}

func NewStoreWithStat(stat Stater) *Store {
	if stat == nil {
		stat = Stat
	}
	return &Store{
		entries: make(map[string]Metadata),
		stat:    stat,
	}
}

func (store *Store) Get(path string) (Metadata, bool) {
	if store == nil {
		return Metadata{}, false
	}
	meta, ok := store.entries[filepath.Clean(path)]
	return meta, ok
}

// Add stats path and stores the result, replacing any previous entry.
// On failure the store is left unchanged.
func (store *Store) Add(path string) (Metadata, error) {
	if store == nil {
		return Metadata{}, errors.New("metadata store is nil")
	}
	key := filepath.Clean(path)
	meta, err := store.stat(key)
	if err != nil {
		return Metadata{}, err
	}
	store.entries[key] = meta
	return meta, nil
}

func (store *Store) Remove(path string) (Metadata, bool) {
	if store == nil {
		return Metadata{}, false
	}
	key := filepath.Clean(path)
	meta, ok := store.entries[key]
	if !ok {
		return Metadata{}, false
	}
	delete(store.entries, key)
	return meta, true
}

// ChildPaths lists stored strict descendants of path, deepest first.
// Paths that are not stored directories have no children.
func (store *Store) ChildPaths(path string) []string {
	if store == nil {
		return nil
	}
	key := filepath.Clean(path)
	meta, ok := store.entries[key]
	if !ok || !meta.IsDir {
		return nil
	}
	prefix := key
	if !strings.HasSuffix(prefix, string(os.PathSeparator)) {
		prefix += string(os.PathSeparator)
	}
	children := make([]string, 0)
	for candidate := range store.entries {
		if candidate != key && strings.HasPrefix(candidate, prefix) {
			children = append(children, candidate)
		}
	}
	sort.Slice(children, func(i, j int) bool {
		di, dj := depth(children[i]), depth(children[j])
		if di != dj {
			return di > dj
		}
		return children[i] < children[j]
	})
	return children
}

func (store *Store) Len() int {
	if store == nil {
		return 0
	}
	return len(store.entries)
}

func depth(path string) int {
	return strings.Count(path, string(os.PathSeparator))
}
