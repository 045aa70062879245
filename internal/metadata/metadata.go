// Package metadata caches the last observed stat of every tracked path.
package metadata

import (
	"io/fs"
	"os"
	"time"
)

// Epoch is reported for timestamps the platform does not expose and is the
// baseline a first modification is compared against.
var Epoch = time.Unix(0, 0).UTC()

// Metadata is a snapshot taken by statting a path.
type Metadata struct {
	IsDir    bool      `json:"isDir"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`
}

// Stat reads metadata for path from the filesystem, following symlinks.
func Stat(path string) (Metadata, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Metadata{}, err
	}
	return FromFileInfo(path, info), nil
}

// FromFileInfo converts info into Metadata. path is used to look up the birth
// time on platforms where FileInfo does not carry it.
func FromFileInfo(path string, info fs.FileInfo) Metadata {
	created, ok := birthTime(path, info)
	if !ok {
		created = Epoch
	}
	modified := info.ModTime()
	if modified.IsZero() {
		modified = Epoch
	}
	return Metadata{
		IsDir:    info.IsDir(),
		Created:  created.UTC(),
		Modified: modified.UTC(),
	}
}
