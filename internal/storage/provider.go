// Package storage reads and writes graph import files under a root directory.
package storage

import (
	"path/filepath"
	"strings"
	"time"
)

// FileInfo describes one import file.
type FileInfo struct {
	Path      string    `json:"path"` // slash-separated, relative to the root
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Provider gives access to the import directory. Paths are relative to its
// root and must satisfy Importable.
type Provider interface {
	// List returns every import file under dir, ordered by path.
	List(dir string) ([]FileInfo, error)
	Read(path string) ([]byte, error)
	// Write replaces path atomically, creating parent directories.
	Write(path string, content []byte) error
}

// IsImportFile reports whether name carries a YAML extension.
func IsImportFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Importable reports whether rel names a YAML file with no hidden path
// segment. Dot-prefixed names are editor swap files and our own temp files.
func Importable(rel string) bool {
	if !IsImportFile(rel) {
		return false
	}
	for _, seg := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(seg, ".") && seg != "." && seg != ".." {
			return false
		}
	}
	return true
}
