// Package storage defines the data-directory abstraction that holds the
// registry file, markdown imports and snapshots.
package storage

import "time"

// FileInfo describes one file below the data directory.
type FileInfo struct {
	Path      string
	Checksum  string
	Size      int64
	UpdatedAt time.Time
}

// Provider is the interface for data-directory file operations. All paths
// are relative to the provider root.
type Provider interface {
	// List returns every file under dir whose name ends in ext. An empty
	// ext matches every file.
	List(dir, ext string) ([]FileInfo, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Move renames oldPath to newPath.
	Move(oldPath, newPath string) error
	// Exists reports whether path names a regular file.
	Exists(path string) bool
}
