package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"regexp"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/starford/lorekeep/internal/apperr"
	"github.com/starford/lorekeep/internal/models"
)

const snapshotExt = ".json.zst"

var snapshotName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// Snapshots stores zstd-compressed registry checkpoints in one directory
// of a Provider.
type Snapshots struct {
	store Provider
	dir   string
}

// NewSnapshots returns a snapshot store writing below dir.
func NewSnapshots(store Provider, dir string) *Snapshots {
	return &Snapshots{store: store, dir: dir}
}

func (s *Snapshots) path(name string) (string, error) {
	if !snapshotName.MatchString(name) || strings.HasSuffix(name, ".") {
		return "", fmt.Errorf("storage: snapshot name %q: %w", name, apperr.ErrInvalidInput)
	}
	return path.Join(s.dir, name+snapshotExt), nil
}

// Save compresses data and stores it under name, replacing any previous
// snapshot of that name.
func (s *Snapshots) Save(name string, data []byte) (models.SnapshotMetadata, error) {
	p, err := s.path(name)
	if err != nil {
		return models.SnapshotMetadata{}, err
	}

	var compressed bytes.Buffer
	encoder, err := zstd.NewWriter(&compressed)
	if err != nil {
		return models.SnapshotMetadata{}, fmt.Errorf("storage: creating zstd encoder: %w", err)
	}
	if _, err := encoder.Write(data); err != nil {
		encoder.Close()
		return models.SnapshotMetadata{}, fmt.Errorf("storage: compressing snapshot: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return models.SnapshotMetadata{}, fmt.Errorf("storage: closing encoder: %w", err)
	}

	if err := s.store.Write(p, compressed.Bytes()); err != nil {
		return models.SnapshotMetadata{}, err
	}
	return s.stat(name)
}

// Load returns the decompressed contents of the named snapshot.
func (s *Snapshots) Load(name string) ([]byte, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, err
	}
	if !s.store.Exists(p) {
		return nil, fmt.Errorf("storage: snapshot %s: %w", name, apperr.ErrNotFound)
	}
	raw, err := s.store.Read(p)
	if err != nil {
		return nil, err
	}
	decoder, err := zstd.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("storage: creating zstd decoder: %w", err)
	}
	defer decoder.Close()
	data, err := io.ReadAll(decoder)
	if err != nil {
		return nil, fmt.Errorf("storage: decompressing snapshot %s: %w", name, err)
	}
	return data, nil
}

// List returns every stored snapshot ordered by name.
func (s *Snapshots) List() ([]models.SnapshotMetadata, error) {
	files, err := s.store.List(s.dir, snapshotExt)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	out := make([]models.SnapshotMetadata, 0, len(files))
	for _, f := range files {
		out = append(out, models.SnapshotMetadata{
			Name:      strings.TrimSuffix(path.Base(f.Path), snapshotExt),
			Size:      f.Size,
			UpdatedAt: f.UpdatedAt,
		})
	}
	return out, nil
}

// Delete removes the named snapshot.
func (s *Snapshots) Delete(name string) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	if !s.store.Exists(p) {
		return fmt.Errorf("storage: snapshot %s: %w", name, apperr.ErrNotFound)
	}
	return s.store.Delete(p)
}

// Rename moves a snapshot to a new name. An existing snapshot under the new
// name is refused with apperr.ErrAlreadyExists.
func (s *Snapshots) Rename(oldName, newName string) (models.SnapshotMetadata, error) {
	from, err := s.path(oldName)
	if err != nil {
		return models.SnapshotMetadata{}, err
	}
	to, err := s.path(newName)
	if err != nil {
		return models.SnapshotMetadata{}, err
	}
	if !s.store.Exists(from) {
		return models.SnapshotMetadata{}, fmt.Errorf("storage: snapshot %s: %w", oldName, apperr.ErrNotFound)
	}
	if s.store.Exists(to) {
		return models.SnapshotMetadata{}, fmt.Errorf("storage: snapshot %s: %w", newName, apperr.ErrAlreadyExists)
	}
	if err := s.store.Move(from, to); err != nil {
		return models.SnapshotMetadata{}, err
	}
	return s.stat(newName)
}

func (s *Snapshots) stat(name string) (models.SnapshotMetadata, error) {
	all, err := s.List()
	if err != nil {
		return models.SnapshotMetadata{}, err
	}
	for _, m := range all {
		if m.Name == name {
			return m, nil
		}
	}
	return models.SnapshotMetadata{}, fmt.Errorf("storage: snapshot %s: %w", name, apperr.ErrNotFound)
}
