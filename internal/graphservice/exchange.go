package graphservice

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/starford/lorekeep/internal/apperr"
	"github.com/starford/lorekeep/internal/models"
	"github.com/starford/lorekeep/internal/registry"
)

// Export returns the serialized registry with its ETag.
func (s *Service) Export(_ context.Context) ([]byte, string, error) {
	st := s.cur.Load()
	data, err := json.MarshalIndent(st.reg, "", "  ")
	if err != nil {
		return nil, "", fmt.Errorf("graphservice: export: %w", err)
	}
	return data, st.etag, nil
}

// Import replaces the whole registry with data. A non-empty ifMatch must
// equal the current ETag or apperr.ErrConflict is returned.
func (s *Service) Import(ctx context.Context, data []byte, ifMatch string) (Result, error) {
	next, err := registry.Decode(data)
	if err != nil {
		return Result{}, fmt.Errorf("graphservice: import: %w: %w", apperr.ErrInvalidInput, err)
	}
	return s.replace(ctx, "import", next, ifMatch)
}

func (s *Service) replace(ctx context.Context, name string, next *registry.Registry, ifMatch string) (Result, error) {
	return s.apply(ctx, name, func(r *registry.Registry) (*registry.Registry, string, error) {
		if ifMatch != "" && strings.Trim(ifMatch, `"`) != s.cur.Load().etag {
			return r, "", fmt.Errorf("graphservice: %s: registry changed: %w", name, apperr.ErrConflict)
		}
		return next, "", nil
	})
}

// Checkpoint stores the current registry as a named compressed snapshot.
func (s *Service) Checkpoint(_ context.Context, name string) (models.SnapshotMetadata, error) {
	data, err := json.Marshal(s.Registry())
	if err != nil {
		return models.SnapshotMetadata{}, fmt.Errorf("graphservice: checkpoint: %w", err)
	}
	return s.snaps.Save(name, data)
}

// Restore replaces the registry with a named snapshot. The replaced state
// stays on the undo stack.
func (s *Service) Restore(ctx context.Context, name string) (Result, error) {
	data, err := s.snaps.Load(name)
	if err != nil {
		return Result{}, err
	}
	next, err := registry.Decode(data)
	if err != nil {
		return Result{}, fmt.Errorf("graphservice: restore %s: %w", name, err)
	}
	return s.replace(ctx, "restore", next, "")
}

// Snapshots lists stored checkpoints.
func (s *Service) Snapshots(_ context.Context) ([]models.SnapshotMetadata, error) {
	return s.snaps.List()
}

// DeleteSnapshot removes a checkpoint.
func (s *Service) DeleteSnapshot(_ context.Context, name string) error {
	return s.snaps.Delete(name)
}

// RenameSnapshot gives a checkpoint a new name.
func (s *Service) RenameSnapshot(_ context.Context, oldName, newName string) (models.SnapshotMetadata, error) {
	return s.snaps.Rename(oldName, newName)
}
