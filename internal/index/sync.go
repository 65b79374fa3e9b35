package index

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/lorekeep/internal/checksum"
	"github.com/starford/lorekeep/internal/classify"
	"github.com/starford/lorekeep/internal/models"
	"github.com/starford/lorekeep/internal/registry"
)

// SyncStats summarizes one sync pass.
type SyncStats struct {
	Indexed   int
	Unchanged int
	Removed   int
}

// Sync brings the index up to date with r:
//   - new/changed entities (by checksum) are upserted
//   - entities no longer in r are deleted from the index
func Sync(db EntityIndex, r *registry.Registry, logger *slog.Logger) (SyncStats, error) {
	var stats SyncStats
	checksums, err := db.AllChecksums()
	if err != nil {
		return stats, err
	}

	for _, e := range r.Entities() {
		row, link, err := rowFor(e)
		if err != nil {
			logger.Warn("sync: encode failed", slog.String("id", e.ID), slog.String("error", err.Error()))
			continue
		}
		if checksums[e.ID] == row.Checksum {
			stats.Unchanged++
			continue
		}
		if err := db.UpsertEntity(row, link); err != nil {
			logger.Warn("sync: index failed", slog.String("id", e.ID), slog.String("error", err.Error()))
			continue
		}
		stats.Indexed++
	}

	// Remove stale entries.
	for id := range checksums {
		if r.Has(id) {
			continue
		}
		if err := db.DeleteEntity(id); err != nil {
			logger.Warn("sync: delete failed", slog.String("id", id), slog.String("error", err.Error()))
			continue
		}
		stats.Removed++
	}

	logger.Debug("sync: done",
		slog.Int("indexed", stats.Indexed),
		slog.Int("unchanged", stats.Unchanged),
		slog.Int("removed", stats.Removed))
	return stats, nil
}

// Apply indexes only the entities named in changes, reading their current
// state from r. A failing id does not stop the rest; every failure is
// returned joined.
func Apply(db EntityIndex, r *registry.Registry, changes registry.Changes) error {
	var errs []error
	for _, id := range changes.Removed {
		if err := db.DeleteEntity(id); err != nil {
			errs = append(errs, fmt.Errorf("index: delete %s: %w", id, err))
		}
	}
	for _, ids := range [][]string{changes.Added, changes.Updated} {
		for _, id := range ids {
			e, ok := r.Get(id)
			if !ok {
				continue
			}
			row, link, err := rowFor(e)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if err := db.UpsertEntity(row, link); err != nil {
				errs = append(errs, fmt.Errorf("index: upsert %s: %w", id, err))
			}
		}
	}
	return errors.Join(errs...)
}

// rowFor flattens an entity into its index rows. The checksum covers the
// full JSON encoding so any field change is picked up.
func rowFor(e *models.Entity) (EntityRow, *LinkRow, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return EntityRow{}, nil, fmt.Errorf("index: encode %s: %w", e.ID, err)
	}

	var body strings.Builder
	body.WriteString(e.Gist)
	if e.Body != "" {
		if body.Len() > 0 {
			body.WriteString("\n\n")
		}
		body.WriteString(e.Body)
	}

	row := EntityRow{
		ID:        e.ID,
		Kind:      string(e.Kind),
		Title:     e.DisplayName(),
		Category:  string(e.Category),
		Checksum:  checksum.Sum(data),
		Tags:      e.Tags,
		Aliases:   e.Aliases,
		Body:      body.String(),
		UpdatedAt: e.UpdatedAt,
	}
	if !classify.IsLink(e) {
		return row, nil, nil
	}
	return row, &LinkRow{
		ID:           e.ID,
		Source:       e.Source,
		Target:       e.Target,
		Verb:         e.Verb,
		Hierarchical: e.Hierarchical,
		Reified:      classify.IsReified(e),
	}, nil
}
