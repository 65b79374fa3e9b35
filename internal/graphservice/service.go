// Package graphservice owns the live registry. It serializes writers,
// persists every committed snapshot, keeps undo history, re-indexes
// changed entities and publishes change events. Readers get immutable
// snapshots without locking.
package graphservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/starford/lorekeep/internal/apperr"
	"github.com/starford/lorekeep/internal/checksum"
	"github.com/starford/lorekeep/internal/drilldown"
	"github.com/starford/lorekeep/internal/index"
	"github.com/starford/lorekeep/internal/metrics"
	"github.com/starford/lorekeep/internal/mutation"
	"github.com/starford/lorekeep/internal/registry"
	"github.com/starford/lorekeep/internal/sse"
	"github.com/starford/lorekeep/internal/storage"
)

// ErrNothingToUndo is returned by Undo when the history is empty.
var ErrNothingToUndo = fmt.Errorf("graphservice: nothing to undo: %w", apperr.ErrNotFound)

// Publisher receives entity change notifications. *sse.Broker satisfies it.
type Publisher interface {
	PublishEntityEvent(kind, id string)
}

// Options configures a Service.
type Options struct {
	// RegistryFile is the registry path relative to the storage root.
	RegistryFile string
	// SnapshotDir is the checkpoint directory relative to the storage root.
	SnapshotDir string
	// HistoryDepth bounds the undo stack.
	HistoryDepth int
	// Drilldown supplies the defaults for fields a DrilldownQuery leaves unset.
	Drilldown drilldown.Options
	// Mutator overrides the id generator and clock, mainly for tests.
	Mutator *mutation.Mutator
}

// Result describes the outcome of a write.
type Result struct {
	// ID is the entity the operation created or targeted, when there is one.
	ID      string           `json:"id,omitempty"`
	Changed bool             `json:"changed"`
	Changes registry.Changes `json:"changes"`
	ETag    string           `json:"etag"`
}

type state struct {
	reg  *registry.Registry
	etag string
}

// Service is the single writer of the registry.
type Service struct {
	store  storage.Provider
	snaps  *storage.Snapshots
	db     index.EntityIndex
	events Publisher
	logger *slog.Logger
	mut    *mutation.Mutator
	opts   Options

	cur atomic.Pointer[state]

	mu          sync.Mutex // serializes writers
	history     []*registry.Registry
	lastWritten string
}

// New creates a service. db and events may be nil.
func New(store storage.Provider, db index.EntityIndex, events Publisher, logger *slog.Logger, opts Options) *Service {
	if opts.RegistryFile == "" {
		opts.RegistryFile = "registry.json"
	}
	if opts.SnapshotDir == "" {
		opts.SnapshotDir = "snapshots"
	}
	if opts.HistoryDepth <= 0 {
		opts.HistoryDepth = 50
	}
	m := opts.Mutator
	if m == nil {
		m = mutation.New()
	}
	s := &Service{
		store:  store,
		snaps:  storage.NewSnapshots(store, opts.SnapshotDir),
		db:     db,
		events: events,
		logger: logger,
		mut:    m,
		opts:   opts,
	}
	empty, _ := json.Marshal(registry.Empty())
	s.cur.Store(&state{reg: registry.Empty(), etag: checksum.Short(empty)})
	return s
}

// Load reads the registry file, if present, and syncs the index with it.
func (s *Service) Load(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store.Exists(s.opts.RegistryFile) {
		data, err := s.store.Read(s.opts.RegistryFile)
		if err != nil {
			return err
		}
		r, err := registry.Decode(data)
		if err != nil {
			return fmt.Errorf("graphservice: load %s: %w", s.opts.RegistryFile, err)
		}
		s.lastWritten = checksum.Sum(data)
		s.cur.Store(&state{reg: r, etag: checksum.Short(data)})
	}

	r := s.Registry()
	metrics.SetRegistrySize(r.Len())
	if s.db != nil {
		if _, err := index.Sync(s.db, r, s.logger); err != nil {
			return fmt.Errorf("graphservice: initial sync: %w", err)
		}
	}
	s.logger.Info("graph: loaded", slog.Int("entities", r.Len()), slog.String("file", s.opts.RegistryFile))
	return nil
}

// Registry returns the current immutable snapshot.
func (s *Service) Registry() *registry.Registry {
	return s.cur.Load().reg
}

// ETag returns the version tag of the current snapshot.
func (s *Service) ETag() string {
	return s.cur.Load().etag
}

// CanUndo reports how many steps can be undone.
func (s *Service) CanUndo() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

// op is one registry transformation run under the writer lock. It returns
// the next snapshot, the id it concerns and an error. Returning the input
// pointer means nothing changed.
type op func(r *registry.Registry) (*registry.Registry, string, error)

func (s *Service) apply(ctx context.Context, name string, fn op) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.cur.Load()
	next, id, err := fn(before.reg)
	if err != nil {
		result := metrics.ResultError
		if errors.Is(err, apperr.ErrCycleDetected) {
			result = metrics.ResultRejected
		}
		metrics.ObserveMutation(name, result, time.Since(start))
		return Result{ID: id, ETag: before.etag}, err
	}
	if next == before.reg {
		metrics.ObserveMutation(name, metrics.ResultNoop, time.Since(start))
		return Result{ID: id, ETag: before.etag}, nil
	}

	etag, err := s.commit(next)
	if err != nil {
		metrics.ObserveMutation(name, metrics.ResultError, time.Since(start))
		return Result{ID: id, ETag: before.etag}, err
	}
	s.pushHistory(before.reg)
	changes := s.publish(before.reg, next)

	metrics.ObserveMutation(name, metrics.ResultApplied, time.Since(start))
	s.logger.Debug("graph: applied",
		slog.String("op", name),
		slog.String("id", id),
		slog.Int("added", len(changes.Added)),
		slog.Int("updated", len(changes.Updated)),
		slog.Int("removed", len(changes.Removed)))
	return Result{ID: id, Changed: true, Changes: changes, ETag: etag}, nil
}

// commit persists next and makes it current. Caller holds s.mu.
func (s *Service) commit(next *registry.Registry) (string, error) {
	data, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return "", fmt.Errorf("graphservice: encode registry: %w", err)
	}
	if err := s.store.Write(s.opts.RegistryFile, data); err != nil {
		return "", err
	}
	s.lastWritten = checksum.Sum(data)
	etag := checksum.Short(data)
	s.cur.Store(&state{reg: next, etag: etag})
	metrics.SetRegistrySize(next.Len())
	return etag, nil
}

func (s *Service) pushHistory(r *registry.Registry) {
	s.history = append(s.history, r)
	if over := len(s.history) - s.opts.HistoryDepth; over > 0 {
		s.history = append(s.history[:0:0], s.history[over:]...)
	}
}

// publish re-indexes and announces the difference between two snapshots.
func (s *Service) publish(before, after *registry.Registry) registry.Changes {
	changes := registry.Diff(before, after)
	if s.db != nil {
		if err := index.Apply(s.db, after, changes); err != nil {
			s.logger.Warn("graph: index update failed", slog.String("error", err.Error()))
		}
	}
	if s.events != nil {
		for _, id := range changes.Added {
			s.events.PublishEntityEvent(sse.Created, id)
		}
		for _, id := range changes.Updated {
			s.events.PublishEntityEvent(sse.Updated, id)
		}
		for _, id := range changes.Removed {
			s.events.PublishEntityEvent(sse.Deleted, id)
		}
	}
	return changes
}

// Undo restores the snapshot before the most recent write.
func (s *Service) Undo(ctx context.Context) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.history) == 0 {
		return Result{ETag: s.ETag()}, ErrNothingToUndo
	}
	prev := s.history[len(s.history)-1]
	before := s.cur.Load().reg

	etag, err := s.commit(prev)
	if err != nil {
		return Result{ETag: s.ETag()}, err
	}
	s.history = s.history[:len(s.history)-1]
	changes := s.publish(before, prev)
	metrics.ObserveMutation("undo", metrics.ResultApplied, 0)
	return Result{Changed: true, Changes: changes, ETag: etag}, nil
}

// ReloadFromDisk replaces the live registry with the registry file when it
// was changed by someone else. Writes made by this service are recognised
// and skipped.
func (s *Service) ReloadFromDisk() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.store.Exists(s.opts.RegistryFile) {
		return nil
	}
	data, err := s.store.Read(s.opts.RegistryFile)
	if err != nil {
		return err
	}
	sum := checksum.Sum(data)
	if sum == s.lastWritten {
		return nil
	}
	next, err := registry.Decode(data)
	if err != nil {
		return fmt.Errorf("graphservice: reload: %w", err)
	}

	before := s.cur.Load().reg
	s.lastWritten = sum
	s.cur.Store(&state{reg: next, etag: checksum.Short(data)})
	s.pushHistory(before)
	changes := s.publish(before, next)
	metrics.SetRegistrySize(next.Len())
	s.logger.Info("graph: reloaded from disk",
		slog.Int("entities", next.Len()),
		slog.Int("changed", len(changes.Added)+len(changes.Updated)+len(changes.Removed)))
	return nil
}
