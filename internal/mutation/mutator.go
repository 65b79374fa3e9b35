// Package mutation implements the operations that change a registry.
//
// Every operation takes a snapshot and returns a snapshot. When an
// operation does not apply (unknown id, already reified, moving a node onto
// itself) it returns the input pointer unchanged, so callers detect a no-op
// by comparing pointers. Structural violations additionally return
// apperr.ErrCycleDetected next to the unchanged input.
package mutation

import (
	"time"

	"github.com/google/uuid"
)

// Default verbs.
const (
	VerbRelates   = "relates"
	VerbRelatedTo = "related to"
	VerbContains  = "contains"
	VerbPartOf    = "part of"
)

// Mutator carries the id source and clock used to stamp new entities.
type Mutator struct {
	newID func() string
	now   func() time.Time
}

// Option configures a Mutator.
type Option func(*Mutator)

// WithIDGenerator replaces the default UUID generator.
func WithIDGenerator(fn func() string) Option {
	return func(m *Mutator) {
		m.newID = fn
	}
}

// WithClock replaces time.Now.
func WithClock(fn func() time.Time) Option {
	return func(m *Mutator) {
		m.now = fn
	}
}

// New returns a Mutator that stamps entities with random UUIDs and the
// wall clock unless overridden.
func New(opts ...Option) *Mutator {
	m := &Mutator{
		newID: uuid.NewString,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}
