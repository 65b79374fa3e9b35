// Package models defines the domain types for Lorekeep.
package models

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

// Kind is the discriminant that selects an Entity variant.
type Kind string

const (
	KindNote        Kind = "note"
	KindContainer   Kind = "container"
	KindLink        Kind = "link"
	KindReifiedLink Kind = "reified_link"
)

// Valid reports whether k is one of the known variants.
func (k Kind) Valid() bool {
	switch k {
	case KindNote, KindContainer, KindLink, KindReifiedLink:
		return true
	}
	return false
}

// Category is the worldbuilding type of a note.
type Category string

const (
	CategoryConcept      Category = "Concept"
	CategoryLocation     Category = "Location"
	CategoryItem         Category = "Item"
	CategoryEvent        Category = "Event"
	CategoryCharacter    Category = "Character"
	CategoryOrganization Category = "Organization"
	CategoryMeta         Category = "Meta"
	CategoryStory        Category = "Story"
)

// Categories lists every category in declaration order.
var Categories = []Category{
	CategoryConcept, CategoryLocation, CategoryItem, CategoryEvent,
	CategoryCharacter, CategoryOrganization, CategoryMeta, CategoryStory,
}

// ParseCategory resolves s against the known categories. Matching is exact.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("models: unknown category %q", s)
}

// Well-known tags and identifiers.
const (
	// RootID is the synthetic parent of every top-level entity.
	RootID = "__root__"

	TagRoot    = "root"
	TagReified = "reified"
	TagShadow  = "shadow"
)

// Entity is a single graph object. Kind selects which of the variant
// fields are meaningful; the rest stay at their zero value.
//
// Entities held by a Registry are shared between snapshots and must be
// treated as read-only. Use Clone before changing anything.
type Entity struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Title     string    `json:"title,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Tags      []string  `json:"tags,omitempty"`
	Aliases   []string  `json:"aliases,omitempty"`

	// Note fields.
	Category   Category `json:"category,omitempty"`
	Gist       string   `json:"gist,omitempty"`
	Body       string   `json:"body,omitempty"`
	AuthorNote bool     `json:"author_note,omitempty"`

	// Container fields.
	Children    []string `json:"children,omitempty"`
	Containment string   `json:"containment,omitempty"`

	// Link fields.
	Source       string `json:"source,omitempty"`
	Target       string `json:"target,omitempty"`
	Verb         string `json:"verb,omitempty"`
	InverseVerb  string `json:"inverse_verb,omitempty"`
	Hierarchical bool   `json:"hierarchical,omitempty"`

	// Snapshot marks a historical state of another entity.
	Snapshot bool `json:"snapshot,omitempty"`

	// Extra carries fields this package does not know about so they
	// survive a decode/encode round trip untouched.
	Extra map[string]json.RawMessage `json:"-"`
}

// entityFields mirrors Entity without its methods so the codec can
// delegate to encoding/json.
type entityFields Entity

// MarshalJSON encodes the known fields and merges Extra back in.
// Known fields win over an Extra entry with the same key.
func (e Entity) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(entityFields(e))
	if err != nil {
		return nil, err
	}
	if len(e.Extra) == 0 {
		return known, nil
	}
	merged := make(map[string]json.RawMessage, len(e.Extra)+16)
	for k, v := range e.Extra {
		merged[k] = v
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(known, &fields); err != nil {
		return nil, err
	}
	for k, v := range fields {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// UnmarshalJSON decodes the known fields and stashes everything else in Extra.
func (e *Entity) UnmarshalJSON(data []byte) error {
	var fields entityFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, k := range knownKeys {
		delete(raw, k)
	}
	if len(raw) > 0 {
		fields.Extra = raw
	}
	*e = Entity(fields)
	return nil
}

var knownKeys = []string{
	"id", "kind", "title", "created_at", "updated_at", "tags", "aliases",
	"category", "gist", "body", "author_note",
	"children", "containment",
	"source", "target", "verb", "inverse_verb", "hierarchical",
	"snapshot",
}

// Clone returns a deep copy that can be modified freely.
func (e *Entity) Clone() *Entity {
	c := *e
	c.Tags = slices.Clone(e.Tags)
	c.Aliases = slices.Clone(e.Aliases)
	c.Children = slices.Clone(e.Children)
	if e.Extra != nil {
		c.Extra = make(map[string]json.RawMessage, len(e.Extra))
		for k, v := range e.Extra {
			c.Extra[k] = v
		}
	}
	return &c
}

// IsStructuralTag reports whether tag is a marker maintained by the
// mutation layer rather than by authors.
func IsStructuralTag(tag string) bool {
	return tag == TagRoot || tag == TagReified || tag == TagShadow
}

// HasTag reports whether tag is present.
func (e *Entity) HasTag(tag string) bool {
	return slices.Contains(e.Tags, tag)
}

// AddTag appends tag if it is missing.
func (e *Entity) AddTag(tag string) {
	if !e.HasTag(tag) {
		e.Tags = append(e.Tags, tag)
	}
}

// RemoveTag drops every occurrence of tag.
func (e *Entity) RemoveTag(tag string) {
	e.Tags = slices.DeleteFunc(e.Tags, func(t string) bool { return t == tag })
}

// HasChild reports whether id is in the child list.
func (e *Entity) HasChild(id string) bool {
	return slices.Contains(e.Children, id)
}

// DisplayName returns the title, falling back to the id.
func (e *Entity) DisplayName() string {
	if e.Title != "" {
		return e.Title
	}
	return e.ID
}
