package api

import (
	"github.com/starford/lorekeep/internal/drilldown"
	"github.com/starford/lorekeep/internal/graphservice"
	"github.com/starford/lorekeep/internal/index"
	"github.com/starford/lorekeep/internal/integrity"
	"github.com/starford/lorekeep/internal/models"
)

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest struct {
	ID         string          `json:"id,omitempty" example:"harbor"`
	Title      string          `json:"title" example:"Harbor" validate:"required"`
	Category   models.Category `json:"category,omitempty" example:"Location"`
	Gist       string          `json:"gist,omitempty" example:"where the ships rest"`
	Body       string          `json:"body,omitempty"`
	Tags       []string        `json:"tags,omitempty"`
	Aliases    []string        `json:"aliases,omitempty"`
	AuthorNote bool            `json:"author_note,omitempty"`
	ParentID   string          `json:"parent_id,omitempty" example:"world"`
}

// UpdateNoteRequest is the request body for patching a note. Omitted
// fields are left unchanged.
type UpdateNoteRequest struct {
	Title      *string          `json:"title,omitempty"`
	Category   *models.Category `json:"category,omitempty"`
	Gist       *string          `json:"gist,omitempty"`
	Body       *string          `json:"body,omitempty"`
	AuthorNote *bool            `json:"author_note,omitempty"`
	Tags       *[]string        `json:"tags,omitempty"`
	Aliases    *[]string        `json:"aliases,omitempty"`
}

// LinkRequest is the request body for creating a link.
type LinkRequest struct {
	Source      string   `json:"source" example:"harbor" validate:"required"`
	Target      string   `json:"target" example:"keeper" validate:"required"`
	Verb        string   `json:"verb,omitempty" example:"employs"`
	InverseVerb string   `json:"inverse_verb,omitempty" example:"works at"`
	Kind        string   `json:"kind,omitempty" example:"semantic" enums:"semantic,hierarchical"`
	Tags        []string `json:"tags,omitempty"`
}

// ReparentRequest is the request body for moving an entity.
type ReparentRequest struct {
	Source      string `json:"source" example:"keeper" validate:"required"`
	Target      string `json:"target" example:"harbor" validate:"required"`
	OldParent   string `json:"old_parent,omitempty" example:"__root__"`
	IsReference bool   `json:"is_reference,omitempty"`
}

// ReifyToLinkRequest names the endpoints a node is turned into a link between.
type ReifyToLinkRequest struct {
	Source string `json:"source" validate:"required"`
	Target string `json:"target" validate:"required"`
}

// SnapshotRequest names a checkpoint.
type SnapshotRequest struct {
	Name string `json:"name" example:"before-import" validate:"required"`
}

// MarkdownImportRequest carries raw Markdown documents.
type MarkdownImportRequest struct {
	Documents []string `json:"documents" validate:"required"`
	// Dir imports every .md file below this data-directory path instead.
	Dir string `json:"dir,omitempty"`
}

// MutationResponse is returned by every write.
type MutationResponse = graphservice.Result

// EntityResponse wraps one entity with its neighbourhood.
type EntityResponse struct {
	Entity    *models.Entity  `json:"entity" validate:"required"`
	Ancestors []string        `json:"ancestors"`
	Backlinks []index.LinkRow `json:"backlinks"`
}

// EntityListResponse wraps paginated entity listings.
type EntityListResponse struct {
	Entities []*models.Entity `json:"entities" validate:"required"`
	Total    int              `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}

// DrilldownResponse is a materialized view with its edges.
type DrilldownResponse struct {
	Nodes drilldown.View   `json:"nodes" validate:"required"`
	Edges []drilldown.Edge `json:"edges" validate:"required"`
}

// IntegrityResponse wraps the bulk link analysis.
type IntegrityResponse struct {
	Reports map[string]integrity.Report `json:"reports" validate:"required"`
	Flagged int                         `json:"flagged"`
}

// CyclesResponse lists hierarchy loops.
type CyclesResponse struct {
	Cycles [][]string `json:"cycles" validate:"required"`
}

// MarkdownImportResponse reports a Markdown import.
type MarkdownImportResponse struct {
	Report graphservice.ImportReport `json:"report"`
	Result MutationResponse          `json:"result"`
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
