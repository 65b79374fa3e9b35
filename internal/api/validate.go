package api

import (
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/lorekeep/internal/integrity"
	"github.com/starford/lorekeep/internal/models"
)

func categoryRule(value any) error {
	var s string
	switch v := value.(type) {
	case models.Category:
		s = string(v)
	case *models.Category:
		if v == nil {
			return nil
		}
		s = string(*v)
	}
	if s == "" {
		return nil
	}
	_, err := models.ParseCategory(s)
	return err
}

func linkKindRule(value any) error {
	s, _ := value.(string)
	_, err := integrity.ParseLinkKind(s)
	return err
}

// Validate checks a create request.
func (r CreateNoteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 512)),
		validation.Field(&r.ID, validation.NotIn(models.RootID).Error("id is reserved")),
		validation.Field(&r.Category, validation.By(categoryRule)),
	)
}

// Validate checks a patch request.
func (r UpdateNoteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Category, validation.By(categoryRule)),
	)
}

// Validate checks a link request.
func (r LinkRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Source, validation.Required),
		validation.Field(&r.Target, validation.Required),
		validation.Field(&r.Kind, validation.By(linkKindRule)),
	)
}

// Validate checks a reparent request.
func (r ReparentRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Source, validation.Required),
		validation.Field(&r.Target, validation.Required),
	)
}

// Validate checks a reify-to-link request.
func (r ReifyToLinkRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Source, validation.Required),
		validation.Field(&r.Target, validation.Required),
	)
}

// Validate checks a snapshot request.
func (r SnapshotRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required),
	)
}

// Validate checks a Markdown import request.
func (r MarkdownImportRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Documents, validation.When(r.Dir == "", validation.Required)),
	)
}

// decodeValid decodes a body and runs its Validate method.
func decodeValid(w http.ResponseWriter, r *http.Request, v validation.Validatable) bool {
	if !decodeBody(w, r, v) {
		return false
	}
	if err := v.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return false
	}
	return true
}
