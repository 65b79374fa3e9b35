package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/starford/lorekeep/internal/models"
)

func TestPredicates(t *testing.T) {
	note := &models.Entity{Kind: models.KindNote}
	container := &models.Entity{Kind: models.KindContainer}
	link := &models.Entity{Kind: models.KindLink}
	hier := &models.Entity{Kind: models.KindLink, Hierarchical: true}
	reified := &models.Entity{Kind: models.KindReifiedLink}

	tests := []struct {
		name      string
		e         *models.Entity
		link      bool
		container bool
		reified   bool
		strict    bool
		node      bool
		plain     bool
	}{
		{"note", note, false, false, false, false, true, true},
		{"container", container, false, true, false, false, true, false},
		{"semantic link", link, true, false, false, false, false, false},
		{"hierarchical link", hier, true, false, false, true, false, false},
		{"reified link", reified, true, true, true, false, true, false},
		{"nil", nil, false, false, false, false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.link, IsLink(tt.e), "IsLink")
			assert.Equal(t, tt.container, IsContainer(tt.e), "IsContainer")
			assert.Equal(t, tt.reified, IsReified(tt.e), "IsReified")
			assert.Equal(t, tt.strict, IsStrictHierarchy(tt.e), "IsStrictHierarchy")
			assert.Equal(t, tt.node, IsNode(tt.e), "IsNode")
			assert.Equal(t, tt.plain, IsPlainNote(tt.e), "IsPlainNote")
		})
	}
}

func TestContentFlags(t *testing.T) {
	assert.True(t, IsStory(&models.Entity{Category: models.CategoryStory}))
	assert.False(t, IsStory(&models.Entity{Category: models.CategoryEvent}))
	assert.True(t, IsAuthorNote(&models.Entity{AuthorNote: true}))
	assert.True(t, IsSnapshot(&models.Entity{Snapshot: true}))
	assert.False(t, IsSnapshot(nil))
}
