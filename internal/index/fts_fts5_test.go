//go:build sqlite_fts5

package index

import (
	"testing"
	"time"
)

func TestFTS5_TableExists(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM entities_fts`).Scan(&count); err != nil {
		t.Fatalf("entities_fts table missing: %v", err)
	}
}

func TestFTS5_SearchWithSnippet(t *testing.T) {
	db := testDB(t)
	row := EntityRow{
		ID:        "fts",
		Kind:      "note",
		Title:     "Lighthouse",
		Checksum:  "f1",
		Tags:      []string{"coast"},
		Body:      "The keeper tends a powerful lamp above the drowned city.",
		UpdatedAt: time.Now(),
	}
	if err := db.UpsertEntity(row, nil); err != nil {
		t.Fatalf("UpsertEntity: %v", err)
	}

	results, err := db.Search("powerful", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].ID != "fts" {
		t.Errorf("id = %q", results[0].ID)
	}
	if results[0].Snippet == "" {
		t.Error("expected non-empty snippet")
	}
}

func TestFTS5_DeleteRemovesFromFTS(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertEntity(EntityRow{ID: "gone", Checksum: "g", Body: "vanishing content", UpdatedAt: time.Now()}, nil)
	_ = db.DeleteEntity("gone")

	results, _ := db.Search("vanishing", 10)
	for _, r := range results {
		if r.ID == "gone" {
			t.Error("deleted entity still in FTS index")
		}
	}
}

func TestFTS5_UpsertReplacesContent(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	_ = db.UpsertEntity(EntityRow{ID: "evo", Title: "Old", Checksum: "1", Body: "original text", UpdatedAt: now}, nil)
	_ = db.UpsertEntity(EntityRow{ID: "evo", Title: "New", Checksum: "2", Body: "replacement text", UpdatedAt: now}, nil)

	results, _ := db.Search("original", 10)
	if len(results) != 0 {
		t.Error("old FTS content should be gone")
	}
	results, _ = db.Search("replacement", 10)
	if len(results) != 1 || results[0].Title != "New" {
		t.Errorf("FTS not updated: %+v", results)
	}
}
