package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"
)

// EntityRow represents a row in the entities table.
type EntityRow struct {
	ID        string
	Kind      string
	Title     string
	Category  string
	Checksum  string
	Tags      []string
	Aliases   []string
	Body      string
	UpdatedAt time.Time
}

// LinkRow represents a row in the links table.
type LinkRow struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	Verb         string `json:"verb"`
	Hierarchical bool   `json:"hierarchical"`
	Reified      bool   `json:"reified"`
}

// SearchResult represents one search hit.
type SearchResult struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// UpsertEntity inserts or replaces an entity, its FTS entry and, when link
// is non-nil, its links row, within a transaction.
func (db *DB) UpsertEntity(row EntityRow, link *LinkRow) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	tagsJSON, _ := json.Marshal(nonNil(row.Tags))
	aliasesJSON, _ := json.Marshal(nonNil(row.Aliases))

	// The body column doubles as the fallback search corpus.
	_, err = tx.Exec(`
		INSERT INTO entities (id, kind, title, category, checksum, tags, aliases, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind       = excluded.kind,
			title      = excluded.title,
			category   = excluded.category,
			checksum   = excluded.checksum,
			tags       = excluded.tags,
			aliases    = excluded.aliases,
			body       = excluded.body,
			updated_at = excluded.updated_at
	`, row.ID, row.Kind, row.Title, row.Category, row.Checksum,
		string(tagsJSON), string(aliasesJSON), row.Body, row.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert entity: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, row.ID, row.Title, row.Body, slices.Concat(row.Tags, row.Aliases)); err != nil {
		return err
	}

	_, _ = tx.Exec(`DELETE FROM links WHERE id = ?`, row.ID)
	if link != nil {
		_, err = tx.Exec(`INSERT INTO links (id, source, target, verb, hierarchical, reified) VALUES (?, ?, ?, ?, ?, ?)`,
			row.ID, link.Source, link.Target, link.Verb, link.Hierarchical, link.Reified)
		if err != nil {
			return fmt.Errorf("index: insert link: %w", err)
		}
	}

	return tx.Commit()
}

// DeleteEntity removes an entity, its FTS entry and its links row.
func (db *DB) DeleteEntity(id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, id)
	_, _ = tx.Exec(`DELETE FROM links WHERE id = ?`, id)
	_, _ = tx.Exec(`DELETE FROM entities WHERE id = ?`, id)

	return tx.Commit()
}

// GetChecksum returns the stored checksum for an entity, or empty string if
// not found.
func (db *DB) GetChecksum(id string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM entities WHERE id = ?`, id).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// AllChecksums returns the stored checksum of every indexed entity.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT id, checksum FROM entities`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var id, cs string
		if err := rows.Scan(&id, &cs); err != nil {
			return nil, err
		}
		out[id] = cs
	}
	return out, rows.Err()
}

// Count returns the number of indexed entities.
func (db *DB) Count() (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT count(*) FROM entities`).Scan(&n); err != nil {
		return 0, fmt.Errorf("index: count: %w", err)
	}
	return n, nil
}

// Backlinks returns every link whose target is the given id.
func (db *DB) Backlinks(target string) ([]LinkRow, error) {
	return db.queryLinks(`WHERE target = ?`, target)
}

// Outlinks returns every link whose source is the given id.
func (db *DB) Outlinks(source string) ([]LinkRow, error) {
	return db.queryLinks(`WHERE source = ?`, source)
}

func (db *DB) queryLinks(where, arg string) ([]LinkRow, error) {
	rows, err := db.conn.Query(`SELECT id, source, target, verb, hierarchical, reified FROM links `+where+` ORDER BY id`, arg)
	if err != nil {
		return nil, fmt.Errorf("index: links: %w", err)
	}
	defer rows.Close()

	var out []LinkRow
	for rows.Next() {
		var l LinkRow
		if err := rows.Scan(&l.ID, &l.Source, &l.Target, &l.Verb, &l.Hierarchical, &l.Reified); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
