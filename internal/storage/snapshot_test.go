package storage

import (
	"bytes"
	"errors"
	"testing"

	"github.com/starford/lorekeep/internal/apperr"
)

func TestSnapshotsRoundTrip(t *testing.T) {
	s := tempStore(t)
	snaps := NewSnapshots(s, "snapshots")

	list, err := snaps.List()
	if err != nil {
		t.Fatalf("List on empty store: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("len = %d, want 0", len(list))
	}

	payload := bytes.Repeat([]byte(`{"id":"note","kind":"note"}`), 200)
	meta, err := snaps.Save("before-import", payload)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if meta.Name != "before-import" {
		t.Errorf("name = %q", meta.Name)
	}
	if meta.Size <= 0 || meta.Size >= int64(len(payload)) {
		t.Errorf("size = %d, expected compressed size below %d", meta.Size, len(payload))
	}

	raw, _ := s.Read("snapshots/before-import.json.zst")
	if !bytes.HasPrefix(raw, []byte{0x28, 0xB5, 0x2F, 0xFD}) {
		t.Errorf("stored snapshot lacks zstd magic: % x", raw[:4])
	}

	got, err := snaps.Load("before-import")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Error("payload mismatch after round trip")
	}

	_, _ = snaps.Save("another", []byte("{}"))
	list, _ = snaps.List()
	if len(list) != 2 || list[0].Name != "another" || list[1].Name != "before-import" {
		t.Errorf("list = %+v", list)
	}

	if err := snaps.Delete("another"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := snaps.Load("another"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Load deleted: err = %v, want ErrNotFound", err)
	}
}

func TestSnapshotsRejectBadNames(t *testing.T) {
	snaps := NewSnapshots(tempStore(t), "snapshots")
	for _, name := range []string{"", "../x", "a/b", ".hidden", "trailing."} {
		if _, err := snaps.Save(name, []byte("{}")); !errors.Is(err, apperr.ErrInvalidInput) {
			t.Errorf("Save(%q): err = %v, want ErrInvalidInput", name, err)
		}
	}
	if err := snaps.Delete("missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Delete missing: err = %v", err)
	}
}

func TestSnapshotsRename(t *testing.T) {
	snaps := NewSnapshots(tempStore(t), "snapshots")
	if _, err := snaps.Save("draft", []byte(`{"a":1}`)); err != nil {
		t.Fatal(err)
	}
	if _, err := snaps.Save("taken", []byte(`{}`)); err != nil {
		t.Fatal(err)
	}

	if _, err := snaps.Rename("draft", "taken"); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("rename onto existing: err = %v", err)
	}
	if _, err := snaps.Rename("ghost", "new"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("rename missing: err = %v", err)
	}
	if _, err := snaps.Rename("draft", "../x"); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("rename to bad name: err = %v", err)
	}

	meta, err := snaps.Rename("draft", "final")
	if err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if meta.Name != "final" {
		t.Errorf("name = %q", meta.Name)
	}
	got, err := snaps.Load("final")
	if err != nil || string(got) != `{"a":1}` {
		t.Errorf("Load renamed = %q, %v", got, err)
	}
	if _, err := snaps.Load("draft"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("old name still loads: %v", err)
	}
}
