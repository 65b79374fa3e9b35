package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/lorekeep/internal/graphservice"
	"github.com/starford/lorekeep/internal/models"
	"github.com/starford/lorekeep/internal/mutation"
	"github.com/starford/lorekeep/internal/registry"
	tu "github.com/starford/lorekeep/internal/testutil"
)

// testEnv sets up a temp data directory, SQLite DB, service, and router for
// testing. An empty authToken means auth is disabled.
func testEnv(t *testing.T, authToken string) (*graphservice.Service, http.Handler) {
	t.Helper()
	return testEnvWithSSE(t, authToken != "", authToken, nil)
}

// testEnvWithSSE creates a router with the given SSE handler mounted at /events.
func testEnvWithSSE(t *testing.T, authEnabled bool, token string, sseHandler http.Handler) (*graphservice.Service, http.Handler) {
	t.Helper()
	_, store := tu.TestDataDir(t)
	db := tu.TestDB(t)
	m := mutation.New(
		mutation.WithIDGenerator(tu.SequentialIDs("n")),
		mutation.WithClock(func() time.Time { return time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC) }),
	)
	svc := graphservice.New(store, db, nil, tu.Logger(), graphservice.Options{Mutator: m})
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return svc, NewRouter(svc, authEnabled, token, sseHandler)
}

func seed(t *testing.T, svc *graphservice.Service, entities ...*models.Entity) {
	t.Helper()
	data, err := json.Marshal(registry.New(entities...))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Import(context.Background(), data, ""); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func do(t *testing.T, router http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func TestCreateAndGetNote(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/notes", CreateNoteRequest{
		ID: "harbor", Title: "Harbor", Category: models.CategoryLocation, Body: "Ships rest here.",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	res := decode[graphservice.Result](t, w)
	if res.ID != "harbor" || !res.Changed {
		t.Errorf("result = %+v", res)
	}
	if w.Header().Get("ETag") == "" {
		t.Error("missing ETag header")
	}

	w = do(t, router, http.MethodGet, "/entities/harbor", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	got := decode[EntityResponse](t, w)
	if got.Entity.Title != "Harbor" || got.Entity.Category != models.CategoryLocation {
		t.Errorf("entity = %+v", got.Entity)
	}
	if !got.Entity.HasTag(models.TagRoot) {
		t.Error("top-level note should carry the root tag")
	}
}

func TestCreateNote_Validation(t *testing.T) {
	_, router := testEnv(t, "")

	tests := []struct {
		name string
		body any
	}{
		{"malformed json", "{"},
		{"missing title", CreateNoteRequest{ID: "x"}},
		{"reserved id", CreateNoteRequest{ID: models.RootID, Title: "Root"}},
		{"unknown category", CreateNoteRequest{Title: "X", Category: "Spaceship"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, http.MethodPost, "/notes", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400 (body %s)", w.Code, w.Body.String())
			}
		})
	}
}

func TestCreateDuplicate(t *testing.T) {
	svc, router := testEnv(t, "")
	seed(t, svc, tu.Note("harbor"))

	w := do(t, router, http.MethodPost, "/notes", CreateNoteRequest{ID: "harbor", Title: "Again"})
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate status = %d, want 409", w.Code)
	}
}

func TestCreateNote_MissingParent(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/notes", CreateNoteRequest{Title: "Orphan", ParentID: "nowhere"})
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestUpdateNote(t *testing.T) {
	svc, router := testEnv(t, "")
	seed(t, svc, tu.Note("harbor"))

	title := "Old Harbor"
	w := do(t, router, http.MethodPatch, "/notes/harbor", UpdateNoteRequest{Title: &title})
	if w.Code != http.StatusOK {
		t.Fatalf("patch status = %d, body = %s", w.Code, w.Body.String())
	}
	e, _ := svc.Registry().Get("harbor")
	if e.Title != "Old Harbor" {
		t.Errorf("title = %q", e.Title)
	}

	w = do(t, router, http.MethodPatch, "/notes/nowhere", UpdateNoteRequest{Title: &title})
	if w.Code != http.StatusNotFound {
		t.Errorf("patch missing = %d, want 404", w.Code)
	}
}

func TestDeleteEntity(t *testing.T) {
	svc, router := testEnv(t, "")
	seed(t, svc, tu.Note("a"), tu.Note("b"), tu.Link("l1", "a", "b"))

	w := do(t, router, http.MethodDelete, "/entities/a", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}
	res := decode[graphservice.Result](t, w)
	if len(res.Changes.Removed) != 2 {
		t.Errorf("removed = %v, want the note and its link", res.Changes.Removed)
	}

	w = do(t, router, http.MethodGet, "/entities/a", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", w.Code)
	}
	w = do(t, router, http.MethodDelete, "/entities/a", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", w.Code)
	}
}

func TestListEntities(t *testing.T) {
	svc, router := testEnv(t, "")
	seed(t, svc,
		tu.Categorized("a", models.CategoryCharacter),
		tu.Categorized("b", models.CategoryLocation),
		tu.Categorized("c", models.CategoryCharacter),
		tu.Link("l1", "a", "b"),
	)

	w := do(t, router, http.MethodGet, "/entities?kind=note&limit=1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	got := decode[EntityListResponse](t, w)
	if got.Total != 3 || len(got.Entities) != 1 || got.Entities[0].ID != "a" {
		t.Errorf("page = %d/%d first=%v", len(got.Entities), got.Total, got.Entities)
	}

	w = do(t, router, http.MethodGet, "/entities?category=Character&offset=1", nil)
	got = decode[EntityListResponse](t, w)
	if got.Total != 2 || len(got.Entities) != 1 || got.Entities[0].ID != "c" {
		t.Errorf("category page = %+v", got)
	}
}

func TestSearchEndpoint(t *testing.T) {
	svc, router := testEnv(t, "")
	seed(t, svc, &models.Entity{ID: "k", Kind: models.KindNote, Title: "Lighthouse Keeper", Body: "tends the lamp"})

	w := do(t, router, http.MethodGet, "/search?q=lighthouse", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search status = %d", w.Code)
	}
	got := decode[SearchResponse](t, w)
	if len(got.Results) != 1 || got.Results[0].ID != "k" {
		t.Errorf("results = %+v", got.Results)
	}
}

func TestSearchMissingQuery(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodGet, "/search", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("search no query = %d, want 400", w.Code)
	}
}

func TestCreateLink(t *testing.T) {
	svc, router := testEnv(t, "")
	seed(t, svc, tu.Container("world", "harbor"), tu.Note("harbor"), tu.Hierarchy("h1", "world", "harbor"))

	w := do(t, router, http.MethodPost, "/links", LinkRequest{Source: "harbor", Target: "world", Verb: "borders"})
	if w.Code != http.StatusCreated {
		t.Fatalf("semantic status = %d, body = %s", w.Code, w.Body.String())
	}

	w = do(t, router, http.MethodPost, "/links", LinkRequest{Source: "harbor", Target: "world", Kind: "hierarchical"})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("cycle status = %d, want 422", w.Code)
	}

	w = do(t, router, http.MethodPost, "/links", LinkRequest{Source: "harbor", Target: "world", Kind: "sideways"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad kind status = %d, want 400", w.Code)
	}
}

func TestAnalyzeEndpoint(t *testing.T) {
	svc, router := testEnv(t, "")
	seed(t, svc, tu.Container("world", "harbor"), tu.Note("harbor"), tu.Hierarchy("h1", "world", "harbor"))

	w := do(t, router, http.MethodGet, "/analyze?source=harbor&target=world&kind=hierarchical", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("analyze status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"is_cycle":true`) {
		t.Errorf("body = %s, want a cycle verdict", w.Body.String())
	}

	w = do(t, router, http.MethodGet, "/analyze?source=harbor", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing target = %d, want 400", w.Code)
	}
}

func TestReparentEndpoint(t *testing.T) {
	svc, router := testEnv(t, "")
	seed(t, svc, tu.Container("world"), tu.Note("harbor"))

	w := do(t, router, http.MethodPost, "/reparent", ReparentRequest{Source: "harbor", Target: "world"})
	if w.Code != http.StatusOK {
		t.Fatalf("reparent status = %d, body = %s", w.Code, w.Body.String())
	}
	world, _ := svc.Registry().Get("world")
	if !world.HasChild("harbor") {
		t.Error("harbor should be a child of world")
	}

	w = do(t, router, http.MethodPost, "/reparent", ReparentRequest{Source: "world", Target: "harbor"})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("cyclic reparent = %d, want 422", w.Code)
	}
}

func TestReifyEndpoints(t *testing.T) {
	svc, router := testEnv(t, "")
	seed(t, svc, tu.Note("a"), tu.Note("b"), tu.Note("c"), tu.Link("l1", "a", "b"))

	w := do(t, router, http.MethodPost, "/links/l1/reify", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("reify link = %d", w.Code)
	}
	if e, _ := svc.Registry().Get("l1"); e.Kind != models.KindReifiedLink {
		t.Errorf("kind = %s, want reified_link", e.Kind)
	}

	w = do(t, router, http.MethodPost, "/notes/c/reify", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("reify node = %d", w.Code)
	}
	if e, _ := svc.Registry().Get("c"); e.Kind != models.KindContainer {
		t.Errorf("kind = %s, want container", e.Kind)
	}

	w = do(t, router, http.MethodPost, "/notes/c/reify-link", ReifyToLinkRequest{Source: "a"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing target = %d, want 400", w.Code)
	}
}

func TestDrilldownEndpoint(t *testing.T) {
	svc, router := testEnv(t, "")
	seed(t, svc,
		tu.Container("world", "harbor", "keep"),
		tu.Note("harbor"), tu.Note("keep"),
		tu.Hierarchy("h1", "world", "harbor"),
		tu.Hierarchy("h2", "world", "keep"),
	)

	w := do(t, router, http.MethodGet, "/drilldown?focus=harbor&depth=1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("drilldown status = %d", w.Code)
	}
	var got struct {
		Nodes map[string]struct {
			Depth    int    `json:"depth"`
			PathType string `json:"path_type"`
		} `json:"nodes"`
		Edges []struct {
			Source string `json:"source"`
			Target string `json:"target"`
		} `json:"edges"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Nodes["harbor"].PathType != "focus" || got.Nodes["harbor"].Depth != 0 {
		t.Errorf("focus = %+v", got.Nodes["harbor"])
	}
	if got.Nodes["world"].PathType != "ancestor" {
		t.Errorf("world = %+v, want ancestor", got.Nodes["world"])
	}
	if len(got.Edges) == 0 {
		t.Error("expected edges between materialized nodes")
	}
}

func TestIntegrityEndpoints(t *testing.T) {
	svc, router := testEnv(t, "")
	seed(t, svc,
		tu.Note("a"), tu.Note("b"),
		tu.Hierarchy("ab", "a", "b"),
		tu.Hierarchy("ba", "b", "a"),
		tu.Link("dangling", "a", "ghost"),
	)

	w := do(t, router, http.MethodGet, "/integrity?flagged=true", nil)
	got := decode[IntegrityResponse](t, w)
	if got.Flagged != 2 || len(got.Reports) != 2 {
		t.Errorf("flagged = %d reports = %d, want both loop edges", got.Flagged, len(got.Reports))
	}

	w = do(t, router, http.MethodGet, "/cycles", nil)
	cycles := decode[CyclesResponse](t, w)
	if len(cycles.Cycles) != 1 {
		t.Errorf("cycles = %v", cycles.Cycles)
	}

	w = do(t, router, http.MethodGet, "/dangling", nil)
	dangling := decode[map[string][]string](t, w)
	if len(dangling["dangling"]) == 0 {
		t.Errorf("dangling = %v", dangling)
	}

	w = do(t, router, http.MethodPost, "/purge", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("purge = %d", w.Code)
	}
	if svc.Registry().Has("dangling") {
		t.Error("purge should remove the dangling link")
	}
}

func TestRegistryExportImport(t *testing.T) {
	svc, router := testEnv(t, "")
	seed(t, svc, tu.Note("a"))

	w := do(t, router, http.MethodGet, "/registry", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("export = %d", w.Code)
	}
	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatal("missing ETag")
	}

	payload, _ := json.Marshal(registry.New(tu.Note("a"), tu.Note("b")))

	req := httptest.NewRequest(http.MethodPut, "/registry", bytes.NewReader(payload))
	req.Header.Set("If-Match", `"stale"`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Errorf("stale If-Match = %d, want 409", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPut, "/registry", bytes.NewReader(payload))
	req.Header.Set("If-Match", etag)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("import = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !svc.Registry().Has("b") {
		t.Error("import should add b")
	}

	w = do(t, router, http.MethodPut, "/registry", "not json")
	if w.Code != http.StatusBadRequest {
		t.Errorf("malformed import = %d, want 400", w.Code)
	}
}

func TestImportMarkdownEndpoint(t *testing.T) {
	svc, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/import/markdown", MarkdownImportRequest{Documents: []string{
		"---\nid: harbor\ntitle: Harbor\n---\nHome of [[Keeper]].",
		"---\nid: keeper\ntitle: Keeper\n---\nTends the lamp.",
	}})
	if w.Code != http.StatusOK {
		t.Fatalf("import = %d, body = %s", w.Code, w.Body.String())
	}
	got := decode[MarkdownImportResponse](t, w)
	if len(got.Report.Created) != 2 || got.Report.Links != 1 {
		t.Errorf("report = %+v", got.Report)
	}
	if !svc.Registry().Has("keeper") {
		t.Error("keeper should exist")
	}

	w = do(t, router, http.MethodPost, "/import/markdown", MarkdownImportRequest{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty import = %d, want 400", w.Code)
	}
}

func TestUndoEndpoint(t *testing.T) {
	svc, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/undo", nil)
	if w.Code != http.StatusConflict {
		t.Errorf("undo on fresh service = %d, want 409", w.Code)
	}

	do(t, router, http.MethodPost, "/notes", CreateNoteRequest{ID: "a", Title: "A"})
	w = do(t, router, http.MethodPost, "/undo", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("undo = %d", w.Code)
	}
	if svc.Registry().Has("a") {
		t.Error("undo should remove a")
	}
}

func TestSnapshotEndpoints(t *testing.T) {
	svc, router := testEnv(t, "")
	seed(t, svc, tu.Note("a"))

	w := do(t, router, http.MethodPost, "/snapshots", SnapshotRequest{Name: "before"})
	if w.Code != http.StatusCreated {
		t.Fatalf("checkpoint = %d, body = %s", w.Code, w.Body.String())
	}
	do(t, router, http.MethodDelete, "/entities/a", nil)

	w = do(t, router, http.MethodGet, "/snapshots", nil)
	snaps := decode[[]models.SnapshotMetadata](t, w)
	if len(snaps) != 1 || snaps[0].Name != "before" {
		t.Errorf("snapshots = %+v", snaps)
	}

	w = do(t, router, http.MethodPost, "/snapshots/before/restore", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("restore = %d", w.Code)
	}
	if !svc.Registry().Has("a") {
		t.Error("restore should bring a back")
	}

	w = do(t, router, http.MethodPost, "/snapshots/before/rename", SnapshotRequest{Name: "baseline"})
	if w.Code != http.StatusOK {
		t.Fatalf("rename = %d, body = %s", w.Code, w.Body.String())
	}
	w = do(t, router, http.MethodPost, "/snapshots/before/rename", SnapshotRequest{Name: "other"})
	if w.Code != http.StatusNotFound {
		t.Errorf("rename missing = %d, want 404", w.Code)
	}

	w = do(t, router, http.MethodDelete, "/snapshots/baseline", nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("delete snapshot = %d", w.Code)
	}
	w = do(t, router, http.MethodPost, "/snapshots/baseline/restore", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("restore deleted = %d, want 404", w.Code)
	}
	w = do(t, router, http.MethodPost, "/snapshots", SnapshotRequest{Name: "../escape"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad name = %d, want 400", w.Code)
	}
}

// Auth middleware tests.

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router := testEnv(t, "secret123")
	req := httptest.NewRequest(http.MethodGet, "/entities", nil)
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("valid token = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router := testEnv(t, "secret123")
	w := do(t, router, http.MethodGet, "/entities", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router := testEnv(t, "secret123")
	req := httptest.NewRequest(http.MethodGet, "/entities", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodGet, "/entities", nil)
	if w.Code != http.StatusOK {
		t.Errorf("disabled mode = %d, want 200", w.Code)
	}
}

// SSE endpoint auth tests.

// blockingSSE writes headers and blocks until the request context is done.
var blockingSSE = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	<-r.Context().Done()
})

func TestSSEEvents_AuthProtected(t *testing.T) {
	_, router := testEnvWithSSE(t, true, "secret", blockingSSE)

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_AuthDisabled(t *testing.T) {
	_, router := testEnvWithSSE(t, false, "", blockingSSE)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE should not require auth when disabled")
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	_, router := testEnvWithSSE(t, true, "tok", blockingSSE)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("SSE with valid token = %d, want 200", w.Code)
	}
}
