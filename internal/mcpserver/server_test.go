package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/lorekeep/internal/graphservice"
	"github.com/starford/lorekeep/internal/models"
	"github.com/starford/lorekeep/internal/mutation"
	"github.com/starford/lorekeep/internal/registry"
	tu "github.com/starford/lorekeep/internal/testutil"
)

func testServer(t *testing.T, entities ...*models.Entity) (*Server, *graphservice.Service) {
	t.Helper()
	_, store := tu.TestDataDir(t)
	db := tu.TestDB(t)
	m := mutation.New(mutation.WithIDGenerator(tu.SequentialIDs("m")))
	svc := graphservice.New(store, db, nil, tu.Logger(), graphservice.Options{Mutator: m})
	if err := svc.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(entities) > 0 {
		data, err := json.Marshal(registry.New(entities...))
		if err != nil {
			t.Fatal(err)
		}
		if _, err := svc.Import(context.Background(), data, ""); err != nil {
			t.Fatal(err)
		}
	}
	return New(svc), svc
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so the handlers are
	// invoked directly.
	handlers := map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"search_entities":       srv.searchEntities,
		"get_entity":            srv.getEntity,
		"drilldown":             srv.drilldown,
		"create_note":           srv.createNote,
		"analyze_link":          srv.analyzeLink,
		"establish_link":        srv.establishLink,
		"reparent":              srv.reparent,
		"integrity_report":      srv.integrityReport,
		"import_markdown":       srv.importMarkdown,
		"undo":                  srv.undo,
		"get_registry_contract": srv.getContract,
	}
	h, ok := handlers[name]
	if !ok {
		t.Fatalf("unknown tool: %s", name)
	}
	result, err := h(ctx, req)
	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestCreateAndGetEntity(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "create_note", map[string]any{"title": "Harbor", "id": "harbor", "category": "Location"})
	if r.IsError || !strings.HasPrefix(resultText(r), "created: harbor") {
		t.Fatalf("create result = %q", resultText(r))
	}

	r = callTool(t, srv, "get_entity", map[string]any{"id": "harbor"})
	var got struct {
		Entity models.Entity `json:"entity"`
	}
	if err := json.Unmarshal([]byte(resultText(r)), &got); err != nil {
		t.Fatalf("decode %q: %v", resultText(r), err)
	}
	if got.Entity.Title != "Harbor" || got.Entity.Category != models.CategoryLocation {
		t.Errorf("entity = %+v", got.Entity)
	}
}

func TestCreateNote_BadCategory(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "create_note", map[string]any{"title": "X", "category": "Spaceship"})
	if !r.IsError {
		t.Error("expected error for unknown category")
	}
}

func TestGetEntityMissing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_entity", map[string]any{"id": "nope"})
	if !r.IsError {
		t.Error("expected error for missing entity")
	}
	r = callTool(t, srv, "get_entity", map[string]any{})
	if !r.IsError {
		t.Error("expected error for missing id argument")
	}
}

func TestSearchEntities(t *testing.T) {
	srv, _ := testServer(t, &models.Entity{ID: "k", Kind: models.KindNote, Title: "Lighthouse Keeper"})

	r := callTool(t, srv, "search_entities", map[string]any{"query": "lighthouse"})
	if !strings.Contains(resultText(r), `"id": "k"`) {
		t.Errorf("search = %q", resultText(r))
	}
	r = callTool(t, srv, "search_entities", map[string]any{"query": "nothing-matches"})
	if resultText(r) != "no results" {
		t.Errorf("empty search = %q", resultText(r))
	}
}

func TestDrilldownTool(t *testing.T) {
	srv, _ := testServer(t,
		tu.Container("world", "harbor"), tu.Note("harbor"),
		tu.Hierarchy("h1", "world", "harbor"),
	)
	r := callTool(t, srv, "drilldown", map[string]any{"focus": "world", "depth": float64(1)})
	var got struct {
		Nodes map[string]struct {
			PathType string `json:"path_type"`
		} `json:"nodes"`
	}
	if err := json.Unmarshal([]byte(resultText(r)), &got); err != nil {
		t.Fatal(err)
	}
	if got.Nodes["world"].PathType != "focus" || got.Nodes["harbor"].PathType != "descendant" {
		t.Errorf("nodes = %+v", got.Nodes)
	}
}

func TestAnalyzeAndEstablishLink(t *testing.T) {
	srv, svc := testServer(t,
		tu.Container("world", "harbor"), tu.Note("harbor"),
		tu.Hierarchy("h1", "world", "harbor"),
	)

	r := callTool(t, srv, "analyze_link", map[string]any{"source": "harbor", "target": "world", "kind": "hierarchical"})
	if !strings.Contains(resultText(r), `"is_cycle": true`) {
		t.Errorf("analyze = %q", resultText(r))
	}
	r = callTool(t, srv, "analyze_link", map[string]any{"source": "harbor", "target": "world", "kind": "bogus"})
	if !r.IsError {
		t.Error("expected error for unknown kind")
	}

	r = callTool(t, srv, "establish_link", map[string]any{"source": "harbor", "target": "world", "verb": "borders"})
	if !strings.HasPrefix(resultText(r), "linked: m-1") {
		t.Errorf("establish = %q", resultText(r))
	}
	if l, ok := svc.Registry().Get("m-1"); !ok || l.Verb != "borders" {
		t.Errorf("link = %+v", l)
	}

	r = callTool(t, srv, "establish_link", map[string]any{"source": "harbor", "target": "ghost"})
	if resultText(r) != "linked: no change" {
		t.Errorf("missing endpoint = %q", resultText(r))
	}
}

func TestReparentTool(t *testing.T) {
	srv, svc := testServer(t, tu.Container("world"), tu.Note("harbor"))

	r := callTool(t, srv, "reparent", map[string]any{"source": "harbor", "target": "world"})
	if r.IsError {
		t.Fatalf("reparent = %q", resultText(r))
	}
	if w, _ := svc.Registry().Get("world"); !w.HasChild("harbor") {
		t.Error("harbor should be a child of world")
	}

	r = callTool(t, srv, "reparent", map[string]any{"source": "world", "target": "harbor"})
	if !r.IsError {
		t.Error("expected cycle error")
	}
}

func TestIntegrityReportTool(t *testing.T) {
	srv, _ := testServer(t,
		tu.Note("a"), tu.Note("b"),
		tu.Hierarchy("ab", "a", "b"), tu.Hierarchy("ba", "b", "a"),
		tu.Link("ok", "a", "b"),
	)
	r := callTool(t, srv, "integrity_report", map[string]any{"flagged_only": true})
	var reports map[string]map[string]any
	if err := json.Unmarshal([]byte(resultText(r)), &reports); err != nil {
		t.Fatal(err)
	}
	if len(reports) != 2 {
		t.Errorf("flagged = %v, want the two loop edges", reports)
	}
	if _, ok := reports["ok"]; ok {
		t.Error("semantic link should not be flagged")
	}
}

func TestImportMarkdownAndUndo(t *testing.T) {
	srv, svc := testServer(t, tu.Note("keeper"))

	r := callTool(t, srv, "import_markdown", map[string]any{
		"content": "---\nid: harbor\ntitle: Harbor\n---\nHome of [[keeper]] and [[Nobody]].",
	})
	if r.IsError {
		t.Fatalf("import = %q", resultText(r))
	}
	var got struct {
		Report graphservice.ImportReport `json:"report"`
	}
	if err := json.Unmarshal([]byte(resultText(r)), &got); err != nil {
		t.Fatal(err)
	}
	if len(got.Report.Created) != 1 || got.Report.Links != 1 || len(got.Report.Unresolved) != 1 {
		t.Errorf("report = %+v", got.Report)
	}

	r = callTool(t, srv, "undo", nil)
	if !strings.HasPrefix(resultText(r), "undone") {
		t.Errorf("undo = %q", resultText(r))
	}
	if svc.Registry().Has("harbor") {
		t.Error("undo should remove the imported note")
	}
}

func TestGetContract(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_registry_contract", nil)
	if !strings.Contains(resultText(r), "Hierarchy is acyclic") {
		t.Error("contract text missing rules")
	}
}
