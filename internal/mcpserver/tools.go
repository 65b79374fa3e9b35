package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/lorekeep/internal/graphservice"
	"github.com/starford/lorekeep/internal/integrity"
	"github.com/starford/lorekeep/internal/models"
	"github.com/starford/lorekeep/internal/mutation"
	"github.com/starford/lorekeep/internal/parser"
)

func (s *Server) searchEntities(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("no results"), nil
	}
	return jsonResult(results)
}

func (s *Server) getEntity(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	e, err := s.svc.Get(ctx, id)
	if err != nil {
		return mcp.NewToolResultError("not found: " + id), nil
	}
	back, err := s.svc.Backlinks(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{
		"entity":    e,
		"ancestors": s.svc.Ancestors(ctx, id),
		"backlinks": back,
	})
}

func (s *Server) drilldown(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q := graphservice.DrilldownQuery{
		FocusID:    req.GetString("focus", ""),
		NodeBudget: req.GetInt("budget", 0),
		MaxDepth:   req.GetInt("depth", 0),
	}
	if v, ok := req.GetArguments()["author_notes"].(bool); ok {
		q.AuthorNotes = &v
	}
	view, edges := s.svc.Drilldown(ctx, q)
	return jsonResult(map[string]any{"nodes": view, "edges": edges})
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.CreateNote(ctx, mutation.NoteSpec{
		ID:       req.GetString("id", ""),
		Title:    title,
		Category: models.Category(req.GetString("category", "")),
		Gist:     req.GetString("gist", ""),
		Body:     req.GetString("body", ""),
		ParentID: req.GetString("parent", ""),
	})
	if err != nil {
		return errResult(err)
	}
	return mcp.NewToolResultText(mutationText("created", res)), nil
}

func (s *Server) analyzeLink(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	source, err := req.RequireString("source")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	target, err := req.RequireString("target")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	kind, err := integrity.ParseLinkKind(req.GetString("kind", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(s.svc.Analyze(ctx, source, target, kind))
}

func (s *Server) establishLink(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	source, err := req.RequireString("source")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	target, err := req.RequireString("target")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.EstablishLink(ctx, source, target, req.GetString("verb", ""))
	if err != nil {
		return errResult(err)
	}
	return mcp.NewToolResultText(mutationText("linked", res)), nil
}

func (s *Server) reparent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	source, err := req.RequireString("source")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	target, err := req.RequireString("target")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.Reparent(ctx, source, target, req.GetString("old_parent", ""), req.GetBool("is_reference", false))
	if err != nil {
		return errResult(err)
	}
	return mcp.NewToolResultText(mutationText("moved", res)), nil
}

func (s *Server) integrityReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	reports := s.svc.IntegrityReport(ctx, req.GetBool("flagged_only", false))
	return jsonResult(reports)
}

func (s *Server) importMarkdown(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := parser.Parse([]byte(content))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	report, res, err := s.svc.ImportMarkdown(ctx, []*parser.Document{doc})
	if err != nil {
		return errResult(err)
	}
	return jsonResult(struct {
		Report graphservice.ImportReport `json:"report"`
		Result graphservice.Result       `json:"result"`
	}{report, res})
}

func (s *Server) undo(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.svc.Undo(ctx)
	if err != nil {
		return errResult(err)
	}
	return mcp.NewToolResultText(mutationText("undone", res)), nil
}
