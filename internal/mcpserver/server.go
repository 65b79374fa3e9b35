// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes lorekeep graph tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/lorekeep/internal/graphservice"
)

const contractURI = "lorekeep://registry-format"

// Server wraps the MCP server with lorekeep tools.
type Server struct {
	mcp *server.MCPServer
	svc *graphservice.Service
}

// New creates a new MCP server with all lorekeep tools registered.
func New(svc *graphservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Lorekeep",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_entities",
		mcp.WithDescription("Full-text search through entity titles, bodies and tags."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchEntities)

	s.mcp.AddTool(mcp.NewTool("get_entity",
		mcp.WithDescription("Read one entity with its ancestors and backlinks."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Entity id")),
	), s.getEntity)

	s.mcp.AddTool(mcp.NewTool("drilldown",
		mcp.WithDescription("Materialize the bounded neighbourhood around a focus entity. "+
			"Each entity is annotated with its depth and its path type "+
			"(focus, ancestor, descendant, lateral)."),
		mcp.WithString("focus", mcp.Description("Focus id; empty shows the top level")),
		mcp.WithNumber("budget", mcp.Description("Maximum number of entities")),
		mcp.WithNumber("depth", mcp.Description("Maximum traversal depth")),
		mcp.WithBoolean("author_notes", mcp.Description("Include author notes")),
	), s.drilldown)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a note. Read the contract first via the "+
			"get_registry_contract tool or the "+contractURI+" resource."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Display title")),
		mcp.WithString("id", mcp.Description("Optional stable id")),
		mcp.WithString("category", mcp.Description("Worldbuilding category, Concept when empty")),
		mcp.WithString("gist", mcp.Description("One-line summary")),
		mcp.WithString("body", mcp.Description("Markdown body")),
		mcp.WithString("parent", mcp.Description("Optional parent id")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("analyze_link",
		mcp.WithDescription("Judge a proposed link without creating it. Hierarchical links "+
			"that would close a loop are rejected."),
		mcp.WithString("source", mcp.Required(), mcp.Description("Source id")),
		mcp.WithString("target", mcp.Required(), mcp.Description("Target id")),
		mcp.WithString("kind", mcp.Description("Link kind"), mcp.Enum("semantic", "hierarchical", "reified")),
	), s.analyzeLink)

	s.mcp.AddTool(mcp.NewTool("establish_link",
		mcp.WithDescription("Connect two nodes with a semantic link."),
		mcp.WithString("source", mcp.Required(), mcp.Description("Source id")),
		mcp.WithString("target", mcp.Required(), mcp.Description("Target id")),
		mcp.WithString("verb", mcp.Description("Relationship verb, e.g. employs")),
	), s.establishLink)

	s.mcp.AddTool(mcp.NewTool("reparent",
		mcp.WithDescription("Move an entity under a new parent, or reference it there."),
		mcp.WithString("source", mcp.Required(), mcp.Description("Entity to move")),
		mcp.WithString("target", mcp.Required(), mcp.Description("New parent id, or __root__")),
		mcp.WithString("old_parent", mcp.Description("Current parent id; empty when top level")),
		mcp.WithBoolean("is_reference", mcp.Description("Keep the old parent and only add the new one")),
	), s.reparent)

	s.mcp.AddTool(mcp.NewTool("integrity_report",
		mcp.WithDescription("Audit every link; flagged links would close a hierarchy loop."),
		mcp.WithBoolean("flagged_only", mcp.Description("Only return links that are not approved")),
	), s.integrityReport)

	s.mcp.AddTool(mcp.NewTool("import_markdown",
		mcp.WithDescription("Merge one Markdown document into the graph. Frontmatter id, "+
			"title, category, gist, tags, aliases and parent are honoured; [[wikilinks]] "+
			"become links."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown following the contract")),
	), s.importMarkdown)

	s.mcp.AddTool(mcp.NewTool("undo",
		mcp.WithDescription("Revert the most recent write to the graph."),
	), s.undo)

	s.mcp.AddTool(mcp.NewTool("get_registry_contract",
		mcp.WithDescription("Returns the lorekeep entity and Markdown import contract. "+
			"Call this before writing to the graph."),
	), s.getContract)

	// Resource: registry format contract.
	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Registry Format Contract",
			mcp.WithResourceDescription("Entity kinds, categories and the Markdown import format."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContractResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func errResult(err error) (*mcp.CallToolResult, error) {
	if errors.Is(err, graphservice.ErrNothingToUndo) {
		return mcp.NewToolResultText("nothing to undo"), nil
	}
	return mcp.NewToolResultError(err.Error()), nil
}

func mutationText(op string, res graphservice.Result) string {
	if !res.Changed {
		return fmt.Sprintf("%s: no change", op)
	}
	if res.ID != "" {
		return fmt.Sprintf("%s: %s (etag %s)", op, res.ID, res.ETag)
	}
	return fmt.Sprintf("%s: applied (etag %s)", op, res.ETag)
}

func (s *Server) getContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(RegistryFormatContract), nil
}

func (s *Server) readContractResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     RegistryFormatContract,
		},
	}, nil
}
