// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the graph as tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/spacetime/internal/apperr"
	"github.com/starford/spacetime/internal/codec"
	"github.com/starford/spacetime/internal/graph"
	"github.com/starford/spacetime/internal/ingest"
	"github.com/starford/spacetime/internal/models"
	"github.com/starford/spacetime/internal/parser"
	"github.com/starford/spacetime/internal/storage"
)

const (
	formatURI = "spacetime://import-format"
	arrowsURI = "spacetime://arrows"

	maxStartNodes = 20
)

// Server wraps the MCP server with graph tools.
type Server struct {
	mcp    *server.MCPServer
	g      *graph.Model
	files  storage.Provider
	ledger ingest.Ledger
}

// New creates a new MCP server with all graph tools registered. files and
// ledger may be nil, in which case the import tool is not offered.
func New(g *graph.Model, files storage.Provider, ledger ingest.Ledger) *Server {
	s := &Server{g: g, files: files, ledger: ledger}

	s.mcp = server.NewMCPServer(
		"Spacetime",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("create_vertex",
		mcp.WithDescription("Create a node, or return the existing node with the same text."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Node text")),
		mcp.WithString("chapter", mcp.Description("Chapter the node belongs to")),
	), s.createVertex)

	s.mcp.AddTool(mcp.NewTool("create_edge",
		mcp.WithDescription("Link two nodes by text with a named arrow. Missing nodes are created "+
			"and the inverse link is added automatically. Call list_arrows for valid names."),
		mcp.WithString("from", mcp.Required(), mcp.Description("Source node text")),
		mcp.WithString("arrow", mcp.Required(), mcp.Description("Arrow long or short name, e.g. 'then' or 'contains'")),
		mcp.WithString("to", mcp.Required(), mcp.Description("Destination node text")),
		mcp.WithString("chapter", mcp.Description("Chapter for nodes created by this call")),
		mcp.WithString("context", mcp.Description("Comma-separated context tags")),
		mcp.WithNumber("weight", mcp.Description("Non-zero link weight (default 1)")),
	), s.createEdge)

	s.mcp.AddTool(mcp.NewTool("get_node",
		mcp.WithDescription("Read a node and all its links by pointer."),
		mcp.WithNumber("class", mcp.Required(), mcp.Description("Size class, 1 to 6")),
		mcp.WithNumber("cptr", mcp.Required(), mcp.Description("Position within the class")),
	), s.getNode)

	s.mcp.AddTool(mcp.NewTool("find_nodes",
		mcp.WithDescription("Search nodes by text and chapter substring."),
		mcp.WithString("query", mcp.Description("Text substring")),
		mcp.WithString("chapter", mcp.Description("Chapter substring")),
		mcp.WithNumber("limit", mcp.Description("Max results")),
	), s.findNodes)

	s.mcp.AddTool(mcp.NewTool("forward_paths",
		mcp.WithDescription("Follow links of one semantic type from a node. "+
			"Semantic types: 0 near, 1 leads to, 2 contains, 3 expresses; negative values follow the inverses."),
		mcp.WithNumber("class", mcp.Required(), mcp.Description("Start node size class")),
		mcp.WithNumber("cptr", mcp.Required(), mcp.Description("Start node position")),
		mcp.WithNumber("sttype", mcp.Required(), mcp.Description("Semantic type, -3 to 3")),
		mcp.WithNumber("depth", mcp.Required(), mcp.Description("Max hops")),
		mcp.WithNumber("limit", mcp.Description("Max paths")),
	), s.forwardPaths)

	s.mcp.AddTool(mcp.NewTool("cone_paths",
		mcp.WithDescription("Walk the forward, backward or full link cone from every node whose text contains start."),
		mcp.WithString("start", mcp.Required(), mcp.Description("Text substring selecting the start nodes")),
		mcp.WithString("orientation", mcp.Description("fwd, bwd or both (default)")),
		mcp.WithNumber("depth", mcp.Required(), mcp.Description("Max hops")),
		mcp.WithString("chapter", mcp.Description("Only enter nodes whose chapter contains this")),
		mcp.WithString("context", mcp.Description("Comma-separated context tags a link must carry one of")),
		mcp.WithString("arrows", mcp.Description("Comma-separated arrow names to follow")),
		mcp.WithNumber("limit", mcp.Description("Max paths")),
	), s.conePaths)

	s.mcp.AddTool(mcp.NewTool("list_arrows",
		mcp.WithDescription("List every arrow with its semantic type and inverse."),
	), s.listArrows)

	s.mcp.AddTool(mcp.NewTool("get_import_contract",
		mcp.WithDescription("Returns the YAML import format. Call this before import_yaml."),
	), s.getImportContract)

	if files != nil && ledger != nil {
		s.mcp.AddTool(mcp.NewTool("import_yaml",
			mcp.WithDescription("Write a YAML import file and apply it to the graph. "+
				"Content MUST follow the import format from get_import_contract."),
			mcp.WithString("path", mcp.Required(), mcp.Description("Relative path ending in .yaml")),
			mcp.WithString("content", mcp.Required(), mcp.Description("YAML document(s)")),
		), s.importYAML)
	}

	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Import Format Contract",
			mcp.WithResourceDescription("YAML format accepted by import_yaml and the import directory."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatResource,
	)
	s.mcp.AddResource(
		mcp.NewResource(arrowsURI, "Arrow Vocabulary",
			mcp.WithResourceDescription("The arrow directory as JSON."),
			mcp.WithMIMEType("application/json"),
		),
		s.readArrowsResource,
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

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (s *Server) createVertex(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ptr, err := s.g.CreateVertex(ctx, text, req.GetString("chapter", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", ptr)), nil
}

func (s *Server) createEdge(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	from, err := req.RequireString("from")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	arrow, err := req.RequireString("arrow")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	to, err := req.RequireString("to")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	chapter := req.GetString("chapter", "")
	weight := float32(req.GetFloat("weight", float64(parser.DefaultWeight)))

	// Reject the edge before any vertex is written.
	if _, _, err := s.g.Arrows().Resolve(arrow); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	switch {
	case from == to:
		return mcp.NewToolResultError(fmt.Sprintf("%s: %q", apperr.ErrSelfLoop, from)), nil
	case weight == 0:
		return mcp.NewToolResultError(apperr.ErrZeroWeight.Error()), nil
	}

	src, err := s.g.CreateVertex(ctx, from, chapter)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	dst, err := s.g.CreateVertex(ctx, to, chapter)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	link, err := s.g.CreateEdge(ctx, src, arrow, dst, splitList(req.GetString("context", "")), weight)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s %s", src, codec.EncodeLink(link))), nil
}

func (s *Server) getNode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	class, err := req.RequireInt("class")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	cptr, err := req.RequireInt("cptr")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.g.FetchNode(ctx, models.NodePtr{Class: class, CPtr: cptr})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(n)
}

func (s *Server) findNodes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	nodes, err := s.g.FindNodes(ctx, req.GetString("query", ""), req.GetString("chapter", ""), req.GetInt("limit", 20))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(nodes) == 0 {
		return mcp.NewToolResultText("no nodes found"), nil
	}
	lines := make([]string, 0, len(nodes))
	for _, n := range nodes {
		lines = append(lines, fmt.Sprintf("%s %s [%s]", n.Ptr, n.Text, n.Chapter))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) forwardPaths(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args [4]int
	for i, key := range []string{"class", "cptr", "sttype", "depth"} {
		v, err := req.RequireInt(key)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		args[i] = v
	}
	start := models.NodePtr{Class: args[0], CPtr: args[1]}
	paths, err := s.g.PathsForward(ctx, start, models.SemanticType(args[2]), args[3], req.GetInt("limit", 0))
	return s.pathsResult(ctx, paths, err)
}

func (s *Server) conePaths(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("start")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	depth, err := req.RequireInt("depth")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	orient, err := models.ParseOrientation(req.GetString("orientation", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	nodes, err := s.g.FindNodes(ctx, query, "", maxStartNodes)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(nodes) == 0 {
		return mcp.NewToolResultError(fmt.Sprintf("no node matches %q", query)), nil
	}
	q := graph.ConeQuery{
		Orientation: orient,
		Depth:       depth,
		Chapter:     req.GetString("chapter", ""),
		Context:     splitList(req.GetString("context", "")),
		Arrows:      splitList(req.GetString("arrows", "")),
		Limit:       req.GetInt("limit", 0),
	}
	for _, n := range nodes {
		q.Start = append(q.Start, n.Ptr)
	}
	paths, err := s.g.PathsCone(ctx, q)
	return s.pathsResult(ctx, paths, err)
}

type pathView struct {
	Encoded string       `json:"encoded"`
	Steps   []graph.Step `json:"steps"`
}

// pathsResult renders paths as JSON. A partially malformed result keeps the
// good paths and reports the error alongside them.
func (s *Server) pathsResult(ctx context.Context, paths []models.Path, searchErr error) (*mcp.CallToolResult, error) {
	if searchErr != nil && len(paths) == 0 {
		return mcp.NewToolResultError(searchErr.Error()), nil
	}
	steps, err := s.g.Describe(ctx, paths)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out := struct {
		Paths   []pathView `json:"paths"`
		Warning string     `json:"warning,omitempty"`
	}{Paths: make([]pathView, len(paths))}
	for i, p := range paths {
		out.Paths[i] = pathView{Encoded: codec.EncodeLinkArray(p), Steps: steps[i]}
	}
	if searchErr != nil {
		out.Warning = searchErr.Error()
	}
	return jsonResult(out)
}

func (s *Server) listArrows(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var b strings.Builder
	for _, a := range s.g.Arrows().All() {
		inv, _ := s.g.Arrows().Get(a.Inverse)
		fmt.Fprintf(&b, "%s (%s) sttype=%d inverse=%s\n", a.Long, a.Short, a.SemanticType, inv.Long)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) getImportContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ImportFormatContract), nil
}

func (s *Server) importYAML(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !storage.Importable(path) {
		return mcp.NewToolResultError(fmt.Sprintf("not a .yaml file: %s", path)), nil
	}
	if err := s.files.Write(path, []byte(content)); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	applied, err := ingest.ImportFile(ctx, s.g, s.ledger, s.files, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !applied {
		return mcp.NewToolResultText(fmt.Sprintf("unchanged: %s", path)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("imported: %s", path)), nil
}

func (s *Server) readFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     ImportFormatContract,
		},
	}, nil
}

func (s *Server) readArrowsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	out, err := json.Marshal(s.g.Arrows().All())
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      arrowsURI,
			MIMEType: "application/json",
			Text:     string(out),
		},
	}, nil
}
