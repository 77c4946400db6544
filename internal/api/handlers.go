package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/spacetime/internal/apperr"
	"github.com/starford/spacetime/internal/codec"
	"github.com/starford/spacetime/internal/graph"
	"github.com/starford/spacetime/internal/models"
	"github.com/starford/spacetime/internal/parser"
)

const maxBodyBytes = 1 << 20

// Handler holds API route handlers.
type Handler struct {
	g *graph.Model
}

// NewHandler creates a new Handler.
func NewHandler(g *graph.Model) *Handler {
	return &Handler{g: g}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	return true
}

// CreateVertex handles POST /api/vertices.
//
//	@Summary		Create a vertex, or return the existing one with the same text
//	@Tags			graph
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateVertexRequest	true	"Vertex to create"
//	@Success		201		{object}	VertexResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/vertices [post]
func (h *Handler) CreateVertex(w http.ResponseWriter, r *http.Request) {
	var req CreateVertexRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	ptr, err := h.g.CreateVertex(r.Context(), req.Text, req.Chapter)
	if err != nil {
		writeGraphError(w, "create vertex", err)
		return
	}
	writeJSON(w, http.StatusCreated, VertexResponse{Ptr: ptr})
}

// CreateEdge handles POST /api/edges.
//
//	@Summary		Create an edge and its inverse
//	@Tags			graph
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateEdgeRequest	true	"Edge to create"
//	@Success		201		{object}	EdgeResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/edges [post]
func (h *Handler) CreateEdge(w http.ResponseWriter, r *http.Request) {
	var req CreateEdgeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	weight := parser.DefaultWeight
	if req.Weight != nil {
		weight = *req.Weight
	}
	link, err := h.g.CreateEdge(r.Context(), req.From, req.Arrow, req.To, req.Context, weight)
	if err != nil {
		writeGraphError(w, "create edge", err)
		return
	}
	writeJSON(w, http.StatusCreated, EdgeResponse{From: req.From, Link: link})
}

// GetNode handles GET /api/nodes/{class}/{cptr}.
//
//	@Summary		Get a node with all seven link channels
//	@Tags			graph
//	@Produce		json
//	@Param			class	path		int	true	"Size class"
//	@Param			cptr	path		int	true	"Position within the class"
//	@Success		200		{object}	models.Node
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/nodes/{class}/{cptr} [get]
func (h *Handler) GetNode(w http.ResponseWriter, r *http.Request) {
	class, err1 := strconv.Atoi(chi.URLParam(r, "class"))
	cptr, err2 := strconv.Atoi(chi.URLParam(r, "cptr"))
	if err1 != nil || err2 != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("class and cptr must be integers"))
		return
	}
	n, err := h.g.FetchNode(r.Context(), models.NodePtr{Class: class, CPtr: cptr})
	if err != nil {
		writeGraphError(w, "get node", err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// FindNodes handles GET /api/nodes.
//
//	@Summary		Search nodes by text and chapter substring
//	@Tags			graph
//	@Produce		json
//	@Param			q		query		string	false	"Text substring"
//	@Param			chapter	query		string	false	"Chapter substring"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	NodeListResponse
//	@Security		BearerAuth
//	@Router			/nodes [get]
func (h *Handler) FindNodes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	nodes, err := h.g.FindNodes(r.Context(), q.Get("q"), q.Get("chapter"), limit)
	if err != nil {
		writeGraphError(w, "find nodes", err)
		return
	}
	if nodes == nil {
		nodes = []models.Node{}
	}
	writeJSON(w, http.StatusOK, NodeListResponse{Nodes: nodes})
}

// ForwardPaths handles GET /api/paths/forward.
//
//	@Summary		Walk links of one semantic type from a start node
//	@Tags			paths
//	@Produce		json
//	@Param			class	query		int	true	"Start node size class"
//	@Param			cptr	query		int	true	"Start node position"
//	@Param			sttype	query		int	true	"Semantic type, -3 to 3"
//	@Param			depth	query		int	true	"Max hops"
//	@Param			limit	query		int	false	"Max paths"
//	@Success		200		{object}	PathsResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/paths/forward [get]
func (h *Handler) ForwardPaths(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	class, err1 := strconv.Atoi(q.Get("class"))
	cptr, err2 := strconv.Atoi(q.Get("cptr"))
	st, err3 := strconv.Atoi(q.Get("sttype"))
	depth, err4 := strconv.Atoi(q.Get("depth"))
	if err := errors.Join(err1, err2, err3, err4); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("class, cptr, sttype and depth must be integers"))
		return
	}
	limit, _ := strconv.Atoi(q.Get("limit"))

	sttype := models.SemanticType(st)
	if !sttype.Valid() {
		writeJSON(w, http.StatusBadRequest, errorBody(apperr.ErrSTTypeOutOfRange.Error()))
		return
	}
	paths, err := h.g.PathsForward(r.Context(), models.NodePtr{Class: class, CPtr: cptr}, sttype, depth, limit)
	h.writePaths(r.Context(), w, "forward paths", paths, err)
}

// ConePaths handles POST /api/paths/cone.
//
//	@Summary		Walk the forward, backward or full cone from several start nodes
//	@Tags			paths
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ConeRequest	true	"Cone search"
//	@Success		200		{object}	PathsResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/paths/cone [post]
func (h *Handler) ConePaths(w http.ResponseWriter, r *http.Request) {
	var req ConeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	orient, err := models.ParseOrientation(req.Orientation)
	if err != nil {
		writeGraphError(w, "cone paths", err)
		return
	}
	paths, err := h.g.PathsCone(r.Context(), graph.ConeQuery{
		Orientation: orient,
		Start:       req.Start,
		Depth:       req.Depth,
		Chapter:     req.Chapter,
		Context:     req.Context,
		Arrows:      req.Arrows,
		Limit:       req.Limit,
	})
	h.writePaths(r.Context(), w, "cone paths", paths, err)
}

// writePaths renders a path result. A partially malformed result is still
// a 200: the decodable paths are returned and each bad line is a warning.
func (h *Handler) writePaths(ctx context.Context, w http.ResponseWriter, op string, paths []models.Path, err error) {
	var warnings []string
	if err != nil {
		if !errors.Is(err, apperr.ErrMalformedPath) {
			writeGraphError(w, op, err)
			return
		}
		warnings = syntaxErrors(err)
	}
	steps, err := h.g.Describe(ctx, paths)
	if err != nil {
		writeGraphError(w, op, err)
		return
	}
	resp := PathsResponse{Paths: make([]PathView, len(paths)), Warnings: warnings}
	for i, p := range paths {
		resp.Paths[i] = PathView{Encoded: codec.EncodeLinkArray(p), Steps: steps[i]}
	}
	writeJSON(w, http.StatusOK, resp)
}

// syntaxErrors collects the message of every codec.SyntaxError in err's tree.
func syntaxErrors(err error) []string {
	if se, ok := err.(*codec.SyntaxError); ok {
		return []string{se.Error()}
	}
	switch u := err.(type) {
	case interface{ Unwrap() []error }:
		var out []string
		for _, e := range u.Unwrap() {
			out = append(out, syntaxErrors(e)...)
		}
		return out
	case interface{ Unwrap() error }:
		return syntaxErrors(u.Unwrap())
	}
	return nil
}

// ListArrows handles GET /api/arrows.
//
//	@Summary		List the arrow directory
//	@Tags			graph
//	@Produce		json
//	@Success		200	{object}	ArrowListResponse
//	@Security		BearerAuth
//	@Router			/arrows [get]
func (h *Handler) ListArrows(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ArrowListResponse{Arrows: h.g.Arrows().All()})
}

// Stats handles GET /api/stats.
//
//	@Summary		Count nodes, links, arrows and contexts
//	@Tags			graph
//	@Produce		json
//	@Success		200	{object}	StatsResponse
//	@Security		BearerAuth
//	@Router			/stats [get]
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.g.Stats(r.Context())
	if err != nil {
		slog.Error("stats failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
