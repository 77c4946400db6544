package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/spacetime/internal/ingest"
	"github.com/starford/spacetime/internal/storage"
)

// ImportHandler lists and accepts YAML import files.
type ImportHandler struct {
	g      ingest.Graph
	files  storage.Provider
	ledger ingest.Ledger
}

// NewImportHandler creates a handler that writes to files and applies each
// write through g, recording it in ledger.
func NewImportHandler(g ingest.Graph, files storage.Provider, ledger ingest.Ledger) *ImportHandler {
	return &ImportHandler{g: g, files: files, ledger: ledger}
}

// importPath extracts the file path from the URL (everything after /api/imports/).
func importPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// List handles GET /api/imports.
//
//	@Summary		List import files
//	@Tags			imports
//	@Produce		json
//	@Success		200	{object}	ImportListResponse
//	@Security		BearerAuth
//	@Router			/imports [get]
func (h *ImportHandler) List(w http.ResponseWriter, r *http.Request) {
	files, err := h.files.List("")
	if err != nil {
		slog.Error("list imports failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if files == nil {
		files = []storage.FileInfo{}
	}
	writeJSON(w, http.StatusOK, ImportListResponse{Files: files})
}

// Put handles PUT /api/imports/*.
//
//	@Summary		Write a YAML import file and apply it to the graph
//	@Tags			imports
//	@Accept			application/yaml
//	@Produce		json
//	@Param			path	path		string	true	"Import file path"
//	@Success		200		{object}	ImportResponse
//	@Failure		400		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/imports/{path} [put]
func (h *ImportHandler) Put(w http.ResponseWriter, r *http.Request) {
	path := importPath(r)
	if !storage.Importable(path) {
		writeJSON(w, http.StatusBadRequest, errorBody("path must name a .yaml or .yml file"))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}

	if err := h.files.Write(path, data); err != nil {
		if errors.Is(err, storage.ErrInvalidPath) {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
			return
		}
		slog.Error("write import failed", slog.String("path", path), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}

	applied, err := ingest.ImportFile(r.Context(), h.g, h.ledger, h.files, path)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, ImportResponse{Path: path, Applied: applied})
}
