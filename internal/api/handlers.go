// internal/api/handlers.go
package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"contexter/internal/container"
	"contexter/internal/diff"
	"contexter/internal/errors"
	"contexter/internal/logging"
	"contexter/internal/patch"
	"contexter/internal/safe"
	"contexter/internal/validation"
	"contexter/shared/types"
)

// maxBodySize bounds request bodies; containers are whole projects
const maxBodySize = 64 << 20

type Handler struct {
	safe    *safe.Safe
	applier *patch.Applier
	logger  *logging.Logger
}

func NewHandler(s *safe.Safe, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Handler{
		safe:    s,
		applier: patch.NewApplier(logger.Logger),
		logger:  logger,
	}
}

// Register adds every route to mux
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /api/containers", h.ListContainers)
	mux.HandleFunc("POST /api/containers", h.StoreContainer)
	mux.HandleFunc("GET /api/containers/{id}", h.GetContainer)
	mux.HandleFunc("DELETE /api/containers/{id}", h.DeleteContainer)
	mux.HandleFunc("POST /api/containers/{id}/patches", h.ApplyPatch)
	mux.HandleFunc("POST /api/sanitize", h.Sanitize)
	mux.HandleFunc("POST /api/diff", h.Diff)
	mux.HandleFunc("POST /api/convert", h.Convert)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.HealthResponse{Status: "healthy"})
}

func (h *Handler) StoreContainer(w http.ResponseWriter, r *http.Request) {
	var req types.StoreContainerRequest
	if !h.decode(w, r, &req) {
		return
	}
	format, err := parseFormat(req.Format, container.FormatMarkdown)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	doc, err := container.DecodeString(container.ForFormat(format), req.Content)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	entry, err := h.safe.Put(doc, format, "")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.logger.WithRequestID(r.Context()).Info("Container stored",
		zap.String("id", entry.ID), zap.Int("files", entry.Files))
	writeJSON(w, http.StatusCreated, containerBody(entry, ""))
}

// GetContainer renders the stored container in its original format, or in
// the one named by ?format=
func (h *Handler) GetContainer(w http.ResponseWriter, r *http.Request) {
	doc, entry, err := h.safe.Get(r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	format, err := parseFormat(r.URL.Query().Get("format"), entry.Format)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	content, err := container.EncodeString(container.ForFormat(format), doc)
	if err != nil {
		h.writeError(w, r, errors.Internal("encoding container", err))
		return
	}
	body := containerBody(entry, content)
	body.Format = string(format)
	writeJSON(w, http.StatusOK, body)
}

func (h *Handler) ListContainers(w http.ResponseWriter, r *http.Request) {
	entries, err := h.safe.List()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]types.Container, 0, len(entries))
	for _, e := range entries {
		out = append(out, containerBody(e, ""))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) DeleteContainer(w http.ResponseWriter, r *http.Request) {
	if err := h.safe.Delete(r.PathValue("id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ApplyPatch stores the result of patching a container as a new container
// whose parent is the original
func (h *Handler) ApplyPatch(w http.ResponseWriter, r *http.Request) {
	var req types.ApplyPatchRequest
	if !h.decode(w, r, &req) {
		return
	}
	format, err := parseFormat(req.Format, container.FormatMarkdown)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ps, err := patch.DecodeString(patch.ForFormat(format), req.Patch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	id := r.PathValue("id")
	doc, entry, err := h.safe.Get(id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	updated, report, err := h.applier.Apply(doc.Snapshot, ps)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	doc.Snapshot = updated

	next, err := h.safe.Put(doc, entry.Format, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.logger.WithRequestID(r.Context()).Info("Patch applied",
		zap.String("from", id), zap.String("to", next.ID), zap.Int("files", report.Total()))
	writeJSON(w, http.StatusCreated, types.ApplyPatchResponse{
		Container: containerBody(next, ""),
		Created:   nonNil(report.Created),
		Modified:  nonNil(report.Modified),
		Deleted:   nonNil(report.Deleted),
		Skipped:   nonNil(report.Skipped),
	})
}

func containerBody(e *safe.Entry, content string) types.Container {
	return types.Container{
		ID:        e.ID,
		Format:    string(e.Format),
		Parent:    e.Parent,
		Files:     e.Files,
		Binaries:  e.Binaries,
		Trees:     e.Trees,
		Size:      e.Size,
		CreatedAt: e.CreatedAt,
		Content:   content,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func parseFormat(s string, fallback container.Format) (container.Format, error) {
	if s == "" {
		return fallback, nil
	}
	f, err := container.ParseFormat(s)
	if err != nil {
		return "", errors.ValidationError(err.Error(), map[string]string{"format": s})
	}
	return f, nil
}

func newEngine(context *int) *diff.Engine {
	if context == nil {
		return diff.NewEngine(diff.DefaultContext)
	}
	return diff.NewEngine(*context)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := validation.DecodeRequest(w, r, v, maxBodySize); err != nil {
		h.writeError(w, r, err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps typed errors to their status; anything else is a 500
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	e, ok := errors.As(err)
	if !ok {
		e = errors.Internal("internal error", err)
	}
	logger := h.logger.WithRequestID(r.Context())
	if e.Code >= http.StatusInternalServerError {
		logger.Error("Request failed", zap.Error(err))
	} else {
		logger.Debug("Request rejected", zap.String("type", string(e.Type)), zap.Error(err))
	}

	body := types.ErrorResponse{Type: string(e.Type), Message: e.Error(), Details: e.Details}
	if e.Code >= http.StatusInternalServerError {
		body.Message = e.Message
	}
	writeJSON(w, e.Code, body)
}
