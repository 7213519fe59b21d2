package api

import (
	"net/http"

	"contexter/internal/container"
	"contexter/internal/patch"
	"contexter/internal/sanitize"
	"contexter/shared/types"
)

// Sanitize repairs a text container without storing it
func (h *Handler) Sanitize(w http.ResponseWriter, r *http.Request) {
	var req types.SanitizeRequest
	if !h.decode(w, r, &req) {
		return
	}
	out, report := sanitize.Sanitize(req.Content)
	writeJSON(w, http.StatusOK, types.SanitizeResponse{
		Content:         out,
		Changed:         report.Changed(),
		OpenedFences:    report.OpenedFences,
		ClosedFences:    report.ClosedFences,
		ClosedAtEOF:     report.ClosedAtEOF,
		HeadersObserved: report.HeadersObserved,
	})
}

func (h *Handler) Diff(w http.ResponseWriter, r *http.Request) {
	var req types.DiffRequest
	if !h.decode(w, r, &req) {
		return
	}
	format, err := parseFormat(req.Format, container.FormatMarkdown)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	patchFormat, err := parseFormat(req.PatchFormat, container.FormatMarkdown)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	engine := newEngine(req.Context)

	codec := container.ForFormat(format)
	oldDoc, err := container.DecodeString(codec, req.Old)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	newDoc, err := container.DecodeString(codec, req.New)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	ps := engine.Snapshots(oldDoc.Snapshot, newDoc.Snapshot)
	text, err := patch.EncodeString(patch.ForFormat(patchFormat), ps)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	stats := ps.Stats()
	writeJSON(w, http.StatusOK, types.DiffResponse{
		Patch:     text,
		Files:     ps.Len(),
		Additions: stats.Additions,
		Deletions: stats.Deletions,
	})
}

func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	var req types.ConvertRequest
	if !h.decode(w, r, &req) {
		return
	}
	from, err := parseFormat(req.From, container.FormatMarkdown)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	to, err := parseFormat(req.To, container.FormatHTML)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	doc, err := container.DecodeString(container.ForFormat(from), req.Content)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out, err := container.EncodeString(container.ForFormat(to), doc)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.ConvertResponse{Format: string(to), Content: out})
}
