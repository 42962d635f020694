package web

import (
	"database/sql"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hpungsan/chattoc/internal/dom"
	"github.com/hpungsan/chattoc/internal/errors"
	"github.com/hpungsan/chattoc/internal/ops"
	"github.com/hpungsan/chattoc/internal/panel"
	"github.com/hpungsan/chattoc/internal/toc"
)

// Handlers contains HTTP route handlers for the panel UI.
type Handlers struct {
	engine   *toc.Engine[*dom.Node]
	doc      *dom.Document
	panel    *panel.Live[*dom.Node]
	db       *sql.DB
	page     string
	log      *zap.Logger
	renderer *Renderer
}

// HandleHealth handles GET /health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandlePanel handles GET /: the panel with an optional ?q= filter.
func (h *Handlers) HandlePanel(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	state := h.panel.State()
	visible := state.Filter(query)

	h.renderer.renderPage(w, r, "panel", PanelPageData{
		PageData: PageData{
			Title:   "Table of contents",
			Version: h.renderer.version,
			Page:    h.page,
		},
		State:    state,
		Query:    query,
		Visible:  visible,
		Empty:    len(visible) == 0,
		EmptyMsg: toc.EmptyMessage,
	})
}

// HandleSection handles GET /sections/{anchor}: one message rendered as markdown.
func (h *Handlers) HandleSection(w http.ResponseWriter, r *http.Request) {
	anchor := chi.URLParam(r, "anchor")

	item, ok := h.panel.Item(anchor)
	if !ok {
		h.renderer.renderError(w, r, errors.NewNotFound(anchor))
		return
	}
	node, ok := h.doc.Lookup(anchor)
	if !ok {
		h.renderer.renderError(w, r, errors.NewNotFound(anchor))
		return
	}

	state := h.panel.State()
	h.renderer.renderPage(w, r, "section", SectionPageData{
		PageData: PageData{
			Title:   fmt.Sprintf("#%d %s", item.Position, item.Title),
			Version: h.renderer.version,
			Page:    h.page,
		},
		Item:         item,
		RenderedHTML: renderMarkdown(h.doc.TextOf(node)),
		Active:       state.Active == anchor,
	})
}

// HandleActivate handles POST /activate/{anchor}: click-to-scroll.
// A stale anchor is not an error; the response reports activated=false.
func (h *Handlers) HandleActivate(w http.ResponseWriter, r *http.Request) {
	anchor := chi.URLParam(r, "anchor")
	ok := h.engine.Activate(anchor)
	renderJSON(w, http.StatusOK, map[string]any{
		"anchor":    anchor,
		"activated": ok,
	})
}

// HandleToggle handles POST /toggle.
func (h *Handlers) HandleToggle(w http.ResponseWriter, r *http.Request) {
	h.engine.Toggle()
	renderJSON(w, http.StatusOK, map[string]any{"open": h.engine.IsOpen()})
}

// HandleTOC handles GET /api/toc: the panel state as JSON, filtered by ?q=.
func (h *Handlers) HandleTOC(w http.ResponseWriter, r *http.Request) {
	state := h.panel.State()
	state.Items = state.Filter(r.URL.Query().Get("q"))
	if state.Items == nil {
		state.Items = []panel.Item{}
	}
	renderJSON(w, http.StatusOK, map[string]any{
		"page":     h.page,
		"sections": state.Items,
		"active":   state.Active,
		"open":     state.Open,
		"options":  state.Options,
		"revision": state.Revision,
	})
}

// HandleExport handles GET /api/export: the flattened index as plain text.
// ?download=1 adds an attachment filename.
func (h *Handlers) HandleExport(w http.ResponseWriter, r *http.Request) {
	text, err := h.engine.Export()
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if parseBoolParam(r, "download") {
		name := filepath.Base(ops.DefaultExportPath("", h.page, time.Now()))
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(text + "\n"))
}

// HandleTheme handles GET /theme.css, generated from the options in effect.
func (h *Handlers) HandleTheme(w http.ResponseWriter, r *http.Request) {
	opts := h.panel.State().Options
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	fmt.Fprintf(w, ":root { --highlight: %s; }\n", opts.HighlightColor)
}

// HandlePages handles GET /api/pages: pages in the snapshot cache.
func (h *Handlers) HandlePages(w http.ResponseWriter, r *http.Request) {
	result, err := ops.List(r.Context(), h.db, ops.ListInput{
		Limit:  parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset: parseIntParam(r, "offset", 0),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// HandleSearch handles GET /api/search: title search across cached pages.
func (h *Handlers) HandleSearch(w http.ResponseWriter, r *http.Request) {
	result, err := ops.Search(r.Context(), h.db, ops.SearchInput{
		Query:  r.URL.Query().Get("q"),
		Page:   r.URL.Query().Get("page"),
		Limit:  parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset: parseIntParam(r, "offset", 0),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

// parseBoolParam parses a boolean query parameter.
func parseBoolParam(r *http.Request, name string) bool {
	s := r.URL.Query().Get(name)
	return s == "true" || s == "1"
}
