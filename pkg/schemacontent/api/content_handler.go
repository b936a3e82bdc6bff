package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/keelhq/schema-content/pkg/schemacontent"
)

// ContentHandler handles HTTP requests for content documents
type ContentHandler struct {
	service schemacontent.Service
}

// NewContentHandler creates a new content handler
func NewContentHandler(service schemacontent.Service) *ContentHandler {
	return &ContentHandler{service: service}
}

// Routes returns the routes for content
func (h *ContentHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.CreateContent)
	r.Get("/{id}", h.GetContent)
	r.Patch("/{id}", h.UpdateContent)
	r.Delete("/{id}", h.DeleteContent)

	r.Post("/{id}/publish", h.PublishContent)
	r.Post("/{id}/unpublish", h.UnpublishContent)
	r.Post("/{id}/archive", h.ArchiveContent)

	r.Get("/{id}/versions", h.ListVersions)
	r.Get("/{id}/versions/{versionId}", h.GetVersion)
	r.Post("/{id}/rollback/{versionId}", h.RollbackContent)

	return r
}

// BlueprintRoutes returns content routes scoped to a blueprint, for
// mounting under /blueprints/{id}/content.
func (h *ContentHandler) BlueprintRoutes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListContent)
	r.Get("/{slug}", h.GetContentBySlug)

	return r
}

// GetContentBySlug looks a document up by its slug within a blueprint
func (h *ContentHandler) GetContentBySlug(w http.ResponseWriter, r *http.Request) {
	blueprintID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid blueprint ID", http.StatusBadRequest)
		return
	}
	slug := chi.URLParam(r, "slug")

	content, err := h.service.GetContentBySlug(r.Context(), blueprintID, slug, actorFromRequest(r).Role)
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, content)
}

// CreateContentRequest is the request body for creating content
type CreateContentRequest struct {
	BlueprintID string                 `json:"blueprint_id"`
	Slug        string                 `json:"slug,omitempty"`
	Data        map[string]interface{} `json:"data"`
	Meta        map[string]interface{} `json:"meta,omitempty"`
	Publish     bool                   `json:"publish,omitempty"`
}

// UpdateContentRequest is the request body for patching content
type UpdateContentRequest struct {
	Data          map[string]interface{} `json:"data,omitempty"`
	Slug          *string                `json:"slug,omitempty"`
	Meta          map[string]interface{} `json:"meta,omitempty"`
	ChangeSummary string                 `json:"change_summary,omitempty"`
}

// CreateContent creates a new content document
func (h *ContentHandler) CreateContent(w http.ResponseWriter, r *http.Request) {
	var req CreateContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	blueprintID, err := uuid.Parse(req.BlueprintID)
	if err != nil {
		http.Error(w, "Invalid blueprint ID", http.StatusBadRequest)
		return
	}

	content, err := h.service.CreateContent(r.Context(), schemacontent.CreateContentRequest{
		BlueprintID: blueprintID,
		Slug:        req.Slug,
		Data:        req.Data,
		Meta:        req.Meta,
		Publish:     req.Publish,
		Actor:       actorFromRequest(r),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, content)
}

// GetContent returns a content document filtered for the acting role
func (h *ContentHandler) GetContent(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid content ID", http.StatusBadRequest)
		return
	}

	content, err := h.service.GetContent(r.Context(), id, actorFromRequest(r).Role)
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, content)
}

// UpdateContent applies a data patch to a content document
func (h *ContentHandler) UpdateContent(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid content ID", http.StatusBadRequest)
		return
	}

	var req UpdateContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	content, err := h.service.UpdateContent(r.Context(), schemacontent.UpdateContentRequest{
		ID:            id,
		Data:          req.Data,
		Slug:          req.Slug,
		Meta:          req.Meta,
		ChangeSummary: req.ChangeSummary,
		Actor:         actorFromRequest(r),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, content)
}

// DeleteContent removes a content document and its version history
func (h *ContentHandler) DeleteContent(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid content ID", http.StatusBadRequest)
		return
	}

	if err := h.service.DeleteContent(r.Context(), id, actorFromRequest(r)); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListContent returns content documents of a blueprint. Mounted under
// the blueprint routes.
func (h *ContentHandler) ListContent(w http.ResponseWriter, r *http.Request) {
	blueprintID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid blueprint ID", http.StatusBadRequest)
		return
	}

	req := schemacontent.ListContentRequest{
		BlueprintID: blueprintID,
		Actor:       actorFromRequest(r),
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := schemacontent.ContentStatus(raw)
		req.Status = &status
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil {
			req.Limit = limit
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if offset, err := strconv.Atoi(raw); err == nil {
			req.Offset = offset
		}
	}

	contents, err := h.service.ListContent(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, contents)
}

// status transitions

func (h *ContentHandler) PublishContent(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.PublishContent)
}

func (h *ContentHandler) UnpublishContent(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.UnpublishContent)
}

func (h *ContentHandler) ArchiveContent(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.ArchiveContent)
}

func (h *ContentHandler) transition(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id uuid.UUID, actor schemacontent.Actor) (*schemacontent.Content, error)) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid content ID", http.StatusBadRequest)
		return
	}

	content, err := op(r.Context(), id, actorFromRequest(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, content)
}

// ListVersions returns the full version ledger of a content document
func (h *ContentHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid content ID", http.StatusBadRequest)
		return
	}

	versions, err := h.service.ListVersions(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, versions)
}

// GetVersion returns a single version snapshot
func (h *ContentHandler) GetVersion(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid content ID", http.StatusBadRequest)
		return
	}
	versionID, err := uuid.Parse(chi.URLParam(r, "versionId"))
	if err != nil {
		http.Error(w, "Invalid version ID", http.StatusBadRequest)
		return
	}

	version, err := h.service.GetVersion(r.Context(), id, versionID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, version)
}

// RollbackContent restores a historical snapshot as a new version
func (h *ContentHandler) RollbackContent(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid content ID", http.StatusBadRequest)
		return
	}
	versionID, err := uuid.Parse(chi.URLParam(r, "versionId"))
	if err != nil {
		http.Error(w, "Invalid version ID", http.StatusBadRequest)
		return
	}

	content, err := h.service.RollbackContent(r.Context(), schemacontent.RollbackContentRequest{
		ID:        id,
		VersionID: versionID,
		Actor:     actorFromRequest(r),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, content)
}
