// Package api exposes the schemacontent service over HTTP. Routing and
// request parsing live here, outside the core; the acting role arrives
// in request headers, resolved upstream by the auth layer.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/keelhq/schema-content/pkg/schemacontent"
)

// Role headers set by the upstream auth layer.
const (
	HeaderRole            = "X-Role"
	HeaderRolePermissions = "X-Role-Permissions"
	HeaderUserID          = "X-User-Id"
)

// actorFromRequest builds the acting identity from request headers. An
// absent role header yields an anonymous role with no permission tags.
func actorFromRequest(r *http.Request) schemacontent.Actor {
	name := r.Header.Get(HeaderRole)
	if name == "" {
		name = "anonymous"
	}
	var perms []string
	if raw := r.Header.Get(HeaderRolePermissions); raw != "" {
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				perms = append(perms, p)
			}
		}
	}
	return schemacontent.Actor{
		UserID: r.Header.Get(HeaderUserID),
		Role:   schemacontent.NewRole(name, perms...),
	}
}

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Error      string                         `json:"error"`
	Violations []schemacontent.FieldViolation `json:"violations,omitempty"`
}

// writeError maps typed service errors to HTTP status codes.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *schemacontent.ValidationError
	if errors.As(err, &validationErr) {
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, ErrorResponse{Error: "validation failed", Violations: validationErr.Violations})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, schemacontent.ErrBlueprintNotFound),
		errors.Is(err, schemacontent.ErrContentNotFound),
		errors.Is(err, schemacontent.ErrVersionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, schemacontent.ErrSlugConflict),
		errors.Is(err, schemacontent.ErrInvalidStatusTransition),
		errors.Is(err, schemacontent.ErrBlueprintInUse),
		errors.Is(err, schemacontent.ErrContentReferenced):
		status = http.StatusConflict
	case errors.Is(err, schemacontent.ErrPermissionDenied):
		status = http.StatusForbidden
	}

	if status == http.StatusInternalServerError {
		slog.Error("request failed", "path", r.URL.Path, "error", err)
	}
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: err.Error()})
}

// BlueprintHandler handles HTTP requests for blueprints
type BlueprintHandler struct {
	service schemacontent.Service
}

// NewBlueprintHandler creates a new blueprint handler
func NewBlueprintHandler(service schemacontent.Service) *BlueprintHandler {
	return &BlueprintHandler{service: service}
}

// Routes returns the routes for blueprints
func (h *BlueprintHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.CreateBlueprint)
	r.Get("/", h.ListBlueprints)
	r.Get("/{id}", h.GetBlueprint)
	r.Put("/{id}", h.UpdateBlueprint)
	r.Delete("/{id}", h.DeleteBlueprint)

	return r
}

// BlueprintRequest is the request body for creating or updating a blueprint
type BlueprintRequest struct {
	Name     string                          `json:"name"`
	Fields   []schemacontent.FieldDefinition `json:"fields"`
	Settings schemacontent.BlueprintSettings `json:"settings"`
}

// CreateBlueprint creates a new blueprint
func (h *BlueprintHandler) CreateBlueprint(w http.ResponseWriter, r *http.Request) {
	var req BlueprintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	blueprint, err := h.service.CreateBlueprint(r.Context(), schemacontent.CreateBlueprintRequest{
		Name:     req.Name,
		Fields:   req.Fields,
		Settings: req.Settings,
		Actor:    actorFromRequest(r),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, blueprint)
}

// GetBlueprint returns a blueprint filtered for the acting role
func (h *BlueprintHandler) GetBlueprint(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid blueprint ID", http.StatusBadRequest)
		return
	}

	blueprint, err := h.service.GetBlueprint(r.Context(), id, actorFromRequest(r).Role)
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, blueprint)
}

// UpdateBlueprint replaces a blueprint's field list and settings
func (h *BlueprintHandler) UpdateBlueprint(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid blueprint ID", http.StatusBadRequest)
		return
	}

	var req BlueprintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	blueprint, err := h.service.UpdateBlueprint(r.Context(), schemacontent.UpdateBlueprintRequest{
		ID:       id,
		Name:     req.Name,
		Fields:   req.Fields,
		Settings: req.Settings,
		Actor:    actorFromRequest(r),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, blueprint)
}

// DeleteBlueprint deletes a blueprint with no remaining content
func (h *BlueprintHandler) DeleteBlueprint(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid blueprint ID", http.StatusBadRequest)
		return
	}

	if err := h.service.DeleteBlueprint(r.Context(), id, actorFromRequest(r)); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListBlueprints returns all blueprints filtered for the acting role
func (h *BlueprintHandler) ListBlueprints(w http.ResponseWriter, r *http.Request) {
	blueprints, err := h.service.ListBlueprints(r.Context(), actorFromRequest(r).Role)
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, blueprints)
}
