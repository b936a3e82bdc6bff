package schemacontent

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Error types
var (
	// ErrBlueprintNotFound indicates a blueprint was not found
	ErrBlueprintNotFound = errors.New("blueprint not found")

	// ErrContentNotFound indicates a content document was not found
	ErrContentNotFound = errors.New("content not found")

	// ErrVersionNotFound indicates a version was not found for a content document
	ErrVersionNotFound = errors.New("version not found")

	// ErrSlugConflict indicates a slug is already taken within a blueprint
	ErrSlugConflict = errors.New("slug already in use for blueprint")

	// ErrInvalidStatusTransition indicates an illegal content status transition
	ErrInvalidStatusTransition = errors.New("invalid status transition")

	// ErrPermissionDenied indicates the acting role may not write a restricted field
	ErrPermissionDenied = errors.New("permission denied")

	// ErrBlueprintInUse indicates a blueprint still has content documents
	ErrBlueprintInUse = errors.New("blueprint has existing content")

	// ErrContentReferenced indicates content is held by a non-cascading relation
	ErrContentReferenced = errors.New("content is referenced by other documents")

	// ErrVersioningDisabled indicates the blueprint has versioning turned off
	ErrVersioningDisabled = errors.New("versioning disabled for blueprint")
)

// FieldViolation describes a single field-rule violation found during
// validation.
type FieldViolation struct {
	Key     string `json:"key"`
	Message string `json:"message"`
}

// ValidationError reports all field-rule violations for one write. The
// service collects every violation before failing, never just the first.
type ValidationError struct {
	BlueprintID uuid.UUID
	Violations  []FieldViolation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = fmt.Sprintf("%s: %s", v.Key, v.Message)
	}
	return fmt.Sprintf("validation failed for blueprint %s: %s", e.BlueprintID, strings.Join(msgs, "; "))
}

// PermissionError reports which restricted fields appeared in a write patch.
type PermissionError struct {
	Role   string
	Fields []string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("role %q may not edit fields: %s", e.Role, strings.Join(e.Fields, ", "))
}

func (e *PermissionError) Unwrap() error {
	return ErrPermissionDenied
}

// ContentError represents an error related to content operations
type ContentError struct {
	ContentID uuid.UUID
	Op        string
	Err       error
}

func (e *ContentError) Error() string {
	return fmt.Sprintf("content operation %s failed for content %s: %v", e.Op, e.ContentID, e.Err)
}

func (e *ContentError) Unwrap() error {
	return e.Err
}

// BlueprintError represents an error related to blueprint operations
type BlueprintError struct {
	BlueprintID uuid.UUID
	Op          string
	Err         error
}

func (e *BlueprintError) Error() string {
	return fmt.Sprintf("blueprint operation %s failed for blueprint %s: %v", e.Op, e.BlueprintID, e.Err)
}

func (e *BlueprintError) Unwrap() error {
	return e.Err
}

// HookExecutionError wraps a hook or filter handler failure. It never
// escapes Dispatch/ApplyFilters; it only appears in result error lists.
type HookExecutionError struct {
	Event     string
	HandlerID string
	Err       error
}

func (e *HookExecutionError) Error() string {
	return fmt.Sprintf("handler %s failed for event %s: %v", e.HandlerID, e.Event, e.Err)
}

func (e *HookExecutionError) Unwrap() error {
	return e.Err
}

// HandlerValidationError reports a malformed handler rejected at
// registration time. A rejected handler never enters the dispatch path.
type HandlerValidationError struct {
	Event     string
	HandlerID string
	Reason    string
}

func (e *HandlerValidationError) Error() string {
	return fmt.Sprintf("invalid handler %q for event %q: %s", e.HandlerID, e.Event, e.Reason)
}
