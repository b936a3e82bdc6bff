package schemacontent

import "github.com/google/uuid"

// Request DTOs

// CreateBlueprintRequest contains parameters for creating a blueprint.
type CreateBlueprintRequest struct {
	Name     string
	Fields   []FieldDefinition
	Settings BlueprintSettings
	Actor    Actor
}

// UpdateBlueprintRequest contains parameters for updating a blueprint's
// field list and settings. Blueprint identity is immutable.
type UpdateBlueprintRequest struct {
	ID       uuid.UUID
	Name     string
	Fields   []FieldDefinition
	Settings BlueprintSettings
	Actor    Actor
}

// CreateContentRequest contains parameters for creating a content
// document. Slug, when empty, is derived from the first text field value
// present in Data. Publish requests immediate publication, honored only
// when the blueprint's draft mode is disabled.
type CreateContentRequest struct {
	BlueprintID uuid.UUID
	Slug        string
	Data        map[string]interface{}
	Meta        map[string]interface{}
	Publish     bool
	Actor       Actor
}

// UpdateContentRequest contains parameters for updating a content
// document. Data is a patch merged shallowly over the existing data:
// keys present overwrite per key, omitted keys are retained. A non-nil
// Slug changes the document's slug.
type UpdateContentRequest struct {
	ID            uuid.UUID
	Data          map[string]interface{}
	Slug          *string
	Meta          map[string]interface{}
	ChangeSummary string
	Actor         Actor
}

// RollbackContentRequest contains parameters for rolling content back to
// a historical version. The rollback appends a new version; history is
// never rewritten.
type RollbackContentRequest struct {
	ID        uuid.UUID
	VersionID uuid.UUID
	Actor     Actor
}

// ListContentRequest contains parameters for listing content documents
// of a blueprint.
type ListContentRequest struct {
	BlueprintID uuid.UUID
	Status      *ContentStatus
	Limit       int
	Offset      int
	Actor       Actor
}
