package schemacontent

import (
	"time"

	"github.com/google/uuid"
)

// ContentStatus is the domain type for content lifecycle states.
type ContentStatus string

// Content status constants (typed).
const (
	ContentStatusDraft     ContentStatus = "draft"
	ContentStatusPublished ContentStatus = "published"
	ContentStatusArchived  ContentStatus = "archived"
)

// FieldType is the domain type for blueprint field types.
type FieldType string

// Field type constants (typed).
const (
	FieldTypeText     FieldType = "text"
	FieldTypeRichText FieldType = "richtext"
	FieldTypeNumber   FieldType = "number"
	FieldTypeBoolean  FieldType = "boolean"
	FieldTypeDate     FieldType = "date"
	FieldTypeSelect   FieldType = "select"
	FieldTypeJSON     FieldType = "json"
	FieldTypeRelation FieldType = "relation"
)

// APITier controls how a blueprint's content is exposed through the API layer.
type APITier string

// API access tier constants (typed).
const (
	APITierPublic  APITier = "public"
	APITierPrivate APITier = "private"
	APITierHidden  APITier = "hidden"
)

// FieldValidation holds optional per-field validation rules. Nil pointers
// mean the rule is not set.
type FieldValidation struct {
	MinLength *int     `json:"min_length,omitempty"`
	MaxLength *int     `json:"max_length,omitempty"`
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	Pattern   string   `json:"pattern,omitempty"`
	Options   []string `json:"options,omitempty"`
}

// FieldDefinition describes one field of a blueprint.
//
// ViewPermission and EditPermission are capability tags. An empty
// ViewPermission means the field is visible to every role. An empty
// EditPermission falls back to ViewPermission; if both are empty the field
// is editable by every role that can view it.
type FieldDefinition struct {
	Name           string                 `json:"name"`
	Key            string                 `json:"key"`
	Type           FieldType              `json:"type"`
	Required       bool                   `json:"required"`
	Validation     *FieldValidation       `json:"validation,omitempty"`
	ViewPermission string                 `json:"view_permission,omitempty"`
	EditPermission string                 `json:"edit_permission,omitempty"`
	UI             map[string]interface{} `json:"ui,omitempty"`
}

// BlueprintSettings holds per-blueprint behavior switches.
type BlueprintSettings struct {
	// DraftMode forces new content through the draft state; immediate
	// publish on create is rejected while it is enabled.
	DraftMode bool `json:"draft_mode"`
	// Versioning enables the version ledger for this blueprint's content.
	Versioning bool    `json:"versioning"`
	APITier    APITier `json:"api_tier,omitempty"`
}

// Blueprint is a named content schema: an ordered field list plus settings.
// Field keys are unique within a blueprint.
type Blueprint struct {
	ID        uuid.UUID         `json:"id"`
	Name      string            `json:"name"`
	Fields    []FieldDefinition `json:"fields"`
	Settings  BlueprintSettings `json:"settings"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// FieldByKey returns the field definition with the given key.
func (b *Blueprint) FieldByKey(key string) (FieldDefinition, bool) {
	for _, f := range b.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return FieldDefinition{}, false
}

// Content is one instance of a blueprint. Data maps field keys to values;
// its keys are always a subset of the owning blueprint's field keys. Slug
// is unique within the owning blueprint.
type Content struct {
	ID          uuid.UUID              `json:"id"`
	BlueprintID uuid.UUID              `json:"blueprint_id"`
	Slug        string                 `json:"slug"`
	Data        map[string]interface{} `json:"data"`
	Status      ContentStatus          `json:"status"`
	Meta        map[string]interface{} `json:"meta,omitempty"`
	CreatedBy   string                 `json:"created_by,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// Version is an immutable snapshot of a content document's data. Version
// numbers per content document form a dense ascending sequence starting
// at 1; the persistence layer allocates them.
type Version struct {
	ID            uuid.UUID              `json:"id"`
	ContentID     uuid.UUID              `json:"content_id"`
	BlueprintID   uuid.UUID              `json:"blueprint_id"`
	Data          map[string]interface{} `json:"data"`
	VersionNumber int                    `json:"version_number"`
	CreatedBy     string                 `json:"created_by,omitempty"`
	ChangeSummary string                 `json:"change_summary,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
}

// AdminRoleName is the role name that implicitly satisfies every
// permission tag.
const AdminRoleName = "admin"

// Role is the acting identity for permission checks: an opaque name plus
// the set of permission tags it satisfies. The tag set is resolved by an
// external auth collaborator; this package only consumes it.
type Role struct {
	name        string
	permissions map[string]bool
}

// NewRole constructs a role with the given permission tags.
func NewRole(name string, permissions ...string) Role {
	set := make(map[string]bool, len(permissions))
	for _, p := range permissions {
		set[p] = true
	}
	return Role{name: name, permissions: set}
}

// AdminRole returns the built-in administrator role.
func AdminRole() Role {
	return NewRole(AdminRoleName)
}

// Name returns the role's name.
func (r Role) Name() string { return r.name }

// IsAdmin reports whether the role implicitly satisfies every permission tag.
func (r Role) IsAdmin() bool { return r.name == AdminRoleName }

// Has reports whether the role satisfies the given permission tag.
func (r Role) Has(tag string) bool {
	if r.IsAdmin() {
		return true
	}
	return r.permissions[tag]
}

// Permissions returns the role's permission tags in unspecified order.
func (r Role) Permissions() []string {
	tags := make([]string, 0, len(r.permissions))
	for tag := range r.permissions {
		tags = append(tags, tag)
	}
	return tags
}

// Actor identifies who is performing a service operation.
type Actor struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"-"`
}

// copyData returns a shallow copy of a data map. Values are shared; only
// the top-level map is duplicated, matching the per-key merge granularity
// used everywhere in this package.
func copyData(data map[string]interface{}) map[string]interface{} {
	if data == nil {
		return nil
	}
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}
