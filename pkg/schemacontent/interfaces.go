package schemacontent

import (
	"context"

	"github.com/google/uuid"
)

// ListContentParams filters a repository content listing.
type ListContentParams struct {
	BlueprintID uuid.UUID
	Status      *ContentStatus
	Limit       int
	Offset      int
}

// Repository defines the persistence port for blueprints, content
// documents, and the version ledger.
//
// CreateContent and UpdateContent accept an optional version snapshot and
// must persist the document write and the version append atomically, in
// one transaction. The repository owns version-number allocation: it
// assigns the next number from a per-document counter inside that same
// transaction, so concurrent updates each get a fresh number and the
// sequence stays dense. The snapshot's VersionNumber field is ignored on
// input and populated on return.
type Repository interface {
	// Blueprint operations
	CreateBlueprint(ctx context.Context, blueprint *Blueprint) error
	GetBlueprint(ctx context.Context, id uuid.UUID) (*Blueprint, error)
	UpdateBlueprint(ctx context.Context, blueprint *Blueprint) error
	// DeleteBlueprint fails with ErrBlueprintInUse while content documents
	// of the blueprint exist.
	DeleteBlueprint(ctx context.Context, id uuid.UUID) error
	ListBlueprints(ctx context.Context) ([]*Blueprint, error)

	// Content operations
	CreateContent(ctx context.Context, content *Content, snapshot *Version) (*Version, error)
	GetContent(ctx context.Context, id uuid.UUID) (*Content, error)
	GetContentBySlug(ctx context.Context, blueprintID uuid.UUID, slug string) (*Content, error)
	UpdateContent(ctx context.Context, content *Content, snapshot *Version) (*Version, error)
	// DeleteContent removes the document and its full version ledger. It
	// fails with ErrContentReferenced when another document holds a
	// non-cascading relation to it.
	DeleteContent(ctx context.Context, id uuid.UUID) error
	ListContent(ctx context.Context, params ListContentParams) ([]*Content, error)

	// Version ledger operations
	ListVersions(ctx context.Context, contentID uuid.UUID) ([]*Version, error)
	GetVersion(ctx context.Context, contentID, versionID uuid.UUID) (*Version, error)
}
