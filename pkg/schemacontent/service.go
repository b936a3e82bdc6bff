package schemacontent

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the main interface for the schema-content library.
//
// Content-returning operations apply field permission filtering for the
// acting role before returning, so restricted field values never leave
// the service. Lifecycle events are dispatched through the hook bus;
// handler failures are recorded and logged but never abort the host
// operation.
type Service interface {
	// Blueprint operations
	CreateBlueprint(ctx context.Context, req CreateBlueprintRequest) (*Blueprint, error)
	GetBlueprint(ctx context.Context, id uuid.UUID, role Role) (*Blueprint, error)
	UpdateBlueprint(ctx context.Context, req UpdateBlueprintRequest) (*Blueprint, error)
	DeleteBlueprint(ctx context.Context, id uuid.UUID, actor Actor) error
	ListBlueprints(ctx context.Context, role Role) ([]*Blueprint, error)

	// Content operations
	CreateContent(ctx context.Context, req CreateContentRequest) (*Content, error)
	GetContent(ctx context.Context, id uuid.UUID, role Role) (*Content, error)
	GetContentBySlug(ctx context.Context, blueprintID uuid.UUID, slug string, role Role) (*Content, error)
	UpdateContent(ctx context.Context, req UpdateContentRequest) (*Content, error)
	ListContent(ctx context.Context, req ListContentRequest) ([]*Content, error)
	DeleteContent(ctx context.Context, id uuid.UUID, actor Actor) error

	// Status transitions
	PublishContent(ctx context.Context, id uuid.UUID, actor Actor) (*Content, error)
	UnpublishContent(ctx context.Context, id uuid.UUID, actor Actor) (*Content, error)
	ArchiveContent(ctx context.Context, id uuid.UUID, actor Actor) (*Content, error)

	// Version ledger operations
	ListVersions(ctx context.Context, contentID uuid.UUID) ([]*Version, error)
	GetVersion(ctx context.Context, contentID, versionID uuid.UUID) (*Version, error)
	RollbackContent(ctx context.Context, req RollbackContentRequest) (*Content, error)

	// Hooks exposes the bus so collaborators can register lifecycle
	// handlers.
	Hooks() *HookBus
}
