package schemacontent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/keelhq/schema-content/pkg/schemacontent/cache"
)

const (
	defaultCacheSize = 256
	defaultCacheTTL  = 5 * time.Minute
)

// viewKey identifies a permission-filtered blueprint view. The permission
// fingerprint is part of the key so a role whose tag set changed does not
// see a stale view past the cache TTL.
type viewKey struct {
	blueprintID uuid.UUID
	role        string
}

// service implements the Service interface
type service struct {
	repository Repository
	bus        *HookBus
	logger     *slog.Logger

	cacheSize int
	cacheTTL  time.Duration

	// blueprints memoizes raw blueprint lookups; views memoizes
	// permission-filtered blueprint views per role. Blueprint mutations
	// invalidate both.
	blueprints *cache.Cache[uuid.UUID, *Blueprint]
	views      *cache.Cache[viewKey, *Blueprint]
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithHookBus sets the lifecycle hook bus. Without it the service
// constructs its own empty bus.
func WithHookBus(bus *HookBus) Option {
	return func(s *service) {
		s.bus = bus
	}
}

// WithLogger sets the structured logger used for hook failure reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// WithCacheSize sets the capacity of the blueprint and view caches.
func WithCacheSize(size int) Option {
	return func(s *service) {
		s.cacheSize = size
	}
}

// WithCacheTTL sets the expiry for cached blueprints and views.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *service) {
		s.cacheTTL = ttl
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		cacheSize: defaultCacheSize,
		cacheTTL:  defaultCacheTTL,
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.bus == nil {
		s.bus = NewHookBus()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	var err error
	s.blueprints, err = cache.New[uuid.UUID, *Blueprint](s.cacheSize,
		cache.WithDefaultTTL[uuid.UUID, *Blueprint](s.cacheTTL))
	if err != nil {
		return nil, fmt.Errorf("blueprint cache: %w", err)
	}
	s.views, err = cache.New[viewKey, *Blueprint](s.cacheSize,
		cache.WithDefaultTTL[viewKey, *Blueprint](s.cacheTTL))
	if err != nil {
		return nil, fmt.Errorf("view cache: %w", err)
	}

	return s, nil
}

// Hooks exposes the lifecycle hook bus.
func (s *service) Hooks() *HookBus {
	return s.bus
}

// dispatch runs a lifecycle event and logs handler failures. Failures are
// non-fatal to the host operation.
func (s *service) dispatch(ctx context.Context, event string, payload *EventPayload) {
	result := s.bus.Dispatch(ctx, event, payload)
	for _, hookErr := range result.Errors {
		s.logger.Warn("lifecycle hook failed",
			"event", hookErr.Event,
			"handler", hookErr.HandlerID,
			"error", hookErr.Err)
	}
}

// blueprint resolves a blueprint by ID, cache-checked.
func (s *service) blueprint(ctx context.Context, id uuid.UUID) (*Blueprint, error) {
	if bp, ok := s.blueprints.Get(id); ok {
		return bp, nil
	}
	bp, err := s.repository.GetBlueprint(ctx, id)
	if err != nil {
		return nil, err
	}
	s.blueprints.Set(id, bp)
	return bp, nil
}

func (s *service) invalidateBlueprint(id uuid.UUID) {
	s.blueprints.Delete(id)
	// View keys embed the role fingerprint, so they cannot be removed by
	// blueprint ID alone. Dropping all views on a blueprint mutation is
	// acceptable: mutations are rare next to reads.
	s.views.Clear()
}

func roleFingerprint(role Role) string {
	perms := role.Permissions()
	sort.Strings(perms)
	return role.Name() + "|" + strings.Join(perms, ",")
}

// filteredView returns the permission-filtered view of a blueprint for a
// role, memoized. A defensive copy is returned so callers can never
// mutate the cached view.
func (s *service) filteredView(ctx context.Context, id uuid.UUID, role Role) (*Blueprint, error) {
	key := viewKey{blueprintID: id, role: roleFingerprint(role)}
	if view, ok := s.views.Get(key); ok {
		return cloneBlueprint(view), nil
	}

	bp, err := s.blueprint(ctx, id)
	if err != nil {
		return nil, err
	}
	view := FilterBlueprint(bp, role)
	s.views.Set(key, view)
	return cloneBlueprint(view), nil
}

func cloneBlueprint(bp *Blueprint) *Blueprint {
	clone := *bp
	clone.Fields = append([]FieldDefinition(nil), bp.Fields...)
	return &clone
}

// Blueprint operations

func (s *service) CreateBlueprint(ctx context.Context, req CreateBlueprintRequest) (*Blueprint, error) {
	now := time.Now().UTC()
	blueprint := &Blueprint{
		ID:        uuid.New(),
		Name:      req.Name,
		Fields:    append([]FieldDefinition(nil), req.Fields...),
		Settings:  req.Settings,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if violations := validateBlueprint(blueprint); len(violations) > 0 {
		return nil, &ValidationError{BlueprintID: blueprint.ID, Violations: violations}
	}

	if err := s.repository.CreateBlueprint(ctx, blueprint); err != nil {
		return nil, &BlueprintError{BlueprintID: blueprint.ID, Op: "create", Err: err}
	}
	s.blueprints.Set(blueprint.ID, blueprint)

	s.dispatch(ctx, EventBlueprintAfterCreate, &EventPayload{Blueprint: blueprint, Actor: req.Actor})

	return FilterBlueprint(blueprint, req.Actor.Role), nil
}

func (s *service) GetBlueprint(ctx context.Context, id uuid.UUID, role Role) (*Blueprint, error) {
	return s.filteredView(ctx, id, role)
}

func (s *service) UpdateBlueprint(ctx context.Context, req UpdateBlueprintRequest) (*Blueprint, error) {
	blueprint, err := s.repository.GetBlueprint(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	blueprint.Name = req.Name
	blueprint.Fields = append([]FieldDefinition(nil), req.Fields...)
	blueprint.Settings = req.Settings
	blueprint.UpdatedAt = time.Now().UTC()

	if violations := validateBlueprint(blueprint); len(violations) > 0 {
		return nil, &ValidationError{BlueprintID: blueprint.ID, Violations: violations}
	}

	if err := s.repository.UpdateBlueprint(ctx, blueprint); err != nil {
		return nil, &BlueprintError{BlueprintID: blueprint.ID, Op: "update", Err: err}
	}
	s.invalidateBlueprint(blueprint.ID)

	s.dispatch(ctx, EventBlueprintAfterUpdate, &EventPayload{Blueprint: blueprint, Actor: req.Actor})

	return FilterBlueprint(blueprint, req.Actor.Role), nil
}

func (s *service) DeleteBlueprint(ctx context.Context, id uuid.UUID, actor Actor) error {
	if err := s.repository.DeleteBlueprint(ctx, id); err != nil {
		if errors.Is(err, ErrBlueprintNotFound) || errors.Is(err, ErrBlueprintInUse) {
			return err
		}
		return &BlueprintError{BlueprintID: id, Op: "delete", Err: err}
	}
	s.invalidateBlueprint(id)

	s.dispatch(ctx, EventBlueprintAfterDelete, &EventPayload{Actor: actor})
	return nil
}

func (s *service) ListBlueprints(ctx context.Context, role Role) ([]*Blueprint, error) {
	blueprints, err := s.repository.ListBlueprints(ctx)
	if err != nil {
		return nil, err
	}
	filtered := make([]*Blueprint, len(blueprints))
	for i, bp := range blueprints {
		filtered[i] = FilterBlueprint(bp, role)
	}
	return filtered, nil
}

// Content operations

func (s *service) CreateContent(ctx context.Context, req CreateContentRequest) (*Content, error) {
	blueprint, err := s.blueprint(ctx, req.BlueprintID)
	if err != nil {
		return nil, err
	}

	if denied := restrictedEditKeys(req.Data, blueprint, req.Actor.Role); len(denied) > 0 {
		return nil, &PermissionError{Role: req.Actor.Role.Name(), Fields: denied}
	}

	violations := validateData(blueprint, req.Data)

	slug := req.Slug
	if slug == "" {
		slug = deriveSlug(blueprint, req.Data)
	}
	if !validSlug(slug) {
		slug = Slugify(slug)
	}
	if slug == "" {
		violations = append(violations, FieldViolation{Key: "slug", Message: "slug is required"})
	}

	if len(violations) > 0 {
		return nil, &ValidationError{BlueprintID: blueprint.ID, Violations: violations}
	}

	if err := s.ensureSlugFree(ctx, blueprint.ID, slug); err != nil {
		return nil, err
	}

	status := ContentStatusDraft
	if req.Publish {
		if blueprint.Settings.DraftMode {
			return nil, fmt.Errorf("%w: blueprint %s enforces draft mode", ErrInvalidStatusTransition, blueprint.ID)
		}
		status = ContentStatusPublished
	}

	now := time.Now().UTC()
	content := &Content{
		ID:          uuid.New(),
		BlueprintID: blueprint.ID,
		Slug:        slug,
		Data:        copyData(req.Data),
		Status:      status,
		Meta:        copyData(req.Meta),
		CreatedBy:   req.Actor.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if content.Data == nil {
		content.Data = make(map[string]interface{})
	}

	s.dispatch(ctx, EventContentBeforeCreate, &EventPayload{Content: content, Blueprint: blueprint, Actor: req.Actor})

	snapshot := s.snapshot(blueprint, content, req.Actor, "initial version")
	if _, err := s.repository.CreateContent(ctx, content, snapshot); err != nil {
		if errors.Is(err, ErrSlugConflict) {
			return nil, err
		}
		return nil, &ContentError{ContentID: content.ID, Op: "create", Err: err}
	}

	s.dispatch(ctx, EventContentAfterCreate, &EventPayload{Content: content, Blueprint: blueprint, Actor: req.Actor})

	return FilterContent(content, blueprint, req.Actor.Role), nil
}

func (s *service) GetContent(ctx context.Context, id uuid.UUID, role Role) (*Content, error) {
	content, err := s.repository.GetContent(ctx, id)
	if err != nil {
		return nil, err
	}
	blueprint, err := s.blueprint(ctx, content.BlueprintID)
	if err != nil {
		return nil, err
	}
	return FilterContent(content, blueprint, role), nil
}

func (s *service) GetContentBySlug(ctx context.Context, blueprintID uuid.UUID, slug string, role Role) (*Content, error) {
	content, err := s.repository.GetContentBySlug(ctx, blueprintID, slug)
	if err != nil {
		return nil, err
	}
	blueprint, err := s.blueprint(ctx, content.BlueprintID)
	if err != nil {
		return nil, err
	}
	return FilterContent(content, blueprint, role), nil
}

func (s *service) UpdateContent(ctx context.Context, req UpdateContentRequest) (*Content, error) {
	content, err := s.repository.GetContent(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	blueprint, err := s.blueprint(ctx, content.BlueprintID)
	if err != nil {
		return nil, err
	}

	if denied := restrictedEditKeys(req.Data, blueprint, req.Actor.Role); len(denied) > 0 {
		return nil, &PermissionError{Role: req.Actor.Role.Name(), Fields: denied}
	}

	// Shallow per-key merge: patch keys overwrite, omitted keys are
	// retained.
	merged := copyData(content.Data)
	if merged == nil {
		merged = make(map[string]interface{})
	}
	for key, value := range req.Data {
		merged[key] = value
	}

	if violations := validateData(blueprint, merged); len(violations) > 0 {
		return nil, &ValidationError{BlueprintID: blueprint.ID, Violations: violations}
	}

	if req.Slug != nil && *req.Slug != content.Slug {
		slug := *req.Slug
		if !validSlug(slug) {
			slug = Slugify(slug)
		}
		if slug == "" {
			return nil, &ValidationError{BlueprintID: blueprint.ID, Violations: []FieldViolation{
				{Key: "slug", Message: "slug is required"},
			}}
		}
		if err := s.ensureSlugFree(ctx, blueprint.ID, slug); err != nil {
			return nil, err
		}
		content.Slug = slug
	}

	content.Data = merged
	if req.Meta != nil {
		if content.Meta == nil {
			content.Meta = make(map[string]interface{})
		}
		for key, value := range req.Meta {
			content.Meta[key] = value
		}
	}
	content.UpdatedAt = time.Now().UTC()

	s.dispatch(ctx, EventContentBeforeUpdate, &EventPayload{Content: content, Blueprint: blueprint, Actor: req.Actor})

	snapshot := s.snapshot(blueprint, content, req.Actor, req.ChangeSummary)
	if _, err := s.repository.UpdateContent(ctx, content, snapshot); err != nil {
		if errors.Is(err, ErrSlugConflict) {
			return nil, err
		}
		return nil, &ContentError{ContentID: content.ID, Op: "update", Err: err}
	}

	s.dispatch(ctx, EventContentAfterUpdate, &EventPayload{Content: content, Blueprint: blueprint, Actor: req.Actor})

	return FilterContent(content, blueprint, req.Actor.Role), nil
}

func (s *service) ListContent(ctx context.Context, req ListContentRequest) ([]*Content, error) {
	blueprint, err := s.blueprint(ctx, req.BlueprintID)
	if err != nil {
		return nil, err
	}

	contents, err := s.repository.ListContent(ctx, ListContentParams{
		BlueprintID: req.BlueprintID,
		Status:      req.Status,
		Limit:       req.Limit,
		Offset:      req.Offset,
	})
	if err != nil {
		return nil, err
	}

	filtered := make([]*Content, len(contents))
	for i, c := range contents {
		filtered[i] = FilterContent(c, blueprint, req.Actor.Role)
	}
	return filtered, nil
}

func (s *service) DeleteContent(ctx context.Context, id uuid.UUID, actor Actor) error {
	if _, err := s.repository.GetContent(ctx, id); err != nil {
		return err
	}

	s.dispatch(ctx, EventContentBeforeDelete, &EventPayload{ContentID: id, Actor: actor})

	if err := s.repository.DeleteContent(ctx, id); err != nil {
		if errors.Is(err, ErrContentReferenced) {
			return err
		}
		return &ContentError{ContentID: id, Op: "delete", Err: err}
	}
	return nil
}

// Status transitions

func (s *service) PublishContent(ctx context.Context, id uuid.UUID, actor Actor) (*Content, error) {
	return s.transition(ctx, id, actor, ContentStatusPublished, canPublish)
}

func (s *service) UnpublishContent(ctx context.Context, id uuid.UUID, actor Actor) (*Content, error) {
	return s.transition(ctx, id, actor, ContentStatusDraft, canUnpublish)
}

func (s *service) ArchiveContent(ctx context.Context, id uuid.UUID, actor Actor) (*Content, error) {
	return s.transition(ctx, id, actor, ContentStatusArchived, canArchive)
}

// transition moves content to a target status. Transitions are
// idempotent: already-at-target content is returned unchanged with no
// new version and no events. Status changes never append versions.
func (s *service) transition(ctx context.Context, id uuid.UUID, actor Actor, target ContentStatus, check func(ContentStatus) error) (*Content, error) {
	content, err := s.repository.GetContent(ctx, id)
	if err != nil {
		return nil, err
	}
	blueprint, err := s.blueprint(ctx, content.BlueprintID)
	if err != nil {
		return nil, err
	}

	if content.Status == target {
		return FilterContent(content, blueprint, actor.Role), nil
	}
	if err := check(content.Status); err != nil {
		return nil, err
	}

	content.Status = target
	content.UpdatedAt = time.Now().UTC()

	s.dispatch(ctx, EventContentBeforeUpdate, &EventPayload{Content: content, Blueprint: blueprint, Actor: actor})

	if _, err := s.repository.UpdateContent(ctx, content, nil); err != nil {
		return nil, &ContentError{ContentID: content.ID, Op: string(target), Err: err}
	}

	s.dispatch(ctx, EventContentAfterUpdate, &EventPayload{Content: content, Blueprint: blueprint, Actor: actor})

	return FilterContent(content, blueprint, actor.Role), nil
}

// Version ledger operations

func (s *service) ListVersions(ctx context.Context, contentID uuid.UUID) ([]*Version, error) {
	return s.repository.ListVersions(ctx, contentID)
}

func (s *service) GetVersion(ctx context.Context, contentID, versionID uuid.UUID) (*Version, error) {
	return s.repository.GetVersion(ctx, contentID, versionID)
}

func (s *service) RollbackContent(ctx context.Context, req RollbackContentRequest) (*Content, error) {
	content, err := s.repository.GetContent(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	blueprint, err := s.blueprint(ctx, content.BlueprintID)
	if err != nil {
		return nil, err
	}
	if !blueprint.Settings.Versioning {
		return nil, fmt.Errorf("%w: blueprint %s", ErrVersioningDisabled, blueprint.ID)
	}

	target, err := s.repository.GetVersion(ctx, req.ID, req.VersionID)
	if err != nil {
		return nil, err
	}

	// Rollback is forward-moving: the historical snapshot becomes the
	// current data and a fresh version records the change. History is
	// never rewritten.
	content.Data = copyData(target.Data)
	if content.Data == nil {
		content.Data = make(map[string]interface{})
	}
	content.UpdatedAt = time.Now().UTC()

	snapshot := s.snapshot(blueprint, content, req.Actor,
		fmt.Sprintf("rollback to version %d", target.VersionNumber))
	if _, err := s.repository.UpdateContent(ctx, content, snapshot); err != nil {
		return nil, &ContentError{ContentID: content.ID, Op: "rollback", Err: err}
	}

	s.dispatch(ctx, EventContentAfterRollback, &EventPayload{Content: content, Blueprint: blueprint, Actor: req.Actor})

	return FilterContent(content, blueprint, req.Actor.Role), nil
}

// snapshot builds an unnumbered version snapshot for a write, or nil when
// the blueprint has versioning disabled. The repository allocates the
// version number atomically with the document write.
func (s *service) snapshot(blueprint *Blueprint, content *Content, actor Actor, summary string) *Version {
	if !blueprint.Settings.Versioning {
		return nil
	}
	return &Version{
		ID:            uuid.New(),
		ContentID:     content.ID,
		BlueprintID:   blueprint.ID,
		Data:          copyData(content.Data),
		CreatedBy:     actor.UserID,
		ChangeSummary: summary,
		CreatedAt:     time.Now().UTC(),
	}
}

// ensureSlugFree pre-checks slug uniqueness within a blueprint. The
// repository enforces the same constraint transactionally; this check
// exists to fail early with a clean error.
func (s *service) ensureSlugFree(ctx context.Context, blueprintID uuid.UUID, slug string) error {
	existing, err := s.repository.GetContentBySlug(ctx, blueprintID, slug)
	if err != nil {
		if errors.Is(err, ErrContentNotFound) {
			return nil
		}
		return err
	}
	if existing != nil {
		return fmt.Errorf("%w: %q", ErrSlugConflict, slug)
	}
	return nil
}

// deriveSlug builds a slug from the first text field value present in
// the data, in blueprint field order.
func deriveSlug(blueprint *Blueprint, data map[string]interface{}) string {
	for _, field := range blueprint.Fields {
		if field.Type != FieldTypeText {
			continue
		}
		if value, ok := data[field.Key].(string); ok && value != "" {
			return Slugify(value)
		}
	}
	return ""
}
