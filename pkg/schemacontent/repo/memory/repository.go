// Package memory provides an in-memory implementation of the
// schemacontent.Repository port. It is the reference implementation used
// by tests and development servers.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/keelhq/schema-content/pkg/schemacontent"
)

type slugKey struct {
	blueprintID uuid.UUID
	slug        string
}

// Repository implements schemacontent.Repository using in-memory storage.
// A single mutex guards every operation, which makes the document write
// and version append trivially atomic: version numbers are allocated from
// per-document counters inside the same critical section as the document
// update.
type Repository struct {
	mu              sync.RWMutex
	blueprints      map[uuid.UUID]*schemacontent.Blueprint
	contents        map[uuid.UUID]*schemacontent.Content
	versions        map[uuid.UUID][]*schemacontent.Version
	versionCounters map[uuid.UUID]int
	slugs           map[slugKey]uuid.UUID
}

// New creates a new in-memory repository
func New() schemacontent.Repository {
	return &Repository{
		blueprints:      make(map[uuid.UUID]*schemacontent.Blueprint),
		contents:        make(map[uuid.UUID]*schemacontent.Content),
		versions:        make(map[uuid.UUID][]*schemacontent.Version),
		versionCounters: make(map[uuid.UUID]int),
		slugs:           make(map[slugKey]uuid.UUID),
	}
}

// Blueprint operations

func (r *Repository) CreateBlueprint(ctx context.Context, blueprint *schemacontent.Blueprint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.blueprints[blueprint.ID] = copyBlueprint(blueprint)
	return nil
}

func (r *Repository) GetBlueprint(ctx context.Context, id uuid.UUID) (*schemacontent.Blueprint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	blueprint, exists := r.blueprints[id]
	if !exists {
		return nil, schemacontent.ErrBlueprintNotFound
	}
	return copyBlueprint(blueprint), nil
}

func (r *Repository) UpdateBlueprint(ctx context.Context, blueprint *schemacontent.Blueprint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.blueprints[blueprint.ID]; !exists {
		return schemacontent.ErrBlueprintNotFound
	}
	r.blueprints[blueprint.ID] = copyBlueprint(blueprint)
	return nil
}

func (r *Repository) DeleteBlueprint(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.blueprints[id]; !exists {
		return schemacontent.ErrBlueprintNotFound
	}
	for _, content := range r.contents {
		if content.BlueprintID == id {
			return schemacontent.ErrBlueprintInUse
		}
	}
	delete(r.blueprints, id)
	return nil
}

func (r *Repository) ListBlueprints(ctx context.Context) ([]*schemacontent.Blueprint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*schemacontent.Blueprint, 0, len(r.blueprints))
	for _, blueprint := range r.blueprints {
		result = append(result, copyBlueprint(blueprint))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// Content operations

func (r *Repository) CreateContent(ctx context.Context, content *schemacontent.Content, snapshot *schemacontent.Version) (*schemacontent.Version, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.blueprints[content.BlueprintID]; !exists {
		return nil, schemacontent.ErrBlueprintNotFound
	}
	key := slugKey{blueprintID: content.BlueprintID, slug: content.Slug}
	if _, taken := r.slugs[key]; taken {
		return nil, schemacontent.ErrSlugConflict
	}

	r.contents[content.ID] = copyContent(content)
	r.slugs[key] = content.ID

	return r.appendVersion(content.ID, snapshot), nil
}

func (r *Repository) GetContent(ctx context.Context, id uuid.UUID) (*schemacontent.Content, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	content, exists := r.contents[id]
	if !exists {
		return nil, schemacontent.ErrContentNotFound
	}
	return copyContent(content), nil
}

func (r *Repository) GetContentBySlug(ctx context.Context, blueprintID uuid.UUID, slug string) (*schemacontent.Content, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.slugs[slugKey{blueprintID: blueprintID, slug: slug}]
	if !exists {
		return nil, schemacontent.ErrContentNotFound
	}
	return copyContent(r.contents[id]), nil
}

func (r *Repository) UpdateContent(ctx context.Context, content *schemacontent.Content, snapshot *schemacontent.Version) (*schemacontent.Version, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.contents[content.ID]
	if !exists {
		return nil, schemacontent.ErrContentNotFound
	}

	if existing.Slug != content.Slug {
		newKey := slugKey{blueprintID: content.BlueprintID, slug: content.Slug}
		if owner, taken := r.slugs[newKey]; taken && owner != content.ID {
			return nil, schemacontent.ErrSlugConflict
		}
		delete(r.slugs, slugKey{blueprintID: existing.BlueprintID, slug: existing.Slug})
		r.slugs[newKey] = content.ID
	}

	r.contents[content.ID] = copyContent(content)

	return r.appendVersion(content.ID, snapshot), nil
}

func (r *Repository) DeleteContent(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	content, exists := r.contents[id]
	if !exists {
		return schemacontent.ErrContentNotFound
	}
	if r.referenced(id) {
		return schemacontent.ErrContentReferenced
	}

	delete(r.slugs, slugKey{blueprintID: content.BlueprintID, slug: content.Slug})
	delete(r.contents, id)
	delete(r.versions, id)
	delete(r.versionCounters, id)
	return nil
}

func (r *Repository) ListContent(ctx context.Context, params schemacontent.ListContentParams) ([]*schemacontent.Content, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*schemacontent.Content
	for _, content := range r.contents {
		if content.BlueprintID != params.BlueprintID {
			continue
		}
		if params.Status != nil && content.Status != *params.Status {
			continue
		}
		result = append(result, copyContent(content))
	}

	// Sort by created_at descending
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if params.Offset > 0 {
		if params.Offset >= len(result) {
			return nil, nil
		}
		result = result[params.Offset:]
	}
	if params.Limit > 0 && params.Limit < len(result) {
		result = result[:params.Limit]
	}
	return result, nil
}

// Version ledger operations

func (r *Repository) ListVersions(ctx context.Context, contentID uuid.UUID) ([]*schemacontent.Version, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, exists := r.contents[contentID]; !exists {
		return nil, schemacontent.ErrContentNotFound
	}

	versions := r.versions[contentID]
	result := make([]*schemacontent.Version, len(versions))
	for i, v := range versions {
		result[i] = copyVersion(v)
	}
	return result, nil
}

func (r *Repository) GetVersion(ctx context.Context, contentID, versionID uuid.UUID) (*schemacontent.Version, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, v := range r.versions[contentID] {
		if v.ID == versionID {
			return copyVersion(v), nil
		}
	}
	return nil, schemacontent.ErrVersionNotFound
}

// appendVersion allocates the next version number for a document and
// stores the snapshot. Callers hold r.mu, so allocation and document
// write are one atomic step.
func (r *Repository) appendVersion(contentID uuid.UUID, snapshot *schemacontent.Version) *schemacontent.Version {
	if snapshot == nil {
		return nil
	}

	r.versionCounters[contentID]++
	stored := copyVersion(snapshot)
	stored.VersionNumber = r.versionCounters[contentID]
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	r.versions[contentID] = append(r.versions[contentID], stored)
	return copyVersion(stored)
}

// referenced reports whether any other document holds a relation-typed
// field pointing at id. A relation field whose UI metadata sets
// on_delete to "cascade" does not block deletion.
func (r *Repository) referenced(id uuid.UUID) bool {
	target := id.String()
	for _, content := range r.contents {
		if content.ID == id {
			continue
		}
		blueprint, exists := r.blueprints[content.BlueprintID]
		if !exists {
			continue
		}
		for _, field := range blueprint.Fields {
			if field.Type != schemacontent.FieldTypeRelation {
				continue
			}
			value, ok := content.Data[field.Key].(string)
			if !ok || value != target {
				continue
			}
			if cascade, _ := field.UI["on_delete"].(string); cascade == "cascade" {
				continue
			}
			return true
		}
	}
	return false
}

// Copy helpers isolate stored state from callers.

func copyBlueprint(blueprint *schemacontent.Blueprint) *schemacontent.Blueprint {
	out := *blueprint
	out.Fields = append([]schemacontent.FieldDefinition(nil), blueprint.Fields...)
	return &out
}

func copyContent(content *schemacontent.Content) *schemacontent.Content {
	out := *content
	out.Data = copyMap(content.Data)
	out.Meta = copyMap(content.Meta)
	return &out
}

func copyVersion(version *schemacontent.Version) *schemacontent.Version {
	out := *version
	out.Data = copyMap(version.Data)
	return &out
}

func copyMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
