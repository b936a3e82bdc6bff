// Package postgres provides a PostgreSQL implementation of the
// schemacontent.Repository port using pgx. The document write and
// version append happen in one transaction, with the version number
// allocated while the document row is locked, so concurrent updates each
// get a fresh number and the per-document sequence stays dense.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/keelhq/schema-content/pkg/schemacontent"
)

// DBTX is the subset of pgxpool.Pool this repository needs. Both a pool
// and a single connection satisfy it.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Repository implements schemacontent.Repository using PostgreSQL
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) schemacontent.Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) schemacontent.Repository {
	return &Repository{db: pool}
}

// mapError translates driver errors into the package's typed errors.
func mapError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			if strings.Contains(pgErr.ConstraintName, "slug") {
				return schemacontent.ErrSlugConflict
			}
			return fmt.Errorf("duplicate entry in %s: %s", operation, pgErr.ConstraintName)
		case "23503": // foreign_key_violation
			return fmt.Errorf("referenced record not found in %s", operation)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		}
	}
	return fmt.Errorf("database error in %s: %w", operation, err)
}

// Blueprint operations

func (r *Repository) CreateBlueprint(ctx context.Context, blueprint *schemacontent.Blueprint) error {
	query := `
		INSERT INTO blueprints (id, name, fields, settings, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.Exec(ctx, query,
		blueprint.ID, blueprint.Name, blueprint.Fields, blueprint.Settings,
		blueprint.CreatedAt, blueprint.UpdatedAt)
	if err != nil {
		return mapError("create blueprint", err)
	}
	return nil
}

func (r *Repository) GetBlueprint(ctx context.Context, id uuid.UUID) (*schemacontent.Blueprint, error) {
	query := `
		SELECT id, name, fields, settings, created_at, updated_at
		FROM blueprints WHERE id = $1`

	var blueprint schemacontent.Blueprint
	err := r.db.QueryRow(ctx, query, id).Scan(
		&blueprint.ID, &blueprint.Name, &blueprint.Fields, &blueprint.Settings,
		&blueprint.CreatedAt, &blueprint.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, schemacontent.ErrBlueprintNotFound
		}
		return nil, mapError("get blueprint", err)
	}
	return &blueprint, nil
}

func (r *Repository) UpdateBlueprint(ctx context.Context, blueprint *schemacontent.Blueprint) error {
	query := `
		UPDATE blueprints SET name = $2, fields = $3, settings = $4, updated_at = $5
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		blueprint.ID, blueprint.Name, blueprint.Fields, blueprint.Settings, blueprint.UpdatedAt)
	if err != nil {
		return mapError("update blueprint", err)
	}
	if tag.RowsAffected() == 0 {
		return schemacontent.ErrBlueprintNotFound
	}
	return nil
}

func (r *Repository) DeleteBlueprint(ctx context.Context, id uuid.UUID) error {
	var inUse bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM content WHERE blueprint_id = $1)`, id).Scan(&inUse)
	if err != nil {
		return mapError("delete blueprint", err)
	}
	if inUse {
		return schemacontent.ErrBlueprintInUse
	}

	tag, err := r.db.Exec(ctx, `DELETE FROM blueprints WHERE id = $1`, id)
	if err != nil {
		return mapError("delete blueprint", err)
	}
	if tag.RowsAffected() == 0 {
		return schemacontent.ErrBlueprintNotFound
	}
	return nil
}

func (r *Repository) ListBlueprints(ctx context.Context) ([]*schemacontent.Blueprint, error) {
	query := `
		SELECT id, name, fields, settings, created_at, updated_at
		FROM blueprints ORDER BY created_at`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, mapError("list blueprints", err)
	}
	defer rows.Close()

	var blueprints []*schemacontent.Blueprint
	for rows.Next() {
		var blueprint schemacontent.Blueprint
		if err := rows.Scan(
			&blueprint.ID, &blueprint.Name, &blueprint.Fields, &blueprint.Settings,
			&blueprint.CreatedAt, &blueprint.UpdatedAt); err != nil {
			return nil, mapError("list blueprints", err)
		}
		blueprints = append(blueprints, &blueprint)
	}
	return blueprints, rows.Err()
}

// Content operations

func (r *Repository) CreateContent(ctx context.Context, content *schemacontent.Content, snapshot *schemacontent.Version) (*schemacontent.Version, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, mapError("create content", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO content (id, blueprint_id, slug, data, status, meta, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = tx.Exec(ctx, query,
		content.ID, content.BlueprintID, content.Slug, content.Data,
		content.Status, content.Meta, content.CreatedBy, content.CreatedAt, content.UpdatedAt)
	if err != nil {
		return nil, mapError("create content", err)
	}

	stored, err := appendVersion(ctx, tx, snapshot)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, mapError("create content", err)
	}
	return stored, nil
}

func (r *Repository) GetContent(ctx context.Context, id uuid.UUID) (*schemacontent.Content, error) {
	query := `
		SELECT id, blueprint_id, slug, data, status, meta, created_by, created_at, updated_at
		FROM content WHERE id = $1`

	return scanContent(r.db.QueryRow(ctx, query, id))
}

func (r *Repository) GetContentBySlug(ctx context.Context, blueprintID uuid.UUID, slug string) (*schemacontent.Content, error) {
	query := `
		SELECT id, blueprint_id, slug, data, status, meta, created_by, created_at, updated_at
		FROM content WHERE blueprint_id = $1 AND slug = $2`

	return scanContent(r.db.QueryRow(ctx, query, blueprintID, slug))
}

func (r *Repository) UpdateContent(ctx context.Context, content *schemacontent.Content, snapshot *schemacontent.Version) (*schemacontent.Version, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, mapError("update content", err)
	}
	defer tx.Rollback(ctx)

	// The row update takes a lock that serializes concurrent writers to
	// the same document for the rest of the transaction, including the
	// version-number allocation below.
	query := `
		UPDATE content SET slug = $2, data = $3, status = $4, meta = $5, updated_at = $6
		WHERE id = $1`

	tag, err := tx.Exec(ctx, query,
		content.ID, content.Slug, content.Data, content.Status, content.Meta, content.UpdatedAt)
	if err != nil {
		return nil, mapError("update content", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, schemacontent.ErrContentNotFound
	}

	stored, err := appendVersion(ctx, tx, snapshot)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, mapError("update content", err)
	}
	return stored, nil
}

func (r *Repository) DeleteContent(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return mapError("delete content", err)
	}
	defer tx.Rollback(ctx)

	// Any relation-typed field of another document pointing at this one
	// blocks deletion unless the field opts into cascade.
	referenceQuery := `
		SELECT EXISTS (
			SELECT 1
			FROM content c
			JOIN blueprints b ON b.id = c.blueprint_id,
			     jsonb_array_elements(b.fields) AS f
			WHERE c.id <> $1
			  AND f->>'type' = 'relation'
			  AND COALESCE(f->'ui'->>'on_delete', '') <> 'cascade'
			  AND c.data->>(f->>'key') = $1::text
		)`

	var referenced bool
	if err := tx.QueryRow(ctx, referenceQuery, id).Scan(&referenced); err != nil {
		return mapError("delete content", err)
	}
	if referenced {
		return schemacontent.ErrContentReferenced
	}

	if _, err := tx.Exec(ctx, `DELETE FROM content_versions WHERE content_id = $1`, id); err != nil {
		return mapError("delete content", err)
	}
	tag, err := tx.Exec(ctx, `DELETE FROM content WHERE id = $1`, id)
	if err != nil {
		return mapError("delete content", err)
	}
	if tag.RowsAffected() == 0 {
		return schemacontent.ErrContentNotFound
	}

	return tx.Commit(ctx)
}

func (r *Repository) ListContent(ctx context.Context, params schemacontent.ListContentParams) ([]*schemacontent.Content, error) {
	query := `
		SELECT id, blueprint_id, slug, data, status, meta, created_by, created_at, updated_at
		FROM content WHERE blueprint_id = $1`
	args := []interface{}{params.BlueprintID}

	if params.Status != nil {
		args = append(args, *params.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"
	if params.Limit > 0 {
		args = append(args, params.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if params.Offset > 0 {
		args = append(args, params.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError("list content", err)
	}
	defer rows.Close()

	var contents []*schemacontent.Content
	for rows.Next() {
		content, err := scanContent(rows)
		if err != nil {
			return nil, err
		}
		contents = append(contents, content)
	}
	return contents, rows.Err()
}

// Version ledger operations

func (r *Repository) ListVersions(ctx context.Context, contentID uuid.UUID) ([]*schemacontent.Version, error) {
	query := `
		SELECT id, content_id, blueprint_id, data, version_number, created_by, change_summary, created_at
		FROM content_versions WHERE content_id = $1
		ORDER BY version_number`

	rows, err := r.db.Query(ctx, query, contentID)
	if err != nil {
		return nil, mapError("list versions", err)
	}
	defer rows.Close()

	var versions []*schemacontent.Version
	for rows.Next() {
		var v schemacontent.Version
		if err := rows.Scan(
			&v.ID, &v.ContentID, &v.BlueprintID, &v.Data, &v.VersionNumber,
			&v.CreatedBy, &v.ChangeSummary, &v.CreatedAt); err != nil {
			return nil, mapError("list versions", err)
		}
		versions = append(versions, &v)
	}
	return versions, rows.Err()
}

func (r *Repository) GetVersion(ctx context.Context, contentID, versionID uuid.UUID) (*schemacontent.Version, error) {
	query := `
		SELECT id, content_id, blueprint_id, data, version_number, created_by, change_summary, created_at
		FROM content_versions WHERE content_id = $1 AND id = $2`

	var v schemacontent.Version
	err := r.db.QueryRow(ctx, query, contentID, versionID).Scan(
		&v.ID, &v.ContentID, &v.BlueprintID, &v.Data, &v.VersionNumber,
		&v.CreatedBy, &v.ChangeSummary, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, schemacontent.ErrVersionNotFound
		}
		return nil, mapError("get version", err)
	}
	return &v, nil
}

// appendVersion inserts a snapshot with the next version number for its
// document. Runs inside the caller's transaction.
func appendVersion(ctx context.Context, tx pgx.Tx, snapshot *schemacontent.Version) (*schemacontent.Version, error) {
	if snapshot == nil {
		return nil, nil
	}

	query := `
		INSERT INTO content_versions (id, content_id, blueprint_id, data, version_number, created_by, change_summary, created_at)
		VALUES ($1, $2, $3, $4,
			(SELECT COALESCE(MAX(version_number), 0) + 1 FROM content_versions WHERE content_id = $2),
			$5, $6, $7)
		RETURNING version_number`

	stored := *snapshot
	err := tx.QueryRow(ctx, query,
		snapshot.ID, snapshot.ContentID, snapshot.BlueprintID, snapshot.Data,
		snapshot.CreatedBy, snapshot.ChangeSummary, snapshot.CreatedAt).Scan(&stored.VersionNumber)
	if err != nil {
		return nil, mapError("append version", err)
	}
	return &stored, nil
}

func scanContent(row pgx.Row) (*schemacontent.Content, error) {
	var content schemacontent.Content
	err := row.Scan(
		&content.ID, &content.BlueprintID, &content.Slug, &content.Data,
		&content.Status, &content.Meta, &content.CreatedBy, &content.CreatedAt, &content.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, schemacontent.ErrContentNotFound
		}
		return nil, mapError("get content", err)
	}
	return &content, nil
}
