// Package schemacontent provides a reusable library for schema-driven
// content management with versioning, field-level permissions, and a
// lifecycle hook bus.
//
// Content shapes are defined by user-authored blueprints (ordered field
// definitions plus settings). Every mutation of a content document is
// recorded as an immutable version snapshot; rollback replays a historical
// snapshot forward as a new version rather than rewriting history. Field
// visibility is enforced per role before any document leaves the service.
//
// The package exposes a single Service interface that orchestrates
// validation, permission filtering, hook dispatch, persistence, and the
// version ledger. Repository implementations (memory, Postgres) are
// provided under subpackages; the bounded LRU cache that memoizes
// blueprint lookups lives in the cache subpackage.
package schemacontent
