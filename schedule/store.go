/*
store.go - Persistence interfaces for the schedule engine

PURPOSE:
  Defines the contract between the engine and the database. The engine never
  talks SQL; it works against WindowStore, Catalog, and FarmerDirectory.

WINDOW IDENTITY:
  At most one window may exist per (StartDate, EndDate) pair. Read-then-create
  cannot guarantee that under concurrent writers, so creation goes through
  CreateIfAbsent: an atomic conditional insert keyed on the pair. Exactly one
  concurrent caller's window is stored; every caller gets the stored one back.

OPTIMISTIC CONCURRENCY:
  Save is version-checked. A save against a stale Version returns
  ErrConcurrentModification and writes nothing; the caller re-reads and
  re-applies. This closes the lost-increment race on VarietyEntry totals.

IMPLEMENTATIONS:
  - store/sqlite: production store (windows as JSON documents with a
    version column and a unique (start_date, end_date) index)
  - schedule/store: in-memory store for tests and dev

SEE ALSO:
  - aggregator.go: The retry loop around CreateIfAbsent/Save
  - presenter.go: Uses Catalog and FarmerDirectory for display names
*/
package schedule

import (
	"context"
	"time"
)

// =============================================================================
// WINDOW STORE
// =============================================================================

type WindowStore interface {
	// Get returns the window with the given id, or nil if none exists.
	Get(ctx context.Context, id WindowID) (*Window, error)

	// FindByRange returns the window matching both timestamps exactly,
	// or nil if none exists.
	FindByRange(ctx context.Context, start, end time.Time) (*Window, error)

	// CreateIfAbsent atomically inserts w keyed on (StartDate, EndDate).
	// If a window for that pair already exists, the existing one is
	// returned and w is discarded. Never returns nil on success.
	CreateIfAbsent(ctx context.Context, w *Window) (*Window, error)

	// Save writes the full window document if w.Version is still current,
	// then increments w.Version. Returns ErrConcurrentModification when a
	// newer version is already stored.
	Save(ctx context.Context, w *Window) error

	// ListEndingOnOrAfter returns windows with EndDate >= t, ordered by
	// StartDate ascending.
	ListEndingOnOrAfter(ctx context.Context, t time.Time) ([]*Window, error)
}

// =============================================================================
// CATALOGS - find-or-create identity resolution
// =============================================================================

type CatalogGroup struct {
	Ref  GroupRef
	Name string
}

type CatalogVariety struct {
	Ref      VarietyRef
	GroupRef GroupRef
	Name     string
}

// Catalog resolves crop-group and crop-variety names to durable references,
// creating catalog entries lazily. Variety identity is the (group, name)
// composite: the same name in two groups is two distinct varieties, never
// merged. Entries are never deleted by this engine.
type Catalog interface {
	ResolveOrCreateGroup(ctx context.Context, name string) (GroupRef, error)
	ResolveOrCreateVariety(ctx context.Context, group GroupRef, name string) (VarietyRef, error)

	// LookupGroupName returns "" when the ref is unknown.
	LookupGroupName(ctx context.Context, ref GroupRef) (string, error)

	ListGroups(ctx context.Context) ([]CatalogGroup, error)
	ListVarietiesOfGroup(ctx context.Context, ref GroupRef) ([]CatalogVariety, error)
}

// =============================================================================
// FARMER DIRECTORY - display-name resolution for the presenter
// =============================================================================

// FarmerDirectory resolves farmer references to display names.
// LookupFarmerName returns "" when the ref is unknown; the presenter falls
// back to a positional label.
type FarmerDirectory interface {
	LookupFarmerName(ctx context.Context, ref FarmerRef) (string, error)
}
