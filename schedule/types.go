/*
Package schedule provides the sowing-schedule aggregation engine.

PURPOSE:
  This package contains the types and algorithms that roll booked crop
  quantities up into fixed 5-day windows. Each booking contributes its line
  items into one window; operations staff read the windows back as a
  planned-vs-completed progress board.

KEY CONCEPTS IN THIS FILE (types.go):
  - Window: The aggregate root for one 5-day bucket, keyed by (StartDate, EndDate)
  - GroupEntry/VarietyEntry: The nested crop-group -> crop-variety rollup
  - Contribution: One booking's quantity against a variety, keyed by booking id
  - Quantity: decimal-backed amounts to avoid floating-point drift

DESIGN PRINCIPLES:
  1. Idempotency: A booking contributes to a variety entry at most once
  2. Precision: Uses decimal.Decimal for all planned/completed quantities
  3. Type Safety: Distinct string types for window/group/variety/booking refs
  4. Single Writer Wins: Window identity is enforced by the store, not the caller

SEE ALSO:
  - bucket.go: Date -> 5-day window mapping
  - aggregator.go: Booking ingestion
  - progress.go: Bounded completed-quantity updates
  - presenter.go: Seeding, backfill, and the flattened client view
*/
package schedule

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type WindowID string
type GroupRef string
type VarietyRef string
type BookingRef string
type FarmerRef string

// =============================================================================
// WINDOW STATUS
// =============================================================================

// Status is assigned once when a window is created and never recomputed from
// the aggregate. Completion totals do not feed back into it.
type Status string

const (
	StatusPending   Status = "pending"
	StatusOngoing   Status = "ongoing"
	StatusCompleted Status = "completed"
)

// =============================================================================
// WINDOW AGGREGATE - nested document, persisted whole
// =============================================================================

// Contribution records a single booking's quantity against a variety entry.
// The list it lives in is append-only; BookingID is the idempotency key.
type Contribution struct {
	BookingID BookingRef      `json:"bookingId"`
	FarmerID  FarmerRef       `json:"farmerId"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// VarietyEntry aggregates all contributions for one crop variety inside a
// group. Invariant: decimal.Zero <= Completed <= Total, and Total equals the
// sum of contribution quantities.
type VarietyEntry struct {
	VarietyRef    VarietyRef      `json:"varietyId"`
	VarietyName   string          `json:"varietyName"`
	Contributions []Contribution  `json:"bookings"`
	Total         decimal.Decimal `json:"total"`
	Completed     decimal.Decimal `json:"completed"`
}

// GroupEntry holds the varieties booked for one crop group. Unique per
// (Window, GroupRef).
type GroupEntry struct {
	GroupRef  GroupRef       `json:"groupId"`
	GroupName string         `json:"groupName"`
	Varieties []VarietyEntry `json:"varieties"`
}

// Window is the aggregate root for one 5-day bucket. Identity is the
// (StartDate, EndDate) pair; the store enforces at most one window per pair.
// Version backs optimistic-concurrency saves.
type Window struct {
	ID        WindowID
	Name      string
	StartDate time.Time
	EndDate   time.Time
	Status    Status
	Groups    []GroupEntry
	Version   int64
}

// FindGroup returns the entry whose GroupRef matches, or nil.
func (w *Window) FindGroup(ref GroupRef) *GroupEntry {
	for i := range w.Groups {
		if w.Groups[i].GroupRef == ref {
			return &w.Groups[i]
		}
	}
	return nil
}

// FindVariety returns the entry whose VarietyRef matches, or nil.
func (g *GroupEntry) FindVariety(ref VarietyRef) *VarietyEntry {
	for i := range g.Varieties {
		if g.Varieties[i].VarietyRef == ref {
			return &g.Varieties[i]
		}
	}
	return nil
}

// HasContribution reports whether the booking already contributed here.
func (v *VarietyEntry) HasContribution(id BookingRef) bool {
	for _, c := range v.Contributions {
		if c.BookingID == id {
			return true
		}
	}
	return false
}

// Clone deep-copies the window so callers can mutate without sharing state.
// Store implementations hand out clones, never their internal copy.
func (w *Window) Clone() *Window {
	out := *w
	out.Groups = make([]GroupEntry, len(w.Groups))
	for i, g := range w.Groups {
		cg := g
		cg.Varieties = make([]VarietyEntry, len(g.Varieties))
		for j, v := range g.Varieties {
			cv := v
			cv.Contributions = append([]Contribution(nil), v.Contributions...)
			cg.Varieties[j] = cv
		}
		out.Groups[i] = cg
	}
	return &out
}

// =============================================================================
// BOOKING-CREATED FACT - input from the booking subsystem
// =============================================================================

// LineItem is one variety line of a booking.
type LineItem struct {
	VarietyName string
	Quantity    decimal.Decimal
	RatePerUnit decimal.Decimal
}

// BookingCreated is the fact handed to the aggregator synchronously after a
// booking record is durably written. The engine only reads it.
type BookingCreated struct {
	BookingID    BookingRef
	FarmerID     FarmerRef
	CropGroupRef GroupRef
	LineItems    []LineItem
	BookingDate  time.Time
	SowingDate   *time.Time
}
