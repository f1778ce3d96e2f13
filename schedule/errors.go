/*
errors.go - Centralized error types for the schedule engine

PURPOSE:
  All engine errors in one place. Handlers map these onto HTTP statuses;
  the booking workflow logs and swallows them (aggregation is best-effort
  with respect to booking creation).

ERROR CATEGORIES:
  1. Not-found errors - unknown window/group/variety references
  2. Invariant violations - completed exceeding planned
  3. Store errors - optimistic-concurrency conflicts

USAGE:
  if errors.Is(err, schedule.ErrExceedsPlanned) { ... }

SEE ALSO:
  - progress.go: Produces ExceedsPlannedError
  - store.go: Save contract for ErrConcurrentModification
*/
package schedule

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrWindowNotFound is returned when a window id does not resolve.
	ErrWindowNotFound = errors.New("schedule window not found")

	// ErrGroupNotFound is returned when a group ref matches no entry in the
	// window. Comparison is against the catalog reference, not the entry's
	// position.
	ErrGroupNotFound = errors.New("group not found in schedule window")

	// ErrVarietyNotFound is returned when a variety ref matches no entry in
	// the group.
	ErrVarietyNotFound = errors.New("variety not found in group")

	// ErrExceedsPlanned is returned when a completed quantity would exceed
	// the planned total. The update is rejected without mutation.
	ErrExceedsPlanned = errors.New("completed quantity exceeds planned total")

	// ErrInvalidQuantity is returned for negative or non-finite quantities.
	ErrInvalidQuantity = errors.New("invalid quantity")

	// ErrConcurrentModification is returned by version-checked saves when
	// another writer got there first. Callers re-read and retry.
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ExceedsPlannedError reports a progress update rejected by the
// completed-never-exceeds-planned invariant, including the current total.
type ExceedsPlannedError struct {
	WindowID   WindowID
	VarietyRef VarietyRef
	Requested  decimal.Decimal
	Total      decimal.Decimal
}

func (e *ExceedsPlannedError) Error() string {
	return fmt.Sprintf("completed quantity %s cannot exceed total (%s)",
		e.Requested.String(), e.Total.String())
}

func (e *ExceedsPlannedError) Unwrap() error { return ErrExceedsPlanned }
