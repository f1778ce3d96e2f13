/*
progress.go - Bounded completed-quantity updates

PURPOSE:
  Applies an absolute completed value to one variety entry under the
  completed-never-exceeds-planned invariant. This is the only mutation the
  client can make to a window after aggregation.

LOOKUP SEMANTICS:
  Group and variety are matched by their catalog references, not by entry
  position. A miss names exactly which reference failed to resolve.

NOT DERIVED:
  Window status does not follow from completion totals. A fully completed
  window stays in whatever status it was created with.

SEE ALSO:
  - errors.go: ExceedsPlannedError carries the current total
*/
package schedule

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ProgressUpdate identifies one variety entry and the absolute completed
// quantity to assign to it.
type ProgressUpdate struct {
	WindowID   WindowID
	GroupRef   GroupRef
	VarietyRef VarietyRef
	Completed  decimal.Decimal
}

// Updater applies progress updates to stored windows.
type Updater struct {
	Windows WindowStore
}

func NewUpdater(windows WindowStore) *Updater {
	return &Updater{Windows: windows}
}

// UpdateVarietyProgress sets the variety's completed quantity. The update is
// rejected without mutation when the window, group, or variety cannot be
// resolved, when the quantity is negative, or when it exceeds the planned
// total. Returns the stored completed value.
func (u *Updater) UpdateVarietyProgress(ctx context.Context, upd ProgressUpdate) (decimal.Decimal, error) {
	if upd.Completed.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: completed must not be negative", ErrInvalidQuantity)
	}

	for attempt := 1; ; attempt++ {
		w, err := u.Windows.Get(ctx, upd.WindowID)
		if err != nil {
			return decimal.Zero, err
		}
		if w == nil {
			return decimal.Zero, fmt.Errorf("%w: %s", ErrWindowNotFound, upd.WindowID)
		}

		group := w.FindGroup(upd.GroupRef)
		if group == nil {
			return decimal.Zero, fmt.Errorf("%w: %s", ErrGroupNotFound, upd.GroupRef)
		}

		variety := group.FindVariety(upd.VarietyRef)
		if variety == nil {
			return decimal.Zero, fmt.Errorf("%w: %s", ErrVarietyNotFound, upd.VarietyRef)
		}

		if upd.Completed.GreaterThan(variety.Total) {
			return decimal.Zero, &ExceedsPlannedError{
				WindowID:   w.ID,
				VarietyRef: variety.VarietyRef,
				Requested:  upd.Completed,
				Total:      variety.Total,
			}
		}

		variety.Completed = upd.Completed

		err = u.Windows.Save(ctx, w)
		if err == nil {
			return variety.Completed, nil
		}
		if !errors.Is(err, ErrConcurrentModification) || attempt >= maxSaveAttempts {
			return decimal.Zero, err
		}
		// Stale read; retry against the current version.
	}
}
