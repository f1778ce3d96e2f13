/*
aggregator.go - Booking ingestion into schedule windows

PURPOSE:
  Consumes BookingCreated facts and merges each booking's line items into the
  window for its 5-day bucket: find-or-create the window, the group entry,
  and a variety entry per line item, then append a contribution and bump the
  planned total.

IDEMPOTENCY:
  Contributions are keyed by booking id. Reprocessing an already-aggregated
  booking appends nothing and changes no total; the whole call is a no-op.

CONCURRENCY:
  Window creation goes through the store's atomic CreateIfAbsent, so N
  concurrent bookings in an empty bucket still produce one window. The merged
  document is saved with a version check; on conflict the aggregator re-reads
  and re-applies, bounded by maxSaveAttempts. Idempotent merging makes the
  retry safe.

FAILURE POLICY:
  The caller (booking creation) treats aggregation as best-effort: errors
  returned here are logged and swallowed, and the booking stands. That policy
  lives in the booking package, not here.

SEE ALSO:
  - bucket.go: The date -> window mapping
  - store.go: CreateIfAbsent/Save contracts
*/
package schedule

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Fallback display names when catalog resolution fails mid-aggregation.
const (
	unknownGroupName   = "Unknown Group"
	unknownVarietyName = "Unknown Variety"
)

// maxSaveAttempts bounds the re-read/re-apply loop on version conflicts.
const maxSaveAttempts = 4

// Aggregator merges bookings into schedule windows.
type Aggregator struct {
	Windows WindowStore
	Catalog Catalog
}

func NewAggregator(windows WindowStore, catalog Catalog) *Aggregator {
	return &Aggregator{Windows: windows, Catalog: catalog}
}

// ApplyBooking buckets the booking and merges its line items into the
// window. A booking with no usable date is skipped silently.
func (a *Aggregator) ApplyBooking(ctx context.Context, fact BookingCreated) error {
	src, ok := sourceDate(fact)
	if !ok {
		return nil
	}
	start, end := BucketFor(src)

	for attempt := 1; ; attempt++ {
		w, err := a.Windows.FindByRange(ctx, start, end)
		if err != nil {
			return fmt.Errorf("locate window: %w", err)
		}
		if w == nil {
			candidate := &Window{
				ID:        WindowID(uuid.NewString()),
				Name:      windowName(start, end),
				StartDate: start,
				EndDate:   end,
				Status:    StatusPending,
			}
			w, err = a.Windows.CreateIfAbsent(ctx, candidate)
			if err != nil {
				return fmt.Errorf("create window: %w", err)
			}
		}

		changed, err := a.merge(ctx, w, fact)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}

		err = a.Windows.Save(ctx, w)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrConcurrentModification) || attempt >= maxSaveAttempts {
			return fmt.Errorf("save window %s: %w", w.ID, err)
		}
		// Lost the version race; re-read and re-apply.
	}
}

// merge folds the booking into the window in memory. Returns false when the
// booking was already fully aggregated and nothing was touched.
func (a *Aggregator) merge(ctx context.Context, w *Window, fact BookingCreated) (bool, error) {
	group := w.FindGroup(fact.CropGroupRef)
	changed := false

	if group == nil {
		name, err := a.Catalog.LookupGroupName(ctx, fact.CropGroupRef)
		if err != nil || name == "" {
			name = unknownGroupName
		}
		w.Groups = append(w.Groups, GroupEntry{
			GroupRef:  fact.CropGroupRef,
			GroupName: name,
		})
		group = &w.Groups[len(w.Groups)-1]
		changed = true
	}

	for _, item := range fact.LineItems {
		name := item.VarietyName
		if name == "" {
			name = unknownVarietyName
		}

		ref, err := a.Catalog.ResolveOrCreateVariety(ctx, fact.CropGroupRef, name)
		if err != nil {
			return changed, fmt.Errorf("resolve variety %q: %w", name, err)
		}

		variety := group.FindVariety(ref)
		if variety == nil {
			group.Varieties = append(group.Varieties, VarietyEntry{
				VarietyRef:  ref,
				VarietyName: name,
			})
			variety = &group.Varieties[len(group.Varieties)-1]
			changed = true
		}

		// Idempotency: one contribution per booking per variety.
		if variety.HasContribution(fact.BookingID) {
			continue
		}

		variety.Contributions = append(variety.Contributions, Contribution{
			BookingID: fact.BookingID,
			FarmerID:  fact.FarmerID,
			Quantity:  item.Quantity,
		})
		variety.Total = variety.Total.Add(item.Quantity)
		changed = true
	}

	return changed, nil
}
