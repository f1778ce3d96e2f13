package schedule

import (
	"fmt"
	"time"
)

// =============================================================================
// TIME BUCKETER - pure date -> 5-day window mapping
// =============================================================================

// BucketFor maps a calendar date to its fixed 5-day window. Day-of-month
// 1..5 starts slot day 1, 6..10 slot day 6, and so on. The start is local
// midnight on the slot's first day; the end is 23:59:59.999 on slotStart+4.
//
// Months are not multiples of 5 days: when slotStart+4 exceeds the month's
// length, time.Date normalizes the overflow into the following month. The
// last bucket of a 30- or 31-day month therefore spans a month boundary.
// That is deliberate and deterministic; the same source date always resolves
// to the same (start, end) pair.
func BucketFor(date time.Time) (start, end time.Time) {
	year, month, day := date.Date()
	slotStartDay := (day-1)/5*5 + 1

	start = time.Date(year, month, slotStartDay, 0, 0, 0, 0, date.Location())
	end = time.Date(year, month, slotStartDay+4, 23, 59, 59, 999_000_000, date.Location())
	return start, end
}

// sourceDate picks the bucketing date for a booking: sowing date when
// present, else booking date. ok is false when neither is usable, in which
// case the whole aggregation is a no-op, not an error.
func sourceDate(fact BookingCreated) (time.Time, bool) {
	if fact.SowingDate != nil && !fact.SowingDate.IsZero() {
		return *fact.SowingDate, true
	}
	if !fact.BookingDate.IsZero() {
		return fact.BookingDate, true
	}
	return time.Time{}, false
}

// windowName derives the human-readable label for a bucketed window,
// e.g. "Schedule (6 Mar - 10 Mar)".
func windowName(start, end time.Time) string {
	return fmt.Sprintf("Schedule (%s - %s)", start.Format("2 Jan"), end.Format("2 Jan"))
}
