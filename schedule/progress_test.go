package schedule_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmdesk/crop-engine/schedule"
	schedstore "github.com/farmdesk/crop-engine/schedule/store"
)

// seedWindow aggregates one booking of quantity 15 and returns the stored
// window plus the refs needed to address its single variety entry.
func seedWindow(t *testing.T) (*schedstore.Memory, *schedule.Window, schedule.GroupRef, schedule.VarietyRef) {
	t.Helper()
	mem := schedstore.NewMemory()
	agg := schedule.NewAggregator(mem, mem)
	ctx := context.Background()

	groupRef, err := mem.ResolveOrCreateGroup(ctx, "Vegetables")
	require.NoError(t, err)

	sowing := time.Date(2024, time.March, 7, 0, 0, 0, 0, time.UTC)
	err = agg.ApplyBooking(ctx, schedule.BookingCreated{
		BookingID:    "b-1",
		FarmerID:     "f-1",
		CropGroupRef: groupRef,
		LineItems: []schedule.LineItem{
			{VarietyName: "Tomato-X", Quantity: decimal.NewFromInt(15)},
		},
		SowingDate: &sowing,
	})
	require.NoError(t, err)

	windows, err := mem.ListEndingOnOrAfter(ctx, time.Time{})
	require.NoError(t, err)
	require.Len(t, windows, 1)

	w := windows[0]
	return mem, w, groupRef, w.Groups[0].Varieties[0].VarietyRef
}

func TestUpdateVarietyProgress_WithinTotal(t *testing.T) {
	// GIVEN a window with a planned total of 15
	mem, w, groupRef, varietyRef := seedWindow(t)
	upd := schedule.NewUpdater(mem)

	// WHEN completed is set to 12
	got, err := upd.UpdateVarietyProgress(context.Background(), schedule.ProgressUpdate{
		WindowID:   w.ID,
		GroupRef:   groupRef,
		VarietyRef: varietyRef,
		Completed:  decimal.NewFromInt(12),
	})

	// THEN the update is accepted and persisted
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.NewFromInt(12)))

	stored, err := mem.Get(context.Background(), w.ID)
	require.NoError(t, err)
	assert.True(t, stored.Groups[0].Varieties[0].Completed.Equal(decimal.NewFromInt(12)))
}

func TestUpdateVarietyProgress_ExceedsTotal_Rejected(t *testing.T) {
	// GIVEN a window with a planned total of 15
	mem, w, groupRef, varietyRef := seedWindow(t)
	upd := schedule.NewUpdater(mem)

	// WHEN completed is set above the total
	_, err := upd.UpdateVarietyProgress(context.Background(), schedule.ProgressUpdate{
		WindowID:   w.ID,
		GroupRef:   groupRef,
		VarietyRef: varietyRef,
		Completed:  decimal.NewFromInt(20),
	})

	// THEN the error names the planned total
	require.Error(t, err)
	assert.ErrorIs(t, err, schedule.ErrExceedsPlanned)
	assert.Contains(t, err.Error(), "15")

	// AND the stored value is untouched
	stored, err := mem.Get(context.Background(), w.ID)
	require.NoError(t, err)
	assert.True(t, stored.Groups[0].Varieties[0].Completed.IsZero())
}

func TestUpdateVarietyProgress_NegativeRejected(t *testing.T) {
	mem, w, groupRef, varietyRef := seedWindow(t)
	upd := schedule.NewUpdater(mem)

	_, err := upd.UpdateVarietyProgress(context.Background(), schedule.ProgressUpdate{
		WindowID:   w.ID,
		GroupRef:   groupRef,
		VarietyRef: varietyRef,
		Completed:  decimal.NewFromInt(-1),
	})

	assert.ErrorIs(t, err, schedule.ErrInvalidQuantity)
}

func TestUpdateVarietyProgress_UnknownTargets(t *testing.T) {
	mem, w, groupRef, _ := seedWindow(t)
	upd := schedule.NewUpdater(mem)
	ctx := context.Background()

	t.Run("unknown window", func(t *testing.T) {
		_, err := upd.UpdateVarietyProgress(ctx, schedule.ProgressUpdate{
			WindowID:  "missing",
			GroupRef:  groupRef,
			Completed: decimal.NewFromInt(1),
		})
		assert.ErrorIs(t, err, schedule.ErrWindowNotFound)
		assert.Contains(t, err.Error(), "missing")
	})

	t.Run("unknown group", func(t *testing.T) {
		_, err := upd.UpdateVarietyProgress(ctx, schedule.ProgressUpdate{
			WindowID:  w.ID,
			GroupRef:  "missing-group",
			Completed: decimal.NewFromInt(1),
		})
		assert.ErrorIs(t, err, schedule.ErrGroupNotFound)
	})

	t.Run("unknown variety", func(t *testing.T) {
		_, err := upd.UpdateVarietyProgress(ctx, schedule.ProgressUpdate{
			WindowID:   w.ID,
			GroupRef:   groupRef,
			VarietyRef: "missing-variety",
			Completed:  decimal.NewFromInt(1),
		})
		assert.ErrorIs(t, err, schedule.ErrVarietyNotFound)
	})
}

func TestUpdateVarietyProgress_EqualToTotal_Allowed(t *testing.T) {
	// Completed == total is the boundary case and must pass.
	mem, w, groupRef, varietyRef := seedWindow(t)
	upd := schedule.NewUpdater(mem)

	got, err := upd.UpdateVarietyProgress(context.Background(), schedule.ProgressUpdate{
		WindowID:   w.ID,
		GroupRef:   groupRef,
		VarietyRef: varietyRef,
		Completed:  decimal.NewFromInt(15),
	})

	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.NewFromInt(15)))
}
