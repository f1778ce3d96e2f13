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

func fixedNow() time.Time {
	return time.Date(2024, time.March, 7, 15, 0, 0, 0, time.UTC)
}

func newPresenter(t *testing.T) (*schedule.Presenter, *schedstore.Memory) {
	t.Helper()
	mem := schedstore.NewMemory()
	p := schedule.NewPresenter(mem, mem, mem)
	p.Now = fixedNow
	return p, mem
}

func TestOngoingAndUpcoming_SeedsFourWindows(t *testing.T) {
	// GIVEN an empty window store and a catalog with one group
	p, mem := newPresenter(t)
	ctx := context.Background()

	groupRef, err := mem.ResolveOrCreateGroup(ctx, "Vegetables")
	require.NoError(t, err)
	_, err = mem.ResolveOrCreateVariety(ctx, groupRef, "Tomato-X")
	require.NoError(t, err)

	// WHEN the schedule view is requested
	views, err := p.OngoingAndUpcoming(ctx)
	require.NoError(t, err)

	// THEN four consecutive 5-day windows were seeded from today
	require.Len(t, views, 4)
	assert.Equal(t, "ongoing", views[0].Status)
	for i := 1; i < 4; i++ {
		assert.Equal(t, "pending", views[i].Status)
	}

	for i, v := range views {
		wantStart := time.Date(2024, time.March, 7+i*5, 0, 0, 0, 0, time.UTC)
		assert.True(t, v.StartDate.Equal(wantStart), "window %d start = %v", i, v.StartDate)
	}

	// AND each window carries the catalog group with a zeroed variety entry
	for _, v := range views {
		require.Len(t, v.Groups, 1)
		require.Len(t, v.Groups[0].Varieties, 1)
		assert.Equal(t, "Tomato-X", v.Groups[0].Varieties[0].VarietyName)
		assert.Zero(t, v.Groups[0].Varieties[0].Total)
	}
}

func TestOngoingAndUpcoming_EmptyCatalog_NoSeeding(t *testing.T) {
	// GIVEN no crop groups at all
	p, _ := newPresenter(t)

	views, err := p.OngoingAndUpcoming(context.Background())
	require.NoError(t, err)

	// THEN there is nothing to plan and nothing is created
	assert.Empty(t, views)
}

func TestOngoingAndUpcoming_BackfillIsIdempotent(t *testing.T) {
	// GIVEN a window created by aggregation before the catalog grew
	p, mem := newPresenter(t)
	ctx := context.Background()
	agg := schedule.NewAggregator(mem, mem)

	groupRef, err := mem.ResolveOrCreateGroup(ctx, "Vegetables")
	require.NoError(t, err)

	sowing := time.Date(2024, time.March, 8, 0, 0, 0, 0, time.UTC)
	err = agg.ApplyBooking(ctx, schedule.BookingCreated{
		BookingID:    "b-1",
		FarmerID:     "f-1",
		CropGroupRef: groupRef,
		LineItems: []schedule.LineItem{
			{VarietyName: "Tomato-X", Quantity: decimal.NewFromInt(10)},
		},
		SowingDate: &sowing,
	})
	require.NoError(t, err)

	// WHEN the view is fetched twice
	first, err := p.OngoingAndUpcoming(ctx)
	require.NoError(t, err)
	second, err := p.OngoingAndUpcoming(ctx)
	require.NoError(t, err)

	// THEN the second fetch added nothing
	require.Len(t, second, len(first))
	for i := range first {
		require.Len(t, second[i].Groups, len(first[i].Groups))
		for j := range first[i].Groups {
			assert.Len(t, second[i].Groups[j].Varieties, len(first[i].Groups[j].Varieties))
		}
	}
}

func TestOngoingAndUpcoming_FlattensNames(t *testing.T) {
	// GIVEN an aggregated contribution from a known farmer
	p, mem := newPresenter(t)
	ctx := context.Background()
	agg := schedule.NewAggregator(mem, mem)

	groupRef, err := mem.ResolveOrCreateGroup(ctx, "Vegetables")
	require.NoError(t, err)
	mem.PutFarmer("f-1", "Ramesh Patil")

	sowing := time.Date(2024, time.March, 8, 0, 0, 0, 0, time.UTC)
	err = agg.ApplyBooking(ctx, schedule.BookingCreated{
		BookingID:    "b-1",
		FarmerID:     "f-1",
		CropGroupRef: groupRef,
		LineItems: []schedule.LineItem{
			{VarietyName: "Tomato-X", Quantity: decimal.NewFromInt(10)},
		},
		SowingDate: &sowing,
	})
	require.NoError(t, err)

	views, err := p.OngoingAndUpcoming(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, views)

	// THEN the contribution carries the resolved farmer name and a float total
	var found bool
	for _, w := range views {
		for _, g := range w.Groups {
			for _, v := range g.Varieties {
				for _, c := range v.Bookings {
					if c.BookingID == "b-1" {
						found = true
						assert.Equal(t, "Ramesh Patil", c.FarmerName)
						assert.Equal(t, 10.0, c.Quantity)
					}
				}
			}
		}
	}
	assert.True(t, found, "aggregated contribution missing from view")
}

func TestOngoingAndUpcoming_UnknownFarmer_Fallback(t *testing.T) {
	// GIVEN a contribution whose farmer is not in the directory
	p, mem := newPresenter(t)
	ctx := context.Background()
	agg := schedule.NewAggregator(mem, mem)

	groupRef, err := mem.ResolveOrCreateGroup(ctx, "Vegetables")
	require.NoError(t, err)

	sowing := time.Date(2024, time.March, 8, 0, 0, 0, 0, time.UTC)
	err = agg.ApplyBooking(ctx, schedule.BookingCreated{
		BookingID:    "b-1",
		FarmerID:     "ghost",
		CropGroupRef: groupRef,
		LineItems: []schedule.LineItem{
			{VarietyName: "Tomato-X", Quantity: decimal.NewFromInt(3)},
		},
		SowingDate: &sowing,
	})
	require.NoError(t, err)

	views, err := p.OngoingAndUpcoming(ctx)
	require.NoError(t, err)

	// THEN the view falls back to a positional display name
	for _, w := range views {
		for _, g := range w.Groups {
			for _, v := range g.Varieties {
				for _, c := range v.Bookings {
					if c.BookingID == "b-1" {
						assert.Equal(t, "Farmer 1", c.FarmerName)
					}
				}
			}
		}
	}
}
