package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmdesk/crop-engine/booking"
	"github.com/farmdesk/crop-engine/schedule"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testWindow(start time.Time) *schedule.Window {
	end := start.AddDate(0, 0, 4)
	return &schedule.Window{
		ID:        schedule.WindowID("w-" + start.Format("20060102")),
		Name:      "Schedule (" + start.Format("2 Jan") + " - " + end.Format("2 Jan") + ")",
		StartDate: start,
		EndDate:   end,
		Status:    schedule.StatusPending,
	}
}

// =============================================================================
// WINDOW STORE
// =============================================================================

func TestCreateIfAbsent_SecondInsertReturnsFirst(t *testing.T) {
	// GIVEN a stored window for a bucket
	store := newTestStore(t)
	ctx := context.Background()
	start := time.Date(2024, time.March, 6, 0, 0, 0, 0, time.UTC)

	first, err := store.CreateIfAbsent(ctx, testWindow(start))
	require.NoError(t, err)

	// WHEN a second window for the same range is inserted
	dup := testWindow(start)
	dup.ID = "w-duplicate"
	second, err := store.CreateIfAbsent(ctx, dup)
	require.NoError(t, err)

	// THEN the stored row wins; the duplicate id never lands
	assert.Equal(t, first.ID, second.ID)

	got, err := store.Get(ctx, schedule.WindowID("w-duplicate"))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSave_VersionConflict(t *testing.T) {
	// GIVEN two readers holding the same window version
	store := newTestStore(t)
	ctx := context.Background()
	start := time.Date(2024, time.March, 6, 0, 0, 0, 0, time.UTC)

	w, err := store.CreateIfAbsent(ctx, testWindow(start))
	require.NoError(t, err)

	stale, err := store.Get(ctx, w.ID)
	require.NoError(t, err)

	// WHEN the first save lands
	w.Name = "renamed"
	require.NoError(t, store.Save(ctx, w))

	// THEN the stale save is rejected with the conflict sentinel
	stale.Name = "stale rename"
	err = store.Save(ctx, stale)
	assert.ErrorIs(t, err, schedule.ErrConcurrentModification)
}

func TestSave_RoundTripsGroups(t *testing.T) {
	// GIVEN a window with nested aggregation state
	store := newTestStore(t)
	ctx := context.Background()
	start := time.Date(2024, time.March, 6, 0, 0, 0, 0, time.UTC)

	w, err := store.CreateIfAbsent(ctx, testWindow(start))
	require.NoError(t, err)

	w.Groups = []schedule.GroupEntry{{
		GroupRef:  "g-1",
		GroupName: "Vegetables",
		Varieties: []schedule.VarietyEntry{{
			VarietyRef:  "v-1",
			VarietyName: "Tomato-X",
			Total:       decimal.NewFromInt(15),
			Completed:   decimal.NewFromInt(3),
			Contributions: []schedule.Contribution{{
				BookingID: "b-1",
				FarmerID:  "f-1",
				Quantity:  decimal.NewFromInt(15),
			}},
		}},
	}}
	require.NoError(t, store.Save(ctx, w))

	// WHEN it is read back
	got, err := store.Get(ctx, w.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	// THEN the document survived intact, decimals included
	require.Len(t, got.Groups, 1)
	v := got.Groups[0].Varieties[0]
	assert.True(t, v.Total.Equal(decimal.NewFromInt(15)))
	assert.True(t, v.Completed.Equal(decimal.NewFromInt(3)))
	require.Len(t, v.Contributions, 1)
	assert.Equal(t, schedule.BookingRef("b-1"), v.Contributions[0].BookingID)
}

func TestListEndingOnOrAfter_FiltersAndOrders(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	past := time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)
	current := time.Date(2024, time.March, 6, 0, 0, 0, 0, time.UTC)
	future := time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC)

	for _, start := range []time.Time{future, past, current} {
		_, err := store.CreateIfAbsent(ctx, testWindow(start))
		require.NoError(t, err)
	}

	got, err := store.ListEndingOnOrAfter(ctx, time.Date(2024, time.March, 7, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.True(t, got[0].StartDate.Equal(current))
	assert.True(t, got[1].StartDate.Equal(future))
}

// =============================================================================
// CATALOG
// =============================================================================

func TestCatalog_GroupResolutionIsStable(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ref1, err := store.ResolveOrCreateGroup(ctx, "Vegetables")
	require.NoError(t, err)
	ref2, err := store.ResolveOrCreateGroup(ctx, "Vegetables")
	require.NoError(t, err)

	assert.Equal(t, ref1, ref2)

	name, err := store.LookupGroupName(ctx, ref1)
	require.NoError(t, err)
	assert.Equal(t, "Vegetables", name)
}

func TestCatalog_VarietyIdentityIsComposite(t *testing.T) {
	// The same variety name under two groups must yield distinct refs.
	store := newTestStore(t)
	ctx := context.Background()

	veg, err := store.ResolveOrCreateGroup(ctx, "Vegetables")
	require.NoError(t, err)
	flw, err := store.ResolveOrCreateGroup(ctx, "Flowers")
	require.NoError(t, err)

	v1, err := store.ResolveOrCreateVariety(ctx, veg, "Local Hybrid")
	require.NoError(t, err)
	v2, err := store.ResolveOrCreateVariety(ctx, flw, "Local Hybrid")
	require.NoError(t, err)
	v1Again, err := store.ResolveOrCreateVariety(ctx, veg, "Local Hybrid")
	require.NoError(t, err)

	assert.NotEqual(t, v1, v2)
	assert.Equal(t, v1, v1Again)

	varieties, err := store.ListVarietiesOfGroup(ctx, veg)
	require.NoError(t, err)
	require.Len(t, varieties, 1)
	assert.Equal(t, v1, varieties[0].Ref)
}

// =============================================================================
// FARMERS AND BOOKINGS
// =============================================================================

func TestFarmer_RoundTripAndDirectory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	f := &booking.Farmer{
		ID:       "f-1",
		FullName: "Ramesh Patil",
		Phone:    "9822011001",
		Status:   booking.FarmerStatusNew,
	}
	require.NoError(t, store.SaveFarmer(ctx, f))

	got, err := store.GetFarmer(ctx, "f-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Ramesh Patil", got.FullName)
	assert.Equal(t, booking.FarmerStatusNew, got.Status)

	require.NoError(t, store.SetFarmerStatus(ctx, "f-1", booking.FarmerStatusSowing))
	got, err = store.GetFarmer(ctx, "f-1")
	require.NoError(t, err)
	assert.Equal(t, booking.FarmerStatusSowing, got.Status)

	name, err := store.LookupFarmerName(ctx, schedule.FarmerRef("f-1"))
	require.NoError(t, err)
	assert.Equal(t, "Ramesh Patil", name)

	name, err = store.LookupFarmerName(ctx, schedule.FarmerRef("ghost"))
	require.NoError(t, err)
	assert.Empty(t, name)
}

func TestBooking_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sowing := time.Date(2024, time.March, 7, 0, 0, 0, 0, time.UTC)
	b := &booking.Booking{
		ID:          "b-1",
		FarmerID:    "f-1",
		CropGroupID: "g-1",
		PlotNumber:  "P-1",
		LotNumber:   "L-1",
		BookingDate: time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		SowingDate:  &sowing,
		LineItems: []booking.LineItem{
			{VarietyName: "Tomato-X", Quantity: decimal.NewFromInt(10), RatePerUnit: decimal.NewFromFloat(4.5)},
		},
		FinalTotalPrice: decimal.NewFromInt(45),
		TotalPayment:    decimal.NewFromInt(45),
		AdvancePayment:  decimal.NewFromInt(10),
		PendingPayment:  decimal.NewFromInt(35),
		PaymentMethod:   "cash",
	}
	require.NoError(t, store.SaveBooking(ctx, b))

	got, err := store.GetBooking(ctx, "b-1")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.True(t, got.BookingDate.Equal(b.BookingDate))
	require.NotNil(t, got.SowingDate)
	assert.True(t, got.SowingDate.Equal(sowing))
	require.Len(t, got.LineItems, 1)
	assert.True(t, got.LineItems[0].RatePerUnit.Equal(decimal.NewFromFloat(4.5)))
	assert.True(t, got.PendingPayment.Equal(decimal.NewFromInt(35)))
}

func TestZeroPendingPayments(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i, pending := range []int64{30, 0, 12} {
		b := &booking.Booking{
			ID:             string(rune('a' + i)),
			FarmerID:       "f-1",
			CropGroupID:    "g-1",
			PlotNumber:     "P",
			LotNumber:      "L",
			BookingDate:    time.Now().UTC(),
			PendingPayment: decimal.NewFromInt(pending),
		}
		require.NoError(t, store.SaveBooking(ctx, b))
	}

	n, err := store.ZeroPendingPayments(ctx, "f-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	all, err := store.ListBookings(ctx)
	require.NoError(t, err)
	for _, b := range all {
		assert.True(t, b.PendingPayment.IsZero())
	}
}

func TestReset_ClearsEverything(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.ResolveOrCreateGroup(ctx, "Vegetables")
	require.NoError(t, err)
	require.NoError(t, store.SaveFarmer(ctx, &booking.Farmer{ID: "f-1", FullName: "Ramesh"}))

	require.NoError(t, store.Reset(ctx))

	groups, err := store.ListGroups(ctx)
	require.NoError(t, err)
	assert.Empty(t, groups)

	f, err := store.GetFarmer(ctx, "f-1")
	require.NoError(t, err)
	assert.Nil(t, f)
}
