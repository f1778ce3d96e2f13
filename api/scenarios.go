/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Each scenario creates farmers, catalog
	entries, and bookings that demonstrate specific features.

AVAILABLE SCENARIOS:

	fresh-season:   Catalog only; the first schedule fetch seeds windows
	busy-week:      Several bookings landing in the same 5-day window
	payments:       Bookings in different payment states

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create crop groups and varieties
 3. Create farmers
 4. Create bookings through the booking service so the schedule
    aggregation runs exactly as in production

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "busy-week"}

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Shared helpers and handler context
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/farmdesk/crop-engine/booking"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "fresh-season",
		Name:        "Fresh Season",
		Description: "Crop catalog and farmers only; windows seed on first schedule fetch",
	},
	{
		ID:          "busy-week",
		Name:        "Busy Week",
		Description: "Several bookings sowing in the same 5-day window",
	},
	{
		ID:          "payments",
		Name:        "Payments",
		Description: "Bookings in different payment states (advance, partial, settled)",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	if h.currentScenario == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	for _, s := range scenarios {
		if s.ID == h.currentScenario {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the database and loads the selected scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}

	var err error
	switch req.ScenarioID {
	case "fresh-season":
		err = h.loadFreshSeason(ctx)
	case "busy-week":
		err = h.loadBusyWeek(ctx)
	case "payments":
		err = h.loadPayments(ctx)
	default:
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("Unknown scenario %q", req.ScenarioID), nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	h.currentScenario = req.ScenarioID
	writeJSON(w, http.StatusOK, map[string]string{
		"message":  "Scenario loaded",
		"scenario": req.ScenarioID,
	})
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"message": "Database reset"})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// seedCatalog creates the standard demo crop groups and varieties.
func (h *Handler) seedCatalog(ctx context.Context) error {
	catalog := map[string][]string{
		"Vegetables": {"Tomato Hybrid-62", "Okra Radhika", "Chilli Sitara"},
		"Flowers":    {"Marigold Orange", "Chrysanthemum White"},
	}
	for group, varieties := range catalog {
		ref, err := h.Store.ResolveOrCreateGroup(ctx, group)
		if err != nil {
			return err
		}
		for _, v := range varieties {
			if _, err := h.Store.ResolveOrCreateVariety(ctx, ref, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// seedFarmers creates the standard demo farmers and returns them.
func (h *Handler) seedFarmers(ctx context.Context) ([]*booking.Farmer, error) {
	names := []struct {
		name  string
		phone string
	}{
		{"Ramesh Patil", "9822011001"},
		{"Suresh Jadhav", "9822011002"},
		{"Anita Deshmukh", "9822011003"},
	}

	farmers := make([]*booking.Farmer, 0, len(names))
	for _, n := range names {
		f := &booking.Farmer{
			ID:        uuid.NewString(),
			FullName:  n.name,
			Phone:     n.phone,
			Status:    booking.FarmerStatusNew,
			CreatedAt: time.Now().UTC(),
		}
		if err := h.Store.SaveFarmer(ctx, f); err != nil {
			return nil, err
		}
		farmers = append(farmers, f)
	}
	return farmers, nil
}

func (h *Handler) loadFreshSeason(ctx context.Context) error {
	if err := h.seedCatalog(ctx); err != nil {
		return err
	}
	_, err := h.seedFarmers(ctx)
	return err
}

func (h *Handler) loadBusyWeek(ctx context.Context) error {
	if err := h.seedCatalog(ctx); err != nil {
		return err
	}
	farmers, err := h.seedFarmers(ctx)
	if err != nil {
		return err
	}

	// All three bookings sow within the same 5-day bucket, so the schedule
	// collapses them into one window.
	sowing := time.Now().AddDate(0, 0, 3)
	for i, f := range farmers {
		_, err := h.Bookings.Create(ctx, booking.CreateInput{
			FarmerID:    f.ID,
			CropGroup:   "Vegetables",
			PlotNumber:  fmt.Sprintf("P-%d", i+1),
			LotNumber:   fmt.Sprintf("L-%d", i+1),
			BookingDate: time.Now().UTC(),
			SowingDate:  &sowing,
			LineItems: []booking.LineItem{
				{
					VarietyName: "Tomato Hybrid-62",
					Quantity:    decimal.NewFromInt(int64(10 * (i + 1))),
					RatePerUnit: decimal.NewFromInt(4),
				},
			},
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadPayments(ctx context.Context) error {
	if err := h.seedCatalog(ctx); err != nil {
		return err
	}
	farmers, err := h.seedFarmers(ctx)
	if err != nil {
		return err
	}

	sowing := time.Now().AddDate(0, 0, 2)
	bookings := make([]*booking.Booking, 0, len(farmers))
	for i, f := range farmers {
		b, err := h.Bookings.Create(ctx, booking.CreateInput{
			FarmerID:       f.ID,
			CropGroup:      "Flowers",
			PlotNumber:     fmt.Sprintf("P-%d", i+1),
			LotNumber:      fmt.Sprintf("L-%d", i+1),
			BookingDate:    time.Now().UTC(),
			SowingDate:     &sowing,
			AdvancePayment: decimal.NewFromInt(100),
			LineItems: []booking.LineItem{
				{
					VarietyName: "Marigold Orange",
					Quantity:    decimal.NewFromInt(50),
					RatePerUnit: decimal.NewFromInt(6),
				},
			},
		})
		if err != nil {
			return err
		}
		bookings = append(bookings, b)
	}

	// First booking gets a partial payment, second is settled in full.
	if _, err := h.Bookings.Pay(ctx, bookings[0].ID, decimal.NewFromInt(50), "cash", "partial"); err != nil {
		return err
	}
	if _, err := h.Bookings.Pay(ctx, bookings[1].ID, bookings[1].PendingPayment, "upi", "settled"); err != nil {
		return err
	}
	return nil
}
