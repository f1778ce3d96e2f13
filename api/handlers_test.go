/*
handlers_test.go - End-to-end tests for the HTTP API

Tests run against a real router and an in-memory SQLite store, exercising
the full path from JSON request to aggregation and back.
*/
package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmdesk/crop-engine/api"
	"github.com/farmdesk/crop-engine/schedule"
	"github.com/farmdesk/crop-engine/store/sqlite"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	handler := api.NewHandler(store)
	srv := httptest.NewServer(api.NewRouter(handler, []string{"*"}))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body any, out any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func createFarmer(t *testing.T, srv *httptest.Server, name string) string {
	t.Helper()
	var f struct {
		ID string `json:"id"`
	}
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/farmers",
		map[string]string{"fullName": name, "phone": "9822000000"}, &f)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NotEmpty(t, f.ID)
	return f.ID
}

func createBooking(t *testing.T, srv *httptest.Server, farmerID string, qty int) string {
	t.Helper()
	sowing := time.Now().AddDate(0, 0, 2).Format("2006-01-02")
	var b struct {
		ID string `json:"id"`
	}
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/bookings", map[string]any{
		"farmerId":    farmerID,
		"cropGroup":   "Vegetables",
		"plotNumber":  "P-1",
		"lotNumber":   "L-1",
		"bookingDate": time.Now().Format("2006-01-02"),
		"sowingDate":  sowing,
		"varieties": []map[string]any{
			{"name": "Tomato-X", "quantity": qty, "ratePerUnit": 4},
		},
	}, &b)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return b.ID
}

func fetchSchedules(t *testing.T, srv *httptest.Server) []schedule.WindowView {
	t.Helper()
	var views []schedule.WindowView
	resp := doJSON(t, http.MethodGet, srv.URL+"/api/schedules", nil, &views)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return views
}

func TestGetSchedules_BookingLandsInWindow(t *testing.T) {
	// GIVEN a farmer with one booking sowing in two days
	srv := newTestServer(t)
	farmerID := createFarmer(t, srv, "Ramesh Patil")
	bookingID := createBooking(t, srv, farmerID, 10)

	// WHEN the schedule is fetched
	views := fetchSchedules(t, srv)
	require.NotEmpty(t, views)

	// THEN the booking's contribution appears with resolved names
	var found bool
	for _, w := range views {
		for _, g := range w.Groups {
			for _, v := range g.Varieties {
				for _, c := range v.Bookings {
					if c.BookingID == bookingID {
						found = true
						assert.Equal(t, "Ramesh Patil", c.FarmerName)
						assert.Equal(t, 10.0, c.Quantity)
						assert.Equal(t, "Vegetables", g.GroupName)
					}
				}
			}
		}
	}
	assert.True(t, found, "booking contribution missing from schedule view")
}

func TestUpdateSchedule_Progress(t *testing.T) {
	// GIVEN an aggregated booking of quantity 10
	srv := newTestServer(t)
	farmerID := createFarmer(t, srv, "Ramesh Patil")
	bookingID := createBooking(t, srv, farmerID, 10)

	views := fetchSchedules(t, srv)

	var windowID, groupID, varietyID string
	for _, w := range views {
		for _, g := range w.Groups {
			for _, v := range g.Varieties {
				for _, c := range v.Bookings {
					if c.BookingID == bookingID {
						windowID, groupID, varietyID = w.ID, g.GroupID, v.VarietyID
					}
				}
			}
		}
	}
	require.NotEmpty(t, windowID)

	update := func(completed int) *http.Response {
		return doJSON(t, http.MethodPatch, srv.URL+"/api/schedules/update", map[string]any{
			"action": "updateVarietyProgress",
			"payload": map[string]any{
				"scheduleId":        windowID,
				"groupId":           groupID,
				"varietyId":         varietyID,
				"completedQuantity": completed,
			},
		}, nil)
	}

	// WHEN progress within the total is set
	resp := update(7)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// THEN the view reflects it
	views = fetchSchedules(t, srv)
	for _, w := range views {
		if w.ID != windowID {
			continue
		}
		for _, g := range w.Groups {
			for _, v := range g.Varieties {
				if v.VarietyID == varietyID {
					assert.Equal(t, 7.0, v.Completed)
				}
			}
		}
	}

	// AND exceeding the total is rejected
	resp = update(20)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpdateSchedule_RejectsUnknownAction(t *testing.T) {
	srv := newTestServer(t)

	var errResp struct {
		Error string `json:"error"`
	}
	req := map[string]any{"action": "deleteWindow", "payload": map[string]any{}}
	resp := doJSON(t, http.MethodPatch, srv.URL+"/api/schedules/update", req, &errResp)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, errResp.Error, "deleteWindow")
}

func TestPayAndPromoteBooking(t *testing.T) {
	// GIVEN a booking worth 40 with nothing paid
	srv := newTestServer(t)
	farmerID := createFarmer(t, srv, "Suresh Jadhav")
	bookingID := createBooking(t, srv, farmerID, 10)

	// WHEN the full amount is paid
	var payResp struct {
		Applied  float64 `json:"appliedAmount"`
		IncomeID string  `json:"incomeId"`
	}
	resp := doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/api/bookings/%s/pay", srv.URL, bookingID),
		map[string]any{"amount": 40, "method": "cash"}, &payResp)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// THEN the payment settled and income was recorded
	assert.Equal(t, 40.0, payResp.Applied)
	assert.NotEmpty(t, payResp.IncomeID)

	// AND the farmer is now completed, so promotion is rejected
	resp = doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/api/bookings/%s/promote", srv.URL, bookingID), nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestBookingValidation(t *testing.T) {
	srv := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/bookings", map[string]any{
		"farmerId":    "",
		"cropGroup":   "Vegetables",
		"plotNumber":  "P-1",
		"lotNumber":   "L-1",
		"bookingDate": time.Now().Format("2006-01-02"),
	}, nil)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUnknownFarmer_Is404(t *testing.T) {
	srv := newTestServer(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/farmers/ghost", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestScenario_BusyWeek(t *testing.T) {
	// GIVEN the busy-week scenario
	srv := newTestServer(t)
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/scenarios/load",
		map[string]string{"scenario_id": "busy-week"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// THEN all three bookings collapsed into a single window's variety entry
	views := fetchSchedules(t, srv)
	require.NotEmpty(t, views)

	var contributions int
	for _, w := range views {
		for _, g := range w.Groups {
			for _, v := range g.Varieties {
				contributions += len(v.Bookings)
			}
		}
	}
	assert.Equal(t, 3, contributions)
}
