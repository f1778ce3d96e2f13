/*
handlers.go - HTTP API handlers for the crop-booking system

PURPOSE:
  Exposes farmers, bookings, schedule windows, and nutrient stock via a
  REST API. Handles HTTP request/response, JSON serialization, and delegates
  to domain logic.

ENDPOINTS:
  Farmers:
    GET    /api/farmers                List all farmers
    POST   /api/farmers                Create farmer
    GET    /api/farmers/{id}           Get farmer details
    PUT    /api/farmers/{id}           Update farmer
    PUT    /api/farmers/{id}/status    Set farmer season status
    DELETE /api/farmers/{id}           Delete farmer

  Bookings:
    GET    /api/bookings               List all bookings
    POST   /api/bookings               Create booking (feeds the schedule)
    GET    /api/bookings/{id}          Get booking details
    POST   /api/bookings/{id}/pay      Apply a payment
    POST   /api/bookings/{id}/promote  Advance the farmer's status
    DELETE /api/bookings/{id}          Delete booking

  Schedules:
    GET    /api/schedules              Ongoing and upcoming 5-day windows
    PATCH  /api/schedules/update       Action envelope; only
                                       updateVarietyProgress is accepted

  Nutrients:
    GET    /api/nutrients              List nutrient stock
    POST   /api/nutrients              Create or update stock record
    DELETE /api/nutrients/{id}         Delete stock record

  Scenarios:
    GET    /api/scenarios              List demo scenarios
    POST   /api/scenarios/load         Load a demo scenario

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, progress exceeding planned total
  - 404: Unknown farmer, booking, window, group, or variety
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/farmdesk/crop-engine/booking"
	"github.com/farmdesk/crop-engine/schedule"
	"github.com/farmdesk/crop-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     *sqlite.Store
	Bookings  *booking.Service
	Presenter *schedule.Presenter
	Progress  *schedule.Updater

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler wires the domain services on top of the given store.
func NewHandler(store *sqlite.Store) *Handler {
	agg := schedule.NewAggregator(store, store)
	return &Handler{
		Store:     store,
		Bookings:  booking.NewService(store, store, store, store, agg),
		Presenter: schedule.NewPresenter(store, store, store),
		Progress:  schedule.NewUpdater(store),
	}
}

// =============================================================================
// FARMER HANDLERS
// =============================================================================

// ListFarmers returns all farmers.
func (h *Handler) ListFarmers(w http.ResponseWriter, r *http.Request) {
	farmers, err := h.Store.ListFarmers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list farmers", err)
		return
	}

	dtos := make([]FarmerDTO, len(farmers))
	for i, f := range farmers {
		dtos[i] = farmerDTO(f)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateFarmer creates a new farmer with status "new".
func (h *Handler) CreateFarmer(w http.ResponseWriter, r *http.Request) {
	var req SaveFarmerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.FullName == "" {
		writeError(w, http.StatusBadRequest, "fullName is required", nil)
		return
	}

	f := &booking.Farmer{
		ID:        uuid.NewString(),
		FullName:  req.FullName,
		Phone:     req.Phone,
		Email:     req.Email,
		Address:   req.Address,
		Status:    booking.FarmerStatusNew,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.Store.SaveFarmer(r.Context(), f); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create farmer", err)
		return
	}
	writeJSON(w, http.StatusCreated, farmerDTO(f))
}

// GetFarmer returns a single farmer.
func (h *Handler) GetFarmer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	f, err := h.Store.GetFarmer(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get farmer", err)
		return
	}
	if f == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Farmer %s not found", id), nil)
		return
	}
	writeJSON(w, http.StatusOK, farmerDTO(f))
}

// UpdateFarmer updates a farmer's contact details.
func (h *Handler) UpdateFarmer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req SaveFarmerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	f, err := h.Store.GetFarmer(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get farmer", err)
		return
	}
	if f == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Farmer %s not found", id), nil)
		return
	}

	if req.FullName != "" {
		f.FullName = req.FullName
	}
	f.Phone = req.Phone
	f.Email = req.Email
	f.Address = req.Address

	if err := h.Store.SaveFarmer(r.Context(), f); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update farmer", err)
		return
	}
	writeJSON(w, http.StatusOK, farmerDTO(f))
}

// UpdateFarmerStatus sets a farmer's season status. Marking a farmer
// completed clears pending payments across their bookings.
func (h *Handler) UpdateFarmerStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpdateFarmerStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	err := h.Bookings.SetFarmerStatus(r.Context(), id, booking.FarmerStatus(req.Status))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	f, err := h.Store.GetFarmer(r.Context(), id)
	if err != nil || f == nil {
		writeError(w, http.StatusInternalServerError, "Failed to reload farmer", err)
		return
	}
	writeJSON(w, http.StatusOK, farmerDTO(f))
}

// DeleteFarmer removes a farmer record.
func (h *Handler) DeleteFarmer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.Store.DeleteFarmer(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete farmer", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Farmer deleted"})
}

// =============================================================================
// BOOKING HANDLERS
// =============================================================================

// ListBookings returns all bookings.
func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.Bookings.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list bookings", err)
		return
	}

	dtos := make([]BookingDTO, len(bookings))
	for i, b := range bookings {
		dtos[i] = bookingDTO(b)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateBooking creates a booking and feeds the schedule aggregator.
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	bookingDate, err := parseDate(req.BookingDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid bookingDate", err)
		return
	}

	var sowingDate *time.Time
	if req.SowingDate != "" {
		// An unparseable sowing date is dropped rather than rejected; the
		// aggregator then falls back to the booking date.
		if t, err := parseDate(req.SowingDate); err == nil {
			sowingDate = &t
		}
	}

	items := make([]booking.LineItem, len(req.LineItems))
	for i, li := range req.LineItems {
		items[i] = booking.LineItem{
			VarietyName: li.Name,
			Quantity:    li.Quantity,
			RatePerUnit: li.RatePerUnit,
		}
	}

	b, err := h.Bookings.Create(r.Context(), booking.CreateInput{
		FarmerID:        req.FarmerID,
		CropGroup:       req.CropGroup,
		PlotNumber:      req.PlotNumber,
		LotNumber:       req.LotNumber,
		BookingDate:     bookingDate,
		SowingDate:      sowingDate,
		LineItems:       items,
		FinalTotalPrice: req.FinalTotalPrice,
		TotalPayment:    req.TotalPayment,
		AdvancePayment:  req.AdvancePayment,
		PendingPayment:  req.PendingPayment,
		VehicleNumber:   req.VehicleNumber,
		DriverName:      req.DriverName,
		StartKm:         req.StartKm,
		EndKm:           req.EndKm,
		PaymentMethod:   req.PaymentMethod,
		PaymentNotes:    req.PaymentNotes,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, bookingDTO(b))
}

// GetBooking returns a single booking.
func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	b, err := h.Bookings.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bookingDTO(b))
}

// PayBooking applies a payment to a booking's pending balance.
func (h *Handler) PayBooking(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req PayBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result, err := h.Bookings.Pay(r.Context(), id, req.Amount, req.Method, req.Notes)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, PayBookingResponse{
		Booking:  bookingDTO(result.Booking),
		Applied:  result.Applied.InexactFloat64(),
		IncomeID: result.IncomeID,
	})
}

// PromoteBooking advances the booking's farmer one status step.
func (h *Handler) PromoteBooking(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	next, err := h.Bookings.Promote(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PromoteBookingResponse{FarmerStatus: string(next)})
}

// DeleteBooking removes a booking record.
func (h *Handler) DeleteBooking(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.Bookings.Delete(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Booking deleted"})
}

// =============================================================================
// SCHEDULE HANDLERS
// =============================================================================

// GetSchedules returns the flattened ongoing and upcoming windows, seeding
// defaults and backfilling variety lists on the way.
func (h *Handler) GetSchedules(w http.ResponseWriter, r *http.Request) {
	views, err := h.Presenter.OngoingAndUpcoming(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load schedules", err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// UpdateSchedule handles the schedule action envelope. Only the
// updateVarietyProgress action is supported; anything else is rejected.
func (h *Handler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	var req UpdateScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if req.Action != "updateVarietyProgress" {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("Unsupported action %q", req.Action), nil)
		return
	}

	completed, err := h.Progress.UpdateVarietyProgress(r.Context(), schedule.ProgressUpdate{
		WindowID:   schedule.WindowID(req.Payload.ScheduleID),
		GroupRef:   schedule.GroupRef(req.Payload.GroupID),
		VarietyRef: schedule.VarietyRef(req.Payload.VarietyID),
		Completed:  req.Payload.CompletedQuantity,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, UpdateProgressResponse{
		ScheduleID: req.Payload.ScheduleID,
		VarietyID:  req.Payload.VarietyID,
		Completed:  completed.InexactFloat64(),
	})
}

// =============================================================================
// NUTRIENT HANDLERS
// =============================================================================

// ListNutrients returns all nutrient stock records.
func (h *Handler) ListNutrients(w http.ResponseWriter, r *http.Request) {
	stock, err := h.Store.ListNutrientStock(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list nutrient stock", err)
		return
	}

	dtos := make([]NutrientDTO, len(stock))
	for i, n := range stock {
		dtos[i] = NutrientDTO{
			ID:          n.ID,
			Name:        n.Name,
			Quantity:    n.Quantity.InexactFloat64(),
			Unit:        n.Unit,
			LastUpdated: n.LastUpdated.Format(time.RFC3339),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SaveNutrient creates or updates a nutrient stock record.
func (h *Handler) SaveNutrient(w http.ResponseWriter, r *http.Request) {
	var req SaveNutrientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	n := &sqlite.NutrientStock{
		ID:       id,
		Name:     req.Name,
		Quantity: req.Quantity,
		Unit:     req.Unit,
	}
	if err := h.Store.SaveNutrientStock(r.Context(), n); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save nutrient stock", err)
		return
	}
	writeJSON(w, http.StatusCreated, NutrientDTO{
		ID:       n.ID,
		Name:     n.Name,
		Quantity: n.Quantity.InexactFloat64(),
		Unit:     n.Unit,
	})
}

// DeleteNutrient removes a nutrient stock record.
func (h *Handler) DeleteNutrient(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.Store.DeleteNutrientStock(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete nutrient stock", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Nutrient stock deleted"})
}

// =============================================================================
// HELPERS
// =============================================================================

func farmerDTO(f *booking.Farmer) FarmerDTO {
	return FarmerDTO{
		ID:        f.ID,
		FullName:  f.FullName,
		Phone:     f.Phone,
		Email:     f.Email,
		Address:   f.Address,
		Status:    string(f.Status),
		CreatedAt: f.CreatedAt.Format(time.RFC3339),
	}
}

func bookingDTO(b *booking.Booking) BookingDTO {
	items := make([]LineItemDTO, len(b.LineItems))
	for i, li := range b.LineItems {
		items[i] = LineItemDTO{
			Name:        li.VarietyName,
			Quantity:    li.Quantity,
			RatePerUnit: li.RatePerUnit,
		}
	}

	dto := BookingDTO{
		ID:              b.ID,
		FarmerID:        b.FarmerID,
		CropGroupID:     b.CropGroupID,
		PlotNumber:      b.PlotNumber,
		LotNumber:       b.LotNumber,
		BookingDate:     b.BookingDate.Format("2006-01-02"),
		LineItems:       items,
		FinalTotalPrice: b.FinalTotalPrice.InexactFloat64(),
		TotalPayment:    b.TotalPayment.InexactFloat64(),
		AdvancePayment:  b.AdvancePayment.InexactFloat64(),
		PendingPayment:  b.PendingPayment.InexactFloat64(),
		VehicleNumber:   b.VehicleNumber,
		DriverName:      b.DriverName,
		StartKm:         b.StartKm,
		EndKm:           b.EndKm,
		PaymentMethod:   b.PaymentMethod,
		PaymentNotes:    b.PaymentNotes,
		CreatedAt:       b.CreatedAt.Format(time.RFC3339),
	}
	if b.SowingDate != nil {
		dto.SowingDate = b.SowingDate.Format("2006-01-02")
	}
	return dto
}

// parseDate accepts plain dates and RFC 3339 timestamps.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// writeDomainError maps domain sentinel errors to HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	var exceeds *schedule.ExceedsPlannedError
	switch {
	case errors.As(err, &exceeds):
		writeError(w, http.StatusBadRequest, exceeds.Error(), nil)
	case errors.Is(err, booking.ErrInvalidInput),
		errors.Is(err, booking.ErrInvalidStatus),
		errors.Is(err, schedule.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, booking.ErrFarmerNotFound),
		errors.Is(err, booking.ErrBookingNotFound),
		errors.Is(err, schedule.ErrWindowNotFound),
		errors.Is(err, schedule.ErrGroupNotFound),
		errors.Is(err, schedule.ErrVarietyNotFound):
		writeError(w, http.StatusNotFound, err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
