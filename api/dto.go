/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Farmer:
    FarmerDTO, SaveFarmerRequest, UpdateFarmerStatusRequest

  Booking:
    BookingDTO, LineItemDTO, CreateBookingRequest, PayBookingRequest

  Schedule:
    UpdateScheduleRequest with an action envelope; the window views come
    straight from schedule.WindowView

  Nutrients:
    NutrientDTO, SaveNutrientRequest

  Scenarios:
    ScenarioDTO, LoadScenarioRequest

VALIDATION:
  Validation is done in handlers and domain services, not in DTOs.
  DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - schedule/presenter.go: WindowView returned by GET /api/schedules
*/
package api

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// FARMER TYPES
// =============================================================================

// FarmerDTO represents a farmer in API responses.
type FarmerDTO struct {
	ID        string `json:"id"`
	FullName  string `json:"fullName"`
	Phone     string `json:"phone,omitempty"`
	Email     string `json:"email,omitempty"`
	Address   string `json:"address,omitempty"`
	Status    string `json:"status"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// SaveFarmerRequest is the request to create or update a farmer.
type SaveFarmerRequest struct {
	FullName string `json:"fullName"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Address  string `json:"address"`
}

// UpdateFarmerStatusRequest sets a farmer's season status.
type UpdateFarmerStatusRequest struct {
	Status string `json:"status"`
}

// =============================================================================
// BOOKING TYPES
// =============================================================================

// LineItemDTO is one variety line of a booking.
type LineItemDTO struct {
	Name        string          `json:"name"`
	Quantity    decimal.Decimal `json:"quantity"`
	RatePerUnit decimal.Decimal `json:"ratePerUnit"`
}

// BookingDTO represents a booking in API responses.
type BookingDTO struct {
	ID              string        `json:"id"`
	FarmerID        string        `json:"farmerId"`
	CropGroupID     string        `json:"cropGroupId"`
	PlotNumber      string        `json:"plotNumber"`
	LotNumber       string        `json:"lotNumber"`
	BookingDate     string        `json:"bookingDate,omitempty"`
	SowingDate      string        `json:"sowingDate,omitempty"`
	LineItems       []LineItemDTO `json:"varieties"`
	FinalTotalPrice float64       `json:"finalTotalPrice"`
	TotalPayment    float64       `json:"totalPayment"`
	AdvancePayment  float64       `json:"advancePayment"`
	PendingPayment  float64       `json:"pendingPayment"`
	VehicleNumber   string        `json:"vehicleNumber,omitempty"`
	DriverName      string        `json:"driverName,omitempty"`
	StartKm         int           `json:"startKm,omitempty"`
	EndKm           int           `json:"endKm,omitempty"`
	PaymentMethod   string        `json:"paymentMethod,omitempty"`
	PaymentNotes    string        `json:"paymentNotes,omitempty"`
	CreatedAt       string        `json:"createdAt,omitempty"`
}

// CreateBookingRequest is the request to create a booking. CropGroup accepts
// an existing group id or a plain group name.
type CreateBookingRequest struct {
	FarmerID        string           `json:"farmerId"`
	CropGroup       string           `json:"cropGroup"`
	PlotNumber      string           `json:"plotNumber"`
	LotNumber       string           `json:"lotNumber"`
	BookingDate     string           `json:"bookingDate"`
	SowingDate      string           `json:"sowingDate,omitempty"`
	LineItems       []LineItemDTO    `json:"varieties"`
	FinalTotalPrice decimal.Decimal  `json:"finalTotalPrice"`
	TotalPayment    decimal.Decimal  `json:"totalPayment"`
	AdvancePayment  decimal.Decimal  `json:"advancePayment"`
	PendingPayment  *decimal.Decimal `json:"pendingPayment,omitempty"`
	VehicleNumber   string           `json:"vehicleNumber,omitempty"`
	DriverName      string           `json:"driverName,omitempty"`
	StartKm         int              `json:"startKm,omitempty"`
	EndKm           int              `json:"endKm,omitempty"`
	PaymentMethod   string           `json:"paymentMethod,omitempty"`
	PaymentNotes    string           `json:"paymentNotes,omitempty"`
}

// PayBookingRequest applies a payment to a booking's pending balance.
type PayBookingRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Method string          `json:"method,omitempty"`
	Notes  string          `json:"notes,omitempty"`
}

// PayBookingResponse reports the state after a payment was applied.
type PayBookingResponse struct {
	Booking  BookingDTO `json:"booking"`
	Applied  float64    `json:"appliedAmount"`
	IncomeID string     `json:"incomeId,omitempty"`
}

// PromoteBookingResponse reports the farmer status after a promotion.
type PromoteBookingResponse struct {
	FarmerStatus string `json:"farmerStatus"`
}

// =============================================================================
// SCHEDULE TYPES
// =============================================================================

// UpdateScheduleRequest is the action envelope for schedule mutations.
// Only the updateVarietyProgress action is supported.
type UpdateScheduleRequest struct {
	Action  string                `json:"action"`
	Payload UpdateProgressPayload `json:"payload"`
}

// UpdateProgressPayload identifies one variety entry and the absolute
// completed quantity to assign.
type UpdateProgressPayload struct {
	ScheduleID        string          `json:"scheduleId"`
	GroupID           string          `json:"groupId"`
	VarietyID         string          `json:"varietyId"`
	CompletedQuantity decimal.Decimal `json:"completedQuantity"`
}

// UpdateProgressResponse echoes the stored completed value.
type UpdateProgressResponse struct {
	ScheduleID string  `json:"scheduleId"`
	VarietyID  string  `json:"varietyId"`
	Completed  float64 `json:"completed"`
}

// =============================================================================
// NUTRIENT TYPES
// =============================================================================

// NutrientDTO represents a nutrient stock record in API responses.
type NutrientDTO struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit,omitempty"`
	LastUpdated string  `json:"lastUpdated,omitempty"`
}

// SaveNutrientRequest creates or updates a nutrient stock record.
type SaveNutrientRequest struct {
	ID       string          `json:"id,omitempty"`
	Name     string          `json:"name"`
	Quantity decimal.Decimal `json:"quantity"`
	Unit     string          `json:"unit,omitempty"`
}

// =============================================================================
// SCENARIO TYPES
// =============================================================================

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
