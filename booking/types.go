/*
Package booking implements the crop-booking workflows: creation with price
calculation, payment application, farmer status promotion, and deletion.

Booking creation feeds the schedule aggregation engine as a best-effort side
effect: the booking is durably written first, then the aggregator runs, and
an aggregation failure is logged without failing the booking.
*/
package booking

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// FARMER
// =============================================================================

// FarmerStatus tracks a farmer through the season.
type FarmerStatus string

const (
	FarmerStatusNew       FarmerStatus = "new"
	FarmerStatusPending   FarmerStatus = "pending"
	FarmerStatusSowing    FarmerStatus = "sowing"
	FarmerStatusCompleted FarmerStatus = "completed"
)

// ValidFarmerStatus reports whether s is one of the known statuses.
func ValidFarmerStatus(s FarmerStatus) bool {
	switch s {
	case FarmerStatusNew, FarmerStatusPending, FarmerStatusSowing, FarmerStatusCompleted:
		return true
	}
	return false
}

type Farmer struct {
	ID        string
	FullName  string
	Phone     string
	Email     string
	Address   string
	Status    FarmerStatus
	CreatedAt time.Time
}

// =============================================================================
// BOOKING
// =============================================================================

// LineItem is one variety line of a booking.
type LineItem struct {
	VarietyName string          `json:"name"`
	Quantity    decimal.Decimal `json:"quantity"`
	RatePerUnit decimal.Decimal `json:"ratePerUnit"`
}

type Booking struct {
	ID              string
	FarmerID        string
	CropGroupID     string
	PlotNumber      string
	LotNumber       string
	BookingDate     time.Time
	SowingDate      *time.Time
	LineItems       []LineItem
	FinalTotalPrice decimal.Decimal
	TotalPayment    decimal.Decimal
	AdvancePayment  decimal.Decimal
	PendingPayment  decimal.Decimal
	VehicleNumber   string
	DriverName      string
	StartKm         int
	EndKm           int
	PaymentMethod   string
	PaymentNotes    string
	CreatedAt       time.Time
}

// TotalQuantity sums the line-item quantities.
func (b *Booking) TotalQuantity() decimal.Decimal {
	total := decimal.Zero
	for _, li := range b.LineItems {
		total = total.Add(li.Quantity)
	}
	return total
}

// CalculatedAmount is the sum of quantity * rate over line items.
func (b *Booking) CalculatedAmount() decimal.Decimal {
	total := decimal.Zero
	for _, li := range b.LineItems {
		total = total.Add(li.Quantity.Mul(li.RatePerUnit))
	}
	return total
}

// =============================================================================
// INCOME
// =============================================================================

// Income records revenue realized when a booking is fully paid or completed.
type Income struct {
	ID        string
	Date      time.Time
	Amount    decimal.Decimal
	BookingID string
	FarmerID  string
}
