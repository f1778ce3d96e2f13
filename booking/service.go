/*
service.go - Booking workflows

PURPOSE:
  Orchestrates booking creation, payment, status promotion, and deletion
  against the persistence interfaces. HTTP concerns stay in the api package.

SIDE EFFECTS OF CREATION:
  1. The booking row is written.
  2. The farmer moves to "pending".
  3. The schedule aggregator consumes the BookingCreated fact. This step is
     best-effort: failures are logged and swallowed; the booking stands and
     the discrepancy is repairable through the presenter's backfill.

DELETION:
  Deleting a booking removes the record only. Its contribution stays in the
  schedule window; retraction semantics are deliberately not implemented.

SEE ALSO:
  - schedule/aggregator.go: The consumer of BookingCreated
*/
package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/farmdesk/crop-engine/schedule"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrInvalidInput    = errors.New("invalid booking input")
	ErrFarmerNotFound  = errors.New("farmer not found")
	ErrBookingNotFound = errors.New("booking not found")
	ErrInvalidStatus   = errors.New("invalid status transition")
)

// =============================================================================
// PERSISTENCE INTERFACES
// =============================================================================

type Store interface {
	SaveBooking(ctx context.Context, b *Booking) error
	GetBooking(ctx context.Context, id string) (*Booking, error)
	ListBookings(ctx context.Context) ([]*Booking, error)
	DeleteBooking(ctx context.Context, id string) error

	// ZeroPendingPayments clears pending payments on all of a farmer's
	// bookings, returning how many rows changed.
	ZeroPendingPayments(ctx context.Context, farmerID string) (int64, error)
}

type FarmerStore interface {
	GetFarmer(ctx context.Context, id string) (*Farmer, error)
	SetFarmerStatus(ctx context.Context, id string, status FarmerStatus) error
}

type IncomeStore interface {
	SaveIncome(ctx context.Context, inc *Income) error
}

// =============================================================================
// SERVICE
// =============================================================================

type Service struct {
	Bookings   Store
	Farmers    FarmerStore
	Incomes    IncomeStore
	Catalog    schedule.Catalog
	Aggregator *schedule.Aggregator
}

func NewService(bookings Store, farmers FarmerStore, incomes IncomeStore, catalog schedule.Catalog, agg *schedule.Aggregator) *Service {
	return &Service{
		Bookings:   bookings,
		Farmers:    farmers,
		Incomes:    incomes,
		Catalog:    catalog,
		Aggregator: agg,
	}
}

// CreateInput carries the booking-creation request. CropGroup accepts either
// an existing group id or a group name to find-or-create.
type CreateInput struct {
	FarmerID        string
	CropGroup       string
	PlotNumber      string
	LotNumber       string
	BookingDate     time.Time
	SowingDate      *time.Time
	LineItems       []LineItem
	FinalTotalPrice decimal.Decimal
	TotalPayment    decimal.Decimal
	AdvancePayment  decimal.Decimal
	PendingPayment  *decimal.Decimal
	VehicleNumber   string
	DriverName      string
	StartKm         int
	EndKm           int
	PaymentMethod   string
	PaymentNotes    string
}

// Create validates the input, writes the booking, marks the farmer pending,
// and hands the fact to the schedule aggregator.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Booking, error) {
	switch {
	case in.FarmerID == "":
		return nil, fmt.Errorf("%w: farmerId is required", ErrInvalidInput)
	case in.PlotNumber == "":
		return nil, fmt.Errorf("%w: plotNumber is required", ErrInvalidInput)
	case in.LotNumber == "":
		return nil, fmt.Errorf("%w: lotNumber is required", ErrInvalidInput)
	case in.CropGroup == "":
		return nil, fmt.Errorf("%w: cropGroup is required", ErrInvalidInput)
	case len(in.LineItems) == 0:
		return nil, fmt.Errorf("%w: at least one variety line is required", ErrInvalidInput)
	}

	farmer, err := s.Farmers.GetFarmer(ctx, in.FarmerID)
	if err != nil {
		return nil, err
	}
	if farmer == nil {
		return nil, fmt.Errorf("%w: %s", ErrFarmerNotFound, in.FarmerID)
	}

	groupID, err := s.resolveGroup(ctx, in.CropGroup)
	if err != nil {
		return nil, err
	}

	b := &Booking{
		ID:            uuid.NewString(),
		FarmerID:      farmer.ID,
		CropGroupID:   groupID,
		PlotNumber:    in.PlotNumber,
		LotNumber:     in.LotNumber,
		BookingDate:   in.BookingDate,
		SowingDate:    in.SowingDate,
		LineItems:     in.LineItems,
		VehicleNumber: in.VehicleNumber,
		DriverName:    in.DriverName,
		StartKm:       in.StartKm,
		EndKm:         in.EndKm,
		PaymentMethod: in.PaymentMethod,
		PaymentNotes:  in.PaymentNotes,
		CreatedAt:     time.Now().UTC(),
	}

	calculated := b.CalculatedAmount()
	b.FinalTotalPrice = orDefault(in.FinalTotalPrice, calculated)
	b.TotalPayment = orDefault(in.TotalPayment, calculated)
	b.AdvancePayment = in.AdvancePayment
	if in.PendingPayment != nil {
		b.PendingPayment = *in.PendingPayment
	} else {
		pending := b.FinalTotalPrice.Sub(b.AdvancePayment)
		if pending.IsNegative() {
			pending = decimal.Zero
		}
		b.PendingPayment = pending
	}

	if err := s.Bookings.SaveBooking(ctx, b); err != nil {
		return nil, err
	}

	if err := s.Farmers.SetFarmerStatus(ctx, farmer.ID, FarmerStatusPending); err != nil {
		return nil, err
	}

	// Best-effort schedule update: the booking stands even if this fails.
	if err := s.Aggregator.ApplyBooking(ctx, s.factFor(b)); err != nil {
		log.Printf("schedule aggregation failed for booking %s: %v", b.ID, err)
	}

	return b, nil
}

func (s *Service) resolveGroup(ctx context.Context, cropGroup string) (string, error) {
	if _, err := uuid.Parse(cropGroup); err == nil {
		return cropGroup, nil
	}
	ref, err := s.Catalog.ResolveOrCreateGroup(ctx, cropGroup)
	if err != nil {
		return "", fmt.Errorf("resolve crop group %q: %w", cropGroup, err)
	}
	return string(ref), nil
}

func (s *Service) factFor(b *Booking) schedule.BookingCreated {
	items := make([]schedule.LineItem, len(b.LineItems))
	for i, li := range b.LineItems {
		items[i] = schedule.LineItem{
			VarietyName: li.VarietyName,
			Quantity:    li.Quantity,
			RatePerUnit: li.RatePerUnit,
		}
	}
	return schedule.BookingCreated{
		BookingID:    schedule.BookingRef(b.ID),
		FarmerID:     schedule.FarmerRef(b.FarmerID),
		CropGroupRef: schedule.GroupRef(b.CropGroupID),
		LineItems:    items,
		BookingDate:  b.BookingDate,
		SowingDate:   b.SowingDate,
	}
}

// Get returns a booking or ErrBookingNotFound.
func (s *Service) Get(ctx context.Context, id string) (*Booking, error) {
	b, err := s.Bookings.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, fmt.Errorf("%w: %s", ErrBookingNotFound, id)
	}
	return b, nil
}

// List returns all bookings.
func (s *Service) List(ctx context.Context) ([]*Booking, error) {
	return s.Bookings.ListBookings(ctx)
}

// PayResult reports the state after a payment was applied.
type PayResult struct {
	Booking  *Booking
	Applied  decimal.Decimal
	IncomeID string
}

// Pay applies a payment to a booking's pending balance, capped at the
// balance. Full settlement creates an income record and completes the farmer.
func (s *Service) Pay(ctx context.Context, id string, amount decimal.Decimal, method, notes string) (*PayResult, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: payment amount must be positive", ErrInvalidInput)
	}

	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	applied := decimal.Min(amount, b.PendingPayment)
	b.AdvancePayment = b.AdvancePayment.Add(applied)
	b.PendingPayment = b.PendingPayment.Sub(applied)

	if notes != "" {
		if b.PaymentNotes != "" {
			b.PaymentNotes = b.PaymentNotes + " | " + notes
		} else {
			b.PaymentNotes = notes
		}
	}
	if method != "" {
		b.PaymentMethod = method
	}

	if err := s.Bookings.SaveBooking(ctx, b); err != nil {
		return nil, err
	}

	result := &PayResult{Booking: b, Applied: applied}

	if b.PendingPayment.IsZero() {
		inc := &Income{
			ID:        uuid.NewString(),
			Date:      time.Now().UTC(),
			Amount:    b.FinalTotalPrice,
			BookingID: b.ID,
			FarmerID:  b.FarmerID,
		}
		if err := s.Incomes.SaveIncome(ctx, inc); err != nil {
			return nil, err
		}
		result.IncomeID = inc.ID

		if err := s.Farmers.SetFarmerStatus(ctx, b.FarmerID, FarmerStatusCompleted); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// Promote advances the booking's farmer one step: pending -> sowing ->
// completed. Completion zeroes the booking's pending payment and records
// income.
func (s *Service) Promote(ctx context.Context, id string) (FarmerStatus, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}

	farmer, err := s.Farmers.GetFarmer(ctx, b.FarmerID)
	if err != nil {
		return "", err
	}
	if farmer == nil {
		return "", fmt.Errorf("%w: %s", ErrFarmerNotFound, b.FarmerID)
	}

	var next FarmerStatus
	switch farmer.Status {
	case FarmerStatusPending:
		next = FarmerStatusSowing
	case FarmerStatusSowing:
		next = FarmerStatusCompleted
	default:
		return "", fmt.Errorf("%w: cannot promote from %q", ErrInvalidStatus, farmer.Status)
	}

	if next == FarmerStatusCompleted {
		b.PendingPayment = decimal.Zero
		if err := s.Bookings.SaveBooking(ctx, b); err != nil {
			return "", err
		}
		inc := &Income{
			ID:        uuid.NewString(),
			Date:      time.Now().UTC(),
			Amount:    b.FinalTotalPrice,
			BookingID: b.ID,
			FarmerID:  b.FarmerID,
		}
		if err := s.Incomes.SaveIncome(ctx, inc); err != nil {
			return "", err
		}
	}

	if err := s.Farmers.SetFarmerStatus(ctx, farmer.ID, next); err != nil {
		return "", err
	}
	return next, nil
}

// SetFarmerStatus sets a farmer's status directly. Marking a farmer
// completed clears pending payments across their bookings.
func (s *Service) SetFarmerStatus(ctx context.Context, farmerID string, status FarmerStatus) error {
	if !ValidFarmerStatus(status) {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}

	farmer, err := s.Farmers.GetFarmer(ctx, farmerID)
	if err != nil {
		return err
	}
	if farmer == nil {
		return fmt.Errorf("%w: %s", ErrFarmerNotFound, farmerID)
	}

	if err := s.Farmers.SetFarmerStatus(ctx, farmerID, status); err != nil {
		return err
	}

	if status == FarmerStatusCompleted {
		n, err := s.Bookings.ZeroPendingPayments(ctx, farmerID)
		if err != nil {
			return err
		}
		if n > 0 {
			log.Printf("cleared pending payment on %d bookings for farmer %s", n, farmerID)
		}
	}
	return nil
}

// Delete removes the booking record. The schedule contribution, if any,
// is left in place.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.Bookings.DeleteBooking(ctx, id)
}

func orDefault(v, def decimal.Decimal) decimal.Decimal {
	if v.IsZero() {
		return def
	}
	return v
}
