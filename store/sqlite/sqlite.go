/*
Package sqlite provides the SQLite-backed implementation of every storage
interface in the system.

PURPOSE:
  One Store implements schedule.WindowStore, schedule.Catalog,
  schedule.FarmerDirectory, booking.Store, booking.FarmerStore, and
  booking.IncomeStore, plus the nutrient-stock CRUD used by the admin API.

KEY TABLES:
  schedule_windows:  Window documents; nested groups as JSON, version column
  crop_groups:       Crop-group catalog, unique by name
  crop_varieties:    Crop-variety catalog, unique by (group_id, name)
  farmers:           Farmer records and season status
  bookings:          Booking records; line items as JSON
  nutrient_stock:    Nutrient inventory
  incomes:           Realized revenue records

WINDOW IDENTITY AND CONCURRENCY:
  A unique index on (start_date, end_date) backs CreateIfAbsent: the insert
  is conditional (ON CONFLICT DO NOTHING) and the stored row is re-read, so
  concurrent writers for the same bucket converge on one window. Saves are
  version-checked (WHERE id = ? AND version = ?); a stale save changes no
  rows and surfaces schedule.ErrConcurrentModification.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  A sync.RWMutex serializes in-process writers on top of that; in production
  with PostgreSQL, database-level concurrency control handles this instead.

USAGE:
  store, err := sqlite.New("./cropbook.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - schedule/store.go: Window, catalog, and directory interface definitions
  - booking/service.go: Booking-side interface definitions
  - schedule/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/farmdesk/crop-engine/booking"
	"github.com/farmdesk/crop-engine/schedule"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Schedule windows (one document per 5-day bucket)
	CREATE TABLE IF NOT EXISTS schedule_windows (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		status TEXT NOT NULL,
		groups_json TEXT NOT NULL DEFAULT '[]',
		version INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- CRITICAL: at most one window per (start_date, end_date) bucket.
	-- CreateIfAbsent relies on this index for its atomic conditional insert.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_windows_range
		ON schedule_windows(start_date, end_date);
	CREATE INDEX IF NOT EXISTS idx_windows_end_date
		ON schedule_windows(end_date);

	-- Crop-group catalog
	CREATE TABLE IF NOT EXISTS crop_groups (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		created_at TEXT NOT NULL
	);

	-- Crop-variety catalog; identity is the (group_id, name) composite
	CREATE TABLE IF NOT EXISTS crop_varieties (
		id TEXT PRIMARY KEY,
		group_id TEXT NOT NULL,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL,
		UNIQUE(group_id, name)
	);
	CREATE INDEX IF NOT EXISTS idx_varieties_group
		ON crop_varieties(group_id);

	-- Farmers
	CREATE TABLE IF NOT EXISTS farmers (
		id TEXT PRIMARY KEY,
		full_name TEXT NOT NULL,
		phone TEXT,
		email TEXT,
		address TEXT,
		status TEXT NOT NULL DEFAULT 'new',
		created_at TEXT NOT NULL
	);

	-- Bookings
	CREATE TABLE IF NOT EXISTS bookings (
		id TEXT PRIMARY KEY,
		farmer_id TEXT NOT NULL,
		crop_group_id TEXT NOT NULL,
		plot_number TEXT NOT NULL,
		lot_number TEXT NOT NULL,
		booking_date TEXT,
		sowing_date TEXT,
		line_items_json TEXT NOT NULL DEFAULT '[]',
		final_total_price TEXT NOT NULL DEFAULT '0',
		total_payment TEXT NOT NULL DEFAULT '0',
		advance_payment TEXT NOT NULL DEFAULT '0',
		pending_payment TEXT NOT NULL DEFAULT '0',
		vehicle_number TEXT,
		driver_name TEXT,
		start_km INTEGER DEFAULT 0,
		end_km INTEGER DEFAULT 0,
		payment_method TEXT,
		payment_notes TEXT,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_bookings_farmer
		ON bookings(farmer_id);

	-- Nutrient stock
	CREATE TABLE IF NOT EXISTS nutrient_stock (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		quantity TEXT NOT NULL DEFAULT '0',
		unit TEXT,
		last_updated TEXT NOT NULL
	);

	-- Incomes
	CREATE TABLE IF NOT EXISTS incomes (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		amount TEXT NOT NULL DEFAULT '0',
		booking_id TEXT,
		farmer_id TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_incomes_farmer
		ON incomes(farmer_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

const timeFormat = time.RFC3339Nano

// =============================================================================
// WINDOW STORE (schedule.WindowStore interface)
// =============================================================================

const windowColumns = `id, name, start_date, end_date, status, groups_json, version`

// Get returns the window with the given id, or nil.
func (s *Store) Get(ctx context.Context, id schedule.WindowID) (*schedule.Window, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+windowColumns+` FROM schedule_windows WHERE id = ?`, string(id))
	return scanWindow(row)
}

// FindByRange returns the window matching both timestamps exactly, or nil.
func (s *Store) FindByRange(ctx context.Context, start, end time.Time) (*schedule.Window, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.findByRangeLocked(ctx, start, end)
}

func (s *Store) findByRangeLocked(ctx context.Context, start, end time.Time) (*schedule.Window, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+windowColumns+` FROM schedule_windows WHERE start_date = ? AND end_date = ?`,
		start.Format(timeFormat), end.Format(timeFormat))
	return scanWindow(row)
}

// CreateIfAbsent atomically inserts the window keyed on (start, end) and
// returns the stored one, which may belong to a concurrent winner.
func (s *Store) CreateIfAbsent(ctx context.Context, w *schedule.Window) (*schedule.Window, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	groupsJSON, err := json.Marshal(w.Groups)
	if err != nil {
		return nil, fmt.Errorf("marshal window groups: %w", err)
	}

	now := time.Now().UTC().Format(timeFormat)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO schedule_windows
		(id, name, start_date, end_date, status, groups_json, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT(start_date, end_date) DO NOTHING
	`,
		string(w.ID), w.Name,
		w.StartDate.Format(timeFormat), w.EndDate.Format(timeFormat),
		string(w.Status), string(groupsJSON), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert window: %w", err)
	}

	stored, err := s.findByRangeLocked(ctx, w.StartDate, w.EndDate)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, fmt.Errorf("window for %s vanished after insert", w.StartDate.Format(timeFormat))
	}
	return stored, nil
}

// Save writes the full document if the caller's version is still current.
func (s *Store) Save(ctx context.Context, w *schedule.Window) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	groupsJSON, err := json.Marshal(w.Groups)
	if err != nil {
		return fmt.Errorf("marshal window groups: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE schedule_windows
		SET name = ?, status = ?, groups_json = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`,
		w.Name, string(w.Status), string(groupsJSON),
		time.Now().UTC().Format(timeFormat),
		string(w.ID), w.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to save window: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return schedule.ErrConcurrentModification
	}

	w.Version++
	return nil
}

// ListEndingOnOrAfter returns windows with end_date >= t, ordered by start.
func (s *Store) ListEndingOnOrAfter(ctx context.Context, t time.Time) ([]*schedule.Window, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+windowColumns+` FROM schedule_windows WHERE end_date >= ? ORDER BY start_date ASC`,
		t.Format(timeFormat))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var windows []*schedule.Window
	for rows.Next() {
		w, err := scanWindow(rows)
		if err != nil {
			return nil, err
		}
		windows = append(windows, w)
	}
	return windows, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWindow(row rowScanner) (*schedule.Window, error) {
	var (
		w          schedule.Window
		id         string
		startDate  string
		endDate    string
		status     string
		groupsJSON string
	)

	err := row.Scan(&id, &w.Name, &startDate, &endDate, &status, &groupsJSON, &w.Version)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan window: %w", err)
	}

	w.ID = schedule.WindowID(id)
	w.Status = schedule.Status(status)
	w.StartDate, _ = time.Parse(timeFormat, startDate)
	w.EndDate, _ = time.Parse(timeFormat, endDate)
	if err := json.Unmarshal([]byte(groupsJSON), &w.Groups); err != nil {
		return nil, fmt.Errorf("failed to decode window groups: %w", err)
	}
	return &w, nil
}

// =============================================================================
// CATALOG (schedule.Catalog interface)
// =============================================================================

// ResolveOrCreateGroup finds the crop group by name or creates it.
func (s *Store) ResolveOrCreateGroup(ctx context.Context, name string) (schedule.GroupRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO crop_groups (id, name, created_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO NOTHING
	`, uuid.NewString(), name, time.Now().UTC().Format(timeFormat))
	if err != nil {
		return "", fmt.Errorf("failed to create crop group: %w", err)
	}

	var id string
	err = s.db.QueryRowContext(ctx,
		`SELECT id FROM crop_groups WHERE name = ?`, name).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to resolve crop group %q: %w", name, err)
	}
	return schedule.GroupRef(id), nil
}

// ResolveOrCreateVariety finds the variety by (group, name) or creates it.
func (s *Store) ResolveOrCreateVariety(ctx context.Context, group schedule.GroupRef, name string) (schedule.VarietyRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO crop_varieties (id, group_id, name, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(group_id, name) DO NOTHING
	`, uuid.NewString(), string(group), name, time.Now().UTC().Format(timeFormat))
	if err != nil {
		return "", fmt.Errorf("failed to create crop variety: %w", err)
	}

	var id string
	err = s.db.QueryRowContext(ctx,
		`SELECT id FROM crop_varieties WHERE group_id = ? AND name = ?`,
		string(group), name).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to resolve crop variety %q: %w", name, err)
	}
	return schedule.VarietyRef(id), nil
}

// LookupGroupName returns "" when the ref is unknown.
func (s *Store) LookupGroupName(ctx context.Context, ref schedule.GroupRef) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var name string
	err := s.db.QueryRowContext(ctx,
		`SELECT name FROM crop_groups WHERE id = ?`, string(ref)).Scan(&name)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return name, nil
}

// ListGroups returns all catalog groups ordered by name.
func (s *Store) ListGroups(ctx context.Context) ([]schedule.CatalogGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name FROM crop_groups ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []schedule.CatalogGroup
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		groups = append(groups, schedule.CatalogGroup{Ref: schedule.GroupRef(id), Name: name})
	}
	return groups, rows.Err()
}

// ListVarietiesOfGroup returns the group's varieties ordered by name.
func (s *Store) ListVarietiesOfGroup(ctx context.Context, ref schedule.GroupRef) ([]schedule.CatalogVariety, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, group_id, name FROM crop_varieties WHERE group_id = ? ORDER BY name`,
		string(ref))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var varieties []schedule.CatalogVariety
	for rows.Next() {
		var id, groupID, name string
		if err := rows.Scan(&id, &groupID, &name); err != nil {
			return nil, err
		}
		varieties = append(varieties, schedule.CatalogVariety{
			Ref:      schedule.VarietyRef(id),
			GroupRef: schedule.GroupRef(groupID),
			Name:     name,
		})
	}
	return varieties, rows.Err()
}

// =============================================================================
// FARMER STORE (booking.FarmerStore + schedule.FarmerDirectory)
// =============================================================================

// SaveFarmer inserts or updates a farmer record.
func (s *Store) SaveFarmer(ctx context.Context, f *booking.Farmer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := f.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `
		INSERT INTO farmers (id, full_name, phone, email, address, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			full_name = excluded.full_name,
			phone = excluded.phone,
			email = excluded.email,
			address = excluded.address,
			status = excluded.status
	`

	_, err := s.db.ExecContext(ctx, query,
		f.ID, f.FullName, f.Phone, f.Email, f.Address, string(f.Status),
		createdAt.Format(timeFormat),
	)
	return err
}

// GetFarmer retrieves a farmer by id, or nil.
func (s *Store) GetFarmer(ctx context.Context, id string) (*booking.Farmer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		f         booking.Farmer
		status    string
		createdAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, full_name, phone, email, address, status, created_at FROM farmers WHERE id = ?`,
		id,
	).Scan(&f.ID, &f.FullName, &f.Phone, &f.Email, &f.Address, &status, &createdAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	f.Status = booking.FarmerStatus(status)
	f.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	return &f, nil
}

// ListFarmers returns all farmers ordered by name.
func (s *Store) ListFarmers(ctx context.Context) ([]*booking.Farmer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, full_name, phone, email, address, status, created_at FROM farmers ORDER BY full_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var farmers []*booking.Farmer
	for rows.Next() {
		var (
			f         booking.Farmer
			status    string
			createdAt string
		)
		if err := rows.Scan(&f.ID, &f.FullName, &f.Phone, &f.Email, &f.Address, &status, &createdAt); err != nil {
			return nil, err
		}
		f.Status = booking.FarmerStatus(status)
		f.CreatedAt, _ = time.Parse(timeFormat, createdAt)
		farmers = append(farmers, &f)
	}
	return farmers, rows.Err()
}

// SetFarmerStatus updates only the farmer's season status.
func (s *Store) SetFarmerStatus(ctx context.Context, id string, status booking.FarmerStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`UPDATE farmers SET status = ? WHERE id = ?`, string(status), id)
	return err
}

// DeleteFarmer removes a farmer record.
func (s *Store) DeleteFarmer(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM farmers WHERE id = ?`, id)
	return err
}

// LookupFarmerName resolves a farmer display name; "" when unknown.
func (s *Store) LookupFarmerName(ctx context.Context, ref schedule.FarmerRef) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var name string
	err := s.db.QueryRowContext(ctx,
		`SELECT full_name FROM farmers WHERE id = ?`, string(ref)).Scan(&name)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return name, nil
}

// =============================================================================
// BOOKING STORE (booking.Store interface)
// =============================================================================

// SaveBooking inserts or updates a booking record.
func (s *Store) SaveBooking(ctx context.Context, b *booking.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	itemsJSON, err := json.Marshal(b.LineItems)
	if err != nil {
		return fmt.Errorf("marshal line items: %w", err)
	}

	var sowing sql.NullString
	if b.SowingDate != nil && !b.SowingDate.IsZero() {
		sowing = sql.NullString{String: b.SowingDate.Format(timeFormat), Valid: true}
	}

	createdAt := b.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `
		INSERT INTO bookings
		(id, farmer_id, crop_group_id, plot_number, lot_number, booking_date, sowing_date,
		 line_items_json, final_total_price, total_payment, advance_payment, pending_payment,
		 vehicle_number, driver_name, start_km, end_km, payment_method, payment_notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			advance_payment = excluded.advance_payment,
			pending_payment = excluded.pending_payment,
			payment_method = excluded.payment_method,
			payment_notes = excluded.payment_notes
	`

	_, err = s.db.ExecContext(ctx, query,
		b.ID, b.FarmerID, b.CropGroupID, b.PlotNumber, b.LotNumber,
		b.BookingDate.Format(timeFormat), sowing,
		string(itemsJSON),
		b.FinalTotalPrice.String(), b.TotalPayment.String(),
		b.AdvancePayment.String(), b.PendingPayment.String(),
		b.VehicleNumber, b.DriverName, b.StartKm, b.EndKm,
		b.PaymentMethod, b.PaymentNotes,
		createdAt.Format(timeFormat),
	)
	return err
}

const bookingColumns = `id, farmer_id, crop_group_id, plot_number, lot_number, booking_date,
	sowing_date, line_items_json, final_total_price, total_payment, advance_payment,
	pending_payment, vehicle_number, driver_name, start_km, end_km, payment_method,
	payment_notes, created_at`

// GetBooking retrieves a booking by id, or nil.
func (s *Store) GetBooking(ctx context.Context, id string) (*booking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	return scanBooking(row)
}

// ListBookings returns all bookings, newest first.
func (s *Store) ListBookings(ctx context.Context) ([]*booking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []*booking.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func scanBooking(row rowScanner) (*booking.Booking, error) {
	var (
		b           booking.Booking
		bookingDate string
		sowingDate  sql.NullString
		itemsJSON   string
		final       string
		totalPay    string
		advance     string
		pending     string
		createdAt   string
	)

	err := row.Scan(
		&b.ID, &b.FarmerID, &b.CropGroupID, &b.PlotNumber, &b.LotNumber, &bookingDate,
		&sowingDate, &itemsJSON, &final, &totalPay, &advance, &pending,
		&b.VehicleNumber, &b.DriverName, &b.StartKm, &b.EndKm, &b.PaymentMethod,
		&b.PaymentNotes, &createdAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan booking: %w", err)
	}

	b.BookingDate, _ = time.Parse(timeFormat, bookingDate)
	if sowingDate.Valid {
		t, _ := time.Parse(timeFormat, sowingDate.String)
		b.SowingDate = &t
	}
	if err := json.Unmarshal([]byte(itemsJSON), &b.LineItems); err != nil {
		return nil, fmt.Errorf("failed to decode line items: %w", err)
	}
	b.FinalTotalPrice = parseDecimal(final)
	b.TotalPayment = parseDecimal(totalPay)
	b.AdvancePayment = parseDecimal(advance)
	b.PendingPayment = parseDecimal(pending)
	b.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	return &b, nil
}

// DeleteBooking removes a booking record.
func (s *Store) DeleteBooking(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	return err
}

// ZeroPendingPayments clears pending payments on all of a farmer's bookings
// and reports how many rows changed.
func (s *Store) ZeroPendingPayments(ctx context.Context, farmerID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE bookings SET pending_payment = '0' WHERE farmer_id = ? AND pending_payment != '0'`,
		farmerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// =============================================================================
// NUTRIENT STOCK
// =============================================================================

// NutrientStock is a nutrient inventory record.
type NutrientStock struct {
	ID          string
	Name        string
	Quantity    decimal.Decimal
	Unit        string
	LastUpdated time.Time
}

// SaveNutrientStock inserts or updates a stock record.
func (s *Store) SaveNutrientStock(ctx context.Context, n *NutrientStock) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO nutrient_stock (id, name, quantity, unit, last_updated)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			quantity = excluded.quantity,
			unit = excluded.unit,
			last_updated = excluded.last_updated
	`

	_, err := s.db.ExecContext(ctx, query,
		n.ID, n.Name, n.Quantity.String(), n.Unit,
		time.Now().UTC().Format(timeFormat),
	)
	return err
}

// ListNutrientStock returns all stock records ordered by name.
func (s *Store) ListNutrientStock(ctx context.Context) ([]*NutrientStock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, quantity, unit, last_updated FROM nutrient_stock ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stock []*NutrientStock
	for rows.Next() {
		var (
			n           NutrientStock
			quantity    string
			lastUpdated string
		)
		if err := rows.Scan(&n.ID, &n.Name, &quantity, &n.Unit, &lastUpdated); err != nil {
			return nil, err
		}
		n.Quantity = parseDecimal(quantity)
		n.LastUpdated, _ = time.Parse(timeFormat, lastUpdated)
		stock = append(stock, &n)
	}
	return stock, rows.Err()
}

// DeleteNutrientStock removes a stock record.
func (s *Store) DeleteNutrientStock(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM nutrient_stock WHERE id = ?`, id)
	return err
}

// =============================================================================
// INCOME STORE (booking.IncomeStore interface)
// =============================================================================

// SaveIncome records an income entry.
func (s *Store) SaveIncome(ctx context.Context, inc *booking.Income) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO incomes (id, date, amount, booking_id, farmer_id) VALUES (?, ?, ?, ?, ?)`,
		inc.ID, inc.Date.Format(timeFormat), inc.Amount.String(), inc.BookingID, inc.FarmerID,
	)
	return err
}

// ListIncomes returns all income records, newest first.
func (s *Store) ListIncomes(ctx context.Context) ([]*booking.Income, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, date, amount, booking_id, farmer_id FROM incomes ORDER BY date DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var incomes []*booking.Income
	for rows.Next() {
		var (
			inc    booking.Income
			date   string
			amount string
		)
		if err := rows.Scan(&inc.ID, &date, &amount, &inc.BookingID, &inc.FarmerID); err != nil {
			return nil, err
		}
		inc.Date, _ = time.Parse(timeFormat, date)
		inc.Amount = parseDecimal(amount)
		incomes = append(incomes, &inc)
	}
	return incomes, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo scenarios).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{
		"schedule_windows", "crop_groups", "crop_varieties",
		"farmers", "bookings", "nutrient_stock", "incomes",
	}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}
