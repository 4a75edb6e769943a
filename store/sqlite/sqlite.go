/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements the persistence gateway (commission.Store and
  commission.PaymentWriter) using SQLite. In production, the same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  payments:                Payment records (immutable business events)
  deal_types:              Reference data, seeded on migrate
  commission_calculations: Derived commission rows, one per payment
                           (payment_id UNIQUE, upsert semantics,
                           ON DELETE CASCADE from payments)

ORDERING:
  ListPaymentsInMonth orders by payment_date ASC, id ASC. The id
  tie-break preserves insertion order, which month recalculation relies
  on for same-day payments.

DECIMALS:
  Money, rates, and deal counts are stored as TEXT via
  decimal.Decimal.String() to avoid floating-point drift.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency
  and crash recovery. Foreign keys are enforced so deleting a payment
  cascade-deletes its calculation.

USAGE:
  store, err := sqlite.New("./data/commissions.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  calc := commission.NewCalculator(store, nil, logger)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - commission/store.go: Interface definitions
  - commission/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/salesdash/commission-engine/commission"
)

// Store implements the persistence gateway using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Compile-time interface checks.
var (
	_ commission.Store         = (*Store)(nil)
	_ commission.PaymentWriter = (*Store)(nil)
)

const dateFormat = "2006-01-02"

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
	if err := store.seedDealTypes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to seed deal types: %w", err)
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
	-- Deal types (reference data, admin-managed)
	CREATE TABLE IF NOT EXISTS deal_types (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL,
		conversion_rate TEXT NOT NULL DEFAULT '1',
		is_backend BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL
	);

	-- Payments (immutable business events)
	CREATE TABLE IF NOT EXISTS payments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		amount TEXT NOT NULL,
		payment_date TEXT NOT NULL,
		payment_type TEXT NOT NULL,
		deal_type_id INTEGER NOT NULL REFERENCES deal_types(id),
		setter_assigned TEXT,
		closer_assigned TEXT,
		assigned_csm TEXT,
		service_agreement_status TEXT NOT NULL DEFAULT 'pending',
		parent_payment_id INTEGER REFERENCES payments(id),
		created_at TEXT NOT NULL
	);

	-- Month recalculation and range listings (hot path)
	CREATE INDEX IF NOT EXISTS idx_payments_date
		ON payments(payment_date, id);

	-- Per-person volume accumulation
	CREATE INDEX IF NOT EXISTS idx_payments_setter
		ON payments(setter_assigned, service_agreement_status, payment_date);
	CREATE INDEX IF NOT EXISTS idx_payments_closer
		ON payments(closer_assigned, service_agreement_status, payment_date);
	CREATE INDEX IF NOT EXISTS idx_payments_csm
		ON payments(assigned_csm, service_agreement_status, payment_date);

	-- Rebill chain lookups
	CREATE INDEX IF NOT EXISTS idx_payments_parent
		ON payments(parent_payment_id) WHERE parent_payment_id IS NOT NULL;

	-- Commission calculations (derived, one-to-one with payments)
	CREATE TABLE IF NOT EXISTS commission_calculations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		payment_id INTEGER NOT NULL UNIQUE REFERENCES payments(id) ON DELETE CASCADE,
		month TEXT NOT NULL,
		deal_count_at_time TEXT NOT NULL,
		six_month_equivalent TEXT NOT NULL,
		tier_min_deals INTEGER NOT NULL,
		tier_max_deals INTEGER,
		closer_rate TEXT NOT NULL,
		setter_rate TEXT NOT NULL,
		closer_commission TEXT NOT NULL,
		setter_commission TEXT NOT NULL,
		csm_commission TEXT NOT NULL,
		is_paid BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_calculations_month
		ON commission_calculations(month);
	`

	_, err := s.db.Exec(schema)
	return err
}

// seedDealTypes inserts the reference rows the dashboard depends on.
// INSERT OR IGNORE keeps the operation idempotent across restarts.
func (s *Store) seedDealTypes() error {
	seeds := []struct {
		name, display, rate string
		backend             bool
	}{
		{"referral_network_6_months", "Referral Network (6 Months)", "1", false},
		{"referral_network_4_months", "Referral Network (4 Months)", "0.5", false},
		{"referral_network_3_months", "Referral Network (3 Months)", "0.5", false},
		{"google_ads", "Google Ads", "0.3333333333333333", false},
		{"service_upgrade", "Service Upgrade", "0", true},
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for _, seed := range seeds {
		_, err := s.db.Exec(
			`INSERT OR IGNORE INTO deal_types (name, display_name, conversion_rate, is_backend, created_at)
			 VALUES (?, ?, ?, ?, ?)`,
			seed.name, seed.display, seed.rate, seed.backend, now,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// PAYMENTS (commission.Store interface)
// =============================================================================

const paymentColumns = `id, amount, payment_date, payment_type, deal_type_id,
	setter_assigned, closer_assigned, assigned_csm,
	service_agreement_status, parent_payment_id, created_at`

// GetPayment returns one payment or commission.ErrPaymentNotFound.
func (s *Store) GetPayment(ctx context.Context, id commission.PaymentID) (*commission.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = ?`, int64(id))
	p, err := scanPayment(row)
	if err == sql.ErrNoRows {
		return nil, commission.ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListPaymentsInMonth returns the month's payments in recalculation order.
func (s *Store) ListPaymentsInMonth(ctx context.Context, month commission.Month) ([]commission.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + paymentColumns + `
		FROM payments
		WHERE payment_date >= ? AND payment_date <= ?
		ORDER BY payment_date ASC, id ASC`

	return s.queryPayments(ctx, query,
		month.Start().Format(dateFormat), month.End().Format(dateFormat))
}

// ListCompletedAssigned returns completed payments credited to one person.
func (s *Store) ListCompletedAssigned(ctx context.Context, a commission.Assignment, from, to time.Time) ([]commission.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	column, err := assignmentColumn(a.Role)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + paymentColumns + `
		FROM payments
		WHERE ` + column + ` = ?
		  AND service_agreement_status = ?
		  AND payment_date >= ? AND payment_date <= ?
		ORDER BY payment_date ASC, id ASC`

	return s.queryPayments(ctx, query,
		a.Name, string(commission.StatusCompleted),
		from.Format(dateFormat), to.Format(dateFormat))
}

// assignmentColumn maps a role onto its payment column. Roles are a
// closed enum, never user input, so interpolation is safe.
func assignmentColumn(role commission.Role) (string, error) {
	switch role {
	case commission.RoleSetter:
		return "setter_assigned", nil
	case commission.RoleCloser:
		return "closer_assigned", nil
	case commission.RoleCSM:
		return "assigned_csm", nil
	}
	return "", fmt.Errorf("unknown role %q", role)
}

// =============================================================================
// PAYMENTS (commission.PaymentWriter interface)
// =============================================================================

// CreatePayment inserts a payment and fills its ID and CreatedAt.
func (s *Store) CreatePayment(ctx context.Context, p *commission.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO payments
		 (amount, payment_date, payment_type, deal_type_id, setter_assigned,
		  closer_assigned, assigned_csm, service_agreement_status,
		  parent_payment_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Amount.String(),
		p.Date.Format(dateFormat),
		string(p.Type),
		int64(p.DealTypeID),
		nullString(p.SetterAssigned),
		nullString(p.CloserAssigned),
		nullString(p.AssignedCSM),
		string(p.Status),
		nullPaymentID(p.ParentPaymentID),
		p.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = commission.PaymentID(id)
	return nil
}

// UpdatePayment overwrites a payment's mutable fields.
func (s *Store) UpdatePayment(ctx context.Context, p *commission.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx,
		`UPDATE payments SET
			amount = ?, payment_date = ?, payment_type = ?, deal_type_id = ?,
			setter_assigned = ?, closer_assigned = ?, assigned_csm = ?,
			service_agreement_status = ?, parent_payment_id = ?
		 WHERE id = ?`,
		p.Amount.String(),
		p.Date.Format(dateFormat),
		string(p.Type),
		int64(p.DealTypeID),
		nullString(p.SetterAssigned),
		nullString(p.CloserAssigned),
		nullString(p.AssignedCSM),
		string(p.Status),
		nullPaymentID(p.ParentPaymentID),
		int64(p.ID),
	)
	if err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return commission.ErrPaymentNotFound
	}
	return nil
}

// DeletePayment removes a payment; its calculation cascades.
func (s *Store) DeletePayment(ctx context.Context, id commission.PaymentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `DELETE FROM payments WHERE id = ?`, int64(id))
	if err != nil {
		return fmt.Errorf("failed to delete payment: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return commission.ErrPaymentNotFound
	}
	return nil
}

// ListPayments returns payments in a date range, newest first.
func (s *Store) ListPayments(ctx context.Context, from, to time.Time) ([]commission.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + paymentColumns + `
		FROM payments
		WHERE payment_date >= ? AND payment_date <= ?
		ORDER BY payment_date DESC, id DESC`

	return s.queryPayments(ctx, query, from.Format(dateFormat), to.Format(dateFormat))
}

func (s *Store) queryPayments(ctx context.Context, query string, args ...any) ([]commission.Payment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var payments []commission.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayment(row rowScanner) (*commission.Payment, error) {
	var (
		p              commission.Payment
		amount         string
		paymentDate    string
		setter, closer sql.NullString
		csm            sql.NullString
		parentID       sql.NullInt64
		createdAt      string
	)

	err := row.Scan(
		&p.ID, &amount, &paymentDate, &p.Type, &p.DealTypeID,
		&setter, &closer, &csm, &p.Status, &parentID, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	p.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("payment %d: bad amount %q: %w", p.ID, amount, err)
	}
	p.Date, err = time.Parse(dateFormat, paymentDate)
	if err != nil {
		return nil, fmt.Errorf("payment %d: bad date %q: %w", p.ID, paymentDate, err)
	}
	p.SetterAssigned = setter.String
	p.CloserAssigned = closer.String
	p.AssignedCSM = csm.String
	if parentID.Valid {
		id := commission.PaymentID(parentID.Int64)
		p.ParentPaymentID = &id
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &p, nil
}

// =============================================================================
// DEAL TYPES
// =============================================================================

// GetDealType returns reference data or commission.ErrDealTypeNotFound.
func (s *Store) GetDealType(ctx context.Context, id commission.DealTypeID) (*commission.DealType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, display_name, conversion_rate, is_backend, created_at
		 FROM deal_types WHERE id = ?`, int64(id))

	dt, err := scanDealType(row)
	if err == sql.ErrNoRows {
		return nil, commission.ErrDealTypeNotFound
	}
	if err != nil {
		return nil, err
	}
	return dt, nil
}

// GetDealTypeByName resolves reference data by its stable name.
func (s *Store) GetDealTypeByName(ctx context.Context, name string) (*commission.DealType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, display_name, conversion_rate, is_backend, created_at
		 FROM deal_types WHERE name = ?`, name)

	dt, err := scanDealType(row)
	if err == sql.ErrNoRows {
		return nil, commission.ErrDealTypeNotFound
	}
	if err != nil {
		return nil, err
	}
	return dt, nil
}

// ListDealTypes returns all reference rows ordered for display.
func (s *Store) ListDealTypes(ctx context.Context) ([]commission.DealType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, display_name, conversion_rate, is_backend, created_at
		 FROM deal_types ORDER BY display_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query deal types: %w", err)
	}
	defer rows.Close()

	var types []commission.DealType
	for rows.Next() {
		dt, err := scanDealType(rows)
		if err != nil {
			return nil, err
		}
		types = append(types, *dt)
	}
	return types, rows.Err()
}

func scanDealType(row rowScanner) (*commission.DealType, error) {
	var (
		dt        commission.DealType
		rate      string
		createdAt string
	)
	if err := row.Scan(&dt.ID, &dt.Name, &dt.DisplayName, &rate, &dt.IsBackend, &createdAt); err != nil {
		return nil, err
	}
	var err error
	dt.ConversionRate, err = decimal.NewFromString(rate)
	if err != nil {
		return nil, fmt.Errorf("deal type %d: bad conversion rate %q: %w", dt.ID, rate, err)
	}
	dt.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &dt, nil
}

// =============================================================================
// COMMISSION CALCULATIONS
// =============================================================================

// GetCalculationByPayment returns the stored calculation for a payment.
func (s *Store) GetCalculationByPayment(ctx context.Context, paymentID commission.PaymentID) (*commission.Calculation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, payment_id, month, deal_count_at_time, six_month_equivalent,
		        tier_min_deals, tier_max_deals, closer_rate, setter_rate,
		        closer_commission, setter_commission, csm_commission,
		        is_paid, created_at, updated_at
		 FROM commission_calculations WHERE payment_id = ?`, int64(paymentID))

	calc, err := scanCalculation(row)
	if err == sql.ErrNoRows {
		return nil, commission.ErrCalculationNotFound
	}
	if err != nil {
		return nil, err
	}
	return calc, nil
}

// UpsertCalculation overwrites the calculation row for a payment, or
// inserts one if this is the payment's first computation.
func (s *Store) UpsertCalculation(ctx context.Context, calc *commission.Calculation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()

	var existingID int64
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, created_at FROM commission_calculations WHERE payment_id = ?`,
		int64(calc.PaymentID),
	).Scan(&existingID, &createdAt)

	switch {
	case err == sql.ErrNoRows:
		calc.CreatedAt = now
		calc.UpdatedAt = now
		result, err := s.db.ExecContext(ctx,
			`INSERT INTO commission_calculations
			 (payment_id, month, deal_count_at_time, six_month_equivalent,
			  tier_min_deals, tier_max_deals, closer_rate, setter_rate,
			  closer_commission, setter_commission, csm_commission,
			  is_paid, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			calculationArgs(calc)...,
		)
		if err != nil {
			return fmt.Errorf("failed to insert calculation: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return err
		}
		calc.ID = commission.CalculationID(id)
		return nil

	case err != nil:
		return fmt.Errorf("failed to look up calculation: %w", err)
	}

	calc.ID = commission.CalculationID(existingID)
	calc.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	calc.UpdatedAt = now

	_, err = s.db.ExecContext(ctx,
		`UPDATE commission_calculations SET
			month = ?, deal_count_at_time = ?, six_month_equivalent = ?,
			tier_min_deals = ?, tier_max_deals = ?, closer_rate = ?, setter_rate = ?,
			closer_commission = ?, setter_commission = ?, csm_commission = ?,
			is_paid = ?, updated_at = ?
		 WHERE payment_id = ?`,
		calc.Month.String(),
		calc.DealCountAtTime.String(),
		calc.SixMonthEquivalent.String(),
		calc.TierMinDeals,
		nullInt(calc.TierMaxDeals),
		calc.CloserRate.String(),
		calc.SetterRate.String(),
		calc.CloserCommission.String(),
		calc.SetterCommission.String(),
		calc.CSMCommission.String(),
		calc.IsPaid,
		calc.UpdatedAt.Format(time.RFC3339),
		int64(calc.PaymentID),
	)
	if err != nil {
		return fmt.Errorf("failed to update calculation: %w", err)
	}
	return nil
}

func calculationArgs(calc *commission.Calculation) []any {
	return []any{
		int64(calc.PaymentID),
		calc.Month.String(),
		calc.DealCountAtTime.String(),
		calc.SixMonthEquivalent.String(),
		calc.TierMinDeals,
		nullInt(calc.TierMaxDeals),
		calc.CloserRate.String(),
		calc.SetterRate.String(),
		calc.CloserCommission.String(),
		calc.SetterCommission.String(),
		calc.CSMCommission.String(),
		calc.IsPaid,
		calc.CreatedAt.Format(time.RFC3339),
		calc.UpdatedAt.Format(time.RFC3339),
	}
}

func scanCalculation(row rowScanner) (*commission.Calculation, error) {
	var (
		calc                 commission.Calculation
		monthStr             string
		dealCount, sixMonth  string
		tierMax              sql.NullInt64
		closerRate           string
		setterRate           string
		closerComm           string
		setterComm           string
		csmComm              string
		createdAt, updatedAt string
	)

	err := row.Scan(
		&calc.ID, &calc.PaymentID, &monthStr, &dealCount, &sixMonth,
		&calc.TierMinDeals, &tierMax, &closerRate, &setterRate,
		&closerComm, &setterComm, &csmComm,
		&calc.IsPaid, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	calc.Month, err = commission.ParseMonth(monthStr)
	if err != nil {
		return nil, fmt.Errorf("calculation %d: %w", calc.ID, err)
	}
	if tierMax.Valid {
		max := int(tierMax.Int64)
		calc.TierMaxDeals = &max
	}

	fields := []struct {
		dst *decimal.Decimal
		src string
	}{
		{&calc.DealCountAtTime, dealCount},
		{&calc.SixMonthEquivalent, sixMonth},
		{&calc.CloserRate, closerRate},
		{&calc.SetterRate, setterRate},
		{&calc.CloserCommission, closerComm},
		{&calc.SetterCommission, setterComm},
		{&calc.CSMCommission, csmComm},
	}
	for _, f := range fields {
		*f.dst, err = decimal.NewFromString(f.src)
		if err != nil {
			return nil, fmt.Errorf("calculation %d: bad decimal %q: %w", calc.ID, f.src, err)
		}
	}

	calc.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	calc.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &calc, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(n *int) any {
	if n == nil {
		return nil
	}
	return *n
}

func nullPaymentID(id *commission.PaymentID) any {
	if id == nil {
		return nil
	}
	return int64(*id)
}
