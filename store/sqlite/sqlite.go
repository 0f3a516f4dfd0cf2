/*
Package sqlite provides a SQLite-backed implementation of claims.TxStore.

PURPOSE:
  Persists claims and every record they reference. Relationships are stored
  the way the engine models them: lists of foreign identifiers, here as JSON
  arrays in the claims row.

KEY TABLES:
  claims:             One row per claim, relationship lists as JSON arrays
  agencies:           Reporting agencies (code is unique)
  coverages:          Coverage catalogue (code is unique)
  involved_cars:      Shared, unique by good_uid
  involved_parties:   Shared, unique by party_uid
  involved_policies:  Shared, unique by good_uid
  affected_coverages: Owned by one claim, unique per (claim_id, coverage_id)

UNIQUENESS:
  Natural keys are UNIQUE in the schema. A violating insert returns
  claims.ErrDuplicate, which is what backs the engine's read-then-create
  upserts under concurrent requests.

CONCURRENCY:
  Writes and transactions are serialized with sync.RWMutex. Reads go straight
  to the pool. An in-memory database is pinned to one connection because
  every new connection to ":memory:" would open a separate, empty database.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/claims.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := claims.NewService(store)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - claims/store.go: Interface definitions
  - claims/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/claims-engine/claims"
)

// Store implements claims.TxStore using SQLite.
type Store struct {
	*conn
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db, conn: &conn{q: db, now: time.Now}}
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
	CREATE TABLE IF NOT EXISTS agencies (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		label TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS coverages (
		id TEXT PRIMARY KEY,
		uid TEXT NOT NULL DEFAULT '',
		code TEXT NOT NULL UNIQUE,
		label TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS claims (
		id TEXT PRIMARY KEY,
		claim_number TEXT NOT NULL UNIQUE,
		occurrence_date TEXT NOT NULL,
		reporting_date TEXT NOT NULL,
		reporting_type TEXT NOT NULL,
		responsibility TEXT NOT NULL,
		damage_type TEXT NOT NULL,
		claim_amount TEXT NOT NULL,
		recourse_amount TEXT NOT NULL DEFAULT '0',
		daaq TEXT NOT NULL DEFAULT '',
		flag_fraud INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		inspection_missions_json TEXT NOT NULL DEFAULT '[]',
		reporting_agency TEXT NOT NULL,
		involved_cars_json TEXT NOT NULL DEFAULT '[]',
		involved_policies_json TEXT NOT NULL DEFAULT '[]',
		involved_parties_json TEXT NOT NULL DEFAULT '[]',
		affected_coverages_json TEXT NOT NULL DEFAULT '[]',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_claims_status ON claims(status);

	CREATE TABLE IF NOT EXISTS involved_cars (
		id TEXT PRIMARY KEY,
		good_uid TEXT NOT NULL UNIQUE,
		role TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS involved_parties (
		id TEXT PRIMARY KEY,
		party_uid TEXT NOT NULL UNIQUE,
		role TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS involved_policies (
		id TEXT PRIMARY KEY,
		good_uid TEXT NOT NULL UNIQUE,
		role TEXT NOT NULL
	);

	-- One affected coverage per (claim, coverage) pair
	CREATE TABLE IF NOT EXISTS affected_coverages (
		id TEXT PRIMARY KEY,
		claim_id TEXT NOT NULL REFERENCES claims(id),
		coverage_id TEXT NOT NULL REFERENCES coverages(id),
		evaluation TEXT NOT NULL,
		settled_amount TEXT NOT NULL DEFAULT '0',
		UNIQUE (claim_id, coverage_id)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// SERIALIZED WRITES
// =============================================================================

func (s *Store) CreateClaim(ctx context.Context, c claims.Claim) (claims.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.CreateClaim(ctx, c)
}

func (s *Store) SaveClaim(ctx context.Context, c claims.Claim) (claims.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.SaveClaim(ctx, c)
}

func (s *Store) CreateAgency(ctx context.Context, a claims.Agency) (claims.Agency, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.CreateAgency(ctx, a)
}

func (s *Store) CreateCoverage(ctx context.Context, c claims.Coverage) (claims.Coverage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.CreateCoverage(ctx, c)
}

func (s *Store) CreateInvolvedCar(ctx context.Context, c claims.InvolvedCar) (claims.InvolvedCar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.CreateInvolvedCar(ctx, c)
}

func (s *Store) CreateInvolvedParty(ctx context.Context, p claims.InvolvedParty) (claims.InvolvedParty, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.CreateInvolvedParty(ctx, p)
}

func (s *Store) CreateInvolvedPolicy(ctx context.Context, p claims.InvolvedPolicy) (claims.InvolvedPolicy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.CreateInvolvedPolicy(ctx, p)
}

func (s *Store) CreateAffectedCoverage(ctx context.Context, ac claims.AffectedCoverage) (claims.AffectedCoverage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.CreateAffectedCoverage(ctx, ac)
}

func (s *Store) SaveAffectedCoverage(ctx context.Context, ac claims.AffectedCoverage) (claims.AffectedCoverage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.SaveAffectedCoverage(ctx, ac)
}

// =============================================================================
// TRANSACTIONAL STORE (claims.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store claims.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	txStore := &conn{q: sqlTx, now: s.now}
	if err := fn(txStore); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"affected_coverages", "claims", "involved_cars", "involved_parties", "involved_policies", "coverages", "agencies"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// CONN - claims.Store over a *sql.DB or a *sql.Tx
// =============================================================================

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

type conn struct {
	q   querier
	now func() time.Time
}

var tableFor = map[claims.EntityKind]string{
	claims.KindClaim:            "claims",
	claims.KindAgency:           "agencies",
	claims.KindCoverage:         "coverages",
	claims.KindInvolvedCar:      "involved_cars",
	claims.KindInvolvedParty:    "involved_parties",
	claims.KindInvolvedPolicy:   "involved_policies",
	claims.KindAffectedCoverage: "affected_coverages",
}

// Exists reports whether a record of kind has this id.
func (c *conn) Exists(ctx context.Context, kind claims.EntityKind, id string) (bool, error) {
	table, ok := tableFor[kind]
	if !ok {
		return false, fmt.Errorf("unknown entity kind %q", kind)
	}

	var one int
	err := c.q.QueryRowContext(ctx, "SELECT 1 FROM "+table+" WHERE id = ? LIMIT 1", id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check %s: %w", kind, err)
	}
	return true, nil
}

// =============================================================================
// CLAIMS
// =============================================================================

const claimColumns = `id, claim_number, occurrence_date, reporting_date, reporting_type,
	responsibility, damage_type, claim_amount, recourse_amount, daaq, flag_fraud, status,
	inspection_missions_json, reporting_agency, involved_cars_json, involved_policies_json,
	involved_parties_json, affected_coverages_json, created_at, updated_at`

func (c *conn) GetClaim(ctx context.Context, id string) (*claims.Claim, error) {
	return c.queryClaim(ctx, "SELECT "+claimColumns+" FROM claims WHERE id = ?", id)
}

func (c *conn) FindClaimByNumber(ctx context.Context, claimNumber string) (*claims.Claim, error) {
	return c.queryClaim(ctx, "SELECT "+claimColumns+" FROM claims WHERE claim_number = ?", claimNumber)
}

func (c *conn) ListClaims(ctx context.Context, q claims.ClaimQuery) ([]claims.Claim, error) {
	query := "SELECT " + claimColumns + " FROM claims"
	var args []any
	if q.ClaimNumber != "" {
		query += " WHERE claim_number = ?"
		args = append(args, q.ClaimNumber)
	}
	query += " ORDER BY rowid"

	rows, err := c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}
	defer rows.Close()

	result := []claims.Claim{}
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, claim)
	}
	return result, rows.Err()
}

func (c *conn) CreateClaim(ctx context.Context, claim claims.Claim) (claims.Claim, error) {
	if claim.ID == "" {
		claim.ID = uuid.NewString()
	}
	claim.CreatedAt, claim.UpdatedAt = stamp(claim.CreatedAt, claim.UpdatedAt, c.now())

	lists, err := encodeLists(claim)
	if err != nil {
		return claims.Claim{}, err
	}

	_, err = c.q.ExecContext(ctx, `
		INSERT INTO claims (`+claimColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		claim.ID,
		claim.ClaimNumber,
		formatTime(claim.OccurrenceDate),
		formatTime(claim.ReportingDate),
		claim.ReportingType,
		claim.Responsibility,
		claim.DamageType,
		claim.ClaimAmount.String(),
		claim.RecourseAmount.String(),
		claim.Daaq,
		claim.FlagFraud,
		claim.Status,
		lists[0], claim.ReportingAgency, lists[1], lists[2], lists[3], lists[4],
		formatTime(claim.CreatedAt),
		formatTime(claim.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return claims.Claim{}, claims.ErrDuplicate
		}
		return claims.Claim{}, fmt.Errorf("failed to create claim: %w", err)
	}
	return claim, nil
}

func (c *conn) SaveClaim(ctx context.Context, claim claims.Claim) (claims.Claim, error) {
	if claim.UpdatedAt.IsZero() {
		claim.UpdatedAt = c.now().UTC()
	}
	lists, err := encodeLists(claim)
	if err != nil {
		return claims.Claim{}, err
	}

	res, err := c.q.ExecContext(ctx, `
		UPDATE claims SET
			claim_number = ?, occurrence_date = ?, reporting_date = ?, reporting_type = ?,
			responsibility = ?, damage_type = ?, claim_amount = ?, recourse_amount = ?,
			daaq = ?, flag_fraud = ?, status = ?, inspection_missions_json = ?,
			reporting_agency = ?, involved_cars_json = ?, involved_policies_json = ?,
			involved_parties_json = ?, affected_coverages_json = ?, updated_at = ?
		WHERE id = ?
	`,
		claim.ClaimNumber,
		formatTime(claim.OccurrenceDate),
		formatTime(claim.ReportingDate),
		claim.ReportingType,
		claim.Responsibility,
		claim.DamageType,
		claim.ClaimAmount.String(),
		claim.RecourseAmount.String(),
		claim.Daaq,
		claim.FlagFraud,
		claim.Status,
		lists[0], claim.ReportingAgency, lists[1], lists[2], lists[3], lists[4],
		formatTime(claim.UpdatedAt),
		claim.ID,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return claims.Claim{}, claims.ErrDuplicate
		}
		return claims.Claim{}, fmt.Errorf("failed to save claim: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return claims.Claim{}, claims.ErrNotFound
	}

	saved, err := c.GetClaim(ctx, claim.ID)
	if err != nil {
		return claims.Claim{}, err
	}
	if saved == nil {
		return claims.Claim{}, claims.ErrNotFound
	}
	return *saved, nil
}

func (c *conn) queryClaim(ctx context.Context, query string, args ...any) (*claims.Claim, error) {
	claim, err := scanClaim(c.q.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &claim, nil
}

func scanClaim(row scanner) (claims.Claim, error) {
	var claim claims.Claim
	var occurrence, reporting, createdAt, updatedAt string
	var claimAmount, recourseAmount string
	var missions, cars, policies, parties, affected string
	err := row.Scan(
		&claim.ID, &claim.ClaimNumber, &occurrence, &reporting, &claim.ReportingType,
		&claim.Responsibility, &claim.DamageType, &claimAmount, &recourseAmount, &claim.Daaq,
		&claim.FlagFraud, &claim.Status, &missions, &claim.ReportingAgency, &cars, &policies,
		&parties, &affected, &createdAt, &updatedAt,
	)
	if err != nil {
		return claims.Claim{}, err
	}

	claim.OccurrenceDate = parseTime(occurrence)
	claim.ReportingDate = parseTime(reporting)
	claim.CreatedAt = parseTime(createdAt)
	claim.UpdatedAt = parseTime(updatedAt)

	if claim.ClaimAmount, err = decimal.NewFromString(claimAmount); err != nil {
		return claims.Claim{}, fmt.Errorf("claim %s: bad claim_amount: %w", claim.ID, err)
	}
	if claim.RecourseAmount, err = decimal.NewFromString(recourseAmount); err != nil {
		return claims.Claim{}, fmt.Errorf("claim %s: bad recourse_amount: %w", claim.ID, err)
	}

	for _, l := range []struct {
		raw string
		dst *[]string
	}{
		{missions, &claim.InspectionMissions},
		{cars, &claim.InvolvedCars},
		{policies, &claim.InvolvedPolicies},
		{parties, &claim.InvolvedParties},
		{affected, &claim.AffectedCoverages},
	} {
		if err := json.Unmarshal([]byte(l.raw), l.dst); err != nil {
			return claims.Claim{}, fmt.Errorf("claim %s: bad relationship list: %w", claim.ID, err)
		}
		if len(*l.dst) == 0 {
			*l.dst = nil
		}
	}
	return claim, nil
}

// encodeLists returns the JSON columns in schema order: inspection missions,
// cars, policies, parties, affected coverages.
func encodeLists(claim claims.Claim) ([5]string, error) {
	var out [5]string
	for i, list := range [][]string{
		claim.InspectionMissions,
		claim.InvolvedCars,
		claim.InvolvedPolicies,
		claim.InvolvedParties,
		claim.AffectedCoverages,
	} {
		if list == nil {
			list = []string{}
		}
		raw, err := json.Marshal(list)
		if err != nil {
			return out, fmt.Errorf("failed to encode relationship list: %w", err)
		}
		out[i] = string(raw)
	}
	return out, nil
}

// =============================================================================
// AGENCIES / COVERAGES
// =============================================================================

func (c *conn) GetAgency(ctx context.Context, id string) (*claims.Agency, error) {
	return c.queryAgency(ctx, "SELECT id, code, label, created_at, updated_at FROM agencies WHERE id = ?", id)
}

func (c *conn) FindAgencyByCode(ctx context.Context, code string) (*claims.Agency, error) {
	return c.queryAgency(ctx, "SELECT id, code, label, created_at, updated_at FROM agencies WHERE code = ?", code)
}

func (c *conn) ListAgencies(ctx context.Context) ([]claims.Agency, error) {
	rows, err := c.q.QueryContext(ctx, "SELECT id, code, label, created_at, updated_at FROM agencies ORDER BY code")
	if err != nil {
		return nil, fmt.Errorf("failed to list agencies: %w", err)
	}
	defer rows.Close()

	result := []claims.Agency{}
	for rows.Next() {
		a, err := scanAgency(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func (c *conn) CreateAgency(ctx context.Context, a claims.Agency) (claims.Agency, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.CreatedAt, a.UpdatedAt = stamp(a.CreatedAt, a.UpdatedAt, c.now())

	_, err := c.q.ExecContext(ctx,
		"INSERT INTO agencies (id, code, label, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		a.ID, a.Code, a.Label, formatTime(a.CreatedAt), formatTime(a.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return claims.Agency{}, claims.ErrDuplicate
		}
		return claims.Agency{}, fmt.Errorf("failed to create agency: %w", err)
	}
	return a, nil
}

func (c *conn) queryAgency(ctx context.Context, query string, args ...any) (*claims.Agency, error) {
	a, err := scanAgency(c.q.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func scanAgency(row scanner) (claims.Agency, error) {
	var a claims.Agency
	var createdAt, updatedAt string
	if err := row.Scan(&a.ID, &a.Code, &a.Label, &createdAt, &updatedAt); err != nil {
		return claims.Agency{}, err
	}
	a.CreatedAt = parseTime(createdAt)
	a.UpdatedAt = parseTime(updatedAt)
	return a, nil
}

func (c *conn) GetCoverage(ctx context.Context, id string) (*claims.Coverage, error) {
	return c.queryCoverage(ctx, "SELECT id, uid, code, label, created_at, updated_at FROM coverages WHERE id = ?", id)
}

func (c *conn) FindCoverageByCode(ctx context.Context, code string) (*claims.Coverage, error) {
	return c.queryCoverage(ctx, "SELECT id, uid, code, label, created_at, updated_at FROM coverages WHERE code = ?", code)
}

func (c *conn) ListCoverages(ctx context.Context) ([]claims.Coverage, error) {
	rows, err := c.q.QueryContext(ctx, "SELECT id, uid, code, label, created_at, updated_at FROM coverages ORDER BY code")
	if err != nil {
		return nil, fmt.Errorf("failed to list coverages: %w", err)
	}
	defer rows.Close()

	result := []claims.Coverage{}
	for rows.Next() {
		cov, err := scanCoverage(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, cov)
	}
	return result, rows.Err()
}

func (c *conn) CreateCoverage(ctx context.Context, cov claims.Coverage) (claims.Coverage, error) {
	if cov.ID == "" {
		cov.ID = uuid.NewString()
	}
	cov.CreatedAt, cov.UpdatedAt = stamp(cov.CreatedAt, cov.UpdatedAt, c.now())

	_, err := c.q.ExecContext(ctx,
		"INSERT INTO coverages (id, uid, code, label, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		cov.ID, cov.UID, cov.Code, cov.Label, formatTime(cov.CreatedAt), formatTime(cov.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return claims.Coverage{}, claims.ErrDuplicate
		}
		return claims.Coverage{}, fmt.Errorf("failed to create coverage: %w", err)
	}
	return cov, nil
}

func (c *conn) queryCoverage(ctx context.Context, query string, args ...any) (*claims.Coverage, error) {
	cov, err := scanCoverage(c.q.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cov, nil
}

func scanCoverage(row scanner) (claims.Coverage, error) {
	var cov claims.Coverage
	var createdAt, updatedAt string
	if err := row.Scan(&cov.ID, &cov.UID, &cov.Code, &cov.Label, &createdAt, &updatedAt); err != nil {
		return claims.Coverage{}, err
	}
	cov.CreatedAt = parseTime(createdAt)
	cov.UpdatedAt = parseTime(updatedAt)
	return cov, nil
}

// =============================================================================
// INVOLVED CARS / PARTIES / POLICIES
// =============================================================================

func (c *conn) GetInvolvedCar(ctx context.Context, id string) (*claims.InvolvedCar, error) {
	return c.queryCar(ctx, "SELECT id, good_uid, role FROM involved_cars WHERE id = ?", id)
}

func (c *conn) FindInvolvedCarByGoodUID(ctx context.Context, goodUID string) (*claims.InvolvedCar, error) {
	return c.queryCar(ctx, "SELECT id, good_uid, role FROM involved_cars WHERE good_uid = ?", goodUID)
}

func (c *conn) CreateInvolvedCar(ctx context.Context, car claims.InvolvedCar) (claims.InvolvedCar, error) {
	if car.ID == "" {
		car.ID = uuid.NewString()
	}
	if err := c.insert(ctx, "involved car",
		"INSERT INTO involved_cars (id, good_uid, role) VALUES (?, ?, ?)",
		car.ID, car.GoodUID, car.Role,
	); err != nil {
		return claims.InvolvedCar{}, err
	}
	return car, nil
}

func (c *conn) queryCar(ctx context.Context, query string, args ...any) (*claims.InvolvedCar, error) {
	var car claims.InvolvedCar
	err := c.q.QueryRowContext(ctx, query, args...).Scan(&car.ID, &car.GoodUID, &car.Role)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &car, nil
}

func (c *conn) GetInvolvedParty(ctx context.Context, id string) (*claims.InvolvedParty, error) {
	return c.queryParty(ctx, "SELECT id, party_uid, role FROM involved_parties WHERE id = ?", id)
}

func (c *conn) FindInvolvedPartyByPartyUID(ctx context.Context, partyUID string) (*claims.InvolvedParty, error) {
	return c.queryParty(ctx, "SELECT id, party_uid, role FROM involved_parties WHERE party_uid = ?", partyUID)
}

func (c *conn) CreateInvolvedParty(ctx context.Context, p claims.InvolvedParty) (claims.InvolvedParty, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if err := c.insert(ctx, "involved party",
		"INSERT INTO involved_parties (id, party_uid, role) VALUES (?, ?, ?)",
		p.ID, p.PartyUID, p.Role,
	); err != nil {
		return claims.InvolvedParty{}, err
	}
	return p, nil
}

func (c *conn) queryParty(ctx context.Context, query string, args ...any) (*claims.InvolvedParty, error) {
	var p claims.InvolvedParty
	err := c.q.QueryRowContext(ctx, query, args...).Scan(&p.ID, &p.PartyUID, &p.Role)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *conn) GetInvolvedPolicy(ctx context.Context, id string) (*claims.InvolvedPolicy, error) {
	return c.queryPolicy(ctx, "SELECT id, good_uid, role FROM involved_policies WHERE id = ?", id)
}

func (c *conn) FindInvolvedPolicyByGoodUID(ctx context.Context, goodUID string) (*claims.InvolvedPolicy, error) {
	return c.queryPolicy(ctx, "SELECT id, good_uid, role FROM involved_policies WHERE good_uid = ?", goodUID)
}

func (c *conn) CreateInvolvedPolicy(ctx context.Context, p claims.InvolvedPolicy) (claims.InvolvedPolicy, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if err := c.insert(ctx, "involved policy",
		"INSERT INTO involved_policies (id, good_uid, role) VALUES (?, ?, ?)",
		p.ID, p.GoodUID, p.Role,
	); err != nil {
		return claims.InvolvedPolicy{}, err
	}
	return p, nil
}

func (c *conn) queryPolicy(ctx context.Context, query string, args ...any) (*claims.InvolvedPolicy, error) {
	var p claims.InvolvedPolicy
	err := c.q.QueryRowContext(ctx, query, args...).Scan(&p.ID, &p.GoodUID, &p.Role)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// =============================================================================
// AFFECTED COVERAGES
// =============================================================================

const affectedColumns = "id, claim_id, coverage_id, evaluation, settled_amount"

func (c *conn) GetAffectedCoverage(ctx context.Context, id string) (*claims.AffectedCoverage, error) {
	return c.queryAffected(ctx, "SELECT "+affectedColumns+" FROM affected_coverages WHERE id = ?", id)
}

func (c *conn) FindAffectedCoverage(ctx context.Context, claimID, coverageID string) (*claims.AffectedCoverage, error) {
	return c.queryAffected(ctx,
		"SELECT "+affectedColumns+" FROM affected_coverages WHERE claim_id = ? AND coverage_id = ?",
		claimID, coverageID,
	)
}

func (c *conn) CreateAffectedCoverage(ctx context.Context, ac claims.AffectedCoverage) (claims.AffectedCoverage, error) {
	if ac.ID == "" {
		ac.ID = uuid.NewString()
	}
	if err := c.insert(ctx, "affected coverage",
		"INSERT INTO affected_coverages ("+affectedColumns+") VALUES (?, ?, ?, ?, ?)",
		ac.ID, ac.ClaimID, ac.CoverageID, ac.Evaluation.String(), ac.SettledAmount.String(),
	); err != nil {
		return claims.AffectedCoverage{}, err
	}
	return ac, nil
}

func (c *conn) SaveAffectedCoverage(ctx context.Context, ac claims.AffectedCoverage) (claims.AffectedCoverage, error) {
	res, err := c.q.ExecContext(ctx,
		"UPDATE affected_coverages SET evaluation = ?, settled_amount = ? WHERE id = ?",
		ac.Evaluation.String(), ac.SettledAmount.String(), ac.ID,
	)
	if err != nil {
		return claims.AffectedCoverage{}, fmt.Errorf("failed to save affected coverage: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return claims.AffectedCoverage{}, claims.ErrNotFound
	}

	saved, err := c.GetAffectedCoverage(ctx, ac.ID)
	if err != nil {
		return claims.AffectedCoverage{}, err
	}
	if saved == nil {
		return claims.AffectedCoverage{}, claims.ErrNotFound
	}
	return *saved, nil
}

func (c *conn) queryAffected(ctx context.Context, query string, args ...any) (*claims.AffectedCoverage, error) {
	var ac claims.AffectedCoverage
	var evaluation, settled string
	err := c.q.QueryRowContext(ctx, query, args...).Scan(&ac.ID, &ac.ClaimID, &ac.CoverageID, &evaluation, &settled)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if ac.Evaluation, err = decimal.NewFromString(evaluation); err != nil {
		return nil, fmt.Errorf("affected coverage %s: bad evaluation: %w", ac.ID, err)
	}
	if ac.SettledAmount, err = decimal.NewFromString(settled); err != nil {
		return nil, fmt.Errorf("affected coverage %s: bad settled_amount: %w", ac.ID, err)
	}
	return &ac, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (c *conn) insert(ctx context.Context, what, query string, args ...any) error {
	if _, err := c.q.ExecContext(ctx, query, args...); err != nil {
		if isUniqueConstraintError(err) {
			return claims.ErrDuplicate
		}
		return fmt.Errorf("failed to create %s: %w", what, err)
	}
	return nil
}

func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func stamp(created, updated, now time.Time) (time.Time, time.Time) {
	if created.IsZero() {
		created = now.UTC()
	}
	if updated.IsZero() {
		updated = created
	}
	return created, updated
}
