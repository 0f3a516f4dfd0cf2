// Package store provides in-memory claims.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/warp/claims-engine/claims"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu sync.RWMutex
	t  *tables
}

func NewMemory() *Memory {
	return &Memory{t: newTables()}
}

func (m *Memory) Exists(ctx context.Context, kind claims.EntityKind, id string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.Exists(ctx, kind, id)
}

func (m *Memory) GetClaim(ctx context.Context, id string) (*claims.Claim, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.GetClaim(ctx, id)
}

func (m *Memory) FindClaimByNumber(ctx context.Context, claimNumber string) (*claims.Claim, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.FindClaimByNumber(ctx, claimNumber)
}

func (m *Memory) ListClaims(ctx context.Context, q claims.ClaimQuery) ([]claims.Claim, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.ListClaims(ctx, q)
}

func (m *Memory) CreateClaim(ctx context.Context, c claims.Claim) (claims.Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.CreateClaim(ctx, c)
}

func (m *Memory) SaveClaim(ctx context.Context, c claims.Claim) (claims.Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.SaveClaim(ctx, c)
}

func (m *Memory) GetAgency(ctx context.Context, id string) (*claims.Agency, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.GetAgency(ctx, id)
}

func (m *Memory) FindAgencyByCode(ctx context.Context, code string) (*claims.Agency, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.FindAgencyByCode(ctx, code)
}

func (m *Memory) ListAgencies(ctx context.Context) ([]claims.Agency, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.ListAgencies(ctx)
}

func (m *Memory) CreateAgency(ctx context.Context, a claims.Agency) (claims.Agency, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.CreateAgency(ctx, a)
}

func (m *Memory) GetCoverage(ctx context.Context, id string) (*claims.Coverage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.GetCoverage(ctx, id)
}

func (m *Memory) FindCoverageByCode(ctx context.Context, code string) (*claims.Coverage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.FindCoverageByCode(ctx, code)
}

func (m *Memory) ListCoverages(ctx context.Context) ([]claims.Coverage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.ListCoverages(ctx)
}

func (m *Memory) CreateCoverage(ctx context.Context, c claims.Coverage) (claims.Coverage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.CreateCoverage(ctx, c)
}

func (m *Memory) GetInvolvedCar(ctx context.Context, id string) (*claims.InvolvedCar, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.GetInvolvedCar(ctx, id)
}

func (m *Memory) FindInvolvedCarByGoodUID(ctx context.Context, goodUID string) (*claims.InvolvedCar, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.FindInvolvedCarByGoodUID(ctx, goodUID)
}

func (m *Memory) CreateInvolvedCar(ctx context.Context, c claims.InvolvedCar) (claims.InvolvedCar, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.CreateInvolvedCar(ctx, c)
}

func (m *Memory) GetInvolvedParty(ctx context.Context, id string) (*claims.InvolvedParty, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.GetInvolvedParty(ctx, id)
}

func (m *Memory) FindInvolvedPartyByPartyUID(ctx context.Context, partyUID string) (*claims.InvolvedParty, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.FindInvolvedPartyByPartyUID(ctx, partyUID)
}

func (m *Memory) CreateInvolvedParty(ctx context.Context, p claims.InvolvedParty) (claims.InvolvedParty, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.CreateInvolvedParty(ctx, p)
}

func (m *Memory) GetInvolvedPolicy(ctx context.Context, id string) (*claims.InvolvedPolicy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.GetInvolvedPolicy(ctx, id)
}

func (m *Memory) FindInvolvedPolicyByGoodUID(ctx context.Context, goodUID string) (*claims.InvolvedPolicy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.FindInvolvedPolicyByGoodUID(ctx, goodUID)
}

func (m *Memory) CreateInvolvedPolicy(ctx context.Context, p claims.InvolvedPolicy) (claims.InvolvedPolicy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.CreateInvolvedPolicy(ctx, p)
}

func (m *Memory) GetAffectedCoverage(ctx context.Context, id string) (*claims.AffectedCoverage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.GetAffectedCoverage(ctx, id)
}

func (m *Memory) FindAffectedCoverage(ctx context.Context, claimID, coverageID string) (*claims.AffectedCoverage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.FindAffectedCoverage(ctx, claimID, coverageID)
}

func (m *Memory) CreateAffectedCoverage(ctx context.Context, ac claims.AffectedCoverage) (claims.AffectedCoverage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.CreateAffectedCoverage(ctx, ac)
}

func (m *Memory) SaveAffectedCoverage(ctx context.Context, ac claims.AffectedCoverage) (claims.AffectedCoverage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.SaveAffectedCoverage(ctx, ac)
}

// Reset clears all data (for testing/demo).
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.t = newTables()
	return nil
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (tm *TxMemory) WithTx(ctx context.Context, fn func(claims.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	// Snapshot current state
	snapshot := tm.t.snapshot()

	// The unlocked tables are the transactional view; the lock is already held.
	if err := fn(tm.t); err != nil {
		// Rollback
		tm.t = snapshot
		return err
	}

	// Commit (already done via direct writes)
	return nil
}

// =============================================================================
// TABLES - unlocked state, also the view handed to WithTx callbacks
// =============================================================================

type tables struct {
	claims     map[string]claims.Claim
	claimOrder []string
	agencies   map[string]claims.Agency
	coverages  map[string]claims.Coverage
	cars       map[string]claims.InvolvedCar
	parties    map[string]claims.InvolvedParty
	policies   map[string]claims.InvolvedPolicy
	affected   map[string]claims.AffectedCoverage
	now        func() time.Time
}

func newTables() *tables {
	return &tables{
		claims:    make(map[string]claims.Claim),
		agencies:  make(map[string]claims.Agency),
		coverages: make(map[string]claims.Coverage),
		cars:      make(map[string]claims.InvolvedCar),
		parties:   make(map[string]claims.InvolvedParty),
		policies:  make(map[string]claims.InvolvedPolicy),
		affected:  make(map[string]claims.AffectedCoverage),
		now:       time.Now,
	}
}

func (t *tables) snapshot() *tables {
	claimsCopy := make(map[string]claims.Claim, len(t.claims))
	for id, c := range t.claims {
		claimsCopy[id] = c.Clone()
	}
	return &tables{
		claims:     claimsCopy,
		claimOrder: append([]string(nil), t.claimOrder...),
		agencies:   copyMap(t.agencies),
		coverages:  copyMap(t.coverages),
		cars:       copyMap(t.cars),
		parties:    copyMap(t.parties),
		policies:   copyMap(t.policies),
		affected:   copyMap(t.affected),
		now:        t.now,
	}
}

func (t *tables) Exists(_ context.Context, kind claims.EntityKind, id string) (bool, error) {
	var ok bool
	switch kind {
	case claims.KindClaim:
		_, ok = t.claims[id]
	case claims.KindAgency:
		_, ok = t.agencies[id]
	case claims.KindCoverage:
		_, ok = t.coverages[id]
	case claims.KindInvolvedCar:
		_, ok = t.cars[id]
	case claims.KindInvolvedParty:
		_, ok = t.parties[id]
	case claims.KindInvolvedPolicy:
		_, ok = t.policies[id]
	case claims.KindAffectedCoverage:
		_, ok = t.affected[id]
	}
	return ok, nil
}

// --- claims ---

func (t *tables) GetClaim(_ context.Context, id string) (*claims.Claim, error) {
	c, ok := t.claims[id]
	if !ok {
		return nil, nil
	}
	c = c.Clone()
	return &c, nil
}

func (t *tables) FindClaimByNumber(_ context.Context, claimNumber string) (*claims.Claim, error) {
	for _, id := range t.claimOrder {
		if c := t.claims[id]; c.ClaimNumber == claimNumber {
			c = c.Clone()
			return &c, nil
		}
	}
	return nil, nil
}

func (t *tables) ListClaims(_ context.Context, q claims.ClaimQuery) ([]claims.Claim, error) {
	result := []claims.Claim{}
	for _, id := range t.claimOrder {
		c := t.claims[id]
		if q.ClaimNumber != "" && c.ClaimNumber != q.ClaimNumber {
			continue
		}
		result = append(result, c.Clone())
	}
	return result, nil
}

func (t *tables) CreateClaim(_ context.Context, c claims.Claim) (claims.Claim, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if _, taken := t.claims[c.ID]; taken {
		return claims.Claim{}, claims.ErrDuplicate
	}
	for _, existing := range t.claims {
		if existing.ClaimNumber == c.ClaimNumber {
			return claims.Claim{}, claims.ErrDuplicate
		}
	}
	c.CreatedAt, c.UpdatedAt = stamp(c.CreatedAt, c.UpdatedAt, t.now())
	c = c.Clone()
	t.claims[c.ID] = c
	t.claimOrder = append(t.claimOrder, c.ID)
	return c.Clone(), nil
}

func (t *tables) SaveClaim(_ context.Context, c claims.Claim) (claims.Claim, error) {
	stored, ok := t.claims[c.ID]
	if !ok {
		return claims.Claim{}, claims.ErrNotFound
	}
	for id, existing := range t.claims {
		if id != c.ID && existing.ClaimNumber == c.ClaimNumber {
			return claims.Claim{}, claims.ErrDuplicate
		}
	}
	c.CreatedAt = stored.CreatedAt
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = t.now().UTC()
	}
	c = c.Clone()
	t.claims[c.ID] = c
	return c.Clone(), nil
}

// --- agencies ---

func (t *tables) GetAgency(_ context.Context, id string) (*claims.Agency, error) {
	return lookup(t.agencies, id), nil
}

func (t *tables) FindAgencyByCode(_ context.Context, code string) (*claims.Agency, error) {
	return findFirst(t.agencies, func(a claims.Agency) bool { return a.Code == code }), nil
}

func (t *tables) ListAgencies(_ context.Context) ([]claims.Agency, error) {
	return sortedValues(t.agencies, func(a, b claims.Agency) bool { return a.Code < b.Code }), nil
}

func (t *tables) CreateAgency(_ context.Context, a claims.Agency) (claims.Agency, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if findFirst(t.agencies, func(x claims.Agency) bool { return x.ID == a.ID || x.Code == a.Code }) != nil {
		return claims.Agency{}, claims.ErrDuplicate
	}
	a.CreatedAt, a.UpdatedAt = stamp(a.CreatedAt, a.UpdatedAt, t.now())
	t.agencies[a.ID] = a
	return a, nil
}

// --- coverages ---

func (t *tables) GetCoverage(_ context.Context, id string) (*claims.Coverage, error) {
	return lookup(t.coverages, id), nil
}

func (t *tables) FindCoverageByCode(_ context.Context, code string) (*claims.Coverage, error) {
	return findFirst(t.coverages, func(c claims.Coverage) bool { return c.Code == code }), nil
}

func (t *tables) ListCoverages(_ context.Context) ([]claims.Coverage, error) {
	return sortedValues(t.coverages, func(a, b claims.Coverage) bool { return a.Code < b.Code }), nil
}

func (t *tables) CreateCoverage(_ context.Context, c claims.Coverage) (claims.Coverage, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if findFirst(t.coverages, func(x claims.Coverage) bool { return x.ID == c.ID || x.Code == c.Code }) != nil {
		return claims.Coverage{}, claims.ErrDuplicate
	}
	c.CreatedAt, c.UpdatedAt = stamp(c.CreatedAt, c.UpdatedAt, t.now())
	t.coverages[c.ID] = c
	return c, nil
}

// --- involved cars / parties / policies ---

func (t *tables) GetInvolvedCar(_ context.Context, id string) (*claims.InvolvedCar, error) {
	return lookup(t.cars, id), nil
}

func (t *tables) FindInvolvedCarByGoodUID(_ context.Context, goodUID string) (*claims.InvolvedCar, error) {
	return findFirst(t.cars, func(c claims.InvolvedCar) bool { return c.GoodUID == goodUID }), nil
}

func (t *tables) CreateInvolvedCar(_ context.Context, c claims.InvolvedCar) (claims.InvolvedCar, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if findFirst(t.cars, func(x claims.InvolvedCar) bool { return x.ID == c.ID || x.GoodUID == c.GoodUID }) != nil {
		return claims.InvolvedCar{}, claims.ErrDuplicate
	}
	t.cars[c.ID] = c
	return c, nil
}

func (t *tables) GetInvolvedParty(_ context.Context, id string) (*claims.InvolvedParty, error) {
	return lookup(t.parties, id), nil
}

func (t *tables) FindInvolvedPartyByPartyUID(_ context.Context, partyUID string) (*claims.InvolvedParty, error) {
	return findFirst(t.parties, func(p claims.InvolvedParty) bool { return p.PartyUID == partyUID }), nil
}

func (t *tables) CreateInvolvedParty(_ context.Context, p claims.InvolvedParty) (claims.InvolvedParty, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if findFirst(t.parties, func(x claims.InvolvedParty) bool { return x.ID == p.ID || x.PartyUID == p.PartyUID }) != nil {
		return claims.InvolvedParty{}, claims.ErrDuplicate
	}
	t.parties[p.ID] = p
	return p, nil
}

func (t *tables) GetInvolvedPolicy(_ context.Context, id string) (*claims.InvolvedPolicy, error) {
	return lookup(t.policies, id), nil
}

func (t *tables) FindInvolvedPolicyByGoodUID(_ context.Context, goodUID string) (*claims.InvolvedPolicy, error) {
	return findFirst(t.policies, func(p claims.InvolvedPolicy) bool { return p.GoodUID == goodUID }), nil
}

func (t *tables) CreateInvolvedPolicy(_ context.Context, p claims.InvolvedPolicy) (claims.InvolvedPolicy, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if findFirst(t.policies, func(x claims.InvolvedPolicy) bool { return x.ID == p.ID || x.GoodUID == p.GoodUID }) != nil {
		return claims.InvolvedPolicy{}, claims.ErrDuplicate
	}
	t.policies[p.ID] = p
	return p, nil
}

// --- affected coverages ---

func (t *tables) GetAffectedCoverage(_ context.Context, id string) (*claims.AffectedCoverage, error) {
	return lookup(t.affected, id), nil
}

func (t *tables) FindAffectedCoverage(_ context.Context, claimID, coverageID string) (*claims.AffectedCoverage, error) {
	return findFirst(t.affected, func(ac claims.AffectedCoverage) bool {
		return ac.ClaimID == claimID && ac.CoverageID == coverageID
	}), nil
}

func (t *tables) CreateAffectedCoverage(_ context.Context, ac claims.AffectedCoverage) (claims.AffectedCoverage, error) {
	if ac.ID == "" {
		ac.ID = uuid.NewString()
	}
	if findFirst(t.affected, func(x claims.AffectedCoverage) bool {
		return x.ID == ac.ID || (x.ClaimID == ac.ClaimID && x.CoverageID == ac.CoverageID)
	}) != nil {
		return claims.AffectedCoverage{}, claims.ErrDuplicate
	}
	t.affected[ac.ID] = ac
	return ac, nil
}

func (t *tables) SaveAffectedCoverage(_ context.Context, ac claims.AffectedCoverage) (claims.AffectedCoverage, error) {
	if _, ok := t.affected[ac.ID]; !ok {
		return claims.AffectedCoverage{}, claims.ErrNotFound
	}
	t.affected[ac.ID] = ac
	return ac, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func lookup[T any](m map[string]T, id string) *T {
	v, ok := m[id]
	if !ok {
		return nil
	}
	return &v
}

func findFirst[T any](m map[string]T, pred func(T) bool) *T {
	for _, v := range m {
		if pred(v) {
			return &v
		}
	}
	return nil
}

func sortedValues[T any](m map[string]T, less func(a, b T) bool) []T {
	result := make([]T, 0, len(m))
	for _, v := range m {
		result = append(result, v)
	}
	sort.Slice(result, func(i, j int) bool { return less(result[i], result[j]) })
	return result
}

func copyMap[T any](m map[string]T) map[string]T {
	out := make(map[string]T, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
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
