/*
store.go - Persistence contract for claims and referenced entities

PURPOSE:
  Defines what the claim engine needs from a document store. The engine
  never sees SQL or maps; it only calls these methods.

LOOKUP CONVENTION:
  Get* and Find* return (nil, nil) when the record does not exist. A non-nil
  error always means the store itself failed.

WRITES:
  Create* assigns an identifier when the record has none and stamps
  timestamps. Natural keys (claim number, agency code, coverage code) are
  unique; a violating Create* returns ErrDuplicate.
  Save* persists an in-place mutation and returns ErrNotFound when the record
  disappeared.

ATOMIC UNITS:
  TxStore.WithTx runs fn against a transactional view. If fn returns an
  error nothing it wrote is kept.

IMPLEMENTATIONS:
  - claims/store/memory.go: In-memory, for tests and demos
  - store/sqlite/sqlite.go: SQLite

SEE ALSO:
  - resolver.go: Uses Exists for concurrent reference checks
  - service.go: Uses WithTx for attach operations
*/
package claims

import "context"

// EntityKind names a kind of record a claim can reference.
type EntityKind string

const (
	KindClaim            EntityKind = "claim"
	KindAgency           EntityKind = "agency"
	KindCoverage         EntityKind = "coverage"
	KindInvolvedCar      EntityKind = "involved_car"
	KindInvolvedParty    EntityKind = "involved_party"
	KindInvolvedPolicy   EntityKind = "involved_policy"
	KindAffectedCoverage EntityKind = "affected_coverage"
)

// Label is the human-readable name used in violation messages.
func (k EntityKind) Label() string {
	switch k {
	case KindClaim:
		return "Claim"
	case KindAgency:
		return "Agency"
	case KindCoverage:
		return "Coverage"
	case KindInvolvedCar:
		return "Involved Car"
	case KindInvolvedParty:
		return "Involved Party"
	case KindInvolvedPolicy:
		return "Involved Policy"
	case KindAffectedCoverage:
		return "Affected Coverage"
	}
	return string(k)
}

// ClaimQuery narrows ListClaims. The zero value lists every claim.
type ClaimQuery struct {
	ClaimNumber string
}

// =============================================================================
// STORE
// =============================================================================

type Store interface {
	// Exists reports whether a record of the given kind has this identifier.
	Exists(ctx context.Context, kind EntityKind, id string) (bool, error)

	GetClaim(ctx context.Context, id string) (*Claim, error)
	FindClaimByNumber(ctx context.Context, claimNumber string) (*Claim, error)
	ListClaims(ctx context.Context, q ClaimQuery) ([]Claim, error)
	CreateClaim(ctx context.Context, c Claim) (Claim, error)
	SaveClaim(ctx context.Context, c Claim) (Claim, error)

	GetAgency(ctx context.Context, id string) (*Agency, error)
	FindAgencyByCode(ctx context.Context, code string) (*Agency, error)
	ListAgencies(ctx context.Context) ([]Agency, error)
	CreateAgency(ctx context.Context, a Agency) (Agency, error)

	GetCoverage(ctx context.Context, id string) (*Coverage, error)
	FindCoverageByCode(ctx context.Context, code string) (*Coverage, error)
	ListCoverages(ctx context.Context) ([]Coverage, error)
	CreateCoverage(ctx context.Context, c Coverage) (Coverage, error)

	GetInvolvedCar(ctx context.Context, id string) (*InvolvedCar, error)
	FindInvolvedCarByGoodUID(ctx context.Context, goodUID string) (*InvolvedCar, error)
	CreateInvolvedCar(ctx context.Context, c InvolvedCar) (InvolvedCar, error)

	GetInvolvedParty(ctx context.Context, id string) (*InvolvedParty, error)
	FindInvolvedPartyByPartyUID(ctx context.Context, partyUID string) (*InvolvedParty, error)
	CreateInvolvedParty(ctx context.Context, p InvolvedParty) (InvolvedParty, error)

	GetInvolvedPolicy(ctx context.Context, id string) (*InvolvedPolicy, error)
	FindInvolvedPolicyByGoodUID(ctx context.Context, goodUID string) (*InvolvedPolicy, error)
	CreateInvolvedPolicy(ctx context.Context, p InvolvedPolicy) (InvolvedPolicy, error)

	GetAffectedCoverage(ctx context.Context, id string) (*AffectedCoverage, error)
	// FindAffectedCoverage returns the record linking claimID and coverageID.
	FindAffectedCoverage(ctx context.Context, claimID, coverageID string) (*AffectedCoverage, error)
	CreateAffectedCoverage(ctx context.Context, ac AffectedCoverage) (AffectedCoverage, error)
	SaveAffectedCoverage(ctx context.Context, ac AffectedCoverage) (AffectedCoverage, error)
}

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, transaction is rolled back.
	// If fn returns nil, transaction is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}
