/*
service.go - Claim lifecycle operations

PURPOSE:
  Orchestrates create, update and status transitions. Each operation
  validates fully, then commits once. Nothing is written while any violation
  is outstanding.

FLOW (create and update):
  1. Field checks (validate.go), always run in full
  2. Store-backed checks dispatched concurrently on one errgroup:
     claim number uniqueness, agency existence, relationship references
  3. Violations aggregated in check order
  4. Zero violations: persist once and return the stored record

RACES:
  Validation and the write are not one transaction. A claim number taken
  between check and create surfaces through the store's uniqueness
  constraint as the same conflict violation.

SEE ALSO:
  - attach.go: Sub-entity attach operations
  - query.go: Read side
*/
package claims

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/warp/claims-engine/metrics"
)

// =============================================================================
// SERVICE
// =============================================================================

type Service struct {
	store    TxStore
	resolver *Resolver
	logger   *logrus.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
	newID    func() string
}

type Option func(*Service)

func WithLogger(logger *logrus.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the time source used for UpdatedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides how new record identifiers are minted.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

func NewService(store TxStore, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: logrus.StandardLogger(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.resolver = NewResolver(store, s.metrics)
	return s
}

// =============================================================================
// CREATE
// =============================================================================

// CreateClaim validates a full payload and persists a new claim. Status
// defaults to OPEN and recourse amount to zero.
func (s *Service) CreateClaim(ctx context.Context, in ClaimInput) (claim Claim, err error) {
	defer s.observe("create_claim", time.Now(), &err)

	v := ValidateClaimFields(in, ModeCreate)

	var (
		duplicate     bool
		agencyMissing bool
		outcomes      []Outcome
	)
	g, gctx := errgroup.WithContext(ctx)
	if !blank(in.ClaimNumber) {
		g.Go(func() error {
			existing, err := s.store.FindClaimByNumber(gctx, *in.ClaimNumber)
			if err != nil {
				return internal("find claim by number", err)
			}
			duplicate = existing != nil
			return nil
		})
	}
	if !blank(in.ReportingAgency) {
		g.Go(func() error {
			ok, err := s.store.Exists(gctx, KindAgency, *in.ReportingAgency)
			if err != nil {
				return internal("check agency", err)
			}
			agencyMissing = !ok
			return nil
		})
	}
	g.Go(func() error {
		var err error
		outcomes, err = s.resolver.Resolve(gctx, References(in), nil)
		return err
	})
	if err := g.Wait(); err != nil {
		return Claim{}, s.fail("create_claim", err)
	}

	if duplicate {
		v.Conflict("claimNumber already exists.")
	}
	if agencyMissing {
		v.NotFound("Agency Object %s not found.", *in.ReportingAgency)
	}
	v.Append(OutcomeViolations(outcomes)...)
	if err := s.reject(v); err != nil {
		return Claim{}, err
	}

	claim = Claim{
		ID:                 s.newID(),
		ClaimNumber:        *in.ClaimNumber,
		Status:             StatusOpen,
		InvolvedCars:       clone(in.InvolvedCars),
		InvolvedPolicies:   clone(in.InvolvedPolicies),
		InvolvedParties:    clone(in.InvolvedParties),
		AffectedCoverages:  clone(in.AffectedCoverages),
		InspectionMissions: clone(in.InspectionMissions),
	}
	applyFields(&claim, in)

	created, err := s.store.CreateClaim(ctx, claim)
	if errors.Is(err, ErrDuplicate) {
		var dup Violations
		dup.Conflict("claimNumber already exists.")
		return Claim{}, s.reject(dup)
	}
	if err != nil {
		return Claim{}, s.fail("create_claim", internal("create claim", err))
	}

	s.logger.WithFields(logrus.Fields{
		"module":       "claims",
		"op":           "create_claim",
		"claim_number": created.ClaimNumber,
		"claim_id":     created.ID,
	}).Info("claim created")
	return created, nil
}

// =============================================================================
// UPDATE
// =============================================================================

// UpdateClaim merges the present fields of a partial payload into an
// existing claim. Relationship identifiers must exist and must not already
// be linked; a relationship list present in the payload replaces the stored one.
func (s *Service) UpdateClaim(ctx context.Context, claimNumber string, in ClaimInput) (claim Claim, err error) {
	defer s.observe("update_claim", time.Now(), &err)

	var v Violations
	existing, err := s.store.FindClaimByNumber(ctx, claimNumber)
	if err != nil {
		return Claim{}, s.fail("update_claim", internal("find claim by number", err))
	}
	if existing == nil {
		v.NotFound("Claim %s not found", claimNumber)
	}

	v.Append(ValidateClaimFields(in, ModeUpdate)...)
	if existing != nil && in.ClaimNumber != nil && *in.ClaimNumber != existing.ClaimNumber {
		v.Invalid("Claim Number cannot be changed")
	}

	// Membership checks need the stored claim.
	if existing == nil {
		return Claim{}, s.reject(v)
	}

	refs := References(in)
	v.Append(repeatedReferences(refs)...)

	var (
		agencyMissing bool
		outcomes      []Outcome
	)
	g, gctx := errgroup.WithContext(ctx)
	if in.ReportingAgency != nil {
		g.Go(func() error {
			ok, err := s.store.Exists(gctx, KindAgency, *in.ReportingAgency)
			if err != nil {
				return internal("check agency", err)
			}
			agencyMissing = !ok
			return nil
		})
	}
	g.Go(func() error {
		var err error
		outcomes, err = s.resolver.Resolve(gctx, refs, LinkedFrom(*existing))
		return err
	})
	if err := g.Wait(); err != nil {
		return Claim{}, s.fail("update_claim", err)
	}

	if agencyMissing {
		v.NotFound("Agency Object %s not found.", *in.ReportingAgency)
	}
	v.Append(OutcomeViolations(outcomes)...)
	if err := s.reject(v); err != nil {
		return Claim{}, err
	}

	merged := existing.Clone()
	applyFields(&merged, in)
	if in.InspectionMissions != nil {
		merged.InspectionMissions = clone(in.InspectionMissions)
	}
	replaceIfPresent(&merged.InvolvedCars, in.InvolvedCars)
	replaceIfPresent(&merged.InvolvedPolicies, in.InvolvedPolicies)
	replaceIfPresent(&merged.InvolvedParties, in.InvolvedParties)
	replaceIfPresent(&merged.AffectedCoverages, in.AffectedCoverages)
	merged.UpdatedAt = s.now().UTC()

	saved, err := s.store.SaveClaim(ctx, merged)
	if errors.Is(err, ErrNotFound) {
		return Claim{}, &NotFoundError{Resource: "Claim", Key: claimNumber}
	}
	if err != nil {
		return Claim{}, s.fail("update_claim", internal("save claim", err))
	}

	s.logger.WithFields(logrus.Fields{
		"module":       "claims",
		"op":           "update_claim",
		"claim_number": saved.ClaimNumber,
	}).Info("claim updated")
	return saved, nil
}

// replaceIfPresent overwrites a relationship list when the payload carries
// one. An explicit empty list clears it.
func replaceIfPresent(dst *[]string, ids []string) {
	if ids != nil {
		*dst = clone(ids)
	}
}

// repeatedReferences rejects an identifier listed twice in one payload, which
// would otherwise link the same record twice.
func repeatedReferences(refs []Reference) Violations {
	var v Violations
	seen := make(map[Reference]bool, len(refs))
	for _, ref := range refs {
		if seen[ref] {
			v.Conflict("%s Object _id %s is listed more than once.", ref.Kind.Label(), ref.ID)
			continue
		}
		seen[ref] = true
	}
	return v
}

// =============================================================================
// STATUS
// =============================================================================

// UpdateStatus moves a claim to any status of the enumeration.
func (s *Service) UpdateStatus(ctx context.Context, claimNumber, status string) (claim Claim, err error) {
	defer s.observe("update_status", time.Now(), &err)

	if err := s.reject(ValidateStatus(status)); err != nil {
		return Claim{}, err
	}

	err = s.store.WithTx(ctx, func(tx Store) error {
		existing, err := tx.FindClaimByNumber(ctx, claimNumber)
		if err != nil {
			return internal("find claim by number", err)
		}
		if existing == nil {
			return &NotFoundError{Resource: "Claim", Key: claimNumber}
		}
		existing.Status = Status(status)
		existing.UpdatedAt = s.now().UTC()
		claim, err = tx.SaveClaim(ctx, *existing)
		if errors.Is(err, ErrNotFound) {
			return &NotFoundError{Resource: "Claim", Key: claimNumber}
		}
		if err != nil {
			return internal("save claim", err)
		}
		return nil
	})
	if err != nil {
		return Claim{}, s.fail("update_status", err)
	}

	s.logger.WithFields(logrus.Fields{
		"module":       "claims",
		"op":           "update_status",
		"claim_number": claimNumber,
		"status":       status,
	}).Info("claim status changed")
	return claim, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// applyFields copies the present scalar fields of a validated payload.
func applyFields(c *Claim, in ClaimInput) {
	if in.OccurrenceDate != nil {
		c.OccurrenceDate, _ = ParseDate(*in.OccurrenceDate)
	}
	if in.ReportingDate != nil {
		c.ReportingDate, _ = ParseDate(*in.ReportingDate)
	}
	if in.ReportingType != nil {
		c.ReportingType = ReportingType(*in.ReportingType)
	}
	if in.Responsibility != nil {
		c.Responsibility = Responsibility(*in.Responsibility)
	}
	if in.DamageType != nil {
		c.DamageType = DamageType(*in.DamageType)
	}
	if in.ClaimAmount != nil {
		c.ClaimAmount, _ = ParseAmount(in.ClaimAmount)
	}
	if in.RecourseAmount != nil {
		c.RecourseAmount, _ = ParseAmount(in.RecourseAmount)
	}
	if in.Daaq != nil {
		c.Daaq = *in.Daaq
	}
	if flag, ok := in.FlagFraud.(bool); ok {
		c.FlagFraud = flag
	}
	if in.Status != nil {
		c.Status = Status(*in.Status)
	}
	if in.ReportingAgency != nil {
		c.ReportingAgency = *in.ReportingAgency
	}
}

// reject turns collected violations into a ValidationError and counts them.
func (s *Service) reject(v Violations) error {
	if v.Empty() {
		return nil
	}
	for _, violation := range v {
		s.metrics.IncrementViolation(string(violation.Kind))
	}
	return v.Err()
}

// fail logs store failures. Client errors pass through untouched.
func (s *Service) fail(op string, err error) error {
	if IsInternal(err) {
		s.logger.WithFields(logrus.Fields{
			"module": "claims",
			"op":     op,
		}).Error(err.Error())
	}
	return err
}

func (s *Service) observe(op string, start time.Time, errp *error) {
	outcome := metrics.OutcomeSuccess
	switch err := *errp; {
	case err == nil:
	case IsClientError(err):
		outcome = metrics.OutcomeRejected
	case IsNotFound(err):
		outcome = metrics.OutcomeNotFound
	default:
		outcome = metrics.OutcomeError
	}
	s.metrics.ObserveOperation(op, outcome, time.Since(start))
}
