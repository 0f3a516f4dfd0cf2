/*
attach.go - Attaching sub-entities to an existing claim

PURPOSE:
  Links involved cars, parties and policies (shared, upserted by natural
  key) and affected coverages (owned by the claim) to a claim.

ORDER OF WORK:
  1. Role / amount / required-field checks
  2. Claim lookup. A missing claim short-circuits: membership checks would
     be meaningless without it
  3. Natural-key lookup and already-linked check
  4. Only with zero violations: one WithTx unit that creates or reuses the
     sub-entity, appends its id to the claim and saves the claim

UPSERT:
  Cars, parties and policies are found by goodUid / partyUid and reused when
  present, keeping the role they were first created with. The store's unique
  index on the natural key backs the read-then-create; a concurrent create
  that wins the race is picked up by a second lookup.
*/
package claims

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// =============================================================================
// INVOLVED CARS / PARTIES / POLICIES
// =============================================================================

// sharedEntity describes how one kind of upserted sub-entity is stored and
// linked to a claim.
type sharedEntity[T any] struct {
	kind     EntityKind
	op       string
	conflict string
	find     func(ctx context.Context, st Store, uid string) (*T, error)
	create   func(ctx context.Context, st Store, id, uid, role string) (T, error)
	id       func(T) string
	links    func(c *Claim) *[]string
}

var involvedCars = sharedEntity[InvolvedCar]{
	kind:     KindInvolvedCar,
	op:       "add_involved_car",
	conflict: "Car already exists in the claim",
	find: func(ctx context.Context, st Store, uid string) (*InvolvedCar, error) {
		return st.FindInvolvedCarByGoodUID(ctx, uid)
	},
	create: func(ctx context.Context, st Store, id, uid, role string) (InvolvedCar, error) {
		return st.CreateInvolvedCar(ctx, InvolvedCar{ID: id, GoodUID: uid, Role: CarRole(role)})
	},
	id:    func(c InvolvedCar) string { return c.ID },
	links: func(c *Claim) *[]string { return &c.InvolvedCars },
}

var involvedParties = sharedEntity[InvolvedParty]{
	kind:     KindInvolvedParty,
	op:       "add_involved_party",
	conflict: "Party already exists in the claim",
	find: func(ctx context.Context, st Store, uid string) (*InvolvedParty, error) {
		return st.FindInvolvedPartyByPartyUID(ctx, uid)
	},
	create: func(ctx context.Context, st Store, id, uid, role string) (InvolvedParty, error) {
		return st.CreateInvolvedParty(ctx, InvolvedParty{ID: id, PartyUID: uid, Role: PartyRole(role)})
	},
	id:    func(p InvolvedParty) string { return p.ID },
	links: func(c *Claim) *[]string { return &c.InvolvedParties },
}

var involvedPolicies = sharedEntity[InvolvedPolicy]{
	kind:     KindInvolvedPolicy,
	op:       "add_involved_policy",
	conflict: "Policy already exists in the claim",
	find: func(ctx context.Context, st Store, uid string) (*InvolvedPolicy, error) {
		return st.FindInvolvedPolicyByGoodUID(ctx, uid)
	},
	create: func(ctx context.Context, st Store, id, uid, role string) (InvolvedPolicy, error) {
		return st.CreateInvolvedPolicy(ctx, InvolvedPolicy{ID: id, GoodUID: uid, Role: PolicyRole(role)})
	},
	id:    func(p InvolvedPolicy) string { return p.ID },
	links: func(c *Claim) *[]string { return &c.InvolvedPolicies },
}

// AddInvolvedCar links a car, identified by goodUid, to a claim.
func (s *Service) AddInvolvedCar(ctx context.Context, in AttachInput) (InvolvedCar, error) {
	return attachShared(ctx, s, in, involvedCars)
}

// AddInvolvedParty links a party, identified by partyUid, to a claim.
func (s *Service) AddInvolvedParty(ctx context.Context, in AttachInput) (InvolvedParty, error) {
	return attachShared(ctx, s, in, involvedParties)
}

// AddInvolvedPolicy links a policy, identified by goodUid, to a claim.
func (s *Service) AddInvolvedPolicy(ctx context.Context, in AttachInput) (InvolvedPolicy, error) {
	return attachShared(ctx, s, in, involvedPolicies)
}

func attachShared[T any](ctx context.Context, s *Service, in AttachInput, e sharedEntity[T]) (entity T, err error) {
	defer s.observe(e.op, time.Now(), &err)

	in.ClaimNumber = strings.TrimSpace(in.ClaimNumber)
	in.UID = strings.TrimSpace(in.UID)

	v := validateRequired(in)
	v.Append(ValidateRole(e.kind, in.Role)...)

	if in.ClaimNumber == "" {
		return entity, s.reject(v)
	}
	claim, err := s.store.FindClaimByNumber(ctx, in.ClaimNumber)
	if err != nil {
		return entity, s.fail(e.op, internal("find claim by number", err))
	}
	if claim == nil {
		v.NotFound("Claim %s not found", in.ClaimNumber)
		return entity, s.reject(v)
	}

	if in.UID != "" {
		existing, err := e.find(ctx, s.store, in.UID)
		if err != nil {
			return entity, s.fail(e.op, internal("find "+string(e.kind), err))
		}
		if existing != nil && contains(*e.links(claim), e.id(*existing)) {
			v.Conflict("%s", e.conflict)
		}
	}
	if err := s.reject(v); err != nil {
		return entity, err
	}

	err = s.store.WithTx(ctx, func(tx Store) error {
		found, err := e.find(ctx, tx, in.UID)
		if err != nil {
			return internal("find "+string(e.kind), err)
		}
		if found == nil {
			created, err := e.create(ctx, tx, s.newID(), in.UID, in.Role)
			switch {
			case errors.Is(err, ErrDuplicate):
				if found, err = e.find(ctx, tx, in.UID); err != nil || found == nil {
					return internal("find "+string(e.kind), errors.Join(ErrDuplicate, err))
				}
			case err != nil:
				return internal("create "+string(e.kind), err)
			default:
				found = &created
			}
		}
		entity = *found

		return s.linkToClaim(ctx, tx, claim.ID, in.ClaimNumber, e.links, e.id(entity), e.conflict)
	})
	if err != nil {
		return entity, s.fail(e.op, err)
	}

	s.logger.WithFields(logrus.Fields{
		"module":       "claims",
		"op":           e.op,
		"claim_number": in.ClaimNumber,
		"entity_id":    e.id(entity),
	}).Info(e.kind.Label() + " attached")
	return entity, nil
}

// linkToClaim reloads the claim inside the transaction, appends id to the
// selected relationship list and saves. A link that appeared since the
// pre-check is still rejected.
func (s *Service) linkToClaim(ctx context.Context, tx Store, claimID, claimNumber string, links func(*Claim) *[]string, id, conflict string) error {
	current, err := tx.GetClaim(ctx, claimID)
	if err != nil {
		return internal("get claim", err)
	}
	if current == nil {
		return &NotFoundError{Resource: "Claim", Key: claimNumber}
	}

	list := links(current)
	if contains(*list, id) {
		var v Violations
		v.Conflict("%s", conflict)
		return s.reject(v)
	}
	*list = append(*list, id)
	current.UpdatedAt = s.now().UTC()

	if _, err := tx.SaveClaim(ctx, *current); err != nil {
		if errors.Is(err, ErrNotFound) {
			return &NotFoundError{Resource: "Claim", Key: claimNumber}
		}
		return internal("save claim", err)
	}
	return nil
}

// =============================================================================
// AFFECTED COVERAGES
// =============================================================================

// AddAffectedCoverage records the evaluation of one coverage for a claim.
// Settled amount defaults to zero.
func (s *Service) AddAffectedCoverage(ctx context.Context, in AffectedCoverageInput) (ac AffectedCoverage, err error) {
	const op = "add_affected_coverage"
	defer s.observe(op, time.Now(), &err)

	in = in.trimmed()
	evaluation, settled, v := ValidateCoverageAmounts(in, false)

	claim, coverage, ok, err := s.loadClaimCoverage(ctx, op, in, &v)
	if err != nil || !ok {
		return AffectedCoverage{}, err
	}

	existing, err := s.store.FindAffectedCoverage(ctx, claim.ID, coverage.ID)
	if err != nil {
		return AffectedCoverage{}, s.fail(op, internal("find affected coverage", err))
	}
	if existing != nil {
		v.Conflict("Affected coverage already exists in the claim")
	}
	if err := s.reject(v); err != nil {
		return AffectedCoverage{}, err
	}

	err = s.store.WithTx(ctx, func(tx Store) error {
		created, err := tx.CreateAffectedCoverage(ctx, AffectedCoverage{
			ID:            s.newID(),
			ClaimID:       claim.ID,
			CoverageID:    coverage.ID,
			Evaluation:    evaluation,
			SettledAmount: settled,
		})
		if errors.Is(err, ErrDuplicate) {
			var dup Violations
			dup.Conflict("Affected coverage already exists in the claim")
			return s.reject(dup)
		}
		if err != nil {
			return internal("create affected coverage", err)
		}
		ac = created

		return s.linkToClaim(ctx, tx, claim.ID, claim.ClaimNumber,
			func(c *Claim) *[]string { return &c.AffectedCoverages },
			created.ID, "Affected coverage already exists in the claim")
	})
	if err != nil {
		return AffectedCoverage{}, s.fail(op, err)
	}

	s.logger.WithFields(logrus.Fields{
		"module":        "claims",
		"op":            op,
		"claim_number":  claim.ClaimNumber,
		"coverage_code": coverage.Code,
	}).Info("affected coverage added")
	return ac, nil
}

// UpdateAffectedCoverage replaces the evaluation and settled amount of an
// affected coverage already linked to the claim.
func (s *Service) UpdateAffectedCoverage(ctx context.Context, in AffectedCoverageInput) (ac AffectedCoverage, err error) {
	const op = "update_affected_coverage"
	defer s.observe(op, time.Now(), &err)

	in = in.trimmed()
	evaluation, settled, v := ValidateCoverageAmounts(in, true)

	claim, coverage, ok, err := s.loadClaimCoverage(ctx, op, in, &v)
	if err != nil || !ok {
		return AffectedCoverage{}, err
	}

	existing, err := s.store.FindAffectedCoverage(ctx, claim.ID, coverage.ID)
	if err != nil {
		return AffectedCoverage{}, s.fail(op, internal("find affected coverage", err))
	}
	if existing == nil || !contains(claim.AffectedCoverages, existing.ID) {
		v.NotFound("Affected coverage not found")
	}
	if err := s.reject(v); err != nil {
		return AffectedCoverage{}, err
	}

	existing.Evaluation = evaluation
	existing.SettledAmount = settled
	ac, err = s.store.SaveAffectedCoverage(ctx, *existing)
	if errors.Is(err, ErrNotFound) {
		return AffectedCoverage{}, &NotFoundError{Resource: "Affected coverage", Key: in.CoverageCode}
	}
	if err != nil {
		return AffectedCoverage{}, s.fail(op, internal("save affected coverage", err))
	}

	s.logger.WithFields(logrus.Fields{
		"module":        "claims",
		"op":            op,
		"claim_number":  claim.ClaimNumber,
		"coverage_code": coverage.Code,
	}).Info("affected coverage updated")
	return ac, nil
}

func (in AffectedCoverageInput) trimmed() AffectedCoverageInput {
	in.ClaimNumber = strings.TrimSpace(in.ClaimNumber)
	in.CoverageCode = strings.TrimSpace(in.CoverageCode)
	return in
}

// loadClaimCoverage resolves the claim and the coverage named by code. When
// either is missing it records the violation and returns the aggregated
// rejection with ok false. A false ok always comes with a non-nil error.
func (s *Service) loadClaimCoverage(ctx context.Context, op string, in AffectedCoverageInput, v *Violations) (*Claim, *Coverage, bool, error) {
	if in.ClaimNumber == "" {
		requireOnce(v, "Claim Number is required")
		return nil, nil, false, s.reject(*v)
	}
	claim, err := s.store.FindClaimByNumber(ctx, in.ClaimNumber)
	if err != nil {
		return nil, nil, false, s.fail(op, internal("find claim by number", err))
	}
	if claim == nil {
		v.NotFound("Claim %s not found", in.ClaimNumber)
		return nil, nil, false, s.reject(*v)
	}

	if in.CoverageCode == "" {
		requireOnce(v, "Coverage Code is required")
		return nil, nil, false, s.reject(*v)
	}
	coverage, err := s.store.FindCoverageByCode(ctx, in.CoverageCode)
	if err != nil {
		return nil, nil, false, s.fail(op, internal("find coverage by code", err))
	}
	if coverage == nil {
		v.NotFound("Coverage object for code %s not found", in.CoverageCode)
		return nil, nil, false, s.reject(*v)
	}
	return claim, coverage, true, nil
}

// requireOnce records a missing-field message unless the struct validator
// already did.
func requireOnce(v *Violations, msg string) {
	if !contains(v.Messages(), msg) {
		v.Invalid("%s", msg)
	}
}
