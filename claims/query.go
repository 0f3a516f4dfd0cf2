/*
query.go - Claim details and filtering

PURPOSE:
  Read side of the engine. Details fetches claims by number with every
  relationship expanded. Filter loads the whole collection, expands it and
  narrows it in memory.

FILTER SEMANTICS:
  - Scalar fields: equality, skipped when empty
  - Date ranges: [min, max], either bound may be "" (unbounded), inclusive
  - Cars / policies / parties: a claim matches when any linked record has
    the uid, and the role too when one is given
  - All predicates are ANDed

EMPTY COLLECTION:
  "No claims found." reports an empty claim collection before any predicate
  runs. A filter that matches nothing returns an empty list, not an error.
*/
package claims

import (
	"context"
	"strings"
	"time"
)

// =============================================================================
// DETAILS
// =============================================================================

// GetClaimDetails returns every claim with this number, expanded. No match is
// an empty slice.
func (s *Service) GetClaimDetails(ctx context.Context, claimNumber string) (details []ClaimDetails, err error) {
	const op = "get_claim_details"
	defer s.observe(op, time.Now(), &err)

	if strings.TrimSpace(claimNumber) == "" {
		var v Violations
		v.Invalid("Claim Number is required.")
		return nil, s.reject(v)
	}

	list, err := s.store.ListClaims(ctx, ClaimQuery{ClaimNumber: claimNumber})
	if err != nil {
		return nil, s.fail(op, internal("list claims", err))
	}
	details, err = s.expandAll(ctx, list)
	if err != nil {
		return nil, s.fail(op, err)
	}
	return details, nil
}

func (s *Service) expandAll(ctx context.Context, list []Claim) ([]ClaimDetails, error) {
	out := make([]ClaimDetails, 0, len(list))
	for _, c := range list {
		d, err := s.expand(ctx, c)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// expand loads the records behind each relationship list. Identifiers whose
// record no longer exists are skipped.
func (s *Service) expand(ctx context.Context, c Claim) (ClaimDetails, error) {
	d := ClaimDetails{
		Claim:     c,
		Cars:      []InvolvedCar{},
		Policies:  []InvolvedPolicy{},
		Parties:   []InvolvedParty{},
		Coverages: []AffectedCoverageDetail{},
	}

	if c.ReportingAgency != "" {
		agency, err := s.store.GetAgency(ctx, c.ReportingAgency)
		if err != nil {
			return d, internal("get agency", err)
		}
		d.Agency = agency
	}

	for _, id := range c.InvolvedCars {
		car, err := s.store.GetInvolvedCar(ctx, id)
		if err != nil {
			return d, internal("get involved car", err)
		}
		if car != nil {
			d.Cars = append(d.Cars, *car)
		}
	}
	for _, id := range c.InvolvedPolicies {
		policy, err := s.store.GetInvolvedPolicy(ctx, id)
		if err != nil {
			return d, internal("get involved policy", err)
		}
		if policy != nil {
			d.Policies = append(d.Policies, *policy)
		}
	}
	for _, id := range c.InvolvedParties {
		party, err := s.store.GetInvolvedParty(ctx, id)
		if err != nil {
			return d, internal("get involved party", err)
		}
		if party != nil {
			d.Parties = append(d.Parties, *party)
		}
	}
	for _, id := range c.AffectedCoverages {
		ac, err := s.store.GetAffectedCoverage(ctx, id)
		if err != nil {
			return d, internal("get affected coverage", err)
		}
		if ac == nil {
			continue
		}
		coverage, err := s.store.GetCoverage(ctx, ac.CoverageID)
		if err != nil {
			return d, internal("get coverage", err)
		}
		d.Coverages = append(d.Coverages, AffectedCoverageDetail{AffectedCoverage: *ac, Coverage: coverage})
	}
	return d, nil
}

// =============================================================================
// FILTER
// =============================================================================

// FilterCriteria selects claims. Empty strings and nil values are ignored.
type FilterCriteria struct {
	ClaimNumber    string
	ReportingType  string
	Responsibility string
	DamageType     string
	Daaq           string
	Status         string

	// OccurrenceDate and ReportingDate are [min, max] ranges.
	OccurrenceDate []string
	ReportingDate  []string

	InvolvedCars     *EntityFilter
	InvolvedPolicies *EntityFilter
	InvolvedParties  *EntityFilter
}

// EntityFilter matches a linked record by uid (goodUid or partyUid), refined
// by role when Role is set.
type EntityFilter struct {
	UID  string
	Role string
}

func (f FilterCriteria) empty() bool {
	return f.ClaimNumber == "" &&
		f.ReportingType == "" &&
		f.Responsibility == "" &&
		f.DamageType == "" &&
		f.Daaq == "" &&
		f.Status == "" &&
		f.OccurrenceDate == nil &&
		f.ReportingDate == nil &&
		f.InvolvedCars == nil &&
		f.InvolvedPolicies == nil &&
		f.InvolvedParties == nil
}

type dateRange struct {
	min, max *time.Time
}

func (r dateRange) contains(t time.Time) bool {
	if r.min != nil && t.Before(*r.min) {
		return false
	}
	if r.max != nil && t.After(*r.max) {
		return false
	}
	return true
}

// parseRange validates a [min, max] pair. A nil slice means no range.
func parseRange(v *Violations, label string, bounds []string) (*dateRange, bool) {
	if bounds == nil {
		return nil, true
	}
	if len(bounds) != 2 {
		v.Invalid("%s should be an array of two dates.", label)
		return nil, false
	}

	var r dateRange
	ok := true
	for i, bound := range bounds {
		if strings.TrimSpace(bound) == "" {
			continue
		}
		t, err := ParseDate(bound)
		if err != nil {
			v.Invalid("%s bound %s is invalid.", label, bound)
			ok = false
			continue
		}
		if i == 0 {
			r.min = &t
		} else {
			r.max = &t
		}
	}
	if ok && r.min != nil && r.max != nil && r.min.After(*r.max) {
		v.Invalid("%s minimum must not be after maximum.", label)
		ok = false
	}
	return &r, ok
}

// FilterClaims returns the expanded claims matching every criterion.
func (s *Service) FilterClaims(ctx context.Context, f FilterCriteria) (result []ClaimDetails, err error) {
	const op = "filter_claims"
	defer s.observe(op, time.Now(), &err)

	all, err := s.store.ListClaims(ctx, ClaimQuery{})
	if err != nil {
		return nil, s.fail(op, internal("list claims", err))
	}

	var v Violations
	if f.empty() {
		v.Invalid("At least one filter is required.")
	}
	if len(all) == 0 {
		v.NotFound("No claims found.")
	}
	if err := s.reject(v); err != nil {
		return nil, err
	}

	occurrence, okOccurrence := parseRange(&v, "Occurrence Date", f.OccurrenceDate)
	reporting, okReporting := parseRange(&v, "Reporting Date", f.ReportingDate)
	if !okOccurrence || !okReporting {
		return nil, s.reject(v)
	}

	expanded, err := s.expandAll(ctx, all)
	if err != nil {
		return nil, s.fail(op, err)
	}

	result = []ClaimDetails{}
	for _, d := range expanded {
		if f.matches(d, occurrence, reporting) {
			result = append(result, d)
		}
	}
	return result, nil
}

func (f FilterCriteria) matches(d ClaimDetails, occurrence, reporting *dateRange) bool {
	switch {
	case f.ClaimNumber != "" && d.ClaimNumber != f.ClaimNumber,
		f.ReportingType != "" && string(d.ReportingType) != f.ReportingType,
		f.Responsibility != "" && string(d.Responsibility) != f.Responsibility,
		f.DamageType != "" && string(d.DamageType) != f.DamageType,
		f.Daaq != "" && d.Daaq != f.Daaq,
		f.Status != "" && string(d.Status) != f.Status:
		return false
	}
	if occurrence != nil && !occurrence.contains(d.OccurrenceDate) {
		return false
	}
	if reporting != nil && !reporting.contains(d.ReportingDate) {
		return false
	}

	if f.InvolvedCars.active() && !anyMatch(d.Cars, func(c InvolvedCar) bool {
		return f.InvolvedCars.match(c.GoodUID, string(c.Role))
	}) {
		return false
	}
	if f.InvolvedPolicies.active() && !anyMatch(d.Policies, func(p InvolvedPolicy) bool {
		return f.InvolvedPolicies.match(p.GoodUID, string(p.Role))
	}) {
		return false
	}
	if f.InvolvedParties.active() && !anyMatch(d.Parties, func(p InvolvedParty) bool {
		return f.InvolvedParties.match(p.PartyUID, string(p.Role))
	}) {
		return false
	}
	return true
}

// active reports whether the filter constrains anything. A filter without a
// uid matches every claim.
func (e *EntityFilter) active() bool {
	return e != nil && e.UID != ""
}

func (e *EntityFilter) match(uid, role string) bool {
	return uid == e.UID && (e.Role == "" || role == e.Role)
}

func anyMatch[T any](values []T, pred func(T) bool) bool {
	for _, v := range values {
		if pred(v) {
			return true
		}
	}
	return false
}
