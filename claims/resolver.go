/*
resolver.go - Concurrent cross-entity reference resolution

PURPOSE:
  A claim payload references cars, policies, parties and affected coverages
  by store identifier. The resolver confirms each one exists and, when the
  claim already exists, that it is not linked yet.

CONCURRENCY:
  One goroutine per reference on an errgroup. Lookups are read-only and
  independent so nothing is shared between them except the result slot each
  one owns. A store failure cancels the group and is returned as an
  InternalError; outcomes are only returned once every lookup finished.

ORDERING:
  Outcomes come back in input order, so violations are deterministic even
  though lookups complete in any order.

SEE ALSO:
  - service.go: Create and update feed ClaimInput references through here
*/
package claims

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/warp/claims-engine/metrics"
)

// Resolution is the result of resolving one reference.
type Resolution int

const (
	Found Resolution = iota
	NotFound
	AlreadyLinked
)

func (r Resolution) String() string {
	switch r {
	case Found:
		return "found"
	case NotFound:
		return "not_found"
	case AlreadyLinked:
		return "already_linked"
	}
	return "unknown"
}

// Reference points at a record of a given kind by store identifier.
type Reference struct {
	Kind EntityKind
	ID   string
}

type Outcome struct {
	Reference
	Resolution Resolution
}

// Violation converts a failed outcome into its user-facing message.
func (o Outcome) Violation() (Violation, bool) {
	switch o.Resolution {
	case NotFound:
		return Violation{
			Kind:    ViolationNotFound,
			Message: o.Kind.Label() + " Object _id " + o.ID + " not found.",
		}, true
	case AlreadyLinked:
		return Violation{
			Kind:    ViolationConflict,
			Message: o.Kind.Label() + " Object _id " + o.ID + " is already associated with this claim.",
		}, true
	}
	return Violation{}, false
}

// LinkedSet holds a claim's current relationship lists by kind. A nil
// LinkedSet means create-context: nothing is linked yet.
type LinkedSet map[EntityKind][]string

// LinkedFrom captures the relationship lists of an existing claim.
func LinkedFrom(c Claim) LinkedSet {
	return LinkedSet{
		KindInvolvedCar:      c.InvolvedCars,
		KindInvolvedPolicy:   c.InvolvedPolicies,
		KindInvolvedParty:    c.InvolvedParties,
		KindAffectedCoverage: c.AffectedCoverages,
	}
}

func (l LinkedSet) has(ref Reference) bool {
	return l != nil && contains(l[ref.Kind], ref.ID)
}

// References lists the relationship identifiers carried by a payload in a
// fixed order: cars, policies, parties, affected coverages.
func References(in ClaimInput) []Reference {
	var refs []Reference
	add := func(kind EntityKind, ids []string) {
		for _, id := range ids {
			refs = append(refs, Reference{Kind: kind, ID: id})
		}
	}
	add(KindInvolvedCar, in.InvolvedCars)
	add(KindInvolvedPolicy, in.InvolvedPolicies)
	add(KindInvolvedParty, in.InvolvedParties)
	add(KindAffectedCoverage, in.AffectedCoverages)
	return refs
}

// =============================================================================
// RESOLVER
// =============================================================================

type Resolver struct {
	store   Store
	metrics *metrics.Metrics
}

func NewResolver(store Store, m *metrics.Metrics) *Resolver {
	return &Resolver{store: store, metrics: m}
}

// Resolve looks up every reference concurrently and waits for all of them.
func (r *Resolver) Resolve(ctx context.Context, refs []Reference, linked LinkedSet) ([]Outcome, error) {
	outcomes := make([]Outcome, len(refs))
	if len(refs) == 0 {
		return outcomes, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	for i, ref := range refs {
		g.Go(func() error {
			start := time.Now()
			ok, err := r.store.Exists(ctx, ref.Kind, ref.ID)
			if err != nil {
				return internal("resolve "+string(ref.Kind), err)
			}

			res := Found
			switch {
			case !ok:
				res = NotFound
			case linked.has(ref):
				res = AlreadyLinked
			}
			r.metrics.ObserveLookup(string(ref.Kind), res.String(), time.Since(start))

			// Each goroutine writes only its own slot.
			outcomes[i] = Outcome{Reference: ref, Resolution: res}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// OutcomeViolations collects the messages of every failed outcome, in order.
func OutcomeViolations(outcomes []Outcome) Violations {
	var v Violations
	for _, o := range outcomes {
		if violation, ok := o.Violation(); ok {
			v.Append(violation)
		}
	}
	return v
}
