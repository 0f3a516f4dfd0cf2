package claims_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/claims-engine/claims"
	"github.com/warp/claims-engine/claims/store"
	"github.com/warp/claims-engine/metrics"
)

func TestResolver_KeepsInputOrder(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	m := metrics.New(prometheus.NewRegistry())

	var refs []claims.Reference
	var linked []string
	for i, uid := range []string{"a", "b", "c", "d", "e"} {
		car, err := st.CreateInvolvedCar(ctx, claims.InvolvedCar{GoodUID: uid, Role: claims.InsuredCar})
		require.NoError(t, err)
		refs = append(refs, claims.Reference{Kind: claims.KindInvolvedCar, ID: car.ID})
		if i%2 == 0 {
			linked = append(linked, car.ID)
		}
		refs = append(refs, claims.Reference{Kind: claims.KindInvolvedCar, ID: "missing-" + uid})
	}

	outcomes, err := claims.NewResolver(st, m).Resolve(ctx, refs, claims.LinkedSet{claims.KindInvolvedCar: linked})
	require.NoError(t, err)
	require.Len(t, outcomes, len(refs))

	for i, o := range outcomes {
		assert.Equal(t, refs[i], o.Reference, "outcome %d out of order", i)
	}
	assert.Equal(t, claims.AlreadyLinked, outcomes[0].Resolution)
	assert.Equal(t, claims.NotFound, outcomes[1].Resolution)
	assert.Equal(t, claims.Found, outcomes[2].Resolution)

	assert.Equal(t, 5.0, testutil.ToFloat64(m.LookupOutcome.WithLabelValues("involved_car", "not_found")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.LookupOutcome.WithLabelValues("involved_car", "already_linked")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.LookupOutcome.WithLabelValues("involved_car", "found")))
}

func TestResolver_CreateContextNeverAlreadyLinked(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	policy, err := st.CreateInvolvedPolicy(ctx, claims.InvolvedPolicy{GoodUID: "POL-1", Role: claims.InsuredPolicy})
	require.NoError(t, err)

	outcomes, err := claims.NewResolver(st, nil).Resolve(ctx, []claims.Reference{
		{Kind: claims.KindInvolvedPolicy, ID: policy.ID},
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, claims.Found, outcomes[0].Resolution)
	assert.Empty(t, claims.OutcomeViolations(outcomes))
}

func TestOutcomeViolations_Messages(t *testing.T) {
	v := claims.OutcomeViolations([]claims.Outcome{
		{Reference: claims.Reference{Kind: claims.KindInvolvedParty, ID: "p1"}, Resolution: claims.NotFound},
		{Reference: claims.Reference{Kind: claims.KindAffectedCoverage, ID: "ac1"}, Resolution: claims.AlreadyLinked},
		{Reference: claims.Reference{Kind: claims.KindInvolvedCar, ID: "c1"}, Resolution: claims.Found},
	})

	assert.Equal(t, []string{
		"Involved Party Object _id p1 not found.",
		"Affected Coverage Object _id ac1 is already associated with this claim.",
	}, v.Messages())
	assert.Equal(t, claims.ViolationNotFound, v[0].Kind)
	assert.Equal(t, claims.ViolationConflict, v[1].Kind)
}
