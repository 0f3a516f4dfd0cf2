package claims_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/claims-engine/claims"
)

// =============================================================================
// DETAILS
// =============================================================================

func TestGetClaimDetails_RoundTrip(t *testing.T) {
	f := newFixture(t)
	created := f.create(t, "C-100")
	car, err := f.svc.AddInvolvedCar(f.ctx, claims.AttachInput{ClaimNumber: "C-100", UID: "VIN-1", Role: "INSURED_CAR"})
	require.NoError(t, err)
	party, err := f.svc.AddInvolvedParty(f.ctx, claims.AttachInput{ClaimNumber: "C-100", UID: "P-1", Role: "InsuredDriver"})
	require.NoError(t, err)
	_, err = f.svc.AddAffectedCoverage(f.ctx, claims.AffectedCoverageInput{
		ClaimNumber: "C-100", CoverageCode: "RC", Evaluation: json.Number("900"),
	})
	require.NoError(t, err)

	details, err := f.svc.GetClaimDetails(f.ctx, "C-100")

	require.NoError(t, err)
	require.Len(t, details, 1)
	d := details[0]
	assert.Equal(t, created.ID, d.ID)
	assert.Equal(t, created.OccurrenceDate, d.OccurrenceDate)
	assert.Equal(t, created.ReportingType, d.ReportingType)
	require.NotNil(t, d.Agency)
	assert.Equal(t, "AG-TUN", d.Agency.Code)
	assert.Equal(t, []claims.InvolvedCar{car}, d.Cars)
	assert.Equal(t, []claims.InvolvedParty{party}, d.Parties)
	assert.Empty(t, d.Policies)
	require.Len(t, d.Coverages, 1)
	require.NotNil(t, d.Coverages[0].Coverage)
	assert.Equal(t, "RC", d.Coverages[0].Coverage.Code)
}

func TestGetClaimDetails_NoMatchIsEmpty(t *testing.T) {
	f := newFixture(t)

	details, err := f.svc.GetClaimDetails(f.ctx, "C-404")

	require.NoError(t, err)
	assert.Empty(t, details)
}

func TestGetClaimDetails_NumberRequired(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.GetClaimDetails(f.ctx, "  ")

	assert.Equal(t, []string{"Claim Number is required."}, messages(t, err))
}

// =============================================================================
// FILTER
// =============================================================================

func seedFilterClaims(t *testing.T, f *fixture) {
	t.Helper()

	a := f.input("C-1")
	a.OccurrenceDate = ptr("2024-01-10")
	a.ReportingDate = ptr("2024-01-12")
	_, err := f.svc.CreateClaim(f.ctx, a)
	require.NoError(t, err)

	b := f.input("C-2")
	b.OccurrenceDate = ptr("2024-03-01")
	b.ReportingDate = ptr("2024-03-05")
	b.DamageType = ptr("BodilyInjury")
	_, err = f.svc.CreateClaim(f.ctx, b)
	require.NoError(t, err)

	_, err = f.svc.AddInvolvedCar(f.ctx, claims.AttachInput{ClaimNumber: "C-2", UID: "VIN-9", Role: "ADVERSE_CAR"})
	require.NoError(t, err)
}

func numbers(details []claims.ClaimDetails) []string {
	out := make([]string, len(details))
	for i, d := range details {
		out[i] = d.ClaimNumber
	}
	return out
}

func TestFilterClaims_NoCriteria(t *testing.T) {
	f := newFixture(t)
	seedFilterClaims(t, f)

	_, err := f.svc.FilterClaims(f.ctx, claims.FilterCriteria{})

	assert.Equal(t, []string{"At least one filter is required."}, messages(t, err))
}

func TestFilterClaims_EmptyCollectionAggregated(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.FilterClaims(f.ctx, claims.FilterCriteria{})

	assert.Equal(t, []string{"At least one filter is required.", "No claims found."}, messages(t, err))
}

func TestFilterClaims_NoMatchIsEmptyResult(t *testing.T) {
	f := newFixture(t)
	seedFilterClaims(t, f)

	// Emptiness is checked on the whole collection, not on the filtered result.
	result, err := f.svc.FilterClaims(f.ctx, claims.FilterCriteria{Status: "CLOSED"})

	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestFilterClaims_ScalarEquality(t *testing.T) {
	f := newFixture(t)
	seedFilterClaims(t, f)

	result, err := f.svc.FilterClaims(f.ctx, claims.FilterCriteria{DamageType: "BodilyInjury"})
	require.NoError(t, err)
	assert.Equal(t, []string{"C-2"}, numbers(result))

	result, err = f.svc.FilterClaims(f.ctx, claims.FilterCriteria{Status: "OPEN", ReportingType: "FirstPartyClaim"})
	require.NoError(t, err)
	assert.Equal(t, []string{"C-1", "C-2"}, numbers(result))
}

func TestFilterClaims_DateRanges(t *testing.T) {
	f := newFixture(t)
	seedFilterClaims(t, f)

	tests := []struct {
		name   string
		bounds []string
		want   []string
	}{
		{"both bounds inclusive", []string{"2024-01-10", "2024-03-01"}, []string{"C-1", "C-2"}},
		{"min only", []string{"2024-02-01", ""}, []string{"C-2"}},
		{"max only", []string{"", "2024-02-01"}, []string{"C-1"}},
		{"unbounded", []string{"", ""}, []string{"C-1", "C-2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := f.svc.FilterClaims(f.ctx, claims.FilterCriteria{OccurrenceDate: tt.bounds})
			require.NoError(t, err)
			assert.Equal(t, tt.want, numbers(result))
		})
	}
}

func TestFilterClaims_BadRanges(t *testing.T) {
	f := newFixture(t)
	seedFilterClaims(t, f)

	_, err := f.svc.FilterClaims(f.ctx, claims.FilterCriteria{OccurrenceDate: []string{"2024-03-01", "2024-01-01"}})
	assert.Equal(t, []string{"Occurrence Date minimum must not be after maximum."}, messages(t, err))

	_, err = f.svc.FilterClaims(f.ctx, claims.FilterCriteria{ReportingDate: []string{"2024-03-01"}})
	assert.Equal(t, []string{"Reporting Date should be an array of two dates."}, messages(t, err))

	_, err = f.svc.FilterClaims(f.ctx, claims.FilterCriteria{ReportingDate: []string{"soon", ""}})
	assert.Equal(t, []string{"Reporting Date bound soon is invalid."}, messages(t, err))
}

func TestFilterClaims_InvolvedCarWithRole(t *testing.T) {
	f := newFixture(t)
	seedFilterClaims(t, f)

	result, err := f.svc.FilterClaims(f.ctx, claims.FilterCriteria{InvolvedCars: &claims.EntityFilter{UID: "VIN-9"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"C-2"}, numbers(result))

	result, err = f.svc.FilterClaims(f.ctx, claims.FilterCriteria{InvolvedCars: &claims.EntityFilter{UID: "VIN-9", Role: "INSURED_CAR"}})
	require.NoError(t, err)
	assert.Empty(t, result, "role refines the match")
}
