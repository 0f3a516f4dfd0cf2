/*
handlers_test.go - HTTP tests for the claim API

Tests for:
- Status codes and bodies of every claim route
- Error mapping (400 aggregated, 404, 500 non-specific)
- Presence-aware decoding of amounts and flags
- Reference data routes and /metrics
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/claims-engine/claims"
	"github.com/warp/claims-engine/metrics"
	"github.com/warp/claims-engine/store/sqlite"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

type testServer struct {
	router  http.Handler
	handler *Handler
	store   *sqlite.Store
	agency  claims.Agency
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return newTestServerWith(t, store, store)
}

// newTestServerWith lets the service run on a different TxStore than the
// one used for reference data, so failures can be injected.
func newTestServerWith(t *testing.T, store *sqlite.Store, svcStore claims.TxStore) *testServer {
	t.Helper()
	ctx := context.Background()

	agency, err := store.CreateAgency(ctx, claims.Agency{Code: "AG-TUN", Label: "Tunis Central"})
	require.NoError(t, err)
	_, err = store.CreateCoverage(ctx, claims.Coverage{Code: "RC", Label: "Third party liability"})
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	logger := quietLogger()
	svc := claims.NewService(svcStore, claims.WithLogger(logger), claims.WithMetrics(metrics.New(reg)))
	h := NewHandler(svc, store, logger)

	return &testServer{
		router:  NewRouter(h, RouterConfig{Gatherer: reg}),
		handler: h,
		store:   store,
		agency:  agency,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) claimBody(number string) map[string]any {
	return map[string]any{
		"claimNumber":     number,
		"occurrenceDate":  "2024-01-01",
		"reportingDate":   "2024-01-03",
		"reportingType":   "FirstPartyClaim",
		"responsability":  "NoResponsibility",
		"damageType":      "MaterialDamage",
		"claimAmount":     1500.25,
		"reportingAgency": s.agency.ID,
	}
}

func (s *testServer) createClaim(t *testing.T, number string) ClaimDTO {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/v0.1/claim/CreateClaim", s.claimBody(number))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var dto ClaimDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dto))
	return dto
}

func decodeErrors(t *testing.T, rec *httptest.ResponseRecorder) []string {
	t.Helper()
	var resp ValidationErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Errors
}

// =============================================================================
// CREATE / DETAILS
// =============================================================================

func TestCreateClaim_Created(t *testing.T) {
	s := newTestServer(t)

	dto := s.createClaim(t, "C-100")

	assert.NotEmpty(t, dto.ID)
	assert.Equal(t, "C-100", dto.ClaimNumber)
	assert.Equal(t, "OPEN", dto.Status)
	assert.Equal(t, json.Number("1500.25"), dto.ClaimAmount)
	assert.Equal(t, "2024-01-01T00:00:00Z", dto.OccurrenceDate)
	assert.Equal(t, []string{}, dto.InvolvedCars)
}

func TestCreateClaim_AggregatesViolations(t *testing.T) {
	s := newTestServer(t)

	// GIVEN a body with every required field missing
	rec := s.do(t, http.MethodPost, "/api/v0.1/claim/CreateClaim", `{}`)

	// THEN every failure is listed in one 400
	require.Equal(t, http.StatusBadRequest, rec.Code)
	errs := decodeErrors(t, rec)
	assert.Contains(t, errs, "Claim Number is not provided")
	assert.Contains(t, errs, "Reporting Agency is not provided")
	assert.Contains(t, errs, "Claim Amount is invalid or not provided")
}

func TestCreateClaim_RecourseAmountMustBeJSONNumber(t *testing.T) {
	s := newTestServer(t)
	body := s.claimBody("C-100")
	body["recourseAmount"] = "250"
	body["flagFraud"] = "yes"

	rec := s.do(t, http.MethodPost, "/api/v0.1/claim/CreateClaim", body)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []string{
		"Invalid Recourse Amount value type",
		"Flag Fraud must be a boolean",
	}, decodeErrors(t, rec))
}

func TestCreateClaim_MalformedBody(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v0.1/claim/CreateClaim", `{"claimNumber":`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Invalid request body", resp.Error)
}

func TestGetClaimDetails_Expanded(t *testing.T) {
	s := newTestServer(t)
	s.createClaim(t, "C-100")
	rec := s.do(t, http.MethodPost, "/api/v0.1/claim/AddInvolvedCarToClaim/C-100",
		AttachCarRequest{GoodUID: "VIN-1", Role: "INSURED_CAR"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/v0.1/claim/GetClaimDetails/C-100", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var details []ClaimDetailsDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &details))
	require.Len(t, details, 1)
	require.NotNil(t, details[0].ReportingAgency)
	assert.Equal(t, "AG-TUN", details[0].ReportingAgency.Code)
	require.Len(t, details[0].InvolvedCars, 1)
	assert.Equal(t, "VIN-1", details[0].InvolvedCars[0].GoodUID)
	assert.Empty(t, details[0].InvolvedParties)
}

func TestGetClaimDetails_UnknownIsEmptyList(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/v0.1/claim/GetClaimDetails/C-404", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

// =============================================================================
// UPDATE / STATUS
// =============================================================================

func TestUpdateClaim(t *testing.T) {
	s := newTestServer(t)
	s.createClaim(t, "C-100")

	rec := s.do(t, http.MethodPut, "/api/v0.1/claim/UpdateClaim/C-100",
		`{"damageType":"BodilyInjury","recourseAmount":12.5}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		UpdateClaim ClaimDTO `json:"updateClaim"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "BodilyInjury", resp.UpdateClaim.DamageType)
	assert.Equal(t, json.Number("12.5"), resp.UpdateClaim.RecourseAmount)
	assert.Equal(t, "NoResponsibility", resp.UpdateClaim.Responsibility)
}

func TestUpdateClaim_UnknownClaim(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPut, "/api/v0.1/claim/UpdateClaim/C-404", `{"daaq":"x"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []string{"Claim C-404 not found"}, decodeErrors(t, rec))
}

func TestUpdateStatus(t *testing.T) {
	s := newTestServer(t)
	s.createClaim(t, "C-100")

	rec := s.do(t, http.MethodPut, "/api/v0.1/claim/UpdateStatus/C-100", UpdateStatusRequest{Status: "CLOSED"})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Success bool     `json:"success"`
		Claim   ClaimDTO `json:"updateStatusClaim"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "CLOSED", resp.Claim.Status)
}

func TestUpdateStatus_Errors(t *testing.T) {
	s := newTestServer(t)
	s.createClaim(t, "C-100")

	tests := []struct {
		name       string
		path       string
		status     string
		wantCode   int
		wantSubstr string
	}{
		{"invalid status", "/api/v0.1/claim/UpdateStatus/C-100", "LOST", http.StatusBadRequest, "Status should be one of these options"},
		{"unknown claim", "/api/v0.1/claim/UpdateStatus/C-404", "CLOSED", http.StatusNotFound, "Claim C-404 not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPut, tt.path, UpdateStatusRequest{Status: tt.status})
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantSubstr)
		})
	}
}

// =============================================================================
// ATTACH
// =============================================================================

func TestAttach_PartyPolicyAndConflicts(t *testing.T) {
	s := newTestServer(t)
	s.createClaim(t, "C-100")

	rec := s.do(t, http.MethodPost, "/api/v0.1/claim/AddInvolvedPartyToClaim/C-100",
		AttachPartyRequest{PartyUID: "P-1", Role: "Witness"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Party added to the claim successfully")

	rec = s.do(t, http.MethodPost, "/api/v0.1/claim/AddInvolvedPolicyToClaim/C-100",
		AttachCarRequest{GoodUID: "POL-1", Role: "InsuredPolicy"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// WHEN the same party is attached again
	rec = s.do(t, http.MethodPost, "/api/v0.1/claim/AddInvolvedPartyToClaim/C-100",
		AttachPartyRequest{PartyUID: "P-1", Role: "Witness"})

	// THEN the conflict surfaces as a 400 violation
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []string{"Party already exists in the claim"}, decodeErrors(t, rec))
}

func TestAttach_BadRoleAndMissingClaim(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v0.1/claim/AddInvolvedCarToClaim/C-404",
		AttachCarRequest{GoodUID: "VIN-1", Role: "TRUCK"})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	errs := decodeErrors(t, rec)
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "Role should be one of these options: INSURED_CAR,ADVERSE_CAR")
	assert.Equal(t, "Claim C-404 not found", errs[1])
}

func TestAffectedCoverage_AddThenUpdate(t *testing.T) {
	s := newTestServer(t)
	s.createClaim(t, "C-100")

	rec := s.do(t, http.MethodPut, "/api/v0.1/claim/AddAffectedCoverage/C-100",
		`{"coverageCode":"RC","evaluation":1000}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPut, "/api/v0.1/claim/UpdateAffectedCoverage/C-100",
		`{"coverageCode":"RC","evaluation":1000,"settledAmount":1200}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []string{"Settled amount cannot be greater than evaluation"}, decodeErrors(t, rec))

	rec = s.do(t, http.MethodPut, "/api/v0.1/claim/UpdateAffectedCoverage/C-100",
		`{"coverageCode":"RC","evaluation":1000,"settledAmount":900}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Message string              `json:"message"`
		Data    AffectedCoverageDTO `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Affected Coverage details updated successfully", resp.Message)
	assert.Equal(t, json.Number("900"), resp.Data.SettledAmount)
}

func TestAddAffectedCoverage_BlankCodeIsBadRequest(t *testing.T) {
	s := newTestServer(t)
	s.createClaim(t, "C-100")

	rec := s.do(t, http.MethodPut, "/api/v0.1/claim/AddAffectedCoverage/C-100",
		`{"coverageCode":"   ","evaluation":10}`)

	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"Coverage Code is required"}, decodeErrors(t, rec))
}

// =============================================================================
// FILTER
// =============================================================================

func TestFilterClaim(t *testing.T) {
	s := newTestServer(t)
	s.createClaim(t, "C-100")
	s.createClaim(t, "C-200")

	rec := s.do(t, http.MethodPost, "/api/v0.1/claim/FilterClaim",
		`{"filters":{"claimNumber":"C-200","occurrenceDate":["2023-12-31",""]}}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result []ClaimDetailsDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Len(t, result, 1)
	assert.Equal(t, "C-200", result[0].ClaimNumber)
}

func TestFilterClaim_NoFilters(t *testing.T) {
	s := newTestServer(t)
	s.createClaim(t, "C-100")

	rec := s.do(t, http.MethodPost, "/api/v0.1/claim/FilterClaim", `{"filters":{}}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []string{"At least one filter is required."}, decodeErrors(t, rec))
}

// =============================================================================
// INTERNAL ERRORS
// =============================================================================

// brokenStore fails every existence lookup.
type brokenStore struct {
	*sqlite.Store
}

func (brokenStore) Exists(context.Context, claims.EntityKind, string) (bool, error) {
	return false, errors.New("database is locked")
}

func TestCreateClaim_InternalErrorIsOpaque(t *testing.T) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	s := newTestServerWith(t, store, brokenStore{store})

	rec := s.do(t, http.MethodPost, "/api/v0.1/claim/CreateClaim", s.claimBody("C-100"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())
}

// =============================================================================
// REFERENCE DATA / METRICS
// =============================================================================

func TestAgencies(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v0.1/agencies", CreateAgencyRequest{Code: "AG-SFX", Label: "Sfax"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v0.1/agencies", CreateAgencyRequest{Code: "AG-SFX"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v0.1/agencies", CreateAgencyRequest{Label: "no code"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v0.1/agencies", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var agencies []AgencyDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &agencies))
	require.Len(t, agencies, 2)
	assert.Equal(t, "AG-SFX", agencies[0].Code)
}

func TestCoverages(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v0.1/coverages", CreateCoverageRequest{Code: "BDG", Label: "Glass"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v0.1/coverages", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var coverages []CoverageDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &coverages))
	require.Len(t, coverages, 2)
	assert.Equal(t, "BDG", coverages[0].Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.createClaim(t, "C-100")

	rec := s.do(t, http.MethodGet, "/metrics", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `claims_operations_total{operation="create_claim",outcome="success"} 1`)
}
