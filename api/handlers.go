/*
handlers.go - HTTP API handlers for the claims record service

PURPOSE:
  Exposes the claim engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to claims.Service.

ENDPOINTS:
  Claims (path parameter is always the claim number):
    POST   /api/v0.1/claim/CreateClaim                        Create claim
    GET    /api/v0.1/claim/GetClaimDetails/{claimId}          Expanded claim
    PUT    /api/v0.1/claim/UpdateClaim/{claimId}              Partial update
    PUT    /api/v0.1/claim/UpdateStatus/{claimId}             Change status
    POST   /api/v0.1/claim/AddInvolvedPartyToClaim/{claimNumber}
    POST   /api/v0.1/claim/AddInvolvedCarToClaim/{claimNumber}
    POST   /api/v0.1/claim/AddInvolvedPolicyToClaim/{claimNumber}
    PUT    /api/v0.1/claim/AddAffectedCoverage/{claimId}
    PUT    /api/v0.1/claim/UpdateAffectedCoverage/{claimId}
    POST   /api/v0.1/claim/FilterClaim                        Filter claims

  Reference data:
    GET/POST /api/v0.1/agencies
    GET/POST /api/v0.1/coverages

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Service: Claim operations (validation, resolution, persistence)
  - Store: Reference data listing and creation
  - Logger: Structured request failure logging

REQUEST FLOW:
  1. Decode body with UseNumber (amount types must survive decoding)
  2. Convert DTO to a claims input
  3. Call the service
  4. Serialize response
  5. Map errors

ERROR HANDLING:
  - 400: ValidationError as {"errors": [...]}, malformed body as {"error": ...}
  - 404: NotFoundError as {"error": "Claim X not found"}
  - 409: Duplicate reference data code
  - 500: {"error": "internal error"}, cause logged only

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/warp/claims-engine/claims"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *claims.Service
	Store   claims.TxStore
	Logger  *logrus.Logger

	validate *validator.Validate

	// Track currently loaded scenario
	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler. A nil logger falls back to the logrus
// standard logger.
func NewHandler(svc *claims.Service, store claims.TxStore, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Handler{
		Service:  svc,
		Store:    store,
		Logger:   logger,
		validate: validator.New(),
	}
}

// =============================================================================
// CLAIM HANDLERS
// =============================================================================

// CreateClaim validates and stores a new claim.
// POST /api/v0.1/claim/CreateClaim
func (h *Handler) CreateClaim(w http.ResponseWriter, r *http.Request) {
	var req ClaimRequest
	if !h.decode(w, r, &req) {
		return
	}

	claim, err := h.Service.CreateClaim(r.Context(), req.toInput())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toClaimDTO(claim))
}

// GetClaimDetails returns every claim with this number, relationships expanded.
// GET /api/v0.1/claim/GetClaimDetails/{claimId}
func (h *Handler) GetClaimDetails(w http.ResponseWriter, r *http.Request) {
	details, err := h.Service.GetClaimDetails(r.Context(), chi.URLParam(r, "claimId"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toClaimDetailsDTOs(details))
}

// UpdateClaim merges the present fields into an existing claim.
// PUT /api/v0.1/claim/UpdateClaim/{claimId}
func (h *Handler) UpdateClaim(w http.ResponseWriter, r *http.Request) {
	var req ClaimRequest
	if !h.decode(w, r, &req) {
		return
	}

	claim, err := h.Service.UpdateClaim(r.Context(), chi.URLParam(r, "claimId"), req.toInput())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"updateClaim": toClaimDTO(claim)})
}

// UpdateStatus sets the claim status.
// PUT /api/v0.1/claim/UpdateStatus/{claimId}
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if !h.decode(w, r, &req) {
		return
	}

	claim, err := h.Service.UpdateStatus(r.Context(), chi.URLParam(r, "claimId"), req.Status)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":           true,
		"updateStatusClaim": toClaimDTO(claim),
	})
}

// AddInvolvedParty links a party, creating it on first reference.
// POST /api/v0.1/claim/AddInvolvedPartyToClaim/{claimNumber}
func (h *Handler) AddInvolvedParty(w http.ResponseWriter, r *http.Request) {
	var req AttachPartyRequest
	if !h.decode(w, r, &req) {
		return
	}

	party, err := h.Service.AddInvolvedParty(r.Context(), claims.AttachInput{
		ClaimNumber: chi.URLParam(r, "claimNumber"),
		UID:         req.PartyUID,
		Role:        req.Role,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, MessageResponse{
		Message: "Party added to the claim successfully",
		Data:    toPartyDTO(party),
	})
}

// AddInvolvedCar links a car, creating it on first reference.
// POST /api/v0.1/claim/AddInvolvedCarToClaim/{claimNumber}
func (h *Handler) AddInvolvedCar(w http.ResponseWriter, r *http.Request) {
	var req AttachCarRequest
	if !h.decode(w, r, &req) {
		return
	}

	car, err := h.Service.AddInvolvedCar(r.Context(), claims.AttachInput{
		ClaimNumber: chi.URLParam(r, "claimNumber"),
		UID:         req.GoodUID,
		Role:        req.Role,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, MessageResponse{
		Message: "Car added to the claim successfully",
		Data:    toCarDTO(car),
	})
}

// AddInvolvedPolicy links a policy, creating it on first reference.
// POST /api/v0.1/claim/AddInvolvedPolicyToClaim/{claimNumber}
func (h *Handler) AddInvolvedPolicy(w http.ResponseWriter, r *http.Request) {
	var req AttachCarRequest
	if !h.decode(w, r, &req) {
		return
	}

	policy, err := h.Service.AddInvolvedPolicy(r.Context(), claims.AttachInput{
		ClaimNumber: chi.URLParam(r, "claimNumber"),
		UID:         req.GoodUID,
		Role:        req.Role,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, MessageResponse{
		Message: "Policy added to the claim successfully",
		Data:    toPolicyDTO(policy),
	})
}

// AddAffectedCoverage creates an affected coverage for the claim.
// PUT /api/v0.1/claim/AddAffectedCoverage/{claimId}
func (h *Handler) AddAffectedCoverage(w http.ResponseWriter, r *http.Request) {
	var req AffectedCoverageRequest
	if !h.decode(w, r, &req) {
		return
	}

	ac, err := h.Service.AddAffectedCoverage(r.Context(), claims.AffectedCoverageInput{
		ClaimNumber:   chi.URLParam(r, "claimId"),
		CoverageCode:  req.CoverageCode,
		Evaluation:    req.Evaluation,
		SettledAmount: req.SettledAmount,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, MessageResponse{
		Message: "Affected coverage added successfully",
		Data:    toAffectedCoverageDTO(ac, nil),
	})
}

// UpdateAffectedCoverage replaces evaluation and settled amount.
// PUT /api/v0.1/claim/UpdateAffectedCoverage/{claimId}
func (h *Handler) UpdateAffectedCoverage(w http.ResponseWriter, r *http.Request) {
	var req AffectedCoverageRequest
	if !h.decode(w, r, &req) {
		return
	}

	ac, err := h.Service.UpdateAffectedCoverage(r.Context(), claims.AffectedCoverageInput{
		ClaimNumber:   chi.URLParam(r, "claimId"),
		CoverageCode:  req.CoverageCode,
		Evaluation:    req.Evaluation,
		SettledAmount: req.SettledAmount,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{
		Message: "Affected Coverage details updated successfully",
		Data:    toAffectedCoverageDTO(ac, nil),
	})
}

// FilterClaims returns the expanded claims matching every supplied criterion.
// POST /api/v0.1/claim/FilterClaim
func (h *Handler) FilterClaims(w http.ResponseWriter, r *http.Request) {
	var req FilterRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.Service.FilterClaims(r.Context(), req.Filters.toCriteria())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toClaimDetailsDTOs(result))
}

// =============================================================================
// REFERENCE DATA HANDLERS
// =============================================================================

// ListAgencies returns all agencies ordered by code.
// GET /api/v0.1/agencies
func (h *Handler) ListAgencies(w http.ResponseWriter, r *http.Request) {
	agencies, err := h.Store.ListAgencies(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	dtos := make([]AgencyDTO, len(agencies))
	for i, a := range agencies {
		dtos[i] = toAgencyDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateAgency adds an agency.
// POST /api/v0.1/agencies
func (h *Handler) CreateAgency(w http.ResponseWriter, r *http.Request) {
	var req CreateAgencyRequest
	if !h.decode(w, r, &req) || !h.check(w, req) {
		return
	}

	agency, err := h.Store.CreateAgency(r.Context(), claims.Agency{Code: req.Code, Label: req.Label})
	if errors.Is(err, claims.ErrDuplicate) {
		writeError(w, http.StatusConflict, "Agency code already exists", nil)
		return
	}
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAgencyDTO(agency))
}

// ListCoverages returns the coverage catalogue ordered by code.
// GET /api/v0.1/coverages
func (h *Handler) ListCoverages(w http.ResponseWriter, r *http.Request) {
	coverages, err := h.Store.ListCoverages(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	dtos := make([]CoverageDTO, len(coverages))
	for i, c := range coverages {
		dtos[i] = toCoverageDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateCoverage adds a coverage to the catalogue.
// POST /api/v0.1/coverages
func (h *Handler) CreateCoverage(w http.ResponseWriter, r *http.Request) {
	var req CreateCoverageRequest
	if !h.decode(w, r, &req) || !h.check(w, req) {
		return
	}

	coverage, err := h.Store.CreateCoverage(r.Context(), claims.Coverage{UID: req.UID, Code: req.Code, Label: req.Label})
	if errors.Is(err, claims.ErrDuplicate) {
		writeError(w, http.StatusConflict, "Coverage code already exists", nil)
		return
	}
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCoverageDTO(coverage))
}

// =============================================================================
// HELPERS
// =============================================================================

// decode reads the JSON body into dst, keeping numbers as json.Number.
// It writes a 400 and returns false on malformed input.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

// check runs struct tag validation on reference data requests.
func (h *Handler) check(w http.ResponseWriter, req any) bool {
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err)
		return false
	}
	return true
}

// writeServiceError maps claims errors onto status codes.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *claims.ValidationError
	var nf *claims.NotFoundError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, ValidationErrorResponse{Errors: ve.Messages()})
	case errors.As(err, &nf):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: nf.Error()})
	default:
		h.Logger.WithFields(logrus.Fields{
			"module": "api",
			"method": r.Method,
			"path":   r.URL.Path,
		}).WithError(err).Error("request failed")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
