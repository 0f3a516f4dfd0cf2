/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the store with realistic
	reference data and claims. Agencies and coverages are managed by another
	system in production; these loaders stand in for it during development.

AVAILABLE SCENARIOS:

	reference-data: Agencies and coverage catalogue only
	open-claims:    Reference data plus claims in several statuses
	fraud-review:   Claims sharing a car, one flagged for fraud

HOW SCENARIOS WORK:
 1. Reset the store (clear all data)
 2. Create agencies and coverages directly in the store
 3. Create claims through claims.Service so every rule applies
 4. Attach cars, parties, policies and affected coverages

USAGE VIA API:

	POST /api/v0.1/scenarios/load
	{"scenario_id": "open-claims"}

USAGE AT STARTUP:

	./server -seed=open-claims

NOTE:

	Scenarios reset the store. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Handler dependencies
  - claims/service.go: Operations used to build claims
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/warp/claims-engine/claims"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "reference-data",
		Name:        "Reference Data",
		Description: "Agencies and coverage catalogue, no claims",
	},
	{
		ID:          "open-claims",
		Name:        "Open Claims",
		Description: "Material damage, bodily injury and glass claims at different statuses",
	},
	{
		ID:          "fraud-review",
		Name:        "Fraud Review",
		Description: "Two claims sharing the same car, one flagged for fraud",
	},
}

var seedAgencies = []claims.Agency{
	{Code: "AG-TUN", Label: "Tunis Central"},
	{Code: "AG-SFX", Label: "Sfax Port"},
	{Code: "AG-SOU", Label: "Sousse Medina"},
}

var seedCoverages = []claims.Coverage{
	{UID: "cov-rc", Code: "RC", Label: "Third party liability"},
	{UID: "cov-bdg", Code: "BDG", Label: "Glass breakage"},
	{UID: "cov-vol", Code: "VOL", Label: "Theft"},
	{UID: "cov-inc", Code: "INC", Label: "Fire"},
	{UID: "cov-dr", Code: "DR", Label: "Legal defense"},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the store and loads a scenario.
// POST /api/v0.1/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.LoadScenarioByID(r.Context(), req.ScenarioID); err != nil {
		var unknown unknownScenarioError
		if errors.As(err, &unknown) {
			writeError(w, http.StatusBadRequest, "Unknown scenario", err)
			return
		}
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "loaded",
		"scenario": req.ScenarioID,
	})
}

type unknownScenarioError string

func (e unknownScenarioError) Error() string {
	return fmt.Sprintf("unknown scenario: %s", string(e))
}

// resetter is implemented by stores that can drop all data.
type resetter interface {
	Reset(ctx context.Context) error
}

// LoadScenarioByID resets the store and runs the named loader.
func (h *Handler) LoadScenarioByID(ctx context.Context, id string) error {
	var load func(context.Context) error
	switch id {
	case "reference-data":
		load = h.loadReferenceData
	case "open-claims":
		load = h.loadOpenClaimsScenario
	case "fraud-review":
		load = h.loadFraudReviewScenario
	default:
		return unknownScenarioError(id)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	rs, ok := h.Store.(resetter)
	if !ok {
		return fmt.Errorf("store %T cannot be reset", h.Store)
	}
	if err := rs.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset store: %w", err)
	}
	if err := load(ctx); err != nil {
		return fmt.Errorf("failed to load scenario %s: %w", id, err)
	}

	h.currentScenario = id
	h.Logger.WithFields(logrus.Fields{"module": "api", "scenario": id}).Info("scenario loaded")
	return nil
}

// =============================================================================
// LOADERS
// =============================================================================

// loadReferenceData creates agencies and coverages.
func (h *Handler) loadReferenceData(ctx context.Context) error {
	for _, a := range seedAgencies {
		if _, err := h.Store.CreateAgency(ctx, a); err != nil {
			return fmt.Errorf("agency %s: %w", a.Code, err)
		}
	}
	for _, c := range seedCoverages {
		if _, err := h.Store.CreateCoverage(ctx, c); err != nil {
			return fmt.Errorf("coverage %s: %w", c.Code, err)
		}
	}
	return nil
}

// seedClaim describes a claim and what gets attached to it.
type seedClaim struct {
	number         string
	occurred       string
	reported       string
	reportingType  claims.ReportingType
	responsibility claims.Responsibility
	damage         claims.DamageType
	amount         string
	agency         string
	status         claims.Status
	fraud          bool
	cars           []claims.AttachInput
	parties        []claims.AttachInput
	policies       []claims.AttachInput
	coverages      []claims.AffectedCoverageInput
}

func (h *Handler) createSeedClaim(ctx context.Context, sc seedClaim) error {
	agency, err := h.Store.FindAgencyByCode(ctx, sc.agency)
	if err != nil {
		return err
	}
	if agency == nil {
		return fmt.Errorf("agency %s not seeded", sc.agency)
	}

	reportingType := string(sc.reportingType)
	responsibility := string(sc.responsibility)
	damage := string(sc.damage)
	in := claims.ClaimInput{
		ClaimNumber:     &sc.number,
		OccurrenceDate:  &sc.occurred,
		ReportingDate:   &sc.reported,
		ReportingType:   &reportingType,
		Responsibility:  &responsibility,
		DamageType:      &damage,
		ClaimAmount:     json.Number(sc.amount),
		ReportingAgency: &agency.ID,
		FlagFraud:       sc.fraud,
	}
	if _, err := h.Service.CreateClaim(ctx, in); err != nil {
		return fmt.Errorf("claim %s: %w", sc.number, err)
	}

	for _, car := range sc.cars {
		car.ClaimNumber = sc.number
		if _, err := h.Service.AddInvolvedCar(ctx, car); err != nil {
			return fmt.Errorf("claim %s car %s: %w", sc.number, car.UID, err)
		}
	}
	for _, party := range sc.parties {
		party.ClaimNumber = sc.number
		if _, err := h.Service.AddInvolvedParty(ctx, party); err != nil {
			return fmt.Errorf("claim %s party %s: %w", sc.number, party.UID, err)
		}
	}
	for _, policy := range sc.policies {
		policy.ClaimNumber = sc.number
		if _, err := h.Service.AddInvolvedPolicy(ctx, policy); err != nil {
			return fmt.Errorf("claim %s policy %s: %w", sc.number, policy.UID, err)
		}
	}
	for _, cov := range sc.coverages {
		cov.ClaimNumber = sc.number
		if _, err := h.Service.AddAffectedCoverage(ctx, cov); err != nil {
			return fmt.Errorf("claim %s coverage %s: %w", sc.number, cov.CoverageCode, err)
		}
	}

	if sc.status != "" && sc.status != claims.StatusOpen {
		if _, err := h.Service.UpdateStatus(ctx, sc.number, string(sc.status)); err != nil {
			return fmt.Errorf("claim %s status: %w", sc.number, err)
		}
	}
	return nil
}

// loadOpenClaimsScenario creates three claims at different stages.
func (h *Handler) loadOpenClaimsScenario(ctx context.Context) error {
	if err := h.loadReferenceData(ctx); err != nil {
		return err
	}

	seeds := []seedClaim{
		{
			number:         "CLM-2024-0001",
			occurred:       "2024-03-02",
			reported:       "2024-03-04",
			reportingType:  claims.FirstPartyClaim,
			responsibility: claims.PartialResponsibility,
			damage:         claims.MaterialDamage,
			amount:         "4200.50",
			agency:         "AG-TUN",
			cars: []claims.AttachInput{
				{UID: "VIN-WDB1240221A", Role: string(claims.InsuredCar)},
				{UID: "VIN-VF1BB05CF2", Role: string(claims.AdverseCar)},
			},
			parties: []claims.AttachInput{
				{UID: "PTY-1001", Role: string(claims.InsuredDriver)},
				{UID: "PTY-1002", Role: string(claims.AdverseDriver)},
			},
			policies: []claims.AttachInput{
				{UID: "POL-88231", Role: string(claims.InsuredPolicy)},
			},
			coverages: []claims.AffectedCoverageInput{
				{CoverageCode: "RC", Evaluation: json.Number("4200.50")},
			},
		},
		{
			number:         "CLM-2024-0002",
			occurred:       "2024-04-11",
			reported:       "2024-04-15",
			reportingType:  claims.ThirdPartyClaim,
			responsibility: claims.UnderInvestigation,
			damage:         claims.BodilyInjury,
			amount:         "15000",
			agency:         "AG-SFX",
			status:         claims.StatusUnderReview,
			parties: []claims.AttachInput{
				{UID: "PTY-2001", Role: string(claims.Pedestrian)},
				{UID: "PTY-2002", Role: string(claims.Witness)},
			},
			coverages: []claims.AffectedCoverageInput{
				{CoverageCode: "RC", Evaluation: json.Number("15000")},
				{CoverageCode: "DR", Evaluation: json.Number("1200")},
			},
		},
		{
			number:         "CLM-2024-0003",
			occurred:       "2024-05-20",
			reported:       "2024-05-21",
			reportingType:  claims.FirstPartyClaim,
			responsibility: claims.NoResponsibility,
			damage:         claims.MaterialDamage,
			amount:         "650",
			agency:         "AG-SOU",
			status:         claims.StatusSettled,
			cars: []claims.AttachInput{
				{UID: "VIN-ZFA31200004", Role: string(claims.InsuredCar)},
			},
			coverages: []claims.AffectedCoverageInput{
				{CoverageCode: "BDG", Evaluation: json.Number("650"), SettledAmount: json.Number("600")},
			},
		},
	}

	for _, sc := range seeds {
		if err := h.createSeedClaim(ctx, sc); err != nil {
			return err
		}
	}
	return nil
}

// loadFraudReviewScenario links the same car to two claims within weeks.
func (h *Handler) loadFraudReviewScenario(ctx context.Context) error {
	if err := h.loadReferenceData(ctx); err != nil {
		return err
	}

	sharedCar := claims.AttachInput{UID: "VIN-JTDBR32E70", Role: string(claims.InsuredCar)}
	seeds := []seedClaim{
		{
			number:         "CLM-2024-0101",
			occurred:       "2024-06-01",
			reported:       "2024-06-03",
			reportingType:  claims.FirstPartyClaim,
			responsibility: claims.NoResponsibility,
			damage:         claims.MaterialDamage,
			amount:         "8000",
			agency:         "AG-TUN",
			cars:           []claims.AttachInput{sharedCar},
			coverages: []claims.AffectedCoverageInput{
				{CoverageCode: "VOL", Evaluation: json.Number("8000")},
			},
		},
		{
			number:         "CLM-2024-0102",
			occurred:       "2024-06-20",
			reported:       "2024-06-21",
			reportingType:  claims.FirstPartyClaim,
			responsibility: claims.NoResponsibility,
			damage:         claims.MaterialDamage,
			amount:         "9100",
			agency:         "AG-TUN",
			status:         claims.StatusAwaitingExpertAssessment,
			fraud:          true,
			cars:           []claims.AttachInput{sharedCar},
			parties: []claims.AttachInput{
				{UID: "PTY-3001", Role: string(claims.Inspector)},
			},
			coverages: []claims.AffectedCoverageInput{
				{CoverageCode: "INC", Evaluation: json.Number("9100")},
			},
		},
	}

	for _, sc := range seeds {
		if err := h.createSeedClaim(ctx, sc); err != nil {
			return err
		}
	}
	return nil
}
