/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the claim model from the wire contract, allowing:
  - Field renaming without breaking clients
  - Presence-aware decoding (pointer and any fields)
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

WIRE COMPATIBILITY:
  Field names follow the existing client contract, including the
  "responsability" spelling and camelCase keys.

PRESENCE:
  Request bodies are decoded with json.Decoder.UseNumber. Scalar fields are
  pointers so an absent key stays nil; amounts and flagFraud are kept as the
  decoded JSON value so the validator can tell a number from a numeric string.

SEE ALSO:
  - handlers.go: Uses these types
  - claims/validate.go: ClaimInput, AttachInput, AffectedCoverageInput
*/
package api

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/claims-engine/claims"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// ClaimRequest is the body of CreateClaim and UpdateClaim.
type ClaimRequest struct {
	ClaimNumber        *string  `json:"claimNumber"`
	OccurrenceDate     *string  `json:"occurrenceDate"`
	ReportingDate      *string  `json:"reportingDate"`
	ReportingType      *string  `json:"reportingType"`
	Responsibility     *string  `json:"responsability"`
	DamageType         *string  `json:"damageType"`
	ClaimAmount        any      `json:"claimAmount"`
	RecourseAmount     any      `json:"recourseAmount"`
	Daaq               *string  `json:"daaq"`
	FlagFraud          any      `json:"flagFraud"`
	Status             *string  `json:"status"`
	ReportingAgency    *string  `json:"reportingAgency"`
	InspectionMissions []string `json:"inspectionMissions"`
	InvolvedCars       []string `json:"involvedCars"`
	InvolvedPolicies   []string `json:"involvedPolicies"`
	InvolvedParties    []string `json:"involvedParties"`
	AffectedCoverages  []string `json:"affectedCoverages"`
}

func (r ClaimRequest) toInput() claims.ClaimInput {
	return claims.ClaimInput{
		ClaimNumber:        r.ClaimNumber,
		OccurrenceDate:     r.OccurrenceDate,
		ReportingDate:      r.ReportingDate,
		ReportingType:      r.ReportingType,
		Responsibility:     r.Responsibility,
		DamageType:         r.DamageType,
		ClaimAmount:        r.ClaimAmount,
		RecourseAmount:     r.RecourseAmount,
		Daaq:               r.Daaq,
		FlagFraud:          r.FlagFraud,
		Status:             r.Status,
		ReportingAgency:    r.ReportingAgency,
		InspectionMissions: r.InspectionMissions,
		InvolvedCars:       r.InvolvedCars,
		InvolvedPolicies:   r.InvolvedPolicies,
		InvolvedParties:    r.InvolvedParties,
		AffectedCoverages:  r.AffectedCoverages,
	}
}

// UpdateStatusRequest is the body of UpdateStatus.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// AttachCarRequest attaches a car (or a policy, which shares the shape).
type AttachCarRequest struct {
	GoodUID string `json:"goodUid"`
	Role    string `json:"role"`
}

// AttachPartyRequest attaches a party.
type AttachPartyRequest struct {
	PartyUID string `json:"partyUid"`
	Role     string `json:"role"`
}

// AffectedCoverageRequest is the body of Add/UpdateAffectedCoverage.
type AffectedCoverageRequest struct {
	CoverageCode  string `json:"coverageCode"`
	Evaluation    any    `json:"evaluation"`
	SettledAmount any    `json:"settledAmount"`
}

// FilterRequest wraps the filter object: {"filters": {...}}.
type FilterRequest struct {
	Filters FilterDTO `json:"filters"`
}

type FilterDTO struct {
	ClaimNumber      string           `json:"claimNumber"`
	OccurrenceDate   []string         `json:"occurrenceDate"`
	ReportingDate    []string         `json:"reportingDate"`
	ReportingType    string           `json:"reportingType"`
	Responsibility   string           `json:"responsability"`
	DamageType       string           `json:"damageType"`
	Daaq             string           `json:"daaq"`
	Status           string           `json:"status"`
	InvolvedCars     *EntityFilterDTO `json:"involvedCars"`
	InvolvedPolicies *EntityFilterDTO `json:"involvedPolicies"`
	InvolvedParties  *EntityFilterDTO `json:"involvedParties"`
}

// EntityFilterDTO accepts goodUid for cars and policies, partyUid for parties.
type EntityFilterDTO struct {
	GoodUID  string `json:"goodUid"`
	PartyUID string `json:"partyUid"`
	Role     string `json:"role"`
}

func (f *EntityFilterDTO) toFilter(party bool) *claims.EntityFilter {
	if f == nil {
		return nil
	}
	uid := f.GoodUID
	if party {
		uid = f.PartyUID
	}
	return &claims.EntityFilter{UID: uid, Role: f.Role}
}

func (f FilterDTO) toCriteria() claims.FilterCriteria {
	return claims.FilterCriteria{
		ClaimNumber:      f.ClaimNumber,
		ReportingType:    f.ReportingType,
		Responsibility:   f.Responsibility,
		DamageType:       f.DamageType,
		Daaq:             f.Daaq,
		Status:           f.Status,
		OccurrenceDate:   f.OccurrenceDate,
		ReportingDate:    f.ReportingDate,
		InvolvedCars:     f.InvolvedCars.toFilter(false),
		InvolvedPolicies: f.InvolvedPolicies.toFilter(false),
		InvolvedParties:  f.InvolvedParties.toFilter(true),
	}
}

// CreateAgencyRequest and CreateCoverageRequest manage reference data.
type CreateAgencyRequest struct {
	Code  string `json:"code" validate:"required"`
	Label string `json:"label"`
}

type CreateCoverageRequest struct {
	UID   string `json:"uid"`
	Code  string `json:"code" validate:"required"`
	Label string `json:"label"`
}

// LoadScenarioRequest selects a demo scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// claimFields are the scalar fields shared by ClaimDTO and ClaimDetailsDTO.
type claimFields struct {
	ID                 string      `json:"_id"`
	ClaimNumber        string      `json:"claimNumber"`
	OccurrenceDate     string      `json:"occurrenceDate"`
	ReportingDate      string      `json:"reportingDate"`
	ReportingType      string      `json:"reportingType"`
	Responsibility     string      `json:"responsability"`
	DamageType         string      `json:"damageType"`
	ClaimAmount        json.Number `json:"claimAmount"`
	RecourseAmount     json.Number `json:"recourseAmount"`
	Daaq               string      `json:"daaq"`
	FlagFraud          bool        `json:"flagFraud"`
	Status             string      `json:"status"`
	InspectionMissions []string    `json:"inspectionMissions"`
	CreatedAt          string      `json:"createdAt,omitempty"`
	UpdatedAt          string      `json:"updatedAt,omitempty"`
}

// ClaimDTO is a claim with relationships as identifier lists.
type ClaimDTO struct {
	claimFields
	ReportingAgency   string   `json:"reportingAgency"`
	InvolvedCars      []string `json:"involvedCars"`
	InvolvedPolicies  []string `json:"involvedPolicies"`
	InvolvedParties   []string `json:"involvedParties"`
	AffectedCoverages []string `json:"affectedCoverages"`
}

// ClaimDetailsDTO is a claim with relationships expanded.
type ClaimDetailsDTO struct {
	claimFields
	ReportingAgency   *AgencyDTO            `json:"reportingAgency"`
	InvolvedCars      []InvolvedCarDTO      `json:"involvedCars"`
	InvolvedPolicies  []InvolvedPolicyDTO   `json:"involvedPolicies"`
	InvolvedParties   []InvolvedPartyDTO    `json:"involvedParties"`
	AffectedCoverages []AffectedCoverageDTO `json:"affectedCoverages"`
}

type InvolvedCarDTO struct {
	ID      string `json:"_id"`
	GoodUID string `json:"goodUid"`
	Role    string `json:"role"`
}

type InvolvedPolicyDTO struct {
	ID      string `json:"_id"`
	GoodUID string `json:"goodUid"`
	Role    string `json:"role"`
}

type InvolvedPartyDTO struct {
	ID       string `json:"_id"`
	PartyUID string `json:"partyUid"`
	Role     string `json:"role"`
}

type AffectedCoverageDTO struct {
	ID            string       `json:"_id"`
	Claim         string       `json:"claim"`
	Coverage      *CoverageDTO `json:"coverage,omitempty"`
	CoverageID    string       `json:"coverageId"`
	Evaluation    json.Number  `json:"evaluation"`
	SettledAmount json.Number  `json:"settledAmount"`
}

type AgencyDTO struct {
	ID    string `json:"_id"`
	Code  string `json:"code"`
	Label string `json:"label"`
}

type CoverageDTO struct {
	ID    string `json:"_id"`
	UID   string `json:"uid"`
	Code  string `json:"code"`
	Label string `json:"label"`
}

// MessageResponse acknowledges a mutation.
type MessageResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ValidationErrorResponse carries every violation of a rejected request.
type ValidationErrorResponse struct {
	Errors []string `json:"errors"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func toClaimFields(c claims.Claim) claimFields {
	missions := c.InspectionMissions
	if missions == nil {
		missions = []string{}
	}
	return claimFields{
		ID:                 c.ID,
		ClaimNumber:        c.ClaimNumber,
		OccurrenceDate:     formatDate(c.OccurrenceDate),
		ReportingDate:      formatDate(c.ReportingDate),
		ReportingType:      string(c.ReportingType),
		Responsibility:     string(c.Responsibility),
		DamageType:         string(c.DamageType),
		ClaimAmount:        number(c.ClaimAmount),
		RecourseAmount:     number(c.RecourseAmount),
		Daaq:               c.Daaq,
		FlagFraud:          c.FlagFraud,
		Status:             string(c.Status),
		InspectionMissions: missions,
		CreatedAt:          formatDate(c.CreatedAt),
		UpdatedAt:          formatDate(c.UpdatedAt),
	}
}

func ids(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

func toClaimDTO(c claims.Claim) ClaimDTO {
	return ClaimDTO{
		claimFields:       toClaimFields(c),
		ReportingAgency:   c.ReportingAgency,
		InvolvedCars:      ids(c.InvolvedCars),
		InvolvedPolicies:  ids(c.InvolvedPolicies),
		InvolvedParties:   ids(c.InvolvedParties),
		AffectedCoverages: ids(c.AffectedCoverages),
	}
}

func toClaimDetailsDTO(d claims.ClaimDetails) ClaimDetailsDTO {
	dto := ClaimDetailsDTO{
		claimFields:       toClaimFields(d.Claim),
		InvolvedCars:      make([]InvolvedCarDTO, len(d.Cars)),
		InvolvedPolicies:  make([]InvolvedPolicyDTO, len(d.Policies)),
		InvolvedParties:   make([]InvolvedPartyDTO, len(d.Parties)),
		AffectedCoverages: make([]AffectedCoverageDTO, len(d.Coverages)),
	}
	if d.Agency != nil {
		a := toAgencyDTO(*d.Agency)
		dto.ReportingAgency = &a
	}
	for i, c := range d.Cars {
		dto.InvolvedCars[i] = toCarDTO(c)
	}
	for i, p := range d.Policies {
		dto.InvolvedPolicies[i] = toPolicyDTO(p)
	}
	for i, p := range d.Parties {
		dto.InvolvedParties[i] = toPartyDTO(p)
	}
	for i, ac := range d.Coverages {
		dto.AffectedCoverages[i] = toAffectedCoverageDTO(ac.AffectedCoverage, ac.Coverage)
	}
	return dto
}

func toClaimDetailsDTOs(list []claims.ClaimDetails) []ClaimDetailsDTO {
	dtos := make([]ClaimDetailsDTO, len(list))
	for i, d := range list {
		dtos[i] = toClaimDetailsDTO(d)
	}
	return dtos
}

func toCarDTO(c claims.InvolvedCar) InvolvedCarDTO {
	return InvolvedCarDTO{ID: c.ID, GoodUID: c.GoodUID, Role: string(c.Role)}
}

func toPolicyDTO(p claims.InvolvedPolicy) InvolvedPolicyDTO {
	return InvolvedPolicyDTO{ID: p.ID, GoodUID: p.GoodUID, Role: string(p.Role)}
}

func toPartyDTO(p claims.InvolvedParty) InvolvedPartyDTO {
	return InvolvedPartyDTO{ID: p.ID, PartyUID: p.PartyUID, Role: string(p.Role)}
}

func toAffectedCoverageDTO(ac claims.AffectedCoverage, cov *claims.Coverage) AffectedCoverageDTO {
	dto := AffectedCoverageDTO{
		ID:            ac.ID,
		Claim:         ac.ClaimID,
		CoverageID:    ac.CoverageID,
		Evaluation:    number(ac.Evaluation),
		SettledAmount: number(ac.SettledAmount),
	}
	if cov != nil {
		c := toCoverageDTO(*cov)
		dto.Coverage = &c
	}
	return dto
}

func toAgencyDTO(a claims.Agency) AgencyDTO {
	return AgencyDTO{ID: a.ID, Code: a.Code, Label: a.Label}
}

func toCoverageDTO(c claims.Coverage) CoverageDTO {
	return CoverageDTO{ID: c.ID, UID: c.UID, Code: c.Code, Label: c.Label}
}
