/*
Package claims provides the claim record engine.

PURPOSE:
  This package owns the claim aggregate and the entities it references
  (reporting agency, involved cars, involved parties, involved policies,
  affected coverages). It validates claim payloads, resolves cross-entity
  references against a Store, and orchestrates every mutation so that a
  request either commits fully or leaves no trace.

KEY CONCEPTS IN THIS FILE (types.go):
  - Claim: the central record of a reported insurance incident
  - Enumerations: reporting type, responsibility, damage type, status, roles
  - Sub-entities: InvolvedCar, InvolvedParty, InvolvedPolicy, AffectedCoverage
  - Reference entities: Agency, Coverage (read-only from this package)

DESIGN PRINCIPLES:
  1. Relationships are lists of store identifiers, never embedded documents
  2. Money uses decimal.Decimal so settled/evaluation comparisons are exact
  3. Status is a flat enumeration: any value may follow any other

SEE ALSO:
  - validate.go: Field-level checks
  - resolver.go: Concurrent reference resolution
  - service.go: Lifecycle operations
  - query.go: Details and filter
*/
package claims

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-date wire format for occurrence and reporting dates.
const DateLayout = "2006-01-02"

// =============================================================================
// ENUMERATIONS
// =============================================================================

type ReportingType string

const (
	FirstPartyClaim ReportingType = "FirstPartyClaim"
	ThirdPartyClaim ReportingType = "ThirdPartyClaim"
)

var reportingTypes = []ReportingType{FirstPartyClaim, ThirdPartyClaim}

func (r ReportingType) Valid() bool { return contains(reportingTypes, r) }

// ReportingTypes returns the accepted reporting types in declaration order.
func ReportingTypes() []ReportingType { return clone(reportingTypes) }

type Responsibility string

const (
	FullResponsibility    Responsibility = "FullResponsibility"
	PartialResponsibility Responsibility = "PartialResponsibility"
	NoResponsibility      Responsibility = "NoResponsibility"
	UnderInvestigation    Responsibility = "UnderInvestigation"
)

var responsibilities = []Responsibility{
	FullResponsibility, PartialResponsibility, NoResponsibility, UnderInvestigation,
}

func (r Responsibility) Valid() bool { return contains(responsibilities, r) }

func Responsibilities() []Responsibility { return clone(responsibilities) }

type DamageType string

const (
	MaterialDamage DamageType = "MaterialDamage"
	BodilyInjury   DamageType = "BodilyInjury"
)

var damageTypes = []DamageType{MaterialDamage, BodilyInjury}

func (d DamageType) Valid() bool { return contains(damageTypes, d) }

func DamageTypes() []DamageType { return clone(damageTypes) }

// Status is the claim workflow position. The values are listed in the order a
// claim usually moves through them, but transitions are not constrained: any
// status may be set from any other.
type Status string

const (
	StatusOpen                     Status = "OPEN"
	StatusAwaitingAssignment       Status = "AWAITING_ASSIGNMENT"
	StatusAwaitingInspection       Status = "AWAITING_INSPECTION"
	StatusAwaitingDocumentation    Status = "AWAITING_DOCUMENTATION"
	StatusUnderReview              Status = "UNDER_REVIEW"
	StatusAwaitingExpertAssessment Status = "AWAITING_EXPERT_ASSESSMENT"
	StatusAwaitingGarageAssessment Status = "AWAITING_GARAGE_ASSESSMENT"
	StatusAwaitingPhotoEvidence    Status = "AWAITING_PHOTO_EVIDENCE"
	StatusAwaitingExpertReport     Status = "AWAITING_EXPERT_REPORT"
	StatusPendingApproval          Status = "PENDING_APPROVAL"
	StatusSettled                  Status = "SETTLED"
	StatusClosed                   Status = "CLOSED"
)

var statuses = []Status{
	StatusOpen,
	StatusAwaitingAssignment,
	StatusAwaitingInspection,
	StatusAwaitingDocumentation,
	StatusUnderReview,
	StatusAwaitingExpertAssessment,
	StatusAwaitingGarageAssessment,
	StatusAwaitingPhotoEvidence,
	StatusAwaitingExpertReport,
	StatusPendingApproval,
	StatusSettled,
	StatusClosed,
}

func (s Status) Valid() bool { return contains(statuses, s) }

func Statuses() []Status { return clone(statuses) }

type CarRole string

const (
	InsuredCar CarRole = "INSURED_CAR"
	AdverseCar CarRole = "ADVERSE_CAR"
)

var carRoles = []CarRole{InsuredCar, AdverseCar}

func (r CarRole) Valid() bool { return contains(carRoles, r) }

func CarRoles() []CarRole { return clone(carRoles) }

type PolicyRole string

const (
	InsuredPolicy PolicyRole = "InsuredPolicy"
	AdversePolicy PolicyRole = "AdversePolicy"
)

var policyRoles = []PolicyRole{InsuredPolicy, AdversePolicy}

func (r PolicyRole) Valid() bool { return contains(policyRoles, r) }

func PolicyRoles() []PolicyRole { return clone(policyRoles) }

type PartyRole string

const (
	Pedestrian    PartyRole = "Pedestrian"
	InsuredDriver PartyRole = "InsuredDriver"
	AdverseDriver PartyRole = "AdverseDriver"
	Passenger     PartyRole = "Passenger"
	Witness       PartyRole = "Witness"
	Garage        PartyRole = "Garage"
	Inspector     PartyRole = "Inspector"
	Agent         PartyRole = "Agent"
)

var partyRoles = []PartyRole{
	Pedestrian, InsuredDriver, AdverseDriver, Passenger, Witness, Garage, Inspector, Agent,
}

func (r PartyRole) Valid() bool { return contains(partyRoles, r) }

func PartyRoles() []PartyRole { return clone(partyRoles) }

// =============================================================================
// CLAIM - Central aggregate
// =============================================================================

type Claim struct {
	ID             string
	ClaimNumber    string
	OccurrenceDate time.Time
	ReportingDate  time.Time
	ReportingType  ReportingType
	Responsibility Responsibility
	DamageType     DamageType
	ClaimAmount    decimal.Decimal
	RecourseAmount decimal.Decimal
	Daaq           string
	FlagFraud      bool
	Status         Status

	InspectionMissions []string
	ReportingAgency    string

	// Relationship lists hold store identifiers of the referenced records.
	InvolvedCars      []string
	InvolvedPolicies  []string
	InvolvedParties   []string
	AffectedCoverages []string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a deep copy so callers can mutate relationship lists freely.
func (c Claim) Clone() Claim {
	c.InspectionMissions = clone(c.InspectionMissions)
	c.InvolvedCars = clone(c.InvolvedCars)
	c.InvolvedPolicies = clone(c.InvolvedPolicies)
	c.InvolvedParties = clone(c.InvolvedParties)
	c.AffectedCoverages = clone(c.AffectedCoverages)
	return c
}

// =============================================================================
// SUB-ENTITIES
// =============================================================================

// InvolvedCar is shared between claims; GoodUID is its natural key.
type InvolvedCar struct {
	ID      string
	GoodUID string
	Role    CarRole
}

// InvolvedPolicy is shared between claims; GoodUID is its natural key.
type InvolvedPolicy struct {
	ID      string
	GoodUID string
	Role    PolicyRole
}

// InvolvedParty is shared between claims; PartyUID is its natural key.
type InvolvedParty struct {
	ID       string
	PartyUID string
	Role     PartyRole
}

// AffectedCoverage is owned by exactly one claim and points at one Coverage.
type AffectedCoverage struct {
	ID            string
	ClaimID       string
	CoverageID    string
	Evaluation    decimal.Decimal
	SettledAmount decimal.Decimal
}

// =============================================================================
// REFERENCE ENTITIES - managed outside this package
// =============================================================================

type Agency struct {
	ID        string
	Code      string
	Label     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Coverage struct {
	ID        string
	UID       string
	Code      string
	Label     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// =============================================================================
// EXPANDED VIEWS
// =============================================================================

// ClaimDetails is a claim with its relationships expanded one level, and
// affected coverages expanded one level further to their Coverage.
type ClaimDetails struct {
	Claim
	Agency    *Agency
	Cars      []InvolvedCar
	Policies  []InvolvedPolicy
	Parties   []InvolvedParty
	Coverages []AffectedCoverageDetail
}

type AffectedCoverageDetail struct {
	AffectedCoverage
	Coverage *Coverage
}

// =============================================================================
// HELPERS
// =============================================================================

func contains[T comparable](values []T, v T) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func clone[T any](values []T) []T {
	if values == nil {
		return nil
	}
	out := make([]T, len(values))
	copy(out, values)
	return out
}

// joinValues renders an enum set the way violation messages list it.
func joinValues[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ",")
}
