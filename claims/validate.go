/*
validate.go - Field-level claim validation

PURPOSE:
  Pure checks of single-field well-formedness. No store access, no side
  effects. Same input always yields the same violations in the same order.

PRESENCE:
  ClaimInput keeps pointers and untyped values so the validator can tell an
  absent field from a zero one, and a JSON number from a numeric string.
  In ModeCreate required fields must be present. In ModeUpdate only present
  fields are checked.

CHECK ORDER:
  claim number, occurrence date, reporting date, reporting type,
  responsibility, damage type, claim amount, reporting agency, recourse
  amount, flag fraud, date ordering, status.

SEE ALSO:
  - service.go: Combines these checks with store-backed checks
*/
package claims

import (
	"encoding/json"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

type Mode int

const (
	ModeCreate Mode = iota
	ModeUpdate
)

// ClaimInput is a full or partial claim payload. Nil means absent.
//
// ClaimAmount, RecourseAmount and FlagFraud keep their decoded JSON value
// (json.Number, float64, string, bool...) so type checks can be applied.
type ClaimInput struct {
	ClaimNumber        *string
	OccurrenceDate     *string
	ReportingDate      *string
	ReportingType      *string
	Responsibility     *string
	DamageType         *string
	ClaimAmount        any
	RecourseAmount     any
	Daaq               *string
	FlagFraud          any
	Status             *string
	ReportingAgency    *string
	InspectionMissions []string
	InvolvedCars       []string
	InvolvedPolicies   []string
	InvolvedParties    []string
	AffectedCoverages  []string
}

// =============================================================================
// CLAIM FIELDS
// =============================================================================

// ValidateClaimFields runs every field rule that applies to in.
func ValidateClaimFields(in ClaimInput, mode Mode) Violations {
	var v Violations
	create := mode == ModeCreate

	if create && blank(in.ClaimNumber) {
		v.Invalid("Claim Number is not provided")
	}

	occurrence, occurrenceOK := checkDate(&v, in.OccurrenceDate, "Occurrence Date", create)
	reporting, reportingOK := checkDate(&v, in.ReportingDate, "Reporting Date", create)

	checkEnum(&v, in.ReportingType, "Reporting Type", create, ReportingType.Valid, ReportingTypes())
	checkEnum(&v, in.Responsibility, "Responsibility", create, Responsibility.Valid, Responsibilities())
	checkEnum(&v, in.DamageType, "Damage Type", create, DamageType.Valid, DamageTypes())

	if in.ClaimAmount != nil || create {
		if amount, ok := ParseAmount(in.ClaimAmount); !ok || amount.IsNegative() {
			if create {
				v.Invalid("Claim Amount is invalid or not provided")
			} else {
				v.Invalid("Claim Amount is invalid")
			}
		}
	}

	if create && blank(in.ReportingAgency) {
		v.Invalid("Reporting Agency is not provided")
	}

	if in.RecourseAmount != nil && !IsNumber(in.RecourseAmount) {
		v.Invalid("Invalid Recourse Amount value type")
	}
	if in.FlagFraud != nil {
		if _, ok := in.FlagFraud.(bool); !ok {
			v.Invalid("Flag Fraud must be a boolean")
		}
	}

	if occurrenceOK && reportingOK && !occurrence.Before(reporting) {
		v.Invalid("Occurrence date must be before reporting date")
	}

	if in.Status != nil && !Status(*in.Status).Valid() {
		v.Invalid("Status should be one of these options %s", joinValues(Statuses()))
	}

	return v
}

// ValidateStatus checks a requested status transition target.
func ValidateStatus(status string) Violations {
	var v Violations
	if !Status(status).Valid() {
		v.Invalid("Status should be one of these options %s", joinValues(Statuses()))
	}
	return v
}

func checkDate(v *Violations, value *string, label string, required bool) (time.Time, bool) {
	if value == nil && !required {
		return time.Time{}, false
	}
	if value != nil {
		if t, err := ParseDate(*value); err == nil {
			return t, true
		}
	}
	if required {
		v.Invalid("%s is invalid or not provided", label)
	} else {
		v.Invalid("%s is invalid", label)
	}
	return time.Time{}, false
}

func checkEnum[T ~string](v *Violations, value *string, label string, required bool, valid func(T) bool, allowed []T) {
	if value == nil || *value == "" {
		if required {
			v.Invalid("%s is not provided", label)
		}
		return
	}
	if !valid(T(*value)) {
		v.Invalid("%s should be one of this options %s", label, joinValues(allowed))
	}
}

func blank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

// =============================================================================
// VALUE PARSING
// =============================================================================

var dateLayouts = []string{DateLayout, time.RFC3339, time.RFC3339Nano}

// ParseDate accepts a calendar date (2006-01-02) or an RFC 3339 timestamp.
// The result is in UTC.
func ParseDate(s string) (time.Time, error) {
	var err error
	for _, layout := range dateLayouts {
		var t time.Time
		t, err = time.Parse(layout, strings.TrimSpace(s))
		if err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, err
}

// IsNumber reports whether v holds a numeric type. Numeric strings are not
// numbers here.
func IsNumber(v any) bool {
	switch n := v.(type) {
	case json.Number:
		_, err := decimal.NewFromString(n.String())
		return err == nil
	case float64, float32, int, int32, int64, uint, uint32, uint64, decimal.Decimal:
		return true
	}
	return false
}

// ParseAmount converts a numeric value, or a string holding one, to a decimal.
func ParseAmount(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		return d, err == nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(n))
		return d, err == nil
	case float64:
		return decimal.NewFromFloat(n), true
	case float32:
		return decimal.NewFromFloat32(n), true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int32:
		return decimal.NewFromInt32(n), true
	case int64:
		return decimal.NewFromInt(n), true
	case uint:
		return decimal.NewFromUint64(uint64(n)), true
	case uint32:
		return decimal.NewFromUint64(uint64(n)), true
	case uint64:
		return decimal.NewFromUint64(n), true
	case decimal.Decimal:
		return n, true
	}
	return decimal.Zero, false
}

// =============================================================================
// SUB-ENTITY INPUTS
// =============================================================================

// AttachInput is the payload for linking a car, party or policy to a claim.
// UID is the sub-entity's natural key (goodUid or partyUid).
type AttachInput struct {
	ClaimNumber string `validate:"required" label:"Claim Number"`
	UID         string `validate:"required" label:"UID"`
	Role        string
}

// AffectedCoverageInput is the payload for adding or updating an affected
// coverage. Evaluation and SettledAmount keep their decoded JSON value.
type AffectedCoverageInput struct {
	ClaimNumber   string `validate:"required" label:"Claim Number"`
	CoverageCode  string `validate:"required" label:"Coverage Code"`
	Evaluation    any
	SettledAmount any
}

var structValidator = newStructValidator()

func newStructValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if label := fld.Tag.Get("label"); label != "" {
			return label
		}
		return fld.Name
	})
	return v
}

// validateRequired reports each missing required field of a tagged input.
func validateRequired(in any) Violations {
	var v Violations
	err := structValidator.Struct(in)
	if err == nil {
		return v
	}
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		v.Invalid("Required claim data is missing")
		return v
	}
	for _, fe := range fieldErrs {
		v.Invalid("%s is required", fe.Field())
	}
	return v
}

// ValidateRole checks role membership for the given sub-entity kind.
func ValidateRole(kind EntityKind, role string) Violations {
	var v Violations
	switch kind {
	case KindInvolvedCar:
		if !CarRole(role).Valid() {
			v.Invalid("Role should be one of these options: %s", joinValues(CarRoles()))
		}
	case KindInvolvedParty:
		if !PartyRole(role).Valid() {
			v.Invalid("Role should be one of these options: %s", joinValues(PartyRoles()))
		}
	case KindInvolvedPolicy:
		if !PolicyRole(role).Valid() {
			v.Invalid("Role should be one of these options: %s", joinValues(PolicyRoles()))
		}
	default:
		v.Invalid("%s cannot be attached by role", kind.Label())
	}
	return v
}

// ValidateCoverageAmounts checks evaluation and settled amount. When
// settledRequired is false an absent settled amount is accepted and treated
// as zero. The parsed amounts are returned for the caller to persist.
func ValidateCoverageAmounts(in AffectedCoverageInput, settledRequired bool) (evaluation, settled decimal.Decimal, v Violations) {
	v.Append(validateRequired(in)...)

	evaluationOK := IsNumber(in.Evaluation)
	if in.Evaluation == nil {
		v.Invalid("Evaluation is required")
	} else if !evaluationOK {
		v.Invalid("Invalid Evaluation value type")
	}

	settledOK := IsNumber(in.SettledAmount)
	switch {
	case in.SettledAmount == nil && settledRequired:
		v.Invalid("Invalid settled amount value type")
	case in.SettledAmount != nil && !settledOK:
		v.Invalid("Invalid settled amount value type")
	}

	if evaluationOK {
		evaluation, _ = ParseAmount(in.Evaluation)
	}
	if settledOK {
		settled, _ = ParseAmount(in.SettledAmount)
	}
	if evaluationOK && settledOK && settled.GreaterThan(evaluation) {
		v.Invalid("Settled amount cannot be greater than evaluation")
	}
	return evaluation, settled, v
}
