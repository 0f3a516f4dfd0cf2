package claims

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func ptr(s string) *string { return &s }

func validCreateInput() ClaimInput {
	return ClaimInput{
		ClaimNumber:     ptr("C-100"),
		OccurrenceDate:  ptr("2024-01-01"),
		ReportingDate:   ptr("2024-01-02"),
		ReportingType:   ptr("FirstPartyClaim"),
		Responsibility:  ptr("NoResponsibility"),
		DamageType:      ptr("MaterialDamage"),
		ClaimAmount:     json.Number("500"),
		ReportingAgency: ptr("agency-1"),
	}
}

// =============================================================================
// CREATE MODE
// =============================================================================

func TestValidateClaimFields_ValidCreate(t *testing.T) {
	v := ValidateClaimFields(validCreateInput(), ModeCreate)
	assert.True(t, v.Empty(), "unexpected violations: %v", v.Messages())
}

func TestValidateClaimFields_EmptyCreateReportsEveryRequiredField(t *testing.T) {
	v := ValidateClaimFields(ClaimInput{}, ModeCreate)

	assert.Equal(t, []string{
		"Claim Number is not provided",
		"Occurrence Date is invalid or not provided",
		"Reporting Date is invalid or not provided",
		"Reporting Type is not provided",
		"Responsibility is not provided",
		"Damage Type is not provided",
		"Claim Amount is invalid or not provided",
		"Reporting Agency is not provided",
	}, v.Messages())
}

func TestValidateClaimFields_IndependentFailuresAreCounted(t *testing.T) {
	// GIVEN three independently broken fields
	in := validCreateInput()
	in.ReportingType = ptr("Sideways")
	in.FlagFraud = "yes"
	in.RecourseAmount = "123"

	// WHEN validated
	v := ValidateClaimFields(in, ModeCreate)

	// THEN there is one message per failure, in check order
	assert.Equal(t, []string{
		"Reporting Type should be one of this options FirstPartyClaim,ThirdPartyClaim",
		"Invalid Recourse Amount value type",
		"Flag Fraud must be a boolean",
	}, v.Messages())
}

func TestValidateClaimFields_EnumMessagesListAllowedValues(t *testing.T) {
	in := validCreateInput()
	in.Responsibility = ptr("Some")
	in.DamageType = ptr("Dent")
	in.Status = ptr("BOGUS")

	v := ValidateClaimFields(in, ModeCreate)

	require.Len(t, v, 3)
	assert.Equal(t, "Responsibility should be one of this options FullResponsibility,PartialResponsibility,NoResponsibility,UnderInvestigation", v[0].Message)
	assert.Equal(t, "Damage Type should be one of this options MaterialDamage,BodilyInjury", v[1].Message)
	assert.Contains(t, v[2].Message, "OPEN,AWAITING_ASSIGNMENT")
	assert.Contains(t, v[2].Message, "SETTLED,CLOSED")
}

// =============================================================================
// DATES
// =============================================================================

func TestValidateClaimFields_EqualDatesRejected(t *testing.T) {
	in := validCreateInput()
	in.ReportingDate = ptr("2024-01-01")

	v := ValidateClaimFields(in, ModeCreate)

	assert.Equal(t, []string{"Occurrence date must be before reporting date"}, v.Messages())
}

func TestValidateClaimFields_OneDayBeforeAccepted(t *testing.T) {
	in := validCreateInput()
	in.OccurrenceDate = ptr("2023-12-31")
	in.ReportingDate = ptr("2024-01-01")

	assert.True(t, ValidateClaimFields(in, ModeCreate).Empty())
}

func TestValidateClaimFields_RFC3339Accepted(t *testing.T) {
	in := validCreateInput()
	in.OccurrenceDate = ptr("2024-01-01T10:00:00Z")
	in.ReportingDate = ptr("2024-01-01T10:00:01Z")

	assert.True(t, ValidateClaimFields(in, ModeCreate).Empty())
}

func TestValidateClaimFields_UnparsableDateSkipsOrdering(t *testing.T) {
	in := validCreateInput()
	in.OccurrenceDate = ptr("yesterday")

	v := ValidateClaimFields(in, ModeCreate)

	assert.Equal(t, []string{"Occurrence Date is invalid or not provided"}, v.Messages())
}

// =============================================================================
// AMOUNTS
// =============================================================================

func TestValidateClaimFields_ClaimAmount(t *testing.T) {
	tests := []struct {
		name   string
		amount any
		valid  bool
	}{
		{"json number", json.Number("12.50"), true},
		{"zero", json.Number("0"), true},
		{"numeric string", "300", true},
		{"float", 4.5, true},
		{"negative", json.Number("-1"), false},
		{"text", "lots", false},
		{"bool", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validCreateInput()
			in.ClaimAmount = tt.amount
			v := ValidateClaimFields(in, ModeCreate)
			assert.Equal(t, tt.valid, v.Empty(), v.Messages())
		})
	}
}

func TestIsNumber_RejectsNumericStrings(t *testing.T) {
	assert.True(t, IsNumber(json.Number("123")))
	assert.True(t, IsNumber(123.0))
	assert.False(t, IsNumber("123"))
	assert.False(t, IsNumber(nil))
	assert.False(t, IsNumber(json.Number("abc")))
}

// =============================================================================
// UPDATE MODE
// =============================================================================

func TestValidateClaimFields_UpdateChecksOnlyPresentFields(t *testing.T) {
	assert.True(t, ValidateClaimFields(ClaimInput{}, ModeUpdate).Empty())

	v := ValidateClaimFields(ClaimInput{OccurrenceDate: ptr("bad")}, ModeUpdate)
	assert.Equal(t, []string{"Occurrence Date is invalid"}, v.Messages())

	v = ValidateClaimFields(ClaimInput{ClaimAmount: json.Number("-5")}, ModeUpdate)
	assert.Equal(t, []string{"Claim Amount is invalid"}, v.Messages())
}

func TestValidateStatus(t *testing.T) {
	assert.True(t, ValidateStatus("CLOSED").Empty())

	v := ValidateStatus("BOGUS")
	require.Len(t, v, 1)
	for _, s := range Statuses() {
		assert.Contains(t, v[0].Message, string(s))
	}
}

// =============================================================================
// SUB-ENTITY INPUTS
// =============================================================================

func TestValidateRole(t *testing.T) {
	assert.True(t, ValidateRole(KindInvolvedCar, "INSURED_CAR").Empty())
	assert.True(t, ValidateRole(KindInvolvedParty, "Witness").Empty())
	assert.True(t, ValidateRole(KindInvolvedPolicy, "AdversePolicy").Empty())

	v := ValidateRole(KindInvolvedCar, "Witness")
	assert.Equal(t, []string{"Role should be one of these options: INSURED_CAR,ADVERSE_CAR"}, v.Messages())
}

func TestValidateRequired_AttachInput(t *testing.T) {
	v := validateRequired(AttachInput{})
	assert.Equal(t, []string{"Claim Number is required", "UID is required"}, v.Messages())

	assert.True(t, validateRequired(AttachInput{ClaimNumber: "C-1", UID: "u"}).Empty())
}

func TestValidateCoverageAmounts_SettledEqualEvaluationAccepted(t *testing.T) {
	evaluation, settled, v := ValidateCoverageAmounts(AffectedCoverageInput{
		ClaimNumber:   "C-1",
		CoverageCode:  "COV",
		Evaluation:    json.Number("100.00"),
		SettledAmount: json.Number("100"),
	}, true)

	assert.True(t, v.Empty(), v.Messages())
	assert.True(t, evaluation.Equal(decimal.NewFromInt(100)))
	assert.True(t, settled.Equal(decimal.NewFromInt(100)))
}

func TestValidateCoverageAmounts_SettledAboveEvaluationRejected(t *testing.T) {
	_, _, v := ValidateCoverageAmounts(AffectedCoverageInput{
		ClaimNumber:   "C-1",
		CoverageCode:  "COV",
		Evaluation:    json.Number("100"),
		SettledAmount: json.Number("100.01"),
	}, true)

	assert.Equal(t, []string{"Settled amount cannot be greater than evaluation"}, v.Messages())
}

func TestValidateCoverageAmounts_SettledOptionalOnAdd(t *testing.T) {
	_, settled, v := ValidateCoverageAmounts(AffectedCoverageInput{
		ClaimNumber:  "C-1",
		CoverageCode: "COV",
		Evaluation:   json.Number("50"),
	}, false)

	assert.True(t, v.Empty())
	assert.True(t, settled.IsZero())

	_, _, v = ValidateCoverageAmounts(AffectedCoverageInput{
		ClaimNumber:  "C-1",
		CoverageCode: "COV",
		Evaluation:   json.Number("50"),
	}, true)
	assert.Equal(t, []string{"Invalid settled amount value type"}, v.Messages())
}

func TestValidateCoverageAmounts_TypeErrors(t *testing.T) {
	_, _, v := ValidateCoverageAmounts(AffectedCoverageInput{
		Evaluation:    "100",
		SettledAmount: "10",
	}, true)

	assert.Equal(t, []string{
		"Claim Number is required",
		"Coverage Code is required",
		"Invalid Evaluation value type",
		"Invalid settled amount value type",
	}, v.Messages())
}
