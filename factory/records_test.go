package factory_test

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/resourcing-engine/budget"
	"github.com/warp/resourcing-engine/factory"
	"github.com/warp/resourcing-engine/generic"
)

func TestLooseNumber_Coercion(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		present bool
		invalid bool
	}{
		{"number", `7.5`, "7.5", true, false},
		{"numeric string", `"7.5"`, "7.5", true, false},
		{"padded string", `" 12 "`, "12", true, false},
		{"null", `null`, "0", false, false},
		{"empty string", `""`, "0", false, false},
		{"garbage", `"abc"`, "0", true, true},
		{"NaN", `"NaN"`, "0", true, true},
		{"bool", `true`, "0", true, true},
		{"negative", `-3`, "0", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var n factory.LooseNumber
			require.NoError(t, json.Unmarshal([]byte(tt.input), &n))
			assert.Equal(t, tt.want, n.Hours().String())
			assert.Equal(t, tt.present, n.Present)
			assert.Equal(t, tt.invalid, n.Invalid)
		})
	}
}

func TestLooseNumber_HoursRounding(t *testing.T) {
	var n factory.LooseNumber
	require.NoError(t, json.Unmarshal([]byte(`"1.005"`), &n))
	assert.Equal(t, "1.01", n.Hours().String())
}

func TestLooseNumber_Nullable(t *testing.T) {
	var missing, zero, garbage factory.LooseNumber
	require.NoError(t, json.Unmarshal([]byte(`null`), &missing))
	require.NoError(t, json.Unmarshal([]byte(`0`), &zero))
	require.NoError(t, json.Unmarshal([]byte(`"n/a"`), &garbage))

	assert.False(t, missing.Nullable().Valid, "null means use the company default")
	assert.True(t, zero.Nullable().Valid, "zero is a real override")
	assert.True(t, zero.Nullable().Decimal.IsZero())
	assert.True(t, garbage.Nullable().Valid)
	assert.True(t, garbage.Nullable().Decimal.IsZero())
}

const payload = `{
  "company": {"id": "acme", "name": "Acme", "work_week_hours": "40", "display_mode": "percentage"},
  "members": [
    {"id": "m1", "name": "Ada", "weekly_capacity": null, "role_id": "dev"},
    {"id": "m2", "name": "Bo", "weekly_capacity": "32", "location_id": "lis"}
  ],
  "allocations": [
    {"resource_id": "m1", "project_id": "p1", "date": "2025-03-03", "hours": "8"},
    {"resource_id": "m2", "project_id": "p1", "date": "2025-03-04T09:00:00Z", "hours": "lots"},
    {"resource_id": "x1", "project_id": "p1", "date": "2025-03-04", "hours": 6, "resource_type": "pre_registered"}
  ],
  "leave": [
    {"member_id": "m1", "date": "2025-03-05", "hours": 4, "leave_type": "Annual"}
  ],
  "rate_cards": [
    {"reference_id": "dev", "reference_type": "role", "value": "100", "unit": "hour"},
    {"reference_id": "lis", "reference_type": "location", "value": 600, "unit": "day"}
  ],
  "projects": [{"id": "p1", "name": "Site", "contract_start_date": "2025-01-06"}],
  "stages": [{"id": "s1", "project_id": "p1", "name": "Build", "total_budgeted_hours": 200, "contracted_weeks": "4"}],
  "compositions": [
    {"id": "c1", "stage_id": "s1", "reference_id": "dev", "reference_type": "role", "planned_quantity": 2, "planned_hours_per_person": "120"},
    {"stage_id": "s1", "reference_id": "dev", "reference_type": "role", "planned_quantity": 1, "planned_hours_per_person": 10, "rate_snapshot": 80}
  ]
}`

func TestParseBatch(t *testing.T) {
	// GIVEN
	f := factory.NewRecordFactory()

	// WHEN
	b, report, err := f.ParseBatch("acme", []byte(payload))

	// THEN
	require.NoError(t, err)
	assert.Equal(t, generic.CompanyID("acme"), b.CompanyID)

	require.NotNil(t, b.Company)
	assert.Equal(t, generic.DisplayPercentage, b.Company.DisplayMode)
	assert.True(t, b.Company.WorkWeekHours.Equal(decimal.NewFromInt(40)))

	require.Len(t, b.Members, 2)
	assert.False(t, b.Members[0].WeeklyCapacity.Valid)
	assert.True(t, b.Members[1].WeeklyCapacity.Decimal.Equal(decimal.NewFromInt(32)))

	require.Len(t, b.Allocations, 3)
	assert.True(t, b.Allocations[1].Hours.IsZero(), "non-numeric hours become 0")
	assert.Equal(t, "2025-03-04", b.Allocations[1].Date.String())
	assert.Equal(t, generic.ResourceActive, b.Allocations[0].ResourceType)
	assert.Equal(t, generic.ResourcePreRegistered, b.Allocations[2].ResourceType)
	assert.Equal(t, []string{"allocations[1].hours=lots"}, report.Coerced)

	require.Len(t, b.Leave, 1)
	assert.Equal(t, generic.LeaveAnnual, b.Leave[0].LeaveType)
	assert.NotEmpty(t, b.Leave[0].ID, "missing IDs are generated")

	require.Len(t, b.RateCards, 2)
	assert.Equal(t, budget.UnitDay, b.RateCards[1].Unit)

	require.Len(t, b.Projects, 1)
	require.NotNil(t, b.Projects[0].ContractStartDate)
	require.Len(t, b.Stages, 1)
	require.NotNil(t, b.Stages[0].ContractedWeeks)
	assert.Equal(t, 4, *b.Stages[0].ContractedWeeks)

	require.Len(t, b.Compositions, 2)
	assert.True(t, b.Compositions[0].RateSnapshot().Equal(decimal.NewFromInt(100)), "captured from the batch rate card")
	assert.True(t, b.Compositions[1].RateSnapshot().Equal(decimal.NewFromInt(80)), "explicit snapshot wins")
	assert.NotEmpty(t, b.Compositions[1].ID)

	rollup := budget.RollupComposition(b.Compositions)
	assert.True(t, rollup.TotalPlannedHours.Equal(decimal.NewFromInt(250)))
	assert.True(t, rollup.TotalBudgetAmount.Equal(decimal.NewFromInt(24800)))
}

func TestParseBatch_StructuralErrors(t *testing.T) {
	f := factory.NewRecordFactory()
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"members": [`},
		{"missing member id", `{"members": [{"name": "Ada"}]}`},
		{"bad date", `{"allocations": [{"resource_id": "m1", "project_id": "p1", "date": "03/03/2025", "hours": 8}]}`},
		{"unknown resource type", `{"allocations": [{"resource_id": "m1", "project_id": "p1", "date": "2025-03-03", "resource_type": "robot"}]}`},
		{"unknown reference type", `{"rate_cards": [{"reference_id": "dev", "reference_type": "team", "value": 1}]}`},
		{"unknown unit", `{"rate_cards": [{"reference_id": "dev", "reference_type": "role", "value": 1, "unit": "month"}]}`},
		{"company mismatch", `{"company": {"id": "globex"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := f.ParseBatch("acme", []byte(tt.body))
			require.Error(t, err)
			assert.ErrorIs(t, err, generic.ErrInvalidInput)
			assert.True(t, generic.IsClientError(err))
		})
	}
}

func TestParseBatch_InvalidLeaveType(t *testing.T) {
	f := factory.NewRecordFactory()
	_, _, err := f.ParseBatch("acme", []byte(`{"leave": [{"member_id": "m1", "date": "2025-03-03", "hours": 8, "leave_type": "sabbatical"}]}`))
	assert.ErrorIs(t, err, generic.ErrInvalidLeaveType)
}

func TestParseBatch_RequiresCompany(t *testing.T) {
	_, _, err := factory.NewRecordFactory().ParseBatch("", []byte(`{}`))
	assert.ErrorIs(t, err, generic.ErrInvalidInput)
}

func TestParseBatch_NullContractFields(t *testing.T) {
	b, _, err := factory.NewRecordFactory().ParseBatch("acme", []byte(`{
		"projects": [{"id": "p1", "contract_start_date": null}],
		"stages": [{"id": "s1", "project_id": "p1", "total_budgeted_hours": null, "contracted_weeks": null}]
	}`))
	require.NoError(t, err)
	assert.Nil(t, b.Projects[0].ContractStartDate)
	assert.Nil(t, b.Stages[0].ContractedWeeks)
	assert.True(t, b.Stages[0].TotalBudgetedHours.IsZero())
}

func TestParseBatch_CompanyOmittedFields(t *testing.T) {
	f := factory.NewRecordFactory()

	b, report, err := f.ParseBatch("acme", []byte(`{"company": {"display_mode": "percentage"}}`))
	require.NoError(t, err)
	assert.Empty(t, report.Coerced)
	require.NotNil(t, b.Company)
	assert.True(t, b.KeepWorkWeekHours)
	assert.False(t, b.KeepDisplayMode)
	assert.True(t, b.Company.WorkWeekHours.Equal(decimal.NewFromInt(40)), "a new company gets the default week")

	b, _, err = f.ParseBatch("acme", []byte(`{"company": {"work_week_hours": 32}}`))
	require.NoError(t, err)
	assert.False(t, b.KeepWorkWeekHours)
	assert.True(t, b.KeepDisplayMode)
	assert.True(t, b.Company.WorkWeekHours.Equal(decimal.NewFromInt(32)))
}
