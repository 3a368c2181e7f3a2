package condition

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-approvals/internal/common/models"
)

func TestEvaluateOperators(t *testing.T) {
	ctx := map[string]interface{}{
		"department": "finance",
		"amount":     1500.0,
		"country":    "FI",
		"created":    time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}

	tests := []struct {
		name string
		cond models.Condition
		want bool
	}{
		{"equals match", models.Condition{Field: "department", Operator: models.OperatorEquals, Value: "finance"}, true},
		{"equals mismatch", models.Condition{Field: "department", Operator: models.OperatorEquals, Value: "sales"}, false},
		{"equals across numeric types", models.Condition{Field: "amount", Operator: models.OperatorEquals, Value: 1500}, true},
		{"not equals", models.Condition{Field: "department", Operator: models.OperatorNotEquals, Value: "sales"}, true},
		{"greater than", models.Condition{Field: "amount", Operator: models.OperatorGreaterThan, Value: 1000}, true},
		{"greater than false", models.Condition{Field: "amount", Operator: models.OperatorGreaterThan, Value: 1500}, false},
		{"greater or equal boundary", models.Condition{Field: "amount", Operator: models.OperatorGreaterOrEqual, Value: 1500}, true},
		{"less than", models.Condition{Field: "amount", Operator: models.OperatorLessThan, Value: 2000}, true},
		{"less or equal boundary", models.Condition{Field: "amount", Operator: models.OperatorLessOrEqual, Value: 1500}, true},
		{"contains", models.Condition{Field: "department", Operator: models.OperatorContains, Value: "fin"}, true},
		{"contains miss", models.Condition{Field: "department", Operator: models.OperatorContains, Value: "hr"}, false},
		{"in", models.Condition{Field: "country", Operator: models.OperatorIn, Value: []interface{}{"SE", "FI", "NO"}}, true},
		{"in miss", models.Condition{Field: "country", Operator: models.OperatorIn, Value: []string{"DE", "FR"}}, false},
		{"between inclusive", models.Condition{Field: "amount", Operator: models.OperatorBetween, Value: 1500, ValueTo: 3000}, true},
		{"between above", models.Condition{Field: "amount", Operator: models.OperatorBetween, Value: 100, ValueTo: 1000}, false},
		{"time greater than", models.Condition{Field: "created", Operator: models.OperatorGreaterThan, Value: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate([]models.Condition{tt.cond}, ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateEmptyListMatches(t *testing.T) {
	got, err := Evaluate(nil, map[string]interface{}{})
	require.NoError(t, err)
	assert.True(t, got)
}

func TestEvaluateMissingFieldFailsHard(t *testing.T) {
	// A missing field is a miss even for not_equals.
	got, err := Evaluate([]models.Condition{
		{Field: "absent", Operator: models.OperatorNotEquals, Value: "x"},
	}, map[string]interface{}{"other": 1})
	require.NoError(t, err)
	assert.False(t, got)
}

func TestEvaluateAndSemantics(t *testing.T) {
	ctx := map[string]interface{}{"a": 1, "b": 2}
	got, err := Evaluate([]models.Condition{
		{Field: "a", Operator: models.OperatorEquals, Value: 1},
		{Field: "b", Operator: models.OperatorEquals, Value: 99},
	}, ctx)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestEvaluateIncomparableTypesError(t *testing.T) {
	_, err := Evaluate([]models.Condition{
		{Field: "a", Operator: models.OperatorGreaterThan, Value: []int{1}},
	}, map[string]interface{}{"a": 5})
	assert.Error(t, err)
}

func TestEvaluateUnknownOperatorError(t *testing.T) {
	_, err := Evaluate([]models.Condition{
		{Field: "a", Operator: "regex", Value: "x"},
	}, map[string]interface{}{"a": "y"})
	assert.Error(t, err)
}
