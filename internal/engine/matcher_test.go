package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-approvals/internal/common/models"
)

func matcherWorkflow(code string, priority int, min, max *float64) models.Workflow {
	return models.Workflow{
		Code:         code,
		ApprovalType: "purchase_order",
		Status:       models.WorkflowStatusActive,
		Priority:     priority,
		MinAmount:    min,
		MaxAmount:    max,
		CreatedAt:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func f(v float64) *float64 { return &v }

func TestFindMatchingFiltersStatusAndType(t *testing.T) {
	inactive := matcherWorkflow("PO-OLD", 10, nil, nil)
	inactive.Status = models.WorkflowStatusInactive
	otherType := matcherWorkflow("EXP", 10, nil, nil)
	otherType.ApprovalType = "expense_report"
	match := matcherWorkflow("PO", 1, nil, nil)

	got, err := FindMatching([]models.Workflow{inactive, otherType, match}, "purchase_order", nil, nil)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "PO", got.Code)
}

func TestFindMatchingAmountBounds(t *testing.T) {
	low := matcherWorkflow("PO-LOW", 0, nil, f(1000))
	high := matcherWorkflow("PO-HIGH", 0, f(1000.01), nil)

	workflows := []models.Workflow{low, high}

	got, err := FindMatching(workflows, "purchase_order", f(500), nil)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "PO-LOW", got.Code)

	got, err = FindMatching(workflows, "purchase_order", f(5000), nil)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "PO-HIGH", got.Code)

	// Without an amount the bounds don't filter; priority decides.
	got, err = FindMatching(workflows, "purchase_order", nil, nil)
	require.NoError(t, err)
	require.NotNil(t, got)
}

func TestFindMatchingConditions(t *testing.T) {
	conditioned := matcherWorkflow("PO-FI", 5, nil, nil)
	conditioned.Conditions = []models.Condition{
		{Field: "country", Operator: models.OperatorEquals, Value: "FI"},
	}
	fallback := matcherWorkflow("PO-ANY", 0, nil, nil)

	workflows := []models.Workflow{conditioned, fallback}

	got, err := FindMatching(workflows, "purchase_order", nil, map[string]interface{}{"country": "FI"})
	require.NoError(t, err)
	assert.Equal(t, "PO-FI", got.Code)

	got, err = FindMatching(workflows, "purchase_order", nil, map[string]interface{}{"country": "SE"})
	require.NoError(t, err)
	assert.Equal(t, "PO-ANY", got.Code)
}

func TestFindMatchingPriorityAndTieBreak(t *testing.T) {
	lowPri := matcherWorkflow("PO-A", 1, nil, nil)
	highPri := matcherWorkflow("PO-B", 9, nil, nil)

	got, err := FindMatching([]models.Workflow{lowPri, highPri}, "purchase_order", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "PO-B", got.Code)

	// Equal priority: earliest created wins.
	older := matcherWorkflow("PO-OLD", 5, nil, nil)
	newer := matcherWorkflow("PO-NEW", 5, nil, nil)
	newer.CreatedAt = older.CreatedAt.Add(time.Hour)

	got, err = FindMatching([]models.Workflow{newer, older}, "purchase_order", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "PO-OLD", got.Code)
}

func TestFindMatchingNone(t *testing.T) {
	got, err := FindMatching(nil, "purchase_order", nil, nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}
