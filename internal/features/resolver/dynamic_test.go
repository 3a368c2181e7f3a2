package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-approvals/internal/common/models"
)

func testRequest(amount float64, ctx map[string]interface{}) *models.ApprovalRequest {
	return &models.ApprovalRequest{
		RequesterID: "req1",
		EntityType:  "purchase_order",
		EntityID:    "po-77",
		Amount:      &amount,
		Context:     ctx,
	}
}

func TestRunApproverScriptSingleID(t *testing.T) {
	ids, err := RunApproverScript(`approvers = "u42"`, testRequest(100, nil))
	require.NoError(t, err)
	assert.Equal(t, []string{"u42"}, ids)
}

func TestRunApproverScriptUsesContext(t *testing.T) {
	script := `
if context.cost_center == "R&D" {
  approvers = "lead-rnd"
} else {
  approvers = "lead-ops"
}
`
	ids, err := RunApproverScript(script, testRequest(100, map[string]interface{}{"cost_center": "R&D"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"lead-rnd"}, ids)

	ids, err = RunApproverScript(script, testRequest(100, map[string]interface{}{"cost_center": "Sales"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"lead-ops"}, ids)
}

func TestRunApproverScriptAmountThreshold(t *testing.T) {
	script := `
if amount > 10000.0 {
  approvers = ["cfo", "ceo"]
} else {
  approvers = ["cfo"]
}
`
	ids, err := RunApproverScript(script, testRequest(50000, nil))
	require.NoError(t, err)
	assert.Equal(t, []string{"cfo", "ceo"}, ids)

	ids, err = RunApproverScript(script, testRequest(500, nil))
	require.NoError(t, err)
	assert.Equal(t, []string{"cfo"}, ids)
}

func TestRunApproverScriptEmptyResult(t *testing.T) {
	ids, err := RunApproverScript(`x := 1`, testRequest(100, nil))
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRunApproverScriptErrors(t *testing.T) {
	_, err := RunApproverScript("", testRequest(100, nil))
	assert.Error(t, err)

	_, err = RunApproverScript(`approvers = `, testRequest(100, nil))
	assert.Error(t, err)
}
