package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"go-approvals/internal/common/models"
)

func approverList(required ...bool) []models.Approver {
	out := make([]models.Approver, len(required))
	for i, r := range required {
		out[i] = models.Approver{Type: models.ApproverTypeUser, ApproverID: string(rune('a' + i)), Required: r}
	}
	return out
}

func TestRequiredApprovals(t *testing.T) {
	tests := []struct {
		name      string
		stepType  models.StepType
		approvers []models.Approver
		want      int
	}{
		{"single ignores approver count", models.StepTypeSingle, approverList(true, true, true), 1},
		{"any needs one", models.StepTypeAny, approverList(true, true), 1},
		{"all counts required flags", models.StepTypeAll, approverList(true, false, true), 2},
		{"all floors at one", models.StepTypeAll, approverList(false, false), 1},
		{"all with empty list", models.StepTypeAll, nil, 0},
		{"majority of three", models.StepTypeMajority, approverList(true, true, true), 2},
		{"majority of four", models.StepTypeMajority, approverList(true, true, true, true), 3},
		{"majority of one", models.StepTypeMajority, approverList(true), 1},
		{"sequence counts like all", models.StepTypeSequence, approverList(true, true, false), 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RequiredApprovals(tt.stepType, tt.approvers))
		})
	}
}

func TestIsStepCompleteMonotoneThreshold(t *testing.T) {
	for _, stepType := range []models.StepType{
		models.StepTypeSingle, models.StepTypeAny, models.StepTypeAll,
		models.StepTypeMajority, models.StepTypeSequence,
	} {
		required := 3
		for received := 0; received < required; received++ {
			assert.False(t, IsStepComplete(stepType, required, received), "%s below threshold", stepType)
		}
		for received := required; received <= required+2; received++ {
			assert.True(t, IsStepComplete(stepType, required, received), "%s at/over threshold", stepType)
		}
	}
}
