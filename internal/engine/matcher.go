package engine

import (
	"slices"

	"go-approvals/internal/common/models"
	"go-approvals/pkg/condition"
)

// FindMatching selects the best-fit workflow for an approval type, amount
// and context, or nil when none applies.
//
// Only active workflows of the exact approval type are considered. Min/max
// amount bounds filter only when an amount is present; a request without an
// amount skips the amount filter entirely. Workflow conditions are evaluated
// against the context when both exist. Among the survivors the highest
// priority wins; ties break on the earliest created workflow.
func FindMatching(workflows []models.Workflow, approvalType string, amount *float64, ctx map[string]interface{}) (*models.Workflow, error) {
	var candidates []models.Workflow
	for _, wf := range workflows {
		if wf.Status != models.WorkflowStatusActive || wf.ApprovalType != approvalType {
			continue
		}
		if amount != nil {
			if wf.MinAmount != nil && *amount < *wf.MinAmount {
				continue
			}
			if wf.MaxAmount != nil && *amount > *wf.MaxAmount {
				continue
			}
		}
		if len(wf.Conditions) > 0 && ctx != nil {
			ok, err := condition.Evaluate(wf.Conditions, ctx)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		candidates = append(candidates, wf)
	}

	if len(candidates) == 0 {
		return nil, nil
	}

	slices.SortFunc(candidates, func(a, b models.Workflow) int {
		if a.Priority != b.Priority {
			return b.Priority - a.Priority
		}
		if a.CreatedAt.Before(b.CreatedAt) {
			return -1
		}
		return 1
	})

	return &candidates[0], nil
}
