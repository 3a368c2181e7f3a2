package engine

import "go-approvals/internal/common/models"

// RequiredApprovals computes how many approvals close a step of the given
// type. The result is captured once at request creation and never changes
// for an in-flight request.
//
// single/any need one approval regardless of approver count. all/sequence
// need every approver flagged required (floored at one while the approver
// list is non-empty, so a step without required flags still needs someone).
// majority needs floor(n/2)+1.
func RequiredApprovals(stepType models.StepType, approvers []models.Approver) int {
	switch stepType {
	case models.StepTypeSingle, models.StepTypeAny:
		return 1
	case models.StepTypeMajority:
		return len(approvers)/2 + 1
	case models.StepTypeAll, models.StepTypeSequence:
		required := 0
		for _, a := range approvers {
			if a.Required {
				required++
			}
		}
		if required == 0 && len(approvers) > 0 {
			required = 1
		}
		return required
	}
	return 1
}

// IsStepComplete reports whether the received approvals satisfy the step's
// threshold. Monotone: once true it stays true for any larger tally.
// Rejections never count here; a single rejection terminates the step
// through the lifecycle instead.
func IsStepComplete(stepType models.StepType, required, received int) bool {
	_ = stepType // every type closes on the same threshold; required encodes the policy
	return received >= required
}
