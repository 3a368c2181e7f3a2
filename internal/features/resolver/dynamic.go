package resolver

import (
	"fmt"

	"github.com/d5/tengo/v2"

	"go-approvals/internal/common/models"
)

// RunApproverScript executes a dynamic approver's tengo script. The script
// sees the request's context map plus requester_id, amount, entity_type and
// entity_id, and must assign the resulting user id (or array of ids) to a
// variable named "approvers".
//
//	approvers = context.cost_center == "R&D" ? "lead-rnd" : "lead-ops"
func RunApproverScript(source string, req *models.ApprovalRequest) ([]string, error) {
	if source == "" {
		return nil, fmt.Errorf("script content is required")
	}

	script := tengo.NewScript([]byte(source))

	reqCtx := req.Context
	if reqCtx == nil {
		reqCtx = map[string]interface{}{}
	}
	_ = script.Add("context", reqCtx)
	_ = script.Add("requester_id", req.RequesterID)
	_ = script.Add("entity_type", req.EntityType)
	_ = script.Add("entity_id", req.EntityID)
	var amount float64
	if req.Amount != nil {
		amount = *req.Amount
	}
	_ = script.Add("amount", amount)
	_ = script.Add("approvers", nil)

	done, err := script.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to run script: %w", err)
	}

	out := done.Get("approvers")
	switch v := out.Value().(type) {
	case string:
		if v == "" {
			return nil, nil
		}
		return []string{v}, nil
	case []interface{}:
		ids := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				ids = append(ids, s)
			}
		}
		return ids, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("script returned unsupported approvers type %T", v)
	}
}
