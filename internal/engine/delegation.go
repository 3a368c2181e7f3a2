package engine

import (
	"slices"
	"time"

	"go-approvals/internal/common/models"
)

// ResolveDelegator finds the delegation under which delegateID may act for
// the given approval type on the given date, or nil if none applies.
//
// A delegation is in effect iff it is active, not revoked, and onDate's
// calendar day falls within [start_date, end_date] inclusive. A delegation
// scoped to approval types only matches those types; an empty scope matches
// any. A max_amount cap excludes requests above it when the amount is known.
//
// When several delegations qualify the pick is deterministic: type-scoped
// delegations beat unscoped ones, then the most recently created wins.
func ResolveDelegator(delegations []models.Delegation, delegateID, approvalType string, amount *float64, onDate time.Time) *models.Delegation {
	var best *models.Delegation
	for i := range delegations {
		d := &delegations[i]
		if d.DelegateID != delegateID || !inEffect(d, onDate) {
			continue
		}
		if len(d.ApprovalTypes) > 0 && !slices.Contains(d.ApprovalTypes, approvalType) {
			continue
		}
		if d.MaxAmount != nil && amount != nil && *amount > *d.MaxAmount {
			continue
		}
		if best == nil || ranks(d, best) {
			best = d
		}
	}
	return best
}

func inEffect(d *models.Delegation, onDate time.Time) bool {
	if !d.Active || d.RevokedAt != nil {
		return false
	}
	day := truncateToDay(onDate)
	return !day.Before(truncateToDay(d.StartDate)) && !day.After(truncateToDay(d.EndDate))
}

// ranks reports whether a beats b: explicit scope first, recency second.
func ranks(a, b *models.Delegation) bool {
	aScoped := len(a.ApprovalTypes) > 0
	bScoped := len(b.ApprovalTypes) > 0
	if aScoped != bScoped {
		return aScoped
	}
	return a.CreatedAt.After(b.CreatedAt)
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
