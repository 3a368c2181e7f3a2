package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-approvals/internal/common/models"
)

func delegation(delegator, delegate string, startOffset, endOffset int, types ...string) models.Delegation {
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	return models.Delegation{
		DelegatorID:   delegator,
		DelegateID:    delegate,
		StartDate:     now.AddDate(0, 0, startOffset),
		EndDate:       now.AddDate(0, 0, endOffset),
		ApprovalTypes: types,
		Active:        true,
		CreatedAt:     now,
	}
}

func TestResolveDelegatorBasics(t *testing.T) {
	onDate := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	active := delegation("u1", "u2", -1, 1)

	got := ResolveDelegator([]models.Delegation{active}, "u2", "invoice", nil, onDate)
	require.NotNil(t, got)
	assert.Equal(t, "u1", got.DelegatorID)

	// Wrong delegate.
	assert.Nil(t, ResolveDelegator([]models.Delegation{active}, "u3", "invoice", nil, onDate))
}

func TestResolveDelegatorDateRange(t *testing.T) {
	onDate := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)

	// Inclusive on both ends: a delegation starting and ending today matches.
	sameDay := delegation("u1", "u2", 0, 0)
	assert.NotNil(t, ResolveDelegator([]models.Delegation{sameDay}, "u2", "invoice", nil, onDate))

	expired := delegation("u1", "u2", -10, -1)
	assert.Nil(t, ResolveDelegator([]models.Delegation{expired}, "u2", "invoice", nil, onDate))

	future := delegation("u1", "u2", 1, 10)
	assert.Nil(t, ResolveDelegator([]models.Delegation{future}, "u2", "invoice", nil, onDate))
}

func TestResolveDelegatorScope(t *testing.T) {
	onDate := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)

	scoped := delegation("u1", "u2", -1, 1, "invoice")
	assert.NotNil(t, ResolveDelegator([]models.Delegation{scoped}, "u2", "invoice", nil, onDate))
	// Scoped to invoice must not resolve for an expense report.
	assert.Nil(t, ResolveDelegator([]models.Delegation{scoped}, "u2", "expense_report", nil, onDate))

	// Empty scope matches any type.
	unscoped := delegation("u1", "u2", -1, 1)
	assert.NotNil(t, ResolveDelegator([]models.Delegation{unscoped}, "u2", "expense_report", nil, onDate))
}

func TestResolveDelegatorAmountCap(t *testing.T) {
	onDate := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	cap := 1000.0
	capped := delegation("u1", "u2", -1, 1)
	capped.MaxAmount = &cap

	small := 500.0
	big := 5000.0
	assert.NotNil(t, ResolveDelegator([]models.Delegation{capped}, "u2", "invoice", &small, onDate))
	assert.Nil(t, ResolveDelegator([]models.Delegation{capped}, "u2", "invoice", &big, onDate))
	// Unknown amount: cap not enforceable, delegation applies.
	assert.NotNil(t, ResolveDelegator([]models.Delegation{capped}, "u2", "invoice", nil, onDate))
}

func TestResolveDelegatorInactiveOrRevoked(t *testing.T) {
	onDate := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)

	inactive := delegation("u1", "u2", -1, 1)
	inactive.Active = false
	assert.Nil(t, ResolveDelegator([]models.Delegation{inactive}, "u2", "invoice", nil, onDate))

	revoked := delegation("u1", "u2", -1, 1)
	revokedAt := onDate.Add(-time.Hour)
	revoked.RevokedAt = &revokedAt
	assert.Nil(t, ResolveDelegator([]models.Delegation{revoked}, "u2", "invoice", nil, onDate))
}

func TestResolveDelegatorTieBreak(t *testing.T) {
	onDate := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)

	unscoped := delegation("u1", "u2", -1, 1)
	scoped := delegation("u3", "u2", -1, 1, "invoice")
	scoped.CreatedAt = unscoped.CreatedAt.Add(-time.Hour) // older, still wins on specificity

	got := ResolveDelegator([]models.Delegation{unscoped, scoped}, "u2", "invoice", nil, onDate)
	require.NotNil(t, got)
	assert.Equal(t, "u3", got.DelegatorID)

	// Same specificity: most recent created_at wins, regardless of slice order.
	older := delegation("u4", "u2", -1, 1)
	older.CreatedAt = onDate.Add(-48 * time.Hour)
	newer := delegation("u5", "u2", -1, 1)
	newer.CreatedAt = onDate.Add(-1 * time.Hour)

	got = ResolveDelegator([]models.Delegation{older, newer}, "u2", "invoice", nil, onDate)
	require.NotNil(t, got)
	assert.Equal(t, "u5", got.DelegatorID)

	got = ResolveDelegator([]models.Delegation{newer, older}, "u2", "invoice", nil, onDate)
	require.NotNil(t, got)
	assert.Equal(t, "u5", got.DelegatorID)
}
