package commission

import (
	"encoding/json"
	"slices"
	"time"

	"github.com/FirplakDesarrollador/CRM-sub001/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// CommissionRule maps a sale context to a commission percentage. Empty
// matchers are wildcards. Rules are deactivated, never deleted, because
// ledger entries keep a frozen snapshot of the rule they used.
type CommissionRule struct {
	ID                uuid.UUID
	Name              string
	SellerID          *uuid.UUID
	AccountIDs        []uuid.UUID
	CategoryID        *uuid.UUID
	ChannelID         *uuid.UUID
	CommissionPercent decimal.Decimal
	ActiveFrom        time.Time
	ActiveTo          *time.Time // inclusive, nil = open ended
	IsActive          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Validate checks the rule's own invariants. The engine only reads rules, so
// this guards against bad rows written by the admin workflow.
func (r *CommissionRule) Validate() error {
	if r.ID == uuid.Nil {
		return shared.NewDomainError("INVALID_RULE", "Rule ID cannot be empty")
	}
	if r.CommissionPercent.IsNegative() || r.CommissionPercent.GreaterThan(hundred) {
		return shared.NewDomainError("INVALID_RULE", "Commission percent must be between 0 and 100").
			WithDetail("percent", r.CommissionPercent.String())
	}
	if r.ActiveTo != nil && dateOf(*r.ActiveTo).Before(dateOf(r.ActiveFrom)) {
		return shared.NewDomainError("INVALID_RULE", "Active-to date precedes active-from date")
	}
	return nil
}

// IsWildcard reports whether the rule constrains no dimension at all.
func (r *CommissionRule) IsWildcard() bool {
	return r.SellerID == nil && len(r.AccountIDs) == 0 && r.CategoryID == nil && r.ChannelID == nil
}

// ActiveOn reports whether the rule is enabled and its date window contains
// the calendar day of t (UTC). Both ends are inclusive.
func (r *CommissionRule) ActiveOn(t time.Time) bool {
	if !r.IsActive {
		return false
	}
	day := dateOf(t)
	if day.Before(dateOf(r.ActiveFrom)) {
		return false
	}
	if r.ActiveTo != nil && day.After(dateOf(*r.ActiveTo)) {
		return false
	}
	return true
}

func (r *CommissionRule) hasAccount(id uuid.UUID) bool {
	return slices.Contains(r.AccountIDs, id)
}

// RuleSnapshot is the frozen copy of a rule stored on every ledger entry.
type RuleSnapshot struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	SellerID          *string  `json:"seller_id,omitempty"`
	AccountIDs        []string `json:"account_ids,omitempty"`
	CategoryID        *string  `json:"category_id,omitempty"`
	ChannelID         *string  `json:"channel_id,omitempty"`
	CommissionPercent string   `json:"commission_percent"`
	ActiveFrom        string   `json:"active_from"`
	ActiveTo          *string  `json:"active_to,omitempty"`
	Score             int      `json:"score"`
	MatchedOn         []string `json:"matched_on,omitempty"`
}

// Snapshot freezes the rule together with how it was selected.
func (r *CommissionRule) Snapshot(score int, matched []Dimension) RuleSnapshot {
	s := RuleSnapshot{
		ID:                r.ID.String(),
		Name:              r.Name,
		SellerID:          uuidString(r.SellerID),
		CategoryID:        uuidString(r.CategoryID),
		ChannelID:         uuidString(r.ChannelID),
		CommissionPercent: r.CommissionPercent.String(),
		ActiveFrom:        r.ActiveFrom.UTC().Format(dateLayout),
		Score:             score,
	}
	if r.ActiveTo != nil {
		to := r.ActiveTo.UTC().Format(dateLayout)
		s.ActiveTo = &to
	}
	for _, id := range r.AccountIDs {
		s.AccountIDs = append(s.AccountIDs, id.String())
	}
	slices.Sort(s.AccountIDs)
	for _, d := range matched {
		s.MatchedOn = append(s.MatchedOn, string(d))
	}
	return s
}

// Encode returns the canonical JSON form stored on ledger rows.
func (s RuleSnapshot) Encode() (json.RawMessage, error) {
	return json.Marshal(s)
}

// DecodeRuleSnapshot parses a stored snapshot.
func DecodeRuleSnapshot(raw json.RawMessage) (RuleSnapshot, error) {
	var s RuleSnapshot
	err := json.Unmarshal(raw, &s)
	return s, err
}

func uuidString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func dateOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
