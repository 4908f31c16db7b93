package commission

import (
	"encoding/json"
	"time"

	"github.com/FirplakDesarrollador/CRM-sub001/internal/domain/commission"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RecordAccrualRequest asks for the DEVENGADA entries of one sale event.
// AccountID, BaseAmount and Currency default to the opportunity's values.
type RecordAccrualRequest struct {
	OpportunityID  uuid.UUID       `json:"opportunity_id" binding:"required"`
	SellerID       uuid.UUID       `json:"seller_id" binding:"required"`
	AccountID      *uuid.UUID      `json:"account_id"`
	ChannelID      *uuid.UUID      `json:"channel_id"`
	BaseAmount     decimal.Decimal `json:"base_amount"`
	Currency       string          `json:"currency" binding:"omitempty,len=3"`
	IdempotencyKey string          `json:"idempotency_key" binding:"omitempty,max=100"`
	OccurredAt     *time.Time      `json:"occurred_at"`
}

// RecordAdjustmentRequest is a signed manual correction of an accrual.
type RecordAdjustmentRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
	Reason string          `json:"reason" binding:"required,max=500"`
}

// RecordReversalRequest fully offsets an accrual.
type RecordReversalRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// RegisterPaymentRequest reports that an opportunity has been collected.
type RegisterPaymentRequest struct {
	OpportunityID      uuid.UUID       `json:"opportunity_id" binding:"required"`
	AmountCollected    decimal.Decimal `json:"amount_collected" binding:"required"`
	ExternalPaymentRef string          `json:"external_payment_ref" binding:"required,max=100"`
	PaymentDate        *time.Time      `json:"payment_date"`
}

// EntryListFilter pages through an opportunity's ledger, oldest first unless
// sort_by/sort_dir say otherwise.
type EntryListFilter struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=500"`
	SortBy   string `form:"sort_by" binding:"omitempty,oneof=created_at effective_at event_type seller_id commission_amount"`
	SortDir  string `form:"sort_dir" binding:"omitempty,oneof=asc desc ASC DESC"`
}

// LedgerEntryResponse is a ledger entry in API responses.
type LedgerEntryResponse struct {
	ID                 uuid.UUID       `json:"id"`
	EventType          string          `json:"event_type"`
	OpportunityID      uuid.UUID       `json:"opportunity_id"`
	SellerID           uuid.UUID       `json:"seller_id"`
	AccountID          uuid.UUID       `json:"account_id"`
	ChannelID          *uuid.UUID      `json:"channel_id,omitempty"`
	BaseAmount         decimal.Decimal `json:"base_amount"`
	Currency           string          `json:"currency"`
	CommissionPercent  decimal.Decimal `json:"commission_percent"`
	SharePercent       decimal.Decimal `json:"share_percent"`
	CommissionAmount   decimal.Decimal `json:"commission_amount"`
	RuleSnapshot       json.RawMessage `json:"rule_snapshot"`
	CategorySnapshot   json.RawMessage `json:"category_snapshot,omitempty"`
	ResolutionScore    int             `json:"resolution_score"`
	ReferenceEntryID   *uuid.UUID      `json:"reference_entry_id,omitempty"`
	Reason             string          `json:"reason,omitempty"`
	ExternalPaymentRef string          `json:"external_payment_ref,omitempty"`
	IdempotencyKey     string          `json:"idempotency_key,omitempty"`
	CollectedAmount    decimal.Decimal `json:"collected_amount"`
	EffectiveAt        time.Time       `json:"effective_at"`
	CreatedAt          time.Time       `json:"created_at"`
	CreatedBy          string          `json:"created_by"`
}

// RuleExplanation says which rule was applied and why.
type RuleExplanation struct {
	RuleID   uuid.UUID       `json:"rule_id"`
	Name     string          `json:"name"`
	Percent  decimal.Decimal `json:"commission_percent"`
	Score    int             `json:"score"`
	Matched  []string        `json:"matched_on"`
	Fallback bool            `json:"fallback"`
}

// ShareResponse is one beneficiary's part of a commission.
type ShareResponse struct {
	UserID  uuid.UUID       `json:"user_id"`
	Percent decimal.Decimal `json:"percent"`
	Amount  decimal.Decimal `json:"amount"`
	IsOwner bool            `json:"is_owner"`
	Role    string          `json:"role,omitempty"`
}

// AccrualResult is returned by RecordAccrual. Replayed is set when the
// idempotency key had already been recorded and nothing new was written.
type AccrualResult struct {
	Replayed        bool                  `json:"replayed"`
	Rule            RuleExplanation       `json:"rule"`
	GrossCommission decimal.Decimal       `json:"gross_commission"`
	Entries         []LedgerEntryResponse `json:"entries"`
}

// EstimateResult is the commission an opportunity would accrue now.
type EstimateResult struct {
	OpportunityID   uuid.UUID       `json:"opportunity_id"`
	BaseAmount      decimal.Decimal `json:"base_amount"`
	Currency        string          `json:"currency"`
	Rule            RuleExplanation `json:"rule"`
	GrossCommission decimal.Decimal `json:"gross_commission"`
	Shares          []ShareResponse `json:"shares"`
}

// BonusAwardResponse is a granted bonus.
type BonusAwardResponse struct {
	ID          uuid.UUID       `json:"id"`
	BonusRuleID uuid.UUID       `json:"bonus_rule_id"`
	SellerID    uuid.UUID       `json:"seller_id"`
	PeriodStart time.Time       `json:"period_start"`
	PeriodEnd   time.Time       `json:"period_end"`
	Collected   decimal.Decimal `json:"collected"`
	BonusAmount decimal.Decimal `json:"bonus_amount"`
	Currency    string          `json:"currency,omitempty"`
}

// PaymentResult is returned by RegisterPayment. Both lists are empty when the
// payment had already been registered.
type PaymentResult struct {
	MirroredEntries []LedgerEntryResponse `json:"mirrored_entries"`
	BonusesAwarded  []BonusAwardResponse  `json:"bonuses_awarded"`
}

// BonusProgressResponse is a seller's standing against one bonus rule.
type BonusProgressResponse struct {
	BonusRuleID     uuid.UUID       `json:"bonus_rule_id"`
	Name            string          `json:"name"`
	Period          string          `json:"period"`
	Global          bool            `json:"global"`
	WindowStart     time.Time       `json:"window_start"`
	WindowEnd       time.Time       `json:"window_end"`
	Target          decimal.Decimal `json:"target"`
	Collected       decimal.Decimal `json:"collected"`
	BonusAmount     decimal.Decimal `json:"bonus_amount"`
	Currency        string          `json:"currency,omitempty"`
	PercentComplete decimal.Decimal `json:"percent_complete"`
	Awarded         bool            `json:"awarded"`
}

// CurrencyBalance is the derived balance of one currency.
type CurrencyBalance struct {
	Currency string          `json:"currency"`
	Accrued  decimal.Decimal `json:"accrued"`
	Adjusted decimal.Decimal `json:"adjusted"`
	Reversed decimal.Decimal `json:"reversed"`
	Paid     decimal.Decimal `json:"paid"`
	Net      decimal.Decimal `json:"net"`
	Entries  int             `json:"entries"`
}

// SellerBalanceResponse sums a seller's ledger, per currency.
type SellerBalanceResponse struct {
	SellerID      uuid.UUID         `json:"seller_id"`
	OpportunityID *uuid.UUID        `json:"opportunity_id,omitempty"`
	Balances      []CurrencyBalance `json:"balances"`
}

// ToLedgerEntryResponse converts a domain entry.
func ToLedgerEntryResponse(e *commission.LedgerEntry) LedgerEntryResponse {
	return LedgerEntryResponse{
		ID:                 e.ID,
		EventType:          e.EventType.String(),
		OpportunityID:      e.OpportunityID,
		SellerID:           e.SellerID,
		AccountID:          e.AccountID,
		ChannelID:          e.ChannelID,
		BaseAmount:         e.BaseAmount,
		Currency:           e.Currency,
		CommissionPercent:  e.CommissionPercent,
		SharePercent:       e.SharePercent,
		CommissionAmount:   e.CommissionAmount,
		RuleSnapshot:       e.RuleSnapshot,
		CategorySnapshot:   e.CategorySnapshot,
		ResolutionScore:    e.ResolutionScore,
		ReferenceEntryID:   e.ReferenceEntryID,
		Reason:             e.Reason,
		ExternalPaymentRef: e.ExternalPaymentRef,
		IdempotencyKey:     e.IdempotencyKey,
		CollectedAmount:    e.CollectedAmount,
		EffectiveAt:        e.EffectiveAt,
		CreatedAt:          e.CreatedAt,
		CreatedBy:          e.CreatedBy,
	}
}

func toLedgerEntryResponses(entries []commission.LedgerEntry) []LedgerEntryResponse {
	out := make([]LedgerEntryResponse, len(entries))
	for i := range entries {
		out[i] = ToLedgerEntryResponse(&entries[i])
	}
	return out
}

func toBonusAwardResponse(a *commission.BonusAward) BonusAwardResponse {
	return BonusAwardResponse{
		ID:          a.ID,
		BonusRuleID: a.BonusRuleID,
		SellerID:    a.SellerID,
		PeriodStart: a.PeriodStart,
		PeriodEnd:   a.PeriodEnd,
		Collected:   a.Collected,
		BonusAmount: a.BonusAmount,
		Currency:    a.Currency,
	}
}

func toBonusProgressResponse(p commission.BonusProgress) BonusProgressResponse {
	return BonusProgressResponse{
		BonusRuleID:     p.Rule.ID,
		Name:            p.Rule.Name,
		Period:          p.Rule.Period.String(),
		Global:          p.Rule.IsGlobal(),
		WindowStart:     p.WindowStart,
		WindowEnd:       p.WindowEnd,
		Target:          p.Target,
		Collected:       p.Collected,
		BonusAmount:     p.BonusAmount,
		Currency:        p.Rule.Currency,
		PercentComplete: p.PercentComplete,
		Awarded:         p.Awarded,
	}
}

func toShareResponses(shares []commission.Share) []ShareResponse {
	out := make([]ShareResponse, len(shares))
	for i, s := range shares {
		out[i] = ShareResponse{
			UserID:  s.UserID,
			Percent: s.Percent,
			Amount:  s.Amount,
			IsOwner: s.IsOwner,
			Role:    s.Role,
		}
	}
	return out
}

func explainResolution(r commission.Resolution) RuleExplanation {
	matched := make([]string, len(r.Matched))
	for i, d := range r.Matched {
		matched[i] = string(d)
	}
	return RuleExplanation{
		RuleID:   r.Rule.ID,
		Name:     r.Rule.Name,
		Percent:  r.Rule.CommissionPercent,
		Score:    r.Score,
		Matched:  matched,
		Fallback: r.Fallback,
	}
}

// explainSnapshot rebuilds the explanation of a replayed accrual from the
// rule frozen on its entries.
func explainSnapshot(s commission.RuleSnapshot) RuleExplanation {
	id, _ := uuid.Parse(s.ID)
	percent, err := decimal.NewFromString(s.CommissionPercent)
	if err != nil {
		percent = decimal.Zero
	}
	matched := s.MatchedOn
	if matched == nil {
		matched = []string{}
	}
	return RuleExplanation{
		RuleID:   id,
		Name:     s.Name,
		Percent:  percent,
		Score:    s.Score,
		Matched:  matched,
		Fallback: s.Score == 0,
	}
}
