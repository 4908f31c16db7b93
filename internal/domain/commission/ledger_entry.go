package commission

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/FirplakDesarrollador/CRM-sub001/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventType is the kind of a ledger entry.
type EventType string

const (
	// EventAccrued recognizes commission as owed (devengada).
	EventAccrued EventType = "DEVENGADA"
	// EventPaid mirrors an accrual once the sale has been collected (pagada).
	EventPaid EventType = "PAGADA"
	// EventAdjustment is a signed manual correction of an accrual (ajuste).
	EventAdjustment EventType = "AJUSTE"
	// EventReversal fully offsets an accrual (reverso).
	EventReversal EventType = "REVERSO"
)

// AllEventTypes lists every event type, in lifecycle order.
var AllEventTypes = []EventType{EventAccrued, EventPaid, EventAdjustment, EventReversal}

func (t EventType) String() string {
	return string(t)
}

func (t EventType) IsValid() bool {
	switch t {
	case EventAccrued, EventPaid, EventAdjustment, EventReversal:
		return true
	}
	return false
}

// BalanceSign is the sign with which an entry's commission amount enters the
// amount still owed to its seller.
func (t EventType) BalanceSign() int {
	switch t {
	case EventAccrued, EventAdjustment, EventReversal:
		return 1
	case EventPaid:
		return -1
	}
	return 0
}

// RequiresReason reports whether entries of this type must carry a reason.
func (t EventType) RequiresReason() bool {
	switch t {
	case EventAdjustment, EventReversal:
		return true
	case EventAccrued, EventPaid:
		return false
	}
	return false
}

// IsExclusive reports whether at most one entry of this type may reference
// a given accrual.
func (t EventType) IsExclusive() bool {
	switch t {
	case EventPaid, EventReversal:
		return true
	case EventAccrued, EventAdjustment:
		return false
	}
	return false
}

// LedgerEntry is an immutable commission event. Corrections are new entries
// referencing the accrual they modify; nothing is ever updated or deleted.
type LedgerEntry struct {
	shared.BaseEntity
	EventType          EventType
	OpportunityID      uuid.UUID
	SellerID           uuid.UUID
	AccountID          uuid.UUID
	ChannelID          *uuid.UUID
	BaseAmount         decimal.Decimal
	Currency           string
	CommissionPercent  decimal.Decimal // effective percent of BaseAmount: rule percent × share / 100
	SharePercent       decimal.Decimal // beneficiary's share of the gross commission
	CommissionAmount   decimal.Decimal
	RuleSnapshot       json.RawMessage
	CategorySnapshot   json.RawMessage
	ResolutionScore    int
	ReferenceEntryID   *uuid.UUID
	Reason             string
	ExternalPaymentRef string
	IdempotencyKey     string
	CollectedAmount    decimal.Decimal
	EffectiveAt        time.Time
	CreatedBy          string
}

// ExclusiveKey is the value of the unique column that makes reversals and
// payment mirrors insert-if-absent. Empty for non-exclusive types.
func (e *LedgerEntry) ExclusiveKey() string {
	if !e.EventType.IsExclusive() || e.ReferenceEntryID == nil {
		return ""
	}
	return e.ReferenceEntryID.String() + ":" + string(e.EventType)
}

// SignedAmount is the entry's contribution to the seller's net balance.
func (e *LedgerEntry) SignedAmount() decimal.Decimal {
	if e.EventType.BalanceSign() < 0 {
		return e.CommissionAmount.Neg()
	}
	return e.CommissionAmount
}

// Snapshot decodes the frozen rule.
func (e *LedgerEntry) Snapshot() (RuleSnapshot, error) {
	return DecodeRuleSnapshot(e.RuleSnapshot)
}

// AccrualInput describes one accrual request.
type AccrualInput struct {
	OpportunityID  uuid.UUID
	SellerID       uuid.UUID
	AccountID      uuid.UUID
	ChannelID      *uuid.UUID
	BaseAmount     decimal.Decimal
	Currency       string
	IdempotencyKey string
	ActorID        string
	OccurredAt     time.Time
}

// Validate checks the request before any rule is resolved.
func (in *AccrualInput) Validate() error {
	if err := in.ValidateSale(); err != nil {
		return err
	}
	switch {
	case strings.TrimSpace(in.IdempotencyKey) == "":
		return ErrInvalidAccrual.WithDetail("field", "idempotency_key")
	case strings.TrimSpace(in.ActorID) == "":
		return ErrInvalidAccrual.WithDetail("field", "actor_id")
	}
	return nil
}

// ValidateSale checks only the sale attributes. Estimation uses it, since an
// estimate has no idempotency key or actor.
func (in *AccrualInput) ValidateSale() error {
	switch {
	case in.OpportunityID == uuid.Nil:
		return ErrInvalidAccrual.WithDetail("field", "opportunity_id")
	case in.SellerID == uuid.Nil:
		return ErrInvalidAccrual.WithDetail("field", "seller_id")
	case in.AccountID == uuid.Nil:
		return ErrInvalidAccrual.WithDetail("field", "account_id")
	case !in.BaseAmount.IsPositive(), !FitsMoneyScale(in.BaseAmount):
		return ErrInvalidAccrual.WithDetail("base_amount", in.BaseAmount.String())
	case !validCurrency(NormalizeCurrency(in.Currency)):
		return ErrInvalidAccrual.WithDetail("currency", in.Currency)
	}
	return nil
}

// NewAccrual builds the DEVENGADA entry for one beneficiary share.
func NewAccrual(in AccrualInput, res Resolution, share Share, category json.RawMessage, now time.Time) (*LedgerEntry, error) {
	snapshot, err := res.Snapshot().Encode()
	if err != nil {
		return nil, err
	}
	occurred := in.OccurredAt
	if occurred.IsZero() {
		occurred = now
	}
	return &LedgerEntry{
		BaseEntity:        shared.NewBaseEntity(now),
		EventType:         EventAccrued,
		OpportunityID:     in.OpportunityID,
		SellerID:          share.UserID,
		AccountID:         in.AccountID,
		ChannelID:         in.ChannelID,
		BaseAmount:        in.BaseAmount,
		Currency:          NormalizeCurrency(in.Currency),
		CommissionPercent: res.Rule.CommissionPercent.Mul(share.Percent).Div(hundred),
		SharePercent:      share.Percent,
		CommissionAmount:  share.Amount,
		RuleSnapshot:      snapshot,
		CategorySnapshot:  category,
		ResolutionScore:   res.Score,
		IdempotencyKey:    strings.TrimSpace(in.IdempotencyKey),
		EffectiveAt:       occurred.UTC(),
		CreatedBy:         in.ActorID,
	}, nil
}

// derive copies the attribution of an accrual into a follow-up entry.
func derive(ref *LedgerEntry, t EventType, actorID string, now time.Time) *LedgerEntry {
	refID := ref.ID
	return &LedgerEntry{
		BaseEntity:        shared.NewBaseEntity(now),
		EventType:         t,
		OpportunityID:     ref.OpportunityID,
		SellerID:          ref.SellerID,
		AccountID:         ref.AccountID,
		ChannelID:         ref.ChannelID,
		BaseAmount:        ref.BaseAmount,
		Currency:          ref.Currency,
		CommissionPercent: ref.CommissionPercent,
		SharePercent:      ref.SharePercent,
		RuleSnapshot:      ref.RuleSnapshot,
		CategorySnapshot:  ref.CategorySnapshot,
		ResolutionScore:   ref.ResolutionScore,
		ReferenceEntryID:  &refID,
		EffectiveAt:       now.UTC(),
		CreatedBy:         actorID,
	}
}

func requireAccrualRef(ref *LedgerEntry) error {
	if ref == nil {
		return ErrEntryNotFound
	}
	if ref.EventType != EventAccrued {
		return ErrInvalidReferenceType.
			WithDetail("entry_id", ref.ID.String()).
			WithDetail("event_type", string(ref.EventType))
	}
	return nil
}

// NewAdjustment builds an AJUSTE entry carrying a free-form signed amount.
func NewAdjustment(ref *LedgerEntry, amount decimal.Decimal, reason, actorID string, now time.Time) (*LedgerEntry, error) {
	if err := requireAccrualRef(ref); err != nil {
		return nil, err
	}
	if amount.IsZero() || !FitsMoneyScale(amount) {
		return nil, ErrInvalidAdjustment.WithDetail("amount", amount.String())
	}
	if strings.TrimSpace(reason) == "" {
		return nil, ErrInvalidAdjustment.WithDetail("field", "reason")
	}
	e := derive(ref, EventAdjustment, actorID, now)
	e.CommissionAmount = amount
	e.Reason = strings.TrimSpace(reason)
	return e, nil
}

// NewReversal builds the REVERSO entry that exactly offsets ref.
func NewReversal(ref *LedgerEntry, reason, actorID string, now time.Time) (*LedgerEntry, error) {
	if err := requireAccrualRef(ref); err != nil {
		return nil, err
	}
	if strings.TrimSpace(reason) == "" {
		return nil, ErrInvalidAdjustment.WithDetail("field", "reason")
	}
	e := derive(ref, EventReversal, actorID, now)
	e.CommissionAmount = ref.CommissionAmount.Neg()
	e.Reason = strings.TrimSpace(reason)
	return e, nil
}

// PaymentInput describes one collected payment.
type PaymentInput struct {
	OpportunityID      uuid.UUID
	AmountCollected    decimal.Decimal
	ExternalPaymentRef string
	PaymentDate        time.Time
	ActorID            string
}

func (in *PaymentInput) Validate() error {
	switch {
	case in.OpportunityID == uuid.Nil:
		return ErrInvalidPayment.WithDetail("field", "opportunity_id")
	case !in.AmountCollected.IsPositive(), !FitsMoneyScale(in.AmountCollected):
		return ErrInvalidPayment.WithDetail("amount_collected", in.AmountCollected.String())
	case strings.TrimSpace(in.ExternalPaymentRef) == "":
		return ErrInvalidPayment.WithDetail("field", "external_payment_ref")
	case in.PaymentDate.IsZero():
		return ErrInvalidPayment.WithDetail("field", "payment_date")
	case strings.TrimSpace(in.ActorID) == "":
		return ErrInvalidPayment.WithDetail("field", "actor_id")
	}
	return nil
}

// NewPayment builds the PAGADA mirror of accrual. outstanding is what the
// accrual chain still owes (accrual plus its adjustments and reversal). A
// negative outstanding is paid as zero and stays on the balance as a
// clawback the seller owes.
func NewPayment(accrual *LedgerEntry, outstanding decimal.Decimal, in PaymentInput, now time.Time) (*LedgerEntry, error) {
	if err := requireAccrualRef(accrual); err != nil {
		return nil, err
	}
	e := derive(accrual, EventPaid, in.ActorID, now)
	e.CommissionAmount = decimal.Max(outstanding, decimal.Zero)
	e.ExternalPaymentRef = strings.TrimSpace(in.ExternalPaymentRef)
	e.CollectedAmount = in.AmountCollected
	e.EffectiveAt = in.PaymentDate.UTC()
	return e, nil
}
