package models

import (
	"encoding/json"
	"time"

	"github.com/FirplakDesarrollador/CRM-sub001/internal/domain/commission"
	"github.com/FirplakDesarrollador/CRM-sub001/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerEntryModel maps commission_ledger_entries.
//
// Two unique indexes carry the ledger's concurrency guarantees:
//   - (opportunity_id, idempotency_key, seller_id) admits one accrual per
//     beneficiary per triggering event; NULL keys never collide.
//   - exclusive_key ("<accrual id>:REVERSO" or "<accrual id>:PAGADA") admits
//     at most one reversal and one payment mirror per accrual.
type LedgerEntryModel struct {
	AppendOnlyModel
	EventType          string          `gorm:"type:varchar(20);not null;index"`
	OpportunityID      uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:idx_ledger_accrual_key,priority:1"`
	SellerID           uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:idx_ledger_accrual_key,priority:3"`
	AccountID          uuid.UUID       `gorm:"type:uuid;not null"`
	ChannelID          *uuid.UUID      `gorm:"type:uuid"`
	BaseAmount         decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Currency           string          `gorm:"type:varchar(3);not null"`
	CommissionPercent  decimal.Decimal `gorm:"type:decimal(9,6);not null"`
	SharePercent       decimal.Decimal `gorm:"type:decimal(5,2);not null"`
	CommissionAmount   decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	RuleSnapshot       string          `gorm:"type:text;not null"`
	CategorySnapshot   *string         `gorm:"type:text"`
	ResolutionScore    int             `gorm:"not null"`
	ReferenceEntryID   *uuid.UUID      `gorm:"type:uuid;index"`
	Reason             string          `gorm:"type:text"`
	ExternalPaymentRef *string         `gorm:"type:varchar(100);index"`
	IdempotencyKey     *string         `gorm:"type:varchar(100);uniqueIndex:idx_ledger_accrual_key,priority:2"`
	ExclusiveKey       *string         `gorm:"type:varchar(80);uniqueIndex"`
	CollectedAmount    decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	EffectiveAt        time.Time       `gorm:"not null;index"`
	CreatedBy          string          `gorm:"type:varchar(100);not null"`
}

func (LedgerEntryModel) TableName() string {
	return "commission_ledger_entries"
}

func (m *LedgerEntryModel) ToDomain() *commission.LedgerEntry {
	e := &commission.LedgerEntry{
		BaseEntity:        m.AppendOnlyModel.ToDomain(),
		EventType:         commission.EventType(m.EventType),
		OpportunityID:     m.OpportunityID,
		SellerID:          m.SellerID,
		AccountID:         m.AccountID,
		ChannelID:         m.ChannelID,
		BaseAmount:        m.BaseAmount,
		Currency:          m.Currency,
		CommissionPercent: m.CommissionPercent,
		SharePercent:      m.SharePercent,
		CommissionAmount:  m.CommissionAmount,
		RuleSnapshot:      json.RawMessage(m.RuleSnapshot),
		ResolutionScore:   m.ResolutionScore,
		ReferenceEntryID:  m.ReferenceEntryID,
		Reason:            m.Reason,
		CollectedAmount:   m.CollectedAmount,
		EffectiveAt:       m.EffectiveAt.UTC(),
		CreatedBy:         m.CreatedBy,
	}
	if m.CategorySnapshot != nil {
		e.CategorySnapshot = json.RawMessage(*m.CategorySnapshot)
	}
	if m.ExternalPaymentRef != nil {
		e.ExternalPaymentRef = *m.ExternalPaymentRef
	}
	if m.IdempotencyKey != nil {
		e.IdempotencyKey = *m.IdempotencyKey
	}
	return e
}

func LedgerEntryModelFromDomain(e *commission.LedgerEntry) *LedgerEntryModel {
	m := &LedgerEntryModel{
		EventType:          string(e.EventType),
		OpportunityID:      e.OpportunityID,
		SellerID:           e.SellerID,
		AccountID:          e.AccountID,
		ChannelID:          e.ChannelID,
		BaseAmount:         e.BaseAmount,
		Currency:           e.Currency,
		CommissionPercent:  e.CommissionPercent,
		SharePercent:       e.SharePercent,
		CommissionAmount:   e.CommissionAmount,
		RuleSnapshot:       string(e.RuleSnapshot),
		ResolutionScore:    e.ResolutionScore,
		ReferenceEntryID:   e.ReferenceEntryID,
		Reason:             e.Reason,
		ExternalPaymentRef: optional(e.ExternalPaymentRef),
		IdempotencyKey:     optional(e.IdempotencyKey),
		ExclusiveKey:       optional(e.ExclusiveKey()),
		CollectedAmount:    e.CollectedAmount,
		EffectiveAt:        e.EffectiveAt.UTC(),
		CreatedBy:          e.CreatedBy,
	}
	m.FromDomainBaseEntity(e.BaseEntity)
	if len(e.CategorySnapshot) > 0 {
		s := string(e.CategorySnapshot)
		m.CategorySnapshot = &s
	}
	return m
}

// BonusAwardModel maps commission_bonus_awards.
type BonusAwardModel struct {
	AppendOnlyModel
	BonusRuleID        uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_bonus_award_period,priority:1"`
	SellerID           uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_bonus_award_period,priority:2"`
	PeriodStart        time.Time       `gorm:"not null;uniqueIndex:idx_bonus_award_period,priority:3"`
	PeriodEnd          time.Time       `gorm:"not null"`
	Collected          decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	BonusAmount        decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Currency           string          `gorm:"type:varchar(3)"`
	OpportunityID      uuid.UUID       `gorm:"type:uuid;not null"`
	ExternalPaymentRef string          `gorm:"type:varchar(100);not null"`
	CreatedBy          string          `gorm:"type:varchar(100);not null"`
}

func (BonusAwardModel) TableName() string {
	return "commission_bonus_awards"
}

func (m *BonusAwardModel) ToDomain() *commission.BonusAward {
	return &commission.BonusAward{
		BaseEntity:         m.AppendOnlyModel.ToDomain(),
		BonusRuleID:        m.BonusRuleID,
		SellerID:           m.SellerID,
		PeriodStart:        m.PeriodStart.UTC(),
		PeriodEnd:          m.PeriodEnd.UTC(),
		Collected:          m.Collected,
		BonusAmount:        m.BonusAmount,
		Currency:           m.Currency,
		OpportunityID:      m.OpportunityID,
		ExternalPaymentRef: m.ExternalPaymentRef,
		CreatedBy:          m.CreatedBy,
	}
}

func BonusAwardModelFromDomain(a *commission.BonusAward) *BonusAwardModel {
	m := &BonusAwardModel{
		BonusRuleID:        a.BonusRuleID,
		SellerID:           a.SellerID,
		PeriodStart:        a.PeriodStart.UTC(),
		PeriodEnd:          a.PeriodEnd.UTC(),
		Collected:          a.Collected,
		BonusAmount:        a.BonusAmount,
		Currency:           a.Currency,
		OpportunityID:      a.OpportunityID,
		ExternalPaymentRef: a.ExternalPaymentRef,
		CreatedBy:          a.CreatedBy,
	}
	m.FromDomainBaseEntity(a.BaseEntity)
	return m
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

var _ shared.Entity = (*commission.LedgerEntry)(nil)
