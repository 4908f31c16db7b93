package models

import (
	"time"

	"github.com/FirplakDesarrollador/CRM-sub001/internal/domain/commission"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountModel maps the CRM accounts table.
type AccountModel struct {
	ReadModel
	Name      string     `gorm:"type:varchar(200);not null"`
	ChannelID *uuid.UUID `gorm:"type:uuid"`
}

func (AccountModel) TableName() string {
	return "accounts"
}

func (m *AccountModel) ToDomain() *commission.Account {
	return &commission.Account{ID: m.ID, Name: m.Name, ChannelID: m.ChannelID}
}

// OpportunityModel maps the CRM opportunities table.
type OpportunityModel struct {
	ReadModel
	OwnerID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	AccountID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	ChannelID    *uuid.UUID      `gorm:"type:uuid"`
	CategoryID   *uuid.UUID      `gorm:"type:uuid"`
	CategoryName string          `gorm:"type:varchar(200)"`
	Amount       decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Currency     string          `gorm:"type:varchar(3);not null"`
	Status       string          `gorm:"type:varchar(30);not null"`
}

func (OpportunityModel) TableName() string {
	return "opportunities"
}

func (m *OpportunityModel) ToDomain() *commission.Opportunity {
	return &commission.Opportunity{
		ID:           m.ID,
		OwnerID:      m.OwnerID,
		AccountID:    m.AccountID,
		ChannelID:    m.ChannelID,
		CategoryID:   m.CategoryID,
		CategoryName: m.CategoryName,
		Amount:       m.Amount,
		Currency:     m.Currency,
		Status:       m.Status,
	}
}

// CollaboratorModel maps opportunity_collaborators. Rows are soft-deleted.
type CollaboratorModel struct {
	ReadModel
	OpportunityID uuid.UUID       `gorm:"type:uuid;not null;index"`
	UserID        uuid.UUID       `gorm:"type:uuid;not null"`
	Percent       decimal.Decimal `gorm:"type:decimal(5,2);not null"`
	Role          string          `gorm:"type:varchar(50)"`
	DeletedAt     *time.Time      `gorm:"index"`
}

func (CollaboratorModel) TableName() string {
	return "opportunity_collaborators"
}

func (m *CollaboratorModel) ToDomain() commission.Collaborator {
	return commission.Collaborator{
		ID:            m.ID,
		OpportunityID: m.OpportunityID,
		UserID:        m.UserID,
		Percent:       m.Percent,
		Role:          m.Role,
		DeletedAt:     m.DeletedAt,
	}
}

// CommissionRuleModel maps commission_rules. Account matchers live in
// commission_rule_accounts.
type CommissionRuleModel struct {
	ReadModel
	Name              string                       `gorm:"type:varchar(200);not null"`
	SellerID          *uuid.UUID                   `gorm:"type:uuid;index"`
	CategoryID        *uuid.UUID                   `gorm:"type:uuid"`
	ChannelID         *uuid.UUID                   `gorm:"type:uuid"`
	CommissionPercent decimal.Decimal              `gorm:"type:decimal(7,4);not null"`
	ActiveFrom        time.Time                    `gorm:"not null"`
	ActiveTo          *time.Time
	IsActive          bool                         `gorm:"not null;index"`
	Accounts          []CommissionRuleAccountModel `gorm:"foreignKey:RuleID"`
}

func (CommissionRuleModel) TableName() string {
	return "commission_rules"
}

func (m *CommissionRuleModel) ToDomain() commission.CommissionRule {
	r := commission.CommissionRule{
		ID:                m.ID,
		Name:              m.Name,
		SellerID:          m.SellerID,
		CategoryID:        m.CategoryID,
		ChannelID:         m.ChannelID,
		CommissionPercent: m.CommissionPercent,
		ActiveFrom:        m.ActiveFrom.UTC(),
		IsActive:          m.IsActive,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
	if m.ActiveTo != nil {
		to := m.ActiveTo.UTC()
		r.ActiveTo = &to
	}
	for _, a := range m.Accounts {
		r.AccountIDs = append(r.AccountIDs, a.AccountID)
	}
	return r
}

// CommissionRuleModelFromDomain is used by tests and seed tooling; the engine
// itself never writes rules.
func CommissionRuleModelFromDomain(r *commission.CommissionRule) *CommissionRuleModel {
	m := &CommissionRuleModel{
		ReadModel:         ReadModel{ID: r.ID, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt},
		Name:              r.Name,
		SellerID:          r.SellerID,
		CategoryID:        r.CategoryID,
		ChannelID:         r.ChannelID,
		CommissionPercent: r.CommissionPercent,
		ActiveFrom:        r.ActiveFrom.UTC(),
		ActiveTo:          r.ActiveTo,
		IsActive:          r.IsActive,
	}
	for _, id := range r.AccountIDs {
		m.Accounts = append(m.Accounts, CommissionRuleAccountModel{RuleID: r.ID, AccountID: id})
	}
	return m
}

// CommissionRuleAccountModel is one account in a rule's account set.
type CommissionRuleAccountModel struct {
	RuleID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	AccountID uuid.UUID `gorm:"type:uuid;primaryKey"`
}

func (CommissionRuleAccountModel) TableName() string {
	return "commission_rule_accounts"
}

// BonusRuleModel maps bonus_rules.
type BonusRuleModel struct {
	ReadModel
	Name             string          `gorm:"type:varchar(200)"`
	SellerID         *uuid.UUID      `gorm:"type:uuid;index"`
	Period           string          `gorm:"type:varchar(20);not null"`
	CollectionTarget decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	BonusAmount      decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Currency         string          `gorm:"type:varchar(3)"`
	IsActive         bool            `gorm:"not null"`
}

func (BonusRuleModel) TableName() string {
	return "bonus_rules"
}

func (m *BonusRuleModel) ToDomain() commission.BonusRule {
	return commission.BonusRule{
		ID:               m.ID,
		Name:             m.Name,
		SellerID:         m.SellerID,
		Period:           commission.BonusPeriod(m.Period),
		CollectionTarget: m.CollectionTarget,
		BonusAmount:      m.BonusAmount,
		Currency:         m.Currency,
		IsActive:         m.IsActive,
	}
}

func BonusRuleModelFromDomain(b *commission.BonusRule) *BonusRuleModel {
	return &BonusRuleModel{
		ReadModel:        ReadModel{ID: b.ID},
		Name:             b.Name,
		SellerID:         b.SellerID,
		Period:           string(b.Period),
		CollectionTarget: b.CollectionTarget,
		BonusAmount:      b.BonusAmount,
		Currency:         b.Currency,
		IsActive:         b.IsActive,
	}
}
