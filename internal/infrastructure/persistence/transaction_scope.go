package persistence

import (
	"context"

	appcommission "github.com/FirplakDesarrollador/CRM-sub001/internal/application/commission"
	"github.com/FirplakDesarrollador/CRM-sub001/internal/domain/commission"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn within a database transaction. A non-nil error from fn
// rolls the transaction back.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appcommission.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// Repositories returns the same repository set bound to the root connection,
// for reads that need no transaction.
func (s *GormTransactionScope) Repositories() appcommission.TransactionalRepositories {
	return &gormTransactionalRepositories{tx: s.db}
}

type gormTransactionalRepositories struct {
	tx *gorm.DB
}

func (r *gormTransactionalRepositories) Ledger() commission.LedgerRepository {
	return NewGormLedgerRepository(r.tx)
}

func (r *gormTransactionalRepositories) BonusAwards() commission.BonusAwardRepository {
	return NewGormBonusAwardRepository(r.tx)
}

func (r *gormTransactionalRepositories) Rules() commission.RuleRepository {
	return NewGormRuleRepository(r.tx)
}

func (r *gormTransactionalRepositories) BonusRules() commission.BonusRuleRepository {
	return NewGormBonusRuleRepository(r.tx)
}

func (r *gormTransactionalRepositories) Collaborators() commission.CollaboratorRepository {
	return NewGormCollaboratorRepository(r.tx)
}

func (r *gormTransactionalRepositories) Opportunities() commission.OpportunityRepository {
	return NewGormOpportunityRepository(r.tx)
}

func (r *gormTransactionalRepositories) Accounts() commission.AccountRepository {
	return NewGormAccountRepository(r.tx)
}

var (
	_ appcommission.TransactionScope          = (*GormTransactionScope)(nil)
	_ appcommission.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
)
