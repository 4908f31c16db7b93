package commission

import (
	"context"

	"github.com/FirplakDesarrollador/CRM-sub001/internal/domain/commission"
)

// TransactionScope runs ledger writes atomically. All repositories handed to
// fn share one database transaction; an error from fn rolls it back.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides every repository the engine uses, bound
// to the same transaction.
//
// Ledger and BonusAwards are append-only. The rest are read-only views over
// CRM tables the engine never writes.
type TransactionalRepositories interface {
	Ledger() commission.LedgerRepository
	BonusAwards() commission.BonusAwardRepository
	Rules() commission.RuleRepository
	BonusRules() commission.BonusRuleRepository
	Collaborators() commission.CollaboratorRepository
	Opportunities() commission.OpportunityRepository
	Accounts() commission.AccountRepository
}

// NoOpTransactionScope runs fn against plain repositories without a
// transaction. Used in tests with mocked repositories.
type NoOpTransactionScope struct {
	Repos TransactionalRepositories
}

func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s.Repos)
}

// Repositories is a plain struct implementation of TransactionalRepositories.
type Repositories struct {
	LedgerRepo       commission.LedgerRepository
	BonusAwardRepo   commission.BonusAwardRepository
	RuleRepo         commission.RuleRepository
	BonusRuleRepo    commission.BonusRuleRepository
	CollaboratorRepo commission.CollaboratorRepository
	OpportunityRepo  commission.OpportunityRepository
	AccountRepo      commission.AccountRepository
}

func (r *Repositories) Ledger() commission.LedgerRepository {
	return r.LedgerRepo
}

func (r *Repositories) BonusAwards() commission.BonusAwardRepository {
	return r.BonusAwardRepo
}

func (r *Repositories) Rules() commission.RuleRepository {
	return r.RuleRepo
}

func (r *Repositories) BonusRules() commission.BonusRuleRepository {
	return r.BonusRuleRepo
}

func (r *Repositories) Collaborators() commission.CollaboratorRepository {
	return r.CollaboratorRepo
}

func (r *Repositories) Opportunities() commission.OpportunityRepository {
	return r.OpportunityRepo
}

func (r *Repositories) Accounts() commission.AccountRepository {
	return r.AccountRepo
}

var (
	_ TransactionScope          = (*NoOpTransactionScope)(nil)
	_ TransactionalRepositories = (*Repositories)(nil)
)
