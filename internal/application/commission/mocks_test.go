package commission_test

import (
	"context"
	"time"

	"github.com/FirplakDesarrollador/CRM-sub001/internal/domain/commission"
	"github.com/FirplakDesarrollador/CRM-sub001/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockLedgerRepository is a mock implementation of LedgerRepository
type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) Append(ctx context.Context, entries ...*commission.LedgerEntry) error {
	args := m.Called(ctx, entries)
	return args.Error(0)
}

func (m *MockLedgerRepository) AppendIfAbsent(ctx context.Context, entry *commission.LedgerEntry) (bool, error) {
	args := m.Called(ctx, entry)
	return args.Bool(0), args.Error(1)
}

func (m *MockLedgerRepository) FindByID(ctx context.Context, id uuid.UUID) (*commission.LedgerEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*commission.LedgerEntry), args.Error(1)
}

func (m *MockLedgerRepository) FindByOpportunity(ctx context.Context, opportunityID uuid.UUID) ([]commission.LedgerEntry, error) {
	args := m.Called(ctx, opportunityID)
	return args.Get(0).([]commission.LedgerEntry), args.Error(1)
}

func (m *MockLedgerRepository) FindAccruals(ctx context.Context, opportunityID uuid.UUID, idempotencyKey string) ([]commission.LedgerEntry, error) {
	args := m.Called(ctx, opportunityID, idempotencyKey)
	return args.Get(0).([]commission.LedgerEntry), args.Error(1)
}

func (m *MockLedgerRepository) FindBySeller(ctx context.Context, sellerID uuid.UUID, opportunityID *uuid.UUID) ([]commission.LedgerEntry, error) {
	args := m.Called(ctx, sellerID, opportunityID)
	return args.Get(0).([]commission.LedgerEntry), args.Error(1)
}

func (m *MockLedgerRepository) FindPaid(ctx context.Context, sellerID uuid.UUID, from, to time.Time) ([]commission.LedgerEntry, error) {
	args := m.Called(ctx, sellerID, from, to)
	return args.Get(0).([]commission.LedgerEntry), args.Error(1)
}

func (m *MockLedgerRepository) ListByOpportunity(ctx context.Context, opportunityID uuid.UUID, filter shared.Filter) ([]commission.LedgerEntry, int64, error) {
	args := m.Called(ctx, opportunityID, filter)
	return args.Get(0).([]commission.LedgerEntry), args.Get(1).(int64), args.Error(2)
}

// MockOpportunityRepository is a mock implementation of OpportunityRepository
type MockOpportunityRepository struct {
	mock.Mock
}

func (m *MockOpportunityRepository) FindByID(ctx context.Context, id uuid.UUID) (*commission.Opportunity, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*commission.Opportunity), args.Error(1)
}

// MockAccountRepository is a mock implementation of AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*commission.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*commission.Account), args.Error(1)
}

// MockRuleRepository is a mock implementation of RuleRepository
type MockRuleRepository struct {
	mock.Mock
}

func (m *MockRuleRepository) FindActive(ctx context.Context, on time.Time) ([]commission.CommissionRule, error) {
	args := m.Called(ctx, on)
	return args.Get(0).([]commission.CommissionRule), args.Error(1)
}

// MockCollaboratorRepository is a mock implementation of CollaboratorRepository
type MockCollaboratorRepository struct {
	mock.Mock
}

func (m *MockCollaboratorRepository) FindActiveByOpportunity(ctx context.Context, opportunityID uuid.UUID) ([]commission.Collaborator, error) {
	args := m.Called(ctx, opportunityID)
	return args.Get(0).([]commission.Collaborator), args.Error(1)
}

// MockBonusRuleRepository is a mock implementation of BonusRuleRepository
type MockBonusRuleRepository struct {
	mock.Mock
}

func (m *MockBonusRuleRepository) FindActiveForSeller(ctx context.Context, sellerID uuid.UUID) ([]commission.BonusRule, error) {
	args := m.Called(ctx, sellerID)
	return args.Get(0).([]commission.BonusRule), args.Error(1)
}

// MockBonusAwardRepository is a mock implementation of BonusAwardRepository
type MockBonusAwardRepository struct {
	mock.Mock
}

func (m *MockBonusAwardRepository) AppendIfAbsent(ctx context.Context, award *commission.BonusAward) (bool, error) {
	args := m.Called(ctx, award)
	return args.Bool(0), args.Error(1)
}

func (m *MockBonusAwardRepository) FindBySeller(ctx context.Context, sellerID uuid.UUID, from, to time.Time) ([]commission.BonusAward, error) {
	args := m.Called(ctx, sellerID, from, to)
	return args.Get(0).([]commission.BonusAward), args.Error(1)
}

// MockLocker is a mock implementation of shared.Locker
type MockLocker struct {
	mock.Mock
}

func (m *MockLocker) Acquire(ctx context.Context, key string, ttl, wait time.Duration) (func(), error) {
	args := m.Called(ctx, key, ttl, wait)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(func()), args.Error(1)
}
