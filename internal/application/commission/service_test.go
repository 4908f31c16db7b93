package commission_test

import (
	"context"
	"errors"
	"testing"
	"time"

	appcommission "github.com/FirplakDesarrollador/CRM-sub001/internal/application/commission"
	"github.com/FirplakDesarrollador/CRM-sub001/internal/domain/commission"
	"github.com/FirplakDesarrollador/CRM-sub001/internal/domain/shared"
	"github.com/FirplakDesarrollador/CRM-sub001/internal/infrastructure/cache"
	"github.com/FirplakDesarrollador/CRM-sub001/internal/infrastructure/persistence"
	"github.com/FirplakDesarrollador/CRM-sub001/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var fixedNow = time.Date(2025, 3, 20, 12, 0, 0, 0, time.UTC)

const actor = "admin@firplak"

type fixture struct {
	db      *gorm.DB
	svc     *appcommission.Service
	seller  uuid.UUID
	account uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := persistence.Open(sqlite.Open(":memory:"), nil)
	require.NoError(t, err)
	sqlDB, err := db.DB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.DB.AutoMigrate(models.AllModels()...))

	scope := persistence.NewGormTransactionScope(db.DB)
	svc := appcommission.NewService(scope, scope.Repositories(),
		appcommission.WithClock(func() time.Time { return fixedNow }),
		appcommission.WithLocker(cache.NewInMemoryLocker(), time.Second, time.Second),
	)

	f := &fixture{db: db.DB, svc: svc, seller: uuid.New(), account: uuid.New()}
	require.NoError(t, f.db.Create(&models.AccountModel{
		ReadModel: models.ReadModel{ID: f.account},
		Name:      "Constructora Andina",
	}).Error)
	return f
}

func (f *fixture) opportunity(t *testing.T, amount int64) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, f.db.Create(&models.OpportunityModel{
		ReadModel: models.ReadModel{ID: id},
		OwnerID:   f.seller,
		AccountID: f.account,
		Amount:    decimal.NewFromInt(amount),
		Currency:  "COP",
		Status:    "GANADA",
	}).Error)
	return id
}

func (f *fixture) rule(t *testing.T, name string, percent string, sellerID *uuid.UUID) uuid.UUID {
	t.Helper()
	r := &commission.CommissionRule{
		ID:                uuid.New(),
		Name:              name,
		SellerID:          sellerID,
		CommissionPercent: decimal.RequireFromString(percent),
		ActiveFrom:        time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		IsActive:          true,
	}
	require.NoError(t, f.db.Create(models.CommissionRuleModelFromDomain(r)).Error)
	return r.ID
}

func (f *fixture) collaborator(t *testing.T, opportunityID, userID uuid.UUID, percent int64) {
	t.Helper()
	require.NoError(t, f.db.Create(&models.CollaboratorModel{
		ReadModel:     models.ReadModel{ID: uuid.New()},
		OpportunityID: opportunityID,
		UserID:        userID,
		Percent:       decimal.NewFromInt(percent),
		Role:          "support",
	}).Error)
}

func (f *fixture) bonusRule(t *testing.T, target int64) uuid.UUID {
	t.Helper()
	seller := f.seller
	b := &commission.BonusRule{
		ID:               uuid.New(),
		Name:             "Monthly collections",
		SellerID:         &seller,
		Period:           commission.PeriodMonthly,
		CollectionTarget: decimal.NewFromInt(target),
		BonusAmount:      decimal.NewFromInt(1_500_000),
		Currency:         "COP",
		IsActive:         true,
	}
	require.NoError(t, f.db.Create(models.BonusRuleModelFromDomain(b)).Error)
	return b.ID
}

func (f *fixture) accrue(t *testing.T, opportunityID uuid.UUID, key string) *appcommission.AccrualResult {
	t.Helper()
	res, err := f.svc.RecordAccrual(context.Background(), actor, appcommission.RecordAccrualRequest{
		OpportunityID:  opportunityID,
		SellerID:       f.seller,
		IdempotencyKey: key,
	})
	require.NoError(t, err)
	return res
}

func entryFor(t *testing.T, entries []appcommission.LedgerEntryResponse, sellerID uuid.UUID) appcommission.LedgerEntryResponse {
	t.Helper()
	for _, e := range entries {
		if e.SellerID == sellerID {
			return e
		}
	}
	t.Fatalf("no entry for seller %s", sellerID)
	return appcommission.LedgerEntryResponse{}
}

func netFor(t *testing.T, svc *appcommission.Service, sellerID, opportunityID uuid.UUID) decimal.Decimal {
	t.Helper()
	bal, err := svc.SellerBalance(context.Background(), sellerID, &opportunityID)
	require.NoError(t, err)
	if len(bal.Balances) == 0 {
		return decimal.Zero
	}
	require.Len(t, bal.Balances, 1)
	return bal.Balances[0].Net
}

func assertKind(t *testing.T, err error, want commission.ErrorKind) {
	t.Helper()
	require.Error(t, err)
	kind, ok := commission.KindOf(err)
	require.True(t, ok, "expected a commission error, got %v", err)
	assert.Equal(t, want, kind)
}

func amount(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

// ==================== Lifecycle ====================

func TestService_SellerRuleOutranksGeneralRule(t *testing.T) {
	f := newFixture(t)
	f.rule(t, "General", "5", nil)
	sellerRule := f.rule(t, "Seller S", "8", &f.seller)
	opp := f.opportunity(t, 1_000_000)

	res := f.accrue(t, opp, "ship-1")

	assert.False(t, res.Replayed)
	assert.Equal(t, sellerRule, res.Rule.RuleID)
	assert.Equal(t, 8, res.Rule.Score)
	assert.False(t, res.Rule.Fallback)
	assert.True(t, res.GrossCommission.Equal(amount(80_000)))
	require.Len(t, res.Entries, 1)
	e := res.Entries[0]
	assert.Equal(t, string(commission.EventAccrued), e.EventType)
	assert.Equal(t, f.seller, e.SellerID)
	assert.True(t, e.CommissionAmount.Equal(amount(80_000)))
	assert.True(t, e.CommissionPercent.Equal(amount(8)))
	assert.True(t, e.SharePercent.Equal(amount(100)))
	assert.Equal(t, actor, e.CreatedBy)
}

func TestService_CommissionLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.rule(t, "General", "5", nil)
	f.rule(t, "Seller S", "8", &f.seller)
	f.bonusRule(t, 500_000)
	opp := f.opportunity(t, 1_000_000)
	collab := uuid.New()
	f.collaborator(t, opp, collab, 30)

	// Split 70/30 of 80,000.
	res := f.accrue(t, opp, "ship-1")
	require.Len(t, res.Entries, 2)
	ownerEntry := entryFor(t, res.Entries, f.seller)
	collabEntry := entryFor(t, res.Entries, collab)
	assert.True(t, ownerEntry.CommissionAmount.Equal(amount(56_000)))
	assert.True(t, collabEntry.CommissionAmount.Equal(amount(24_000)))
	assert.True(t, collabEntry.SharePercent.Equal(amount(30)))
	assert.True(t, collabEntry.CommissionPercent.Equal(decimal.RequireFromString("2.4")))

	// Reversal zeroes the collaborator.
	rev, err := f.svc.RecordReversal(ctx, actor, collabEntry.ID, appcommission.RecordReversalRequest{Reason: "collaborator left the deal"})
	require.NoError(t, err)
	assert.Equal(t, string(commission.EventReversal), rev.EventType)
	assert.True(t, rev.CommissionAmount.Equal(amount(-24_000)))
	require.NotNil(t, rev.ReferenceEntryID)
	assert.Equal(t, collabEntry.ID, *rev.ReferenceEntryID)
	assert.True(t, netFor(t, f.svc, collab, opp).IsZero())

	// Adjustment on the owner.
	adj, err := f.svc.RecordAdjustment(ctx, actor, ownerEntry.ID, appcommission.RecordAdjustmentRequest{
		Amount: amount(-6_000),
		Reason: "pricing correction",
	})
	require.NoError(t, err)
	assert.Equal(t, "pricing correction", adj.Reason)
	assert.True(t, netFor(t, f.svc, f.seller, opp).Equal(amount(50_000)))

	// Payment mirrors both accruals once.
	payment := appcommission.RegisterPaymentRequest{
		OpportunityID:      opp,
		AmountCollected:    amount(1_000_000),
		ExternalPaymentRef: "PAY-100",
	}
	paid, err := f.svc.RegisterPayment(ctx, actor, payment)
	require.NoError(t, err)
	require.Len(t, paid.MirroredEntries, 2)
	assert.True(t, entryFor(t, paid.MirroredEntries, f.seller).CommissionAmount.Equal(amount(50_000)))
	assert.True(t, entryFor(t, paid.MirroredEntries, collab).CommissionAmount.IsZero())
	for _, e := range paid.MirroredEntries {
		assert.Equal(t, string(commission.EventPaid), e.EventType)
		assert.Equal(t, "PAY-100", e.ExternalPaymentRef)
		assert.True(t, e.CollectedAmount.Equal(amount(1_000_000)))
	}
	require.Len(t, paid.BonusesAwarded, 1)
	assert.True(t, paid.BonusesAwarded[0].BonusAmount.Equal(amount(1_500_000)))
	assert.True(t, netFor(t, f.svc, f.seller, opp).IsZero())

	again, err := f.svc.RegisterPayment(ctx, actor, payment)
	require.NoError(t, err)
	assert.Empty(t, again.MirroredEntries)
	assert.Empty(t, again.BonusesAwarded)

	// Bonus progress.
	progress, err := f.svc.BonusProgress(ctx, f.seller, "", nil)
	require.NoError(t, err)
	require.Len(t, progress, 1)
	assert.True(t, progress[0].PercentComplete.Equal(amount(100)))
	assert.True(t, progress[0].Collected.Equal(amount(1_000_000)))
	assert.True(t, progress[0].Awarded)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), progress[0].WindowStart.UTC())

	entries, total, err := f.svc.ListOpportunityEntries(ctx, opp, appcommission.EntryListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(6), total)
	assert.Len(t, entries, 6)
}

// ==================== Accrual ====================

func TestService_RecordAccrual_ReplaysSameKey(t *testing.T) {
	f := newFixture(t)
	f.rule(t, "Seller S", "8", &f.seller)
	opp := f.opportunity(t, 1_000_000)

	first := f.accrue(t, opp, "ship-1")
	second := f.accrue(t, opp, "ship-1")

	assert.True(t, second.Replayed)
	require.Len(t, second.Entries, 1)
	assert.Equal(t, first.Entries[0].ID, second.Entries[0].ID)
	assert.Equal(t, first.Rule.RuleID, second.Rule.RuleID)
	assert.True(t, second.GrossCommission.Equal(amount(80_000)))

	var count int64
	require.NoError(t, f.db.Model(&models.LedgerEntryModel{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	third := f.accrue(t, opp, "ship-2")
	assert.False(t, third.Replayed)
	assert.NotEqual(t, first.Entries[0].ID, third.Entries[0].ID)
}

func TestService_RecordAccrual_GeneralRuleIsFallback(t *testing.T) {
	f := newFixture(t)
	general := f.rule(t, "General", "5", nil)
	other := uuid.New()
	f.rule(t, "Someone else", "9", &other)
	opp := f.opportunity(t, 1_000_000)

	res := f.accrue(t, opp, "ship-1")

	assert.Equal(t, general, res.Rule.RuleID)
	assert.Equal(t, 0, res.Rule.Score)
	assert.True(t, res.Rule.Fallback)
	assert.True(t, res.GrossCommission.Equal(amount(50_000)))
}

func TestService_ZeroPercentRuleStillAccrues(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	general := f.rule(t, "No commission", "0", nil)
	f.bonusRule(t, 500_000)
	opp := f.opportunity(t, 1_000_000)

	res := f.accrue(t, opp, "ship-1")
	assert.Equal(t, general, res.Rule.RuleID)
	assert.True(t, res.GrossCommission.IsZero())
	require.Len(t, res.Entries, 1)
	assert.Equal(t, f.seller, res.Entries[0].SellerID)
	assert.True(t, res.Entries[0].CommissionAmount.IsZero())
	assert.Equal(t, "ship-1", res.Entries[0].IdempotencyKey)
	assert.NotEmpty(t, res.Entries[0].RuleSnapshot)

	replay := f.accrue(t, opp, "ship-1")
	assert.True(t, replay.Replayed)
	assert.Equal(t, res.Entries[0].ID, replay.Entries[0].ID)

	paid, err := f.svc.RegisterPayment(ctx, actor, appcommission.RegisterPaymentRequest{
		OpportunityID:      opp,
		AmountCollected:    amount(1_000_000),
		ExternalPaymentRef: "PAY-0",
	})
	require.NoError(t, err)
	require.Len(t, paid.MirroredEntries, 1)
	assert.True(t, paid.MirroredEntries[0].CommissionAmount.IsZero())
	require.Len(t, paid.BonusesAwarded, 1)

	progress, err := f.svc.BonusProgress(ctx, f.seller, "", nil)
	require.NoError(t, err)
	require.Len(t, progress, 1)
	assert.True(t, progress[0].Collected.Equal(amount(1_000_000)))
	assert.True(t, progress[0].PercentComplete.Equal(amount(100)))
}

func TestService_RecordAccrual_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("no applicable rule", func(t *testing.T) {
		f := newFixture(t)
		other := uuid.New()
		f.rule(t, "Someone else", "9", &other)
		opp := f.opportunity(t, 1_000_000)

		_, err := f.svc.RecordAccrual(ctx, actor, appcommission.RecordAccrualRequest{
			OpportunityID:  opp,
			SellerID:       f.seller,
			IdempotencyKey: "ship-1",
		})
		assertKind(t, err, commission.KindNoApplicableRule)
	})

	t.Run("unknown opportunity", func(t *testing.T) {
		f := newFixture(t)
		f.rule(t, "General", "5", nil)

		_, err := f.svc.RecordAccrual(ctx, actor, appcommission.RecordAccrualRequest{
			OpportunityID:  uuid.New(),
			SellerID:       f.seller,
			IdempotencyKey: "ship-1",
		})
		assertKind(t, err, commission.KindOpportunityNotFound)
	})

	t.Run("collaborators over 100 percent", func(t *testing.T) {
		f := newFixture(t)
		f.rule(t, "General", "5", nil)
		opp := f.opportunity(t, 1_000_000)
		f.collaborator(t, opp, uuid.New(), 60)
		f.collaborator(t, opp, uuid.New(), 50)

		_, err := f.svc.RecordAccrual(ctx, actor, appcommission.RecordAccrualRequest{
			OpportunityID:  opp,
			SellerID:       f.seller,
			IdempotencyKey: "ship-1",
		})
		assertKind(t, err, commission.KindInvalidSplit)
	})

	tests := []struct {
		name  string
		actor string
		key   string
	}{
		{name: "missing idempotency key", actor: actor, key: " "},
		{name: "missing actor", actor: "", key: "ship-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			opp := f.opportunity(t, 1_000_000)
			_, err := f.svc.RecordAccrual(ctx, tt.actor, appcommission.RecordAccrualRequest{
				OpportunityID:  opp,
				SellerID:       f.seller,
				IdempotencyKey: tt.key,
			})
			assertKind(t, err, commission.KindInvalidAccrual)
		})
	}
}

func TestService_EstimateCommission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.rule(t, "General", "5", nil)
	sellerRule := f.rule(t, "Seller S", "8", &f.seller)
	opp := f.opportunity(t, 1_000_000)
	collab := uuid.New()
	f.collaborator(t, opp, collab, 30)

	est, err := f.svc.EstimateCommission(ctx, opp, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, sellerRule, est.Rule.RuleID)
	assert.Equal(t, "COP", est.Currency)
	assert.True(t, est.BaseAmount.Equal(amount(1_000_000)))
	assert.True(t, est.GrossCommission.Equal(amount(80_000)))
	require.Len(t, est.Shares, 2)
	assert.Equal(t, f.seller, est.Shares[0].UserID)
	assert.True(t, est.Shares[0].IsOwner)
	assert.True(t, est.Shares[0].Amount.Equal(amount(56_000)))
	assert.True(t, est.Shares[1].Amount.Equal(amount(24_000)))

	var count int64
	require.NoError(t, f.db.Model(&models.LedgerEntryModel{}).Count(&count).Error)
	assert.Zero(t, count)
}

// ==================== Adjustments and reversals ====================

func TestService_RecordReversal_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.rule(t, "General", "5", nil)
	opp := f.opportunity(t, 1_000_000)
	accrual := f.accrue(t, opp, "ship-1").Entries[0]

	rev, err := f.svc.RecordReversal(ctx, actor, accrual.ID, appcommission.RecordReversalRequest{Reason: "order cancelled"})
	require.NoError(t, err)

	_, err = f.svc.RecordReversal(ctx, actor, accrual.ID, appcommission.RecordReversalRequest{Reason: "again"})
	assertKind(t, err, commission.KindAlreadyReversed)

	_, err = f.svc.RecordReversal(ctx, actor, rev.ID, appcommission.RecordReversalRequest{Reason: "undo"})
	assertKind(t, err, commission.KindInvalidReferenceType)

	_, err = f.svc.RecordAdjustment(ctx, actor, rev.ID, appcommission.RecordAdjustmentRequest{Amount: amount(10), Reason: "x"})
	assertKind(t, err, commission.KindInvalidReferenceType)

	_, err = f.svc.RecordReversal(ctx, actor, uuid.New(), appcommission.RecordReversalRequest{Reason: "ghost"})
	assertKind(t, err, commission.KindEntryNotFound)

	_, err = f.svc.RecordReversal(ctx, actor, accrual.ID, appcommission.RecordReversalRequest{Reason: "  "})
	assertKind(t, err, commission.KindInvalidAdjustment)
}

func TestService_RecordAdjustment_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.rule(t, "General", "5", nil)
	opp := f.opportunity(t, 1_000_000)
	accrual := f.accrue(t, opp, "ship-1").Entries[0]

	tests := []struct {
		name  string
		actor string
		req   appcommission.RecordAdjustmentRequest
	}{
		{name: "zero amount", actor: actor, req: appcommission.RecordAdjustmentRequest{Amount: decimal.Zero, Reason: "noop"}},
		{name: "blank reason", actor: actor, req: appcommission.RecordAdjustmentRequest{Amount: amount(100), Reason: " "}},
		{name: "missing actor", actor: "", req: appcommission.RecordAdjustmentRequest{Amount: amount(100), Reason: "bonus"}},
		{name: "sub-cent amount", actor: actor, req: appcommission.RecordAdjustmentRequest{Amount: decimal.RequireFromString("-6000.005"), Reason: "pricing correction"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.RecordAdjustment(ctx, tt.actor, accrual.ID, tt.req)
			assertKind(t, err, commission.KindInvalidAdjustment)
		})
	}

	_, err := f.svc.RecordAdjustment(ctx, actor, uuid.New(), appcommission.RecordAdjustmentRequest{Amount: amount(100), Reason: "ghost"})
	assertKind(t, err, commission.KindEntryNotFound)
}

func TestService_EntriesAreNeverRewritten(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.rule(t, "General", "5", nil)
	opp := f.opportunity(t, 1_000_000)
	accrual := f.accrue(t, opp, "ship-1").Entries[0]

	before, err := f.svc.GetEntry(ctx, accrual.ID)
	require.NoError(t, err)

	_, err = f.svc.RecordAdjustment(ctx, actor, accrual.ID, appcommission.RecordAdjustmentRequest{Amount: amount(1_000), Reason: "freight"})
	require.NoError(t, err)
	_, err = f.svc.RecordReversal(ctx, actor, accrual.ID, appcommission.RecordReversalRequest{Reason: "cancelled"})
	require.NoError(t, err)
	_, err = f.svc.RegisterPayment(ctx, actor, appcommission.RegisterPaymentRequest{
		OpportunityID:      opp,
		AmountCollected:    amount(1_000_000),
		ExternalPaymentRef: "PAY-1",
	})
	require.NoError(t, err)

	after, err := f.svc.GetEntry(ctx, accrual.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, string(before.RuleSnapshot), string(after.RuleSnapshot))
}

// ==================== Payments and bonuses ====================

func TestService_RegisterPayment_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	opp := f.opportunity(t, 1_000_000)

	_, err := f.svc.RegisterPayment(ctx, actor, appcommission.RegisterPaymentRequest{
		OpportunityID:      opp,
		AmountCollected:    amount(1_000_000),
		ExternalPaymentRef: "PAY-1",
	})
	assertKind(t, err, commission.KindOpportunityHasNoAccruals)

	_, err = f.svc.RegisterPayment(ctx, actor, appcommission.RegisterPaymentRequest{
		OpportunityID:      opp,
		AmountCollected:    decimal.Zero,
		ExternalPaymentRef: "PAY-1",
	})
	assertKind(t, err, commission.KindInvalidPayment)
}

func TestService_RegisterPayment_BelowTargetAwardsNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.rule(t, "General", "5", nil)
	f.bonusRule(t, 5_000_000)
	opp := f.opportunity(t, 1_000_000)
	f.accrue(t, opp, "ship-1")

	paid, err := f.svc.RegisterPayment(ctx, actor, appcommission.RegisterPaymentRequest{
		OpportunityID:      opp,
		AmountCollected:    amount(1_000_000),
		ExternalPaymentRef: "PAY-1",
	})
	require.NoError(t, err)
	assert.Len(t, paid.MirroredEntries, 1)
	assert.Empty(t, paid.BonusesAwarded)

	progress, err := f.svc.BonusProgress(ctx, f.seller, "monthly", nil)
	require.NoError(t, err)
	require.Len(t, progress, 1)
	assert.True(t, progress[0].PercentComplete.Equal(amount(20)))
	assert.False(t, progress[0].Awarded)

	none, err := f.svc.BonusProgress(ctx, f.seller, "YEARLY", nil)
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = f.svc.BonusProgress(ctx, f.seller, "weekly", nil)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestService_SellerBalance_AllOpportunities(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.rule(t, "General", "5", nil)
	first := f.opportunity(t, 1_000_000)
	second := f.opportunity(t, 200_000)
	f.accrue(t, first, "ship-1")
	f.accrue(t, second, "ship-1")

	bal, err := f.svc.SellerBalance(ctx, f.seller, nil)
	require.NoError(t, err)
	require.Len(t, bal.Balances, 1)
	b := bal.Balances[0]
	assert.Equal(t, "COP", b.Currency)
	assert.True(t, b.Accrued.Equal(amount(60_000)))
	assert.True(t, b.Net.Equal(amount(60_000)))
	assert.Equal(t, 2, b.Entries)

	empty, err := f.svc.SellerBalance(ctx, uuid.New(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty.Balances)
}

// ==================== Failure paths with mocks ====================

type mockRepos struct {
	ledger        *MockLedgerRepository
	awards        *MockBonusAwardRepository
	rules         *MockRuleRepository
	bonusRules    *MockBonusRuleRepository
	collaborators *MockCollaboratorRepository
	opportunities *MockOpportunityRepository
	accounts      *MockAccountRepository
}

func newMockService(opts ...appcommission.Option) (*appcommission.Service, *mockRepos) {
	m := &mockRepos{
		ledger:        new(MockLedgerRepository),
		awards:        new(MockBonusAwardRepository),
		rules:         new(MockRuleRepository),
		bonusRules:    new(MockBonusRuleRepository),
		collaborators: new(MockCollaboratorRepository),
		opportunities: new(MockOpportunityRepository),
		accounts:      new(MockAccountRepository),
	}
	repos := &appcommission.Repositories{
		LedgerRepo:       m.ledger,
		BonusAwardRepo:   m.awards,
		RuleRepo:         m.rules,
		BonusRuleRepo:    m.bonusRules,
		CollaboratorRepo: m.collaborators,
		OpportunityRepo:  m.opportunities,
		AccountRepo:      m.accounts,
	}
	opts = append([]appcommission.Option{appcommission.WithClock(func() time.Time { return fixedNow })}, opts...)
	return appcommission.NewService(&appcommission.NoOpTransactionScope{Repos: repos}, repos, opts...), m
}

func TestService_RecordAccrual_ConcurrentDuplicate(t *testing.T) {
	ctx := context.Background()
	seller, account := uuid.New(), uuid.New()
	channel := uuid.New()
	opp := &commission.Opportunity{
		ID:        uuid.New(),
		OwnerID:   seller,
		AccountID: account,
		ChannelID: &channel,
		Amount:    amount(100_000),
		Currency:  "USD",
	}
	rule := commission.CommissionRule{
		ID:                uuid.New(),
		Name:              "General",
		CommissionPercent: amount(5),
		ActiveFrom:        time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		IsActive:          true,
	}

	winner := commission.LedgerEntry{
		BaseEntity:       shared.NewBaseEntity(fixedNow),
		EventType:        commission.EventAccrued,
		OpportunityID:    opp.ID,
		SellerID:         seller,
		AccountID:        account,
		BaseAmount:       amount(100_000),
		Currency:         "USD",
		CommissionAmount: amount(5_000),
		IdempotencyKey:   "ship-1",
	}
	req := appcommission.RecordAccrualRequest{
		OpportunityID:  opp.ID,
		SellerID:       seller,
		IdempotencyKey: "ship-1",
	}

	tests := []struct {
		name     string
		reread   []commission.LedgerEntry
		replayed bool
	}{
		{name: "winner visible after conflict is replayed", reread: []commission.LedgerEntry{winner}, replayed: true},
		{name: "winner not visible keeps the conflict", reread: []commission.LedgerEntry{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newMockService()
			m.ledger.On("FindAccruals", mock.Anything, opp.ID, "ship-1").Return([]commission.LedgerEntry{}, nil).Once()
			m.ledger.On("FindAccruals", mock.Anything, opp.ID, "ship-1").Return(tt.reread, nil).Once()
			m.opportunities.On("FindByID", mock.Anything, opp.ID).Return(opp, nil)
			m.rules.On("FindActive", mock.Anything, mock.Anything).Return([]commission.CommissionRule{rule}, nil)
			m.collaborators.On("FindActiveByOpportunity", mock.Anything, opp.ID).Return([]commission.Collaborator{}, nil)
			m.ledger.On("Append", mock.Anything, mock.Anything).Return(shared.ErrAlreadyExists)

			res, err := svc.RecordAccrual(ctx, actor, req)
			if tt.replayed {
				require.NoError(t, err)
				assert.True(t, res.Replayed)
				require.Len(t, res.Entries, 1)
				assert.Equal(t, winner.ID, res.Entries[0].ID)
			} else {
				assertKind(t, err, commission.KindDuplicateAccrual)
			}
			m.accounts.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
			m.ledger.AssertExpectations(t)
		})
	}
}

func TestService_RecordAccrual_StoreFailure(t *testing.T) {
	svc, m := newMockService()
	storeErr := errors.New("connection reset")
	oppID := uuid.New()
	m.ledger.On("FindAccruals", mock.Anything, oppID, "ship-1").Return([]commission.LedgerEntry{}, storeErr)

	_, err := svc.RecordAccrual(context.Background(), actor, appcommission.RecordAccrualRequest{
		OpportunityID:  oppID,
		SellerID:       uuid.New(),
		IdempotencyKey: "ship-1",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, storeErr)
	_, ok := commission.KindOf(err)
	assert.False(t, ok)
}

func TestService_LockTimeout(t *testing.T) {
	locker := new(MockLocker)
	svc, m := newMockService(appcommission.WithLocker(locker, 0, 0))
	oppID := uuid.New()
	locker.On("Acquire", mock.Anything, "opportunity:"+oppID.String(), appcommission.DefaultLockTTL, appcommission.DefaultLockWait).
		Return(nil, shared.ErrLockTimeout)

	_, err := svc.RegisterPayment(context.Background(), actor, appcommission.RegisterPaymentRequest{
		OpportunityID:      oppID,
		AmountCollected:    amount(10),
		ExternalPaymentRef: "PAY-1",
	})
	assert.ErrorIs(t, err, shared.ErrLockTimeout)
	m.ledger.AssertNotCalled(t, "FindByOpportunity", mock.Anything, mock.Anything)
}

type recordingMetrics struct {
	written map[commission.EventType]int
	ops     map[string]error
}

func (r *recordingMetrics) EntriesWritten(_ context.Context, t commission.EventType, _ string, n int) {
	r.written[t] += n
}

func (r *recordingMetrics) BonusesAwarded(context.Context, int) {}

func (r *recordingMetrics) ObserveOperation(_ context.Context, op string, _ time.Duration, err error) {
	r.ops[op] = err
}

func TestService_ReportsMetrics(t *testing.T) {
	metrics := &recordingMetrics{written: map[commission.EventType]int{}, ops: map[string]error{}}
	svc, m := newMockService(appcommission.WithMetrics(metrics))
	entryID := uuid.New()
	m.ledger.On("FindByID", mock.Anything, entryID).Return(nil, shared.ErrNotFound)

	_, err := svc.RecordReversal(context.Background(), actor, entryID, appcommission.RecordReversalRequest{Reason: "x"})
	assertKind(t, err, commission.KindEntryNotFound)
	assert.Contains(t, metrics.ops, "record_reversal")
	assertKind(t, metrics.ops["record_reversal"], commission.KindEntryNotFound)
	assert.Empty(t, metrics.written)
}
