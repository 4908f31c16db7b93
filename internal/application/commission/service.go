package commission

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/FirplakDesarrollador/CRM-sub001/internal/domain/commission"
	"github.com/FirplakDesarrollador/CRM-sub001/internal/domain/shared"
	"github.com/FirplakDesarrollador/CRM-sub001/internal/infrastructure/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	// DefaultLockTTL bounds how long a crashed writer can hold an opportunity.
	DefaultLockTTL = 30 * time.Second
	// DefaultLockWait is how long a writer waits for a busy opportunity.
	DefaultLockWait = 5 * time.Second
)

// Metrics receives ledger activity.
type Metrics interface {
	EntriesWritten(ctx context.Context, t commission.EventType, currency string, n int)
	BonusesAwarded(ctx context.Context, n int)
	ObserveOperation(ctx context.Context, op string, d time.Duration, err error)
}

type nopMetrics struct{}

func (nopMetrics) EntriesWritten(context.Context, commission.EventType, string, int) {}

func (nopMetrics) BonusesAwarded(context.Context, int) {}

func (nopMetrics) ObserveOperation(context.Context, string, time.Duration, error) {}

// Service is the commission engine: it resolves rules, splits commissions and
// appends ledger entries. Every mutating call takes the acting user explicitly.
type Service struct {
	scope    TransactionScope
	repos    TransactionalRepositories
	locker   shared.Locker
	metrics  Metrics
	logger   *zap.Logger
	now      func() time.Time
	lockTTL  time.Duration
	lockWait time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithLocker serializes writers per opportunity.
func WithLocker(l shared.Locker, ttl, wait time.Duration) Option {
	return func(s *Service) {
		s.locker = l
		if ttl > 0 {
			s.lockTTL = ttl
		}
		if wait > 0 {
			s.lockWait = wait
		}
	}
}

func WithMetrics(m Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a Service. scope runs writes; repos serves reads outside
// a transaction.
func NewService(scope TransactionScope, repos TransactionalRepositories, opts ...Option) *Service {
	s := &Service{
		scope:    scope,
		repos:    repos,
		locker:   shared.NoopLocker{},
		metrics:  nopMetrics{},
		logger:   zap.NewNop(),
		now:      time.Now,
		lockTTL:  DefaultLockTTL,
		lockWait: DefaultLockWait,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) log(ctx context.Context) *zap.Logger {
	return logger.Enrich(ctx, s.logger)
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}

func (s *Service) withOpportunityLock(ctx context.Context, opportunityID uuid.UUID, fn func() error) error {
	release, err := s.locker.Acquire(ctx, "opportunity:"+opportunityID.String(), s.lockTTL, s.lockWait)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

// =============================================================================
// Accrual
// =============================================================================

// accrualPlan is a resolved and split sale. Accrual and estimation share it so
// both always agree on rule and shares.
type accrualPlan struct {
	input      commission.AccrualInput
	resolution commission.Resolution
	gross      decimal.Decimal
	shares     []commission.Share
	category   json.RawMessage
}

// planAccrual fills the sale from the opportunity and account where the
// request left fields empty, then resolves the rule and splits the commission.
func (s *Service) planAccrual(ctx context.Context, repos TransactionalRepositories, in commission.AccrualInput, on time.Time) (*accrualPlan, error) {
	opp, err := repos.Opportunities().FindByID(ctx, in.OpportunityID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, commission.ErrOpportunityNotFound.WithDetail("opportunity_id", in.OpportunityID.String())
		}
		return nil, fmt.Errorf("load opportunity: %w", err)
	}

	if in.SellerID == uuid.Nil {
		in.SellerID = opp.OwnerID
	}
	if in.AccountID == uuid.Nil {
		in.AccountID = opp.AccountID
	}
	if in.BaseAmount.IsZero() {
		in.BaseAmount = opp.Amount
	}
	if strings.TrimSpace(in.Currency) == "" {
		in.Currency = opp.Currency
	}
	if in.ChannelID == nil {
		in.ChannelID = opp.ChannelID
	}
	if in.ChannelID == nil {
		account, err := repos.Accounts().FindByID(ctx, in.AccountID)
		switch {
		case err == nil:
			in.ChannelID = account.ChannelID
		case !errors.Is(err, shared.ErrNotFound):
			return nil, fmt.Errorf("load account: %w", err)
		}
	}
	if err := in.ValidateSale(); err != nil {
		return nil, err
	}

	rules, err := repos.Rules().FindActive(ctx, on)
	if err != nil {
		return nil, fmt.Errorf("load commission rules: %w", err)
	}
	res, err := commission.Resolve(commission.SaleContext{
		SellerID:   in.SellerID,
		AccountID:  in.AccountID,
		ChannelID:  in.ChannelID,
		CategoryID: opp.CategoryID,
		On:         on,
	}, rules)
	if err != nil {
		return nil, err
	}

	collaborators, err := repos.Collaborators().FindActiveByOpportunity(ctx, in.OpportunityID)
	if err != nil {
		return nil, fmt.Errorf("load collaborators: %w", err)
	}
	gross := commission.PercentOf(in.BaseAmount, res.Rule.CommissionPercent)
	shares, err := commission.Split(gross, in.SellerID, collaborators)
	if err != nil {
		return nil, err
	}

	var category json.RawMessage
	if opp.CategoryID != nil {
		category, err = json.Marshal(commission.CategorySnapshot{ID: opp.CategoryID.String(), Name: opp.CategoryName})
		if err != nil {
			return nil, fmt.Errorf("encode category snapshot: %w", err)
		}
	}

	return &accrualPlan{
		input:      in,
		resolution: res,
		gross:      gross,
		shares:     shares,
		category:   category,
	}, nil
}

// RecordAccrual writes one DEVENGADA entry per beneficiary, zero amounts
// included. A repeated idempotency key returns the entries written the first
// time.
func (s *Service) RecordAccrual(ctx context.Context, actorID string, req RecordAccrualRequest) (result *AccrualResult, err error) {
	start := time.Now()
	defer func() { s.metrics.ObserveOperation(ctx, "record_accrual", time.Since(start), err) }()

	in := commission.AccrualInput{
		OpportunityID:  req.OpportunityID,
		SellerID:       req.SellerID,
		ChannelID:      req.ChannelID,
		BaseAmount:     req.BaseAmount,
		Currency:       req.Currency,
		IdempotencyKey: strings.TrimSpace(req.IdempotencyKey),
		ActorID:        strings.TrimSpace(actorID),
	}
	if req.AccountID != nil {
		in.AccountID = *req.AccountID
	}
	switch {
	case in.OpportunityID == uuid.Nil:
		return nil, commission.ErrInvalidAccrual.WithDetail("field", "opportunity_id")
	case in.IdempotencyKey == "":
		return nil, commission.ErrInvalidAccrual.WithDetail("field", "idempotency_key")
	case in.ActorID == "":
		return nil, commission.ErrInvalidAccrual.WithDetail("field", "actor_id")
	}

	now := s.clock()
	on := now
	if req.OccurredAt != nil {
		on = req.OccurredAt.UTC()
		in.OccurredAt = on
	}

	err = s.withOpportunityLock(ctx, in.OpportunityID, func() error {
		return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
			existing, err := repos.Ledger().FindAccruals(ctx, in.OpportunityID, in.IdempotencyKey)
			if err != nil {
				return fmt.Errorf("look up accruals: %w", err)
			}
			if len(existing) > 0 {
				result = replayedAccrual(existing)
				return nil
			}

			plan, err := s.planAccrual(ctx, repos, in, on)
			if err != nil {
				return err
			}
			entries := make([]*commission.LedgerEntry, 0, len(plan.shares))
			for _, share := range plan.shares {
				e, err := commission.NewAccrual(plan.input, plan.resolution, share, plan.category, now)
				if err != nil {
					return err
				}
				entries = append(entries, e)
			}
			if err := repos.Ledger().Append(ctx, entries...); err != nil {
				if errors.Is(err, shared.ErrAlreadyExists) {
					return commission.ErrDuplicateAccrual.
						WithDetail("opportunity_id", in.OpportunityID.String()).
						WithDetail("idempotency_key", in.IdempotencyKey)
				}
				return fmt.Errorf("append accruals: %w", err)
			}

			result = &AccrualResult{
				Rule:            explainResolution(plan.resolution),
				GrossCommission: plan.gross,
				Entries:         make([]LedgerEntryResponse, len(entries)),
			}
			for i, e := range entries {
				result.Entries[i] = ToLedgerEntryResponse(e)
			}
			return nil
		})
	})
	if errors.Is(err, commission.ErrDuplicateAccrual) {
		// A concurrent call with the same key committed first.
		existing, findErr := s.repos.Ledger().FindAccruals(ctx, in.OpportunityID, in.IdempotencyKey)
		if findErr == nil && len(existing) > 0 {
			result, err = replayedAccrual(existing), nil
		}
	}
	if err != nil {
		return nil, err
	}

	if result.Replayed {
		s.log(ctx).Info("Accrual replayed",
			zap.String("opportunity_id", in.OpportunityID.String()),
			zap.String("idempotency_key", in.IdempotencyKey),
		)
		return result, nil
	}
	if len(result.Entries) > 0 {
		s.metrics.EntriesWritten(ctx, commission.EventAccrued, result.Entries[0].Currency, len(result.Entries))
	}
	s.log(ctx).Info("Commission accrued",
		zap.String("opportunity_id", in.OpportunityID.String()),
		zap.String("rule_id", result.Rule.RuleID.String()),
		zap.Int("score", result.Rule.Score),
		zap.Int("entries", len(result.Entries)),
	)
	return result, nil
}

func replayedAccrual(existing []commission.LedgerEntry) *AccrualResult {
	result := &AccrualResult{
		Replayed:        true,
		GrossCommission: decimal.Zero,
		Entries:         toLedgerEntryResponses(existing),
	}
	if snap, err := existing[0].Snapshot(); err == nil {
		result.Rule = explainSnapshot(snap)
		result.GrossCommission = commission.PercentOf(existing[0].BaseAmount, result.Rule.Percent)
	}
	return result
}

// EstimateCommission reports what RecordAccrual would write for the
// opportunity now, without writing anything. sellerID defaults to the owner.
func (s *Service) EstimateCommission(ctx context.Context, opportunityID uuid.UUID, sellerID *uuid.UUID, on *time.Time) (*EstimateResult, error) {
	in := commission.AccrualInput{OpportunityID: opportunityID}
	if sellerID != nil {
		in.SellerID = *sellerID
	}
	at := s.clock()
	if on != nil {
		at = on.UTC()
	}

	plan, err := s.planAccrual(ctx, s.repos, in, at)
	if err != nil {
		return nil, err
	}
	return &EstimateResult{
		OpportunityID:   opportunityID,
		BaseAmount:      plan.input.BaseAmount,
		Currency:        commission.NormalizeCurrency(plan.input.Currency),
		Rule:            explainResolution(plan.resolution),
		GrossCommission: plan.gross,
		Shares:          toShareResponses(plan.shares),
	}, nil
}

// =============================================================================
// Adjustments and reversals
// =============================================================================

func (s *Service) findEntry(ctx context.Context, repos TransactionalRepositories, id uuid.UUID) (*commission.LedgerEntry, error) {
	e, err := repos.Ledger().FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, commission.ErrEntryNotFound.WithDetail("entry_id", id.String())
		}
		return nil, fmt.Errorf("load ledger entry: %w", err)
	}
	return e, nil
}

// RecordAdjustment appends a signed AJUSTE against a DEVENGADA entry.
func (s *Service) RecordAdjustment(ctx context.Context, actorID string, entryID uuid.UUID, req RecordAdjustmentRequest) (resp *LedgerEntryResponse, err error) {
	start := time.Now()
	defer func() { s.metrics.ObserveOperation(ctx, "record_adjustment", time.Since(start), err) }()

	if strings.TrimSpace(actorID) == "" {
		return nil, commission.ErrInvalidAdjustment.WithDetail("field", "actor_id")
	}
	ref, err := s.findEntry(ctx, s.repos, entryID)
	if err != nil {
		return nil, err
	}

	var entry *commission.LedgerEntry
	err = s.withOpportunityLock(ctx, ref.OpportunityID, func() error {
		return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
			ref, err := s.findEntry(ctx, repos, entryID)
			if err != nil {
				return err
			}
			entry, err = commission.NewAdjustment(ref, req.Amount, req.Reason, actorID, s.clock())
			if err != nil {
				return err
			}
			if err := repos.Ledger().Append(ctx, entry); err != nil {
				return fmt.Errorf("append adjustment: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.EntriesWritten(ctx, commission.EventAdjustment, entry.Currency, 1)
	s.log(ctx).Info("Commission adjusted",
		zap.String("entry_id", entry.ID.String()),
		zap.String("reference_entry_id", entryID.String()),
		zap.String("amount", entry.CommissionAmount.String()),
	)
	r := ToLedgerEntryResponse(entry)
	return &r, nil
}

// RecordReversal appends the REVERSO that exactly offsets a DEVENGADA entry.
// A second reversal of the same entry fails with ALREADY_REVERSED.
func (s *Service) RecordReversal(ctx context.Context, actorID string, entryID uuid.UUID, req RecordReversalRequest) (resp *LedgerEntryResponse, err error) {
	start := time.Now()
	defer func() { s.metrics.ObserveOperation(ctx, "record_reversal", time.Since(start), err) }()

	if strings.TrimSpace(actorID) == "" {
		return nil, commission.ErrInvalidAdjustment.WithDetail("field", "actor_id")
	}
	ref, err := s.findEntry(ctx, s.repos, entryID)
	if err != nil {
		return nil, err
	}

	var entry *commission.LedgerEntry
	err = s.withOpportunityLock(ctx, ref.OpportunityID, func() error {
		return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
			ref, err := s.findEntry(ctx, repos, entryID)
			if err != nil {
				return err
			}
			entry, err = commission.NewReversal(ref, req.Reason, actorID, s.clock())
			if err != nil {
				return err
			}
			written, err := repos.Ledger().AppendIfAbsent(ctx, entry)
			if err != nil {
				return fmt.Errorf("append reversal: %w", err)
			}
			if !written {
				return commission.ErrAlreadyReversed.WithDetail("entry_id", entryID.String())
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.EntriesWritten(ctx, commission.EventReversal, entry.Currency, 1)
	s.log(ctx).Info("Commission reversed",
		zap.String("entry_id", entry.ID.String()),
		zap.String("reference_entry_id", entryID.String()),
	)
	r := ToLedgerEntryResponse(entry)
	return &r, nil
}

// =============================================================================
// Payments and bonuses
// =============================================================================

// RegisterPayment mirrors every accrual of the opportunity that has no PAGADA
// yet, then awards the bonuses its sellers have now reached. Registering the
// same payment again writes nothing.
func (s *Service) RegisterPayment(ctx context.Context, actorID string, req RegisterPaymentRequest) (result *PaymentResult, err error) {
	start := time.Now()
	defer func() { s.metrics.ObserveOperation(ctx, "register_payment", time.Since(start), err) }()

	now := s.clock()
	in := commission.PaymentInput{
		OpportunityID:      req.OpportunityID,
		AmountCollected:    req.AmountCollected,
		ExternalPaymentRef: strings.TrimSpace(req.ExternalPaymentRef),
		PaymentDate:        now,
		ActorID:            strings.TrimSpace(actorID),
	}
	if req.PaymentDate != nil {
		in.PaymentDate = req.PaymentDate.UTC()
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var mirrored []*commission.LedgerEntry
	var awards []*commission.BonusAward
	err = s.withOpportunityLock(ctx, in.OpportunityID, func() error {
		return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
			entries, err := repos.Ledger().FindByOpportunity(ctx, in.OpportunityID)
			if err != nil {
				return fmt.Errorf("load ledger: %w", err)
			}
			chains := commission.BuildChains(entries)
			if len(chains) == 0 {
				return commission.ErrOpportunityHasNoAccruals.WithDetail("opportunity_id", in.OpportunityID.String())
			}

			var touched []uuid.UUID
			for _, c := range chains {
				if c.IsMirrored() {
					continue
				}
				p, err := commission.NewPayment(&c.Accrual, c.Outstanding(), in, now)
				if err != nil {
					return err
				}
				written, err := repos.Ledger().AppendIfAbsent(ctx, p)
				if err != nil {
					return fmt.Errorf("append payment: %w", err)
				}
				if !written {
					continue
				}
				mirrored = append(mirrored, p)
				if !slices.Contains(touched, p.SellerID) {
					touched = append(touched, p.SellerID)
				}
			}

			for _, sellerID := range touched {
				granted, err := s.awardBonuses(ctx, repos, sellerID, in, now)
				if err != nil {
					return err
				}
				awards = append(awards, granted...)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	result = &PaymentResult{
		MirroredEntries: make([]LedgerEntryResponse, len(mirrored)),
		BonusesAwarded:  make([]BonusAwardResponse, len(awards)),
	}
	for i, e := range mirrored {
		result.MirroredEntries[i] = ToLedgerEntryResponse(e)
	}
	for i, a := range awards {
		result.BonusesAwarded[i] = toBonusAwardResponse(a)
	}

	if len(mirrored) > 0 {
		s.metrics.EntriesWritten(ctx, commission.EventPaid, mirrored[0].Currency, len(mirrored))
	}
	s.metrics.BonusesAwarded(ctx, len(awards))
	s.log(ctx).Info("Payment registered",
		zap.String("opportunity_id", in.OpportunityID.String()),
		zap.String("external_payment_ref", in.ExternalPaymentRef),
		zap.Int("mirrored", len(mirrored)),
		zap.Int("bonuses_awarded", len(awards)),
	)
	return result, nil
}

// awardBonuses grants every bonus sellerID has met in the windows containing
// the payment date and has not been granted yet.
func (s *Service) awardBonuses(ctx context.Context, repos TransactionalRepositories, sellerID uuid.UUID, in commission.PaymentInput, now time.Time) ([]*commission.BonusAward, error) {
	rules, err := repos.BonusRules().FindActiveForSeller(ctx, sellerID)
	if err != nil {
		return nil, fmt.Errorf("load bonus rules: %w", err)
	}

	var awards []*commission.BonusAward
	for _, rule := range rules {
		if !rule.AppliesTo(sellerID) || !rule.Period.IsValid() {
			continue
		}
		start, end := rule.Period.Window(in.PaymentDate)
		paid, err := repos.Ledger().FindPaid(ctx, sellerID, start, end)
		if err != nil {
			return nil, fmt.Errorf("load paid entries: %w", err)
		}
		progress := commission.EvaluateBonus(rule, sellerID, in.PaymentDate, paid)
		if !progress.Met() {
			continue
		}
		award, err := commission.NewBonusAward(progress, in.OpportunityID, in.ExternalPaymentRef, in.ActorID, now)
		if err != nil {
			return nil, err
		}
		written, err := repos.BonusAwards().AppendIfAbsent(ctx, award)
		if err != nil {
			return nil, fmt.Errorf("append bonus award: %w", err)
		}
		if written {
			awards = append(awards, award)
		}
	}
	return awards, nil
}

// BonusProgress measures sellerID against every applicable bonus rule for the
// window containing asOf. period, when set, keeps only rules of that period.
func (s *Service) BonusProgress(ctx context.Context, sellerID uuid.UUID, period string, asOf *time.Time) ([]BonusProgressResponse, error) {
	at := s.clock()
	if asOf != nil {
		at = asOf.UTC()
	}
	var only commission.BonusPeriod
	if period != "" {
		only = commission.BonusPeriod(strings.ToUpper(strings.TrimSpace(period)))
		if !only.IsValid() {
			return nil, shared.ErrInvalidInput.WithDetail("period", period)
		}
	}

	rules, err := s.repos.BonusRules().FindActiveForSeller(ctx, sellerID)
	if err != nil {
		return nil, fmt.Errorf("load bonus rules: %w", err)
	}

	out := make([]BonusProgressResponse, 0, len(rules))
	for _, rule := range rules {
		if !rule.AppliesTo(sellerID) || !rule.Period.IsValid() {
			continue
		}
		if only != "" && rule.Period != only {
			continue
		}
		start, end := rule.Period.Window(at)
		paid, err := s.repos.Ledger().FindPaid(ctx, sellerID, start, end)
		if err != nil {
			return nil, fmt.Errorf("load paid entries: %w", err)
		}
		progress := commission.EvaluateBonus(rule, sellerID, at, paid)

		awards, err := s.repos.BonusAwards().FindBySeller(ctx, sellerID, start, end)
		if err != nil {
			return nil, fmt.Errorf("load bonus awards: %w", err)
		}
		progress.Awarded = slices.ContainsFunc(awards, func(a commission.BonusAward) bool {
			return a.BonusRuleID == rule.ID && a.PeriodStart.Equal(start)
		})
		out = append(out, toBonusProgressResponse(progress))
	}
	return out, nil
}

// =============================================================================
// Reads
// =============================================================================

// SellerBalance derives what is still owed to a seller, per currency,
// optionally limited to one opportunity.
func (s *Service) SellerBalance(ctx context.Context, sellerID uuid.UUID, opportunityID *uuid.UUID) (*SellerBalanceResponse, error) {
	entries, err := s.repos.Ledger().FindBySeller(ctx, sellerID, opportunityID)
	if err != nil {
		return nil, fmt.Errorf("load seller ledger: %w", err)
	}

	byCurrency := make(map[string][]commission.LedgerEntry)
	for _, e := range entries {
		byCurrency[e.Currency] = append(byCurrency[e.Currency], e)
	}

	resp := &SellerBalanceResponse{
		SellerID:      sellerID,
		OpportunityID: opportunityID,
		Balances:      make([]CurrencyBalance, 0, len(byCurrency)),
	}
	for _, currency := range slices.Sorted(maps.Keys(byCurrency)) {
		b := commission.Summarize(byCurrency[currency])
		resp.Balances = append(resp.Balances, CurrencyBalance{
			Currency: currency,
			Accrued:  b.Accrued,
			Adjusted: b.Adjusted,
			Reversed: b.Reversed,
			Paid:     b.Paid,
			Net:      b.Net(),
			Entries:  b.Entries,
		})
	}
	return resp, nil
}

// ListOpportunityEntries pages through an opportunity's ledger in creation order.
func (s *Service) ListOpportunityEntries(ctx context.Context, opportunityID uuid.UUID, filter EntryListFilter) ([]LedgerEntryResponse, int64, error) {
	entries, total, err := s.repos.Ledger().ListByOpportunity(ctx, opportunityID, shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		SortBy:   filter.SortBy,
		SortDir:  filter.SortDir,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list ledger entries: %w", err)
	}
	return toLedgerEntryResponses(entries), total, nil
}

func (s *Service) GetEntry(ctx context.Context, id uuid.UUID) (*LedgerEntryResponse, error) {
	e, err := s.findEntry(ctx, s.repos, id)
	if err != nil {
		return nil, err
	}
	r := ToLedgerEntryResponse(e)
	return &r, nil
}
