package commission

import (
	"time"

	"github.com/FirplakDesarrollador/CRM-sub001/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BonusPeriod is the calendar window over which a collection target is measured.
type BonusPeriod string

const (
	PeriodMonthly   BonusPeriod = "MONTHLY"
	PeriodQuarterly BonusPeriod = "QUARTERLY"
	PeriodYearly    BonusPeriod = "YEARLY"
)

func (p BonusPeriod) String() string {
	return string(p)
}

func (p BonusPeriod) IsValid() bool {
	switch p {
	case PeriodMonthly, PeriodQuarterly, PeriodYearly:
		return true
	}
	return false
}

// Window returns the UTC calendar period [start, end) that contains asOf.
func (p BonusPeriod) Window(asOf time.Time) (time.Time, time.Time) {
	t := asOf.UTC()
	switch p {
	case PeriodMonthly:
		start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, 0)
	case PeriodQuarterly:
		q := (int(t.Month()) - 1) / 3
		start := time.Date(t.Year(), time.Month(q*3+1), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 3, 0)
	case PeriodYearly:
		start := time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(1, 0, 0)
	}
	return t, t
}

// BonusRule is a collection target for one seller, or for every seller when
// SellerID is nil.
type BonusRule struct {
	ID               uuid.UUID
	Name             string
	SellerID         *uuid.UUID
	Period           BonusPeriod
	CollectionTarget decimal.Decimal
	BonusAmount      decimal.Decimal
	Currency         string
	IsActive         bool
}

// AppliesTo reports whether sellerID progresses toward this rule.
func (b *BonusRule) AppliesTo(sellerID uuid.UUID) bool {
	return b.IsActive && (b.SellerID == nil || *b.SellerID == sellerID)
}

// IsGlobal reports whether the rule applies to every seller.
func (b *BonusRule) IsGlobal() bool {
	return b.SellerID == nil
}

// BonusProgress is a seller's standing against one bonus rule in one window.
type BonusProgress struct {
	Rule            BonusRule
	SellerID        uuid.UUID
	WindowStart     time.Time
	WindowEnd       time.Time
	Target          decimal.Decimal
	Collected       decimal.Decimal
	BonusAmount     decimal.Decimal
	PercentComplete decimal.Decimal
	Awarded         bool
}

// Met reports whether the collection target has been reached.
func (p BonusProgress) Met() bool {
	return p.PercentComplete.GreaterThanOrEqual(hundred)
}

// EvaluateBonus measures sellerID against rule for the window containing asOf.
// Collected is the sum of base amounts of the seller's PAGADA entries whose
// payment date falls in the window. When the rule names a currency, entries in
// other currencies are ignored.
func EvaluateBonus(rule BonusRule, sellerID uuid.UUID, asOf time.Time, entries []LedgerEntry) BonusProgress {
	start, end := rule.Period.Window(asOf)
	collected := decimal.Zero
	for i := range entries {
		e := &entries[i]
		if e.EventType != EventPaid || e.SellerID != sellerID {
			continue
		}
		if e.EffectiveAt.Before(start) || !e.EffectiveAt.Before(end) {
			continue
		}
		if rule.Currency != "" && e.Currency != rule.Currency {
			continue
		}
		collected = collected.Add(e.BaseAmount)
	}
	return BonusProgress{
		Rule:            rule,
		SellerID:        sellerID,
		WindowStart:     start,
		WindowEnd:       end,
		Target:          rule.CollectionTarget,
		Collected:       collected,
		BonusAmount:     rule.BonusAmount,
		PercentComplete: PercentComplete(collected, rule.CollectionTarget),
	}
}

// PercentComplete is min(100, collected / target × 100). A zero target is
// already satisfied.
func PercentComplete(collected, target decimal.Decimal) decimal.Decimal {
	if !target.IsPositive() {
		return hundred
	}
	pct := collected.Mul(hundred).Div(target).Round(2)
	if pct.GreaterThan(hundred) {
		return hundred
	}
	return pct
}

// BonusAward marks that a seller met a bonus rule for one window. At most one
// award exists per (rule, seller, window start); its presence is what makes
// repeated payment registration award nothing new.
type BonusAward struct {
	shared.BaseEntity
	BonusRuleID        uuid.UUID
	SellerID           uuid.UUID
	PeriodStart        time.Time
	PeriodEnd          time.Time
	Collected          decimal.Decimal
	BonusAmount        decimal.Decimal
	Currency           string
	OpportunityID      uuid.UUID
	ExternalPaymentRef string
	CreatedBy          string
}

// NewBonusAward records that progress has met its target.
func NewBonusAward(p BonusProgress, opportunityID uuid.UUID, externalRef, actorID string, now time.Time) (*BonusAward, error) {
	if !p.Met() {
		return nil, shared.NewDomainError("BONUS_NOT_MET", "Bonus target has not been reached").
			WithDetail("bonus_rule_id", p.Rule.ID.String())
	}
	return &BonusAward{
		BaseEntity:         shared.NewBaseEntity(now),
		BonusRuleID:        p.Rule.ID,
		SellerID:           p.SellerID,
		PeriodStart:        p.WindowStart,
		PeriodEnd:          p.WindowEnd,
		Collected:          p.Collected,
		BonusAmount:        p.BonusAmount,
		Currency:           p.Rule.Currency,
		OpportunityID:      opportunityID,
		ExternalPaymentRef: externalRef,
		CreatedBy:          actorID,
	}, nil
}
