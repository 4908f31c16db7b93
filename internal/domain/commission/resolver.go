package commission

import (
	"time"

	"github.com/google/uuid"
)

// Dimension is one matcher axis of a commission rule.
type Dimension string

const (
	DimensionSeller   Dimension = "seller"
	DimensionAccount  Dimension = "account"
	DimensionCategory Dimension = "category"
	DimensionChannel  Dimension = "channel"
)

// Weight is the specificity contribution of an explicitly matched dimension.
func (d Dimension) Weight() int {
	switch d {
	case DimensionSeller:
		return 8
	case DimensionAccount:
		return 4
	case DimensionCategory:
		return 2
	case DimensionChannel:
		return 1
	}
	return 0
}

// SaleContext is what a rule is matched against.
type SaleContext struct {
	SellerID   uuid.UUID
	AccountID  uuid.UUID
	ChannelID  *uuid.UUID
	CategoryID *uuid.UUID
	On         time.Time
}

// Resolution is the outcome of Resolve: the chosen rule and why.
type Resolution struct {
	Rule     CommissionRule
	Score    int
	Matched  []Dimension
	Fallback bool // the winner constrains no dimension
}

// Snapshot freezes the resolved rule for a ledger entry.
func (r Resolution) Snapshot() RuleSnapshot {
	return r.Rule.Snapshot(r.Score, r.Matched)
}

// Match reports whether the rule is a candidate for sale and, if so, its
// specificity score and the dimensions it matched explicitly.
func (r *CommissionRule) Match(sale SaleContext) (int, []Dimension, bool) {
	if !r.ActiveOn(sale.On) {
		return 0, nil, false
	}
	var matched []Dimension
	if r.SellerID != nil {
		if *r.SellerID != sale.SellerID {
			return 0, nil, false
		}
		matched = append(matched, DimensionSeller)
	}
	if len(r.AccountIDs) > 0 {
		if !r.hasAccount(sale.AccountID) {
			return 0, nil, false
		}
		matched = append(matched, DimensionAccount)
	}
	if r.CategoryID != nil {
		if sale.CategoryID == nil || *r.CategoryID != *sale.CategoryID {
			return 0, nil, false
		}
		matched = append(matched, DimensionCategory)
	}
	if r.ChannelID != nil {
		if sale.ChannelID == nil || *r.ChannelID != *sale.ChannelID {
			return 0, nil, false
		}
		matched = append(matched, DimensionChannel)
	}
	score := 0
	for _, d := range matched {
		score += d.Weight()
	}
	return score, matched, true
}

// Resolve picks the single best rule for sale. Highest score wins; ties go to
// the lowest percentage, then to the lowest rule id so the result never
// depends on input order. An all-wildcard rule scores 0 and therefore acts as
// the fallback when nothing more specific matches.
func Resolve(sale SaleContext, rules []CommissionRule) (Resolution, error) {
	var (
		best  *CommissionRule
		score = -1
		dims  []Dimension
	)
	for i := range rules {
		r := &rules[i]
		s, m, ok := r.Match(sale)
		if !ok {
			continue
		}
		if best == nil || outranks(r, s, best, score) {
			best, score, dims = r, s, m
		}
	}
	if best == nil {
		return Resolution{}, noApplicableRule(sale)
	}
	return Resolution{
		Rule:     *best,
		Score:    score,
		Matched:  dims,
		Fallback: score == 0,
	}, nil
}

func outranks(r *CommissionRule, s int, best *CommissionRule, bestScore int) bool {
	if s != bestScore {
		return s > bestScore
	}
	if c := r.CommissionPercent.Cmp(best.CommissionPercent); c != 0 {
		return c < 0
	}
	return r.ID.String() < best.ID.String()
}

func noApplicableRule(sale SaleContext) error {
	err := ErrNoApplicableRule.
		WithDetail("seller_id", sale.SellerID.String()).
		WithDetail("account_id", sale.AccountID.String()).
		WithDetail("date", sale.On.UTC().Format(dateLayout))
	if sale.ChannelID != nil {
		err = err.WithDetail("channel_id", sale.ChannelID.String())
	}
	if sale.CategoryID != nil {
		err = err.WithDetail("category_id", sale.CategoryID.String())
	}
	return err
}
