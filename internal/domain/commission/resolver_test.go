package commission

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var saleDay = time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)

func newRule(percent int64) CommissionRule {
	return CommissionRule{
		ID:                uuid.New(),
		Name:              "rule",
		CommissionPercent: decimal.NewFromInt(percent),
		ActiveFrom:        time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		IsActive:          true,
	}
}

func ptr[T any](v T) *T { return &v }

func testSale() SaleContext {
	return SaleContext{
		SellerID:   uuid.New(),
		AccountID:  uuid.New(),
		ChannelID:  ptr(uuid.New()),
		CategoryID: ptr(uuid.New()),
		On:         saleDay,
	}
}

// ============================================
// Matching
// ============================================

func TestCommissionRule_Match(t *testing.T) {
	sale := testSale()

	t.Run("wildcard matches with score 0", func(t *testing.T) {
		r := newRule(5)
		score, dims, ok := r.Match(sale)
		assert.True(t, ok)
		assert.Equal(t, 0, score)
		assert.Empty(t, dims)
	})

	t.Run("all dimensions score 15", func(t *testing.T) {
		r := newRule(5)
		r.SellerID = &sale.SellerID
		r.AccountIDs = []uuid.UUID{uuid.New(), sale.AccountID}
		r.CategoryID = sale.CategoryID
		r.ChannelID = sale.ChannelID
		score, dims, ok := r.Match(sale)
		require.True(t, ok)
		assert.Equal(t, 15, score)
		assert.Equal(t, []Dimension{DimensionSeller, DimensionAccount, DimensionCategory, DimensionChannel}, dims)
	})

	t.Run("seller mismatch excludes", func(t *testing.T) {
		r := newRule(5)
		r.SellerID = ptr(uuid.New())
		_, _, ok := r.Match(sale)
		assert.False(t, ok)
	})

	t.Run("account set without sale account excludes", func(t *testing.T) {
		r := newRule(5)
		r.AccountIDs = []uuid.UUID{uuid.New()}
		_, _, ok := r.Match(sale)
		assert.False(t, ok)
	})

	t.Run("channel matcher needs a sale channel", func(t *testing.T) {
		r := newRule(5)
		r.ChannelID = ptr(uuid.New())
		noChannel := sale
		noChannel.ChannelID = nil
		_, _, ok := r.Match(noChannel)
		assert.False(t, ok)
	})

	t.Run("inactive rule excluded", func(t *testing.T) {
		r := newRule(5)
		r.IsActive = false
		_, _, ok := r.Match(sale)
		assert.False(t, ok)
	})
}

func TestCommissionRule_ActiveOn(t *testing.T) {
	r := newRule(5)
	r.ActiveFrom = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	r.ActiveTo = ptr(time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC))

	assert.False(t, r.ActiveOn(time.Date(2025, 2, 28, 23, 59, 0, 0, time.UTC)))
	assert.True(t, r.ActiveOn(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, r.ActiveOn(time.Date(2025, 3, 15, 23, 0, 0, 0, time.UTC)), "active_to is inclusive by day")
	assert.False(t, r.ActiveOn(time.Date(2025, 3, 16, 0, 0, 0, 0, time.UTC)))
}

func TestCommissionRule_Validate(t *testing.T) {
	r := newRule(5)
	assert.NoError(t, r.Validate())

	r.CommissionPercent = decimal.NewFromInt(101)
	assert.Error(t, r.Validate())

	r = newRule(5)
	r.ActiveTo = ptr(r.ActiveFrom.AddDate(0, 0, -1))
	assert.Error(t, r.Validate())
}

// ============================================
// Resolve
// ============================================

func TestResolve_SpecificityOrdering(t *testing.T) {
	sale := testSale()

	channelOnly := newRule(20)
	channelOnly.ChannelID = sale.ChannelID

	sellerAccount := newRule(3)
	sellerAccount.SellerID = &sale.SellerID
	sellerAccount.AccountIDs = []uuid.UUID{sale.AccountID}

	for _, rules := range [][]CommissionRule{
		{channelOnly, sellerAccount},
		{sellerAccount, channelOnly},
	} {
		res, err := Resolve(sale, rules)
		require.NoError(t, err)
		assert.Equal(t, sellerAccount.ID, res.Rule.ID)
		assert.Equal(t, 12, res.Score)
		assert.False(t, res.Fallback)
	}
}

func TestResolve_TieBreakLowestPercent(t *testing.T) {
	sale := testSale()
	eight := newRule(8)
	eight.SellerID = &sale.SellerID
	five := newRule(5)
	five.SellerID = &sale.SellerID

	res, err := Resolve(sale, []CommissionRule{eight, five})
	require.NoError(t, err)
	assert.Equal(t, five.ID, res.Rule.ID)
	assert.True(t, res.Rule.CommissionPercent.Equal(decimal.NewFromInt(5)))
}

func TestResolve_TieBreakByIDIsOrderIndependent(t *testing.T) {
	sale := testSale()
	a := newRule(5)
	b := newRule(5)

	first, err := Resolve(sale, []CommissionRule{a, b})
	require.NoError(t, err)
	second, err := Resolve(sale, []CommissionRule{b, a})
	require.NoError(t, err)
	assert.Equal(t, first.Rule.ID, second.Rule.ID)
}

func TestResolve_Deterministic(t *testing.T) {
	sale := testSale()
	rules := []CommissionRule{newRule(5), newRule(7), newRule(2)}
	rules[1].CategoryID = sale.CategoryID

	first, err := Resolve(sale, rules)
	require.NoError(t, err)
	for range 10 {
		again, err := Resolve(sale, rules)
		require.NoError(t, err)
		assert.Equal(t, first.Rule.ID, again.Rule.ID)
		assert.Equal(t, first.Score, again.Score)
	}
}

func TestResolve_FallsBackToWildcard(t *testing.T) {
	sale := testSale()
	general := newRule(5)
	other := newRule(9)
	other.SellerID = ptr(uuid.New())

	res, err := Resolve(sale, []CommissionRule{other, general})
	require.NoError(t, err)
	assert.Equal(t, general.ID, res.Rule.ID)
	assert.True(t, res.Fallback)
}

func TestResolve_NoApplicableRule(t *testing.T) {
	sale := testSale()
	other := newRule(9)
	other.SellerID = ptr(uuid.New())

	_, err := Resolve(sale, []CommissionRule{other})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoApplicableRule))

	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindNoApplicableRule, kind)
	assert.Contains(t, err.Error(), sale.SellerID.String())
	assert.NotContains(t, err.Error(), other.ID.String(), "unrelated rule ids must not leak")
}

func TestResolution_Snapshot(t *testing.T) {
	sale := testSale()
	r := newRule(8)
	r.SellerID = &sale.SellerID
	r.ActiveTo = ptr(time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC))

	res, err := Resolve(sale, []CommissionRule{r})
	require.NoError(t, err)

	raw, err := res.Snapshot().Encode()
	require.NoError(t, err)
	snap, err := DecodeRuleSnapshot(raw)
	require.NoError(t, err)

	assert.Equal(t, r.ID.String(), snap.ID)
	assert.Equal(t, "8", snap.CommissionPercent)
	assert.Equal(t, 8, snap.Score)
	assert.Equal(t, []string{"seller"}, snap.MatchedOn)
	assert.Equal(t, "2025-12-31", *snap.ActiveTo)
}
