package commission

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Balance is a derived view over ledger entries. Nothing here is stored.
type Balance struct {
	Accrued  decimal.Decimal
	Adjusted decimal.Decimal
	Reversed decimal.Decimal
	Paid     decimal.Decimal
	Entries  int
}

// Net is what is still owed: accrued + adjusted + reversed - paid.
func (b Balance) Net() decimal.Decimal {
	return b.Accrued.Add(b.Adjusted).Add(b.Reversed).Sub(b.Paid)
}

// Summarize folds entries into a Balance.
func Summarize(entries []LedgerEntry) Balance {
	b := Balance{
		Accrued:  decimal.Zero,
		Adjusted: decimal.Zero,
		Reversed: decimal.Zero,
		Paid:     decimal.Zero,
	}
	for i := range entries {
		e := &entries[i]
		switch e.EventType {
		case EventAccrued:
			b.Accrued = b.Accrued.Add(e.CommissionAmount)
		case EventAdjustment:
			b.Adjusted = b.Adjusted.Add(e.CommissionAmount)
		case EventReversal:
			b.Reversed = b.Reversed.Add(e.CommissionAmount)
		case EventPaid:
			b.Paid = b.Paid.Add(e.CommissionAmount)
		}
		b.Entries++
	}
	return b
}

// Chain groups an accrual with the entries that reference it.
type Chain struct {
	Accrual     LedgerEntry
	Adjustments []LedgerEntry
	Reversal    *LedgerEntry
	Payment     *LedgerEntry
}

// Outstanding is the accrual's commission after its adjustments and reversal,
// ignoring any payment.
func (c *Chain) Outstanding() decimal.Decimal {
	total := c.Accrual.CommissionAmount
	for _, a := range c.Adjustments {
		total = total.Add(a.CommissionAmount)
	}
	if c.Reversal != nil {
		total = total.Add(c.Reversal.CommissionAmount)
	}
	return total
}

// IsMirrored reports whether a PAGADA entry already references the accrual.
func (c *Chain) IsMirrored() bool {
	return c.Payment != nil
}

// BuildChains groups an opportunity's entries by accrual, in accrual order.
func BuildChains(entries []LedgerEntry) []*Chain {
	byID := make(map[uuid.UUID]*Chain)
	var chains []*Chain
	for _, e := range entries {
		if e.EventType == EventAccrued {
			c := &Chain{Accrual: e}
			byID[e.ID] = c
			chains = append(chains, c)
		}
	}
	for _, e := range entries {
		if e.ReferenceEntryID == nil {
			continue
		}
		c, ok := byID[*e.ReferenceEntryID]
		if !ok {
			continue
		}
		switch e.EventType {
		case EventAdjustment:
			c.Adjustments = append(c.Adjustments, e)
		case EventReversal:
			c.Reversal = &e
		case EventPaid:
			c.Payment = &e
		case EventAccrued:
		}
	}
	return chains
}
