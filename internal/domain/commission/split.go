package commission

import (
	"bytes"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Collaborator is a user other than (or explicitly including) the owner who
// receives a share of an opportunity's commission.
type Collaborator struct {
	ID            uuid.UUID
	OpportunityID uuid.UUID
	UserID        uuid.UUID
	Percent       decimal.Decimal
	Role          string
	DeletedAt     *time.Time
}

// IsActive reports whether the collaborator has not been soft-deleted.
func (c Collaborator) IsActive() bool {
	return c.DeletedAt == nil
}

// Share is one beneficiary's part of a gross commission.
type Share struct {
	UserID  uuid.UUID
	Percent decimal.Decimal // share of the gross commission, 0-100
	Amount  decimal.Decimal
	IsOwner bool
	Role    string
}

// OwnerRole tags the implicit owner share.
const OwnerRole = "owner"

// Split distributes gross among the owner and the active collaborators.
//
// With no collaborators the owner takes everything. An owner listed among the
// collaborators gets exactly the listed percentage; otherwise the owner gets
// 100 minus the collaborators' total. Amounts are truncated to MoneyScale, so
// the shares never add up to more than gross. Shares with a zero percentage
// are omitted. The owner comes first, then collaborators ordered by user id.
func Split(gross decimal.Decimal, ownerID uuid.UUID, collaborators []Collaborator) ([]Share, error) {
	if gross.IsNegative() {
		return nil, ErrInvalidSplit.WithDetail("gross", gross.String())
	}

	active := make([]Collaborator, 0, len(collaborators))
	for _, c := range collaborators {
		if c.IsActive() {
			active = append(active, c)
		}
	}
	slices.SortFunc(active, func(a, b Collaborator) int {
		return compareUUID(a.UserID, b.UserID)
	})

	total := decimal.Zero
	ownerListed := false
	seen := make(map[uuid.UUID]bool, len(active))
	for _, c := range active {
		if !c.Percent.IsPositive() || c.Percent.GreaterThan(hundred) {
			return nil, ErrInvalidSplit.
				WithDetail("user_id", c.UserID.String()).
				WithDetail("percent", c.Percent.String())
		}
		if seen[c.UserID] {
			return nil, ErrInvalidSplit.
				WithDetail("user_id", c.UserID.String()).
				WithDetail("reason", "duplicate collaborator")
		}
		seen[c.UserID] = true
		if c.UserID == ownerID {
			ownerListed = true
		}
		total = total.Add(c.Percent)
	}
	if total.GreaterThan(hundred) {
		return nil, ErrInvalidSplit.WithDetail("percent_total", total.String())
	}

	shares := make([]Share, 0, len(active)+1)
	if !ownerListed {
		if rest := hundred.Sub(total); rest.IsPositive() {
			shares = append(shares, Share{
				UserID:  ownerID,
				Percent: rest,
				Amount:  PercentOf(gross, rest),
				IsOwner: true,
				Role:    OwnerRole,
			})
		}
	}
	for _, c := range active {
		s := Share{
			UserID:  c.UserID,
			Percent: c.Percent,
			Amount:  PercentOf(gross, c.Percent),
			IsOwner: c.UserID == ownerID,
			Role:    c.Role,
		}
		if s.IsOwner {
			shares = slices.Insert(shares, 0, s)
			continue
		}
		shares = append(shares, s)
	}
	return shares, nil
}

// TotalShares sums the share amounts.
func TotalShares(shares []Share) decimal.Decimal {
	sum := decimal.Zero
	for _, s := range shares {
		sum = sum.Add(s.Amount)
	}
	return sum
}

func compareUUID(a, b uuid.UUID) int {
	return bytes.Compare(a[:], b[:])
}
