package commission

import (
	"context"
	"time"

	"github.com/FirplakDesarrollador/CRM-sub001/internal/domain/shared"
	"github.com/google/uuid"
)

// RuleRepository reads commission rules. Rules are maintained elsewhere.
type RuleRepository interface {
	// FindActive returns rules flagged active whose window contains the day of on.
	FindActive(ctx context.Context, on time.Time) ([]CommissionRule, error)
}

// BonusRuleRepository reads bonus rules.
type BonusRuleRepository interface {
	// FindActiveForSeller returns active rules that name sellerID or no seller.
	FindActiveForSeller(ctx context.Context, sellerID uuid.UUID) ([]BonusRule, error)
}

// CollaboratorRepository reads collaborator splits.
type CollaboratorRepository interface {
	// FindActiveByOpportunity excludes soft-deleted collaborators.
	FindActiveByOpportunity(ctx context.Context, opportunityID uuid.UUID) ([]Collaborator, error)
}

// OpportunityRepository reads opportunities from the CRM store.
type OpportunityRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Opportunity, error)
}

// AccountRepository reads accounts from the CRM store.
type AccountRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Account, error)
}

// LedgerRepository is the only write path to the ledger. It can append and
// read; there is deliberately no way to update or delete an entry.
type LedgerRepository interface {
	// Append inserts entries. A unique-key collision returns shared.ErrAlreadyExists.
	Append(ctx context.Context, entries ...*LedgerEntry) error
	// AppendIfAbsent inserts entry unless another entry already holds its
	// ExclusiveKey. It reports whether the row was written.
	AppendIfAbsent(ctx context.Context, entry *LedgerEntry) (bool, error)

	FindByID(ctx context.Context, id uuid.UUID) (*LedgerEntry, error)
	// FindByOpportunity returns all entries of an opportunity in creation order.
	FindByOpportunity(ctx context.Context, opportunityID uuid.UUID) ([]LedgerEntry, error)
	// FindAccruals returns the DEVENGADA entries written for one idempotency key.
	FindAccruals(ctx context.Context, opportunityID uuid.UUID, idempotencyKey string) ([]LedgerEntry, error)
	// FindBySeller returns a seller's entries, optionally limited to one opportunity.
	FindBySeller(ctx context.Context, sellerID uuid.UUID, opportunityID *uuid.UUID) ([]LedgerEntry, error)
	// FindPaid returns a seller's PAGADA entries effective in [from, to).
	FindPaid(ctx context.Context, sellerID uuid.UUID, from, to time.Time) ([]LedgerEntry, error)
	// ListByOpportunity pages through an opportunity's entries.
	ListByOpportunity(ctx context.Context, opportunityID uuid.UUID, filter shared.Filter) ([]LedgerEntry, int64, error)
}

// BonusAwardRepository stores award markers, append-only.
type BonusAwardRepository interface {
	// AppendIfAbsent inserts award unless one exists for the same rule, seller
	// and window start. It reports whether the row was written.
	AppendIfAbsent(ctx context.Context, award *BonusAward) (bool, error)
	// FindBySeller returns the seller's awards whose window starts in [from, to).
	FindBySeller(ctx context.Context, sellerID uuid.UUID, from, to time.Time) ([]BonusAward, error)
}
