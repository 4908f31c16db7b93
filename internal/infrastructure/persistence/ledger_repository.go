package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/FirplakDesarrollador/CRM-sub001/internal/domain/commission"
	"github.com/FirplakDesarrollador/CRM-sub001/internal/domain/shared"
	"github.com/FirplakDesarrollador/CRM-sub001/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormLedgerRepository implements commission.LedgerRepository. It only ever
// issues INSERT and SELECT statements.
type GormLedgerRepository struct {
	db *gorm.DB
}

func NewGormLedgerRepository(db *gorm.DB) *GormLedgerRepository {
	return &GormLedgerRepository{db: db}
}

// Append inserts all entries in one statement.
func (r *GormLedgerRepository) Append(ctx context.Context, entries ...*commission.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}
	rows := make([]*models.LedgerEntryModel, len(entries))
	for i, e := range entries {
		if !e.EventType.IsValid() {
			return fmt.Errorf("append ledger entry %s: invalid event type %q", e.ID, e.EventType)
		}
		rows[i] = models.LedgerEntryModelFromDomain(e)
	}
	return translate(r.db.WithContext(ctx).Create(rows).Error)
}

// AppendIfAbsent inserts entry with ON CONFLICT (exclusive_key) DO NOTHING, so
// concurrent reversals or payment mirrors of one accrual cannot both land.
func (r *GormLedgerRepository) AppendIfAbsent(ctx context.Context, entry *commission.LedgerEntry) (bool, error) {
	if entry.ExclusiveKey() == "" {
		return false, fmt.Errorf("append ledger entry %s: %s entries have no exclusive key", entry.ID, entry.EventType)
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "exclusive_key"}},
			DoNothing: true,
		}).
		Create(models.LedgerEntryModelFromDomain(entry))
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *GormLedgerRepository) FindByID(ctx context.Context, id uuid.UUID) (*commission.LedgerEntry, error) {
	var m models.LedgerEntryModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

func (r *GormLedgerRepository) FindByOpportunity(ctx context.Context, opportunityID uuid.UUID) ([]commission.LedgerEntry, error) {
	return r.find(r.db.WithContext(ctx).Where("opportunity_id = ?", opportunityID), defaultLedgerOrder)
}

func (r *GormLedgerRepository) FindAccruals(ctx context.Context, opportunityID uuid.UUID, idempotencyKey string) ([]commission.LedgerEntry, error) {
	return r.find(r.db.WithContext(ctx).
		Where("opportunity_id = ? AND idempotency_key = ? AND event_type = ?",
			opportunityID, idempotencyKey, commission.EventAccrued), defaultLedgerOrder)
}

func (r *GormLedgerRepository) FindBySeller(ctx context.Context, sellerID uuid.UUID, opportunityID *uuid.UUID) ([]commission.LedgerEntry, error) {
	q := r.db.WithContext(ctx).Where("seller_id = ?", sellerID)
	if opportunityID != nil {
		q = q.Where("opportunity_id = ?", *opportunityID)
	}
	return r.find(q, defaultLedgerOrder)
}

func (r *GormLedgerRepository) FindPaid(ctx context.Context, sellerID uuid.UUID, from, to time.Time) ([]commission.LedgerEntry, error) {
	return r.find(r.db.WithContext(ctx).
		Where("seller_id = ? AND event_type = ? AND effective_at >= ? AND effective_at < ?",
			sellerID, commission.EventPaid, from.UTC(), to.UTC()), defaultLedgerOrder)
}

func (r *GormLedgerRepository) ListByOpportunity(ctx context.Context, opportunityID uuid.UUID, filter shared.Filter) ([]commission.LedgerEntry, int64, error) {
	filter = filter.Normalize()
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.LedgerEntryModel{}).
		Where("opportunity_id = ?", opportunityID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}
	entries, err := r.find(r.db.WithContext(ctx).
		Where("opportunity_id = ?", opportunityID).
		Offset(filter.Offset()).
		Limit(filter.PageSize), ledgerOrder(filter.SortBy, filter.SortDir))
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (r *GormLedgerRepository) find(q *gorm.DB, order string) ([]commission.LedgerEntry, error) {
	var rows []models.LedgerEntryModel
	if err := q.Order(order).Find(&rows).Error; err != nil {
		return nil, err
	}
	entries := make([]commission.LedgerEntry, len(rows))
	for i := range rows {
		entries[i] = *rows[i].ToDomain()
	}
	return entries, nil
}

var _ commission.LedgerRepository = (*GormLedgerRepository)(nil)
