package persistence

import (
	"context"
	"time"

	"github.com/FirplakDesarrollador/CRM-sub001/internal/domain/commission"
	"github.com/FirplakDesarrollador/CRM-sub001/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormBonusAwardRepository stores bonus award markers.
type GormBonusAwardRepository struct {
	db *gorm.DB
}

func NewGormBonusAwardRepository(db *gorm.DB) *GormBonusAwardRepository {
	return &GormBonusAwardRepository{db: db}
}

func (r *GormBonusAwardRepository) AppendIfAbsent(ctx context.Context, award *commission.BonusAward) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "bonus_rule_id"}, {Name: "seller_id"}, {Name: "period_start"}},
			DoNothing: true,
		}).
		Create(models.BonusAwardModelFromDomain(award))
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *GormBonusAwardRepository) FindBySeller(ctx context.Context, sellerID uuid.UUID, from, to time.Time) ([]commission.BonusAward, error) {
	var rows []models.BonusAwardModel
	if err := r.db.WithContext(ctx).
		Where("seller_id = ? AND period_start >= ? AND period_start < ?", sellerID, from.UTC(), to.UTC()).
		Order("period_start ASC, created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	awards := make([]commission.BonusAward, len(rows))
	for i := range rows {
		awards[i] = *rows[i].ToDomain()
	}
	return awards, nil
}

var _ commission.BonusAwardRepository = (*GormBonusAwardRepository)(nil)
