package persistence

import (
	"context"
	"time"

	"github.com/FirplakDesarrollador/CRM-sub001/internal/domain/commission"
	"github.com/FirplakDesarrollador/CRM-sub001/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormRuleRepository reads commission rules.
type GormRuleRepository struct {
	db *gorm.DB
}

func NewGormRuleRepository(db *gorm.DB) *GormRuleRepository {
	return &GormRuleRepository{db: db}
}

// FindActive pre-filters by day window; the resolver re-checks each rule.
func (r *GormRuleRepository) FindActive(ctx context.Context, on time.Time) ([]commission.CommissionRule, error) {
	u := on.UTC()
	dayStart := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.AddDate(0, 0, 1)

	var rows []models.CommissionRuleModel
	if err := r.db.WithContext(ctx).
		Preload("Accounts").
		Where("is_active = ?", true).
		Where("active_from < ?", dayEnd).
		Where("active_to IS NULL OR active_to >= ?", dayStart).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	rules := make([]commission.CommissionRule, len(rows))
	for i := range rows {
		rules[i] = rows[i].ToDomain()
	}
	return rules, nil
}

// GormBonusRuleRepository reads bonus rules.
type GormBonusRuleRepository struct {
	db *gorm.DB
}

func NewGormBonusRuleRepository(db *gorm.DB) *GormBonusRuleRepository {
	return &GormBonusRuleRepository{db: db}
}

func (r *GormBonusRuleRepository) FindActiveForSeller(ctx context.Context, sellerID uuid.UUID) ([]commission.BonusRule, error) {
	var rows []models.BonusRuleModel
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("seller_id IS NULL OR seller_id = ?", sellerID).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	rules := make([]commission.BonusRule, len(rows))
	for i := range rows {
		rules[i] = rows[i].ToDomain()
	}
	return rules, nil
}

var (
	_ commission.RuleRepository      = (*GormRuleRepository)(nil)
	_ commission.BonusRuleRepository = (*GormBonusRuleRepository)(nil)
)
