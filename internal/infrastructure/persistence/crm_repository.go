package persistence

import (
	"context"
	"errors"

	"github.com/FirplakDesarrollador/CRM-sub001/internal/domain/commission"
	"github.com/FirplakDesarrollador/CRM-sub001/internal/domain/shared"
	"github.com/FirplakDesarrollador/CRM-sub001/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormOpportunityRepository reads CRM opportunities.
type GormOpportunityRepository struct {
	db *gorm.DB
}

func NewGormOpportunityRepository(db *gorm.DB) *GormOpportunityRepository {
	return &GormOpportunityRepository{db: db}
}

func (r *GormOpportunityRepository) FindByID(ctx context.Context, id uuid.UUID) (*commission.Opportunity, error) {
	var m models.OpportunityModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// GormAccountRepository reads CRM accounts.
type GormAccountRepository struct {
	db *gorm.DB
}

func NewGormAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

func (r *GormAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*commission.Account, error) {
	var m models.AccountModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// GormCollaboratorRepository reads opportunity collaborators.
type GormCollaboratorRepository struct {
	db *gorm.DB
}

func NewGormCollaboratorRepository(db *gorm.DB) *GormCollaboratorRepository {
	return &GormCollaboratorRepository{db: db}
}

func (r *GormCollaboratorRepository) FindActiveByOpportunity(ctx context.Context, opportunityID uuid.UUID) ([]commission.Collaborator, error) {
	var rows []models.CollaboratorModel
	if err := r.db.WithContext(ctx).
		Where("opportunity_id = ? AND deleted_at IS NULL", opportunityID).
		Order("user_id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]commission.Collaborator, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

var (
	_ commission.OpportunityRepository  = (*GormOpportunityRepository)(nil)
	_ commission.AccountRepository      = (*GormAccountRepository)(nil)
	_ commission.CollaboratorRepository = (*GormCollaboratorRepository)(nil)
)
