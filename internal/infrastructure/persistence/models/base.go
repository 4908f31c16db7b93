package models

import (
	"time"

	"github.com/FirplakDesarrollador/CRM-sub001/internal/domain/shared"
	"github.com/google/uuid"
)

// AppendOnlyModel is the base for tables whose rows are never updated.
type AppendOnlyModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null;index"`
}

func (m *AppendOnlyModel) ToDomain() shared.BaseEntity {
	return shared.BaseEntity{ID: m.ID, CreatedAt: m.CreatedAt.UTC()}
}

func (m *AppendOnlyModel) FromDomainBaseEntity(e shared.BaseEntity) {
	m.ID = e.ID
	m.CreatedAt = e.CreatedAt.UTC()
}

// ReadModel is the base for CRM-owned tables.
type ReadModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AllModels lists every model, for AutoMigrate in tests and local tooling.
func AllModels() []any {
	return []any{
		&AccountModel{},
		&OpportunityModel{},
		&CollaboratorModel{},
		&CommissionRuleModel{},
		&CommissionRuleAccountModel{},
		&BonusRuleModel{},
		&LedgerEntryModel{},
		&BonusAwardModel{},
	}
}
