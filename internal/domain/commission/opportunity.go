package commission

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Opportunity is the read model the engine needs from the CRM opportunity
// store. The engine never writes it.
type Opportunity struct {
	ID           uuid.UUID
	OwnerID      uuid.UUID
	AccountID    uuid.UUID
	ChannelID    *uuid.UUID
	CategoryID   *uuid.UUID
	CategoryName string
	Amount       decimal.Decimal
	Currency     string
	Status       string
}

// Account supplies the sales channel when the opportunity does not carry one.
type Account struct {
	ID        uuid.UUID
	Name      string
	ChannelID *uuid.UUID
}

// CategorySnapshot is the frozen category stored on accrual entries.
type CategorySnapshot struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}
