// Package models contains GORM persistence models for the commission engine.
// Domain entities stay free of ORM tags; each model converts to and from its
// domain type.
//
// Tables fall into two groups:
//   - CRM read models (opportunities, accounts, commission rules, bonus rules,
//     collaborators) owned by the CRUD layer and only read here.
//   - Ledger tables (commission_ledger_entries, commission_bonus_awards) owned by
//     this service. They are append-only.
package models
