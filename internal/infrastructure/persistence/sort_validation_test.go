package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSortOrder(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		def      string
		expected string
	}{
		{"empty string returns default", "", "ASC", "ASC"},
		{"asc lowercase returns ASC", "asc", "DESC", "ASC"},
		{"desc lowercase returns DESC", "desc", "ASC", "DESC"},
		{"invalid value returns default", "INVALID", "ASC", "ASC"},
		{"sql injection attempt returns default", "ASC; DROP TABLE commission_ledger_entries;--", "ASC", "ASC"},
		{"whitespace around DESC returns DESC", "  desc  ", "ASC", "DESC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateSortOrder(tt.input, tt.def))
		})
	}
}

func TestValidateSortField(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string returns default", "", "created_at"},
		{"valid field returns field", "effective_at", "effective_at"},
		{"case is folded", "EVENT_TYPE", "event_type"},
		{"unknown field returns default", "reason", "created_at"},
		{"sql injection attempt returns default", "id; DROP TABLE users;--", "created_at"},
		{"whitespace around valid field returns field", "  seller_id  ", "seller_id"},
		{"field with quotes injection returns default", "event_type'--", "created_at"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateSortField(tt.input, LedgerSortFields, "created_at"))
		})
	}
}

func TestLedgerOrder(t *testing.T) {
	assert.Equal(t, "created_at ASC, id ASC", ledgerOrder("", ""))
	assert.Equal(t, "created_at DESC, id DESC", ledgerOrder("created_at", "desc"))
	assert.Equal(t, "commission_amount DESC, created_at ASC, id ASC", ledgerOrder("commission_amount", "DESC"))
	assert.Equal(t, "created_at ASC, id ASC", ledgerOrder("password", "sideways"))
}
