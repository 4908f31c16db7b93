package persistence

import (
	"strings"
)

// ValidateSortOrder normalizes orderDir to ASC or DESC, falling back to
// defaultOrder for anything else.
func ValidateSortOrder(orderDir, defaultOrder string) string {
	switch strings.ToUpper(strings.TrimSpace(orderDir)) {
	case "ASC":
		return "ASC"
	case "DESC":
		return "DESC"
	}
	return defaultOrder
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.ToLower(strings.TrimSpace(sortField))
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// LedgerSortFields are the columns a ledger listing may be ordered by.
var LedgerSortFields = map[string]bool{
	"created_at":        true,
	"effective_at":      true,
	"event_type":        true,
	"seller_id":         true,
	"commission_amount": true,
}

// defaultLedgerOrder is creation order, the order entries were appended in.
var defaultLedgerOrder = ledgerOrder("", "")

// ledgerOrder builds the ORDER BY clause for a ledger listing. Ties always
// break on id so pages never overlap.
func ledgerOrder(sortBy, sortDir string) string {
	field := ValidateSortField(sortBy, LedgerSortFields, "created_at")
	dir := ValidateSortOrder(sortDir, "ASC")
	if field == "created_at" {
		return "created_at " + dir + ", id " + dir
	}
	return field + " " + dir + ", created_at ASC, id ASC"
}
