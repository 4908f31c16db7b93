package persistence

import (
	"errors"
	"strings"

	"github.com/FirplakDesarrollador/CRM-sub001/internal/domain/shared"
	"gorm.io/gorm"
)

// isUniqueViolation recognizes duplicate-key failures. TranslateError covers
// dialects that support it; the message check covers connections opened
// without it.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "SQLSTATE 23505")
}

// translate maps driver errors onto shared domain errors.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return shared.ErrNotFound
	case isUniqueViolation(err):
		return shared.ErrAlreadyExists
	}
	return err
}
