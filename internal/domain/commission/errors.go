package commission

import (
	"errors"

	"github.com/FirplakDesarrollador/CRM-sub001/internal/domain/shared"
)

// ErrorKind is the closed set of business failures the engine reports.
type ErrorKind string

const (
	KindNoApplicableRule         ErrorKind = "NO_APPLICABLE_RULE"
	KindInvalidSplit             ErrorKind = "INVALID_SPLIT"
	KindInvalidAdjustment        ErrorKind = "INVALID_ADJUSTMENT"
	KindInvalidReferenceType     ErrorKind = "INVALID_REFERENCE_TYPE"
	KindEntryNotFound            ErrorKind = "ENTRY_NOT_FOUND"
	KindAlreadyReversed          ErrorKind = "ALREADY_REVERSED"
	KindOpportunityHasNoAccruals ErrorKind = "OPPORTUNITY_HAS_NO_ACCRUALS"
	KindDuplicateAccrual         ErrorKind = "DUPLICATE_ACCRUAL"
	KindOpportunityNotFound      ErrorKind = "OPPORTUNITY_NOT_FOUND"
	KindInvalidAccrual           ErrorKind = "INVALID_ACCRUAL"
	KindInvalidPayment           ErrorKind = "INVALID_PAYMENT"
)

// AllErrorKinds lists every kind, in declaration order.
var AllErrorKinds = []ErrorKind{
	KindNoApplicableRule,
	KindInvalidSplit,
	KindInvalidAdjustment,
	KindInvalidReferenceType,
	KindEntryNotFound,
	KindAlreadyReversed,
	KindOpportunityHasNoAccruals,
	KindDuplicateAccrual,
	KindOpportunityNotFound,
	KindInvalidAccrual,
	KindInvalidPayment,
}

func (k ErrorKind) String() string {
	return string(k)
}

func (k ErrorKind) IsValid() bool {
	switch k {
	case KindNoApplicableRule,
		KindInvalidSplit,
		KindInvalidAdjustment,
		KindInvalidReferenceType,
		KindEntryNotFound,
		KindAlreadyReversed,
		KindOpportunityHasNoAccruals,
		KindDuplicateAccrual,
		KindOpportunityNotFound,
		KindInvalidAccrual,
		KindInvalidPayment:
		return true
	}
	return false
}

// Message is the default human readable text for the kind.
func (k ErrorKind) Message() string {
	switch k {
	case KindNoApplicableRule:
		return "No commission rule applies to this sale"
	case KindInvalidSplit:
		return "Collaborator percentages are invalid"
	case KindInvalidAdjustment:
		return "Adjustment requires a non-zero amount and a reason"
	case KindInvalidReferenceType:
		return "Only accrual entries can be adjusted or reversed"
	case KindEntryNotFound:
		return "Ledger entry not found"
	case KindAlreadyReversed:
		return "Ledger entry has already been reversed"
	case KindOpportunityHasNoAccruals:
		return "Opportunity has no accrued commission"
	case KindDuplicateAccrual:
		return "Accrual for this idempotency key is already being recorded"
	case KindOpportunityNotFound:
		return "Opportunity not found"
	case KindInvalidAccrual:
		return "Accrual request is invalid"
	case KindInvalidPayment:
		return "Payment request is invalid"
	}
	return "Unknown commission error"
}

// Err returns a fresh domain error of this kind.
func (k ErrorKind) Err() *shared.DomainError {
	return shared.NewDomainError(string(k), k.Message())
}

// Sentinels for errors.Is. DomainError.Is compares codes, so detailed errors
// built with Err().WithDetail still match.
var (
	ErrNoApplicableRule         = KindNoApplicableRule.Err()
	ErrInvalidSplit             = KindInvalidSplit.Err()
	ErrInvalidAdjustment        = KindInvalidAdjustment.Err()
	ErrInvalidReferenceType     = KindInvalidReferenceType.Err()
	ErrEntryNotFound            = KindEntryNotFound.Err()
	ErrAlreadyReversed          = KindAlreadyReversed.Err()
	ErrOpportunityHasNoAccruals = KindOpportunityHasNoAccruals.Err()
	ErrDuplicateAccrual         = KindDuplicateAccrual.Err()
	ErrOpportunityNotFound      = KindOpportunityNotFound.Err()
	ErrInvalidAccrual           = KindInvalidAccrual.Err()
	ErrInvalidPayment           = KindInvalidPayment.Err()
)

// KindOf extracts the commission error kind from err, if it carries one.
func KindOf(err error) (ErrorKind, bool) {
	var de *shared.DomainError
	if !errors.As(err, &de) {
		return "", false
	}
	k := ErrorKind(de.Code)
	return k, k.IsValid()
}
