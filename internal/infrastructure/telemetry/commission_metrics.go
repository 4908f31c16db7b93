package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/FirplakDesarrollador/CRM-sub001/internal/domain/commission"
	"github.com/FirplakDesarrollador/CRM-sub001/internal/domain/shared"
	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when metrics are built without a meter.
var ErrMeterNil = errors.New("telemetry: meter is nil")

// CommissionMetrics records ledger activity.
type CommissionMetrics struct {
	entriesWritten    *Counter
	bonusesAwarded    *Counter
	operationFailures *Counter
	operationDuration *Histogram
}

func NewCommissionMetrics(meter metric.Meter) (*CommissionMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	m := &CommissionMetrics{}
	var err error

	m.entriesWritten, err = NewCounter(meter,
		"commission_ledger_entries_total",
		"Ledger entries appended, by event type and currency",
		"{entries}",
	)
	if err != nil {
		return nil, err
	}

	m.bonusesAwarded, err = NewCounter(meter,
		"commission_bonuses_awarded_total",
		"Bonus awards granted",
		"{awards}",
	)
	if err != nil {
		return nil, err
	}

	m.operationFailures, err = NewCounter(meter,
		"commission_operation_failures_total",
		"Rejected or failed ledger operations, by error code",
		"{operations}",
	)
	if err != nil {
		return nil, err
	}

	m.operationDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "commission_operation_duration_seconds",
		Description: "Duration of ledger operations",
		Unit:        "s",
		Boundaries:  OperationDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	return m, nil
}

// EntriesWritten counts n appended entries of type t.
func (m *CommissionMetrics) EntriesWritten(ctx context.Context, t commission.EventType, currency string, n int) {
	if n <= 0 {
		return
	}
	m.entriesWritten.Add(ctx, int64(n), AttrEventType.String(string(t)), AttrCurrency.String(currency))
}

func (m *CommissionMetrics) BonusesAwarded(ctx context.Context, n int) {
	if n <= 0 {
		return
	}
	m.bonusesAwarded.Add(ctx, int64(n))
}

// ObserveOperation records the duration of op and, when err is non-nil, a
// failure labeled with the error code.
func (m *CommissionMetrics) ObserveOperation(ctx context.Context, op string, d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
		m.operationFailures.Inc(ctx, AttrOperation.String(op), AttrErrorCode.String(ErrorCode(err)))
	}
	m.operationDuration.RecordDuration(ctx, d, AttrOperation.String(op), AttrOutcome.String(outcome))
}

// ErrorCode returns the domain code of err, or "INTERNAL".
func ErrorCode(err error) string {
	if kind, ok := commission.KindOf(err); ok {
		return kind.String()
	}
	var de *shared.DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return "INTERNAL"
}
