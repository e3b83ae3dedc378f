package billing

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Instrument names shared with the meter provider views.
const (
	MeterName              = "github.com/metinatakli/hospital-payments/internal/billing"
	PaymentsExecutedMetric = "payments.executed"
	ReceiptsIssuedMetric   = "receipts.issued"
	OutcomeAttribute       = "outcome"
)

type instruments struct {
	paymentsExecuted metric.Int64Counter
	receiptsIssued   metric.Int64Counter
}

// newInstruments uses the global meter provider, which is a no-op until
// telemetry is initialised.
func newInstruments() instruments {
	meter := otel.Meter(MeterName)

	executed, err := meter.Int64Counter(PaymentsExecutedMetric)
	if err != nil {
		executed = noop.Int64Counter{}
	}

	issued, err := meter.Int64Counter(ReceiptsIssuedMetric)
	if err != nil {
		issued = noop.Int64Counter{}
	}

	return instruments{
		paymentsExecuted: executed,
		receiptsIssued:   issued,
	}
}
