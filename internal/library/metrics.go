package library

import (
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

type metrics struct {
	borrows   metric.Int64Counter
	refusals  metric.Int64Counter
	returns   metric.Int64Counter
	penalties metric.Int64Counter
}

func newMetrics(mp metric.MeterProvider) *metrics {
	meter := mp.Meter("libraryos/library")
	return &metrics{
		borrows:   counter(meter, "library.borrows", "Loans opened"),
		refusals:  counter(meter, "library.borrow_refusals", "Borrow requests refused"),
		returns:   counter(meter, "library.returns", "Loans closed"),
		penalties: counter(meter, "library.penalty_total", "Late-return penalty units charged"),
	}
}

func counter(meter metric.Meter, name, desc string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		return noop.Int64Counter{}
	}
	return c
}
