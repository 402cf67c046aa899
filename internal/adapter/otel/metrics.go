package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "dask"

// Metrics holds all ledger metric instruments.
type Metrics struct {
	TasksCreated   metric.Int64Counter
	TasksCompleted metric.Int64Counter
	TasksCancelled metric.Int64Counter
	Payouts        metric.Int64Counter
	ClaimsRaised   metric.Int64Counter
	ClaimsSettled  metric.Int64Counter
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.TasksCreated, err = meter.Int64Counter("dask.tasks.created",
		metric.WithDescription("Number of tasks created"))
	if err != nil {
		return nil, err
	}

	m.TasksCompleted, err = meter.Int64Counter("dask.tasks.completed",
		metric.WithDescription("Number of tasks completed by both members"))
	if err != nil {
		return nil, err
	}

	m.TasksCancelled, err = meter.Int64Counter("dask.tasks.cancelled",
		metric.WithDescription("Number of tasks cancelled"))
	if err != nil {
		return nil, err
	}

	m.Payouts, err = meter.Int64Counter("dask.payouts",
		metric.WithDescription("Number of reward payouts and recalls"))
	if err != nil {
		return nil, err
	}

	m.ClaimsRaised, err = meter.Int64Counter("dask.claims.raised",
		metric.WithDescription("Number of claims raised"))
	if err != nil {
		return nil, err
	}

	m.ClaimsSettled, err = meter.Int64Counter("dask.claims.settled",
		metric.WithDescription("Number of claims settled"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
