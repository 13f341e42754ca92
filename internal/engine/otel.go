package engine

import (
	"context"
	"fmt"

	"github.com/vanetlab/vanetsim/internal/policy"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/vanetlab/vanetsim/internal/engine"

// WithMeterProvider sets the provider of the engine's instruments. The global
// provider is used by default.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(e *Engine) {
		e.meterProvider = mp
	}
}

func (e *Engine) meter() metric.Meter {
	if e.meterProvider != nil {
		return e.meterProvider.Meter(instrumentationName)
	}
	return otel.Meter(instrumentationName)
}

type instruments struct {
	attrs metric.MeasurementOption

	ticks       metric.Int64Counter
	established metric.Int64Counter
	dropped     metric.Int64Counter
	completed   metric.Int64Counter
	activeCars  metric.Int64ObservableGauge

	registration metric.Registration
}

// newInstruments uses the global meter provider unless WithMeterProvider was given.
// The global provider is a no-op unless one is installed.
func newInstruments(e *Engine) (*instruments, error) {
	m := e.meter()
	inst := &instruments{
		attrs: metric.WithAttributes(attribute.String("policy", e.policy.Name())),
	}

	var err error
	inst.ticks, err = m.Int64Counter(
		"engine.ticks",
		metric.WithDescription("Total ticks simulated"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating ticks counter: %w", err)
	}

	inst.established, err = m.Int64Counter(
		"engine.connections.established",
		metric.WithDescription("Total connections established"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating established counter: %w", err)
	}

	inst.dropped, err = m.Int64Counter(
		"engine.connections.dropped",
		metric.WithDescription("Total connections dropped"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	inst.completed, err = m.Int64Counter(
		"engine.vehicles.completed",
		metric.WithDescription("Total vehicles that finished their trajectory"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating completed counter: %w", err)
	}

	inst.activeCars, err = m.Int64ObservableGauge(
		"engine.vehicles.active",
		metric.WithDescription("Vehicles active on the last simulated tick"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating active vehicles gauge: %w", err)
	}

	inst.registration, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(inst.activeCars, e.active.Load(), inst.attrs)
			return nil
		},
		inst.activeCars,
	)
	if err != nil {
		return nil, fmt.Errorf("registering active vehicles callback: %w", err)
	}

	return inst, nil
}

// unregister stops the active vehicles callback so a finished engine no longer reports.
func (i *instruments) unregister() error {
	if i.registration == nil {
		return nil
	}
	err := i.registration.Unregister()
	i.registration = nil
	return err
}

func (i *instruments) record(ctx context.Context, completed int, res policy.Result) {
	i.ticks.Add(ctx, 1, i.attrs)
	if res.NewConnections > 0 {
		i.established.Add(ctx, int64(res.NewConnections), i.attrs)
	}
	if res.DroppedConnections > 0 {
		i.dropped.Add(ctx, int64(res.DroppedConnections), i.attrs)
	}
	if completed > 0 {
		i.completed.Add(ctx, int64(completed), i.attrs)
	}
}
