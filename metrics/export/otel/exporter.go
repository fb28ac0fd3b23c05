package otel

import (
	"context"
	"errors"
	"fmt"

	goMiniAuth "github.com/MrEthical07/goMiniAuth"
	"github.com/MrEthical07/goMiniAuth/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// MetricsSource is implemented by *goMiniAuth.Engine.
type MetricsSource interface {
	MetricsSnapshot() goMiniAuth.MetricsSnapshot
	AuditDropped() uint64
}

// collection is the engine state observed by one callback run.
type collection struct {
	snapshot   goMiniAuth.MetricsSnapshot
	dropped    uint64
	cumulative map[goMiniAuth.MetricID][8]uint64
}

func (c *collection) bucket(id goMiniAuth.MetricID, i int) int64 {
	cum, ok := c.cumulative[id]
	if !ok {
		cum = internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(c.snapshot.Histograms[id]))
		c.cumulative[id] = cum
	}
	return int64(cum[i])
}

// reading pairs an instrument with the value it reports from a collection.
type reading struct {
	instrument metric.Int64Observable
	value      func(*collection) int64
}

// OTelExporter publishes the miniauth_* counters and latency buckets through
// observable instruments. The engine is snapshotted once per collection.
type OTelExporter struct {
	source       MetricsSource
	registration metric.Registration
	readings     []reading
}

// NewOTelExporter registers instruments on meter that read from engine.
func NewOTelExporter(meter metric.Meter, engine *goMiniAuth.Engine) (*OTelExporter, error) {
	return NewOTelExporterFromSource(meter, engine)
}

// NewOTelExporterFromSource is NewOTelExporter for any [MetricsSource].
// Latency histograms are published as one cumulative gauge per bucket bound
// plus a count gauge.
func NewOTelExporterFromSource(meter metric.Meter, source MetricsSource) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	exporter := &OTelExporter{source: source}

	for _, def := range internaldefs.CounterDefs {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("create observable counter %s: %w", def.Name, err)
		}
		id := def.ID
		exporter.add(ins, func(c *collection) int64 { return int64(c.snapshot.Counters[id]) })
	}

	for _, def := range internaldefs.HistogramDefs {
		id := def.ID
		for i, suffix := range internaldefs.HistogramBoundSuffix {
			name := def.Name + "_bucket_le_" + suffix
			ins, err := meter.Int64ObservableGauge(name, metric.WithDescription("Cumulative latency bucket count."))
			if err != nil {
				return nil, fmt.Errorf("create bucket gauge %s: %w", name, err)
			}
			bound := i
			exporter.add(ins, func(c *collection) int64 { return c.bucket(id, bound) })
		}
		name := def.Name + "_count"
		ins, err := meter.Int64ObservableGauge(name, metric.WithDescription(def.Help+" Sample count."))
		if err != nil {
			return nil, fmt.Errorf("create count gauge %s: %w", name, err)
		}
		last := len(internaldefs.HistogramBounds) - 1
		exporter.add(ins, func(c *collection) int64 { return c.bucket(id, last) })
	}

	dropped, err := meter.Int64ObservableCounter(
		internaldefs.AuditDroppedName,
		metric.WithDescription(internaldefs.AuditDroppedHelp),
	)
	if err != nil {
		return nil, fmt.Errorf("create audit dropped counter: %w", err)
	}
	exporter.add(dropped, func(c *collection) int64 { return int64(c.dropped) })

	observables := make([]metric.Observable, len(exporter.readings))
	for i, r := range exporter.readings {
		observables[i] = r.instrument
	}
	registration, err := meter.RegisterCallback(exporter.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	exporter.registration = registration
	return exporter, nil
}

func (e *OTelExporter) add(ins metric.Int64Observable, value func(*collection) int64) {
	e.readings = append(e.readings, reading{instrument: ins, value: value})
}

func (e *OTelExporter) observe(_ context.Context, observer metric.Observer) error {
	c := &collection{
		snapshot:   e.source.MetricsSnapshot(),
		dropped:    e.source.AuditDropped(),
		cumulative: make(map[goMiniAuth.MetricID][8]uint64, len(internaldefs.HistogramDefs)),
	}
	for _, r := range e.readings {
		observer.ObserveInt64(r.instrument, r.value(c))
	}
	return nil
}

// Close unregisters the collection callback.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
