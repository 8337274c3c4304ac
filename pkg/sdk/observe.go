package ragdex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Operation outcomes used as the status label.
const (
	statusOK       = "ok"
	statusError    = "error"
	statusCanceled = "canceled"
)

// sdkMetrics are the collectors an SDK client records to. Several clients
// sharing one registry share the collectors.
type sdkMetrics struct {
	calls   *prometheus.CounterVec   // operation, status
	latency *prometheus.HistogramVec // operation
	items   *prometheus.CounterVec   // operation; chunks written or sources returned
}

func sdkOpts(name, help string) prometheus.Opts {
	return prometheus.Opts{Namespace: "ragdex", Subsystem: "sdk", Name: name, Help: help}
}

func newSDKMetrics(reg prometheus.Registerer) (*sdkMetrics, error) {
	calls, err := adopt(reg, prometheus.NewCounterVec(
		prometheus.CounterOpts(sdkOpts("operations_total", "SDK operations by type and outcome.")),
		[]string{"operation", "status"}))
	if err != nil {
		return nil, err
	}
	latency, err := adopt(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ragdex",
		Subsystem: "sdk",
		Name:      "operation_duration_seconds",
		Help:      "SDK operation latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"}))
	if err != nil {
		return nil, err
	}
	items, err := adopt(reg, prometheus.NewCounterVec(
		prometheus.CounterOpts(sdkOpts("items_total", "Chunks written by ingestion and sources returned by queries.")),
		[]string{"operation"}))
	if err != nil {
		return nil, err
	}
	return &sdkMetrics{calls: calls, latency: latency, items: items}, nil
}

// adopt registers c, or returns the equivalent collector already in reg.
func adopt[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var dup prometheus.AlreadyRegisteredError
	if !errors.As(err, &dup) {
		return c, fmt.Errorf("ragdex: register metric: %w", err)
	}
	existing, ok := dup.ExistingCollector.(T)
	if !ok {
		return c, fmt.Errorf("ragdex: metric registered with type %T", dup.ExistingCollector)
	}
	return existing, nil
}

// observer logs and counts finished SDK operations. Both sinks are optional.
type observer struct {
	logger  *slog.Logger
	metrics *sdkMetrics
}

func newObserver(logger *slog.Logger, reg prometheus.Registerer) (*observer, error) {
	o := &observer{logger: logger}
	if reg != nil {
		m, err := newSDKMetrics(reg)
		if err != nil {
			return nil, err
		}
		o.metrics = m
	}
	return o, nil
}

// observe records one finished operation. items < 0 means the operation has no item count.
func (o *observer) observe(op string, start time.Time, items int, err error) {
	if o == nil {
		return
	}
	dur := time.Since(start)
	status := outcome(err)

	if m := o.metrics; m != nil {
		m.calls.WithLabelValues(op, status).Inc()
		m.latency.WithLabelValues(op).Observe(dur.Seconds())
		if status == statusOK && items > 0 {
			m.items.WithLabelValues(op).Add(float64(items))
		}
	}

	if o.logger == nil {
		return
	}
	attrs := []slog.Attr{slog.String("op", op), slog.Duration("duration", dur)}
	if items >= 0 {
		attrs = append(attrs, slog.Int("items", items))
	}
	if err != nil {
		attrs = append(attrs, slog.String("status", status), slog.Any("error", err))
		o.logger.LogAttrs(context.Background(), slog.LevelWarn, "operation failed", attrs...)
		return
	}
	o.logger.LogAttrs(context.Background(), slog.LevelDebug, "operation completed", attrs...)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return statusOK
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return statusCanceled
	default:
		return statusError
	}
}
