package endpoint

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/photon-ccm/photon/logger"
	"github.com/photon-ccm/photon/observability"
)

type metrics struct {
	calls      metric.Int64Counter
	duration   metric.Float64Histogram
	signatures metric.Int64Counter
	statuses   metric.Int64Counter
}

func newMetrics(m metric.Meter) (*metrics, error) {
	var err error
	mtr := &metrics{}
	if mtr.calls, err = m.Int64Counter("calls", metric.WithDescription("Number of endpoint instructions processed")); err != nil {
		return nil, fmt.Errorf("creating calls counter: %w", err)
	}
	if mtr.duration, err = m.Float64Histogram("duration",
		metric.WithDescription("How long it took to process the instruction"),
		metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}
	if mtr.signatures, err = m.Int64Counter("signatures",
		metric.WithDescription("Number of new transmitter signatures accepted"),
		metric.WithUnit("{signature}")); err != nil {
		return nil, fmt.Errorf("creating signatures counter: %w", err)
	}
	if mtr.statuses, err = m.Int64Counter("op.status",
		metric.WithDescription("Number of operations which reached the status"),
		metric.WithUnit("{operation}")); err != nil {
		return nil, fmt.Errorf("creating op status counter: %w", err)
	}
	return mtr, nil
}

/*
observe starts span for the instruction "name" and returns func which must
be called with the outcome of the instruction. The func records metrics,
ends the span and logs the outcome.
*/
func (e *Endpoint) observe(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		opAttr := observability.Operation(name)
		set := metric.WithAttributeSet(attribute.NewSet(opAttr, observability.ErrCode(err)))
		e.metrics.calls.Add(ctx, 1, set)
		e.metrics.duration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(opAttr, observability.ErrStatus(err)))

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			e.log.DebugContext(ctx, fmt.Sprintf("%s failed", name), logger.Error(err))
		} else {
			e.log.DebugContext(ctx, fmt.Sprintf("%s done", name))
		}
		span.End()
	}
}

func (m *metrics) opStatus(ctx context.Context, status fmt.Stringer) {
	m.statuses.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status.String())))
}
