/*
Package observability sets up OpenTelemetry metric and trace providers of
the endpoint.
*/
package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	promexp "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/instrumentation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tnop "go.opentelemetry.io/otel/trace/noop"

	"github.com/photon-ccm/photon/logger"
)

type Observability interface {
	Meter(name string, opts ...metric.MeterOption) metric.Meter
	Tracer(name string, opts ...trace.TracerOption) trace.Tracer
	PrometheusRegisterer() prometheus.Registerer
	// MetricsHandler returns handler of the Prometheus scrape endpoint, nil
	// when Prometheus exporter is not used.
	MetricsHandler() http.Handler
	Logger() *slog.Logger
	Shutdown() error
}

type Otel struct {
	mp  metric.MeterProvider
	tp  trace.TracerProvider
	pr  *prometheus.Registry
	log *slog.Logger

	shutdownFuncs []func(context.Context) error
}

/*
New creates observability with given metrics exporter (one of "", stdout,
prometheus) and traces exporter (one of "", stdout, otlptracehttp). Empty
exporter name means that the signal is disabled.
*/
func New(metrics, traces string, log *slog.Logger) (*Otel, error) {
	if log == nil {
		log = logger.NOP()
	}
	res := resource.NewWithAttributes(semconv.SchemaURL,
		semconv.ServiceName("photon"),
		semconv.ServiceVersion("0.1.0"),
	)

	o := &Otel{mp: noop.NewMeterProvider(), tp: tnop.NewTracerProvider(), log: log}

	if metrics != "" {
		mp, err := o.initMeterProvider(metrics, res)
		if err != nil {
			return nil, fmt.Errorf("initialize meter provider: %w", err)
		}
		o.mp = mp
		o.shutdownFuncs = append(o.shutdownFuncs, mp.Shutdown)
	}

	if traces != "" {
		tp, err := newTracerProvider(traces, res)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("initialize tracer provider: %w", err), o.Shutdown())
		}
		o.tp = tp
		o.shutdownFuncs = append(o.shutdownFuncs, tp.Shutdown)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return o, nil
}

// NOP returns observability where everything is no-op.
func NOP() *Otel {
	return &Otel{mp: noop.NewMeterProvider(), tp: tnop.NewTracerProvider(), log: logger.NOP()}
}

// WithLogger returns copy of "o" which uses "log" as logger.
func (o *Otel) WithLogger(log *slog.Logger) *Otel {
	c := *o
	c.log = log
	return &c
}

func (o *Otel) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	return o.mp.Meter(name, opts...)
}

func (o *Otel) Tracer(name string, opts ...trace.TracerOption) trace.Tracer {
	return o.tp.Tracer(name, opts...)
}

func (o *Otel) Logger() *slog.Logger { return o.log }

func (o *Otel) PrometheusRegisterer() prometheus.Registerer {
	if o.pr == nil {
		return nil
	}
	return o.pr
}

func (o *Otel) MetricsHandler() http.Handler {
	if o.pr == nil {
		return nil
	}
	return promhttp.HandlerFor(o.pr, promhttp.HandlerOpts{MaxRequestsInFlight: 1})
}

func (o *Otel) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var errs []error
	for _, fn := range o.shutdownFuncs {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	o.shutdownFuncs = nil
	if len(errs) > 0 {
		return fmt.Errorf("observability shutdown: %w", errors.Join(errs...))
	}
	return nil
}

func (o *Otel) initMeterProvider(exporter string, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	var reader sdkmetric.Reader
	switch exporter {
	case "stdout":
		me, err := stdoutmetric.New()
		if err != nil {
			return nil, fmt.Errorf("creating stdout exporter: %w", err)
		}
		reader = sdkmetric.NewPeriodicReader(me)
	case "prometheus":
		var err error
		o.pr = prometheus.NewRegistry()
		if reader, err = promexp.New(promexp.WithRegisterer(o.pr), promexp.WithNamespace("photon")); err != nil {
			return nil, fmt.Errorf("creating Prometheus exporter: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported metrics exporter %q", exporter)
	}

	μs := time.Microsecond.Seconds()
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
		sdkmetric.WithView(
			sdkmetric.NewView(
				sdkmetric.Instrument{
					Name:  "duration",
					Scope: instrumentation.Scope{Name: "endpoint"},
				},
				sdkmetric.Stream{
					Aggregation: sdkmetric.AggregationExplicitBucketHistogram{
						Boundaries: []float64{50 * μs, 100 * μs, 200 * μs, 400 * μs, 800 * μs, 0.0016, 0.005, 0.01, 0.05},
					},
				},
			),
			sdkmetric.NewView(
				sdkmetric.Instrument{
					Name:  "duration",
					Scope: instrumentation.Scope{Name: "rest_api"},
				},
				sdkmetric.Stream{
					Aggregation: sdkmetric.AggregationExplicitBucketHistogram{
						Boundaries: []float64{100 * μs, 200 * μs, 400 * μs, 800 * μs, 0.0016, 0.01, 0.05, 0.1},
					},
				},
			),
		),
	), nil
}

func newTracerProvider(exporter string, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	var err error
	var exp sdktrace.SpanExporter

	switch exporter {
	case "stdout":
		exp, err = stdouttrace.New()
	case "otlptracehttp":
		exp, err = otlptracehttp.New(context.Background())
	default:
		return nil, fmt.Errorf("unsupported traces exporter %q", exporter)
	}
	if err != nil {
		return nil, fmt.Errorf("creating %q exporter: %w", exporter, err)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exp),
	), nil
}
