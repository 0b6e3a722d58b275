package telemetry

import (
	"context"
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/detectors/aws/ecs"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/IliaW/robots-gate/config"
	"github.com/google/uuid"
)

var meter metric.Meter

type MetricsProvider struct {
	AppMetrics    *AppMetrics
	RobotsMetrics *RobotsMetrics
	BrokerMetrics *BrokerMetrics
	DLQMetrics    *DLQMetrics
	Close         func()
}

type AppMetrics struct {
	ForwardedMsgCnt func(count int64)
	RejectedMsgCnt  func(count int64, status string)
	DroppedMsgCnt   func(count int64)
	ProbeErrorCnt   func(count int64)
}

type RobotsMetrics struct {
	CacheHitCnt   func(count int64)
	CacheMissCnt  func(count int64)
	FetchErrorCnt func(count int64)
}

type BrokerMetrics struct {
	ReceivedMsgCnt    func(count int64)
	AckFailCnt        func(count int64)
	PublishSuccessCnt func(count int64)
	PublishFailCnt    func(count int64)
}

type DLQMetrics struct {
	SuccessMsgCnt func(count int64)
	FailMsgCnt    func(count int64)
}

func SetupMetrics(ctx context.Context, cfg *config.Config) *MetricsProvider {
	metricsProvider := new(MetricsProvider)
	var meterProvider *sdkmetric.MeterProvider
	enabled := cfg.TelemetrySettings != nil && cfg.TelemetrySettings.Enabled

	if enabled {
		r, err := newResource(cfg)
		if err != nil {
			slog.Error("failed to get resource.", slog.String("err", err.Error()))
			os.Exit(1)
		}
		exporter, err := newMetricExporter(ctx, cfg.TelemetrySettings)
		if err != nil {
			slog.Error("failed to get metric exporter.", slog.String("err", err.Error()))
			os.Exit(1)
		}
		meterProvider = newMeterProvider(exporter, *r)
		otel.SetMeterProvider(meterProvider)
	}

	meter = otel.Meter(cfg.ServiceName)
	metricsProvider.Close = func() {
		if meterProvider != nil {
			err := meterProvider.Shutdown(ctx)
			if err != nil {
				slog.Error("failed to shutdown metrics provider.", slog.String("err", err.Error()))
			}
		}
	}

	// counter returns a no-op recorder when telemetry is disabled
	counter := func(name, description string) func(count int64, attrs ...attribute.KeyValue) {
		c, err := meter.Int64Counter(name, metric.WithDescription(description), metric.WithUnit("{messages}"))
		if err != nil {
			slog.Error("failed to create telemetry counter.", slog.String("name", name),
				slog.String("err", err.Error()))
			os.Exit(1)
		}
		return func(count int64, attrs ...attribute.KeyValue) {
			if enabled {
				c.Add(ctx, count, metric.WithAttributes(attrs...))
			}
		}
	}

	// Set up worker metrics
	forwarded := counter("robots-gate.messages.forwarded",
		"The number of messages forwarded to the exchange")
	rejected := counter("robots-gate.messages.rejected",
		"The number of messages rejected with a terminal url status")
	dropped := counter("robots-gate.messages.dropped",
		"The number of malformed messages. The messages send to DLQ.")
	probeErrors := counter("robots-gate.probe.fail",
		"The number of failed HEAD probes. The messages are forwarded.")
	metricsProvider.AppMetrics = &AppMetrics{
		ForwardedMsgCnt: func(count int64) { forwarded(count) },
		RejectedMsgCnt: func(count int64, status string) {
			rejected(count, attribute.String("status", status))
		},
		DroppedMsgCnt: func(count int64) { dropped(count) },
		ProbeErrorCnt: func(count int64) { probeErrors(count) },
	}

	// Set up robots.txt metrics
	cacheHit := counter("robots-gate.robots.cache.hit", "The number of robots.txt served from cache")
	cacheMiss := counter("robots-gate.robots.cache.miss", "The number of robots.txt cache misses")
	fetchErrors := counter("robots-gate.robots.fetch.fail", "The number of failed robots.txt requests")
	metricsProvider.RobotsMetrics = &RobotsMetrics{
		CacheHitCnt:   func(count int64) { cacheHit(count) },
		CacheMissCnt:  func(count int64) { cacheMiss(count) },
		FetchErrorCnt: func(count int64) { fetchErrors(count) },
	}

	// Set up broker metrics
	received := counter("robots-gate.broker.received", "The number of messages received from the queue")
	ackFail := counter("robots-gate.broker.ack.fail", "The number of messages that could not be acknowledged")
	publishSuccess := counter("robots-gate.broker.publish.success", "The number of messages published")
	publishFail := counter("robots-gate.broker.publish.fail", "The number of messages that could not be published")
	metricsProvider.BrokerMetrics = &BrokerMetrics{
		ReceivedMsgCnt:    func(count int64) { received(count) },
		AckFailCnt:        func(count int64) { ackFail(count) },
		PublishSuccessCnt: func(count int64) { publishSuccess(count) },
		PublishFailCnt:    func(count int64) { publishFail(count) },
	}

	// Set up dead-letter queue metrics
	dlqSuccess := counter("robots-gate.kafka.dlq.success", "The number of messages sent to the DLQ")
	dlqFail := counter("robots-gate.kafka.dlq.fail", "The number of messages that could not be sent to the DLQ")
	metricsProvider.DLQMetrics = &DLQMetrics{
		SuccessMsgCnt: func(count int64) { dlqSuccess(count) },
		FailMsgCnt:    func(count int64) { dlqFail(count) },
	}

	return metricsProvider
}

func newResource(cfg *config.Config) (*resource.Resource, error) {
	ecsResourceDetector := ecs.NewResourceDetector()
	ecsResource, err := ecsResourceDetector.Detect(context.Background())
	if err != nil {
		slog.Error("ecs detection failed", slog.String("err", err.Error()))
	}
	mergedResource, err := resource.Merge(ecsResource, resource.Default())
	if err != nil {
		slog.Error("failed to merge resources", slog.String("err", err.Error()))
	}
	keyValue, found := ecsResource.Set().Value("container.id")
	var serviceId string
	if found {
		serviceId = keyValue.AsString()
	} else {
		serviceId = uuid.New().String()
	}
	return resource.Merge(mergedResource,
		resource.NewWithAttributes(semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.DeploymentEnvironment(cfg.Env),
			semconv.ServiceInstanceID(serviceId),
		))
}

func newMetricExporter(ctx context.Context, cfg *config.TelemetryConfig) (sdkmetric.Exporter, error) {
	return otlpmetrichttp.New(ctx,
		otlpmetrichttp.WithEndpoint(cfg.CollectorUrl),
		otlpmetrichttp.WithInsecure())
}

func newMeterProvider(meterExporter sdkmetric.Exporter, resource resource.Resource) *sdkmetric.MeterProvider {
	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(meterExporter)),
		sdkmetric.WithResource(&resource),
	)
	return meterProvider
}
