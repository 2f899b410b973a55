package request

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-reflect"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/x-research-team/mediator-framework/bus/result"
)

const (
	instrumentationName    = "github.com/x-research-team/mediator-framework/bus/request"
	instrumentationVersion = "0.1.0"
	metricKeyPrefix        = "messaging."
)

// Middleware определяет интерфейс для middleware шины запросов.
type Middleware interface {
	Wrap(next Provider) Provider
}

// MiddlewareFunc является адаптером, позволяющим использовать обычные функции как middleware.
type MiddlewareFunc func(next Provider) Provider

// Wrap реализует интерфейс Middleware.
func (f MiddlewareFunc) Wrap(next Provider) Provider {
	return f(next)
}

// loggingMiddleware реализует Middleware для логирования операций с запросами.
type loggingMiddleware struct {
	logger *slog.Logger
}

// NewLoggingMiddleware создает новое middleware для логирования.
func NewLoggingMiddleware(logger *slog.Logger) Middleware {
	if logger == nil {
		return &noopMiddleware{}
	}
	return &loggingMiddleware{
		logger: logger,
	}
}

// Wrap оборачивает провайдер для добавления логирования.
func (m *loggingMiddleware) Wrap(next Provider) Provider {
	return &loggingProvider{
		next:   next,
		logger: m.logger,
	}
}

// loggingProvider - это обертка над провайдером запросов, которая добавляет логирование.
type loggingProvider struct {
	next   Provider
	logger *slog.Logger
}

// Send логирует и отправляет запрос.
func (p *loggingProvider) Send(ctx context.Context, req any) (res *result.Result[any], err error) {
	reqType, reqID := getRequestTypeAndID(req)
	p.logger.Info("отправка запроса", slog.String("request_type", reqType), slog.String("request_id", reqID))

	startTime := time.Now()
	defer func() {
		duration := time.Since(startTime)
		if err != nil {
			p.logger.Error("ошибка отправки запроса",
				slog.String("request_type", reqType),
				slog.String("request_id", reqID),
				slog.Any("error", err),
				slog.Duration("duration", duration),
			)
		}
	}()

	return p.next.Send(ctx, req)
}

// Register логирует и регистрирует обработчик.
func (p *loggingProvider) Register(requestType reflect.Type, handler HandlerFunc) (err error) {
	p.logger.Info("регистрация обработчика запроса", slog.String("request_type", requestType.String()))
	defer func() {
		if err != nil {
			p.logger.Error("ошибка регистрации обработчика",
				slog.String("request_type", requestType.String()),
				slog.Any("error", err),
			)
		}
	}()
	return p.next.Register(requestType, handler)
}

// Shutdown делегирует вызов следующему провайдеру в цепочке.
func (p *loggingProvider) Shutdown(ctx context.Context) error {
	return p.next.Shutdown(ctx)
}

// metricsMiddleware реализует Middleware для сбора метрик OpenTelemetry.
type metricsMiddleware struct {
	meter               metric.Meter
	sendCounter         metric.Int64Counter
	processDurationHist metric.Float64Histogram
}

// NewMetricsMiddleware создает новое middleware для сбора метрик.
func NewMetricsMiddleware(provider metric.MeterProvider) Middleware {
	if provider == nil {
		return &noopMiddleware{}
	}

	meter := provider.Meter(instrumentationName)

	sendCounter, err := meter.Int64Counter(
		metricKeyPrefix+"send.count",
		metric.WithDescription("Количество отправленных запросов"),
		metric.WithUnit("{requests}"),
	)
	if err != nil {
		panic(fmt.Sprintf("не удалось создать счетчик send.count: %v", err))
	}

	processDurationHist, err := meter.Float64Histogram(
		metricKeyPrefix+"process.duration",
		metric.WithDescription("Длительность обработки запроса"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		panic(fmt.Sprintf("не удалось создать гистограмму process.duration: %v", err))
	}

	return &metricsMiddleware{
		meter:               meter,
		sendCounter:         sendCounter,
		processDurationHist: processDurationHist,
	}
}

// Wrap оборачивает провайдер для добавления сбора метрик.
func (m *metricsMiddleware) Wrap(next Provider) Provider {
	return &metricsProvider{
		next:                next,
		sendCounter:         m.sendCounter,
		processDurationHist: m.processDurationHist,
	}
}

// metricsProvider - это обертка над провайдером запросов, которая собирает метрики.
type metricsProvider struct {
	next                Provider
	sendCounter         metric.Int64Counter
	processDurationHist metric.Float64Histogram
}

// Send собирает метрики и отправляет запрос.
func (p *metricsProvider) Send(ctx context.Context, req any) (res *result.Result[any], err error) {
	startTime := time.Now()
	res, err = p.next.Send(ctx, req)
	duration := float64(time.Since(startTime).Milliseconds())

	status := "success"
	if err != nil {
		status = "error"
	}
	reqType, _ := getRequestTypeAndID(req)

	p.sendCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("request.type", reqType),
		attribute.String("status", status),
	))

	p.processDurationHist.Record(ctx, duration, metric.WithAttributes(
		attribute.String("request.type", reqType),
		attribute.String("status", status),
	))

	return res, err
}

// Register делегирует вызов.
func (p *metricsProvider) Register(requestType reflect.Type, handler HandlerFunc) error {
	return p.next.Register(requestType, handler)
}

// Shutdown делегирует вызов.
func (p *metricsProvider) Shutdown(ctx context.Context) error {
	return p.next.Shutdown(ctx)
}

// tracingMiddleware реализует Middleware для распределенной трассировки OpenTelemetry.
type tracingMiddleware struct {
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
}

// NewTracingMiddleware создает новое middleware для трассировки.
func NewTracingMiddleware(tp trace.TracerProvider, p propagation.TextMapPropagator) Middleware {
	if tp == nil {
		return &noopMiddleware{}
	}

	if p == nil {
		p = propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{})
	}

	return &tracingMiddleware{
		tracer: tp.Tracer(
			instrumentationName,
			trace.WithInstrumentationVersion(instrumentationVersion),
		),
		propagator: p,
	}
}

// Wrap оборачивает провайдер для добавления логики трассировки.
func (m *tracingMiddleware) Wrap(next Provider) Provider {
	return &tracingProvider{
		next:       next,
		tracer:     m.tracer,
		propagator: m.propagator,
	}
}

// tracingProvider - это обертка над провайдером запросов, которая управляет спанами трассировки.
type tracingProvider struct {
	next       Provider
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
}

// Send создает спан для отправки запроса и извлекает контекст трассировки
// из метаданных запроса, если запрос их несет.
func (p *tracingProvider) Send(ctx context.Context, req any) (res *result.Result[any], err error) {
	if md, ok := req.(Metadatable); ok {
		ctx = p.propagator.Extract(ctx, propagation.MapCarrier(md.Metadata()))
	}

	reqType, _ := getRequestTypeAndID(req)
	spanName := fmt.Sprintf("%s send", reqType)

	ctx, span := p.tracer.Start(ctx, spanName, trace.WithSpanKind(trace.SpanKindClient))
	defer func() {
		if err != nil {
			span.RecordError(err)
		}
		span.End()
	}()

	return p.next.Send(ctx, req)
}

// Register оборачивает обработчик для создания дочернего спана обработки
// и инъекции контекста трассировки в метаданные запроса.
func (p *tracingProvider) Register(requestType reflect.Type, handler HandlerFunc) error {
	wrappedHandler := func(ctx context.Context, req any) (res *result.Result[any], err error) {
		reqType, _ := getRequestTypeAndID(req)
		spanName := fmt.Sprintf("%s process", reqType)

		ctx, span := p.tracer.Start(ctx, spanName, trace.WithSpanKind(trace.SpanKindServer))
		defer func() {
			if err != nil {
				span.RecordError(err)
			}
			span.End()
		}()

		if md, ok := req.(Metadatable); ok {
			p.propagator.Inject(ctx, propagation.MapCarrier(md.Metadata()))
		}

		return handler(ctx, req)
	}
	return p.next.Register(requestType, wrappedHandler)
}

// Shutdown делегирует вызов.
func (p *tracingProvider) Shutdown(ctx context.Context) error {
	return p.next.Shutdown(ctx)
}

// applyMiddlewares применяет цепочку middleware к базовому провайдеру.
func applyMiddlewares(provider Provider, middlewares ...Middleware) Provider {
	p := provider
	for i := len(middlewares) - 1; i >= 0; i-- {
		p = middlewares[i].Wrap(p)
	}
	return p
}

// noopMiddleware представляет собой пустое middleware.
type noopMiddleware struct{}

// Wrap просто возвращает следующий провайдер без изменений.
func (m *noopMiddleware) Wrap(next Provider) Provider {
	return next
}

// getRequestTypeAndID извлекает тип и ID запроса с помощью рефлексии.
func getRequestTypeAndID(req any) (string, string) {
	val := reflect.ValueOf(req)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	reqType := val.Type().Name()
	reqID := "unknown"

	if val.Kind() == reflect.Struct {
		if idField := val.FieldByName("ID"); idField.IsValid() {
			reqID = fmt.Sprintf("%v", idField.Interface())
		}
	}

	return reqType, reqID
}
