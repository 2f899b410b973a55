package notification

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/goccy/go-reflect"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName    = "github.com/x-research-team/mediator-framework/bus/notification"
	instrumentationVersion = "0.1.0"
	metricKeyPrefix        = "messaging."
)

// BusMiddleware определяет интерфейс для middleware издателя уведомлений.
// Middleware позволяет добавлять сквозную функциональность, такую как
// логирование, метрики или трассировка, вокруг доставки уведомлений.
type BusMiddleware[N Notification] interface {
	// Wrap оборачивает следующий провайдер в цепочке, добавляя свою логику.
	Wrap(next Provider[N]) Provider[N]
}

// MiddlewareFunc является адаптером, позволяющим использовать обычные функции как middleware.
type MiddlewareFunc[N Notification] func(next Provider[N]) Provider[N]

// Wrap реализует интерфейс BusMiddleware.
func (f MiddlewareFunc[N]) Wrap(next Provider[N]) Provider[N] {
	return f(next)
}

// loggingMiddleware реализует BusMiddleware для логирования операций с уведомлениями.
type loggingMiddleware[N Notification] struct {
	logger *slog.Logger
}

// NewLoggingMiddleware создает новое middleware для логирования.
// Если логгер не предоставлен (nil), возвращается no-op middleware.
func NewLoggingMiddleware[N Notification](logger *slog.Logger) BusMiddleware[N] {
	if logger == nil {
		return &noopMiddleware[N]{}
	}
	return &loggingMiddleware[N]{
		logger: logger,
	}
}

// Wrap оборачивает провайдер для добавления логирования.
func (m *loggingMiddleware[N]) Wrap(next Provider[N]) Provider[N] {
	return &loggingProvider[N]{
		next:   next,
		logger: m.logger,
	}
}

// loggingProvider - это обертка над провайдером уведомлений, которая добавляет логирование.
type loggingProvider[N Notification] struct {
	next   Provider[N]
	logger *slog.Logger
}

// Publish логирует и публикует уведомление.
func (p *loggingProvider[N]) Publish(ctx context.Context, n N) (err error) {
	nType, nID := getNotificationTypeAndID(n)
	p.logger.Info("публикация уведомления", slog.String("notification_type", nType), slog.String("notification_id", nID))

	startTime := time.Now()
	defer func() {
		duration := time.Since(startTime)
		if err != nil {
			p.logger.Error("ошибка публикации уведомления",
				slog.String("notification_type", nType),
				slog.String("notification_id", nID),
				slog.Any("error", err),
				slog.Duration("duration", duration),
			)
		}
	}()

	return p.next.Publish(ctx, n)
}

// Subscribe логирует и подписывает обработчик на уведомления.
func (p *loggingProvider[N]) Subscribe(handler Handler[N], opts ...SubscribeOption[N]) (unsubscribe func(), err error) {
	subOpts := &subscriptionOptions[N]{}
	for _, opt := range opts {
		opt(subOpts)
	}
	handlerName := subOpts.name
	if handlerName == "" {
		handlerName = getHandlerName(handler)
	}

	wrappedHandler := func(ctx context.Context, n N) (err error) {
		nType, nID := getNotificationTypeAndID(n)

		p.logger.Info("начало обработки уведомления",
			slog.String("notification_type", nType),
			slog.String("notification_id", nID),
			slog.String("handler_name", handlerName),
		)

		startTime := time.Now()
		defer func() {
			duration := time.Since(startTime)
			if err != nil {
				p.logger.Error("ошибка обработки уведомления",
					slog.String("notification_type", nType),
					slog.String("notification_id", nID),
					slog.String("handler_name", handlerName),
					slog.Any("error", err),
					slog.Duration("duration", duration),
				)
			} else {
				p.logger.Info("уведомление успешно обработано",
					slog.String("notification_type", nType),
					slog.String("notification_id", nID),
					slog.String("handler_name", handlerName),
					slog.Duration("duration", duration),
				)
			}
		}()

		return handler(ctx, n)
	}

	return p.next.Subscribe(wrappedHandler, opts...)
}

// Shutdown делегирует вызов следующему провайдеру в цепочке.
func (p *loggingProvider[N]) Shutdown(ctx context.Context) error {
	return p.next.Shutdown(ctx)
}

// metricsMiddleware реализует BusMiddleware для сбора метрик OpenTelemetry.
type metricsMiddleware[N Notification] struct {
	meter               metric.Meter
	publishCounter      metric.Int64Counter
	consumeCounter      metric.Int64Counter
	consumeDurationHist metric.Float64Histogram
}

// NewMetricsMiddleware создает новое middleware для сбора метрик.
func NewMetricsMiddleware[N Notification](provider metric.MeterProvider) BusMiddleware[N] {
	if provider == nil {
		return &noopMiddleware[N]{}
	}

	meter := provider.Meter(instrumentationName)

	publishCounter, err := meter.Int64Counter(
		metricKeyPrefix+"publish.count",
		metric.WithDescription("Количество опубликованных уведомлений"),
		metric.WithUnit("{notifications}"),
	)
	if err != nil {
		panic(fmt.Sprintf("не удалось создать счетчик publish.count: %v", err))
	}

	consumeCounter, err := meter.Int64Counter(
		metricKeyPrefix+"consume.count",
		metric.WithDescription("Количество обработанных уведомлений"),
		metric.WithUnit("{notifications}"),
	)
	if err != nil {
		panic(fmt.Sprintf("не удалось создать счетчик consume.count: %v", err))
	}

	consumeDurationHist, err := meter.Float64Histogram(
		metricKeyPrefix+"consume.duration",
		metric.WithDescription("Длительность обработки уведомления"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		panic(fmt.Sprintf("не удалось создать гистограмму consume.duration: %v", err))
	}

	return &metricsMiddleware[N]{
		meter:               meter,
		publishCounter:      publishCounter,
		consumeCounter:      consumeCounter,
		consumeDurationHist: consumeDurationHist,
	}
}

// Wrap оборачивает провайдер для добавления сбора метрик.
func (m *metricsMiddleware[N]) Wrap(next Provider[N]) Provider[N] {
	return &metricsProvider[N]{
		next:                next,
		publishCounter:      m.publishCounter,
		consumeCounter:      m.consumeCounter,
		consumeDurationHist: m.consumeDurationHist,
	}
}

// metricsProvider - это обертка над провайдером уведомлений, которая собирает метрики.
type metricsProvider[N Notification] struct {
	next                Provider[N]
	publishCounter      metric.Int64Counter
	consumeCounter      metric.Int64Counter
	consumeDurationHist metric.Float64Histogram
}

// Publish собирает метрики и публикует уведомление.
func (p *metricsProvider[N]) Publish(ctx context.Context, n N) (err error) {
	err = p.next.Publish(ctx, n)

	status := "success"
	if err != nil {
		status = "error"
	}
	nType, _ := getNotificationTypeAndID(n)

	p.publishCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("notification.type", nType),
		attribute.String("status", status),
	))

	return err
}

// Subscribe собирает метрики и подписывает обработчик.
func (p *metricsProvider[N]) Subscribe(handler Handler[N], opts ...SubscribeOption[N]) (unsubscribe func(), err error) {
	subOpts := &subscriptionOptions[N]{}
	for _, opt := range opts {
		opt(subOpts)
	}
	handlerName := subOpts.name
	if handlerName == "" {
		handlerName = getHandlerName(handler)
	}

	wrappedHandler := func(ctx context.Context, n N) (err error) {
		startTime := time.Now()

		err = handler(ctx, n)

		duration := float64(time.Since(startTime).Milliseconds())
		status := "success"
		if err != nil {
			status = "error"
		}
		nType, _ := getNotificationTypeAndID(n)

		p.consumeCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("notification.type", nType),
			attribute.String("handler.name", handlerName),
			attribute.String("status", status),
		))

		p.consumeDurationHist.Record(ctx, duration, metric.WithAttributes(
			attribute.String("notification.type", nType),
			attribute.String("handler.name", handlerName),
			attribute.String("status", status),
		))

		return err
	}

	return p.next.Subscribe(wrappedHandler, opts...)
}

// Shutdown делегирует вызов следующему провайдеру.
func (p *metricsProvider[N]) Shutdown(ctx context.Context) error {
	return p.next.Shutdown(ctx)
}

// tracingMiddleware реализует BusMiddleware для распределенной трассировки OpenTelemetry.
type tracingMiddleware[N Notification] struct {
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
}

// NewTracingMiddleware создает новое middleware для трассировки.
func NewTracingMiddleware[N Notification](tp trace.TracerProvider, p propagation.TextMapPropagator) BusMiddleware[N] {
	if tp == nil {
		return &noopMiddleware[N]{}
	}

	if p == nil {
		p = propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{})
	}

	return &tracingMiddleware[N]{
		tracer: tp.Tracer(
			instrumentationName,
			trace.WithInstrumentationVersion(instrumentationVersion),
		),
		propagator: p,
	}
}

// Wrap оборачивает провайдер для добавления логики трассировки.
func (m *tracingMiddleware[N]) Wrap(next Provider[N]) Provider[N] {
	return &tracingProvider[N]{
		next:       next,
		tracer:     m.tracer,
		propagator: m.propagator,
	}
}

// tracingProvider - это обертка над провайдером уведомлений, которая управляет спанами трассировки.
type tracingProvider[N Notification] struct {
	next       Provider[N]
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
}

// Publish создает спан для публикации уведомления и инъецирует контекст трассировки.
func (p *tracingProvider[N]) Publish(ctx context.Context, n N) (err error) {
	nType, _ := getNotificationTypeAndID(n)
	spanName := fmt.Sprintf("%s publish", nType)

	ctx, span := p.tracer.Start(ctx, spanName, trace.WithSpanKind(trace.SpanKindProducer))
	defer func() {
		if err != nil {
			span.RecordError(err)
		}
		span.End()
	}()

	if md, ok := (any(n)).(Metadatable); ok {
		p.propagator.Inject(ctx, propagation.MapCarrier(md.Metadata()))
	}

	return p.next.Publish(ctx, n)
}

// Subscribe оборачивает обработчик для извлечения контекста трассировки и создания дочернего спана.
func (p *tracingProvider[N]) Subscribe(handler Handler[N], opts ...SubscribeOption[N]) (unsubscribe func(), err error) {
	wrappedHandler := func(ctx context.Context, n N) (err error) {
		if md, ok := (any(n)).(Metadatable); ok {
			ctx = p.propagator.Extract(ctx, propagation.MapCarrier(md.Metadata()))
		}

		nType, _ := getNotificationTypeAndID(n)
		spanName := fmt.Sprintf("%s process", nType)

		ctx, span := p.tracer.Start(ctx, spanName, trace.WithSpanKind(trace.SpanKindConsumer))
		defer func() {
			if err != nil {
				span.RecordError(err)
			}
			span.End()
		}()

		return handler(ctx, n)
	}

	return p.next.Subscribe(wrappedHandler, opts...)
}

// Shutdown делегирует вызов следующему провайдеру.
func (p *tracingProvider[N]) Shutdown(ctx context.Context) error {
	return p.next.Shutdown(ctx)
}

// applyMiddlewares применяет цепочку middleware к базовому провайдеру.
// Middleware применяются в обратном порядке, чтобы обеспечить правильную последовательность вызовов.
func applyMiddlewares[N Notification](provider Provider[N], middlewares ...BusMiddleware[N]) Provider[N] {
	p := provider
	for i := len(middlewares) - 1; i >= 0; i-- {
		p = middlewares[i].Wrap(p)
	}
	return p
}

// noopMiddleware представляет собой пустое middleware, которое ничего не делает и просто вызывает следующий обработчик.
type noopMiddleware[N Notification] struct{}

// Wrap просто возвращает следующий провайдер без изменений.
func (m *noopMiddleware[N]) Wrap(next Provider[N]) Provider[N] {
	return next
}

// getNotificationTypeAndID извлекает тип и ID уведомления с помощью рефлексии.
func getNotificationTypeAndID(n any) (string, string) {
	val := reflect.ValueOf(n)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	nType := val.Type().Name()
	nID := "unknown"

	if val.Kind() == reflect.Struct {
		if idField := val.FieldByName("ID"); idField.IsValid() {
			nID = fmt.Sprintf("%v", idField.Interface())
		}
	}

	return nType, nID
}

// getHandlerName извлекает имя обработчика.
func getHandlerName(handler any) string {
	v := reflect.ValueOf(handler)
	if v.Kind() == reflect.Func {
		if pc := v.Pointer(); pc != 0 {
			if f := runtime.FuncForPC(pc); f != nil {
				return f.Name()
			}
		}
	}
	return reflect.TypeOf(handler).String()
}
