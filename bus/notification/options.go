package notification

import (
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// config содержит неэкспортируемую конфигурацию для издателя уведомлений.
type config[N Notification] struct {
	logger         *slog.Logger
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	propagator     propagation.TextMapPropagator
	middlewares    []BusMiddleware[N]
	provider       Provider[N]
	workerMin      int
	workerMax      int
	queueSize      int
}

// subscriptionOptions определяет набор параметров для конфигурации конкретной подписки.
type subscriptionOptions[N Notification] struct {
	// isAsync указывает, должен ли обработчик выполняться асинхронно
	// через пул воркеров. По умолчанию доставка строго синхронна.
	isAsync bool
	// errorHandler задает пользовательскую функцию для обработки ошибок,
	// возникающих в Handler.
	errorHandler ErrorHandler[N]
	// middleware содержит цепочку функций-декораторов, которые будут
	// применены к обработчику данной подписки.
	middleware []Middleware[N]
	// name задает имя подписчика для логов и метрик.
	name string
}

// Option определяет тип для функциональных опций, которые изменяют конфигурацию издателя.
type Option[N Notification] func(*config[N])

// SubscribeOption — это функциональная опция для настройки подписки.
type SubscribeOption[N Notification] func(*subscriptionOptions[N])

// WithLogger возвращает опцию, которая устанавливает логгер для издателя.
func WithLogger[N Notification](logger *slog.Logger) Option[N] {
	return func(c *config[N]) {
		c.logger = logger
	}
}

// WithTracerProvider возвращает опцию, которая устанавливает провайдер трассировки.
func WithTracerProvider[N Notification](provider trace.TracerProvider) Option[N] {
	return func(c *config[N]) {
		c.tracerProvider = provider
	}
}

// WithMeterProvider возвращает опцию, которая устанавливает провайдер метрик.
func WithMeterProvider[N Notification](provider metric.MeterProvider) Option[N] {
	return func(c *config[N]) {
		c.meterProvider = provider
	}
}

// WithPropagator возвращает опцию, которая устанавливает механизм распространения контекста.
func WithPropagator[N Notification](propagator propagation.TextMapPropagator) Option[N] {
	return func(c *config[N]) {
		c.propagator = propagator
	}
}

// WithBusMiddleware возвращает опцию, которая добавляет один или несколько
// middleware уровня провайдера в цепочку обработки издателя.
func WithBusMiddleware[N Notification](mw ...BusMiddleware[N]) Option[N] {
	return func(c *config[N]) {
		c.middlewares = append(c.middlewares, mw...)
	}
}

// WithProvider устанавливает кастомный провайдер доставки уведомлений.
func WithProvider[N Notification](p Provider[N]) Option[N] {
	return func(c *config[N]) {
		c.provider = p
	}
}

// WithWorkerPoolConfig настраивает параметры пула горутин для асинхронных обработчиков.
func WithWorkerPoolConfig[N Notification](minWorkers, maxWorkers, queueSize int) Option[N] {
	return func(c *config[N]) {
		c.workerMin = minWorkers
		c.workerMax = maxWorkers
		c.queueSize = queueSize
	}
}

// WithAsync — опция, включающая асинхронный режим обработки для подписчика.
// Асинхронный подписчик не участвует в последовательной гарантии доставки:
// его ошибки не прерывают остальных подписчиков.
func WithAsync[N Notification]() SubscribeOption[N] {
	return func(o *subscriptionOptions[N]) {
		o.isAsync = true
	}
}

// WithErrorHandler — опция, позволяющая задать пользовательский обработчик ошибок.
func WithErrorHandler[N Notification](handler ErrorHandler[N]) SubscribeOption[N] {
	return func(o *subscriptionOptions[N]) {
		o.errorHandler = handler
	}
}

// WithMiddleware добавляет локальные middleware, которые применяются только к данной подписке.
func WithMiddleware[N Notification](mw ...Middleware[N]) SubscribeOption[N] {
	return func(o *subscriptionOptions[N]) {
		o.middleware = append(o.middleware, mw...)
	}
}

// WithSubscriberName задает имя подписчика для логов и метрик.
func WithSubscriberName[N Notification](name string) SubscribeOption[N] {
	return func(o *subscriptionOptions[N]) {
		o.name = name
	}
}
