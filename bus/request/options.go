package request

import (
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// config содержит неэкспортируемую конфигурацию для шины запросов.
type config struct {
	logger         *slog.Logger
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	propagator     propagation.TextMapPropagator
	middlewares    []Middleware
	behaviors      []Behavior
}

// Option определяет тип для функциональных опций, которые изменяют конфигурацию шины.
type Option func(*config)

// WithLogger возвращает опцию, которая устанавливает логгер для шины.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithTracerProvider возвращает опцию, которая устанавливает провайдер трассировки.
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(c *config) {
		c.tracerProvider = provider
	}
}

// WithMeterProvider возвращает опцию, которая устанавливает провайдер метрик.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(c *config) {
		c.meterProvider = provider
	}
}

// WithPropagator возвращает опцию, которая устанавливает механизм распространения контекста.
func WithPropagator(propagator propagation.TextMapPropagator) Option {
	return func(c *config) {
		c.propagator = propagator
	}
}

// WithMiddleware возвращает опцию, которая добавляет один или несколько
// middleware уровня провайдера в цепочку обработки.
func WithMiddleware(mw ...Middleware) Option {
	return func(c *config) {
		c.middlewares = append(c.middlewares, mw...)
	}
}

// WithBehavior возвращает опцию, которая добавляет один или несколько
// pipeline behaviors. Behaviors оборачивают каждый регистрируемый обработчик:
// первый добавленный behavior выполняется внешним.
func WithBehavior(behaviors ...Behavior) Option {
	return func(c *config) {
		c.behaviors = append(c.behaviors, behaviors...)
	}
}
