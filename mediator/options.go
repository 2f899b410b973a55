package mediator

import (
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/x-research-team/mediator-framework/bus/request"
)

// config содержит неэкспортируемую конфигурацию медиатора.
type config struct {
	logger         *slog.Logger
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	propagator     propagation.TextMapPropagator
	behaviors      []request.Behavior
	resolver       Resolver
}

// Option определяет тип для функциональных опций, которые изменяют конфигурацию медиатора.
type Option func(*config)

// WithLogger возвращает опцию, которая устанавливает логгер медиатора.
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

// WithBehavior возвращает опцию, которая добавляет один или несколько
// pipeline behaviors вокруг диспетчеризации запросов. Первый добавленный
// behavior выполняется внешним.
func WithBehavior(behaviors ...request.Behavior) Option {
	return func(c *config) {
		c.behaviors = append(c.behaviors, behaviors...)
	}
}

// WithResolver возвращает опцию, которая подменяет коллаборатора разрешения
// экземпляров. По умолчанию используется резолвер с политикой синглтона.
func WithResolver(resolver Resolver) Option {
	return func(c *config) {
		c.resolver = resolver
	}
}
