package notification

import (
	"context"
	"fmt"
)

// IPublisher определяет строго типизированный интерфейс для публикации
// уведомлений конкретного типа N и подписки на них.
type IPublisher[N Notification] interface {
	// Publish доставляет уведомление всем подписчикам в порядке регистрации.
	Publish(ctx context.Context, n N) error

	// Subscribe подписывает строго типизированный обработчик на уведомления типа N.
	Subscribe(handler Handler[N], opts ...SubscribeOption[N]) (unsubscribe func(), err error)

	// Shutdown корректно завершает работу издателя.
	Shutdown(ctx context.Context) error
}

// publisherImpl - это реализация строго типизированного издателя уведомлений.
type publisherImpl[N Notification] struct {
	provider Provider[N]
	cfg      *config[N]
}

// NewPublisher создает новый, строго типизированный экземпляр издателя для
// конкретного типа уведомления N.
func NewPublisher[N Notification](opts ...Option[N]) (IPublisher[N], error) {
	cfg := &config[N]{
		workerMin: 1,
		workerMax: 10,
		queueSize: 100,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	provider := cfg.provider
	if provider == nil {
		localProvider, err := NewLocalProvider(cfg)
		if err != nil {
			return nil, fmt.Errorf("не удалось создать локальный провайдер: %w", err)
		}
		provider = localProvider
	}

	// Применяем middleware. Сначала добавляем middleware по умолчанию, затем пользовательские.
	allMiddlewares := []BusMiddleware[N]{
		NewLoggingMiddleware[N](cfg.logger),
		NewMetricsMiddleware[N](cfg.meterProvider),
		NewTracingMiddleware[N](cfg.tracerProvider, cfg.propagator),
	}
	allMiddlewares = append(allMiddlewares, cfg.middlewares...)
	wrappedProvider := applyMiddlewares(provider, allMiddlewares...)

	return &publisherImpl[N]{
		provider: wrappedProvider,
		cfg:      cfg,
	}, nil
}

// Publish публикует уведомление.
func (p *publisherImpl[N]) Publish(ctx context.Context, n N) error {
	return p.provider.Publish(ctx, n)
}

// Subscribe подписывает обработчик на уведомления.
func (p *publisherImpl[N]) Subscribe(handler Handler[N], opts ...SubscribeOption[N]) (unsubscribe func(), err error) {
	return p.provider.Subscribe(handler, opts...)
}

// Shutdown завершает работу издателя.
func (p *publisherImpl[N]) Shutdown(ctx context.Context) error {
	return p.provider.Shutdown(ctx)
}
