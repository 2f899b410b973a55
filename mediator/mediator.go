package mediator

import (
	"context"
	"fmt"

	"log/slog"

	"github.com/x-research-team/mediator-framework/bus/notification"
	"github.com/x-research-team/mediator-framework/bus/request"
	"github.com/x-research-team/mediator-framework/bus/result"
)

// Mediator объединяет диспетчер запросов и издателей уведомлений за одним
// фасадом. Экземпляр создается через New или Compose один раз на
// композиционный корень и передается по ссылке всем точкам вызова.
type Mediator struct {
	dispatcher request.IDispatcher
	publishers *notification.Registry
	resolver   Resolver
	cfg        *config
}

// New создает новый, готовый к использованию экземпляр медиатора с пустыми
// реестрами.
func New(opts ...Option) (*Mediator, error) {
	cfg := &config{
		logger:   slog.Default(),
		resolver: NewSingletonResolver(),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	dispatcher, err := request.NewDispatcher(
		request.WithLogger(cfg.logger),
		request.WithMeterProvider(cfg.meterProvider),
		request.WithTracerProvider(cfg.tracerProvider),
		request.WithPropagator(cfg.propagator),
		request.WithBehavior(cfg.behaviors...),
	)
	if err != nil {
		return nil, fmt.Errorf("не удалось создать диспетчер запросов: %w", err)
	}

	return &Mediator{
		dispatcher: dispatcher,
		publishers: notification.NewRegistry(),
		resolver:   cfg.resolver,
		cfg:        cfg,
	}, nil
}

// Module представляет собой результат композиции: медиатор с построенными
// реестрами и список провайдеров для регистрации в хост-контейнере —
// входные конструкторы в исходном порядке, дополненные провайдером самого
// медиатора.
type Module struct {
	Mediator  *Mediator
	Providers []func() any
}

// Compose строит медиатор из плоского списка регистраций. Регистрации без
// ассоциации игнорируются при построении реестров, но попадают в список
// провайдеров. Пустой список — допустимый вход: возвращается работоспособный
// медиатор с пустыми реестрами.
func Compose(registrations []Registration, opts ...Option) (*Module, error) {
	m, err := New(opts...)
	if err != nil {
		return nil, err
	}

	providers := make([]func() any, 0, len(registrations)+1)
	for _, registration := range registrations {
		if registration.bind != nil {
			if err := registration.bind(m); err != nil {
				return nil, fmt.Errorf("не удалось выполнить регистрацию '%s': %w", registration.messageType, err)
			}
		}
		providers = append(providers, registration.construct)
	}

	providers = append(providers, func() any { return m })

	return &Module{
		Mediator:  m,
		Providers: providers,
	}, nil
}

// Shutdown корректно завершает работу медиатора: диспетчера запросов и всех
// издателей уведомлений.
func (m *Mediator) Shutdown(ctx context.Context) error {
	if err := m.dispatcher.Shutdown(ctx); err != nil {
		return err
	}
	return m.publishers.Shutdown(ctx)
}

// Send — основная точка входа диспетчеризации запроса: возвращает ленивый
// результат, нормализованный к единой абстракции.
func Send[Q request.Request[R], R any](ctx context.Context, m *Mediator, req Q) (*result.Result[R], error) {
	return request.Send[Q, R](ctx, m.dispatcher, req)
}

// SendAwait диспетчеризует запрос и принудительно разрешает результат в одно значение.
func SendAwait[Q request.Request[R], R any](ctx context.Context, m *Mediator, req Q) (R, error) {
	return request.SendAwait[Q, R](ctx, m.dispatcher, req)
}

// SendSync диспетчеризует запрос и требует, чтобы обработчик произвел
// значение синхронно.
func SendSync[Q request.Request[R], R any](ctx context.Context, m *Mediator, req Q) (R, error) {
	return request.SendSync[Q, R](ctx, m.dispatcher, req)
}

// Publish доставляет уведомление всем зарегистрированным для его типа
// обработчикам в порядке объявления. Отсутствие обработчиков не является
// ошибкой.
func Publish[N notification.Notification](ctx context.Context, m *Mediator, n N) error {
	return notification.Publish(ctx, m.publishers, n)
}
