package mediator

import (
	"context"
	"fmt"

	"github.com/goccy/go-reflect"
	"github.com/google/uuid"

	"github.com/x-research-team/mediator-framework/bus/notification"
	"github.com/x-research-team/mediator-framework/bus/request"
	"github.com/x-research-team/mediator-framework/bus/result"
)

// Registration представляет собой декларативную связь конструктора
// обработчика с типом запроса или уведомления, который он обслуживает.
// Регистрация создается только функциями Handles, Observes и Provides
// и заменяет собой неявные механизмы вроде декораторов или рефлексии
// по аннотациям.
type Registration struct {
	// id — идентификатор регистрации; служит ключом кеша резолвера.
	id uuid.UUID
	// messageType — объявленный тип запроса или уведомления;
	// nil для регистраций без ассоциации (Provides).
	messageType reflect.Type
	// construct — конструктор обработчика, передаваемый хост-контейнеру
	// без изменений.
	construct func() any
	// bind вносит регистрацию в реестры медиатора; nil для Provides.
	bind func(m *Mediator) error
}

// Handles создает регистрацию обработчика запроса: конструктор construct
// ассоциируется с типом запроса Q. Экземпляр обработчика запрашивается у
// резолвера при каждой диспетчеризации; политика синглтона по умолчанию
// сводит это к одному вызову конструктора.
func Handles[Q request.Request[R], R any](construct func() RequestHandler[Q, R]) Registration {
	id := uuid.New()
	requestType := reflect.TypeOf((*Q)(nil)).Elem()

	return Registration{
		id:          id,
		messageType: requestType,
		construct:   func() any { return construct() },
		bind: func(m *Mediator) error {
			return request.Register(m.dispatcher, func(ctx context.Context, req Q) (*result.Result[R], error) {
				instance, err := m.resolver.Resolve(id, func() any { return construct() })
				if err != nil {
					return nil, fmt.Errorf("не удалось разрешить обработчик запроса '%s': %w", requestType, err)
				}

				handler, ok := instance.(RequestHandler[Q, R])
				if !ok {
					return nil, fmt.Errorf("неожиданный тип экземпляра обработчика: %T", instance)
				}
				return handler.Handle(ctx, req)
			})
		},
	}
}

// Observes создает регистрацию обработчика уведомления: конструктор
// construct ассоциируется с типом уведомления N. Несколько регистраций
// могут объявлять один и тот же тип уведомления; порядок объявления
// становится порядком вызова.
func Observes[N notification.Notification](construct func() NotificationHandler[N]) Registration {
	id := uuid.New()
	notificationType := reflect.TypeOf((*N)(nil)).Elem()

	return Registration{
		id:          id,
		messageType: notificationType,
		construct:   func() any { return construct() },
		bind: func(m *Mediator) error {
			publisher, err := notification.Publisher(m.publishers, publisherOptions[N](m.cfg)...)
			if err != nil {
				return fmt.Errorf("не удалось получить издателя для уведомления '%s': %w", notificationType, err)
			}

			_, err = publisher.Subscribe(func(ctx context.Context, n N) error {
				instance, err := m.resolver.Resolve(id, func() any { return construct() })
				if err != nil {
					return fmt.Errorf("не удалось разрешить обработчик уведомления '%s': %w", notificationType, err)
				}

				handler, ok := instance.(NotificationHandler[N])
				if !ok {
					return fmt.Errorf("неожиданный тип экземпляра обработчика: %T", instance)
				}
				return handler.Handle(ctx, n)
			})
			return err
		},
	}
}

// Provides создает регистрацию без ассоциации с типом сообщения: конструктор
// игнорируется при построении реестров, но передается хост-контейнеру вместе
// с остальными без изменений.
func Provides(construct func() any) Registration {
	return Registration{
		id:        uuid.New(),
		construct: construct,
	}
}

// publisherOptions переносит сквозную конфигурацию медиатора на издателя
// конкретного типа уведомления.
func publisherOptions[N notification.Notification](cfg *config) []notification.Option[N] {
	return []notification.Option[N]{
		notification.WithLogger[N](cfg.logger),
		notification.WithMeterProvider[N](cfg.meterProvider),
		notification.WithTracerProvider[N](cfg.tracerProvider),
		notification.WithPropagator[N](cfg.propagator),
	}
}
