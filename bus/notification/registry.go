package notification

import (
	"context"
	"fmt"
	"sync"

	"github.com/goccy/go-reflect"
)

// Registry - это потокобезопасный реестр для управления экземплярами
// издателей уведомлений. Ключом служит конкретный тип уведомления, поэтому
// для каждого типа существует ровно один издатель.
type Registry struct {
	mu         sync.RWMutex
	publishers map[reflect.Type]any
}

// NewRegistry создает новый экземпляр реестра издателей.
func NewRegistry() *Registry {
	return &Registry{
		publishers: make(map[reflect.Type]any),
	}
}

// Publisher возвращает строго типизированный экземпляр издателя для типа
// уведомления N, создавая его при первом обращении.
func Publisher[N Notification](r *Registry, opts ...Option[N]) (IPublisher[N], error) {
	notificationType := reflect.TypeOf((*N)(nil)).Elem()

	r.mu.RLock()
	publisher, exists := r.publishers[notificationType]
	r.mu.RUnlock()

	if exists {
		if typedPublisher, ok := publisher.(IPublisher[N]); ok {
			return typedPublisher, nil
		}
		return nil, fmt.Errorf("издатель для уведомления '%s' уже существует с другим типом", notificationType)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Повторная проверка на случай, если издатель был создан во время ожидания блокировки.
	if publisher, exists := r.publishers[notificationType]; exists {
		if typedPublisher, ok := publisher.(IPublisher[N]); ok {
			return typedPublisher, nil
		}
		return nil, fmt.Errorf("издатель для уведомления '%s' уже существует с другим типом", notificationType)
	}

	newPublisher, err := NewPublisher(opts...)
	if err != nil {
		return nil, fmt.Errorf("не удалось создать издателя для уведомления '%s': %w", notificationType, err)
	}

	r.publishers[notificationType] = newPublisher
	return newPublisher, nil
}

// Publish публикует уведомление через издателя, зарегистрированного для его
// типа. Отсутствие издателя не является ошибкой: уведомление без подписчиков
// не требует никакой работы, издатель при этом не создается.
func Publish[N Notification](ctx context.Context, r *Registry, n N) error {
	notificationType := reflect.TypeOf((*N)(nil)).Elem()

	r.mu.RLock()
	publisher, exists := r.publishers[notificationType]
	r.mu.RUnlock()

	if !exists {
		return nil
	}

	typedPublisher, ok := publisher.(IPublisher[N])
	if !ok {
		return fmt.Errorf("издатель для уведомления '%s' уже существует с другим типом", notificationType)
	}

	return typedPublisher.Publish(ctx, n)
}

// Shutdown корректно завершает работу всех зарегистрированных издателей.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for notificationType, publisherInstance := range r.publishers {
		if shutdowner, ok := publisherInstance.(interface {
			Shutdown(context.Context) error
		}); ok {
			if err := shutdowner.Shutdown(ctx); err != nil {
				return fmt.Errorf("ошибка при закрытии издателя для уведомления '%s': %w", notificationType, err)
			}
		}
	}

	return nil
}
