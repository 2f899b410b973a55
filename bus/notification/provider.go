package notification

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Provider определяет контракт для сменных механизмов доставки уведомлений.
type Provider[N Notification] interface {
	// Publish доставляет уведомление всем подписчикам в порядке их регистрации.
	Publish(ctx context.Context, n N) error

	// Subscribe подписывает обработчик на уведомления.
	// Возвращает функцию для отписки.
	Subscribe(handler Handler[N], opts ...SubscribeOption[N]) (unsubscribe func(), err error)

	// Shutdown корректно завершает работу провайдера.
	Shutdown(ctx context.Context) error
}

// subscription представляет собой внутреннюю структуру для хранения информации
// о конкретной подписке.
type subscription[N Notification] struct {
	// id представляет собой уникальный идентификатор подписки (UUID),
	// который используется для ее безопасного удаления (отписки).
	id string
	// handler — это функция-обработчик уведомления с уже примененной
	// цепочкой middleware подписки.
	handler Handler[N]
	// isAsync — флаг, указывающий, должна ли обработка выполняться
	// асинхронно через пул воркеров.
	isAsync bool
	// errorHandler — опциональная функция для пользовательской обработки
	// ошибок, возникающих во время выполнения handler.
	errorHandler ErrorHandler[N]
	// name — имя подписчика для логов и метрик.
	name string
}

// localProvider — это реализация интерфейса Provider, которая доставляет
// уведомления локально, в рамках одного процесса. Доставка по умолчанию
// строго последовательна: обработчик N+1 не вызывается, пока не вернулся
// обработчик N, а первая ошибка синхронного обработчика прерывает доставку
// оставшимся и возвращается вызывающей стороне.
type localProvider[N Notification] struct {
	subscribers []*subscription[N]
	mu          sync.RWMutex
	cfg         *config[N]
	pool        *workerPool[N]
}

// NewLocalProvider создает новый экземпляр локального провайдера.
func NewLocalProvider[N Notification](cfg *config[N]) (*localProvider[N], error) {
	pool := newWorkerPool[N](cfg.workerMin, cfg.workerMax, cfg.queueSize)
	pool.run()

	return &localProvider[N]{
		subscribers: make([]*subscription[N], 0),
		cfg:         cfg,
		pool:        pool,
	}, nil
}

// Publish доставляет уведомление всем подписчикам в порядке регистрации.
// Отсутствие подписчиков не является ошибкой: в этом случае не выполняется
// никакой работы.
func (lp *localProvider[N]) Publish(ctx context.Context, n N) error {
	lp.mu.RLock()
	subs := make([]*subscription[N], len(lp.subscribers))
	copy(subs, lp.subscribers)
	lp.mu.RUnlock()

	for _, sub := range subs {
		if sub.isAsync {
			lp.pool.enqueue(&Task[N]{
				ctx:          ctx,
				notification: n,
				handler:      sub.handler,
				errorHandler: sub.errorHandler,
			})
			continue
		}

		if err := sub.handler(ctx, n); err != nil {
			if sub.errorHandler != nil {
				sub.errorHandler(err, n)
				continue
			}
			return err
		}
	}

	return nil
}

// Subscribe подписывает обработчик на уведомления. Порядок подписки
// определяет порядок вызова при публикации.
func (lp *localProvider[N]) Subscribe(handler Handler[N], opts ...SubscribeOption[N]) (unsubscribe func(), err error) {
	subOpts := subscriptionOptions[N]{}
	for _, opt := range opts {
		opt(&subOpts)
	}

	finalHandler := handler
	for i := len(subOpts.middleware) - 1; i >= 0; i-- {
		finalHandler = subOpts.middleware[i](finalHandler)
	}

	sub := &subscription[N]{
		id:           uuid.NewString(),
		handler:      finalHandler,
		isAsync:      subOpts.isAsync,
		errorHandler: subOpts.errorHandler,
		name:         subOpts.name,
	}

	lp.mu.Lock()
	defer lp.mu.Unlock()

	lp.subscribers = append(lp.subscribers, sub)

	return func() {
		lp.mu.Lock()
		defer lp.mu.Unlock()

		for i, s := range lp.subscribers {
			if s.id == sub.id {
				lp.subscribers = append(lp.subscribers[:i], lp.subscribers[i+1:]...)
				break
			}
		}
	}, nil
}

// Shutdown корректно завершает работу провайдера, дожидаясь завершения
// асинхронных обработчиков.
func (lp *localProvider[N]) Shutdown(ctx context.Context) error {
	lp.pool.stop()
	return nil
}
