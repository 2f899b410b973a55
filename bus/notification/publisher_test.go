package notification

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Тестовые уведомления ---

type userRegistered struct {
	UserID string
}

type orderShipped struct {
	OrderID string
}

// --- Тесты ---

// Тест порядка доставки: обработчики вызываются последовательно в порядке
// подписки, каждый ровно один раз и с одним и тем же значением уведомления.
func TestPublisher_PublishSubscribe_Order(t *testing.T) {
	t.Parallel()

	publisher, err := NewPublisher[userRegistered]()
	require.NoError(t, err)

	var calls []string
	var received []userRegistered

	subscribe := func(name string) {
		_, err := publisher.Subscribe(func(ctx context.Context, n userRegistered) error {
			calls = append(calls, name)
			received = append(received, n)
			return nil
		}, WithSubscriberName[userRegistered](name))
		require.NoError(t, err)
	}

	subscribe("first")
	subscribe("second")

	n := userRegistered{UserID: "user-123"}
	require.NoError(t, publisher.Publish(context.Background(), n))

	assert.Equal(t, []string{"first", "second"}, calls, "обработчики должны вызываться в порядке подписки")
	assert.Equal(t, []userRegistered{n, n}, received, "каждый обработчик должен получить одно и то же уведомление")
}

// Тест публикации без подписчиков: не ошибка и не работа.
func TestPublisher_Publish_NoSubscribers(t *testing.T) {
	t.Parallel()

	publisher, err := NewPublisher[userRegistered]()
	require.NoError(t, err)

	err = publisher.Publish(context.Background(), userRegistered{UserID: "user-123"})
	assert.NoError(t, err, "публикация без подписчиков не должна вызывать ошибку")
}

// Тест отсутствия изоляции ошибок: ошибка обработчика N прерывает доставку
// обработчикам N+1..конец и передается вызывающей стороне без изменений.
func TestPublisher_Publish_ErrorAbortsRemaining(t *testing.T) {
	t.Parallel()

	publisher, err := NewPublisher[userRegistered]()
	require.NoError(t, err)

	handlerErr := fmt.Errorf("ошибка в обработчике")
	var secondCalled bool

	_, err = publisher.Subscribe(func(ctx context.Context, n userRegistered) error {
		return handlerErr
	})
	require.NoError(t, err)

	_, err = publisher.Subscribe(func(ctx context.Context, n userRegistered) error {
		secondCalled = true
		return nil
	})
	require.NoError(t, err)

	err = publisher.Publish(context.Background(), userRegistered{UserID: "user-123"})
	assert.Equal(t, handlerErr, err, "ошибка обработчика должна передаваться без изменений")
	assert.False(t, secondCalled, "оставшиеся обработчики не должны вызываться после ошибки")
}

// Тест пользовательского обработчика ошибок: ошибка потребляется,
// доставка продолжается.
func TestPublisher_Publish_ErrorHandlerConsumes(t *testing.T) {
	t.Parallel()

	publisher, err := NewPublisher[userRegistered]()
	require.NoError(t, err)

	handlerErr := fmt.Errorf("ошибка в обработчике")
	var receivedErr error
	var secondCalled bool

	_, err = publisher.Subscribe(func(ctx context.Context, n userRegistered) error {
		return handlerErr
	}, WithErrorHandler(func(err error, n userRegistered) {
		receivedErr = err
	}))
	require.NoError(t, err)

	_, err = publisher.Subscribe(func(ctx context.Context, n userRegistered) error {
		secondCalled = true
		return nil
	})
	require.NoError(t, err)

	err = publisher.Publish(context.Background(), userRegistered{UserID: "user-123"})
	require.NoError(t, err, "потребленная ошибка не должна доходить до издателя")
	assert.Equal(t, handlerErr, receivedErr, "обработчик ошибок должен получить правильную ошибку")
	assert.True(t, secondCalled, "доставка должна продолжиться после потребленной ошибки")
}

// Тест отписки: после вызова unsubscribe обработчик больше не получает уведомления.
func TestPublisher_Unsubscribe(t *testing.T) {
	t.Parallel()

	publisher, err := NewPublisher[userRegistered]()
	require.NoError(t, err)

	var firstCalls, secondCalls int

	unsubscribe, err := publisher.Subscribe(func(ctx context.Context, n userRegistered) error {
		firstCalls++
		return nil
	})
	require.NoError(t, err)

	_, err = publisher.Subscribe(func(ctx context.Context, n userRegistered) error {
		secondCalls++
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, publisher.Publish(context.Background(), userRegistered{}))
	unsubscribe()
	require.NoError(t, publisher.Publish(context.Background(), userRegistered{}))

	assert.Equal(t, 1, firstCalls, "отписанный обработчик не должен вызываться")
	assert.Equal(t, 2, secondCalls)
}

// Тест асинхронного режима подписки.
func TestPublisher_Publish_Async(t *testing.T) {
	t.Parallel()

	publisher, err := NewPublisher[orderShipped]()
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)

	var received orderShipped
	_, err = publisher.Subscribe(func(ctx context.Context, n orderShipped) error {
		received = n
		wg.Done()
		return nil
	}, WithAsync[orderShipped]())
	require.NoError(t, err)

	n := orderShipped{OrderID: "order-456"}
	require.NoError(t, publisher.Publish(context.Background(), n))

	wg.Wait()
	assert.Equal(t, n, received)
}

// Тест middleware подписки: цепочка применяется в порядке добавления.
func TestPublisher_SubscriptionMiddleware(t *testing.T) {
	t.Parallel()

	publisher, err := NewPublisher[userRegistered]()
	require.NoError(t, err)

	var calls []string

	makeMiddleware := func(name string) Middleware[userRegistered] {
		return func(next Handler[userRegistered]) Handler[userRegistered] {
			return func(ctx context.Context, n userRegistered) error {
				calls = append(calls, name)
				return next(ctx, n)
			}
		}
	}

	_, err = publisher.Subscribe(func(ctx context.Context, n userRegistered) error {
		calls = append(calls, "handler")
		return nil
	}, WithMiddleware(makeMiddleware("mw1"), makeMiddleware("mw2")))
	require.NoError(t, err)

	require.NoError(t, publisher.Publish(context.Background(), userRegistered{}))
	assert.Equal(t, []string{"mw1", "mw2", "handler"}, calls,
		"middleware должны выполняться в порядке добавления снаружи внутрь")
}

// Тест кастомного провайдера.
func TestPublisher_WithProvider(t *testing.T) {
	t.Parallel()

	mock := &mockProvider[userRegistered]{
		publishFunc: func(ctx context.Context, n userRegistered) error {
			assert.Equal(t, "user-provider-123", n.UserID)
			return nil
		},
	}

	publisher, err := NewPublisher(WithProvider[userRegistered](mock))
	require.NoError(t, err)

	err = publisher.Publish(context.Background(), userRegistered{UserID: "user-provider-123"})
	require.NoError(t, err)
	assert.True(t, mock.publishCalled, "метод Publish у mock-провайдера должен быть вызван")
}

// Тест реестра: один издатель на тип уведомления.
func TestRegistry_Publisher(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()

	publisher1, err := Publisher[userRegistered](registry)
	require.NoError(t, err)
	require.NotNil(t, publisher1)

	publisher2, err := Publisher[userRegistered](registry)
	require.NoError(t, err)
	assert.Same(t, publisher1, publisher2, "реестр должен возвращать один и тот же экземпляр издателя для одного типа")

	other, err := Publisher[orderShipped](registry)
	require.NoError(t, err)
	assert.NotSame(t, publisher1, other, "для разных типов должны создаваться разные издатели")
}

// Тест публикации через реестр: для незарегистрированного типа работа не
// выполняется и издатель не создается.
func TestRegistry_Publish_UnknownType(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()

	err := Publish(context.Background(), registry, userRegistered{UserID: "user-123"})
	require.NoError(t, err, "публикация для незарегистрированного типа не должна вызывать ошибку")

	registry.mu.RLock()
	defer registry.mu.RUnlock()
	assert.Empty(t, registry.publishers, "публикация не должна создавать издателя")
}

// Тест завершения работы реестра.
func TestRegistry_Shutdown(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	_, err := Publisher[userRegistered](registry)
	require.NoError(t, err)
	_, err = Publisher[orderShipped](registry)
	require.NoError(t, err)

	err = registry.Shutdown(context.Background())
	require.NoError(t, err)
}

// --- Mock Provider ---

// mockProvider - это mock-реализация интерфейса Provider для тестирования.
type mockProvider[N Notification] struct {
	publishFunc   func(ctx context.Context, n N) error
	publishCalled bool
}

func (m *mockProvider[N]) Publish(ctx context.Context, n N) error {
	m.publishCalled = true
	if m.publishFunc != nil {
		return m.publishFunc(ctx, n)
	}
	return nil
}

func (m *mockProvider[N]) Subscribe(handler Handler[N], opts ...SubscribeOption[N]) (unsubscribe func(), err error) {
	return func() {}, nil
}

func (m *mockProvider[N]) Shutdown(ctx context.Context) error {
	return nil
}

// --- Тесты производительности ---

// benchmarkPublish — это обобщенная вспомогательная функция для запуска
// тестов производительности издателя с разным числом подписчиков.
func benchmarkPublish(b *testing.B, numSubscribers int) {
	publisher, err := NewPublisher[userRegistered]()
	if err != nil {
		b.Fatalf("не удалось создать издателя: %v", err)
	}

	handler := func(ctx context.Context, n userRegistered) error {
		return nil
	}

	for i := 0; i < numSubscribers; i++ {
		unsubscribe, err := publisher.Subscribe(handler)
		if err != nil {
			b.Fatalf("не удалось подписаться: %v", err)
		}
		defer unsubscribe()
	}

	n := userRegistered{UserID: "bench"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := publisher.Publish(context.Background(), n); err != nil {
			b.Errorf("ошибка публикации: %v", err)
		}
	}
}

func BenchmarkPublish_OneSubscriber(b *testing.B) {
	benchmarkPublish(b, 1)
}

func BenchmarkPublish_MultipleSubscribers(b *testing.B) {
	benchmarkPublish(b, 100)
}
