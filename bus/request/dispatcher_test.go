package request_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/x-research-team/mediator-framework/bus/request"
	"github.com/x-research-team/mediator-framework/bus/result"
)

// Тестовый запрос для проверки.
type testRequest struct {
	Value string
}

// Тестовый запрос без зарегистрированного обработчика.
type unknownRequest struct {
	Value int
}

// Тестовый обработчик запроса с немедленным синхронным результатом.
func testRequestHandler(ctx context.Context, req testRequest) (*result.Result[string], error) {
	return result.Of("processed: " + req.Value), nil
}

// Тест успешной регистрации и выполнения запроса через все три точки входа.
func TestDispatcher_Send_Success(t *testing.T) {
	t.Parallel()

	dispatcher, err := request.NewDispatcher()
	require.NoError(t, err)
	require.NoError(t, request.Register(dispatcher, testRequestHandler))

	req := testRequest{Value: "test"}

	// Основная точка входа: последовательность выдает значение ровно один раз.
	res, err := request.Send[testRequest, string](context.Background(), dispatcher, req)
	require.NoError(t, err, "выполнение запроса не должно вызывать ошибку")

	var values []string
	for v, seqErr := range res.Seq(context.Background()) {
		require.NoError(t, seqErr)
		values = append(values, v)
	}
	assert.Equal(t, []string{"processed: test"}, values, "последовательность должна выдать значение ровно один раз")

	// Точка входа с принудительным разрешением.
	awaited, err := request.SendAwait[testRequest, string](context.Background(), dispatcher, req)
	require.NoError(t, err)
	assert.Equal(t, "processed: test", awaited)

	// Синхронная точка входа.
	sync, err := request.SendSync[testRequest, string](context.Background(), dispatcher, req)
	require.NoError(t, err)
	assert.Equal(t, "processed: test", sync)
}

// Тест ошибки "обработчик не найден" для всех трех точек входа.
func TestDispatcher_Send_NoHandler(t *testing.T) {
	t.Parallel()

	dispatcher, err := request.NewDispatcher()
	require.NoError(t, err)
	require.NoError(t, request.Register(dispatcher, testRequestHandler))

	req := unknownRequest{Value: 1}

	_, err = request.Send[unknownRequest, string](context.Background(), dispatcher, req)
	require.Error(t, err, "выполнение запроса без обработчика должно вызывать ошибку")
	assert.ErrorIs(t, err, request.ErrHandlerNotFound)
	assert.Contains(t, err.Error(), "unknownRequest", "текст ошибки должен называть конкретный тип запроса")

	_, err = request.SendAwait[unknownRequest, string](context.Background(), dispatcher, req)
	require.Error(t, err)
	assert.ErrorIs(t, err, request.ErrHandlerNotFound)

	_, err = request.SendSync[unknownRequest, string](context.Background(), dispatcher, req)
	require.Error(t, err)
	assert.ErrorIs(t, err, request.ErrHandlerNotFound)
}

// Тест нарушения синхронного контракта: отложенный или потоковый результат
// всегда отвергается синхронной точкой входа, независимо от итогового значения.
func TestDispatcher_SendSync_ContractViolation(t *testing.T) {
	t.Parallel()

	t.Run("отложенный результат", func(t *testing.T) {
		t.Parallel()

		dispatcher, err := request.NewDispatcher()
		require.NoError(t, err)
		require.NoError(t, request.Register(dispatcher, func(ctx context.Context, req testRequest) (*result.Result[string], error) {
			return result.Defer(func(ctx context.Context) (string, error) {
				return "deferred: " + req.Value, nil
			}), nil
		}))

		_, err = request.SendSync[testRequest, string](context.Background(), dispatcher, testRequest{Value: "test"})
		require.Error(t, err)
		assert.ErrorIs(t, err, request.ErrSynchronousContract)
		assert.Contains(t, err.Error(), "testRequest", "текст ошибки должен называть конкретный тип запроса")

		// Точка входа с принудительным разрешением при этом работает.
		awaited, err := request.SendAwait[testRequest, string](context.Background(), dispatcher, testRequest{Value: "test"})
		require.NoError(t, err)
		assert.Equal(t, "deferred: test", awaited)
	})

	t.Run("потоковый результат", func(t *testing.T) {
		t.Parallel()

		dispatcher, err := request.NewDispatcher()
		require.NoError(t, err)
		require.NoError(t, request.Register(dispatcher, func(ctx context.Context, req testRequest) (*result.Result[string], error) {
			ch := make(chan string, 1)
			ch <- "streamed"
			close(ch)
			return result.FromChan(ch), nil
		}))

		_, err = request.SendSync[testRequest, string](context.Background(), dispatcher, testRequest{Value: "test"})
		require.Error(t, err)
		assert.ErrorIs(t, err, request.ErrSynchronousContract)
	})
}

// Тест порядка выполнения pipeline behaviors: первый сконфигурированный
// behavior внешний, то есть его пред-логика выполняется первой,
// а пост-логика — последней.
func TestDispatcher_Behaviors_Order(t *testing.T) {
	t.Parallel()

	var calls []string

	makeBehavior := func(name string) request.Behavior {
		return func(next request.HandlerFunc) request.HandlerFunc {
			return func(ctx context.Context, req any) (*result.Result[any], error) {
				calls = append(calls, name+"-pre")
				res, err := next(ctx, req)
				calls = append(calls, name+"-post")
				return res, err
			}
		}
	}

	dispatcher, err := request.NewDispatcher(request.WithBehavior(makeBehavior("B1"), makeBehavior("B2")))
	require.NoError(t, err)
	require.NoError(t, request.Register(dispatcher, func(ctx context.Context, req testRequest) (*result.Result[string], error) {
		calls = append(calls, "H")
		return result.Of(req.Value), nil
	}))

	_, err = request.SendSync[testRequest, string](context.Background(), dispatcher, testRequest{Value: "test"})
	require.NoError(t, err)

	assert.Equal(t, []string{"B1-pre", "B2-pre", "H", "B2-post", "B1-post"}, calls,
		"behaviors должны выполняться в порядке регистрации снаружи внутрь")
}

// Тест короткого замыкания: behavior вправе не вызывать продолжение,
// и тогда нижестоящие behaviors и обработчик не выполняются.
func TestDispatcher_Behavior_ShortCircuit(t *testing.T) {
	t.Parallel()

	var handlerCalled bool

	shortCircuit := func(next request.HandlerFunc) request.HandlerFunc {
		return func(ctx context.Context, req any) (*result.Result[any], error) {
			return result.Of[any]("short-circuited"), nil
		}
	}

	dispatcher, err := request.NewDispatcher(request.WithBehavior(shortCircuit))
	require.NoError(t, err)
	require.NoError(t, request.Register(dispatcher, func(ctx context.Context, req testRequest) (*result.Result[string], error) {
		handlerCalled = true
		return result.Of(req.Value), nil
	}))

	v, err := request.SendSync[testRequest, string](context.Background(), dispatcher, testRequest{Value: "test"})
	require.NoError(t, err)
	assert.Equal(t, "short-circuited", v)
	assert.False(t, handlerCalled, "обработчик не должен вызываться при коротком замыкании")
}

// Тест прозрачности ошибок: ошибка обработчика доходит до вызывающей стороны
// без оборачивания и без повторов.
func TestDispatcher_HandlerError_Propagates(t *testing.T) {
	t.Parallel()

	handlerErr := errors.New("ошибка обработчика")

	dispatcher, err := request.NewDispatcher()
	require.NoError(t, err)
	require.NoError(t, request.Register(dispatcher, func(ctx context.Context, req testRequest) (*result.Result[string], error) {
		return nil, handlerErr
	}))

	_, err = request.Send[testRequest, string](context.Background(), dispatcher, testRequest{Value: "test"})
	assert.Equal(t, handlerErr, err, "ошибка обработчика должна передаваться без изменений")
}

// Тест повторной регистрации: для одного типа запроса молча побеждает
// последняя регистрация.
func TestDispatcher_Register_LastWins(t *testing.T) {
	t.Parallel()

	dispatcher, err := request.NewDispatcher()
	require.NoError(t, err)

	require.NoError(t, request.Register(dispatcher, func(ctx context.Context, req testRequest) (*result.Result[string], error) {
		return result.Of("first"), nil
	}))
	require.NoError(t, request.Register(dispatcher, func(ctx context.Context, req testRequest) (*result.Result[string], error) {
		return result.Of("second"), nil
	}), "повторная регистрация не должна вызывать ошибку")

	v, err := request.SendSync[testRequest, string](context.Background(), dispatcher, testRequest{Value: "test"})
	require.NoError(t, err)
	assert.Equal(t, "second", v, "должна побеждать последняя регистрация")
}

// Тест потокового результата: основная точка входа выдает все значения потока.
func TestDispatcher_Send_Stream(t *testing.T) {
	t.Parallel()

	dispatcher, err := request.NewDispatcher()
	require.NoError(t, err)
	require.NoError(t, request.Register(dispatcher, func(ctx context.Context, req testRequest) (*result.Result[string], error) {
		return result.FromSeq(func(yield func(string, error) bool) {
			for i := 1; i <= 3; i++ {
				if !yield(fmt.Sprintf("%s-%d", req.Value, i), nil) {
					return
				}
			}
		}), nil
	}))

	res, err := request.Send[testRequest, string](context.Background(), dispatcher, testRequest{Value: "v"})
	require.NoError(t, err)

	var values []string
	for v, seqErr := range res.Seq(context.Background()) {
		require.NoError(t, seqErr)
		values = append(values, v)
	}
	assert.Equal(t, []string{"v-1", "v-2", "v-3"}, values)
}
