package request

import (
	"context"
	"errors"
	"fmt"

	"log/slog"

	"github.com/goccy/go-reflect"

	"github.com/x-research-team/mediator-framework/bus/result"
)

var (
	// ErrHandlerNotFound возвращается, когда для конкретного типа запроса
	// не зарегистрирован обработчик.
	ErrHandlerNotFound = errors.New("обработчик не найден")

	// ErrSynchronousContract возвращается синхронной точкой входа SendSync,
	// когда нормализованный результат оказался отложенным или ленивым,
	// а не немедленным значением.
	ErrSynchronousContract = errors.New("нарушен синхронный контракт")
)

// IDispatcher определяет основной интерфейс для шины запросов. Одна шина
// обслуживает произвольное множество типов запросов; ключом служит
// конкретный тип значения запроса.
type IDispatcher interface {
	// Send — основная точка входа: возвращает ленивый результат,
	// нормализованный к единой абстракции независимо от того, как
	// обработчик произвел значение.
	Send(ctx context.Context, req any) (*result.Result[any], error)

	// SendAwait принудительно разрешает результат в одно значение.
	SendAwait(ctx context.Context, req any) (any, error)

	// SendSync требует, чтобы обработчик произвел значение синхронно;
	// иначе возвращается ошибка, оборачивающая ErrSynchronousContract.
	SendSync(ctx context.Context, req any) (any, error)

	// Register регистрирует обработчик для типа запроса.
	Register(requestType reflect.Type, handler HandlerFunc) error

	// Shutdown корректно завершает работу диспетчера.
	Shutdown(ctx context.Context) error
}

// dispatcherImpl представляет собой реализацию IDispatcher.
type dispatcherImpl struct {
	provider Provider
	cfg      *config
}

// NewDispatcher создает новый, готовый к использованию экземпляр диспетчера.
func NewDispatcher(opts ...Option) (IDispatcher, error) {
	cfg := &config{
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	provider, err := NewLocalProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("не удалось создать локальный провайдер: %w", err)
	}

	allMiddlewares := []Middleware{
		NewLoggingMiddleware(cfg.logger),
		NewMetricsMiddleware(cfg.meterProvider),
		NewTracingMiddleware(cfg.tracerProvider, cfg.propagator),
	}
	allMiddlewares = append(allMiddlewares, cfg.middlewares...)
	wrappedProvider := applyMiddlewares(provider, allMiddlewares...)

	return &dispatcherImpl{
		provider: wrappedProvider,
		cfg:      cfg,
	}, nil
}

// Register регистрирует обработчик для конкретного типа запроса.
func (d *dispatcherImpl) Register(requestType reflect.Type, handler HandlerFunc) error {
	return d.provider.Register(requestType, handler)
}

// Send находит и выполняет обработчик для указанного запроса.
func (d *dispatcherImpl) Send(ctx context.Context, req any) (*result.Result[any], error) {
	return d.provider.Send(ctx, req)
}

// SendAwait находит обработчик и разрешает его результат в одно значение.
func (d *dispatcherImpl) SendAwait(ctx context.Context, req any) (any, error) {
	res, err := d.provider.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	return res.Await(ctx)
}

// SendSync находит обработчик и требует немедленное синхронное значение.
func (d *dispatcherImpl) SendSync(ctx context.Context, req any) (any, error) {
	res, err := d.provider.Send(ctx, req)
	if err != nil {
		return nil, err
	}

	v, ok := res.Sync()
	if !ok {
		return nil, fmt.Errorf("результат запроса '%s' асинхронный: %w", reflect.TypeOf(req), ErrSynchronousContract)
	}
	return v, nil
}

// Shutdown корректно завершает работу диспетчера.
func (d *dispatcherImpl) Shutdown(ctx context.Context) error {
	return d.provider.Shutdown(ctx)
}

// Register регистрирует строго типизированный обработчик, стирая его тип
// на границе реестра. Тип запроса выводится из параметра Q.
func Register[Q Request[R], R any](d IDispatcher, handler Handler[Q, R]) error {
	requestType := reflect.TypeOf((*Q)(nil)).Elem()

	return d.Register(requestType, func(ctx context.Context, req any) (*result.Result[any], error) {
		typed, ok := req.(Q)
		if !ok {
			return nil, fmt.Errorf("неожиданный тип запроса: получен %T, ожидался %s", req, requestType)
		}

		res, err := handler(ctx, typed)
		if err != nil {
			return nil, err
		}
		return result.Erase(res), nil
	})
}

// Send — строго типизированная основная точка входа.
func Send[Q Request[R], R any](ctx context.Context, d IDispatcher, req Q) (*result.Result[R], error) {
	res, err := d.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	return result.Cast[R](res)
}

// SendAwait — строго типизированная точка входа с принудительным разрешением
// результата в одно значение.
func SendAwait[Q Request[R], R any](ctx context.Context, d IDispatcher, req Q) (R, error) {
	res, err := Send[Q, R](ctx, d, req)
	if err != nil {
		var zero R
		return zero, err
	}
	return res.Await(ctx)
}

// SendSync — строго типизированная синхронная точка входа.
func SendSync[Q Request[R], R any](ctx context.Context, d IDispatcher, req Q) (R, error) {
	v, err := d.SendSync(ctx, req)
	if err != nil {
		var zero R
		return zero, err
	}
	if v == nil {
		var zero R
		return zero, nil
	}

	typed, ok := v.(R)
	if !ok {
		var zero R
		return zero, fmt.Errorf("неожиданный тип значения результата: %T", v)
	}
	return typed, nil
}
