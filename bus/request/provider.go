package request

import (
	"context"
	"fmt"
	"sync"

	"github.com/goccy/go-reflect"

	"github.com/x-research-team/mediator-framework/bus/result"
)

// Provider определяет контракт для сменных механизмов диспетчеризации запросов.
type Provider interface {
	// Send отправляет запрос зарегистрированному обработчику и возвращает
	// ленивый результат.
	Send(ctx context.Context, req any) (*result.Result[any], error)

	// Register регистрирует обработчик для конкретного типа запроса.
	Register(requestType reflect.Type, handler HandlerFunc) error

	// Shutdown корректно завершает работу провайдера.
	Shutdown(ctx context.Context) error
}

// localProvider — это локальная, внутрипроцессная реализация провайдера
// запросов. Реестр обработчиков строится один раз на этапе композиции и
// после этого только читается.
type localProvider struct {
	handlers map[reflect.Type]HandlerFunc
	mu       sync.RWMutex
	cfg      *config
}

// NewLocalProvider создает новый экземпляр локального провайдера.
func NewLocalProvider(cfg *config) (*localProvider, error) {
	return &localProvider{
		handlers: make(map[reflect.Type]HandlerFunc),
		cfg:      cfg,
	}, nil
}

// Send находит обработчик по конкретному типу запроса во время выполнения
// и вызывает собранную цепочку behaviors. Если обработчик не найден,
// возвращается ошибка, оборачивающая ErrHandlerNotFound и называющая тип.
func (p *localProvider) Send(ctx context.Context, req any) (*result.Result[any], error) {
	p.mu.RLock()
	handler, ok := p.handlers[reflect.TypeOf(req)]
	p.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("обработчик для запроса '%s' не найден: %w", reflect.TypeOf(req), ErrHandlerNotFound)
	}

	return handler(ctx, req)
}

// Register регистрирует обработчик для конкретного типа запроса и оборачивает
// его в цепочку behaviors: первый сконфигурированный behavior становится
// внешним. Повторная регистрация для того же типа молча перезаписывает
// предыдущую — побеждает последняя.
func (p *localProvider) Register(requestType reflect.Type, handler HandlerFunc) error {
	h := handler
	for i := len(p.cfg.behaviors) - 1; i >= 0; i-- {
		h = p.cfg.behaviors[i](h)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.handlers[requestType] = h
	return nil
}

// Shutdown в данной реализации не выполняет никаких действий.
func (p *localProvider) Shutdown(ctx context.Context) error {
	return nil
}
