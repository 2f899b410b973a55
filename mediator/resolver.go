package mediator

import (
	"sync"

	"github.com/google/uuid"
)

// Resolver определяет контракт внешнего коллаборатора, который по
// идентификатору регистрации и функции-конструктору выдает готовый к
// использованию экземпляр обработчика. Ядро медиатора никогда не
// конструирует обработчики самостоятельно.
type Resolver interface {
	Resolve(id uuid.UUID, construct func() any) (any, error)
}

// singletonResolver - это реализация Resolver по умолчанию с политикой
// времени жизни "синглтон на регистрацию": конструктор каждой регистрации
// вызывается не более одного раза, результат кешируется.
type singletonResolver struct {
	mu        sync.RWMutex
	instances map[uuid.UUID]any
}

// NewSingletonResolver создает новый резолвер с политикой синглтона.
func NewSingletonResolver() Resolver {
	return &singletonResolver{
		instances: make(map[uuid.UUID]any),
	}
}

// Resolve возвращает кешированный экземпляр или создает и кеширует новый.
func (r *singletonResolver) Resolve(id uuid.UUID, construct func() any) (any, error) {
	r.mu.RLock()
	instance, exists := r.instances[id]
	r.mu.RUnlock()

	if exists {
		return instance, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Повторная проверка на случай, если экземпляр был создан во время ожидания блокировки.
	if instance, exists := r.instances[id]; exists {
		return instance, nil
	}

	instance = construct()
	r.instances[id] = instance
	return instance, nil
}
