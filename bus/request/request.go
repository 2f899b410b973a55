package request

import (
	"context"

	"github.com/x-research-team/mediator-framework/bus/result"
)

// Request представляет собой интерфейс-маркер для запроса, параметризованный
// типом возвращаемого значения R. Ключом диспетчеризации служит конкретный
// тип значения запроса во время выполнения.
type Request[R any] interface{}

// Handler определяет строго типизированную функцию-обработчик для запроса Q,
// которая возвращает ленивый результат типа R.
type Handler[Q Request[R], R any] func(ctx context.Context, req Q) (*result.Result[R], error)

// HandlerFunc — это внутренняя, стертая по типам форма обработчика. В этой
// форме обработчики хранятся в реестре диспетчера и через нее проходит
// цепочка pipeline behaviors.
type HandlerFunc func(ctx context.Context, req any) (*result.Result[any], error)

// Behavior определяет тип функции-декоратора для обработчика запроса.
// Behavior получает продолжение цепочки и решает, вызывать ли его, когда
// и с каким запросом; он может преобразовать вход, подменить или проверить
// результат либо не вызвать продолжение вовсе (short-circuit).
type Behavior func(next HandlerFunc) HandlerFunc

// Metadatable определяет интерфейс для запросов, которые могут нести
// метаданные, например контекст трассировки.
type Metadatable interface {
	Metadata() map[string]string
}
