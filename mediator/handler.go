// Package mediator собирает из декларативных регистраций обработчиков
// готовый внутрипроцессный медиатор: реестр "тип запроса → обработчик",
// реестр "тип уведомления → упорядоченный список обработчиков" и цепочку
// pipeline behaviors вокруг диспетчеризации запросов. Реестры строятся один
// раз на этапе композиции и после этого только читаются; медиатор создается
// явно по одному экземпляру на композиционный корень.
package mediator

import (
	"context"

	"github.com/x-research-team/mediator-framework/bus/result"
)

// RequestHandler определяет контракт обработчика запроса типа Q,
// производящего ленивый результат типа R.
type RequestHandler[Q any, R any] interface {
	Handle(ctx context.Context, req Q) (*result.Result[R], error)
}

// NotificationHandler определяет контракт обработчика уведомления типа N.
// Обработчик вызывается ради побочного эффекта и не возвращает значения.
type NotificationHandler[N any] interface {
	Handle(ctx context.Context, n N) error
}
