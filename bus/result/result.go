// Package result определяет единую ленивую абстракцию результата обработки
// запроса. Обработчик может произвести значение синхронно, отложенно
// (promise-подобно) или в виде ленивого потока значений (observable-подобно);
// все три формы нормализуются в один размеченный тип Result до входа в
// цепочку pipeline behaviors.
package result

import (
	"context"
	"fmt"
	"iter"
)

// Kind определяет вид результата внутри размеченного объединения.
type Kind int

const (
	// KindValue — немедленное синхронное значение.
	KindValue Kind = iota
	// KindDeferred — отложенное вычисление одного значения.
	KindDeferred
	// KindStream — ленивый поток из нуля или более значений.
	KindStream
)

// Result представляет собой ленивый контейнер результата, параметризованный
// типом значения R. Экземпляр создается только через конструкторы-адаптеры
// Of, Defer, FromSeq и FromChan и неизменяем после создания.
type Result[R any] struct {
	kind     Kind
	value    R
	deferred func(ctx context.Context) (R, error)
	stream   iter.Seq2[R, error]
}

// Of создает результат с немедленным синхронным значением.
func Of[R any](value R) *Result[R] {
	return &Result[R]{
		kind:  KindValue,
		value: value,
	}
}

// Defer создает отложенный результат. Функция fn вызывается не раньше, чем
// результат будет затребован через Await или Seq.
func Defer[R any](fn func(ctx context.Context) (R, error)) *Result[R] {
	return &Result[R]{
		kind:     KindDeferred,
		deferred: fn,
	}
}

// FromSeq создает результат из ленивой последовательности. Последовательность
// вычисляется только при потреблении через Seq или Await.
func FromSeq[R any](seq iter.Seq2[R, error]) *Result[R] {
	return &Result[R]{
		kind:   KindStream,
		stream: seq,
	}
}

// FromChan адаптирует канал к ленивому потоку. Чтение из канала начинается
// только при потреблении результата и завершается при закрытии канала.
func FromChan[R any](ch <-chan R) *Result[R] {
	return FromSeq(func(yield func(R, error) bool) {
		for v := range ch {
			if !yield(v, nil) {
				return
			}
		}
	})
}

// Kind возвращает вид результата.
func (r *Result[R]) Kind() Kind {
	return r.kind
}

// IsAsync сообщает, является ли результат асинхронным или ленивым,
// то есть любым, кроме немедленного значения.
func (r *Result[R]) IsAsync() bool {
	return r.kind != KindValue
}

// Seq нормализует результат любого вида к единой ленивой последовательности
// пар (значение, ошибка). Немедленное значение дает ровно один элемент,
// отложенное вычисление — один элемент после вычисления, поток передается
// без изменений.
func (r *Result[R]) Seq(ctx context.Context) iter.Seq2[R, error] {
	switch r.kind {
	case KindValue:
		return func(yield func(R, error) bool) {
			yield(r.value, nil)
		}
	case KindDeferred:
		return func(yield func(R, error) bool) {
			yield(r.deferred(ctx))
		}
	default:
		return r.stream
	}
}

// Await принудительно разрешает результат в одно значение: немедленное
// значение возвращается как есть, отложенное вычисляется, для потока
// возвращается первый элемент. Пустой поток разрешается в нулевое значение
// без ошибки: ноль значений — допустимый исход.
func (r *Result[R]) Await(ctx context.Context) (R, error) {
	switch r.kind {
	case KindValue:
		return r.value, nil
	case KindDeferred:
		return r.deferred(ctx)
	default:
		for v, err := range r.stream {
			return v, err
		}
		var zero R
		return zero, nil
	}
}

// Sync возвращает значение и true только для немедленного синхронного
// результата. Для отложенного или потокового результата возвращается
// нулевое значение и false.
func (r *Result[R]) Sync() (R, bool) {
	if r.kind != KindValue {
		var zero R
		return zero, false
	}
	return r.value, true
}

// Erase стирает тип значения, сохраняя вид и ленивость результата.
// Используется на границе типизированного API и внутреннего представления
// диспетчера.
func Erase[R any](r *Result[R]) *Result[any] {
	switch r.kind {
	case KindValue:
		return Of[any](r.value)
	case KindDeferred:
		return Defer(func(ctx context.Context) (any, error) {
			return r.deferred(ctx)
		})
	default:
		return FromSeq(func(yield func(any, error) bool) {
			for v, err := range r.stream {
				if !yield(v, err) {
					return
				}
			}
		})
	}
}

// Cast восстанавливает тип значения после Erase. Для немедленного значения
// несоответствие типа обнаруживается сразу; для отложенного или потокового
// результата — в точке потребления.
func Cast[R any](r *Result[any]) (*Result[R], error) {
	switch r.kind {
	case KindValue:
		v, err := castValue[R](r.value)
		if err != nil {
			return nil, err
		}
		return Of(v), nil
	case KindDeferred:
		return Defer(func(ctx context.Context) (R, error) {
			v, err := r.deferred(ctx)
			if err != nil {
				var zero R
				return zero, err
			}
			return castValue[R](v)
		}), nil
	default:
		return FromSeq(func(yield func(R, error) bool) {
			for v, err := range r.stream {
				if err != nil {
					var zero R
					if !yield(zero, err) {
						return
					}
					continue
				}
				typed, castErr := castValue[R](v)
				if !yield(typed, castErr) {
					return
				}
			}
		}), nil
	}
}

// castValue приводит стертое значение к типу R. Значение nil приводится
// к нулевому значению R без ошибки.
func castValue[R any](v any) (R, error) {
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
