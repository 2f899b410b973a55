// Package notification реализует публикацию уведомлений по модели
// "один ко многим": уведомление доставляется нулю или более обработчикам,
// каждый из которых вызывается ради побочного эффекта и не возвращает
// значения. Ключом маршрутизации служит конкретный тип значения уведомления,
// порядок вызова обработчиков равен порядку их регистрации.
package notification

import "context"

// Notification представляет собой интерфейс-маркер для уведомления.
// Уведомление — это значение, чей конкретный тип во время выполнения
// определяет список обработчиков.
type Notification interface{}

// Handler — это тип для функции-обработчика, которая принимает контекст
// и конкретный тип уведомления.
type Handler[N Notification] func(ctx context.Context, n N) error

// ErrorHandler — это функция для обработки ошибок, возникших в Handler.
// Задается опцией WithErrorHandler; при ее наличии ошибка обработчика
// потребляется и не прерывает доставку остальным подписчикам.
type ErrorHandler[N Notification] func(err error, n N)

// Middleware — это функция-декоратор для Handler.
// Она принимает следующий обработчик в цепочке и возвращает новый обработчик.
type Middleware[N Notification] func(next Handler[N]) Handler[N]

// Metadatable определяет интерфейс для уведомлений, которые могут нести
// метаданные, например контекст трассировки.
type Metadatable interface {
	Metadata() map[string]string
}
