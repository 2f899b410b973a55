package notification

import "context"

// Task представляет собой атомарную задачу для асинхронного выполнения:
// уведомление, его обработчик и опциональный обработчик ошибок подписки.
type Task[N Notification] struct {
	ctx          context.Context
	notification N
	handler      Handler[N]
	errorHandler ErrorHandler[N]
}
