package notification

import (
	"sync"
)

// workerPool - это пул горутин для асинхронной обработки уведомлений.
type workerPool[N Notification] struct {
	minWorkers int
	maxWorkers int
	tasks      chan *Task[N]
	wg         sync.WaitGroup
	stopCh     chan struct{}
}

// newWorkerPool создает новый пул воркеров.
func newWorkerPool[N Notification](min, max, queueSize int) *workerPool[N] {
	return &workerPool[N]{
		minWorkers: min,
		maxWorkers: max,
		tasks:      make(chan *Task[N], queueSize),
		stopCh:     make(chan struct{}),
	}
}

// run запускает воркеров пула.
func (p *workerPool[N]) run() {
	for i := 0; i < p.minWorkers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// stop останавливает всех воркеров и дожидается их завершения.
func (p *workerPool[N]) stop() {
	close(p.stopCh)
	p.wg.Wait()
}

// enqueue добавляет задачу в очередь на выполнение. Возвращает false,
// если пул уже остановлен.
func (p *workerPool[N]) enqueue(task *Task[N]) bool {
	select {
	case p.tasks <- task:
		return true
	case <-p.stopCh:
		return false
	}
}

// worker - это основная функция горутины-воркера.
func (p *workerPool[N]) worker() {
	defer p.wg.Done()
	for {
		select {
		case task, ok := <-p.tasks:
			if !ok {
				return
			}
			if err := task.handler(task.ctx, task.notification); err != nil && task.errorHandler != nil {
				task.errorHandler(err, task.notification)
			}
		case <-p.stopCh:
			return
		}
	}
}
