package station

import (
	"context"
	"errors"
	"sync/atomic"
)

// ErrLoopStopped возвращается, если цикл станции уже остановлен.
var ErrLoopStopped = errors.New("station loop stopped")

const (
	callQueued int32 = iota
	callStarted
	callAbandoned
)

// Loop выполняет переданные функции по одной в своей горутине.
// Всё состояние станции изменяется только внутри цикла.
type Loop struct {
	tasks chan func()
	done  chan struct{}
}

// NewLoop создаёт цикл с очередью заданного размера.
func NewLoop(queue int) *Loop {
	return &Loop{
		tasks: make(chan func(), queue),
		done:  make(chan struct{}),
	}
}

// Run обрабатывает очередь до отмены контекста.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-l.tasks:
			fn()
		}
	}
}

// Dispatch ставит функцию в очередь без ожидания результата.
func (l *Loop) Dispatch(fn func()) bool {
	if l.stopped() {
		return false
	}
	select {
	case l.tasks <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Call выполняет функцию в цикле и ждёт её результата.
// Если ctx истёк до начала выполнения, функция не выполняется и возвращается ctx.Err().
// Начатая функция доводится до конца, и вызывающий получает её результат.
func (l *Loop) Call(ctx context.Context, fn func() error) error {
	if l.stopped() {
		return ErrLoopStopped
	}

	var claim atomic.Int32
	errc := make(chan error, 1)
	task := func() {
		if !claim.CompareAndSwap(callQueued, callStarted) {
			return
		}
		errc <- fn()
	}

	select {
	case l.tasks <- task:
	case <-l.done:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-errc:
		return err
	case <-l.done:
		if claim.CompareAndSwap(callQueued, callAbandoned) {
			return ErrLoopStopped
		}
		select {
		case err := <-errc:
			return err
		default:
			return ErrLoopStopped
		}
	case <-ctx.Done():
		if claim.CompareAndSwap(callQueued, callAbandoned) {
			return ctx.Err()
		}
		return <-errc
	}
}

func (l *Loop) stopped() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}
