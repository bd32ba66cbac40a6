package services

import (
	"context"
	"sync"
)

// writer runs write on its own goroutine whenever it has been scheduled.
// Schedules that arrive while a write is pending collapse into one.
type writer struct {
	write  func()
	notify chan struct{}
	flush  chan chan struct{}
	stop   chan struct{}
	done   chan struct{}
	once   sync.Once
}

func newWriter(write func()) *writer {
	w := &writer{
		write:  write,
		notify: make(chan struct{}, 1),
		flush:  make(chan chan struct{}),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *writer) run() {
	defer close(w.done)
	for {
		select {
		case <-w.notify:
			w.write()
		case ack := <-w.flush:
			w.drain()
			close(ack)
		case <-w.stop:
			w.drain()
			return
		}
	}
}

// drain performs the pending write, if any.
func (w *writer) drain() {
	select {
	case <-w.notify:
		w.write()
	default:
	}
}

// schedule never blocks.
func (w *writer) schedule() {
	select {
	case w.notify <- struct{}{}:
	default:
	}
}

// Flush returns once every write scheduled before the call has completed.
func (w *writer) Flush(ctx context.Context) error {
	ack := make(chan struct{})
	select {
	case w.flush <- ack:
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close performs any pending write and stops the goroutine.
func (w *writer) Close(ctx context.Context) error {
	w.once.Do(func() { close(w.stop) })
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
