package eventloop

import (
	"context"
	"fmt"
	"sync"
)

type promiseState uint8

const (
	statePending promiseState = iota
	stateFulfilled
	stateRejected
)

// Promise is a one-shot completion bound to a Loop. Continuations registered
// with Then always run as microtasks on the loop, never inline.
type Promise struct {
	loop     *Loop
	mu       sync.Mutex
	state    promiseState
	err      error
	handlers []func(error)
	done     chan struct{}
}

// NewPromise returns a pending promise with its resolve and reject functions.
// Only the first settlement counts; rejecting with a nil error resolves.
func (l *Loop) NewPromise() (*Promise, func(), func(error)) {
	p := &Promise{loop: l, done: make(chan struct{})}
	return p, func() { p.settle(nil) }, p.settle
}

// Resolved returns an already fulfilled promise.
func (l *Loop) Resolved() *Promise {
	p, resolve, _ := l.NewPromise()
	resolve()
	return p
}

// Rejected returns a promise already rejected with err.
func (l *Loop) Rejected(err error) *Promise {
	p, _, reject := l.NewPromise()
	reject(err)
	return p
}

// Async runs fn as a microtask and settles the returned promise with its
// result. A panic in fn rejects the promise.
func (l *Loop) Async(fn func() error) *Promise {
	p, _, settle := l.NewPromise()
	l.QueueMicrotask(func() {
		defer func() {
			if recovered := recover(); recovered != nil {
				settle(fmt.Errorf("async panic: %v", recovered))
			}
		}()
		settle(fn())
	})
	return p
}

func (p *Promise) settle(err error) {
	p.mu.Lock()
	if p.state != statePending {
		p.mu.Unlock()
		return
	}
	if err != nil {
		p.state = stateRejected
	} else {
		p.state = stateFulfilled
	}
	p.err = err
	handlers := p.handlers
	p.handlers = nil
	close(p.done)
	p.mu.Unlock()

	for _, h := range handlers {
		h := h
		p.loop.QueueMicrotask(func() { h(err) })
	}
}

// Then registers fn to run once p settles and returns a promise settled with
// fn's result. fn receives p's error (nil when fulfilled).
func (p *Promise) Then(fn func(error) error) *Promise {
	next, _, settle := p.loop.NewPromise()
	h := func(err error) { settle(fn(err)) }

	p.mu.Lock()
	if p.state == statePending {
		p.handlers = append(p.handlers, h)
		p.mu.Unlock()
		return next
	}
	err := p.err
	p.mu.Unlock()

	p.loop.QueueMicrotask(func() { h(err) })
	return next
}

// Wait blocks until p settles and returns its error.
// It must not be called from the loop goroutine.
func (p *Promise) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Settled reports whether p is fulfilled or rejected.
func (p *Promise) Settled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state != statePending
}

// Err returns the rejection error, or nil while pending or when fulfilled.
func (p *Promise) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Done is closed once p settles.
func (p *Promise) Done() <-chan struct{} {
	return p.done
}
