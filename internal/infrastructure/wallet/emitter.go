package wallet

import (
	"sync"

	"github.com/tdex-network/tdex-walletkit/internal/core/ports"
)

// Emitter dispatches connector events to the subscribed handlers. Handlers
// are invoked without holding any lock, in subscription order.
type Emitter struct {
	lock     *sync.RWMutex
	handlers map[uint64]func(ports.ConnectorEvent)
	order    []uint64
	nextID   uint64
}

func NewEmitter() *Emitter {
	return &Emitter{
		lock:     &sync.RWMutex{},
		handlers: make(map[uint64]func(ports.ConnectorEvent)),
	}
}

// Subscribe registers the handler and returns the func to remove it.
func (e *Emitter) Subscribe(handler func(ports.ConnectorEvent)) func() {
	e.lock.Lock()
	defer e.lock.Unlock()

	e.nextID++
	id := e.nextID
	e.handlers[id] = handler
	e.order = append(e.order, id)

	return func() {
		e.lock.Lock()
		defer e.lock.Unlock()

		if _, ok := e.handlers[id]; !ok {
			return
		}
		delete(e.handlers, id)
		for i, v := range e.order {
			if v == id {
				e.order = append(e.order[:i], e.order[i+1:]...)
				break
			}
		}
	}
}

func (e *Emitter) Emit(event ports.ConnectorEvent) {
	e.lock.RLock()
	handlers := make([]func(ports.ConnectorEvent), 0, len(e.order))
	for _, id := range e.order {
		handlers = append(handlers, e.handlers[id])
	}
	e.lock.RUnlock()

	for _, handler := range handlers {
		handler(event)
	}
}

func (e *Emitter) NumOfSubscribers() int {
	e.lock.RLock()
	defer e.lock.RUnlock()
	return len(e.handlers)
}
