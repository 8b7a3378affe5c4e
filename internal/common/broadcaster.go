package common

import (
	"sync"
)

// Subscriber receives payloads sent through a Broadcaster.
type Subscriber[T any] interface {
	Receive(payload T)
}

// SubscriberFunc adapts a plain function to the Subscriber interface.
type SubscriberFunc[T any] func(payload T)

func (f SubscriberFunc[T]) Receive(payload T) {
	f(payload)
}

// Broadcaster fans payloads out to every subscriber.
// Subscribers registered after a payload was sent do not receive it.
type Broadcaster[T any] struct {
	payloads    chan T
	lock        *sync.RWMutex
	subscribers []Subscriber[T]
}

func NewBroadcaster[T any]() *Broadcaster[T] {
	return &Broadcaster[T]{
		payloads:    make(chan T),
		lock:        &sync.RWMutex{},
		subscribers: []Subscriber[T]{},
	}
}

func (b *Broadcaster[T]) Subscribe(sub Subscriber[T]) {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.subscribers = append(b.subscribers, sub)
}

func (b *Broadcaster[T]) Send(payload T) {
	b.payloads <- payload
}

// Broadcast starts the fan-out dispatcher. Payloads sent before Broadcast is called
// will block the sender.
func (b *Broadcaster[T]) Broadcast() {
	go func() {
		for {
			payload, more := <-b.payloads
			if !more {
				return
			}

			b.lock.RLock()
			for _, subscriber := range b.subscribers {
				subscriber.Receive(payload)
			}
			b.lock.RUnlock()
		}
	}()
}
