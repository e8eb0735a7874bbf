package archive

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultMaxBuffered bounds the buffer while PushLogic keeps failing
const DefaultMaxBuffered = 10000

// Pusher buffers messages and hands them to PushLogic in batches
type Pusher[T any] struct {
	MessagesBuffer []T
	PushLogic      func(...T) error
	PushInterval   time.Duration
	ErrorHandler   func(error)
	MaxBuffered    int

	lock    sync.Mutex
	flush   sync.Mutex // one batch in flight at a time
	stop    chan struct{}
	done    chan struct{}
	running bool
}

// PusherOption configures a Pusher
type PusherOption[T any] func(*Pusher[T])

// WithPushLogic sets the function that receives each batch
func WithPushLogic[T any](pushLogic func(...T) error) PusherOption[T] {
	return func(p *Pusher[T]) {
		p.PushLogic = pushLogic
	}
}

// WithPushInterval sets how often Start flushes the buffer
func WithPushInterval[T any](interval time.Duration) PusherOption[T] {
	return func(p *Pusher[T]) {
		p.PushInterval = interval
	}
}

// WithErrorHandler sets the handler for failed background flushes
func WithErrorHandler[T any](handler func(error)) PusherOption[T] {
	return func(p *Pusher[T]) {
		p.ErrorHandler = handler
	}
}

// WithMaxBuffered caps the buffer; the oldest messages are dropped first
func WithMaxBuffered[T any](n int) PusherOption[T] {
	return func(p *Pusher[T]) {
		p.MaxBuffered = n
	}
}

// WithElements seeds the buffer
func WithElements[T any](elements ...T) PusherOption[T] {
	return func(p *Pusher[T]) {
		p.MessagesBuffer = append(p.MessagesBuffer, elements...)
	}
}

func NewPusher[T any](options ...PusherOption[T]) *Pusher[T] {
	p := &Pusher[T]{
		PushLogic:    func(...T) error { return nil },
		ErrorHandler: func(err error) { log.Error().Err(err).Msg("push failed") },
		PushInterval: time.Second,
		MaxBuffered:  DefaultMaxBuffered,
	}
	for _, option := range options {
		option(p)
	}
	return p
}

// PushAll flushes the buffer. PushLogic runs without the buffer lock, so
// AddMessages never waits on the network. A failed batch goes back in front
// of the buffer and is retried on the next flush.
func (p *Pusher[T]) PushAll() error {
	p.flush.Lock()
	defer p.flush.Unlock()

	p.lock.Lock()
	batch := p.MessagesBuffer
	p.MessagesBuffer = nil
	p.lock.Unlock()

	if len(batch) == 0 {
		return nil
	}
	if err := p.PushLogic(batch...); err != nil {
		p.lock.Lock()
		p.MessagesBuffer = append(batch, p.MessagesBuffer...)
		p.trimLocked()
		p.lock.Unlock()
		return err
	}
	return nil
}

func (p *Pusher[T]) AddMessages(messages ...T) {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.MessagesBuffer = append(p.MessagesBuffer, messages...)
	p.trimLocked()
}

// trimLocked drops the oldest messages beyond MaxBuffered
func (p *Pusher[T]) trimLocked() {
	over := len(p.MessagesBuffer) - p.MaxBuffered
	if p.MaxBuffered <= 0 || over <= 0 {
		return
	}
	log.Warn().Int("dropped", over).Int("max", p.MaxBuffered).Msg("push buffer full, dropping oldest messages")
	p.MessagesBuffer = append([]T(nil), p.MessagesBuffer[over:]...)
}

// Len returns the number of buffered messages
func (p *Pusher[T]) Len() int {
	p.lock.Lock()
	defer p.lock.Unlock()

	return len(p.MessagesBuffer)
}

// Start flushes the buffer every PushInterval until Stop is called
func (p *Pusher[T]) Start() {
	p.lock.Lock()
	if p.running {
		p.lock.Unlock()
		return
	}
	p.running = true
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	stop, done := p.stop, p.done
	p.lock.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(p.PushInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := p.PushAll(); err != nil {
					p.ErrorHandler(err)
				}
			case <-stop:
				return
			}
		}
	}()
}

// Stop ends the background loop and makes a final flush
func (p *Pusher[T]) Stop() error {
	p.lock.Lock()
	if p.running {
		p.running = false
		close(p.stop)
		done := p.done
		p.lock.Unlock()
		<-done
	} else {
		p.lock.Unlock()
	}

	return p.PushAll()
}
