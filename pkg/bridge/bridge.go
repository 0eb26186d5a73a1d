// Package bridge carries dashboard events to whatever presentation layer is
// attached: the CLI, a desktop shell or nothing at all.
package bridge

import "sync"

// NotifyFunc receives a topic such as "tool.ask.state" and a JSON payload.
type NotifyFunc func(topic string, payload string)

var (
	mu   sync.RWMutex
	impl NotifyFunc
)

// SetNotifyImpl installs the receiver; nil detaches it.
func SetNotifyImpl(f NotifyFunc) {
	mu.Lock()
	impl = f
	mu.Unlock()
}

// Notify forwards an event to the installed receiver, if any.
func Notify(topic string, payload string) {
	mu.RLock()
	f := impl
	mu.RUnlock()
	if f != nil {
		f(topic, payload)
	}
}

// Fanout returns a NotifyFunc that calls every non-nil receiver in order.
func Fanout(fns ...NotifyFunc) NotifyFunc {
	return func(topic, payload string) {
		for _, fn := range fns {
			if fn != nil {
				fn(topic, payload)
			}
		}
	}
}
