// Package notify provides short-lived boolean notices that clear themselves
// after a fixed delay unless dismissed earlier.
package notify

import (
	"sync"
	"time"
)

// DefaultTTL is used when a Flag is created with a non-positive delay.
const DefaultTTL = 3 * time.Second

// Flag is a boolean that reverts to false a fixed delay after it was armed.
//
// Arm sets the flag and (re)starts the delay. Dismiss clears it early and
// cancels the pending timer. Every arm carries a generation number, so a timer
// that fires after being superseded by a dismissal or a newer arm is inert.
type Flag struct {
	timer    *time.Timer
	onChange func(bool)
	mu       sync.Mutex
	ttl      time.Duration
	gen      uint64
	value    bool
}

// NewFlag creates a cleared flag. onChange, if not nil, is called after every
// transition with the new value, outside the flag's lock.
func NewFlag(ttl time.Duration, onChange func(bool)) *Flag {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Flag{
		ttl:      ttl,
		onChange: onChange,
	}
}

// Value reports whether the flag is currently set.
func (f *Flag) Value() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value
}

// TTL returns the self-clear delay.
func (f *Flag) TTL() time.Duration {
	return f.ttl
}

// Arm sets the flag and restarts the self-clear delay.
func (f *Flag) Arm() {
	f.mu.Lock()
	f.stopLocked()
	f.gen++
	gen := f.gen
	changed := !f.value
	f.value = true
	f.timer = time.AfterFunc(f.ttl, func() { f.expire(gen) })
	f.mu.Unlock()

	if changed {
		f.notify(true)
	}
}

// Dismiss clears the flag and cancels any pending self-clear.
func (f *Flag) Dismiss() {
	f.mu.Lock()
	f.stopLocked()
	f.gen++
	changed := f.value
	f.value = false
	f.mu.Unlock()

	if changed {
		f.notify(false)
	}
}

// Stop cancels the pending timer without changing the value. Used on shutdown.
func (f *Flag) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopLocked()
	f.gen++
}

func (f *Flag) expire(gen uint64) {
	f.mu.Lock()
	if gen != f.gen || !f.value {
		f.mu.Unlock()
		return
	}
	f.value = false
	f.timer = nil
	f.mu.Unlock()

	f.notify(false)
}

func (f *Flag) stopLocked() {
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
}

func (f *Flag) notify(v bool) {
	if f.onChange != nil {
		f.onChange(v)
	}
}
