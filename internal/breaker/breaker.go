// Package breaker implements a named circuit breaker guarding calls to a
// failing downstream dependency, plus a Monitor that reports open circuits
// for health checks.
package breaker

import (
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned by Do without invoking the call while the circuit is
// open, and by the trial path while another trial is in flight.
var ErrOpen = errors.New("breaker: circuit open")

// State is the lifecycle state of a breaker.
type State int

const (
	// Closed is the normal state: calls pass through.
	Closed State = iota
	// Open fails fast until the cooldown elapses.
	Open
	// HalfOpen admits a single trial call.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Breaker guards a downstream call. Consecutive failures up to the threshold
// open the circuit; after the cooldown a single successful trial closes it
// again. All state is mutex-protected; a Breaker is safe for concurrent use.
type Breaker struct {
	name      string
	threshold int
	cooldown  time.Duration

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time

	now func() time.Time
}

// New creates a breaker. A threshold <= 0 is treated as 1 (open on the first
// failure, matching the original deployment).
func New(name string, threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 1
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Breaker{name: name, threshold: threshold, cooldown: cooldown, now: time.Now}
}

// Name returns the breaker's name as reported by the Monitor.
func (b *Breaker) Name() string { return b.name }

// State returns the current lifecycle state, accounting for cooldown expiry.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == Open && b.now().Sub(b.openedAt) >= b.cooldown {
		return HalfOpen
	}
	return b.state
}

// Do invokes fn through the breaker. While the circuit is open it returns
// ErrOpen without calling fn. After the cooldown one caller is admitted as a
// trial; its success closes the circuit, its failure reopens it.
func (b *Breaker) Do(fn func() error) error {
	if err := b.admit(); err != nil {
		return err
	}
	err := fn()
	b.record(err)
	return err
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case Closed:
		return nil
	case HalfOpen:
		// A trial is already in flight.
		return ErrOpen
	default: // Open
		if b.now().Sub(b.openedAt) < b.cooldown {
			return ErrOpen
		}
		b.state = HalfOpen
		return nil
	}
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		b.state = Closed
		b.failures = 0
		return
	}
	b.failures++
	if b.state == HalfOpen || b.failures >= b.threshold {
		b.state = Open
		b.openedAt = b.now()
		b.failures = 0
	}
}

// Monitor tracks registered breakers and reports the open ones.
type Monitor struct {
	mu       sync.Mutex
	breakers []*Breaker
}

// NewMonitor creates an empty Monitor.
func NewMonitor() *Monitor { return &Monitor{} }

// Register adds a breaker to the monitor and returns it for chaining.
func (m *Monitor) Register(b *Breaker) *Breaker {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.breakers = append(m.breakers, b)
	return b
}

// Open returns the names of breakers that are not closed.
func (m *Monitor) Open() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var names []string
	for _, b := range m.breakers {
		if b.State() != Closed {
			names = append(names, b.Name())
		}
	}
	return names
}
