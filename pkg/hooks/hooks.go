// Package hooks lets callers inject logic around trace emission without
// touching the correlation engine: filter or annotate events before they are
// written, observe the finished trace, and react to failures.
package hooks

import (
	"sync"
	"time"

	"github.com/protoview/protoview/internal/model"
)

// PreEventHook runs before an event is written. Returning keep=false drops
// the event from the stream; an error aborts the run.
type PreEventHook func(ev *model.Event) (keep bool, err error)

// PostTraceHook runs once after trace_end is written.
type PostTraceHook func(sum Summary) error

// ErrorHook observes a failure in the named phase. It cannot recover the
// run; use it for alerting and logging.
type ErrorHook func(err error, phase string)

// Summary describes a completed trace.
type Summary struct {
	TraceID         string
	CaptureFile     string
	Events          int64
	PendingRequests int
	Duration        time.Duration
}

// Manager holds the registered hook chains.
type Manager struct {
	mu sync.RWMutex

	preEvent  []PreEventHook
	postTrace []PostTraceHook
	onError   []ErrorHook
}

// NewManager creates an empty hook manager.
func NewManager() *Manager {
	return &Manager{}
}

// RegisterPreEvent adds a pre-event hook.
func (m *Manager) RegisterPreEvent(h PreEventHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.preEvent = append(m.preEvent, h)
}

// RegisterPostTrace adds a post-trace hook.
func (m *Manager) RegisterPostTrace(h PostTraceHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.postTrace = append(m.postTrace, h)
}

// RegisterError adds an error hook.
func (m *Manager) RegisterError(h ErrorHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onError = append(m.onError, h)
}

// RunPreEvent executes the pre-event chain. The first hook that drops the
// event short-circuits the chain.
func (m *Manager) RunPreEvent(ev *model.Event) (bool, error) {
	m.mu.RLock()
	chain := m.preEvent
	m.mu.RUnlock()

	for _, h := range chain {
		keep, err := h(ev)
		if err != nil {
			return false, err
		}
		if !keep {
			return false, nil
		}
	}
	return true, nil
}

// RunPostTrace executes all post-trace hooks.
func (m *Manager) RunPostTrace(sum Summary) error {
	m.mu.RLock()
	chain := m.postTrace
	m.mu.RUnlock()

	for _, h := range chain {
		if err := h(sum); err != nil {
			return err
		}
	}
	return nil
}

// RunError notifies all error hooks.
func (m *Manager) RunError(err error, phase string) {
	m.mu.RLock()
	chain := m.onError
	m.mu.RUnlock()

	for _, h := range chain {
		h(err, phase)
	}
}

// KindFilter returns a pre-event hook that keeps only the given kinds.
func KindFilter(kinds ...model.Kind) PreEventHook {
	keep := make(map[model.Kind]bool, len(kinds))
	for _, k := range kinds {
		keep[k] = true
	}
	return func(ev *model.Event) (bool, error) {
		return keep[ev.Kind], nil
	}
}
