package workflow

import (
	"sync"

	"autocut/internal/timeline"
)

// EventKind discriminates progress stream messages.
type EventKind string

const (
	// EventProgress carries a monotone fraction in [0, 1].
	EventProgress EventKind = "progress"
	// EventResult carries the final analysis report. Terminal.
	EventResult EventKind = "result"
	// EventError carries a coarse failure reason. Terminal.
	EventError EventKind = "error"
	// EventCancelled signals user cancellation. Terminal.
	EventCancelled EventKind = "cancelled"
)

// Event is one message on a job's progress stream.
type Event struct {
	Kind     EventKind                `json:"kind"`
	Progress float64                  `json:"progress,omitempty"`
	Message  string                   `json:"message,omitempty"`
	Report   *timeline.AnalysisReport `json:"report,omitempty"`
	Reason   string                   `json:"reason,omitempty"`
}

// Terminal reports whether the event closes the stream.
func (e Event) Terminal() bool {
	switch e.Kind {
	case EventResult, EventError, EventCancelled:
		return true
	default:
		return false
	}
}

// subscriberBuffer bounds the per-subscriber channel. A subscriber
// that falls behind keeps only the most recent events plus the
// terminal one; coalescing progress is permitted by contract.
const subscriberBuffer = 16

// historyLimit bounds replayed history per job.
const historyLimit = 256

// Hub fans per-job events out to subscribers, replaying history to
// late joiners.
type Hub struct {
	mu      sync.Mutex
	streams map[string]*stream
}

type stream struct {
	history  []Event
	subs     map[*Subscription]struct{}
	terminal bool
}

// Subscription is one attached listener. Events arrives closed once
// the job reaches a terminal state or Cancel is called.
type Subscription struct {
	events chan Event
	hub    *Hub
	jobID  string

	mu     sync.Mutex
	closed bool
}

// Events returns the subscriber channel.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Cancel detaches the subscription and closes its channel.
func (s *Subscription) Cancel() {
	s.hub.unsubscribe(s.jobID, s)
}

// NewHub constructs an empty event hub.
func NewHub() *Hub {
	return &Hub{streams: make(map[string]*stream)}
}

// Publish appends the event to the job's history and delivers it to
// every subscriber. A terminal event closes all subscriber channels.
func (h *Hub) Publish(jobID string, evt Event) {
	h.mu.Lock()
	st := h.streamLocked(jobID)
	if st.terminal {
		h.mu.Unlock()
		return
	}
	st.history = append(st.history, evt)
	if len(st.history) > historyLimit {
		st.history = st.history[len(st.history)-historyLimit:]
	}
	subs := make([]*Subscription, 0, len(st.subs))
	for sub := range st.subs {
		subs = append(subs, sub)
	}
	terminal := evt.Terminal()
	if terminal {
		st.terminal = true
		st.subs = make(map[*Subscription]struct{})
	}
	h.mu.Unlock()

	for _, sub := range subs {
		sub.deliver(evt)
		if terminal {
			sub.close()
		}
	}
}

// Subscribe attaches to the job's stream. All history since the start
// of the job is replayed first; a stream already terminal replays and
// closes immediately.
func (h *Hub) Subscribe(jobID string) *Subscription {
	h.mu.Lock()
	st := h.streamLocked(jobID)
	history := make([]Event, len(st.history))
	copy(history, st.history)
	terminal := st.terminal

	sub := &Subscription{
		events: make(chan Event, len(history)+subscriberBuffer),
		hub:    h,
		jobID:  jobID,
	}
	if !terminal {
		st.subs[sub] = struct{}{}
	}
	h.mu.Unlock()

	for _, evt := range history {
		sub.deliver(evt)
	}
	if terminal {
		sub.close()
	}
	return sub
}

// Drop forgets a job's stream entirely (used on job removal).
func (h *Hub) Drop(jobID string) {
	h.mu.Lock()
	st, ok := h.streams[jobID]
	if ok {
		delete(h.streams, jobID)
	}
	h.mu.Unlock()
	if !ok {
		return
	}
	for sub := range st.subs {
		sub.close()
	}
}

func (h *Hub) streamLocked(jobID string) *stream {
	st, ok := h.streams[jobID]
	if !ok {
		st = &stream{subs: make(map[*Subscription]struct{})}
		h.streams[jobID] = st
	}
	return st
}

func (h *Hub) unsubscribe(jobID string, sub *Subscription) {
	h.mu.Lock()
	if st, ok := h.streams[jobID]; ok {
		delete(st.subs, sub)
	}
	h.mu.Unlock()
	sub.close()
}

// deliver enqueues without blocking: when the buffer is full the
// oldest pending event is discarded so slow readers converge on the
// most recent state.
func (s *Subscription) deliver(evt Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for {
		select {
		case s.events <- evt:
			return
		default:
			select {
			case <-s.events:
			default:
			}
		}
	}
}

func (s *Subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.events)
}
