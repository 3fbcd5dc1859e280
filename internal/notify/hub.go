// Package notify is the per-interview progress notification hub that
// backs the SSE event stream of spec.md §4.8. Each interview gets its own
// subscriber list; the avatar pipeline calls the Avatar* methods and the
// QuestionsCreated handler in cmd/interviewd calls InterviewReady to
// publish progress, and the HTTP layer's
// SSE handler drains a [Subscription] to stream them to a client.
package notify

import (
	"sync"
	"time"
)

// EventKind names the three SSE event types of spec.md §4.8.
type EventKind string

const (
	EventAvatarReady    EventKind = "avatar-ready"
	EventAvatarFailed   EventKind = "avatar-failed"
	EventInterviewReady EventKind = "interview-ready"
)

// Event is a single SSE payload for one interview's subscribers.
type Event struct {
	Kind         EventKind
	QuestionID   string
	PresignedURL string
}

// QuestionProgress is one question's avatar-pipeline status, used by both
// the SSE stream and the polling-fallback snapshot so the two surfaces
// never drift apart.
type QuestionProgress struct {
	QuestionID string
	HasAvatar  bool
}

// defaultIdleTimeout is how long a subscription is kept open without any
// event before it is force-closed, per spec.md §4.8.
const defaultIdleTimeout = 10 * time.Minute

// Subscription is a single SSE client's view onto one interview's events.
// Callers must call Close when the underlying HTTP connection ends.
type Subscription struct {
	events chan Event
	// activity is signalled on every publish so the idle watcher can reset
	// its timer without consuming from events.
	activity chan struct{}

	hub         *Hub
	interviewID string
	closeOnce   sync.Once
	done        chan struct{}
}

// Events returns the channel of events for this subscription. It is
// closed when the subscription ends (idle timeout, interview-ready, or
// an explicit Close).
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Close unregisters the subscription from its hub. Safe to call more
// than once.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.hub.unsubscribe(s.interviewID, s)
	})
}

// Hub fans progress events out to every open subscription for an
// interview. It is safe for concurrent use.
type Hub struct {
	idleTimeout time.Duration

	mu   sync.Mutex
	subs map[string]map[*Subscription]struct{}
	// progress tracks per-interview question progress for Snapshot, kept
	// in sync with every AvatarReady/AvatarFailed call.
	progress map[string]map[string]bool
}

// Option configures a [Hub].
type Option func(*Hub)

// WithIdleTimeout overrides the default 10-minute idle timeout.
func WithIdleTimeout(d time.Duration) Option {
	return func(h *Hub) { h.idleTimeout = d }
}

// New creates an empty Hub.
func New(opts ...Option) *Hub {
	h := &Hub{
		idleTimeout: defaultIdleTimeout,
		subs:        make(map[string]map[*Subscription]struct{}),
		progress:    make(map[string]map[string]bool),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscribe opens a new subscription for interviewID. The subscription
// auto-closes after an interview-ready event, the idle timeout, or an
// explicit Close call.
func (h *Hub) Subscribe(interviewID string) *Subscription {
	sub := &Subscription{
		events:      make(chan Event, 16),
		activity:    make(chan struct{}, 1),
		hub:         h,
		interviewID: interviewID,
		done:        make(chan struct{}),
	}

	h.mu.Lock()
	if h.subs[interviewID] == nil {
		h.subs[interviewID] = make(map[*Subscription]struct{})
	}
	h.subs[interviewID][sub] = struct{}{}
	h.mu.Unlock()

	go h.watchIdle(sub)
	return sub
}

// watchIdle force-closes sub if no event arrives within the idle timeout.
func (h *Hub) watchIdle(sub *Subscription) {
	timer := time.NewTimer(h.idleTimeout)
	defer timer.Stop()

	for {
		select {
		case <-sub.done:
			return
		case <-timer.C:
			sub.Close()
			return
		case <-sub.activity:
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(h.idleTimeout)
		}
	}
}

// unsubscribe removes sub from the hub's registry and closes its channel.
func (h *Hub) unsubscribe(interviewID string, sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs[interviewID], sub)
	if len(h.subs[interviewID]) == 0 {
		delete(h.subs, interviewID)
	}
	close(sub.events)
}

// publish sends evt to every open subscriber of interviewID. A dead
// subscriber (its buffer is full) has the send dropped rather than
// blocking the publisher, per spec.md §4.8.
func (h *Hub) publish(interviewID string, evt Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs[interviewID] {
		select {
		case s.events <- evt:
		default:
		}
		select {
		case s.activity <- struct{}{}:
		default:
		}
	}
}

// AvatarReady records that questionID now has an avatar key and publishes
// an avatar-ready event carrying its presigned GET URL.
func (h *Hub) AvatarReady(interviewID, questionID, presignedURL string) {
	h.setProgress(interviewID, questionID, true)
	h.publish(interviewID, Event{Kind: EventAvatarReady, QuestionID: questionID, PresignedURL: presignedURL})
}

// AvatarFailed records that questionID's avatar pipeline exhausted
// retries and publishes an avatar-failed event.
func (h *Hub) AvatarFailed(interviewID, questionID string) {
	h.setProgress(interviewID, questionID, false)
	h.publish(interviewID, Event{Kind: EventAvatarFailed, QuestionID: questionID})
}

// InterviewReady publishes an interview-ready event and closes every open
// subscription for the interview.
func (h *Hub) InterviewReady(interviewID string) {
	h.publish(interviewID, Event{Kind: EventInterviewReady})

	h.mu.Lock()
	subs := make([]*Subscription, 0, len(h.subs[interviewID]))
	for s := range h.subs[interviewID] {
		subs = append(subs, s)
	}
	h.mu.Unlock()

	for _, s := range subs {
		s.Close()
	}
}

func (h *Hub) setProgress(interviewID, questionID string, hasAvatar bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.progress[interviewID] == nil {
		h.progress[interviewID] = make(map[string]bool)
	}
	h.progress[interviewID][questionID] = hasAvatar
}

// Snapshot returns the current avatar progress for interviewID, backing
// the polling fallback of spec.md §4.8 so it and the SSE stream never
// diverge.
func (h *Hub) Snapshot(interviewID string) []QuestionProgress {
	h.mu.Lock()
	defer h.mu.Unlock()
	progress := h.progress[interviewID]
	out := make([]QuestionProgress, 0, len(progress))
	for qid, hasAvatar := range progress {
		out = append(out, QuestionProgress{QuestionID: qid, HasAvatar: hasAvatar})
	}
	return out
}
