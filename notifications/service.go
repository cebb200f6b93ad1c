package notifications

import (
	"sync"
	"time"
)

// EventType represents the type of notification event
type EventType string

const (
	EventConnected         EventType = "connected"
	EventRepositoryChanged EventType = "repository-changed"
	EventSyncProgress      EventType = "sync-progress"
	EventSyncCompleted     EventType = "sync-completed"
	EventSyncFailed        EventType = "sync-failed"
)

// Event represents a notification event
type Event struct {
	Type      EventType `json:"type"`
	Timestamp int64     `json:"timestamp"`
	Project   string    `json:"project,omitempty"`
	Data      any       `json:"data,omitempty"`
}

// Service manages SSE subscriptions and event broadcasting
type Service struct {
	mu          sync.RWMutex
	subscribers map[chan Event]struct{}
	closed      bool
}

// NewService creates a new notification service
func NewService() *Service {
	return &Service{
		subscribers: make(map[chan Event]struct{}),
	}
}

// Subscribe creates a new subscription channel.
// Returns the event channel and an unsubscribe function.
func (s *Service) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 32)

	s.mu.Lock()
	if s.closed {
		close(ch)
	} else {
		s.subscribers[ch] = struct{}{}
	}
	s.mu.Unlock()

	unsubscribe := func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if _, exists := s.subscribers[ch]; exists {
			delete(s.subscribers, ch)
			close(ch)
		}
	}

	return ch, unsubscribe
}

// Notify broadcasts an event to all subscribers
func (s *Service) Notify(event Event) {
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for ch := range s.subscribers {
		select {
		case ch <- event:
		default:
			// Slow subscriber, drop
		}
	}
}

// NotifyRepositoryChanged sends a repository-changed event.
// Used when a project or one of its versions or notes changes on disk.
func (s *Service) NotifyRepositoryChanged(project, version, operation string) {
	s.Notify(Event{
		Type:    EventRepositoryChanged,
		Project: project,
		Data: map[string]any{
			"version":   version,
			"operation": operation,
		},
	})
}

// NotifySyncProgress sends a sync-progress event
func (s *Service) NotifySyncProgress(runID, kind string, done, total int) {
	s.Notify(Event{
		Type: EventSyncProgress,
		Data: map[string]any{
			"runId": runID,
			"kind":  kind,
			"done":  done,
			"total": total,
		},
	})
}

// NotifySyncCompleted sends a sync-completed event
func (s *Service) NotifySyncCompleted(runID, kind string, count int) {
	s.Notify(Event{
		Type: EventSyncCompleted,
		Data: map[string]any{
			"runId": runID,
			"kind":  kind,
			"count": count,
		},
	})
}

// NotifySyncFailed sends a sync-failed event
func (s *Service) NotifySyncFailed(runID, kind, errKind, message string) {
	s.Notify(Event{
		Type: EventSyncFailed,
		Data: map[string]any{
			"runId":     runID,
			"kind":      kind,
			"errorKind": errKind,
			"error":     message,
		},
	})
}

// Shutdown closes every subscriber channel; later subscriptions get a closed channel
func (s *Service) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true

	for ch := range s.subscribers {
		close(ch)
	}
	s.subscribers = make(map[chan Event]struct{})
}

// SubscriberCount returns the number of active subscribers
func (s *Service) SubscriberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers)
}
