package events

import "time"

// EventType labels the events emitted while a batch runs.
type EventType string

const (
	// Run lifecycle events
	EventTypeRunStarted  EventType = "run.started"
	EventTypeRunFinished EventType = "run.finished"
	EventTypeRunStopping EventType = "run.stopping"
	EventTypeRunProgress EventType = "run.progress"
	EventTypeRunStatus   EventType = "run.status"

	// Per-account events
	EventTypeAccountProcessed EventType = "account.processed"
	EventTypeAccountFailed    EventType = "account.failed"

	// Persistence events
	EventTypeProgressSaved EventType = "progress.saved"

	// Network events
	EventTypeProxyChecked EventType = "proxy.checked"

	// Error events
	EventTypeError EventType = "error"
)

// Event is one emitted occurrence with its payload.
type Event struct {
	Type      EventType
	Source    string // component that emitted the event (e.g., "runner", "saver")
	Timestamp time.Time
	Data      map[string]interface{}
}

// Handler processes one event.
type Handler func(Event)

// SubscriptionID uniquely identifies a subscription.
type SubscriptionID int64

// AllTypes lists every event type, for sinks that subscribe to the full
// stream.
func AllTypes() []EventType {
	return []EventType{
		EventTypeRunStarted,
		EventTypeRunFinished,
		EventTypeRunStopping,
		EventTypeRunProgress,
		EventTypeRunStatus,
		EventTypeAccountProcessed,
		EventTypeAccountFailed,
		EventTypeProgressSaved,
		EventTypeProxyChecked,
		EventTypeError,
	}
}

// Helper constructors for common events

// NewRunStartedEvent creates a run started event.
func NewRunStartedEvent(room, workers, total int) Event {
	return Event{
		Type:      EventTypeRunStarted,
		Source:    "runner",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"room":    room,
			"workers": workers,
			"total":   total,
		},
	}
}

// NewRunFinishedEvent creates a run finished event. completed is false when
// the run was stopped before draining its batch.
func NewRunFinishedEvent(room, processed int, completed bool) Event {
	return Event{
		Type:      EventTypeRunFinished,
		Source:    "runner",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"room":      room,
			"processed": processed,
			"completed": completed,
		},
	}
}

// NewRunStoppingEvent creates a run stopping event. discarded is the number
// of queued accounts dropped without processing.
func NewRunStoppingEvent(discarded int) Event {
	return Event{
		Type:      EventTypeRunStopping,
		Source:    "runner",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"discarded": discarded,
		},
	}
}

// NewRunProgressEvent creates a progress event.
func NewRunProgressEvent(current, total int) Event {
	return Event{
		Type:      EventTypeRunProgress,
		Source:    "runner",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"current": current,
			"total":   total,
		},
	}
}

// NewRunStatusEvent creates a human-readable status message event.
func NewRunStatusEvent(message string) Event {
	return Event{
		Type:      EventTypeRunStatus,
		Source:    "runner",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"message": message,
		},
	}
}

// NewAccountProcessedEvent creates an account processed or failed event
// depending on the outcome.
func NewAccountProcessedEvent(email string, room, worker int, success bool) Event {
	eventType := EventTypeAccountProcessed
	if !success {
		eventType = EventTypeAccountFailed
	}
	return Event{
		Type:      eventType,
		Source:    "runner",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"email":   email,
			"room":    room,
			"worker":  worker,
			"success": success,
		},
	}
}

// NewProgressSavedEvent creates a progress saved event.
func NewProgressSavedEvent(path string, count int) Event {
	return Event{
		Type:      EventTypeProgressSaved,
		Source:    "saver",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"path":  path,
			"count": count,
		},
	}
}

// NewProxyCheckedEvent creates a proxy check result event.
func NewProxyCheckedEvent(proxyURL, exitIP string, err error) Event {
	data := map[string]interface{}{
		"proxy_url": proxyURL,
		"exit_ip":   exitIP,
		"ok":        err == nil,
	}
	if err != nil {
		data["error"] = err.Error()
	}
	return Event{
		Type:      EventTypeProxyChecked,
		Source:    "proxy",
		Timestamp: time.Now(),
		Data:      data,
	}
}

// NewErrorEvent creates an error event.
func NewErrorEvent(source string, err error, metadata map[string]interface{}) Event {
	data := map[string]interface{}{
		"error": err.Error(),
	}
	for k, v := range metadata {
		data[k] = v
	}
	return Event{
		Type:      EventTypeError,
		Source:    source,
		Timestamp: time.Now(),
		Data:      data,
	}
}
