package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"jmdev.ca/glade-room-bot/internal/events"
)

// EventLogger subscribes to the event bus and records every event to a
// per-run log file, so a batch leaves an audit trail even when nobody was
// watching the console.
type EventLogger struct {
	logger        *Logger
	bus           *events.Bus
	subscriptions []events.SubscriptionID
	logFile       *os.File
}

// NewEventLogger creates the log file under logDir and subscribes to the full
// event stream.
func NewEventLogger(bus *events.Bus, logDir string) (*EventLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	logPath := filepath.Join(logDir, fmt.Sprintf("run_%s.log", timestamp))
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	logger := NewLogger("events")
	logger.outputs = []io.Writer{logFile}

	el := &EventLogger{
		logger:  logger,
		bus:     bus,
		logFile: logFile,
	}
	el.subscriptions = bus.SubscribeAll(el.handleEvent)

	return el, nil
}

// Path returns the log file path.
func (el *EventLogger) Path() string {
	return el.logFile.Name()
}

func (el *EventLogger) handleEvent(event events.Event) {
	context := map[string]interface{}{
		"source": event.Source,
	}
	for k, v := range event.Data {
		context[k] = v
	}
	el.logger.InfoWithContext(string(event.Type), context)
}

// Close unsubscribes from the bus and closes the log file.
func (el *EventLogger) Close() error {
	for _, id := range el.subscriptions {
		el.bus.Unsubscribe(id)
	}
	if el.logFile != nil {
		return el.logFile.Close()
	}
	return nil
}
