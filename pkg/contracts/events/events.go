// Package events contains the event contract pushed to WebSocket clients
// while analysis sessions change.
package events

import (
	"time"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Connection messages
	MessageTypeConnect MessageType = "connect"

	// Session lifecycle
	MessageTypeSessionCreated MessageType = "session:created"
	MessageTypeSessionClosed  MessageType = "session:closed"
	MessageTypeDatasetLoaded  MessageType = "session:dataset_loaded"

	// Analysis results
	MessageTypeGrowthComputed     MessageType = "analysis:growth"
	MessageTypeInhibitionComputed MessageType = "analysis:inhibition"
	MessageTypeExportReady        MessageType = "analysis:export"
	MessageTypeAnalysisFailed     MessageType = "analysis:error"
)

// Level is the severity shown with a status message
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Event is one status message broadcast to every connected client
type Event struct {
	Type      MessageType `json:"type"`
	Level     Level       `json:"level"`
	Message   string      `json:"message"`
	SessionID string      `json:"session_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// New creates an event stamped with the current time
func New(msgType MessageType, level Level, message string) Event {
	return Event{
		Type:      msgType,
		Level:     level,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}

// ForSession sets the session the event belongs to
func (e Event) ForSession(id string) Event {
	e.SessionID = id
	return e
}

// WithData attaches a payload
func (e Event) WithData(data interface{}) Event {
	e.Data = data
	return e
}
