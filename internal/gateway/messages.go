package gateway

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType defines the type of WebSocket control message
type MessageType string

// Supported message types
const (
	MessageTypeListeningStart MessageType = "listening_start"
	MessageTypeListeningEnd   MessageType = "listening_end"
	MessageTypeSpeakingStart  MessageType = "speaking_start"
	MessageTypeSpeakingEnd    MessageType = "speaking_end"
	MessageTypeError          MessageType = "error"
)

// ControlMessage is a JSON text message on the streaming connection. Binary
// messages carry raw audio frames and bypass this envelope.
type ControlMessage struct {
	Type       MessageType `json:"type"`
	SessionID  string      `json:"session_id,omitempty"`
	SampleRate int         `json:"sample_rate,omitempty"`
	Encoding   string      `json:"encoding,omitempty"`
	Language   string      `json:"language,omitempty"`
	Timestamp  int64       `json:"timestamp,omitempty"`
}

// SpeakingStartMessage announces an assistant reply. The synthesized audio
// follows as binary messages, terminated by a speaking_end message.
type SpeakingStartMessage struct {
	Type       MessageType `json:"type"`
	SessionID  string      `json:"session_id"`
	RequestID  string      `json:"request_id"`
	UserText   string      `json:"user_text"`
	ReplyText  string      `json:"response_text"`
	ArtifactID string      `json:"audio_id,omitempty"`
	Timestamp  int64       `json:"timestamp"`
}

// ErrorMessage reports a pipeline or protocol failure to the client.
type ErrorMessage struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id,omitempty"`
	Code      string      `json:"error_code"`
	Message   string      `json:"message"`
	UserText  string      `json:"user_text,omitempty"`
	ReplyText string      `json:"response_text,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// ParseControlMessage decodes and validates an incoming text message.
func ParseControlMessage(data []byte) (*ControlMessage, error) {
	var msg ControlMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("invalid JSON format: %w", err)
	}
	switch msg.Type {
	case MessageTypeListeningStart, MessageTypeListeningEnd:
	default:
		return nil, fmt.Errorf("unsupported message type: %s", msg.Type)
	}
	if msg.SampleRate != 0 && (msg.SampleRate < 8000 || msg.SampleRate > 48000) {
		return nil, fmt.Errorf("sample_rate must be between 8000 and 48000")
	}
	return &msg, nil
}

// NewErrorMessage creates a standardized error message
func NewErrorMessage(sessionID, code, message string) *ErrorMessage {
	return &ErrorMessage{
		Type:      MessageTypeError,
		SessionID: sessionID,
		Code:      code,
		Message:   message,
		Timestamp: time.Now().Unix(),
	}
}
