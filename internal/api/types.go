package api

import "time"

// DeviceAuthRequest represents the request payload for device authentication
type DeviceAuthRequest struct {
	SerialNumber string `json:"serial_number" validate:"required"`
	SecretKey    string `json:"secret_key" validate:"required"`
}

// DeviceAuthResponse represents the response payload for device authentication
type DeviceAuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	SessionID string    `json:"session_id"`
}

// RelayTokenRequest represents the request payload for a relay room token
type RelayTokenRequest struct {
	Room     string `json:"room" validate:"required"`
	Identity string `json:"identity" validate:"required"`
	Name     string `json:"name,omitempty"`
}

// RelayTokenResponse represents the response payload for a relay room token
type RelayTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Room      string    `json:"room"`
}

// PipelineResponse represents the result of a batch pipeline run
type PipelineResponse struct {
	RequestID  string `json:"request_id"`
	SessionID  string `json:"session_id"`
	Status     string `json:"status"`
	UserText   string `json:"user_text,omitempty"`
	ReplyText  string `json:"reply_text,omitempty"`
	ArtifactID string `json:"artifact_id,omitempty"`
	Reason     string `json:"reason,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
