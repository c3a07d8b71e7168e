package api

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/danuartha/swara/internal/auth"
	"github.com/danuartha/swara/internal/gateway"
	"github.com/danuartha/swara/repository"
	"github.com/danuartha/swara/usecase"
)

const (
	sessionTokenTTL = 24 * time.Hour
	roomTokenTTL    = 6 * time.Hour

	// Upper bound on a batch pipeline upload.
	maxPipelineBody = 16 << 20 // 16MB
)

// InitRoutes initializes all API routes
func InitRoutes(
	e *echo.Echo,
	hub *gateway.Hub,
	orchestrator *usecase.Orchestrator,
	artifacts repository.ArtifactStore,
	transcripts repository.TranscriptRepository,
	signer *auth.Signer,
	logger *zap.Logger,
) {
	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "swara-server",
		})
	})

	// API v1 routes
	v1 := e.Group("/api/v1")

	// Device APIs
	v1.POST("/device/auth", func(c echo.Context) error {
		return deviceAuth(c, signer, logger)
	})

	// Relay APIs
	v1.POST("/relay/token", func(c echo.Context) error {
		return relayToken(c, signer, logger)
	})

	// Batch pipeline APIs
	v1.POST("/pipeline", func(c echo.Context) error {
		return runPipeline(c, orchestrator, logger)
	})
	v1.GET("/artifacts/:id", func(c echo.Context) error {
		return getArtifact(c, orchestrator, logger)
	})
	v1.DELETE("/artifacts/:id", func(c echo.Context) error {
		return purgeArtifact(c, artifacts, logger)
	})

	// Exchange History APIs
	v1.GET("/sessions/:id/exchanges", func(c echo.Context) error {
		return getExchanges(c, transcripts, logger)
	})

	// WebSocket endpoint with JWT validation
	e.GET("/ws", func(c echo.Context) error {
		return websocketWithAuth(hub, c, signer, logger)
	})
}

func deviceAuth(c echo.Context, signer *auth.Signer, logger *zap.Logger) error {
	var req DeviceAuthRequest

	if err := c.Bind(&req); err != nil {
		logger.Error("Failed to bind device auth request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	if req.SerialNumber == "" || req.SecretKey == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "Serial number and secret key are required",
		})
	}

	// The serial number doubles as the session identity for the device.
	token, err := signer.SessionToken(req.SerialNumber, "device", sessionTokenTTL)
	if err != nil {
		logger.Error("Failed to generate session token",
			zap.String("serial_number", req.SerialNumber),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "token_generation_failed",
			Message: "Failed to generate authentication token",
		})
	}

	logger.Info("Device authenticated successfully",
		zap.String("serial_number", req.SerialNumber))

	return c.JSON(http.StatusOK, DeviceAuthResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(sessionTokenTTL),
		SessionID: req.SerialNumber,
	})
}

func relayToken(c echo.Context, signer *auth.Signer, logger *zap.Logger) error {
	var req RelayTokenRequest

	if err := c.Bind(&req); err != nil {
		logger.Error("Failed to bind relay token request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	if req.Room == "" || req.Identity == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "Room and identity are required",
		})
	}

	token, err := signer.RoomToken(auth.RoomGrant{
		Room:     req.Room,
		Identity: req.Identity,
		Name:     req.Name,
	}, roomTokenTTL)
	if err != nil {
		logger.Error("Failed to generate room token",
			zap.String("room", req.Room),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "token_generation_failed",
			Message: "Failed to generate room token",
		})
	}

	return c.JSON(http.StatusOK, RelayTokenResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(roomTokenTTL),
		Room:      req.Room,
	})
}

// runPipeline accepts a complete utterance as the request body, either raw
// audio bytes or a multipart form with an "audio" file, and runs it through
// the pipeline synchronously.
func runPipeline(c echo.Context, orchestrator *usecase.Orchestrator, logger *zap.Logger) error {
	sessionID := c.QueryParam("session_id")
	if sessionID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_session_id",
			Message: "session_id query parameter is required",
		})
	}

	audio, err := readAudioBody(c)
	if err != nil {
		logger.Error("Failed to read pipeline audio", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_audio",
			Message: "Could not read audio payload",
		})
	}
	if len(audio) == 0 {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "empty_audio",
			Message: "Audio payload is empty",
		})
	}

	req, err := orchestrator.SubmitAudio(c.Request().Context(), sessionID, audio)
	if err != nil {
		if errors.Is(err, usecase.ErrSessionBusy) {
			return c.JSON(http.StatusConflict, ErrorResponse{
				Error:   "session_busy",
				Message: "Session is already processing an utterance",
			})
		}
		logger.Error("Pipeline submission failed",
			zap.String("sessionID", sessionID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "pipeline_failed",
			Message: "Pipeline submission failed",
		})
	}

	return c.JSON(http.StatusOK, PipelineResponse{
		RequestID:  req.ID,
		SessionID:  req.SessionID,
		Status:     string(req.Status),
		UserText:   req.Transcript,
		ReplyText:  req.Reply,
		ArtifactID: req.ArtifactID,
		Reason:     string(req.Reason),
		DurationMs: req.Duration().Milliseconds(),
	})
}

func readAudioBody(c echo.Context) ([]byte, error) {
	contentType := c.Request().Header.Get(echo.HeaderContentType)
	if strings.HasPrefix(contentType, "multipart/form-data") {
		file, err := c.FormFile("audio")
		if err != nil {
			return nil, err
		}
		src, err := file.Open()
		if err != nil {
			return nil, err
		}
		defer src.Close()
		return io.ReadAll(io.LimitReader(src, maxPipelineBody))
	}
	return io.ReadAll(io.LimitReader(c.Request().Body, maxPipelineBody))
}

func getArtifact(c echo.Context, orchestrator *usecase.Orchestrator, logger *zap.Logger) error {
	id := c.Param("id")

	data, err := orchestrator.FetchArtifact(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrArtifactNotFound) {
			return c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "artifact_not_found",
				Message: "Artifact does not exist or has expired",
			})
		}
		logger.Error("Failed to fetch artifact",
			zap.String("artifactID", id),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to fetch artifact",
		})
	}

	return c.Blob(http.StatusOK, "application/octet-stream", data)
}

// purgeArtifact removes synthesized audio once the caller is done with it,
// ahead of TTL eviction. Unknown ids succeed; purge is idempotent.
func purgeArtifact(c echo.Context, artifacts repository.ArtifactStore, logger *zap.Logger) error {
	id := c.Param("id")

	if err := artifacts.Purge(c.Request().Context(), id); err != nil {
		logger.Error("Failed to purge artifact",
			zap.String("artifactID", id),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to purge artifact",
		})
	}

	return c.NoContent(http.StatusNoContent)
}

func getExchanges(c echo.Context, transcripts repository.TranscriptRepository, logger *zap.Logger) error {
	if transcripts == nil {
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:   "history_unavailable",
			Message: "Exchange history is not configured",
		})
	}

	sessionID := c.Param("id")
	exchanges, err := transcripts.GetBySessionID(c.Request().Context(), sessionID, 0)
	if err != nil {
		logger.Error("Failed to fetch exchanges",
			zap.String("sessionID", sessionID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to fetch exchange history",
		})
	}

	return c.JSON(http.StatusOK, exchanges)
}

// websocketWithAuth handles WebSocket connections with JWT authentication
func websocketWithAuth(hub *gateway.Hub, c echo.Context, signer *auth.Signer, logger *zap.Logger) error {
	// Extract JWT token from Authorization header only
	var token string
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader != "" && len(authHeader) > 7 && authHeader[:7] == "Bearer " {
		token = authHeader[7:]
	}

	if token == "" {
		logger.Warn("WebSocket connection rejected: missing token")
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "missing_token",
			Message: "JWT token is required in Authorization header",
		})
	}

	claims, err := signer.ValidateSessionToken(token)
	if err != nil {
		logger.Warn("WebSocket connection rejected: invalid token", zap.Error(err))
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_token",
			Message: "Invalid or expired JWT token",
		})
	}

	if claims.Role != "device" {
		logger.Warn("WebSocket connection rejected: invalid role",
			zap.String("role", claims.Role))
		return c.JSON(http.StatusForbidden, ErrorResponse{
			Error:   "invalid_role",
			Message: "Only device tokens are allowed for WebSocket connections",
		})
	}

	if claims.SessionID == "" {
		logger.Error("WebSocket connection rejected: missing session ID in token")
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_token_claims",
			Message: "Session ID not found in token",
		})
	}

	logger.Info("WebSocket connection authenticated",
		zap.String("sessionID", claims.SessionID),
		zap.String("role", claims.Role))

	return gateway.HandleWebSocket(hub, c, claims.SessionID, logger)
}
