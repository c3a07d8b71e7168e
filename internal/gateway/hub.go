package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/danuartha/swara/domain"
	"github.com/danuartha/swara/usecase"
)

// outChunkSize is the size of binary audio chunks written back to clients.
const outChunkSize = 4096

// Hub maintains the set of active streaming clients and routes completed
// pipeline results back to the session that produced the utterance.
type Hub struct {
	// Registered clients keyed by session ID.
	clients map[string]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	mu sync.RWMutex

	orchestrator *usecase.Orchestrator
	buffer       *usecase.UtteranceBuffer
	logger       *zap.Logger
}

// NewHub creates a streaming gateway hub wired to the pipeline orchestrator.
// The utterance buffer is constructed here so that flushed utterances flow
// straight into the pipeline and their results back to the owning client.
func NewHub(orchestrator *usecase.Orchestrator, logger *zap.Logger, bufferOpts ...usecase.BufferOption) *Hub {
	h := &Hub{
		clients:      make(map[string]*Client),
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		orchestrator: orchestrator,
		logger:       logger,
	}
	h.buffer = usecase.NewUtteranceBuffer(orchestrator, h.handleUtterance, logger, bufferOpts...)
	return h
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.sessionID] = client
			h.mu.Unlock()
			h.logger.Info("Client registered", zap.String("sessionID", client.sessionID))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.sessionID]; ok {
				delete(h.clients, client.sessionID)
				close(client.send)
			}
			h.mu.Unlock()
			h.buffer.Reset(client.sessionID)
			h.logger.Info("Client unregistered", zap.String("sessionID", client.sessionID))
		}
	}
}

// Buffer exposes the utterance buffer for the batch API and tests.
func (h *Hub) Buffer() *usecase.UtteranceBuffer {
	return h.buffer
}

// handleUtterance runs the pipeline for a flushed utterance and streams the
// outcome back to the owning client. It executes on the buffer's dispatch
// goroutine, never on a client's read loop.
func (h *Hub) handleUtterance(utterance *domain.Utterance) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	req, err := h.orchestrator.Process(ctx, utterance)
	if err != nil {
		if errors.Is(err, usecase.ErrSessionBusy) {
			h.logger.Warn("Dropping utterance, session busy",
				zap.String("sessionID", utterance.SessionID))
			return
		}
		h.logger.Error("Pipeline processing failed",
			zap.String("sessionID", utterance.SessionID),
			zap.Error(err))
		return
	}

	client := h.client(utterance.SessionID)
	if client == nil {
		// Client went away mid-processing; the artifact stays retrievable
		// until the store evicts it.
		h.logger.Warn("No client for completed request",
			zap.String("sessionID", utterance.SessionID),
			zap.String("requestID", req.ID))
		return
	}

	if req.Status != domain.StatusSucceeded {
		h.sendFailure(client, req)
		return
	}
	h.sendReply(client, req)
}

func (h *Hub) client(sessionID string) *Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clients[sessionID]
}

// sendReply streams a successful result: a speaking_start envelope, the
// synthesized audio in binary chunks, then speaking_end.
func (h *Hub) sendReply(c *Client, req *domain.PipelineRequest) {
	start, _ := json.Marshal(SpeakingStartMessage{
		Type:       MessageTypeSpeakingStart,
		SessionID:  req.SessionID,
		RequestID:  req.ID,
		UserText:   req.Transcript,
		ReplyText:  req.Reply,
		ArtifactID: req.ArtifactID,
		Timestamp:  time.Now().Unix(),
	})
	c.enqueue(WriteData{Type: websocket.TextMessage, Payload: start})

	audio := req.OutAudio
	for len(audio) > 0 {
		n := outChunkSize
		if n > len(audio) {
			n = len(audio)
		}
		c.enqueue(WriteData{Type: websocket.BinaryMessage, Payload: audio[:n]})
		audio = audio[n:]
	}

	end, _ := json.Marshal(ControlMessage{
		Type:      MessageTypeSpeakingEnd,
		SessionID: req.SessionID,
		Timestamp: time.Now().Unix(),
	})
	c.enqueue(WriteData{Type: websocket.TextMessage, Payload: end})
}

// sendFailure reports a failed request. Partial results travel with the
// error so callers can still display the transcript and reply text.
func (h *Hub) sendFailure(c *Client, req *domain.PipelineRequest) {
	msg := &ErrorMessage{
		Type:      MessageTypeError,
		SessionID: req.SessionID,
		Code:      string(req.Reason),
		Message:   req.Err,
		UserText:  req.Transcript,
		ReplyText: req.Reply,
		Timestamp: time.Now().Unix(),
	}
	payload, _ := json.Marshal(msg)
	c.enqueue(WriteData{Type: websocket.TextMessage, Payload: payload})
}
