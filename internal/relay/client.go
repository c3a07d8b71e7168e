package relay

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	dialTimeout  = 10 * time.Second
	writeTimeout = 10 * time.Second
	pongTimeout  = 60 * time.Second
	pingInterval = (pongTimeout * 9) / 10
)

// RoomClient maintains a websocket connection to a relay room. Signaling
// events and subscribed audio are dispatched to the RoomHandler; synthesized
// audio is published back with PublishAudio.
type RoomClient struct {
	conn    *websocket.Conn
	handler RoomHandler
	logger  *zap.Logger

	mu     sync.Mutex
	closed bool
	done   chan struct{}

	// Tracks currently subscribed, keyed by track ID. Incoming binary
	// frames belong to the most recently subscribed audio track.
	tracksMu     sync.Mutex
	tracks       map[string]trackBinding
	activeAudio  string
	participants map[string]Participant
}

type trackBinding struct {
	participant Participant
	track       TrackInfo
}

// Connect dials the relay server and joins the room the token grants access
// to. The caller owns the returned client and must Close it.
func Connect(ctx context.Context, serverURL, token string, handler RoomHandler, logger *zap.Logger) (*RoomClient, error) {
	if handler == nil {
		return nil, fmt.Errorf("room handler is required")
	}

	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, resp, err := dialer.DialContext(ctx, serverURL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("relay dial failed with status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("relay dial failed: %w", err)
	}

	c := &RoomClient{
		conn:         conn,
		handler:      handler,
		logger:       logger,
		done:         make(chan struct{}),
		tracks:       make(map[string]trackBinding),
		participants: make(map[string]Participant),
	}

	go c.readLoop()
	go c.pingLoop()

	return c, nil
}

// PublishAudio sends one chunk of synthesized audio into the room.
func (c *RoomClient) PublishAudio(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("room client is closed")
	}

	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return fmt.Errorf("failed to publish audio: %w", err)
	}
	return nil
}

// Done is closed when the connection terminates.
func (c *RoomClient) Done() <-chan struct{} {
	return c.done
}

// Close tears down the room connection.
func (c *RoomClient) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true

	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.mu.Unlock()

	return c.conn.Close()
}

func (c *RoomClient) readLoop() {
	defer func() {
		close(c.done)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Error("Relay connection error", zap.Error(err))
			}
			return
		}

		switch messageType {
		case websocket.TextMessage:
			c.dispatchEvent(message)
		case websocket.BinaryMessage:
			c.dispatchAudio(message)
		}
	}
}

func (c *RoomClient) pingLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			if c.closed {
				c.mu.Unlock()
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			err := c.conn.WriteMessage(websocket.PingMessage, nil)
			c.mu.Unlock()
			if err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *RoomClient) dispatchEvent(message []byte) {
	event, err := ParseEvent(message)
	if err != nil {
		c.logger.Warn("Ignoring malformed relay event", zap.Error(err))
		return
	}

	switch event.Type {
	case EventTypeParticipantJoined:
		c.tracksMu.Lock()
		c.participants[event.Participant.Identity] = event.Participant
		c.tracksMu.Unlock()
		c.handler.OnParticipantConnected(event.Participant)

	case EventTypeParticipantLeft:
		c.tracksMu.Lock()
		delete(c.participants, event.Participant.Identity)
		for id, binding := range c.tracks {
			if binding.participant.Identity == event.Participant.Identity {
				delete(c.tracks, id)
				if c.activeAudio == id {
					c.activeAudio = ""
				}
			}
		}
		c.tracksMu.Unlock()
		c.handler.OnParticipantDisconnected(event.Participant)

	case EventTypeTrackPublished:
		binding := trackBinding{participant: event.Participant, track: event.Track}
		c.tracksMu.Lock()
		c.tracks[event.Track.ID] = binding
		if event.Track.Kind == "audio" {
			c.activeAudio = event.Track.ID
		}
		c.tracksMu.Unlock()
		c.handler.OnTrackSubscribed(event.Participant, event.Track)

	case EventTypeTrackUnpublished:
		c.tracksMu.Lock()
		delete(c.tracks, event.Track.ID)
		if c.activeAudio == event.Track.ID {
			c.activeAudio = ""
		}
		c.tracksMu.Unlock()
		c.handler.OnTrackUnsubscribed(event.Participant, event.Track)
	}
}

// dispatchAudio routes a binary frame to the handler under the currently
// active audio track. Frames arriving with no subscribed track are dropped.
func (c *RoomClient) dispatchAudio(data []byte) {
	c.tracksMu.Lock()
	binding, ok := c.tracks[c.activeAudio]
	c.tracksMu.Unlock()
	if !ok {
		return
	}

	c.handler.OnAudioFrame(binding.participant, binding.track, data)
}
