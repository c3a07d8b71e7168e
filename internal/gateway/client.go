package gateway

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/danuartha/swara/domain"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512 * 1024 // 512KB for audio frames
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// WriteData is one outbound websocket message.
type WriteData struct {
	// Type is websocket.TextMessage or websocket.BinaryMessage.
	Type    int
	Payload []byte
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan WriteData

	// Session ID for this client, taken from the validated token.
	sessionID string

	logger *zap.Logger

	// Frame format negotiated via listening_start.
	mutex      sync.Mutex
	sampleRate int
	listening  bool
}

// HandleWebSocket upgrades the connection for a pre-authenticated session
// and starts the read/write pumps.
func HandleWebSocket(hub *Hub, c echo.Context, sessionID string, logger *zap.Logger) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	client := &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan WriteData, 256),
		sessionID:  sessionID,
		logger:     logger,
		sampleRate: 48000,
	}

	client.hub.register <- client

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	go client.readPump()

	return nil
}

// enqueue queues an outbound message, dropping it when the client's send
// buffer is full rather than blocking the pipeline.
func (c *Client) enqueue(msg WriteData) {
	select {
	case c.send <- msg:
	default:
		c.logger.Warn("Dropping outbound message, send buffer full",
			zap.String("sessionID", c.sessionID))
	}
}

// readPump pumps messages from the websocket connection to the hub.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			break
		}

		switch messageType {
		case websocket.TextMessage:
			c.processControlMessage(message)
		case websocket.BinaryMessage:
			c.processAudioFrame(message)
		default:
			c.logger.Warn("Received unknown message type", zap.Int("type", messageType))
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(message.Type, message.Payload); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// processControlMessage handles JSON control messages from the client.
func (c *Client) processControlMessage(message []byte) {
	msg, err := ParseControlMessage(message)
	if err != nil {
		c.logger.Error("Failed to parse control message", zap.Error(err))
		payload, _ := json.Marshal(NewErrorMessage(c.sessionID, "invalid_message", err.Error()))
		c.enqueue(WriteData{Type: websocket.TextMessage, Payload: payload})
		return
	}

	switch msg.Type {
	case MessageTypeListeningStart:
		c.handleListeningStart(msg)
	case MessageTypeListeningEnd:
		c.handleListeningEnd()
	}
}

// processAudioFrame hands binary audio data to the utterance buffer. This
// never blocks on pipeline work; flushing happens on a separate goroutine.
func (c *Client) processAudioFrame(data []byte) {
	c.mutex.Lock()
	listening := c.listening
	sampleRate := c.sampleRate
	c.mutex.Unlock()

	if !listening {
		c.logger.Warn("Received audio frame outside a listening window",
			zap.String("sessionID", c.sessionID))
		return
	}

	c.hub.buffer.Accept(domain.AudioFrame{
		SampleRate: sampleRate,
		Channels:   1,
		BitDepth:   16,
		Data:       data,
	}, c.sessionID)
}

// handleListeningStart opens a listening window and records the negotiated
// frame format.
func (c *Client) handleListeningStart(msg *ControlMessage) {
	c.mutex.Lock()
	c.listening = true
	if msg.SampleRate > 0 {
		c.sampleRate = msg.SampleRate
	}
	c.mutex.Unlock()

	c.logger.Info("Listening started",
		zap.String("sessionID", c.sessionID),
		zap.Int("sampleRate", c.sampleRate))

	response, _ := json.Marshal(ControlMessage{
		Type:      MessageTypeListeningStart,
		SessionID: c.sessionID,
		Timestamp: time.Now().Unix(),
	})
	c.enqueue(WriteData{Type: websocket.TextMessage, Payload: response})
}

// handleListeningEnd closes the listening window and flushes any pending
// frames so a short final utterance is not stranded below the threshold.
func (c *Client) handleListeningEnd() {
	c.mutex.Lock()
	c.listening = false
	c.mutex.Unlock()

	flushed := c.hub.buffer.Flush(c.sessionID)

	c.logger.Info("Listening ended",
		zap.String("sessionID", c.sessionID),
		zap.Bool("flushed", flushed))

	response, _ := json.Marshal(ControlMessage{
		Type:      MessageTypeListeningEnd,
		SessionID: c.sessionID,
		Timestamp: time.Now().Unix(),
	})
	c.enqueue(WriteData{Type: websocket.TextMessage, Payload: response})
}
