package websocket

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/pyronotes/server/domain/entities"
	"github.com/pyronotes/server/domain/repositories"
	"github.com/pyronotes/server/usecase"
)

// finalizeTimeout bounds the tail analysis plus persistence write that
// runs after the client is gone.
const finalizeTimeout = 60 * time.Second

type writeData struct {
	// Expect websocket.TextMessage or websocket.BinaryMessage
	Type    int
	Payload []byte
}

// Client is the single worker for one live session. The readPump
// goroutine processes frames strictly in order and performs analysis
// calls synchronously, so a session never has two analysis calls in
// flight and appends arriving meanwhile simply queue on the socket.
type Client struct {
	hub *Hub

	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan writeData

	lectureID string
	session   *entities.Session

	// lazily opened when the first binary audio frame arrives
	sttStream repositories.SpeechToTextStreaming
	audioCfg  repositories.AudioConfig

	logger *zap.Logger
}

// readPump pumps frames from the websocket connection into the session
// engine. Any exit, clean or not, runs the finalize path: a dropped
// transport is an implicit end-of-stream signal and partial transcripts
// are never discarded.
func (c *Client) readPump() {
	// The write pump owns conn.Close: closing here would race it out
	// of draining the queued terminal event.
	defer func() {
		c.shutdown()
		c.hub.unregister <- c
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
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			return
		}

		switch messageType {
		case websocket.TextMessage:
			if done := c.processFrame(message); done {
				return
			}
		case websocket.BinaryMessage:
			c.processAudioChunk(message)
		default:
			c.logger.Warn("Received unknown message type", zap.Int("type", messageType))
		}
	}
}

// writePump pumps outbound messages to the websocket connection
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

// processFrame handles one JSON frame; it reports whether the client
// asked to finalize.
func (c *Client) processFrame(message []byte) bool {
	frame, err := ParseClientFrame(message)
	if err != nil {
		c.logger.Error("Failed to parse frame", zap.Error(err))
		return false
	}

	switch frame.Type {
	case FrameTranscriptChunk:
		ctx, cancel := context.WithTimeout(context.Background(), finalizeTimeout)
		defer cancel()
		if err := c.hub.live.AppendText(ctx, c.session, frame.Text, c.emit); err != nil {
			c.logger.Warn("Dropped transcript chunk",
				zap.String("lectureID", c.lectureID),
				zap.Error(err))
		}
		return false

	case FrameFinalize:
		return true

	default:
		c.logger.Warn("Unknown frame type", zap.String("type", frame.Type))
		return false
	}
}

// processAudioChunk streams a binary audio frame to the recognizer
func (c *Client) processAudioChunk(data []byte) {
	if c.sttStream == nil {
		cfg := repositories.AudioConfig{
			SampleRate: 48000,
			Encoding:   "WEBM_OPUS",
			Language:   "en-US",
		}

		stream, err := c.hub.stt.InitTranscribeStreaming(context.Background(), cfg)
		if err != nil {
			c.logger.Error("Failed to initialize streaming transcription",
				zap.String("lectureID", c.lectureID),
				zap.Error(err))
			return
		}
		c.sttStream = stream
		c.audioCfg = cfg
	}

	if err := c.sttStream.Stream(data); err != nil {
		c.logger.Error("Failed to stream audio data",
			zap.String("lectureID", c.lectureID),
			zap.Error(err))
	}
}

// shutdown folds any pending recognized audio into the transcript and
// finalizes the session. Safe to reach from every readPump exit; the
// session state machine makes finalization run once.
func (c *Client) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), finalizeTimeout)
	defer cancel()

	c.flushAudio(ctx)

	if err := c.hub.live.Finalize(ctx, c.session, c.emit); err != nil {
		c.logger.Error("Session finalize failed",
			zap.String("lectureID", c.lectureID),
			zap.Error(err))
	}
}

func (c *Client) flushAudio(ctx context.Context) {
	if c.sttStream == nil {
		return
	}
	stream := c.sttStream
	c.sttStream = nil

	text, err := stream.End()
	if err != nil {
		c.logger.Warn("Audio stream ended without transcript",
			zap.String("lectureID", c.lectureID),
			zap.Error(err))
		return
	}
	if strings.TrimSpace(text) == "" {
		return
	}

	if err := c.hub.live.AppendText(ctx, c.session, text, c.emit); err != nil {
		c.logger.Warn("Dropped recognized audio text",
			zap.String("lectureID", c.lectureID),
			zap.Error(err))
	}
}

// emit marshals a session event and queues it for the write pump.
// Best-effort: when the outbound queue is gone the event is dropped,
// never retried.
func (c *Client) emit(event usecase.SessionEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		c.logger.Error("Failed to marshal session event", zap.Error(err))
		return
	}

	defer func() {
		// send channel may be closed by the hub on unregister
		if r := recover(); r != nil {
			c.logger.Warn("Dropped event on closed connection",
				zap.String("lectureID", c.lectureID))
		}
	}()

	select {
	case c.send <- writeData{Type: websocket.TextMessage, Payload: payload}:
	default:
		c.logger.Warn("Outbound queue full, dropping event",
			zap.String("lectureID", c.lectureID),
			zap.String("eventType", string(event.Type)))
	}
}
