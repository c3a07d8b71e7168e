package relay

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/danuartha/swara/domain"
	"github.com/danuartha/swara/usecase"
)

const (
	// Chunk size for publishing synthesized audio back into the room.
	publishChunkSize = 4096

	// Per-utterance processing deadline.
	processTimeout = 60 * time.Second
)

// Agent is the in-room voice assistant. It subscribes to participant audio,
// accumulates it into utterances, and publishes synthesized replies back
// into the room.
type Agent struct {
	orchestrator *usecase.Orchestrator
	buffer       *usecase.UtteranceBuffer
	logger       *zap.Logger

	mu   sync.Mutex
	room *RoomClient

	// Frame format of the subscribed audio track, per participant.
	formatMu sync.Mutex
	formats  map[string]TrackInfo
}

// NewAgent wires an agent around the shared pipeline orchestrator. The
// utterance buffer uses the participant identity as the session key, so each
// participant gets independent accumulation and single-flight admission.
func NewAgent(orchestrator *usecase.Orchestrator, logger *zap.Logger, bufferOpts ...usecase.BufferOption) *Agent {
	a := &Agent{
		orchestrator: orchestrator,
		logger:       logger,
		formats:      make(map[string]TrackInfo),
	}
	a.buffer = usecase.NewUtteranceBuffer(orchestrator, a.handleUtterance, logger, bufferOpts...)
	return a
}

// Run joins the room at serverURL and blocks until the connection drops or
// the context is cancelled.
func (a *Agent) Run(ctx context.Context, serverURL, token string) error {
	room, err := Connect(ctx, serverURL, token, a, a.logger)
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.room = room
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.room = nil
		a.mu.Unlock()
		room.Close()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-room.Done():
		return errors.New("relay connection closed")
	}
}

// OnParticipantConnected implements RoomHandler.
func (a *Agent) OnParticipantConnected(p Participant) {
	a.logger.Info("Participant joined room", zap.String("identity", p.Identity))
}

// OnParticipantDisconnected implements RoomHandler.
func (a *Agent) OnParticipantDisconnected(p Participant) {
	a.buffer.Reset(p.Identity)

	a.formatMu.Lock()
	delete(a.formats, p.Identity)
	a.formatMu.Unlock()

	a.logger.Info("Participant left room", zap.String("identity", p.Identity))
}

// OnTrackSubscribed implements RoomHandler.
func (a *Agent) OnTrackSubscribed(p Participant, track TrackInfo) {
	if track.Kind != "audio" {
		return
	}

	a.formatMu.Lock()
	a.formats[p.Identity] = track
	a.formatMu.Unlock()

	a.logger.Info("Subscribed to audio track",
		zap.String("identity", p.Identity),
		zap.String("trackID", track.ID),
		zap.Int("sampleRate", track.SampleRate))
}

// OnTrackUnsubscribed implements RoomHandler.
func (a *Agent) OnTrackUnsubscribed(p Participant, track TrackInfo) {
	if track.Kind != "audio" {
		return
	}

	// Flush whatever is pending so the tail of the utterance is not lost.
	a.buffer.Flush(p.Identity)

	a.logger.Info("Unsubscribed from audio track",
		zap.String("identity", p.Identity),
		zap.String("trackID", track.ID))
}

// OnAudioFrame implements RoomHandler.
func (a *Agent) OnAudioFrame(p Participant, track TrackInfo, data []byte) {
	sampleRate := track.SampleRate
	if sampleRate == 0 {
		sampleRate = 48000
	}
	channels := track.Channels
	if channels == 0 {
		channels = 1
	}

	a.buffer.Accept(domain.AudioFrame{
		SampleRate: sampleRate,
		Channels:   channels,
		BitDepth:   16,
		Data:       data,
	}, p.Identity)
}

// handleUtterance runs one flushed utterance through the pipeline and
// publishes the synthesized reply into the room.
func (a *Agent) handleUtterance(utterance *domain.Utterance) {
	ctx, cancel := context.WithTimeout(context.Background(), processTimeout)
	defer cancel()

	req, err := a.orchestrator.Process(ctx, utterance)
	if err != nil {
		if errors.Is(err, usecase.ErrSessionBusy) {
			a.logger.Warn("Dropping utterance, session busy",
				zap.String("sessionID", utterance.SessionID))
			return
		}
		a.logger.Error("Pipeline failed",
			zap.String("sessionID", utterance.SessionID),
			zap.Error(err))
		return
	}

	if req.Status != domain.StatusSucceeded {
		a.logger.Warn("Utterance did not complete",
			zap.String("sessionID", utterance.SessionID),
			zap.String("reason", string(req.Reason)))
		return
	}

	audio, err := a.orchestrator.FetchArtifact(ctx, req.ArtifactID)
	if err != nil {
		a.logger.Error("Failed to fetch synthesized audio",
			zap.String("artifactID", req.ArtifactID),
			zap.Error(err))
		return
	}

	a.publish(audio)

	a.logger.Info("Published reply",
		zap.String("sessionID", utterance.SessionID),
		zap.String("transcript", req.Transcript),
		zap.Int("audioBytes", len(audio)))
}

func (a *Agent) publish(audio []byte) {
	a.mu.Lock()
	room := a.room
	a.mu.Unlock()
	if room == nil {
		a.logger.Warn("No room connection, dropping reply audio")
		return
	}

	for offset := 0; offset < len(audio); offset += publishChunkSize {
		end := offset + publishChunkSize
		if end > len(audio) {
			end = len(audio)
		}
		if err := room.PublishAudio(audio[offset:end]); err != nil {
			a.logger.Error("Failed to publish audio chunk", zap.Error(err))
			return
		}
	}
}
