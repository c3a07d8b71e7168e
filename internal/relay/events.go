package relay

import (
	"encoding/json"
	"fmt"
)

// EventType defines the type of relay signaling event
type EventType string

const (
	EventTypeParticipantJoined EventType = "participant_joined"
	EventTypeParticipantLeft   EventType = "participant_left"
	EventTypeTrackPublished    EventType = "track_published"
	EventTypeTrackUnpublished  EventType = "track_unpublished"
)

// Participant identifies a peer in a relay room.
type Participant struct {
	Identity string `json:"identity"`
	Name     string `json:"name,omitempty"`
}

// TrackInfo describes a media track carried by the relay.
type TrackInfo struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"` // "audio" or "video"
	SampleRate int    `json:"sample_rate,omitempty"`
	Channels   int    `json:"channels,omitempty"`
}

// Event is one signaling message from the relay server.
type Event struct {
	Type        EventType   `json:"type"`
	Room        string      `json:"room"`
	Participant Participant `json:"participant"`
	Track       TrackInfo   `json:"track,omitempty"`
	Timestamp   int64       `json:"timestamp,omitempty"`
}

// RoomHandler receives room lifecycle and media callbacks. Callbacks run on
// the room client's read goroutine and must not block.
type RoomHandler interface {
	OnParticipantConnected(p Participant)
	OnParticipantDisconnected(p Participant)
	OnTrackSubscribed(p Participant, track TrackInfo)
	OnTrackUnsubscribed(p Participant, track TrackInfo)
	OnAudioFrame(p Participant, track TrackInfo, data []byte)
}

// ParseEvent decodes and validates a signaling event.
func ParseEvent(data []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	switch event.Type {
	case EventTypeParticipantJoined, EventTypeParticipantLeft:
		if event.Participant.Identity == "" {
			return nil, fmt.Errorf("participant event missing identity")
		}
	case EventTypeTrackPublished, EventTypeTrackUnpublished:
		if event.Track.ID == "" {
			return nil, fmt.Errorf("track event missing track id")
		}
	default:
		return nil, fmt.Errorf("unknown event type: %s", event.Type)
	}

	return &event, nil
}
