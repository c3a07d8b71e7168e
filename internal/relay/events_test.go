package relay

import (
	"testing"
)

func TestParseEventParticipantJoined(t *testing.T) {
	payload := []byte(`{"type":"participant_joined","room":"living-room","participant":{"identity":"alice","name":"Alice"}}`)

	event, err := ParseEvent(payload)
	if err != nil {
		t.Fatalf("ParseEvent failed: %v", err)
	}

	if event.Type != EventTypeParticipantJoined {
		t.Errorf("Expected participant_joined, got %s", event.Type)
	}
	if event.Participant.Identity != "alice" {
		t.Errorf("Expected identity alice, got %s", event.Participant.Identity)
	}
	if event.Room != "living-room" {
		t.Errorf("Expected room living-room, got %s", event.Room)
	}
}

func TestParseEventTrackPublished(t *testing.T) {
	payload := []byte(`{"type":"track_published","participant":{"identity":"alice"},"track":{"id":"tr-1","kind":"audio","sample_rate":48000}}`)

	event, err := ParseEvent(payload)
	if err != nil {
		t.Fatalf("ParseEvent failed: %v", err)
	}

	if event.Track.ID != "tr-1" {
		t.Errorf("Expected track tr-1, got %s", event.Track.ID)
	}
	if event.Track.Kind != "audio" {
		t.Errorf("Expected audio track, got %s", event.Track.Kind)
	}
	if event.Track.SampleRate != 48000 {
		t.Errorf("Expected sample rate 48000, got %d", event.Track.SampleRate)
	}
}

func TestParseEventRejectsMissingIdentity(t *testing.T) {
	if _, err := ParseEvent([]byte(`{"type":"participant_joined","participant":{}}`)); err == nil {
		t.Error("Expected error for participant event without identity")
	}
}

func TestParseEventRejectsMissingTrackID(t *testing.T) {
	if _, err := ParseEvent([]byte(`{"type":"track_published","participant":{"identity":"alice"},"track":{}}`)); err == nil {
		t.Error("Expected error for track event without id")
	}
}

func TestParseEventRejectsUnknownType(t *testing.T) {
	if _, err := ParseEvent([]byte(`{"type":"room_imploded"}`)); err == nil {
		t.Error("Expected error for unknown event type")
	}
}

func TestParseEventRejectsInvalidJSON(t *testing.T) {
	if _, err := ParseEvent([]byte(`{broken`)); err == nil {
		t.Error("Expected error for malformed JSON")
	}
}
