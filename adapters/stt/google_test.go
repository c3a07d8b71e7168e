package stt

import (
	"testing"

	"cloud.google.com/go/speech/apiv1/speechpb"
)

func TestAudioEncoding(t *testing.T) {
	cases := []struct {
		encoding string
		want     speechpb.RecognitionConfig_AudioEncoding
	}{
		{"LINEAR16", speechpb.RecognitionConfig_LINEAR16},
		{"WAV", speechpb.RecognitionConfig_LINEAR16},
		{"FLAC", speechpb.RecognitionConfig_FLAC},
		{"MULAW", speechpb.RecognitionConfig_MULAW},
		{"OGG_OPUS", speechpb.RecognitionConfig_OGG_OPUS},
		{"WEBM_OPUS", speechpb.RecognitionConfig_WEBM_OPUS},
	}

	for _, tc := range cases {
		got, err := audioEncoding(tc.encoding)
		if err != nil {
			t.Errorf("audioEncoding(%q) returned error: %v", tc.encoding, err)
			continue
		}
		if got != tc.want {
			t.Errorf("audioEncoding(%q) = %v, want %v", tc.encoding, got, tc.want)
		}
	}

	if _, err := audioEncoding("AMR_WB"); err == nil {
		t.Error("Expected error for unsupported encoding")
	}
}
