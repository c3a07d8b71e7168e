package domain

// AudioFrame is a fixed-format chunk of raw PCM audio received from one
// participant. Frames are immutable once received; ownership passes to the
// utterance buffer on arrival.
type AudioFrame struct {
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
	BitDepth   int    `json:"bit_depth"`
	Data       []byte `json:"-"`
}

// SampleCount returns the number of samples carried by the frame.
func (f AudioFrame) SampleCount() int {
	bytesPerSample := f.BitDepth / 8
	if bytesPerSample == 0 {
		bytesPerSample = 2 // assume 16-bit PCM when unspecified
	}
	channels := f.Channels
	if channels == 0 {
		channels = 1
	}
	return len(f.Data) / (bytesPerSample * channels)
}

// Utterance is an ordered sequence of audio frames belonging to one speech
// turn of a single session, ready for transcription.
type Utterance struct {
	SessionID string
	Frames    []AudioFrame
	Samples   int
}

// PCM concatenates the frame payloads into a single byte slice in arrival
// order.
func (u *Utterance) PCM() []byte {
	size := 0
	for _, f := range u.Frames {
		size += len(f.Data)
	}
	out := make([]byte, 0, size)
	for _, f := range u.Frames {
		out = append(out, f.Data...)
	}
	return out
}
