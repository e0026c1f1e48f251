package domain

import (
	"context"
	"io"
)

// Transcriber converts recorded audio into text.
type Transcriber interface {
	Name() string
	Transcribe(ctx context.Context, audio io.Reader, opts TranscribeOptions) (*Transcription, error)
}

type TranscribeOptions struct {
	Model    string // e.g. "nova-3", "whisper-1"
	Language string // BCP-47 / ISO-639-1 code, e.g. "en"
	MimeType string // content type of the audio payload, e.g. "audio/wav"
}

type Transcription struct {
	Text       string  `json:"text"`
	Language   string  `json:"language,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	DurationS  float64 `json:"duration,omitempty"`
}

// Synthesizer converts reply text into audio. The returned stream is the
// encoded audio; the caller owns closing it.
type Synthesizer interface {
	Name() string
	Synthesize(ctx context.Context, text string, opts SynthesizeOptions) (io.ReadCloser, error)
}

type SynthesizeOptions struct {
	Model      string // e.g. "sonic-2", "tts-1"
	Voice      string // provider voice identifier
	Language   string
	SampleRate int    // output sample rate in Hz (0 = provider default)
	Encoding   string // e.g. "pcm_f32le", "mp3"
}
