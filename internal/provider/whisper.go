package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"artivox/internal/domain"
)

// WhisperConfig configures the Whisper speech-to-text provider.
type WhisperConfig struct {
	APIBase  string // e.g. "https://api.openai.com/v1" or "https://api.groq.com/openai/v1"
	APIKey   string
	Model    string // e.g. "whisper-1" (OpenAI) or "whisper-large-v3" (Groq)
	Language string // optional: ISO-639-1 language code
	Client   *http.Client
	Logger   *slog.Logger
}

// Whisper transcribes audio using the OpenAI-compatible transcriptions API.
type Whisper struct {
	apiBase  string
	apiKey   string
	model    string
	language string
	client   *http.Client
	logger   *slog.Logger
}

func NewWhisper(cfg WhisperConfig) *Whisper {
	if cfg.APIBase == "" {
		cfg.APIBase = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "whisper-1"
	}
	if cfg.Client == nil {
		cfg.Client = SharedHTTPClient(defaultHTTPTimeout)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Whisper{
		apiBase:  cfg.APIBase,
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		language: cfg.Language,
		client:   cfg.Client,
		logger:   cfg.Logger,
	}
}

func (w *Whisper) Name() string { return "whisper" }

type whisperResult struct {
	Text     string  `json:"text"`
	Language string  `json:"language,omitempty"`
	Duration float64 `json:"duration,omitempty"`
}

// Transcribe uploads audio as a multipart form and returns the transcript.
func (w *Whisper) Transcribe(ctx context.Context, audio io.Reader, opts domain.TranscribeOptions) (*domain.Transcription, error) {
	model := opts.Model
	if model == "" {
		model = w.model
	}
	language := opts.Language
	if language == "" {
		language = w.language
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", audioFilename(opts.MimeType))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, audio); err != nil {
		return nil, fmt.Errorf("copy audio data: %w", err)
	}

	writer.WriteField("model", model)
	writer.WriteField("response_format", "json")
	if language != "" {
		writer.WriteField("language", language)
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.apiBase+"/audio/transcriptions", &body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+w.apiKey)

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("whisper request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("whisper %d: %s", resp.StatusCode, string(respBody))
	}

	var result whisperResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode whisper response: %w", err)
	}

	w.logger.Info("transcription complete",
		"provider", "whisper",
		"text_len", len(result.Text),
		"language", result.Language,
		"audio_s", result.Duration,
	)

	return &domain.Transcription{
		Text:      result.Text,
		Language:  result.Language,
		DurationS: result.Duration,
	}, nil
}

// audioFilename maps a MIME type to a filename with the extension the
// transcriptions endpoint expects.
func audioFilename(mimeType string) string {
	switch mimeType {
	case "audio/ogg", "audio/opus":
		return "audio.ogg"
	case "audio/mpeg", "audio/mp3":
		return "audio.mp3"
	case "audio/webm":
		return "audio.webm"
	case "audio/mp4", "audio/m4a":
		return "audio.m4a"
	case "audio/flac":
		return "audio.flac"
	default:
		return "audio.wav"
	}
}
