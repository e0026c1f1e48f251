package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"artivox/internal/domain"
)

// OpenAISpeechConfig configures the OpenAI text-to-speech provider.
type OpenAISpeechConfig struct {
	APIBase string
	APIKey  string
	Model   string // e.g. "tts-1"
	Voice   string // e.g. "alloy", "echo", "fable", "onyx", "nova", "shimmer"
	Client  *http.Client
	Logger  *slog.Logger
}

// OpenAISpeech synthesizes speech via the OpenAI audio/speech endpoint.
// It serves as the fallback when Cartesia is not configured.
type OpenAISpeech struct {
	apiBase string
	apiKey  string
	model   string
	voice   string
	client  *http.Client
	logger  *slog.Logger
}

func NewOpenAISpeech(cfg OpenAISpeechConfig) *OpenAISpeech {
	if cfg.APIBase == "" {
		cfg.APIBase = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "tts-1"
	}
	if cfg.Voice == "" {
		cfg.Voice = "alloy"
	}
	if cfg.Client == nil {
		cfg.Client = SharedHTTPClient(defaultHTTPTimeout)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &OpenAISpeech{
		apiBase: cfg.APIBase,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		voice:   cfg.Voice,
		client:  cfg.Client,
		logger:  cfg.Logger,
	}
}

func (t *OpenAISpeech) Name() string { return "openai" }

type openAISpeechRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format,omitempty"`
}

// Synthesize converts text to audio. The caller owns closing the stream.
func (t *OpenAISpeech) Synthesize(ctx context.Context, text string, opts domain.SynthesizeOptions) (io.ReadCloser, error) {
	model := opts.Model
	if model == "" {
		model = t.model
	}
	voice := opts.Voice
	if voice == "" {
		voice = t.voice
	}

	body := openAISpeechRequest{
		Model: model,
		Input: text,
		Voice: voice,
	}
	// The endpoint speaks container formats plus bare "pcm", not the
	// encoding names Cartesia uses.
	switch opts.Encoding {
	case "":
		// Leave unset, the API defaults to mp3.
	case "pcm_f32le", "pcm_s16le":
		body.ResponseFormat = "pcm"
	default:
		body.ResponseFormat = opts.Encoding
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.apiBase+"/audio/speech", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+t.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai speech request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("openai speech %d: %s", resp.StatusCode, string(respBody))
	}

	return resp.Body, nil
}
