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

const (
	cartesiaDefaultBase = "https://api.cartesia.ai"
	cartesiaVersion     = "2024-06-10"
)

// CartesiaConfig configures the Cartesia text-to-speech provider.
type CartesiaConfig struct {
	APIBase    string
	APIKey     string
	Model      string // e.g. "sonic-2"
	Voice      string // Cartesia voice ID
	Language   string
	SampleRate int
	Encoding   string // e.g. "pcm_f32le"
	Client     *http.Client
	Logger     *slog.Logger
}

// Cartesia synthesizes speech via the Cartesia bytes endpoint. The response
// body is raw audio in the requested output format.
type Cartesia struct {
	apiBase    string
	apiKey     string
	model      string
	voice      string
	language   string
	sampleRate int
	encoding   string
	client     *http.Client
	logger     *slog.Logger
}

func NewCartesia(cfg CartesiaConfig) *Cartesia {
	if cfg.APIBase == "" {
		cfg.APIBase = cartesiaDefaultBase
	}
	if cfg.Model == "" {
		cfg.Model = "sonic-2"
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 22050
	}
	if cfg.Encoding == "" {
		cfg.Encoding = "pcm_f32le"
	}
	if cfg.Client == nil {
		cfg.Client = SharedHTTPClient(defaultHTTPTimeout)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Cartesia{
		apiBase:    cfg.APIBase,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		voice:      cfg.Voice,
		language:   cfg.Language,
		sampleRate: cfg.SampleRate,
		encoding:   cfg.Encoding,
		client:     cfg.Client,
		logger:     cfg.Logger,
	}
}

func (c *Cartesia) Name() string { return "cartesia" }

type cartesiaRequest struct {
	ModelID      string         `json:"model_id"`
	Transcript   string         `json:"transcript"`
	Voice        cartesiaVoice  `json:"voice"`
	OutputFormat cartesiaOutput `json:"output_format"`
	Language     string         `json:"language,omitempty"`
}

type cartesiaVoice struct {
	Mode string `json:"mode"`
	ID   string `json:"id"`
}

type cartesiaOutput struct {
	Container  string `json:"container"`
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sample_rate"`
}

// Synthesize converts text to audio. The caller owns closing the stream.
func (c *Cartesia) Synthesize(ctx context.Context, text string, opts domain.SynthesizeOptions) (io.ReadCloser, error) {
	model := opts.Model
	if model == "" {
		model = c.model
	}
	voice := opts.Voice
	if voice == "" {
		voice = c.voice
	}
	language := opts.Language
	if language == "" {
		language = c.language
	}
	sampleRate := opts.SampleRate
	if sampleRate == 0 {
		sampleRate = c.sampleRate
	}
	encoding := opts.Encoding
	if encoding == "" {
		encoding = c.encoding
	}

	body := cartesiaRequest{
		ModelID:    model,
		Transcript: text,
		Voice:      cartesiaVoice{Mode: "id", ID: voice},
		OutputFormat: cartesiaOutput{
			Container:  "raw",
			Encoding:   encoding,
			SampleRate: sampleRate,
		},
		Language: language,
	}
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/tts/bytes", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Cartesia-Version", cartesiaVersion)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cartesia request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("cartesia %d: %s", resp.StatusCode, string(respBody))
	}

	return resp.Body, nil
}
