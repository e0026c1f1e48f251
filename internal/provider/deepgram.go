package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"artivox/internal/domain"
)

const deepgramDefaultBase = "https://api.deepgram.com"

// DeepgramConfig configures the Deepgram speech-to-text provider.
type DeepgramConfig struct {
	APIBase  string
	APIKey   string
	Model    string // e.g. "nova-3"
	Language string // ISO-639-1 language code
	Client   *http.Client
	Logger   *slog.Logger
}

// Deepgram transcribes prerecorded audio via the Deepgram listen API.
type Deepgram struct {
	apiBase  string
	apiKey   string
	model    string
	language string
	client   *http.Client
	logger   *slog.Logger
}

func NewDeepgram(cfg DeepgramConfig) *Deepgram {
	if cfg.APIBase == "" {
		cfg.APIBase = deepgramDefaultBase
	}
	if cfg.Model == "" {
		cfg.Model = "nova-3"
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if cfg.Client == nil {
		cfg.Client = SharedHTTPClient(defaultHTTPTimeout)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Deepgram{
		apiBase:  cfg.APIBase,
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		language: cfg.Language,
		client:   cfg.Client,
		logger:   cfg.Logger,
	}
}

func (d *Deepgram) Name() string { return "deepgram" }

type deepgramResponse struct {
	Metadata struct {
		Duration float64 `json:"duration"`
	} `json:"metadata"`
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// Transcribe sends raw audio bytes to Deepgram and returns the first
// alternative of the first channel.
func (d *Deepgram) Transcribe(ctx context.Context, audio io.Reader, opts domain.TranscribeOptions) (*domain.Transcription, error) {
	model := opts.Model
	if model == "" {
		model = d.model
	}
	language := opts.Language
	if language == "" {
		language = d.language
	}

	q := url.Values{}
	q.Set("model", model)
	q.Set("language", language)
	q.Set("smart_format", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.apiBase+"/v1/listen?"+q.Encode(), audio)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+d.apiKey)
	if opts.MimeType != "" {
		req.Header.Set("Content-Type", opts.MimeType)
	} else {
		req.Header.Set("Content-Type", "audio/wav")
	}

	start := time.Now()
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("deepgram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("deepgram %d: %s", resp.StatusCode, string(respBody))
	}

	var dgResp deepgramResponse
	if err := json.NewDecoder(resp.Body).Decode(&dgResp); err != nil {
		return nil, fmt.Errorf("decode deepgram response: %w", err)
	}

	out := &domain.Transcription{
		Language:  language,
		DurationS: dgResp.Metadata.Duration,
	}
	if len(dgResp.Results.Channels) > 0 && len(dgResp.Results.Channels[0].Alternatives) > 0 {
		alt := dgResp.Results.Channels[0].Alternatives[0]
		out.Text = alt.Transcript
		out.Confidence = alt.Confidence
	}

	d.logger.Info("transcription complete",
		"provider", "deepgram",
		"text_len", len(out.Text),
		"confidence", out.Confidence,
		"audio_s", out.DurationS,
		"took", time.Since(start),
	)

	return out, nil
}
