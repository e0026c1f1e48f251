package provider

import (
	"log/slog"

	"artivox/internal/config"
	"artivox/internal/domain"
)

// NewTranscriber builds the configured speech-to-text provider.
func NewTranscriber(cfg config.STTConfig, logger *slog.Logger) (domain.Transcriber, error) {
	switch cfg.Provider {
	case "deepgram", "":
		return NewDeepgram(DeepgramConfig{
			APIKey:   cfg.APIKey,
			Model:    cfg.Model,
			Language: cfg.Language,
			Logger:   logger,
		}), nil
	case "whisper":
		return NewWhisper(WhisperConfig{
			APIKey:   cfg.APIKey,
			Model:    cfg.Model,
			Language: cfg.Language,
			Logger:   logger,
		}), nil
	default:
		return nil, &domain.ConfigError{Field: "speech.stt.provider", Reason: "unknown provider " + cfg.Provider}
	}
}

// NewSynthesizer builds the configured text-to-speech provider.
func NewSynthesizer(cfg config.TTSConfig, logger *slog.Logger) (domain.Synthesizer, error) {
	switch cfg.Provider {
	case "cartesia", "":
		return NewCartesia(CartesiaConfig{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			Voice:      cfg.Voice,
			SampleRate: cfg.SampleRate,
			Encoding:   cfg.Encoding,
			Logger:     logger,
		}), nil
	case "openai":
		return NewOpenAISpeech(OpenAISpeechConfig{
			APIKey: cfg.APIKey,
			Model:  cfg.Model,
			Voice:  cfg.Voice,
			Logger: logger,
		}), nil
	default:
		return nil, &domain.ConfigError{Field: "speech.tts.provider", Reason: "unknown provider " + cfg.Provider}
	}
}
