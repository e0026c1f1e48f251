package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"artivox/internal/domain"
)

// Config is the root configuration for artivox.
type Config struct {
	General   GeneralConfig             `json:"general"`
	Providers map[string]ProviderConfig `json:"providers"`
	Speech    SpeechConfig              `json:"speech"`
	Fetch     FetchConfig               `json:"fetch"`
	Knowledge KnowledgeConfig           `json:"knowledge"`
	Articles  ArticlesConfig            `json:"articles"`
	Channels  ChannelsConfig            `json:"channels"`
	Memory    MemoryConfig              `json:"memory"`
	Metrics   MetricsConfig             `json:"metrics"`
}

type GeneralConfig struct {
	DataDir               string   `json:"dataDir"`
	LogLevel              string   `json:"logLevel"`
	DefaultProvider       string   `json:"defaultProvider"`
	FailoverChain         []string `json:"failoverChain,omitempty"` // provider failover order
	MaxIterations         int      `json:"maxIterations"`
	MaxConcurrentMessages int      `json:"maxConcurrentMessages"`
}

type ProviderConfig struct {
	Enabled         bool   `json:"enabled"`
	APIBase         string `json:"apiBase,omitempty"`
	APIKey          string `json:"apiKey,omitempty"`
	DefaultModel    string `json:"defaultModel,omitempty"`
	RateLimitPerMin int    `json:"rateLimitPerMinute,omitempty"`
}

type SpeechConfig struct {
	STT STTConfig `json:"stt"`
	TTS TTSConfig `json:"tts"`
}

type STTConfig struct {
	Provider string `json:"provider"` // deepgram | whisper
	APIKey   string `json:"apiKey,omitempty"`
	Model    string `json:"model"`
	Language string `json:"language"`
}

type TTSConfig struct {
	Provider   string `json:"provider"` // cartesia | openai
	APIKey     string `json:"apiKey,omitempty"`
	Model      string `json:"model"`
	Voice      string `json:"voice"`
	SampleRate int    `json:"sampleRate"`
	Encoding   string `json:"encoding"`
}

type FetchConfig struct {
	TimeoutSeconds  int    `json:"timeoutSeconds"`
	UserAgent       string `json:"userAgent"`
	MaxBodyBytes    int64  `json:"maxBodyBytes"`
	Concurrency     int    `json:"concurrency"` // 1 = sequential, deterministic order
	RespectRobots   bool   `json:"respectRobots"`
	BrowserFallback bool   `json:"browserFallback"` // render script-heavy pages with headless Chrome
	MaxPerFeed      int    `json:"maxPerFeed"`
}

type KnowledgeConfig struct {
	Model           string        `json:"model"`
	Temperature     float64       `json:"temperature"`
	MaxTokens       int           `json:"maxTokens"`
	FilePath        string        `json:"filePath"`                  // persisted knowledge store
	AutosaveMinutes int           `json:"autosaveMinutes,omitempty"` // 0 disables periodic saves
	Weights         WeightsConfig `json:"weights"`
}

// WeightsConfig tunes the relevance scoring per matched field.
// Zero values fall back to the documented defaults (3/2/2/1).
type WeightsConfig struct {
	Summary  int `json:"summary"`
	KeyPoint int `json:"keyPoint"`
	Topic    int `json:"topic"`
	Context  int `json:"context"`
}

type ArticlesConfig struct {
	URLs     []string `json:"urls,omitempty"`
	Manifest string   `json:"manifest,omitempty"` // YAML file with urls + feeds
}

type ChannelsConfig struct {
	CLI      CLIConfig      `json:"cli"`
	Telegram TelegramConfig `json:"telegram"`
	Voice    VoiceConfig    `json:"voice"`
}

type CLIConfig struct {
	Enabled bool `json:"enabled"`
}

type TelegramConfig struct {
	Enabled   bool     `json:"enabled"`
	Token     string   `json:"token"`
	AllowFrom []string `json:"allowFrom"`
	ParseMode string   `json:"parseMode"`
}

type VoiceConfig struct {
	Enabled bool   `json:"enabled"`
	Host    string `json:"host"`
	Port    int    `json:"port"`
}

type MemoryConfig struct {
	Enabled                   bool   `json:"enabled"`
	DBPath                    string `json:"dbPath"`
	MaxHistoryPerConversation int    `json:"maxHistoryPerConversation"`
}

type MetricsConfig struct {
	Enabled  bool   `json:"enabled"`
	Endpoint string `json:"endpoint"`
}

// DefaultConfigDir returns the default config directory (~/.artivox).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".artivox"
	}
	return filepath.Join(home, ".artivox")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

func Load(path string) (*Config, error) {
	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.General.DataDir = ExpandPath(cfg.General.DataDir)
	cfg.Knowledge.FilePath = ExpandPath(cfg.Knowledge.FilePath)
	cfg.Memory.DBPath = ExpandPath(cfg.Memory.DBPath)
	cfg.Articles.Manifest = ExpandPath(cfg.Articles.Manifest)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset
// or empty. Unresolvable references are left as-is so IsSet can spot them.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match
		}
		return val
	})
}

// IsSet reports whether a config value carries a usable secret: non-empty
// and not an unexpanded ${VAR} reference.
func IsSet(v string) bool {
	return v != "" && !strings.HasPrefix(v, "${")
}

func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o600)
}

// Validate checks structural invariants. Missing API keys are not flagged
// here — they depend on which features run; see RequireSecrets.
func Validate(cfg *Config) error {
	var errs []string

	switch cfg.General.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, "general.logLevel must be one of: debug, info, warn, error")
	}
	if cfg.General.MaxIterations < 1 || cfg.General.MaxIterations > 50 {
		errs = append(errs, "general.maxIterations must be between 1 and 50")
	}
	if cfg.General.MaxConcurrentMessages < 1 || cfg.General.MaxConcurrentMessages > 100 {
		errs = append(errs, "general.maxConcurrentMessages must be between 1 and 100")
	}
	if cfg.Fetch.TimeoutSeconds < 1 {
		errs = append(errs, "fetch.timeoutSeconds must be >= 1")
	}
	if cfg.Fetch.Concurrency < 1 {
		errs = append(errs, "fetch.concurrency must be >= 1")
	}
	if cfg.Knowledge.Temperature < 0 || cfg.Knowledge.Temperature > 2 {
		errs = append(errs, "knowledge.temperature must be between 0 and 2")
	}
	if cfg.Knowledge.FilePath == "" {
		errs = append(errs, "knowledge.filePath must not be empty")
	}
	if w := cfg.Knowledge.Weights; w.Summary < 0 || w.KeyPoint < 0 || w.Topic < 0 || w.Context < 0 {
		errs = append(errs, "knowledge.weights must not be negative")
	}
	if cfg.Knowledge.AutosaveMinutes < 0 {
		errs = append(errs, "knowledge.autosaveMinutes must be >= 0")
	}
	if cfg.Channels.Voice.Port < 0 || cfg.Channels.Voice.Port > 65535 {
		errs = append(errs, "channels.voice.port must be between 0 and 65535")
	}
	if cfg.Memory.MaxHistoryPerConversation < 1 {
		errs = append(errs, "memory.maxHistoryPerConversation must be >= 1")
	}

	for _, provName := range cfg.General.FailoverChain {
		if _, ok := cfg.Providers[provName]; !ok {
			errs = append(errs, fmt.Sprintf("general.failoverChain references unknown provider: %s", provName))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// RequireSecrets verifies the credentials needed for the requested feature
// set. voice additionally demands STT and TTS keys.
func RequireSecrets(cfg *Config, voice bool) error {
	name := cfg.General.DefaultProvider
	pc, ok := cfg.Providers[name]
	if !ok {
		return &domain.ConfigError{Field: "general.defaultProvider", Reason: fmt.Sprintf("unknown provider %q", name)}
	}
	if name != "ollama" && !IsSet(pc.APIKey) {
		return &domain.ConfigError{Field: "providers." + name + ".apiKey", Reason: "required"}
	}
	if voice {
		if !IsSet(cfg.Speech.STT.APIKey) {
			return &domain.ConfigError{Field: "speech.stt.apiKey", Reason: "required for voice sessions"}
		}
		if !IsSet(cfg.Speech.TTS.APIKey) {
			return &domain.ConfigError{Field: "speech.tts.apiKey", Reason: "required for voice sessions"}
		}
	}
	return nil
}

// Warnings reports unusual-but-allowed settings, mirroring the model
// allowlists the assistant was tuned against.
func Warnings(cfg *Config) []string {
	var warns []string

	validLLM := map[string]bool{"gpt-4o-mini": true, "gpt-4o": true, "gpt-4-turbo": true, "gpt-3.5-turbo": true}
	if m := cfg.Knowledge.Model; m != "" && !validLLM[m] {
		warns = append(warns, fmt.Sprintf("unusual LLM model: %s", m))
	}

	validSTT := map[string]bool{"nova-3": true, "nova-2": true, "enhanced": true, "base": true}
	if m := cfg.Speech.STT.Model; m != "" && !validSTT[m] {
		warns = append(warns, fmt.Sprintf("unusual STT model: %s", m))
	}

	validTTS := map[string]bool{"sonic-2": true, "sonic": true, "aura-2": true}
	if m := cfg.Speech.TTS.Model; m != "" && !validTTS[m] {
		warns = append(warns, fmt.Sprintf("unusual TTS model: %s", m))
	}

	if l := cfg.Speech.STT.Language; l != "" && len(l) != 2 {
		warns = append(warns, fmt.Sprintf("language code should be 2 characters: %s", l))
	}

	return warns
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
