package config

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			DataDir:               "~/.artivox",
			LogLevel:              "info",
			DefaultProvider:       "openai",
			MaxIterations:         10,
			MaxConcurrentMessages: 5,
		},
		Providers: map[string]ProviderConfig{
			"openai": {
				Enabled:         true,
				APIBase:         "https://api.openai.com/v1",
				APIKey:          "${OPENAI_API_KEY}",
				DefaultModel:    "gpt-4o-mini",
				RateLimitPerMin: 30,
			},
			"claude": {
				Enabled:         false,
				APIBase:         "https://api.anthropic.com",
				APIKey:          "${ANTHROPIC_API_KEY}",
				DefaultModel:    "claude-sonnet-4-20250514",
				RateLimitPerMin: 30,
			},
			"ollama": {
				Enabled:      false,
				APIBase:      "http://localhost:11434",
				DefaultModel: "llama3.1:8b",
			},
		},
		Speech: SpeechConfig{
			STT: STTConfig{
				Provider: "deepgram",
				APIKey:   "${DEEPGRAM_API_KEY}",
				Model:    "nova-3",
				Language: "en",
			},
			TTS: TTSConfig{
				Provider:   "cartesia",
				APIKey:     "${CARTESIA_API_KEY}",
				Model:      "sonic-2",
				Voice:      "a0e99841-438c-4a64-b679-ae501e7d6091",
				SampleRate: 22050,
				Encoding:   "pcm_f32le",
			},
		},
		Fetch: FetchConfig{
			TimeoutSeconds:  30,
			UserAgent:       "artivox/1.0 (article assistant)",
			MaxBodyBytes:    10 << 20,
			Concurrency:     1,
			RespectRobots:   true,
			BrowserFallback: false,
			MaxPerFeed:      5,
		},
		Knowledge: KnowledgeConfig{
			Model:       "gpt-4o-mini",
			Temperature: 0.3,
			MaxTokens:   1024,
			FilePath:    "~/.artivox/knowledge.json",
			Weights: WeightsConfig{
				Summary:  3,
				KeyPoint: 2,
				Topic:    2,
				Context:  1,
			},
		},
		Articles: ArticlesConfig{},
		Channels: ChannelsConfig{
			CLI: CLIConfig{
				Enabled: true,
			},
			Telegram: TelegramConfig{
				Enabled:   false,
				Token:     "${TELEGRAM_BOT_TOKEN}",
				ParseMode: "Markdown",
			},
			Voice: VoiceConfig{
				Enabled: false,
				Host:    "127.0.0.1",
				Port:    8090,
			},
		},
		Memory: MemoryConfig{
			Enabled:                   true,
			DBPath:                    "~/.artivox/memory.db",
			MaxHistoryPerConversation: 50,
		},
		Metrics: MetricsConfig{
			Enabled:  false,
			Endpoint: "127.0.0.1:9091",
		},
	}
}
