package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"artivox/internal/agent"
	"artivox/internal/bus"
	"artivox/internal/channel"
	"artivox/internal/config"
	"artivox/internal/domain"
	"artivox/internal/fetcher"
	"artivox/internal/ingest"
	"artivox/internal/knowledge"
	"artivox/internal/memory"
	"artivox/internal/metrics"
	"artivox/internal/provider"
	"artivox/internal/tool"

	"github.com/spf13/cobra"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	logger = newLogger("info")
	agent.SetVersion(version)

	root := &cobra.Command{
		Use:   "artivox",
		Short: "Artivox: voice-driven article assistant",
		Long:  "Artivox ingests articles, distills them with an LLM, and answers questions about them over CLI, Telegram, and a voice WebSocket.",
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.json (default: ~/.artivox/config.json)")

	root.AddCommand(initCmd())
	root.AddCommand(runCmd())
	root.AddCommand(chatCmd())
	root.AddCommand(ingestCmd())
	root.AddCommand(askCmd())
	root.AddCommand(statusCmd())
	root.AddCommand(doctorCmd())
	root.AddCommand(backupCmd())
	root.AddCommand(restoreCmd())
	root.AddCommand(configCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

// loadConfigOrDefaults loads the config file, falling back to defaults when
// it does not exist yet. Defaults keep "~" in their paths until expanded, so
// the fallback expands them the same way Load would.
func loadConfigOrDefaults() *config.Config {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Warn("config not found, using defaults", "path", cfgPath, "err", err)
		cfg = config.Defaults()
		cfg.General.DataDir = config.ExpandPath(cfg.General.DataDir)
		cfg.Knowledge.FilePath = config.ExpandPath(cfg.Knowledge.FilePath)
		cfg.Memory.DBPath = config.ExpandPath(cfg.Memory.DBPath)
	}
	logger = newLogger(cfg.General.LogLevel)
	return cfg
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize config and data directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgDir := config.DefaultConfigDir()
			cfgPath := config.DefaultConfigPath()
			if err := os.MkdirAll(cfgDir, 0o755); err != nil {
				return err
			}
			if _, err := os.Stat(cfgPath); err == nil {
				logger.Info("config already exists, leaving it untouched", "path", cfgPath)
				return nil
			}
			cfg := config.Defaults()
			if err := config.Save(cfgPath, cfg); err != nil {
				return err
			}
			dataDir := config.ExpandPath(cfg.General.DataDir)
			if err := os.MkdirAll(dataDir, 0o755); err != nil {
				return err
			}
			logger.Info("initialized", "config", cfgPath, "data_dir", dataDir)
			return nil
		},
	}
}

// openMemory opens the conversation store. Sessions always need one; with
// memory disabled an in-memory database takes its place and forgets
// everything at exit.
func openMemory(cfg *config.Config) (*memory.SQLiteStore, error) {
	dbPath := cfg.Memory.DBPath
	if !cfg.Memory.Enabled {
		dbPath = ":memory:"
	}
	return memory.NewSQLiteStore(dbPath, logger)
}

// buildProvider resolves the configured provider (or failover chain),
// falling back to a local Ollama when nothing usable is configured.
func buildProvider(ctx context.Context, cfg *config.Config) domain.Provider {
	factory := provider.NewFactory(cfg, logger)
	prov, err := factory.Chain()
	if err != nil || prov == nil {
		logger.Warn("no usable provider configured, falling back to ollama", "err", err)
		prov = provider.NewOllama(provider.OllamaConfig{Logger: logger})
	}
	if err := prov.Healthy(ctx); err != nil {
		logger.Warn("provider unhealthy at startup", "provider", prov.Name(), "err", err)
	} else {
		logger.Info("provider healthy", "provider", prov.Name())
	}
	return prov
}

// buildKnowledge creates the knowledge store and loads the persisted file
// when one exists.
func buildKnowledge(cfg *config.Config, prov domain.Provider) *knowledge.Store {
	kstore := knowledge.NewStore(knowledge.StoreConfig{
		Provider:    prov,
		Model:       cfg.Knowledge.Model,
		Temperature: cfg.Knowledge.Temperature,
		MaxTokens:   cfg.Knowledge.MaxTokens,
		Weights: knowledge.ScoreWeights{
			Summary:  cfg.Knowledge.Weights.Summary,
			KeyPoint: cfg.Knowledge.Weights.KeyPoint,
			Topic:    cfg.Knowledge.Weights.Topic,
			Context:  cfg.Knowledge.Weights.Context,
		},
		Logger: logger,
	})
	if _, err := os.Stat(cfg.Knowledge.FilePath); err == nil {
		if err := kstore.LoadFile(cfg.Knowledge.FilePath); err != nil {
			logger.Warn("knowledge file not loaded", "path", cfg.Knowledge.FilePath, "err", err)
		} else {
			logger.Info("knowledge loaded", "path", cfg.Knowledge.FilePath, "entries", kstore.Len())
		}
	}
	return kstore
}

func buildFetcher(cfg *config.Config) *fetcher.Fetcher {
	opts := fetcher.Options{
		Timeout:       time.Duration(cfg.Fetch.TimeoutSeconds) * time.Second,
		UserAgent:     cfg.Fetch.UserAgent,
		MaxBodyBytes:  cfg.Fetch.MaxBodyBytes,
		Concurrency:   cfg.Fetch.Concurrency,
		RespectRobots: cfg.Fetch.RespectRobots,
		Logger:        logger,
	}
	if cfg.Fetch.BrowserFallback {
		opts.Renderer = fetcher.NewRenderer(fetcher.RendererConfig{Logger: logger})
	}
	return fetcher.New(opts)
}

// registerTools builds the registry of tools the model may call mid-turn.
func registerTools(kstore *knowledge.Store, ingestSvc *ingest.Service) *tool.Registry {
	reg := tool.NewRegistry(logger)
	reg.Register(tool.NewSearchKnowledgeTool(kstore, logger))
	reg.Register(tool.NewDetailedInfoTool(kstore, logger))
	reg.Register(tool.NewListArticlesTool(kstore))
	if ingestSvc != nil {
		reg.Register(tool.NewAddArticleTool(ingestSvc, ingestSvc, logger))
	}
	return reg
}

func rateLimiterFor(cfg *config.Config) *agent.RateLimiter {
	pc, ok := cfg.Providers[cfg.General.DefaultProvider]
	if !ok || pc.RateLimitPerMin <= 0 {
		return nil // loop falls back to its default limiter
	}
	return agent.NewRateLimiter(0, float64(pc.RateLimitPerMin))
}

// startupURLs merges the configured article list, the --urls flag, the
// ARTICLE_URLS environment variable, and the manifest into one deduplicated
// fetch list. The flag replaces the config list; the env var appends.
func startupURLs(ctx context.Context, cfg *config.Config, flagURLs []string) []string {
	urls := cfg.Articles.URLs
	if len(flagURLs) > 0 {
		urls = flagURLs
	}
	if env := os.Getenv("ARTICLE_URLS"); env != "" {
		for _, u := range strings.Split(env, ",") {
			if u = strings.TrimSpace(u); u != "" {
				urls = append(urls, u)
			}
		}
	}
	if cfg.Articles.Manifest != "" {
		m, err := fetcher.LoadManifest(cfg.Articles.Manifest)
		if err != nil {
			logger.Warn("manifest not loaded", "path", cfg.Articles.Manifest, "err", err)
		} else {
			urls = append(urls, fetcher.ExpandURLs(ctx, m, cfg.Fetch.MaxPerFeed, logger)...)
		}
	}

	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

func runCmd() *cobra.Command {
	var urls []string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the assistant (agent loop + all enabled channels)",
		Long:  "Starts the agent loop and every enabled channel (CLI, Telegram, voice). Press Ctrl+C to stop.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGateway(urls)
		},
	}
	cmd.Flags().StringSliceVar(&urls, "urls", nil, "article URLs to ingest at startup (overrides articles.urls)")
	return cmd
}

func runGateway(flagURLs []string) error {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger = newLogger(cfg.General.LogLevel)

	voiceEnabled := cfg.Channels.Voice.Enabled
	if err := config.RequireSecrets(cfg, voiceEnabled); err != nil {
		return err
	}
	for _, w := range config.Warnings(cfg) {
		logger.Warn(w)
	}

	if err := os.MkdirAll(cfg.General.DataDir, 0o755); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	messageBus := bus.New(100, logger)

	memStore, err := openMemory(cfg)
	if err != nil {
		return fmt.Errorf("memory store: %w", err)
	}
	defer memStore.Close()

	prov := buildProvider(ctx, cfg)
	kstore := buildKnowledge(cfg, prov)
	ingestSvc := ingest.NewService(buildFetcher(cfg), kstore, memStore, logger)

	sessions := agent.NewSessionManager(memStore, logger)
	instructions := agent.NewInstructionBuilder(kstore, "")

	agentLoop := agent.NewLoop(agent.LoopConfig{
		Provider:      prov,
		Sessions:      sessions,
		Instructions:  instructions,
		Tools:         registerTools(kstore, ingestSvc),
		Knowledge:     kstore,
		Bus:           messageBus,
		Compactor:     agent.NewCompactor(agent.CompactorConfig{Provider: prov, Logger: logger}),
		RateLimiter:   rateLimiterFor(cfg),
		Logger:        logger,
		MaxIterations: cfg.General.MaxIterations,
		Concurrency:   cfg.General.MaxConcurrentMessages,
		HistoryLimit:  cfg.Memory.MaxHistoryPerConversation,
		KnowledgeFile: cfg.Knowledge.FilePath,
	})
	go agentLoop.Run(ctx)

	if cfg.Knowledge.AutosaveMinutes > 0 {
		saver := knowledge.NewAutosaver(knowledge.AutosaveConfig{
			IntervalMinutes: cfg.Knowledge.AutosaveMinutes,
			Path:            cfg.Knowledge.FilePath,
			Logger:          logger,
		}, kstore)
		go saver.Start(ctx)
	}

	if urls := startupURLs(ctx, cfg, flagURLs); len(urls) > 0 {
		// Articles trickle in while the channels come up; the first
		// questions may land before every summary is ready.
		go func() {
			entries := ingestSvc.IngestAll(ctx, urls)
			if len(entries) > 0 {
				if err := kstore.SaveFile(cfg.Knowledge.FilePath); err != nil {
					logger.Error("knowledge save failed", "err", err)
				}
			}
		}()
	}

	if cfg.Channels.CLI.Enabled {
		cliCh := channel.NewCLI(channel.CLIConfig{Logger: logger, Greeting: agent.Greeting})
		go func() {
			if err := cliCh.Start(ctx, messageBus); err != nil {
				logger.Error("cli channel error", "err", err)
			}
			stop() // REPL exit (or closed stdin) ends the gateway
		}()
	}

	var telegramCh *channel.Telegram
	if cfg.Channels.Telegram.Enabled && cfg.Channels.Telegram.Token != "" {
		telegramCh = channel.NewTelegram(channel.TelegramConfig{
			Token:     cfg.Channels.Telegram.Token,
			AllowFrom: cfg.Channels.Telegram.AllowFrom,
			ParseMode: cfg.Channels.Telegram.ParseMode,
			Greeting:  agent.Greeting,
			Logger:    logger,
		})
		go func() {
			if err := telegramCh.Start(ctx, messageBus); err != nil {
				logger.Error("telegram channel error", "err", err)
			}
		}()
		logger.Info("telegram channel enabled")
	}

	var voiceCh *channel.Voice
	if voiceEnabled {
		stt, sttErr := provider.NewTranscriber(cfg.Speech.STT, logger)
		if sttErr != nil {
			return fmt.Errorf("speech-to-text: %w", sttErr)
		}
		tts, ttsErr := provider.NewSynthesizer(cfg.Speech.TTS, logger)
		if ttsErr != nil {
			return fmt.Errorf("text-to-speech: %w", ttsErr)
		}
		var metricsHandler http.HandlerFunc
		if cfg.Metrics.Enabled {
			metricsHandler = metrics.Collector.Handler()
		}
		voiceCh = channel.NewVoice(channel.VoiceConfig{
			Host:        cfg.Channels.Voice.Host,
			Port:        cfg.Channels.Voice.Port,
			Transcriber: stt,
			Synthesizer: tts,
			STTOpts: domain.TranscribeOptions{
				Model:    cfg.Speech.STT.Model,
				Language: cfg.Speech.STT.Language,
			},
			TTSOpts: domain.SynthesizeOptions{
				Model:      cfg.Speech.TTS.Model,
				Voice:      cfg.Speech.TTS.Voice,
				SampleRate: cfg.Speech.TTS.SampleRate,
				Encoding:   cfg.Speech.TTS.Encoding,
			},
			Greeting:       agent.Greeting,
			MetricsHandler: metricsHandler,
			Logger:         logger,
		})
		go func() {
			if err := voiceCh.Start(ctx, messageBus); err != nil {
				logger.Error("voice channel error", "err", err)
			}
		}()
		logger.Info("voice channel enabled", "host", cfg.Channels.Voice.Host, "port", cfg.Channels.Voice.Port)
	}

	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.HandleFunc("/metrics", metrics.Collector.Handler())
		metricsSrv = &http.Server{Addr: cfg.Metrics.Endpoint, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		go func() {
			logger.Info("metrics endpoint listening", "addr", cfg.Metrics.Endpoint)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server error", "err", err)
			}
		}()
	}

	logger.Info("artivox started, press Ctrl+C to stop", "version", version, "knowledge_entries", kstore.Len())

	// Block until shutdown signal
	<-ctx.Done()
	logger.Info("shutting down...")

	const shutdownTimeout = 10 * time.Second
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	var shutdownErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		if telegramCh != nil {
			telegramCh.Stop()
		}
		if voiceCh != nil {
			voiceCh.Stop()
		}
		if metricsSrv != nil {
			metricsSrv.Close()
		}
		messageBus.Close()
		if kstore.Len() > 0 {
			if err := kstore.SaveFile(cfg.Knowledge.FilePath); err != nil {
				logger.Warn("final knowledge save failed", "err", err)
			}
		}
	}()

	select {
	case <-done:
		logger.Info("shutdown complete")
	case <-shutdownCtx.Done():
		logger.Warn("shutdown timed out, forcing exit")
		shutdownErr = fmt.Errorf("shutdown timed out")
	}

	return shutdownErr
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start interactive chat (CLI only)",
		RunE:  runChat,
	}
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg := loadConfigOrDefaults()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	messageBus := bus.New(100, logger)
	defer messageBus.Close()

	memStore, err := openMemory(cfg)
	if err != nil {
		return fmt.Errorf("memory store: %w", err)
	}
	defer memStore.Close()

	prov := buildProvider(ctx, cfg)
	kstore := buildKnowledge(cfg, prov)
	ingestSvc := ingest.NewService(buildFetcher(cfg), kstore, memStore, logger)

	agentLoop := agent.NewLoop(agent.LoopConfig{
		Provider:      prov,
		Sessions:      agent.NewSessionManager(memStore, logger),
		Instructions:  agent.NewInstructionBuilder(kstore, ""),
		Tools:         registerTools(kstore, ingestSvc),
		Knowledge:     kstore,
		Bus:           messageBus,
		Compactor:     agent.NewCompactor(agent.CompactorConfig{Provider: prov, Logger: logger}),
		RateLimiter:   rateLimiterFor(cfg),
		Logger:        logger,
		MaxIterations: cfg.General.MaxIterations,
		Concurrency:   cfg.General.MaxConcurrentMessages,
		HistoryLimit:  cfg.Memory.MaxHistoryPerConversation,
		KnowledgeFile: cfg.Knowledge.FilePath,
	})
	go agentLoop.Run(ctx)

	cliCh := channel.NewCLI(channel.CLIConfig{Logger: logger, Greeting: agent.Greeting})
	err = cliCh.Start(ctx, messageBus)

	if kstore.Len() > 0 {
		if serr := kstore.SaveFile(cfg.Knowledge.FilePath); serr != nil {
			logger.Warn("knowledge save on exit failed", "err", serr)
		}
	}
	return err
}

func ingestCmd() *cobra.Command {
	var manifestPath string
	cmd := &cobra.Command{
		Use:   "ingest [urls...]",
		Short: "Fetch articles and add them to the knowledge file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfigOrDefaults()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			urls := args
			if manifestPath != "" {
				m, err := fetcher.LoadManifest(config.ExpandPath(manifestPath))
				if err != nil {
					return err
				}
				urls = append(urls, fetcher.ExpandURLs(ctx, m, cfg.Fetch.MaxPerFeed, logger)...)
			}
			if len(urls) == 0 {
				urls = startupURLs(ctx, cfg, nil)
			}
			if len(urls) == 0 {
				return fmt.Errorf("no URLs to ingest: pass them as arguments, via --manifest, or via articles.urls")
			}

			memStore, err := openMemory(cfg)
			if err != nil {
				return fmt.Errorf("memory store: %w", err)
			}
			defer memStore.Close()

			prov := buildProvider(ctx, cfg)
			kstore := buildKnowledge(cfg, prov)
			ingestSvc := ingest.NewService(buildFetcher(cfg), kstore, memStore, logger)

			entries := ingestSvc.IngestAll(ctx, urls)
			if err := kstore.SaveFile(cfg.Knowledge.FilePath); err != nil {
				return err
			}
			fmt.Printf("Ingested %d/%d articles, %d entries in %s\n",
				len(entries), len(urls), kstore.Len(), cfg.Knowledge.FilePath)
			return nil
		},
	}
	cmd.Flags().StringVar(&manifestPath, "manifest", "", "YAML manifest with urls and feeds")
	return cmd
}

func askCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask one question against the knowledge file and exit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfigOrDefaults()
			question := strings.Join(args, " ")

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			messageBus := bus.New(10, logger)
			defer messageBus.Close()

			memStore, err := openMemory(cfg)
			if err != nil {
				return fmt.Errorf("memory store: %w", err)
			}
			defer memStore.Close()

			prov := buildProvider(ctx, cfg)
			kstore := buildKnowledge(cfg, prov)
			if kstore.Len() == 0 {
				logger.Warn("knowledge store is empty, answers will lack article context",
					"path", cfg.Knowledge.FilePath)
			}
			ingestSvc := ingest.NewService(buildFetcher(cfg), kstore, memStore, logger)

			agentLoop := agent.NewLoop(agent.LoopConfig{
				Provider:      prov,
				Sessions:      agent.NewSessionManager(memStore, logger),
				Instructions:  agent.NewInstructionBuilder(kstore, ""),
				Tools:         registerTools(kstore, ingestSvc),
				Knowledge:     kstore,
				Bus:           messageBus,
				RateLimiter:   rateLimiterFor(cfg),
				Logger:        logger,
				MaxIterations: cfg.General.MaxIterations,
				HistoryLimit:  cfg.Memory.MaxHistoryPerConversation,
				KnowledgeFile: cfg.Knowledge.FilePath,
			})

			response, err := agentLoop.ProcessDirect(ctx, question, "cli", "ask")
			if err != nil {
				return err
			}
			fmt.Println(response)
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show system status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				logger.Info("config", "path", cfgPath, "loaded", false)
				cfg = config.Defaults()
				cfg.Knowledge.FilePath = config.ExpandPath(cfg.Knowledge.FilePath)
				cfg.Memory.DBPath = config.ExpandPath(cfg.Memory.DBPath)
			} else {
				logger.Info("config", "path", cfgPath, "loaded", true)
			}
			logger.Info("artivox", "version", version)

			ctx := context.Background()
			factory := provider.NewFactory(cfg, logger)
			if prov := factory.HealthyProvider(ctx); prov != nil {
				logger.Info("provider", "name", prov.Name(), "healthy", true)
			} else {
				logger.Info("provider", "healthy", false)
			}

			kstore := knowledge.NewStore(knowledge.StoreConfig{Logger: logger})
			if err := kstore.LoadFile(cfg.Knowledge.FilePath); err != nil {
				logger.Info("knowledge", "path", cfg.Knowledge.FilePath, "loaded", false)
			} else {
				logger.Info("knowledge", "path", cfg.Knowledge.FilePath, "entries", kstore.Len())
			}

			if cfg.Memory.Enabled {
				memStore, err := memory.NewSQLiteStore(cfg.Memory.DBPath, logger)
				if err != nil {
					logger.Info("memory", "db", cfg.Memory.DBPath, "open", false, "err", err)
					return nil
				}
				defer memStore.Close()
				convs, _ := memStore.ListConversations(ctx, 0)
				logger.Info("memory", "db", cfg.Memory.DBPath, "recent_conversations", len(convs))
				if ingests, _ := memStore.RecentIngests(ctx, 1); len(ingests) > 0 {
					logger.Info("last ingest",
						"url", ingests[0].URL,
						"status", ingests[0].Status,
						"at", ingests[0].CreatedAt.Format(time.RFC3339),
					)
				}
			} else {
				logger.Info("memory", "enabled", false)
			}

			logger.Info("channels",
				"cli", cfg.Channels.CLI.Enabled,
				"telegram", cfg.Channels.Telegram.Enabled,
				"voice", cfg.Channels.Voice.Enabled,
			)
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and modify configuration",
		Long:  "Get, set, and list configuration values. Changes are saved to the config file.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get [path]",
		Short: "Get a config value (e.g. general.defaultProvider)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			val, err := config.GetByPath(cfg, args[0])
			if err != nil {
				return err
			}
			data, _ := json.MarshalIndent(val, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set [path] [value]",
		Short: "Set a config value (e.g. knowledge.autosaveMinutes 10)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := config.SetByPath(cfg, args[0], args[1]); err != nil {
				return fmt.Errorf("set value: %w", err)
			}
			if err := config.Save(cfgPath, cfg); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			logger.Info("config updated", "path", args[0], "value", args[1], "file", cfgPath)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all config values (secrets masked)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			sanitized := config.Sanitize(cfg)
			data, _ := json.MarshalIndent(sanitized, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show config file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(resolveConfigPath())
		},
	})

	return cmd
}
