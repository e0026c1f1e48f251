package main

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"artivox/internal/config"
	"artivox/internal/knowledge"
	"artivox/internal/memory"
	"artivox/internal/provider"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostic checks on your Artivox installation",
		Long: `Verifies that Artivox's configuration, providers, speech services,
database, and knowledge file are correctly set up. Reports pass/fail per check.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			fmt.Printf("Artivox Doctor v%s\n", version)
			fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

			passed := 0
			failed := 0
			warned := 0

			// 1. Config file exists
			if _, err := os.Stat(cfgPath); err != nil {
				printFail("Config file", fmt.Sprintf("not found at %s", cfgPath))
				failed++
				fmt.Printf("\nRun 'artivox init' to create a default configuration.\n")
				return nil
			}
			printPass("Config file", cfgPath)
			passed++

			// 2. Config loads and validates
			cfg, err := config.Load(cfgPath)
			if err != nil {
				printFail("Config validation", err.Error())
				failed++
			} else {
				printPass("Config validation", "valid")
				passed++
			}

			if cfg == nil {
				fmt.Printf("\n%d passed, %d failed\n", passed, failed)
				return nil
			}

			// 3. Data directory exists
			if cfg.General.DataDir != "" {
				if info, err := os.Stat(cfg.General.DataDir); err != nil {
					printWarn("Data directory", fmt.Sprintf("not found: %s (created on first run)", cfg.General.DataDir))
					warned++
				} else if !info.IsDir() {
					printFail("Data directory", fmt.Sprintf("not a directory: %s", cfg.General.DataDir))
					failed++
				} else {
					printPass("Data directory", cfg.General.DataDir)
					passed++
				}
			}

			// 4. Database writable
			dbPath := cfg.Memory.DBPath
			if dbPath == "" {
				dbPath = filepath.Join(config.DefaultConfigDir(), "memory.db")
			}
			if ver, err := checkDatabase(dbPath); err != nil {
				printFail("Database", err.Error())
				failed++
			} else {
				printPass("Database", fmt.Sprintf("%s (schema v%d)", dbPath, ver))
				passed++
			}

			// 5. LLM providers configured
			providerCount := 0
			for name, p := range cfg.Providers {
				if !p.Enabled {
					continue
				}
				providerCount++
				if !config.IsSet(p.APIKey) && p.APIBase == "" {
					printWarn("Provider: "+name, "enabled but no API key configured")
					warned++
				} else {
					printPass("Provider: "+name, "configured")
					passed++
				}
			}
			if providerCount == 0 {
				printFail("Providers", "no providers enabled")
				failed++
			}

			// 6. Speech services (hard requirement only when voice is on)
			if cfg.Channels.Voice.Enabled {
				if config.IsSet(cfg.Speech.STT.APIKey) {
					printPass("Speech-to-text", cfg.Speech.STT.Provider+" configured")
					passed++
				} else {
					printFail("Speech-to-text", cfg.Speech.STT.Provider+" API key not set")
					failed++
				}
				if config.IsSet(cfg.Speech.TTS.APIKey) {
					printPass("Text-to-speech", cfg.Speech.TTS.Provider+" configured")
					passed++
				} else {
					printFail("Text-to-speech", cfg.Speech.TTS.Provider+" API key not set")
					failed++
				}
			} else {
				if !config.IsSet(cfg.Speech.STT.APIKey) || !config.IsSet(cfg.Speech.TTS.APIKey) {
					printWarn("Speech services", "not configured (voice channel is disabled)")
					warned++
				}
			}

			// 7. Knowledge file loads
			if _, err := os.Stat(cfg.Knowledge.FilePath); err != nil {
				printWarn("Knowledge file", fmt.Sprintf("not found: %s (created on first save)", cfg.Knowledge.FilePath))
				warned++
			} else {
				kstore := knowledge.NewStore(knowledge.StoreConfig{Logger: logger})
				if err := kstore.LoadFile(cfg.Knowledge.FilePath); err != nil {
					printFail("Knowledge file", err.Error())
					failed++
				} else {
					printPass("Knowledge file", fmt.Sprintf("%s (%d entries)", cfg.Knowledge.FilePath, kstore.Len()))
					passed++
				}
			}

			// 8. Ports
			if cfg.Channels.Voice.Enabled {
				addr := fmt.Sprintf("%s:%d", cfg.Channels.Voice.Host, cfg.Channels.Voice.Port)
				if err := checkPort(addr); err != nil {
					printWarn("Voice port", fmt.Sprintf("%s may be in use: %v", addr, err))
					warned++
				} else {
					printPass("Voice port", addr+" available")
					passed++
				}
			}
			if cfg.Metrics.Enabled {
				if err := checkPort(cfg.Metrics.Endpoint); err != nil {
					printWarn("Metrics port", fmt.Sprintf("%s may be in use: %v", cfg.Metrics.Endpoint, err))
					warned++
				} else {
					printPass("Metrics port", cfg.Metrics.Endpoint+" available")
					passed++
				}
			}

			// 9. Provider reachability
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			factory := provider.NewFactory(cfg, logger)
			if prov := factory.HealthyProvider(ctx); prov != nil {
				printPass("LLM reachability", prov.Name())
				passed++
			} else {
				printWarn("LLM reachability", "no provider answered a health probe")
				warned++
			}

			// Summary
			fmt.Printf("\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
			fmt.Printf("Results: %d passed, %d warnings, %d failed\n", passed, warned, failed)
			if failed > 0 {
				fmt.Printf("\nPlease fix the failed checks before running Artivox.\n")
				return fmt.Errorf("%d check(s) failed", failed)
			}
			if warned > 0 {
				fmt.Printf("\nArtivox should work but consider fixing the warnings.\n")
			} else {
				fmt.Printf("\nAll checks passed! Artivox is ready to run.\n")
			}
			return nil
		},
	}
}

// checkDatabase opens the conversation database, probes that it is writable,
// and reports the migration version (0 = never migrated).
func checkDatabase(dbPath string) (int, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return 0, fmt.Errorf("cannot create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return 0, fmt.Errorf("cannot open: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return 0, fmt.Errorf("cannot ping: %w", err)
	}

	// Try a write.
	if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS _doctor_test (id INTEGER PRIMARY KEY)"); err != nil {
		return 0, fmt.Errorf("not writable: %w", err)
	}
	db.ExecContext(ctx, "DROP TABLE IF EXISTS _doctor_test")

	ver, err := memory.GetSchemaVersion(db)
	if err != nil {
		return 0, fmt.Errorf("schema version: %w", err)
	}
	return ver, nil
}

func checkPort(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	ln.Close()
	return nil
}

func printPass(check, detail string) {
	fmt.Printf("  [PASS] %-20s %s\n", check, detail)
}

func printFail(check, detail string) {
	fmt.Printf("  [FAIL] %-20s %s\n", check, detail)
}

func printWarn(check, detail string) {
	fmt.Printf("  [WARN] %-20s %s\n", check, detail)
}
