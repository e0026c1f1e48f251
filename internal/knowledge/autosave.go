package knowledge

import (
	"context"
	"log/slog"
	"time"
)

// AutosaveConfig configures periodic persistence of the knowledge store.
type AutosaveConfig struct {
	IntervalMinutes int // 0 disables the autosaver
	Path            string
	Logger          *slog.Logger
}

// Autosaver periodically writes the store to disk when it has changed.
// Saves are skipped while the store generation matches the last write, so
// an idle assistant never touches the file.
type Autosaver struct {
	store    *Store
	interval time.Duration
	path     string
	logger   *slog.Logger

	lastSaved int64
}

func NewAutosaver(cfg AutosaveConfig, store *Store) *Autosaver {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Autosaver{
		store:    store,
		interval: time.Duration(cfg.IntervalMinutes) * time.Minute,
		path:     cfg.Path,
		logger:   cfg.Logger,
	}
}

// Start begins the autosave loop. Blocks until the context is cancelled,
// then flushes one final time if there are unsaved changes.
func (a *Autosaver) Start(ctx context.Context) {
	if a.interval <= 0 || a.path == "" {
		return
	}

	a.logger.Info("knowledge autosave started", "interval", a.interval, "path", a.path)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.saveIfDirty()
			a.logger.Info("knowledge autosave stopped")
			return
		case <-ticker.C:
			a.saveIfDirty()
		}
	}
}

func (a *Autosaver) saveIfDirty() {
	gen := a.store.Generation()
	if gen == a.lastSaved {
		return
	}
	if err := a.store.SaveFile(a.path); err != nil {
		a.logger.Error("knowledge autosave failed", "path", a.path, "err", err)
		return
	}
	a.lastSaved = gen
}
