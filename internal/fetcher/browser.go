package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"
)

// Renderer drives headless Chrome to get the post-JavaScript HTML of pages
// that ship an empty static shell.
type Renderer struct {
	profileDir string
	timeout    time.Duration
	logger     *slog.Logger
}

// RendererConfig holds configuration for the browser renderer.
type RendererConfig struct {
	ProfileDir string // Chrome user data directory (persists cookies/sessions)
	Timeout    time.Duration
	Logger     *slog.Logger
}

func NewRenderer(cfg RendererConfig) *Renderer {
	if cfg.ProfileDir == "" {
		home, _ := os.UserHomeDir()
		cfg.ProfileDir = filepath.Join(home, ".artivox", "chrome-profiles", "default")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Renderer{
		profileDir: cfg.ProfileDir,
		timeout:    cfg.Timeout,
		logger:     cfg.Logger,
	}
}

// newContext creates a chromedp context with the renderer's Chrome profile.
// The caller MUST call cancel() when done.
func (r *Renderer) newContext(parentCtx context.Context) (context.Context, context.CancelFunc) {
	if err := os.MkdirAll(r.profileDir, 0o755); err != nil {
		r.logger.Error("failed to create profile dir", "dir", r.profileDir, "err", err)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserDataDir(r.profileDir),
		chromedp.Headless,
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("exclude-switches", "enable-automation"),
		chromedp.UserAgent("Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(parentCtx, opts...)
	taskCtx, taskCancel := chromedp.NewContext(allocCtx)

	cancelAll := func() {
		taskCancel()
		allocCancel()
	}

	return taskCtx, cancelAll
}

// RenderHTML navigates to the URL, waits for the page to settle, and
// returns the rendered document.
func (r *Renderer) RenderHTML(ctx context.Context, url string) (string, error) {
	taskCtx, cancel := r.newContext(ctx)
	defer cancel()

	taskCtx, taskCancel := context.WithTimeout(taskCtx, r.timeout)
	defer taskCancel()

	var html string
	err := chromedp.Run(taskCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Sleep(2*time.Second),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", url, err)
	}

	r.logger.Debug("page rendered", "url", url, "bytes", len(html))
	return html, nil
}
