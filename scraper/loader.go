package scraper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"fukuyama-landprice/config"
	"fukuyama-landprice/utils"
)

// Loader reads source documents from local files and remote pages. Remote
// pages are fetched on a rate-limited worker pool with retries; duplicate
// locations are read once.
type Loader struct {
	cfg    *config.Config
	logger *utils.Logger
	pool   *utils.WorkerPool
	seen   *utils.StringSet
	retry  *utils.RetryConfig

	mu       sync.Mutex
	renderer Renderer
	browser  *Browser
}

// NewLoader creates a Loader. The headless browser is only started when a
// remote location is requested.
func NewLoader(cfg *config.Config, logger *utils.Logger) *Loader {
	return &Loader{
		cfg:    cfg,
		logger: logger,
		pool:   utils.NewWorkerPool(cfg.MaxConcurrency, cfg.RateLimitMs),
		seen:   utils.NewStringSet(),
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
	}
}

// WithRenderer replaces the headless browser, mainly for tests.
func (l *Loader) WithRenderer(r Renderer) *Loader {
	l.mu.Lock()
	l.renderer = r
	l.mu.Unlock()
	return l
}

// Load fetches every location and returns the documents in input order.
// Locations that fail are reported together in the returned error; documents
// that succeeded are still returned.
func (l *Loader) Load(ctx context.Context, locations []string) ([]Document, error) {
	l.logger.Info("[loader] Loading %d source(s)", len(locations))

	results := make([]*Document, len(locations))
	errs := make([]error, len(locations))

	for i, loc := range locations {
		if !l.seen.Add(loc) {
			l.logger.Warn("[loader] Skipping duplicate source %s", loc)
			continue
		}

		if !IsRemote(loc) {
			text, err := readFile(ctx, loc)
			if err != nil {
				errs[i] = err
				continue
			}
			results[i] = &Document{Location: loc, Text: text}
			continue
		}

		l.pool.Submit(func() {
			text, err := l.fetchRemote(ctx, loc)
			if err != nil {
				l.logger.Error("[loader] %s: %v", loc, err)
				errs[i] = err
				return
			}
			results[i] = &Document{Location: loc, Text: text}
		})
	}
	l.pool.Wait()

	docs := make([]Document, 0, len(locations))
	for _, d := range results {
		if d != nil {
			docs = append(docs, *d)
		}
	}

	l.logger.Info("[loader] Loaded %d/%d source(s)", len(docs), l.seen.Size())
	return docs, errors.Join(errs...)
}

func (l *Loader) fetchRemote(ctx context.Context, url string) (string, error) {
	r := l.rendererFor()

	var text string
	err := l.retry.Do(ctx, "fetch "+url, func(ctx context.Context) error {
		var err error
		text, err = r.Render(ctx, url)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("source: %w", err)
	}
	return text, nil
}

func (l *Loader) rendererFor() Renderer {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.renderer == nil {
		l.browser = NewBrowser(l.cfg.ChromeBin, l.cfg.FetchTimeoutDuration(), l.logger)
		l.renderer = l.browser
	}
	return l.renderer
}

// Close releases the headless browser if one was started.
func (l *Loader) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.browser != nil {
		l.browser.Close()
		l.browser = nil
	}
}
