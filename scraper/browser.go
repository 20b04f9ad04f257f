package scraper

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"

	"fukuyama-landprice/utils"
)

// Browser renders pages with a headless Chrome instance. The browser process
// is started on the first Render call and shared by every tab.
type Browser struct {
	logger      *utils.Logger
	timeout     time.Duration
	allocCtx    context.Context
	cancelAlloc context.CancelFunc
	browserCtx  context.Context
	cancelTab   context.CancelFunc
}

// NewBrowser configures a headless browser. chromeBin may be empty, in which
// case the usual install locations are searched.
func NewBrowser(chromeBin string, timeout time.Duration, logger *utils.Logger) *Browser {
	bin := findChromeBinary(chromeBin)
	if bin != "" {
		logger.Info("[browser] Using browser binary: %s", bin)
	} else {
		logger.Warn("[browser] No Chrome binary found, relying on chromedp defaults")
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)
	if bin != "" {
		opts = append(opts, chromedp.ExecPath(bin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)

	// Suppress chromedp log noise
	browserCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	return &Browser{
		logger:      logger,
		timeout:     timeout,
		allocCtx:    allocCtx,
		cancelAlloc: cancelAlloc,
		browserCtx:  browserCtx,
		cancelTab:   cancelTab,
	}
}

// Render opens url in a new tab, waits for the body and returns the page text.
func (b *Browser) Render(ctx context.Context, url string) (string, error) {
	tabCtx, cancel := chromedp.NewContext(b.browserCtx)
	defer cancel()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, b.timeout)
	defer cancelTimeout()

	// cancelling ctx aborts the navigation
	stop := context.AfterFunc(ctx, cancelTimeout)
	defer stop()

	var html string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("browser: render %s: %w", url, err)
	}

	b.logger.Debug("[browser] Rendered %s (%d bytes)", url, len(html))
	return ExtractPageText(html)
}

// Close shuts the browser down.
func (b *Browser) Close() {
	b.cancelTab()
	b.cancelAlloc()
}

// ExtractPageText returns the text of every <pre> block on the page, or the
// body text when there is none. Raw data files opened in a browser are shown
// inside a <pre>.
func ExtractPageText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("browser: parse html: %w", err)
	}

	pre := doc.Find("pre")
	if pre.Length() > 0 {
		parts := make([]string, 0, pre.Length())
		pre.Each(func(_ int, s *goquery.Selection) {
			parts = append(parts, s.Text())
		})
		return strings.Join(parts, "\n"), nil
	}

	return strings.TrimSpace(doc.Find("body").Text()), nil
}

// findChromeBinary returns override if set, then CHROME_BIN, then the first
// Chrome/Chromium found on PATH or in a well-known location.
func findChromeBinary(override string) string {
	if override != "" {
		return override
	}
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
