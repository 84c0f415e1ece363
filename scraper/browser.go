package scraper

import (
	"context"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/chromedp"

	"rental-watch/models"
	"rental-watch/utils"
)

// BrowserFetcher renders pages in a shared headless Chrome and returns the
// resulting document HTML. Each Fetch runs in its own tab.
type BrowserFetcher struct {
	logger        *utils.Logger
	timeout       time.Duration
	browserCtx    context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc
}

// NewBrowserFetcher starts the browser allocator. chromeBin may be empty.
func NewBrowserFetcher(chromeBin, userAgent string, timeout time.Duration, logger *utils.Logger) *BrowserFetcher {
	if chromeBin == "" {
		chromeBin = FindChromeBinary()
	}
	logger.Info("[browser] Using browser binary: %s", chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
	)
	if userAgent != "" {
		opts = append(opts, chromedp.UserAgent(userAgent))
	}
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)

	// Suppress chromedp log noise
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &BrowserFetcher{
		logger:        logger,
		timeout:       timeout,
		browserCtx:    browserCtx,
		cancelBrowser: cancelBrowser,
		cancelAlloc:   cancelAlloc,
	}
}

func (b *BrowserFetcher) Fetch(ctx context.Context, url string) (string, error) {
	tabCtx, cancelTab := chromedp.NewContext(b.browserCtx)
	defer cancelTab()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, b.timeout)
	defer cancelTimeout()

	stop := context.AfterFunc(ctx, cancelTimeout)
	defer stop()

	var html string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", &models.FetchError{URL: url, Err: err}
	}
	return html, nil
}

// Close shuts the browser down.
func (b *BrowserFetcher) Close() {
	b.cancelBrowser()
	b.cancelAlloc()
}

// FindChromeBinary locates a Chrome/Chromium binary, or returns "".
func FindChromeBinary() string {
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
