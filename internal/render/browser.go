package render

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"eventimporter/internal/logging"
	"eventimporter/internal/sources"
)

// Browser renders pages with a locally controlled headless Chrome. Pages
// are opened with stealth patches applied so bot checks on ticketing sites
// trip less often.
type Browser struct {
	controlURL string
	logger     *slog.Logger

	mu       sync.Mutex
	browser  *rod.Browser
	launcher *launcher.Launcher
	closed   bool
}

// NewBrowser creates a browser-backed renderer. controlURL may name an
// already running Chrome DevTools endpoint; when empty a local headless
// Chrome is launched on first use.
func NewBrowser(controlURL string, logger *slog.Logger) *Browser {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Browser{
		controlURL: controlURL,
		logger:     logger.With(logging.String(logging.FieldComponent, "render")),
	}
}

// HTML renders the page and returns its DOM.
func (b *Browser) HTML(ctx context.Context, pageURL string) (string, error) {
	page, err := b.openPage(ctx, pageURL)
	if err != nil {
		return "", err
	}
	defer page.Close()

	html, err := page.Context(ctx).HTML()
	if err != nil {
		return "", wrapBrowserErr(ctx, "html", "read document", err)
	}
	if html == "" {
		return "", sources.Wrap(sources.ErrUpstream, "render", "html", "empty document for "+pageURL, nil)
	}
	return html, nil
}

// Screenshot renders the page and returns a PNG capture of the viewport.
func (b *Browser) Screenshot(ctx context.Context, pageURL string) ([]byte, error) {
	page, err := b.openPage(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	defer page.Close()

	raw, err := page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, wrapBrowserErr(ctx, "screenshot", "capture page", err)
	}
	return raw, nil
}

// Close shuts down the launched Chrome, if any.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	if b.browser != nil {
		b.browser.Close()
		b.browser = nil
	}
	if b.launcher != nil {
		b.launcher.Cleanup()
		b.launcher = nil
	}
	return nil
}

func (b *Browser) openPage(ctx context.Context, pageURL string) (*rod.Page, error) {
	browser, err := b.connect()
	if err != nil {
		return nil, err
	}

	page, err := stealth.Page(browser)
	if err != nil {
		return nil, wrapBrowserErr(ctx, "navigate", "create page", err)
	}
	if err := page.Context(ctx).Navigate(pageURL); err != nil {
		page.Close()
		return nil, wrapBrowserErr(ctx, "navigate", "navigate to "+pageURL, err)
	}
	if err := page.Context(ctx).WaitLoad(); err != nil {
		b.logger.Warn("page load wait gave up",
			logging.String(logging.FieldURL, pageURL),
			logging.Error(err))
	}
	return page, nil
}

func (b *Browser) connect() (*rod.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, sources.Wrap(sources.ErrConfiguration, "render", "connect", "browser renderer is closed", nil)
	}
	if b.browser != nil {
		return b.browser, nil
	}

	controlURL := b.controlURL
	if controlURL == "" {
		l := launcher.New().Headless(true).Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return nil, sources.Wrap(sources.ErrConfiguration, "render", "connect", "launch chrome", err)
		}
		b.launcher = l
		controlURL = u
		b.logger.Info("launched local chrome", logging.String("control_url", controlURL))
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, sources.Wrap(sources.ErrUpstream, "render", "connect", "connect to chrome", err)
	}
	b.browser = browser
	return browser, nil
}

func wrapBrowserErr(ctx context.Context, op, message string, err error) error {
	marker := sources.ErrUpstream
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		marker = sources.ErrTimeout
	}
	return sources.Wrap(marker, "render", op, message, err)
}
