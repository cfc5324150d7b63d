package prerender

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// BrowserOptions configures the headless Chrome renderer.
type BrowserOptions struct {
	// ControlURL connects to an already running Chrome instead of launching one.
	ControlURL string
	// Bin is the Chrome binary to launch. Empty lets rod find or download one.
	Bin string
	// NoSandbox disables the Chrome sandbox, needed in most containers.
	NoSandbox bool
	// ReadySelector must match before the DOM is captured.
	ReadySelector string
	// Settle is how long the DOM must stay unchanged before it is captured.
	Settle time.Duration
	// Timeout bounds a single page render.
	Timeout time.Duration
}

func (o *BrowserOptions) setDefaults() {
	if o.ReadySelector == "" {
		o.ReadySelector = "#root > *"
	}
	if o.Settle <= 0 {
		o.Settle = 500 * time.Millisecond
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
}

// BrowserRenderer renders pages in headless Chrome so client-side content is
// present in the captured DOM.
type BrowserRenderer struct {
	opts     BrowserOptions
	browser  *rod.Browser
	launcher *launcher.Launcher
	once     sync.Once
	closeErr error
}

// NewBrowserRenderer launches Chrome, or connects to opts.ControlURL, and
// returns a renderer bound to it. Call Close when done.
func NewBrowserRenderer(ctx context.Context, opts BrowserOptions) (*BrowserRenderer, error) {
	opts.setDefaults()
	r := &BrowserRenderer{opts: opts}

	controlURL := opts.ControlURL
	if controlURL == "" {
		l := launcher.New().Context(ctx).Headless(true).NoSandbox(opts.NoSandbox)
		if opts.Bin != "" {
			l = l.Bin(opts.Bin)
		}
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch chrome: %w", err)
		}
		r.launcher = l
		controlURL = u
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		if r.launcher != nil {
			r.launcher.Kill()
		}
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}
	r.browser = browser
	return r, nil
}

// Render implements Renderer. Each page gets its own incognito context so no
// cookies or storage leak between routes.
func (r *BrowserRenderer) Render(ctx context.Context, url string) (string, error) {
	incognito, err := r.browser.Incognito()
	if err != nil {
		return "", fmt.Errorf("incognito context: %w", err)
	}
	defer incognito.Close()

	page, err := incognito.Page(proto.TargetCreateTarget{})
	if err != nil {
		return "", fmt.Errorf("create page: %w", err)
	}
	defer page.Close()

	p := page.Context(ctx).Timeout(r.opts.Timeout)
	if err := p.Navigate(url); err != nil {
		return "", fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return "", fmt.Errorf("wait load %s: %w", url, err)
	}
	if _, err := p.Element(r.opts.ReadySelector); err != nil {
		return "", fmt.Errorf("wait for %q on %s: %w", r.opts.ReadySelector, url, err)
	}
	if err := p.WaitDOMStable(r.opts.Settle, 0); err != nil {
		return "", fmt.Errorf("wait stable %s: %w", url, err)
	}
	dom, err := p.HTML()
	if err != nil {
		return "", fmt.Errorf("serialize %s: %w", url, err)
	}
	return dom, nil
}

// Close disconnects from Chrome and stops it if it was launched here.
func (r *BrowserRenderer) Close() error {
	r.once.Do(func() {
		r.closeErr = r.browser.Close()
		if r.launcher != nil {
			r.launcher.Cleanup()
		}
	})
	return r.closeErr
}
