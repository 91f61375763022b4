// Package extract turns article locators into titles, document links and raw
// text, and discovers locators from the paginated archive index. Rendering
// happens in headless Chrome so script-built pages extract the same as
// static ones.
package extract

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"golang.org/x/time/rate"
)

// RendererConfig controls the chromedp-backed renderer.
type RendererConfig struct {
	UserAgent         string
	NavigationTimeout time.Duration
	HostQPS           float64
}

// Renderer produces the rendered HTML of a page.
type Renderer interface {
	Render(ctx context.Context, rawURL string) (string, error)
}

// ChromedpRenderer renders pages in headless Chrome, one tab per call,
// with a per-host politeness budget.
type ChromedpRenderer struct {
	cfg           RendererConfig
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	hostLimiters  sync.Map
}

// NewChromedpRenderer starts the browser allocator and warms up one browser
// process shared by all tabs.
func NewChromedpRenderer(cfg RendererConfig) (*ChromedpRenderer, error) {
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 45 * time.Second
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}

	return &ChromedpRenderer{
		cfg:           cfg,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}, nil
}

// Close tears down the browser and allocator contexts.
func (r *ChromedpRenderer) Close() {
	if r == nil {
		return
	}
	r.browserCancel()
	r.allocCancel()
}

// Render navigates to rawURL, waits for content readiness and returns the
// fully rendered DOM.
func (r *ChromedpRenderer) Render(ctx context.Context, rawURL string) (string, error) {
	if err := r.waitHostBudget(ctx, rawURL); err != nil {
		return "", err
	}

	tabCtx, cancelTab := chromedp.NewContext(r.browserCtx)
	defer cancelTab()

	taskCtx, cancelTask := context.WithTimeout(tabCtx, r.cfg.NavigationTimeout)
	defer cancelTask()

	stopForward := forwardCancel(ctx, cancelTask)
	defer stopForward()

	var html string
	actions := []chromedp.Action{
		network.Enable(),
	}
	if r.cfg.UserAgent != "" {
		actions = append(actions, emulation.SetUserAgentOverride(r.cfg.UserAgent))
	}
	actions = append(actions,
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(500*time.Millisecond),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err := chromedp.Run(taskCtx, actions...); err != nil {
		return "", fmt.Errorf("chromedp run %s: %w", rawURL, err)
	}
	return html, nil
}

func (r *ChromedpRenderer) waitHostBudget(ctx context.Context, rawURL string) error {
	if r.cfg.HostQPS <= 0 {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse render url: %w", err)
	}
	host := strings.ToLower(parsed.Host)
	val, _ := r.hostLimiters.LoadOrStore(host, rate.NewLimiter(rate.Limit(r.cfg.HostQPS), 1))
	limiter, ok := val.(*rate.Limiter)
	if !ok {
		return fmt.Errorf("unexpected limiter type %T", val)
	}
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("host budget wait: %w", err)
	}
	return nil
}

// forwardCancel propagates the caller's cancellation into the chromedp task
// context, which is not derived from it.
func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
