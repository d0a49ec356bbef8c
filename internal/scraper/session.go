package scraper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"autocv/internal/config"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// Session owns one browser for the lifetime of a scrape: either a headless
// Chrome we launch ourselves or an already-running instance reached over the
// DevTools protocol.
type Session struct {
	ctx     context.Context
	cancels []context.CancelFunc
	cfg     config.ScraperConfig
	log     *zap.Logger
}

// NewSession attaches to the configured browser. With use_existing_browser
// it dials the DevTools URL first and only errors if that browser is gone;
// otherwise it launches its own headless Chrome.
func NewSession(parent context.Context, cfg config.ScraperConfig, log *zap.Logger) (*Session, error) {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Session{cfg: cfg, log: log}

	if cfg.UseExistingBrowser {
		allocCtx, allocCancel := chromedp.NewRemoteAllocator(parent, cfg.DevtoolsURL)
		browserCtx, browserCancel := chromedp.NewContext(allocCtx)
		s.cancels = append(s.cancels, browserCancel, allocCancel)
		s.ctx = browserCtx

		probeCtx, probeCancel := context.WithTimeout(browserCtx, 10*time.Second)
		defer probeCancel()
		if err := chromedp.Run(probeCtx); err != nil {
			s.Close()
			return nil, fmt.Errorf("attach to browser at %s: %w", cfg.DevtoolsURL, err)
		}
		log.Info("attached to existing browser", zap.String("devtools_url", cfg.DevtoolsURL))
		return s, nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(userAgent),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	s.cancels = append(s.cancels, browserCancel, allocCancel)
	s.ctx = browserCtx

	startCtx, startCancel := context.WithTimeout(browserCtx, 30*time.Second)
	defer startCancel()
	if err := chromedp.Run(startCtx); err != nil {
		s.Close()
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	log.Info("launched browser", zap.Bool("headless", cfg.Headless))
	return s, nil
}

func (s *Session) Close() {
	if s == nil {
		return
	}
	for _, cancel := range s.cancels {
		cancel()
	}
}

// Run executes chromedp actions against the session browser under a timeout.
func (s *Session) Run(timeout time.Duration, actions ...chromedp.Action) error {
	if s == nil || s.ctx == nil {
		return fmt.Errorf("no browser session")
	}
	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	return chromedp.Run(ctx, actions...)
}

// CurrentURL returns the location of the active tab.
func (s *Session) CurrentURL() (string, error) {
	var loc string
	if err := s.Run(10*time.Second, chromedp.Location(&loc)); err != nil {
		return "", err
	}
	return loc, nil
}

// FetchDescription loads a posting in the browser and pulls the description
// out of the rendered DOM. Used when plain HTTP extraction came up short.
func (s *Session) FetchDescription(url string) (string, error) {
	if s == nil || s.ctx == nil {
		return "", fmt.Errorf("no browser session")
	}

	err := s.Run(40*time.Second,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(1500*time.Millisecond),
	)
	if err != nil {
		return "", err
	}

	for _, sel := range descriptionSelectors {
		var text string
		err := s.Run(5*time.Second,
			chromedp.EvaluateAsDevTools(fmt.Sprintf(
				`(() => { const el = document.querySelector(%q); return el ? el.innerText : ""; })()`, sel),
				&text),
		)
		if err != nil {
			continue
		}
		text = strings.TrimSpace(whitespaceCollapse(text))
		if len(text) >= minDescriptionLen {
			return truncateRunes(text, maxDescriptionLen), nil
		}
	}

	// Last resort: the longest content-sized text block on the page.
	var longest string
	err = s.Run(10*time.Second,
		chromedp.EvaluateAsDevTools(fmt.Sprintf(
			`(() => {
				let best = "";
				for (const el of document.querySelectorAll('section, article, div')) {
					const t = (el.innerText || "").trim();
					if (t.length > best.length && t.length >= %d && t.length <= %d) best = t;
				}
				return best;
			})()`, minDescriptionLen, maxDescriptionLen*2),
			&longest),
	)
	if err != nil {
		return "", err
	}
	longest = strings.TrimSpace(whitespaceCollapse(longest))
	if len(longest) < minDescriptionLen {
		return "", fmt.Errorf("no description content on page")
	}
	return truncateRunes(longest, maxDescriptionLen), nil
}

func whitespaceCollapse(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		l = strings.TrimSpace(whitespaceRe.ReplaceAllString(l, " "))
		if l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
