package scraper

import (
	"context"
	"net/http"
	"sync"
	"time"

	"autocv/internal/jobstore"

	"go.uber.org/zap"
)

// domFetcher is the browser-side fallback for pages that only render under
// JavaScript. It drives a single tab and must never run concurrently.
type domFetcher interface {
	FetchDescription(url string) (string, error)
}

// DescriptionFetcher fills in posting descriptions over plain HTTP,
// falling back to the browser session (when present) for pages that only
// render under JavaScript.
type DescriptionFetcher struct {
	client  *http.Client
	dom     domFetcher
	domMu   sync.Mutex
	workers int
	log     *zap.Logger
}

func NewDescriptionFetcher(session *Session, workers int, log *zap.Logger) *DescriptionFetcher {
	if workers <= 0 {
		workers = 5
	}
	if log == nil {
		log = zap.NewNop()
	}
	f := &DescriptionFetcher{
		client:  &http.Client{Timeout: 20 * time.Second},
		workers: workers,
		log:     log,
	}
	if session != nil {
		f.dom = session
	}
	return f
}

// SetHTTPClient replaces the fetch client. Used in tests.
func (f *DescriptionFetcher) SetHTTPClient(c *http.Client) {
	if c != nil {
		f.client = c
	}
}

// FetchAll resolves descriptions for every posting. Work completes in
// whatever order the workers finish, but the returned slice matches the
// input order position for position.
func (f *DescriptionFetcher) FetchAll(ctx context.Context, jobs []jobstore.Posting) []jobstore.Posting {
	out := make([]jobstore.Posting, len(jobs))
	copy(out, jobs)

	pool := NewWorkerPool(f.workers, len(jobs))
	results := pool.Run(ctx)

	for i := range out {
		i := i
		pool.Submit(Task{
			ID: out[i].ID,
			Run: func(ctx context.Context) error {
				// Each task owns exactly one slot, so writes never race.
				out[i].Description = f.fetchOne(ctx, out[i].URL)
				return nil
			},
		})
	}
	pool.Close()

	done := 0
	for range results {
		done++
	}
	f.log.Info("descriptions fetched", zap.Int("jobs", len(jobs)), zap.Int("completed", done))
	return out
}

// FetchAllSequential resolves descriptions one posting at a time with a
// randomized pause between requests. This is the normal-mode path when a
// browser session is open: gentler on the site, and the single tab never
// sees two postings at once.
func (f *DescriptionFetcher) FetchAllSequential(ctx context.Context, jobs []jobstore.Posting, minDelayMs, maxDelayMs int) []jobstore.Posting {
	out := make([]jobstore.Posting, len(jobs))
	copy(out, jobs)

	done := 0
	for i := range out {
		if ctx.Err() != nil {
			break
		}
		if i > 0 {
			humanDelay(ctx, minDelayMs, maxDelayMs, false)
		}
		out[i].Description = f.fetchOne(ctx, out[i].URL)
		done++
	}
	f.log.Info("descriptions fetched", zap.Int("jobs", len(jobs)), zap.Int("completed", done))
	return out
}

// fetchOne tries plain HTTP regex extraction first, then the browser, then
// settles for the placeholder.
func (f *DescriptionFetcher) fetchOne(ctx context.Context, url string) string {
	if url == "" {
		return descriptionUnavailable
	}

	if body, err := httpGetWithRetry(ctx, f.client, url, 2); err == nil {
		if desc := extractDescription(string(body)); len(desc) >= minDescriptionLen {
			return desc
		}
	} else {
		f.log.Debug("http fetch failed", zap.String("url", url), zap.Error(err))
	}

	if f.dom != nil {
		// One browser tab serves every worker; interleaved navigations
		// would cross-attribute descriptions between postings.
		f.domMu.Lock()
		desc, err := f.dom.FetchDescription(url)
		f.domMu.Unlock()
		if err == nil && len(desc) >= minDescriptionLen {
			return desc
		}
		if err != nil {
			f.log.Debug("browser fetch failed", zap.String("url", url), zap.Error(err))
		}
	}

	return descriptionUnavailable
}

// extractDescription tries each known container pattern against the raw
// HTML and keeps the longest cleaned match.
func extractDescription(html string) string {
	best := ""
	for _, re := range descriptionPatterns {
		m := re.FindStringSubmatch(html)
		if len(m) < 2 {
			continue
		}
		cleaned := cleanDescription(m[1])
		if len(cleaned) > len(best) {
			best = cleaned
		}
	}
	return best
}
