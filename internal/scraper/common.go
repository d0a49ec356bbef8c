package scraper

import (
	"context"
	"fmt"
	"html"
	"io"
	"math/rand"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"

const (
	maxDescriptionLen = 5000
	minDescriptionLen = 50

	// Placeholder kept when every extraction path came up empty.
	descriptionUnavailable = "Description not available"
)

func httpGetWithRetry(ctx context.Context, client *http.Client, url string, attempts int) ([]byte, error) {
	if attempts <= 0 {
		attempts = 1
	}
	var body []byte
	var lastErr error
	for i := 0; i < attempts; i++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			time.Sleep(time.Duration(300*(i+1)) * time.Millisecond)
			continue
		}
		func() {
			defer resp.Body.Close()
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				lastErr = fmt.Errorf("status %d", resp.StatusCode)
				return
			}
			b, err := readAllLimit(resp.Body, 5<<20)
			if err != nil {
				lastErr = err
				return
			}
			body = b
			lastErr = nil
		}()
		if lastErr == nil {
			return body, nil
		}
		time.Sleep(time.Duration(300*(i+1)) * time.Millisecond)
	}
	return nil, lastErr
}

func readAllLimit(r io.Reader, max int64) ([]byte, error) {
	lr := &io.LimitedReader{R: r, N: max}
	b, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if lr.N <= 0 {
		return nil, fmt.Errorf("response too large")
	}
	return b, nil
}

var (
	tagRe          = regexp.MustCompile(`<[^>]+>`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
	brRe           = regexp.MustCompile(`(?i)<br\s*/?>|</p>|</li>|</div>`)
	multiNewlineRe = regexp.MustCompile(`\n{3,}`)
)

// cleanDescription turns an HTML fragment into bounded plain text: tags
// stripped, entities unescaped, whitespace collapsed, truncated.
func cleanDescription(fragment string) string {
	s := brRe.ReplaceAllString(fragment, "\n")
	s = tagRe.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)

	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = whitespaceRe.ReplaceAllString(strings.TrimSpace(l), " ")
	}
	s = strings.TrimSpace(strings.Join(lines, "\n"))
	s = multiNewlineRe.ReplaceAllString(s, "\n\n")

	return truncateRunes(s, maxDescriptionLen)
}

// truncateRunes cuts s at the byte limit without splitting a multibyte
// rune mid-sequence.
func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func pickFirstNonEmpty(values ...string) string {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			return v
		}
	}
	return ""
}

// humanDelay sleeps a random duration in [min,max) to avoid a machine-gun
// request cadence. fastMode quarters the window.
func humanDelay(ctx context.Context, minMs, maxMs int, fastMode bool) {
	if maxMs <= minMs {
		maxMs = minMs + 1
	}
	d := time.Duration(minMs+rand.Intn(maxMs-minMs)) * time.Millisecond
	if fastMode {
		d /= 4
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
