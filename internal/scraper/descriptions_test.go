package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"autocv/internal/jobstore"

	"go.uber.org/zap"
)

func TestFetchAllPreservesInputOrder(t *testing.T) {
	// Earlier jobs respond slower, so completion order is the reverse of
	// submission order. The output must still match the input.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var n int
		fmt.Sscanf(r.URL.Path, "/job/%d", &n)
		time.Sleep(time.Duration(50*(10-n)) * time.Millisecond)
		fmt.Fprintf(w, `<div class="show-more-less-html__markup">%s</div>`,
			strings.Repeat(fmt.Sprintf("Description for job %d. ", n), 5))
	}))
	defer srv.Close()

	jobs := make([]jobstore.Posting, 10)
	for i := range jobs {
		jobs[i] = jobstore.Posting{
			ID:    fmt.Sprintf("job%02d", i),
			Title: fmt.Sprintf("Job %d", i),
			URL:   fmt.Sprintf("%s/job/%d", srv.URL, i),
		}
	}

	f := NewDescriptionFetcher(nil, 4, zap.NewNop())
	out := f.FetchAll(context.Background(), jobs)

	if len(out) != len(jobs) {
		t.Fatalf("got %d results, want %d", len(out), len(jobs))
	}
	for i, p := range out {
		if p.ID != jobs[i].ID {
			t.Fatalf("position %d holds %s, want %s", i, p.ID, jobs[i].ID)
		}
		if !strings.Contains(p.Description, fmt.Sprintf("Description for job %d.", i)) {
			t.Fatalf("position %d has wrong description: %q", i, p.Description)
		}
	}
}

func TestFetchAllPlaceholderOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	jobs := []jobstore.Posting{
		{ID: "a", URL: srv.URL + "/missing"},
		{ID: "b", URL: ""},
	}
	f := NewDescriptionFetcher(nil, 2, zap.NewNop())
	out := f.FetchAll(context.Background(), jobs)

	for i, p := range out {
		if p.Description != descriptionUnavailable {
			t.Fatalf("job %d: got %q, want placeholder", i, p.Description)
		}
	}
}

func TestFetchAllShortContentFallsBackToPlaceholder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<div class="show-more-less-html__markup">too short</div>`)
	}))
	defer srv.Close()

	f := NewDescriptionFetcher(nil, 1, zap.NewNop())
	out := f.FetchAll(context.Background(), []jobstore.Posting{{ID: "a", URL: srv.URL}})

	if out[0].Description != descriptionUnavailable {
		t.Fatalf("short extraction without browser must yield placeholder, got %q", out[0].Description)
	}
}

// serialDOMFetcher fails the test if two fetches ever overlap, the way a
// real single-tab browser would cross-attribute pages.
type serialDOMFetcher struct {
	inflight int32
	overlaps int32
	calls    int32
}

func (f *serialDOMFetcher) FetchDescription(url string) (string, error) {
	if atomic.AddInt32(&f.inflight, 1) > 1 {
		atomic.AddInt32(&f.overlaps, 1)
	}
	time.Sleep(5 * time.Millisecond)
	atomic.AddInt32(&f.inflight, -1)
	atomic.AddInt32(&f.calls, 1)
	return strings.Repeat("Rendered description for "+url+". ", 5), nil
}

func TestBrowserFallbackIsSerializedAcrossWorkers(t *testing.T) {
	// Every HTTP fetch comes back short, so every worker needs the
	// browser fallback at the same time.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<div class="show-more-less-html__markup">short</div>`)
	}))
	defer srv.Close()

	jobs := make([]jobstore.Posting, 8)
	for i := range jobs {
		jobs[i] = jobstore.Posting{ID: fmt.Sprintf("j%d", i), URL: fmt.Sprintf("%s/job/%d", srv.URL, i)}
	}

	f := NewDescriptionFetcher(nil, 4, zap.NewNop())
	dom := &serialDOMFetcher{}
	f.dom = dom

	out := f.FetchAll(context.Background(), jobs)

	if got := atomic.LoadInt32(&dom.overlaps); got != 0 {
		t.Fatalf("browser fallback ran concurrently %d times", got)
	}
	if got := atomic.LoadInt32(&dom.calls); got != int32(len(jobs)) {
		t.Fatalf("fallback calls: got %d, want %d", got, len(jobs))
	}
	for i, p := range out {
		if !strings.Contains(p.Description, fmt.Sprintf("/job/%d", i)) {
			t.Fatalf("position %d holds another posting's description: %q", i, p.Description)
		}
	}
}

func TestFetchAllSequentialIsOneAtATime(t *testing.T) {
	var inflight, overlaps int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&inflight, 1) > 1 {
			atomic.AddInt32(&overlaps, 1)
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inflight, -1)

		var n int
		fmt.Sscanf(r.URL.Path, "/job/%d", &n)
		fmt.Fprintf(w, `<div class="show-more-less-html__markup">%s</div>`,
			strings.Repeat(fmt.Sprintf("Description for job %d. ", n), 5))
	}))
	defer srv.Close()

	jobs := make([]jobstore.Posting, 6)
	for i := range jobs {
		jobs[i] = jobstore.Posting{ID: fmt.Sprintf("j%d", i), URL: fmt.Sprintf("%s/job/%d", srv.URL, i)}
	}

	f := NewDescriptionFetcher(nil, 4, zap.NewNop())
	out := f.FetchAllSequential(context.Background(), jobs, 1, 2)

	if got := atomic.LoadInt32(&overlaps); got != 0 {
		t.Fatalf("sequential fetch overlapped %d times", got)
	}
	for i, p := range out {
		if p.ID != jobs[i].ID {
			t.Fatalf("position %d holds %s, want %s", i, p.ID, jobs[i].ID)
		}
		if !strings.Contains(p.Description, fmt.Sprintf("Description for job %d.", i)) {
			t.Fatalf("position %d has wrong description: %q", i, p.Description)
		}
	}
}

func TestExtractDescription(t *testing.T) {
	long := strings.Repeat("We build Go services. ", 10)
	html := fmt.Sprintf(`<html><body>
		<div class="nav">Menu &amp; junk</div>
		<div class="show-more-less-html__markup">
			<p>%s</p><ul><li>Ship features</li><li>Review code</li></ul>
		</div>
	</body></html>`, long)

	got := extractDescription(html)
	if !strings.Contains(got, "We build Go services.") {
		t.Fatalf("description body lost: %q", got)
	}
	if !strings.Contains(got, "Ship features") {
		t.Fatalf("list items lost: %q", got)
	}
	if strings.Contains(got, "<") {
		t.Fatalf("tags not stripped: %q", got)
	}
	if strings.Contains(got, "Menu") {
		t.Fatalf("matched outside the description container: %q", got)
	}
}

func TestExtractDescriptionPicksLongestContainer(t *testing.T) {
	long := strings.Repeat("Long variant content. ", 20)
	html := fmt.Sprintf(`
		<div class="description__text">Short variant here, fifty chars at least padding.</div>
		<div class="show-more-less-html__markup">%s</div>`, long)

	got := extractDescription(html)
	if !strings.Contains(got, "Long variant content.") {
		t.Fatalf("longest container must win, got %q", got)
	}
}

func TestCleanDescriptionTruncatesAndUnescapes(t *testing.T) {
	in := "<p>R&amp;D team</p>" + strings.Repeat("x", 2*maxDescriptionLen)
	got := cleanDescription(in)
	if len(got) > maxDescriptionLen {
		t.Fatalf("not truncated: %d chars", len(got))
	}
	if !strings.HasPrefix(got, "R&D team") {
		t.Fatalf("entity not unescaped: %q", got[:20])
	}
}

func TestTruncateRunesNeverSplitsARune(t *testing.T) {
	// "é" is two bytes, so an odd byte limit lands mid-rune.
	s := strings.Repeat("é", 100)
	for _, max := range []int{1, 2, 3, 50, 51, 199, 200} {
		got := truncateRunes(s, max)
		if len(got) > max {
			t.Fatalf("max %d: result is %d bytes", max, len(got))
		}
		if !utf8.ValidString(got) {
			t.Fatalf("max %d: truncation split a rune: %q", max, got)
		}
	}
}

func TestCleanDescriptionKeepsValidUTF8(t *testing.T) {
	in := strings.Repeat("Descripción del puesto. ", maxDescriptionLen)
	got := cleanDescription(in)
	if len(got) > maxDescriptionLen {
		t.Fatalf("not truncated: %d bytes", len(got))
	}
	if !utf8.ValidString(got) {
		t.Fatalf("truncation left invalid UTF-8 at the tail: %q", got[len(got)-8:])
	}
}
