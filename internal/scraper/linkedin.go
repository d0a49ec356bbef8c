package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"autocv/internal/jobstore"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

const (
	linkedinBase      = "https://www.linkedin.com"
	linkedinSearchURL = linkedinBase + "/jobs/search/"
	linkedinLoginURL  = linkedinBase + "/login"
)

// Filters narrows a job search. Values use the human-readable names from
// the config; unknown values are ignored rather than rejected.
type Filters struct {
	ExperienceLevels []string
	JobTypes         []string
	Workplace        string
	DatePosted       string
}

// BuildSearchURL assembles the search page URL with LinkedIn's filter codes.
func BuildSearchURL(query, location string, f Filters) string {
	params := url.Values{}
	params.Set("keywords", strings.TrimSpace(query))
	if loc := strings.TrimSpace(location); loc != "" {
		params.Set("location", loc)
	}

	if codes := mapCodes(f.ExperienceLevels, experienceLevelCodes); len(codes) > 0 {
		params.Set("f_E", strings.Join(codes, ","))
	}
	if codes := mapCodes(f.JobTypes, jobTypeCodes); len(codes) > 0 {
		params.Set("f_JT", strings.Join(codes, ","))
	}
	if code, ok := workplaceCodes[normalizeFilter(f.Workplace)]; ok {
		params.Set("f_WT", code)
	}
	if code, ok := datePostedCodes[normalizeFilter(f.DatePosted)]; ok {
		params.Set("f_TPR", code)
	}

	return linkedinSearchURL + "?" + params.Encode()
}

func mapCodes(values []string, table map[string]string) []string {
	out := make([]string, 0, len(values))
	seen := map[string]bool{}
	for _, v := range values {
		code, ok := table[normalizeFilter(v)]
		if !ok || seen[code] {
			continue
		}
		seen[code] = true
		out = append(out, code)
	}
	return out
}

func normalizeFilter(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// LinkedInScraper drives a browser session through login, search and card
// extraction.
type LinkedInScraper struct {
	session *Session
	log     *zap.Logger
}

func NewLinkedInScraper(session *Session, log *zap.Logger) *LinkedInScraper {
	if log == nil {
		log = zap.NewNop()
	}
	return &LinkedInScraper{session: session, log: log}
}

// Login signs the browser session in. Returns (false, nil) when LinkedIn
// parks the session on a checkpoint or challenge page: that needs a human,
// it is not a program error.
func (s *LinkedInScraper) Login(ctx context.Context, email, password string) (bool, error) {
	if email == "" || password == "" {
		return false, fmt.Errorf("missing credentials")
	}

	err := s.session.Run(30*time.Second,
		chromedp.Navigate(linkedinLoginURL),
		chromedp.WaitVisible("#username", chromedp.ByID),
		chromedp.SendKeys("#username", email, chromedp.ByID),
		chromedp.SendKeys("#password", password, chromedp.ByID),
		chromedp.Click(`button[type="submit"]`, chromedp.ByQuery),
	)
	if err != nil {
		return false, fmt.Errorf("submit login form: %w", err)
	}

	humanDelay(ctx, s.session.cfg.MinDelayMs, s.session.cfg.MaxDelayMs, false)

	loc, err := s.session.CurrentURL()
	if err != nil {
		return false, err
	}
	for _, fragment := range verificationURLFragments {
		if strings.Contains(strings.ToLower(loc), fragment) {
			s.log.Warn("login needs manual verification", zap.String("url", loc))
			return false, nil
		}
	}

	err = s.session.Run(15*time.Second,
		chromedp.WaitVisible(".global-nav", chromedp.ByQuery),
	)
	if err != nil {
		s.log.Warn("feed navigation bar never appeared", zap.String("url", loc))
		return false, nil
	}
	s.log.Info("login successful")
	return true, nil
}

type card struct {
	Title    string `json:"title"`
	Company  string `json:"company"`
	Location string `json:"location"`
	URL      string `json:"url"`
}

// Search walks the result pages, extracting cards until limit is reached or
// the next button goes disabled.
func (s *LinkedInScraper) Search(ctx context.Context, query, location string, f Filters, limit int, maxPages int, fastMode bool) ([]jobstore.Posting, error) {
	if limit <= 0 {
		limit = 25
	}
	if maxPages <= 0 {
		maxPages = 3
	}

	searchURL := BuildSearchURL(query, location, f)
	s.log.Info("starting search", zap.String("url", searchURL), zap.Int("limit", limit))

	err := s.session.Run(45*time.Second,
		chromedp.Navigate(searchURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("open search page: %w", err)
	}

	seen := map[string]bool{}
	var out []jobstore.Posting

	for page := 1; page <= maxPages && len(out) < limit; page++ {
		humanDelay(ctx, s.session.cfg.MinDelayMs, s.session.cfg.MaxDelayMs, fastMode)
		if err := s.scrollResults(); err != nil {
			s.log.Warn("scroll failed", zap.Error(err))
		}

		cards, err := s.extractCards()
		if err != nil {
			return out, fmt.Errorf("extract cards on page %d: %w", page, err)
		}
		s.log.Info("page scraped", zap.Int("page", page), zap.Int("cards", len(cards)))

		for _, c := range cards {
			if len(out) >= limit {
				break
			}
			// A card without a title is navigation debris, skip it.
			if strings.TrimSpace(c.Title) == "" {
				continue
			}
			p := jobstore.Posting{
				Title:    strings.TrimSpace(c.Title),
				Company:  pickFirstNonEmpty(c.Company, "not specified"),
				Location: pickFirstNonEmpty(c.Location, "not specified"),
				URL:      absoluteURL(c.URL),
				Source:   "linkedin",
			}
			p.ID = jobstore.StableID(p.Title, p.Company, p.URL)
			if seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			out = append(out, p)
		}

		if len(out) >= limit || page == maxPages {
			break
		}
		advanced, err := s.nextPage()
		if err != nil {
			s.log.Warn("pagination failed, stopping", zap.Error(err))
			break
		}
		if !advanced {
			break
		}
	}

	return out, nil
}

// extractCards runs the per-field fallback lists inside the page. First
// matching selector wins for each field; title is mandatory.
func (s *LinkedInScraper) extractCards() ([]card, error) {
	cardsJSON, _ := json.Marshal(cardSelectors)
	titlesJSON, _ := json.Marshal(titleSelectors)
	companiesJSON, _ := json.Marshal(companySelectors)
	locationsJSON, _ := json.Marshal(locationSelectors)
	linksJSON, _ := json.Marshal(linkSelectors)

	script := fmt.Sprintf(`(() => {
		const cardSels = %s, titleSels = %s, companySels = %s, locationSels = %s, linkSels = %s;
		const pickText = (root, sels) => {
			for (const sel of sels) {
				const el = root.querySelector(sel);
				if (el && el.innerText && el.innerText.trim()) return el.innerText.trim();
			}
			return "";
		};
		const pickHref = (root, sels) => {
			for (const sel of sels) {
				const el = root.querySelector(sel);
				if (el && el.href) return el.href;
				if (el) {
					const a = el.closest('a');
					if (a && a.href) return a.href;
				}
			}
			return "";
		};
		let nodes = [];
		for (const sel of cardSels) {
			nodes = Array.from(document.querySelectorAll(sel));
			if (nodes.length > 0) break;
		}
		return nodes.map(n => ({
			title: pickText(n, titleSels),
			company: pickText(n, companySels),
			location: pickText(n, locationSels),
			url: pickHref(n, linkSels),
		}));
	})()`, cardsJSON, titlesJSON, companiesJSON, locationsJSON, linksJSON)

	var cards []card
	err := s.session.Run(20*time.Second, chromedp.EvaluateAsDevTools(script, &cards))
	if err != nil {
		return nil, err
	}
	return cards, nil
}

// scrollResults nudges the results pane so lazy cards render.
func (s *LinkedInScraper) scrollResults() error {
	for i := 0; i < 4; i++ {
		err := s.session.Run(5*time.Second,
			chromedp.EvaluateAsDevTools(
				`(() => {
					const pane = document.querySelector('.jobs-search-results-list') || document.scrollingElement;
					pane.scrollBy ? pane.scrollBy(0, 800) : window.scrollBy(0, 800);
					return true;
				})()`, new(bool)),
		)
		if err != nil {
			return err
		}
		time.Sleep(400 * time.Millisecond)
	}
	return nil
}

// nextPage clicks the pagination button. Returns false when the button is
// missing or disabled, which means the last page was reached.
func (s *LinkedInScraper) nextPage() (bool, error) {
	var advanced bool
	err := s.session.Run(15*time.Second,
		chromedp.EvaluateAsDevTools(
			`(() => {
				const btn = document.querySelector("button[aria-label='Next']")
					|| document.querySelector("button[aria-label='Siguiente']");
				if (!btn || btn.disabled) return false;
				btn.click();
				return true;
			})()`, &advanced),
	)
	if err != nil {
		return false, err
	}
	if advanced {
		err = s.session.Run(20*time.Second, chromedp.WaitReady("body", chromedp.ByQuery))
	}
	return advanced, err
}

func absoluteURL(u string) string {
	u = strings.TrimSpace(u)
	if u == "" {
		return ""
	}
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return stripTrackingParams(u)
	}
	if strings.HasPrefix(u, "/") {
		return linkedinBase + u
	}
	return u
}

// stripTrackingParams drops the query string from job links so the same
// posting always hashes to the same ID.
func stripTrackingParams(u string) string {
	if i := strings.IndexByte(u, '?'); i >= 0 {
		return u[:i]
	}
	return u
}
