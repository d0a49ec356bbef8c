package scraper

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"autocv/internal/jobstore"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

const guestSearchURL = linkedinBase + "/jobs-guest/jobs/api/seeMoreJobPostings/search"

// PublicScraper queries LinkedIn's guest job search, which serves plain
// server-rendered cards without a login. Used when no browser is available.
type PublicScraper struct {
	log *zap.Logger
}

func NewPublicScraper(log *zap.Logger) *PublicScraper {
	if log == nil {
		log = zap.NewNop()
	}
	return &PublicScraper{log: log}
}

// Search pulls result pages 25 cards at a time until limit.
func (s *PublicScraper) Search(ctx context.Context, query, location string, f Filters, limit int) ([]jobstore.Posting, error) {
	if limit <= 0 {
		limit = 25
	}

	c := colly.NewCollector(
		colly.AllowedDomains("www.linkedin.com", "linkedin.com"),
		colly.UserAgent(userAgent),
	)
	c.SetRequestTimeout(20 * time.Second)
	_ = c.Limit(&colly.LimitRule{
		DomainGlob:  "*linkedin.*",
		Parallelism: 1,
		RandomDelay: 2 * time.Second,
	})

	seen := map[string]bool{}
	var out []jobstore.Posting
	var scrapeErr error

	c.OnHTML("div.base-card, li", func(e *colly.HTMLElement) {
		if len(out) >= limit {
			return
		}
		title := pickFirstNonEmpty(
			e.ChildText("h3.base-search-card__title"),
			e.ChildText("a.base-card__full-link"),
		)
		if title == "" {
			return
		}
		link := pickFirstNonEmpty(
			e.ChildAttr("a.base-card__full-link", "href"),
			e.ChildAttr("a", "href"),
		)
		p := jobstore.Posting{
			Title:    title,
			Company:  pickFirstNonEmpty(e.ChildText("h4.base-search-card__subtitle"), "not specified"),
			Location: pickFirstNonEmpty(e.ChildText("span.job-search-card__location"), "not specified"),
			URL:      absoluteURL(link),
			Source:   "linkedin",
		}
		p.ID = jobstore.StableID(p.Title, p.Company, p.URL)
		if seen[p.ID] {
			return
		}
		seen[p.ID] = true
		out = append(out, p)
	})

	c.OnError(func(r *colly.Response, err error) {
		scrapeErr = fmt.Errorf("guest search request failed (status %d): %w", r.StatusCode, err)
	})

	for start := 0; len(out) < limit; start += 25 {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		before := len(out)
		if err := c.Visit(s.pageURL(query, location, f, start)); err != nil {
			if len(out) > 0 {
				break
			}
			return nil, err
		}
		c.Wait()
		if scrapeErr != nil && len(out) == 0 {
			return nil, scrapeErr
		}
		// No new cards means the result set is exhausted.
		if len(out) == before {
			break
		}
	}

	s.log.Info("guest search complete", zap.String("query", query), zap.Int("jobs", len(out)))
	return out, nil
}

func (s *PublicScraper) pageURL(query, location string, f Filters, start int) string {
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
	params.Set("start", fmt.Sprintf("%d", start))
	return guestSearchURL + "?" + params.Encode()
}
