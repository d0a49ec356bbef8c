package scraper

import "regexp"

// Selector fallback lists for the search results page. LinkedIn rotates its
// class names between logged-in, guest and A/B variants; each field tries
// the list in order and takes the first hit.
var (
	cardSelectors = []string{
		"div.job-card-container",
		"li.jobs-search-results__list-item",
		"div.base-card",
		"li.scaffold-layout__list-item",
	}

	titleSelectors = []string{
		"a.job-card-list__title",
		"h3.base-search-card__title",
		"a.job-card-container__link span[aria-hidden='true']",
		"a.job-card-container__link",
	}

	companySelectors = []string{
		"span.job-card-container__primary-description",
		"h4.base-search-card__subtitle",
		"a.job-card-container__company-name",
		"div.artdeco-entity-lockup__subtitle",
	}

	locationSelectors = []string{
		"li.job-card-container__metadata-item",
		"span.job-search-card__location",
		"div.artdeco-entity-lockup__caption",
	}

	linkSelectors = []string{
		"a.job-card-list__title",
		"a.base-card__full-link",
		"a.job-card-container__link",
	}
)

// Detail page containers holding the description, tried in order against the
// raw HTML of a posting.
var descriptionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)<div[^>]*class="[^"]*show-more-less-html__markup[^"]*"[^>]*>(.*?)</div>`),
	regexp.MustCompile(`(?is)<div[^>]*class="[^"]*description__text[^"]*"[^>]*>(.*?)</div>`),
	regexp.MustCompile(`(?is)<section[^>]*class="[^"]*core-section-container[^"]*description[^"]*"[^>]*>(.*?)</section>`),
	regexp.MustCompile(`(?is)<div[^>]*class="[^"]*jobs-description-content__text[^"]*"[^>]*>(.*?)</div>`),
}

// Browser-side selectors for the description fallback.
var descriptionSelectors = []string{
	"div.jobs-description-content__text",
	"div.show-more-less-html__markup",
	"div.description__text",
	"article.jobs-description__container",
}

// URLs that mean LinkedIn wants a human before letting the session through.
var verificationURLFragments = []string{
	"/checkpoint/",
	"/challenge/",
	"/uas/login-submit",
	"captcha",
}

// Search filter codes, straight from LinkedIn's query parameters.
var (
	experienceLevelCodes = map[string]string{
		"internship": "1",
		"entry":      "2",
		"associate":  "3",
		"mid-senior": "4",
		"director":   "5",
		"executive":  "6",
	}

	jobTypeCodes = map[string]string{
		"full-time":  "F",
		"part-time":  "P",
		"contract":   "C",
		"temporary":  "T",
		"volunteer":  "V",
		"internship": "I",
	}

	workplaceCodes = map[string]string{
		"onsite": "1",
		"remote": "2",
		"hybrid": "3",
	}

	datePostedCodes = map[string]string{
		"day":   "r86400",
		"week":  "r604800",
		"month": "r2592000",
	}
)
