package personalize

import (
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"strings"
)

var errNoJSON = errors.New("no JSON span in model output")

var scoreRe = regexp.MustCompile(`(\d{1,3})\s*%?`)

// defaultScore is used whenever the model response carries no usable number.
const defaultScore = 50

// extractJSONObject finds the outermost {...} span in raw model output and
// unmarshals it into v. Models often wrap JSON in prose or code fences.
func extractJSONObject(raw string, v any) error {
	return extractSpan(raw, '{', '}', v)
}

// extractJSONArray does the same for a [...] span.
func extractJSONArray(raw string, v any) error {
	return extractSpan(raw, '[', ']', v)
}

func extractSpan(raw string, opening, closing byte, v any) error {
	start := strings.IndexByte(raw, opening)
	end := strings.LastIndexByte(raw, closing)
	if start < 0 || end < start {
		return errNoJSON
	}
	return json.Unmarshal([]byte(raw[start:end+1]), v)
}

// parseScore pulls the first 1-3 digit number out of the response, clamped
// to [0,100]. Anything unusable falls back to the neutral default.
func parseScore(raw string) int {
	m := scoreRe.FindStringSubmatch(raw)
	if len(m) < 2 {
		return defaultScore
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return defaultScore
	}
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

// validPermutation reports whether idx is a permutation of 0..n-1.
func validPermutation(idx []int, n int) bool {
	if len(idx) != n {
		return false
	}
	seen := make([]bool, n)
	for _, i := range idx {
		if i < 0 || i >= n || seen[i] {
			return false
		}
		seen[i] = true
	}
	return true
}
