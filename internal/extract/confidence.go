package extract

import (
	"net/url"
	"strings"
)

// Confidence scores an extraction for genericness: placeholder or empty
// fields suggest the extractor failed to find real content and escalation to
// a more expensive strategy is warranted.
//
// The bar is domain-sensitive. Sources known to render slowly or sparsely
// reliably under-deliver to the primary extractor, so they escalate on fewer
// indicators than generic sources do.
type Confidence struct {
	// SlowHosts get SlowThreshold; everyone else gets DefaultThreshold.
	SlowHosts []string
	// SlowThreshold defaults to 2 indicators.
	SlowThreshold int
	// DefaultThreshold defaults to 4 indicators.
	DefaultThreshold int
}

// GenericIndicators counts the fixed indicator set on r.
func (e *Confidence) GenericIndicators(r Result) int {
	n := 0
	if isPlaceholderTitle(r.Title) {
		n++
	}
	if isPlaceholderCompany(r.Company) {
		n++
	}
	if strings.TrimSpace(r.Description) == "" {
		n++
	}
	if r.Salary == "" || strings.EqualFold(r.Salary, NotSpecified) {
		n++
	}
	if r.Location == "" || strings.EqualFold(r.Location, NotSpecified) {
		n++
	}
	if len(r.TechSkills) == 0 {
		n++
	}
	if len(r.SoftSkills) == 0 {
		n++
	}
	if len(r.Requirements) == 0 {
		n++
	}
	if len(r.Benefits) == 0 {
		n++
	}
	return n
}

// IsGeneric reports whether r crosses the escalation threshold for its
// source host.
func (e *Confidence) IsGeneric(r Result) bool {
	return e.GenericIndicators(r) >= e.thresholdFor(r.SourceURL)
}

func (e *Confidence) thresholdFor(sourceURL string) int {
	slow := e.SlowThreshold
	if slow <= 0 {
		slow = 2
	}
	def := e.DefaultThreshold
	if def <= 0 {
		def = 4
	}
	u, err := url.Parse(sourceURL)
	if err != nil || u.Host == "" {
		return def
	}
	host := strings.ToLower(u.Hostname())
	for _, s := range e.SlowHosts {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if host == s || strings.HasSuffix(host, "."+s) {
			return slow
		}
	}
	return def
}

var genericTitles = map[string]struct{}{
	strings.ToLower(PlaceholderTitle): {},
	"software development position":   {},
	"position":                        {},
	"job":                             {},
	"professional position":           {},
}

var genericCompanies = map[string]struct{}{
	strings.ToLower(PlaceholderCompany): {},
	"innovative tech company":           {},
	"tech company":                      {},
}

func isPlaceholderTitle(title string) bool {
	_, ok := genericTitles[strings.ToLower(strings.TrimSpace(title))]
	return ok || strings.TrimSpace(title) == ""
}

func isPlaceholderCompany(company string) bool {
	_, ok := genericCompanies[strings.ToLower(strings.TrimSpace(company))]
	return ok || strings.TrimSpace(company) == ""
}
