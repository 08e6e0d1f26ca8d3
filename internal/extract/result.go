package extract

import (
	"strings"
	"time"
)

// EmploymentType is the coarse contract classification of a posting.
type EmploymentType string

const (
	FullTime   EmploymentType = "Full-time"
	PartTime   EmploymentType = "Part-time"
	Contract   EmploymentType = "Contract"
	Internship EmploymentType = "Internship"
	Temporary  EmploymentType = "Temporary"
)

// Seniority is the experience-level classification inferred from title and
// description text.
type Seniority string

const (
	Junior Seniority = "Junior"
	Mid    Seniority = "Mid"
	Senior Seniority = "Senior"
)

// Method records which extraction strategy produced a result, so downstream
// consumers can tell degraded output from a full model extraction.
type Method string

const (
	MethodHeuristic         Method = "heuristic"
	MethodPrimaryModel      Method = "primary_model"
	MethodSecondaryModel    Method = "secondary_model"
	MethodHeuristicFallback Method = "heuristic_fallback"
)

// Placeholder values substituted when a field cannot be recovered by any
// strategy. Downstream consumers detect these to spot degraded records.
const (
	PlaceholderTitle   = "Job Position"
	PlaceholderCompany = "Company"
	NotSpecified       = "Not specified"
)

// Result is the canonical output shape of every extractor variant.
type Result struct {
	Title          string         `json:"title"`
	Company        string         `json:"company"`
	Location       string         `json:"location"`
	EmploymentType EmploymentType `json:"employment_type"`
	Seniority      Seniority      `json:"seniority"`
	// Salary is free text normalized to "$X" or "$X-$Y" when numeric, or
	// NotSpecified when nothing was found.
	Salary       string    `json:"salary"`
	Description  string    `json:"description"`
	TechSkills   []string  `json:"tech_skills"`
	SoftSkills   []string  `json:"soft_skills"`
	Requirements []string  `json:"requirements"`
	Benefits     []string  `json:"benefits"`
	DatePosted   string    `json:"date_posted"`
	SourceURL    string    `json:"job_link"`
	Method       Method    `json:"extraction_method"`
	ScrapedAt    time.Time `json:"scraped_at"`
}

// HasSkills reports whether the non-empty-skills invariant holds.
func (r *Result) HasSkills() bool {
	return len(r.TechSkills) > 0 || len(r.SoftSkills) > 0
}

// dedupeKeepOrder removes case-insensitive duplicates, preserving first
// occurrence, and caps the list at max entries (0 means no cap).
func dedupeKeepOrder(in []string, max int) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
		if max > 0 && len(out) == max {
			break
		}
	}
	return out
}
