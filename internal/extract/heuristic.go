package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/alinassarrr/remotelyx/internal/normalize"
	"github.com/alinassarrr/remotelyx/internal/vocab"
)

// Heuristic is the deterministic, dictionary-based extractor. It is the only
// extractor guaranteed to terminate without external calls, and the last line
// of defense: it never fails, degrading to placeholder values instead.
type Heuristic struct {
	Vocab *vocab.Tables

	// now is a test seam for ScrapedAt/DatePosted.
	now func() time.Time
}

// maxTechSkills and maxSoftSkills cap the matched vocabulary lists.
const (
	maxTechSkills = 15
	maxSoftSkills = 10
)

const maxDescriptionChars = 500

// Extract pulls every field it can from the normalized text using labeled
// regexes, ordered fallbacks, and the vocabulary tables.
func (h *Heuristic) Extract(c normalize.Content) Result {
	text := c.Text
	title, company := titleAndCompany(text)
	desc := summarizeDescription(text)

	r := Result{
		Title:          title,
		Company:        company,
		Location:       extractLocation(text),
		EmploymentType: classifyEmploymentType(text),
		Seniority:      ClassifySeniority(title, text),
		Salary:         NormalizeSalary(text),
		Description:    desc,
		Requirements:   extractSection(text, requirementLabels),
		Benefits:       extractSection(text, benefitLabels),
		DatePosted:     extractDatePosted(text, h.timeNow()),
		SourceURL:      c.SourceURL,
		Method:         MethodHeuristic,
		ScrapedAt:      h.timeNow(),
	}
	r.TechSkills, r.SoftSkills = h.Skills(text)
	h.EnsureSkills(&r)
	return r
}

// Skills runs the vocabulary membership pass over the text. Matching is
// case-insensitive substring; results are deduplicated and capped.
func (h *Heuristic) Skills(text string) (tech, soft []string) {
	lower := strings.ToLower(text)
	for _, s := range h.tables().TechSkills {
		if strings.Contains(lower, s) {
			tech = append(tech, DisplaySkill(s))
		}
	}
	for _, s := range h.tables().SoftSkills {
		if strings.Contains(lower, s) {
			soft = append(soft, DisplaySkill(s))
		}
	}
	return dedupeKeepOrder(tech, maxTechSkills), dedupeKeepOrder(soft, maxSoftSkills)
}

// EnsureSkills enforces the non-empty-skills invariant on r. When both sets
// are empty it seeds skills from the role category of the title, and failing
// that a minimal soft-skill set. The seeded set marks degraded confidence
// rather than hiding the miss.
func (h *Heuristic) EnsureSkills(r *Result) {
	if r.HasSkills() {
		return
	}
	titleLower := strings.ToLower(r.Title)
	for category, skills := range h.tables().RoleSkills {
		if strings.Contains(titleLower, category) {
			r.TechSkills = dedupeKeepOrder(skills, maxTechSkills)
			return
		}
	}
	r.SoftSkills = []string{"Communication", "Teamwork"}
}

func (h *Heuristic) tables() *vocab.Tables {
	if h.Vocab != nil {
		return h.Vocab
	}
	return vocab.Default()
}

func (h *Heuristic) timeNow() time.Time {
	if h.now != nil {
		return h.now()
	}
	return time.Now()
}

// acronymSkills render fully upper-cased; everything else is title-cased.
var acronymSkills = map[string]struct{}{
	"aws": {}, "gcp": {}, "sql": {}, "html": {}, "css": {}, "php": {},
	"api": {}, "rest": {}, "ai": {}, "ci/cd": {}, "graphql": {},
}

var titleCaser = cases.Title(language.English)

// DisplaySkill normalizes a vocabulary entry for presentation.
func DisplaySkill(s string) string {
	if _, ok := acronymSkills[strings.ToLower(s)]; ok {
		return strings.ToUpper(s)
	}
	return titleCaser.String(s)
}

// --- title / company ---

var (
	labeledTitleRe   = regexp.MustCompile(`(?im)^(?:position|role|job title|title)\s*:\s*(.+)$`)
	labeledCompanyRe = regexp.MustCompile(`(?im)^(?:company|organization|employer)\s*:\s*(.+)$`)

	// "Senior Backend Engineer at Acme Corp." — role phrase followed by an
	// employer, stopping the employer at the first sentence boundary.
	titleAtCompanyRe = regexp.MustCompile(`([A-Z][A-Za-z0-9+#/ -]{1,60}?(?:Developer|Engineer|Manager|Designer|Analyst|Architect|Consultant|Specialist|Scientist|Intern|Lead))\s+at\s+([A-Z][A-Za-z0-9& -]{1,40}?)(?:[.,\n]|$)`)

	roleKeywordRe = regexp.MustCompile(`(?i)\b(developer|engineer|manager|designer|analyst|architect|consultant|specialist|scientist|intern|lead)\b`)

	corporateSuffixRe = regexp.MustCompile(`(?:at|with|join|for)\s+([A-Z][A-Za-z& ]+(?:Inc|LLC|Ltd|Corp|Company|Tech|Solutions|Systems))\b`)
)

func titleAndCompany(text string) (title, company string) {
	if m := labeledTitleRe.FindStringSubmatch(text); m != nil {
		title = strings.TrimSpace(m[1])
	}
	if m := labeledCompanyRe.FindStringSubmatch(text); m != nil {
		company = strings.TrimSpace(m[1])
	}
	if title == "" || company == "" {
		if m := titleAtCompanyRe.FindStringSubmatch(text); m != nil {
			if title == "" {
				title = strings.TrimSpace(m[1])
			}
			if company == "" {
				company = strings.TrimSpace(m[2])
			}
		}
	}
	if title == "" {
		// First heading-like line mentioning a role keyword.
		for _, line := range strings.Split(text, "\n") {
			line = strings.TrimSpace(line)
			if len(line) > 2 && len(line) < 80 && roleKeywordRe.MatchString(line) {
				title = line
				break
			}
		}
	}
	if company == "" {
		if m := corporateSuffixRe.FindStringSubmatch(text); m != nil {
			company = strings.TrimSpace(m[1])
		}
	}
	if title == "" {
		title = PlaceholderTitle
	}
	if company == "" {
		company = PlaceholderCompany
	}
	return title, company
}

// --- location ---

var labeledLocationRe = regexp.MustCompile(`(?im)^(?:location|address|based in)\s*:\s*(.+)$`)

func extractLocation(text string) string {
	if m := labeledLocationRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	if regexp.MustCompile(`(?i)\b(?:fully\s+)?remote\b`).MatchString(text) {
		return "Remote"
	}
	return NotSpecified
}

// --- salary ---

type salaryPattern struct {
	re *regexp.Regexp
	// groups: min amount, min k-flag, max amount, max k-flag
	min, minK, max, maxK int
}

// salaryCascade is checked in order; the first pattern that yields a sane
// amount wins. Label-prefixed amounts outrank bare dollar figures so a
// "Compensation:" line beats an unrelated number earlier in the page.
var salaryCascade = []salaryPattern{
	{re: regexp.MustCompile(`(?i)\b(?:salary|compensation|pay|budget)\b\s*(?:of|is|:)?\s*\$?(\d{1,3}(?:,\d{3})+|\d+)\s*([kK])?(?:\s*[-–]\s*\$?(\d{1,3}(?:,\d{3})+|\d+)\s*([kK])?)?`),
		min: 1, minK: 2, max: 3, maxK: 4},
	{re: regexp.MustCompile(`\$(\d{1,3}(?:,\d{3})+|\d+)\s*([kK])?\s*[-–]\s*\$?(\d{1,3}(?:,\d{3})+|\d+)\s*([kK])?`),
		min: 1, minK: 2, max: 3, maxK: 4},
	{re: regexp.MustCompile(`\b(\d{2,3})([kK])\s*[-–]\s*(\d{2,3})([kK])\b`),
		min: 1, minK: 2, max: 3, maxK: 4},
	{re: regexp.MustCompile(`\$(\d{1,3}(?:,\d{3})+|\d+)\s*([kK])?`),
		min: 1, minK: 2},
	{re: regexp.MustCompile(`\b(\d{2,3})([kK])\b`),
		min: 1, minK: 2},
}

// NormalizeSalary finds the first salary-like figure in the text and returns
// it as "$X" or "$X-$Y" with comma grouping, or NotSpecified. k-suffixed
// integers are scaled by 1000; amounts below 100 are rejected as noise.
func NormalizeSalary(text string) string {
	for _, p := range salaryCascade {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		minAmt, ok := parseAmount(m[p.min], p.minK > 0 && m[p.minK] != "")
		if !ok {
			continue
		}
		if p.max > 0 && p.max < len(m) && m[p.max] != "" {
			maxAmt, ok := parseAmount(m[p.max], p.maxK > 0 && m[p.maxK] != "")
			if ok {
				return formatAmount(minAmt) + "-" + formatAmount(maxAmt)
			}
		}
		return formatAmount(minAmt)
	}
	return NotSpecified
}

func parseAmount(s string, kSuffix bool) (int, bool) {
	n, err := strconv.Atoi(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return 0, false
	}
	if kSuffix {
		n *= 1000
	}
	if n < 100 {
		return 0, false
	}
	return n, true
}

func formatAmount(n int) string {
	s := strconv.Itoa(n)
	var b strings.Builder
	b.WriteByte('$')
	lead := len(s) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(s[:lead])
	for i := lead; i < len(s); i += 3 {
		b.WriteByte(',')
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// --- seniority ---

var (
	seniorRe = regexp.MustCompile(`(?i)\b(senior|lead|principal|staff|expert)\b`)
	juniorRe = regexp.MustCompile(`(?i)\b(junior|entry[ -]?level|graduate|intern|trainee)\b`)
)

// ClassifySeniority inspects the title first, then the body text. Senior
// markers outrank junior markers; everything else is Mid.
func ClassifySeniority(title, text string) Seniority {
	for _, s := range []string{title, text} {
		if seniorRe.MatchString(s) {
			return Senior
		}
		if juniorRe.MatchString(s) {
			return Junior
		}
	}
	return Mid
}

// --- employment type ---

var employmentKeywords = []struct {
	t  EmploymentType
	re *regexp.Regexp
}{
	{PartTime, regexp.MustCompile(`(?i)part[ -]?time`)},
	{Internship, regexp.MustCompile(`(?i)\b(intern|internship|trainee)\b`)},
	{Contract, regexp.MustCompile(`(?i)\b(contract|contractor|freelance|consultant)\b`)},
	{Temporary, regexp.MustCompile(`(?i)\b(temporary|seasonal|interim)\b`)},
	{FullTime, regexp.MustCompile(`(?i)full[ -]?time|permanent`)},
}

func classifyEmploymentType(text string) EmploymentType {
	for _, k := range employmentKeywords {
		if k.re.MatchString(text) {
			return k.t
		}
	}
	return FullTime
}

// --- requirements / benefits sections ---

var (
	requirementLabels = regexp.MustCompile(`(?i)^(?:requirements|qualifications|what you(?:'|’)?ll need|must have)\s*:?\s*$`)
	benefitLabels     = regexp.MustCompile(`(?i)^(?:benefits|perks|what we offer|we offer)\s*:?\s*$`)
	bulletRe          = regexp.MustCompile(`^[-•*·]\s*(.+)$`)
	sectionBreakRe    = regexp.MustCompile(`(?i)^[a-z ]{3,40}:?$`)
	requiresInlineRe  = regexp.MustCompile(`(?i)\brequires?\s*:?\s+([^.\n]+)`)
)

// extractSection collects the bullet lines that follow a labeled heading,
// falling back to inline "Requires X, Y" phrasing for requirements.
func extractSection(text string, label *regexp.Regexp) []string {
	lines := strings.Split(text, "\n")
	var out []string
	inSection := false
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if label.MatchString(line) {
			inSection = true
			continue
		}
		if !inSection {
			continue
		}
		if m := bulletRe.FindStringSubmatch(line); m != nil {
			out = append(out, strings.TrimSpace(m[1]))
			continue
		}
		// Bullet-less sections: short plain lines still count until the
		// next heading-like line.
		if len(out) == 0 && line != "" && !sectionBreakRe.MatchString(line) && len(line) < 120 {
			out = append(out, line)
			continue
		}
		inSection = false
	}
	if len(out) == 0 && label == requirementLabels {
		if m := requiresInlineRe.FindStringSubmatch(text); m != nil {
			for _, part := range regexp.MustCompile(`,|\band\b`).Split(m[1], -1) {
				part = strings.TrimSpace(part)
				if part != "" {
					out = append(out, part)
				}
			}
		}
	}
	return dedupeKeepOrder(out, 0)
}

// --- date posted ---

var datePostedRe = regexp.MustCompile(`(?i)(?:posted|published|created)\s*(?:on\s*)?:?\s*(\d{4}-\d{2}-\d{2})`)

func extractDatePosted(text string, now time.Time) string {
	if m := datePostedRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return now.Format("2006-01-02")
}

// --- description ---

var keyPhraseRe = regexp.MustCompile(`(?i)\b(we are looking for|seeking a|join our team|you will|responsible for|requirements|qualifications|experience|skills)\b`)

// summarizeDescription prefers sentences carrying role-indicating phrases,
// then pads with substantial lines, capped at maxDescriptionChars.
func summarizeDescription(text string) string {
	if text == "" {
		return ""
	}
	var parts []string
	total := 0
	appendPart := func(s string) bool {
		s = strings.TrimSpace(s)
		if s == "" || total+len(s) > maxDescriptionChars {
			return total <= maxDescriptionChars
		}
		parts = append(parts, s)
		total += len(s) + 2
		return true
	}
	sentences := strings.Split(text, ".")
	for _, s := range sentences {
		if keyPhraseRe.MatchString(s) {
			if !appendPart(s) {
				break
			}
		}
	}
	if len(parts) == 0 {
		for _, line := range strings.Split(text, "\n") {
			line = strings.TrimSpace(line)
			if len(line) > 20 && line != strings.ToUpper(line) {
				if !appendPart(line) {
					break
				}
			}
		}
	}
	if len(parts) == 0 {
		if len(text) > maxDescriptionChars {
			return text[:maxDescriptionChars] + "..."
		}
		return text
	}
	out := strings.Join(parts, ". ")
	if !strings.HasSuffix(out, ".") {
		out += "."
	}
	return out
}
