package extract

import (
	"strings"
	"testing"
	"time"

	"github.com/alinassarrr/remotelyx/internal/normalize"
)

func fixedNow() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func TestNormalizeSalary(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"dollar amount", "We pay $90,000 per year", "$90,000"},
		{"bare dollar", "$90,000", "$90,000"},
		{"k suffix", "offering 90k", "$90,000"},
		{"dollar k range", "Salary $90k - $110k DOE", "$90,000-$110,000"},
		{"labeled bare number", "compensation: 90000", "$90,000"},
		{"labeled range", "Salary: $70,000 - $95,000", "$70,000-$95,000"},
		{"k range without dollars", "paying 80k-100k", "$80,000-$100,000"},
		{"small number rejected", "a team of 5 engineers", "Not specified"},
		{"no figures", "competitive salary and great culture", "Not specified"},
		{"label inside word ignored", "payments team, no figures here", "Not specified"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeSalary(tc.in); got != tc.want {
				t.Fatalf("NormalizeSalary(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestHeuristic_TitleCompanyFromAtPhrase(t *testing.T) {
	h := &Heuristic{now: fixedNow}
	text := "Senior Backend Engineer at Acme Corp. Compensation: $120,000. Requires Python, AWS."
	r := h.Extract(normalize.Content{Text: text, SourceURL: "https://example.com/jobs/1"})

	if r.Title != "Senior Backend Engineer" {
		t.Fatalf("title = %q", r.Title)
	}
	if r.Company != "Acme Corp" {
		t.Fatalf("company = %q", r.Company)
	}
	if r.Salary != "$120,000" {
		t.Fatalf("salary = %q", r.Salary)
	}
	if r.Seniority != Senior {
		t.Fatalf("seniority = %q", r.Seniority)
	}
	if r.Method != MethodHeuristic {
		t.Fatalf("method = %q", r.Method)
	}
	wantTech := map[string]bool{"Python": false, "AWS": false}
	for _, s := range r.TechSkills {
		if _, ok := wantTech[s]; ok {
			wantTech[s] = true
		}
	}
	for s, found := range wantTech {
		if !found {
			t.Fatalf("tech skills %v missing %q", r.TechSkills, s)
		}
	}
	found := false
	for _, req := range r.Requirements {
		if req == "Python" {
			found = true
		}
	}
	if !found {
		t.Fatalf("requirements %v missing inline-required skill", r.Requirements)
	}
}

func TestHeuristic_LabeledFields(t *testing.T) {
	h := &Heuristic{now: fixedNow}
	text := strings.Join([]string{
		"Position: Data Analyst",
		"Company: Insight Labs",
		"Location: Berlin, Germany",
		"Posted: 2025-05-20",
		"We are looking for someone comfortable with SQL and Python.",
		"Requirements:",
		"- 3 years experience",
		"- SQL fluency",
		"Benefits:",
		"- Health insurance",
	}, "\n")
	r := h.Extract(normalize.Content{Text: text})

	if r.Title != "Data Analyst" {
		t.Fatalf("title = %q", r.Title)
	}
	if r.Company != "Insight Labs" {
		t.Fatalf("company = %q", r.Company)
	}
	if r.Location != "Berlin, Germany" {
		t.Fatalf("location = %q", r.Location)
	}
	if r.DatePosted != "2025-05-20" {
		t.Fatalf("datePosted = %q", r.DatePosted)
	}
	if len(r.Requirements) != 2 || r.Requirements[0] != "3 years experience" {
		t.Fatalf("requirements = %v", r.Requirements)
	}
	if len(r.Benefits) != 1 || r.Benefits[0] != "Health insurance" {
		t.Fatalf("benefits = %v", r.Benefits)
	}
}

func TestHeuristic_PlaceholdersOnEmptyText(t *testing.T) {
	h := &Heuristic{now: fixedNow}
	r := h.Extract(normalize.Content{Text: ""})

	if r.Title != PlaceholderTitle {
		t.Fatalf("title = %q, want placeholder", r.Title)
	}
	if r.Company != PlaceholderCompany {
		t.Fatalf("company = %q, want placeholder", r.Company)
	}
	if r.Salary != NotSpecified {
		t.Fatalf("salary = %q", r.Salary)
	}
	if r.Location != NotSpecified {
		t.Fatalf("location = %q", r.Location)
	}
	if !r.HasSkills() {
		t.Fatalf("skills invariant violated: %v / %v", r.TechSkills, r.SoftSkills)
	}
	if r.DatePosted != "2025-06-01" {
		t.Fatalf("datePosted = %q, want scrape date", r.DatePosted)
	}
}

func TestClassifySeniority(t *testing.T) {
	cases := []struct {
		title, text string
		want        Seniority
	}{
		{"Senior Engineer", "", Senior},
		{"Engineer", "looking for a principal-level contributor", Senior},
		{"Junior Developer", "", Junior},
		{"Developer", "entry-level role for recent graduates", Junior},
		{"Software Engineer", "a solid generalist role", Mid},
		// Title markers outrank body markers.
		{"Senior Engineer", "mentoring junior staff", Senior},
	}
	for _, tc := range cases {
		if got := ClassifySeniority(tc.title, tc.text); got != tc.want {
			t.Errorf("ClassifySeniority(%q, %q) = %q, want %q", tc.title, tc.text, got, tc.want)
		}
	}
}

func TestClassifyEmploymentType(t *testing.T) {
	cases := []struct {
		in   string
		want EmploymentType
	}{
		{"this is a part-time role", PartTime},
		{"summer internship program", Internship},
		{"6 month contract position", Contract},
		{"seasonal warehouse work", Temporary},
		{"permanent full-time position", FullTime},
		{"no type mentioned at all", FullTime},
	}
	for _, tc := range cases {
		if got := classifyEmploymentType(tc.in); got != tc.want {
			t.Errorf("classifyEmploymentType(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDisplaySkill(t *testing.T) {
	if got := DisplaySkill("aws"); got != "AWS" {
		t.Fatalf("aws -> %q", got)
	}
	if got := DisplaySkill("machine learning"); got != "Machine Learning" {
		t.Fatalf("machine learning -> %q", got)
	}
	if got := DisplaySkill("ci/cd"); got != "CI/CD" {
		t.Fatalf("ci/cd -> %q", got)
	}
}

func TestEnsureSkills_RoleCategorySeed(t *testing.T) {
	h := &Heuristic{now: fixedNow}
	r := Result{Title: "Backend Developer"}
	h.EnsureSkills(&r)
	if len(r.TechSkills) == 0 {
		t.Fatalf("expected role-seeded tech skills, got none")
	}
	has := false
	for _, s := range r.TechSkills {
		if s == "PostgreSQL" {
			has = true
		}
	}
	if !has {
		t.Fatalf("backend seed %v missing PostgreSQL", r.TechSkills)
	}
}

func TestSummarizeDescription_Caps(t *testing.T) {
	long := strings.Repeat("We are looking for a builder. ", 60)
	got := summarizeDescription(long)
	if len(got) > maxDescriptionChars+3 {
		t.Fatalf("description length %d exceeds cap", len(got))
	}
	if got == "" {
		t.Fatalf("expected non-empty description")
	}
}
