package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/rs/zerolog/log"

	"github.com/alinassarrr/remotelyx/internal/cache"
	"github.com/alinassarrr/remotelyx/internal/llm"
	"github.com/alinassarrr/remotelyx/internal/normalize"
)

const primarySystemMessage = "You are a job data extraction expert. Always return valid JSON with complete data."

// Primary sends normalized content to the local structured-extraction model
// and parses its response tolerantly. Missing or placeholder fields are
// back-filled by the heuristic sub-routines rather than left empty; that is
// a local repair step, not a full re-extraction.
type Primary struct {
	Client llm.Client
	Model  string
	// Cache, when non-nil, stores raw model responses keyed by model+prompt.
	Cache *cache.ExtractionCache
	// Heur provides the repair sub-routines and the skills invariant.
	Heur *Heuristic
	// Timeout bounds a single model call. Zero means caller-context only.
	Timeout time.Duration

	now func() time.Time
}

// wireResult is the tolerant decode target for the model's JSON payload.
type wireResult struct {
	Title          string   `json:"title"`
	Company        string   `json:"company"`
	Location       string   `json:"location"`
	EmploymentType string   `json:"employment_type"`
	Salary         string   `json:"salary"`
	DatePosted     string   `json:"date_posted"`
	Description    string   `json:"description"`
	TechSkills     []string `json:"tech_skills"`
	SoftSkills     []string `json:"soft_skills"`
	Requirements   []string `json:"requirements"`
	Benefits       []string `json:"benefits"`
	Seniority      string   `json:"seniority"`
}

// Extract runs one structured-extraction request. A response that cannot be
// parsed as JSON yields *ExtractionError so the caller can fall back to the
// heuristic extractor.
func (p *Primary) Extract(ctx context.Context, c normalize.Content) (Result, error) {
	if p.Client == nil || p.Model == "" {
		return Result{}, &ExtractionError{Model: p.Model, Err: errors.New("primary extractor not configured")}
	}
	prompt := buildPrimaryPrompt(c)

	raw, err := p.complete(ctx, prompt)
	if err != nil {
		return Result{}, &ExtractionError{Model: p.Model, Err: err}
	}
	wire, err := decodeModelJSON(raw)
	if err != nil {
		log.Debug().Str("model", p.Model).Err(err).Msg("primary response unparseable")
		return Result{}, &ExtractionError{Model: p.Model, Err: err}
	}

	r := p.fromWire(wire, c)
	p.repair(&r, c)
	return r, nil
}

func (p *Primary) complete(ctx context.Context, prompt string) (string, error) {
	key := cache.KeyFrom(p.Model, prompt)
	if p.Cache != nil {
		if b, ok, _ := p.Cache.Get(ctx, key); ok {
			return string(b), nil
		}
	}
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}
	resp, err := p.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: primarySystemMessage},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.1,
		N:           1,
	})
	if err != nil {
		return "", fmt.Errorf("primary call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices")
	}
	out := resp.Choices[0].Message.Content
	if p.Cache != nil {
		_ = p.Cache.Save(ctx, key, []byte(out))
	}
	return out, nil
}

// fromWire maps the tolerant wire shape onto the canonical result, cleaning
// enum-ish strings as it goes.
func (p *Primary) fromWire(w wireResult, c normalize.Content) Result {
	return Result{
		Title:          strings.TrimSpace(w.Title),
		Company:        strings.TrimSpace(w.Company),
		Location:       strings.TrimSpace(w.Location),
		EmploymentType: parseEmploymentType(w.EmploymentType),
		Seniority:      parseSeniority(w.Seniority),
		Salary:         strings.TrimSpace(w.Salary),
		Description:    strings.TrimSpace(w.Description),
		TechSkills:     dedupeKeepOrder(w.TechSkills, maxTechSkills),
		SoftSkills:     dedupeKeepOrder(w.SoftSkills, maxSoftSkills),
		Requirements:   dedupeKeepOrder(w.Requirements, 0),
		Benefits:       dedupeKeepOrder(w.Benefits, 0),
		DatePosted:     strings.TrimSpace(w.DatePosted),
		SourceURL:      c.SourceURL,
		Method:         MethodPrimaryModel,
		ScrapedAt:      p.timeNow(),
	}
}

// repair back-fills weak fields with heuristic sub-routines over the same
// normalized text. Each substitution is logged with the field that failed
// validation.
func (p *Primary) repair(r *Result, c normalize.Content) {
	h := p.heur()
	var probs []*ValidationError
	missing := func(field string) {
		probs = append(probs, &ValidationError{Field: field})
	}
	if r.Title == "" {
		r.Title, _ = titleAndCompany(c.Text)
		missing("title")
	}
	if r.Company == "" {
		_, r.Company = titleAndCompany(c.Text)
		missing("company")
	}
	if r.Location == "" {
		r.Location = extractLocation(c.Text)
		missing("location")
	}
	if r.Salary == "" || strings.EqualFold(r.Salary, NotSpecified) {
		r.Salary = NormalizeSalary(c.Text)
		missing("salary")
	} else if normalized := NormalizeSalary(r.Salary); normalized != NotSpecified {
		r.Salary = normalized
	}
	if len(r.Description) < 50 {
		r.Description = summarizeDescription(c.Text)
		missing("description")
	}
	if len(r.TechSkills) == 0 {
		r.TechSkills, _ = h.Skills(c.Text)
		missing("tech_skills")
	}
	if len(r.SoftSkills) == 0 {
		_, r.SoftSkills = h.Skills(c.Text)
		missing("soft_skills")
	}
	if r.DatePosted == "" {
		r.DatePosted = extractDatePosted(c.Text, p.timeNow())
	}
	h.EnsureSkills(r)
	if len(probs) > 0 {
		fields := make([]string, len(probs))
		for i, v := range probs {
			fields[i] = v.Field
		}
		log.Debug().Str("model", p.Model).Strs("fields", fields).Msg("repaired primary extraction")
	}
}

func (p *Primary) heur() *Heuristic {
	if p.Heur != nil {
		return p.Heur
	}
	return &Heuristic{}
}

func (p *Primary) timeNow() time.Time {
	if p.now != nil {
		return p.now()
	}
	return time.Now()
}

func buildPrimaryPrompt(c normalize.Content) string {
	var sb strings.Builder
	sb.WriteString(`Analyze this job posting and extract comprehensive information.

CRITICAL REQUIREMENTS:
- Extract ALL technical and soft skills mentioned
- Write a detailed 200-400 word description
- Find salary information (look for numbers, ranges, "k", "$")
- NEVER leave skills arrays empty

Return ONLY this JSON format:

{
    "title": "exact job title from posting",
    "company": "company name",
    "location": "job location or Remote",
    "employment_type": "Full-time/Part-time/Contract/Internship/Temporary",
    "salary": "salary amount like $50,000 or $40,000-$60,000 or Not specified",
    "date_posted": "posting date as YYYY-MM-DD",
    "description": "comprehensive description covering role, responsibilities, requirements, company info",
    "tech_skills": ["all languages, frameworks, tools, databases, cloud services mentioned"],
    "soft_skills": ["all interpersonal skills mentioned"],
    "requirements": ["qualifications and experience required"],
    "benefits": ["perks and benefits offered"],
    "seniority": "Junior/Mid/Senior based on experience required"
}

Job posting content:
`)
	sb.WriteString(c.Text)
	sb.WriteString("\n\nReturn ONLY the JSON object, no other text.")
	return sb.String()
}

// decodeModelJSON strips known wrapper markers, then parses as JSON. The two
// stages are deliberate: fence stripping is lossless, so a parse failure
// afterwards reports the model's actual payload problem.
func decodeModelJSON(raw string) (wireResult, error) {
	cleaned := StripFences(raw)
	var w wireResult
	if err := json.Unmarshal([]byte(cleaned), &w); err != nil {
		return wireResult{}, fmt.Errorf("parse model json: %w", err)
	}
	return w, nil
}

// StripFences removes markdown code-fence wrapping that chat models commonly
// add around JSON payloads.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func parseEmploymentType(s string) EmploymentType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "part-time", "part time", "parttime":
		return PartTime
	case "contract", "contractor", "freelance":
		return Contract
	case "internship", "intern":
		return Internship
	case "temporary", "seasonal":
		return Temporary
	default:
		return FullTime
	}
}

func parseSeniority(s string) Seniority {
	switch {
	case strings.Contains(strings.ToLower(s), "senior"):
		return Senior
	case strings.Contains(strings.ToLower(s), "junior"),
		strings.Contains(strings.ToLower(s), "entry"):
		return Junior
	default:
		return Mid
	}
}
