package extract

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/rs/zerolog/log"

	"github.com/alinassarrr/remotelyx/internal/llm"
	"github.com/alinassarrr/remotelyx/internal/normalize"
	"github.com/alinassarrr/remotelyx/internal/vocab"
)

// Secondary escalates to a higher-capability remote model when the primary
// path produced a generic result or failed outright. It asks the model to
// infer implicit facts from context rather than match literal labels, and
// applies a final deterministic URL-derived repair pass when the model still
// comes back generic. Content problems never surface as errors; a non-nil
// error means the remote call itself failed.
type Secondary struct {
	Client llm.Client
	Model  string
	Vocab  *vocab.Tables
	// Timeout bounds a single model call.
	Timeout time.Duration

	now func() time.Time
}

const secondarySystemMessage = "You are an intelligent job data extraction AI. Read webpage content like a human recruiter and infer details from context. Always return valid JSON."

// Extract builds a maximal-context prompt from the full normalized text.
// content may be nil when fetch itself failed; the model then works from the
// URL alone.
func (s *Secondary) Extract(ctx context.Context, sourceURL string, content *normalize.Content) (*Result, error) {
	if s.Client == nil || s.Model == "" {
		return nil, errors.New("secondary extractor not configured")
	}
	prompt := s.buildPrompt(sourceURL, content)

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	resp, err := s.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: secondarySystemMessage},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.2,
		N:           1,
	})
	if err != nil {
		return nil, fmt.Errorf("secondary call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("no choices")
	}

	r := s.resultFrom(resp.Choices[0].Message.Content, sourceURL, content)
	return &r, nil
}

// resultFrom parses the model output, falling back to a URL-only result when
// the payload is unusable, then runs the deterministic enrichment pass.
func (s *Secondary) resultFrom(raw, sourceURL string, content *normalize.Content) Result {
	var r Result
	wire, err := decodeModelJSON(raw)
	if err != nil {
		log.Debug().Str("model", s.Model).Err(err).Msg("secondary response unparseable, using url-derived result")
		r = Result{SourceURL: sourceURL}
	} else {
		r = Result{
			Title:          strings.TrimSpace(wire.Title),
			Company:        strings.TrimSpace(wire.Company),
			Location:       strings.TrimSpace(wire.Location),
			EmploymentType: parseEmploymentType(wire.EmploymentType),
			Seniority:      parseSeniority(wire.Seniority),
			Salary:         strings.TrimSpace(wire.Salary),
			Description:    strings.TrimSpace(wire.Description),
			TechSkills:     dedupeKeepOrder(wire.TechSkills, maxTechSkills),
			SoftSkills:     dedupeKeepOrder(wire.SoftSkills, maxSoftSkills),
			Requirements:   dedupeKeepOrder(wire.Requirements, 0),
			Benefits:       dedupeKeepOrder(wire.Benefits, 0),
			DatePosted:     strings.TrimSpace(wire.DatePosted),
			SourceURL:      sourceURL,
		}
	}
	r.Method = MethodSecondaryModel
	r.ScrapedAt = s.timeNow()

	if isPlaceholderTitle(r.Title) || isPlaceholderCompany(r.Company) || !r.HasSkills() {
		s.enrichFromURL(&r, sourceURL)
	}
	if normalized := NormalizeSalary(r.Salary); normalized != NotSpecified {
		r.Salary = normalized
	}
	if r.Salary == "" || strings.EqualFold(r.Salary, NotSpecified) {
		r.Salary = salaryBandFor(r.Seniority)
	}
	if r.Location == "" {
		r.Location = NotSpecified
	}
	if r.DatePosted == "" {
		r.DatePosted = s.timeNow().Format("2006-01-02")
	}
	if !r.HasSkills() {
		r.SoftSkills = []string{"Communication", "Teamwork"}
	}
	return r
}

func (s *Secondary) buildPrompt(sourceURL string, content *normalize.Content) string {
	var sb strings.Builder
	sb.WriteString("Extract job posting details. Do not look for labels; analyze the content and infer meaning the way a recruiter would:\n")
	sb.WriteString("- Infer skills from responsibilities and technologies mentioned (\"building user interfaces\" implies frontend skills).\n")
	sb.WriteString("- Deduce seniority from the complexity and expectations described.\n")
	sb.WriteString("- Derive requirements from qualifications described, even when unlabeled.\n\n")
	sb.WriteString("URL: ")
	sb.WriteString(sourceURL)
	sb.WriteString("\n\nReturn ONLY this JSON format:\n")
	sb.WriteString(`{
    "title": "the role, understood from context",
    "company": "extracted or inferred from domain/context",
    "location": "inferred, or Remote",
    "employment_type": "Full-time/Part-time/Contract/Internship/Temporary",
    "salary": "any amount or range found, or Not specified",
    "date_posted": "YYYY-MM-DD if present",
    "description": "what this job actually entails",
    "tech_skills": ["inferred from technologies and platforms mentioned"],
    "soft_skills": ["deduced from team dynamics described"],
    "requirements": ["inferred from responsibilities and qualifications"],
    "benefits": ["deduced from culture and perks mentioned"],
    "seniority": "Junior/Mid/Senior"
}`)
	if content != nil && strings.TrimSpace(content.FullText) != "" {
		sb.WriteString("\n\nWebpage content to analyze:\n")
		sb.WriteString(content.FullText)
	} else {
		sb.WriteString("\n\nNo webpage content available. Extract what you can from the URL structure alone.")
	}
	return sb.String()
}

// --- URL-derived enrichment ---

// slugSkipWords are URL-path tokens with no title value.
var slugSkipWords = map[string]struct{}{
	"ft": {}, "pt": {}, "mm": {}, "doc": {}, "docs": {}, "mode": {},
	"job": {}, "jobs": {}, "position": {}, "role": {}, "www": {},
}

var alnumRe = regexp.MustCompile(`^[A-Za-z]+$`)

// enrichFromURL repairs a still-generic result from the URL itself: slug
// tokens become title words, role keywords map to skill lists, and seniority
// keywords set the level.
func (s *Secondary) enrichFromURL(r *Result, sourceURL string) {
	tokens := slugTokens(sourceURL)
	if len(tokens) == 0 {
		return
	}
	joined := strings.ToLower(strings.Join(tokens, " "))

	if isPlaceholderTitle(r.Title) {
		var words []string
		for _, t := range tokens {
			if _, skip := slugSkipWords[strings.ToLower(t)]; skip {
				continue
			}
			if len(t) < 2 || !alnumRe.MatchString(t) {
				continue
			}
			words = append(words, titleCaser.String(t))
			if len(words) == 4 {
				break
			}
		}
		if len(words) > 0 {
			r.Title = strings.Join(words, " ")
		}
	}

	if seniorRe.MatchString(joined) {
		r.Seniority = Senior
	} else if juniorRe.MatchString(joined) {
		r.Seniority = Junior
	}

	if len(r.TechSkills) == 0 {
		for category, skills := range s.tables().RoleSkills {
			if strings.Contains(joined, category) {
				r.TechSkills = append(r.TechSkills, skills...)
			}
		}
		r.TechSkills = dedupeKeepOrder(r.TechSkills, maxTechSkills)
	}
}

// slugTokens splits the last URL path segment on hyphens and underscores.
func slugTokens(sourceURL string) []string {
	u, err := url.Parse(sourceURL)
	if err != nil || u.Path == "" {
		return nil
	}
	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segs) == 0 {
		return nil
	}
	last := segs[len(segs)-1]
	return strings.FieldsFunc(last, func(r rune) bool {
		return r == '-' || r == '_'
	})
}

// salaryBandFor maps seniority to a market-typical band, the last-resort
// salary repair when neither content nor URL yields a figure.
func salaryBandFor(s Seniority) string {
	switch s {
	case Senior:
		return "$100,000-$180,000"
	case Junior:
		return "$50,000-$80,000"
	default:
		return "$70,000-$120,000"
	}
}

func (s *Secondary) tables() *vocab.Tables {
	if s.Vocab != nil {
		return s.Vocab
	}
	return vocab.Default()
}

func (s *Secondary) timeNow() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}
