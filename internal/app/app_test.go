package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/alinassarrr/remotelyx/internal/extract"
	"github.com/alinassarrr/remotelyx/internal/fetch"
	"github.com/alinassarrr/remotelyx/internal/reconcile"
	"github.com/alinassarrr/remotelyx/internal/store"
)

const postingHTML = `<html><body>
<h1>Senior Backend Engineer at Acme Corp.</h1>
<p>Compensation: $120,000. Requires Python, AWS.</p>
</body></html>`

type fakeBrowser struct {
	html  string
	err   error
	calls int
}

func (b *fakeBrowser) Render(ctx context.Context, url string, profile fetch.Profile) (string, error) {
	b.calls++
	if b.err != nil {
		return "", b.err
	}
	return b.html, nil
}

// countingClient returns the same canned response for every call.
type countingClient struct {
	response string
	err      error
	calls    int
}

func (c *countingClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	c.calls++
	if c.err != nil {
		return openai.ChatCompletionResponse{}, c.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: c.response},
		}},
	}, nil
}

const richResponse = `{
    "title": "Senior Backend Engineer",
    "company": "Acme Corp",
    "location": "Remote",
    "salary": "$120,000",
    "description": "Own the billing services end to end, from schema design through deployment and on-call.",
    "tech_skills": ["Python", "AWS"],
    "soft_skills": ["Communication"],
    "requirements": ["5 years backend experience"],
    "benefits": ["Health insurance"],
    "seniority": "Senior"
}`

const genericResponse = `{
    "title": "Job Position",
    "company": "Company",
    "location": "Not specified",
    "salary": "Not specified",
    "description": "",
    "tech_skills": [],
    "soft_skills": [],
    "requirements": [],
    "benefits": []
}`

func testApp(browser fetch.Browser, primary, secondary *countingClient) (*App, *store.Memory) {
	mem := store.NewMemory()
	heur := &extract.Heuristic{}
	a := &App{
		cfg: Config{Concurrency: 2},
		fetcher: &fetch.Fetcher{
			Browser:         browser,
			MinContentChars: 1,
			Backoff:         time.Millisecond,
		},
		primary:    &extract.Primary{Client: primary, Model: "local-extract", Heur: heur},
		heuristic:  heur,
		confidence: &extract.Confidence{SlowHosts: []string{"gamma.app"}},
		reconciler: reconcile.New(mem),
		store:      mem,
	}
	if secondary != nil {
		a.secondary = &extract.Secondary{Client: secondary, Model: "remote-large"}
	}
	return a, mem
}

func TestNew_BoundsModelCallsWithTimeouts(t *testing.T) {
	a, err := New(context.Background(), Config{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer a.Close()
	if a.primary.Timeout != DefaultPrimaryTimeout {
		t.Fatalf("primary timeout = %v, want default %v", a.primary.Timeout, DefaultPrimaryTimeout)
	}
	if a.secondary != nil {
		t.Fatalf("secondary should be disabled without a model name")
	}

	b, err := New(context.Background(), Config{
		SecondaryModel:   "remote-large",
		PrimaryTimeout:   5 * time.Second,
		SecondaryTimeout: 7 * time.Second,
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer b.Close()
	if b.primary.Timeout != 5*time.Second {
		t.Fatalf("primary timeout = %v", b.primary.Timeout)
	}
	if b.secondary == nil || b.secondary.Timeout != 7*time.Second {
		t.Fatalf("secondary timeout not threaded: %+v", b.secondary)
	}
}

func TestProcess_StoresExtractedJob(t *testing.T) {
	primary := &countingClient{response: richResponse}
	a, mem := testApp(&fakeBrowser{html: postingHTML}, primary, nil)

	sum, err := a.Process(context.Background(), []string{"https://example.com/jobs/1"})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if sum.Stored != 1 || sum.Failed != 0 {
		t.Fatalf("summary = %+v", sum)
	}
	recs := mem.All()
	if len(recs) != 1 {
		t.Fatalf("stored %d records", len(recs))
	}
	rec := recs[0]
	if rec.Title != "Senior Backend Engineer" || rec.Company != "Acme Corp" {
		t.Fatalf("got %q at %q", rec.Title, rec.Company)
	}
	if rec.Salary != "$120,000" {
		t.Fatalf("salary = %q", rec.Salary)
	}
	if rec.Seniority != extract.Senior {
		t.Fatalf("seniority = %q", rec.Seniority)
	}
	for _, want := range []string{"Python", "AWS"} {
		found := false
		for _, s := range rec.TechSkills {
			if s == want {
				found = true
			}
		}
		if !found {
			t.Fatalf("tech skills %v missing %q", rec.TechSkills, want)
		}
	}
	if rec.Method != extract.MethodPrimaryModel {
		t.Fatalf("method = %q", rec.Method)
	}
	if rec.Status != store.StatusNew {
		t.Fatalf("status = %q", rec.Status)
	}
}

func TestProcess_PrimaryFailureFallsBackToHeuristic(t *testing.T) {
	primary := &countingClient{response: "not json at all"}
	a, mem := testApp(&fakeBrowser{html: postingHTML}, primary, nil)

	sum, err := a.Process(context.Background(), []string{"https://example.com/jobs/2"})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if sum.Stored != 1 {
		t.Fatalf("summary = %+v", sum)
	}
	rec := mem.All()[0]
	if rec.Method != extract.MethodHeuristicFallback {
		t.Fatalf("method = %q, want heuristic fallback", rec.Method)
	}
	// The heuristic still recovers the labeled facts.
	if rec.Title != "Senior Backend Engineer" {
		t.Fatalf("title = %q", rec.Title)
	}
	if rec.Salary != "$120,000" {
		t.Fatalf("salary = %q", rec.Salary)
	}
}

func TestProcess_GenericResultEscalatesOnce(t *testing.T) {
	primary := &countingClient{response: genericResponse}
	secondary := &countingClient{response: richResponse}
	// Sparse page so the heuristic repair cannot fill the gaps.
	html := "<html><body>" + strings.Repeat("<p>nothing here</p>", 5) + "</body></html>"
	a, mem := testApp(&fakeBrowser{html: html}, primary, secondary)

	sum, err := a.Process(context.Background(), []string{"https://acme.gamma.app/posting"})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if sum.Escalated != 1 {
		t.Fatalf("summary = %+v, want one escalation", sum)
	}
	if secondary.calls != 1 {
		t.Fatalf("secondary called %d times, want exactly 1", secondary.calls)
	}
	rec := mem.All()[0]
	if rec.Method != extract.MethodSecondaryModel {
		t.Fatalf("method = %q", rec.Method)
	}
	if rec.Title != "Senior Backend Engineer" {
		t.Fatalf("title = %q", rec.Title)
	}
}

func TestProcess_EscalationFailureKeepsPrimaryResult(t *testing.T) {
	primary := &countingClient{response: genericResponse}
	secondary := &countingClient{err: errors.New("gateway timeout")}
	html := "<html><body><p>nothing here</p></body></html>"
	a, mem := testApp(&fakeBrowser{html: html}, primary, secondary)

	sum, err := a.Process(context.Background(), []string{"https://acme.gamma.app/posting"})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if sum.Stored != 1 || sum.Escalated != 1 {
		t.Fatalf("summary = %+v", sum)
	}
	if mem.All()[0].Method == extract.MethodSecondaryModel {
		t.Fatalf("failed escalation must not claim secondary method")
	}
}

func TestProcess_FetchFailureIsIsolated(t *testing.T) {
	primary := &countingClient{response: richResponse}
	a, mem := testApp(&fakeBrowser{err: errors.New("net::ERR_CONNECTION_REFUSED")}, primary, nil)

	sum, err := a.Process(context.Background(), []string{
		"https://down.example.com/jobs/1",
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if sum.Failed != 1 || sum.Stored != 0 {
		t.Fatalf("summary = %+v", sum)
	}
	if mem.Len() != 0 {
		t.Fatalf("failed url must not store a record")
	}
}

func TestProcess_FetchFailureEscalatesWithURLOnly(t *testing.T) {
	primary := &countingClient{response: richResponse}
	secondary := &countingClient{response: "garbage, not json"}
	a, mem := testApp(&fakeBrowser{err: errors.New("timeout")}, primary, secondary)

	sum, err := a.Process(context.Background(), []string{"https://jobs.example.com/senior-devops-engineer"})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if sum.Stored != 1 || sum.Escalated != 1 {
		t.Fatalf("summary = %+v", sum)
	}
	rec := mem.All()[0]
	if !strings.Contains(rec.Title, "Devops") && !strings.Contains(rec.Title, "DevOps") {
		t.Fatalf("title %q not derived from url slug", rec.Title)
	}
	if primary.calls != 0 {
		t.Fatalf("primary should not run without content")
	}
}
