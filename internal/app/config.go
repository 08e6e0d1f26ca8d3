package app

import "time"

// Config holds runtime configuration for the application.
type Config struct {
	// Primary (local) extraction model.
	PrimaryBaseURL string
	PrimaryModel   string
	PrimaryAPIKey  string

	// Secondary (escalation) model. Leave Model empty to disable escalation.
	SecondaryBaseURL string
	SecondaryModel   string
	SecondaryAPIKey  string

	// Fetching
	ChromePath      string
	UserAgent       string
	MaxAttempts     int
	MinContentChars int
	FetchBackoff    time.Duration

	// SlowRenderHosts both get the patient fetch profile and escalate on the
	// lower genericness threshold. Host matching is suffix-based.
	SlowRenderHosts []string

	// PrimaryTimeout and SecondaryTimeout bound a single model call. Zero
	// picks the package defaults.
	PrimaryTimeout   time.Duration
	SecondaryTimeout time.Duration

	// Store
	DatabaseURL string

	// Behavior
	CacheDir    string
	VocabPath   string
	Concurrency int
	Verbose     bool
}

// DefaultSlowRenderHosts covers sources known to render client-side slowly
// enough that the default profile sees a skeleton page.
var DefaultSlowRenderHosts = []string{"gamma.app"}

// Default per-call model timeouts. A hung endpoint must release its worker
// slot; the escalation model gets longer because it chews the full page text.
const (
	DefaultPrimaryTimeout   = 60 * time.Second
	DefaultSecondaryTimeout = 120 * time.Second
)
