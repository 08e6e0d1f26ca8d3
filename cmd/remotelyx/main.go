package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/alinassarrr/remotelyx/internal/app"
)

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	var (
		urlsFlag         string
		urlsFile         string
		primaryBase      string
		primaryModel     string
		primaryKey       string
		secondaryBase    string
		secondaryModel   string
		secondaryKey     string
		primaryTimeout   time.Duration
		secondaryTimeout time.Duration
		databaseURL      string
		cacheDir         string
		vocabPath        string
		chromePath       string
		userAgent        string
		slowHosts        string
		maxAttempts      int
		minContentChars  int
		fetchBackoff     time.Duration
		concurrency      int
		verbose          bool
	)

	flag.StringVar(&urlsFlag, "urls", "", "Comma-separated job posting URLs to process")
	flag.StringVar(&urlsFile, "urls.file", "", "Path to file with one job posting URL per line")
	flag.StringVar(&primaryBase, "primary.base", os.Getenv("PRIMARY_LLM_BASE_URL"), "OpenAI-compatible base URL of the local extraction model")
	flag.StringVar(&primaryModel, "primary.model", os.Getenv("PRIMARY_LLM_MODEL"), "Primary extraction model name")
	flag.StringVar(&primaryKey, "primary.key", os.Getenv("PRIMARY_LLM_API_KEY"), "API key for the primary model server")
	flag.StringVar(&secondaryBase, "secondary.base", os.Getenv("SECONDARY_LLM_BASE_URL"), "OpenAI-compatible base URL of the escalation model")
	flag.StringVar(&secondaryModel, "secondary.model", os.Getenv("SECONDARY_LLM_MODEL"), "Escalation model name (empty disables escalation)")
	flag.StringVar(&secondaryKey, "secondary.key", os.Getenv("SECONDARY_LLM_API_KEY"), "API key for the escalation model server")
	flag.DurationVar(&primaryTimeout, "primary.timeout", app.DefaultPrimaryTimeout, "Per-call timeout for the primary model")
	flag.DurationVar(&secondaryTimeout, "secondary.timeout", app.DefaultSecondaryTimeout, "Per-call timeout for the escalation model")
	flag.StringVar(&databaseURL, "db.url", os.Getenv("DATABASE_URL"), "Postgres connection string (empty keeps records in memory)")
	flag.StringVar(&cacheDir, "cache.dir", ".remotelyx-cache", "Cache directory for model responses")
	flag.StringVar(&vocabPath, "vocab.file", os.Getenv("VOCAB_FILE"), "Optional YAML file overriding the skill vocabulary")
	flag.StringVar(&chromePath, "chrome.path", os.Getenv("CHROME_PATH"), "Path to the Chrome/Chromium binary (empty uses lookup)")
	flag.StringVar(&userAgent, "chrome.ua", "", "Custom User-Agent for page rendering")
	flag.StringVar(&slowHosts, "fetch.slowHosts", os.Getenv("SLOW_RENDER_HOSTS"), "Comma-separated hosts that need the patient render profile")
	flag.IntVar(&maxAttempts, "fetch.attempts", 3, "Fetch attempts per URL including the first")
	flag.IntVar(&minContentChars, "fetch.minChars", 1000, "Minimum rendered characters to accept a page")
	flag.DurationVar(&fetchBackoff, "fetch.backoff", 500*time.Millisecond, "Base delay between fetch attempts")
	flag.IntVar(&concurrency, "concurrency", 4, "URLs processed in parallel")
	flag.BoolVar(&verbose, "v", false, "Verbose logging")
	flag.Parse()

	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	urls, err := collectURLs(urlsFlag, urlsFile, flag.Args())
	if err != nil {
		log.Error().Err(err).Msg("reading urls")
		os.Exit(2)
	}
	if len(urls) == 0 {
		fmt.Fprintln(os.Stderr, "no URLs given; pass -urls, -urls.file, or positional arguments")
		flag.Usage()
		os.Exit(2)
	}

	cfg := app.Config{
		PrimaryBaseURL:   primaryBase,
		PrimaryModel:     primaryModel,
		PrimaryAPIKey:    primaryKey,
		SecondaryBaseURL: secondaryBase,
		SecondaryModel:   secondaryModel,
		SecondaryAPIKey:  secondaryKey,
		PrimaryTimeout:   primaryTimeout,
		SecondaryTimeout: secondaryTimeout,
		DatabaseURL:      databaseURL,
		CacheDir:         cacheDir,
		VocabPath:        vocabPath,
		ChromePath:       chromePath,
		UserAgent:        userAgent,
		MaxAttempts:      maxAttempts,
		MinContentChars:  minContentChars,
		FetchBackoff:     fetchBackoff,
		Concurrency:      concurrency,
		Verbose:          verbose,
	}
	if s := strings.TrimSpace(slowHosts); s != "" {
		for _, h := range strings.Split(s, ",") {
			if h = strings.TrimSpace(h); h != "" {
				cfg.SlowRenderHosts = append(cfg.SlowRenderHosts, h)
			}
		}
	}
	app.ApplyEnvToConfig(&cfg)

	if err := run(cfg, urls); err != nil {
		log.Error().Err(err).Msg("run failed")
		os.Exit(1)
	}
}

func run(cfg app.Config, urls []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer a.Close()

	sum, err := a.Process(ctx, urls)
	if err != nil {
		return err
	}
	log.Info().
		Int("processed", sum.Processed).
		Int("stored", sum.Stored).
		Int("escalated", sum.Escalated).
		Int("failed", sum.Failed).
		Msg("done")
	if sum.Failed == sum.Processed && sum.Processed > 0 {
		return fmt.Errorf("all %d urls failed", sum.Failed)
	}
	return nil
}

// collectURLs merges the -urls flag, the -urls.file contents, and positional
// arguments, preserving order and dropping blanks and #-comments.
func collectURLs(flagVal, filePath string, args []string) ([]string, error) {
	var out []string
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s != "" && !strings.HasPrefix(s, "#") {
			out = append(out, s)
		}
	}
	for _, u := range strings.Split(flagVal, ",") {
		add(u)
	}
	if filePath != "" {
		f, err := os.Open(filePath)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		sc := bufio.NewScanner(f)
		for sc.Scan() {
			add(sc.Text())
		}
		if err := sc.Err(); err != nil {
			return nil, err
		}
	}
	for _, u := range args {
		add(u)
	}
	return out, nil
}
