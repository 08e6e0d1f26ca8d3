// Package app wires the full pipeline: fetch a posting with a headless
// browser, normalize it, extract with the primary model (heuristic on
// failure), escalate generic results to the secondary model, and reconcile
// the outcome into the store.
package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/alinassarrr/remotelyx/internal/cache"
	"github.com/alinassarrr/remotelyx/internal/extract"
	"github.com/alinassarrr/remotelyx/internal/fetch"
	"github.com/alinassarrr/remotelyx/internal/llm"
	"github.com/alinassarrr/remotelyx/internal/normalize"
	"github.com/alinassarrr/remotelyx/internal/reconcile"
	"github.com/alinassarrr/remotelyx/internal/store"
	"github.com/alinassarrr/remotelyx/internal/vocab"
)

type App struct {
	cfg        Config
	fetcher    *fetch.Fetcher
	primary    *extract.Primary
	secondary  *extract.Secondary
	heuristic  *extract.Heuristic
	confidence *extract.Confidence
	reconciler *reconcile.Reconciler
	store      store.Store
	closeStore func()
}

// Summary reports what one Process run did.
type Summary struct {
	Processed int
	Stored    int
	Escalated int
	Failed    int
}

// New builds the pipeline from cfg. Without a DatabaseURL records stay in
// memory for the duration of the run.
func New(ctx context.Context, cfg Config) (*App, error) {
	if len(cfg.SlowRenderHosts) == 0 {
		cfg.SlowRenderHosts = DefaultSlowRenderHosts
	}
	if cfg.PrimaryTimeout <= 0 {
		cfg.PrimaryTimeout = DefaultPrimaryTimeout
	}
	if cfg.SecondaryTimeout <= 0 {
		cfg.SecondaryTimeout = DefaultSecondaryTimeout
	}

	tables, err := vocab.Load(cfg.VocabPath)
	if err != nil {
		return nil, fmt.Errorf("load vocabulary: %w", err)
	}

	var st store.Store
	var closeStore func()
	if cfg.DatabaseURL != "" {
		pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		st = pg
		closeStore = pg.Close
	} else {
		log.Warn().Msg("no database configured, records stay in memory")
		st = store.NewMemory()
	}

	var extractionCache *cache.ExtractionCache
	if cfg.CacheDir != "" {
		extractionCache = &cache.ExtractionCache{Dir: cfg.CacheDir}
	}

	heuristic := &extract.Heuristic{Vocab: tables}

	a := &App{
		cfg: cfg,
		fetcher: &fetch.Fetcher{
			Browser:         &fetch.ChromeBrowser{ExecPath: cfg.ChromePath, UserAgent: cfg.UserAgent},
			MaxAttempts:     cfg.MaxAttempts,
			MinContentChars: cfg.MinContentChars,
			SlowHosts:       cfg.SlowRenderHosts,
			Backoff:         cfg.FetchBackoff,
		},
		primary: &extract.Primary{
			Client:  llm.New(cfg.PrimaryBaseURL, cfg.PrimaryAPIKey),
			Model:   cfg.PrimaryModel,
			Cache:   extractionCache,
			Heur:    heuristic,
			Timeout: cfg.PrimaryTimeout,
		},
		heuristic:  heuristic,
		confidence: &extract.Confidence{SlowHosts: cfg.SlowRenderHosts},
		reconciler: reconcile.New(st),
		store:      st,
		closeStore: closeStore,
	}
	if cfg.SecondaryModel != "" {
		a.secondary = &extract.Secondary{
			Client:  llm.New(cfg.SecondaryBaseURL, cfg.SecondaryAPIKey),
			Model:   cfg.SecondaryModel,
			Vocab:   tables,
			Timeout: cfg.SecondaryTimeout,
		}
	}
	return a, nil
}

func (a *App) Close() {
	if a.closeStore != nil {
		a.closeStore()
	}
}

// Store exposes the backing store, for the CLI's summary output.
func (a *App) Store() store.Store { return a.store }

// Process runs the pipeline over urls with bounded concurrency. Individual
// failures are counted, logged, and do not stop the batch.
func (a *App) Process(ctx context.Context, urls []string) (Summary, error) {
	limit := a.cfg.Concurrency
	if limit <= 0 {
		limit = 4
	}

	var (
		mu  sync.Mutex
		sum Summary
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, u := range urls {
		u := u
		g.Go(func() error {
			rec, escalated, err := a.processOne(ctx, u)
			mu.Lock()
			defer mu.Unlock()
			sum.Processed++
			if escalated {
				sum.Escalated++
			}
			if err != nil {
				sum.Failed++
				log.Error().Err(err).Str("url", u).Msg("pipeline failed for url")
				return nil
			}
			sum.Stored++
			log.Info().Str("url", u).Str("title", rec.Title).Str("method", string(rec.Method)).Msg("processed")
			return nil
		})
	}
	err := g.Wait()
	return sum, err
}

// processOne runs one URL through fetch, extraction, confidence check, and
// reconciliation. escalated reports whether the secondary model ran.
func (a *App) processOne(ctx context.Context, url string) (rec *store.JobRecord, escalated bool, err error) {
	r, escalated, err := a.extractOne(ctx, url)
	if err != nil {
		return nil, escalated, err
	}
	rec, err = a.reconciler.Upsert(ctx, r)
	if err != nil {
		return nil, escalated, err
	}
	return rec, escalated, nil
}

func (a *App) extractOne(ctx context.Context, url string) (extract.Result, bool, error) {
	page, err := a.fetcher.Fetch(ctx, url)
	if err != nil {
		// The page never rendered. The secondary model can still work from
		// the URL alone; without it the URL is a loss.
		if a.secondary == nil {
			return extract.Result{}, false, fmt.Errorf("fetch %s: %w", url, err)
		}
		log.Warn().Err(err).Str("url", url).Msg("fetch failed, escalating with url only")
		r, serr := a.secondary.Extract(ctx, url, nil)
		if serr != nil {
			return extract.Result{}, true, fmt.Errorf("fetch %s: %w (escalation also failed: %v)", url, err, serr)
		}
		return *r, true, nil
	}

	content := normalize.Normalize(page.HTML, url)

	r, err := a.primary.Extract(ctx, content)
	if err != nil {
		log.Warn().Err(err).Str("url", url).Msg("primary extraction failed, using heuristic")
		r = a.heuristic.Extract(content)
		r.Method = extract.MethodHeuristicFallback
	}

	if a.secondary != nil && a.confidence.IsGeneric(r) {
		log.Info().Str("url", url).Int("indicators", a.confidence.GenericIndicators(r)).Msg("generic result, escalating")
		sr, serr := a.secondary.Extract(ctx, url, &content)
		if serr != nil {
			// Escalation is best-effort; keep the generic result.
			log.Warn().Err(serr).Str("url", url).Msg("escalation failed, keeping primary result")
			return r, true, nil
		}
		return *sr, true, nil
	}
	return r, false, nil
}
