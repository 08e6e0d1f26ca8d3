// Package reconcile folds freshly extracted results into the job store
// without creating duplicates. Two results describe the same posting when
// they share a company and title (case-insensitively) or the same source URL.
package reconcile

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/alinassarrr/remotelyx/internal/extract"
	"github.com/alinassarrr/remotelyx/internal/store"
)

// Reconciler serializes writes per dedup key so concurrent workers cannot
// race the find-then-write sequence into duplicate rows.
type Reconciler struct {
	Store store.Store

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New(s store.Store) *Reconciler {
	return &Reconciler{Store: s, locks: make(map[string]*sync.Mutex)}
}

// Upsert inserts r as a new record or refreshes the matching existing one.
// A refresh replaces the extraction payload but keeps the record's identity,
// creation time, and workflow status: a record a reviewer advanced never
// drops back to new because the page was scraped again.
func (rc *Reconciler) Upsert(ctx context.Context, r extract.Result) (*store.JobRecord, error) {
	unlock := rc.lock(dedupKey(r))
	defer unlock()

	existing, err := rc.Store.FindByKey(ctx, r.Company, r.Title, r.SourceURL)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return rc.refresh(ctx, existing, r)
	}

	rec := &store.JobRecord{Status: store.StatusNew, Result: r}
	err = rc.Store.Insert(ctx, rec)
	if errors.Is(err, store.ErrDuplicate) {
		// A writer holding a different dedup key (same URL, different
		// extracted title) got there between our lookup and insert. Our
		// record was never persisted; refresh the one that was.
		existing, ferr := rc.Store.FindByKey(ctx, r.Company, r.Title, r.SourceURL)
		if ferr != nil {
			return nil, ferr
		}
		if existing == nil {
			return nil, err
		}
		return rc.refresh(ctx, existing, r)
	}
	if err != nil {
		return nil, err
	}
	log.Info().Str("title", r.Title).Str("company", r.Company).Msg("stored new job")
	return rec, nil
}

// refresh replaces existing's extraction payload with r, moving status
// forward only; re-extraction never demotes.
func (rc *Reconciler) refresh(ctx context.Context, existing *store.JobRecord, r extract.Result) (*store.JobRecord, error) {
	updated := *existing
	updated.Result = r
	if existing.Status.Rank() > store.StatusNew.Rank() {
		updated.Status = existing.Status
	} else {
		updated.Status = store.StatusNew
	}
	if err := rc.Store.Update(ctx, &updated); err != nil {
		return nil, err
	}
	log.Info().Str("title", r.Title).Str("company", r.Company).Str("status", string(updated.Status)).Msg("refreshed existing job")
	return &updated, nil
}

// lock acquires the mutex for key and returns its release func. Keyed locks
// let unrelated postings proceed in parallel.
func (rc *Reconciler) lock(key string) func() {
	rc.mu.Lock()
	m, ok := rc.locks[key]
	if !ok {
		m = &sync.Mutex{}
		rc.locks[key] = m
	}
	rc.mu.Unlock()
	m.Lock()
	return m.Unlock
}

// dedupKey collapses both identity keys into one lock key. Two results that
// could match the same record must map to the same mutex, so the key prefers
// the company+title pair and falls back to the URL.
func dedupKey(r extract.Result) string {
	c := strings.ToLower(strings.TrimSpace(r.Company))
	t := strings.ToLower(strings.TrimSpace(r.Title))
	if c != "" && t != "" {
		return c + "|" + t
	}
	return strings.ToLower(r.SourceURL)
}
