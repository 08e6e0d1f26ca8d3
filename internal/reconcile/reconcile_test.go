package reconcile

import (
	"context"
	"testing"

	"github.com/alinassarrr/remotelyx/internal/extract"
	"github.com/alinassarrr/remotelyx/internal/store"
)

func result(title, company, url string) extract.Result {
	return extract.Result{Title: title, Company: company, SourceURL: url, Salary: "$90,000"}
}

func TestUpsert_InsertsNewRecord(t *testing.T) {
	m := store.NewMemory()
	rc := New(m)

	rec, err := rc.Upsert(context.Background(), result("Backend Engineer", "Acme Corp", "https://a/1"))
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if rec.Status != store.StatusNew {
		t.Fatalf("status = %q, want new", rec.Status)
	}
	if m.Len() != 1 {
		t.Fatalf("store len = %d", m.Len())
	}
}

func TestUpsert_IsIdempotent(t *testing.T) {
	m := store.NewMemory()
	rc := New(m)
	ctx := context.Background()

	first, err := rc.Upsert(ctx, result("Backend Engineer", "Acme Corp", "https://a/1"))
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	second, err := rc.Upsert(ctx, result("Backend Engineer", "Acme Corp", "https://a/1"))
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if m.Len() != 1 {
		t.Fatalf("store len = %d, want 1", m.Len())
	}
	if first.ID != second.ID {
		t.Fatalf("ids differ: %s vs %s", first.ID, second.ID)
	}
}

func TestUpsert_MatchesCaseInsensitiveCompanyTitle(t *testing.T) {
	m := store.NewMemory()
	rc := New(m)
	ctx := context.Background()

	if _, err := rc.Upsert(ctx, result("Backend Engineer", "Acme Corp", "https://a/1")); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	// Same posting found at a different URL.
	if _, err := rc.Upsert(ctx, result("BACKEND ENGINEER", "acme corp", "https://b/2")); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if m.Len() != 1 {
		t.Fatalf("store len = %d, want 1", m.Len())
	}
}

func TestUpsert_MatchesBySourceURL(t *testing.T) {
	m := store.NewMemory()
	rc := New(m)
	ctx := context.Background()

	if _, err := rc.Upsert(ctx, result("Job Position", "Company", "https://a/1")); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	// Re-scrape of the same URL with better extraction.
	rec, err := rc.Upsert(ctx, result("Backend Engineer", "Acme Corp", "https://a/1"))
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if m.Len() != 1 {
		t.Fatalf("store len = %d, want 1", m.Len())
	}
	if rec.Title != "Backend Engineer" {
		t.Fatalf("payload not refreshed: %q", rec.Title)
	}
}

func TestUpsert_NeverRegressesStatus(t *testing.T) {
	m := store.NewMemory()
	rc := New(m)
	ctx := context.Background()

	rec, err := rc.Upsert(ctx, result("Backend Engineer", "Acme Corp", "https://a/1"))
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	rec.Status = store.StatusMatched
	if err := m.Update(ctx, rec); err != nil {
		t.Fatalf("advance status: %v", err)
	}

	refreshed, err := rc.Upsert(ctx, result("Backend Engineer", "Acme Corp", "https://a/1"))
	if err != nil {
		t.Fatalf("re-upsert: %v", err)
	}
	if refreshed.Status != store.StatusMatched {
		t.Fatalf("status regressed to %q", refreshed.Status)
	}
}

// blindStore hides existing records from the first FindByKey calls, opening
// the same window a concurrent writer with a different dedup key would: the
// lookup misses, the insert then collides on source URL.
type blindStore struct {
	*store.Memory
	misses int
}

func (s *blindStore) FindByKey(ctx context.Context, company, title, sourceURL string) (*store.JobRecord, error) {
	if s.misses > 0 {
		s.misses--
		return nil, nil
	}
	return s.Memory.FindByKey(ctx, company, title, sourceURL)
}

func TestUpsert_LostInsertRaceReturnsPersistedRecord(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	// The winner stored the URL under placeholder identity.
	seeded := &store.JobRecord{Result: result("Job Position", "Company", "https://a/1")}
	if err := mem.Insert(ctx, seeded); err != nil {
		t.Fatalf("seed: %v", err)
	}

	rc := New(&blindStore{Memory: mem, misses: 1})
	rec, err := rc.Upsert(ctx, result("Backend Engineer", "Acme Corp", "https://a/1"))
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if rec.ID != seeded.ID {
		t.Fatalf("returned id %s was never persisted; stored id is %s", rec.ID, seeded.ID)
	}
	if mem.Len() != 1 {
		t.Fatalf("store len = %d, want 1", mem.Len())
	}
	if rec.Title != "Backend Engineer" {
		t.Fatalf("payload not refreshed: %q", rec.Title)
	}
}

func TestUpsert_ConcurrentSameKeyYieldsOneRecord(t *testing.T) {
	m := store.NewMemory()
	rc := New(m)
	ctx := context.Background()

	done := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			_, err := rc.Upsert(ctx, result("Backend Engineer", "Acme Corp", "https://a/1"))
			done <- err
		}()
	}
	for i := 0; i < 8; i++ {
		if err := <-done; err != nil {
			t.Fatalf("concurrent upsert: %v", err)
		}
	}
	if m.Len() != 1 {
		t.Fatalf("store len = %d, want 1", m.Len())
	}
}
