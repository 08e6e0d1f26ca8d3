// Package store persists extracted job records. The canonical backend is
// Postgres; an in-memory implementation backs tests and single-shot CLI runs
// without a database.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alinassarrr/remotelyx/internal/extract"
)

// ErrDuplicate reports that an insert was skipped because a record with the
// same source URL already exists. The caller's in-memory record was NOT
// persisted; look the stored one up instead of using it.
var ErrDuplicate = errors.New("record with this source url already stored")

// Status tracks a record through the review workflow. Statuses only move
// forward: a re-scrape never demotes a record that a reviewer has advanced.
type Status string

const (
	StatusNew      Status = "new"
	StatusAnalyzed Status = "analyzed"
	StatusMatched  Status = "matched"
	StatusClosed   Status = "closed"
)

// statusRank orders statuses by workflow progress.
var statusRank = map[Status]int{
	StatusNew:      0,
	StatusAnalyzed: 1,
	StatusMatched:  2,
	StatusClosed:   3,
}

// Rank returns the workflow position of s; unknown statuses rank lowest.
func (s Status) Rank() int {
	return statusRank[s]
}

// JobRecord is a stored extraction result plus persistence bookkeeping.
type JobRecord struct {
	ID     string `json:"id"`
	Status Status `json:"status"`

	extract.Result

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is the persistence surface the reconciler needs. FindByKey matches
// case-insensitively on (company, title) or exactly on source URL; a miss is
// (nil, nil), not an error. Insert returns ErrDuplicate when the source URL
// is already taken.
type Store interface {
	FindByKey(ctx context.Context, company, title, sourceURL string) (*JobRecord, error)
	Insert(ctx context.Context, rec *JobRecord) error
	Update(ctx context.Context, rec *JobRecord) error
}

// PersistenceError wraps a backend failure with the operation that hit it so
// callers can log one line and keep processing other URLs.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
