// Package storage persists the ledger of submitted automated reviews.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sevigo/review-warden/internal/core"
)

// ErrNotFound is returned when a pull request has no recorded review run.
var ErrNotFound = errors.New("review run not found")

// Store defines the interface for all database operations.
type Store interface {
	SaveRun(ctx context.Context, run *core.ReviewRun) error
	LatestRun(ctx context.Context, repoFullName string, prNumber int) (*core.ReviewRun, error)
}

type postgresStore struct {
	db *sqlx.DB
}

// NewStore creates a Store backed by the review_runs table.
func NewStore(db *sqlx.DB) Store {
	return &postgresStore{db: db}
}

type runRow struct {
	ID                int64     `db:"id"`
	RepoFullName      string    `db:"repo_full_name"`
	PRNumber          int       `db:"pr_number"`
	HeadSHA           string    `db:"head_sha"`
	MergeBaseSHA      string    `db:"merge_base_sha"`
	ReviewID          int64     `db:"review_id"`
	ReviewURL         string    `db:"review_url"`
	Event             string    `db:"event"`
	Findings          int       `db:"findings"`
	ReconcileFailures int       `db:"reconcile_failures"`
	CreatedAt         time.Time `db:"created_at"`
}

func (r runRow) toCore() *core.ReviewRun {
	return &core.ReviewRun{
		ID:                r.ID,
		RepoFullName:      r.RepoFullName,
		PRNumber:          r.PRNumber,
		HeadSHA:           r.HeadSHA,
		MergeBaseSHA:      r.MergeBaseSHA,
		ReviewID:          r.ReviewID,
		ReviewURL:         r.ReviewURL,
		Event:             core.ReviewEvent(r.Event),
		Findings:          r.Findings,
		ReconcileFailures: r.ReconcileFailures,
		CreatedAt:         r.CreatedAt,
	}
}

// SaveRun inserts a run and sets its generated ID.
func (s *postgresStore) SaveRun(ctx context.Context, run *core.ReviewRun) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO review_runs
			(repo_full_name, pr_number, head_sha, merge_base_sha, review_id, review_url, event, findings, reconcile_failures, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`

	err := s.db.QueryRowxContext(ctx, query,
		run.RepoFullName, run.PRNumber, run.HeadSHA, run.MergeBaseSHA, run.ReviewID,
		run.ReviewURL, string(run.Event), run.Findings, run.ReconcileFailures, run.CreatedAt,
	).Scan(&run.ID)
	if err != nil {
		return fmt.Errorf("failed to save review run for %s#%d: %w", run.RepoFullName, run.PRNumber, err)
	}
	return nil
}

// LatestRun returns the most recent run recorded for a pull request.
func (s *postgresStore) LatestRun(ctx context.Context, repoFullName string, prNumber int) (*core.ReviewRun, error) {
	query := `
		SELECT id, repo_full_name, pr_number, head_sha, merge_base_sha, review_id, review_url,
		       event, findings, reconcile_failures, created_at
		FROM review_runs
		WHERE repo_full_name = $1 AND pr_number = $2
		ORDER BY created_at DESC
		LIMIT 1`

	var row runRow
	if err := s.db.GetContext(ctx, &row, query, repoFullName, prNumber); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s#%d", ErrNotFound, repoFullName, prNumber)
		}
		return nil, fmt.Errorf("failed to load latest review run for %s#%d: %w", repoFullName, prNumber, err)
	}
	return row.toCore(), nil
}

type nopStore struct{}

// NewNopStore returns a Store that records nothing, used when no database is configured.
func NewNopStore() Store {
	return nopStore{}
}

func (nopStore) SaveRun(context.Context, *core.ReviewRun) error { return nil }

func (nopStore) LatestRun(_ context.Context, repoFullName string, prNumber int) (*core.ReviewRun, error) {
	return nil, fmt.Errorf("%w: %s#%d", ErrNotFound, repoFullName, prNumber)
}
