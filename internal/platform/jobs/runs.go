package jobs

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"paycore/internal/platform/db"
)

const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

type Run struct {
	ID          string          `json:"id"`
	JobType     string          `json:"jobType"`
	Status      string          `json:"status"`
	Details     json.RawMessage `json:"details,omitempty"`
	StartedAt   time.Time       `json:"startedAt"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
}

// RunRecorder keeps the job_runs history.
type RunRecorder interface {
	Start(ctx context.Context, jobType string) (string, error)
	Finish(ctx context.Context, id, status string, details []byte) error
	List(ctx context.Context, jobType string, limit int) ([]Run, error)
}

type PGRuns struct {
	DB db.Querier
}

func (r PGRuns) Start(ctx context.Context, jobType string) (string, error) {
	runID := ""
	err := r.DB.QueryRow(ctx, `
    INSERT INTO job_runs (job_type, status)
    VALUES ($1,$2)
    RETURNING id
  `, jobType, StatusRunning).Scan(&runID)
	return runID, err
}

func (r PGRuns) Finish(ctx context.Context, id, status string, details []byte) error {
	_, err := r.DB.Exec(ctx, `
    UPDATE job_runs
    SET status = $1, details_json = $2, completed_at = now()
    WHERE id = $3
  `, status, details, id)
	return err
}

func (r PGRuns) List(ctx context.Context, jobType string, limit int) ([]Run, error) {
	rows, err := r.DB.Query(ctx, `
    SELECT id, job_type, status, COALESCE(details_json, '{}'::jsonb), started_at, completed_at
    FROM job_runs
    WHERE $1 = '' OR job_type = $1
    ORDER BY started_at DESC
    LIMIT $2
  `, jobType, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.JobType, &run.Status, &run.Details, &run.StartedAt, &run.CompletedAt); err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

type MemoryRuns struct {
	mu   sync.Mutex
	runs []Run
}

func (m *MemoryRuns) Start(_ context.Context, jobType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run := Run{ID: uuid.NewString(), JobType: jobType, Status: StatusRunning, StartedAt: time.Now().UTC()}
	m.runs = append(m.runs, run)
	return run.ID, nil
}

func (m *MemoryRuns) Finish(_ context.Context, id, status string, details []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.runs {
		if m.runs[i].ID != id {
			continue
		}
		now := time.Now().UTC()
		m.runs[i].Status = status
		m.runs[i].Details = append(json.RawMessage(nil), details...)
		m.runs[i].CompletedAt = &now
		return nil
	}
	return nil
}

func (m *MemoryRuns) List(_ context.Context, jobType string, limit int) ([]Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Run
	for _, run := range m.runs {
		if jobType == "" || run.JobType == jobType {
			out = append(out, run)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
