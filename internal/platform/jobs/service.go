package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"paycore/internal/domain/disbursement"
	"paycore/internal/domain/payroll"
)

const (
	JobPaymentRetry = "payment_retry"

	SweeperActor = "system:retry-sweeper"
)

// Retrier is the slice of the disbursement engine the sweeper drives.
type Retrier interface {
	ListRetryEligible(ctx context.Context, now time.Time) ([]*disbursement.Disbursement, error)
	RetryPayment(ctx context.Context, id, actorID string) (*disbursement.Disbursement, error)
	Cancel(ctx context.Context, id, reason, actorID string) (*disbursement.Disbursement, error)
}

type Service struct {
	Runs     RunRecorder
	Retrier  Retrier
	Interval time.Duration
	queue    chan job
	now      func() time.Time
}

type job struct {
	Type string
	Run  func(context.Context) (any, error)
}

func New(runs RunRecorder, retrier Retrier, interval time.Duration) *Service {
	return &Service{
		Runs:     runs,
		Retrier:  retrier,
		Interval: interval,
		queue:    make(chan job, 128),
		now:      time.Now,
	}
}

func (s *Service) Start(ctx context.Context) {
	go s.worker(ctx)
	if s.Interval > 0 {
		go s.scheduleRetries(ctx, s.Interval)
	}
}

func (s *Service) Enqueue(jobType string, run func(context.Context) (any, error)) {
	select {
	case s.queue <- job{Type: jobType, Run: run}:
	default:
		slog.Warn("job queue full", "jobType", jobType)
	}
}

func (s *Service) RunNow(ctx context.Context, jobType string, run func(context.Context) (any, error)) (any, error) {
	return s.runJob(ctx, job{Type: jobType, Run: run})
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				slog.Warn("job run failed", "jobType", j.Type, "err", err)
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	runID, err := s.Runs.Start(ctx, j.Type)
	if err != nil {
		slog.Warn("job run insert failed", "err", err)
	}

	details, err := j.Run(ctx)
	status := StatusCompleted
	if err != nil {
		status = StatusFailed
	}
	detailsJSON, marshalErr := json.Marshal(details)
	if marshalErr != nil {
		slog.Warn("job details marshal failed", "err", marshalErr)
		detailsJSON = []byte("{}")
	}
	if runID != "" {
		if updErr := s.Runs.Finish(ctx, runID, status, detailsJSON); updErr != nil {
			slog.Warn("job run update failed", "err", updErr)
		}
	}
	return details, err
}

func (s *Service) scheduleRetries(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Enqueue(JobPaymentRetry, func(ctx context.Context) (any, error) {
				return s.SweepRetries(ctx)
			})
		}
	}
}

type SweepResult struct {
	Eligible  int      `json:"eligible"`
	Retried   int      `json:"retried"`
	Exhausted int      `json:"exhausted"`
	Cancelled int      `json:"cancelled"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

// SweepRetries retries every failed payment whose retry is due. A payment
// whose retry fails again is rescheduled by the engine itself. A payment
// whose payroll was cancelled is cancelled instead of retried.
func (s *Service) SweepRetries(ctx context.Context) (*SweepResult, error) {
	due, err := s.Retrier.ListRetryEligible(ctx, s.now().UTC())
	if err != nil {
		return nil, err
	}
	res := &SweepResult{Eligible: len(due)}
	for _, d := range due {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		_, err := s.Retrier.RetryPayment(ctx, d.ID, SweeperActor)
		switch {
		case err == nil:
			res.Retried++
		case errors.Is(err, disbursement.ErrRetryExhausted):
			res.Exhausted++
		case errors.Is(err, payroll.ErrCancelled):
			if _, cerr := s.Retrier.Cancel(ctx, d.ID, "payroll cancelled", SweeperActor); cerr != nil {
				res.Failed++
				res.Errors = append(res.Errors, d.ID+": "+cerr.Error())
				slog.Warn("payment cancel failed", "disbursementId", d.ID, "err", cerr)
				continue
			}
			res.Cancelled++
		default:
			res.Failed++
			res.Errors = append(res.Errors, d.ID+": "+err.Error())
			slog.Warn("payment retry failed", "disbursementId", d.ID, "err", err)
		}
	}
	return res, nil
}
