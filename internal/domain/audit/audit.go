// Package audit is the append-only change log kept beside every payroll
// record. Entries are keyed by entity type and id and never rewritten.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"paycore/internal/requestctx"
)

const (
	EntitySalaryStructure = "salary_structure"
	EntityTaxRecord       = "tax_record"
	EntityPayroll         = "payroll"
	EntityCycle           = "payroll_cycle"
	EntityDisbursement    = "disbursement"
)

type Entry struct {
	ID         string          `json:"id"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	Action     string          `json:"action"`
	ActorID    string          `json:"actorId"`
	RequestID  string          `json:"requestId,omitempty"`
	At         time.Time       `json:"at"`
	Before     json.RawMessage `json:"before,omitempty"`
	After      json.RawMessage `json:"after,omitempty"`
}

// StatusChange is the usual before/after payload of a transition.
type StatusChange struct {
	Status string `json:"status"`
	Note   string `json:"note,omitempty"`
}

type Log interface {
	Append(ctx context.Context, entry Entry) error
	List(ctx context.Context, entityType, entityID string) ([]Entry, error)
}

type Recorder struct {
	log Log
	now func() time.Time
}

func NewRecorder(log Log, now func() time.Time) *Recorder {
	if now == nil {
		now = time.Now
	}
	return &Recorder{log: log, now: now}
}

// Record appends one entry. An empty actorID falls back to the caller
// authenticated on the request.
func (r *Recorder) Record(ctx context.Context, actorID, action, entityType, entityID string, before, after any) error {
	if actorID == "" {
		actorID = requestctx.Actor(ctx)
	}
	entry := Entry{
		ID:         uuid.NewString(),
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		ActorID:    actorID,
		RequestID:  requestctx.GetRequestID(ctx),
		At:         r.now().UTC(),
	}
	if before != nil {
		payload, err := json.Marshal(before)
		if err != nil {
			return err
		}
		entry.Before = payload
	}
	if after != nil {
		payload, err := json.Marshal(after)
		if err != nil {
			return err
		}
		entry.After = payload
	}
	return r.log.Append(ctx, entry)
}

func (r *Recorder) Transition(ctx context.Context, actorID, action, entityType, entityID, from, to string) error {
	return r.Record(ctx, actorID, action, entityType, entityID, StatusChange{Status: from}, StatusChange{Status: to})
}

func (r *Recorder) List(ctx context.Context, entityType, entityID string) ([]Entry, error) {
	return r.log.List(ctx, entityType, entityID)
}
