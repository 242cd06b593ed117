// Package approval implements the ordered multi-level sign-off used by
// payroll records and payroll cycles. A level becomes actionable only once
// every lower level is approved.
package approval

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"paycore/internal/domain/errs"
)

type StepStatus string

const (
	StepPending  StepStatus = "pending"
	StepApproved StepStatus = "approved"
	StepRejected StepStatus = "rejected"
)

var (
	ErrUnknownLevel       = fmt.Errorf("approval level %w", errs.ErrNotFound)
	ErrLevelNotActionable = errors.New("approval level is not actionable until lower levels are approved")
	ErrLevelRejected      = errors.New("approval level was rejected and must be re-routed")
	ErrLevelNotRejected   = errors.New("only a rejected approval level can be re-routed")
	ErrRoleMismatch       = errors.New("approver role does not match the approval level")
	ErrAlreadyDecided     = errors.New("approval level already decided")
)

type Step struct {
	Level      int        `json:"level"`
	Role       string     `json:"role"`
	Status     StepStatus `json:"status"`
	ApproverID string     `json:"approverId,omitempty"`
	Comment    string     `json:"comment,omitempty"`
	DecidedAt  *time.Time `json:"decidedAt,omitempty"`
}

type Workflow []Step

// New builds one pending step per role, numbered from 1.
func New(roles []string) Workflow {
	wf := make(Workflow, 0, len(roles))
	for i, role := range roles {
		wf = append(wf, Step{Level: i + 1, Role: strings.ToLower(strings.TrimSpace(role)), Status: StepPending})
	}
	return wf
}

type Decision struct {
	Level      int
	Role       string
	ApproverID string
	Comment    string
	At         time.Time
}

func (wf Workflow) Complete() bool {
	for _, step := range wf {
		if step.Status != StepApproved {
			return false
		}
	}
	return true
}

func (wf Workflow) HasRejection() bool {
	for _, step := range wf {
		if step.Status == StepRejected {
			return true
		}
	}
	return false
}

// Next returns the lowest level that is not yet approved, or 0 when the
// workflow is complete.
func (wf Workflow) Next() int {
	for _, step := range wf {
		if step.Status != StepApproved {
			return step.Level
		}
	}
	return 0
}

func (wf Workflow) Approve(d Decision) error {
	idx, err := wf.actionable(d)
	if err != nil {
		return err
	}
	wf.decide(idx, StepApproved, d)
	return nil
}

// Reject marks only the given level. Callers keep the owning record where it
// is and re-route the level later.
func (wf Workflow) Reject(d Decision) error {
	idx, err := wf.actionable(d)
	if err != nil {
		return err
	}
	wf.decide(idx, StepRejected, d)
	return nil
}

// Reroute resets a rejected level to pending, optionally to a new role.
func (wf Workflow) Reroute(level int, role string) error {
	idx := wf.index(level)
	if idx < 0 {
		return ErrUnknownLevel
	}
	if wf[idx].Status != StepRejected {
		return ErrLevelNotRejected
	}
	if role = strings.ToLower(strings.TrimSpace(role)); role != "" {
		wf[idx].Role = role
	}
	wf[idx].Status = StepPending
	wf[idx].ApproverID = ""
	wf[idx].Comment = ""
	wf[idx].DecidedAt = nil
	return nil
}

// Reset returns every level to pending.
func (wf Workflow) Reset() {
	for i := range wf {
		wf[i].Status = StepPending
		wf[i].ApproverID = ""
		wf[i].Comment = ""
		wf[i].DecidedAt = nil
	}
}

func (wf Workflow) actionable(d Decision) (int, error) {
	idx := wf.index(d.Level)
	if idx < 0 {
		return -1, ErrUnknownLevel
	}
	step := wf[idx]
	switch step.Status {
	case StepApproved:
		return -1, ErrAlreadyDecided
	case StepRejected:
		return -1, ErrLevelRejected
	}
	if d.Role != "" && !strings.EqualFold(strings.TrimSpace(d.Role), step.Role) {
		return -1, ErrRoleMismatch
	}
	for _, lower := range wf[:idx] {
		if lower.Status != StepApproved {
			return -1, ErrLevelNotActionable
		}
	}
	return idx, nil
}

func (wf Workflow) decide(idx int, status StepStatus, d Decision) {
	at := d.At.UTC()
	wf[idx].Status = status
	wf[idx].ApproverID = d.ApproverID
	wf[idx].Comment = d.Comment
	wf[idx].DecidedAt = &at
}

func (wf Workflow) index(level int) int {
	for i, step := range wf {
		if step.Level == level {
			return i
		}
	}
	return -1
}
