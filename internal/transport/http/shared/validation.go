package shared

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"paycore/internal/domain/errs"
)

// Validator collects request-shape issues before anything reaches a
// service. Err returns them as the same ValidationError the services use.
type Validator struct {
	issues []errs.Issue
}

func NewValidator() *Validator {
	return &Validator{issues: make([]errs.Issue, 0, 4)}
}

func (v *Validator) Add(field, reason string) {
	if v == nil {
		return
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return
	}
	v.issues = append(v.issues, errs.Issue{Field: strings.TrimSpace(field), Reason: reason})
}

func (v *Validator) Required(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.Add(field, "is required")
	}
}

func (v *Validator) Period(month, year int) {
	if month < 1 || month > 12 {
		v.Add("month", "must be between 1 and 12")
	}
	if year < 2000 || year > 2100 {
		v.Add("year", "must be between 2000 and 2100")
	}
}

func (v *Validator) Date(field, raw string) (time.Time, bool) {
	parsed, err := ParseDate(strings.TrimSpace(raw))
	if err != nil || parsed.IsZero() {
		v.Add(field, "must be a valid date in YYYY-MM-DD format")
		return time.Time{}, false
	}
	return parsed, true
}

func (v *Validator) HasIssues() bool {
	return v != nil && len(v.issues) > 0
}

func (v *Validator) Err() error {
	if !v.HasIssues() {
		return nil
	}
	out := make([]errs.Issue, len(v.issues))
	copy(out, v.issues)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Field == out[j].Field {
			return out[i].Reason < out[j].Reason
		}
		return out[i].Field < out[j].Field
	})
	return &errs.ValidationError{Issues: out}
}

// DecodeJSON decodes a request body strictly. An empty body leaves dst
// untouched when optional is set.
func DecodeJSON(r *http.Request, dst any, optional bool) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case optional && errors.Is(err, io.EOF):
			return nil
		case errors.As(err, &tooLarge):
			return errs.Invalid("body", "request body too large")
		default:
			return &errs.ValidationError{Issues: []errs.Issue{{Field: "body", Reason: "invalid request payload"}}, Cause: err}
		}
	}
	return nil
}
