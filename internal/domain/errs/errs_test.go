package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errSpecific = errors.New("specific condition")

func TestStateConflictUnwrapsBothLayers(t *testing.T) {
	err := fmt.Errorf("approve: %w", Conflict("payroll", "p1", "paid", "approve", errSpecific))

	assert.ErrorIs(t, err, ErrStateConflict)
	assert.ErrorIs(t, err, errSpecific)

	current, ok := CurrentState(err)
	require.True(t, ok)
	assert.Equal(t, "paid", current)
	assert.Contains(t, err.Error(), `status "paid"`)
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Issues: []Issue{{Field: "ifsc", Reason: "malformed"}, {Reason: "net must be positive"}}}
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "validation failed: ifsc: malformed; net must be positive", err.Error())
	assert.True(t, IsClientError(err))
}

func TestUpstream(t *testing.T) {
	assert.NoError(t, Upstream("attendance", nil))

	err := Upstream("attendance", errSpecific)
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.ErrorIs(t, err, errSpecific)
	assert.False(t, IsClientError(err))
}

func TestNotFound(t *testing.T) {
	err := NotFound("payroll", "p9")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "payroll p9: not found", err.Error())
}
