package payrail

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paycore/internal/domain/directory"
	"paycore/internal/domain/disbursement"
)

type settlements struct {
	mu  sync.Mutex
	got map[string]disbursement.StatusUpdate
}

func (s *settlements) record(_ context.Context, id string, up disbursement.StatusUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got[id] = up
	return nil
}

func instruction(id string) disbursement.Instruction {
	return disbursement.Instruction{
		DisbursementID: id,
		Amount:         42823,
		Account:        directory.BankAccount{AccountNumber: "12345678901", IFSC: "HDFC0001234"},
		Attempt:        1,
	}
}

func TestSimulatorSettlesSuccess(t *testing.T) {
	sim := NewSimulator(0, 0, 1)
	rec := &settlements{got: map[string]disbursement.StatusUpdate{}}
	sim.OnSettle(rec.record)

	ack, err := sim.Submit(context.Background(), instruction("disb-1"))
	require.NoError(t, err)
	assert.False(t, ack.Queued)
	assert.Equal(t, Gateway, ack.Gateway)
	sim.Wait()

	up := rec.got["disb-1"]
	assert.Equal(t, disbursement.StatusSuccess, up.Status)
	assert.Equal(t, ack.TransactionID, up.TransactionID)
	assert.Len(t, up.UTR, 15)
}

func TestSimulatorFailureRate(t *testing.T) {
	sim := NewSimulator(1, 0, 1)
	rec := &settlements{got: map[string]disbursement.StatusUpdate{}}
	sim.OnSettle(rec.record)

	_, err := sim.Submit(context.Background(), instruction("disb-1"))
	require.NoError(t, err)
	sim.Wait()
	assert.Equal(t, disbursement.StatusFailed, rec.got["disb-1"].Status)
	assert.Equal(t, "BANK_DECLINED", rec.got["disb-1"].FailureCode)
}

func TestSimulatorRejectsBadInstruction(t *testing.T) {
	sim := NewSimulator(0, 0, 1)
	in := instruction("disb-1")
	in.Amount = 0
	_, err := sim.Submit(context.Background(), in)
	require.ErrorIs(t, err, ErrRejected)
}

func TestSimulatorWithoutCallbackQueues(t *testing.T) {
	sim := NewSimulator(0, 0, 1)
	ack, err := sim.Submit(context.Background(), instruction("disb-1"))
	require.NoError(t, err)
	assert.True(t, ack.Queued)
}
