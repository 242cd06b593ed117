// Package payrail is a simulated bank payment rail. Submissions are
// acknowledged at once and settled asynchronously through a callback,
// the way a real gateway reports outcomes by webhook.
package payrail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"paycore/internal/domain/disbursement"
)

const Gateway = "simulated-neft"

var ErrRejected = errors.New("payment rejected by rail")

// Settler receives the final outcome of a submitted payment.
type Settler func(ctx context.Context, disbursementID string, up disbursement.StatusUpdate) error

type Simulator struct {
	FailureRate float64
	Delay       time.Duration

	mu     sync.Mutex
	rng    *rand.Rand
	settle Settler
	wg     sync.WaitGroup
}

func NewSimulator(failureRate float64, delay time.Duration, seed uint64) *Simulator {
	return &Simulator{
		FailureRate: failureRate,
		Delay:       delay,
		rng:         rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

func (s *Simulator) OnSettle(fn Settler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settle = fn
}

// Submit rejects malformed instructions synchronously. Everything else is
// acknowledged and settled after Delay.
func (s *Simulator) Submit(ctx context.Context, in disbursement.Instruction) (disbursement.Ack, error) {
	if in.Amount <= 0 || strings.TrimSpace(in.Account.AccountNumber) == "" {
		return disbursement.Ack{}, fmt.Errorf("%w: invalid instruction", ErrRejected)
	}
	txnID := "SIM-" + strings.ToUpper(uuid.NewString()[:12])

	s.mu.Lock()
	settle := s.settle
	failed := s.rng.Float64() < s.FailureRate
	utr := fmt.Sprintf("UTR%012d", s.rng.Int64N(1_000_000_000_000))
	s.mu.Unlock()

	if settle == nil {
		return disbursement.Ack{TransactionID: txnID, Gateway: Gateway, Queued: true}, nil
	}

	up := disbursement.StatusUpdate{Status: disbursement.StatusSuccess, TransactionID: txnID, UTR: utr, Gateway: Gateway}
	if failed {
		up = disbursement.StatusUpdate{
			Status:        disbursement.StatusFailed,
			TransactionID: txnID,
			Gateway:       Gateway,
			FailureReason: "beneficiary bank declined the credit",
			FailureCode:   "BANK_DECLINED",
		}
	}

	bg := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if s.Delay > 0 {
			time.Sleep(s.Delay)
		}
		if err := settle(bg, in.DisbursementID, up); err != nil {
			slog.Warn("payment settlement callback failed", "disbursementId", in.DisbursementID, "transactionId", txnID, "err", err)
		}
	}()
	return disbursement.Ack{TransactionID: txnID, Gateway: Gateway}, nil
}

// Wait blocks until every pending settlement has been delivered.
func (s *Simulator) Wait() {
	s.wg.Wait()
}
