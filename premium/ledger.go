/*
ledger.go - Installment records of a policy

PURPOSE:
  The Ledger owns the premium installments of a policy: which are still
  pending, recording a payment, and the pending purge that cancellation uses.

STATE RULES:
  - MarkPaid transitions exactly one Pending installment to Paid. Paying a
    missing or already-Paid installment fails with NotFoundError; a double
    payment is rejected, never absorbed.
  - PurgePending deletes Pending rows only. Paid rows are payment history and
    survive cancellation.

STATUS COUPLING:
  Every successful payment must be followed by a status recompute for the
  owning policy, inside the same transaction. That sequencing lives in
  policy.Service, not here - the ledger stays a pure record-keeper.

SEE ALSO:
  - policy/status.go: Status derivation over the ledger
  - policy/lifecycle.go: Transactional mark-paid + recompute
*/
package premium

import (
	"context"
	"fmt"

	"github.com/insurecrm/policy-engine/domain"
)

// =============================================================================
// LEDGER
// =============================================================================

type Ledger struct {
	Store domain.PremiumStore
}

func NewLedger(store domain.PremiumStore) *Ledger {
	return &Ledger{Store: store}
}

// Pending returns a policy's Pending installments, oldest due date first.
func (l *Ledger) Pending(ctx context.Context, policyID domain.PolicyID) ([]domain.PremiumInstallment, error) {
	return l.Store.ListPendingPremiums(ctx, policyID)
}

// History returns every installment of a policy, due date order.
func (l *Ledger) History(ctx context.Context, policyID domain.PolicyID) ([]domain.PremiumInstallment, error) {
	return l.Store.ListPremiumsByPolicy(ctx, policyID)
}

// Get returns an installment, or NotFoundError if it does not exist.
func (l *Ledger) Get(ctx context.Context, id domain.PremiumID) (*domain.PremiumInstallment, error) {
	inst, err := l.Store.GetPremium(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load premium %s: %w", id, err)
	}
	if inst == nil {
		return nil, &domain.NotFoundError{Kind: "premium", ID: string(id)}
	}
	return inst, nil
}

// MarkPaid transitions one Pending installment to Paid, stamping paidOn.
// Fails with NotFoundError when the installment is missing or not Pending.
func (l *Ledger) MarkPaid(ctx context.Context, id domain.PremiumID, paidOn domain.Date) error {
	return l.Store.MarkPremiumPaid(ctx, id, paidOn)
}

// PurgePending deletes all Pending installments for a policy and returns the
// count deleted. Used only by cancellation.
func (l *Ledger) PurgePending(ctx context.Context, policyID domain.PolicyID) (int, error) {
	return l.Store.DeletePendingPremiums(ctx, policyID)
}
