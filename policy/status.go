/*
Package policy implements the policy status engine and the lifecycle manager.

PURPOSE:
  - status.go: derives a policy's status from its premium ledger and "today",
    with Cancelled as the terminal, absorbing state
  - lifecycle.go: orchestrates creation (policy + generated installments) and
    cancellation (pending purge + status pin), each inside one transaction

STATUS MACHINE:

          ┌──────────────────────────────────────────────┐
          │                                              │
          │   zero pending ──────────────▶ Completed     │
          │                                     ▲        │
          │   pending overdue ──▶ Lapsed ───────┤        │
          │        ▲                │           │        │
          │        └──── Active ◀───┘ (pay)     │        │
          │                                              │
          │   cancel ──▶ Cancelled (terminal, absorbing) │
          │                                              │
          └──────────────────────────────────────────────┘

  Active/Lapsed/Completed are all re-derivable from the ledger: a policy can
  move Active→Lapsed purely because the clock advanced, and Lapsed→Active when
  an overdue installment is paid and none remain overdue. Only Cancelled is
  pinned; recomputation short-circuits without touching it.

SEE ALSO:
  - premium/ledger.go: The ledger the status is derived from
*/
package policy

import (
	"context"
	"fmt"

	"github.com/insurecrm/policy-engine/domain"
)

// =============================================================================
// STATUS DERIVATION - Pure rule
// =============================================================================

// Derive applies the status rule to a pending set:
//  1. zero pending installments           → Completed
//  2. any pending due strictly before today → Lapsed
//  3. otherwise                            → Active
//
// Pure and idempotent: the same pending set and today always yield the same
// status.
func Derive(pending []domain.PremiumInstallment, today domain.Date) domain.PolicyStatus {
	if len(pending) == 0 {
		return domain.PolicyCompleted
	}
	for _, inst := range pending {
		if inst.DueDate.Before(today) {
			return domain.PolicyLapsed
		}
	}
	return domain.PolicyActive
}

// =============================================================================
// STATUS ENGINE
// =============================================================================

type Engine struct {
	Policies domain.PolicyStore
	Premiums domain.PremiumStore
}

func NewEngine(policies domain.PolicyStore, premiums domain.PremiumStore) *Engine {
	return &Engine{Policies: policies, Premiums: premiums}
}

// Recompute re-derives and persists a policy's status as of today. Cancelled
// policies short-circuit: no ledger read, no write, status returned as-is.
// Returns the (possibly unchanged) status.
func (e *Engine) Recompute(ctx context.Context, id domain.PolicyID, today domain.Date) (domain.PolicyStatus, error) {
	p, err := e.Policies.GetPolicy(ctx, id)
	if err != nil {
		return "", fmt.Errorf("failed to load policy %s: %w", id, err)
	}
	if p == nil {
		return "", &domain.NotFoundError{Kind: "policy", ID: string(id)}
	}
	if p.Status.Terminal() {
		return p.Status, nil
	}

	pending, err := e.Premiums.ListPendingPremiums(ctx, id)
	if err != nil {
		return "", fmt.Errorf("failed to load pending premiums for %s: %w", id, err)
	}

	next := Derive(pending, today)
	if next == p.Status {
		return next, nil
	}
	if err := e.Policies.UpdatePolicyStatus(ctx, id, next); err != nil {
		return "", fmt.Errorf("failed to update status of %s: %w", id, err)
	}
	return next, nil
}
