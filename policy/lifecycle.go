/*
lifecycle.go - Policy creation, payment, and cancellation orchestration

PURPOSE:
  Service is the application-facing entry point for every policy mutation.
  It sequences the pure pieces (scheduler, ledger, status engine) and wraps
  each logical operation in a single storage transaction, so a failure
  mid-operation leaves no partial state.

OPERATIONS:
  CreatePolicy     validate → insert policy (Active) + full installment batch
  MarkPremiumPaid  ledger mark-paid → status recompute (same transaction)
  CancelPolicy     purge pending → pin status Cancelled (same transaction)
  SweepStatuses    recompute every policy, one transaction per policy

CANCELLATION:
  Cancellation bypasses the status engine's rule evaluation - it always wins,
  regardless of remaining schedule state. The original system did purge and
  status set as two separate writes; here both run in one transaction.

SEE ALSO:
  - premium/schedule.go: Due-date generation used by CreatePolicy
  - customer/customer.go: Eligible-holder validation
*/
package policy

import (
	"context"
	"fmt"
	"time"

	"github.com/insurecrm/policy-engine/customer"
	"github.com/insurecrm/policy-engine/domain"
	"github.com/insurecrm/policy-engine/premium"
)

// =============================================================================
// SERVICE
// =============================================================================

type Service struct {
	Store domain.Store

	// Now is the clock used for "today". Overridable in tests.
	Now func() domain.Date
}

func NewService(store domain.Store) *Service {
	return &Service{Store: store, Now: domain.Today}
}

// =============================================================================
// CREATE
// =============================================================================

// CreatePolicyInput carries the policy enrollment form fields.
type CreatePolicyInput struct {
	InsuredID    domain.CustomerID
	HolderID     domain.CustomerID // empty means the insured holds it
	Number       string
	Premium      domain.Money
	Frequency    string
	Type         string
	Provider     string
	CoverageType string
	Nominee      domain.IdentitySnapshot // Name required
	Beneficiary  domain.IdentitySnapshot // optional
	Start        domain.Date
	End          domain.Date
}

// CreatePolicy validates the input, then atomically persists the policy
// (status Active) together with its full Pending installment schedule.
// Either all records exist afterwards or none do.
func (s *Service) CreatePolicy(ctx context.Context, in CreatePolicyInput) (*domain.Policy, error) {
	var missing []string
	if in.Number == "" {
		missing = append(missing, "policy_number")
	}
	if in.Type == "" {
		missing = append(missing, "type")
	}
	if in.Provider == "" {
		missing = append(missing, "provider")
	}
	if in.CoverageType == "" {
		missing = append(missing, "coverage_type")
	}
	if in.Premium.IsZero() {
		missing = append(missing, "premium_amount")
	}
	if in.Nominee.Name == "" {
		missing = append(missing, "nominee_name")
	}
	if in.Start.IsZero() {
		missing = append(missing, "start_date")
	}
	if in.End.IsZero() {
		missing = append(missing, "end_date")
	}
	if len(missing) > 0 {
		return nil, &domain.ValidationError{Fields: missing}
	}

	if !in.Premium.IsPositive() {
		return nil, &domain.ValidationError{
			Fields: []string{"premium_amount"},
			Reason: "premium amount must be positive",
		}
	}
	coverage := domain.Period{Start: in.Start, End: in.End}
	if !coverage.Valid() {
		return nil, &domain.ValidationError{
			Fields: []string{"end_date"},
			Reason: "policy end date must be after start date",
		}
	}
	freq, err := domain.ParseFrequency(in.Frequency)
	if err != nil {
		return nil, err
	}

	insured, err := s.Store.GetCustomer(ctx, in.InsuredID)
	if err != nil {
		return nil, fmt.Errorf("failed to load insured customer: %w", err)
	}
	if insured == nil {
		return nil, &domain.NotFoundError{Kind: "customer", ID: string(in.InsuredID)}
	}

	holderID := in.HolderID
	if holderID == "" {
		holderID = insured.ID
	}
	if err := customer.ValidateHolder(insured, holderID); err != nil {
		return nil, err
	}

	existing, err := s.Store.GetPolicyByNumber(ctx, in.Number)
	if err != nil {
		return nil, fmt.Errorf("failed to check policy number uniqueness: %w", err)
	}
	if existing != nil {
		return nil, &domain.ConflictError{Field: "policy_number", Value: in.Number}
	}

	p := domain.Policy{
		ID:           domain.NewPolicyID(),
		InsuredID:    insured.ID,
		HolderID:     holderID,
		Number:       in.Number,
		Premium:      in.Premium,
		Frequency:    freq,
		Type:         in.Type,
		Provider:     in.Provider,
		CoverageType: in.CoverageType,
		Nominee:      in.Nominee,
		Beneficiary:  in.Beneficiary,
		Start:        in.Start,
		End:          in.End,
		Status:       domain.PolicyActive,
		CreatedAt:    time.Now().UTC(),
	}

	dates := premium.Schedule(in.Start, in.End, freq)
	batch := premium.Installments(p.ID, p.Premium, dates)

	err = s.Store.WithTx(ctx, func(tx domain.Store) error {
		if err := tx.InsertPolicy(ctx, p); err != nil {
			return fmt.Errorf("failed to insert policy: %w", err)
		}
		if err := tx.InsertPremiumBatch(ctx, batch); err != nil {
			return fmt.Errorf("failed to insert premium schedule: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// =============================================================================
// PAY
// =============================================================================

// MarkPremiumPaid records a payment and recomputes the owning policy's status
// in the same transaction, keeping policy.status consistent with the ledger.
//
// Rejections: NotFoundError for a missing installment; InvalidStateError when
// the owning policy is Cancelled; NotFoundError when the installment exists
// but is not Pending (double payment).
func (s *Service) MarkPremiumPaid(ctx context.Context, id domain.PremiumID, paidOn domain.Date) (domain.PolicyStatus, error) {
	inst, err := s.Store.GetPremium(ctx, id)
	if err != nil {
		return "", fmt.Errorf("failed to load premium %s: %w", id, err)
	}
	if inst == nil {
		return "", &domain.NotFoundError{Kind: "premium", ID: string(id)}
	}

	owning, err := s.Store.GetPolicy(ctx, inst.PolicyID)
	if err != nil {
		return "", fmt.Errorf("failed to load policy %s: %w", inst.PolicyID, err)
	}
	if owning == nil {
		return "", &domain.NotFoundError{Kind: "policy", ID: string(inst.PolicyID)}
	}
	if owning.Status.Terminal() {
		return "", &domain.InvalidStateError{PolicyID: owning.ID, Status: owning.Status, Op: "mark_paid"}
	}

	var status domain.PolicyStatus
	err = s.Store.WithTx(ctx, func(tx domain.Store) error {
		ledger := premium.NewLedger(tx)
		if err := ledger.MarkPaid(ctx, id, paidOn); err != nil {
			return err
		}

		engine := NewEngine(tx, tx)
		status, err = engine.Recompute(ctx, inst.PolicyID, s.Now())
		return err
	})
	if err != nil {
		return "", err
	}
	return status, nil
}

// =============================================================================
// CANCEL
// =============================================================================

// CancelPolicy purges all Pending installments and pins the status to
// Cancelled, atomically. Paid installments are retained as history. Returns
// the number of installments purged.
//
// Fails with InvalidStateError when the policy is already Cancelled.
func (s *Service) CancelPolicy(ctx context.Context, id domain.PolicyID) (int, error) {
	p, err := s.Store.GetPolicy(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("failed to load policy %s: %w", id, err)
	}
	if p == nil {
		return 0, &domain.NotFoundError{Kind: "policy", ID: string(id)}
	}
	if p.Status.Terminal() {
		return 0, &domain.InvalidStateError{PolicyID: id, Status: p.Status, Op: "cancel"}
	}

	purged := 0
	err = s.Store.WithTx(ctx, func(tx domain.Store) error {
		ledger := premium.NewLedger(tx)
		n, err := ledger.PurgePending(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to purge pending premiums: %w", err)
		}
		purged = n

		// Status set directly: cancellation always wins over rule evaluation.
		if err := tx.UpdatePolicyStatus(ctx, id, domain.PolicyCancelled); err != nil {
			return fmt.Errorf("failed to pin cancelled status: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return purged, nil
}

// =============================================================================
// SWEEP
// =============================================================================

// SweepStatuses recomputes every policy's status as of today and returns the
// number of policies the sweep changed. Each recompute runs in its own
// transaction, so the terminal check and the status write are atomic: a
// cancellation committing mid-sweep is observed inside the transaction and
// never overwritten.
func (s *Service) SweepStatuses(ctx context.Context, today domain.Date) (int, error) {
	policies, err := s.Store.ListAllPolicies(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list policies for sweep: %w", err)
	}

	changed := 0
	for _, p := range policies {
		var next domain.PolicyStatus
		err := s.Store.WithTx(ctx, func(tx domain.Store) error {
			var err error
			next, err = NewEngine(tx, tx).Recompute(ctx, p.ID, today)
			return err
		})
		if err != nil {
			return changed, fmt.Errorf("sweep failed at policy %s: %w", p.ID, err)
		}
		// A terminal result is Recompute's short-circuit, never a sweep write.
		// It can differ from the listed status when a cancellation lands
		// between the listing and this policy's transaction.
		if next != p.Status && !next.Terminal() {
			changed++
		}
	}
	return changed, nil
}

// =============================================================================
// READS
// =============================================================================

// Get returns a policy, or NotFoundError.
func (s *Service) Get(ctx context.Context, id domain.PolicyID) (*domain.Policy, error) {
	p, err := s.Store.GetPolicy(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load policy: %w", err)
	}
	if p == nil {
		return nil, &domain.NotFoundError{Kind: "policy", ID: string(id)}
	}
	return p, nil
}
