/*
Package premium implements premium scheduling and the installment ledger.

PURPOSE:
  Two concerns live here:
  - schedule.go: pure generation of due dates from a coverage window and a
    payment frequency
  - ledger.go: the installment records of a policy - pending queries, payment
    recording, and the purge used by cancellation

SCHEDULE SEMANTICS:
  Steps are fixed day counts (Monthly=30, Quarterly=90, Half-Yearly=180,
  Yearly=365), NOT calendar months. A Monthly schedule starting Jan 31 lands
  on Mar 1, not Feb 28. This is a deliberate simplification carried over from
  the agency's existing records; changing it would shift every outstanding
  due date.

SEE ALSO:
  - policy/lifecycle.go: Calls Schedule at policy creation
  - policy/status.go: Derives policy status from the ledger
*/
package premium

import "github.com/insurecrm/policy-engine/domain"

// =============================================================================
// SCHEDULE - Due-date generation
// =============================================================================

// Schedule generates the ordered due dates for a coverage window. The first
// date is start itself; each subsequent date adds the frequency's fixed
// day-step; generation stops once a date passes end (end itself is included).
//
// Pure and deterministic. Callers validate end > start before invoking; a
// zero or negative span degrades to a single- or zero-element schedule rather
// than failing.
func Schedule(start, end domain.Date, freq domain.Frequency) []domain.Date {
	step := freq.StepDays()

	var dates []domain.Date
	for d := start; d.BeforeOrEqual(end); d = d.AddDays(step) {
		dates = append(dates, d)
	}
	return dates
}

// Installments materializes a schedule into Pending installment records for a
// policy, one per due date, each at the policy's premium amount.
func Installments(policyID domain.PolicyID, amount domain.Money, dates []domain.Date) []domain.PremiumInstallment {
	batch := make([]domain.PremiumInstallment, len(dates))
	for i, due := range dates {
		batch[i] = domain.PremiumInstallment{
			ID:       domain.NewPremiumID(),
			PolicyID: policyID,
			DueDate:  due,
			Amount:   amount,
			Status:   domain.PremiumPending,
		}
	}
	return batch
}
