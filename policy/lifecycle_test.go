package policy_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insurecrm/policy-engine/customer"
	"github.com/insurecrm/policy-engine/domain"
	"github.com/insurecrm/policy-engine/policy"
	"github.com/insurecrm/policy-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type lifecycleFixture struct {
	store   *memory.Store
	service *policy.Service
	insured *domain.Customer
	parent  *domain.Customer
	today   domain.Date
}

func newLifecycleFixture(t *testing.T) *lifecycleFixture {
	t.Helper()
	ctx := context.Background()
	store := memory.New()

	agent := domain.Agent{ID: "A1001", Name: "John Doe", CreatedAt: time.Now().UTC()}
	require.NoError(t, store.InsertAgent(ctx, agent))

	customers := customer.NewService(store)
	parent, err := customers.Enroll(ctx, customer.EnrollInput{
		AgentID: agent.ID,
		Name:    "Priya Desai",
		PAN:     "ABCPD1234E",
		Aadhar:  "123412341234",
		Phone:   "9812345670",
		Income:  "₹10L-₹20L",
	})
	require.NoError(t, err)

	insured, err := customers.Enroll(ctx, customer.EnrollInput{
		AgentID:      agent.ID,
		Name:         "Aarav Desai",
		PAN:          "ABCPD5678F",
		Aadhar:       "432143214321",
		Phone:        "9812345671",
		Income:       "Below ₹5L",
		ParentID:     parent.ID,
		Relationship: "Child",
	})
	require.NoError(t, err)

	today := domain.NewDate(2024, time.June, 1)
	service := policy.NewService(store)
	service.Now = func() domain.Date { return today }

	return &lifecycleFixture{
		store:   store,
		service: service,
		insured: insured,
		parent:  parent,
		today:   today,
	}
}

func (f *lifecycleFixture) validInput() policy.CreatePolicyInput {
	return policy.CreatePolicyInput{
		InsuredID:    f.insured.ID,
		Number:       "POL-001",
		Premium:      domain.NewMoney(1500),
		Frequency:    "Quarterly",
		Type:         "Health",
		Provider:     "Star Health",
		CoverageType: "Individual",
		Nominee:      domain.IdentitySnapshot{Name: "Priya Desai"},
		Start:        domain.NewDate(2024, time.January, 1),
		End:          domain.NewDate(2024, time.December, 31),
	}
}

// =============================================================================
// CREATE TESTS
// =============================================================================

func TestCreatePolicy_PersistsPolicyAndSchedule(t *testing.T) {
	// GIVEN: A valid quarterly policy covering all of 2024
	// WHEN: Creating it
	// THEN: The policy is Active and five installments (Jan 1 + 4x90 days)
	//       exist, all Pending at the premium amount

	f := newLifecycleFixture(t)
	ctx := context.Background()

	p, err := f.service.CreatePolicy(ctx, f.validInput())
	require.NoError(t, err)
	assert.Equal(t, domain.PolicyActive, p.Status)
	assert.Equal(t, f.insured.ID, p.InsuredID)
	assert.Equal(t, f.insured.ID, p.HolderID, "insured holds the policy by default")

	pending, err := f.store.ListPendingPremiums(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, pending, 5)
	for _, inst := range pending {
		assert.True(t, inst.Amount.Equal(p.Premium))
	}
}

func TestCreatePolicy_ParentAsHolder(t *testing.T) {
	f := newLifecycleFixture(t)

	in := f.validInput()
	in.HolderID = f.parent.ID

	p, err := f.service.CreatePolicy(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, f.parent.ID, p.HolderID)
}

func TestCreatePolicy_UnrelatedHolder_Rejected(t *testing.T) {
	f := newLifecycleFixture(t)

	in := f.validInput()
	in.HolderID = domain.NewCustomerID()

	_, err := f.service.CreatePolicy(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCreatePolicy_MissingFields_Rejected(t *testing.T) {
	f := newLifecycleFixture(t)

	in := f.validInput()
	in.Number = ""
	in.Provider = ""
	in.Nominee.Name = ""

	_, err := f.service.CreatePolicy(context.Background(), in)
	require.ErrorIs(t, err, domain.ErrValidation)

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.ElementsMatch(t,
		[]string{"policy_number", "provider", "nominee_name"}, verr.Fields)
}

func TestCreatePolicy_NegativePremium_Rejected(t *testing.T) {
	f := newLifecycleFixture(t)

	in := f.validInput()
	in.Premium = domain.NewMoney(-100)

	_, err := f.service.CreatePolicy(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCreatePolicy_ZeroPremium_ReportedMissing(t *testing.T) {
	// A zero amount joins the missing-field list alongside the other blanks
	// instead of surfacing as a separate failure.
	f := newLifecycleFixture(t)

	in := f.validInput()
	in.Premium = domain.NewMoney(0)
	in.Number = ""

	_, err := f.service.CreatePolicy(context.Background(), in)
	require.ErrorIs(t, err, domain.ErrValidation)

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.ElementsMatch(t, []string{"policy_number", "premium_amount"}, verr.Fields)
}

func TestCreatePolicy_EndNotAfterStart_Rejected(t *testing.T) {
	f := newLifecycleFixture(t)

	in := f.validInput()
	in.End = in.Start

	_, err := f.service.CreatePolicy(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCreatePolicy_UnknownFrequency_Rejected(t *testing.T) {
	f := newLifecycleFixture(t)

	in := f.validInput()
	in.Frequency = "Weekly"

	_, err := f.service.CreatePolicy(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCreatePolicy_DuplicateNumber_ConflictAndNothingWritten(t *testing.T) {
	// GIVEN: An existing policy POL-001
	// WHEN: Creating another with the same number
	// THEN: ConflictError, and no orphan installments from the failed attempt

	f := newLifecycleFixture(t)
	ctx := context.Background()

	first, err := f.service.CreatePolicy(ctx, f.validInput())
	require.NoError(t, err)

	in := f.validInput()
	in.Frequency = "Monthly"
	_, err = f.service.CreatePolicy(ctx, in)
	require.ErrorIs(t, err, domain.ErrConflict)

	policies, err := f.store.ListPoliciesByCustomer(ctx, f.insured.ID)
	require.NoError(t, err)
	assert.Len(t, policies, 1)

	// Only the first policy's schedule exists.
	history, err := f.store.ListPremiumsByPolicy(ctx, first.ID)
	require.NoError(t, err)
	assert.Len(t, history, 5)
}

func TestCreatePolicy_MissingInsured_NotFound(t *testing.T) {
	f := newLifecycleFixture(t)

	in := f.validInput()
	in.InsuredID = domain.NewCustomerID()

	_, err := f.service.CreatePolicy(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// =============================================================================
// PAY TESTS
// =============================================================================

func TestMarkPremiumPaid_RecomputesStatusInSameOperation(t *testing.T) {
	// GIVEN: A policy lapsed because its first two installments are overdue
	// WHEN: Paying only one of them
	// THEN: It stays Lapsed; paying the second returns it to Active

	f := newLifecycleFixture(t)
	ctx := context.Background()

	p, err := f.service.CreatePolicy(ctx, f.validInput())
	require.NoError(t, err)

	engine := policy.NewEngine(f.store, f.store)
	status, err := engine.Recompute(ctx, p.ID, f.today)
	require.NoError(t, err)
	require.Equal(t, domain.PolicyLapsed, status)

	pending, err := f.store.ListPendingPremiums(ctx, p.ID)
	require.NoError(t, err)

	status, err = f.service.MarkPremiumPaid(ctx, pending[0].ID, f.today)
	require.NoError(t, err)
	assert.Equal(t, domain.PolicyLapsed, status, "second overdue installment keeps it lapsed")

	status, err = f.service.MarkPremiumPaid(ctx, pending[1].ID, f.today)
	require.NoError(t, err)
	assert.Equal(t, domain.PolicyActive, status)
}

func TestMarkPremiumPaid_FinalInstallment_Completes(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()

	in := f.validInput()
	in.Frequency = "Yearly"
	in.Start = domain.NewDate(2024, time.July, 1)
	in.End = domain.NewDate(2025, time.June, 30)
	p, err := f.service.CreatePolicy(ctx, in)
	require.NoError(t, err)

	pending, err := f.store.ListPendingPremiums(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	status, err := f.service.MarkPremiumPaid(ctx, pending[0].ID, f.today)
	require.NoError(t, err)
	assert.Equal(t, domain.PolicyCompleted, status)
}

func TestMarkPremiumPaid_MissingInstallment_NotFound(t *testing.T) {
	f := newLifecycleFixture(t)

	_, err := f.service.MarkPremiumPaid(context.Background(), "PR-missing", f.today)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMarkPremiumPaid_DoublePayment_NotFound(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()

	p, err := f.service.CreatePolicy(ctx, f.validInput())
	require.NoError(t, err)
	pending, err := f.store.ListPendingPremiums(ctx, p.ID)
	require.NoError(t, err)

	_, err = f.service.MarkPremiumPaid(ctx, pending[0].ID, f.today)
	require.NoError(t, err)

	_, err = f.service.MarkPremiumPaid(ctx, pending[0].ID, f.today)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// =============================================================================
// CANCEL TESTS
// =============================================================================

func TestCancelPolicy_PurgesPendingKeepsPaid(t *testing.T) {
	// GIVEN: A policy with two paid and three pending installments
	// WHEN: Cancelling
	// THEN: Three pending are purged, the paid history survives, and the
	//       status is pinned Cancelled

	f := newLifecycleFixture(t)
	ctx := context.Background()

	p, err := f.service.CreatePolicy(ctx, f.validInput())
	require.NoError(t, err)
	pending, err := f.store.ListPendingPremiums(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, pending, 5)

	for _, inst := range pending[:2] {
		_, err := f.service.MarkPremiumPaid(ctx, inst.ID, f.today)
		require.NoError(t, err)
	}

	purged, err := f.service.CancelPolicy(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, purged)

	got, err := f.store.GetPolicy(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PolicyCancelled, got.Status)

	history, err := f.store.ListPremiumsByPolicy(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	for _, inst := range history {
		assert.Equal(t, domain.PremiumPaid, inst.Status)
	}
}

func TestCancelPolicy_AlreadyCancelled_InvalidState(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()

	p, err := f.service.CreatePolicy(ctx, f.validInput())
	require.NoError(t, err)
	_, err = f.service.CancelPolicy(ctx, p.ID)
	require.NoError(t, err)

	_, err = f.service.CancelPolicy(ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	var iserr *domain.InvalidStateError
	require.ErrorAs(t, err, &iserr)
	assert.Equal(t, domain.PolicyCancelled, iserr.Status)
	assert.Equal(t, "cancel", iserr.Op)
}

func TestCancelPolicy_ThenPayPaidInstallment_InvalidState(t *testing.T) {
	// Paying anything on a cancelled policy fails with InvalidStateError,
	// even an installment that survived the purge as paid history.
	f := newLifecycleFixture(t)
	ctx := context.Background()

	p, err := f.service.CreatePolicy(ctx, f.validInput())
	require.NoError(t, err)
	pending, err := f.store.ListPendingPremiums(ctx, p.ID)
	require.NoError(t, err)

	_, err = f.service.MarkPremiumPaid(ctx, pending[0].ID, f.today)
	require.NoError(t, err)

	_, err = f.service.CancelPolicy(ctx, p.ID)
	require.NoError(t, err)

	_, err = f.service.MarkPremiumPaid(ctx, pending[0].ID, f.today)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestCancelPolicy_Missing_NotFound(t *testing.T) {
	f := newLifecycleFixture(t)

	_, err := f.service.CancelPolicy(context.Background(), "P-missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
