package customer_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insurecrm/policy-engine/customer"
	"github.com/insurecrm/policy-engine/domain"
	"github.com/insurecrm/policy-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const testAgentID = domain.AgentID("A1001")

func newTestService(t *testing.T) (*customer.Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	require.NoError(t, store.InsertAgent(context.Background(), domain.Agent{
		ID:        testAgentID,
		Name:      "John Doe",
		CreatedAt: time.Now().UTC(),
	}))
	return customer.NewService(store), store
}

func primaryInput(name, pan string) customer.EnrollInput {
	return customer.EnrollInput{
		AgentID: testAgentID,
		Name:    name,
		PAN:     pan,
		Aadhar:  "123412341234",
		Phone:   "9812345670",
		Income:  "₹5L-₹10L",
	}
}

// =============================================================================
// ENROLLMENT TESTS
// =============================================================================

func TestEnroll_Primary(t *testing.T) {
	svc, _ := newTestService(t)

	c, err := svc.Enroll(context.Background(), primaryInput("Priya Desai", "ABCPD1234E"))
	require.NoError(t, err)

	assert.NotEmpty(t, c.ID)
	assert.Equal(t, testAgentID, c.AgentID)
	assert.Nil(t, c.ParentID)
	assert.Nil(t, c.Relationship)
	assert.False(t, c.FamilyMember())
}

func TestEnroll_MissingFields_ListedInError(t *testing.T) {
	svc, _ := newTestService(t)

	in := primaryInput("", "")
	in.Phone = ""

	_, err := svc.Enroll(context.Background(), in)
	require.ErrorIs(t, err, domain.ErrValidation)

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.ElementsMatch(t, []string{"name", "pan", "phone"}, verr.Fields)
}

func TestEnroll_UnknownIncomeBracket_Rejected(t *testing.T) {
	svc, _ := newTestService(t)

	in := primaryInput("Priya Desai", "ABCPD1234E")
	in.Income = "A lot"

	_, err := svc.Enroll(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestEnroll_DuplicatePAN_Conflict(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Enroll(ctx, primaryInput("Priya Desai", "ABCPD1234E"))
	require.NoError(t, err)

	_, err = svc.Enroll(ctx, primaryInput("Someone Else", "ABCPD1234E"))
	require.ErrorIs(t, err, domain.ErrConflict)

	var cerr *domain.ConflictError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "pan", cerr.Field)
}

// =============================================================================
// FAMILY HIERARCHY TESTS
// =============================================================================

func enrollFamily(t *testing.T, svc *customer.Service) (primary, member *domain.Customer) {
	t.Helper()
	ctx := context.Background()

	primary, err := svc.Enroll(ctx, primaryInput("Priya Desai", "ABCPD1234E"))
	require.NoError(t, err)

	in := primaryInput("Aarav Desai", "ABCPD5678F")
	in.ParentID = primary.ID
	in.Relationship = "Child"
	member, err = svc.Enroll(ctx, in)
	require.NoError(t, err)
	return primary, member
}

func TestEnroll_FamilyMember(t *testing.T) {
	svc, _ := newTestService(t)

	primary, member := enrollFamily(t, svc)

	require.NotNil(t, member.ParentID)
	assert.Equal(t, primary.ID, *member.ParentID)
	require.NotNil(t, member.Relationship)
	assert.Equal(t, domain.RelationshipChild, *member.Relationship)
	assert.True(t, member.FamilyMember())
}

func TestEnroll_ParentWithoutRelationship_Rejected(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	primary, err := svc.Enroll(ctx, primaryInput("Priya Desai", "ABCPD1234E"))
	require.NoError(t, err)

	in := primaryInput("Aarav Desai", "ABCPD5678F")
	in.ParentID = primary.ID

	_, err = svc.Enroll(ctx, in)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestEnroll_MissingParent_NotFound(t *testing.T) {
	svc, _ := newTestService(t)

	in := primaryInput("Aarav Desai", "ABCPD5678F")
	in.ParentID = domain.NewCustomerID()
	in.Relationship = "Child"

	_, err := svc.Enroll(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEnroll_FamilyMemberAsParent_Rejected(t *testing.T) {
	// The hierarchy is exactly one level deep: a family member cannot be
	// anybody's parent.
	svc, _ := newTestService(t)
	_, member := enrollFamily(t, svc)

	in := primaryInput("Mira Desai", "ABCPD9012G")
	in.ParentID = member.ID
	in.Relationship = "Sibling"

	_, err := svc.Enroll(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestFamily_ListsEnrolledMembers(t *testing.T) {
	svc, _ := newTestService(t)
	primary, member := enrollFamily(t, svc)

	members, err := svc.Family(context.Background(), primary.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, member.ID, members[0].ID)
}

// =============================================================================
// ELIGIBLE HOLDER TESTS
// =============================================================================

func TestEligibleHolders_PrimaryIsSelfOnly(t *testing.T) {
	svc, _ := newTestService(t)
	primary, err := svc.Enroll(context.Background(), primaryInput("Priya Desai", "ABCPD1234E"))
	require.NoError(t, err)

	holders := customer.EligibleHolders(primary)
	assert.Equal(t, []domain.CustomerID{primary.ID}, holders)
}

func TestEligibleHolders_FamilyMemberIncludesParent(t *testing.T) {
	svc, _ := newTestService(t)
	primary, member := enrollFamily(t, svc)

	holders := customer.EligibleHolders(member)
	assert.Equal(t, []domain.CustomerID{member.ID, primary.ID}, holders)
}

func TestValidateHolder(t *testing.T) {
	svc, _ := newTestService(t)
	primary, member := enrollFamily(t, svc)

	assert.NoError(t, customer.ValidateHolder(member, member.ID))
	assert.NoError(t, customer.ValidateHolder(member, primary.ID))
	assert.NoError(t, customer.ValidateHolder(primary, primary.ID))

	err := customer.ValidateHolder(primary, member.ID)
	assert.ErrorIs(t, err, domain.ErrValidation)
}
