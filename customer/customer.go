/*
Package customer implements customer enrollment and family resolution.

PURPOSE:
  - Enrollment: write-once creation of customers with PAN uniqueness and the
    single-level family hierarchy invariant
  - Family/Ownership resolution: which customers may hold a policy for a
    given insured (self, or self plus parent)

FAMILY MODEL:
  The hierarchy is exactly one level deep: a family member references a
  primary customer; a primary customer references nobody. The original system
  enforced this only through its form flow - here it is a hard invariant
  checked at enrollment.

SEE ALSO:
  - policy/lifecycle.go: Rejects policy holders outside the eligible set
*/
package customer

import (
	"context"
	"fmt"
	"time"

	"github.com/insurecrm/policy-engine/domain"
)

// =============================================================================
// ENROLLMENT
// =============================================================================

// EnrollInput carries the enrollment form fields. ParentID and Relationship
// are both empty for a primary customer and both set for a family member.
type EnrollInput struct {
	AgentID      domain.AgentID
	Name         string
	PAN          string
	Aadhar       string
	Phone        string
	Email        string // optional
	Income       string
	ParentID     domain.CustomerID // optional
	Relationship string            // required iff ParentID is set
}

type Service struct {
	Store domain.Store
}

func NewService(store domain.Store) *Service {
	return &Service{Store: store}
}

// Enroll registers a new customer.
//
// Validation order: required fields, then the family invariants, then the PAN
// uniqueness probe. Any failure aborts with nothing written.
func (s *Service) Enroll(ctx context.Context, in EnrollInput) (*domain.Customer, error) {
	var missing []string
	if in.Name == "" {
		missing = append(missing, "name")
	}
	if in.PAN == "" {
		missing = append(missing, "pan")
	}
	if in.Aadhar == "" {
		missing = append(missing, "aadhar")
	}
	if in.Phone == "" {
		missing = append(missing, "phone")
	}
	if in.Income == "" {
		missing = append(missing, "income_bracket")
	}
	if len(missing) > 0 {
		return nil, &domain.ValidationError{Fields: missing}
	}

	income, err := domain.ParseIncomeBracket(in.Income)
	if err != nil {
		return nil, err
	}

	c := domain.Customer{
		ID:        domain.NewCustomerID(),
		AgentID:   in.AgentID,
		PAN:       in.PAN,
		Aadhar:    in.Aadhar,
		Name:      in.Name,
		Phone:     in.Phone,
		Email:     in.Email,
		Income:    income,
		CreatedAt: time.Now().UTC(),
	}

	if in.ParentID != "" {
		if in.Relationship == "" {
			return nil, &domain.ValidationError{
				Fields: []string{"relationship"},
				Reason: "relationship is required for a family member",
			}
		}
		rel, err := domain.ParseRelationship(in.Relationship)
		if err != nil {
			return nil, err
		}

		parent, err := s.Store.GetCustomer(ctx, in.ParentID)
		if err != nil {
			return nil, fmt.Errorf("failed to load parent customer: %w", err)
		}
		if parent == nil {
			return nil, &domain.NotFoundError{Kind: "customer", ID: string(in.ParentID)}
		}
		// Single-level hierarchy: the chosen parent must itself be primary.
		if parent.FamilyMember() {
			return nil, &domain.ValidationError{
				Fields: []string{"parent_id"},
				Reason: fmt.Sprintf("customer %s is already a family member and cannot be a parent", parent.ID),
			}
		}

		parentID := in.ParentID
		c.ParentID = &parentID
		c.Relationship = &rel
	}

	existing, err := s.Store.GetCustomerByPAN(ctx, in.PAN)
	if err != nil {
		return nil, fmt.Errorf("failed to check PAN uniqueness: %w", err)
	}
	if existing != nil {
		return nil, &domain.ConflictError{Field: "pan", Value: in.PAN}
	}

	if err := s.Store.InsertCustomer(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to insert customer: %w", err)
	}
	return &c, nil
}

// Get returns a customer, or NotFoundError.
func (s *Service) Get(ctx context.Context, id domain.CustomerID) (*domain.Customer, error) {
	c, err := s.Store.GetCustomer(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load customer: %w", err)
	}
	if c == nil {
		return nil, &domain.NotFoundError{Kind: "customer", ID: string(id)}
	}
	return c, nil
}

// Family returns a primary customer's enrolled family members.
func (s *Service) Family(ctx context.Context, id domain.CustomerID) ([]domain.Customer, error) {
	return s.Store.ListCustomersByParent(ctx, id)
}

// =============================================================================
// FAMILY / OWNERSHIP RESOLVER
// =============================================================================

// EligibleHolders returns the customers allowed to hold a policy insuring c:
// the insured alone when primary, the insured plus its parent when enrolled
// as a family member. The caller picks one; policy creation rejects anything
// outside this set.
func EligibleHolders(c *domain.Customer) []domain.CustomerID {
	holders := []domain.CustomerID{c.ID}
	if c.ParentID != nil {
		holders = append(holders, *c.ParentID)
	}
	return holders
}

// ValidateHolder rejects a holder outside the insured's eligible set.
func ValidateHolder(insured *domain.Customer, holderID domain.CustomerID) error {
	for _, id := range EligibleHolders(insured) {
		if id == holderID {
			return nil
		}
	}
	return &domain.ValidationError{
		Fields: []string{"holder_id"},
		Reason: fmt.Sprintf("customer %s is not an eligible policy holder for insured %s", holderID, insured.ID),
	}
}
