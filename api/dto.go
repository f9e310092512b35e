/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Agent:     AgentDTO, LoginRequest
  Customer:  CustomerDTO, EnrollCustomerRequest
  Policy:    PolicyDTO, CreatePolicyRequest, CancelResultDTO
  Premium:   PremiumDTO, UpcomingPremiumDTO, PayPremiumRequest, PayResultDTO
  Dashboard: DashboardDTO
  Admin:     SweepResultDTO

VALIDATION:
  Validation is done in the domain services, not in DTOs. DTOs are pure data
  carriers; handlers only reject bodies that fail to decode or parse.

SEE ALSO:
  - handlers.go: Uses these types
  - domain/types.go: The entities these project
*/
package api

import (
	"time"

	"github.com/insurecrm/policy-engine/domain"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// LoginRequest identifies an agent. The original system had no credentials,
// only an agent ID lookup.
type LoginRequest struct {
	AgentID string `json:"agent_id"`
}

// AgentDTO represents an agent in API responses.
type AgentDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// EnrollCustomerRequest is the request to enroll a customer. ParentID and
// Relationship are set together for a family member.
type EnrollCustomerRequest struct {
	AgentID      string `json:"agent_id"`
	Name         string `json:"name"`
	PAN          string `json:"pan"`
	Aadhar       string `json:"aadhar"`
	Phone        string `json:"phone"`
	Email        string `json:"email,omitempty"`
	Income       string `json:"income_bracket"`
	ParentID     string `json:"parent_id,omitempty"`
	Relationship string `json:"relationship,omitempty"`
}

// CustomerDTO represents a customer in API responses.
type CustomerDTO struct {
	ID           string `json:"id"`
	AgentID      string `json:"agent_id"`
	Name         string `json:"name"`
	PAN          string `json:"pan"`
	Aadhar       string `json:"aadhar"`
	Phone        string `json:"phone"`
	Email        string `json:"email,omitempty"`
	Income       string `json:"income_bracket"`
	ParentID     string `json:"parent_id,omitempty"`
	Relationship string `json:"relationship,omitempty"`
	CreatedAt    string `json:"created_at,omitempty"`
}

// IdentityDTO carries a name plus optional PAN/Aadhar, used for nominees and
// beneficiaries.
type IdentityDTO struct {
	Name   string `json:"name"`
	PAN    string `json:"pan,omitempty"`
	Aadhar string `json:"aadhar,omitempty"`
}

// CreatePolicyRequest is the request to create a policy. HolderID may be
// omitted; the insured customer then holds the policy.
type CreatePolicyRequest struct {
	InsuredID     string       `json:"insured_id"`
	HolderID      string       `json:"holder_id,omitempty"`
	PolicyNumber  string       `json:"policy_number"`
	PremiumAmount string       `json:"premium_amount"`
	Frequency     string       `json:"frequency"`
	Type          string       `json:"type"`
	Provider      string       `json:"provider"`
	CoverageType  string       `json:"coverage_type"`
	Nominee       IdentityDTO  `json:"nominee"`
	Beneficiary   *IdentityDTO `json:"beneficiary,omitempty"`
	StartDate     string       `json:"start_date"`
	EndDate       string       `json:"end_date"`
}

// PolicyDTO represents a policy in API responses.
type PolicyDTO struct {
	ID            string       `json:"id"`
	InsuredID     string       `json:"insured_id"`
	HolderID      string       `json:"holder_id"`
	PolicyNumber  string       `json:"policy_number"`
	PremiumAmount string       `json:"premium_amount"`
	Frequency     string       `json:"frequency"`
	Type          string       `json:"type"`
	Provider      string       `json:"provider"`
	CoverageType  string       `json:"coverage_type"`
	Nominee       IdentityDTO  `json:"nominee"`
	Beneficiary   *IdentityDTO `json:"beneficiary,omitempty"`
	StartDate     string       `json:"start_date"`
	EndDate       string       `json:"end_date"`
	Status        string       `json:"status"`
	CreatedAt     string       `json:"created_at,omitempty"`
}

// PremiumDTO represents a premium installment.
type PremiumDTO struct {
	ID       string `json:"id"`
	PolicyID string `json:"policy_id"`
	DueDate  string `json:"due_date"`
	Amount   string `json:"amount"`
	Status   string `json:"status"`
	PaidDate string `json:"paid_date,omitempty"`
}

// PayPremiumRequest records a payment. PaidDate defaults to today.
type PayPremiumRequest struct {
	PaidDate string `json:"paid_date,omitempty"`
}

// PayResultDTO is the response after a payment: the installment plus the
// recomputed status of its policy.
type PayResultDTO struct {
	Premium      PremiumDTO `json:"premium"`
	PolicyStatus string     `json:"policy_status"`
}

// CancelResultDTO is the response after a cancellation.
type CancelResultDTO struct {
	PolicyID string `json:"policy_id"`
	Status   string `json:"status"`
	Purged   int    `json:"purged"`
}

// UpcomingPremiumDTO is a row of the upcoming-premiums view.
type UpcomingPremiumDTO struct {
	PremiumID    string `json:"premium_id"`
	PolicyID     string `json:"policy_id"`
	PolicyNumber string `json:"policy_number"`
	CustomerName string `json:"customer_name"`
	HolderName   string `json:"holder_name"`
	DueDate      string `json:"due_date"`
	Amount       string `json:"amount"`
}

// DashboardDTO mirrors the original dashboard page: per-agent counts plus the
// 30-day upcoming premium summary.
type DashboardDTO struct {
	TotalCustomers   int                  `json:"total_customers"`
	TotalPolicies    int                  `json:"total_policies"`
	ActivePolicies   int                  `json:"active_policies"`
	FamilyMembers    int                  `json:"family_members"`
	UpcomingCount    int                  `json:"upcoming_count"`
	UpcomingTotalDue string               `json:"upcoming_total_due"`
	Upcoming         []UpcomingPremiumDTO `json:"upcoming"`
}

// SweepResultDTO is the response of a manual status sweep.
type SweepResultDTO struct {
	Changed int    `json:"changed"`
	AsOf    string `json:"as_of"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toAgentDTO(a *domain.Agent) AgentDTO {
	return AgentDTO{
		ID:        string(a.ID),
		Name:      a.Name,
		Email:     a.Email,
		Phone:     a.Phone,
		CreatedAt: a.CreatedAt.Format(time.RFC3339),
	}
}

func toCustomerDTO(c domain.Customer) CustomerDTO {
	dto := CustomerDTO{
		ID:        string(c.ID),
		AgentID:   string(c.AgentID),
		Name:      c.Name,
		PAN:       c.PAN,
		Aadhar:    c.Aadhar,
		Phone:     c.Phone,
		Email:     c.Email,
		Income:    string(c.Income),
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
	}
	if c.ParentID != nil {
		dto.ParentID = string(*c.ParentID)
	}
	if c.Relationship != nil {
		dto.Relationship = string(*c.Relationship)
	}
	return dto
}

func toCustomerDTOs(customers []domain.Customer) []CustomerDTO {
	dtos := make([]CustomerDTO, len(customers))
	for i, c := range customers {
		dtos[i] = toCustomerDTO(c)
	}
	return dtos
}

func toPolicyDTO(p domain.Policy) PolicyDTO {
	dto := PolicyDTO{
		ID:            string(p.ID),
		InsuredID:     string(p.InsuredID),
		HolderID:      string(p.HolderID),
		PolicyNumber:  p.Number,
		PremiumAmount: p.Premium.String(),
		Frequency:     string(p.Frequency),
		Type:          p.Type,
		Provider:      p.Provider,
		CoverageType:  p.CoverageType,
		Nominee: IdentityDTO{
			Name:   p.Nominee.Name,
			PAN:    p.Nominee.PAN,
			Aadhar: p.Nominee.Aadhar,
		},
		StartDate: p.Start.String(),
		EndDate:   p.End.String(),
		Status:    string(p.Status),
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
	}
	if !p.Beneficiary.Empty() {
		dto.Beneficiary = &IdentityDTO{
			Name:   p.Beneficiary.Name,
			PAN:    p.Beneficiary.PAN,
			Aadhar: p.Beneficiary.Aadhar,
		}
	}
	return dto
}

func toPolicyDTOs(policies []domain.Policy) []PolicyDTO {
	dtos := make([]PolicyDTO, len(policies))
	for i, p := range policies {
		dtos[i] = toPolicyDTO(p)
	}
	return dtos
}

func toPremiumDTO(inst domain.PremiumInstallment) PremiumDTO {
	dto := PremiumDTO{
		ID:       string(inst.ID),
		PolicyID: string(inst.PolicyID),
		DueDate:  inst.DueDate.String(),
		Amount:   inst.Amount.String(),
		Status:   string(inst.Status),
	}
	if inst.PaidDate != nil {
		dto.PaidDate = inst.PaidDate.String()
	}
	return dto
}

func toPremiumDTOs(installments []domain.PremiumInstallment) []PremiumDTO {
	dtos := make([]PremiumDTO, len(installments))
	for i, inst := range installments {
		dtos[i] = toPremiumDTO(inst)
	}
	return dtos
}

func toUpcomingPremiumDTO(up domain.UpcomingPremium) UpcomingPremiumDTO {
	return UpcomingPremiumDTO{
		PremiumID:    string(up.PremiumID),
		PolicyID:     string(up.PolicyID),
		PolicyNumber: up.PolicyNumber,
		CustomerName: up.CustomerName,
		HolderName:   up.HolderName,
		DueDate:      up.DueDate.String(),
		Amount:       up.Amount.String(),
	}
}

func toUpcomingPremiumDTOs(ups []domain.UpcomingPremium) []UpcomingPremiumDTO {
	dtos := make([]UpcomingPremiumDTO, len(ups))
	for i, up := range ups {
		dtos[i] = toUpcomingPremiumDTO(up)
	}
	return dtos
}
