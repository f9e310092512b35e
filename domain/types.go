/*
Package domain contains the core model for the agency CRM engine.

PURPOSE:
  This package defines the entities the policy lifecycle engine operates on
  (agents, customers, policies, premium installments), the closed enumerations
  for statuses and payment frequencies, and the storage interfaces the engine
  requires from its persistence collaborator.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: A rupee amount backed by decimal.Decimal (no float drift)
  - Frequency: Premium payment cadence with a fixed day-step
  - PolicyStatus / PremiumStatus: Closed state enumerations
  - Agent / Customer / Policy / PremiumInstallment: The persisted entities

DESIGN PRINCIPLES:
  1. Closed variants: Enum values are validated at construction, not at query time
  2. Precision: Uses decimal.Decimal for premium amounts
  3. Type Safety: Strong typing for IDs prevents mixing customer/policy IDs
  4. Immutability: Customers are write-once; policies mutate only via status

SEE ALSO:
  - date.go: Calendar-date type and coverage periods
  - errors.go: The error taxonomy (validation/conflict/not-found/invalid-state)
  - store.go: Storage interfaces the engine consumes
*/
package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Rupee amount with decimal precision
// =============================================================================

type Money struct {
	Value decimal.Decimal
}

func NewMoney(value float64) Money {
	return Money{Value: decimal.NewFromFloat(value)}
}

func MoneyFromString(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return Money{Value: d}, nil
}

func (m Money) IsPositive() bool   { return m.Value.IsPositive() }
func (m Money) IsZero() bool       { return m.Value.IsZero() }
func (m Money) Add(o Money) Money  { return Money{Value: m.Value.Add(o.Value)} }
func (m Money) Equal(o Money) bool { return m.Value.Equal(o.Value) }
func (m Money) Float64() float64   { f, _ := m.Value.Float64(); return f }
func (m Money) String() string     { return m.Value.StringFixed(2) }

// =============================================================================
// IDENTIFIERS
// =============================================================================

// Identifiers are opaque unique strings. The single-letter prefixes (A, C, P,
// PR) are a readability convention carried over from the agency's records, not
// a contract.
type (
	AgentID    string
	CustomerID string
	PolicyID   string
	PremiumID  string
)

// =============================================================================
// FREQUENCY - Premium payment cadence
// =============================================================================

type Frequency string

const (
	FrequencyMonthly    Frequency = "Monthly"
	FrequencyQuarterly  Frequency = "Quarterly"
	FrequencyHalfYearly Frequency = "Half-Yearly"
	FrequencyYearly     Frequency = "Yearly"
)

// ParseFrequency validates a frequency at the construction boundary.
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(s)
	switch f {
	case FrequencyMonthly, FrequencyQuarterly, FrequencyHalfYearly, FrequencyYearly:
		return f, nil
	}
	return "", &ValidationError{Fields: []string{"frequency"}, Reason: fmt.Sprintf("unknown frequency %q", s)}
}

// StepDays returns the fixed day-step between installments. The schedule uses
// fixed day counts, not calendar months. Unrecognized values fall back to the
// monthly step; ParseFrequency keeps them out of new records, so the fallback
// only matters for values that bypassed construction.
func (f Frequency) StepDays() int {
	switch f {
	case FrequencyQuarterly:
		return 90
	case FrequencyHalfYearly:
		return 180
	case FrequencyYearly:
		return 365
	default:
		return 30
	}
}

// =============================================================================
// STATUSES
// =============================================================================

type PolicyStatus string

const (
	PolicyActive    PolicyStatus = "Active"
	PolicyLapsed    PolicyStatus = "Lapsed"
	PolicyCompleted PolicyStatus = "Completed"
	PolicyCancelled PolicyStatus = "Cancelled"
)

// Terminal reports whether the status absorbs all further transitions.
// Cancelled is the only terminal status: once set, recomputation must not run.
func (s PolicyStatus) Terminal() bool { return s == PolicyCancelled }

type PremiumStatus string

const (
	PremiumPending PremiumStatus = "Pending"
	PremiumPaid    PremiumStatus = "Paid"
)

// =============================================================================
// RELATIONSHIP & INCOME
// =============================================================================

type Relationship string

const (
	RelationshipSpouse  Relationship = "Spouse"
	RelationshipChild   Relationship = "Child"
	RelationshipParent  Relationship = "Parent"
	RelationshipSibling Relationship = "Sibling"
	RelationshipOther   Relationship = "Other"
)

func ParseRelationship(s string) (Relationship, error) {
	r := Relationship(s)
	switch r {
	case RelationshipSpouse, RelationshipChild, RelationshipParent, RelationshipSibling, RelationshipOther:
		return r, nil
	}
	return "", &ValidationError{Fields: []string{"relationship"}, Reason: fmt.Sprintf("unknown relationship %q", s)}
}

type IncomeBracket string

const (
	IncomeBelow5L  IncomeBracket = "Below ₹5L"
	Income5To10L   IncomeBracket = "₹5L-₹10L"
	Income10To20L  IncomeBracket = "₹10L-₹20L"
	IncomeAbove20L IncomeBracket = "Above ₹20L"
)

func ParseIncomeBracket(s string) (IncomeBracket, error) {
	b := IncomeBracket(s)
	switch b {
	case IncomeBelow5L, Income5To10L, Income10To20L, IncomeAbove20L:
		return b, nil
	}
	return "", &ValidationError{Fields: []string{"income_bracket"}, Reason: fmt.Sprintf("unknown income bracket %q", s)}
}

// =============================================================================
// ENTITIES
// =============================================================================

// Agent is the single operator of a tenant. Customers are scoped to an agent;
// the engine itself never reads agent state beyond scoping queries.
type Agent struct {
	ID        AgentID
	Name      string
	Email     string
	Phone     string
	CreatedAt time.Time
}

// Customer is write-once: there is no edit flow after enrollment.
//
// INVARIANTS:
//   - ParentID set ⇒ Relationship set
//   - The referenced parent has no parent of its own (single-level hierarchy)
type Customer struct {
	ID           CustomerID
	AgentID      AgentID
	PAN          string // unique across customers
	Aadhar       string
	Name         string
	Phone        string
	Email        string
	Income       IncomeBracket
	ParentID     *CustomerID
	Relationship *Relationship
	CreatedAt    time.Time
}

// FamilyMember reports whether this customer was enrolled under a primary
// customer.
func (c *Customer) FamilyMember() bool { return c.ParentID != nil }

// IdentitySnapshot captures nominee/beneficiary identity at enrollment time.
// It is a snapshot, not a live customer reference.
type IdentitySnapshot struct {
	Name   string
	PAN    string
	Aadhar string
}

func (s IdentitySnapshot) Empty() bool { return s.Name == "" && s.PAN == "" && s.Aadhar == "" }

// Policy is never physically deleted; cancellation pins Status to Cancelled.
type Policy struct {
	ID           PolicyID
	InsuredID    CustomerID // whom the coverage applies to
	HolderID     CustomerID // who pays; insured itself or its parent
	Number       string     // unique across policies
	Premium      Money
	Frequency    Frequency
	Type         string // e.g. "Life Insurance"
	Provider     string
	CoverageType string // "Individual" or "Family"
	Nominee      IdentitySnapshot
	Beneficiary  IdentitySnapshot
	Start        Date
	End          Date
	Status       PolicyStatus
	CreatedAt    time.Time
}

// PremiumInstallment is created in a batch at policy creation. Pending rows
// are the only mutable ones: they either transition to Paid or are purged by
// cancellation. Paid rows are permanent history.
type PremiumInstallment struct {
	ID       PremiumID
	PolicyID PolicyID
	DueDate  Date
	Amount   Money
	Status   PremiumStatus
	PaidDate *Date // set only when Status == PremiumPaid
}
