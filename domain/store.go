/*
store.go - Persistence interfaces the engine requires

PURPOSE:
  Defines the boundary between the domain logic and the database. The engine
  only ever talks to these interfaces; implementations live in store/sqlite
  (production) and store/memory (tests/dev).

ATOMICITY CONTRACT:
  Every logical operation (policy + installment batch creation, mark-paid +
  status recompute, cancel + purge + status pin) runs inside a single WithTx
  scope: either every write lands or none does. A crash mid-operation must
  never leave a half-cancelled policy or a partial installment batch.

STATE-GUARDED WRITES:
  MarkPremiumPaid and DeletePendingPremiums only touch Pending rows. Paying an
  installment that is missing or already Paid reports NotFoundError - a double
  payment is rejected, not silently ignored.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - store/memory/memory.go: In-memory for testing

SEE ALSO:
  - premium/ledger.go: Ledger operations built on PremiumStore
  - policy/lifecycle.go: Transactional orchestration via WithTx
*/
package domain

import "context"

// =============================================================================
// PER-ENTITY STORES
// =============================================================================

type AgentStore interface {
	InsertAgent(ctx context.Context, a Agent) error

	// GetAgent returns (nil, nil) when the agent does not exist.
	GetAgent(ctx context.Context, id AgentID) (*Agent, error)

	// ListAgents returns every agent, ID order.
	ListAgents(ctx context.Context) ([]Agent, error)

	CountAgents(ctx context.Context) (int, error)
}

type CustomerStore interface {
	InsertCustomer(ctx context.Context, c Customer) error

	// GetCustomer returns (nil, nil) when the customer does not exist.
	GetCustomer(ctx context.Context, id CustomerID) (*Customer, error)

	// GetCustomerByPAN is the uniqueness probe for enrollment.
	GetCustomerByPAN(ctx context.Context, pan string) (*Customer, error)

	// ListCustomersByParent returns the family members enrolled under a
	// primary customer.
	ListCustomersByParent(ctx context.Context, parentID CustomerID) ([]Customer, error)

	// ListCustomers returns every customer scoped to an agent, name order.
	ListCustomers(ctx context.Context, agentID AgentID) ([]Customer, error)
}

type PolicyStore interface {
	InsertPolicy(ctx context.Context, p Policy) error

	// GetPolicy returns (nil, nil) when the policy does not exist.
	GetPolicy(ctx context.Context, id PolicyID) (*Policy, error)

	// GetPolicyByNumber is the uniqueness probe for enrollment.
	GetPolicyByNumber(ctx context.Context, number string) (*Policy, error)

	UpdatePolicyStatus(ctx context.Context, id PolicyID, status PolicyStatus) error

	// ListPoliciesByCustomer returns policies insuring the given customer,
	// newest start date first.
	ListPoliciesByCustomer(ctx context.Context, customerID CustomerID) ([]Policy, error)

	// ListAllPolicies feeds the bulk maintenance sweep.
	ListAllPolicies(ctx context.Context) ([]Policy, error)
}

// UpcomingPremium is the read model for the dashboard and the upcoming-
// premiums view: a pending installment joined with its policy and insured.
type UpcomingPremium struct {
	PremiumID    PremiumID
	PolicyID     PolicyID
	PolicyNumber string
	CustomerName string
	HolderName   string
	DueDate      Date
	Amount       Money
}

type PremiumStore interface {
	// InsertPremiumBatch persists a full schedule. Callers wrap it in WithTx
	// together with the policy insert.
	InsertPremiumBatch(ctx context.Context, batch []PremiumInstallment) error

	// GetPremium returns (nil, nil) when the installment does not exist.
	GetPremium(ctx context.Context, id PremiumID) (*PremiumInstallment, error)

	// ListPendingPremiums returns Pending installments for a policy, oldest
	// due date first.
	ListPendingPremiums(ctx context.Context, policyID PolicyID) ([]PremiumInstallment, error)

	// ListPremiumsByPolicy returns every installment, due date order.
	ListPremiumsByPolicy(ctx context.Context, policyID PolicyID) ([]PremiumInstallment, error)

	// MarkPremiumPaid transitions exactly one Pending installment to Paid and
	// stamps the paid date. Returns NotFoundError when the installment is
	// missing or not Pending.
	MarkPremiumPaid(ctx context.Context, id PremiumID, paidOn Date) error

	// DeletePendingPremiums purges all Pending installments for a policy and
	// returns the count deleted. Paid installments are untouched.
	DeletePendingPremiums(ctx context.Context, policyID PolicyID) (int, error)

	// ListUpcomingPremiums returns an agent's Pending installments due in
	// [today, today+days], due date order.
	ListUpcomingPremiums(ctx context.Context, agentID AgentID, today Date, days int) ([]UpcomingPremium, error)
}

// =============================================================================
// AGGREGATE STORE
// =============================================================================

// Store is the full persistence surface the engine consumes.
type Store interface {
	AgentStore
	CustomerStore
	PolicyStore
	PremiumStore

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back; otherwise it is committed. Nested WithTx is
	// not supported - orchestration happens at the service layer only.
	WithTx(ctx context.Context, fn func(Store) error) error
}
