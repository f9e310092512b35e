package memory

import (
	"context"

	"github.com/insurecrm/policy-engine/domain"
)

// =============================================================================
// TRANSACTIONS - Simulated with snapshot + rollback
// =============================================================================

// WithTx executes fn while holding the write lock. On error the pre-call
// state is restored, giving the same all-or-nothing behavior as a database
// transaction.
func (s *Store) WithTx(ctx context.Context, fn func(domain.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(&txView{parent: s}); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type snapshot struct {
	agents    map[domain.AgentID]domain.Agent
	customers map[domain.CustomerID]domain.Customer
	policies  map[domain.PolicyID]domain.Policy
	premiums  map[domain.PremiumID]domain.PremiumInstallment
}

func (s *Store) snapshot() snapshot {
	snap := snapshot{
		agents:    make(map[domain.AgentID]domain.Agent, len(s.agents)),
		customers: make(map[domain.CustomerID]domain.Customer, len(s.customers)),
		policies:  make(map[domain.PolicyID]domain.Policy, len(s.policies)),
		premiums:  make(map[domain.PremiumID]domain.PremiumInstallment, len(s.premiums)),
	}
	for k, v := range s.agents {
		snap.agents[k] = v
	}
	for k, v := range s.customers {
		snap.customers[k] = v
	}
	for k, v := range s.policies {
		snap.policies[k] = v
	}
	for k, v := range s.premiums {
		snap.premiums[k] = v
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.agents = snap.agents
	s.customers = snap.customers
	s.policies = snap.policies
	s.premiums = snap.premiums
}

// txView routes to the parent's lock-free variants; the parent's write lock
// is already held for the duration of WithTx.
type txView struct {
	parent *Store
}

var _ domain.Store = (*txView)(nil)

func (tv *txView) InsertAgent(_ context.Context, a domain.Agent) error {
	return tv.parent.insertAgentLocked(a)
}

func (tv *txView) GetAgent(_ context.Context, id domain.AgentID) (*domain.Agent, error) {
	return tv.parent.getAgentLocked(id)
}

func (tv *txView) ListAgents(_ context.Context) ([]domain.Agent, error) {
	return tv.parent.listAgentsLocked()
}

func (tv *txView) CountAgents(_ context.Context) (int, error) {
	return len(tv.parent.agents), nil
}

func (tv *txView) InsertCustomer(_ context.Context, c domain.Customer) error {
	return tv.parent.insertCustomerLocked(c)
}

func (tv *txView) GetCustomer(_ context.Context, id domain.CustomerID) (*domain.Customer, error) {
	return tv.parent.getCustomerLocked(id)
}

func (tv *txView) GetCustomerByPAN(_ context.Context, pan string) (*domain.Customer, error) {
	return tv.parent.getCustomerByPANLocked(pan)
}

func (tv *txView) ListCustomersByParent(_ context.Context, parentID domain.CustomerID) ([]domain.Customer, error) {
	return tv.parent.listCustomersByParentLocked(parentID)
}

func (tv *txView) ListCustomers(_ context.Context, agentID domain.AgentID) ([]domain.Customer, error) {
	return tv.parent.listCustomersLocked(agentID)
}

func (tv *txView) InsertPolicy(_ context.Context, p domain.Policy) error {
	return tv.parent.insertPolicyLocked(p)
}

func (tv *txView) GetPolicy(_ context.Context, id domain.PolicyID) (*domain.Policy, error) {
	return tv.parent.getPolicyLocked(id)
}

func (tv *txView) GetPolicyByNumber(_ context.Context, number string) (*domain.Policy, error) {
	return tv.parent.getPolicyByNumberLocked(number)
}

func (tv *txView) UpdatePolicyStatus(_ context.Context, id domain.PolicyID, status domain.PolicyStatus) error {
	return tv.parent.updatePolicyStatusLocked(id, status)
}

func (tv *txView) ListPoliciesByCustomer(_ context.Context, customerID domain.CustomerID) ([]domain.Policy, error) {
	return tv.parent.listPoliciesByCustomerLocked(customerID)
}

func (tv *txView) ListAllPolicies(_ context.Context) ([]domain.Policy, error) {
	return tv.parent.listAllPoliciesLocked()
}

func (tv *txView) InsertPremiumBatch(_ context.Context, batch []domain.PremiumInstallment) error {
	return tv.parent.insertPremiumBatchLocked(batch)
}

func (tv *txView) GetPremium(_ context.Context, id domain.PremiumID) (*domain.PremiumInstallment, error) {
	return tv.parent.getPremiumLocked(id)
}

func (tv *txView) ListPendingPremiums(_ context.Context, policyID domain.PolicyID) ([]domain.PremiumInstallment, error) {
	return tv.parent.listPendingPremiumsLocked(policyID)
}

func (tv *txView) ListPremiumsByPolicy(_ context.Context, policyID domain.PolicyID) ([]domain.PremiumInstallment, error) {
	return tv.parent.listPremiumsByPolicyLocked(policyID)
}

func (tv *txView) MarkPremiumPaid(_ context.Context, id domain.PremiumID, paidOn domain.Date) error {
	return tv.parent.markPremiumPaidLocked(id, paidOn)
}

func (tv *txView) DeletePendingPremiums(_ context.Context, policyID domain.PolicyID) (int, error) {
	return tv.parent.deletePendingPremiumsLocked(policyID)
}

func (tv *txView) ListUpcomingPremiums(_ context.Context, agentID domain.AgentID, today domain.Date, days int) ([]domain.UpcomingPremium, error) {
	return tv.parent.listUpcomingPremiumsLocked(agentID, today, days)
}

// WithTx on a view is a programming error; nesting is not supported.
func (tv *txView) WithTx(ctx context.Context, fn func(domain.Store) error) error {
	return fn(tv)
}
