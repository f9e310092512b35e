// Package memory provides an in-memory domain.Store implementation
// (for testing/dev).
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/insurecrm/policy-engine/domain"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type Store struct {
	mu sync.RWMutex

	agents    map[domain.AgentID]domain.Agent
	customers map[domain.CustomerID]domain.Customer
	policies  map[domain.PolicyID]domain.Policy
	premiums  map[domain.PremiumID]domain.PremiumInstallment
}

func New() *Store {
	return &Store{
		agents:    make(map[domain.AgentID]domain.Agent),
		customers: make(map[domain.CustomerID]domain.Customer),
		policies:  make(map[domain.PolicyID]domain.Policy),
		premiums:  make(map[domain.PremiumID]domain.PremiumInstallment),
	}
}

var _ domain.Store = (*Store)(nil)

// =============================================================================
// AGENTS
// =============================================================================

func (s *Store) InsertAgent(_ context.Context, a domain.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertAgentLocked(a)
}

func (s *Store) insertAgentLocked(a domain.Agent) error {
	s.agents[a.ID] = a
	return nil
}

func (s *Store) GetAgent(_ context.Context, id domain.AgentID) (*domain.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getAgentLocked(id)
}

func (s *Store) getAgentLocked(id domain.AgentID) (*domain.Agent, error) {
	if a, ok := s.agents[id]; ok {
		return &a, nil
	}
	return nil, nil
}

func (s *Store) ListAgents(_ context.Context) ([]domain.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listAgentsLocked()
}

func (s *Store) listAgentsLocked() ([]domain.Agent, error) {
	result := make([]domain.Agent, 0, len(s.agents))
	for _, a := range s.agents {
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *Store) CountAgents(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.agents), nil
}

// =============================================================================
// CUSTOMERS
// =============================================================================

func (s *Store) InsertCustomer(_ context.Context, c domain.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertCustomerLocked(c)
}

func (s *Store) insertCustomerLocked(c domain.Customer) error {
	for _, existing := range s.customers {
		if existing.PAN == c.PAN {
			return &domain.ConflictError{Field: "pan", Value: c.PAN}
		}
	}
	s.customers[c.ID] = c
	return nil
}

func (s *Store) GetCustomer(_ context.Context, id domain.CustomerID) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getCustomerLocked(id)
}

func (s *Store) getCustomerLocked(id domain.CustomerID) (*domain.Customer, error) {
	if c, ok := s.customers[id]; ok {
		return &c, nil
	}
	return nil, nil
}

func (s *Store) GetCustomerByPAN(_ context.Context, pan string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getCustomerByPANLocked(pan)
}

func (s *Store) getCustomerByPANLocked(pan string) (*domain.Customer, error) {
	for _, c := range s.customers {
		if c.PAN == pan {
			c := c
			return &c, nil
		}
	}
	return nil, nil
}

func (s *Store) ListCustomersByParent(_ context.Context, parentID domain.CustomerID) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listCustomersByParentLocked(parentID)
}

func (s *Store) listCustomersByParentLocked(parentID domain.CustomerID) ([]domain.Customer, error) {
	var result []domain.Customer
	for _, c := range s.customers {
		if c.ParentID != nil && *c.ParentID == parentID {
			result = append(result, c)
		}
	}
	sortCustomers(result)
	return result, nil
}

func (s *Store) ListCustomers(_ context.Context, agentID domain.AgentID) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listCustomersLocked(agentID)
}

func (s *Store) listCustomersLocked(agentID domain.AgentID) ([]domain.Customer, error) {
	var result []domain.Customer
	for _, c := range s.customers {
		if c.AgentID == agentID {
			result = append(result, c)
		}
	}
	sortCustomers(result)
	return result, nil
}

func sortCustomers(cs []domain.Customer) {
	sort.Slice(cs, func(i, j int) bool { return cs[i].Name < cs[j].Name })
}

// =============================================================================
// POLICIES
// =============================================================================

func (s *Store) InsertPolicy(_ context.Context, p domain.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertPolicyLocked(p)
}

func (s *Store) insertPolicyLocked(p domain.Policy) error {
	for _, existing := range s.policies {
		if existing.Number == p.Number {
			return &domain.ConflictError{Field: "policy_number", Value: p.Number}
		}
	}
	s.policies[p.ID] = p
	return nil
}

func (s *Store) GetPolicy(_ context.Context, id domain.PolicyID) (*domain.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getPolicyLocked(id)
}

func (s *Store) getPolicyLocked(id domain.PolicyID) (*domain.Policy, error) {
	if p, ok := s.policies[id]; ok {
		return &p, nil
	}
	return nil, nil
}

func (s *Store) GetPolicyByNumber(_ context.Context, number string) (*domain.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getPolicyByNumberLocked(number)
}

func (s *Store) getPolicyByNumberLocked(number string) (*domain.Policy, error) {
	for _, p := range s.policies {
		if p.Number == number {
			p := p
			return &p, nil
		}
	}
	return nil, nil
}

func (s *Store) UpdatePolicyStatus(_ context.Context, id domain.PolicyID, status domain.PolicyStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatePolicyStatusLocked(id, status)
}

func (s *Store) updatePolicyStatusLocked(id domain.PolicyID, status domain.PolicyStatus) error {
	p, ok := s.policies[id]
	if !ok {
		return &domain.NotFoundError{Kind: "policy", ID: string(id)}
	}
	p.Status = status
	s.policies[id] = p
	return nil
}

func (s *Store) ListPoliciesByCustomer(_ context.Context, customerID domain.CustomerID) ([]domain.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listPoliciesByCustomerLocked(customerID)
}

func (s *Store) listPoliciesByCustomerLocked(customerID domain.CustomerID) ([]domain.Policy, error) {
	var result []domain.Policy
	for _, p := range s.policies {
		if p.InsuredID == customerID {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Start.After(result[j].Start) })
	return result, nil
}

func (s *Store) ListAllPolicies(_ context.Context) ([]domain.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listAllPoliciesLocked()
}

func (s *Store) listAllPoliciesLocked() ([]domain.Policy, error) {
	result := make([]domain.Policy, 0, len(s.policies))
	for _, p := range s.policies {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Number < result[j].Number })
	return result, nil
}

// =============================================================================
// PREMIUMS
// =============================================================================

func (s *Store) InsertPremiumBatch(_ context.Context, batch []domain.PremiumInstallment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertPremiumBatchLocked(batch)
}

func (s *Store) insertPremiumBatchLocked(batch []domain.PremiumInstallment) error {
	for _, inst := range batch {
		s.premiums[inst.ID] = inst
	}
	return nil
}

func (s *Store) GetPremium(_ context.Context, id domain.PremiumID) (*domain.PremiumInstallment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getPremiumLocked(id)
}

func (s *Store) getPremiumLocked(id domain.PremiumID) (*domain.PremiumInstallment, error) {
	if inst, ok := s.premiums[id]; ok {
		return &inst, nil
	}
	return nil, nil
}

func (s *Store) ListPendingPremiums(_ context.Context, policyID domain.PolicyID) ([]domain.PremiumInstallment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listPendingPremiumsLocked(policyID)
}

func (s *Store) listPendingPremiumsLocked(policyID domain.PolicyID) ([]domain.PremiumInstallment, error) {
	var result []domain.PremiumInstallment
	for _, inst := range s.premiums {
		if inst.PolicyID == policyID && inst.Status == domain.PremiumPending {
			result = append(result, inst)
		}
	}
	sortPremiums(result)
	return result, nil
}

func (s *Store) ListPremiumsByPolicy(_ context.Context, policyID domain.PolicyID) ([]domain.PremiumInstallment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listPremiumsByPolicyLocked(policyID)
}

func (s *Store) listPremiumsByPolicyLocked(policyID domain.PolicyID) ([]domain.PremiumInstallment, error) {
	var result []domain.PremiumInstallment
	for _, inst := range s.premiums {
		if inst.PolicyID == policyID {
			result = append(result, inst)
		}
	}
	sortPremiums(result)
	return result, nil
}

func sortPremiums(ps []domain.PremiumInstallment) {
	sort.Slice(ps, func(i, j int) bool { return ps[i].DueDate.Before(ps[j].DueDate) })
}

func (s *Store) MarkPremiumPaid(_ context.Context, id domain.PremiumID, paidOn domain.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markPremiumPaidLocked(id, paidOn)
}

func (s *Store) markPremiumPaidLocked(id domain.PremiumID, paidOn domain.Date) error {
	inst, ok := s.premiums[id]
	if !ok || inst.Status != domain.PremiumPending {
		return &domain.NotFoundError{Kind: "premium", ID: string(id)}
	}
	inst.Status = domain.PremiumPaid
	inst.PaidDate = &paidOn
	s.premiums[id] = inst
	return nil
}

func (s *Store) DeletePendingPremiums(_ context.Context, policyID domain.PolicyID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deletePendingPremiumsLocked(policyID)
}

func (s *Store) deletePendingPremiumsLocked(policyID domain.PolicyID) (int, error) {
	deleted := 0
	for id, inst := range s.premiums {
		if inst.PolicyID == policyID && inst.Status == domain.PremiumPending {
			delete(s.premiums, id)
			deleted++
		}
	}
	return deleted, nil
}

func (s *Store) ListUpcomingPremiums(_ context.Context, agentID domain.AgentID, today domain.Date, days int) ([]domain.UpcomingPremium, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listUpcomingPremiumsLocked(agentID, today, days)
}

func (s *Store) listUpcomingPremiumsLocked(agentID domain.AgentID, today domain.Date, days int) ([]domain.UpcomingPremium, error) {
	cutoff := today.AddDays(days)

	var result []domain.UpcomingPremium
	for _, inst := range s.premiums {
		if inst.Status != domain.PremiumPending {
			continue
		}
		if inst.DueDate.Before(today) || inst.DueDate.After(cutoff) {
			continue
		}
		p, ok := s.policies[inst.PolicyID]
		if !ok {
			continue
		}
		insured, ok := s.customers[p.InsuredID]
		if !ok || insured.AgentID != agentID {
			continue
		}
		holderName := insured.Name
		if holder, ok := s.customers[p.HolderID]; ok {
			holderName = holder.Name
		}
		result = append(result, domain.UpcomingPremium{
			PremiumID:    inst.ID,
			PolicyID:     p.ID,
			PolicyNumber: p.Number,
			CustomerName: insured.Name,
			HolderName:   holderName,
			DueDate:      inst.DueDate,
			Amount:       inst.Amount,
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].DueDate.Before(result[j].DueDate) })
	return result, nil
}
