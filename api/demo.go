/*
demo.go - Demo data seeding

PURPOSE:
  Loads a small, deterministic data set for demos and manual testing: the
  demo agent, a primary customer with one family member, and two policies
  with generated installment schedules. Everything goes through the regular
  services, so the seeded data obeys the same invariants as real data.
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/insurecrm/policy-engine/customer"
	"github.com/insurecrm/policy-engine/domain"
	"github.com/insurecrm/policy-engine/policy"
)

// DemoAgentID is the agent seeded on first run and by the demo loader.
const DemoAgentID = domain.AgentID("A1001")

// EnsureDemoAgent creates the demo agent if no agents exist yet, mirroring
// the first-run behavior of the system this replaces.
func EnsureDemoAgent(ctx context.Context, store domain.Store) error {
	count, err := store.CountAgents(ctx)
	if err != nil {
		return fmt.Errorf("failed to count agents: %w", err)
	}
	if count > 0 {
		return nil
	}
	return store.InsertAgent(ctx, domain.Agent{
		ID:        DemoAgentID,
		Name:      "John Doe",
		Email:     "john@insureCRM.com",
		Phone:     "9876543210",
		CreatedAt: time.Now().UTC(),
	})
}

// LoadDemoData seeds the demo data set.
// POST /api/demo/load
func (h *Handler) LoadDemoData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := EnsureDemoAgent(ctx, h.Store); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to seed demo agent", err)
		return
	}

	// Refuse a second load; the PANs below are fixed and would conflict.
	if existing, err := h.Store.GetCustomerByPAN(ctx, "ABCPD1234E"); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to check demo data", err)
		return
	} else if existing != nil {
		writeError(w, http.StatusConflict, "Demo data already loaded", nil)
		return
	}

	primary, err := h.Customers.Enroll(ctx, customer.EnrollInput{
		AgentID: DemoAgentID,
		Name:    "Priya Desai",
		PAN:     "ABCPD1234E",
		Aadhar:  "123412341234",
		Phone:   "9812345670",
		Email:   "priya@example.com",
		Income:  "₹10L-₹20L",
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	child, err := h.Customers.Enroll(ctx, customer.EnrollInput{
		AgentID:      DemoAgentID,
		Name:         "Aarav Desai",
		PAN:          "ABCPD5678F",
		Aadhar:       "432143214321",
		Phone:        "9812345671",
		Income:       "Below ₹5L",
		ParentID:     primary.ID,
		Relationship: "Child",
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	today := domain.Today()

	// Yearly term policy held by the primary customer.
	if _, err := h.Policies.CreatePolicy(ctx, policy.CreatePolicyInput{
		InsuredID:    primary.ID,
		Number:       "DEMO-TERM-001",
		Premium:      domain.NewMoney(24000),
		Frequency:    "Yearly",
		Type:         "Term Life",
		Provider:     "LIC",
		CoverageType: "Individual",
		Nominee:      domain.IdentitySnapshot{Name: "Aarav Desai"},
		Start:        today,
		End:          today.AddDays(10 * 365),
	}); err != nil {
		writeDomainError(w, err)
		return
	}

	// Monthly health policy insuring the child, held by the parent.
	if _, err := h.Policies.CreatePolicy(ctx, policy.CreatePolicyInput{
		InsuredID:    child.ID,
		HolderID:     primary.ID,
		Number:       "DEMO-HEALTH-001",
		Premium:      domain.NewMoney(1500),
		Frequency:    "Monthly",
		Type:         "Health",
		Provider:     "Star Health",
		CoverageType: "Family",
		Nominee:      domain.IdentitySnapshot{Name: "Priya Desai"},
		Start:        today,
		End:          today.AddDays(365),
	}); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"agent_id":  string(DemoAgentID),
		"customers": []string{string(primary.ID), string(child.ID)},
		"policies":  []string{"DEMO-TERM-001", "DEMO-HEALTH-001"},
	})
}
