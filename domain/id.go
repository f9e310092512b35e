package domain

import "github.com/google/uuid"

// =============================================================================
// ID GENERATION
// =============================================================================

// shortID returns the first 8 hex characters of a random UUID, matching the
// format of historical records.
func shortID() string {
	return uuid.NewString()[:8]
}

func NewAgentID() AgentID       { return AgentID("A" + shortID()) }
func NewCustomerID() CustomerID { return CustomerID("C" + shortID()) }
func NewPolicyID() PolicyID     { return PolicyID("P" + shortID()) }
func NewPremiumID() PremiumID   { return PremiumID("PR" + shortID()) }
