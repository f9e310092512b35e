/*
handlers.go - HTTP API handlers for the policy engine

PURPOSE:
  Exposes the policy engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Agents:
    POST   /api/login                     Agent lookup

  Customers:
    GET    /api/customers                 List customers for an agent
    POST   /api/customers                 Enroll customer
    GET    /api/customers/{id}            Get customer
    GET    /api/customers/{id}/family     List enrolled family members
    GET    /api/customers/{id}/holders    Eligible policy holders

  Policies:
    GET    /api/policies                  List policies for a customer
    POST   /api/policies                  Create policy + installment schedule
    GET    /api/policies/{id}             Get policy
    GET    /api/policies/{id}/premiums    Full installment history
    POST   /api/policies/{id}/cancel      Cancel policy

  Premiums:
    POST   /api/premiums/{id}/pay         Mark installment paid
    GET    /api/premiums/upcoming         Upcoming pending premiums

  Views / admin:
    GET    /api/dashboard                 Per-agent counts + 30-day upcoming
    GET    /api/export/{table}            CSV export
    POST   /api/admin/sweep               Manual status sweep
    POST   /api/demo/load                 Seed demo data

ERROR HANDLING:
  Domain errors are matched with errors.Is against the sentinel taxonomy and
  mapped to HTTP status:
  - 400: validation errors
  - 404: not found
  - 409: conflict, invalid state (cancelled policy)
  - 500: everything else

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - sweep.go: Background status maintenance
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/insurecrm/policy-engine/customer"
	"github.com/insurecrm/policy-engine/domain"
	"github.com/insurecrm/policy-engine/metrics"
	"github.com/insurecrm/policy-engine/policy"
	"github.com/insurecrm/policy-engine/premium"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     domain.Store
	Customers *customer.Service
	Policies  *policy.Service
	Ledger    *premium.Ledger
}

// NewHandler creates a new handler with the given store.
func NewHandler(store domain.Store) *Handler {
	return &Handler{
		Store:     store,
		Customers: customer.NewService(store),
		Policies:  policy.NewService(store),
		Ledger:    premium.NewLedger(store),
	}
}

// =============================================================================
// AGENT HANDLERS
// =============================================================================

// Login looks up an agent by ID. The original system had no credentials.
// POST /api/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.AgentID == "" {
		writeError(w, http.StatusBadRequest, "agent_id is required", nil)
		return
	}

	agent, err := h.Store.GetAgent(r.Context(), domain.AgentID(req.AgentID))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to look up agent", err)
		return
	}
	if agent == nil {
		writeError(w, http.StatusNotFound, "Agent not found", nil)
		return
	}

	writeJSON(w, http.StatusOK, toAgentDTO(agent))
}

// =============================================================================
// CUSTOMER HANDLERS
// =============================================================================

// ListCustomers returns an agent's customers.
// GET /api/customers?agent_id=A1001
func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	agentID := r.URL.Query().Get("agent_id")
	if agentID == "" {
		writeError(w, http.StatusBadRequest, "agent_id query parameter is required", nil)
		return
	}

	customers, err := h.Store.ListCustomers(r.Context(), domain.AgentID(agentID))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list customers", err)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerDTOs(customers))
}

// EnrollCustomer enrolls a new customer, primary or family member.
// POST /api/customers
func (h *Handler) EnrollCustomer(w http.ResponseWriter, r *http.Request) {
	var req EnrollCustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	c, err := h.Customers.Enroll(r.Context(), customer.EnrollInput{
		AgentID:      domain.AgentID(req.AgentID),
		Name:         req.Name,
		PAN:          req.PAN,
		Aadhar:       req.Aadhar,
		Phone:        req.Phone,
		Email:        req.Email,
		Income:       req.Income,
		ParentID:     domain.CustomerID(req.ParentID),
		Relationship: req.Relationship,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	metrics.CustomersEnrolled.Inc()
	writeJSON(w, http.StatusCreated, toCustomerDTO(*c))
}

// GetCustomer returns a single customer.
// GET /api/customers/{id}
func (h *Handler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	id := domain.CustomerID(chi.URLParam(r, "id"))

	c, err := h.Customers.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerDTO(*c))
}

// GetFamily returns a primary customer's enrolled family members.
// GET /api/customers/{id}/family
func (h *Handler) GetFamily(w http.ResponseWriter, r *http.Request) {
	id := domain.CustomerID(chi.URLParam(r, "id"))

	members, err := h.Customers.Family(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list family members", err)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerDTOs(members))
}

// GetEligibleHolders returns the customers allowed to hold a policy insuring
// the given customer.
// GET /api/customers/{id}/holders
func (h *Handler) GetEligibleHolders(w http.ResponseWriter, r *http.Request) {
	id := domain.CustomerID(chi.URLParam(r, "id"))
	ctx := r.Context()

	insured, err := h.Customers.Get(ctx, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	var holders []CustomerDTO
	for _, holderID := range customer.EligibleHolders(insured) {
		c, err := h.Store.GetCustomer(ctx, holderID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to load holder", err)
			return
		}
		if c != nil {
			holders = append(holders, toCustomerDTO(*c))
		}
	}
	writeJSON(w, http.StatusOK, holders)
}

// =============================================================================
// POLICY HANDLERS
// =============================================================================

// ListPolicies returns a customer's policies.
// GET /api/policies?customer_id=C123
func (h *Handler) ListPolicies(w http.ResponseWriter, r *http.Request) {
	customerID := r.URL.Query().Get("customer_id")
	if customerID == "" {
		writeError(w, http.StatusBadRequest, "customer_id query parameter is required", nil)
		return
	}

	policies, err := h.Store.ListPoliciesByCustomer(r.Context(), domain.CustomerID(customerID))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list policies", err)
		return
	}
	writeJSON(w, http.StatusOK, toPolicyDTOs(policies))
}

// CreatePolicy creates a policy and its full installment schedule.
// POST /api/policies
func (h *Handler) CreatePolicy(w http.ResponseWriter, r *http.Request) {
	var req CreatePolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	// An absent amount is left zero so it joins the service's missing-field
	// list instead of failing as a parse error.
	var amount domain.Money
	if req.PremiumAmount != "" {
		var err error
		amount, err = domain.MoneyFromString(req.PremiumAmount)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid premium_amount", err)
			return
		}
	}
	start, err := domain.ParseDate(req.StartDate)
	if err != nil && req.StartDate != "" {
		writeError(w, http.StatusBadRequest, "Invalid start_date format (use YYYY-MM-DD)", err)
		return
	}
	end, err := domain.ParseDate(req.EndDate)
	if err != nil && req.EndDate != "" {
		writeError(w, http.StatusBadRequest, "Invalid end_date format (use YYYY-MM-DD)", err)
		return
	}

	in := policy.CreatePolicyInput{
		InsuredID:    domain.CustomerID(req.InsuredID),
		HolderID:     domain.CustomerID(req.HolderID),
		Number:       req.PolicyNumber,
		Premium:      amount,
		Frequency:    req.Frequency,
		Type:         req.Type,
		Provider:     req.Provider,
		CoverageType: req.CoverageType,
		Nominee: domain.IdentitySnapshot{
			Name:   req.Nominee.Name,
			PAN:    req.Nominee.PAN,
			Aadhar: req.Nominee.Aadhar,
		},
		Start: start,
		End:   end,
	}
	if req.Beneficiary != nil {
		in.Beneficiary = domain.IdentitySnapshot{
			Name:   req.Beneficiary.Name,
			PAN:    req.Beneficiary.PAN,
			Aadhar: req.Beneficiary.Aadhar,
		}
	}

	p, err := h.Policies.CreatePolicy(r.Context(), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	metrics.PoliciesCreated.Inc()
	writeJSON(w, http.StatusCreated, toPolicyDTO(*p))
}

// GetPolicy returns a single policy.
// GET /api/policies/{id}
func (h *Handler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	id := domain.PolicyID(chi.URLParam(r, "id"))

	p, err := h.Policies.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPolicyDTO(*p))
}

// GetPolicyPremiums returns the full installment history of a policy,
// pending and paid, in due-date order.
// GET /api/policies/{id}/premiums
func (h *Handler) GetPolicyPremiums(w http.ResponseWriter, r *http.Request) {
	id := domain.PolicyID(chi.URLParam(r, "id"))
	ctx := r.Context()

	if _, err := h.Policies.Get(ctx, id); err != nil {
		writeDomainError(w, err)
		return
	}

	installments, err := h.Ledger.History(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list premiums", err)
		return
	}
	writeJSON(w, http.StatusOK, toPremiumDTOs(installments))
}

// CancelPolicy cancels a policy, purging its pending installments.
// POST /api/policies/{id}/cancel
func (h *Handler) CancelPolicy(w http.ResponseWriter, r *http.Request) {
	id := domain.PolicyID(chi.URLParam(r, "id"))

	purged, err := h.Policies.CancelPolicy(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	metrics.PoliciesCancelled.Inc()
	writeJSON(w, http.StatusOK, CancelResultDTO{
		PolicyID: string(id),
		Status:   string(domain.PolicyCancelled),
		Purged:   purged,
	})
}

// =============================================================================
// PREMIUM HANDLERS
// =============================================================================

// PayPremium marks an installment paid and recomputes the policy status.
// POST /api/premiums/{id}/pay
func (h *Handler) PayPremium(w http.ResponseWriter, r *http.Request) {
	id := domain.PremiumID(chi.URLParam(r, "id"))
	ctx := r.Context()

	var req PayPremiumRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	paidOn := domain.Today()
	if req.PaidDate != "" {
		var err error
		if paidOn, err = domain.ParseDate(req.PaidDate); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid paid_date format (use YYYY-MM-DD)", err)
			return
		}
	}

	status, err := h.Policies.MarkPremiumPaid(ctx, id, paidOn)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	inst, err := h.Ledger.Get(ctx, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	metrics.PremiumsPaid.Inc()
	writeJSON(w, http.StatusOK, PayResultDTO{
		Premium:      toPremiumDTO(*inst),
		PolicyStatus: string(status),
	})
}

// UpcomingPremiums returns pending premiums due within the window.
// GET /api/premiums/upcoming?agent_id=A1001&days=30
func (h *Handler) UpcomingPremiums(w http.ResponseWriter, r *http.Request) {
	agentID := r.URL.Query().Get("agent_id")
	if agentID == "" {
		writeError(w, http.StatusBadRequest, "agent_id query parameter is required", nil)
		return
	}

	days := 30
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid days parameter", err)
			return
		}
		days = n
	}

	ups, err := h.Store.ListUpcomingPremiums(r.Context(), domain.AgentID(agentID), domain.Today(), days)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list upcoming premiums", err)
		return
	}
	writeJSON(w, http.StatusOK, toUpcomingPremiumDTOs(ups))
}

// =============================================================================
// DASHBOARD
// =============================================================================

// Dashboard returns per-agent counts and the 30-day upcoming premium summary.
// GET /api/dashboard?agent_id=A1001
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	agentID := r.URL.Query().Get("agent_id")
	if agentID == "" {
		writeError(w, http.StatusBadRequest, "agent_id query parameter is required", nil)
		return
	}
	ctx := r.Context()

	customers, err := h.Store.ListCustomers(ctx, domain.AgentID(agentID))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list customers", err)
		return
	}

	dash := DashboardDTO{TotalCustomers: len(customers)}
	for _, c := range customers {
		if c.FamilyMember() {
			dash.FamilyMembers++
		}
		policies, err := h.Store.ListPoliciesByCustomer(ctx, c.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to list policies", err)
			return
		}
		dash.TotalPolicies += len(policies)
		for _, p := range policies {
			if p.Status == domain.PolicyActive {
				dash.ActivePolicies++
			}
		}
	}

	ups, err := h.Store.ListUpcomingPremiums(ctx, domain.AgentID(agentID), domain.Today(), 30)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list upcoming premiums", err)
		return
	}

	total := decimal.Zero
	for _, up := range ups {
		total = total.Add(up.Amount.Value)
	}
	dash.Upcoming = toUpcomingPremiumDTOs(ups)
	dash.UpcomingCount = len(ups)
	dash.UpcomingTotalDue = total.StringFixed(2)

	writeJSON(w, http.StatusOK, dash)
}

// =============================================================================
// ADMIN
// =============================================================================

// TriggerSweep runs a status maintenance sweep immediately.
// POST /api/admin/sweep
func (h *Handler) TriggerSweep(w http.ResponseWriter, r *http.Request) {
	today := domain.Today()
	changed, err := h.Policies.SweepStatuses(r.Context(), today)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Sweep failed", err)
		return
	}

	metrics.StatusSweeps.Inc()
	metrics.StatusTransitions.Add(float64(changed))
	writeJSON(w, http.StatusOK, SweepResultDTO{Changed: changed, AsOf: today.String()})
}

// =============================================================================
// HELPERS
// =============================================================================

// writeDomainError maps the domain error taxonomy to HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeErrorCode(w, http.StatusBadRequest, "validation_error", err)
	case errors.Is(err, domain.ErrNotFound):
		writeErrorCode(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, domain.ErrConflict):
		writeErrorCode(w, http.StatusConflict, "conflict", err)
	case errors.Is(err, domain.ErrInvalidState):
		writeErrorCode(w, http.StatusConflict, "invalid_state", err)
	default:
		writeErrorCode(w, http.StatusInternalServerError, "internal_error", err)
	}
}

func writeErrorCode(w http.ResponseWriter, status int, code string, err error) {
	writeJSON(w, status, ErrorResponse{Error: err.Error(), Code: code})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
