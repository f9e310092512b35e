/*
export.go - CSV export of the core tables

PURPOSE:
  Streams one of the four core tables (agents, customers, policies,
  premiums) as CSV, replacing the original system's data-management page
  downloads. The CSV layout mirrors the storage schema so an export can be
  inspected or re-imported elsewhere without translation.
*/
package api

import (
	"encoding/csv"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/insurecrm/policy-engine/domain"
)

// ExportTable streams a table as CSV.
// GET /api/export/{table}
func (h *Handler) ExportTable(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")

	var (
		header []string
		rows   [][]string
		err    error
	)
	switch table {
	case "agents":
		header, rows, err = h.exportAgents(r)
	case "customers":
		header, rows, err = h.exportCustomers(r)
	case "policies":
		header, rows, err = h.exportPolicies(r)
	case "premiums":
		header, rows, err = h.exportPremiums(r)
	default:
		writeError(w, http.StatusNotFound, fmt.Sprintf("Unknown table %q", table), nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Export failed", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="%s_%s.csv"`, table, domain.Today()))

	cw := csv.NewWriter(w)
	cw.Write(header)
	cw.WriteAll(rows)
	cw.Flush()
	if err := cw.Error(); err != nil {
		// Headers are already sent; the truncated download is all the client
		// gets, so the failure is at least recorded here.
		log.Printf("[Export] Streaming %s failed: %v", table, err)
	}
}

func (h *Handler) exportAgents(r *http.Request) ([]string, [][]string, error) {
	agents, err := h.Store.ListAgents(r.Context())
	if err != nil {
		return nil, nil, err
	}

	rows := make([][]string, len(agents))
	for i, a := range agents {
		rows[i] = []string{
			string(a.ID), a.Name, a.Email, a.Phone,
			a.CreatedAt.Format(time.RFC3339),
		}
	}
	return []string{"id", "name", "email", "phone", "created_at"}, rows, nil
}

func (h *Handler) exportCustomers(r *http.Request) ([]string, [][]string, error) {
	ctx := r.Context()
	agents, err := h.Store.ListAgents(ctx)
	if err != nil {
		return nil, nil, err
	}

	var rows [][]string
	for _, a := range agents {
		customers, err := h.Store.ListCustomers(ctx, a.ID)
		if err != nil {
			return nil, nil, err
		}
		for _, c := range customers {
			parentID, relationship := "", ""
			if c.ParentID != nil {
				parentID = string(*c.ParentID)
			}
			if c.Relationship != nil {
				relationship = string(*c.Relationship)
			}
			rows = append(rows, []string{
				string(c.ID), string(c.AgentID), c.PAN, c.Aadhar, c.Name,
				c.Phone, c.Email, string(c.Income), parentID, relationship,
				c.CreatedAt.Format(time.RFC3339),
			})
		}
	}
	header := []string{"id", "agent_id", "pan", "aadhar", "name", "phone",
		"email", "income_bracket", "parent_id", "relationship", "created_at"}
	return header, rows, nil
}

func (h *Handler) exportPolicies(r *http.Request) ([]string, [][]string, error) {
	policies, err := h.Store.ListAllPolicies(r.Context())
	if err != nil {
		return nil, nil, err
	}

	rows := make([][]string, len(policies))
	for i, p := range policies {
		rows[i] = []string{
			string(p.ID), string(p.InsuredID), string(p.HolderID), p.Number,
			p.Premium.String(), string(p.Frequency), p.Type, p.Provider,
			p.CoverageType, p.Nominee.Name, p.Beneficiary.Name,
			p.Start.String(), p.End.String(), string(p.Status),
			p.CreatedAt.Format(time.RFC3339),
		}
	}
	header := []string{"id", "customer_id", "policy_holder_id", "policy_number",
		"premium_amount", "frequency", "type", "provider", "coverage_type",
		"nominee_name", "beneficiary_name", "start_date", "end_date",
		"status", "created_at"}
	return header, rows, nil
}

func (h *Handler) exportPremiums(r *http.Request) ([]string, [][]string, error) {
	ctx := r.Context()
	policies, err := h.Store.ListAllPolicies(ctx)
	if err != nil {
		return nil, nil, err
	}

	var rows [][]string
	for _, p := range policies {
		installments, err := h.Store.ListPremiumsByPolicy(ctx, p.ID)
		if err != nil {
			return nil, nil, err
		}
		for _, inst := range installments {
			paidDate := ""
			if inst.PaidDate != nil {
				paidDate = inst.PaidDate.String()
			}
			rows = append(rows, []string{
				string(inst.ID), string(inst.PolicyID), inst.DueDate.String(),
				inst.Amount.String(), string(inst.Status), paidDate,
			})
		}
	}
	header := []string{"id", "policy_id", "due_date", "amount", "status", "paid_date"}
	return header, rows, nil
}
