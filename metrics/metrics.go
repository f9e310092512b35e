// Package metrics registers the Prometheus instruments for the policy engine.
// Counters are registered via promauto on the default registry; the /metrics
// endpoint is mounted by the API router.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CustomersEnrolled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crm_customers_enrolled_total",
		Help: "Number of customers enrolled.",
	})

	PoliciesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crm_policies_created_total",
		Help: "Number of policies created.",
	})

	PoliciesCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crm_policies_cancelled_total",
		Help: "Number of policies cancelled.",
	})

	PremiumsPaid = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crm_premiums_paid_total",
		Help: "Number of premium installments marked paid.",
	})

	StatusSweeps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crm_status_sweeps_total",
		Help: "Number of completed status sweep runs.",
	})

	StatusTransitions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crm_status_transitions_total",
		Help: "Number of policy status changes applied by sweeps and payments.",
	})
)
