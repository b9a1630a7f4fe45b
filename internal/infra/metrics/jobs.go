package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		jobTransitionsTotal,
		jobOpsTotal,
		admissionBlocksTotal,
		staleResponsesTotal,
		reconcileRunsTotal,
	)
}

var (
	jobTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verify_job_transitions_total",
			Help: "Applied job status transitions.",
		},
		[]string{"from", "to"},
	)

	// result: ok|in_progress|invalid_state|insufficient_credits|permission_denied|remote_error|transport_error|error
	jobOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verify_job_operations_total",
			Help: "Lifecycle operations by kind and result.",
		},
		[]string{"op", "result"},
	)

	admissionBlocksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "verify_admission_blocks_total",
			Help: "Start requests refused locally because the job requires credits.",
		},
	)

	staleResponsesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verify_stale_responses_total",
			Help: "Server responses discarded because they would move a job backwards.",
		},
		[]string{"current", "reported"},
	)

	reconcileRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verify_reconcile_runs_total",
			Help: "Reconciliation runs by trigger and result.",
		},
		[]string{"trigger", "result"}, // trigger: explicit|scheduled|refresh|poll
	)
)

func IncTransition(from, to string) {
	jobTransitionsTotal.WithLabelValues(norm(from), norm(to)).Inc()
}

func IncJobOp(op, result string) {
	jobOpsTotal.WithLabelValues(norm(op), norm(result)).Inc()
}

func IncAdmissionBlock() {
	admissionBlocksTotal.Inc()
}

func IncStaleResponse(current, reported string) {
	staleResponsesTotal.WithLabelValues(norm(current), norm(reported)).Inc()
}

func IncReconcileRun(trigger, result string) {
	reconcileRunsTotal.WithLabelValues(norm(trigger), norm(result)).Inc()
}
