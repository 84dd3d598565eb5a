package observability

import "github.com/prometheus/client_golang/prometheus"

// Domain collectors. HTTP-level metrics live in the middleware package.
var (
	llmRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_requests_total",
			Help: "Completion requests sent to LLM providers.",
		},
		[]string{"provider", "model", "outcome"},
	)

	llmTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_tokens_total",
			Help: "Tokens reported by LLM providers.",
		},
		[]string{"provider", "kind"},
	)

	limitRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "usage_limit_rejections_total",
			Help: "Requests rejected by the usage gate, by limit code.",
		},
		[]string{"code"},
	)

	taskRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduled_task_runs_total",
			Help: "Scheduled task executions by final status.",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(llmRequests, llmTokens, limitRejections, taskRuns)
}

// LLM outcomes.
const (
	OutcomeOK     = "ok"
	OutcomeCached = "cached"
	OutcomeError  = "error"
)

// ObserveLLM records one completion. Token counts are skipped for cache hits.
func ObserveLLM(provider, model, outcome string, input, output, reasoning int) {
	llmRequests.WithLabelValues(provider, model, outcome).Inc()
	if outcome != OutcomeOK {
		return
	}
	llmTokens.WithLabelValues(provider, "input").Add(float64(input))
	llmTokens.WithLabelValues(provider, "output").Add(float64(output))
	if reasoning > 0 {
		llmTokens.WithLabelValues(provider, "reasoning").Add(float64(reasoning))
	}
}

// ObserveLimitRejection counts a usage-gate rejection.
func ObserveLimitRejection(code string) {
	limitRejections.WithLabelValues(code).Inc()
}

// ObserveTaskRun counts a finished scheduled task.
func ObserveTaskRun(status string) {
	taskRuns.WithLabelValues(status).Inc()
}
