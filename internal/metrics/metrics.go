package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// A2A JSON-RPC metrics
	RPCRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calcagent_rpc_requests_total",
			Help: "Total number of A2A JSON-RPC requests",
		},
		[]string{"method"},
	)

	// Agent metrics
	AgentRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calcagent_agent_runs_total",
			Help: "Total number of agent runs",
		},
		[]string{"agent", "status"},
	)

	AgentLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "calcagent_agent_latency_seconds",
			Help:    "Agent run latency in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"agent"},
	)

	ToolCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calcagent_tool_calls_total",
			Help: "Total number of tool executions",
		},
		[]string{"tool", "status"},
	)

	Tasks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calcagent_tasks_total",
			Help: "Tasks reaching a final state",
		},
		[]string{"state"},
	)
)

func init() {
	prometheus.MustRegister(
		RPCRequests,
		AgentRuns,
		AgentLatency,
		ToolCalls,
		Tasks,
	)
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
