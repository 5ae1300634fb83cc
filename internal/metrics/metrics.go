// Package metrics exposes prometheus counters for the tool surface and the
// background schedulers.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ToolCalls counts MCP tool invocations by tool name and outcome.
	ToolCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "adcp",
		Subsystem: "mcp",
		Name:      "tool_calls_total",
		Help:      "MCP tool invocations by tool and outcome.",
	}, []string{"tool", "outcome"})

	// SchedulerTicks counts scheduler loop iterations by scheduler and outcome.
	SchedulerTicks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "adcp",
		Subsystem: "scheduler",
		Name:      "ticks_total",
		Help:      "Background scheduler ticks by scheduler and outcome.",
	}, []string{"scheduler", "outcome"})

	// AuditFailures counts best-effort audit appends that failed.
	AuditFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "adcp",
		Subsystem: "audit",
		Name:      "append_failures_total",
		Help:      "Audit log appends that failed and were only logged.",
	})
)

// ObserveTool records one tool invocation.
func ObserveTool(tool string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	ToolCalls.WithLabelValues(tool, outcome).Inc()
}

// ObserveTick records one scheduler tick.
func ObserveTick(scheduler string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	SchedulerTicks.WithLabelValues(scheduler, outcome).Inc()
}
