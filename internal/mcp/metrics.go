package mcp

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ToolCalls counts MCP tool invocations.
// Labels: tool, result (ok, error)
var ToolCalls = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "rdteam",
	Subsystem: "mcp",
	Name:      "tool_calls_total",
	Help:      "MCP tool invocations by tool and result.",
}, []string{"tool", "result"})

func observeTool(tool string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	ToolCalls.WithLabelValues(tool, result).Inc()
}
