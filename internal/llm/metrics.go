package llm

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rdteam",
		Subsystem: "llm",
		Name:      "requests_total",
		Help:      "Model requests by provider and result.",
	}, []string{"provider", "result"})

	tokensTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rdteam",
		Subsystem: "llm",
		Name:      "tokens_total",
		Help:      "Tokens consumed by provider and direction.",
	}, []string{"provider", "direction"})
)

func observeRequest(provider string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	requestsTotal.WithLabelValues(provider, result).Inc()
}

func observeTokens(provider string, input, output int64) {
	tokensTotal.WithLabelValues(provider, "input").Add(float64(input))
	tokensTotal.WithLabelValues(provider, "output").Add(float64(output))
}
