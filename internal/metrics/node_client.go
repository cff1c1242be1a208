package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	nodeRPCRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "casper_harvester",
		Subsystem: "node_rpc",
		Name:      "operations_total",
		Help:      "Count of node RPC operations.",
	}, []string{"operation", "chain", "status"})
	nodeRPCRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "casper_harvester",
		Subsystem: "node_rpc",
		Name:      "operation_duration_seconds",
		Help:      "Duration of node RPC operations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "chain", "status"})
)

// NodeClient tracks metrics for RPC calls to the chain node.
type NodeClient struct {
	chain string
}

// NewNodeClient constructs a metrics collector for node RPC calls.
func NewNodeClient(chain string) *NodeClient {
	if chain == "" {
		chain = "unknown"
	}
	return &NodeClient{chain: chain}
}

// Observe records a single RPC call outcome and duration.
func (m NodeClient) Observe(operation string, err error, started time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}

	nodeRPCRequestsTotal.WithLabelValues(operation, m.chain, status).Inc()
	nodeRPCRequestDuration.WithLabelValues(operation, m.chain, status).Observe(time.Since(started).Seconds())
}
