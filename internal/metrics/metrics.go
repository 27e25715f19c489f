// Package metrics exposes the Prometheus collectors shared by the server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GroupsCreated counts groups created through the store.
	GroupsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "grouporder",
		Name:      "groups_created_total",
		Help:      "Number of groups created.",
	})

	// OrdersAppended counts orders successfully appended to a group.
	OrdersAppended = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "grouporder",
		Name:      "orders_appended_total",
		Help:      "Number of orders appended to groups.",
	})

	// AppendConflicts counts conditional writes rejected because another
	// participant appended first.
	AppendConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "grouporder",
		Name:      "append_conflicts_total",
		Help:      "Number of order appends retried after a concurrent write.",
	})

	// ValidationFailures counts rejected drafts by offending field.
	ValidationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "grouporder",
		Name:      "validation_failures_total",
		Help:      "Number of order drafts rejected by validation.",
	}, []string{"field"})

	// RPCDuration observes RPC latency by procedure and result code.
	RPCDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "grouporder",
		Name:      "rpc_duration_seconds",
		Help:      "Latency of GroupService RPCs.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"procedure", "code"})
)
