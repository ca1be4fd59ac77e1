package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	documentSaves = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "documents",
			Name:      "saves_total",
			Help:      "文档写操作次数，按类型、操作和结果区分。",
		},
		[]string{"kind", "op", "outcome"},
	)

	reconciledRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "documents",
			Name:      "reconciled_rows_total",
			Help:      "子集合同步时删除、更新、插入的行数。",
		},
		[]string{"collection", "action"},
	)
)

// ObserveSave counts one create/update/delete of a document kind.
// outcome is "ok" or the error kind.
func ObserveSave(kind, op, outcome string) {
	documentSaves.WithLabelValues(kind, op, outcome).Inc()
}

// ObserveReconcile adds row churn for one collection after a committed save.
func ObserveReconcile(collection string, deleted, updated, inserted int) {
	if deleted > 0 {
		reconciledRows.WithLabelValues(collection, "delete").Add(float64(deleted))
	}
	if updated > 0 {
		reconciledRows.WithLabelValues(collection, "update").Add(float64(updated))
	}
	if inserted > 0 {
		reconciledRows.WithLabelValues(collection, "insert").Add(float64(inserted))
	}
}
