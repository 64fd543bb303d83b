package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// DispatchMetrics tracks assignment run outcomes.
type DispatchMetrics struct {
	ordersSeen     prometheus.Counter
	ordersAssigned prometheus.Counter
	guaranteeRatio prometheus.Gauge
	batchRuns      *prometheus.CounterVec
}

// NewDispatchMetrics registers the dispatch metrics on the provided registerer.
func NewDispatchMetrics(reg prometheus.Registerer) *DispatchMetrics {
	if reg == nil {
		return &DispatchMetrics{}
	}
	ordersSeen := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_orders_seen_total",
		Help: "Pending orders observed by assignment runs.",
	})
	ordersAssigned := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_orders_assigned_total",
		Help: "Orders assigned to agents by assignment runs.",
	})
	guaranteeRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dispatch_guarantee_ratio",
		Help: "Guarantee ratio of the most recent batch window.",
	})
	batchRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_batch_runs_total",
		Help: "Assignment runs by trigger source.",
	}, []string{"trigger"})
	reg.MustRegister(ordersSeen, ordersAssigned, guaranteeRatio, batchRuns)
	return &DispatchMetrics{
		ordersSeen:     ordersSeen,
		ordersAssigned: ordersAssigned,
		guaranteeRatio: guaranteeRatio,
		batchRuns:      batchRuns,
	}
}

// RecordBatch captures the totals of a completed assignment run.
func (d *DispatchMetrics) RecordBatch(trigger string, totalOrders, assignedOrders int, guaranteeRatio float64) {
	if d == nil || d.ordersSeen == nil {
		return
	}
	d.ordersSeen.Add(float64(totalOrders))
	d.ordersAssigned.Add(float64(assignedOrders))
	d.guaranteeRatio.Set(guaranteeRatio)
	d.batchRuns.WithLabelValues(normalizeLabel(trigger)).Inc()
}
