package controller

import (
	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

var queueReady = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "queue_operator",
		Name:      "queue_ready",
		Help:      "Whether a Queue's broker is ready (1) or not (0).",
	},
	[]string{"namespace", "name"},
)

func init() {
	metrics.Registry.MustRegister(queueReady)
}

func recordReady(namespace, name string, ready bool) {
	v := 0.0
	if ready {
		v = 1
	}
	queueReady.WithLabelValues(namespace, name).Set(v)
}

func forgetQueue(namespace, name string) {
	queueReady.DeleteLabelValues(namespace, name)
}
