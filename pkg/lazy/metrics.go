package lazy

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tenancy_module_loads_total",
		Help: "Module load attempts by outcome.",
	}, []string{"module", "result"})

	loadDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tenancy_module_load_duration_seconds",
		Help:    "Duration of successful module loads.",
		Buckets: prometheus.DefBuckets,
	}, []string{"module"})

	rejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tenancy_module_rejections_total",
		Help: "Requests rejected by a mount before reaching the module.",
	}, []string{"module", "reason"})
)
