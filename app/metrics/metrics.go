package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	StoreMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todo_store_mutations_total",
			Help: "Accepted task store mutations by operation",
		},
		[]string{"op"},
	)
	SlotWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todo_slot_writes_total",
			Help: "Writes of the task list to the durable slot by result",
		},
		[]string{"result"},
	)
	SlotLoads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todo_slot_loads_total",
			Help: "Startup reads of the durable slot by result",
		},
		[]string{"result"},
	)
	ShareFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todo_share_failures_total",
			Help: "Share token encode/decode failures",
		},
		[]string{"direction"},
	)
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todo_http_requests_total",
			Help: "HTTP requests by route and status code",
		},
		[]string{"route", "method", "code"},
	)
)

func init() {
	prometheus.MustRegister(StoreMutations)
	prometheus.MustRegister(SlotWrites)
	prometheus.MustRegister(SlotLoads)
	prometheus.MustRegister(ShareFailures)
	prometheus.MustRegister(HTTPRequests)
}
