package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP 请求
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "route"},
	)

	// 菜谱写入, op: create, update, delete
	RecipesWrittenTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipes_written_total",
			Help: "Total number of recipe write operations",
		},
		[]string{"op"},
	)

	// 关系变更, relation: favorite, shopping_cart, follow; action: add, remove
	RelationChangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relation_changes_total",
			Help: "Total number of relation marker changes",
		},
		[]string{"relation", "action"},
	)

	ShoppingListExportsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shopping_list_exports_total",
			Help: "Total number of shopping list documents rendered",
		},
	)
)

// RecordHTTPRequest 记录一次 HTTP 请求
func RecordHTTPRequest(method, route, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func RecordRecipeWrite(op string) {
	RecipesWrittenTotal.WithLabelValues(op).Inc()
}

func RecordRelationChange(relation, action string) {
	RelationChangesTotal.WithLabelValues(relation, action).Inc()
}

func RecordShoppingListExport() {
	ShoppingListExportsTotal.Inc()
}
