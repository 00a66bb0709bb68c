package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(eventsPublishedTotal) }

var eventsPublishedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "loyalty_events_published_total",
		Help: "Outbox events handed to the publisher, by kind and result.",
	},
	[]string{"kind", "result"}, // result: 'published', 'failed'
)

func IncEventPublished(kind, result string) {
	eventsPublishedTotal.WithLabelValues(norm(kind), norm(result)).Inc()
}
