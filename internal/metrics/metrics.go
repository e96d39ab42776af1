package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "oceancare_gateway"

type Gateway struct {
	registry         *prometheus.Registry
	ConnectedClients prometheus.Gauge
	RoomJoins        prometheus.Counter
	EventsBroadcast  *prometheus.CounterVec
	EventsDropped    *prometheus.CounterVec
}

func New() *Gateway {
	registry := prometheus.NewRegistry()
	m := &Gateway{
		registry: registry,
		ConnectedClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connected_clients",
			Help:      "Realtime clients currently registered with the hub.",
		}),
		RoomJoins: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "room_joins_total",
			Help:      "Room joins that added a new membership.",
		}),
		EventsBroadcast: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_broadcast_total",
			Help:      "Room events broadcast by the hub.",
		}, []string{"event"}),
		EventsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Deliveries skipped because a client was too slow.",
		}, []string{"event"}),
	}
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ConnectedClients,
		m.RoomJoins,
		m.EventsBroadcast,
		m.EventsDropped,
	)
	return m
}

func (m *Gateway) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
