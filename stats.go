package main

import "github.com/prometheus/client_golang/prometheus"

// Stats is the metrics surface observed by the metrics HTTP listener.
// It is the only state the reactor core shares with another goroutine;
// every counter/gauge here is safe for concurrent use (prometheus's own
// types are), so the reactor can update them inline without locking its
// own index/recency/arena state.
type Stats struct {
	ConnectionsAccepted prometheus.Counter
	ConnectionsClosed   prometheus.Counter
	CommandsTotal       *prometheus.CounterVec
	Evictions           prometheus.Counter
	Expirations         prometheus.Counter
	ProtocolErrors      prometheus.Counter
	LiveEntries         prometheus.Gauge
	OpenConnections     prometheus.Gauge
	BytesRead           prometheus.Counter
	BytesWritten        prometheus.Counter
}

// NewStats registers and returns a fresh Stats bound to reg. Using a
// dedicated registry (rather than the global default) keeps repeated
// server construction in tests from panicking on duplicate registration.
func NewStats(reg *prometheus.Registry) *Stats {
	s := &Stats{
		ConnectionsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kvreactor_connections_accepted_total",
			Help: "TCP connections accepted since startup.",
		}),
		ConnectionsClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kvreactor_connections_closed_total",
			Help: "Connections torn down since startup.",
		}),
		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kvreactor_commands_total",
			Help: "Commands dispatched, labeled by verb.",
		}, []string{"verb"}),
		Evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kvreactor_evictions_total",
			Help: "Entries removed by capacity eviction.",
		}),
		Expirations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kvreactor_expirations_total",
			Help: "Entries reclaimed by lazy TTL expiry.",
		}),
		ProtocolErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kvreactor_protocol_errors_total",
			Help: "Malformed records and output-overflow teardowns.",
		}),
		LiveEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kvreactor_live_entries",
			Help: "Current number of live store entries.",
		}),
		OpenConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kvreactor_open_connections",
			Help: "Current number of registered connections.",
		}),
		BytesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kvreactor_bytes_read_total",
			Help: "Bytes read from client sockets.",
		}),
		BytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kvreactor_bytes_written_total",
			Help: "Bytes written to client sockets.",
		}),
	}

	reg.MustRegister(
		s.ConnectionsAccepted, s.ConnectionsClosed, s.CommandsTotal,
		s.Evictions, s.Expirations, s.ProtocolErrors,
		s.LiveEntries, s.OpenConnections, s.BytesRead, s.BytesWritten,
	)
	return s
}
