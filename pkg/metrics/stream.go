package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Conns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pump_stream_conns",
		Help: "Active SSE stream connections (0 or 1)",
	})
	ConnOpenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pump_stream_conn_open_total",
		Help: "Total SSE stream connections opened",
	})
	ConnCloseTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pump_stream_conn_close_total",
		Help: "Total SSE stream connections closed, partitioned by reason",
	}, []string{"reason"}) // error/idle/unhealthy/shutdown/eof

	ReconnectTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pump_stream_reconnect_total",
		Help: "Total reconnect attempts",
	})

	State = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pump_stream_state",
		Help: "Supervisor state (0=disconnected 1=connecting 2=streaming 3=backing_off 4=shutting_down)",
	})

	EventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pump_events_total",
		Help: "Total dispatched events by type",
	}, []string{"type"})

	DecodeErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pump_decode_errors_total",
		Help: "Total frames dropped due to malformed payload",
	})

	HandlerErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pump_handler_errors_total",
		Help: "Total handler failures, partitioned by handler name",
	}, []string{"handler"})

	HealthChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pump_health_checks_total",
		Help: "Total out-of-band health checks, partitioned by result",
	}, []string{"result"}) // ok/fail

	PersistedBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pump_persisted_bytes_total",
		Help: "Total bytes appended to the event log file",
	})
)
