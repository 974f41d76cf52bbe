// Package telemetry provides Prometheus metrics for the chat client, the
// keyboard hook and the app event pipeline.
package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once     sync.Once
	registry = prometheus.NewRegistry()

	// Counters
	ChatLines          *prometheus.CounterVec // by kind: ping, privmsg, malformed, ignored
	ChatMessages       prometheus.Counter
	ConnectAttempts    prometheus.Counter
	ConnectionErrors   prometheus.Counter
	OverlayToggles     prometheus.Counter
	ShortcutsExecuted  *prometheus.CounterVec // by result: ok, error
	DispatchDropped    prometheus.Counter
	TranscriptFailures prometheus.Counter

	// Gauges
	ChatConnected prometheus.Gauge // 1=joined,0=otherwise
	HookInstalled prometheus.Gauge // 1=installed,0=degraded
	WSClients     prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		factory := promauto.With(registry)
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)

		ChatLines = factory.NewCounterVec(prometheus.CounterOpts{Name: "overlay_chat_lines_total", Help: "Inbound relay lines by kind"}, []string{"kind"})
		ChatMessages = factory.NewCounter(prometheus.CounterOpts{Name: "overlay_chat_messages_total", Help: "Chat messages delivered to the overlay"})
		ConnectAttempts = factory.NewCounter(prometheus.CounterOpts{Name: "overlay_chat_connect_attempts_total", Help: "Relay connection attempts"})
		ConnectionErrors = factory.NewCounter(prometheus.CounterOpts{Name: "overlay_chat_connection_errors_total", Help: "Relay connections that ended with an error"})
		OverlayToggles = factory.NewCounter(prometheus.CounterOpts{Name: "overlay_toggles_total", Help: "Overlay visibility toggles"})
		ShortcutsExecuted = factory.NewCounterVec(prometheus.CounterOpts{Name: "overlay_shortcuts_executed_total", Help: "Synthetic shortcuts replayed by result"}, []string{"result"})
		DispatchDropped = factory.NewCounter(prometheus.CounterOpts{Name: "overlay_dispatch_dropped_total", Help: "App events dropped because the dispatch queue was full"})
		TranscriptFailures = factory.NewCounter(prometheus.CounterOpts{Name: "overlay_transcript_failures_total", Help: "Transcript writes that failed"})

		ChatConnected = factory.NewGauge(prometheus.GaugeOpts{Name: "overlay_chat_connected", Help: "Relay joined=1 otherwise=0"})
		HookInstalled = factory.NewGauge(prometheus.GaugeOpts{Name: "overlay_hotkey_hook_installed", Help: "Keyboard hook installed=1 degraded=0"})
		WSClients = factory.NewGauge(prometheus.GaugeOpts{Name: "overlay_ws_clients", Help: "Connected websocket feed clients"})
	})
}

// Gatherer exposes the private registry, mainly for tests.
func Gatherer() prometheus.Gatherer { return registry }

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	Init()
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}

// ObserveChatLine counts one inbound relay line.
func ObserveChatLine(kind string) {
	if ChatLines != nil {
		ChatLines.WithLabelValues(kind).Inc()
	}
}

// IncChatMessages counts one delivered chat message.
func IncChatMessages() {
	if ChatMessages != nil {
		ChatMessages.Inc()
	}
}

// IncConnectAttempts counts one relay dial.
func IncConnectAttempts() {
	if ConnectAttempts != nil {
		ConnectAttempts.Inc()
	}
}

// IncConnectionErrors counts one failed relay session.
func IncConnectionErrors() {
	if ConnectionErrors != nil {
		ConnectionErrors.Inc()
	}
}

// IncOverlayToggles counts one visibility toggle.
func IncOverlayToggles() {
	if OverlayToggles != nil {
		OverlayToggles.Inc()
	}
}

// ObserveShortcut counts one replayed shortcut by outcome.
func ObserveShortcut(err error) {
	if ShortcutsExecuted == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	ShortcutsExecuted.WithLabelValues(result).Inc()
}

// IncDispatchDropped counts one event that did not fit the dispatch queue.
func IncDispatchDropped() {
	if DispatchDropped != nil {
		DispatchDropped.Inc()
	}
}

// IncTranscriptFailures counts one failed transcript write.
func IncTranscriptFailures() {
	if TranscriptFailures != nil {
		TranscriptFailures.Inc()
	}
}

// SetChatConnected sets gauge to 1 if joined else 0.
func SetChatConnected(joined bool) { setBool(ChatConnected, joined) }

// SetHookInstalled sets gauge to 1 if the keyboard hook is active else 0.
func SetHookInstalled(installed bool) { setBool(HookInstalled, installed) }

// SetWSClients records the current feed client count.
func SetWSClients(n int) {
	if WSClients != nil {
		WSClients.Set(float64(n))
	}
}

func setBool(g prometheus.Gauge, v bool) {
	if g == nil {
		return
	}
	if v {
		g.Set(1)
	} else {
		g.Set(0)
	}
}
