package monitoring

import (
	"net/http"
	"time"

	"github.com/mezonai/ppy/logx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type TransferResult string

var (
	TransferBroadcast     TransferResult = "broadcast"
	TransferBuildFailed   TransferResult = "build_failed"
	TransferSignFailed    TransferResult = "sign_failed"
	TransferFinalizeError TransferResult = "finalize_failed"
	TransferRejected      TransferResult = "rejected"
)

type PopupOutcome string

var (
	PopupAccepted PopupOutcome = "accepted"
	PopupRejected PopupOutcome = "rejected"
	PopupTimedOut PopupOutcome = "timed_out"
)

type pluginPromMetrics struct {
	rpcLatency        *prometheus.HistogramVec
	rpcErrorCount     *prometheus.CounterVec
	transferCount     *prometheus.CounterVec
	broadcastRejected prometheus.Counter
	faucetAttempts    prometheus.Counter
	popupCount        *prometheus.CounterVec
	feeFallbackCount  prometheus.Counter
	panicCount        prometheus.Counter
}

func newPluginPromMetrics() *pluginPromMetrics {
	return &pluginPromMetrics{
		rpcLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "ppy_plugin_rpc_latency_seconds",
				Help: "Latency of chain node RPC calls by method",
			},
			[]string{"method"},
		),
		rpcErrorCount: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ppy_plugin_rpc_error_count",
				Help: "The total number of failed chain node RPC calls by method",
			},
			[]string{"method"},
		),
		transferCount: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ppy_plugin_transfer_count",
				Help: "The total number of transfer attempts by result",
			},
			[]string{"result"},
		),
		broadcastRejected: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "ppy_plugin_broadcast_rejected_count",
				Help: "The total number of transactions refused by the chain",
			},
		),
		faucetAttempts: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "ppy_plugin_faucet_attempt_count",
				Help: "The total number of faucet registration requests sent",
			},
		),
		popupCount: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ppy_plugin_popup_count",
				Help: "Signature popups by outcome",
			},
			[]string{"outcome"},
		),
		feeFallbackCount: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "ppy_plugin_fee_core_fallback_count",
				Help: "Times fees fell back to the core asset because a fee pool was short",
			},
		),
		panicCount: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "ppy_plugin_panic_count",
				Help: "The total number of recovered panics",
			},
		),
	}
}

var pluginMetrics = newPluginPromMetrics()

func RegisterMetrics(mux *http.ServeMux) {
	logx.Info("MONITORING", "Registering prometheus metrics")
	mux.Handle("/metrics", promhttp.Handler())
}

// Serve exposes /metrics on addr. It blocks until the listener fails.
func Serve(addr string) error {
	mux := http.NewServeMux()
	RegisterMetrics(mux)
	return http.ListenAndServe(addr, mux)
}

func RecordRPC(method string, duration time.Duration, err error) {
	pluginMetrics.rpcLatency.With(prometheus.Labels{"method": method}).Observe(duration.Seconds())
	if err != nil {
		pluginMetrics.rpcErrorCount.With(prometheus.Labels{"method": method}).Inc()
	}
}

func RecordTransfer(result TransferResult) {
	pluginMetrics.transferCount.With(prometheus.Labels{"result": string(result)}).Inc()
}

func IncreaseBroadcastRejected() {
	pluginMetrics.broadcastRejected.Inc()
}

func IncreaseFaucetAttempts() {
	pluginMetrics.faucetAttempts.Inc()
}

func RecordPopup(outcome PopupOutcome) {
	pluginMetrics.popupCount.With(prometheus.Labels{"outcome": string(outcome)}).Inc()
}

func IncreaseFeeFallback() {
	pluginMetrics.feeFallbackCount.Inc()
}

func IncreasePanicCount() {
	pluginMetrics.panicCount.Inc()
}
