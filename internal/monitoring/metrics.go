package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Trading metrics
	tradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_trades_total",
			Help: "Total number of trades executed",
		},
		[]string{"symbol", "side"},
	)

	tradeValue = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "session_trade_value",
			Help:    "Distribution of executed trade values",
			Buckets: prometheus.ExponentialBuckets(100, 4, 8),
		},
		[]string{"symbol"},
	)

	rejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_signal_rejections_total",
			Help: "Signals rejected before or during execution",
		},
		[]string{"reason"},
	)

	// Portfolio metrics
	portfolioValue = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "session_portfolio_value",
			Help: "Current total portfolio value",
		},
		[]string{"session"},
	)

	portfolioCash = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "session_portfolio_cash",
			Help: "Current cash balance",
		},
		[]string{"session"},
	)

	// Risk metrics
	riskAlertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_risk_alerts_total",
			Help: "Risk alerts raised by the periodic check",
		},
		[]string{"severity", "type"},
	)

	// Error metrics
	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_errors_total",
			Help: "Total number of errors by category",
		},
		[]string{"category"},
	)
)

func init() {
	// Register metrics
	prometheus.MustRegister(tradesTotal)
	prometheus.MustRegister(tradeValue)
	prometheus.MustRegister(rejectionsTotal)
	prometheus.MustRegister(portfolioValue)
	prometheus.MustRegister(portfolioCash)
	prometheus.MustRegister(riskAlertsTotal)
	prometheus.MustRegister(errorsTotal)
}

// MetricsHandler handles Prometheus metrics endpoint
type MetricsHandler struct{}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{}
}

// ServeHTTP serves the Prometheus metrics endpoint
func (m *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// RecordTrade records an executed trade.
func RecordTrade(symbol, side string, value float64) {
	tradesTotal.WithLabelValues(symbol, side).Inc()
	tradeValue.WithLabelValues(symbol).Observe(value)
}

// RecordRejection records a rejected signal by reason.
func RecordRejection(reason string) {
	rejectionsTotal.WithLabelValues(reason).Inc()
}

// UpdatePortfolio updates the portfolio gauges for a session.
func UpdatePortfolio(session string, totalValue, cash float64) {
	portfolioValue.WithLabelValues(session).Set(totalValue)
	portfolioCash.WithLabelValues(session).Set(cash)
}

// RecordRiskAlert records a risk alert.
func RecordRiskAlert(severity, alertType string) {
	riskAlertsTotal.WithLabelValues(severity, alertType).Inc()
}

// RecordError records an error by category.
func RecordError(category string) {
	errorsTotal.WithLabelValues(category).Inc()
}
