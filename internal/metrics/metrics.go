package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AnalysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "pricescope_analyses_total", Help: "Indicator runs by symbol and result"},
		[]string{"symbol", "result"},
	)
	FluctuationAlertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "pricescope_fluctuation_alerts_total", Help: "Fluctuation alerts raised"},
		[]string{"symbol"},
	)
	ProviderErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "pricescope_provider_errors_total", Help: "Market data fetch failures"},
		[]string{"provider"},
	)
	AnalysisDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "pricescope_analysis_duration_seconds",
		Help:    "Fetch plus indicator computation time",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(AnalysesTotal, FluctuationAlertsTotal, ProviderErrorsTotal, AnalysisDuration)
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
