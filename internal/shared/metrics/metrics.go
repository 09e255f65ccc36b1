package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every collector exported on /metrics.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	rankingsStarted = factory.NewCounter(prometheus.CounterOpts{
		Name: "ranking_started_total",
		Help: "Total rankings that reached the processing state",
	})
	rankingsFinished = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "ranking_finished_total",
		Help: "Total rankings that reached a terminal state",
	}, []string{"status"})
	rankingDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Name:    "ranking_duration_ms",
		Help:    "Ranking duration from processing to terminal state in milliseconds",
		Buckets: []float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000},
	})
	resumeResults = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "ranking_resume_results_total",
		Help: "Resume entries produced by label",
	}, []string{"label"})

	scoringCalls = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "scoring_calls_total",
		Help: "Scoring oracle calls by outcome",
	}, []string{"outcome"})
	scoringDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Name:    "scoring_call_duration_ms",
		Help:    "Scoring oracle call latency in milliseconds",
		Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
	})

	ledgerOps = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_operations_total",
		Help: "Quota ledger operations by kind and outcome",
	}, []string{"op", "outcome"})

	workerJobs = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "ranking_jobs_total",
		Help: "Queued ranking jobs by outcome",
	}, []string{"outcome"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// IncRankingStarted increments the started counter.
func IncRankingStarted() { rankingsStarted.Inc() }

// IncRankingFinished counts a terminal transition with its status.
func IncRankingFinished(status string) { rankingsFinished.WithLabelValues(status).Inc() }

// ObserveRankingDurationMs records a ranking duration in milliseconds.
func ObserveRankingDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	rankingDuration.Observe(value)
}

// AddResumeResults counts n result entries for label.
func AddResumeResults(label string, n int) {
	if n <= 0 {
		return
	}
	resumeResults.WithLabelValues(label).Add(float64(n))
}

// ObserveScoringCall records a scoring call outcome and latency.
func ObserveScoringCall(outcome string, durationMs float64) {
	scoringCalls.WithLabelValues(outcome).Inc()
	if durationMs < 0 {
		durationMs = 0
	}
	scoringDuration.Observe(durationMs)
}

// IncLedger counts a ledger operation outcome.
func IncLedger(op, outcome string) { ledgerOps.WithLabelValues(op, outcome).Inc() }

// IncWorkerJob counts a worker job outcome: received, completed, failed, deleted_unrecoverable.
func IncWorkerJob(outcome string) { workerJobs.WithLabelValues(outcome).Inc() }

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
	return gin.WrapH(h)
}
