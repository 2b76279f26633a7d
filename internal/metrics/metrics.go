// Package metrics 记录下发会话的 Prometheus 指标，运行结束后可写成
// node_exporter textfile collector 使用的文件。
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/thirdjal/A10-cli-deploy/internal/domain"
)

type Metrics struct {
	reg      *prometheus.Registry
	sessions *prometheus.CounterVec
	duration prometheus.Histogram
	bytes    prometheus.Counter
	lastRun  prometheus.Gauge
	lastTime prometheus.Gauge
	targets  prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "a10deploy",
			Name:      "sessions_total",
			Help:      "Device sessions by outcome and the state they ended in.",
		}, []string{"outcome", "state"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "a10deploy",
			Name:      "session_duration_seconds",
			Help:      "Wall-clock time of one auth/deploy/logoff session.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "a10deploy",
			Name:      "result_bytes_total",
			Help:      "Bytes of deploy responses written to result files.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "a10deploy",
			Name:      "last_run_duration_seconds",
			Help:      "Wall-clock time of the last complete run.",
		}),
		lastTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "a10deploy",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
		targets: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "a10deploy",
			Name:      "last_run_targets",
			Help:      "Number of devices in the last run.",
		}),
	}
	m.reg.MustRegister(m.sessions, m.duration, m.bytes, m.lastRun, m.lastTime, m.targets)
	return m
}

// Registry 供测试或外部 exporter 读取
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// ObserveSession 记录一次会话
func (m *Metrics) ObserveSession(r domain.SessionResult) {
	outcome := "ok"
	if !r.OK() {
		outcome = "failed"
	}
	m.sessions.WithLabelValues(outcome, r.FailedAt.String()).Inc()
	m.duration.Observe(r.Duration().Seconds())
	if r.OK() {
		m.bytes.Add(float64(len(r.Payload)))
	}
}

// ObserveRun 记录一次完整运行
func (m *Metrics) ObserveRun(targets int, elapsed time.Duration) {
	m.targets.Set(float64(targets))
	m.lastRun.Set(elapsed.Seconds())
	m.lastTime.SetToCurrentTime()
}

// WriteTextfile 写出 textfile collector 格式
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.reg)
}
