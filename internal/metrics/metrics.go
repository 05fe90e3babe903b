package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 服务运行指标
type Metrics struct {
	registry *prometheus.Registry

	CacheLookups     *prometheus.CounterVec   // labels: result=hit|miss|fallback
	ProviderDuration *prometheus.HistogramVec // labels: api, status
	Analyses         *prometheus.CounterVec   // labels: endpoint, status
	ErrorLogs        *prometheus.CounterVec   // labels: error_type
	SweepDeleted     *prometheus.CounterVec   // labels: table
}

// NewMetrics 创建并注册所有指标，每个实例使用独立的 Registry
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stock_signal_cache_lookups_total",
			Help: "Fundamental cache lookups by result",
		}, []string{"result"}),
		ProviderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stock_signal_provider_request_duration_seconds",
			Help:    "Upstream data provider request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"api", "status"}),
		Analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stock_signal_analyses_total",
			Help: "Strategy analyses served",
		}, []string{"endpoint", "status"}),
		ErrorLogs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stock_signal_error_logs_total",
			Help: "Error log rows written by type",
		}, []string{"error_type"}),
		SweepDeleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stock_signal_sweep_deleted_total",
			Help: "Rows removed by the periodic cleanup",
		}, []string{"table"}),
	}

	m.registry.MustRegister(
		m.CacheLookups,
		m.ProviderDuration,
		m.Analyses,
		m.ErrorLogs,
		m.SweepDeleted,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveProvider 记录一次数据源请求耗时
func (m *Metrics) ObserveProvider(api string, start time.Time, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.ProviderDuration.WithLabelValues(api, status).Observe(time.Since(start).Seconds())
}

// CacheLookup 记录缓存查询结果
func (m *Metrics) CacheLookup(result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// Analysis 记录一次策略分析
func (m *Metrics) Analysis(endpoint string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.Analyses.WithLabelValues(endpoint, status).Inc()
}

// ErrorLogged 记录错误日志写入
func (m *Metrics) ErrorLogged(errorType string) {
	if m == nil {
		return
	}
	m.ErrorLogs.WithLabelValues(errorType).Inc()
}

// Swept 记录清理删除的行数
func (m *Metrics) Swept(table string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.SweepDeleted.WithLabelValues(table).Add(float64(n))
}

// Handler 返回 /metrics 处理器
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
