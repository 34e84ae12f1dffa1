package sink

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	insertTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_sink_inserts_total",
			Help: "下游写入次数",
		},
		[]string{"sink", "result"},
	)

	insertDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relay_sink_insert_duration_seconds",
			Help:    "下游写入耗时（秒）",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"sink"},
	)
)

func init() {
	prometheus.MustRegister(insertTotal)
	prometheus.MustRegister(insertDuration)
}

// Instrumented 为 sink 增加可选的单次写入超时，并记录写入结果和耗时
type Instrumented struct {
	inner   Sink
	name    string
	timeout time.Duration
}

// NewInstrumented timeout 为 0 时不设置超时，只跟随请求上下文
func NewInstrumented(inner Sink, name string, timeout time.Duration) *Instrumented {
	return &Instrumented{inner: inner, name: name, timeout: timeout}
}

func (s *Instrumented) Insert(ctx context.Context, payload any) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	err := s.inner.Insert(ctx, payload)
	insertDuration.WithLabelValues(s.name).Observe(time.Since(start).Seconds())

	result := "success"
	if err != nil {
		result = "failure"
	}
	insertTotal.WithLabelValues(s.name, result).Inc()

	return err
}

func (s *Instrumented) Close() error {
	return s.inner.Close()
}
