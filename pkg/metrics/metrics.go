package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "mutsasns", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "mutsasns", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	// ArticleOperations counts article service calls by operation and outcome
	// (ok, not_found, bad_request, internal).
	ArticleOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "mutsasns", Name: "article_operations_total", Help: "Article service operations by op and result."},
		[]string{"op", "result"},
	)
	ImageBytesWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "mutsasns", Name: "image_bytes_written_total", Help: "Bytes of uploaded images written, by storage backend."},
		[]string{"backend"},
	)
	ImageFiles = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "mutsasns", Name: "image_files_total", Help: "Image files written or removed, by backend and action."},
		[]string{"backend", "action"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(ArticleOperations)
	reg.MustRegister(ImageBytesWritten)
	reg.MustRegister(ImageFiles)
}
