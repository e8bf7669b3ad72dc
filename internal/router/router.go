package router

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/airmeet-sync/internal/middleware"
)

// Handler registers its routes on a router group.
type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type Config struct {
	// VerifySignatures installs the signature middleware. It is installed
	// even with an empty secret, in which case every webhook fails with a
	// 500 until the secret is configured.
	VerifySignatures bool
	WebhookSecret    string
	DebugTokenSecret string
	RateLimitEnabled bool
	RateLimit        rate.Limit
	RateBurst        int
	RequestTimeout   time.Duration
	MaxBodySize      int64
	MetricsPrefix    string
}

type Router struct {
	engine   *gin.Engine
	config   Config
	webhookH Handler
	debugH   Handler
	healthH  Handler
	metrics  *routerMetrics
}

type routerMetrics struct {
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
}

func initRouterMetrics(prefix string) *routerMetrics {
	if prefix == "" {
		prefix = "airmeet_sync"
	}
	return &routerMetrics{
		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: prefix,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by path and method",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path", "method"}),
		requestTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: prefix,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by path, method and status",
		}, []string{"path", "method", "status"}),
	}
}

func NewRouter(webhookH, debugH, healthH Handler, config Config) *Router {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()

	r := &Router{
		engine:   engine,
		config:   config,
		webhookH: webhookH,
		debugH:   debugH,
		healthH:  healthH,
		metrics:  initRouterMetrics(config.MetricsPrefix),
	}

	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.Logger(),
		middleware.ErrorHandler(),
		r.metricsMiddleware(),
	)

	return r
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func (r *Router) Setup() {
	root := r.engine.Group("")

	r.healthH.RegisterRoutes(root)
	root.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Webhook routes carry a body size cap, a request deadline, signature
	// verification and, when enabled, rate limiting. Signature verification
	// must see the raw body before gin binds it.
	webhooks := r.engine.Group("")
	webhooks.Use(middleware.SizeLimit(r.config.MaxBodySize))
	if r.config.RequestTimeout > 0 {
		webhooks.Use(middleware.Timeout(r.config.RequestTimeout))
	}
	if r.config.RateLimitEnabled {
		webhooks.Use(middleware.RateLimit(r.config.RateLimit, r.config.RateBurst))
	}
	if r.config.VerifySignatures {
		webhooks.Use(middleware.VerifySignature(r.config.WebhookSecret))
	}
	r.webhookH.RegisterRoutes(webhooks)

	// Debug routes are read by a browser dashboard, hence CORS.
	debug := r.engine.Group("")
	debug.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	debug.Use(middleware.DebugAuth(r.config.DebugTokenSecret))
	r.debugH.RegisterRoutes(debug)
}

func (r *Router) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		r.metrics.requestDuration.WithLabelValues(path, method).Observe(time.Since(start).Seconds())
		r.metrics.requestTotal.WithLabelValues(path, method, status).Inc()
	}
}
