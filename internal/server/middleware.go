package server

import (
	"net/http"
	"runtime/debug"
	"slices"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/alnah/go-rentnotice/internal/logging"
)

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-ID"

const ctxRequestID = "request_id"

// requestID reuses the caller's X-Request-ID or generates one.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > 128 {
			id = uuid.New().String()
		}
		c.Header(HeaderRequestID, id)
		c.Set(ctxRequestID, id)
		c.Next()
	}
}

// RequestID returns the id assigned by the request id middleware.
func RequestID(c *gin.Context) string {
	return c.GetString(ctxRequestID)
}

// recovery turns a handler panic into a 500 with the request id.
func recovery(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.WithFields(logrus.Fields{
					logging.FieldRequestID: RequestID(c),
					"panic":                r,
					"method":               c.Request.Method,
					logging.FieldPath:      c.Request.URL.Path,
					"stack":                string(debug.Stack()),
				}).Error("panic recovered")

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error":      "Internal server error",
					"request_id": RequestID(c),
				})
			}
		}()
		c.Next()
	}
}

// requestLogger logs one line per request, leveled by status class.
func requestLogger(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		log := logger.WithFields(logrus.Fields{
			"status":               status,
			"method":               c.Request.Method,
			logging.FieldPath:      path,
			"latency_ms":           time.Since(start).Milliseconds(),
			"client_ip":            c.ClientIP(),
			logging.FieldRequestID: RequestID(c),
		})
		if len(c.Errors) > 0 {
			log = log.WithField("error", c.Errors.String())
		}

		switch {
		case status >= http.StatusInternalServerError:
			log.Error("request completed")
		case status >= http.StatusBadRequest:
			log.Warn("request completed")
		default:
			log.Info("request completed")
		}
	}
}

// clientLimiters hands out one token bucket per client IP.
type clientLimiters struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	clients map[string]*clientLimiter
	now     func() time.Time
	idle    time.Duration
	swept   time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newClientLimiters(perMinute int, now func() time.Time) *clientLimiters {
	return &clientLimiters{
		limit:   rate.Limit(float64(perMinute) / 60),
		burst:   perMinute,
		clients: make(map[string]*clientLimiter),
		now:     now,
		idle:    10 * time.Minute,
		swept:   now(),
	}
}

// allow takes one token for ip. Idle clients are forgotten.
func (l *clientLimiters) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.swept) > l.idle {
		for k, cl := range l.clients {
			if now.Sub(cl.lastSeen) > l.idle {
				delete(l.clients, k)
			}
		}
		l.swept = now
	}

	cl, ok := l.clients[ip]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[ip] = cl
	}
	cl.lastSeen = now
	return cl.limiter.AllowN(now, 1)
}

// rateLimit rejects clients exceeding perMinute requests with 429.
func rateLimit(perMinute int, now func() time.Time, logger logrus.FieldLogger) gin.HandlerFunc {
	limiters := newClientLimiters(perMinute, now)
	return func(c *gin.Context) {
		if !limiters.allow(c.ClientIP()) {
			logger.WithFields(logrus.Fields{
				"client_ip":            c.ClientIP(),
				logging.FieldRequestID: RequestID(c),
			}).Warn("rate limit exceeded")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded. Please try again later.",
			})
			return
		}
		c.Next()
	}
}

// cors allows the configured origins; an empty list allows any origin.
func cors(origins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		switch {
		case len(origins) == 0:
			c.Header("Access-Control-Allow-Origin", "*")
		case origin != "" && slices.Contains(origins, origin):
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Vary", "Origin")
		}
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept, Origin, X-Requested-With, "+HeaderRequestID)
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Expose-Headers", HeaderRequestID+", Content-Disposition")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
