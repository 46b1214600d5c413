package httpapi

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"logistics-platform/internal/audit"
	"logistics-platform/internal/auth"
	"logistics-platform/internal/policy"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// gin context keys naming the permission pair of the current route.
const (
	keyResource = "resource"
	keyAction   = "action"
)

// RequestInfo records the server-observed origin of the request for audit entries.
func RequestInfo() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := audit.WithRequestInfo(c.Request.Context(), audit.RequestInfo{
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
			Endpoint:  c.Request.URL.Path,
			Method:    c.Request.Method,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// authorize runs the request-level stage of the (resource, action) rule.
// A denial is pushed as an error and the chain stops; Translate renders it.
func (h *Handlers) authorize(resource string, action policy.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(keyResource, resource)
		c.Set(keyAction, string(action))

		p := auth.PrincipalFrom(c.Request.Context())
		if !h.Table.Allow(resource, p, c.Request.Method, action, nil) {
			deny(c, p, "%s.%s: request check", resource, action)
			return
		}
		c.Next()
	}
}

// allowObject runs the object-level stage for the current route's pair and
// denies the request when it fails.
func (h *Handlers) allowObject(c *gin.Context, obj any) bool {
	resource := c.GetString(keyResource)
	action := policy.Action(c.GetString(keyAction))
	p := auth.PrincipalFrom(c.Request.Context())
	if h.Table.AllowObject(resource, p, c.Request.Method, action, obj) {
		return true
	}
	deny(c, p, "%s.%s: object check", resource, action)
	return false
}

// deny records an authorization failure on the gin context and aborts.
// Anonymous callers get ErrUnauthenticated, everyone else ErrForbidden.
func deny(c *gin.Context, p *auth.Principal, format string, args ...any) {
	kind := auth.ErrForbidden
	if p == nil {
		kind = auth.ErrUnauthenticated
	}
	_ = c.Error(fmt.Errorf("%w: "+format, append([]any{kind}, args...)...))
	c.Abort()
}

// MaxBodyBytes caps request bodies.
func MaxBodyBytes(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
	}
}

// IPLimiter is a token bucket per client IP. Idle buckets are dropped after ttl.
type IPLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   rate.Limit
	burst   int
	ttl     time.Duration
	clock   func() time.Time
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// NewIPLimiter allows perMinute requests per IP with the given burst.
func NewIPLimiter(perMinute, burst int) *IPLimiter {
	if burst < 1 {
		burst = 1
	}
	return &IPLimiter{
		buckets: make(map[string]*bucket),
		limit:   rate.Limit(float64(perMinute) / 60),
		burst:   burst,
		ttl:     10 * time.Minute,
		clock:   time.Now,
	}
}

// Allow consumes one token for ip.
func (l *IPLimiter) Allow(ip string) bool {
	if ip == "" {
		ip = "unknown"
	}
	now := l.clock()

	l.mu.Lock()
	defer l.mu.Unlock()
	for k, b := range l.buckets {
		if now.Sub(b.seen) > l.ttl {
			delete(l.buckets, k)
		}
	}
	b, ok := l.buckets[ip]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[ip] = b
	}
	b.seen = now
	return b.lim.AllowN(now, 1)
}

// Middleware answers 429 once the caller's bucket is empty.
func (l *IPLimiter) Middleware(counters Counters) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			counters.LoginThrottled()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"detail": "Request was throttled."})
			return
		}
		c.Next()
	}
}
