package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"go.uber.org/zap"

	"hrpay/internal/transport/http/api"
)

type RateLimitKeyFunc func(r *http.Request) string

type RateLimitOption func(*rateLimiter)

type rateLimiter struct {
	limit    int
	window   time.Duration
	keyFn    RateLimitKeyFunc
	instance *limiter.Limiter
	logger   *zap.Logger
}

func WithKeyFunc(fn RateLimitKeyFunc) RateLimitOption {
	return func(rl *rateLimiter) {
		if fn != nil {
			rl.keyFn = fn
		}
	}
}

func WithLogger(logger *zap.Logger) RateLimitOption {
	return func(rl *rateLimiter) {
		if logger != nil {
			rl.logger = logger
		}
	}
}

func RateLimit(limit int, window time.Duration, opts ...RateLimitOption) func(http.Handler) http.Handler {
	rl := newRateLimiter(limit, window, actorOrIPKey)
	for _, opt := range opts {
		opt(rl)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.enforce(w, r) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SensitiveMutationRateLimit applies a tighter per-actor budget to the
// payroll mutations that move money or seal records.
func SensitiveMutationRateLimit(baseLimit int, window time.Duration, opts ...RateLimitOption) func(http.Handler) http.Handler {
	sensitive := newRateLimiter(max(baseLimit/2, 1), window, actorOrIPKey)
	for _, opt := range opts {
		opt(sensitive)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSensitiveMutation(r) && !sensitive.enforce(w, r) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func actorOrIPKey(r *http.Request) string {
	if user, ok := GetUser(r.Context()); ok && user.UserID != "" {
		return "user:" + user.UserID
	}
	return clientIPKey(r)
}

func newRateLimiter(limit int, window time.Duration, keyFn RateLimitKeyFunc) *rateLimiter {
	if keyFn == nil {
		keyFn = actorOrIPKey
	}
	rl := &rateLimiter{limit: limit, window: window, keyFn: keyFn, logger: zap.NewNop()}
	if limit > 0 {
		rl.instance = limiter.New(memory.NewStore(), limiter.Rate{Period: window, Limit: int64(limit)})
	}
	return rl
}

func (rl *rateLimiter) enforce(w http.ResponseWriter, r *http.Request) bool {
	if rl.instance == nil {
		return true
	}

	key := rl.keyFn(r)
	if key == "" {
		key = clientIPKey(r)
	}
	lctx, err := rl.instance.Get(r.Context(), key)
	if err != nil {
		rl.logger.Error("rate limit lookup failed", zap.String("key", key), zap.Error(err))
		return true
	}

	resetIn := durationSeconds(time.Until(time.Unix(lctx.Reset, 0)))
	w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
	w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
	w.Header().Set("X-RateLimit-Reset", strconv.Itoa(resetIn))

	if lctx.Reached {
		w.Header().Set("Retry-After", strconv.Itoa(max(resetIn, 1)))
		rl.logger.Warn("rate limit exceeded",
			zap.String("key", key),
			zap.String("path", r.URL.Path),
			zap.String("method", r.Method),
			zap.Int("limit", rl.limit),
			zap.Int("windowSec", int(rl.window.Seconds())),
		)
		api.Fail(w, http.StatusTooManyRequests, "rate_limited", "too many requests", GetRequestID(r.Context()))
		return false
	}
	return true
}

func durationSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	seconds := int(d.Seconds())
	if seconds <= 0 {
		return 1
	}
	return seconds
}

func isSensitiveMutation(r *http.Request) bool {
	if r.Method != http.MethodPost {
		return false
	}
	path := strings.TrimPrefix(strings.TrimSpace(r.URL.Path), "/api/v1")
	if !strings.HasPrefix(path, "/payroll/") {
		return false
	}
	switch {
	case strings.HasPrefix(path, "/payroll/runs/"):
		return strings.HasSuffix(path, "/lock") || strings.HasSuffix(path, "/publish") || strings.HasSuffix(path, "/paid")
	case strings.HasPrefix(path, "/payroll/final-pay"):
		return true
	case strings.HasPrefix(path, "/payroll/adjustments/"):
		return strings.HasSuffix(path, "/apply")
	case strings.HasPrefix(path, "/payroll/payslips/"):
		return strings.HasSuffix(path, "/payment")
	case path == "/payroll/policy":
		return true
	}
	return false
}
