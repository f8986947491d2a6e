package middleware

import (
	"context"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Togather-Foundation/rsvp/internal/api/problem"
	"github.com/Togather-Foundation/rsvp/internal/config"
	"golang.org/x/time/rate"
)

type RateLimitTier string

const (
	TierPublic RateLimitTier = "public"
	// TierLogin guards credential endpoints; its limit counts attempts per 15 minutes.
	TierLogin RateLimitTier = "login"
)

const (
	loginWindow  = 15 * time.Minute
	limiterTTL   = 15 * time.Minute
	cleanupEvery = 5 * time.Minute
)

const rateLimitTierKey contextKey = "rate_limit_tier"

func WithRateLimitTier(ctx context.Context, tier RateLimitTier) context.Context {
	return context.WithValue(ctx, rateLimitTierKey, tier)
}

func WithRateLimitTierHandler(tier RateLimitTier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithRateLimitTier(r.Context(), tier)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RateLimiter keeps one token bucket per tier and client address. A tier
// with a limit of zero is not limited.
type RateLimiter struct {
	store    *limiterStore
	trusted  []netip.Prefix
	env      string
	stopOnce sync.Once
}

// NewRateLimiter expects CIDRs already checked by config.Validate; any that
// do not parse are ignored.
func NewRateLimiter(cfg config.RateLimitConfig, env string) *RateLimiter {
	return &RateLimiter{
		store:   newLimiterStore(cfg),
		trusted: parsePrefixes(cfg.TrustedProxyCIDRs),
		env:     env,
	}
}

// Handler takes the tier from the request context; requests without
// one count against TierPublic.
func (l *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" || r.URL.Path == "/readyz" {
			next.ServeHTTP(w, r)
			return
		}

		tier, ok := r.Context().Value(rateLimitTierKey).(RateLimitTier)
		if !ok {
			tier = TierPublic
		}

		limiter := l.store.limiter(tier, clientKey(r, l.trusted))
		if limiter == nil || limiter.Allow() {
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(tier, limiter)))
		problem.Write(w, r, http.StatusTooManyRequests, problem.TypeRateLimited, "Too many requests", nil, l.env)
	})
}

// retryAfterSeconds is one refill interval for the login tier and a full
// minute for everything else.
func retryAfterSeconds(tier RateLimitTier, limiter *rate.Limiter) int {
	if tier != TierLogin {
		return 60
	}
	interval := time.Duration(float64(time.Second) / float64(limiter.Limit()))
	return int(interval.Round(time.Second) / time.Second)
}

// Stop ends the background cleanup.
func (l *RateLimiter) Stop() {
	l.stopOnce.Do(l.store.stop)
}

type tierPolicy struct {
	limit  int
	window time.Duration
}

type bucketKey struct {
	tier   RateLimitTier
	client string
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type limiterStore struct {
	mu       sync.Mutex
	buckets  map[bucketKey]*limiterEntry
	policies map[RateLimitTier]tierPolicy
	now      func() time.Time
	done     chan struct{}
}

func newLimiterStore(cfg config.RateLimitConfig) *limiterStore {
	s := &limiterStore{
		buckets: make(map[bucketKey]*limiterEntry),
		policies: map[RateLimitTier]tierPolicy{
			TierPublic: {limit: cfg.PublicPerMinute, window: time.Minute},
			TierLogin:  {limit: cfg.LoginPer15Minutes, window: loginWindow},
		},
		now:  time.Now,
		done: make(chan struct{}),
	}
	if cfg.PublicPerMinute > 0 || cfg.LoginPer15Minutes > 0 {
		go s.cleanupLoop()
	}
	return s
}

// limiter returns nil when the tier is unlimited. A new bucket starts full
// and refills evenly across the tier's window.
func (s *limiterStore) limiter(tier RateLimitTier, client string) *rate.Limiter {
	policy := s.policies[tier]
	if policy.limit <= 0 {
		return nil
	}
	key := bucketKey{tier: tier, client: client}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	entry, ok := s.buckets[key]
	if !ok {
		entry = &limiterEntry{
			limiter: rate.NewLimiter(rate.Every(policy.window/time.Duration(policy.limit)), policy.limit),
		}
		s.buckets[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

func (s *limiterStore) cleanupLoop() {
	ticker := time.NewTicker(cleanupEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.done:
			return
		}
	}
}

func (s *limiterStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-limiterTTL)
	for key, entry := range s.buckets {
		if entry.lastSeen.Before(cutoff) {
			delete(s.buckets, key)
		}
	}
}

func (s *limiterStore) stop() {
	close(s.done)
}

func parsePrefixes(cidrs []string) []netip.Prefix {
	out := make([]netip.Prefix, 0, len(cidrs))
	for _, c := range cidrs {
		if p, err := netip.ParsePrefix(strings.TrimSpace(c)); err == nil {
			out = append(out, p.Masked())
		}
	}
	return out
}

// clientKey identifies the caller by remote address. X-Forwarded-For and
// X-Real-IP are honoured only when the peer is inside a trusted prefix.
func clientKey(r *http.Request, trusted []netip.Prefix) string {
	remote := r.RemoteAddr
	if host, _, err := net.SplitHostPort(remote); err == nil {
		remote = host
	}
	if !fromTrustedProxy(remote, trusted) {
		return remote
	}

	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	return remote
}

func fromTrustedProxy(ip string, trusted []netip.Prefix) bool {
	if len(trusted) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
