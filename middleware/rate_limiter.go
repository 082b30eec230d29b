package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/godaddy/spree-ccavenue-api/utils"
)

// In-memory rate limiting with trusted-proxy support and cleanup. Memory only
// by design: limits here protect the admin surface and the gateway callback,
// both low-volume, and a restart resetting the windows is acceptable.

type timestamps []int64 // unix nanos

func nowUnix() int64 { return time.Now().UnixNano() }

func getEnvDuration(key string, def time.Duration) time.Duration {
	if s := os.Getenv(key); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			return time.Duration(v) * time.Second
		}
	}
	return def
}

// clientIPGeneric returns the client IP string. If trustedCIDR is provided,
// X-Forwarded-For / X-Real-IP headers are honored when the remote addr is
// inside one of the trusted CIDRs or IPs.
func clientIPGeneric(r *http.Request, trustedCIDR []string) string {
	remoteHost, _, _ := net.SplitHostPort(r.RemoteAddr)
	remoteIP := net.ParseIP(remoteHost)
	trusted := false
	for _, cidr := range trustedCIDR {
		cidr = strings.TrimSpace(cidr)
		if cidr == "" {
			continue
		}
		if strings.Contains(cidr, "/") {
			if _, ipnet, err := net.ParseCIDR(cidr); err == nil {
				if remoteIP != nil && ipnet.Contains(remoteIP) {
					trusted = true
					break
				}
			}
			continue
		}
		if ip := net.ParseIP(cidr); ip != nil && remoteIP != nil && ip.Equal(remoteIP) {
			trusted = true
			break
		}
	}
	if trusted {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			parts := strings.Split(xff, ",")
			if len(parts) > 0 {
				return strings.TrimSpace(parts[0])
			}
		}
		if xr := r.Header.Get("X-Real-IP"); xr != "" {
			return strings.TrimSpace(xr)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// IPRateLimiter implements per-IP sliding-window counters.
type IPRateLimiter struct {
	maxReq      int
	window      time.Duration
	mu          sync.Mutex
	state       map[string]timestamps
	cleanupTick time.Duration
	trustedCIDR []string
}

func NewIPRateLimiter(maxReq int, window time.Duration) *IPRateLimiter {
	l := &IPRateLimiter{
		maxReq:      maxReq,
		window:      window,
		state:       make(map[string]timestamps),
		cleanupTick: getEnvDuration("RATE_CLEANUP_SECONDS", 60*time.Second),
	}
	if v := os.Getenv("TRUSTED_PROXIES"); v != "" {
		l.trustedCIDR = strings.Split(v, ",")
	}
	go l.cleanupLoop()
	return l
}

// Middleware applies per-IP limits and sets rate-limit headers.
func (l *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIPGeneric(r, l.trustedCIDR)
		now := nowUnix()

		l.mu.Lock()
		count, oldest := l.record(ip, now)
		l.mu.Unlock()

		remaining := l.maxReq - count
		if remaining < 0 {
			remaining = 0
		}
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", l.maxReq))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))

		if count > l.maxReq {
			retryAfter := retryAfterSeconds(oldest, now, l.window)
			w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"success": false,
				"message": "Too many requests. Please try again later.",
				"data":    map[string]interface{}{"retry_after_seconds": retryAfter},
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// record appends now to the ip's window and returns the in-window count and
// the oldest in-window timestamp. Caller holds l.mu.
func (l *IPRateLimiter) record(ip string, now int64) (int, int64) {
	cutoff := now - int64(l.window)
	var filtered timestamps
	for _, ts := range l.state[ip] {
		if ts >= cutoff {
			filtered = append(filtered, ts)
		}
	}
	filtered = append(filtered, now)
	l.state[ip] = filtered
	oldest := filtered[0]
	for _, ts := range filtered {
		if ts < oldest {
			oldest = ts
		}
	}
	return len(filtered), oldest
}

func (l *IPRateLimiter) cleanupLoop() {
	tick := time.NewTicker(l.cleanupTick)
	defer tick.Stop()
	for range tick.C {
		l.mu.Lock()
		now := nowUnix()
		cutoff := now - int64(l.window)
		for k, arr := range l.state {
			var filtered timestamps
			for _, ts := range arr {
				if ts >= cutoff {
					filtered = append(filtered, ts)
				}
			}
			if len(filtered) == 0 {
				delete(l.state, k)
			} else {
				l.state[k] = filtered
			}
		}
		l.mu.Unlock()
	}
}

func retryAfterSeconds(oldest, now int64, window time.Duration) int {
	expireAt := oldest + int64(window)
	if ns := expireAt - now; ns > 0 {
		if s := int(ns / 1e9); s > 0 {
			return s
		}
	}
	return 1
}

// CallbackLimiter rate limits the gateway's browser-redirect callback:
// sliding window per IP plus an IP whitelist for the gateway's own servers.
type CallbackLimiter struct {
	maxReq    int
	window    time.Duration
	whitelist map[string]bool
	mu        sync.Mutex
	state     map[string]timestamps
}

func NewCallbackLimiter(maxReq int, window time.Duration, whitelist []string) *CallbackLimiter {
	wl := make(map[string]bool)
	for _, ip := range whitelist {
		if ip = strings.TrimSpace(ip); ip != "" {
			wl[ip] = true
		}
	}
	return &CallbackLimiter{
		maxReq:    maxReq,
		window:    window,
		whitelist: wl,
		state:     make(map[string]timestamps),
	}
}

func (l *CallbackLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIPGeneric(r, nil)
		if l.whitelist[ip] {
			next.ServeHTTP(w, r)
			return
		}
		now := nowUnix()
		cutoff := now - int64(l.window)
		l.mu.Lock()
		var filtered timestamps
		for _, ts := range l.state[ip] {
			if ts >= cutoff {
				filtered = append(filtered, ts)
			}
		}
		filtered = append(filtered, now)
		l.state[ip] = filtered
		count := len(filtered)
		oldest := filtered[0]
		l.mu.Unlock()

		if count > l.maxReq {
			retryAfter := retryAfterSeconds(oldest, now, l.window)
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"success": false,
				"message": "Too many callback requests. Please try again later.",
				"data":    map[string]interface{}{"retry_after_seconds": retryAfter},
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Login lockout tracker for failed admin logins, keyed by username. Prefers
// Redis when available so lockouts hold across instances.
var (
	loginMu   sync.Mutex
	failedMap = make(map[string]int)
	lockMap   = make(map[string]int64) // lockUntil unix nanos
)

func lockoutDuration(failures int) time.Duration {
	switch failures {
	case 1:
		return time.Minute
	case 2:
		return 5 * time.Minute
	case 3:
		return 15 * time.Minute
	default:
		return 30 * time.Minute
	}
}

func IsLoginLocked(username string) (bool, time.Duration) {
	if utils.RedisClient != nil {
		lockKey := "login:lock:" + username
		ttl, err := utils.RedisClient.TTL(context.Background(), lockKey).Result()
		if err == nil && ttl > 0 {
			return true, ttl
		}
		return false, 0
	}
	loginMu.Lock()
	defer loginMu.Unlock()
	until := lockMap[username]
	if until == 0 {
		return false, 0
	}
	now := nowUnix()
	if until > now {
		return true, time.Duration(until - now)
	}
	delete(lockMap, username)
	failedMap[username] = 0
	return false, 0
}

func RecordFailedLogin(username string) {
	if utils.RedisClient != nil {
		ctx := context.Background()
		failKey := "login:fail:" + username
		failures, err := utils.RedisClient.Incr(ctx, failKey).Result()
		if err == nil {
			_, _ = utils.RedisClient.Expire(ctx, failKey, 30*time.Minute).Result()
			_ = utils.RedisClient.Set(ctx, "login:lock:"+username, "1", lockoutDuration(int(failures))).Err()
			return
		}
		// fall through to the in-memory tracker on Redis errors
	}
	loginMu.Lock()
	defer loginMu.Unlock()
	failedMap[username] = failedMap[username] + 1
	lockMap[username] = nowUnix() + int64(lockoutDuration(failedMap[username]))
}

func ResetFailedLogin(username string) {
	if utils.RedisClient != nil {
		_, _ = utils.RedisClient.Del(context.Background(), "login:fail:"+username, "login:lock:"+username).Result()
		return
	}
	loginMu.Lock()
	defer loginMu.Unlock()
	delete(lockMap, username)
	failedMap[username] = 0
}
