package httpapi

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/avolkovs/taskdeck/internal/server/auth"
	"golang.org/x/time/rate"
)

type ctxKey string

const userIDKey ctxKey = "userID"

func userIDFromRequest(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey).(string)
	return id
}

// requireAuth resolves the bearer token to an owner identity and stores it
// on the request context. Every failure mode (missing header, malformed
// token, bad signature, expiry) produces the same 401.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Authorization")

		authHeader := r.Header.Get("Authorization")
		parts := strings.Fields(authHeader)
		if len(parts) != 2 || parts[0] != "Bearer" {
			s.writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		userID, err := auth.GetUserIDFromToken(parts[1], s.jwtSecret)
		if err != nil {
			s.writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// rateLimit throttles per client IP. Idle limiters are evicted after a few
// minutes to keep the map bounded; the eviction goroutine stops with the
// server's context.
func (s *Server) rateLimit(ctx context.Context, next http.Handler) http.HandlerFunc {
	type client struct {
		limiter  *rate.Limiter
		lastSeen time.Time
	}
	var (
		mu      sync.Mutex
		clients = make(map[string]*client)
	)
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			mu.Lock()
			for ip, c := range clients {
				if time.Since(c.lastSeen) >= 3*time.Minute {
					delete(clients, ip)
				}
			}
			mu.Unlock()
		}
	}()

	return func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		mu.Lock()
		c, ok := clients[ip]
		if !ok {
			c = &client{limiter: rate.NewLimiter(rate.Limit(s.config.RateLimitRPS), s.config.RateLimitBurst)}
			clients[ip] = c
		}
		c.lastSeen = time.Now()
		allowed := c.limiter.Allow()
		mu.Unlock()

		if !allowed {
			s.writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	}
}

// enableCORS reflects trusted origins; "*" in the config trusts everyone.
func (s *Server) enableCORS(next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Origin")
		w.Header().Add("Vary", "Access-Control-Request-Method")

		origin := r.Header.Get("Origin")
		if origin != "" {
			for _, trusted := range s.config.TrustedOrigins {
				if origin == trusted || trusted == "*" {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Credentials", "true")
					if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
						w.Header().Set("Access-Control-Allow-Methods", "OPTIONS, GET, POST, PUT, DELETE")
						w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
						w.WriteHeader(http.StatusOK)
						return
					}
					break
				}
			}
		}
		next.ServeHTTP(w, r)
	}
}
