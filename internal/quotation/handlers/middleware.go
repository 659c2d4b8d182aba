package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"
	"go.uber.org/zap"
)

// MiddlewareConfig tunes the HTTP middleware chain.
type MiddlewareConfig struct {
	RateLimitRequests int
	RateLimitWindow   time.Duration
	Production        bool
	// AllowedOrigins enables CORS for the listed browser origins.
	AllowedOrigins []string
}

// WithMiddleware wraps next in the request chain: request id, real client
// address, panic recovery, CORS, security headers, then per-IP rate limiting.
// Preflight requests are answered before the rate limiter sees them.
func WithMiddleware(next http.Handler, cfg MiddlewareConfig, logger *zap.Logger) http.Handler {
	logger = logger.Named("http_middleware")

	secureMiddleware := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'none'",
		SSLRedirect:           cfg.Production,
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
	})

	chain := []func(http.Handler) http.Handler{
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
	}
	if len(cfg.AllowedOrigins) > 0 {
		chain = append(chain, cors.Handler(cors.Options{
			AllowedOrigins:   cfg.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
			ExposedHeaders:   []string{"Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	chain = append(chain,
		func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if err := secureMiddleware.Process(w, r); err != nil {
					logger.Warn("secure headers blocked request", zap.Error(err), zap.String("path", r.URL.Path))
					return
				}
				next.ServeHTTP(w, r)
			})
		},
	)
	if cfg.RateLimitRequests > 0 && cfg.RateLimitWindow > 0 {
		chain = append(chain, httprate.Limit(
			cfg.RateLimitRequests,
			cfg.RateLimitWindow,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				logger.Warn("rate limit exceeded", zap.String("remote_addr", r.RemoteAddr), zap.String("path", r.URL.Path))
				writeError(w, http.StatusTooManyRequests, "too many requests, please retry later")
			}),
		))
	}

	h := next
	for i := len(chain) - 1; i >= 0; i-- {
		h = chain[i](h)
	}
	return h
}
