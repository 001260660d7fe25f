package transport

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig configures cross-origin access to the HTTP transport.
type CORSConfig struct {
	// AllowOrigins lists the allowed origins. A single "*" allows any.
	AllowOrigins []string

	// AllowMethods lists the methods announced to preflight requests.
	// Default: GET, POST, OPTIONS
	AllowMethods []string

	// AllowHeaders lists the request headers announced to preflight
	// requests. Default: Content-Type, Authorization, X-API-Key, X-Request-ID
	AllowHeaders []string

	// ExposeHeaders lists the response headers readable by the browser.
	ExposeHeaders []string

	// AllowCredentials allows cookies and authorization headers.
	AllowCredentials bool

	// MaxAge is how long preflight results may be cached, in seconds.
	// Default: 86400
	MaxAge int
}

var (
	defaultCORSMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	defaultCORSHeaders = []string{"Content-Type", "Authorization", "X-API-Key", "X-Request-ID"}
)

// DefaultCORSConfig returns a permissive configuration for development.
// Request IDs echoed by the transport are exposed to the browser.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins:  []string{"*"},
		AllowMethods:  defaultCORSMethods,
		AllowHeaders:  defaultCORSHeaders,
		ExposeHeaders: []string{"X-Request-ID"},
		MaxAge:        86400,
	}
}

func (c CORSConfig) withDefaults() CORSConfig {
	if len(c.AllowMethods) == 0 {
		c.AllowMethods = defaultCORSMethods
	}
	if len(c.AllowHeaders) == 0 {
		c.AllowHeaders = defaultCORSHeaders
	}
	if c.MaxAge == 0 {
		c.MaxAge = 86400
	}
	return c
}

// CORSHandler wraps next with CORS headers. Preflight requests from allowed
// origins are answered without reaching next.
func CORSHandler(config CORSConfig, next http.Handler) http.Handler {
	config = config.withDefaults()

	wildcard := len(config.AllowOrigins) == 1 && config.AllowOrigins[0] == "*"
	origins := make(map[string]struct{}, len(config.AllowOrigins))
	for _, o := range config.AllowOrigins {
		origins[o] = struct{}{}
	}

	methods := strings.Join(config.AllowMethods, ", ")
	headers := strings.Join(config.AllowHeaders, ", ")
	exposed := strings.Join(config.ExposeHeaders, ", ")
	maxAge := strconv.Itoa(config.MaxAge)

	allowed := func(origin string) string {
		if wildcard {
			return "*"
		}
		if _, ok := origins[origin]; ok && origin != "" {
			return origin
		}
		return ""
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowOrigin := allowed(r.Header.Get("Origin"))
		if allowOrigin == "" {
			next.ServeHTTP(w, r)
			return
		}

		h := w.Header()
		h.Set("Access-Control-Allow-Origin", allowOrigin)
		if !wildcard {
			h.Add("Vary", "Origin")
		}
		if config.AllowCredentials {
			h.Set("Access-Control-Allow-Credentials", "true")
		}

		if r.Method == http.MethodOptions {
			h.Set("Access-Control-Allow-Methods", methods)
			h.Set("Access-Control-Allow-Headers", headers)
			if config.MaxAge > 0 {
				h.Set("Access-Control-Max-Age", maxAge)
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}

		if exposed != "" {
			h.Set("Access-Control-Expose-Headers", exposed)
		}
		next.ServeHTTP(w, r)
	})
}

// WithCORS enables CORS on the HTTP transport.
func WithCORS(config CORSConfig) HTTPOption {
	return func(h *HTTP) {
		h.corsConfig = &config
	}
}

// WithDefaultCORS enables CORS with DefaultCORSConfig.
func WithDefaultCORS() HTTPOption {
	return WithCORS(DefaultCORSConfig())
}
