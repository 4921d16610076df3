package middleware

import (
	"net/http"
	"strings"
)

// CORSConfig holds allowed origins for cross-origin requests from the
// storefront frontend.
type CORSConfig struct {
	AllowedOrigins []string
}

// CORS adds Cross-Origin Resource Sharing headers. An empty origin list
// allows any origin, which is intended for development only.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			allowed := "*"
			if len(cfg.AllowedOrigins) > 0 {
				allowed = ""
				for _, o := range cfg.AllowedOrigins {
					if strings.EqualFold(o, origin) {
						allowed = origin
						break
					}
				}
			}

			if allowed != "" {
				w.Header().Set("Access-Control-Allow-Origin", allowed)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, X-Correlation-ID, X-Owner-Key, X-Device-Key")
				w.Header().Set("Access-Control-Max-Age", "3600")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
