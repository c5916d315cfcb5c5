package httpx

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CORSPolicy controls browser access to the public booking API from the
// widget/frontend origins named in configuration.
type CORSPolicy struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
	MaxAge           time.Duration
}

// corsHeaders is the precomputed, request-independent part of the policy.
type corsHeaders struct {
	origins     map[string]struct{}
	wildcard    bool
	methods     string
	headers     string
	maxAge      string
	credentials bool
}

// WithCORS stamps response headers for allowed origins and short-circuits
// preflights. With no configured origins it is the identity middleware.
// Requests from origins outside the policy pass through without CORS
// headers; the browser enforces the block.
func WithCORS(p CORSPolicy) Middleware {
	if len(p.AllowedOrigins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	c := corsHeaders{
		origins:     make(map[string]struct{}, len(p.AllowedOrigins)),
		methods:     joinFields(p.AllowedMethods),
		headers:     joinFields(p.AllowedHeaders),
		credentials: p.AllowCredentials,
	}
	for _, o := range p.AllowedOrigins {
		o = strings.TrimSpace(o)
		if o == "*" {
			c.wildcard = true
		} else if o != "" {
			c.origins[strings.ToLower(o)] = struct{}{}
		}
	}
	if secs := int(p.MaxAge.Seconds()); secs > 0 {
		c.maxAge = strconv.Itoa(secs)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" || !c.allows(origin) {
				next.ServeHTTP(w, r)
				return
			}

			c.apply(w.Header(), origin)
			if isPreflight(r) {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (c corsHeaders) allows(origin string) bool {
	if c.wildcard {
		return true
	}
	_, ok := c.origins[strings.ToLower(origin)]
	return ok
}

func (c corsHeaders) apply(h http.Header, origin string) {
	// With credentials the wildcard must be echoed as the concrete origin.
	if c.wildcard && !c.credentials {
		h.Set("Access-Control-Allow-Origin", "*")
	} else {
		h.Set("Access-Control-Allow-Origin", origin)
	}
	if c.credentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
	if c.methods != "" {
		h.Set("Access-Control-Allow-Methods", c.methods)
	}
	if c.headers != "" {
		h.Set("Access-Control-Allow-Headers", c.headers)
	}
	if c.maxAge != "" {
		h.Set("Access-Control-Max-Age", c.maxAge)
	}
	h.Add("Vary", "Origin")
	h.Add("Vary", "Access-Control-Request-Method")
	h.Add("Vary", "Access-Control-Request-Headers")
}

func isPreflight(r *http.Request) bool {
	return r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""
}

func joinFields(values []string) string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return strings.Join(out, ", ")
}
