package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
)

const (
	wildcard          = "*"
	corsMaxAge        = 600
	disallowedPrefix  = "Disallowed CORS "
	exposedHeaderList = RequestIDHeader
)

var allMethods = []string{
	http.MethodDelete, http.MethodGet, http.MethodHead, http.MethodOptions,
	http.MethodPatch, http.MethodPost, http.MethodPut,
}

// Headers a browser may always send without them being listed.
var safelistedHeaders = []string{"accept", "accept-language", "content-language", "content-type"}

// CORSPolicy is the cross-origin policy of the API. Credentials are allowed
// for explicitly listed origins only. An origin admitted solely through "*"
// gets a literal "*" and no Access-Control-Allow-Credentials header, rather
// than an echo of the request origin with credentials.
type CORSPolicy struct {
	origins      []string
	anyOrigin    bool
	methods      []string
	anyMethod    bool
	headers      []string
	allowHeaders string
	anyHeader    bool
}

func NewCORSPolicy(origins, methods, headers []string) *CORSPolicy {
	p := &CORSPolicy{}

	for _, origin := range origins {
		if origin == wildcard {
			p.anyOrigin = true
			continue
		}
		p.origins = append(p.origins, origin)
	}

	for _, method := range methods {
		if method == wildcard {
			p.anyMethod = true
			continue
		}
		p.methods = append(p.methods, strings.ToUpper(method))
	}
	if p.anyMethod {
		p.methods = allMethods
	}

	listed := make([]string, 0, len(headers)+len(safelistedHeaders))
	for _, header := range headers {
		if header == wildcard {
			p.anyHeader = true
			continue
		}
		listed = append(listed, strings.ToLower(header))
	}
	for _, header := range safelistedHeaders {
		if !slices.Contains(listed, header) {
			listed = append(listed, header)
		}
	}
	p.headers = listed
	p.allowHeaders = strings.Join(listed, ", ")

	return p
}

// allowOrigin returns the Access-Control-Allow-Origin value for origin and
// whether credentials may be allowed with it.
func (p *CORSPolicy) allowOrigin(origin string) (string, bool) {
	if slices.Contains(p.origins, origin) {
		return origin, true
	}
	if p.anyOrigin {
		return wildcard, false
	}
	return "", false
}

func (p *CORSPolicy) allowMethod(method string) bool {
	return p.anyMethod || slices.Contains(p.methods, method)
}

func (p *CORSPolicy) allowHeader(header string) bool {
	return p.anyHeader || slices.Contains(p.headers, strings.ToLower(header))
}

func (p *CORSPolicy) setOriginHeaders(h http.Header, origin string) bool {
	allowed, credentials := p.allowOrigin(origin)
	if allowed == "" {
		return false
	}

	h.Set("Access-Control-Allow-Origin", allowed)
	if credentials {
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Add("Vary", "Origin")
	}
	return true
}

// CORS applies the policy. Preflight requests are answered here and never
// reach next; other requests are served whether or not the origin is allowed.
func CORS(policy *CORSPolicy, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			next.ServeHTTP(w, r)
			return
		}

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			policy.preflight(w, r, origin)
			return
		}

		if policy.setOriginHeaders(w.Header(), origin) {
			w.Header().Set("Access-Control-Expose-Headers", exposedHeaderList)
		}
		next.ServeHTTP(w, r)
	})
}

func (p *CORSPolicy) preflight(w http.ResponseWriter, r *http.Request, origin string) {
	var failures []string

	if allowed, _ := p.allowOrigin(origin); allowed == "" {
		failures = append(failures, "origin")
	}

	if !p.allowMethod(r.Header.Get("Access-Control-Request-Method")) {
		failures = append(failures, "method")
	}

	requested := requestedHeaders(r)
	for _, header := range requested {
		if !p.allowHeader(header) {
			failures = append(failures, "headers")
			break
		}
	}

	h := w.Header()
	h.Set("Content-Type", "text/plain; charset=utf-8")

	if len(failures) > 0 {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(disallowedPrefix + strings.Join(failures, ", ")))
		return
	}

	p.setOriginHeaders(h, origin)
	h.Set("Access-Control-Allow-Methods", strings.Join(p.methods, ", "))
	if p.anyHeader && len(requested) > 0 {
		h.Set("Access-Control-Allow-Headers", strings.Join(requested, ", "))
	} else {
		h.Set("Access-Control-Allow-Headers", p.allowHeaders)
	}
	h.Set("Access-Control-Max-Age", strconv.Itoa(corsMaxAge))

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func requestedHeaders(r *http.Request) []string {
	raw := r.Header.Get("Access-Control-Request-Headers")
	if raw == "" {
		return nil
	}

	var headers []string
	for _, header := range strings.Split(raw, ",") {
		if header = strings.TrimSpace(header); header != "" {
			headers = append(headers, strings.ToLower(header))
		}
	}
	return headers
}
