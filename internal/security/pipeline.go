package security

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"masthead/internal/audit"
	"masthead/internal/platform/metrics"
	"masthead/internal/ratelimit"
	"masthead/internal/transport/http/shared"
	dErrors "masthead/pkg/domain-errors"
)

const maxJSONBody = 1 << 20

// Pipeline is the ordered request gate applied ahead of every route:
// blocklist, rate limit, sanitization, injection detection, CSRF,
// hardening headers and upload checks, with audit records for every
// rejection.
type Pipeline struct {
	blocklist  Blocklist
	limiter    ratelimit.Limiter
	csrfKey    []byte
	csrfExempt []string
	recorder   *audit.Recorder
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

type PipelineOption func(*Pipeline)

func WithLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = logger }
}

func WithMetrics(m *metrics.Metrics) PipelineOption {
	return func(p *Pipeline) { p.metrics = m }
}

func WithRecorder(rec *audit.Recorder) PipelineOption {
	return func(p *Pipeline) { p.recorder = rec }
}

// WithCSRFExempt excludes the given path prefixes from the CSRF check.
// Token-free entry points such as login and registration need this.
func WithCSRFExempt(prefixes ...string) PipelineOption {
	return func(p *Pipeline) { p.csrfExempt = prefixes }
}

func NewPipeline(blocklist Blocklist, limiter ratelimit.Limiter, csrfKey []byte, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		blocklist: blocklist,
		limiter:   limiter,
		csrfKey:   csrfKey,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Handler applies the pipeline checks in order, short-circuiting on
// the first failure.
func (p *Pipeline) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := audit.ClientIP(r)

		if !p.allowAddress(w, r, clientIP) {
			return
		}
		if !p.allowRate(w, r, clientIP) {
			return
		}
		if !p.sanitizeAndInspect(w, r) {
			return
		}
		if stateChanging(r.Method) && !p.exemptFromCSRF(r.URL.Path) && !csrfOK(r, p.csrfKey) {
			p.reject(w, r, ViolationCSRF, audit.SeverityWarning,
				dErrors.New(dErrors.CodeSecurityViolation, "missing or invalid csrf token"))
			return
		}

		setHardeningHeaders(w)

		if isMultipart(r) {
			if err := CheckUpload(r); err != nil {
				if dErrors.HasCode(err, dErrors.CodeSecurityViolation) {
					p.reject(w, r, ViolationUpload, audit.SeverityCritical, err)
				} else {
					shared.WriteError(w, err)
				}
				return
			}
		}

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		begin := time.Now()
		next.ServeHTTP(sw, r)

		if p.metrics != nil {
			p.metrics.ObserveEndpointLatency(r.URL.Path, time.Since(begin).Seconds())
		}
		if p.recorder != nil {
			p.recorder.Record(r, audit.ActionRequestServed, audit.SeverityInfo, "", "", map[string]string{
				"status":      strconv.Itoa(sw.status),
				"duration_ms": strconv.FormatInt(time.Since(begin).Milliseconds(), 10),
			})
			if sw.status >= http.StatusBadRequest {
				p.recorder.Record(r, audit.ActionRequestFailed, audit.SeverityWarning, "", "", map[string]string{
					"status": http.StatusText(sw.status),
				})
			}
		}
	})
}

func (p *Pipeline) allowAddress(w http.ResponseWriter, r *http.Request, clientIP string) bool {
	addr, err := netip.ParseAddr(clientIP)
	if err != nil {
		// An unparseable source address never matches the blocklist.
		return true
	}
	entry, err := p.blocklist.Match(r.Context(), addr)
	if err != nil {
		p.logger.Error("blocklist lookup failed", "error", err)
		return true
	}
	if entry == nil {
		return true
	}
	p.reject(w, r, ViolationBlockedIP, audit.SeverityCritical,
		dErrors.New(dErrors.CodeForbidden, "request blocked"))
	return false
}

func (p *Pipeline) allowRate(w http.ResponseWriter, r *http.Request, clientIP string) bool {
	key := ratelimit.Key{Scope: "request", Client: clientIP + ":" + r.URL.Path}
	result, err := p.limiter.Allow(r.Context(), key)
	if err != nil {
		p.logger.Error("rate limit check failed", "error", err)
		return true
	}
	if result.Allowed {
		return true
	}
	if p.metrics != nil {
		p.metrics.IncrementRateLimitHits("request")
	}
	if p.recorder != nil {
		p.recorder.Record(r, audit.ActionRateLimited, audit.SeverityWarning, "", "", map[string]string{
			"scope": "request",
		})
	}
	shared.WriteError(w, dErrors.NewRetryable(dErrors.CodeRateLimited, "too many requests", result.RetryAfter))
	return false
}

// sanitizeAndInspect strips markup from query and JSON body strings,
// then rejects the request outright when injection signatures remain.
func (p *Pipeline) sanitizeAndInspect(w http.ResponseWriter, r *http.Request) bool {
	var values []string

	query := r.URL.Query()
	changed := false
	for key, vals := range query {
		for i, v := range vals {
			clean := StripMarkup(v)
			if clean != v {
				vals[i] = clean
				changed = true
			}
			values = append(values, clean)
		}
		query[key] = vals
	}
	if changed {
		r.URL.RawQuery = query.Encode()
	}

	if hasJSONBody(r) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxJSONBody+1))
		if err != nil {
			shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "could not read request body"))
			return false
		}
		if len(body) > maxJSONBody {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "request body too large"))
			return false
		}
		if len(bytes.TrimSpace(body)) > 0 {
			var doc any
			if err := json.Unmarshal(body, &doc); err == nil {
				doc = sanitizeJSON(doc)
				values = collectJSONStrings(doc, values)
				if reencoded, err := json.Marshal(doc); err == nil {
					body = reencoded
				}
			}
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		r.ContentLength = int64(len(body))
	}

	if kind := InspectAll(values); kind != "" {
		p.reject(w, r, kind, audit.SeverityCritical,
			dErrors.New(dErrors.CodeSecurityViolation, "request rejected"))
		return false
	}
	return true
}

func (p *Pipeline) exemptFromCSRF(path string) bool {
	for _, prefix := range p.csrfExempt {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func (p *Pipeline) reject(w http.ResponseWriter, r *http.Request, kind string, severity audit.Severity, err error) {
	if p.metrics != nil {
		p.metrics.IncrementSecurityViolations(kind)
	}
	if p.recorder != nil {
		p.recorder.Record(r, audit.ActionSecurityBlocked, severity, "", "", map[string]string{
			"kind": kind,
		})
	}
	p.logger.Warn("request blocked",
		"kind", kind,
		"method", r.Method,
		"path", r.URL.Path,
		"ip", audit.ClientIP(r),
	)
	shared.WriteError(w, err)
}

func setHardeningHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("X-Frame-Options", "DENY")
	h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
	h.Set("Content-Security-Policy", "default-src 'self'; frame-ancestors 'none'")
	h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
	h.Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
}

func hasJSONBody(r *http.Request) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return false
	}
	return strings.Contains(r.Header.Get("Content-Type"), "application/json")
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
