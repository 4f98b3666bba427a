package audit

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mssola/useragent"

	"masthead/internal/platform/middleware"
)

// Recorder assembles records from request context and appends them to the
// store. Append failures are logged, never propagated: a broken audit sink
// must not fail the request that triggered it.
type Recorder struct {
	store  Store
	logger *slog.Logger
}

func NewRecorder(store Store, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{store: store, logger: logger}
}

// Record appends an audit record built from the request.
func (rec *Recorder) Record(r *http.Request, action Action, severity Severity, actorID, targetID string, metadata map[string]string) {
	ctx := r.Context()

	record := Record{
		ID:        uuid.New(),
		Timestamp: time.Now(),
		Action:    action,
		Severity:  severity,
		ActorID:   actorID,
		TargetID:  targetID,
		IP:        ClientIP(r),
		UserAgent: r.UserAgent(),
		RequestID: middleware.GetRequestID(ctx),
		Path:      r.URL.Path,
		Metadata:  metadata,
	}
	record.Browser, record.OS, record.Device = parseUserAgent(r.UserAgent())

	rec.append(ctx, record)
}

// RecordEvent appends a record without request context (service-internal
// events like retention purges or worker actions).
func (rec *Recorder) RecordEvent(ctx context.Context, action Action, severity Severity, actorID, targetID string, metadata map[string]string) {
	rec.append(ctx, Record{
		ID:        uuid.New(),
		Timestamp: time.Now(),
		Action:    action,
		Severity:  severity,
		ActorID:   actorID,
		TargetID:  targetID,
		RequestID: middleware.GetRequestID(ctx),
		Metadata:  metadata,
	})
}

func (rec *Recorder) append(ctx context.Context, record Record) {
	if err := rec.store.Append(ctx, record); err != nil {
		rec.logger.ErrorContext(ctx, "audit append failed",
			"error", err,
			"action", record.Action,
			"request_id", record.RequestID,
		)
	}
}

// ClientIP extracts the originating address, honoring X-Forwarded-For from
// the reverse proxy when present.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		// first hop is the client
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func parseUserAgent(raw string) (browser, os, device string) {
	if raw == "" {
		return "", "", ""
	}
	ua := useragent.New(raw)
	name, version := ua.Browser()
	browser = name
	if version != "" {
		browser = name + " " + version
	}
	os = ua.OS()
	switch {
	case ua.Bot():
		device = "bot"
	case ua.Mobile():
		device = "mobile"
	default:
		device = "desktop"
	}
	return browser, os, device
}
