package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/meddx/meddx/internal/platform/auth"
)

// AuditEntry records who ran which diagnosis and how it ended. Clinical
// inputs and results are deliberately absent.
type AuditEntry struct {
	Username   string
	Roles      []string
	Disease    string
	Action     string
	Path       string
	Method     string
	IPAddress  string
	UserAgent  string
	StatusCode int
	RequestID  string
	Timestamp  time.Time
}

// AuditRecorder persists audit entries.
type AuditRecorder interface {
	RecordAccess(entry AuditEntry) error
}

// AuditRecorderFunc is a function adapter for AuditRecorder.
type AuditRecorderFunc func(entry AuditEntry) error

func (f AuditRecorderFunc) RecordAccess(entry AuditEntry) error {
	return f(entry)
}

// Audit logs every request under /api/v1/diseases and /api/v1/admin, and
// hands the entry to recorder when one is given. A recorder failure is
// logged and never fails the request.
func Audit(logger zerolog.Logger, recorder AuditRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			path := req.URL.Path
			if !isAuditablePath(path) {
				return next(c)
			}

			err := next(c)

			entry := AuditEntry{
				Timestamp:  time.Now().UTC(),
				Path:       path,
				Method:     req.Method,
				IPAddress:  c.RealIP(),
				UserAgent:  req.UserAgent(),
				StatusCode: c.Response().Status,
				Disease:    c.Param("disease"),
				Action:     auditAction(req.Method, path),
			}
			if he, ok := err.(*echo.HTTPError); ok {
				entry.StatusCode = he.Code
			}
			if sess := auth.SessionFromContext(c.Request().Context()); sess != nil {
				entry.Username = sess.Username
				entry.Roles = sess.Roles
			}
			if rid, ok := c.Get("request_id").(string); ok {
				entry.RequestID = rid
			}

			if recorder != nil {
				if recErr := recorder.RecordAccess(entry); recErr != nil {
					logger.Error().Err(recErr).
						Str("request_id", entry.RequestID).
						Msg("failed to record audit entry")
				}
			}

			logger.Info().
				Str("type", "audit").
				Str("request_id", entry.RequestID).
				Str("username", entry.Username).
				Strs("roles", entry.Roles).
				Str("action", entry.Action).
				Str("disease", entry.Disease).
				Str("method", entry.Method).
				Str("path", entry.Path).
				Str("remote_ip", entry.IPAddress).
				Int("status", entry.StatusCode).
				Msg("access")

			return err
		}
	}
}

func isAuditablePath(path string) bool {
	return strings.HasPrefix(path, "/api/v1/diseases") || strings.HasPrefix(path, "/api/v1/admin")
}

func auditAction(method, path string) string {
	switch {
	case method == http.MethodPost && strings.HasSuffix(path, "/diagnose"):
		return "diagnose"
	case strings.HasPrefix(path, "/api/v1/admin"):
		return "admin"
	case method == http.MethodGet || method == http.MethodHead:
		return "read"
	}
	return "write"
}
