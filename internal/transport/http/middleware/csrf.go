package middleware

import (
	"log/slog"
	"net/http"

	"github.com/solace-api/internal/application/audit"
	"github.com/solace-api/internal/domain"
	"github.com/solace-api/internal/pkg/csrf"
)

// Csrf enforces double-submit validation on state-changing methods. Safe
// methods pass untouched, as does everything when the guard is not enforced.
// Every failure collapses into one generic 403 — the precise reason goes to
// logs and the audit trail only.
func Csrf(guard *csrf.Guard, auditor *audit.Recorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			var cookieValue string
			if c, err := r.Cookie(csrf.CookieName); err == nil {
				cookieValue = c.Value
			}
			if err := guard.Validate(r.Header.Get(csrf.HeaderName), cookieValue); err != nil {
				slog.Warn("csrf validation failed", "path", r.URL.Path, "reason", err)
				auditor.Record(r.Context(), domain.AuditCsrfRejected, r.URL.Path, map[string]string{"reason": err.Error()})
				writeJSONError(w, http.StatusForbidden, "request could not be authorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
