package handler

import (
	"net/http"

	"github.com/solace-api/internal/pkg/csrf"
)

// SecurityHandler issues CSRF tickets.
type SecurityHandler struct {
	guard *csrf.Guard
}

func NewSecurityHandler(guard *csrf.Guard) *SecurityHandler {
	return &SecurityHandler{guard: guard}
}

// CsrfToken mints a double-submit pair: the signed cookie plus the raw
// secret in the body. Clients echo the secret in X-CSRF-Token on every
// subsequent mutating request.
func (h *SecurityHandler) CsrfToken(w http.ResponseWriter, _ *http.Request) {
	secret, cookie, err := h.guard.Issue()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	http.SetCookie(w, cookie)
	writeJSON(w, http.StatusOK, CsrfEnvelope{CsrfToken: secret})
}
