package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/solace-api/internal/pkg/csrf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func csrfServe(t *testing.T, g *csrf.Guard, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	Csrf(g, nil)(http.HandlerFunc(okHandler)).ServeHTTP(rr, req)
	return rr
}

func TestCsrf_SafeMethodsPass(t *testing.T) {
	g := csrf.New("signing-secret", true)

	for _, method := range []string{http.MethodGet, http.MethodHead, http.MethodOptions} {
		req := httptest.NewRequest(method, "/", nil)
		rr := csrfServe(t, g, req)
		assert.Equal(t, http.StatusOK, rr.Code, method)
	}
}

func TestCsrf_UnenforcedPassesBareRequest(t *testing.T) {
	// No signing secret configured: a POST with neither cookie nor header
	// must go straight through.
	g := csrf.New("", true)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rr := csrfServe(t, g, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestCsrf_NonProductionPassesBareRequest(t *testing.T) {
	g := csrf.New("signing-secret", false)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rr := csrfServe(t, g, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestCsrf_MissingHeaderRejected(t *testing.T) {
	g := csrf.New("signing-secret", true)
	_, cookie, err := g.Issue()
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.AddCookie(cookie)
	rr := csrfServe(t, g, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestCsrf_MismatchedTicketRejected(t *testing.T) {
	g := csrf.New("signing-secret", true)
	_, cookie, err := g.Issue()
	require.NoError(t, err)
	otherSecret, _, err := g.Issue()
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.AddCookie(cookie)
	req.Header.Set(csrf.HeaderName, otherSecret)
	rr := csrfServe(t, g, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Contains(t, rr.Body.String(), "request could not be authorized")
}

func TestCsrf_ValidTicketPasses(t *testing.T) {
	g := csrf.New("signing-secret", true)
	secret, cookie, err := g.Issue()
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.AddCookie(cookie)
	req.Header.Set(csrf.HeaderName, secret)
	rr := csrfServe(t, g, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}
