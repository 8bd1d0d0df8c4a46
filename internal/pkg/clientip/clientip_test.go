package clientip

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromRequest(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{"forwarded-for wins", "10.0.0.1:1234", map[string]string{"X-Forwarded-For": "203.0.113.9, 10.0.0.2"}, "203.0.113.9"},
		{"forwarded-for single", "10.0.0.1:1234", map[string]string{"X-Forwarded-For": "203.0.113.9"}, "203.0.113.9"},
		{"real-ip fallback", "10.0.0.1:1234", map[string]string{"X-Real-IP": "198.51.100.7"}, "198.51.100.7"},
		{"remote addr fallback", "10.0.0.1:1234", nil, "10.0.0.1"},
		{"remote addr without port", "10.0.0.1", nil, "10.0.0.1"},
		{"nothing available", "", nil, Unknown},
		{"empty forwarded-for ignored", "10.0.0.1:1234", map[string]string{"X-Forwarded-For": "  "}, "10.0.0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, FromRequest(r))
		})
	}
}
