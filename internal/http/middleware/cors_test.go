package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCORS(t *testing.T) {
	tests := []struct {
		name        string
		allowed     []string
		method      string
		origin      string
		preflight   bool
		wantOrigin  string
		wantHandled bool
	}{
		{"listed origin", []string{"https://clinic.example/"}, http.MethodPost, "https://clinic.example", false, "https://clinic.example", true},
		{"unknown origin", []string{"https://clinic.example"}, http.MethodGet, "https://evil.example", false, "", true},
		{"wildcard", []string{" * "}, http.MethodGet, "https://any.example", false, "*", true},
		{"no origin header", []string{"*"}, http.MethodGet, "", false, "", true},
		{"preflight", []string{"https://clinic.example"}, http.MethodOptions, "https://clinic.example", true, "https://clinic.example", false},
		{"preflight from unknown origin", []string{"https://clinic.example"}, http.MethodOptions, "https://evil.example", true, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handled := false
			handler := CORS(tt.allowed)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handled = true
				w.WriteHeader(http.StatusOK)
			}))
			req := httptest.NewRequest(tt.method, "/chat/sessions", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Less(t, rec.Code, 300)
			assert.Equal(t, tt.wantHandled, handled, "preflights stop at the CORS layer")
			assert.Equal(t, tt.wantOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
			if tt.preflight && tt.wantOrigin != "" {
				assert.Equal(t, http.MethodPost, rec.Header().Get("Access-Control-Allow-Methods"))
				assert.Equal(t, "600", rec.Header().Get("Access-Control-Max-Age"))
			}
		})
	}
}
