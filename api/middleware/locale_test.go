package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLocaleNegotiation(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		accept string
		want   string
	}{
		{"explicit wins", "/api/v1/forms?locale=it", "en-GB", "it"},
		{"accept language", "/api/v1/forms", "it-IT,it;q=0.9,en;q=0.5", "it"},
		{"unsupported falls back", "/api/v1/forms", "de-DE", "en"},
		{"nothing", "/api/v1/forms", "", "en"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := Locale("en", nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = LocaleFromContext(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			if tt.accept != "" {
				req.Header.Set("Accept-Language", tt.accept)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if got != tt.want {
				t.Fatalf("expected %s got %s", tt.want, got)
			}
			if rec.Header().Get("Content-Language") != tt.want {
				t.Fatalf("expected Content-Language %s", tt.want)
			}
		})
	}
}
