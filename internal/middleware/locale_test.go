package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestResolveLocale(t *testing.T) {
	tests := []struct {
		name           string
		xLocale        string
		acceptLanguage string
		want           string
	}{
		{"no headers defaults to english", "", "", "en"},
		{"romanian accept-language", "", "ro-RO,ro;q=0.9,en;q=0.5", "ro"},
		{"x-locale wins over accept-language", "ro", "en-US", "ro"},
		{"unsupported language falls back", "", "de-DE", "en"},
		{"garbage header falls back", "", ";;;", "en"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.xLocale != "" {
				req.Header.Set("X-Locale", tc.xLocale)
			}
			if tc.acceptLanguage != "" {
				req.Header.Set("Accept-Language", tc.acceptLanguage)
			}
			if got := resolveLocale(req); got != tc.want {
				t.Fatalf("resolveLocale() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestLocaleMiddlewareStoresContextValue(t *testing.T) {
	var got string
	handler := Locale(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = LocaleFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "ro")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if got != "ro" {
		t.Fatalf("locale in context = %q, want %q", got, "ro")
	}
}
