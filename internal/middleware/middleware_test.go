package middleware

import (
	"bytes"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"geodirectory-sync/pkg/jwt"
)

const testSecret = "test-secret"

func okHandler(t *testing.T, wantClient string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := GetClientID(r); got != wantClient {
			t.Errorf("expected client %q, got %q", wantClient, got)
		}
		w.WriteHeader(http.StatusTeapot)
	})
}

func TestAuthMiddleware(t *testing.T) {
	token, err := jwt.GenerateToken("mapper", time.Hour, testSecret)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"valid token", "Bearer " + token, http.StatusTeapot},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "JWT " + token, http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/places", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			AuthMiddleware(testSecret)(okHandler(t, "mapper")).ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, rec.Code)
			}
		})
	}
}

func TestLoggerMiddleware_LogsClient(t *testing.T) {
	token, _ := jwt.GenerateToken("mapper", time.Hour, testSecret)

	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)
	h := LoggerMiddleware(logger)(AuthMiddleware(testSecret)(okHandler(t, "mapper")))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/places", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	h.ServeHTTP(httptest.NewRecorder(), req)

	line := buf.String()
	if !strings.Contains(line, "Status: 418") || !strings.Contains(line, "Client: mapper") {
		t.Errorf("unexpected log line %q", line)
	}
}

func TestCORSMiddleware(t *testing.T) {
	h := CORSMiddleware("https://a.example, https://b.example", "GET,POST", "Authorization")(okHandler(t, ""))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/places", nil)
	req.Header.Set("Origin", "https://b.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected preflight status 204, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://b.example" {
		t.Errorf("unexpected allowed origin %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/places", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("expected no allowed origin, got %q", got)
	}
}
