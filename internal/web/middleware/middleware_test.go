package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func echoRemoteAddr() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(r.RemoteAddr))
	})
}

func TestTrustedRealIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "trusted proxy with X-Real-IP",
			remoteAddr: "10.0.0.5:1234",
			headers:    map[string]string{"X-Real-IP": "203.0.113.7"},
			want:       "203.0.113.7",
		},
		{
			name:       "trusted proxy with X-Forwarded-For chain",
			remoteAddr: "10.0.0.5:1234",
			headers:    map[string]string{"X-Forwarded-For": "198.51.100.1, 10.0.0.2"},
			want:       "198.51.100.1",
		},
		{
			name:       "bare IP entry is trusted",
			remoteAddr: "192.168.1.10:80",
			headers:    map[string]string{"X-Real-IP": "203.0.113.8"},
			want:       "203.0.113.8",
		},
		{
			name:       "untrusted peer cannot spoof",
			remoteAddr: "203.0.113.99:5555",
			headers:    map[string]string{"X-Real-IP": "1.2.3.4"},
			want:       "203.0.113.99:5555",
		},
		{
			name:       "invalid header keeps remote addr",
			remoteAddr: "10.0.0.5:1234",
			headers:    map[string]string{"X-Real-IP": "not-an-ip"},
			want:       "10.0.0.5:1234",
		},
	}

	handler := TrustedRealIP([]string{"10.0.0.0/8", "192.168.1.10", "garbage"})(echoRemoteAddr())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if got := rec.Body.String(); got != tt.want {
				t.Errorf("RemoteAddr = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCORS(t *testing.T) {
	const origin = "https://app.example.com"
	handler := CORS(origin + "/")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/extract-data", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Headers", "content-type")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != origin {
			t.Errorf("Allow-Origin = %q, want %q", got, origin)
		}
		if got := rec.Header().Get("Access-Control-Allow-Headers"); got != "content-type" {
			t.Errorf("Allow-Headers = %q, want content-type", got)
		}
		if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
			t.Errorf("Allow-Credentials = %q, want true", got)
		}
	})

	t.Run("other origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/extract-data", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("Allow-Origin = %q, want empty", got)
		}
		if rec.Code != http.StatusNoContent {
			t.Errorf("status = %d, want 204", rec.Code)
		}
	})

	t.Run("wildcard without credentials", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rec := httptest.NewRecorder()
		CORS("*")(echoRemoteAddr()).ServeHTTP(rec, req)

		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Errorf("Allow-Origin = %q, want *", got)
		}
		if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "" {
			t.Errorf("Allow-Credentials = %q, want empty", got)
		}
	})

	t.Run("disabled", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", origin)
		rec := httptest.NewRecorder()
		CORS("")(echoRemoteAddr()).ServeHTTP(rec, req)

		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("Allow-Origin = %q, want empty", got)
		}
	})
}

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(2)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	if !rl.Allow("1.1.1.1") || !rl.Allow("1.1.1.1") {
		t.Fatal("first two requests should be allowed")
	}
	if rl.Allow("1.1.1.1") {
		t.Error("third request within the minute should be rejected")
	}
	if !rl.Allow("2.2.2.2") {
		t.Error("other IPs have their own bucket")
	}

	now = now.Add(30 * time.Second)
	if !rl.Allow("1.1.1.1") {
		t.Error("a token should refill after 30s at 2/min")
	}
}

func TestRateLimiter_SweepsIdleVisitors(t *testing.T) {
	rl := NewRateLimiter(10)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.Allow("1.1.1.1")
	now = now.Add(2 * visitorTTL)
	rl.Allow("2.2.2.2")

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if _, ok := rl.visitors["1.1.1.1"]; ok {
		t.Error("idle visitor was not swept")
	}
	if len(rl.visitors) != 1 {
		t.Errorf("visitors = %d, want 1", len(rl.visitors))
	}
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl := NewRateLimiter(1)
	handler := rl.Middleware(echoRemoteAddr())

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/extract-data", nil)
		req.RemoteAddr = "203.0.113.1:4000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	if rec := send(); rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", rec.Code)
	}
	rec := send()
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
}

func TestLogger_CapturesStatus(t *testing.T) {
	handler := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/pot", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want 418", rec.Code)
	}
	if rec.Body.String() != "short and stout" {
		t.Errorf("body = %q", rec.Body.String())
	}
}
