package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestTrustedRealIP(t *testing.T) {
	trusted := []string{"10.0.0.0/8", "192.168.1.1", "not-a-cidr"}

	tests := []struct {
		name       string
		remoteAddr string
		realIP     string
		xff        string
		want       string
	}{
		{
			name:       "untrusted peer keeps its address",
			remoteAddr: "203.0.113.5:5555",
			realIP:     "1.2.3.4",
			want:       "203.0.113.5:5555",
		},
		{
			name:       "trusted peer with X-Real-IP",
			remoteAddr: "10.1.2.3:5555",
			realIP:     "198.51.100.1",
			want:       "198.51.100.1",
		},
		{
			name:       "trusted single address",
			remoteAddr: "192.168.1.1:80",
			realIP:     "198.51.100.2",
			want:       "198.51.100.2",
		},
		{
			name:       "xff skips trusted hops from the right",
			remoteAddr: "10.0.0.1:5555",
			xff:        "1.1.1.1, 198.51.100.3, 10.0.0.9",
			want:       "198.51.100.3",
		},
		{
			name:       "xff wins over X-Real-IP",
			remoteAddr: "10.0.0.1:5555",
			realIP:     "198.51.100.4",
			xff:        "198.51.100.5",
			want:       "198.51.100.5",
		},
		{
			name:       "invalid X-Real-IP ignored",
			remoteAddr: "10.0.0.1:5555",
			realIP:     "garbage",
			want:       "10.0.0.1:5555",
		},
		{
			name:       "all xff hops trusted",
			remoteAddr: "10.0.0.1:5555",
			xff:        "10.0.0.2, 10.0.0.3",
			want:       "10.0.0.1:5555",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := TrustedRealIP(trusted)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.RemoteAddr
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			if got != tt.want {
				t.Errorf("RemoteAddr = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTrustedRealIP_NoProxiesConfigured(t *testing.T) {
	var got string
	h := TrustedRealIP(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.RemoteAddr
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	req.Header.Set("X-Real-IP", "1.2.3.4")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if got != "10.0.0.1:5555" {
		t.Errorf("RemoteAddr = %q, want unchanged", got)
	}
}

func TestClientIP(t *testing.T) {
	tests := map[string]string{
		"203.0.113.5:80":    "203.0.113.5",
		"[2001:db8::1]:443": "2001:db8::1",
		"198.51.100.1":      "198.51.100.1",
	}
	for addr, want := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		if got := ClientIP(req); got != want {
			t.Errorf("ClientIP(%q) = %q, want %q", addr, got, want)
		}
	}
}

func TestLogger_LevelFollowsStatus(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	defer slog.SetDefault(prev)

	tests := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "level=INFO"},
		{http.StatusUnprocessableEntity, "level=WARN"},
		{http.StatusInternalServerError, "level=ERROR"},
	}

	for _, tt := range tests {
		buf.Reset()
		h := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
			w.Write([]byte("body"))
		}))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/exchanges/1/import", nil))

		line := buf.String()
		if !strings.Contains(line, tt.level) {
			t.Errorf("status %d logged %q, want %s", tt.status, line, tt.level)
		}
		if !strings.Contains(line, "bytes=4") {
			t.Errorf("log line %q missing byte count", line)
		}
	}
}
