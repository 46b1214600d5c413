package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestFrom_FallsBackToDefault(t *testing.T) {
	if From(context.Background()) != slog.Default() {
		t.Fatalf("expected default logger")
	}
	l := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	if From(With(context.Background(), l)) != l {
		t.Fatalf("expected stored logger")
	}
}

func TestParseLevel(t *testing.T) {
	cases := []struct {
		env, level string
		want       slog.Level
	}{
		{"prod", "", slog.LevelInfo},
		{"local", "", slog.LevelDebug},
		{"prod", "warn", slog.LevelWarn},
		{"dev", "ERROR", slog.LevelError},
	}
	for _, tc := range cases {
		if got := parseLevel(tc.env, tc.level); got != tc.want {
			t.Fatalf("parseLevel(%q,%q)=%v want %v", tc.env, tc.level, got, tc.want)
		}
	}
}

func TestMiddleware_RequestIDAndContextLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "prod", "info")

	r := gin.New()
	r.Use(Middleware(l))
	var fromCtx, fromGin *slog.Logger
	r.GET("/ping", func(c *gin.Context) {
		fromCtx = From(c.Request.Context())
		fromGin = FromGin(c)
		c.Set("user_id", "u1")
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	rid := w.Header().Get(HeaderRequestID)
	if len(rid) != 26 {
		t.Fatalf("expected generated ULID request id, got %q", rid)
	}
	if fromCtx == nil || fromCtx != fromGin {
		t.Fatalf("request logger must be shared between gin and request context")
	}

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line: %v (%s)", err, buf.String())
	}
	if line["request_id"] != rid || line["user_id"] != "u1" || line["path"] != "/ping" {
		t.Fatalf("unexpected log line: %v", line)
	}
}

func TestMiddleware_KeepsIncomingRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware(NewWithWriter(&bytes.Buffer{}, "prod", "")))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get(HeaderRequestID); got != "abc-123" {
		t.Fatalf("expected incoming request id, got %q", got)
	}
}

func TestNewRequestID_IsMonotonic(t *testing.T) {
	a, b := NewRequestID(), NewRequestID()
	if a >= b {
		t.Fatalf("expected increasing ids, got %s then %s", a, b)
	}
}
