package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func requestIDFor(t *testing.T, inbound string) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestID())
	var seen string
	router.GET("/ping", func(c *gin.Context) {
		seen = RequestIDFromContext(c)
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	if inbound != "" {
		req.Header.Set("X-Request-Id", inbound)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if got := resp.Header().Get("X-Request-Id"); got != seen {
		t.Fatalf("header %q does not match context %q", got, seen)
	}
	return seen
}

func TestRequestIDPropagatesInbound(t *testing.T) {
	if got := requestIDFor(t, "req-42"); got != "req-42" {
		t.Fatalf("expected inbound id, got %q", got)
	}
}

func TestRequestIDGeneratesWhenMissingOrInvalid(t *testing.T) {
	for _, inbound := range []string{"", "has space", strings.Repeat("x", 200)} {
		got := requestIDFor(t, inbound)
		if _, err := uuid.Parse(got); err != nil {
			t.Fatalf("inbound %q: expected generated uuid, got %q", inbound, got)
		}
	}
}
