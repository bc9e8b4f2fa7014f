package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name    string
		header  string
		preset  string
		wantAcc string
	}{
		{name: "header", header: "p1", wantAcc: "p1"},
		{name: "trimmed", header: "  p2 ", wantAcc: "p2"},
		{name: "anonymous", wantAcc: ""},
		{name: "upstream wins", header: "p3", preset: "gw", wantAcc: "gw"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			if tc.preset != "" {
				r.Use(func(c *gin.Context) { c.Set(AccountIDKey, tc.preset); c.Next() })
			}
			r.Use(Identity())
			var got string
			r.GET("/", func(c *gin.Context) {
				got = AccountIDFrom(c)
				c.Status(http.StatusNoContent)
			})
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set(HeaderAccountID, tc.header)
			}
			r.ServeHTTP(httptest.NewRecorder(), req)
			if got != tc.wantAcc {
				t.Fatalf("account = %q; want %q", got, tc.wantAcc)
			}
		})
	}
}

func TestTestHeaderGuard(t *testing.T) {
	gin.SetMode(gin.TestMode)

	run := func(enabled bool, hdr string) *httptest.ResponseRecorder {
		r := gin.New()
		r.Use(TestHeaderGuard(enabled))
		r.POST("/", func(c *gin.Context) { c.Status(http.StatusOK) })
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		if hdr != "" {
			req.Header.Set(hdr, "1")
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	for _, h := range []string{HeaderTestForceResult, HeaderTestForceDelta, HeaderTestIgnoreCooldowns, "x-test-anything"} {
		w := run(false, h)
		if w.Code != http.StatusBadRequest || decodeCode(t, w) != "TEST_HEADERS_FORBIDDEN" {
			t.Fatalf("%s outside test mode: %d %s", h, w.Code, w.Body.String())
		}
		if w := run(true, h); w.Code != http.StatusOK {
			t.Fatalf("%s in test mode: %d", h, w.Code)
		}
	}
	if w := run(false, "X-Tester"); w.Code != http.StatusOK {
		t.Fatalf("unrelated header rejected: %d", w.Code)
	}
}
