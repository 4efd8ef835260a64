package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/phillip-england/locsetup/internal/logger"
	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestChainRunsMiddlewareInOrder(t *testing.T) {
	var order []string
	mark := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(okHandler(), mark("first"), mark("second"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"first", "second"}, order)
}

func TestSecurityHeaders(t *testing.T) {
	h := SecurityHeaders(SecurityHeadersConfig{ContentSecurityPolicy: "default-src 'self'"})(okHandler())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "default-src 'self'", rec.Header().Get("Content-Security-Policy"))
}

func TestRequireCSRF(t *testing.T) {
	h := Chain(okHandler(), RequestLogger(logger.Discard()), RequireCSRF("secret"))

	cases := []struct {
		name string
		req  func() *http.Request
		want int
	}{
		{
			name: "get passes",
			req:  func() *http.Request { return httptest.NewRequest(http.MethodGet, "/", nil) },
			want: http.StatusNoContent,
		},
		{
			name: "post without token",
			req:  func() *http.Request { return httptest.NewRequest(http.MethodPost, "/", nil) },
			want: http.StatusForbidden,
		},
		{
			name: "post with header",
			req: func() *http.Request {
				r := httptest.NewRequest(http.MethodPost, "/", nil)
				r.Header.Set(CSRFHeaderName, "secret")
				return r
			},
			want: http.StatusNoContent,
		},
		{
			name: "post with form field",
			req: func() *http.Request {
				form := url.Values{CSRFFormField: {"secret"}}
				r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
				r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
				return r
			},
			want: http.StatusNoContent,
		},
		{
			name: "post with wrong token",
			req: func() *http.Request {
				r := httptest.NewRequest(http.MethodPost, "/", nil)
				r.Header.Set(CSRFHeaderName, "guess")
				return r
			},
			want: http.StatusForbidden,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, tc.req())
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestMaxBody(t *testing.T) {
	var readErr error
	h := MaxBody(4)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("abc")))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NoError(t, readErr)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("too long")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("too long"))
	req.ContentLength = -1
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Error(t, readErr)
}

func TestRequireCSRFReportsOversizedForm(t *testing.T) {
	h := Chain(okHandler(), MaxBody(16), RequireCSRF("secret"))

	form := url.Values{CSRFFormField: {"secret"}, "padding": {strings.Repeat("x", 64)}}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.ContentLength = -1

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestRequireCSRFPrefersHeader(t *testing.T) {
	h := RequireCSRF("secret")(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("%zz"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set(CSRFHeaderName, "secret")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("%zz"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
