// Package fsapi talks to the site backend: permission checks, page drafts and post folders.
//
// Every request carries the X-CSRF-TOKEN header. Failures come back as errors; a
// *StatusError means the backend answered with a non-2xx status.
package fsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/phillip-england/locsetup/internal/logger"
)

const CSRFHeaderName = "X-CSRF-TOKEN"

type Kind int

const (
	// KindOK is a success whose body was neither HTML nor JSON.
	KindOK Kind = iota
	KindHTML
	KindJSON
)

func (k Kind) String() string {
	switch k {
	case KindHTML:
		return "html"
	case KindJSON:
		return "json"
	default:
		return "ok"
	}
}

type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Body    []byte
	Headers map[string]string
}

type Response struct {
	StatusCode  int
	ContentType string
	Kind        Kind
	// Text is the body of an HTML response.
	Text string
	// JSON is the body of a JSON response.
	JSON json.RawMessage
	OK   bool
}

// Decode unmarshals a JSON response into v.
func (r *Response) Decode(v any) error {
	if r.Kind != KindJSON {
		return fmt.Errorf("response is %s, not json", r.Kind)
	}
	return json.Unmarshal(r.JSON, v)
}

type StatusError struct {
	Status     int
	StatusText string
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("(%d):[%s]:%s", e.Status, e.URL, e.StatusText)
}

type Options struct {
	BaseURL string
	Timeout time.Duration
	// Token supplies the CSRF token. When nil and CSRFPage is set, the token is read
	// from that page's csrf-token meta tag.
	Token      TokenSource
	CSRFPage   string
	Logger     logger.Logger
	HTTPClient *http.Client
}

type Client struct {
	http   *resty.Client
	tokens TokenSource
	log    logger.Logger
}

func New(opts Options) *Client {
	log := opts.Logger
	if log == nil {
		log = logger.Default()
	}

	var rc *resty.Client
	if opts.HTTPClient != nil {
		rc = resty.NewWithClient(opts.HTTPClient)
	} else {
		rc = resty.New()
	}
	rc.SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetLogger(restyLogger{log: log})
	if opts.Timeout > 0 {
		rc.SetTimeout(opts.Timeout)
	}

	tokens := opts.Token
	if tokens == nil {
		if opts.CSRFPage != "" {
			tokens = &MetaTagToken{http: rc, page: opts.CSRFPage}
		} else {
			tokens = StaticToken("")
		}
	}

	return &Client{http: rc, tokens: tokens, log: log}
}

// Do performs one request. Per-request headers override the JSON defaults.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		c.log.Warn("csrf token unavailable", "error", err)
		token = ""
	}

	r := c.http.R().
		SetContext(ctx).
		SetHeader(CSRFHeaderName, token).
		SetHeaders(req.Headers)
	if len(req.Query) > 0 {
		r.SetQueryParamsFromValues(req.Query)
	}
	if len(req.Body) > 0 {
		r.SetBody(req.Body)
	}

	resp, err := r.Execute(method, req.Path)
	if err != nil {
		err = fmt.Errorf("%s %s: %w", method, req.Path, err)
		c.log.Error("request failed", "method", method, "path", req.Path, "error", err)
		return nil, err
	}

	if !resp.IsSuccess() {
		statusErr := &StatusError{
			Status:     resp.StatusCode(),
			StatusText: http.StatusText(resp.StatusCode()),
			URL:        resp.Request.URL,
		}
		c.log.Error("request failed", "method", method, "path", req.Path, "error", statusErr)
		return nil, statusErr
	}

	out := &Response{
		StatusCode:  resp.StatusCode(),
		ContentType: resp.Header().Get("Content-Type"),
		OK:          true,
	}
	switch {
	case strings.Contains(out.ContentType, "html"):
		out.Kind = KindHTML
		out.Text = resp.String()
	case strings.Contains(out.ContentType, "json"):
		if !json.Valid(resp.Body()) {
			err := fmt.Errorf("%s %s: invalid json body", method, req.Path)
			c.log.Error("request failed", "method", method, "path", req.Path, "error", err)
			return nil, err
		}
		out.Kind = KindJSON
		out.JSON = append(json.RawMessage(nil), resp.Body()...)
	default:
		out.Kind = KindOK
	}

	c.log.Debug("request done", "method", method, "path", req.Path, "status", out.StatusCode, "kind", out.Kind)
	return out, nil
}

type restyLogger struct {
	log logger.Logger
}

func (l restyLogger) Errorf(format string, v ...any) { l.log.Error(fmt.Sprintf(format, v...)) }
func (l restyLogger) Warnf(format string, v ...any)  { l.log.Warn(fmt.Sprintf(format, v...)) }
func (l restyLogger) Debugf(format string, v ...any) { l.log.Debug(fmt.Sprintf(format, v...)) }
