package fsapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html"
)

var ErrNoCSRFToken = errors.New("csrf-token meta tag not found")

type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) {
	return string(t), nil
}

// MetaTagToken reads the token from the csrf-token meta tag of an HTML page and keeps
// the first one it finds, even when its content is empty.
type MetaTagToken struct {
	http *resty.Client
	page string

	mu      sync.Mutex
	fetched bool
	token   string
}

func (m *MetaTagToken) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fetched {
		return m.token, nil
	}

	resp, err := m.http.R().
		SetContext(ctx).
		SetHeader("Accept", "text/html").
		Get(m.page)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", m.page, err)
	}
	if !resp.IsSuccess() {
		return "", fmt.Errorf("fetch %s: status %d", m.page, resp.StatusCode())
	}

	token, err := ExtractCSRFToken(bytes.NewReader(resp.Body()))
	if err != nil {
		return "", err
	}
	m.token = token
	m.fetched = true
	return token, nil
}

// ExtractCSRFToken returns the content of <meta name="csrf-token">.
func ExtractCSRFToken(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	if token, ok := findMetaContent(doc, "csrf-token"); ok {
		return token, nil
	}
	return "", ErrNoCSRFToken
}

func findMetaContent(n *html.Node, name string) (string, bool) {
	if n.Type == html.ElementNode && n.Data == "meta" && strings.EqualFold(getAttr(n, "name"), name) {
		return getAttr(n, "content"), true
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if v, ok := findMetaContent(c, name); ok {
			return v, true
		}
	}
	return "", false
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
