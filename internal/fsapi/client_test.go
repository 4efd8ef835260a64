package fsapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/phillip-england/locsetup/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	Method      string
	Path        string
	Query       string
	ContentType string
	Accept      string
	CSRF        string
	Body        string
}

type backend struct {
	mu       sync.Mutex
	requests []recorded
	server   *httptest.Server
}

func newBackend(t *testing.T, handler http.HandlerFunc) *backend {
	t.Helper()
	b := &backend{}
	b.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		b.mu.Lock()
		b.requests = append(b.requests, recorded{
			Method:      r.Method,
			Path:        r.URL.Path,
			Query:       r.URL.RawQuery,
			ContentType: r.Header.Get("Content-Type"),
			Accept:      r.Header.Get("Accept"),
			CSRF:        r.Header.Get(CSRFHeaderName),
			Body:        string(body),
		})
		b.mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(b.server.Close)
	return b
}

func (b *backend) last(t *testing.T) recorded {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	require.NotEmpty(t, b.requests)
	return b.requests[len(b.requests)-1]
}

func (b *backend) client(token TokenSource) *Client {
	return New(Options{BaseURL: b.server.URL, Token: token, Logger: logger.Discard()})
}

func jsonHandler(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = io.WriteString(w, body)
	}
}

func TestDoSendsDefaultHeadersAndToken(t *testing.T) {
	b := newBackend(t, jsonHandler(`{"ok":true}`))
	c := b.client(StaticToken("tok-1"))

	resp, err := c.Do(context.Background(), Request{Path: "/fs/composer/permissions", Query: url.Values{"page": {"2"}}})
	require.NoError(t, err)

	req := b.last(t)
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "page=2", req.Query)
	assert.Equal(t, "application/json", req.Accept)
	assert.Equal(t, "tok-1", req.CSRF)

	assert.Equal(t, KindJSON, resp.Kind)
	assert.True(t, resp.OK)
	assert.JSONEq(t, `{"ok":true}`, string(resp.JSON))
}

func TestDoClassifiesResponses(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
		kind    Kind
	}{
		{
			name: "html",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				_, _ = io.WriteString(w, "<p>hi</p>")
			},
			kind: KindHTML,
		},
		{name: "json", handler: jsonHandler(`[1,2]`), kind: KindJSON},
		{
			name: "no body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			},
			kind: KindOK,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := newBackend(t, tc.handler)
			resp, err := b.client(nil).Do(context.Background(), Request{Path: "/x"})
			require.NoError(t, err)
			assert.Equal(t, tc.kind, resp.Kind)
			assert.True(t, resp.OK)
			if tc.kind == KindHTML {
				assert.Equal(t, "<p>hi</p>", resp.Text)
			}
		})
	}
}

func TestDoReturnsStatusError(t *testing.T) {
	b := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	})

	resp, err := b.client(nil).Do(context.Background(), Request{Path: "/fs/form-manager/permissions"})
	require.Error(t, err)
	assert.Nil(t, resp)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusForbidden, statusErr.Status)
	assert.Equal(t, "Forbidden", statusErr.StatusText)
	assert.Contains(t, statusErr.URL, "/fs/form-manager/permissions")
	assert.Contains(t, err.Error(), "(403):[")
}

func TestDoRejectsInvalidJSON(t *testing.T) {
	b := newBackend(t, jsonHandler(`{broken`))
	_, err := b.client(nil).Do(context.Background(), Request{Path: "/x"})
	assert.Error(t, err)
}

func TestDoTransportError(t *testing.T) {
	b := newBackend(t, jsonHandler(`{}`))
	c := b.client(nil)
	b.server.Close()

	_, err := c.Do(context.Background(), Request{Path: "/x"})
	assert.Error(t, err)
}

func TestCreatePageDerivesSlug(t *testing.T) {
	b := newBackend(t, jsonHandler(`{"id":12}`))
	c := b.client(StaticToken("t"))

	resp, err := c.CreatePage(context.Background(), 7, "Ashwood High School", "")
	require.NoError(t, err)

	req := b.last(t)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/fs/pages/drafts", req.Path)
	assert.JSONEq(t, `{"parent_id":7,"name":"Ashwood High School","slug":"ashwood-high-school"}`, req.Body)

	var created struct {
		ID int `json:"id"`
	}
	require.NoError(t, resp.Decode(&created))
	assert.Equal(t, 12, created.ID)
}

func TestPublishPageSendsFormBody(t *testing.T) {
	b := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	resp, err := b.client(nil).PublishPage(context.Background(), 31, url.Values{"notify": {"1"}})
	require.NoError(t, err)
	assert.Equal(t, KindOK, resp.Kind)

	req := b.last(t)
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "/fs/pages/drafts/31/publish", req.Path)
	assert.Equal(t, "application/x-www-form-urlencoded", req.ContentType)
	assert.Equal(t, "notify=1", req.Body)
}

func TestGetPageDraftHTMLAndElements(t *testing.T) {
	page := `<div class="fsElement fsContent" id="fsEl_101" data-settings-id="202"></div>
<div class="fsElement" id="fsEl_103" data-settings-id="204"></div>`
	b := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, page)
	})
	c := b.client(nil)

	elements, err := c.PageElements(context.Background(), 55)
	require.NoError(t, err)

	req := b.last(t)
	assert.Equal(t, "/fs/pages/drafts/55", req.Path)
	assert.Equal(t, "text/html", req.Accept)
	assert.Equal(t, []PageElement{{ID: "101", SettingsID: "202"}, {ID: "103", SettingsID: "204"}}, elements)
}

func TestGetPageDraftHTMLRejectsJSON(t *testing.T) {
	b := newBackend(t, jsonHandler(`{}`))
	_, err := b.client(nil).GetPageDraftHTML(context.Background(), 1)
	assert.Error(t, err)
}

func TestPageElementsFromHTML(t *testing.T) {
	assert.Empty(t, PageElementsFromHTML("<div>nothing here</div>"))
	got := PageElementsFromHTML(`<DIV class="FSELEMENT" ID="FSEL_9" DATA-SETTINGS-ID="10">`)
	assert.Equal(t, []PageElement{{ID: "9", SettingsID: "10"}}, got)

	// . stops at a newline, so an element split across lines is skipped.
	got = PageElementsFromHTML("<div class=\"fsElement\"\n id=\"fsEl_9\" data-settings-id=\"10\">")
	assert.Empty(t, got)
}

func TestListFoldersAndDelete(t *testing.T) {
	b := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodDelete {
			_, _ = io.WriteString(w, `{"ok":true}`)
			return
		}
		_, _ = io.WriteString(w, `{"data":[{"id":4,"name":"News","description":null,"location_id":9,"board_ids":[1,2],"rights":{"admin":true,"read":true}}]}`)
	})
	c := b.client(nil)

	list, err := c.ListFolders(context.Background())
	require.NoError(t, err)
	require.Len(t, list.Data, 1)
	assert.Equal(t, "News", list.Data[0].Name)
	assert.Nil(t, list.Data[0].Description)
	assert.True(t, list.Data[0].Rights.Admin)
	assert.Equal(t, "/fs/post-manager/folders", b.last(t).Path)

	resp, err := c.DeleteFolder(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, KindJSON, resp.Kind)
	req := b.last(t)
	assert.Equal(t, http.MethodDelete, req.Method)
	assert.Equal(t, "/fs/post-manager/folders/4", req.Path)
}

func TestCheckAllPermissionsRunsInOrder(t *testing.T) {
	b := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/fs/crisis-manager/permissions" {
			http.Error(w, "missing", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]bool{"read": true})
	})

	results := b.client(StaticToken("x")).CheckAllPermissions(context.Background())
	require.Len(t, results, len(Modules))

	b.mu.Lock()
	paths := make([]string, len(b.requests))
	for i, r := range b.requests {
		paths[i] = r.Path
	}
	b.mu.Unlock()
	want := make([]string, len(Modules))
	for i, m := range Modules {
		want[i] = m.Path()
	}
	assert.Equal(t, want, paths)
	assert.Equal(t, "/fs/page-pops-permissions", ModulePagePops.Path())

	for _, r := range results {
		if r.Module == ModuleCrisis {
			assert.Error(t, r.Err)
			continue
		}
		require.NoError(t, r.Err, r.Module)
		assert.Equal(t, KindJSON, r.Response.Kind)
	}
}

func TestCheckAllPermissionsHonoursCancelledContext(t *testing.T) {
	b := newBackend(t, jsonHandler(`{}`))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := b.client(nil).CheckAllPermissions(ctx)
	require.Len(t, results, len(Modules))
	for _, r := range results {
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
	b.mu.Lock()
	assert.Empty(t, b.requests)
	b.mu.Unlock()
}

func TestParseModule(t *testing.T) {
	m, err := ParseModule(" Page-Pops ")
	require.NoError(t, err)
	assert.Equal(t, ModulePagePops, m)
	_, err = ParseModule("billing")
	assert.Error(t, err)
}

func TestExtractCSRFToken(t *testing.T) {
	token, err := ExtractCSRFToken(strings.NewReader(`<html><head><meta name="csrf-token" content="abc"></head></html>`))
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	_, err = ExtractCSRFToken(strings.NewReader(`<html><head></head></html>`))
	assert.ErrorIs(t, err, ErrNoCSRFToken)
}

func TestMetaTagTokenFetchesOnce(t *testing.T) {
	var pageHits int
	var mu sync.Mutex
	b := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/admin" {
			mu.Lock()
			pageHits++
			mu.Unlock()
			w.Header().Set("Content-Type", "text/html")
			_, _ = io.WriteString(w, `<meta name="csrf-token" content="from-page">`)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	c := New(Options{BaseURL: b.server.URL, CSRFPage: "/admin", Logger: logger.Discard()})

	for i := 0; i < 2; i++ {
		_, err := c.Do(context.Background(), Request{Path: "/fs/composer/permissions"})
		require.NoError(t, err)
		assert.Equal(t, "from-page", b.last(t).CSRF)
	}
	assert.Equal(t, 1, pageHits)
}

func TestMissingTokenSendsEmptyHeader(t *testing.T) {
	b := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/admin" {
			w.Header().Set("Content-Type", "text/html")
			_, _ = io.WriteString(w, `<html></html>`)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	c := New(Options{BaseURL: b.server.URL, CSRFPage: "/admin", Logger: logger.Discard()})

	_, err := c.Do(context.Background(), Request{Path: "/fs/composer/permissions"})
	require.NoError(t, err)
	assert.Equal(t, "", b.last(t).CSRF)
}

func TestMetaTagTokenCachesEmptyContent(t *testing.T) {
	var pageHits int
	var mu sync.Mutex
	b := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/admin" {
			mu.Lock()
			pageHits++
			mu.Unlock()
			w.Header().Set("Content-Type", "text/html")
			_, _ = io.WriteString(w, `<meta name="csrf-token" content="">`)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	c := New(Options{BaseURL: b.server.URL, CSRFPage: "/admin", Logger: logger.Discard()})

	for i := 0; i < 3; i++ {
		_, err := c.Do(context.Background(), Request{Path: "/fs/composer/permissions"})
		require.NoError(t, err)
		assert.Equal(t, "", b.last(t).CSRF)
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, pageHits)
}
