package fsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"

	"github.com/gosimple/slug"
)

const foldersPath = "/fs/post-manager/folders"

type APIMessage struct {
	Message string `json:"message"`
}

type FolderRights struct {
	Admin bool `json:"admin"`
	Read  bool `json:"read"`
}

type Folder struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Description *string      `json:"description"`
	CreatedAt   string       `json:"created_at"`
	UpdatedAt   string       `json:"updated_at"`
	LocationID  int64        `json:"location_id"`
	BoardIDs    []int64      `json:"board_ids"`
	Rights      FolderRights `json:"rights"`
}

type FolderList struct {
	Data   []Folder     `json:"data"`
	Errors []APIMessage `json:"errors"`
}

type createPageRequest struct {
	ParentID int64  `json:"parent_id"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
}

// CreatePage creates a page draft under parentID. An empty pageSlug is derived from name.
func (c *Client) CreatePage(ctx context.Context, parentID int64, name, pageSlug string) (*Response, error) {
	if pageSlug == "" {
		pageSlug = slug.Make(name)
	}
	body, err := json.Marshal(createPageRequest{ParentID: parentID, Name: name, Slug: pageSlug})
	if err != nil {
		return nil, fmt.Errorf("encode page: %w", err)
	}
	return c.Do(ctx, Request{Method: http.MethodPost, Path: "/fs/pages/drafts", Body: body})
}

func (c *Client) PublishPage(ctx context.Context, id int64, options url.Values) (*Response, error) {
	var body []byte
	if len(options) > 0 {
		body = []byte(options.Encode())
	}
	return c.Do(ctx, Request{
		Method:  http.MethodPut,
		Path:    "/fs/pages/drafts/" + strconv.FormatInt(id, 10) + "/publish",
		Body:    body,
		Headers: map[string]string{"Content-Type": "application/x-www-form-urlencoded"},
	})
}

func (c *Client) GetPageDraftHTML(ctx context.Context, id int64) (string, error) {
	resp, err := c.Do(ctx, Request{
		Path: "/fs/pages/drafts/" + strconv.FormatInt(id, 10),
		Headers: map[string]string{
			"Content-Type": "text/html; charset=utf-8",
			"Accept":       "text/html",
		},
	})
	if err != nil {
		return "", err
	}
	if resp.Kind != KindHTML {
		return "", fmt.Errorf("page draft %d: expected html, got %q", id, resp.ContentType)
	}
	return resp.Text, nil
}

type PageElement struct {
	ID         string `json:"id"`
	SettingsID string `json:"settings_id"`
}

var pageElementPattern = regexp.MustCompile(`(?i)fsElement.*?id="fsEl_(\d*).*?data-settings-id="(\d*)`)

// PageElementsFromHTML scrapes element/settings id pairs out of a page draft body.
func PageElementsFromHTML(body string) []PageElement {
	matches := pageElementPattern.FindAllStringSubmatch(body, -1)
	out := make([]PageElement, 0, len(matches))
	for _, m := range matches {
		out = append(out, PageElement{ID: m[1], SettingsID: m[2]})
	}
	return out
}

func (c *Client) PageElements(ctx context.Context, id int64) ([]PageElement, error) {
	body, err := c.GetPageDraftHTML(ctx, id)
	if err != nil {
		return nil, err
	}
	return PageElementsFromHTML(body), nil
}

func (c *Client) ListFolders(ctx context.Context) (*FolderList, error) {
	resp, err := c.Do(ctx, Request{Path: foldersPath})
	if err != nil {
		return nil, err
	}
	var out FolderList
	if err := resp.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode folders: %w", err)
	}
	return &out, nil
}

func (c *Client) DeleteFolder(ctx context.Context, id int64) (*Response, error) {
	return c.Do(ctx, Request{
		Method: http.MethodDelete,
		Path:   foldersPath + "/" + strconv.FormatInt(id, 10),
	})
}
