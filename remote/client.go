// Package remote is the HTTP client for the unionhall backend. It implements
// the reconcile layer's Remote and the controller's Auth.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"unionhall/models"
)

var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrApprovalPending = errors.New("approval pending")
)

// CodeApprovalPending is the error code the backend uses for a member that
// has not been approved yet.
const CodeApprovalPending = "approval_pending"

// PasswordHeader carries a verified legacy post password on writes to that
// post.
const PasswordHeader = "X-Post-Password"

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned %d", e.Status)
	}
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrForbidden:
		return e.Status == http.StatusForbidden
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrConflict:
		return e.Status == http.StatusConflict
	case ErrApprovalPending:
		return e.Code == CodeApprovalPending
	}
	return false
}

// Client talks JSON to the backend. It keeps the session cookie between
// calls.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client

	mu        sync.Mutex
	passwords map[string]string // post id -> verified legacy password
}

// NewClient returns a client for the backend at baseURL. token, when not
// empty, is sent as a bearer token (a Firebase ID token).
func NewClient(baseURL, token string) *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Jar:     jar,
		},
		passwords: make(map[string]string),
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	return c.send(ctx, method, path, nil, body, result)
}

// postHeader returns the password header for a post whose legacy password
// this client has verified, or nil.
func (c *Client) postHeader(id string) http.Header {
	c.mu.Lock()
	defer c.mu.Unlock()
	password, ok := c.passwords[id]
	if !ok {
		return nil
	}
	return http.Header{PasswordHeader: []string{password}}
}

func (c *Client) send(ctx context.Context, method, path string, header http.Header, body, result any) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var payload struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		if json.Unmarshal(data, &payload) == nil {
			apiErr.Message = payload.Error
			apiErr.Code = payload.Code
		}
		return apiErr
	}

	if result != nil && len(data) > 0 {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

func postPath(id string, suffix ...string) string {
	p := "/api/posts/" + url.PathEscape(id)
	for _, s := range suffix {
		p += "/" + s
	}
	return p
}

func (c *Client) FetchPosts(ctx context.Context) ([]*models.Post, error) {
	var posts []*models.Post
	if err := c.do(ctx, http.MethodGet, "/api/posts", nil, &posts); err != nil {
		return nil, fmt.Errorf("fetch posts: %w", err)
	}
	return posts, nil
}

func (c *Client) FetchPost(ctx context.Context, id string) (*models.Post, error) {
	var p models.Post
	if err := c.do(ctx, http.MethodGet, postPath(id), nil, &p); err != nil {
		return nil, fmt.Errorf("fetch post %s: %w", id, err)
	}
	return &p, nil
}

func (c *Client) UpsertPost(ctx context.Context, p *models.Post) error {
	if err := c.send(ctx, http.MethodPut, postPath(p.ID), c.postHeader(p.ID), p, nil); err != nil {
		return fmt.Errorf("upsert post %s: %w", p.ID, err)
	}
	return nil
}

func (c *Client) DeletePost(ctx context.Context, id string) error {
	if err := c.send(ctx, http.MethodDelete, postPath(id), c.postHeader(id), nil, nil); err != nil {
		return fmt.Errorf("delete post %s: %w", id, err)
	}
	return nil
}

func (c *Client) IncrementViews(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, postPath(id, "views"), nil, nil)
}

func (c *Client) CheckPostPassword(ctx context.Context, id, password string) (bool, error) {
	var result struct {
		OK bool `json:"ok"`
	}
	body := map[string]string{"password": password}
	if err := c.do(ctx, http.MethodPost, postPath(id, "password"), body, &result); err != nil {
		return false, fmt.Errorf("check password %s: %w", id, err)
	}
	if result.OK {
		c.mu.Lock()
		c.passwords[id] = password
		c.mu.Unlock()
	}
	return result.OK, nil
}

// Search runs a full-text query over posts and returns light posts.
func (c *Client) Search(ctx context.Context, query string) ([]*models.Post, error) {
	var posts []*models.Post
	if err := c.do(ctx, http.MethodGet, "/api/search?q="+url.QueryEscape(query), nil, &posts); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return posts, nil
}

func (c *Client) FetchMembers(ctx context.Context) ([]*models.Member, error) {
	var members []*models.Member
	if err := c.do(ctx, http.MethodGet, "/api/members", nil, &members); err != nil {
		return nil, fmt.Errorf("fetch members: %w", err)
	}
	return members, nil
}

func (c *Client) UpsertMember(ctx context.Context, m *models.Member) error {
	if err := c.do(ctx, http.MethodPut, "/api/members/"+url.PathEscape(m.ID), m, nil); err != nil {
		return fmt.Errorf("upsert member %s: %w", m.ID, err)
	}
	return nil
}

func (c *Client) DeleteMember(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/api/members/"+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("delete member %s: %w", id, err)
	}
	return nil
}

func (c *Client) FetchSettings(ctx context.Context) (*models.SiteSettings, error) {
	var s models.SiteSettings
	if err := c.do(ctx, http.MethodGet, "/api/settings", nil, &s); err != nil {
		return nil, fmt.Errorf("fetch settings: %w", err)
	}
	return &s, nil
}

func (c *Client) UpsertSettings(ctx context.Context, s *models.SiteSettings) error {
	if err := c.do(ctx, http.MethodPut, "/api/settings", s, nil); err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}
	return nil
}
