// Package micropub is a thin, stateless wrapper over one site's Micropub
// endpoint: JSON create/update/delete requests, query requests, and media
// uploads, all authenticated with a single bearer token.
package micropub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
)

const maxResponseBody = 1 << 20

// Client is bound to one Micropub endpoint and one bearer token.
type Client struct {
	endpoint      string
	mediaEndpoint string
	token         string
	httpClient    *http.Client
}

// Option configures optional Client behaviour.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client; callers should pass one
// with a bounded timeout.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithMediaEndpoint sets the media endpoint used by UploadMedia.
func WithMediaEndpoint(endpoint string) Option {
	return func(c *Client) {
		c.mediaEndpoint = endpoint
	}
}

// NewClient creates a Micropub client for one endpoint and bearer token.
func NewClient(endpoint, token string, opts ...Option) *Client {
	c := &Client{
		endpoint:   endpoint,
		token:      token,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Result reports a successful create/update/delete/upload. Location is the
// URL of the affected post when the endpoint supplied one.
type Result struct {
	Location string
}

// Update describes a Micropub update action. Replace and Add values are
// array-normalized per property. Delete may be a list of property names or a
// map of per-value removals.
type Update struct {
	Replace map[string]any
	Add     map[string]any
	Delete  any
}

// CreateEntry publishes a new h-entry. Every property value is normalized to
// an array, as the Micropub wire format requires.
func (c *Client) CreateEntry(ctx context.Context, properties map[string]any) (*Result, error) {
	payload := map[string]any{
		"type":       []string{"h-entry"},
		"properties": normalizeProperties(properties),
	}
	return c.postAction(ctx, payload)
}

// UpdateEntry modifies the post at url.
func (c *Client) UpdateEntry(ctx context.Context, postURL string, update Update) (*Result, error) {
	payload := map[string]any{
		"action": "update",
		"url":    postURL,
	}
	if len(update.Replace) > 0 {
		payload["replace"] = normalizeProperties(update.Replace)
	}
	if len(update.Add) > 0 {
		payload["add"] = normalizeProperties(update.Add)
	}
	if update.Delete != nil {
		payload["delete"] = normalizeDelete(update.Delete)
	}
	return c.postAction(ctx, payload)
}

// DeleteEntry deletes the post at url.
func (c *Client) DeleteEntry(ctx context.Context, postURL string) (*Result, error) {
	return c.postAction(ctx, map[string]any{"action": "delete", "url": postURL})
}

// UndeleteEntry restores a previously deleted post.
func (c *Client) UndeleteEntry(ctx context.Context, postURL string) (*Result, error) {
	return c.postAction(ctx, map[string]any{"action": "undelete", "url": postURL})
}

// Query performs a GET query (?q=<type>) against the endpoint and returns the
// parsed JSON body. The shape depends on the query type; callers interpret.
func (c *Client) Query(ctx context.Context, queryType string, params url.Values) (map[string]any, error) {
	values := url.Values{"q": {queryType}}
	for key, list := range params {
		for _, value := range list {
			values.Add(key, value)
		}
	}

	queryURL := c.endpoint
	if strings.Contains(queryURL, "?") {
		queryURL += "&" + values.Encode()
	} else {
		queryURL += "?" + values.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, queryURL, nil)
	if err != nil {
		return nil, fmt.Errorf("[Query] failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("[Query] request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("[Query] failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newOperationError(resp.StatusCode, body)
	}

	var result map[string]any
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &OperationError{StatusCode: resp.StatusCode, Message: "endpoint returned malformed JSON"}
	}
	return result, nil
}

// GetConfig fetches the endpoint's configuration (?q=config), which may
// advertise a media endpoint and syndication targets.
func (c *Client) GetConfig(ctx context.Context) (map[string]any, error) {
	return c.Query(ctx, "config", nil)
}

// GetSource fetches the source properties of a post, optionally filtered.
func (c *Client) GetSource(ctx context.Context, postURL string, properties []string) (map[string]any, error) {
	params := url.Values{"url": {postURL}}
	if len(properties) > 0 {
		params.Set("properties[]", strings.Join(properties, ","))
	}
	return c.Query(ctx, "source", params)
}

// UploadMedia posts a file to the media endpoint as multipart/form-data and
// returns the Location of the created media resource.
func (c *Client) UploadMedia(ctx context.Context, filename, contentType string, data []byte) (*Result, error) {
	if c.mediaEndpoint == "" {
		return nil, &OperationError{Message: "no media endpoint is configured for this site"}
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("[UploadMedia] failed to build form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("[UploadMedia] failed to write file part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("[UploadMedia] failed to finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.mediaEndpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("[UploadMedia] failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return c.send(req)
}

func (c *Client) postAction(ctx context.Context, payload map[string]any) (*Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("[postAction] failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("[postAction] failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return c.send(req)
}

func (c *Client) send(req *http.Request) (*Result, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("[send] request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))

	switch resp.StatusCode {
	case http.StatusCreated, http.StatusAccepted:
		return &Result{Location: resp.Header.Get("Location")}, nil
	case http.StatusOK, http.StatusNoContent:
		return &Result{}, nil
	default:
		return nil, newOperationError(resp.StatusCode, body)
	}
}
