// Package joplin talks to the Joplin Data API, standing in for the plugin
// host's attachment and note stores.
package joplin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-excalidraw/internal/logging"
	"github.com/goliatone/go-excalidraw/pkg/interfaces"
)

// ErrTokenRequired is returned when the client is built without a token.
var ErrTokenRequired = errors.New("joplin: api token is required")

// APIError is a non-2xx response.
type APIError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("joplin: %s %s: %d %s", e.Method, e.Path, e.Status, strings.TrimSpace(e.Body))
}

// Client implements the attachment, document and workspace contracts over
// the Data API.
type Client struct {
	base   *url.URL
	token  string
	http   *http.Client
	logger interfaces.Logger

	mu      sync.Mutex
	current string
}

var (
	_ interfaces.AttachmentStore   = (*Client)(nil)
	_ interfaces.AttachmentDeleter = (*Client)(nil)
	_ interfaces.DocumentStore     = (*Client)(nil)
	_ interfaces.DocumentReader    = (*Client)(nil)
	_ interfaces.Workspace         = (*Client)(nil)
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the http client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New builds a client for baseURL (e.g. http://127.0.0.1:41184).
func New(baseURL, token string, timeout time.Duration, opts ...Option) (*Client, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrTokenRequired
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("joplin: parse base url: %w", err)
	}
	c := &Client{
		base:   u,
		token:  token,
		http:   &http.Client{Timeout: timeout},
		logger: logging.NoOp(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.base
	u.Path = u.Path + path
	if query == nil {
		query = url.Values{}
	}
	query.Set("token", c.token)
	u.RawQuery = query.Encode()
	return u.String()
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string, out any) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("joplin: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("joplin: read %s: %w", path, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, &APIError{Method: method, Path: path, Status: resp.StatusCode, Body: string(data)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("joplin.request.failed", "method", method, "path", path, "status", resp.StatusCode)
		return nil, &APIError{Method: method, Path: path, Status: resp.StatusCode, Body: string(data)}
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return nil, fmt.Errorf("joplin: decode %s: %w", path, err)
		}
	}
	return data, nil
}

func isNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

type resourceProps struct {
	ID    string `json:"id,omitempty"`
	Title string `json:"title,omitempty"`
}

type resourceResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Mime        string `json:"mime"`
	Size        int64  `json:"size"`
	UpdatedTime int64  `json:"updated_time"`
}

func multipartUpload(props resourceProps, filePath string) (*bytes.Buffer, string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, "", err
	}
	encoded, err := json.Marshal(props)
	if err != nil {
		return nil, "", err
	}
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("data", filepath.Base(filePath))
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("props", string(encoded)); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// Create posts a resource under id.
func (c *Client) Create(ctx context.Context, id, title, filePath string) (string, error) {
	body, contentType, err := multipartUpload(resourceProps{ID: id, Title: title}, filePath)
	if err != nil {
		return "", fmt.Errorf("joplin: prepare upload: %w", err)
	}
	var res resourceResponse
	if _, err := c.do(ctx, http.MethodPost, "/resources", nil, body, contentType, &res); err != nil {
		return "", err
	}
	return res.ID, nil
}

// Update replaces the content and title of a resource.
func (c *Client) Update(ctx context.Context, id, title, filePath string) error {
	body, contentType, err := multipartUpload(resourceProps{Title: title}, filePath)
	if err != nil {
		return fmt.Errorf("joplin: prepare upload: %w", err)
	}
	if _, err := c.do(ctx, http.MethodPut, "/resources/"+url.PathEscape(id), nil, body, contentType, nil); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%w: %s", interfaces.ErrAttachmentNotFound, id)
		}
		return err
	}
	return nil
}

// Metadata fetches resource fields.
func (c *Client) Metadata(ctx context.Context, id string, fields ...string) (*interfaces.AttachmentMetadata, error) {
	if len(fields) == 0 {
		fields = []string{"id", "title", "mime", "size", "updated_time"}
	}
	var res resourceResponse
	query := url.Values{"fields": {strings.Join(fields, ",")}}
	if _, err := c.do(ctx, http.MethodGet, "/resources/"+url.PathEscape(id), query, nil, "", &res); err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", interfaces.ErrAttachmentNotFound, id)
		}
		return nil, err
	}
	if res.ID == "" {
		res.ID = id
	}
	return &interfaces.AttachmentMetadata{
		ID:        res.ID,
		Title:     res.Title,
		MimeType:  res.Mime,
		Size:      res.Size,
		UpdatedAt: time.UnixMilli(res.UpdatedTime),
	}, nil
}

// Bytes downloads the resource file.
func (c *Client) Bytes(ctx context.Context, id string) ([]byte, error) {
	data, err := c.do(ctx, http.MethodGet, "/resources/"+url.PathEscape(id)+"/file", nil, nil, "", nil)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", interfaces.ErrAttachmentNotFound, id)
		}
		return nil, err
	}
	return data, nil
}

// Delete removes a resource.
func (c *Client) Delete(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/resources/"+url.PathEscape(id), nil, nil, "", nil)
	if isNotFound(err) {
		return fmt.Errorf("%w: %s", interfaces.ErrAttachmentNotFound, id)
	}
	return err
}

type noteResponse struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

type notePage struct {
	Items []noteResponse `json:"items"`
}

// Select pins the note returned by CurrentDocument.
func (c *Client) Select(_ context.Context, id string) error {
	c.mu.Lock()
	c.current = id
	c.mu.Unlock()
	return nil
}

// Document fetches a note.
func (c *Client) Document(ctx context.Context, id string) (*interfaces.Document, error) {
	var note noteResponse
	query := url.Values{"fields": {"id,title,body"}}
	if _, err := c.do(ctx, http.MethodGet, "/notes/"+url.PathEscape(id), query, nil, "", &note); err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", interfaces.ErrDocumentNotFound, id)
		}
		return nil, err
	}
	return &interfaces.Document{ID: note.ID, Title: note.Title, Body: note.Body}, nil
}

// CurrentDocument returns the pinned note or, when none is pinned, the most
// recently updated one. The Data API has no notion of the selected note.
func (c *Client) CurrentDocument(ctx context.Context) (*interfaces.Document, error) {
	c.mu.Lock()
	id := c.current
	c.mu.Unlock()
	if id != "" {
		return c.Document(ctx, id)
	}

	var page notePage
	query := url.Values{
		"fields":    {"id,title,body"},
		"order_by":  {"updated_time"},
		"order_dir": {"DESC"},
		"limit":     {"1"},
	}
	if _, err := c.do(ctx, http.MethodGet, "/notes", query, nil, "", &page); err != nil {
		return nil, err
	}
	if len(page.Items) == 0 {
		return nil, interfaces.ErrDocumentNotFound
	}
	n := page.Items[0]
	return &interfaces.Document{ID: n.ID, Title: n.Title, Body: n.Body}, nil
}

// ReplaceDocumentBody updates a note body.
func (c *Client) ReplaceDocumentBody(ctx context.Context, id, body string) error {
	payload, err := json.Marshal(map[string]string{"body": body})
	if err != nil {
		return err
	}
	if _, err := c.do(ctx, http.MethodPut, "/notes/"+url.PathEscape(id), nil, bytes.NewReader(payload), "application/json", nil); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%w: %s", interfaces.ErrDocumentNotFound, id)
		}
		return err
	}
	return nil
}

// InsertText appends text to the current note. The Data API cannot reach
// the editor cursor.
func (c *Client) InsertText(ctx context.Context, text string) error {
	doc, err := c.CurrentDocument(ctx)
	if err != nil {
		return err
	}
	body := doc.Body
	if body != "" && !strings.HasSuffix(body, "\n") {
		body += "\n"
	}
	return c.ReplaceDocumentBody(ctx, doc.ID, body+text+"\n")
}
