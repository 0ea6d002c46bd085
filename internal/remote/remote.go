// Package remote talks to the spreadsheet web app a list can be mirrored to.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/feira/internal/model"
)

var (
	// ErrInvalidEndpoint is returned for URLs that are not a deployed web app.
	ErrInvalidEndpoint = errors.New("invalid sync endpoint")
	// ErrMalformedDocument is returned when the endpoint answers without an
	// items array.
	ErrMalformedDocument = errors.New("remote document has no items")
)

// endpointSuffix marks the path of a deployed Apps Script web app.
const endpointSuffix = "/exec"

// ValidEndpoint reports whether endpoint is an absolute http(s) URL whose
// path ends in "/exec".
func ValidEndpoint(endpoint string) bool {
	u, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != "" && strings.HasSuffix(strings.TrimRight(u.Path, "/"), endpointSuffix)
}

// Config holds the HTTP client settings. A zero Timeout leaves requests
// without a deadline beyond the caller's context.
type Config struct {
	Timeout   time.Duration
	UserAgent string
}

// Document is the list as the endpoint serves it. Items stay loosely typed;
// the importer normalizes them.
type Document struct {
	Name  string
	Items []any
}

// PushPayload is the body of a push.
type PushPayload struct {
	Name      string               `json:"name"`
	Items     []model.ShoppingItem `json:"items"`
	UpdatedAt int64                `json:"updatedAt"`
	IsFixed   bool                 `json:"isFixed,omitempty"`
}

// Client fetches and pushes list snapshots.
type Client struct {
	client    *http.Client
	userAgent string
	now       func() time.Time
}

// NewClient creates a client with the given configuration.
func NewClient(cfg Config) *Client {
	if cfg.UserAgent == "" {
		cfg.UserAgent = "feira/1.0"
	}
	return &Client{
		client:    &http.Client{Timeout: cfg.Timeout},
		userAgent: cfg.UserAgent,
		now:       time.Now,
	}
}

// Fetch downloads the remote list. A cache-busting "t" parameter carrying the
// current unix millis is added to the query.
func (c *Client) Fetch(ctx context.Context, endpoint string) (Document, error) {
	if !ValidEndpoint(endpoint) {
		return Document{}, ErrInvalidEndpoint
	}
	u, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil {
		return Document{}, fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("t", strconv.FormatInt(c.now().UnixMilli(), 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Document{}, fmt.Errorf("create fetch request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Document{}, fmt.Errorf("fetch remote list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return Document{}, fmt.Errorf("remote returned status %d", resp.StatusCode)
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return Document{}, fmt.Errorf("decode remote list: %w", err)
	}

	items, ok := raw["items"].([]any)
	if !ok {
		return Document{}, ErrMalformedDocument
	}
	name, _ := raw["name"].(string)
	return Document{Name: name, Items: items}, nil
}

// Push sends a snapshot. The endpoint answers with a redirect to a page the
// client has no use for, so the response is drained and ignored: only
// transport failures are reported.
func (c *Client) Push(ctx context.Context, endpoint string, payload PushPayload) error {
	if !ValidEndpoint(endpoint) {
		return ErrInvalidEndpoint
	}
	if payload.Items == nil {
		payload.Items = []model.ShoppingItem{}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimSpace(endpoint), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create push request: %w", err)
	}
	// A simple content type keeps Apps Script from demanding a preflight.
	req.Header.Set("Content-Type", "text/plain;charset=utf-8")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("push remote list: %w", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return nil
}
