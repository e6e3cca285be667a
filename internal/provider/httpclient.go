package provider

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/ryanm101/gamefuse/internal/game"
)

// UserAgent is sent on every upstream request.
const UserAgent = "gamefuse/1.0 (+https://github.com/ryanm101/gamefuse)"

// DefaultHTTPTimeout bounds requests when the caller's context has no deadline.
const DefaultHTTPTimeout = 10 * time.Second

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 8 << 20

// HTTPClient performs throttled JSON requests on behalf of an adapter.
type HTTPClient struct {
	provider game.ProviderName
	client   *http.Client
	limiter  *rate.Limiter
}

// NewHTTPClient creates a client for provider p. A nil client gets a default
// one; a nil limiter disables client-side throttling.
func NewHTTPClient(p game.ProviderName, client *http.Client, limiter *rate.Limiter) *HTTPClient {
	if client == nil {
		client = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &HTTPClient{provider: p, client: client, limiter: limiter}
}

// Client returns the underlying *http.Client.
func (c *HTTPClient) Client() *http.Client {
	return c.client
}

// GetJSON issues a GET and decodes the JSON body into out.
func (c *HTTPClient) GetJSON(ctx context.Context, op, url string, out any) error {
	return c.do(ctx, op, http.MethodGet, url, nil, out)
}

// PostJSON marshals body, issues a POST and decodes the JSON reply into out.
func (c *HTTPClient) PostJSON(ctx context.Context, op, url string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return NewError(c.provider, op, KindMalformed, fmt.Errorf("failed to encode request: %w", err))
	}
	return c.do(ctx, op, http.MethodPost, url, data, out)
}

// PostForm issues a form-encoded POST and decodes the JSON reply into out.
func (c *HTTPClient) PostForm(ctx context.Context, op, url string, form neturl.Values, out any) error {
	data, err := c.send(ctx, op, http.MethodPost, url, []byte(form.Encode()), "application/x-www-form-urlencoded")
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return Malformed(c.provider, op, err)
	}
	return nil
}

// GetRaw issues a GET and returns the raw body.
func (c *HTTPClient) GetRaw(ctx context.Context, op, url string) ([]byte, error) {
	return c.fetch(ctx, op, http.MethodGet, url, nil)
}

func (c *HTTPClient) do(ctx context.Context, op, method, url string, body []byte, out any) error {
	data, err := c.fetch(ctx, op, method, url, body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return Malformed(c.provider, op, err)
	}
	return nil
}

func (c *HTTPClient) fetch(ctx context.Context, op, method, url string, body []byte) ([]byte, error) {
	return c.send(ctx, op, method, url, body, "application/json")
}

func (c *HTTPClient) send(ctx context.Context, op, method, url string, body []byte, contentType string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, NewError(c.provider, op, KindNetwork, err)
		}
	}

	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, NewError(c.provider, op, KindNetwork, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, NewError(c.provider, op, KindNetwork, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := CheckResponse(c.provider, op, resp); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, NewError(c.provider, op, KindNetwork, fmt.Errorf("failed to read body: %w", err))
	}
	return data, nil
}
