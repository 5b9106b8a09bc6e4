package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	domainError "github.com/THE-STEAMERS/SmartChainERP/internal/domain/errors"
)

// Client issues backend requests with a bearer token attached. When a
// request comes back 401 it performs exactly one refresh-token exchange
// and retries the original request once with the new token. A failed
// exchange clears the stored pair and surfaces ErrAuthRequired; callers
// must treat that as terminal for the current operation.
type Client struct {
	base  string
	http  *http.Client
	store TokenStore
	log   *slog.Logger
}

func NewClient(base string, store TokenStore, log *slog.Logger) *Client {
	return NewClientWithHTTP(base, store, &http.Client{Timeout: 10 * time.Second}, log)
}

// NewClientWithHTTP allows injecting the http client, e.g. for tests or a
// custom timeout.
func NewClientWithHTTP(base string, store TokenStore, hc *http.Client, log *slog.Logger) *Client {
	return &Client{
		base:  strings.TrimRight(base, "/"),
		http:  hc,
		store: store,
		log:   log,
	}
}

// Do performs an authenticated request against base+path. The body, if
// any, is sent as JSON. The caller owns the returned response body.
func (c *Client) Do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := c.send(ctx, method, path, body, token)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	// Access token rejected: one refresh exchange, then one retry.
	resp.Body.Close()
	token, err = c.refresh(ctx)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, domainError.ErrAuthRequired
	}
	return c.send(ctx, method, path, body, token)
}

// DoJSON performs an authenticated request and decodes a success body
// into out. Non-2xx responses become a StatusError carrying the server's
// detail message when the body had one.
func (c *Client) DoJSON(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
	}

	resp, err := c.Do(ctx, method, path, payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// token returns a usable access token, performing a refresh exchange when
// none is stored. ErrAuthRequired is returned before any request is
// issued if neither an access token nor a usable refresh token exists.
func (c *Client) token(ctx context.Context) (string, error) {
	pair, err := c.store.Load()
	if err != nil {
		return "", err
	}
	if pair.Access != "" {
		return pair.Access, nil
	}
	access, err := c.refresh(ctx)
	if err != nil {
		return "", err
	}
	if access == "" {
		return "", domainError.ErrAuthRequired
	}
	return access, nil
}

// refresh performs one refresh-token exchange. It returns an empty token
// when no exchange is possible or the exchange failed; any failure clears
// both stored tokens so the caller is not tempted to retry in a loop.
func (c *Client) refresh(ctx context.Context) (string, error) {
	pair, err := c.store.Load()
	if err != nil {
		return "", err
	}
	if pair.Refresh == "" {
		return "", nil
	}

	payload, err := json.Marshal(map[string]string{"refresh": pair.Refresh})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/token/refresh/", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("token refresh failed", "error", err)
		c.store.Clear()
		return "", nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warn("token refresh rejected", "status", resp.StatusCode)
		c.store.Clear()
		return "", nil
	}

	var body struct {
		Access string `json:"access"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Access == "" {
		c.log.Warn("token refresh returned no access token")
		c.store.Clear()
		return "", nil
	}

	if err := c.store.SaveAccess(body.Access); err != nil {
		return "", err
	}
	return body.Access, nil
}

func (c *Client) send(ctx context.Context, method, path string, body []byte, token string) (*http.Response, error) {
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return c.http.Do(req)
}

// statusError drains a non-success response into a StatusError, keeping
// the server's "detail" or "error" message when one is present.
func statusError(resp *http.Response) error {
	var body struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	detail := body.Detail
	if detail == "" {
		detail = body.Error
	}
	return &domainError.StatusError{StatusCode: resp.StatusCode, Detail: detail}
}
