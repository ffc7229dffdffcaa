// Package rpc is the JSON-RPC 1.1 transport to the object store and the
// dynamically deployed set and palette services.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/oklog/ulid/v2"
)

// maxResponseBytes bounds a single response body.
const maxResponseBytes = 256 << 20

// ServerError is an error reported by the remote service itself.
type ServerError struct {
	Name    string `json:"name"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"error"` // server-side traceback, not shown to callers
}

func (e *ServerError) Error() string {
	return e.Message
}

// Options configures a Client.
type Options struct {
	Token   string
	Timeout time.Duration // 0 = no client-side timeout
}

// Client calls one JSON-RPC endpoint.
type Client struct {
	url        string
	token      string
	httpClient *http.Client
}

// NewClient creates a client for the endpoint at url.
func NewClient(url string, opts Options) *Client {
	return &Client{
		url:        strings.TrimRight(strings.TrimSpace(url), "/"),
		token:      opts.Token,
		httpClient: &http.Client{Timeout: opts.Timeout},
	}
}

// URL returns the endpoint this client calls.
func (c *Client) URL() string {
	return c.url
}

type request struct {
	Version string `json:"version"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      string `json:"id"`
}

type response struct {
	Result json.RawMessage `json:"result"`
	Error  *ServerError    `json:"error"`
}

// Call invokes method with positional params and decodes the first element
// of the result array into result. result may be nil.
func (c *Client) Call(ctx context.Context, method string, params []any, result any) error {
	return c.callAt(ctx, c.url, method, params, result)
}

// callAt is Call against another endpoint, reusing this client's token and
// connection pool.
func (c *Client) callAt(ctx context.Context, url, method string, params []any, result any) error {
	if params == nil {
		params = []any{}
	}
	payload, err := json.Marshal(request{Version: "1.1", Method: method, Params: params, ID: ulid.Make().String()})
	if err != nil {
		return fmt.Errorf("encode %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%s: read response: %w", method, err)
	}
	glog.V(2).Infof("[rpc] %s %s status=%d bytes=%d took=%s", url, method, resp.StatusCode, len(body), time.Since(start))

	var decoded response
	if jsonErr := json.Unmarshal(body, &decoded); jsonErr != nil {
		if resp.StatusCode != http.StatusOK {
			msg := strings.TrimSpace(string(body))
			if msg == "" {
				msg = http.StatusText(resp.StatusCode)
			}
			return fmt.Errorf("%s failed (status %d): %s", method, resp.StatusCode, msg)
		}
		return fmt.Errorf("%s: decode response: %w", method, jsonErr)
	}
	if decoded.Error != nil {
		return decoded.Error
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s failed (status %d)", method, resp.StatusCode)
	}
	if result == nil {
		return nil
	}

	var results []json.RawMessage
	if err := json.Unmarshal(decoded.Result, &results); err != nil {
		return fmt.Errorf("%s: result is not an array: %w", method, err)
	}
	if len(results) == 0 {
		return fmt.Errorf("%s: empty result", method)
	}
	if err := json.Unmarshal(results[0], result); err != nil {
		return fmt.Errorf("%s: decode result: %w", method, err)
	}
	return nil
}
