package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// httpClient allows http.Client to be mocked for tests
type httpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Generic REST restClient
type restClient struct {
	client  httpClient
	baseURL *url.URL
	token   string
}

// do performs an HTTP request with this client and returns the response.
// The stored access token is attached when one has been set.
func (c *restClient) do(ctx context.Context, method, uri string, body []byte) (*http.Response, error) {
	path, query, _ := strings.Cut(uri, "?")
	url := c.baseURL.JoinPath(path)
	url.RawQuery = query
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url.String(), r)
	if err != nil {
		return nil, fmt.Errorf("%s for %q: %v", method, url, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	return c.client.Do(req)
}

// doJSON performs an HTTP request with this client, marshalling in as the
// JSON request body when non-nil and unmarshalling the JSON response into
// out.
func (c *restClient) doJSON(ctx context.Context, method string, uri string, in interface{}, out interface{}) error {
	var body []byte
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s for %q: %v", method, uri, err)
		}
	}

	resp, err := c.do(ctx, method, uri, body)
	if err != nil {
		return err
	}

	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		// Decode response body
		return json.NewDecoder(resp.Body).Decode(out)
	}

	return errorFromResponse(method, uri, resp)
}

// errorFromResponse converts a non-2xx response into an error, preferring
// the server's error document over the bare status line.
func errorFromResponse(method, uri string, resp *http.Response) error {
	var doc struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err == nil && doc.Error != "" {
		return fmt.Errorf("%s for %q, unexpected %v: %s", method, uri, resp.StatusCode, doc.Error)
	}

	return fmt.Errorf("%s for %q, unexpected %v: %s", method, uri, resp.StatusCode, resp.Status)
}
