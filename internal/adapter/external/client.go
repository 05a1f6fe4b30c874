// Package external holds HTTP clients for the account and customer services
// that own balances and customer data.
package external

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	headerAuthorization = "Authorization"
	headerServiceAPIKey = "X-Service-API-Key"
)

// errEmptyBody is returned when a 2xx response carries no JSON body
var errEmptyBody = errors.New("empty response body")

// Credentials are sent with every call to the account service
type Credentials struct {
	AuthToken string
	APIKey    string
}

// StatusError reports a non-2xx response
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.StatusCode)
}

type client struct {
	baseURL string
	http    *http.Client
	creds   *Credentials
}

func newClient(baseURL string, timeout time.Duration, creds *Credentials) client {
	return client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		creds:   creds,
	}
}

// do sends the request and decodes a JSON body into out when out is non-nil
func (c client) do(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.creds != nil {
		if c.creds.AuthToken != "" {
			req.Header.Set(headerAuthorization, c.creds.AuthToken)
		}
		if c.creds.APIKey != "" {
			req.Header.Set(headerServiceAPIKey, c.creds.APIKey)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &StatusError{Method: method, URL: req.URL.Path, StatusCode: resp.StatusCode}
	}
	if out == nil {
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" || trimmed == "null" {
		return errEmptyBody
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}
