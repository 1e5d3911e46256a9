// Package client is the front-end companion of the Daftari API: it caches the
// session credential across restarts, stamps it onto every outgoing request,
// and keeps the rendered navigation consistent with the authorization state.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/mzalendo/daftari/core"
)

// logoutTimeout bounds the server-side session invalidation call; local
// cleanup never waits longer than this.
var logoutTimeout = 3 * time.Second

// APIError is a non-2xx response from the API, carrying the human-readable
// message the server attached to it.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.StatusCode, e.Detail)
}

// Client talks to the Daftari API on behalf of a logged-in (or anonymous)
// user.
type Client struct {
	baseURL  string
	http     *http.Client
	store    Store
	notifier *Notifier
	logger   core.Logger
}

func New(baseURL string, store Store, notifier *Notifier, logger core.Logger, decorators ...Decorator) *Client {
	// the auth decorator is always the innermost one, so headers set by
	// custom decorators win
	decorators = append(decorators, AuthHeaders(store))
	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Transport: Decorate(nil, decorators...),
		},
		store:    store,
		notifier: notifier,
		logger:   logger,
	}
}

type loginResponse struct {
	AccessToken string  `json:"access_token"`
	TokenType   string  `json:"token_type"`
	User        Profile `json:"user"`
}

// Login authenticates against the API and caches the returned credential.
func (c *Client) Login(ctx context.Context, username, password string) (Credential, error) {
	body := map[string]string{"username": username, "password": password}

	var resp loginResponse
	if err := c.Post(ctx, "/api/users/login", body, &resp); err != nil {
		return Credential{}, err
	}

	cred := Credential{Token: resp.AccessToken, User: resp.User}
	if err := c.store.Set(cred); err != nil {
		return Credential{}, errors.Wrap(err, "caching credential")
	}
	return cred, nil
}

// Logout invalidates the server-side session and clears the local credential.
// The local half is unconditional: a dead network still logs the user out
// locally, with the failure surfaced as a notification.
func (c *Client) Logout(nav Navigator) {
	ctx, cancel := context.WithTimeout(context.Background(), logoutTimeout)
	defer cancel()

	if err := c.Post(ctx, "/logout", nil, nil); err != nil {
		c.logger.Warn("server-side logout failed", err)
		c.notifier.Notify("Could not reach the server; you have been logged out locally.", KindDanger)
	}

	if err := c.store.Clear(); err != nil {
		c.logger.Error("clearing credential store", err)
	}
	nav.Navigate(rootRoute)
}

// Get issues an authenticated GET request and decodes the response into out.
func (c *Client) Get(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// Post issues an authenticated POST request and decodes the response into
// out, when out is non-nil.
func (c *Client) Post(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encoding request body")
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "sending request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := parseAPIError(resp)
		// surface the failure, then re-signal it so the caller can react
		c.notifier.Notify(apiErr.Detail, KindDanger)
		return apiErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return errors.Wrap(err, "decoding response body")
		}
	}
	return nil
}

// parseAPIError extracts the server's message from an error response. The
// current API generation sends {"error": ...} with a mirrored "detail" key;
// older ones send "detail" only.
func parseAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode, Detail: http.StatusText(resp.StatusCode)}

	var payload struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
		switch {
		case payload.Detail != "":
			apiErr.Detail = payload.Detail
		case payload.Error != "":
			apiErr.Detail = payload.Error
		}
	}
	return apiErr
}
