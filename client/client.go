package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/brojonat/blinks/service/actions"
	"github.com/brojonat/blinks/service/apperr"
	"github.com/brojonat/blinks/service/auth"
	"github.com/brojonat/blinks/service/blink"
	"github.com/brojonat/blinks/service/db"
)

// APIError is a non-2xx response from the blinks service.
type APIError struct {
	StatusCode int
	Message    string
	Details    []apperr.FieldError
}

func (e *APIError) Error() string {
	if len(e.Details) > 0 {
		return fmt.Sprintf("request failed (%d): %s: %v", e.StatusCode, e.Message, e.Details)
	}
	return fmt.Sprintf("request failed (%d): %s", e.StatusCode, e.Message)
}

// Client is the HTTP client for the blinks service.
// It carries the session token returned by SignIn on later requests.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	mu    sync.RWMutex
	token string
}

// NewClient creates a new blinks service client.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// SetToken sets the session token sent as a bearer credential.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Token returns the current session token, empty when signed out.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

type sessionEnvelope struct {
	User    *auth.Session `json:"user"`
	Token   string        `json:"token"`
	Expires time.Time     `json:"expires"`
}

// SignIn submits a signed challenge and keeps the returned session token.
func (c *Client) SignIn(ctx context.Context, creds auth.Credentials) (*auth.Session, error) {
	var env sessionEnvelope
	if err := c.do(ctx, http.MethodPost, "/api/auth/signin", creds, http.StatusOK, &env); err != nil {
		return nil, err
	}
	if env.User == nil || env.Token == "" {
		return nil, fmt.Errorf("sign-in response carried no session")
	}
	c.SetToken(env.Token)
	c.logger.Debug("signed in", "public_key", env.User.PublicKey)
	return env.User, nil
}

// SignOut ends the session and forgets the token.
func (c *Client) SignOut(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/api/auth/signout", nil, http.StatusOK, nil); err != nil {
		return err
	}
	c.SetToken("")
	return nil
}

// Session returns the current session, nil when the server knows none.
func (c *Client) Session(ctx context.Context) (*auth.Session, error) {
	var env sessionEnvelope
	if err := c.do(ctx, http.MethodGet, "/api/auth/session", nil, http.StatusOK, &env); err != nil {
		return nil, err
	}
	return env.User, nil
}

// CreateBlink creates a blink owned by the signed-in user.
func (c *Client) CreateBlink(ctx context.Context, form *blink.Form) (*db.Blink, error) {
	var created db.Blink
	if err := c.do(ctx, http.MethodPost, "/api/blinks", form, http.StatusOK, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// ListBlinks lists the signed-in user's blinks, newest first.
func (c *Client) ListBlinks(ctx context.Context) ([]*db.Blink, error) {
	var blinks []*db.Blink
	if err := c.do(ctx, http.MethodGet, "/api/blinks", nil, http.StatusOK, &blinks); err != nil {
		return nil, err
	}
	return blinks, nil
}

// GetBlink reads one blink.
func (c *Client) GetBlink(ctx context.Context, id string) (*db.Blink, error) {
	var b db.Blink
	if err := c.do(ctx, http.MethodGet, "/api/blinks/"+url.PathEscape(id), nil, http.StatusOK, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// QRCode fetches the PNG QR code of a blink's action link.
// A size of zero uses the server default.
func (c *Client) QRCode(ctx context.Context, id string, size int) ([]byte, error) {
	path := "/api/blinks/" + url.PathEscape(id) + "/qr"
	if size > 0 {
		path += "?size=" + strconv.Itoa(size)
	}

	resp, err := c.send(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}
	return io.ReadAll(resp.Body)
}

// ActionMetadata fetches the action metadata of a blink.
func (c *Client) ActionMetadata(ctx context.Context, blinkID string) (*actions.ActionGetResponse, error) {
	var meta actions.ActionGetResponse
	if err := c.do(ctx, http.MethodGet, actions.TransferPath+url.PathEscape(blinkID), nil, http.StatusOK, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// ActionTransaction asks for an unsigned donation transaction of amount SOL paid by account.
func (c *Client) ActionTransaction(ctx context.Context, blinkID, amount, account string) (*actions.ActionPostResponse, error) {
	path := actions.TransferPath + url.PathEscape(blinkID) + "?amount=" + url.QueryEscape(amount)

	var resp actions.ActionPostResponse
	if err := c.do(ctx, http.MethodPost, path, actions.ActionPostRequest{Account: account}, http.StatusOK, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health checks that the server is up.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.send(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.parseErrorResponse(resp)
	}
	return nil
}

// do sends a JSON request and decodes a JSON response into out when non-nil.
func (c *Client) do(ctx context.Context, method, path string, in any, want int, out any) error {
	resp, err := c.send(ctx, method, path, in)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		return c.parseErrorResponse(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, in any) (*http.Response, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

// parseErrorResponse attempts to parse an error response from the server.
// REST endpoints answer {"error"}, action endpoints answer {"message"}.
func (c *Client) parseErrorResponse(resp *http.Response) error {
	var errResp struct {
		Error   string              `json:"error"`
		Message string              `json:"message"`
		Details []apperr.FieldError `json:"details"`
	}

	body, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, &errResp); err != nil || (errResp.Error == "" && errResp.Message == "") {
		return &APIError{StatusCode: resp.StatusCode, Message: string(bytes.TrimSpace(body))}
	}

	msg := errResp.Error
	if msg == "" {
		msg = errResp.Message
	} else if errResp.Message != "" {
		msg += ": " + errResp.Message
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg, Details: errResp.Details}
}
