package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	apperrors "datachat/errors"

	"go.uber.org/zap"
)

const jsonContentType = "application/json"

// apiError is the structured error body the backend sends on failure.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Client talks to the analytics backend. All calls are plain JSON over HTTP;
// the transport timeout is the only timeout policy.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		logger:     logger,
	}
}

// Ask submits a question and returns the raw answer payload.
func (c *Client) Ask(ctx context.Context, req AskRequest) (*AskResponse, error) {
	var resp AskResponse
	if err := c.postJSON(ctx, "/api/ask", req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, apperrors.WrapError(apperrors.ErrBadResponse, resp.Error)
	}
	return &resp, nil
}

// LoadSession fetches the authoritative transcript for a session.
func (c *Client) LoadSession(ctx context.Context, req LoadSessionRequest) (*LoadSessionResponse, error) {
	var resp LoadSessionResponse
	if err := c.postJSON(ctx, "/api/session/load", req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, apperrors.WrapError(apperrors.ErrBadResponse, resp.Error)
	}
	return &resp, nil
}

// CreateSession pre-creates an empty session for the (client, dataset) pair.
func (c *Client) CreateSession(ctx context.Context, req CreateSessionRequest) (*CreateSessionResponse, error) {
	var resp CreateSessionResponse
	if err := c.postJSON(ctx, "/api/session/create", req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, apperrors.WrapError(apperrors.ErrBadResponse, resp.Error)
	}
	return &resp, nil
}

// ListSessions fetches the session roster for the (client, dataset) pair.
func (c *Client) ListSessions(ctx context.Context, req ListSessionsRequest) (*ListSessionsResponse, error) {
	var resp ListSessionsResponse
	if err := c.postJSON(ctx, "/api/session/list", req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, apperrors.WrapError(apperrors.ErrBadResponse, resp.Error)
	}
	return &resp, nil
}

func (c *Client) postJSON(ctx context.Context, path string, reqBody, respBody any) error {
	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return apperrors.WrapError(err, "failed to encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(reqBytes))
	if err != nil {
		return apperrors.WrapError(err, "failed to build request")
	}
	req.Header.Set("Content-Type", jsonContentType)
	req.Header.Set("Accept", jsonContentType)

	res, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Backend request failed", zap.String("path", path), zap.Error(err))
		return apperrors.WrapErrorf(apperrors.ErrTransport, "%s", path)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		c.logger.Warn("Failed to read backend response body", zap.String("path", path), zap.Error(err))
		return apperrors.WrapErrorf(apperrors.ErrTransport, "%s", path)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return c.statusError(path, res.StatusCode, body)
	}

	if err := json.Unmarshal(body, respBody); err != nil {
		c.logger.Warn("Failed to decode backend response",
			zap.String("path", path),
			zap.Int("status", res.StatusCode),
			zap.Error(err))
		return apperrors.ErrBadResponse
	}
	return nil
}

// statusError maps a non-success status to ErrBadResponse, carrying the
// backend's own error text verbatim when the body has one.
func (c *Client) statusError(path string, status int, body []byte) error {
	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil {
		msg := apiErr.Error
		if msg == "" {
			msg = apiErr.Message
		}
		if msg != "" {
			return apperrors.WrapError(apperrors.ErrBadResponse, msg)
		}
	}
	c.logger.Warn("Backend returned failure status without structured error",
		zap.String("path", path),
		zap.Int("status", status))
	return apperrors.WrapErrorf(apperrors.ErrBadResponse, "status %d", status)
}
