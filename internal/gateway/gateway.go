package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bajo3/Meli-test/internal/auth"
	"github.com/bajo3/Meli-test/internal/util"

	"go.uber.org/zap"
)

// Caller is the remote catalog call surface the rest of the service depends
// on. The body, when non-nil, is JSON-encoded; the returned value is the raw
// JSON response.
type Caller interface {
	Call(ctx context.Context, method, path string, body interface{}) (json.RawMessage, error)
}

// FieldCause is one per-field validation failure reported by the remote
// service.
type FieldCause struct {
	Field   string          `json:"field"`
	Message string          `json:"message"`
	Code    json.RawMessage `json:"code"`
}

// RemoteError is any non-success response from the remote catalog service.
// Message preserves the remote error text verbatim: callers branch on
// substrings of it, notably the quota-exhaustion marker.
type RemoteError struct {
	StatusCode int
	Message    string
	Causes     []FieldCause
}

func (e *RemoteError) Error() string {
	return e.Message
}

// Gateway is the single chokepoint for calls to the remote item catalog. It
// attaches the bearer credential, decodes responses and normalizes errors.
type Gateway struct {
	baseURL string
	client  *http.Client
	tokens  auth.TokenProvider
	logger  *zap.Logger
}

func New(baseURL string, tokens auth.TokenProvider, timeout time.Duration) *Gateway {
	return &Gateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		tokens:  tokens,
		logger:  util.GetLogger(),
	}
}

// Call issues one request against the remote catalog service.
func (g *Gateway) Call(ctx context.Context, method, path string, body interface{}) (json.RawMessage, error) {
	ctx, span := util.StartSpan(ctx, "Gateway.Call")
	defer span.End()

	token, err := g.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	g.logger.Debug("catalog call", zap.String("method", method), zap.String("path", path))

	start := time.Now()
	res, err := g.client.Do(req)
	if err != nil {
		util.GatewayRequestsTotal.WithLabelValues(method, "error").Inc()
		return nil, fmt.Errorf("catalog request failed: %w", err)
	}
	defer res.Body.Close()

	util.GatewayRequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	util.GatewayRequestsTotal.WithLabelValues(method, strconv.Itoa(res.StatusCode)).Inc()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden {
		g.tokens.Invalidate()
		g.logger.Warn("credential rejected, cache invalidated",
			zap.Int("status", res.StatusCode),
			zap.String("path", path))
		return nil, &auth.AuthError{
			Reason: fmt.Sprintf("credential rejected by remote service (status %d)", res.StatusCode),
		}
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		g.logger.Warn("catalog error response",
			zap.Int("status", res.StatusCode),
			zap.String("method", method),
			zap.String("path", path),
			zap.ByteString("body", raw))
		return nil, newRemoteError(res.StatusCode, raw)
	}

	return raw, nil
}

// errorBody is the remote error envelope. The service is inconsistent about
// which of these fields it fills in.
type errorBody struct {
	Message string          `json:"message"`
	Err     json.RawMessage `json:"error"`
	Cause   []FieldCause    `json:"cause"`
}

// newRemoteError composes the error message in contract priority order:
// structured per-field causes, else a top-level message, else a generic
// fallback carrying the HTTP status. The remote text is always preserved
// verbatim somewhere in the final message.
func newRemoteError(status int, raw []byte) *RemoteError {
	var parsed errorBody
	if len(raw) == 0 || json.Unmarshal(raw, &parsed) != nil {
		msg := fmt.Sprintf("remote service returned status %d", status)
		if len(raw) > 0 {
			msg = fmt.Sprintf("%s: %s", msg, string(raw))
		}
		return &RemoteError{StatusCode: status, Message: msg}
	}

	if len(parsed.Cause) > 0 {
		lines := make([]string, 0, len(parsed.Cause))
		for _, c := range parsed.Cause {
			reason := c.Message
			if reason == "" {
				reason = strings.Trim(string(c.Code), `"`)
			}
			lines = append(lines, fmt.Sprintf("%s → %s", c.Field, reason))
		}
		return &RemoteError{StatusCode: status, Message: strings.Join(lines, "\n"), Causes: parsed.Cause}
	}

	if parsed.Message != "" {
		return &RemoteError{StatusCode: status, Message: parsed.Message}
	}

	if len(parsed.Err) > 0 {
		return &RemoteError{StatusCode: status, Message: strings.Trim(string(parsed.Err), `"`)}
	}

	return &RemoteError{StatusCode: status, Message: fmt.Sprintf("remote service returned status %d", status)}
}
