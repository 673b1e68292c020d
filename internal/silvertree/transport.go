package silvertree

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// DefaultUserAgent is sent when the caller does not configure one.
const DefaultUserAgent = "stc/0.1"

// requestIDHeader carries a per-request correlation id to the server.
const requestIDHeader = "X-Request-ID"

// response is a fully-read HTTP response. Bodies are small JSON documents,
// so reading them eagerly keeps error construction simple.
type response struct {
	status    int
	body      []byte
	requestID string
}

// transport executes single JSON requests. It never retries and never
// interprets status codes; callers decide what a non-200 means.
type transport struct {
	httpClient *http.Client
	userAgent  string
	logger     *slog.Logger
}

func newTransport(httpClient *http.Client, userAgent string, logger *slog.Logger) transport {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	if logger == nil {
		logger = slog.Default()
	}

	return transport{
		httpClient: httpClient,
		userAgent:  userAgent,
		logger:     logger,
	}
}

// exchange sends one request and reads the whole response. Only failures to
// obtain a response (DNS, connection reset, cancellation) are returned as
// errors, always of kind ErrTransport.
func (t transport) exchange(
	ctx context.Context,
	op, method, rawURL string,
	query url.Values,
	payload any,
	authorization string,
) (*response, error) {
	var body io.Reader

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, &Error{Op: op, Kind: ErrPrecondition, Message: "encoding request body", Cause: err}
		}

		body = bytes.NewReader(data)
	}

	if len(query) > 0 {
		rawURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, &Error{Op: op, Kind: ErrTransport, Cause: fmt.Errorf("creating request: %w", err)}
	}

	reqID := uuid.NewString()

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", t.userAgent)
	req.Header.Set(requestIDHeader, reqID)

	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		t.logger.Debug("request failed before response",
			slog.String("op", op),
			slog.String("method", method),
			slog.String("path", req.URL.Path),
			slog.String("error", err.Error()),
		)

		return nil, &Error{Op: op, Kind: ErrTransport, RequestID: reqID, Cause: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{
			Op:         op,
			Kind:       ErrTransport,
			StatusCode: resp.StatusCode,
			RequestID:  reqID,
			Cause:      fmt.Errorf("reading response body: %w", err),
		}
	}

	// Servers may echo or replace the correlation id.
	if echoed := resp.Header.Get(requestIDHeader); echoed != "" {
		reqID = echoed
	}

	t.logger.Debug("request completed",
		slog.String("op", op),
		slog.String("method", method),
		slog.String("path", req.URL.Path),
		slog.Int("status", resp.StatusCode),
		slog.String("request_id", reqID),
	)

	return &response{status: resp.StatusCode, body: data, requestID: reqID}, nil
}

// decodeJSON decodes a response body into a generic value, preserving
// numbers exactly. An empty or whitespace-only body decodes to nil.
func decodeJSON(data []byte) (any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}

	if dec.More() {
		return nil, fmt.Errorf("unexpected data after JSON value")
	}

	return v, nil
}

// joinURL appends path to base, tolerating a trailing slash on base.
func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + path
}
