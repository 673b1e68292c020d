package silvertree

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// CredentialSource supplies the Authorization header for resource requests.
// *Session implements it; the Client borrows whatever credential is current
// at the moment each request is built.
type CredentialSource interface {
	AuthorizationHeader() string
}

// Document is a JSON object sent as a request body. Its schema is opaque to
// the client.
type Document map[string]any

// Filter is an opaque key/value mapping forwarded as query parameters.
type Filter map[string]any

// Client issues document-store operations against the resource service.
// It never retries; see Recover for the refresh-and-retry policy.
type Client struct {
	baseURL string
	creds   CredentialSource
	wire    transport
	logger  *slog.Logger
}

// NewClient creates a resource client. baseURL is the resource service root,
// e.g. "https://st.example.com".
func NewClient(baseURL string, httpClient *http.Client, creds CredentialSource, userAgent string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		wire:    newTransport(httpClient, userAgent, logger),
		logger:  logger,
	}
}

// call is the single request path shared by every operation: one HTTP
// exchange, 200 decodes the body, anything else becomes an ErrOperation.
func (c *Client) call(ctx context.Context, op, method, path string, query url.Values, body any) (any, error) {
	authorization := ""
	if c.creds != nil {
		authorization = c.creds.AuthorizationHeader()
	}

	resp, err := c.wire.exchange(ctx, op, method, c.baseURL+path, query, body, authorization)
	if err != nil {
		return nil, err
	}

	if resp.status != http.StatusOK {
		c.logger.Debug("operation rejected",
			slog.String("op", op),
			slog.Int("status", resp.status),
			slog.String("request_id", resp.requestID),
		)

		return nil, statusError(op, ErrOperation, resp)
	}

	v, err := decodeJSON(resp.body)
	if err != nil {
		e := statusError(op, ErrOperation, resp)
		e.Cause = fmt.Errorf("decoding response: %w", err)

		return nil, e
	}

	return v, nil
}

// resourcePath joins escaped path segments. Every segment is required; an
// empty one is reported as a precondition failure naming field.
func resourcePath(op string, segments ...pathSegment) (string, error) {
	var b strings.Builder

	for _, seg := range segments {
		if seg.literal {
			b.WriteString("/" + seg.value)
			continue
		}

		if seg.value == "" {
			return "", preconditionError(op, seg.field+" is required")
		}

		b.WriteString("/" + url.PathEscape(seg.value))
	}

	return b.String(), nil
}

type pathSegment struct {
	field   string
	value   string
	literal bool
}

func databaseSeg(name string) pathSegment   { return pathSegment{field: "database", value: name} }
func collectionSeg(name string) pathSegment { return pathSegment{field: "collection", value: name} }
func idSeg(value string) pathSegment        { return pathSegment{field: "id", value: value} }
func literalSeg(value string) pathSegment   { return pathSegment{value: value, literal: true} }

// encodeFilter converts a Filter into query parameters. Strings pass through
// unchanged, arrays become repeated keys, nulls are dropped and nested
// objects are sent as compact JSON.
func encodeFilter(op string, f Filter) (url.Values, error) {
	values := make(url.Values, len(f))

	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	for _, k := range keys {
		v := f[k]

		if items, ok := listItems(v); ok {
			for _, item := range items {
				s, keep, err := queryValue(item)
				if err != nil {
					return nil, &Error{Op: op, Kind: ErrPrecondition, Message: "encoding filter key " + k, Cause: err}
				}

				if keep {
					values.Add(k, s)
				}
			}

			continue
		}

		s, keep, err := queryValue(v)
		if err != nil {
			return nil, &Error{Op: op, Kind: ErrPrecondition, Message: "encoding filter key " + k, Cause: err}
		}

		if keep {
			values.Add(k, s)
		}
	}

	return values, nil
}

// listItems returns the elements of any slice or array value. Byte slices
// are scalars and encode as JSON.
func listItems(v any) ([]any, bool) {
	if items, ok := v.([]any); ok {
		return items, true
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}

	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}

	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}

	return items, true
}

// queryValue renders one scalar filter value. keep is false for null.
func queryValue(v any) (string, bool, error) {
	switch x := v.(type) {
	case nil:
		return "", false, nil
	case string:
		return x, true, nil
	case bool:
		return strconv.FormatBool(x), true, nil
	case json.Number:
		return x.String(), true, nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true, nil
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), true, nil
	case int:
		return strconv.Itoa(x), true, nil
	case int64:
		return strconv.FormatInt(x, 10), true, nil
	case fmt.Stringer:
		return x.String(), true, nil
	default:
		data, err := json.Marshal(x)
		if err != nil {
			return "", false, err
		}

		return string(data), true, nil
	}
}
