// Package gateway is the HTTP client for the warehouse's remote functions.
// Mutations that cannot reach the server are handed to the offline queue
// instead of failing.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bandungraya/gudang/internal/queue"
	"github.com/google/uuid"
)

// DefaultTimeout bounds a single request
const DefaultTimeout = 15 * time.Second

// Sentinel errors
var (
	ErrAuthRequired = errors.New("authentication required")
	ErrUnreachable  = errors.New("server unreachable")
	ErrNotQueued    = errors.New("request could not be delivered or queued")
)

// ErrSessionExpired means a session exists but its token could not be
// renewed. It wraps ErrAuthRequired. Offline mutations are still queued
// under it and get a fresh token on replay.
var ErrSessionExpired = fmt.Errorf("%w: session expired", ErrAuthRequired)

// IdempotencyHeader is set on every request captured for later delivery
const IdempotencyHeader = "Idempotency-Key"

// TokenSource supplies the bearer credential of the active session.
// It returns an error wrapping ErrAuthRequired when no valid session exists,
// and one wrapping ErrSessionExpired when the session could not be renewed.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Enqueuer durably stores a request for later delivery
type Enqueuer interface {
	Enqueue(ctx context.Context, r queue.Request) (int64, error)
}

// APIError is a non-success answer from the server
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code != "" && e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("HTTP error! Status: %d", e.Status)
}

// Response is the outcome of a call. Exactly one of Data and Err is set,
// except that a queued mutation has Data {"queued":true} and Queued set.
type Response struct {
	Data   json.RawMessage
	Err    error
	Status int
	// Queued means the request did not reach the server and was stored for
	// replay. It is neither a success nor a failure.
	Queued bool
	// Unreachable means no response was received and nothing was queued
	Unreachable bool
}

// OK reports whether the server accepted the request now
func (r Response) OK() bool {
	return r.Err == nil && !r.Queued
}

// Decode unmarshals Data into v
func (r Response) Decode(v any) error {
	if r.Err != nil {
		return r.Err
	}
	if len(r.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Data, v); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

var queuedData = json.RawMessage(`{"queued":true}`)

// Client calls remote functions under BaseURL (…/functions/v1)
type Client struct {
	BaseURL string
	AnonKey string
	HTTP    *http.Client
	Tokens  TokenSource
	Queue   Enqueuer

	// OnQueued, when set, is called after a request was queued
	OnQueued func(id int64)
	// Offline, when set and true, skips the network: mutations are queued
	// directly and reads fail with ErrUnreachable.
	Offline func() bool
}

// New creates a gateway client
func New(baseURL, anonKey string, tokens TokenSource, q Enqueuer) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		AnonKey: anonKey,
		HTTP:    &http.Client{Timeout: DefaultTimeout},
		Tokens:  tokens,
		Queue:   q,
	}
}

// Call sends payload to the named function. GET payloads become the query
// string; other methods send JSON. A non-GET request that cannot reach the
// server is queued.
func (c *Client) Call(ctx context.Context, method, endpoint string, payload any) Response {
	method = strings.ToUpper(method)
	return c.call(ctx, method, endpoint, payload, method != http.MethodGet)
}

// Fetch is Call for read-only requests: it is never queued, whatever the
// method.
func (c *Client) Fetch(ctx context.Context, method, endpoint string, payload any) Response {
	return c.call(ctx, strings.ToUpper(method), endpoint, payload, false)
}

func (c *Client) call(ctx context.Context, method, endpoint string, payload any, queueable bool) Response {
	offline := c.Offline != nil && c.Offline()
	token, err := c.token(ctx)
	if err != nil && !(offline && queueable && errors.Is(err, ErrSessionExpired)) {
		return Response{Err: err}
	}

	target := c.BaseURL + "/" + strings.TrimLeft(endpoint, "/")
	var body []byte
	if payload != nil {
		if method == http.MethodGet {
			q, err := encodeQuery(payload)
			if err != nil {
				return Response{Err: err}
			}
			if len(q) > 0 {
				target += "?" + q.Encode()
			}
		} else {
			body, err = json.Marshal(payload)
			if err != nil {
				return Response{Err: fmt.Errorf("marshal request: %w", err)}
			}
		}
	}

	headers := c.headers(token)
	if body != nil {
		headers["Content-Type"] = "application/json"
	}

	if offline {
		if queueable {
			return c.enqueue(ctx, method, target, headers, body, ErrUnreachable)
		}
		return Response{Err: ErrUnreachable, Unreachable: true}
	}

	resp := c.doRequest(ctx, method, target, headers, body)
	if resp.Unreachable && queueable {
		return c.enqueue(ctx, method, target, headers, body, resp.Err)
	}
	return resp
}

func (c *Client) token(ctx context.Context) (string, error) {
	if c.Tokens == nil {
		return "", ErrAuthRequired
	}
	token, err := c.Tokens.Token(ctx)
	if err != nil {
		if errors.Is(err, ErrAuthRequired) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrAuthRequired, err)
	}
	if token == "" {
		return "", ErrAuthRequired
	}
	return token, nil
}

func (c *Client) headers(token string) map[string]string {
	h := map[string]string{}
	if token != "" {
		h["Authorization"] = "Bearer " + token
	}
	if c.AnonKey != "" {
		h["apikey"] = c.AnonKey
	}
	return h
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

func (c *Client) doRequest(ctx context.Context, method, target string, headers map[string]string, body []byte) Response {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return Response{Err: fmt.Errorf("create request: %w", err)}
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.send(ctx, req)
}

// send executes req. An error with no response and a live context counts
// as a network failure.
func (c *Client) send(ctx context.Context, req *http.Request) Response {
	resp, err := c.httpClient().Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return Response{Err: ctx.Err()}
		}
		slog.Debug("gateway: request failed", "method", req.Method, "url", req.URL.Redacted(), "err", err)
		return Response{Err: fmt.Errorf("%w: %v", ErrUnreachable, err), Unreachable: true}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{Err: fmt.Errorf("read response: %w", err), Status: resp.StatusCode}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Response{Err: parseError(resp.StatusCode, respBody), Status: resp.StatusCode}
	}
	if len(bytes.TrimSpace(respBody)) == 0 {
		respBody = []byte("null")
	}
	return Response{Data: respBody, Status: resp.StatusCode}
}

// parseError builds an APIError from an error body. The message comes from
// the "error", "message" or "msg" field, whichever is present.
func parseError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status}
	var env struct {
		Error            json.RawMessage `json:"error"`
		ErrorDescription string          `json:"error_description"`
		Message          string          `json:"message"`
		Msg              string          `json:"msg"`
		Code             json.RawMessage `json:"code"`
	}
	if json.Unmarshal(body, &env) != nil {
		return apiErr
	}
	if len(env.Error) > 0 {
		var s string
		if json.Unmarshal(env.Error, &s) == nil {
			apiErr.Message = s
		} else {
			var nested struct {
				Message string `json:"message"`
			}
			if json.Unmarshal(env.Error, &nested) == nil {
				apiErr.Message = nested.Message
			}
		}
	}
	for _, m := range []string{env.Message, env.Msg} {
		if apiErr.Message == "" {
			apiErr.Message = m
		}
	}
	if env.ErrorDescription != "" && apiErr.Message != env.ErrorDescription {
		if apiErr.Code == "" {
			apiErr.Code = apiErr.Message
		}
		apiErr.Message = env.ErrorDescription
	}
	if len(env.Code) > 0 {
		apiErr.Code = strings.Trim(string(env.Code), `"`)
	}
	return apiErr
}

func (c *Client) enqueue(ctx context.Context, method, target string, headers map[string]string, body []byte, cause error) Response {
	if c.Queue == nil {
		return Response{Err: fmt.Errorf("%w: %v", ErrNotQueued, cause), Unreachable: true}
	}
	captured := make(map[string]string, len(headers)+1)
	for k, v := range headers {
		captured[k] = v
	}
	captured[IdempotencyHeader] = uuid.NewString()

	id, err := c.Queue.Enqueue(ctx, queue.Request{
		URL:     target,
		Method:  method,
		Headers: captured,
		Body:    string(body),
	})
	if err != nil {
		slog.Warn("gateway: could not queue request", "method", method, "url", target, "err", err)
		return Response{Err: fmt.Errorf("%w: %v", ErrNotQueued, err), Unreachable: true}
	}
	slog.Info("gateway: offline, request queued", "id", id, "method", method, "url", target)
	if c.OnQueued != nil {
		c.OnQueued(id)
	}
	return Response{Data: queuedData, Queued: true}
}

// encodeQuery flattens a struct or map payload into query parameters.
// Nested values are sent as JSON.
func encodeQuery(payload any) (url.Values, error) {
	if v, ok := payload.(url.Values); ok {
		return v, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("query payload must be an object: %w", err)
	}

	q := url.Values{}
	for k, v := range m {
		switch val := v.(type) {
		case nil:
			continue
		case string:
			q.Set(k, val)
		case json.Number:
			q.Set(k, val.String())
		case bool:
			q.Set(k, fmt.Sprint(val))
		default:
			nested, err := json.Marshal(val)
			if err != nil {
				return nil, fmt.Errorf("marshal query field %s: %w", k, err)
			}
			q.Set(k, string(nested))
		}
	}
	return q, nil
}

// ReplayDoer returns a Doer for queue replay. Each replayed request gets the
// current bearer token, since the one captured at enqueue time may have
// expired.
func (c *Client) ReplayDoer() queue.Doer {
	return replayDoer{c: c}
}

type replayDoer struct {
	c *Client
}

// Do sends req with a current bearer token. A request captured without a
// token is held back until the user logs in again.
func (d replayDoer) Do(req *http.Request) (*http.Response, error) {
	token, err := d.c.token(req.Context())
	switch {
	case err == nil:
		req.Header.Set("Authorization", "Bearer "+token)
	case req.Header.Get("Authorization") == "":
		return nil, err
	}
	return d.c.httpClient().Do(req)
}
