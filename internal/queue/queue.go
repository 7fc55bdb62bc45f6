// Package queue persists mutations that could not reach the server and
// replays them, oldest first, once connectivity returns.
package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bandungraya/gudang/internal/db"
)

// maxResponseBody bounds how much of a rejection body is kept
const maxResponseBody = 64 << 10

// errUnsendable marks a stored request that cannot be turned into an HTTP
// request at all. It is resolved like a rejection, with status 0.
var errUnsendable = errors.New("request cannot be sent")

// Request is a captured HTTP request waiting for delivery
type Request struct {
	ID        int64             `json:"id"`
	URL       string            `json:"url"`
	Method    string            `json:"method"`
	Headers   map[string]string `json:"headers"`
	Body      string            `json:"body"`
	Timestamp time.Time         `json:"timestamp"`
}

// DeadLetter is a replayed request the server answered with a non-success
// status, or one that could not be sent at all (Status 0). It is kept for
// the user to inspect instead of being dropped.
type DeadLetter struct {
	ID         int64     `json:"id"`
	Request    Request   `json:"request"`
	Status     int       `json:"status"`
	Response   string    `json:"response"`
	RejectedAt time.Time `json:"rejected_at"`
}

// Doer sends a single HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ReplayResult summarizes one replay pass
type ReplayResult struct {
	Delivered int
	Rejected  []DeadLetter
	Remaining int
	// Aborted is set when a delivery failed before any response; the failed
	// request and everything after it stay queued.
	Aborted bool
	Err     error
}

// Queue is the durable offline mutation queue
type Queue struct {
	db          *db.DB
	deadLetters bool
	now         func() time.Time

	replayMu sync.Mutex
}

// New returns a queue backed by d. Dead-letter recording is on.
func New(d *db.DB) *Queue {
	return &Queue{db: d, deadLetters: true, now: time.Now}
}

// SetDeadLetters turns recording of server-rejected replays on or off.
// When off, rejected requests are simply removed.
func (q *Queue) SetDeadLetters(on bool) {
	q.deadLetters = on
}

// Enqueue appends r and returns its assigned id. Any storage failure is
// returned: the caller must tell the user the action was not saved.
func (q *Queue) Enqueue(ctx context.Context, r Request) (int64, error) {
	if r.URL == "" || r.Method == "" {
		return 0, fmt.Errorf("enqueue: url and method are required")
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = q.now()
	}
	headers, err := json.Marshal(nonNil(r.Headers))
	if err != nil {
		return 0, fmt.Errorf("enqueue: marshal headers: %w", err)
	}

	var id int64
	err = q.db.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO pending_requests (url, method, headers, body, timestamp) VALUES (?, ?, ?, ?, ?)`,
			r.URL, strings.ToUpper(r.Method), string(headers), r.Body, r.Timestamp.UnixMilli())
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("%w: enqueue: %v", db.ErrStorageUnavailable, err)
	}
	slog.Debug("queue: enqueued", "id", id, "method", r.Method, "url", r.URL)
	return id, nil
}

// ListPending returns all pending requests in FIFO order
func (q *Queue) ListPending(ctx context.Context) ([]Request, error) {
	rows, err := q.db.Conn().QueryContext(ctx,
		`SELECT id, url, method, headers, body, timestamp FROM pending_requests ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: list pending: %v", db.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	var out []Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Count returns the number of pending requests
func (q *Queue) Count(ctx context.Context) (int, error) {
	var n int
	if err := q.db.Conn().QueryRowContext(ctx, `SELECT COUNT(*) FROM pending_requests`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count pending: %v", db.ErrStorageUnavailable, err)
	}
	return n, nil
}

// Remove deletes a pending request. Removing an unknown id is a no-op.
func (q *Queue) Remove(ctx context.Context, id int64) error {
	return q.db.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM pending_requests WHERE id = ?`, id)
		return err
	})
}

// Replay re-issues every pending request in order. A success or any server
// answer resolves the request; a delivery error stops the pass and leaves
// that request and all later ones queued.
func (q *Queue) Replay(ctx context.Context, doer Doer) ReplayResult {
	q.replayMu.Lock()
	defer q.replayMu.Unlock()

	var res ReplayResult
	pending, err := q.ListPending(ctx)
	if err != nil {
		res.Err = err
		return res
	}

	for i, r := range pending {
		status, body, err := deliver(ctx, doer, r)
		if errors.Is(err, errUnsendable) {
			status, body, err = 0, err.Error(), nil
		}
		if err != nil {
			slog.Debug("queue: replay aborted", "id", r.ID, "err", err)
			res.Aborted = true
			res.Err = err
			res.Remaining = len(pending) - i
			return res
		}

		if status >= 200 && status < 300 {
			if err := q.Remove(ctx, r.ID); err != nil {
				res.Err = err
				res.Remaining = len(pending) - i
				return res
			}
			res.Delivered++
			continue
		}

		dl := DeadLetter{Request: r, Status: status, Response: body, RejectedAt: q.now()}
		if err := q.resolveRejected(ctx, &dl); err != nil {
			res.Err = err
			res.Remaining = len(pending) - i
			return res
		}
		slog.Warn("queue: replayed request rejected", "id", r.ID, "method", r.Method, "url", r.URL, "status", status)
		res.Rejected = append(res.Rejected, dl)
	}
	return res
}

// deliver sends r and returns the status and (truncated) body. A non-nil
// error means no response was received; errUnsendable means none ever will.
func deliver(ctx context.Context, doer Doer, r Request) (int, string, error) {
	var body io.Reader
	if r.Body != "" {
		body = strings.NewReader(r.Body)
	}
	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL, body)
	if err != nil {
		return 0, "", fmt.Errorf("%w: build request %d: %v", errUnsendable, r.ID, err)
	}
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}

	resp, err := doer.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	return resp.StatusCode, string(data), nil
}

// resolveRejected removes a rejected request and, when enabled, records it
// as a dead letter in the same transaction.
func (q *Queue) resolveRejected(ctx context.Context, dl *DeadLetter) error {
	return q.db.WithTx(ctx, func(tx *sql.Tx) error {
		if q.deadLetters {
			headers, _ := json.Marshal(nonNil(dl.Request.Headers))
			res, err := tx.ExecContext(ctx,
				`INSERT INTO dead_letters (request_id, url, method, headers, body, timestamp, status, response, rejected_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				dl.Request.ID, dl.Request.URL, dl.Request.Method, string(headers), dl.Request.Body,
				dl.Request.Timestamp.UnixMilli(), dl.Status, dl.Response, dl.RejectedAt.UnixMilli())
			if err != nil {
				return fmt.Errorf("record dead letter: %w", err)
			}
			dl.ID, _ = res.LastInsertId()
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM pending_requests WHERE id = ?`, dl.Request.ID)
		return err
	})
}

// ListDeadLetters returns recorded rejections, oldest first
func (q *Queue) ListDeadLetters(ctx context.Context) ([]DeadLetter, error) {
	rows, err := q.db.Conn().QueryContext(ctx,
		`SELECT id, request_id, url, method, headers, body, timestamp, status, response, rejected_at
		 FROM dead_letters ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: list dead letters: %v", db.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	var out []DeadLetter
	for rows.Next() {
		var dl DeadLetter
		var headers string
		var ts, rejectedAt int64
		if err := rows.Scan(&dl.ID, &dl.Request.ID, &dl.Request.URL, &dl.Request.Method, &headers,
			&dl.Request.Body, &ts, &dl.Status, &dl.Response, &rejectedAt); err != nil {
			return nil, err
		}
		dl.Request.Headers = decodeHeaders(headers)
		dl.Request.Timestamp = time.UnixMilli(ts)
		dl.RejectedAt = time.UnixMilli(rejectedAt)
		out = append(out, dl)
	}
	return out, rows.Err()
}

// ClearDeadLetters deletes all recorded rejections and returns how many
func (q *Queue) ClearDeadLetters(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM dead_letters`)
		if err != nil {
			return err
		}
		n, _ = res.RowsAffected()
		return nil
	})
	return n, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRequest(s scanner) (Request, error) {
	var r Request
	var headers string
	var ts int64
	if err := s.Scan(&r.ID, &r.URL, &r.Method, &headers, &r.Body, &ts); err != nil {
		return r, err
	}
	r.Headers = decodeHeaders(headers)
	r.Timestamp = time.UnixMilli(ts)
	return r, nil
}

func decodeHeaders(s string) map[string]string {
	h := map[string]string{}
	if err := json.Unmarshal([]byte(s), &h); err != nil {
		slog.Debug("queue: bad stored headers", "err", err)
	}
	return h
}

func nonNil(h map[string]string) map[string]string {
	if h == nil {
		return map[string]string{}
	}
	return h
}
