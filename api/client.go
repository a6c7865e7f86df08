// Package api is the client of the remote board REST API.
package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"taskboard/domain"
	"taskboard/session"
)

const (
	maxResponseSize = 4 << 20 // 4 MiB
	tracerName      = "taskboard/api"

	headerRequestID      = "X-Request-ID"
	headerIdempotencyKey = "Idempotency-Key"
)

// Options tune a Client. The zero value is usable.
type Options struct {
	HTTPClient     *http.Client
	Logger         *log.Logger
	TracerProvider trace.TracerProvider
	Timeout        time.Duration
}

// Client issues authenticated requests against the board API. Failed calls
// are never retried.
type Client struct {
	baseURL string
	http    *http.Client
	session session.Session
	logger  *log.Logger
	tracer  trace.Tracer
}

// New creates a Client for baseURL acting as sess.
func New(baseURL string, sess session.Session, opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	tp := opts.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
		session: sess,
		logger:  logger,
		tracer:  tp.Tracer(tracerName),
	}
}

// WithSession returns a copy of c acting as sess.
func (c *Client) WithSession(sess session.Session) *Client {
	cp := *c
	cp.session = sess
	return &cp
}

// Session returns the session the client acts as.
func (c *Client) Session() session.Session {
	return c.session
}

type request struct {
	op     string
	method string
	path   string
	body   any
	out    any
	public bool
}

func (c *Client) do(ctx context.Context, r request) (err error) {
	route := r.path
	if i := strings.IndexByte(route, '?'); i >= 0 {
		route = route[:i]
	}
	ctx, span := c.tracer.Start(ctx, "api."+r.op, trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", r.method),
			attribute.String("http.route", route),
		))
	requestID := uuid.NewString()
	metrics := newRequestMetrics(c.logger, r.op, r.method, route, requestID)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		metrics.Log(err)
	}()

	if !r.public {
		if c.session.Token == "" {
			return &Error{Op: r.op, Kind: domain.ErrUnauthorized, Message: "missing bearer token"}
		}
		if c.session.Expired(time.Now()) {
			return &Error{Op: r.op, Kind: domain.ErrUnauthorized, Message: "session expired"}
		}
	}

	var body io.Reader
	if r.body != nil {
		data, err := sonic.Marshal(r.body)
		if err != nil {
			return &Error{Op: r.op, Kind: domain.ErrValidation, Err: err}
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, body)
	if err != nil {
		return &Error{Op: r.op, Kind: domain.ErrTransport, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(headerRequestID, requestID)
	if r.method == http.MethodPost {
		req.Header.Set(headerIdempotencyKey, uuid.NewString())
	}
	if !r.public {
		req.Header.Set("Authorization", c.session.Authorization())
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Op: r.op, Kind: domain.ErrTransport, Err: err}
	}
	defer resp.Body.Close()
	metrics.SetStatus(resp.StatusCode)
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	metrics.SetBytes(len(payload))
	if err != nil {
		return &Error{Op: r.op, Status: resp.StatusCode, Kind: domain.ErrTransport, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{
			Op:      r.op,
			Status:  resp.StatusCode,
			Kind:    kindForStatus(resp.StatusCode),
			Message: serverMessage(payload),
		}
	}
	if r.out == nil || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	if err := sonic.Unmarshal(payload, r.out); err != nil {
		return &Error{Op: r.op, Status: resp.StatusCode, Kind: domain.ErrTransport, Message: "invalid response body", Err: err}
	}
	return nil
}
