// Package client executes signed object-storage requests with bounded
// exponential backoff for transient server errors.
package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"s3courier/pkg/credentials"
	"s3courier/pkg/regions"
)

// DefaultMaxAttempts bounds the retry loop. With the 100ms*2^i backoff the
// worst case cumulative sleep is several hundred seconds; this is a ceiling
// against sustained throttling, not a deadline. Callers needing a hard
// deadline bound the whole call through ctx.
const DefaultMaxAttempts = 12

const baseBackoff = 100 * time.Millisecond

// Doer performs a single HTTP exchange. *http.Client satisfies it.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Observer receives request outcomes for instrumentation. Implementations
// must be safe for concurrent use. AttemptStart and AttemptDone bracket each
// dispatched attempt so an inflight gauge can track the exchange.
type Observer interface {
	AttemptStart(method string)
	AttemptDone(method string)
	Request(method string, status int, elapsed time.Duration)
	Retry(method string)
}

// ExecutionError reports a non-success response that was not retried, or a
// transient status that survived the full retry budget.
type ExecutionError struct {
	Status int
	Body   []byte
}

func (e *ExecutionError) Error() string {
	body := string(e.Body)
	if len(body) > 256 {
		body = body[:256] + "..."
	}
	return fmt.Sprintf("client: request failed with status %d: %s", e.Status, body)
}

// Client issues signed requests against a regional endpoint. It is safe for
// concurrent use; each Execute call runs its own sequential retry loop.
type Client struct {
	region      regions.Region
	creds       *credentials.Credentials
	resolver    *credentials.Resolver
	profile     string
	host        string
	maxAttempts int
	gzipBody    bool
	http        Doer
	obs         Observer
	tracer      trace.Tracer

	// Injected clock and sleeper so tests can reproduce signatures and
	// verify the backoff schedule without wall-clock delay.
	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// Option configures a Client.
type Option func(*Client)

// WithCredentials pins a static credential bundle, bypassing resolution.
func WithCredentials(c credentials.Credentials) Option {
	return func(cl *Client) { cl.creds = &c }
}

// WithResolver sets the resolver used when no static credentials are pinned.
func WithResolver(r *credentials.Resolver) Option {
	return func(cl *Client) { cl.resolver = r }
}

// WithProfile selects the named profile during credential resolution.
func WithProfile(name string) Option {
	return func(cl *Client) { cl.profile = name }
}

// WithEndpointHost overrides the regional endpoint host.
func WithEndpointHost(host string) Option {
	return func(cl *Client) { cl.host = host }
}

// WithMaxAttempts sets the retry ceiling. Values below 1 are ignored.
func WithMaxAttempts(n int) Option {
	return func(cl *Client) {
		if n >= 1 {
			cl.maxAttempts = n
		}
	}
}

// WithGzip compresses PUT payloads before signing and sets
// Content-Encoding: gzip. The signed payload hash covers the compressed
// bytes.
func WithGzip() Option {
	return func(cl *Client) { cl.gzipBody = true }
}

// WithHTTP sets the transport used for dispatch.
func WithHTTP(d Doer) Option {
	return func(cl *Client) { cl.http = d }
}

// WithObserver wires request/retry instrumentation.
func WithObserver(o Observer) Option {
	return func(cl *Client) { cl.obs = o }
}

// WithClock injects the time source and sleeper, for tests.
func WithClock(now func() time.Time, sleep func(context.Context, time.Duration) error) Option {
	return func(cl *Client) {
		cl.now = now
		cl.sleep = sleep
	}
}

// New builds a Client for a region.
func New(region regions.Region, opts ...Option) *Client {
	c := &Client{
		region:      region,
		host:        region.EndpointHost(),
		maxAttempts: DefaultMaxAttempts,
		http:        http.DefaultClient,
		tracer:      otel.Tracer("s3courier/client"),
		now:         time.Now,
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.resolver == nil {
		c.resolver = credentials.NewResolver()
	}
	return c
}

// GetObject retrieves bucket/key and returns the response body.
func (c *Client) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	return c.Execute(ctx, http.MethodGet, "/"+bucket+"/"+key, nil, nil, nil)
}

// PutObject uploads body to bucket/key.
func (c *Client) PutObject(ctx context.Context, bucket, key string, body []byte) error {
	_, err := c.Execute(ctx, http.MethodPut, "/"+bucket+"/"+key, nil, nil, body)
	return err
}

// credentialsFor returns the pinned bundle or resolves one. Credentials are
// resolved once per Execute call, not per attempt.
func (c *Client) credentialsFor(ctx context.Context) (credentials.Credentials, error) {
	if c.creds != nil {
		return *c.creds, nil
	}
	return c.resolver.Resolve(ctx, c.profile)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
