package client

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"s3courier/pkg/sign"
)

// Execute signs and dispatches one logical request, retrying 500/503
// responses with exponential backoff (100ms * 2^i before retry i+1) up to
// the configured attempt ceiling. Every attempt captures exactly one fresh
// timestamp, used for the x-amz-date header, the string-to-sign and the
// scope date; a stale signature is never reused across attempts.
//
// On success the response body is returned. Any other status, or a
// transient status after exhausting attempts, is an *ExecutionError.
func (c *Client) Execute(ctx context.Context, method, path string, query map[string][]string, headers map[string]string, body []byte) ([]byte, error) {
	if method != http.MethodGet && method != http.MethodPut {
		return nil, fmt.Errorf("client: unsupported method %q", method)
	}

	gzipped := false
	if c.gzipBody && method == http.MethodPut && len(body) > 0 {
		var err error
		body, err = gzipBytes(body)
		if err != nil {
			return nil, fmt.Errorf("client: gzip payload: %w", err)
		}
		gzipped = true
	}

	// The payload hash covers the bytes that go on the wire, so it is
	// computed after any payload transform.
	payloadHash := sign.EmptyPayloadHash
	if body != nil {
		payloadHash = sign.SHA256Hex(body)
	}

	creds, err := c.credentialsFor(ctx)
	if err != nil {
		return nil, err
	}

	ctx, span := c.tracer.Start(ctx, method+" "+path, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	attempts := 0
	defer func() {
		span.SetAttributes(
			attribute.String("http.method", method),
			attribute.String("http.target", path),
			attribute.Int("s3.attempts", attempts),
		)
	}()

	for attempt := 0; ; attempt++ {
		attempts = attempt + 1
		t := c.now()

		hdrs := make(map[string]string, len(headers)+6)
		for k, v := range headers {
			hdrs[k] = v
		}
		hdrs["Host"] = c.host
		hdrs["x-amz-date"] = t.UTC().Format(sign.TimeFormat)
		hdrs["x-amz-content-sha256"] = payloadHash
		if creds.SessionToken != "" {
			hdrs["x-amz-security-token"] = creds.SessionToken
		}
		if method == http.MethodPut && body != nil {
			hdrs["Content-Length"] = strconv.Itoa(len(body))
		}
		if gzipped {
			hdrs["Content-Encoding"] = "gzip"
		}

		canonical, signed := sign.BuildCanonicalRequest(method, path, query, hdrs, payloadHash)
		auth := sign.Sign(canonical, signed, creds, c.region, t)

		req, err := c.buildRequest(ctx, method, path, query, hdrs, auth, body)
		if err != nil {
			return nil, err
		}

		start := time.Now()
		if c.obs != nil {
			c.obs.AttemptStart(method)
		}
		status, respBody, err := dispatch(c.http, req)
		if c.obs != nil {
			c.obs.AttemptDone(method)
		}
		if err != nil {
			return nil, fmt.Errorf("client: %s %s: %w", method, path, err)
		}
		if c.obs != nil {
			c.obs.Request(method, status, time.Since(start))
		}

		if status >= 200 && status <= 299 {
			span.SetAttributes(attribute.Int("http.status_code", status))
			return respBody, nil
		}
		if (status == http.StatusInternalServerError || status == http.StatusServiceUnavailable) && attempt+1 < c.maxAttempts {
			if c.obs != nil {
				c.obs.Retry(method)
			}
			if err := c.sleep(ctx, baseBackoff*time.Duration(1<<attempt)); err != nil {
				return nil, err
			}
			continue
		}
		span.SetAttributes(attribute.Int("http.status_code", status))
		return nil, &ExecutionError{Status: status, Body: respBody}
	}
}

func (c *Client) buildRequest(ctx context.Context, method, path string, query map[string][]string, hdrs map[string]string, auth string, body []byte) (*http.Request, error) {
	// The wire path must be byte-identical to the canonical path the
	// signature covers. RawPath is only honored by net/url when it is a
	// valid encoding of Path, so Path is derived by unescaping the encoded
	// form rather than taken from the caller; a caller path carrying a
	// pre-escaped triplet would otherwise be escaped a second time.
	enc := sign.EncodePath(path)
	decoded, err := url.PathUnescape(enc)
	if err != nil {
		return nil, fmt.Errorf("client: encode path %q: %w", path, err)
	}
	u := &url.URL{
		Scheme:   "https",
		Host:     c.host,
		Path:     decoded,
		RawPath:  enc,
		RawQuery: sign.EncodeQuery(query),
	}
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return nil, fmt.Errorf("client: build request: %w", err)
	}
	for k, v := range hdrs {
		if strings.EqualFold(k, "Host") {
			req.Host = v
			continue
		}
		req.Header.Set(k, v)
	}
	req.Header.Set("Authorization", auth)
	if body != nil {
		req.ContentLength = int64(len(body))
	}
	return req, nil
}

func dispatch(d Doer, req *http.Request) (int, []byte, error) {
	resp, err := d.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func gzipBytes(b []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(b); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
