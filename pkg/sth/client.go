package sth

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/google/certificate-transparency-go/client"
	"github.com/google/certificate-transparency-go/jsonclient"
	"github.com/google/trillian/client/backoff"
)

const userAgent = "ctwrangler/1.0"

// Options configure a CTQuerier. Zero values are replaced by the defaults.
type Options struct {
	// MaxAttempts is the number of get-sth requests before giving up.
	MaxAttempts int
	// AttemptTimeout bounds each individual request.
	AttemptTimeout time.Duration
	// MinBackoff and MaxBackoff bound the wait between attempts, which doubles each time.
	MinBackoff time.Duration
	MaxBackoff time.Duration
	// HTTPClient is used for all requests. If nil, a client like the one used by
	// the CT tooling is created.
	HTTPClient *http.Client
}

func DefaultOptions() Options {
	return Options{
		MaxAttempts:    5,
		AttemptTimeout: 30 * time.Second,
		MinBackoff:     time.Second,
		MaxBackoff:     30 * time.Second,
	}
}

// CTQuerier queries get-sth using the certificate-transparency-go client, retrying with a
// bounded exponential backoff.
type CTQuerier struct {
	opts Options

	clientsMu sync.Mutex
	clients   map[string]*client.LogClient // Indexed by log URL.
}

var _ Querier = (*CTQuerier)(nil)

func NewCTQuerier(opts Options) *CTQuerier {
	def := DefaultOptions()
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = def.MaxAttempts
	}
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = def.AttemptTimeout
	}
	if opts.MinBackoff <= 0 {
		opts.MinBackoff = def.MinBackoff
	}
	if opts.MaxBackoff < opts.MinBackoff {
		opts.MaxBackoff = opts.MinBackoff
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = newHTTPClient()
	}
	return &CTQuerier{
		opts:    opts,
		clients: make(map[string]*client.LogClient),
	}
}

func newHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			TLSHandshakeTimeout:   30 * time.Second,
			ResponseHeaderTimeout: 30 * time.Second,
			MaxIdleConnsPerHost:   10,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
			TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
		},
	}
}

// GetSTH returns the current tree head of the log at logURL. The last error is returned,
// wrapped, once all attempts have failed or the context is done.
func (q *CTQuerier) GetSTH(ctx context.Context, logURL string) (*STH, error) {
	c, err := q.logClient(logURL)
	if err != nil {
		return nil, err
	}
	bo := backoff.Backoff{
		Min:    q.opts.MinBackoff,
		Max:    q.opts.MaxBackoff,
		Factor: 2,
		Jitter: true,
	}

	var lastErr error
	for attempt := 1; attempt <= q.opts.MaxAttempts; attempt++ {
		s, err := q.attempt(ctx, c)
		if err == nil {
			return s, nil
		}
		lastErr = err
		if ctx.Err() != nil || attempt == q.opts.MaxAttempts {
			break
		}
		wait := bo.Duration()
		glog.Warningf("get-sth %s attempt %d/%d failed, retrying in %s: %v",
			logURL, attempt, q.opts.MaxAttempts, wait, err)
		select {
		case <-ctx.Done():
		case <-time.After(wait):
		}
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("get-sth %s: %w (last error: %v)", logURL, ctx.Err(), lastErr)
	}
	return nil, fmt.Errorf("get-sth %s failed after %d attempts: %w",
		logURL, q.opts.MaxAttempts, lastErr)
}

func (q *CTQuerier) attempt(ctx context.Context, c *client.LogClient) (*STH, error) {
	ctx, cancel := context.WithTimeout(ctx, q.opts.AttemptTimeout)
	defer cancel()
	s, err := c.GetSTH(ctx)
	if err != nil {
		return nil, err
	}
	return FromSignedTreeHead(s), nil
}

func (q *CTQuerier) logClient(logURL string) (*client.LogClient, error) {
	// The CT client appends "/ct/v1/..." to the base URL.
	logURL = strings.TrimRight(logURL, "/")
	q.clientsMu.Lock()
	defer q.clientsMu.Unlock()
	if c, ok := q.clients[logURL]; ok {
		return c, nil
	}
	c, err := client.New(logURL, q.opts.HTTPClient, jsonclient.Options{UserAgent: userAgent})
	if err != nil {
		return nil, fmt.Errorf("creating CT client for %s: %w", logURL, err)
	}
	q.clients[logURL] = c
	return c, nil
}
