// Package github reads library code hosted in GitHub repositories.
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v81/github"
	"golang.org/x/oauth2"
)

type Client struct {
	API  *github.Client
	HTTP *http.Client
}

type options struct {
	logger  *slog.Logger
	baseURL string
	timeout time.Duration
}

type Option func(*options)

// WithLogger logs every API request and response at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithBaseURL points the client at a GitHub Enterprise or test server.
func WithBaseURL(raw string) Option {
	return func(o *options) { o.baseURL = raw }
}

func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

type loggingRoundTripper struct {
	base   http.RoundTripper
	logger *slog.Logger
}

func (t *loggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	t.logger.Debug("github request", "method", req.Method, "url", req.URL.String())
	resp, err := t.base.RoundTrip(req)
	dur := time.Since(start).Truncate(time.Millisecond)
	if err != nil {
		t.logger.Debug("github request failed", "duration", dur, "error", err)
		return resp, err
	}
	t.logger.Debug("github response", "status", resp.StatusCode, "duration", dur)
	return resp, err
}

func NewClient(ctx context.Context, token string, opts ...Option) (*Client, error) {
	if ctx == nil {
		return nil, fmt.Errorf("github client: ctx is nil")
	}
	o := &options{}
	for _, apply := range opts {
		if apply != nil {
			apply(o)
		}
	}

	transport := http.DefaultTransport
	if o.logger != nil {
		transport = &loggingRoundTripper{base: transport, logger: o.logger}
	}
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		transport = &oauth2.Transport{Source: ts, Base: transport}
	}
	hc := &http.Client{Transport: transport, Timeout: o.timeout}

	api := github.NewClient(hc)
	if o.baseURL != "" {
		u, err := url.Parse(strings.TrimSuffix(o.baseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("github client: base url: %w", err)
		}
		api.BaseURL = u
	}
	return &Client{API: api, HTTP: hc}, nil
}

// FileContents returns the decoded text of a file. An empty ref reads the
// repository's default branch.
func (c *Client) FileContents(ctx context.Context, owner, repo, path, ref string) (string, *http.Response, error) {
	var opts *github.RepositoryContentGetOptions
	if ref != "" {
		opts = &github.RepositoryContentGetOptions{Ref: ref}
	}
	file, dir, resp, err := c.API.Repositories.GetContents(ctx, owner, repo, path, opts)
	var raw *http.Response
	if resp != nil {
		raw = resp.Response
	}
	if err != nil {
		return "", raw, fmt.Errorf("get %s/%s/%s: %w", owner, repo, path, err)
	}
	if file == nil {
		return "", raw, fmt.Errorf("get %s/%s/%s: is a directory with %d entries", owner, repo, path, len(dir))
	}
	text, err := file.GetContent()
	if err != nil {
		return "", raw, fmt.Errorf("decode %s/%s/%s: %w", owner, repo, path, err)
	}
	return text, raw, nil
}
