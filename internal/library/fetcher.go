// Package library fetches the shared code a check prepends to its own.
// References are local paths, file:// URLs, http(s) URLs, or
// github:owner/repo/path[@ref].
package library

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

var ErrFetch = errors.New("library fetch failed")

// maxLibrarySize caps a single library body.
const maxLibrarySize = 8 << 20

const DefaultTimeout = 30 * time.Second

// GitHubReader reads a file from a GitHub repository.
type GitHubReader interface {
	FileContents(ctx context.Context, owner, repo, path, ref string) (string, *http.Response, error)
}

type Options struct {
	HTTPClient *http.Client
	GitHub     GitHubReader
	Timeout    time.Duration
	Logger     *slog.Logger
}

type Fetcher struct {
	http    *http.Client
	github  GitHubReader
	budget  *Budget
	timeout time.Duration
	logger  *slog.Logger
	cache   *Cache
	group   Group
}

func NewFetcher(opts Options) *Fetcher {
	f := &Fetcher{
		http:    opts.HTTPClient,
		github:  opts.GitHub,
		budget:  NewBudget(),
		timeout: opts.Timeout,
		logger:  opts.Logger,
		cache:   NewCache(),
	}
	if f.http == nil {
		f.http = http.DefaultClient
	}
	if f.timeout <= 0 {
		f.timeout = DefaultTimeout
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	return f
}

// Fetch returns the text behind ref. Remote content is cached for the
// lifetime of the Fetcher; local files are read on every call.
func (f *Fetcher) Fetch(ctx context.Context, ref string) (string, error) {
	if ctx == nil {
		return "", fmt.Errorf("%w: nil context", ErrFetch)
	}
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("%w: empty reference", ErrFetch)
	}
	loc, err := parseRef(ref)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrFetch, ref, err)
	}
	if loc.kind == kindFile {
		text, err := readFile(loc.path)
		if err != nil {
			return "", fmt.Errorf("%w: %s: %w", ErrFetch, ref, err)
		}
		return text, nil
	}

	if text, ok := f.cache.Get(ref); ok {
		return text, nil
	}
	// The flight outlives any one caller: it runs on a context detached from
	// the caller's cancellation, and each caller waits on its own ctx.
	flightCtx := context.WithoutCancel(ctx)
	ch := f.group.DoChan(ref, func() (string, error) {
		// A flight that finished between the cache miss and DoChan has filled it.
		if text, ok := f.cache.Get(ref); ok {
			return text, nil
		}
		ctx, cancel := context.WithTimeout(flightCtx, f.timeout)
		defer cancel()
		start := time.Now()
		text, err := f.fetchRemote(ctx, loc)
		f.logger.Debug("library fetched", "ref", ref, "duration", time.Since(start), "error", err)
		if err == nil {
			f.cache.Set(ref, text)
		}
		return text, err
	})
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %s: %w", ErrFetch, ref, context.Cause(ctx))
	case res := <-ch:
		if res.err != nil {
			return "", fmt.Errorf("%w: %s: %w", ErrFetch, ref, res.err)
		}
		return res.text, nil
	}
}

// Assemble concatenates every library, in order, ahead of code.
func (f *Fetcher) Assemble(ctx context.Context, refs []string, code string) (string, error) {
	if len(refs) == 0 {
		return code, nil
	}
	var b strings.Builder
	for _, ref := range refs {
		text, err := f.Fetch(ctx, ref)
		if err != nil {
			return "", err
		}
		b.WriteString(text)
		if !strings.HasSuffix(text, "\n") {
			b.WriteByte('\n')
		}
	}
	b.WriteString(code)
	return b.String(), nil
}

func (f *Fetcher) fetchRemote(ctx context.Context, loc location) (string, error) {
	switch loc.kind {
	case kindHTTP:
		return f.fetchHTTP(ctx, loc.url)
	case kindGitHub:
		return f.fetchGitHub(ctx, loc)
	default:
		return "", fmt.Errorf("unsupported reference kind %d", loc.kind)
	}
}

func (f *Fetcher) fetchHTTP(ctx context.Context, u string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	resp, err := f.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxLibrarySize+1))
	if err != nil {
		return "", err
	}
	if len(body) > maxLibrarySize {
		return "", fmt.Errorf("library larger than %d bytes", maxLibrarySize)
	}
	return string(body), nil
}

func (f *Fetcher) fetchGitHub(ctx context.Context, loc location) (string, error) {
	if f.github == nil {
		return "", errors.New("no GitHub client configured")
	}
	if err := f.budget.Acquire(ctx); err != nil {
		return "", err
	}
	text, resp, err := f.github.FileContents(ctx, loc.owner, loc.repo, loc.path, loc.ref)
	f.budget.Observe(resp)
	return text, err
}

type refKind int

const (
	kindFile refKind = iota
	kindHTTP
	kindGitHub
)

type location struct {
	kind  refKind
	path  string
	url   string
	owner string
	repo  string
	ref   string
}

func parseRef(ref string) (location, error) {
	if rest, ok := strings.CutPrefix(ref, "github:"); ok {
		target, gitRef, _ := strings.Cut(rest, "@")
		parts := strings.SplitN(strings.Trim(target, "/"), "/", 3)
		if len(parts) < 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
			return location{}, errors.New("want github:owner/repo/path[@ref]")
		}
		return location{kind: kindGitHub, owner: parts[0], repo: parts[1], path: parts[2], ref: gitRef}, nil
	}
	u, err := url.Parse(ref)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// Bare paths, including Windows drive letters.
		return location{kind: kindFile, path: ref}, nil
	}
	switch strings.ToLower(u.Scheme) {
	case "file":
		p := u.Path
		if p == "" {
			p = u.Opaque
		}
		return location{kind: kindFile, path: p}, nil
	case "http", "https":
		return location{kind: kindHTTP, url: ref}, nil
	default:
		return location{}, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
}

func readFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.Size() > maxLibrarySize {
		return "", fmt.Errorf("library larger than %d bytes", maxLibrarySize)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
