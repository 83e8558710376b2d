// Package source fetches the raw dashboard document from where the index
// pipeline publishes it: an HTTP location or a local file.
package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/tidwall/jsonc"
)

// Source yields the raw snapshot document.
type Source interface {
	// Fetch returns the document bytes or an ErrDataUnavailable-wrapped error.
	Fetch(ctx context.Context) ([]byte, error)
	// Name labels the source in logs and metrics.
	Name() string
	// Location is the URL or path the document is read from.
	Location() string
}

const defaultMaxBytes = 16 << 20

// HTTPSource GETs the snapshot over HTTP.
type HTTPSource struct {
	baseURL   string
	target    *url.URL
	client    *http.Client
	cacheBust bool
	timeout   time.Duration
	maxBytes  int64
	now       func() time.Time
}

// NewHTTP creates an HTTP source for rawURL.
func NewHTTP(rawURL string, opts ...HTTPOption) (*HTTPSource, error) {
	s := &HTTPSource{
		client:   http.DefaultClient,
		maxBytes: defaultMaxBytes,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	target, err := url.Parse(rawURL)
	if err != nil || rawURL == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLocation, rawURL)
	}
	if !target.IsAbs() {
		if s.baseURL == "" {
			return nil, fmt.Errorf("%w: relative url %q without base url", ErrInvalidLocation, rawURL)
		}
		base, err := url.Parse(s.baseURL)
		if err != nil {
			return nil, fmt.Errorf("%w: base url %q", ErrInvalidLocation, s.baseURL)
		}
		target = base.ResolveReference(target)
	}
	s.target = target
	return s, nil
}

// Name implements Source.
func (s *HTTPSource) Name() string { return "http" }

// Location implements Source. It is the resolved URL without the
// cache-busting parameter.
func (s *HTTPSource) Location() string { return s.target.String() }

// Fetch implements Source.
func (s *HTTPSource) Fetch(ctx context.Context) ([]byte, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	u := *s.target
	if s.cacheBust {
		q := u.Query()
		q.Set("t", strconv.FormatInt(s.now().UnixMilli(), 10))
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrDataUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %w", ErrDataUnavailable, s.target, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: get %s: status %d", ErrDataUnavailable, s.target, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrDataUnavailable, err)
	}
	if int64(len(body)) > s.maxBytes {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", ErrDataUnavailable, s.maxBytes)
	}
	return body, nil
}

// FileSource reads the snapshot from disk. Comments and trailing commas are
// accepted, so hand-edited fixtures can be annotated.
type FileSource struct {
	path string
}

// NewFile creates a file source.
func NewFile(path string) (*FileSource, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidLocation)
	}
	return &FileSource{path: path}, nil
}

// Name implements Source.
func (s *FileSource) Name() string { return "file" }

// Location implements Source.
func (s *FileSource) Location() string { return s.path }

// Fetch implements Source.
func (s *FileSource) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrDataUnavailable, s.path, err)
	}
	return jsonc.ToJSON(data), nil
}

// New picks a FileSource when path is set, otherwise an HTTPSource.
func New(path, rawURL string, opts ...HTTPOption) (Source, error) {
	if path != "" {
		return NewFile(path)
	}
	return NewHTTP(rawURL, opts...)
}
