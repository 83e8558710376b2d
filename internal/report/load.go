// Package report prints the derived IPA27 views of a running service or of a
// snapshot file as tables, JSON or YAML.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/okian/ipa27/internal/domain/derive"
	"github.com/okian/ipa27/internal/domain/snapshot"
	"github.com/okian/ipa27/internal/domain/types"
	"github.com/tidwall/jsonc"
)

// Remote reports whether src names a service rather than a file.
func Remote(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}

// Load returns the views named by cfg.Source.
func Load(ctx context.Context, cfg *Config) (derive.Views, []string, error) {
	if Remote(cfg.Source) {
		v, err := fetchViews(ctx, cfg)
		return v, nil, err
	}
	return deriveFile(cfg)
}

// deriveFile decodes a snapshot document and derives its views locally. The
// invariant warnings of the document are returned alongside.
func deriveFile(cfg *Config) (derive.Views, []string, error) {
	data, err := os.ReadFile(cfg.Source)
	if err != nil {
		return derive.Views{}, nil, fmt.Errorf("read %s: %w", cfg.Source, err)
	}
	snap, err := snapshot.Decode(jsonc.ToJSON(data))
	if err != nil {
		return derive.Views{}, nil, err
	}
	t := derive.New(
		derive.WithFallbackReference(cfg.FallbackReference),
		derive.WithIndicatorReference(cfg.IndicatorReference),
	)
	return t.All(snap), snap.Validate(), nil
}

func fetchViews(ctx context.Context, cfg *Config) (derive.Views, error) {
	base, err := url.Parse(cfg.Source)
	if err != nil {
		return derive.Views{}, fmt.Errorf("source %q: %w", cfg.Source, err)
	}
	target := base.JoinPath("api", "views")

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), http.NoBody)
	if err != nil {
		return derive.Views{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return derive.Views{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return derive.Views{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var e types.ErrorResponse
		if jerr := json.Unmarshal(body, &e); jerr == nil && e.Code != "" {
			return derive.Views{}, fmt.Errorf("%w: %d %s: %s", ErrRemote, resp.StatusCode, e.Code, e.Message)
		}
		return derive.Views{}, fmt.Errorf("%w: status %d", ErrRemote, resp.StatusCode)
	}

	var v derive.Views
	if err := json.Unmarshal(body, &v); err != nil {
		return derive.Views{}, fmt.Errorf("failed to decode views: %w", err)
	}
	return v, nil
}
