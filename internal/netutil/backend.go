package netutil

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// NewBackendSelector builds a selector over the configured backend base URLs.
// Earlier entries win ties.
func NewBackendSelector(baseURLs []string, timeout time.Duration) *MirrorSelector {
	sources := make([]MirrorSource, 0, len(baseURLs))
	for i, u := range baseURLs {
		name := u
		if parsed, err := url.Parse(u); err == nil && parsed.Host != "" {
			name = parsed.Host
		}
		sources = append(sources, MirrorSource{Name: name, URL: u, Priority: i})
	}
	return NewMirrorSelector(sources, "/", timeout, 10*time.Minute)
}

// BackendURL returns the best base URL, or an error when none is configured.
func BackendURL(ctx context.Context, sel *MirrorSelector) (string, error) {
	best := sel.GetBest(ctx)
	if best == nil {
		return "", fmt.Errorf("no backend base url configured")
	}
	return best.URL, nil
}
