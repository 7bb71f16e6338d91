// Package images adapts the external binary object store to the ObjectStore
// capability the delivery client needs.
package images

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPStore fetches objects from a storage HTTP endpoint serving
// <base>/<escaped object path>?alt=media.
type HTTPStore struct {
	base string
	http *http.Client
}

func NewHTTPStore(baseURL string, timeout time.Duration) *HTTPStore {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPStore{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

func (s *HTTPStore) Open(ctx context.Context, objectPath string) (io.ReadCloser, error) {
	// The object path is a single encoded segment in the download URL.
	u := s.base + "/" + url.QueryEscape(objectPath) + "?alt=media"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("images: fetch %q: %w", objectPath, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("images: fetch %q: %s", objectPath, resp.Status)
	}
	return resp.Body, nil
}
