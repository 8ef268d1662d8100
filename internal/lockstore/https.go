package lockstore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/depfix-tools/depfix/internal/errors"
)

// HTTPSStore fetches lock documents from an HTTP(S) base URL. Plain web
// servers cannot accept uploads, so Put returns manual instructions.
type HTTPSStore struct {
	baseURL string
	client  *http.Client
}

// NewHTTPSStore creates a fetch-only store for an HTTP(S) base URL.
func NewHTTPSStore(baseURL string) *HTTPSStore {
	return &HTTPSStore{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Protocol returns "https".
func (s *HTTPSStore) Protocol() string {
	return "https"
}

// Put is unsupported for plain HTTP(S) stores.
func (s *HTTPSStore) Put(_ context.Context, name string, _ []byte) error {
	return errors.NewLockError(s.baseURL, "store",
		fmt.Errorf("HTTPS stores are fetch-only; upload %s to %s manually", name, s.baseURL))
}

// Get downloads a document from the base URL.
func (s *HTTPSStore) Get(ctx context.Context, name string) ([]byte, error) {
	target := s.baseURL + "/" + name

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errors.NewLockError(target, "fetch", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.NewLockError(target, "fetch", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, errors.NewNotFoundError("lock document", target)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewLockError(target, "fetch",
			fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewLockError(target, "fetch", err)
	}
	return data, nil
}
