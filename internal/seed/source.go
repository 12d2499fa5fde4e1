// Package seed fills an empty catalog from a published listings document.
package seed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"estatehub/pkg/models"
)

// Source is one place a seed document can come from. Fetch returns the raw
// JSON; decoding is left to the importer.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]byte, error)
}

const maxSeedBytes = 64 << 20

// HTTPSource downloads the seed from a URL, e.g. cmd/seed-server.
type HTTPSource struct {
	URL    string
	Client *http.Client
}

func NewHTTPSource(url string) *HTTPSource {
	return &HTTPSource{
		URL:    url,
		Client: &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *HTTPSource) Name() string { return "http " + s.URL }

func (s *HTTPSource) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("seed request: %w", models.ErrConfiguration)
	}
	req.Header.Set("Accept", "application/json")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	res, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("seed fetch: %w: %v", models.ErrTransient, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("seed fetch: status %d: %w", res.StatusCode, models.ErrTransient)
	}
	return io.ReadAll(io.LimitReader(res.Body, maxSeedBytes))
}

// FileSource reads the seed from disk.
type FileSource struct {
	Path string
}

func (s *FileSource) Name() string { return "file " + s.Path }

func (s *FileSource) Fetch(context.Context) ([]byte, error) {
	b, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("seed file: %w", err)
	}
	return b, nil
}
