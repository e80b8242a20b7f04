package quotation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"cctvstore/backend/internal/domain"
)

// Source produces the wire form of a price table.
type Source interface {
	Fetch(ctx context.Context) (domain.PriceTableDocument, error)
}

// SourceFunc adapts a plain function to Source.
type SourceFunc func(ctx context.Context) (domain.PriceTableDocument, error)

func (f SourceFunc) Fetch(ctx context.Context) (domain.PriceTableDocument, error) {
	return f(ctx)
}

const maxTableBytes = 1 << 20

// HTTPSource fetches the table from a JSON endpoint.
type HTTPSource struct {
	URL    string
	Client *http.Client
}

func NewHTTPSource(url string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPSource{URL: url, Client: &http.Client{Timeout: timeout}}
}

func (s *HTTPSource) Fetch(ctx context.Context) (domain.PriceTableDocument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return domain.PriceTableDocument{}, fmt.Errorf("build price table request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return domain.PriceTableDocument{}, fmt.Errorf("fetch price table: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.PriceTableDocument{}, fmt.Errorf("fetch price table: unexpected status %d", resp.StatusCode)
	}
	return DecodeDocument(io.LimitReader(resp.Body, maxTableBytes))
}

// FileSource reads the table from a JSON file.
type FileSource struct {
	Path string
}

func (s FileSource) Fetch(_ context.Context) (domain.PriceTableDocument, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return domain.PriceTableDocument{}, fmt.Errorf("open price table: %w", err)
	}
	defer f.Close()
	return DecodeDocument(f)
}

func DecodeDocument(r io.Reader) (domain.PriceTableDocument, error) {
	var doc domain.PriceTableDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return domain.PriceTableDocument{}, fmt.Errorf("decode price table: %w", err)
	}
	return doc, nil
}
