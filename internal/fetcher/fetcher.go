// Package fetcher downloads store-locator pages and APIs politely: per-host
// rate limits, retries on transient failures and optional Cloudflare
// fingerprint bypass. It also streams CSV files for the dataset package.
package fetcher

import (
	"context"
	"io"
)

// Fetcher defines the interface extractors use to read remote data.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// GetJSON fetches the URL and decodes the JSON body into out.
	GetJSON(ctx context.Context, url string, out any) error

	// ResolveRedirect follows redirects from url without fetching the final
	// page and returns the last location.
	ResolveRedirect(ctx context.Context, url string) (string, error)
}
