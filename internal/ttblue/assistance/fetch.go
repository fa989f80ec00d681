// Package assistance fetches the GPS QuickFix assistance blob that the sync
// writes into the device's file 0x00010100 to speed up its next satellite
// lock. This is
// the one piece of the sync sequence that talks to the network instead of
// the device; it is kept out of the core protocol package entirely.
package assistance

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// DefaultURL is the quickfix feed the device's companion app uses.
const DefaultURL = "http://gpsquickfix.services.tomtom.com/fitness/sifgps.f2p3enc.ee"

// Fetcher retrieves the assistance blob over HTTP.
type Fetcher struct {
	URL    string
	Client *http.Client
}

// New builds a Fetcher against DefaultURL using http.DefaultClient.
func New() *Fetcher {
	return &Fetcher{URL: DefaultURL, Client: http.DefaultClient}
}

// Fetch downloads the current assistance blob.
func (f *Fetcher) Fetch(ctx context.Context) ([]byte, error) {
	url := f.URL
	if url == "" {
		url = DefaultURL
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("assistance: build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("assistance: fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("assistance: fetch %s: unexpected status %s", url, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("assistance: read response body: %w", err)
	}
	return body, nil
}
