package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ghltech15/fault-watch-sub001/internal/domain"
)

const maxFeedBody = 1 << 20 // upstream payloads are small; cap reads at 1MiB

// httpFeed is the shared transport half of every live adapter: one
// upstream, one client, typed errors at the boundary.
type httpFeed struct {
	source domain.SourceID
	client *http.Client
}

func newHTTPFeed(source domain.SourceID, client *http.Client) httpFeed {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return httpFeed{source: source, client: client}
}

// getJSON fetches url and decodes the body into v. Network and non-2xx
// outcomes become TransportError, undecodable bodies SchemaError; nothing
// else escapes.
func (f httpFeed) getJSON(ctx context.Context, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &domain.TransportError{Source: f.source, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return &domain.TransportError{Source: f.source, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxFeedBody))
		return &domain.TransportError{Source: f.source, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBody))
	if err != nil {
		return &domain.TransportError{Source: f.source, Err: err}
	}
	if err := json.Unmarshal(body, v); err != nil {
		return &domain.SchemaError{Source: f.source, Reason: "undecodable JSON body", Err: err}
	}
	return nil
}

func (f httpFeed) schemaErr(format string, args ...any) error {
	return &domain.SchemaError{Source: f.source, Reason: fmt.Sprintf(format, args...)}
}
