package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// StatusError is returned for non-200 upstream responses so callers can
// distinguish rate limiting from other failures.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.Code, e.URL)
}

// IsRateLimited reports whether err is an HTTP 429 from upstream.
func IsRateLimited(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusTooManyRequests
}

// getJSON performs a GET request and decodes the JSON body into out.
func getJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request %s: %w", url, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", url, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &StatusError{Code: resp.StatusCode, URL: url}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

// probeHeight extracts a chain height from any of the known response shapes:
// a top-level number, or one nested under data / sync / status / backend objects.
func probeHeight(raw map[string]any) (uint64, bool) {
	candidates := []string{"height", "blockHeight", "blocks", "bestHeight"}

	lookup := func(m map[string]any) (uint64, bool) {
		for _, key := range candidates {
			if v, ok := m[key]; ok {
				if h, ok := asUint64(v); ok {
					return h, true
				}
			}
		}
		return 0, false
	}

	if h, ok := lookup(raw); ok {
		return h, true
	}
	for _, nested := range []string{"data", "sync", "status", "backend"} {
		if m, ok := raw[nested].(map[string]any); ok {
			if h, ok := lookup(m); ok {
				return h, true
			}
		}
	}
	return 0, false
}

func asUint64(v any) (uint64, bool) {
	switch n := v.(type) {
	case float64:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil || i < 0 {
			return 0, false
		}
		return uint64(i), true
	case string:
		var parsed uint64
		if _, err := fmt.Sscanf(n, "%d", &parsed); err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}
