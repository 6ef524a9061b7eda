// Package client calls the authenticated cart API and the product catalog.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// HTTPDoer executes HTTP requests.
// Both httpclient.Client and httpclient.CircuitBreakerClient satisfy this.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// envelope is the {"data": ...} wrapper used by the upstream APIs.
type envelope[T any] struct {
	Data T `json:"data"`
}

func decodeData[T any](resp *http.Response, what string) (T, error) {
	var env envelope[T]
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		var zero T
		return zero, fmt.Errorf("decode %s response: %w", what, err)
	}
	return env.Data, nil
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + path
}
