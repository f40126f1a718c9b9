package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	apperrors "go-rembg-clean/internal/errors"
)

// Fetcher retrieves source image bytes from a remote URL
type Fetcher interface {
	Fetch(ctx context.Context, imageURL string) ([]byte, error)
}

// HTTPFetcher implements Fetcher over plain HTTP with bounded retries
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher creates an HTTP image fetcher
func NewHTTPFetcher() *HTTPFetcher {
	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &HTTPFetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		},
	}
}

// Fetch downloads the image bytes. Transport failures and 5xx responses are
// retried up to 3 attempts with linear backoff; 4xx responses are not.
func (h *HTTPFetcher) Fetch(ctx context.Context, imageURL string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt < 3; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
		if err != nil {
			return nil, apperrors.NewValidationError("invalid image URL", err)
		}
		req.Header.Set("Accept", "image/jpeg, image/png, image/webp, */*")

		resp, err := h.client.Do(req)
		if err != nil {
			lastErr = err
		} else {
			switch {
			case resp.StatusCode == http.StatusOK:
				data, err := io.ReadAll(resp.Body)
				resp.Body.Close()
				if err != nil {
					return nil, apperrors.NewNetworkError("failed to read image body", err)
				}
				return data, nil
			case resp.StatusCode >= 400 && resp.StatusCode < 500:
				resp.Body.Close()
				return nil, apperrors.NewNetworkError(
					fmt.Sprintf("client error: status code %d", resp.StatusCode), nil)
			default:
				resp.Body.Close()
				lastErr = fmt.Errorf("server error: status code %d", resp.StatusCode)
			}
		}

		if attempt < 2 {
			select {
			case <-ctx.Done():
				return nil, apperrors.NewNetworkError("fetch canceled", ctx.Err())
			case <-time.After(time.Duration(attempt+1) * time.Second):
			}
		}
	}

	return nil, apperrors.NewNetworkError("failed to fetch image after 3 attempts", lastErr)
}
