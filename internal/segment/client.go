// Package segment talks to a rembg inference server. The server owns the
// model lifecycle; the first request after startup may block for minutes
// while the model is downloaded and compiled, which is expected and not an
// error.
package segment

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "go-rembg-clean/internal/errors"
)

// Segmenter produces an RGBA cut-out for the given encoded image bytes.
type Segmenter interface {
	Segment(ctx context.Context, data []byte, model string) (image.Image, error)
}

// Client implements Segmenter against the rembg server HTTP API
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a segmentation client for the given server base URL
func NewClient(baseURL string) *Client {
	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Transport: transport,
			// No client timeout: model load on the server makes the first
			// call unboundedly slow. Cancellation is the context's job.
		},
	}
}

// Segment posts the image bytes to the server and decodes the returned
// cut-out. Client-side errors (unreadable input, unknown model) are not
// retried; transport errors and server errors are retried with backoff.
func (c *Client) Segment(ctx context.Context, data []byte, model string) (image.Image, error) {
	endpoint := fmt.Sprintf("%s/api/remove?model=%s", c.baseURL, url.QueryEscape(model))

	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt < 3; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
		if err != nil {
			return nil, apperrors.NewSegmentationError("invalid request", err)
		}
		req.Header.Set("Content-Type", "application/octet-stream")
		req.Header.Set("Accept", "image/png")

		resp, err = c.client.Do(req)
		if err != nil {
			lastErr = err
			resp = nil
		} else if resp.StatusCode == http.StatusOK {
			break
		} else {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				// The server rejected the input or the model id; retrying
				// cannot help.
				return nil, apperrors.NewSegmentationError("segmentation rejected", lastErr)
			}
			resp = nil
		}

		if attempt < 2 {
			select {
			case <-ctx.Done():
				return nil, apperrors.NewSegmentationError("segmentation canceled", ctx.Err())
			case <-time.After(time.Duration(attempt+1) * time.Second):
			}
		}
	}

	if resp == nil {
		return nil, apperrors.NewSegmentationError("segmentation request failed after 3 attempts", lastErr)
	}
	defer resp.Body.Close()

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, apperrors.NewSegmentationError("failed to decode segmentation response", err)
	}
	return img, nil
}
