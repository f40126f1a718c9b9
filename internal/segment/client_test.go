package segment

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "go-rembg-clean/internal/errors"
)

func cutoutPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.SetNRGBA(0, 0, color.NRGBA{R: 10, G: 20, B: 30, A: 255})

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestClientSegment(t *testing.T) {
	input := []byte("fake-jpeg-bytes")
	output := cutoutPNG(t)

	var gotModel string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/remove", r.URL.Path)
		gotModel = r.URL.Query().Get("model")
		gotBody, _ = io.ReadAll(r.Body)

		w.Header().Set("Content-Type", "image/png")
		w.Write(output)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	img, err := client.Segment(context.Background(), input, "isnet-general-use")

	require.NoError(t, err)
	assert.Equal(t, "isnet-general-use", gotModel)
	assert.Equal(t, input, gotBody)
	assert.Equal(t, image.Rect(0, 0, 2, 2), img.Bounds())
}

func TestClientSegmentRetriesServerErrors(t *testing.T) {
	output := cutoutPNG(t)

	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write(output)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.Segment(context.Background(), []byte("x"), "u2net")

	require.NoError(t, err)
	assert.Equal(t, 2, requests)
}

func TestClientSegmentDoesNotRetryClientErrors(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("unknown model: nope"))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.Segment(context.Background(), []byte("x"), "nope")

	require.Error(t, err)
	assert.Equal(t, 1, requests)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeSegmentation))
	assert.Contains(t, err.Error(), "unknown model")
}

func TestClientSegmentRejectsGarbageResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not an image"))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.Segment(context.Background(), []byte("x"), "u2net")

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeSegmentation))
}
