package render

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"InternHub-backend/internal/logger"
)

func sampleFields() Fields {
	return Fields{
		CertificateID:   "INT-ABCDEFGH12",
		HolderName:      "Ada Lovelace",
		InternshipTitle: "Backend Engineering",
		CompletionDate:  time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		DurationLabel:   "8 Weeks",
	}
}

func TestHTTPRenderer_Success(t *testing.T) {
	var got Fields
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"file_url":"https://cdn.example.com/INT-ABCDEFGH12.pdf"}`))
	}))
	defer srv.Close()

	r := NewHTTPRenderer(srv.URL, "key", time.Second, 3, logger.Discard())
	fileURL, err := r.Render(context.Background(), sampleFields())

	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/INT-ABCDEFGH12.pdf", fileURL)
	assert.Equal(t, "Ada Lovelace", got.HolderName)
}

func TestHTTPRenderer_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"file_url":"https://cdn.example.com/ok.pdf"}`))
	}))
	defer srv.Close()

	r := NewHTTPRenderer(srv.URL, "", time.Second, 3, logger.Discard())
	fileURL, err := r.Render(context.Background(), sampleFields())

	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/ok.pdf", fileURL)
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPRenderer_BoundedFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	r := NewHTTPRenderer(srv.URL, "", time.Second, 2, logger.Discard())
	_, err := r.Render(context.Background(), sampleFields())

	require.Error(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestHTTPRenderer_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	r := NewHTTPRenderer(srv.URL, "", time.Second, 5, logger.Discard())
	_, err := r.Render(context.Background(), sampleFields())

	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestLinkRenderer(t *testing.T) {
	l := LinkRenderer{PublicBaseURL: "https://internhub.example.com/"}

	fileURL, err := l.Render(context.Background(), sampleFields())
	require.NoError(t, err)
	assert.Equal(t, "https://internhub.example.com/api/v1/certificates/verify/INT-ABCDEFGH12", fileURL)

	_, err = l.Render(context.Background(), Fields{})
	assert.Error(t, err)
}
