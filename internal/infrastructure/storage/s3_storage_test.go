package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fiado/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func baseExportConfig(endpoint string) *config.ExportConfig {
	return &config.ExportConfig{
		S3Enabled:       true,
		Endpoint:        endpoint,
		Region:          "us-east-1",
		Bucket:          "fiado-exports",
		AccessKeyID:     "test-key",
		SecretAccessKey: "test-secret",
		UsePathStyle:    true,
	}
}

func TestNewS3ExportStorage_Validation(t *testing.T) {
	t.Run("nil config returns error", func(t *testing.T) {
		_, err := NewS3ExportStorage(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration is required")
	})

	t.Run("missing bucket returns error", func(t *testing.T) {
		cfg := baseExportConfig("http://localhost:9000")
		cfg.Bucket = ""
		_, err := NewS3ExportStorage(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket is required")
	})

	t.Run("missing access key returns error", func(t *testing.T) {
		cfg := baseExportConfig("http://localhost:9000")
		cfg.AccessKeyID = ""
		_, err := NewS3ExportStorage(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "access key is required")
	})

	t.Run("missing secret key returns error", func(t *testing.T) {
		cfg := baseExportConfig("http://localhost:9000")
		cfg.SecretAccessKey = ""
		_, err := NewS3ExportStorage(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "secret key is required")
	})

	t.Run("defaults", func(t *testing.T) {
		cfg := baseExportConfig("")
		cfg.Region = ""
		storage, err := NewS3ExportStorage(cfg)
		require.NoError(t, err)
		assert.Equal(t, "fiado-exports", storage.Bucket())
		assert.Equal(t, 15*time.Minute, storage.urlExpiry)
	})

	t.Run("options", func(t *testing.T) {
		storage, err := NewS3ExportStorage(baseExportConfig("http://localhost:9000"),
			WithLogger(zaptest.NewLogger(t)),
			WithURLExpiry(time.Hour),
		)
		require.NoError(t, err)
		assert.Equal(t, time.Hour, storage.urlExpiry)
	})
}

func TestS3ExportStorage_GenerateDownloadURL(t *testing.T) {
	storage, err := NewS3ExportStorage(baseExportConfig("http://localhost:9000"))
	require.NoError(t, err)

	t.Run("empty key returns error", func(t *testing.T) {
		url, _, err := storage.GenerateDownloadURL(context.Background(), "", time.Minute)
		require.Error(t, err)
		assert.Empty(t, url)
	})

	t.Run("presigned url points at bucket and key", func(t *testing.T) {
		url, expiresAt, err := storage.GenerateDownloadURL(context.Background(), "portfolio/2026-10-17.xlsx", 0)
		require.NoError(t, err)
		assert.Contains(t, url, "localhost:9000")
		assert.Contains(t, url, "fiado-exports")
		assert.Contains(t, url, "X-Amz-Signature")
		assert.True(t, expiresAt.After(time.Now()))
		assert.True(t, expiresAt.Before(time.Now().Add(16*time.Minute)))
	})
}

type s3Request struct {
	method string
	path   string
}

func fakeS3(t *testing.T) (*httptest.Server, func() []s3Request) {
	t.Helper()
	var mu sync.Mutex
	var seen []s3Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		mu.Lock()
		seen = append(seen, s3Request{method: r.Method, path: r.URL.Path})
		mu.Unlock()
		w.Header().Set("ETag", `"abc"`)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []s3Request {
		mu.Lock()
		defer mu.Unlock()
		return append([]s3Request(nil), seen...)
	}
}

func TestS3ExportStorage_Upload(t *testing.T) {
	srv, requests := fakeS3(t)
	storage, err := NewS3ExportStorage(baseExportConfig(srv.URL))
	require.NoError(t, err)

	t.Run("empty key returns error", func(t *testing.T) {
		err := storage.Upload(context.Background(), "", []byte("x"), "text/plain")
		require.Error(t, err)
	})

	t.Run("puts object under bucket path", func(t *testing.T) {
		err := storage.Upload(context.Background(), "portfolio/export.xlsx", []byte("workbook"), "application/octet-stream")
		require.NoError(t, err)

		var found bool
		for _, r := range requests() {
			if r.method == http.MethodPut && strings.HasSuffix(r.path, "/fiado-exports/portfolio/export.xlsx") {
				found = true
			}
		}
		assert.True(t, found, "expected a PUT to the object path, got %v", requests())
	})
}

func TestS3ExportStorage_EnsureBucketExisting(t *testing.T) {
	srv, requests := fakeS3(t)
	storage, err := NewS3ExportStorage(baseExportConfig(srv.URL))
	require.NoError(t, err)

	require.NoError(t, storage.EnsureBucket(context.Background()))
	reqs := requests()
	require.NotEmpty(t, reqs)
	assert.Equal(t, http.MethodHead, reqs[0].method)
}
