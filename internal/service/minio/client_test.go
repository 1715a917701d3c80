package minio

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storagedrive/internal/domain"
)

type fakeServer struct {
	mu      sync.Mutex
	bucket  bool
	objects map[string][]byte
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.Trim(r.URL.Path, "/")
	key := strings.TrimPrefix(strings.TrimPrefix(path, "drive"), "/")

	switch {
	case key == "" && r.Method == http.MethodHead:
		if !f.bucket {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	case key == "" && r.Method == http.MethodPut:
		f.bucket = true
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[key] = body
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodDelete:
		delete(f.objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestClientCreatesBucketAndStoresObjects(t *testing.T) {
	fake := &fakeServer{objects: map[string][]byte{}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	endpoint := strings.TrimPrefix(srv.URL, "http://")
	client, err := NewClient(context.Background(), &Config{
		Endpoint:        endpoint,
		AccessKeyID:     "minio",
		SecretAccessKey: "minio123",
		Bucket:          "drive",
		Region:          "us-east-1",
	}, zap.NewNop())
	require.NoError(t, err)

	fake.mu.Lock()
	assert.True(t, fake.bucket)
	fake.mu.Unlock()

	res, err := client.Upload(context.Background(), "u1/doc.pdf", &domain.FileUpload{
		Name: "doc.pdf", MIMEType: "application/pdf", Data: []byte("%PDF-1.4"),
	})
	require.NoError(t, err)
	assert.Equal(t, "http://"+endpoint+"/drive/u1/doc.pdf", res.URL)
	assert.Equal(t, "u1/doc.pdf", res.Key)

	fake.mu.Lock()
	// без TLS тело уходит в aws-chunked кодировке
	require.Contains(t, fake.objects, "u1/doc.pdf")
	assert.Contains(t, string(fake.objects["u1/doc.pdf"]), "%PDF-1.4")
	fake.mu.Unlock()

	require.NoError(t, client.Delete(context.Background(), "u1/doc.pdf"))
	require.NoError(t, client.Delete(context.Background(), "u1/doc.pdf"))

	fake.mu.Lock()
	assert.Empty(t, fake.objects)
	fake.mu.Unlock()
}

func TestNewConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".minio.env")
	require.NoError(t, os.WriteFile(path, []byte(
		"Endpoint=localhost:9000\nAccessKeyID=minio\nSecretAccessKey=minio123\nBucket=drive\nUseSSL=true\n"), 0o600))

	cfg, err := NewConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", cfg.Endpoint)
	assert.True(t, cfg.UseSSL)
	assert.Equal(t, "us-east-1", cfg.Region)
	assert.Equal(t, "https://localhost:9000/drive", cfg.PublicURL)

	_, err = NewConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
}
