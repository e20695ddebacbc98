package s3

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePrefix(t *testing.T) {
	assert.Equal(t, "", normalizePrefix(""))
	assert.Equal(t, "uploads/", normalizePrefix("uploads"))
	assert.Equal(t, "uploads/", normalizePrefix("/uploads/"))
}

func TestLocation(t *testing.T) {
	c := &Client{bucket: "docvault", prefix: "uploads/"}
	assert.Equal(t, "s3://docvault/uploads/a.pdf", c.Location("a.pdf"))
	assert.Equal(t, "s3", c.Name())
}

const accessDenied = `<?xml version="1.0" encoding="UTF-8"?>
<Error><Code>AccessDenied</Code><Message>Access Denied</Message><BucketName>docvault</BucketName><RequestId>1</RequestId></Error>`

func TestListReturnsListingError(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(accessDenied))
	}))
	defer srv.Close()

	cli, err := minio.New(strings.TrimPrefix(srv.URL, "http://"), &minio.Options{
		Creds:  credentials.NewStaticV4("key", "secret", ""),
		Region: "us-east-1",
	})
	require.NoError(t, err)

	c := &Client{Client: cli, bucket: "docvault", prefix: "uploads/"}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	objs, err := c.List(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list objects")
	assert.Nil(t, objs)
	assert.Positive(t, calls.Load())
}
