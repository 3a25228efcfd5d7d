package netx

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadToPresignedURL(t *testing.T) {
	file := []byte("hello, s3")

	t.Run("success sends signed headers", func(t *testing.T) {
		var gotBody []byte
		var gotCT, gotCC, gotMethod string
		var gotLen int64

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotMethod = r.Method
			gotCT = r.Header.Get("Content-Type")
			gotCC = r.Header.Get("Cache-Control")
			gotLen = r.ContentLength
			gotBody, _ = io.ReadAll(r.Body)
			w.WriteHeader(http.StatusOK)
		}))
		defer ts.Close()

		var last int64
		err := UploadToPresignedURL(context.Background(), ts.Client(), Upload{
			URL:          ts.URL + "/videos/a.webm?X-Amz-Signature=abc",
			ContentType:  "video/webm",
			CacheControl: "public, max-age=31536000, immutable",
			Body:         bytes.NewReader(file),
			Size:         int64(len(file)),
			Progress:     func(sent, total int64) { last = sent },
		})
		require.NoError(t, err)
		assert.Equal(t, http.MethodPut, gotMethod)
		assert.Equal(t, "video/webm", gotCT)
		assert.Equal(t, "public, max-age=31536000, immutable", gotCC)
		assert.Equal(t, int64(len(file)), gotLen)
		assert.Equal(t, file, gotBody)
		assert.Equal(t, int64(len(file)), last)
	})

	t.Run("no cache control header when unset", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Empty(t, r.Header.Get("Cache-Control"))
			w.WriteHeader(http.StatusNoContent)
		}))
		defer ts.Close()

		err := UploadToPresignedURL(context.Background(), nil, Upload{
			URL: ts.URL, ContentType: "video/mp4", Body: bytes.NewReader(file), Size: int64(len(file)),
		})
		require.NoError(t, err)
	})

	t.Run("non-2xx -> error", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte("SignatureDoesNotMatch"))
		}))
		defer ts.Close()

		err := UploadToPresignedURL(context.Background(), ts.Client(), Upload{
			URL: ts.URL, ContentType: "video/mp4", Body: bytes.NewReader(file),
		})
		require.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "upload failed: 403"))
		assert.Contains(t, err.Error(), "SignatureDoesNotMatch")
	})

	t.Run("network error", func(t *testing.T) {
		ts := httptest.NewServer(http.NotFoundHandler())
		ts.Close()

		err := UploadToPresignedURL(context.Background(), nil, Upload{
			URL: ts.URL, ContentType: "video/mp4", Body: bytes.NewReader(file),
		})
		require.Error(t, err)
		assert.NotContains(t, err.Error(), "upload failed")
	})
}
