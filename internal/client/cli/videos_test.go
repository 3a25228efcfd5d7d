package cli

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listBody = `[{"id":2,"caption":"second","url":"https://cdn/b.mp4","created_at":"2024-01-02T10:00:00Z","status":"transcoding"},` +
	`{"id":1,"caption":"first","url":"https://cdn/a.mp4","created_at":"2024-01-01T10:00:00Z"}]`

func TestList_Table(t *testing.T) {
	url := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/videos", r.URL.Path)
		_, _ = w.Write([]byte(listBody))
	})

	out, _, err := runCLI(t, "", "--server", url, "list")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[1], "second")
	assert.Contains(t, lines[1], "transcoding")
	assert.Contains(t, lines[2], "first")
	assert.Contains(t, lines[2], "2024-01-01 10:00:00")
}

func TestList_JSON(t *testing.T) {
	url := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(listBody))
	})

	out, _, err := runCLI(t, "", "--server", url, "list", "--json")
	require.NoError(t, err)

	var got []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "second", got[0]["caption"])
}

func TestList_Empty(t *testing.T) {
	url := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	out, _, err := runCLI(t, "", "--server", url, "list")
	require.NoError(t, err)
	assert.Equal(t, "No videos\n", out)
}

func TestList_ServerError(t *testing.T) {
	url := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Internal server error"}`))
	})

	_, _, err := runCLI(t, "", "--server", url, "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Internal server error")
}

func TestUpload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Clip.WEBM")
	require.NoError(t, os.WriteFile(path, []byte("video-bytes"), 0o644))

	var (
		uploaded    []byte
		contentType string
		cache       string
		base        string
	)
	base = newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/videos/signed-url":
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "my clip", body["caption"])
			assert.Equal(t, "webm", body["fileExtension"])
			_ = json.NewEncoder(w).Encode(map[string]any{
				"signedUrl":    base + "/bucket/abc.webm",
				"fileName":     "abc.webm",
				"videoId":      7,
				"contentType":  "video/webm",
				"cacheControl": "public, max-age=60",
			})
		case r.Method == http.MethodPut && r.URL.Path == "/bucket/abc.webm":
			contentType = r.Header.Get("Content-Type")
			cache = r.Header.Get("Cache-Control")
			uploaded, _ = io.ReadAll(r.Body)
			w.WriteHeader(http.StatusOK)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusTeapot)
		}
	})

	out, errOut, err := runCLI(t, "", "--server", base, "--token", "tok", "upload", path, "--caption", "my clip")
	require.NoError(t, err)
	assert.Equal(t, "Uploaded video 7 as abc.webm\n", out)
	assert.Contains(t, errOut, "100%")
	assert.Equal(t, "video-bytes", string(uploaded))
	assert.Equal(t, "video/webm", contentType)
	assert.Equal(t, "public, max-age=60", cache)
}

func TestUpload_MissingFileMakesNoRequest(t *testing.T) {
	url := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
	})

	_, _, err := runCLI(t, "", "--server", url, "upload", filepath.Join(t.TempDir(), "nope.mp4"), "--caption", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open")
}

func TestUpload_RequiresCaption(t *testing.T) {
	_, _, err := runCLI(t, "", "upload", "x.mp4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "caption")
}

func TestUpload_PutFailureNamesVideo(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.mp4")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	var base string
	base = newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"signedUrl": base + "/put", "fileName": "k.mp4", "videoId": 3, "contentType": "video/mp4",
			})
			return
		}
		w.WriteHeader(http.StatusForbidden)
	})

	_, _, err := runCLI(t, "", "--server", base, "upload", path, "--caption", "c")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "video 3 was registered")
	assert.Contains(t, err.Error(), "403")
}

func TestUpload_ValidationErrorFromServer(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.avi")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	url := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Unsupported file extension"}`))
	})

	_, _, err := runCLI(t, "", "--server", url, "upload", path, "--caption", "c")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unsupported file extension")
}

func TestCaption(t *testing.T) {
	url := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/videos/5", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{"caption": "hello there"}, body)
		_, _ = w.Write([]byte(`{"success":true,"message":"Video updated successfully","rowsAffected":1}`))
	})

	out, _, err := runCLI(t, "", "--server", url, "caption", "5", "hello", "there")
	require.NoError(t, err)
	assert.Equal(t, "Video updated successfully (rows affected: 1)\n", out)
}

func TestCaption_InvalidID(t *testing.T) {
	url := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request")
	})

	_, _, err := runCLI(t, "", "--server", url, "caption", "abc", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid video id")
}

func TestDelete(t *testing.T) {
	url := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/videos/9", r.URL.Path)
		_, _ = w.Write([]byte(`{"success":true,"message":"Video deleted successfully","rowsAffected":1}`))
	})

	out, _, err := runCLI(t, "", "--server", url, "delete", "9")
	require.NoError(t, err)
	assert.Equal(t, "Video deleted successfully (rows affected: 1)\n", out)
}

func TestDelete_NotFound(t *testing.T) {
	url := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"Video not found"}`))
	})

	_, _, err := runCLI(t, "", "--server", url, "delete", "9")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Video not found")
}

func TestTranscode(t *testing.T) {
	url := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/videos/4/transcode", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":4,"caption":"c","url":"u","created_at":"2024-01-01T00:00:00Z","job":"jobs/42","status":"transcoding"}`))
	})

	out, _, err := runCLI(t, "", "--server", url, "transcode", "4")
	require.NoError(t, err)
	assert.Equal(t, "Video 4: transcode job jobs/42 submitted\n", out)
}

func TestProgressPrinter(t *testing.T) {
	var b strings.Builder
	p := newProgressPrinter(&b, "f.mp4")
	p.update(0, 0)
	p.update(1, 4)
	p.update(1, 4)
	p.update(4, 4)
	p.done()
	assert.Equal(t, "\rUploading f.mp4:  25%\rUploading f.mp4: 100%\n", b.String())
}
