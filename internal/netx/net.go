// Package netx holds the HTTP helper that streams a file to a presigned
// upload URL.
package netx

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// ProgressFunc receives the number of bytes sent so far and the total size.
type ProgressFunc func(sent, total int64)

// Upload describes one presigned PUT.
type Upload struct {
	URL          string
	ContentType  string
	CacheControl string
	Body         io.Reader
	Size         int64
	Progress     ProgressFunc
}

// UploadToPresignedURL PUTs u.Body to u.URL with exactly the Content-Type
// (and Cache-Control, when set) the URL was signed for. Any non-2xx reply is
// an error.
func UploadToPresignedURL(ctx context.Context, client *http.Client, u Upload) error {
	if client == nil {
		client = http.DefaultClient
	}

	body := u.Body
	if u.Progress != nil {
		body = &progressReader{r: u.Body, total: u.Size, fn: u.Progress}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u.URL, body)
	if err != nil {
		return err
	}
	if u.Size > 0 {
		req.ContentLength = u.Size
	}
	req.Header.Set("Content-Type", u.ContentType)
	if u.CacheControl != "" {
		req.Header.Set("Cache-Control", u.CacheControl)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("upload failed: %s; body: %s", resp.Status, string(b))
	}
	return nil
}

type progressReader struct {
	r     io.Reader
	sent  int64
	total int64
	fn    ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		p.fn(p.sent, p.total)
	}
	return n, err
}
