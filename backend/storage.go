package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// maxUpload mirrors the server's per-object limit.
const maxUpload = 25 << 20

// Upload stores r under bucket/key and returns the object's public URL.
func (c *Client) Upload(ctx context.Context, bucket, key string, r io.Reader, contentType string) (string, error) {
	body, err := io.ReadAll(io.LimitReader(r, maxUpload+1))
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}
	if len(body) > maxUpload {
		return "", fmt.Errorf("%w: file exceeds %d bytes", ErrValidation, maxUpload)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	req := request{method: http.MethodPut, path: objectPath(bucket, key), body: body, contentType: contentType}
	var out struct {
		URL string `json:"url"`
	}
	if err := c.do(ctx, req, &out); err != nil {
		return "", err
	}
	return out.URL, nil
}

func (c *Client) Remove(ctx context.Context, bucket, key string) error {
	return c.do(ctx, request{method: http.MethodDelete, path: objectPath(bucket, key)}, nil)
}

func objectPath(bucket, key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return "/storage/" + url.PathEscape(bucket) + "/" + strings.Join(segments, "/")
}
