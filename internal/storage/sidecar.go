package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const sidecarSignPath = "/object-storage/signed-object-url"

// errSidecarRequestFailed deliberately carries no endpoint details; the
// sidecar is a trusted local collaborator whose address must not leak into
// client-visible errors.
var errSidecarRequestFailed = errors.New("storage sidecar: signing request failed")

// SidecarClient requests short-lived signed object URLs from the local
// trusted storage proxy. The proxy is opaque: it returns a URL or fails.
type SidecarClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewSidecarClient constructs a client for the sidecar at baseURL.
func NewSidecarClient(baseURL string) *SidecarClient {
	return &SidecarClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type signURLRequest struct {
	BucketName string `json:"bucket_name"`
	ObjectName string `json:"object_name"`
	Method     string `json:"method"`
	ExpiresAt  string `json:"expires_at"`
}

type signURLResponse struct {
	SignedURL string `json:"signed_url"`
}

// SignURL obtains a signed URL for the given bucket/object and HTTP method,
// valid for ttl.
func (c *SidecarClient) SignURL(ctx context.Context, bucket, object, method string, ttl time.Duration) (string, error) {
	payload, err := json.Marshal(signURLRequest{
		BucketName: bucket,
		ObjectName: object,
		Method:     method,
		ExpiresAt:  time.Now().Add(ttl).UTC().Format(time.RFC3339),
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+sidecarSignPath, bytes.NewReader(payload))
	if err != nil {
		return "", errSidecarRequestFailed
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errSidecarRequestFailed
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("storage sidecar: signing failed with status %d", resp.StatusCode)
	}

	var signed signURLResponse
	if err := json.NewDecoder(resp.Body).Decode(&signed); err != nil {
		return "", errSidecarRequestFailed
	}
	if strings.TrimSpace(signed.SignedURL) == "" {
		return "", errSidecarRequestFailed
	}
	return signed.SignedURL, nil
}
