package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Bucket photos live in. The public URL contains "/photos/" right before the
// object key, which is how keys are re-derived from stored URLs.
const photoBucket = "photos"

// Client talks to a Supabase-style storage API with a service key.
type Client struct {
	BaseURL    string // e.g. https://xyz.supabase.co
	ServiceKey string
	HTTP       *http.Client
}

func New(baseURL, serviceKey string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		ServiceKey: serviceKey,
		HTTP:       &http.Client{Timeout: 30 * time.Second},
	}
}

// PhotoKey builds the object key for a new upload: {userID}/{timestamp}.{ext}.
func PhotoKey(userID, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		ext = "jpg"
	}
	return fmt.Sprintf("%s/%d.%s", userID, time.Now().UnixMilli(), ext)
}

// KeyFromURL recovers the storage key from a public photo URL by splitting on
// the bucket segment. Returns "" when the URL is not one of ours.
func KeyFromURL(photoURL string) string {
	u, err := url.Parse(photoURL)
	if err != nil {
		return ""
	}
	_, key, ok := strings.Cut(u.Path, "/"+photoBucket+"/")
	if !ok {
		return ""
	}
	return key
}

// Upload stores the object and returns its public URL.
func (c *Client) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	endpoint := fmt.Sprintf("%s/storage/v1/object/%s/%s", c.BaseURL, photoBucket, key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.ServiceKey)
	if contentType == "" {
		contentType = "image/jpeg"
	}
	req.Header.Set("Content-Type", contentType)

	res, err := c.HTTP.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("storage upload status %d", res.StatusCode)
	}
	return c.PublicURL(key), nil
}

// PublicURL returns the stable public URL for an object key.
func (c *Client) PublicURL(key string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.BaseURL, photoBucket, key)
}

// Remove deletes one object.
func (c *Client) Remove(ctx context.Context, key string) error {
	endpoint := fmt.Sprintf("%s/storage/v1/object/%s/%s", c.BaseURL, photoBucket, key)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.ServiceKey)

	res, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("storage remove status %d", res.StatusCode)
	}
	return nil
}

// RemoveByURL derives the key from a public URL and deletes the object.
// Unrecognized URLs are ignored.
func (c *Client) RemoveByURL(ctx context.Context, photoURL string) error {
	key := KeyFromURL(photoURL)
	if key == "" {
		return nil
	}
	return c.Remove(ctx, key)
}
