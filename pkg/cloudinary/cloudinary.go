package cloudinary

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	cld "github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// ErrNotConfigured is returned when credentials are missing.
var ErrNotConfigured = errors.New("cloudinary: cloud name, api key and secret are required")

// Config holds the account credentials used to sign uploads. BaseURL
// overrides the upload API host.
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	BaseURL   string
	Timeout   time.Duration
}

// Client uploads images with the Cloudinary SDK.
type Client struct {
	cld     *cld.Cloudinary
	timeout time.Duration
}

// NewClient validates cfg and returns a Client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, ErrNotConfigured
	}
	c, err := cld.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: %w", err)
	}
	if cfg.BaseURL != "" {
		c.Config.API.UploadPrefix = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{cld: c, timeout: cfg.Timeout}, nil
}

// Upload sends content as an image under publicID and returns its secure URL.
func (c *Client) Upload(ctx context.Context, filename string, content []byte, publicID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.cld.Upload.Upload(ctx, bytes.NewReader(content), uploader.UploadParams{PublicID: publicID})
	if err != nil {
		return "", fmt.Errorf("cloudinary upload of %s failed: %w", filename, err)
	}
	if resp.Error.Message != "" {
		return "", fmt.Errorf("cloudinary upload of %s failed: %s", filename, resp.Error.Message)
	}
	if resp.SecureURL == "" {
		return "", fmt.Errorf("cloudinary upload of %s failed: no secure_url in response", filename)
	}
	return resp.SecureURL, nil
}
