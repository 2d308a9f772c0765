// Package youtube holds the HTTP clients for the upstream caption and
// metadata services.
package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/JustinPerea/youtube-to-notes-sub002/errors"
	"github.com/JustinPerea/youtube-to-notes-sub002/models"
)

type Config struct {
	CaptionsAPIURL string
	CaptionsAPIKey string
	MetadataAPIURL string
	MetadataAPIKey string
	Timeout        time.Duration
	Retries        int
}

type Client struct {
	config Config
	http   *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Retries == 0 {
		cfg.Retries = 3
	}
	return &Client{
		config: cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
	}
}

// Fetch retrieves official captions as plain text. Implements
// transcript.CaptionSource.
func (c *Client) Fetch(ctx context.Context, videoID string) (string, error) {
	const op = "youtube.Client.Fetch"

	if c.config.CaptionsAPIURL == "" {
		return "", errors.NotFound(op, nil, "no captions API configured")
	}

	body, err := c.getWithRetries(ctx, c.config.CaptionsAPIURL, c.config.CaptionsAPIKey, videoID)
	if err != nil {
		return "", err
	}

	var result struct {
		Success bool   `json:"success"`
		Text    string `json:"text"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", errors.Internal(op, err, "failed to parse captions response")
	}
	if !result.Success || result.Text == "" {
		return "", errors.NotFound(op, nil, result.Error)
	}

	return result.Text, nil
}

// Metadata retrieves video metadata, or nil when the upstream does not
// know the video. Implements notes.MetadataSource.
func (c *Client) Metadata(ctx context.Context, ref models.VideoReference) (*models.VideoMetadata, error) {
	const op = "youtube.Client.Metadata"

	if c.config.MetadataAPIURL == "" {
		return nil, errors.NotFound(op, nil, "no metadata API configured")
	}

	body, err := c.getWithRetries(ctx, c.config.MetadataAPIURL, c.config.MetadataAPIKey, ref.VideoID)
	if err != nil {
		return nil, err
	}

	var meta models.VideoMetadata
	if err := json.Unmarshal(body, &meta); err != nil {
		return nil, errors.Internal(op, err, "failed to parse metadata response")
	}
	if meta.Title == "" {
		meta.Title = ref.URL
	}
	if meta.ContentRichness == "" {
		meta.ContentRichness = models.RichnessBasic
	}

	return &meta, nil
}

func (c *Client) getWithRetries(ctx context.Context, apiURL, apiKey, videoID string) ([]byte, error) {
	const op = "youtube.Client.getWithRetries"

	var lastErr error
	for i := 0; i < c.config.Retries; i++ {
		body, status, err := c.get(ctx, apiURL, apiKey, videoID)
		if err == nil {
			return body, nil
		}
		lastErr = err

		// Only back off and retry on upstream rate limiting.
		if status == http.StatusTooManyRequests {
			select {
			case <-ctx.Done():
				return nil, errors.Internal(op, ctx.Err(), "fetch cancelled")
			case <-time.After(time.Second * time.Duration(i+1)):
			}
			continue
		}
		return nil, err
	}

	return nil, errors.Internal(op, lastErr, "exceeded max retries")
}

func (c *Client) get(ctx context.Context, apiURL, apiKey, videoID string) ([]byte, int, error) {
	const op = "youtube.Client.get"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, 0, errors.Internal(op, err, "failed to build request")
	}

	q := req.URL.Query()
	q.Add("url", fmt.Sprintf("https://www.youtube.com/watch?v=%s", videoID))
	if apiKey != "" {
		q.Add("api_key", apiKey)
	}
	req.URL.RawQuery = q.Encode()

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, errors.Internal(op, err, "request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, resp.StatusCode, errors.NotFound(op, nil, "video not found upstream")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, errors.Internal(
			op, nil, fmt.Sprintf("bad status code: %d", resp.StatusCode),
		)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, errors.Internal(op, err, "failed to read response")
	}

	return body, resp.StatusCode, nil
}
