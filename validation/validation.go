package validation

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/JustinPerea/youtube-to-notes-sub002/errors"
	"github.com/JustinPerea/youtube-to-notes-sub002/models"
)

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{6,20}$`)

type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

// ValidateURL performs URL validation
func (v *Validator) ValidateURL(urlStr string) error {
	const op = "Validator.ValidateURL"

	if urlStr == "" {
		return errors.InvalidInput(op, nil, "URL is required")
	}

	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return errors.InvalidInput(op, err, "Invalid URL format")
	}

	// Protocol validation
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return errors.InvalidInput(op, nil, "URL must use HTTP or HTTPS")
	}

	// Domain validation
	host := parsedURL.Hostname()
	if !strings.Contains(host, "youtube.com") && !strings.Contains(host, "youtu.be") {
		return errors.InvalidInput(op, nil, "Only YouTube URLs are supported")
	}

	return nil
}

// ParseVideoReference validates a URL and extracts the video ID from it.
func (v *Validator) ParseVideoReference(urlStr string) (models.VideoReference, error) {
	const op = "Validator.ParseVideoReference"

	if err := v.ValidateURL(urlStr); err != nil {
		return models.VideoReference{}, err
	}

	id, err := extractVideoID(urlStr)
	if err != nil {
		return models.VideoReference{}, err
	}

	return models.VideoReference{URL: urlStr, VideoID: id}, nil
}

func extractVideoID(urlStr string) (string, error) {
	const op = "Validator.extractVideoID"

	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return "", errors.InvalidInput(op, err, "Invalid URL format")
	}

	var id string
	host := parsedURL.Hostname()
	path := strings.Trim(parsedURL.Path, "/")

	switch {
	case strings.Contains(host, "youtu.be"):
		id = firstSegment(path)
	case strings.HasPrefix(path, "shorts/"):
		id = firstSegment(strings.TrimPrefix(path, "shorts/"))
	case strings.HasPrefix(path, "embed/"):
		id = firstSegment(strings.TrimPrefix(path, "embed/"))
	case strings.HasPrefix(path, "live/"):
		id = firstSegment(strings.TrimPrefix(path, "live/"))
	default:
		id = parsedURL.Query().Get("v")
	}

	if !videoIDPattern.MatchString(id) {
		return "", errors.InvalidInput(op, nil, "Could not extract a video ID from URL")
	}

	return id, nil
}

func firstSegment(path string) string {
	if i := strings.IndexByte(path, '/'); i >= 0 {
		return path[:i]
	}
	return path
}
