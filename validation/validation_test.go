package validation

import (
	"testing"
)

func TestValidateURL(t *testing.T) {
	validator := NewValidator()

	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{
			name:    "Empty URL",
			url:     "",
			wantErr: true,
		},
		{
			name:    "Invalid URL format",
			url:     "not-a-url",
			wantErr: true,
		},
		{
			name:    "Non-HTTP scheme",
			url:     "ftp://youtube.com/watch?v=dQw4w9WgXcQ",
			wantErr: true,
		},
		{
			name:    "Non-YouTube URL",
			url:     "https://example.com/watch?v=dQw4w9WgXcQ",
			wantErr: true,
		},
		{
			name:    "Valid YouTube URL",
			url:     "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			wantErr: false,
		},
		{
			name:    "Valid YouTube short URL",
			url:     "https://youtu.be/dQw4w9WgXcQ",
			wantErr: false,
		},
		{
			name:    "Valid YouTube shorts URL",
			url:     "https://www.youtube.com/shorts/dQw4w9WgXcQ",
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestParseVideoReference(t *testing.T) {
	validator := NewValidator()

	tests := []struct {
		name    string
		url     string
		wantID  string
		wantErr bool
	}{
		{
			name:   "Watch URL",
			url:    "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			wantID: "dQw4w9WgXcQ",
		},
		{
			name:   "Short URL",
			url:    "https://youtu.be/dQw4w9WgXcQ",
			wantID: "dQw4w9WgXcQ",
		},
		{
			name:   "Short URL with query",
			url:    "https://youtu.be/dQw4w9WgXcQ?t=42",
			wantID: "dQw4w9WgXcQ",
		},
		{
			name:   "Shorts URL",
			url:    "https://www.youtube.com/shorts/dQw4w9WgXcQ",
			wantID: "dQw4w9WgXcQ",
		},
		{
			name:   "Embed URL",
			url:    "https://www.youtube.com/embed/dQw4w9WgXcQ",
			wantID: "dQw4w9WgXcQ",
		},
		{
			name:   "Live URL",
			url:    "https://www.youtube.com/live/dQw4w9WgXcQ",
			wantID: "dQw4w9WgXcQ",
		},
		{
			name:   "Watch URL with extra params",
			url:    "https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=PL123&index=2",
			wantID: "dQw4w9WgXcQ",
		},
		{
			name:    "Watch URL without video ID",
			url:     "https://www.youtube.com/watch",
			wantErr: true,
		},
		{
			name:    "Channel URL",
			url:     "https://www.youtube.com/@somechannel",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := validator.ParseVideoReference(tt.url)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseVideoReference(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if ref.VideoID != tt.wantID {
				t.Errorf("video ID = %q, want %q", ref.VideoID, tt.wantID)
			}
			if ref.URL != tt.url {
				t.Errorf("reference should keep the original URL, got %q", ref.URL)
			}
		})
	}
}
