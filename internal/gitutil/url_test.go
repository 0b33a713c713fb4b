package gitutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePullRequestURL(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		wantOwner string
		wantRepo  string
		wantID    int
		wantErr   bool
	}{
		{
			name:      "Valid HTTPS URL",
			url:       "https://github.com/expo/expo/pull/123",
			wantOwner: "expo",
			wantRepo:  "expo",
			wantID:    123,
		},
		{
			name:      "URL without scheme and trailing slash",
			url:       "github.com/sevigo/review-warden/pull/456/",
			wantOwner: "sevigo",
			wantRepo:  "review-warden",
			wantID:    456,
		},
		{
			name:      "Short form",
			url:       "expo/expo-cli#7",
			wantOwner: "expo",
			wantRepo:  "expo-cli",
			wantID:    7,
		},
		{
			name:    "Zero PR number",
			url:     "expo/expo#0",
			wantErr: true,
		},
		{
			name:    "Invalid PR ID",
			url:     "https://github.com/expo/expo/pull/abc",
			wantErr: true,
		},
		{
			name:    "Issue URL",
			url:     "https://github.com/expo/expo/issues/123",
			wantErr: true,
		},
		{
			name:    "Too many segments",
			url:     "https://github.com/expo/expo/pull/123/files",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owner, repo, id, err := ParsePullRequestURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.wantOwner, owner)
			assert.Equal(t, tt.wantRepo, repo)
			assert.Equal(t, tt.wantID, id)
		})
	}
}
