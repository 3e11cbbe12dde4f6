package s3_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"sensai/adapters/s3"
)

func TestCheckSecureMediaAndGetExtension(t *testing.T) {
	tests := []struct {
		name     string
		mimeType string
		wantOk   bool
		wantExt  string
	}{
		{
			name:     "valid JPEG image",
			mimeType: "image/jpeg",
			wantOk:   true,
			wantExt:  "jpeg",
		},
		{
			name:     "valid PNG image",
			mimeType: "image/png",
			wantOk:   true,
			wantExt:  "png",
		},
		{
			name:     "valid MP3 audio",
			mimeType: "audio/mpeg",
			wantOk:   true,
			wantExt:  "mp3",
		},
		{
			name:     "invalid media type",
			mimeType: "application/pdf",
			wantOk:   false,
			wantExt:  "",
		},
		{
			name:     "executable content",
			mimeType: "application/octet-stream",
			wantOk:   false,
			wantExt:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotOk, gotExt := s3.CheckSecureMediaAndGetExtension(tt.mimeType)
			assert.Equal(t, tt.wantOk, gotOk)
			assert.Equal(t, tt.wantExt, gotExt)
		})
	}
}
