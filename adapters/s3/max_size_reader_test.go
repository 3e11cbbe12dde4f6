package s3_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"

	"sensai/adapters/s3"
)

func TestMaxSizeReader(t *testing.T) {
	tests := []struct {
		name       string
		input      []byte
		maxSize    int64
		wantN      int
		wantErr    bool
		wantErrMsg string
	}{
		{
			name:    "讀取小於限制的內容",
			input:   []byte("hello"),
			maxSize: 10,
			wantN:   5,
			wantErr: false,
		},
		{
			name:    "讀取等於限制的內容",
			input:   []byte("hello"),
			maxSize: 5,
			wantN:   5,
			wantErr: false,
		},
		{
			name:       "讀取超過限制的內容",
			input:      []byte("hello world"),
			maxSize:    5,
			wantN:      5,
			wantErr:    true,
			wantErrMsg: "reach limit of 5 bytes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := s3.NewMaxSizeReader(bytes.NewReader(tt.input), tt.maxSize)
			content, err := io.ReadAll(reader)

			assert.Equal(t, tt.wantN, len(content))
			if tt.wantErr {
				assert.Error(t, err)
				assert.EqualError(t, err, tt.wantErrMsg)
				assert.ErrorAs(t, err, &s3.ErrReachLimitType)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.input[:tt.wantN], content)
			}
		})
	}
}
