package core

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadPolicy_Check(t *testing.T) {
	policy := UploadPolicy{
		MaxSize:      1 << 20,
		AllowedTypes: []string{"application/pdf", "text/plain", "application/vnd.rar", "image/png"},
	}
	pdf := []byte("%PDF-1.4\n%%EOF\n")
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	opaque := []byte{0x13, 0x37, 0x00, 0x42, 0x00, 0x99}

	tests := []struct {
		name     string
		up       Upload
		wantType string
		wantErr  string
	}{
		{name: "no file", up: Upload{Filename: "a.pdf"}, wantErr: "no file uploaded"},
		{
			name:    "too large",
			up:      Upload{Filename: "big.pdf", Size: 2 << 20, Content: bytes.NewReader(pdf)},
			wantErr: `file "big.pdf" is too large (max 1 MB)`,
		},
		{
			name:     "sniffed type wins",
			up:       Upload{Filename: "x.bin", ContentType: "image/png", Size: int64(len(pdf)), Content: bytes.NewReader(pdf)},
			wantType: "application/pdf",
		},
		{
			name:     "parameters are dropped",
			up:       Upload{Filename: "a.txt", ContentType: "text/plain; charset=utf-8", Content: strings.NewReader("hello there")},
			wantType: "text/plain",
		},
		{
			name:     "declared type trusted for opaque content",
			up:       Upload{Filename: "a.rar", ContentType: "application/vnd.rar", Content: bytes.NewReader(opaque)},
			wantType: "application/vnd.rar",
		},
		{
			name:    "declared type not trusted for known content",
			up:      Upload{Filename: "a.pdf", ContentType: "application/pdf", Content: strings.NewReader("GIF89a\x01\x00\x01\x00")},
			wantErr: `file type of "a.pdf" is not allowed`,
		},
		{
			name:     "png",
			up:       Upload{Filename: "a.png", Content: bytes.NewReader(png)},
			wantType: "image/png",
		},
		{
			name:    "opaque content with a disallowed declared type",
			up:      Upload{Filename: "a.exe", ContentType: "application/x-msdownload", Content: bytes.NewReader(opaque)},
			wantErr: `file type of "a.exe" is not allowed`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := tt.up
			err := policy.Check(&up)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantErr, err.Error())
				assert.True(t, IsKind(err, KindInvalidArgument))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, up.ContentType)
		})
	}
}

func TestUploadPolicy_Check_keepsContent(t *testing.T) {
	content := append([]byte("%PDF-1.7\n"), bytes.Repeat([]byte("x"), sniffLen*2)...)
	up := Upload{Filename: "long.pdf", Content: bytes.NewReader(content)}
	require.NoError(t, UploadPolicy{AllowedTypes: []string{"application/pdf"}}.Check(&up))

	got, err := io.ReadAll(up.Content)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestObjectKey(t *testing.T) {
	key := ObjectKey("materials/abc", "../../my notes.pdf")
	assert.True(t, strings.HasPrefix(key, "materials/abc/"))
	assert.True(t, strings.HasSuffix(key, "-my_notes.pdf"))
	assert.NotEqual(t, key, ObjectKey("materials/abc", "../../my notes.pdf"))
	assert.True(t, strings.HasSuffix(ObjectKey("p", "/"), "-file"))
}
