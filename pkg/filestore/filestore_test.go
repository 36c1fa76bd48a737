package filestore

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestValidateImage(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		filename string
		wantExt  string
		wantErr  error
	}{
		{
			name:     "png",
			data:     pngBytes,
			filename: "scan.png",
			wantExt:  ".png",
		},
		{
			name:     "jpeg",
			data:     []byte("\xff\xd8\xff\xe0\x00\x10JFIF"),
			filename: "scan.jpg",
			wantExt:  ".jpg",
		},
		{
			name:     "gif",
			data:     []byte("GIF89a\x01\x00\x01\x00"),
			filename: "scan.gif",
			wantExt:  ".gif",
		},
		{
			name:     "uppercase extension",
			data:     pngBytes,
			filename: "SCAN.PNG",
			wantExt:  ".png",
		},
		{
			name:     "empty",
			data:     nil,
			filename: "scan.png",
			wantErr:  ErrEmptyFile,
		},
		{
			name:     "too large",
			data:     bytes.Repeat([]byte{0xff}, MaxImageSize+1),
			filename: "scan.png",
			wantErr:  ErrFileTooLarge,
		},
		{
			name:     "not an image",
			data:     []byte("%PDF-1.4"),
			filename: "scan.png",
			wantErr:  ErrInvalidContentType,
		},
		{
			name:     "extension does not match content",
			data:     pngBytes,
			filename: "scan.jpg",
			wantErr:  ErrExtensionMismatch,
		},
		{
			name:     "no extension",
			data:     pngBytes,
			filename: "scan",
			wantErr:  ErrExtensionMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ext, err := ValidateImage(tt.data, tt.filename)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantExt, ext)
		})
	}
}

func TestDiskStoreRoundTrip(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	path, err := store.Write(ctx, ".png", pngBytes)
	require.NoError(t, err)
	require.NotEmpty(t, path)

	exists, err := store.Exists(ctx, path)
	require.NoError(t, err)
	assert.True(t, exists)

	got, err := store.Read(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, got)
}

func TestDiskStoreUniqueNames(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	// Identical payloads must land under distinct names.
	first, err := store.Write(ctx, ".png", pngBytes)
	require.NoError(t, err)
	second, err := store.Write(ctx, ".png", pngBytes)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestDiskStoreDelete(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	path, err := store.Write(ctx, ".png", pngBytes)
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, path))

	exists, err := store.Exists(ctx, path)
	require.NoError(t, err)
	assert.False(t, exists)

	// Deleting an already-absent file is not an error.
	assert.NoError(t, store.Delete(ctx, path))
}

func TestDiskStoreIgnoresPathTraversal(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDiskStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	path, err := store.Write(ctx, ".png", pngBytes)
	require.NoError(t, err)

	// Reads resolve only the base name, so traversal segments are inert.
	got, err := store.Read(ctx, "../../"+path)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, got)
}
