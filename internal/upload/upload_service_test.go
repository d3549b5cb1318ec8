package upload_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bookswap/internal/upload"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowed(t *testing.T) {
	cases := map[string]bool{
		"cover.png":      true,
		"cover.jpg":      true,
		"cover.jpeg":     true,
		"cover.gif":      true,
		"COVER.PNG":      true,
		"cover.JpG":      true,
		"cover.bmp":      false,
		"cover.png.exe":  false,
		"script.sh":      false,
		"noextension":    false,
		"archive.tar.gz": false,
	}

	for filename, want := range cases {
		assert.Equal(t, want, upload.Allowed(filename), "filename %q", filename)
	}
}

func TestStore(t *testing.T) {
	dir := t.TempDir()
	service, err := upload.NewUploadService(dir)
	require.NoError(t, err)

	t.Run("StoresAllowedFile", func(t *testing.T) {
		path, ok, err := service.Store(strings.NewReader("fake image bytes"), "cover.png")
		require.NoError(t, err)
		require.True(t, ok)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "fake image bytes", string(data))
		assert.Equal(t, dir, filepath.Dir(path))
	})

	t.Run("RejectsDisallowedExtension", func(t *testing.T) {
		path, ok, err := service.Store(strings.NewReader("#!/bin/sh"), "payload.sh")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, path)
	})

	t.Run("SanitizesPathComponents", func(t *testing.T) {
		path, ok, err := service.Store(strings.NewReader("x"), "../../etc/evil.png")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, dir, filepath.Dir(path), "stored file must stay inside the upload dir")
	})

	t.Run("UniqueNamesForSameFilename", func(t *testing.T) {
		first, ok, err := service.Store(strings.NewReader("a"), "cover.png")
		require.NoError(t, err)
		require.True(t, ok)
		second, ok, err := service.Store(strings.NewReader("b"), "cover.png")
		require.NoError(t, err)
		require.True(t, ok)
		assert.NotEqual(t, first, second)
	})
}
