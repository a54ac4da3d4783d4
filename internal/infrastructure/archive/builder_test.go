package archive_test

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dream-export/internal/infrastructure/archive"
)

func readEntry(t *testing.T, zr *zip.Reader, name string) []byte {
	t.Helper()
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		defer rc.Close()
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		return data
	}
	t.Fatalf("entry %q not found in archive", name)
	return nil
}

func TestBuild(t *testing.T) {
	builder := archive.NewBuilder()

	manifest := map[string]any{
		"downloadDate": "2024-06-15T10:00:00Z",
		"totalVideos":  2,
	}
	blob, err := builder.Build([]archive.Item{
		{ID: "a", Filename: "luma_a.mp4", Data: []byte("video-a")},
		{ID: "b", Filename: "luma_b.mp4", Data: []byte("video-b")},
	}, "metadata.json", manifest)

	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(blob), int64(len(blob)))
	require.NoError(t, err)
	require.Len(t, zr.File, 3)

	assert.Equal(t, []byte("video-a"), readEntry(t, zr, "luma_a.mp4"))
	assert.Equal(t, []byte("video-b"), readEntry(t, zr, "luma_b.mp4"))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(readEntry(t, zr, "metadata.json"), &decoded))
	assert.Equal(t, float64(2), decoded["totalVideos"])
}

func TestBuild_FailedItemsBecomePlaceholders(t *testing.T) {
	builder := archive.NewBuilder()

	blob, err := builder.Build([]archive.Item{
		{ID: "ok", Filename: "luma_ok.mp4", Data: []byte("payload")},
		{ID: "broken", Err: errors.New("connection refused")},
	}, "metadata.json", map[string]int{"totalVideos": 2})

	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(blob), int64(len(blob)))
	require.NoError(t, err)

	placeholder := readEntry(t, zr, "ERROR_broken.txt")
	assert.Contains(t, string(placeholder), "connection refused")
	assert.Equal(t, []byte("payload"), readEntry(t, zr, "luma_ok.mp4"))
}

func TestBuild_NoManifest(t *testing.T) {
	builder := archive.NewBuilder()

	blob, err := builder.Build([]archive.Item{
		{ID: "a", Filename: "a.mp4", Data: []byte("x")},
	}, "metadata.json", nil)

	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(blob), int64(len(blob)))
	require.NoError(t, err)
	assert.Len(t, zr.File, 1)
}
