// Package archive builds in-memory zip containers for export responses.
package archive

import (
	"archive/zip"
	"bytes"
	"compress/flate"
	"encoding/json"
	"fmt"
	"io"

	"dream-export/internal/infrastructure/metrics"
)

// Item is one candidate archive entry. Items that failed upstream carry
// an Err and become placeholder text entries instead of aborting the
// whole build.
type Item struct {
	ID       string
	Filename string
	Data     []byte
	Err      error
}

// Builder serializes items into a single zip blob.
type Builder struct{}

func NewBuilder() *Builder {
	return &Builder{}
}

// Build creates the zip. Compression runs at the fastest flate level:
// request-duration limits on the hosting platform matter more than ratio
// for already-compressed video payloads. The manifest is stored under
// manifestName as indented JSON.
func (b *Builder) Build(items []Item, manifestName string, manifest any) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestSpeed)
	})

	for _, item := range items {
		if item.Err != nil {
			entry, err := zw.Create(fmt.Sprintf("ERROR_%s.txt", item.ID))
			if err != nil {
				return nil, fmt.Errorf("create error entry: %w", err)
			}
			if _, err := fmt.Fprintf(entry, "Failed to download %s: %v\n", item.ID, item.Err); err != nil {
				return nil, fmt.Errorf("write error entry: %w", err)
			}
			continue
		}

		entry, err := zw.Create(item.Filename)
		if err != nil {
			return nil, fmt.Errorf("create entry %s: %w", item.Filename, err)
		}
		if _, err := entry.Write(item.Data); err != nil {
			return nil, fmt.Errorf("write entry %s: %w", item.Filename, err)
		}
	}

	if manifest != nil {
		encoded, err := json.MarshalIndent(manifest, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal manifest: %w", err)
		}
		entry, err := zw.Create(manifestName)
		if err != nil {
			return nil, fmt.Errorf("create manifest entry: %w", err)
		}
		if _, err := entry.Write(encoded); err != nil {
			return nil, fmt.Errorf("write manifest: %w", err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize archive: %w", err)
	}

	metrics.ArchivesTotal.Inc()
	metrics.ArchiveBytes.Observe(float64(buf.Len()))
	return buf.Bytes(), nil
}
