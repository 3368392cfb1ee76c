package s3blob

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valoriste/valoriste/internal/domain"
)

type memWriter struct {
	objects   map[string][]byte
	types     map[string]string
	multipart map[string]bool
}

func newMemWriter() *memWriter {
	return &memWriter{
		objects:   map[string][]byte{},
		types:     map[string]string{},
		multipart: map[string]bool{},
	}
}

func (w *memWriter) Put(ctx context.Context, path string, data io.Reader, contentType string) error {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(data); err != nil {
		return err
	}
	w.objects[path] = buf.Bytes()
	w.types[path] = contentType
	return nil
}

func (w *memWriter) PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error {
	w.multipart[path] = true
	return w.Put(ctx, path, data, "application/octet-stream")
}

func TestArchiveScanWritesSnapshot(t *testing.T) {
	writer := newMemWriter()
	a := NewScanArchiver(writer)

	started := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	result := domain.ScanResult{
		ScanID:     "scan-1",
		UserID:     "thai",
		StartedAt:  started,
		Duration:   1500 * time.Millisecond,
		TotalItems: 40,
		Deals: []domain.Deal{
			{Listing: domain.Listing{ItemID: "i1", Title: "APC jeans", Price: 50}, Profit: 60, ROI: 120},
		},
	}

	path, err := a.ArchiveScan(context.Background(), result)
	require.NoError(t, err)
	assert.Equal(t, "scans/thai/2026-08-29/scan-1.jsonl", path)
	assert.Equal(t, "application/x-ndjson", writer.types[path])

	lines := strings.Split(strings.TrimSpace(string(writer.objects[path])), "\n")
	require.Len(t, lines, 2, "header line plus one deal line")
	assert.Contains(t, lines[0], `"scan_id":"scan-1"`)
	assert.Contains(t, lines[0], `"deal_count":1`)
	assert.Contains(t, lines[1], `"item_id":"i1"`)
}

func TestArchiveScanLargeSnapshotUsesMultipart(t *testing.T) {
	writer := newMemWriter()
	a := NewScanArchiver(writer)

	// Pad the snapshot past the single-put cutoff.
	filler := strings.Repeat("x", 1<<20)
	result := domain.ScanResult{
		ScanID:    "scan-big",
		UserID:    "andy",
		StartedAt: time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC),
	}
	for i := 0; i < 6; i++ {
		result.Deals = append(result.Deals, domain.Deal{
			Listing: domain.Listing{ItemID: "bulk", Title: filler},
		})
	}

	path, err := a.ArchiveScan(context.Background(), result)
	require.NoError(t, err)
	assert.True(t, writer.multipart[path], "oversized snapshots must upload in parts")

	small := domain.ScanResult{ScanID: "scan-small", UserID: "andy", StartedAt: result.StartedAt}
	smallPath, err := a.ArchiveScan(context.Background(), small)
	require.NoError(t, err)
	assert.False(t, writer.multipart[smallPath])
}

func TestArchiveScanEmptyDeals(t *testing.T) {
	writer := newMemWriter()
	a := NewScanArchiver(writer)

	result := domain.ScanResult{
		ScanID:    "scan-2",
		UserID:    "rose",
		StartedAt: time.Now(),
	}
	path, err := a.ArchiveScan(context.Background(), result)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(writer.objects[path])), "\n")
	assert.Len(t, lines, 1, "header only")
}
