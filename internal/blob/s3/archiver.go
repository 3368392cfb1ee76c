package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/valoriste/valoriste/internal/domain"
)

// ScanArchiver implements domain.Archiver by serializing scan snapshots to
// JSONL and uploading them to blob storage. Snapshots keep a durable record
// of what each scan saw even after the hot store is pruned.
type ScanArchiver struct {
	writer domain.BlobWriter
}

// NewScanArchiver creates a ScanArchiver writing through the given BlobWriter.
func NewScanArchiver(writer domain.BlobWriter) *ScanArchiver {
	return &ScanArchiver{writer: writer}
}

// Snapshots at or above this size go through the multipart uploader instead
// of a single PutObject. Matches the S3 minimum part size.
const multipartThreshold = 5 << 20

// ArchiveScan uploads one scan snapshot. The object is stored at
// scans/{userID}/{YYYY-MM-DD}/{scanID}.jsonl: a header line with the scan
// metadata followed by one line per deal.
func (a *ScanArchiver) ArchiveScan(ctx context.Context, result domain.ScanResult) (string, error) {
	buf, err := marshalSnapshot(result)
	if err != nil {
		return "", fmt.Errorf("s3blob: archive scan %s: %w", result.ScanID, err)
	}

	path := fmt.Sprintf("scans/%s/%s/%s.jsonl",
		result.UserID, result.StartedAt.Format("2006-01-02"), result.ScanID)

	if int64(len(buf)) >= multipartThreshold {
		err = a.writer.PutMultipart(ctx, path, bytes.NewReader(buf), multipartThreshold)
	} else {
		err = a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson")
	}
	if err != nil {
		return "", fmt.Errorf("s3blob: archive scan %s: %w", result.ScanID, err)
	}
	return path, nil
}

// marshalSnapshot writes the scan header and its deals as newline-delimited
// JSON.
func marshalSnapshot(result domain.ScanResult) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	header := struct {
		ScanID     string `json:"scan_id"`
		UserID     string `json:"user_id"`
		StartedAt  string `json:"started_at"`
		DurationMS int64  `json:"duration_ms"`
		TotalItems int    `json:"total_items"`
		DealCount  int    `json:"deal_count"`
	}{
		ScanID:     result.ScanID,
		UserID:     result.UserID,
		StartedAt:  result.StartedAt.Format("2006-01-02T15:04:05Z07:00"),
		DurationMS: result.Duration.Milliseconds(),
		TotalItems: result.TotalItems,
		DealCount:  len(result.Deals),
	}
	if err := enc.Encode(header); err != nil {
		return nil, fmt.Errorf("jsonl encode header: %w", err)
	}

	for i, deal := range result.Deals {
		if err := enc.Encode(deal); err != nil {
			return nil, fmt.Errorf("jsonl encode deal %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// Compile-time interface check.
var _ domain.Archiver = (*ScanArchiver)(nil)
