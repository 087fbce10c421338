package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/HobanSearch/Tonsurance-sub007/internal/domain"
)

// multipartThreshold is the serialized batch size above which uploads switch
// to the multipart path.
const multipartThreshold = 8 * 1024 * 1024

// Archiver implements domain.Archiver by serializing record batches to JSONL
// and uploading them to the configured bucket. Records are immutable once
// written; each batch becomes its own object keyed by kind and timestamp.
type Archiver struct {
	client *Client
	logger *slog.Logger
}

var _ domain.Archiver = (*Archiver)(nil)

// NewArchiver creates an Archiver writing through the given client.
func NewArchiver(client *Client, logger *slog.Logger) *Archiver {
	return &Archiver{
		client: client,
		logger: logger.With("component", "archiver"),
	}
}

// Archive serializes records to JSONL and uploads the batch to
// archive/{kind}/{YYYY-MM-DD}/{HHMMSS}.jsonl. Empty batches are a no-op.
func (a *Archiver) Archive(ctx context.Context, kind string, ts time.Time, records []any) error {
	if len(records) == 0 {
		return nil
	}

	buf, err := marshalJSONL(records)
	if err != nil {
		return fmt.Errorf("s3blob: archive %s marshal: %w", kind, err)
	}

	path := archivePath(kind, ts)

	if int64(len(buf)) > multipartThreshold {
		err = a.client.putMultipart(ctx, path, bytes.NewReader(buf), "application/x-ndjson")
	} else {
		err = a.client.put(ctx, path, bytes.NewReader(buf), "application/x-ndjson")
	}
	if err != nil {
		return fmt.Errorf("s3blob: archive %s upload: %w", kind, err)
	}

	a.logger.Info("archived batch",
		"kind", kind,
		"path", path,
		"records", len(records),
		"bytes", len(buf))
	return nil
}

// archivePath builds the object key for an archive batch, partitioned by the
// UTC date of the batch timestamp.
//
//	archive/payouts/2026-08-26/143205.jsonl
//	archive/hedge_reports/2026-08-26/143205.jsonl
func archivePath(kind string, ts time.Time) string {
	u := ts.UTC()
	return fmt.Sprintf("archive/%s/%s/%s.jsonl", kind, u.Format("2006-01-02"), u.Format("150405"))
}

// marshalJSONL serializes records as newline-delimited JSON.
func marshalJSONL(records []any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
