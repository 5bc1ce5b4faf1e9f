// Package ingest wraps the Kusto ingestion SDK behind a small client interface
// and holds the column mapping policy of the ADX target.
package ingest

import (
	"context"
	"io"

	"go-adxlog/internal/config"

	"github.com/google/uuid"
)

// DataFormat is the Kusto source format tag sent with every submission.
type DataFormat string

// MultiJSON is the only format the target emits.
const MultiJSON DataFormat = "multijson"

// Compression tags the encoding of a submitted stream.
type Compression int

const (
	CompressionNone Compression = iota
	CompressionGZip
)

// Properties are the per-call ingestion properties.
type Properties struct {
	Database         string
	Table            string
	Format           DataFormat
	Mapping          Mapping
	FlushImmediately bool
}

// StreamOptions describe the submitted stream itself.
type StreamOptions struct {
	SourceID    uuid.UUID
	LeaveOpen   bool
	Compression Compression
}

// Client is a long-lived handle to the ingestion service.
type Client interface {
	IngestFromStream(ctx context.Context, r io.Reader, props Properties, opts StreamOptions) error
	Mode() config.IngestionMode
	Close() error
}

// Factory builds the single client a target owns.
type Factory func(opts *config.Options) (Client, error)
