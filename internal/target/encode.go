package target

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/valyala/bytebufferpool"
)

// Encoder serializes documents to gzip-compressed JSON. Buffers come from the
// injected pool and must be handed back through Release.
type Encoder struct {
	pool    *bytebufferpool.Pool
	writers sync.Pool
}

func NewEncoder(pool *bytebufferpool.Pool) *Encoder {
	if pool == nil {
		pool = new(bytebufferpool.Pool)
	}
	return &Encoder{pool: pool}
}

func writeDocument(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(doc)
}

// Encode writes doc as one JSON line through gzip into a pooled buffer.
func (e *Encoder) Encode(doc Document) (*bytebufferpool.ByteBuffer, error) {
	buf := e.pool.Get()

	zw, _ := e.writers.Get().(*gzip.Writer)
	if zw == nil {
		zw = gzip.NewWriter(buf)
	} else {
		zw.Reset(buf)
	}
	defer e.writers.Put(zw)

	if err := writeDocument(zw, doc); err != nil {
		e.Release(buf)
		return nil, fmt.Errorf("encode document: %w", err)
	}
	if err := zw.Close(); err != nil {
		e.Release(buf)
		return nil, fmt.Errorf("compress document: %w", err)
	}
	return buf, nil
}

func (e *Encoder) Release(buf *bytebufferpool.ByteBuffer) {
	if buf != nil {
		e.pool.Put(buf)
	}
}
