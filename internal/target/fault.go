package target

import (
	"time"

	"github.com/google/uuid"
)

// Fault describes a submission that failed after Write had already returned.
// Payload is the gzip JSON that was sent and is owned by the handler.
type Fault struct {
	SourceID uuid.UUID
	Database string
	Table    string
	Payload  []byte
	Err      error
	Time     time.Time
}

// FaultHandler receives asynchronous submission failures. Handlers run on the
// submitting goroutine and should not block for long.
type FaultHandler func(Fault)
