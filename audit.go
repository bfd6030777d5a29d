package authcore

import (
	"io"

	"github.com/halcyondev/authcore/internal/audit"
)

// NewJSONAuditSink writes each audit event as one JSON line to w. Writes
// are serialized; errors are swallowed, matching the contract that audit
// never disturbs auth operations.
func NewJSONAuditSink(w io.Writer) AuditSink {
	return audit.NewJSONWriterSink(w)
}

// NewChannelAuditSink buffers events in a channel for the application to
// drain. Events are dropped only when the caller's context is already
// cancelled and the buffer is full.
func NewChannelAuditSink(buffer int) (AuditSink, <-chan AuditEvent) {
	sink := audit.NewChannelSink(buffer)
	return sink, sink.Events()
}
