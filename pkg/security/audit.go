package security

import (
	"time"

	"github.com/synerthink/dotlanth/internal/metrics"
	"github.com/synerthink/dotlanth/internal/obslog"
)

// AuditEvent records one security-relevant decision: a capability check, a
// quota charge, or an isolation violation.
type AuditEvent struct {
	Timestamp time.Time
	DotID     string
	Action    string
	Allowed   bool
	Reason    string
}

// Sink consumes audit events. Implementations must not block the caller
// indefinitely — a full buffer should fail fast with ErrAuditBufferFull
// rather than stall the execution path it's observing.
type Sink interface {
	Record(AuditEvent) error
}

// BufferedSink is a bounded, channel-backed Sink: Record never blocks,
// returning ErrAuditBufferFull once the buffer is saturated. A background
// goroutine drains the buffer to an underlying Sink; Close stops it.
type BufferedSink struct {
	events chan AuditEvent
	next   Sink
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewBufferedSink wraps next with a channel buffer of the given capacity.
func NewBufferedSink(next Sink, capacity int) *BufferedSink {
	b := &BufferedSink{
		events: make(chan AuditEvent, capacity),
		next:   next,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	go b.drain()
	return b
}

// Record enqueues an event, failing immediately if the buffer is full.
func (b *BufferedSink) Record(e AuditEvent) error {
	select {
	case b.events <- e:
		return nil
	default:
		metrics.AuditBufferFullTotal.Inc()
		return ErrAuditBufferFull
	}
}

func (b *BufferedSink) drain() {
	defer close(b.doneCh)
	for {
		select {
		case e := <-b.events:
			if err := b.next.Record(e); err != nil {
				obslog.WithComponent("security.audit").Warn().Err(err).Msg("downstream audit sink rejected event")
			}
		case <-b.stopCh:
			for {
				select {
				case e := <-b.events:
					if err := b.next.Record(e); err != nil {
						obslog.WithComponent("security.audit").Warn().Err(err).Msg("downstream audit sink rejected event")
					}
				default:
					return
				}
			}
		}
	}
}

// Close stops the drain goroutine after it has passed every already-queued
// event to the downstream sink; there is no timeout on that flush.
func (b *BufferedSink) Close() {
	close(b.stopCh)
	<-b.doneCh
}

// LogSink is a Sink that writes every event to the structured logger,
// matching the teacher's zerolog-everywhere observability style.
type LogSink struct{}

func (LogSink) Record(e AuditEvent) error {
	logEvt := obslog.WithComponent("security.audit")
	ev := logEvt.Info()
	if !e.Allowed {
		ev = logEvt.Warn()
	}
	ev.Str("dot_id", e.DotID).Str("action", e.Action).Bool("allowed", e.Allowed).Str("reason", e.Reason).Msg("audit event")
	return nil
}
