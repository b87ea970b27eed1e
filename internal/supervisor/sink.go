// Grounded on internal/storage/interfaces.go's small, purpose-named
// storage boundaries (AlertStorage, SessionStore): the Supervisor depends
// on interfaces, not concrete sinks, so a Kafka-backed implementation can
// be swapped for a test double without touching orchestration code.
package supervisor

import "wipeengine/internal/wipe"

// EventSink receives lifecycle events as workers produce them. Publish
// must never block the calling worker for long; a slow or unavailable
// sink should drop or buffer internally rather than stall a pass.
type EventSink interface {
	Publish(wipe.Event)
}

// ProgressObserver is the read side of the Statistics & ETA surface: any
// consumer that wants a point-in-time view of every device's progress.
type ProgressObserver interface {
	Snapshots() []wipe.ProgressSnapshot
}

// SummarySink receives the final per-device summary table once a job
// completes, for whatever reporting surface sits outside the core engine.
type SummarySink interface {
	PublishSummary(summaries []wipe.DeviceSummary)
}

// noopEventSink discards every event; used when the caller configures no
// external event log.
type noopEventSink struct{}

func (noopEventSink) Publish(wipe.Event) {}

// NoopEventSink returns an EventSink that discards everything.
func NoopEventSink() EventSink { return noopEventSink{} }
