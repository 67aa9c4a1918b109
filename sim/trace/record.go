// Package trace records what each observer did and measured during an
// exercise. This package has no dependencies on other sim/ packages; it
// stores pure data types.
package trace

// RecordKind classifies an observer log record.
type RecordKind string

const (
	// KindActionStarted marks the ingestion of an action by its actor.
	KindActionStarted RecordKind = "action_started"
	// KindEffectApplied marks a treatment taking effect on its target.
	KindEffectApplied RecordKind = "effect_applied"
	// KindMeasurement holds one metric value read at completion.
	KindMeasurement RecordKind = "measurement"
	// KindCancelled marks a pending action removed before it was due.
	KindCancelled RecordKind = "cancelled"
	// KindRejected marks an action refused at ingestion.
	KindRejected RecordKind = "rejected"
)

// Record is one entry of an observer's log.
type Record struct {
	Time     int64 // simulated ms
	Observer string
	Entity   string // target entity
	EventID  int64
	Kind     RecordKind
	Action   string  // action source, e.g. "tourniquet/apply"
	Metric   string  // measurements only
	Value    float64 // measurements only
	Detail   string  // free text, e.g. a rejection reason
}
