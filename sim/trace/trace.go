package trace

import "sort"

// TraceLevel controls which records are kept.
type TraceLevel string

const (
	// TraceLevelNone disables logging.
	TraceLevelNone TraceLevel = "none"
	// TraceLevelMeasurements keeps measurement results only.
	TraceLevelMeasurements TraceLevel = "measurements"
	// TraceLevelActions keeps measurements and the lifecycle of every action.
	TraceLevelActions TraceLevel = "actions"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:         true,
	TraceLevelMeasurements: true,
	TraceLevelActions:      true,
	"":                     true, // empty defaults to actions
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls log collection behavior.
type TraceConfig struct {
	Level TraceLevel
}

// ObserverLog collects records per observer, in insertion order.
type ObserverLog struct {
	Config  TraceConfig
	records map[string][]Record
}

// NewObserverLog creates an ObserverLog ready for recording.
func NewObserverLog(config TraceConfig) *ObserverLog {
	return &ObserverLog{
		Config:  config,
		records: make(map[string][]Record),
	}
}

// Record appends r to its observer's log unless the level filters it out.
func (l *ObserverLog) Record(r Record) {
	switch l.Config.Level {
	case TraceLevelNone:
		return
	case TraceLevelMeasurements:
		if r.Kind != KindMeasurement {
			return
		}
	}
	l.records[r.Observer] = append(l.records[r.Observer], r)
}

// Log returns a copy of an observer's records.
func (l *ObserverLog) Log(observer string) []Record {
	return append([]Record(nil), l.records[observer]...)
}

// Observers returns the observers with at least one record, sorted.
func (l *ObserverLog) Observers() []string {
	out := make([]string, 0, len(l.records))
	for o := range l.records {
		out = append(out, o)
	}
	sort.Strings(out)
	return out
}

// Clone returns an independent copy.
func (l *ObserverLog) Clone() *ObserverLog {
	c := NewObserverLog(l.Config)
	for o, rs := range l.records {
		c.records[o] = append([]Record(nil), rs...)
	}
	return c
}

// Mark is the length of every observer's log at some point.
type Mark map[string]int

// Mark captures the current log lengths.
func (l *ObserverLog) Mark() Mark {
	m := make(Mark, len(l.records))
	for o, rs := range l.records {
		m[o] = len(rs)
	}
	return m
}

// Rewind drops every record appended since m was taken.
func (l *ObserverLog) Rewind(m Mark) {
	for o, rs := range l.records {
		if n := m[o]; n > 0 {
			l.records[o] = rs[:n:n]
		} else {
			delete(l.records, o)
		}
	}
}
