package trace

// TraceSummary aggregates statistics from an ObserverLog.
type TraceSummary struct {
	TotalRecords    int
	Measurements    int
	EffectsApplied  int
	Cancelled       int
	Rejected        int
	UniqueObservers int
	PerEntity       map[string]int // entity ID → records targeting it
}

// Summarize computes aggregate statistics from an ObserverLog.
// Safe for nil or empty logs (returns zero-value fields).
func Summarize(l *ObserverLog) *TraceSummary {
	summary := &TraceSummary{
		PerEntity: make(map[string]int),
	}
	if l == nil {
		return summary
	}

	for _, observer := range l.Observers() {
		for _, r := range l.records[observer] {
			summary.TotalRecords++
			summary.PerEntity[r.Entity]++
			switch r.Kind {
			case KindMeasurement:
				summary.Measurements++
			case KindEffectApplied:
				summary.EffectsApplied++
			case KindCancelled:
				summary.Cancelled++
			case KindRejected:
				summary.Rejected++
			}
		}
	}
	summary.UniqueObservers = len(l.records)

	return summary
}
