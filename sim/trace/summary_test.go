package trace

import "testing"

func TestSummarize_EmptyLog_ZeroValues(t *testing.T) {
	// GIVEN an empty log
	l := NewObserverLog(TraceConfig{Level: TraceLevelActions})

	// WHEN summarized
	summary := Summarize(l)

	// THEN all counts are zero
	if summary.TotalRecords != 0 || summary.Measurements != 0 {
		t.Errorf("expected zero counts, got %+v", summary)
	}
	if summary.UniqueObservers != 0 {
		t.Errorf("expected 0 observers, got %d", summary.UniqueObservers)
	}
	if len(summary.PerEntity) != 0 {
		t.Error("expected empty per-entity distribution")
	}
}

func TestSummarize_NilLog_ZeroValues(t *testing.T) {
	summary := Summarize(nil)
	if summary.TotalRecords != 0 || summary.PerEntity == nil {
		t.Errorf("unexpected summary for nil log: %+v", summary)
	}
}

func TestSummarize_PopulatedLog_CorrectCounts(t *testing.T) {
	// GIVEN a log with every kind of record
	l := NewObserverLog(TraceConfig{Level: TraceLevelActions})
	l.Record(Record{Observer: "medic", Entity: "v1", Kind: KindActionStarted})
	l.Record(Record{Observer: "medic", Entity: "v1", Kind: KindMeasurement, Metric: "heartRate"})
	l.Record(Record{Observer: "medic", Entity: "v1", Kind: KindMeasurement, Metric: "sao2"})
	l.Record(Record{Observer: "nurse", Entity: "v2", Kind: KindEffectApplied})
	l.Record(Record{Observer: "nurse", Entity: "v2", Kind: KindCancelled})
	l.Record(Record{Observer: "nurse", Entity: "v3", Kind: KindRejected})

	// WHEN summarized
	summary := Summarize(l)

	// THEN counts match
	if summary.TotalRecords != 6 {
		t.Errorf("expected 6 records, got %d", summary.TotalRecords)
	}
	if summary.Measurements != 2 || summary.EffectsApplied != 1 || summary.Cancelled != 1 || summary.Rejected != 1 {
		t.Errorf("unexpected kind counts %+v", summary)
	}
	if summary.UniqueObservers != 2 {
		t.Errorf("expected 2 observers, got %d", summary.UniqueObservers)
	}
	if summary.PerEntity["v1"] != 3 || summary.PerEntity["v2"] != 2 || summary.PerEntity["v3"] != 1 {
		t.Errorf("unexpected per-entity counts %v", summary.PerEntity)
	}
}
