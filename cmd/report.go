package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/triage-sim/triage-sim/sim/physio"
	"github.com/triage-sim/triage-sim/sim/trace"
	"github.com/triage-sim/triage-sim/sim/world"
)

// reportMetrics are sampled for every casualty.
var reportMetrics = []string{"heartRate", "map", "sao2", "respiratoryRate", "gcs", "bloodVolume"}

// Sample is one casualty reading in the report.
type Sample struct {
	TimeS    float64            `json:"time_s"`
	Location world.Point        `json:"location"`
	Vitals   map[string]float64 `json:"vitals,omitempty"`
	Arrested bool               `json:"arrested"`
}

// CasualtyReport is the sampled course of one casualty.
type CasualtyReport struct {
	ID          string   `json:"id"`
	Pathologies []string `json:"pathologies,omitempty"`
	Effects     []string `json:"effects,omitempty"`
	ArrestedAtS *float64 `json:"arrested_at_s,omitempty"`
	Samples     []Sample `json:"samples"`
}

// Report is the JSON document printed at the end of a run or replay.
type Report struct {
	NowS       float64                   `json:"now_s"`
	Casualties []CasualtyReport          `json:"casualties"`
	Logs       map[string][]trace.Record `json:"observer_logs,omitempty"`
	Summary    *trace.TraceSummary       `json:"trace_summary"`
}

// buildReport samples every casualty from 0 to horizon every period ms.
func buildReport(m *world.Manager, chemicals map[string]physio.Kinetics, horizon, every int64) (*Report, error) {
	if every <= 0 {
		return nil, fmt.Errorf("report period must be positive, got %d", every)
	}
	r := &Report{
		NowS:    float64(m.Now()) / 1000,
		Logs:    map[string][]trace.Record{},
		Summary: trace.Summarize(m.Trace()),
	}
	for _, id := range m.Entities() {
		spec, _ := m.Spec(id)
		if spec.Kind != world.KindCasualty {
			continue
		}
		meta, _ := m.Meta(id)
		cr := CasualtyReport{ID: id}
		if h, ok := m.Health(id); ok {
			for _, p := range h.Pathologies {
				cr.Pathologies = append(cr.Pathologies, p.Injury)
			}
			for _, e := range h.Effects {
				cr.Effects = append(cr.Effects, e.Action)
			}
		}
		for t := int64(0); t <= horizon; t += every {
			st, ok := m.StateAt(id, t)
			if !ok {
				return nil, fmt.Errorf("no state for %q at %d ms", id, t)
			}
			s := Sample{TimeS: float64(t) / 1000, Location: st.Location}
			if st.Body != nil {
				s.Vitals = make(map[string]float64, len(reportMetrics))
				for _, name := range reportMetrics {
					if v, ok := physio.Metric(st.Body, meta, chemicals, name); ok {
						s.Vitals[name] = v
					}
				}
				arrest := st.Body.Vitals.Arrest
				s.Arrested = arrest.Arrested
				if arrest.Arrested && cr.ArrestedAtS == nil {
					at := float64(arrest.Time) / 1000
					cr.ArrestedAtS = &at
				}
			}
			cr.Samples = append(cr.Samples, s)
		}
		r.Casualties = append(r.Casualties, cr)
	}
	for _, obs := range m.Trace().Observers() {
		r.Logs[obs] = m.Log(obs)
	}
	return r, nil
}

// printReport writes the report header and JSON body to w.
func printReport(w io.Writer, r *Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	if _, err := fmt.Fprintln(w, "=== Triage Report ==="); err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
