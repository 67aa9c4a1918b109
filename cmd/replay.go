package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/triage-sim/triage-sim/sim"
	"github.com/triage-sim/triage-sim/sim/journal"
	"github.com/triage-sim/triage-sim/sim/trace"
	"github.com/triage-sim/triage-sim/sim/world"
)

var (
	replayHorizonS float64 // Report horizon in seconds
	replayEveryS   float64 // Report sampling period in seconds
)

// replayCmd rebuilds a recorded exercise from its journal
var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a recorded exercise from its journal",
	Run: func(cmd *cobra.Command, args []string) {
		if journalPath == "" {
			logrus.Fatalf("Journal not provided. Exiting replay.")
		}
		if !trace.IsValidTraceLevel(traceLevel) {
			logrus.Fatalf("Invalid trace level: %s", traceLevel)
		}
		if err := replayJournal(context.Background(), journalPath, contentPath, traceLevel, seconds(replayHorizonS), seconds(replayEveryS), os.Stdout); err != nil {
			logrus.Fatalf("%v", err)
		}
		logrus.Info("Replay complete.")
	},
}

// replayJournal replays the journal at path and writes the report to out.
// A zero horizon reports up to the last recorded pass.
func replayJournal(ctx context.Context, path, contentOverride, level string, horizon, every int64, out io.Writer) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	store, err := journal.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	cfg, contentFile, err := journalSetup(ctx, store)
	if err != nil {
		return err
	}
	if contentOverride != "" {
		contentFile = contentOverride
	}
	reg, err := loadContent(contentFile)
	if err != nil {
		return err
	}
	m, err := world.NewManager(reg, cfg, world.Options{Trace: trace.TraceConfig{Level: trace.TraceLevel(level)}})
	if err != nil {
		return err
	}
	reports, err := journal.Replay(ctx, store, m)
	if err != nil {
		return err
	}
	logrus.Infof("Replayed %d passes up to t=%dms", len(reports), m.Now())

	if horizon <= 0 {
		horizon = m.Now()
	}
	if every <= 0 {
		every = 60000
	}
	report, err := buildReport(m, reg.Chemicals, horizon, every)
	if err != nil {
		return err
	}
	return printReport(out, report)
}

// journalSetup reads the engine configuration and content path a journal
// was recorded with. Journals without a config fall back to the defaults
// and the recorded seed.
func journalSetup(ctx context.Context, store *journal.Store) (sim.SimConfig, string, error) {
	cfg := sim.DefaultSimConfig()
	raw, ok, err := store.Meta(ctx, journal.MetaConfig)
	if err != nil {
		return cfg, "", err
	}
	if ok {
		if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
			return cfg, "", fmt.Errorf("decoding journal config: %w", err)
		}
	}
	s, ok, err := store.Seed(ctx)
	if err != nil {
		return cfg, "", err
	}
	if ok {
		cfg.Seed = s
	}
	contentFile, _, err := store.Meta(ctx, journal.MetaContent)
	return cfg, contentFile, err
}

func init() {
	replayCmd.Flags().StringVar(&journalPath, "journal", "", "SQLite journal to replay")
	replayCmd.Flags().StringVar(&contentPath, "content", "", "Content YAML file (default: the one recorded in the journal)")
	replayCmd.Flags().StringVar(&traceLevel, "trace-level", "actions", "Observer log level (none, measurements, actions)")
	replayCmd.Flags().Float64Var(&replayHorizonS, "horizon", 0, "Report horizon in seconds (default: last recorded pass)")
	replayCmd.Flags().Float64Var(&replayEveryS, "report-every", 60, "Report sampling period in seconds")

	rootCmd.AddCommand(replayCmd)
}
