package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/triage-sim/triage-sim/sim"
	"github.com/triage-sim/triage-sim/sim/content"
	"github.com/triage-sim/triage-sim/sim/journal"
	"github.com/triage-sim/triage-sim/sim/trace"
	"github.com/triage-sim/triage-sim/sim/world"
)

var (
	scenarioPath string // Scenario YAML file
	contentPath  string // Content YAML file, overrides the scenario's
	journalPath  string // SQLite journal to record to (or replay from)
	metricsAddr  string // Address serving Prometheus metrics
	metricsHold  bool   // Keep serving metrics after the run until interrupted
	seed         int64  // Seed override
	traceLevel   string // Observer log level
)

// runOptions are the run inputs that do not come from the scenario file.
type runOptions struct {
	ContentPath string
	JournalPath string
	Seed        *int64
	TraceLevel  string
	Metrics     *world.Collector
}

// sink is where entities and passes go: the manager itself or a recorder.
type sink interface {
	AddEntity(ctx context.Context, id string, spec world.EntitySpec) error
	Synchronize(ctx context.Context, now int64, events []world.Event) (world.SyncReport, error)
}

type managerSink struct{ m *world.Manager }

func (s managerSink) AddEntity(_ context.Context, id string, spec world.EntitySpec) error {
	return s.m.AddEntity(id, spec)
}

func (s managerSink) Synchronize(_ context.Context, now int64, events []world.Event) (world.SyncReport, error) {
	return s.m.Synchronize(now, events)
}

// runCmd plays a scenario and prints the report
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a scripted triage scenario",
	Run: func(cmd *cobra.Command, args []string) {
		if scenarioPath == "" {
			logrus.Fatalf("Scenario not provided. Exiting simulation.")
		}
		if !trace.IsValidTraceLevel(traceLevel) {
			logrus.Fatalf("Invalid trace level: %s", traceLevel)
		}
		sc, err := LoadScenario(scenarioPath)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		opts := runOptions{ContentPath: contentPath, JournalPath: journalPath, TraceLevel: traceLevel}
		if cmd.Flags().Changed("seed") {
			opts.Seed = &seed
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var srv *http.Server
		if metricsAddr != "" {
			opts.Metrics = world.NewCollector()
			srv = serveMetrics(metricsAddr, opts.Metrics)
		}

		startTime := time.Now()
		if err := runScenario(ctx, sc, opts, os.Stdout); err != nil {
			logrus.Fatalf("%v", err)
		}
		logrus.Infof("Scenario complete in %v.", time.Since(startTime))

		if srv != nil {
			if metricsHold {
				logrus.Infof("Serving metrics on %s until interrupted", metricsAddr)
				<-ctx.Done()
			}
			shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdown)
		}
	},
}

// runScenario plays sc and writes the report to out.
func runScenario(ctx context.Context, sc *Scenario, opts runOptions, out io.Writer) error {
	path := sc.Content
	if opts.ContentPath != "" {
		path = opts.ContentPath
	}
	reg, err := loadContent(path)
	if err != nil {
		return err
	}
	cfg := sc.Config()
	if opts.Seed != nil {
		cfg.Seed = *opts.Seed
	}
	m, err := world.NewManager(reg, cfg, world.Options{
		Metrics: opts.Metrics,
		Trace:   trace.TraceConfig{Level: trace.TraceLevel(opts.TraceLevel)},
	})
	if err != nil {
		return err
	}

	var dst sink = managerSink{m}
	if opts.JournalPath != "" {
		store, err := journal.Open(opts.JournalPath)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := bindJournal(ctx, store, cfg, path); err != nil {
			return err
		}
		dst = journal.NewRecorder(store, m)
		logrus.Infof("Journaling to %s", store.Path())
	}

	gen, err := sc.Generate.Generate(cfg.Seed, reg)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}
	if err := sc.checkCollisions(gen); err != nil {
		return err
	}
	passes := sc.passes(gen)

	logrus.Infof("Starting scenario with seed=%d, step=%dms, %d entities, %d passes",
		cfg.Seed, cfg.StepMs, len(sc.Entities)+len(gen.Entities), len(passes))
	for _, e := range append(slices.Clone(sc.Entities), gen.Entities...) {
		if err := dst.AddEntity(ctx, e.ID, e.EntitySpec); err != nil {
			return fmt.Errorf("entity %q: %w", e.ID, err)
		}
	}
	for i, p := range passes {
		if err := ctx.Err(); err != nil {
			return err
		}
		rep, err := dst.Synchronize(ctx, p.Now, p.Events)
		if err != nil {
			return fmt.Errorf("sync %d: %w", i, err)
		}
		logrus.Infof("t=%dms: %d events ingested, %d delayed actions applied, %d failures",
			rep.Now, rep.Ingested, rep.Applied, len(rep.Failures))
	}

	report, err := buildReport(m, reg.Chemicals, sc.Horizon(), sc.ReportEvery())
	if err != nil {
		return err
	}
	return printReport(out, report)
}

// bindJournal records what a replay needs besides the passes.
func bindJournal(ctx context.Context, store *journal.Store, cfg sim.SimConfig, content string) error {
	if err := store.BindSeed(ctx, cfg.Seed); err != nil {
		return err
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := store.SetMeta(ctx, journal.MetaConfig, string(data)); err != nil {
		return err
	}
	return store.SetMeta(ctx, journal.MetaContent, content)
}

func loadContent(path string) (*content.Registry, error) {
	if path == "" {
		return content.Default()
	}
	return content.LoadFile(path)
}

func serveMetrics(addr string, c *world.Collector) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Errorf("metrics server: %v", err)
		}
	}()
	return srv
}

func init() {
	runCmd.Flags().StringVar(&scenarioPath, "scenario", "", "Scenario YAML file")
	runCmd.Flags().StringVar(&contentPath, "content", "", "Content YAML file (default: the scenario's, else built-in content)")
	runCmd.Flags().StringVar(&journalPath, "journal", "", "Record the run to this SQLite journal")
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	runCmd.Flags().BoolVar(&metricsHold, "metrics-hold", false, "Keep serving metrics after the run until interrupted")
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Seed for injury instantiation (overrides the scenario)")
	runCmd.Flags().StringVar(&traceLevel, "trace-level", "actions", "Observer log level (none, measurements, actions)")

	rootCmd.AddCommand(runCmd)
}
