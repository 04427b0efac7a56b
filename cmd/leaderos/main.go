package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/davidpgausai-svg/LeaderOS-sub003/internal/config"
	"github.com/davidpgausai-svg/LeaderOS-sub003/internal/engine"
	"github.com/davidpgausai-svg/LeaderOS-sub003/internal/graph"
	"github.com/davidpgausai-svg/LeaderOS-sub003/internal/logging"
	"github.com/davidpgausai-svg/LeaderOS-sub003/internal/model"
	"github.com/davidpgausai-svg/LeaderOS-sub003/internal/reporter"
	"github.com/davidpgausai-svg/LeaderOS-sub003/internal/server"
	"github.com/davidpgausai-svg/LeaderOS-sub003/internal/store"
	"github.com/davidpgausai-svg/LeaderOS-sub003/internal/ui"
)

var version = "dev"

var (
	flagConfig    string
	flagDB        string
	flagJSON      bool
	flagLogLevel  string
	flagLogFormat string
	flagStrategy  string
	flagFile      string
	flagAsOf      string
	flagWriteBack bool
	flagAddr      string
	flagName      string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "leaderos",
		Short: "Compute workstream schedules and gate status for a strategy",
		Long: `LeaderOS reads a strategy's workstream tasks and dependencies, runs a
critical path analysis over them, and rolls task RED/AMBER/GREEN signals up
into workstream and program gate status.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (YAML)")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "Strategy database path (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Machine-readable JSON output")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "Log format: text or json")

	rootCmd.AddCommand(computeCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(vizCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, graph.ErrCycleDetected) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// setup loads the config, applies flag overrides and builds the logger.
func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, nil, err
	}
	if flagDB != "" {
		cfg.Database.Path = flagDB
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}
	if flagLogFormat != "" {
		cfg.Log.Format = flagLogFormat
	}
	if flagWriteBack {
		cfg.Engine.WriteBack = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintf(os.Stderr, "\n🛑 %s\n", ui.Yellow("Received interrupt, stopping..."))
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

// loadSnapshot reads --file when given, otherwise --strategy from the
// database. The store is returned open (nil for fixtures) for write-back.
func loadSnapshot(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*model.Snapshot, *store.Store, error) {
	if flagFile != "" {
		snap, err := readFixture(flagFile)
		if err != nil {
			return nil, nil, err
		}
		return snap, nil, nil
	}
	if flagStrategy == "" {
		return nil, nil, fmt.Errorf("one of --strategy or --file is required")
	}

	st, err := store.Open(cfg.Database.Path, logger)
	if err != nil {
		return nil, nil, err
	}
	snap, err := st.LoadSnapshot(ctx, flagStrategy)
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	return snap, st, nil
}

func readFixture(path string) (*model.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	snap, err := store.DecodeFixture(data)
	if err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return snap, nil
}

func parseAsOf(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("--as-of must be YYYY-MM-DD: %w", err)
	}
	return t, nil
}

func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagStrategy, "strategy", "", "Strategy ID to load from the database")
	cmd.Flags().StringVar(&flagFile, "file", "", "Load a strategy fixture (JSON) instead of the database")
	cmd.MarkFlagsMutuallyExclusive("strategy", "file")
}

func computeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compute",
		Short: "Compute schedule, critical path and gate status",
		RunE: func(cmd *cobra.Command, args []string) error {
			asOf, err := parseAsOf(flagAsOf)
			if err != nil {
				return err
			}
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			snap, st, err := loadSnapshot(ctx, cfg, logger)
			if err != nil {
				return err
			}
			opts := []engine.Option{engine.WithPolicy(cfg.Policy)}
			if st != nil {
				defer st.Close()
				if cfg.Engine.WriteBack {
					opts = append(opts, engine.WithWriter(st))
				}
			}

			res, err := engine.New(engine.Static(snap), opts...).
				Compute(logging.WithLogger(ctx, logger), snap.StrategyID, asOf)
			if err != nil {
				printCycle(err)
				return err
			}

			if flagJSON {
				return outputJSON(res)
			}
			reporter.New(res, snap).PrintReport(os.Stdout)
			return nil
		},
	}

	addSourceFlags(cmd)
	cmd.Flags().StringVar(&flagAsOf, "as-of", "", "Reference date YYYY-MM-DD (default today)")
	cmd.Flags().BoolVar(&flagWriteBack, "write-back", false, "Persist the computed schedule onto task rows")

	return cmd
}

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the dependency graph without computing status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			snap, st, err := loadSnapshot(ctx, cfg, logger)
			if err != nil {
				return err
			}
			if st != nil {
				defer st.Close()
			}

			res, err := engine.New(engine.Static(snap)).Validate(logging.WithLogger(ctx, logger), snap.StrategyID)
			if err != nil {
				if flagJSON {
					var ce *graph.CycleError
					if errors.As(err, &ce) {
						outputJSON(map[string]interface{}{"valid": false, "code": "CYCLE_DETECTED", "cycle": ce.Path})
					}
				} else {
					printCycle(err)
				}
				return err
			}

			if flagJSON {
				return outputJSON(map[string]interface{}{
					"valid":             true,
					"tasks":             len(res.Schedule),
					"projectFinishDays": res.ProjectFinishDays,
					"anomalies":         res.Anomalies,
				})
			}
			reporter.New(res, snap).PrintValidation(os.Stdout)
			return nil
		},
	}

	addSourceFlags(cmd)
	return cmd
}

func vizCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "viz",
		Short: "Print the task graph as Graphviz DOT",
		RunE: func(cmd *cobra.Command, args []string) error {
			asOf, err := parseAsOf(flagAsOf)
			if err != nil {
				return err
			}
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			snap, st, err := loadSnapshot(ctx, cfg, logger)
			if err != nil {
				return err
			}
			if st != nil {
				defer st.Close()
			}

			res, err := engine.New(engine.Static(snap), engine.WithPolicy(cfg.Policy)).
				Compute(logging.WithLogger(ctx, logger), snap.StrategyID, asOf)
			if err != nil {
				printCycle(err)
				return err
			}
			printDOT(snap, res)
			return nil
		},
	}

	addSourceFlags(cmd)
	cmd.Flags().StringVar(&flagAsOf, "as-of", "", "Reference date YYYY-MM-DD (default today)")
	return cmd
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load a strategy fixture into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if flagFile == "" {
				return fmt.Errorf("--file is required")
			}
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			snap, err := readFixture(flagFile)
			if err != nil {
				return err
			}

			st, err := store.Open(cfg.Database.Path, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.Migrate(ctx); err != nil {
				return err
			}
			if err := st.Import(ctx, snap, flagName); err != nil {
				return err
			}

			if flagJSON {
				return outputJSON(map[string]interface{}{
					"strategyId":   snap.StrategyID,
					"tasks":        len(snap.Tasks),
					"dependencies": len(snap.Dependencies),
				})
			}
			fmt.Printf("✅ %s %s: %d tasks, %d dependencies, %d gate criteria\n",
				ui.BoldGreen("Imported"), ui.Bold(snap.StrategyID),
				len(snap.Tasks), len(snap.Dependencies), len(snap.Criteria))
			return nil
		},
	}

	cmd.Flags().StringVar(&flagFile, "file", "", "Strategy fixture (JSON)")
	cmd.Flags().StringVar(&flagName, "name", "", "Strategy display name")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			st, err := store.Open(cfg.Database.Path, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Printf("✅ %s %s\n", ui.BoldGreen("Migrated"), ui.Dim(cfg.Database.Path))
			return nil
		},
	}
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve schedules over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			if flagAddr != "" {
				cfg.Server.Addr = flagAddr
			}
			ctx, cancel := signalContext()
			defer cancel()

			st, err := store.Open(cfg.Database.Path, logger)
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.Migrate(ctx); err != nil {
				return err
			}

			policy := server.NewPolicyHolder(cfg.Policy)
			opts := []engine.Option{engine.WithPolicyFunc(policy.Load)}
			if cfg.Engine.WriteBack {
				opts = append(opts, engine.WithWriter(st))
			}
			eng := engine.New(st, opts...)

			if flagConfig != "" {
				err := config.Watch(ctx, flagConfig, logger, func(c *config.Config) {
					policy.Store(c.Policy)
					logger.Info("policy updated",
						"amber_threshold_days", c.Policy.AmberThresholdDays,
						"gate_lookahead_days", c.Policy.GateLookaheadDays,
						"gate_criteria_escalation", c.Policy.GateCriteriaEscalation)
				})
				if err != nil {
					return err
				}
			}

			if !flagJSON {
				ui.PrintBanner(os.Stderr, version)
			}

			srv := server.New(eng, logger, prometheus.NewRegistry())
			return srv.Run(ctx, cfg.Server.Addr, cfg.Server.ReadTimeout, cfg.Server.WriteTimeout)
		},
	}

	cmd.Flags().StringVar(&flagAddr, "addr", "", "Listen address (overrides config)")
	cmd.Flags().BoolVar(&flagWriteBack, "write-back", false, "Persist computed schedules onto task rows")
	return cmd
}

func outputJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// printCycle explains a cycle error on stderr. Other errors are left to cobra.
func printCycle(err error) {
	var ce *graph.CycleError
	if !errors.As(err, &ce) {
		return
	}
	fmt.Fprintf(os.Stderr, "🔁 %s %s\n", ui.BoldRed("Dependency cycle:"), strings.Join(ce.Path, " → "))
	fmt.Fprintf(os.Stderr, "   %s\n", ui.Dim("remove one of these dependencies and try again"))
}

// printDOT renders the graph with critical edges in red and nodes filled by
// their signal.
func printDOT(snap *model.Snapshot, res *engine.Result) {
	fill := map[string]string{"GREEN": "#c8e6c9", "AMBER": "#ffe0b2", "RED": "#ffcdd2"}

	fmt.Println("digraph leaderos {")
	fmt.Println("  rankdir=LR;")
	fmt.Println("  node [shape=box, style=\"rounded,filled\"];")
	fmt.Println()

	for _, t := range snap.Tasks {
		if _, ok := res.Schedule[t.ID]; !ok {
			continue
		}
		label := fmt.Sprintf("%s\\n%s", t.ID, t.Name)
		shape := ""
		if t.IsMilestone {
			shape = ", shape=diamond"
		}
		attrs := fmt.Sprintf(`label="%s", fillcolor="%s"%s`, label, fill[res.TaskRAG[t.ID].String()], shape)
		if res.CriticalPath[t.ID].IsCritical {
			attrs += `, penwidth=2, color=red`
		}
		fmt.Printf("  %q [%s];\n", t.ID, attrs)
	}

	fmt.Println()

	dropped := make(map[[2]string]bool, len(res.Anomalies))
	for _, a := range res.Anomalies {
		dropped[[2]string{a.PredecessorID, a.SuccessorID}] = true
	}
	for _, d := range snap.Dependencies {
		if dropped[[2]string{d.PredecessorID, d.SuccessorID}] {
			continue
		}
		label := string(d.Type)
		if d.LagDays != 0 {
			label += fmt.Sprintf("%+d", d.LagDays)
		}
		style := ""
		if res.CriticalPath[d.PredecessorID].IsCritical && res.CriticalPath[d.SuccessorID].IsCritical {
			style = `, color=red, penwidth=2`
		}
		fmt.Printf("  %q -> %q [label=%q%s];\n", d.PredecessorID, d.SuccessorID, label, style)
	}

	fmt.Println("}")
}
