package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"droneops-referee/internal/admin"
	"droneops-referee/internal/config"
	"droneops-referee/internal/journal"
	"droneops-referee/internal/logging"
	"droneops-referee/internal/referee"
	"droneops-referee/internal/scenario"
	"droneops-referee/internal/sim"
)

var (
	runConfigPath string
	runSchemaPath string
	runFrames     string
	runScenario   string
	runFollow     bool
	runSpeed      float64
	runLogDir     string
	runPrintOnly  bool
	runColor      bool
	runLogFile    string
	runJournal    string
	runAdminAddr  string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Referee a competition run",
	Long:  "run scores a competition run from a frame log, or from wall-clock time when no frame log is given, and serves the request endpoints.",
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := config.ParseEnv()
		if err != nil {
			return err
		}
		cfg, err := config.Load(runConfigPath, runSchemaPath)
		if err != nil {
			return err
		}

		runID := uuid.New().String()
		wopts := writerOptions{
			RunID:     runID,
			PrintOnly: runPrintOnly,
			Color:     runColor,
			LogFile:   runLogFile,
		}
		writer, cleanup, err := newWriters(settings, wopts)
		if err != nil {
			return err
		}
		defer cleanup()

		// Operational logs go to stderr, or nowhere while the scoreboard owns the terminal.
		var logOut io.Writer = os.Stderr
		if wopts.scoreboard() {
			logOut = io.Discard
		}
		log := logging.New(logOut, slog.LevelInfo)
		slog.SetDefault(log)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx = logging.NewContext(ctx, log)

		mirrors := eventTee{writer}
		journalDir := runJournal
		if journalDir == "" {
			journalDir = settings.JournalPath
		}
		if journalDir != "" {
			store, err := journal.Open(journalDir, log)
			if err != nil {
				return err
			}
			defer store.Close()
			mirrors = append(mirrors, store)
		}

		logDir := runLogDir
		if logDir == "" {
			logDir = settings.LogPath
		}
		ctrl, err := referee.Open(cfg, referee.Options{
			LogDir: logDir,
			RunID:  runID,
			Clock:  writer,
			Score:  writer,
			Events: mirrors,
		})
		if err != nil {
			return fmt.Errorf("open referee: %w", err)
		}
		defer func() {
			if err := ctrl.Shutdown(); err != nil {
				log.Error("referee shutdown failed", "error", err)
			}
		}()

		src, err := frameSource(settings)
		if err != nil {
			return err
		}
		defer src.Close()
		harness := sim.NewHarness(ctrl, src, runSpeed)
		ctrl.SetPauser(harness)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			if err := harness.Run(gctx); err != nil {
				return fmt.Errorf("harness: %w", err)
			}
			if finiteSource() && !harness.Paused() {
				// A finite frame log or scenario is over; end the run.
				stop()
			}
			return nil
		})
		if addr := adminAddr(settings); addr != "" {
			listener, _ := writer.(admin.StatusListener)
			srv := admin.NewServer(ctrl, listener)
			g.Go(func() error { return srv.Run(gctx, addr) })
		}
		g.Go(func() error {
			select {
			case <-ctrl.Done():
				log.Info("run finished", "run_id", ctrl.RunID(), "score", ctrl.Score().Score)
			case <-gctx.Done():
			}
			return nil
		})

		err = g.Wait()
		log.Info("referee stopped", "run_id", runID, "dir", ctrl.Dir())
		return err
	},
}

type closableSource interface {
	sim.FrameSource
	Close() error
}

func frameSource(settings config.Settings) (closableSource, error) {
	switch {
	case runFrames != "" && runScenario != "":
		return nil, fmt.Errorf("--frames and --scenario are mutually exclusive")
	case runFrames != "":
		return sim.OpenFrameFile(runFrames, runFollow)
	case runScenario != "":
		sc, err := loadScenario(runScenario)
		if err != nil {
			return nil, err
		}
		return scenario.NewPlayer(sc), nil
	default:
		return sim.NewIdleSource(settings.Tick), nil
	}
}

// loadScenario resolves a built-in scenario name or a scenario file.
func loadScenario(nameOrPath string) (*scenario.Scenario, error) {
	if sc, ok := scenario.BuiltIn()[nameOrPath]; ok {
		return &sc, nil
	}
	return scenario.Load(nameOrPath)
}

func finiteSource() bool {
	return runScenario != "" || (runFrames != "" && !runFollow)
}

func adminAddr(settings config.Settings) string {
	if runAdminAddr != "" {
		return runAdminAddr
	}
	return settings.AdminAddr
}

func init() {
	runCmd.Flags().StringVar(&runConfigPath, "config", "config/competition.yaml", "Path to competition configuration YAML")
	runCmd.Flags().StringVar(&runSchemaPath, "schema", "", "Path to CUE schema file (embedded schema when empty)")
	runCmd.Flags().StringVar(&runFrames, "frames", "", "Path to a JSONL frame log (idle clock when empty)")
	runCmd.Flags().StringVar(&runScenario, "scenario", "", "Built-in scenario name or scenario YAML to play instead of a frame log")
	runCmd.Flags().BoolVar(&runFollow, "follow", false, "Keep reading the frame log as it grows")
	runCmd.Flags().Float64Var(&runSpeed, "speed", 0, "Frame playback speed multiplier (0 feeds frames as fast as possible)")
	runCmd.Flags().StringVar(&runLogDir, "log-dir", "", "Run directory for events.yml, summary.yml and score.yml")
	runCmd.Flags().BoolVar(&runPrintOnly, "print-only", false, "Print JSON rows to STDOUT instead of the scoreboard")
	runCmd.Flags().BoolVar(&runColor, "color", false, "Print colorized lines instead of the scoreboard")
	runCmd.Flags().StringVar(&runLogFile, "log-file", "", "Export score, clock and event rows as JSONL")
	runCmd.Flags().StringVar(&runJournal, "journal", "", "Directory of the badger event journal (overrides REFEREE_JOURNAL)")
	runCmd.Flags().StringVar(&runAdminAddr, "admin-addr", "", "Request endpoint address (overrides REFEREE_ADMIN_ADDR)")
}
