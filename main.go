package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("qaoatn", pflag.ContinueOnError)
	fs.String("config", "", "configuration file (yaml, toml or json)")

	fs.Int("p", 1, "QAOA depth")
	fs.String("strategy", string(StrategyGreedy), "contraction strategy: greedy or full")
	fs.Bool("decompose", false, "evaluate each term on its light-cone subgraph")
	fs.String("angles", "", "starting angles gamma_1..gamma_p,beta_1..beta_p, e.g. \"pi/8,0.3\"")

	fs.IntSlice("nodes", []int{4, 6}, "base graph sizes to sweep")
	fs.Int("degree", 3, "degree of the random regular base graph")
	fs.Int("colors", 3, "number of colors")
	fs.Float64("penalty", 1, "constraint penalty weight")
	fs.Uint64("seed", 1, "instance and initial angle seed")

	fs.String("method", MethodNelderMead, "optimizer: nelder-mead, bfgs, lbfgs, gradient-descent or cmaes")
	fs.Float64("tol", 1e-14, "absolute objective tolerance")
	fs.Int("maxiter", 1, "optimizer steps after the starting point, 0 for no limit")
	fs.Bool("gradient-hint", false, "supply a finite-difference gradient")

	fs.Bool("parallel", false, "evaluate terms on a worker pool")
	fs.Int("workers", 0, "worker goroutines in parallel mode, 0 for all CPUs")
	fs.Int("threads", 0, "state-vector threads in sequential mode, 0 for all CPUs")
	fs.Int("max-qubits", DefaultMaxQubits, "largest light cone a term may simulate")

	fs.String("out", "data", "directory for sweep records")
	fs.String("qasm", "", "write the first starting ansatz as OpenQASM to this file")
	fs.String("inspect", "", "log a saved sweep record and exit")
	fs.String("log-level", "info", "log level")
	fs.String("metrics-addr", "", "serve Prometheus metrics on this address")
	fs.Bool("tui", false, "show the interactive dashboard")
	return fs
}

func loadConfig(args []string) (*Config, error) {
	fs := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg := NewConfig()
	if path, _ := fs.GetString("config"); path != "" {
		if err := cfg.LoadFromFile(path); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	}
	if err := cfg.BindFlags(fs); err != nil {
		return nil, err
	}
	return cfg, nil
}

func sweepConfig(cfg *Config) (SweepConfig, error) {
	x0, err := parseAngleList(cfg.InitialAngles())
	if err != nil {
		return SweepConfig{}, err
	}
	nodes, err := cfg.NodeCounts()
	if err != nil {
		return SweepConfig{}, err
	}
	return SweepConfig{
		NodeCounts:    nodes,
		Degree:        cfg.NodeDegree(),
		Colors:        cfg.ColorCount(),
		Penalty:       cfg.Penalty(),
		Seed:          cfg.Seed(),
		P:             cfg.Depth(),
		InitialAngles: x0,
		Aggregator:    cfg.AggregatorConfig(),
		Optimizer:     cfg.OptimizerConfig(),
	}, nil
}

// writeQASM dumps the starting ansatz of the first sweep size.
func writeQASM(s *Sweeper, sc SweepConfig, path string) error {
	nodes := sc.NodeCounts[0]
	inst, err := s.Instance(nodes)
	if err != nil {
		return err
	}
	c, err := BuildCircuit(inst.Graph, nil, sc.P, s.startingAngles(nodes))
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(c.ToQASM()), 0o644)
}

// inspectRecord logs every size of a saved sweep record.
func inspectRecord(path string, logger zerolog.Logger) error {
	rec, err := LoadRecord(path)
	if err != nil {
		return err
	}
	logger.Info().
		Str("run_id", rec.RunID).
		Str("cpu", rec.CPU).
		Int("p", rec.P).
		Str("method", rec.Method).
		Msg("sweep record")
	for i, nodes := range rec.NodeCountList {
		if i >= len(rec.Expectation) {
			break
		}
		ev := logger.Info().Int("nodes", nodes).Float64("expectation", rec.Expectation[i])
		if i < len(rec.Time) {
			ev = ev.Float64("seconds", rec.Time[i])
		}
		if i < len(rec.Parameters) {
			ev = ev.Interface("parameters", rec.Parameters[i])
		}
		ev.Msg("size")
	}
	return nil
}

func serveMetrics(addr string, logger zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Str("addr", addr).Msg("metrics server stopped")
		}
	}()
	logger.Info().Str("addr", addr).Msg("serving metrics")
	return srv
}

func run(ctx context.Context, args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	var logOut io.Writer = os.Stdout
	if cfg.TUI() {
		// the dashboard owns the terminal
		if err := os.MkdirAll(cfg.OutputDir(), 0o755); err != nil {
			return err
		}
		f, err := os.OpenFile(filepath.Join(cfg.OutputDir(), "qaoatn.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		defer f.Close()
		logOut = f
	}
	logger := cfg.Logger(logOut)

	if path := cfg.InspectPath(); path != "" {
		return inspectRecord(path, logger)
	}

	if addr := cfg.MetricsAddr(); addr != "" {
		srv := serveMetrics(addr, logger)
		defer srv.Close()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sc, err := sweepConfig(cfg)
	if err != nil {
		return err
	}
	var prog *tea.Program
	notify := func(ev SweepEvent) {
		if prog != nil {
			prog.Send(sweepEventMsg(ev))
		}
	}
	sweeper, err := NewSweeper(sc, logger, notify)
	if err != nil {
		return err
	}

	if path := cfg.QASMPath(); path != "" {
		if err := writeQASM(sweeper, sc, path); err != nil {
			return fmt.Errorf("write qasm: %w", err)
		}
		logger.Info().Str("path", path).Msg("wrote starting ansatz")
	}

	sweep := func() (string, error) {
		rec, err := sweeper.Run(ctx)
		if err != nil {
			return "", err
		}
		path, err := SaveRecord(cfg.OutputDir(), rec)
		if err != nil {
			return "", err
		}
		logger.Info().Str("path", path).Floats64("expectation", rec.Expectation).Msg("sweep saved")
		return path, nil
	}

	if !cfg.TUI() {
		_, err := sweep()
		return err
	}

	prog = tea.NewProgram(initialModel(sc.NodeCounts, cancel), tea.WithAltScreen(), tea.WithContext(ctx))
	errc := make(chan error, 1)
	go func() {
		path, err := sweep()
		prog.Send(sweepDoneMsg{path: path, err: err})
		errc <- err
	}()
	if _, err := prog.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	cancel()
	if err := <-errc; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "qaoatn:", err)
		os.Exit(1)
	}
}
