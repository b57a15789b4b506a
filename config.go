package main

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config manages run configuration using Viper.
type Config struct {
	v *viper.Viper
}

// NewConfig creates a new configuration with defaults
func NewConfig() *Config {
	v := viper.New()

	// QAOA parameters
	v.SetDefault("qaoa.p", 1)
	v.SetDefault("qaoa.strategy", string(StrategyGreedy))
	v.SetDefault("qaoa.decompose", false)
	v.SetDefault("qaoa.initial_angles", "")

	// Instance sweep
	v.SetDefault("sweep.node_counts", []int{4, 6})
	v.SetDefault("sweep.node_degree", 3)
	v.SetDefault("sweep.color_count", 3)
	v.SetDefault("sweep.penalty", 1.0)
	v.SetDefault("sweep.seed", 1)

	// Optimizer
	v.SetDefault("optimizer.method", MethodNelderMead)
	v.SetDefault("optimizer.tolerance", 1e-14)
	v.SetDefault("optimizer.max_iterations", 1)
	v.SetDefault("optimizer.gradient_hint", false)

	// Performance parameters
	v.SetDefault("performance.parallel", false)
	v.SetDefault("performance.workers", runtime.NumCPU())
	v.SetDefault("performance.numeric_threads", runtime.NumCPU())
	v.SetDefault("performance.max_qubits", DefaultMaxQubits)

	// Output
	v.SetDefault("output.dir", "data")
	v.SetDefault("output.qasm", "")
	v.SetDefault("output.inspect", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("metrics.addr", "")
	v.SetDefault("ui.tui", false)

	v.SetEnvPrefix("QAOATN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Config{v: v}
}

// LoadFromFile loads configuration from file
func (c *Config) LoadFromFile(path string) error {
	c.v.SetConfigFile(path)
	return c.v.ReadInConfig()
}

// flagKeys maps command-line flags onto configuration keys.
var flagKeys = map[string]string{
	"p":             "qaoa.p",
	"strategy":      "qaoa.strategy",
	"decompose":     "qaoa.decompose",
	"angles":        "qaoa.initial_angles",
	"nodes":         "sweep.node_counts",
	"degree":        "sweep.node_degree",
	"colors":        "sweep.color_count",
	"penalty":       "sweep.penalty",
	"seed":          "sweep.seed",
	"method":        "optimizer.method",
	"tol":           "optimizer.tolerance",
	"maxiter":       "optimizer.max_iterations",
	"gradient-hint": "optimizer.gradient_hint",
	"parallel":      "performance.parallel",
	"workers":       "performance.workers",
	"threads":       "performance.numeric_threads",
	"max-qubits":    "performance.max_qubits",
	"out":           "output.dir",
	"qasm":          "output.qasm",
	"inspect":       "output.inspect",
	"log-level":     "logging.level",
	"metrics-addr":  "metrics.addr",
	"tui":           "ui.tui",
}

// BindFlags lets explicitly set flags override file and default values.
func (c *Config) BindFlags(fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		if f := fs.Lookup(name); f != nil {
			if err := c.v.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}
	return nil
}

// Getters for QAOA parameters
func (c *Config) Depth() int { return c.v.GetInt("qaoa.p") }
func (c *Config) Strategy() string { return c.v.GetString("qaoa.strategy") }
func (c *Config) Decompose() bool { return c.v.GetBool("qaoa.decompose") }
func (c *Config) InitialAngles() string { return c.v.GetString("qaoa.initial_angles") }
func (c *Config) NodeDegree() int { return c.v.GetInt("sweep.node_degree") }
func (c *Config) ColorCount() int { return c.v.GetInt("sweep.color_count") }
func (c *Config) Penalty() float64 { return c.v.GetFloat64("sweep.penalty") }
func (c *Config) Seed() uint64 { return c.v.GetUint64("sweep.seed") }
func (c *Config) Method() string { return c.v.GetString("optimizer.method") }
func (c *Config) Tolerance() float64 { return c.v.GetFloat64("optimizer.tolerance") }
func (c *Config) MaxIterations() int { return c.v.GetInt("optimizer.max_iterations") }
func (c *Config) GradientHint() bool { return c.v.GetBool("optimizer.gradient_hint") }
func (c *Config) Parallel() bool { return c.v.GetBool("performance.parallel") }
func (c *Config) Workers() int { return c.v.GetInt("performance.workers") }
func (c *Config) NumericThreads() int { return c.v.GetInt("performance.numeric_threads") }
func (c *Config) MaxQubits() int { return c.v.GetInt("performance.max_qubits") }
func (c *Config) OutputDir() string { return c.v.GetString("output.dir") }
func (c *Config) QASMPath() string { return c.v.GetString("output.qasm") }
func (c *Config) InspectPath() string { return c.v.GetString("output.inspect") }
func (c *Config) LogLevel() string { return c.v.GetString("logging.level") }
func (c *Config) MetricsAddr() string { return c.v.GetString("metrics.addr") }
func (c *Config) TUI() bool { return c.v.GetBool("ui.tui") }

// NodeCounts returns the sweep sizes. Environment values arrive as one string such as "4,6".
func (c *Config) NodeCounts() ([]int, error) {
	raw, ok := c.v.Get("sweep.node_counts").(string)
	if !ok {
		return c.v.GetIntSlice("sweep.node_counts"), nil
	}
	fields := strings.FieldsFunc(strings.Trim(raw, "[]"), func(r rune) bool {
		return r == ',' || r == ' '
	})
	counts := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := cast.ToIntE(f)
		if err != nil {
			return nil, fmt.Errorf("%w: node count %q", ErrInvalidParameter, f)
		}
		counts = append(counts, n)
	}
	return counts, nil
}

// Set allows dynamic configuration changes
func (c *Config) Set(key string, value interface{}) {
	c.v.Set(key, value)
}

// AggregatorConfig assembles the aggregator settings.
func (c *Config) AggregatorConfig() AggregatorConfig {
	return AggregatorConfig{
		Parallel:       c.Parallel(),
		Workers:        c.Workers(),
		NumericThreads: c.NumericThreads(),
		Strategy:       Strategy(c.Strategy()),
		MaxQubits:      c.MaxQubits(),
		Decompose:      c.Decompose(),
	}
}

// OptimizerConfig assembles the optimizer settings.
func (c *Config) OptimizerConfig() OptimizerConfig {
	return OptimizerConfig{
		Method:          c.Method(),
		Tolerance:       c.Tolerance(),
		MaxIterations:   c.MaxIterations(),
		UseGradientHint: c.GradientHint(),
	}
}

// Logger creates a zerolog logger based on config. When the TUI owns the terminal the
// log goes to w instead of stdout.
func (c *Config) Logger(w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(c.LogLevel())
	if err != nil {
		level = zerolog.InfoLevel
	}
	if w == nil {
		w = os.Stdout
	}

	return zerolog.New(zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "15:04:05",
	}).Level(level).With().Timestamp().Str("service", "qaoatn").Logger()
}
