package command

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/minikv/internal/cli/connection"
	"github.com/yndnr/minikv/internal/cli/output"
	"github.com/yndnr/minikv/internal/resp"
)

// Doer sends one command.
type Doer interface {
	Do(ctx context.Context, args ...string) (resp.Message, error)
}

// BenchConfig configures one benchmark run.
type BenchConfig struct {
	Command  string
	Requests int
	Clients  int
	KeySpace int
	DataSize int
}

// BenchResult summarizes a benchmark run.
type BenchResult struct {
	Command        string  `json:"command" yaml:"command"`
	Requests       int     `json:"requests" yaml:"requests"`
	Clients        int     `json:"clients" yaml:"clients"`
	Errors         int64   `json:"errors" yaml:"errors"`
	ElapsedSeconds float64 `json:"elapsed_seconds" yaml:"elapsed_seconds"`
	OpsPerSecond   float64 `json:"ops_per_second" yaml:"ops_per_second"`
	P50Millis      float64 `json:"p50_ms" yaml:"p50_ms"`
	P95Millis      float64 `json:"p95_ms" yaml:"p95_ms"`
	P99Millis      float64 `json:"p99_ms" yaml:"p99_ms"`
	MaxMillis      float64 `json:"max_ms" yaml:"max_ms"`
}

var benchCommands = []string{"ping", "set", "get", "incr", "lpush", "rpush"}

// BenchCommand returns the bench command.
func BenchCommand() *cli.Command {
	return &cli.Command{
		Name:  "bench",
		Usage: "Run a load test over a connection pool",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "command",
				Aliases: []string{"t"},
				Usage:   "command to run: " + strings.Join(benchCommands, ", "),
				Value:   "set",
			},
			&cli.IntFlag{
				Name:    "requests",
				Aliases: []string{"n"},
				Usage:   "total requests",
				Value:   10000,
			},
			&cli.IntFlag{
				Name:    "clients",
				Aliases: []string{"c"},
				Usage:   "parallel connections",
				Value:   50,
			},
			&cli.IntFlag{
				Name:    "keyspace",
				Aliases: []string{"r"},
				Usage:   "random keys drawn from `N` (0 uses one key)",
			},
			&cli.IntFlag{
				Name:    "data-size",
				Aliases: []string{"d"},
				Usage:   "value size in bytes for set/lpush/rpush",
				Value:   3,
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "no progress bar",
			},
		},
		Action: benchAction,
	}
}

func benchAction(c *cli.Context) error {
	cfg := BenchConfig{
		Command:  strings.ToLower(c.String("command")),
		Requests: c.Int("requests"),
		Clients:  c.Int("clients"),
		KeySpace: c.Int("keyspace"),
		DataSize: c.Int("data-size"),
	}
	if err := cfg.Validate(); err != nil {
		return cli.Exit("bench: "+err.Error(), 2)
	}

	flags := ParseGlobalFlags(c)
	ctx := c.Context

	pool := connection.NewPool(ctx, flags.Server, flags.ConnOptions(), cfg.Clients)
	defer pool.Close(ctx)

	if err := cfg.Prepare(ctx, pool); err != nil {
		return fmt.Errorf("bench: %w", err)
	}

	var progress func(int64)
	if !c.Bool("quiet") {
		bar := output.NewProgressBar(c.App.ErrWriter, cfg.Command, int64(cfg.Requests))
		defer bar.Finish()
		progress = bar.Increment
	}

	result := RunBench(ctx, pool, cfg, progress)
	return printData(c, result)
}

// Validate checks the run parameters.
func (cfg BenchConfig) Validate() error {
	if !slices.Contains(benchCommands, cfg.Command) {
		return fmt.Errorf("unsupported command %q", cfg.Command)
	}
	if cfg.Requests <= 0 {
		return fmt.Errorf("requests must be positive")
	}
	if cfg.Clients <= 0 {
		return fmt.Errorf("clients must be positive")
	}
	if cfg.KeySpace < 0 || cfg.DataSize < 0 {
		return fmt.Errorf("keyspace and data-size must not be negative")
	}
	return nil
}

const fixedKey = "__fixed__"

// keyIDs lists every key suffix a run can draw.
func (cfg BenchConfig) keyIDs() []string {
	if cfg.KeySpace == 0 {
		return []string{fixedKey}
	}
	ids := make([]string, cfg.KeySpace)
	for i := range ids {
		ids[i] = strconv.Itoa(i)
	}
	return ids
}

// Prepare creates the keys a run needs before it is timed. INCR fails on a
// missing key, so incr runs get every counter set to 0 unless it exists.
func (cfg BenchConfig) Prepare(ctx context.Context, d Doer) error {
	if cfg.Command != "incr" {
		return nil
	}
	for _, id := range cfg.keyIDs() {
		key := "counter:" + id
		reply, err := d.Do(ctx, "EXISTS", key)
		if err != nil {
			return fmt.Errorf("prepare %s: %w", key, err)
		}
		if n, ok := reply.(resp.Integer); ok && n > 0 {
			continue
		}
		reply, err = d.Do(ctx, "SET", key, "0")
		if err != nil {
			return fmt.Errorf("prepare %s: %w", key, err)
		}
		if e, ok := reply.(resp.Error); ok {
			return fmt.Errorf("prepare %s: %s", key, string(e))
		}
	}
	return nil
}

// args builds one request.
func (cfg BenchConfig) args(value string) []string {
	key := "key:" + fixedKey
	if cfg.KeySpace > 0 {
		key = "key:" + strconv.Itoa(rand.IntN(cfg.KeySpace))
	}

	switch cfg.Command {
	case "ping":
		return []string{"PING"}
	case "set":
		return []string{"SET", key, value}
	case "get":
		return []string{"GET", key}
	case "incr":
		return []string{"INCR", "counter:" + strings.TrimPrefix(key, "key:")}
	case "lpush":
		return []string{"LPUSH", "list:" + strings.TrimPrefix(key, "key:"), value}
	default:
		return []string{"RPUSH", "list:" + strings.TrimPrefix(key, "key:"), value}
	}
}

const progressStep = 100

// RunBench sends cfg.Requests commands from cfg.Clients workers and
// reports latency percentiles. progress, when set, receives completed counts.
func RunBench(ctx context.Context, d Doer, cfg BenchConfig, progress func(int64)) BenchResult {
	value := strings.Repeat("x", cfg.DataSize)

	var (
		next   atomic.Int64
		errs   atomic.Int64
		mu     sync.Mutex
		all    = make([]time.Duration, 0, cfg.Requests)
		wg     sync.WaitGroup
		report = func(n int64) {
			if progress != nil && n > 0 {
				progress(n)
			}
		}
	)

	start := time.Now()
	for w := 0; w < cfg.Clients; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			local := make([]time.Duration, 0, cfg.Requests/cfg.Clients+1)
			var pending int64
			for next.Add(1) <= int64(cfg.Requests) {
				if ctx.Err() != nil {
					break
				}

				t0 := time.Now()
				reply, err := d.Do(ctx, cfg.args(value)...)
				local = append(local, time.Since(t0))
				if _, isErr := reply.(resp.Error); err != nil || isErr {
					errs.Add(1)
				}

				if pending++; pending == progressStep {
					report(pending)
					pending = 0
				}
			}
			report(pending)

			mu.Lock()
			all = append(all, local...)
			mu.Unlock()
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	slices.Sort(all)
	result := BenchResult{
		Command:        cfg.Command,
		Requests:       len(all),
		Clients:        cfg.Clients,
		Errors:         errs.Load(),
		ElapsedSeconds: elapsed.Seconds(),
		P50Millis:      percentile(all, 0.50),
		P95Millis:      percentile(all, 0.95),
		P99Millis:      percentile(all, 0.99),
		MaxMillis:      percentile(all, 1),
	}
	if elapsed > 0 {
		result.OpsPerSecond = float64(len(all)) / elapsed.Seconds()
	}
	return result
}

// percentile returns the p-th percentile of sorted in milliseconds.
func percentile(sorted []time.Duration, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted))*p+0.5) - 1
	idx = max(0, min(idx, len(sorted)-1))
	return float64(sorted[idx]) / float64(time.Millisecond)
}
