package cli

import (
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jamiealquiza/tachymeter"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/shelf/pkg/shelf"
	"github.com/mesh-intelligence/shelf/pkg/types"
)

// benchResult is the JSON form of a bench run.
type benchResult struct {
	Bindings      int    `json:"bindings"`
	Ticks         int    `json:"ticks"`
	TimerStarts   int    `json:"timer_starts"`
	Notifications int64  `json:"notifications"`
	Avg           string `json:"avg"`
	P50           string `json:"p50"`
	P95           string `json:"p95"`
	P99           string `json:"p99"`
	Max           string `json:"max"`
}

func newBenchCmd(a *app) *cobra.Command {
	var (
		bindings int
		ticks    int
		changed  int
	)
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure poll tick latency across many bindings",
		Long: `Bench binds many keys in an in-memory shelf, changes some of them
outside the bindings before every tick, and reports tick latency. It also
reports how many poller timers were started, which is one however many
bindings exist.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if bindings <= 0 || ticks <= 0 {
				return userError("--bindings and --ticks must be positive")
			}
			if changed < 0 || changed > bindings {
				return userError("--changed must be between 0 and --bindings")
			}
			res, err := runBench(bindings, ticks, changed)
			if err != nil {
				return sysError("bench: %v", err)
			}
			if a.flags.jsonMode {
				return writeJSON(cmd.OutOrStdout(), res)
			}

			tbl := table.NewWriter()
			tbl.SetOutputMirror(cmd.OutOrStdout())
			tbl.SetTitle("Poll tick latency")
			tbl.AppendHeader(table.Row{"bindings", "ticks", "timers", "notifications", "avg", "p50", "p95", "p99", "max"})
			tbl.AppendRow(table.Row{
				humanize.Comma(int64(res.Bindings)),
				humanize.Comma(int64(res.Ticks)),
				res.TimerStarts,
				humanize.Comma(res.Notifications),
				res.Avg, res.P50, res.P95, res.P99, res.Max,
			})
			tbl.Render()
			return nil
		},
	}
	cmd.Flags().IntVar(&bindings, "bindings", 1000, "number of bound keys")
	cmd.Flags().IntVar(&ticks, "ticks", 100, "number of poll ticks to measure")
	cmd.Flags().IntVar(&changed, "changed", 10, "keys changed externally before each tick")
	return cmd
}

func runBench(bindings, ticks, changed int) (benchResult, error) {
	sh := shelf.New()
	// The timer never fires during the run; ticks are driven directly.
	if err := sh.Attach(types.Config{Store: types.StoreMemory, PollInterval: time.Hour}); err != nil {
		return benchResult{}, err
	}
	defer sh.Detach()

	win, err := sh.OpenWindow()
	if err != nil {
		return benchResult{}, err
	}

	var notified atomic.Int64
	keys := make([]string, bindings)
	bound := make([]types.Binding, bindings)
	for i := range keys {
		keys[i] = "bench-" + strconv.Itoa(i)
		bound[i] = win.Bind(keys[i], types.Options{OnChange: func(types.Value) { notified.Add(1) }})
	}
	defer func() {
		for _, b := range bound {
			b.Release()
		}
	}()

	tach := tachymeter.New(&tachymeter.Config{Size: ticks})
	for t := range ticks {
		for j := range changed {
			k := keys[(t*changed+j)%bindings]
			if err := win.Local().SetItem(k, strconv.Itoa(t)); err != nil {
				return benchResult{}, fmt.Errorf("write %s: %w", k, err)
			}
		}
		start := time.Now()
		sh.Tick()
		tach.AddTime(time.Since(start))
	}

	calc := tach.Calc()
	return benchResult{
		Bindings:      bindings,
		Ticks:         ticks,
		TimerStarts:   sh.TimerStarts(),
		Notifications: notified.Load(),
		Avg:           calc.Time.Avg.String(),
		P50:           calc.Time.P50.String(),
		P95:           calc.Time.P95.String(),
		P99:           calc.Time.P99.String(),
		Max:           calc.Time.Max.String(),
	}, nil
}
