package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

func newWatchCmd(a *app) *cobra.Command {
	var (
		backend  string
		count    int
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch <key>",
		Short: "Print a key's value each time it changes",
		Long: `Watch binds a key and prints its value whenever another process, a
Set-Cookie header, or any other writer changes it. It stops on interrupt or
after --count changes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			key := args[0]
			b, err := parseBackend(backend)
			if err != nil {
				return err
			}
			if count < 0 {
				return userError("--count must not be negative")
			}
			if cmd.Flags().Changed("interval") {
				if interval <= 0 {
					return userError("--interval must be positive")
				}
				a.pollOverride = interval
			}

			sess, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer sess.closeInto(&err)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return watch(ctx, cmd, a, sess, key, b, count)
		},
	}
	backendFlag(cmd, &backend)
	cmd.Flags().IntVarP(&count, "count", "n", 0, "stop after this many changes (0 watches until interrupted)")
	cmd.Flags().DurationVar(&interval, "interval", 0, "poll interval (default from config)")
	return cmd
}

func watch(ctx context.Context, cmd *cobra.Command, a *app, sess *session, key string, b types.Backend, count int) error {
	changes := make(chan types.Value, 16)
	bound := sess.win.Bind(key, types.Options{
		Backend: b,
		OnChange: func(v types.Value) {
			select {
			case changes <- v:
			case <-ctx.Done():
			}
		},
	})
	defer bound.Release()

	emit := func(v types.Value) error {
		if a.flags.jsonMode {
			return writeJSON(cmd.OutOrStdout(), newValueOutput(key, b, !v.IsAbsent(), v))
		}
		fmt.Fprintln(cmd.OutOrStdout(), v.String())
		return nil
	}
	if err := emit(bound.Value()); err != nil {
		return err
	}

	seen := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case v := <-changes:
			if err := emit(v); err != nil {
				return err
			}
			seen++
			if count > 0 && seen >= count {
				return nil
			}
		}
	}
}
