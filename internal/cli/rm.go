package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

func newRmCmd(a *app) *cobra.Command {
	var (
		backend string
		cookie  cookieFlags
	)
	cmd := &cobra.Command{
		Use:     "rm <key>",
		Aliases: []string{"delete"},
		Short:   "Remove a key",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			b, err := parseBackend(backend)
			if err != nil {
				return err
			}
			sess, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer sess.closeInto(&err)

			opts := types.Options{Backend: b}
			if opts.Cookie, err = cookie.apply(cmd, sess.settings.cookie); err != nil {
				return err
			}
			if err := sess.win.Set(args[0], types.Absent, opts); err != nil {
				return storageError(fmt.Sprintf("remove %q", args[0]), err)
			}
			return nil
		},
	}
	backendFlag(cmd, &backend)
	cookie.register(cmd)
	return cmd
}

func newClearCmd(a *app) *cobra.Command {
	var backend string
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every key of a backend",
		Long:  "Clear removes every key of the persistent or session backend. Cookies cannot be cleared in bulk; remove them individually.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			b, err := parseBackend(backend)
			if err != nil {
				return err
			}
			sess, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer sess.closeInto(&err)

			if err := sess.win.Clear(b); err != nil {
				return storageError("clear", err)
			}
			if b == types.Cookie {
				fmt.Fprintln(cmd.ErrOrStderr(), "cookies are not cleared in bulk; use rm --backend cookie")
			}
			return nil
		},
	}
	backendFlag(cmd, &backend)
	return cmd
}
