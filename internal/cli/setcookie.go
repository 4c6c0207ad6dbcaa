package cli

import (
	"github.com/spf13/cobra"
)

func newSetCookieCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set-cookie <header>",
		Short: "Store a cookie from a Set-Cookie response header",
		Long: `Set-cookie ingests a cookie the way a server response would deliver it.
Unlike "set --backend cookie" the header may mark the cookie HttpOnly.

Example:
  shelf set-cookie 'sid=abc123; Path=/; Max-Age=3600; HttpOnly; Secure'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			sess, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer sess.closeInto(&err)

			if err := sess.shelf.SetCookieHeader(args[0]); err != nil {
				return storageError("set-cookie", err)
			}
			return nil
		},
	}
}
