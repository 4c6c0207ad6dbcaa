package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

// cookieFlags are the per-write cookie attribute overrides.
type cookieFlags struct {
	expiresDays int
	path        string
	domain      string
	secure      bool
	sameSite    string
}

func (f *cookieFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.expiresDays, "expires-days", types.DefaultCookieExpiresDays, "cookie lifetime in days; 0 for a session cookie")
	cmd.Flags().StringVar(&f.path, "cookie-path", "", "cookie path")
	cmd.Flags().StringVar(&f.domain, "domain", "", "cookie domain")
	cmd.Flags().BoolVar(&f.secure, "secure", false, "mark the cookie secure")
	cmd.Flags().StringVar(&f.sameSite, "same-site", "", "cookie SameSite policy: Strict, Lax or None")
}

// apply overlays flags the user set on the configured cookie options.
func (f *cookieFlags) apply(cmd *cobra.Command, base types.CookieOptions) (types.CookieOptions, error) {
	opts := base
	if cmd.Flags().Changed("expires-days") {
		opts.ExpiresDays = types.Days(f.expiresDays)
	}
	if cmd.Flags().Changed("cookie-path") {
		opts.Path = f.path
	}
	if cmd.Flags().Changed("domain") {
		opts.Domain = f.domain
	}
	if cmd.Flags().Changed("secure") {
		opts.Secure = f.secure
	}
	if cmd.Flags().Changed("same-site") {
		ss, err := types.ParseSameSite(f.sameSite)
		if err != nil {
			return opts, userError("%v", err)
		}
		opts.SameSite = ss
	}
	return opts, nil
}

func newSetCmd(a *app) *cobra.Command {
	var (
		backend string
		asText  bool
		path    string
		cookie  cookieFlags
	)
	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Write a typed value",
		Long: `Set writes a value. The value is parsed as JSON when it parses (numbers,
booleans, lists, maps) and stored as plain text otherwise; --text forces
plain text.

Examples:
  shelf set theme dark
  shelf set count 42
  shelf set cart '{"items":[]}'
  shelf set cart '{"sku":"a1"}' --path items.-1
  shelf set lang de --backend cookie --expires-days 30`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			key := args[0]
			b, err := parseBackend(backend)
			if err != nil {
				return err
			}
			v := parseLiteral(args[1], asText)

			sess, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer sess.closeInto(&err)

			opts := types.Options{Backend: b}
			if opts.Cookie, err = cookie.apply(cmd, sess.settings.cookie); err != nil {
				return err
			}
			if path != "" {
				current := sess.win.Get(key, opts)
				if v, err = updatePath(current, path, v); err != nil {
					return userError("set %q: %v", key, err)
				}
			}
			if err := sess.win.Set(key, v, opts); err != nil {
				return storageError(fmt.Sprintf("set %q", key), err)
			}
			if a.flags.jsonMode {
				return writeJSON(cmd.OutOrStdout(), newValueOutput(key, b, true, v))
			}
			return nil
		},
	}
	backendFlag(cmd, &backend)
	cmd.Flags().BoolVar(&asText, "text", false, "store the value as plain text")
	cmd.Flags().StringVar(&path, "path", "", "update one element of a structured value (sjson syntax)")
	cookie.register(cmd)
	return cmd
}
