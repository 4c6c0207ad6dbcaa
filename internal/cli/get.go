package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

// valueOutput is the JSON form of a value printed by get and watch.
type valueOutput struct {
	Key     string `json:"key"`
	Backend string `json:"backend"`
	Present bool   `json:"present"`
	Kind    string `json:"kind"`
	Value   any    `json:"value"`
}

func newValueOutput(key string, backend types.Backend, present bool, v types.Value) valueOutput {
	return valueOutput{Key: key, Backend: string(backend), Present: present, Kind: v.Kind().String(), Value: v.Any()}
}

func newGetCmd(a *app) *cobra.Command {
	var (
		backend    string
		defaultVal string
		path       string
	)
	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print the typed value of a key",
		Long: `Get reads a key once and prints its decoded value.

Examples:
  shelf get theme
  shelf get cart --path items.0.sku
  shelf get lang --backend cookie --default en`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			key := args[0]
			b, err := parseBackend(backend)
			if err != nil {
				return err
			}
			opts := types.Options{Backend: b}
			if cmd.Flags().Changed("default") {
				opts.Default = parseLiteral(defaultVal, false)
			}

			sess, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer sess.closeInto(&err)

			present := sess.win.Has(key, b)
			v := sess.win.Get(key, opts)
			if path != "" && present {
				elem, ok, err := lookupPath(v, path)
				if err != nil {
					return userError("get %q: %v", key, err)
				}
				if !ok {
					return userError("path %q not found in %q", path, key)
				}
				v = elem
			}
			if v.IsAbsent() {
				return userError("key %q not found in %s storage", key, b)
			}

			if a.flags.jsonMode {
				return writeJSON(cmd.OutOrStdout(), newValueOutput(key, b, present, v))
			}
			fmt.Fprintln(cmd.OutOrStdout(), v.String())
			return nil
		},
	}
	backendFlag(cmd, &backend)
	cmd.Flags().StringVar(&defaultVal, "default", "", "value printed when the key is absent")
	cmd.Flags().StringVar(&path, "path", "", "path into a structured value (gjson syntax)")
	return cmd
}
