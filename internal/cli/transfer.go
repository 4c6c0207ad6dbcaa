package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Write the persistent area to a JSONL file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			sess, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer sess.closeInto(&err)

			n, err := sess.shelf.ExportJSONL(args[0])
			if err != nil {
				return sysError("export: %v", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d items to %s\n", n, args[0])
			return nil
		},
	}
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Load items from a JSONL file into the persistent area",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			sess, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer sess.closeInto(&err)

			n, err := sess.shelf.ImportJSONL(args[0])
			if err != nil {
				return sysError("import: %v", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d items from %s\n", n, args[0])
			return nil
		},
	}
}
