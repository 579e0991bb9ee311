package cli

import (
	"github.com/spf13/cobra"
)

func (a *App) importCommand() *cobra.Command {
	var defaultTags []string
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import bookmarks from a Netscape bookmark file",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			result, err := a.exchange.ImportFile(cmd.Context(), args[0], defaultTags)
			if result != nil {
				printImportResult(a.out, result, args[0])
			}
			return err
		},
	}
	cmd.Flags().StringArrayVarP(&defaultTags, "tag", "t", nil, "tag added to every imported bookmark (repeatable)")
	return cmd
}

func (a *App) exportCommand() *cobra.Command {
	var tags []string
	cmd := &cobra.Command{
		Use:   "export FILE",
		Short: "Export bookmarks to a Netscape bookmark file (- for stdout)",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			if args[0] == "-" {
				_, err := a.exchange.Export(cmd.Context(), a.Stdout, tags)
				return err
			}
			count, err := a.exchange.ExportFile(cmd.Context(), args[0], tags)
			if err != nil {
				return err
			}
			success(a.out, "Exported %d bookmark(s) to %s", count, args[0])
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&tags, "tag", "t", nil, "only export bookmarks carrying this tag (repeatable)")
	return cmd
}
