package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/Sternrassler/listpager/pkg/feeds"
	"github.com/Sternrassler/listpager/pkg/pagination"
	"github.com/spf13/cobra"
)

func newExportCmd(root *rootOptions) *cobra.Command {
	var (
		flags  selectionFlags
		batch  = pagination.DefaultBatchConfig()
		output string
	)

	cmd := &cobra.Command{
		Use:   "export <screen>",
		Short: "Fetch every page of a screen and write the items as JSON",
		Long: `Export reads all pages of a screen without an engine. When the server
reports the page count, pages are fetched concurrently.`,
		Example: `  listpager export merchants --city bj --category cafe -o merchants.json`,
		Args:    screenArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := root.setup(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create output: %w", err)
				}
				defer f.Close()
				out = f
			}

			return export(cmd.Context(), out, a.deps(), args[0], flags.sel, batch)
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVar(&batch.MaxConcurrency, "concurrency", batch.MaxConcurrency, "Concurrent page requests")
	cmd.Flags().IntVar(&batch.MaxPages, "max-pages", batch.MaxPages, "Stop after this many pages (0 = no limit)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to a file instead of stdout")
	return cmd
}

// export writes the items of all pages. Items fetched before a failure are
// still written.
func export(ctx context.Context, out io.Writer, d feeds.Deps, name string, sel feeds.Selection, batch pagination.BatchConfig) error {
	items, fetchErr := feeds.Export(ctx, name, d, sel, batch)
	if items == nil {
		if fetchErr != nil {
			return fetchErr
		}
		items = []any{}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(items); err != nil {
		return fmt.Errorf("write items: %w", err)
	}

	if fetchErr != nil {
		return fmt.Errorf("export incomplete: %w", fetchErr)
	}
	return nil
}
