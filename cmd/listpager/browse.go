package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/Sternrassler/listpager/pkg/apierror"
	"github.com/Sternrassler/listpager/pkg/feeds"
	"github.com/Sternrassler/listpager/pkg/paging"
	"github.com/spf13/cobra"
)

func newBrowseCmd(root *rootOptions) *cobra.Command {
	var (
		flags  selectionFlags
		pages  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "browse <screen>",
		Short: "Load a screen page by page and print its items",
		Long: `Browse issues the screen's initial load and then load-more intents until
--pages pages are loaded or the server reports the last page.`,
		Example: `  listpager browse search --keyword "hot pot" --city cd --pages 3`,
		Args:    screenArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := root.setup(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			return browse(cmd.Context(), cmd.OutOrStdout(), a.deps(), args[0], flags.sel, pages, asJSON)
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVar(&pages, "pages", 1, "Maximum number of pages to load")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the final screen state as JSON")
	return cmd
}

// browse drives one engine until pages pages are loaded or no more data is
// available, then prints the screen.
func browse(ctx context.Context, out io.Writer, d feeds.Deps, name string, sel feeds.Selection, pages int, asJSON bool) error {
	if pages < 1 {
		return fmt.Errorf("--pages must be >= 1 (got %d)", pages)
	}

	// One fetch is outstanding at a time, so one slot is enough.
	done := make(chan paging.FetchEvent, 1)
	hooks := paging.Hooks{
		OnFetchApplied: func(e paging.FetchEvent) { done <- e },
		OnFetchFailed:  func(e paging.FetchEvent) { done <- e },
	}
	d.Options = append(slices.Clone(d.Options), paging.WithHooks(hooks))

	ctrl, err := feeds.NewController(name, d, sel)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	if !ctrl.InitialLoad() {
		return fmt.Errorf("%s: initial load was not started", name)
	}

	for loaded := 1; ; loaded++ {
		var event paging.FetchEvent
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event = <-done:
		}

		if event.Err != nil {
			if event.Category == apierror.CategorySessionInvalidated {
				return fmt.Errorf("%s: session invalidated, sign in again: %w", name, event.Err)
			}
			status := ctrl.Status()
			return fmt.Errorf("%s: page %d: %s", name, event.Page, status.ErrorMessage)
		}

		if loaded >= pages || ctrl.Status().NoMoreData {
			break
		}
		if !ctrl.LoadMore() {
			break
		}
	}

	return printStatus(out, ctrl.Status(), asJSON)
}

func printStatus(out io.Writer, status paging.Status, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}

	more := "more available"
	if status.NoMoreData {
		more = "no more data"
	}
	fmt.Fprintf(out, "%s: %d items, %d pages loaded, %s\n", status.Screen, status.ItemCount, status.LastLoadedPage, more)

	lines, err := itemLines(status.Items)
	if err != nil {
		return err
	}
	for i, line := range lines {
		fmt.Fprintf(out, "%4d  %s\n", i+1, line)
	}
	return nil
}

// itemLines renders each item of a typed slice as compact JSON.
func itemLines(items any) ([]string, error) {
	data, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encode items: %w", err)
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("encode items: %w", err)
	}
	lines := make([]string, len(raw))
	for i, r := range raw {
		lines[i] = string(r)
	}
	return lines, nil
}
