package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dukerupert/feira/internal/grocery"
	"github.com/dukerupert/feira/internal/ident"
	"github.com/dukerupert/feira/internal/model"
)

func newParseCmd(a *app) *cobra.Command {
	var line bool
	cmd := &cobra.Command{
		Use:   "parse [file|-]",
		Short: "Parse a pasted shopping list and print the items as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if line {
				p := grocery.ParseItemText(text)
				return writeIndented(out, p.Item(ident.UUID{}.Next()))
			}
			items := grocery.ParseShoppingList(text, ident.UUID{})
			if items == nil {
				items = []model.ShoppingItem{}
			}
			return writeIndented(out, map[string]any{
				"name":  grocery.SuggestListName(text),
				"items": items,
			})
		},
	}
	cmd.Flags().BoolVar(&line, "line", false, "treat the whole input as a single item")
	return cmd
}

// readInput reads the named file, or stdin when the argument is "-" or
// missing.
func readInput(cmd *cobra.Command, args []string) (string, error) {
	var r io.Reader = cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return "", fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		r = f
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return string(b), nil
}

func writeIndented(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
