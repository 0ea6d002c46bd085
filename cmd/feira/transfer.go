package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dukerupert/feira/internal/export"
	"github.com/dukerupert/feira/internal/ident"
	"github.com/dukerupert/feira/internal/importer"
)

func newImportCmd(a *app) *cobra.Command {
	var into string
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a backup, list or item file (JSON or CSV)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}

			var p importer.Payload
			if strings.EqualFold(filepath.Ext(args[0]), ".csv") {
				items, err := export.ReadCSV(bytes.NewReader(data), ident.UUID{})
				if err != nil {
					return err
				}
				p = importer.Payload{Kind: importer.KindItems, Items: items}
			} else if p, err = importer.Decode(data, ident.UUID{}); err != nil {
				return err
			}

			db, svc, err := a.openService()
			if err != nil {
				return err
			}
			defer db.Close()

			out := cmd.OutOrStdout()
			if into != "" {
				n, err := svc.MergeInto(into, p)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "merged %d items\n", n)
				return nil
			}
			res, err := svc.Import(p)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "imported %d lists (%d items), merged %d items into the fixed list\n", res.Lists, res.Items, res.MergedItems)
			return nil
		},
	}
	cmd.Flags().StringVar(&into, "into", "", "merge the items into this list id instead of creating lists")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var output, csvList string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every list as JSON, or one list as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, svc, err := a.openService()
			if err != nil {
				return err
			}
			defer db.Close()

			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create %s: %w", output, err)
				}
				defer f.Close()
				w = f
			}

			if csvList != "" {
				l, err := svc.Get(csvList)
				if err != nil {
					return err
				}
				return export.WriteCSV(w, l)
			}
			return export.WriteJSON(w, svc.Lists())
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	cmd.Flags().StringVar(&csvList, "csv", "", "export this list id as CSV")
	return cmd
}
