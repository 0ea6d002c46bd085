package main

import (
	"database/sql"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dukerupert/feira/internal/backup"
	"github.com/dukerupert/feira/internal/ident"
	"github.com/dukerupert/feira/internal/store"
)

func newBackupCmd(a *app) *cobra.Command {
	var passphrase string
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Encrypted off-site backups",
	}
	cmd.PersistentFlags().StringVar(&passphrase, "passphrase", "", "encryption passphrase (default FEIRA_BACKUP_PASSPHRASE)")

	run := &cobra.Command{
		Use:   "run",
		Short: "Upload an encrypted snapshot of every list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, m, err := a.openBackup()
			if err != nil {
				return err
			}
			defer db.Close()

			b, err := m.RunNow(cmd.Context(), passphrase)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "backup %d uploaded: %s (%d bytes, %d lists)\n", b.ID, b.S3Key, b.SizeBytes, b.ListCount)
			return nil
		},
	}

	restore := &cobra.Command{
		Use:   "restore <id>",
		Short: "Merge a stored backup into the current lists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid backup id %q", args[0])
			}
			db, m, err := a.openBackup()
			if err != nil {
				return err
			}
			defer db.Close()

			res, err := m.Restore(cmd.Context(), id, passphrase)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "restored %d lists, merged %d items into the fixed list\n", res.Lists, res.MergedItems)
			return nil
		},
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "Show recent backups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, m, err := a.openBackup()
			if err != nil {
				return err
			}
			defer db.Close()

			backups, err := m.List(limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTATUS\tLISTS\tSIZE\tCREATED")
			for _, b := range backups {
				fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%s\n", b.ID, b.Status, b.ListCount, b.SizeBytes, b.CreatedAt.Format("2006-01-02 15:04"))
			}
			return tw.Flush()
		},
	}
	list.Flags().IntVarP(&limit, "limit", "n", 20, "how many backups to show")

	cmd.AddCommand(run, restore, list)
	return cmd
}

func (a *app) openBackup() (*sql.DB, *backup.Manager, error) {
	db, svc, err := a.openService()
	if err != nil {
		return nil, nil, err
	}
	cfg := backup.Config{
		S3: backup.S3Config{
			Endpoint:  a.cfg.S3Endpoint,
			Bucket:    a.cfg.S3Bucket,
			Region:    a.cfg.S3Region,
			AccessKey: a.cfg.S3AccessKey,
			SecretKey: a.cfg.S3SecretKey,
		},
		Passphrase: a.cfg.BackupPassphrase,
	}
	m := backup.NewManager(cfg, svc, ident.UUID{}, store.NewBackupStore(db), store.NewSettingsStore(db), a.logger, nil)
	return db, m, nil
}
