package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dukerupert/feira/internal/config"
	"github.com/dukerupert/feira/internal/database"
	"github.com/dukerupert/feira/internal/ident"
	"github.com/dukerupert/feira/internal/logging"
	"github.com/dukerupert/feira/internal/shopping"
	"github.com/dukerupert/feira/internal/store"
)

// app carries what every subcommand needs once the root command has loaded
// the configuration.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	envFile string
	dbPath  string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "feira",
		Short:        "Shopping list manager with spreadsheet sync",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var files []string
			if a.envFile != "" {
				files = append(files, a.envFile)
			}
			cfg, err := config.Load(files...)
			if err != nil {
				return err
			}
			if a.dbPath != "" {
				cfg.DBPath = a.dbPath
			}
			a.cfg = cfg
			a.logger = logging.Setup(cfg.LogLevel, cfg.LogFile)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.envFile, "env", "", "env file to load (default .env)")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "SQLite database path (overrides FEIRA_DB_PATH)")

	root.AddCommand(
		newServeCmd(a),
		newParseCmd(a),
		newImportCmd(a),
		newExportCmd(a),
		newBackupCmd(a),
	)
	return root
}

// openService opens the database and loads the list collection.
func (a *app) openService() (*sql.DB, *shopping.Service, error) {
	db, err := database.Open(a.cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	gen := ident.UUID{}
	svc, err := shopping.NewService(store.NewListStore(db, gen), gen, a.logger)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, svc, nil
}
