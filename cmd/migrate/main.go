// Command migrate manages the postgres schema of the unified tables.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/erp/unify/internal/infrastructure/config"
	"github.com/erp/unify/internal/infrastructure/logger"
	"github.com/erp/unify/internal/infrastructure/migration"
	"github.com/erp/unify/internal/infrastructure/persistence"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

type options struct {
	configPath string
	dir        string
	logLevel   string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options
	root := &cobra.Command{
		Use:   "migrate",
		Short: "Unified schema migration tool",
		Long: `Applies the versioned postgres migrations of the unified tables.

Migrations are compiled into the binary. Pass --dir to run migrations
from a directory instead, for example while writing a new one.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (default: ./config.toml, ./config/config.toml, /etc/unify/config.toml)")
	root.PersistentFlags().StringVar(&opts.dir, "dir", "", "Migrations directory (default: embedded migrations)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	root.AddCommand(
		withMigrator(&opts, &cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
		}, func(ctx context.Context, m *migration.Migrator, _ *zap.Logger, _ []string) error {
			return m.Up(ctx)
		}),
		withMigrator(&opts, &cobra.Command{
			Use:   "down",
			Short: "Roll back all migrations",
			Args:  cobra.NoArgs,
		}, func(ctx context.Context, m *migration.Migrator, _ *zap.Logger, _ []string) error {
			return m.Down(ctx)
		}),
		withMigrator(&opts, &cobra.Command{
			Use:   "step <n>",
			Short: "Apply n migrations (positive=up, negative=down)",
			Args:  cobra.ExactArgs(1),
		}, func(ctx context.Context, m *migration.Migrator, _ *zap.Logger, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil || n == 0 {
				return fmt.Errorf("invalid step count %q", args[0])
			}
			return m.Steps(ctx, n)
		}),
		withMigrator(&opts, &cobra.Command{
			Use:   "version",
			Short: "Show the current migration version",
			Args:  cobra.NoArgs,
		}, func(_ context.Context, m *migration.Migrator, log *zap.Logger, _ []string) error {
			version, dirty, err := m.Version()
			if err != nil {
				return err
			}
			if version == 0 {
				log.Info("No migrations applied")
				return nil
			}
			log.Info("Current migration version", zap.Uint("version", version), zap.Bool("dirty", dirty))
			return nil
		}),
		withMigrator(&opts, &cobra.Command{
			Use:   "force <version>",
			Short: "Force set the migration version without running it",
			Args:  cobra.ExactArgs(1),
		}, func(_ context.Context, m *migration.Migrator, log *zap.Logger, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid version %q", args[0])
			}
			log.Warn("Forcing migration version", zap.Int("version", version))
			return m.Force(version)
		}),
		newCreateCmd(&opts),
		newListCmd(&opts),
	)
	return root
}

func (o *options) logger() (*zap.Logger, error) {
	return logger.New(&logger.Config{
		Level:      o.logLevel,
		Format:     "console",
		Output:     "stderr",
		TimeFormat: time.DateTime,
	})
}

// withMigrator opens the configured database and runs fn with a migrator over it
func withMigrator(opts *options, cmd *cobra.Command, fn func(context.Context, *migration.Migrator, *zap.Logger, []string) error) *cobra.Command {
	cmd.RunE = func(cmd *cobra.Command, args []string) (err error) {
		log, err := opts.logger()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		cfg, err := config.LoadFile(opts.configPath)
		if err != nil {
			return err
		}
		if cfg.Database.Driver != persistence.DriverPostgres {
			return fmt.Errorf("migrations target postgres, database.driver is %q", cfg.Database.Driver)
		}
		db, err := persistence.NewDatabase(&cfg.Database, logger.NewGormLogger(log, gormlogger.Warn, time.Second))
		if err != nil {
			return err
		}
		defer db.Close()
		sqlDB, err := db.DB.DB()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		var m *migration.Migrator
		if opts.dir != "" {
			m, err = migration.NewFromDir(ctx, sqlDB, opts.dir, log)
		} else {
			m, err = migration.New(ctx, sqlDB, log)
		}
		if err != nil {
			return err
		}
		defer func() { err = errors.Join(err, m.Close()) }()

		log.Info("Migration started", zap.String("command", cmd.Name()), zap.String("host", cfg.Database.Host))
		return fn(ctx, m, log, args)
	}
	return cmd
}

func newCreateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "create <name> [description]",
		Short: "Create the next numbered migration pair in --dir",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := opts.dir
			if dir == "" {
				dir = "internal/infrastructure/migration/sql"
			}
			var description string
			if len(args) > 1 {
				description = args[1]
			}
			mf, err := migration.CreateMigration(dir, args[0], description, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created version %d\n  %s\n  %s\n", mf.Version, mf.UpPath, mf.DownPath)
			return nil
		},
	}
}

func newListCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				entries []migration.Entry
				err     error
			)
			if opts.dir != "" {
				entries, err = migration.ListMigrations(os.DirFS(opts.dir))
			} else {
				entries, err = migration.Embedded()
			}
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "no migrations found")
				return nil
			}
			for _, e := range entries {
				fmt.Fprintf(out, "%06d  %s\n", e.Version, e.Name)
			}
			return nil
		},
	}
}
