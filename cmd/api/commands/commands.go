package commands

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/memoria/core/internal/adapters/repository"
	"github.com/memoria/core/internal/application/backup"
	"github.com/memoria/core/internal/application/importer"
	"github.com/memoria/core/internal/infrastructure/config"
	"github.com/memoria/core/internal/infrastructure/database"
	"github.com/memoria/core/internal/infrastructure/logger"
	"github.com/memoria/core/internal/infrastructure/metrics"
	"github.com/memoria/core/internal/infrastructure/server"
)

const shutdownTimeout = 15 * time.Second

// Version is overridden at build time with -ldflags
var Version = "dev"

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the Memoria API server",
		Long:  "Start the API server together with the browser import and backup schedulers",
		Run: func(cmd *cobra.Command, args []string) {
			runServer()
		},
	}
}

// NewMigrateCommand creates the migrate command with subcommands
func NewMigrateCommand() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration commands",
		Long:  "Manage database migrations (up, down, version)",
	}

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Run all up migrations",
		Run: func(cmd *cobra.Command, args []string) {
			runMigration("up", 0)
		},
	})

	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Revert migrations",
		Run: func(cmd *cobra.Command, args []string) {
			steps, _ := cmd.Flags().GetInt("steps")
			runMigration("down", steps)
		},
	}
	downCmd.Flags().Int("steps", 0, "Number of migrations to revert (0 reverts all)")
	migrateCmd.AddCommand(downCmd)

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print current migration version",
		Run: func(cmd *cobra.Command, args []string) {
			showMigrationVersion()
		},
	})

	return migrateCmd
}

// NewImportCommand creates the browser import command
func NewImportCommand() *cobra.Command {
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Browser history and bookmark import",
	}

	importCmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run one import cycle over every discovered browser profile",
		Run: func(cmd *cobra.Command, args []string) {
			runImport(cmd.Context())
		},
	})

	return importCmd
}

// NewBackupCommand creates the backup command with subcommands
func NewBackupCommand() *cobra.Command {
	backupCmd := &cobra.Command{
		Use:   "backup",
		Short: "Encrypted database backups",
	}

	backupCmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Take, verify, encrypt and prune one backup",
		Run: func(cmd *cobra.Command, args []string) {
			runBackup(cmd.Context())
		},
	})

	decryptCmd := &cobra.Command{
		Use:   "decrypt",
		Short: "Restore a backup artifact to a plain SQLite file",
		Run: func(cmd *cobra.Command, args []string) {
			in, _ := cmd.Flags().GetString("in")
			out, _ := cmd.Flags().GetString("out")

			if in == "" || out == "" {
				log.Fatal("--in and --out are required")
			}

			decryptBackup(in, out)
		},
	}
	decryptCmd.Flags().String("in", "", "Encrypted artifact (required)")
	decryptCmd.Flags().String("out", "", "Destination database file, must not exist (required)")
	backupCmd.AddCommand(decryptCmd)

	return backupCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print Memoria version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Memoria %s\n", Version)
		},
	}
}

// bootstrap loads configuration, the logger and the store
func bootstrap() (*config.Config, *logger.Logger, *database.DB) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	db, err := database.New(cfg.Database)
	if err != nil {
		appLogger.Fatalw("Failed to open database", "error", err, "path", cfg.Database.Path)
	}

	return cfg, appLogger, db
}

func runServer() {
	cfg, appLogger, db := bootstrap()
	defer appLogger.Sync()
	defer db.Close()

	if err := db.Migrate(); err != nil {
		appLogger.Fatalw("Failed to migrate database", "error", err)
	}

	m := metrics.New()

	srv, err := server.New(cfg, db, appLogger, m)
	if err != nil {
		appLogger.Fatalw("Failed to initialize server", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.SyncCalendarSources(ctx); err != nil {
		appLogger.Warnw("Calendar sources not synchronized", "error", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Import.Enabled {
		pipeline := importer.NewPipeline(repository.NewImportedRecordRepository(db, appLogger), cfg.Import, cfg.Browsers, appLogger, m)

		// the first import finishes before the server accepts requests
		if _, err := pipeline.Run(ctx); err != nil {
			appLogger.Warnw("Initial import interrupted", "error", err)
		}

		scheduler := importer.NewScheduler(pipeline, cfg.Import.Interval(), appLogger)
		g.Go(func() error { return scheduler.Run(gctx) })
	}

	if cfg.Backup.Enabled {
		backupService, err := backup.NewService(db, cfg.Storage.BackupsDir, cfg.Backup, appLogger, m)
		if err != nil {
			appLogger.Fatalw("Failed to initialize backups", "error", err)
		}

		scheduler := backup.NewScheduler(backupService, cfg.Backup.InitialDelay, cfg.Backup.Interval, appLogger)
		g.Go(func() error { return scheduler.Run(gctx) })
	}

	g.Go(func() error {
		appLogger.Infow("Starting Memoria API server",
			"address", cfg.Server.Address(),
			"environment", cfg.App.Environment,
		)
		if err := srv.Start(cfg.Server.Address()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		appLogger.Errorw("Server stopped with error", "error", err)
		return
	}

	appLogger.Infow("Server stopped")
}

func runMigration(direction string, steps int) {
	_, appLogger, db := bootstrap()
	defer db.Close()

	var err error
	switch direction {
	case "up":
		err = db.Migrate()
	case "down":
		err = db.MigrateDown(steps)
	}

	if err != nil {
		appLogger.Fatalw("Migration failed", "direction", direction, "error", err)
	}

	fmt.Printf("Migration %s completed successfully\n", direction)
}

func showMigrationVersion() {
	_, appLogger, db := bootstrap()
	defer db.Close()

	status, err := db.MigrationVersion()
	if err != nil {
		appLogger.Fatalw("Failed to get migration version", "error", err)
	}

	fmt.Printf("Current migration version: %d\n", status.Version)
	fmt.Printf("Dirty: %t\n", status.Dirty)
}

func runImport(ctx context.Context) {
	cfg, appLogger, db := bootstrap()
	defer db.Close()

	if err := db.Migrate(); err != nil {
		appLogger.Fatalw("Failed to migrate database", "error", err)
	}

	pipeline := importer.NewPipeline(repository.NewImportedRecordRepository(db, appLogger), cfg.Import, cfg.Browsers, appLogger, nil)

	summary, err := pipeline.Run(ctx)
	if err != nil {
		appLogger.Fatalw("Import failed", "error", err)
	}

	for _, source := range summary.Sources {
		line := fmt.Sprintf("  %-28s read %-6d added %d", source.Source, source.Read, source.Added)
		if source.Error != "" {
			line += "  (" + source.Error + ")"
		}
		fmt.Println(line)
	}
	fmt.Printf("Imported %d new of %d read in %s\n", summary.Added, summary.Read, summary.Duration.Round(time.Millisecond))
}

func runBackup(ctx context.Context) {
	cfg, appLogger, db := bootstrap()
	defer db.Close()

	backupService, err := backup.NewService(db, cfg.Storage.BackupsDir, cfg.Backup, appLogger, nil)
	if err != nil {
		appLogger.Fatalw("Failed to initialize backups", "error", err)
	}

	artifact, err := backupService.RunOnce(ctx)
	if err != nil {
		appLogger.Fatalw("Backup failed", "error", err)
	}

	fmt.Printf("Backup written to %s\n", artifact)
}

func decryptBackup(in, out string) {
	cfg, appLogger, db := bootstrap()
	defer db.Close()

	backupService, err := backup.NewService(db, cfg.Storage.BackupsDir, cfg.Backup, appLogger, nil)
	if err != nil {
		appLogger.Fatalw("Failed to initialize backups", "error", err)
	}

	if err := backupService.DecryptFile(in, out); err != nil {
		appLogger.Fatalw("Decrypt failed", "error", err, "in", in)
	}

	fmt.Printf("Restored %s to %s\n", in, out)
}
