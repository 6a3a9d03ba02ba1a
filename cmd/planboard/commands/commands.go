package commands

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/planboard/core/internal/adapters/repository"
	"github.com/planboard/core/internal/application/services"
	"github.com/planboard/core/internal/domain/entities"
	"github.com/planboard/core/internal/history"
	"github.com/planboard/core/internal/infrastructure/config"
	"github.com/planboard/core/internal/infrastructure/database"
	"github.com/planboard/core/internal/infrastructure/logger"
	"github.com/planboard/core/internal/infrastructure/metrics"
	"github.com/planboard/core/internal/infrastructure/server"
)

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the PlanBoard server",
		Long:  "Start the PlanBoard server with all configured routes and middleware",
		Run: func(cmd *cobra.Command, args []string) {
			runServer()
		},
	}
}

// NewExportCommand creates the export command
func NewExportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [file]",
		Short: "Write the stored board to a file",
		Long:  "Write the board kept in the local state database to a JSON document. Without an argument the conventional timestamped filename is used.",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			runExport(path)
		},
	}
	return cmd
}

// NewImportCommand creates the import command
func NewImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Load a board document into the local state database",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			runImport(args[0])
		},
	}
}

// NewMigrateCommand creates the migrate command
func NewMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply state database migrations",
		Long:  "Bring the local state database schema up to date. Serve does this automatically on startup; migrate is for doing it ahead of time.",
		Run: func(cmd *cobra.Command, args []string) {
			runMigrate()
		},
	}
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print PlanBoard version",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := config.Load()
			if err != nil {
				fmt.Println("PlanBoard")
				return
			}
			fmt.Printf("PlanBoard %s\n", cfg.App.Version)
		},
	}
}

func runServer() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()

	db, err := database.New(cfg.Storage)
	if err != nil {
		appLogger.Fatalw("Failed to open state database", "error", err)
	}
	defer db.Close()

	m := metrics.New()

	srv, err := server.New(cfg, db, appLogger, m)
	if err != nil {
		appLogger.Fatalw("Failed to initialize server", "error", err)
	}

	appLogger.Infow("Starting PlanBoard server",
		"port", cfg.Server.Port,
		"environment", cfg.App.Environment,
	)

	go func() {
		if err := srv.Start(fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)); err != nil {
			appLogger.Infow("Server stopped", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Errorw("Graceful shutdown failed", "error", err)
	}
}

// openBoard builds a board service over the local state database and
// restores its persisted keys.
func openBoard(ctx context.Context, cfg *config.Config, appLogger *logger.Logger) (*services.BoardService, func(), error) {
	db, err := database.New(cfg.Storage)
	if err != nil {
		return nil, nil, fmt.Errorf("open state database: %w", err)
	}

	stateStore, err := repository.NewSQLStateStore(db.DB)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("init state store: %w", err)
	}

	hist := history.NewManager(cfg.History.Limit)
	boardService := services.NewBoardService(stateStore, hist, metrics.New(), appLogger.WithComponent("board"))
	boardService.LoadLocalState(ctx)

	return boardService, func() { _ = db.Close() }, nil
}

func runMigrate() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.New(cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to open state database: %v", err)
	}
	defer db.Close()

	if _, err := repository.NewSQLStateStore(db.DB); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	fmt.Printf("State database at %s is up to date\n", cfg.Storage.StatePath)
}

func runExport(path string) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()

	ctx := context.Background()
	boardService, closeDB, err := openBoard(ctx, cfg, appLogger)
	if err != nil {
		log.Fatalf("Failed to open board: %v", err)
	}
	defer closeDB()

	doc := boardService.Export(entities.NowMeta)
	data, err := entities.EncodeDocument(doc)
	if err != nil {
		log.Fatalf("Failed to encode board: %v", err)
	}

	if path == "" {
		path = services.ExportFilename(doc.AppName, time.Now())
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Fatalf("Failed to write %s: %v", path, err)
	}

	fmt.Printf("Exported board to %s\n", path)
}

func runImport(path string) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Failed to read %s: %v", path, err)
	}

	doc, err := entities.ParseDocument(data)
	if err != nil {
		log.Fatalf("Invalid board document: %v", err)
	}

	ctx := context.Background()
	boardService, closeDB, err := openBoard(ctx, cfg, appLogger)
	if err != nil {
		log.Fatalf("Failed to open board: %v", err)
	}
	defer closeDB()

	boardService.Import(ctx, doc)
	fmt.Printf("Imported %s: %d tasks, %d categories, %d events\n",
		path, len(doc.Tasks), len(doc.Categories), len(doc.Events))
}
