package main

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/library-catalog-api/internal/repository"
	"github.com/noah-isme/library-catalog-api/internal/service"
	"github.com/noah-isme/library-catalog-api/pkg/config"
	"github.com/noah-isme/library-catalog-api/pkg/database"
	"github.com/noah-isme/library-catalog-api/pkg/logger"
)

// env is the bootstrap shared by every subcommand.
type env struct {
	cfg *config.Config
	log *zap.Logger
	db  *sqlx.DB
}

func (e *env) close() {
	if e.db != nil {
		_ = e.db.Close()
	}
	_ = e.log.Sync()
}

func bootstrap() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return &env{cfg: cfg, log: logr, db: db}, nil
}

// catalog builds an uncached catalog service; the API's listing cache expires on its own TTL.
func (e *env) catalog() *service.CatalogService {
	return service.NewCatalogService(repository.NewBookRepository(e.db), nil, nil, e.log)
}

// withEnv runs fn with a bootstrapped env and closes it afterwards.
func withEnv(fn func(cmd *cobra.Command, args []string, e *env) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		e, err := bootstrap()
		if err != nil {
			return err
		}
		defer e.close()
		return fn(cmd, args, e)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "librarian",
		Short:         "Maintenance commands for the library catalog",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newMigrateCmd(), newImportCmd(), newSessionsCmd(), newCreateAdminCmd())
	return root
}
