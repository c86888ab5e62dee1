package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	auth "github.com/goliatone/go-marketplace-auth"
	"github.com/goliatone/go-marketplace-auth/cmd/server/migrations"
	"github.com/goliatone/go-router"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func main() {
	configPath := flag.String("config", "config.yml", "path to YAML config file")
	flag.Parse()

	logger := newLogger("server")

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		logger.Error("config: %v", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("server: %v", err)
		os.Exit(1)
	}
}

func run(cfg *AppConfig, logger *zeroLogger) error {
	ctx := context.Background()

	sqlDB, bunDB, err := openDatabase(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer sqlDB.Close()

	if err := runMigrations(ctx, cfg.Database.Driver, sqlDB); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	cache, err := auth.NewFallbackCache(cfg.Owner, newLogger("auth:cache"))
	if err != nil {
		return fmt.Errorf("fallback cache: %w", err)
	}

	users := auth.NewUsersRepository(bunDB)

	auther := auth.NewAuthenticator(users, cache, cfg.Auth).
		WithLogger(newLogger("auth"))

	if cfg.Owner.Email != "" {
		if _, err := auther.EnsureOwner(ctx, cfg.Owner); err != nil {
			// cache still serves the owner; keep booting
			logger.Warn("bootstrap owner not persisted: %v", err)
		}
	}

	controller := auth.NewAuthController(auther, cfg.Auth,
		auth.WithControllerLogger(newLogger("auth:ctrl")),
	)

	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			AppName:       "marketplace-auth",
			StrictRouting: false,
		}))
	})

	auth.RegisterAuthRoutes(srv.Router(), controller)

	logger.Info("listening on %s", cfg.Server.Addr)
	srv.Serve(cfg.Server.Addr)

	sig := WaitExitSignal()
	logger.Info("received %s, shutting down", sig)

	return nil
}

func openDatabase(driver, dsn string) (*sql.DB, *bun.DB, error) {
	switch driver {
	case "sqlite":
		sqlDB, err := sql.Open(sqliteshim.ShimName, dsn)
		if err != nil {
			return nil, nil, err
		}
		return sqlDB, bun.NewDB(sqlDB, sqlitedialect.New()), nil
	case "postgres":
		sqlDB, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, nil, err
		}
		return sqlDB, bun.NewDB(sqlDB, pgdialect.New()), nil
	default:
		return nil, nil, fmt.Errorf("unknown database driver %q", driver)
	}
}

func runMigrations(ctx context.Context, driver string, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	dialect := "sqlite3"
	if driver == "postgres" {
		dialect = "pgx"
	}
	if err := goose.SetDialect(dialect); err != nil {
		return err
	}

	return goose.UpContext(ctx, db, ".")
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
