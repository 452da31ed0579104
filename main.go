package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/voyagelabs/voyage-server/voyage"
	"github.com/voyagelabs/voyage-server/voyage/database"
	"github.com/voyagelabs/voyage-server/voyage/logger"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	path := flag.String("config", "config.toml", "path to config")
	flag.Parse()

	cfg, err := voyage.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	customHandler := logger.NewHandler(cfg.Log.Level)
	slog.SetDefault(slog.New(customHandler))

	slog.Info("Starting Voyage server",
		slog.String("version", version),
		slog.String("commit", commit))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	db, err := database.New(ctx, database.DBConfig{
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		User:     cfg.DB.User,
		Password: cfg.DB.Password,
		Database: cfg.DB.Database,
		PoolSize: cfg.DB.PoolSize,
	})
	if err != nil {
		cancel()
		slog.Error("Failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	if err := db.InitializeSchema(ctx); err != nil {
		cancel()
		slog.Error("Failed to initialize schema", slog.Any("error", err))
		os.Exit(1)
	}
	cancel()
	slog.Info("Database ready", slog.String("type", "db"))

	app, err := voyage.New(*cfg, db, version, commit)
	if err != nil {
		slog.Error("Failed to assemble application", slog.Any("error", err))
		os.Exit(1)
	}
	defer app.Close()

	runCtx, stop := context.WithCancel(context.Background())
	defer stop()
	app.Start(runCtx)

	srv := fiber.New(fiber.Config{
		AppName:               "Voyage Server",
		DisableStartupMessage: true,
	})
	srv.Use(recover.New())
	srv.Use(cors.New())
	srv.Use(compress.New())
	app.Server.Register(srv)

	go func() {
		if err := srv.Listen(cfg.HTTP.Addr); err != nil {
			slog.Error("HTTP server stopped", slog.Any("error", err))
			stop()
		}
	}()
	slog.Info("Listening", slog.String("addr", cfg.HTTP.Addr))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-runCtx.Done():
	}

	slog.Info("Shutting down")
	stop()
	if err := srv.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("Shutdown error", slog.Any("error", err))
	}
}
