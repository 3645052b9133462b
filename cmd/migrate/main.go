package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/pressly/goose/v3"

	"github.com/noah-isme/school-admin-api/migrations"
	"github.com/noah-isme/school-admin-api/pkg/config"
	"github.com/noah-isme/school-admin-api/pkg/database"
	"github.com/noah-isme/school-admin-api/pkg/logger"
)

// migrate applies the embedded SQL migrations.
//
//	migrate up | down | status | version | reset | redo
func main() {
	flag.Parse()
	command := flag.Arg(0)
	if command == "" {
		command = "up"
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck
	sugar := logr.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		sugar.Fatalw("connect database", "error", err)
	}
	defer db.Close() //nolint:errcheck

	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(gooseLogger{sugar: sugar})
	if err := goose.SetDialect("postgres"); err != nil {
		sugar.Fatalw("set dialect", "error", err)
	}

	if err := goose.RunContext(ctx, command, db.DB, ".", flag.Args()[min(1, flag.NArg()):]...); err != nil {
		sugar.Fatalw("migration failed", "command", command, "error", err)
	}
	sugar.Infow("migration finished", "command", command)
}

type gooseLogger struct {
	sugar interface {
		Infof(template string, args ...interface{})
		Fatalf(template string, args ...interface{})
	}
}

func (l gooseLogger) Printf(format string, v ...interface{}) { l.sugar.Infof(format, v...) }

func (l gooseLogger) Fatalf(format string, v ...interface{}) { l.sugar.Fatalf(format, v...) }
