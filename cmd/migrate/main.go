package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/maximegiguere1one/garantiepro-sub004/pkg/config"
	"github.com/maximegiguere1one/garantiepro-sub004/pkg/db"
	"github.com/maximegiguere1one/garantiepro-sub004/pkg/logger"
	"github.com/maximegiguere1one/garantiepro-sub004/pkg/migrate"
)

const usage = `usage: migrate [flags] <command> [arg]

commands:
  up             apply all pending migrations
  down           roll back the latest migration
  redo           roll back and re-apply the latest migration
  status         print applied and pending migrations
  to <version>   migrate up or down to a YYYYMMDDHHMMSS version
  create <name>  write a new SQL migration into -dir
  validate       check migration files without a database
`

// gooseCommands pass straight through to goose.
var gooseCommands = map[string]bool{"up": true, "down": true, "redo": true, "status": true}

func main() {
	dir := flag.String("dir", migrate.DefaultDir, "migrations directory; empty uses the migrations built into the binary")
	flag.Usage = func() { fmt.Fprint(flag.CommandLine.Output(), usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	logg := logger.New(logger.Options{ServiceName: "migrate"})
	if err := run(context.Background(), logg, *dir, args[0], args[1:]); err != nil {
		logg.Error(context.Background(), "migrate "+args[0]+" failed", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logg *logger.Logger, dir, command string, args []string) (err error) {
	arg := ""
	if len(args) > 0 {
		arg = args[0]
	}

	// file-only commands run without config or a database
	switch command {
	case "create":
		if arg == "" {
			return errors.New("create needs a migration name")
		}
		path, err := migrate.CreateSQLMigration(dir, arg)
		if err != nil {
			return err
		}
		fmt.Println("created", path)
		return nil
	case "validate":
		if err := migrate.ValidateDir(dir); err != nil {
			return err
		}
		fmt.Println("migrations valid")
		return nil
	}

	if !gooseCommands[command] && command != "to" {
		return fmt.Errorf("unknown command %q", command)
	}
	if command == "to" && arg == "" {
		return errors.New("to needs a target version")
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		return err
	}

	dialect := migrate.Dialect(cfg.DB.Driver)
	ctx = logg.WithFields(ctx, map[string]any{
		"command": command,
		"dialect": dialect,
		"dir":     dir,
		"env":     cfg.App.Env,
	})
	logg.Info(ctx, "running migrations")

	if command == "to" {
		return migrate.MigrateToVersion(ctx, sqlDB, dialect, dir, arg)
	}
	return migrate.Run(ctx, sqlDB, dialect, dir, command)
}
