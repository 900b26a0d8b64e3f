package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
)

type options struct {
	dir     string
	name    string
	version string
}

// offline commands only touch the migrations directory.
var offline = map[string]func(opts options) error{
	"create": func(opts options) error {
		if opts.name == "" {
			return errors.New("-name is required for create")
		}
		path, err := migrate.CreateSQLMigration(opts.dir, opts.name, time.Now())
		if err == nil {
			fmt.Println("created", path)
		}
		return err
	},
	"validate": func(opts options) error {
		if err := migrate.ValidateDir(opts.dir); err != nil {
			return err
		}
		fmt.Println("migrations ok")
		return nil
	},
}

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "migrate"})
	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "up|down|status|version|create|validate")
	dir := flag.String("dir", "", "migrations directory; empty runs the embedded set")
	name := flag.String("name", "", "name of the migration to create")
	version := flag.String("version", "", "target version for -cmd=version")
	flag.Parse()

	opts := options{dir: *dir, name: *name, version: *version}
	if run, ok := offline[*cmd]; ok {
		if opts.dir == "" {
			opts.dir = migrate.SourceDir
		}
		if err := run(opts); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", *cmd, err)
			os.Exit(1)
		}
		return
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)
	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()
	sqlDB, err := dbClient.DB().DB()
	requireResource(ctx, logg, "sql database", err)

	dialect := migrate.DialectFor(cfg.DB)
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "cmd": *cmd, "dialect": dialect})
	if err := online(ctx, sqlDB, dialect, *cmd, opts); err != nil {
		logg.Error(ctx, "migration failed", err)
		os.Exit(1)
	}
	logg.Info(ctx, "migration finished")
}

func online(ctx context.Context, sqlDB *sql.DB, dialect, cmd string, opts options) error {
	switch cmd {
	case "up", "down", "status":
		return migrate.Run(ctx, sqlDB, dialect, opts.dir, cmd)
	case "version":
		if opts.version == "" {
			return errors.New("-version is required for version")
		}
		return migrate.MigrateToVersion(ctx, sqlDB, dialect, opts.dir, opts.version)
	}
	return fmt.Errorf("unknown -cmd %q", cmd)
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
