package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/memorial-backend/pkg/config"
	"github.com/angelmondragon/memorial-backend/pkg/db"
	"github.com/angelmondragon/memorial-backend/pkg/logger"
	"github.com/angelmondragon/memorial-backend/pkg/migrate"
)

type options struct {
	cmd     string
	dir     string
	name    string
	version string
}

// offline commands only touch the migrations directory.
var offline = map[string]func(options) error{
	"create": func(o options) error {
		if o.name == "" {
			return errors.New("-name is required for create")
		}
		path, err := migrate.CreateSQLMigration(o.dir, o.name)
		if err != nil {
			return err
		}
		fmt.Println("created", path)
		return nil
	},
	"validate": func(o options) error {
		if err := migrate.ValidateDir(o.dir); err != nil {
			return err
		}
		fmt.Println("migrations ok")
		return nil
	},
}

var online = []string{"up", "down", "redo", "status", "version"}

func main() {
	var o options
	flag.StringVar(&o.cmd, "cmd", "up", "one of: "+strings.Join(commandNames(), "|"))
	flag.StringVar(&o.dir, "dir", migrate.DefaultDir, "goose migrations directory")
	flag.StringVar(&o.name, "name", "", "migration name for -cmd=create")
	flag.StringVar(&o.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	_ = godotenv.Load()

	if err := run(o); err != nil {
		fmt.Fprintf(os.Stderr, "migrate %s: %v\n", o.cmd, err)
		os.Exit(1)
	}
}

func run(o options) error {
	if fn, ok := offline[o.cmd]; ok {
		return fn(o)
	}
	if !isOnline(o.cmd) {
		return fmt.Errorf("unknown command %q", o.cmd)
	}
	if o.cmd == "version" && o.version == "" {
		return errors.New("-version is required for version")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": o.cmd,
		"dir": o.dir,
	})

	client, err := db.New(ctx, cfg.DB, cfg.FeatureFlags, logg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer client.Close()
	if err := client.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	// SQLite stores are synced from the models; goose files target Postgres.
	if client.Dialect() == db.DialectSQLite {
		if o.cmd != "up" {
			return fmt.Errorf("only up is supported with %s", config.EnvUseSQLite)
		}
		return migrate.Prepare(ctx, cfg, logg, client)
	}

	sqlDB, err := client.SQL()
	if err != nil {
		return err
	}
	logg.Info(ctx, "running migrations")
	if o.cmd == "version" {
		return migrate.MigrateToVersion(ctx, sqlDB, client.Dialect(), o.dir, o.version)
	}
	return migrate.Run(ctx, sqlDB, client.Dialect(), o.dir, o.cmd)
}

func isOnline(cmd string) bool {
	for _, c := range online {
		if c == cmd {
			return true
		}
	}
	return false
}

func commandNames() []string {
	names := append([]string(nil), online...)
	for name := range offline {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
