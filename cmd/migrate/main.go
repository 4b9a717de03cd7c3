package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/ttml-backend/pkg/config"
	"github.com/angelmondragon/ttml-backend/pkg/db"
	"github.com/angelmondragon/ttml-backend/pkg/logger"
	"github.com/angelmondragon/ttml-backend/pkg/migrate"
)

const usage = "migration command: up|down|redo|status|to|create|validate"

func main() {
	cmd := flag.String("cmd", "up", usage)
	dir := flag.String("dir", "", "read migrations from this directory instead of the embedded set")
	name := flag.String("name", "", "migration name for -cmd=create")
	target := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=to")
	flag.Parse()

	_ = godotenv.Load()

	// create and validate never need a database.
	switch *cmd {
	case "create":
		out := *dir
		if out == "" {
			out = migrate.SourceDir
		}
		if *name == "" {
			exitf("missing -name for create")
		}
		path, err := migrate.CreateSQLMigration(out, *name, time.Now())
		if err != nil {
			exitf("create migration: %v", err)
		}
		fmt.Println("created", path)
		return
	case "validate":
		var err error
		if *dir == "" {
			err = migrate.ValidateFS(migrate.Migrations())
		} else {
			err = migrate.ValidateDir(*dir)
		}
		if err != nil {
			exitf("invalid migrations:\n%v", err)
		}
		fmt.Println("migrations ok")
		return
	}

	cfg, err := config.Load()
	if err != nil {
		exitf("load config: %v", err)
	}
	logg := logger.ForService("migrate", cfg.App)
	ctx := logg.WithFields(context.Background(), map[string]any{"cmd": *cmd, "env": cfg.App.Env})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		exitf("connect database: %v", err)
	}
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		exitf("extract sql.DB: %v", err)
	}
	runner, err := migrate.NewRunner(sqlDB, sourceFS(*dir), logg)
	if err != nil {
		exitf("%v", err)
	}

	switch *cmd {
	case "up":
		err = runner.Up(ctx)
	case "down":
		err = runner.Down(ctx)
	case "redo":
		err = runner.Redo(ctx)
	case "to":
		version, perr := strconv.ParseInt(*target, 10, 64)
		if perr != nil {
			exitf("-version must be YYYYMMDDHHMMSS: %v", perr)
		}
		err = runner.To(ctx, version)
	case "status":
		err = printStatus(ctx, runner)
	default:
		exitf("unknown -cmd %q (%s)", *cmd, usage)
	}
	if err != nil {
		logg.Error(ctx, "migration command failed", err)
		os.Exit(1)
	}
}

func sourceFS(dir string) fs.FS {
	if dir == "" {
		return migrate.Migrations()
	}
	return os.DirFS(dir)
}

func printStatus(ctx context.Context, runner *migrate.Runner) error {
	rows, err := runner.Status(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tAPPLIED AT\tNAME")
	for _, row := range rows {
		applied := "pending"
		if row.Applied {
			applied = row.AppliedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", row.Version, applied, row.Name)
	}
	return tw.Flush()
}

func exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
