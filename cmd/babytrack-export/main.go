package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"babytrack-go/internal/app"
	"babytrack-go/internal/config"
	"babytrack-go/internal/db"
	exportdomain "babytrack-go/internal/domain/export"
	"babytrack-go/pkg/logger"
	"github.com/spf13/pflag"
)

type options struct {
	babyID string
	userID string
	email  string
	out    string
	s3     bool
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	opts, err := parseFlags(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	log := logger.NewFromEnv()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(log)
	if err != nil {
		return err
	}
	conn, err := db.NewPostgres(cfg.DB, log)
	if err != nil {
		return err
	}
	defer func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()

	services, err := app.NewServices(ctx, cfg, conn, log)
	if err != nil {
		return err
	}

	// The export runs as the given collaborator so access checks and
	// row-level security apply exactly as they do over HTTP.
	ctx = db.WithIdentity(ctx, db.Identity{UserID: opts.userID, Email: opts.email})

	snapshot, err := services.Export.Export(ctx, opts.userID, opts.babyID)
	if err != nil {
		return err
	}
	log.Info("export: snapshot taken",
		"baby_id", opts.babyID,
		"feeding", len(snapshot.Feeding),
		"sleep", len(snapshot.Sleep),
		"diaper", len(snapshot.Diaper),
		"health", len(snapshot.Health),
	)

	if opts.s3 {
		archived, err := services.Export.Store(ctx, snapshot)
		if err != nil {
			if errors.Is(err, exportdomain.ErrArchiveDisabled) {
				return fmt.Errorf("--s3 needs EXPORT_S3_BUCKET: %w", err)
			}
			return err
		}
		_, err = fmt.Fprintf(stdout, "%s\n%s\n", archived.Key, archived.URL)
		return err
	}

	return writeSnapshot(snapshot, opts.out, stdout)
}

func parseFlags(args []string) (options, error) {
	var opts options
	flagSet := pflag.NewFlagSet("babytrack-export", pflag.ContinueOnError)
	flagSet.StringVar(&opts.babyID, "baby", "", "baby id to export (required)")
	flagSet.StringVar(&opts.userID, "user", "", "collaborator user id to export as (required)")
	flagSet.StringVar(&opts.email, "email", "", "collaborator e-mail, for policies that match on it")
	flagSet.StringVarP(&opts.out, "out", "o", "", `output file, "-" for stdout (default baby-records-<date>.json)`)
	flagSet.BoolVar(&opts.s3, "s3", false, "upload to the export bucket and print a presigned link instead")
	flagSet.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: babytrack-export --baby <id> --user <id> [--out file | --s3]\n\n")
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(args); err != nil {
		return options{}, err
	}
	if extra := flagSet.Args(); len(extra) > 0 {
		return options{}, fmt.Errorf("unexpected argument: %s", extra[0])
	}

	opts.babyID = strings.TrimSpace(opts.babyID)
	opts.userID = strings.TrimSpace(opts.userID)
	if opts.babyID == "" || opts.userID == "" {
		return options{}, errors.New("--baby and --user are required")
	}
	if opts.s3 && opts.out != "" {
		return options{}, errors.New("--out and --s3 are mutually exclusive")
	}
	return opts, nil
}

func writeSnapshot(snapshot *exportdomain.Snapshot, out string, stdout io.Writer) error {
	body, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return err
	}
	body = append(body, '\n')

	if out == "-" {
		_, err = stdout.Write(body)
		return err
	}
	if out == "" {
		out = exportdomain.Filename(snapshot.ExportDate)
	}
	if err := os.WriteFile(out, body, 0o600); err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, out)
	return err
}
