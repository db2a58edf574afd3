package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/storage"
	"github.com/joho/godotenv"
	"github.com/mdrelay/mdrelay/internal/keys"
	"github.com/mdrelay/mdrelay/internal/store"
	"github.com/mdrelay/mdrelay/internal/submit"
	"github.com/urfave/cli/v3"
	"google.golang.org/api/option"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	slog.SetDefault(logger)

	app := &cli.Command{
		Name:  "mdrelay",
		Usage: "upload PDF/DOCX documents for conversion and download the resulting Markdown",
		Commands: []*cli.Command{
			{
				Name:      "convert",
				Usage:     "upload files to the bucket's input/ prefix and wait for output/ artifacts",
				ArgsUsage: "FILE...",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "env",
						Usage: "environment file to load if present",
						Value: ".env",
					},
					&cli.StringFlag{
						Name:     "bucket",
						Usage:    "conversion bucket",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "endpoint",
						Usage: "storage API endpoint override (e.g. an emulator)",
					},
					&cli.DurationFlag{
						Name:  "poll",
						Usage: "polling interval",
						Value: 2500 * time.Millisecond,
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "per-file wait deadline",
						Value: 15 * time.Minute,
					},
					&cli.IntFlag{
						Name:  "parallel",
						Usage: "convert N files in parallel",
						Value: 1,
					},
					&cli.StringFlag{
						Name:  "out-dir",
						Usage: "directory for downloaded results",
						Value: ".",
					},
					&cli.BoolFlag{
						Name:  "rm-input",
						Usage: "delete the input object after a successful download",
					},
				},
				Action: convertAction,
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func convertAction(ctx context.Context, cmd *cli.Command) error {
	files := cmd.Args().Slice()
	if len(files) == 0 {
		return cli.Exit("no input files given", 2)
	}

	if envFile := cmd.String("env"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	// Every file is validated before the first network call.
	for _, f := range files {
		if err := submit.Validate(f); err != nil {
			return cli.Exit(err.Error(), 2)
		}
	}

	var opts []option.ClientOption
	if ep := cmd.String("endpoint"); ep != "" {
		opts = append(opts, option.WithEndpoint(ep))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return fmt.Errorf("create storage client: %w", err)
	}
	defer client.Close()

	parallel := int(cmd.Int("parallel"))
	sub := &submit.Submitter{
		Store:       store.NewGCS(client, cmd.String("bucket")),
		Scheme:      keys.Default(),
		Poll:        cmd.Duration("poll"),
		Timeout:     cmd.Duration("timeout"),
		OutDir:      cmd.String("out-dir"),
		RemoveInput: cmd.Bool("rm-input"),
	}
	if parallel <= 1 {
		// The spinner only makes sense when jobs don't interleave.
		sub.Progress = os.Stderr
	} else {
		fmt.Fprintf(os.Stderr, "[*] converting %d files with %d workers\n", len(files), parallel)
	}

	failed := sub.RunBatch(ctx, files, parallel, func(res submit.JobResult) {
		if res.Err != nil {
			fmt.Fprintf(os.Stderr, "[x] failed: %s: %v\n", res.Path, res.Err)
			return
		}
		fmt.Printf("[+] done: %s -> %s (%s)\n", res.Path, res.OutputPath, res.Elapsed.Round(time.Millisecond))
	})
	if failed > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d conversions failed", failed, len(files)), 1)
	}
	return nil
}
