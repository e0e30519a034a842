package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"s3courier/pkg/client"
	"s3courier/pkg/config"
	"s3courier/pkg/obs/metrics"
	"s3courier/pkg/obs/tracing"
	"s3courier/pkg/regions"
)

var version = "0.1.0-dev"

func usage() {
	fmt.Fprintf(os.Stderr, `s3courier %s
Usage:
  s3courier get <bucket> <key>          fetch an object to stdout
  s3courier put <bucket> <key> <file>   upload a file
`, version)
	os.Exit(2)
}

func main() {
	// Load config from S3COURIER_CONFIG or ./config.yaml; defaults otherwise.
	cfgPath := os.Getenv("S3COURIER_CONFIG")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	region, err := regions.Parse(cfg.Region)
	if err != nil {
		slog.Error("invalid region", slog.String("region", cfg.Region), slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize tracing (OpenTelemetry)
	traceShutdown, terr := tracing.Init(context.Background(), tracing.Options{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		Protocol:    cfg.Tracing.Protocol,
		SampleRatio: cfg.Tracing.SampleRatio,
		ServiceName: cfg.Tracing.ServiceName,
	})
	if terr != nil {
		slog.Warn("tracing init failed", slog.String("error", terr.Error()))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if traceShutdown != nil {
			_ = traceShutdown(ctx)
		}
	}()

	m := metrics.New()
	opts := []client.Option{
		client.WithObserver(m),
		client.WithMaxAttempts(cfg.MaxAttempts),
	}
	if cfg.Profile != "" {
		opts = append(opts, client.WithProfile(cfg.Profile))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, client.WithEndpointHost(cfg.Endpoint))
	}
	if cfg.Gzip {
		opts = append(opts, client.WithGzip())
	}
	c := client.New(region, opts...)

	args := os.Args[1:]
	if len(args) < 3 {
		usage()
	}

	ctx := context.Background()
	switch args[0] {
	case "get":
		body, err := c.GetObject(ctx, args[1], args[2])
		if err != nil {
			slog.Error("get failed", slog.String("bucket", args[1]), slog.String("key", args[2]), slog.String("error", err.Error()))
			os.Exit(1)
		}
		if _, err := os.Stdout.Write(body); err != nil {
			slog.Error("write stdout", slog.String("error", err.Error()))
			os.Exit(1)
		}
	case "put":
		if len(args) < 4 {
			usage()
		}
		data, err := os.ReadFile(args[3])
		if err != nil {
			slog.Error("read file", slog.String("file", args[3]), slog.String("error", err.Error()))
			os.Exit(1)
		}
		if err := c.PutObject(ctx, args[1], args[2], data); err != nil {
			slog.Error("put failed", slog.String("bucket", args[1]), slog.String("key", args[2]), slog.String("error", err.Error()))
			os.Exit(1)
		}
		slog.Info("uploaded", slog.String("bucket", args[1]), slog.String("key", args[2]), slog.Int("bytes", len(data)))
	default:
		usage()
	}
}
