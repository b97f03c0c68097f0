//go:build linux

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brickingsoft/ringd"
	"github.com/brickingsoft/ringd/config"
)

func main() {
	os.Exit(run())
}

func run() int {
	fConfig := flag.String("config", "", "path to config YAML file")
	fEnv := flag.String("env", "", "path to .env file (default .env)")
	fAddress := flag.String("a", "", "listen address")
	fPort := flag.Int("p", -1, "listen port")
	fEntries := flag.Uint("entries", 0, "ring entries")
	fConns := flag.Int("c", 0, "max connections (buffer slots)")
	fBufSize := flag.Int("b", 0, "buffer size per connection")
	fBacklog := flag.Int("backlog", 0, "listen backlog, 0 uses somaxconn")
	fMode := flag.String("mode", "", "static or echo")
	fWorkers := flag.Int("w", 0, "event loops")
	fPin := flag.Bool("pin", false, "pin event loops to cpus")
	fSQPoll := flag.Duration("sqpoll", 0, "enable SQPOLL with the given idle time")
	fBackend := flag.String("backend", "", "liburing or giouring")
	fPolicy := flag.String("policy", "", "isolate or failfast")
	fLevel := flag.String("log", "", "log level")
	flag.Parse()

	var envFiles []string
	if *fEnv != "" {
		envFiles = append(envFiles, *fEnv)
	}
	conf, err := config.Load(*fConfig, envFiles...)
	if err != nil {
		fmt.Fprintln(os.Stderr, "loading config:", err)
		return 2
	}

	// Apply CLI overrides if necessary.
	if *fAddress != "" {
		conf.Address = *fAddress
	}
	if *fPort >= 0 {
		conf.Port = *fPort
	}
	if *fEntries != 0 {
		conf.Entries = uint32(*fEntries)
	}
	if *fConns != 0 {
		conf.MaxConnections = *fConns
	}
	if *fBufSize != 0 {
		conf.BufferSize = *fBufSize
	}
	if *fBacklog != 0 {
		conf.Backlog = *fBacklog
	}
	if *fMode != "" {
		conf.Mode = *fMode
	}
	if *fWorkers != 0 {
		conf.Workers = *fWorkers
	}
	if *fPin {
		conf.PinCPU = true
	}
	if *fSQPoll > 0 {
		conf.Ring.SQPoll = true
		conf.Ring.SQThreadIdle = *fSQPoll
	}
	if *fBackend != "" {
		conf.Ring.Backend = *fBackend
	}
	if *fPolicy != "" {
		conf.ErrorPolicy = *fPolicy
	}
	if *fLevel != "" {
		conf.LogLevel = *fLevel
	}

	if err = conf.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "invalid config:", err)
		return 2
	}
	logger := ringd.NewLogger(os.Stderr, conf.Level())
	opts, err := conf.Options(logger)
	if err != nil {
		logger.Err().Err(err).Log("invalid config")
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().
		Str("address", conf.Address).
		Int("port", conf.Port).
		Int("workers", conf.Workers).
		Str("mode", conf.Mode).
		Log("starting")

	start := time.Now()
	stats, err := ringd.Serve(ctx, opts...)
	logger.Info().
		Dur("uptime", time.Since(start)).
		Str("stats", stats.String()).
		Log("stopped")
	if err != nil {
		logger.Err().Err(err).Log("server failed")
	}
	return ringd.ExitCode(err)
}
