// Command eventsphere runs the event ticketing server: the HTTP API, the
// gRPC Tickets service and, when enabled, the snapshot daemon.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/eventsphere/eventsphere/internal/app"
	"github.com/eventsphere/eventsphere/internal/config"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var (
		configFile  string
		envFile     string
		dataDir     string
		httpAddr    string
		grpcAddr    string
		storeType   string
		logLevel    string
		showVersion bool
	)

	flagSet := pflag.NewFlagSet("eventsphere", pflag.ContinueOnError)
	flagSet.StringVarP(&configFile, "config", "c", "", "path to configuration file (YAML or JSON)")
	flagSet.StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading EVENTSPHERE_* variables")
	flagSet.StringVar(&dataDir, "data-dir", "", "base directory for all data files")
	flagSet.StringVar(&httpAddr, "http-addr", "", "HTTP listen address")
	flagSet.StringVar(&grpcAddr, "grpc-addr", "", "gRPC listen address")
	flagSet.StringVar(&storeType, "store", "", "store backend: sqlite, badger or memory")
	flagSet.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")
	flagSet.BoolVar(&showVersion, "version", false, "show version information")
	flagSet.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: eventsphere [flags]\n\nFlags:\n%s", flagSet.FlagUsages())
		fmt.Fprintf(os.Stderr, "\nEnvironment variables use the %s prefix, e.g. %sSTORE_TYPE=badger.\n",
			config.EnvPrefix, config.EnvPrefix)
	}

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if showVersion {
		fmt.Printf("eventsphere version %s (commit: %s)\n", version, commit)
		return nil
	}

	if err := loadEnvFile(envFile, flagSet.Changed("env-file")); err != nil {
		return err
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Flags take precedence over file and environment.
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if httpAddr != "" {
		cfg.HTTP.Addr = httpAddr
	}
	if grpcAddr != "" {
		cfg.GRPC.Addr = grpcAddr
	}
	if storeType != "" {
		cfg.Store.Type = storeType
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	logger, err := app.NewLogger(cfg.Log, os.Stderr)
	if err != nil {
		return err
	}

	application, err := app.New(cfg, logger)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := application.Start(ctx); err != nil {
		return err
	}
	logger.Info("eventsphere running", "version", version, "data_dir", cfg.DataDir)

	return application.Wait(ctx)
}

// loadEnvFile loads a dotenv file. A missing default file is ignored; a
// missing file named explicitly is an error.
func loadEnvFile(path string, explicit bool) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && !explicit {
			return nil
		}
		return fmt.Errorf("env file %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}
