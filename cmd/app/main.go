package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"ProScalper/internal/di"
	"ProScalper/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	checkOnly := flag.Bool("check", false, "validate the config and exit")
	flag.Parse()

	if err := run(*configPath, *checkOnly); err != nil {
		log.Printf("proscalper: %v", err)
		os.Exit(1)
	}
}

func run(configPath string, checkOnly bool) error {
	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log.Printf("env=%s source=%s kafka=%t scanner=%t ratelimit=%t/%s",
		cfg.Environment, cfg.Source.Type, cfg.Kafka.Enabled, cfg.Scanner.Enabled,
		cfg.RateLimit.Enabled, cfg.RateLimit.Strategy)
	if checkOnly {
		return nil
	}

	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer cleanup()

	// Blocks until SIGINT or SIGTERM.
	return app.Run()
}
