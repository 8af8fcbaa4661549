package main

import (
	"context"
	"flag"
	"log"
	"os"
	_ "time/tzdata" // zone database for hosts without one

	"github.com/vadim/neo-planner/internal/app"
	"github.com/vadim/neo-planner/internal/config"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file; environment is used when empty")
	flag.Parse()

	// Load configuration
	var cfg config.Config
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadFromFile(*configPath); err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	} else {
		cfg = config.MustLoad()
	}

	// Create root context
	ctx := context.Background()

	// Initialize application
	application, err := app.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	// Run application (blocks until shutdown)
	if err := application.Run(ctx); err != nil {
		log.Printf("application error: %v", err)
		os.Exit(1)
	}
}
