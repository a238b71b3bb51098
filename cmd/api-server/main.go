package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/angelcrypto/referral-ledger/pkg/app"
	"github.com/angelcrypto/referral-ledger/pkg/app/api"
	"github.com/angelcrypto/referral-ledger/pkg/config"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	var runner app.Runner = api.NewServer(cfg)
	if err := runner.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Server exited with error: %v\n", err)
		os.Exit(1)
	}
}
