package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/chainsafe/remittance-ledger/pkg/app"
	"github.com/chainsafe/remittance-ledger/pkg/app/remittance"
	"github.com/chainsafe/remittance-ledger/pkg/config"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	owner := flag.String("owner", os.Getenv("REMITTANCE_OWNER"), "Principal allowed to call owner-only operations")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if *owner == "" {
		fmt.Fprintln(os.Stderr, "owner principal must be set via -owner or REMITTANCE_OWNER")
		os.Exit(1)
	}

	var srv app.Runner = remittance.NewServer(cfg, *owner)
	if err := srv.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "remittance ledger exited with error: %v\n", err)
		os.Exit(1)
	}
}
