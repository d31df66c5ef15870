// Package main runs participant tasks against a payroll ledger and relayer.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	worldscmd "github.com/louisbranch/fheworlds/internal/cmd/worlds"
	entrypoint "github.com/louisbranch/fheworlds/internal/platform/cmd"
	"github.com/louisbranch/fheworlds/internal/platform/config"
)

func main() {
	cfg, err := worldscmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	log.SetPrefix(entrypoint.LogPrefix(entrypoint.ServiceWorlds))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := worldscmd.Run(ctx, cfg, os.Stdout); err != nil {
		config.Exitf("%s: %v", cfg.Task, err)
	}
}
