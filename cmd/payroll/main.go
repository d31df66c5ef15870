// Package main starts the payroll ledger gRPC service.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	payrollcmd "github.com/louisbranch/fheworlds/internal/cmd/payroll"
	entrypoint "github.com/louisbranch/fheworlds/internal/platform/cmd"
)

func main() {
	cfg, err := payrollcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix(entrypoint.LogPrefix(entrypoint.ServicePayroll))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := payrollcmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
