package main

import (
	"flag"
	"os"

	"github.com/louisbranch/fheworlds/internal/platform/config"
	"github.com/louisbranch/fheworlds/internal/tools/keygen"
)

func main() {
	cfg, err := keygen.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	if err := keygen.Run(cfg, os.Stdout, nil); err != nil {
		config.Exitf("generate keys: %v", err)
	}
}
