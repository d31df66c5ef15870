// Package payroll parses payroll ledger flags and starts the service.
package payroll

import (
	"context"
	"flag"
	"fmt"

	entrypoint "github.com/louisbranch/fheworlds/internal/platform/cmd"
	"github.com/louisbranch/fheworlds/internal/platform/config"
	server "github.com/louisbranch/fheworlds/internal/services/payroll/app"
)

// Config holds payroll command configuration.
type Config struct {
	Port              int    `env:"FHEWORLDS_PAYROLL_PORT" envDefault:"8090"`
	Addr              string `env:"FHEWORLDS_PAYROLL_LISTEN_ADDR"`
	DBPath            string `env:"FHEWORLDS_PAYROLL_DB_PATH" envDefault:"data/payroll.db"`
	KeyDir            string `env:"FHEWORLDS_FHE_KEY_DIR" envDefault:"data/fhe"`
	CatalogPath       string `env:"FHEWORLDS_CATALOG_PATH"`
	ChainID           uint64 `env:"FHEWORLDS_CHAIN_ID" envDefault:"31337"`
	Contract          string `env:"FHEWORLDS_CONTRACT_ADDRESS"`
	AttesterPublicKey string `env:"FHEWORLDS_ATTESTER_PUBLIC_KEY"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The payroll gRPC server port")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "The payroll listen address (overrides -port)")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the payroll sqlite database")
	fs.StringVar(&cfg.KeyDir, "key-dir", cfg.KeyDir, "Directory holding the FHE public and relinearization keys")
	fs.StringVar(&cfg.CatalogPath, "catalog", cfg.CatalogPath, "Optional YAML country catalog (default: built-in catalog)")
	fs.Uint64Var(&cfg.ChainID, "chain-id", cfg.ChainID, "Chain identifier handles are bound to")
	fs.StringVar(&cfg.Contract, "contract", cfg.Contract, "Payroll contract address")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the payroll ledger gRPC service.
func Run(ctx context.Context, cfg Config) error {
	if err := config.RequireValues(map[string]string{
		"FHEWORLDS_CONTRACT_ADDRESS":    cfg.Contract,
		"FHEWORLDS_ATTESTER_PUBLIC_KEY": cfg.AttesterPublicKey,
	}); err != nil {
		return err
	}
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServicePayroll, func(context.Context) error {
		return server.Run(ctx, cfg.serverConfig())
	})
}

func (cfg Config) serverConfig() server.Config {
	addr := cfg.Addr
	if addr == "" {
		addr = fmt.Sprintf(":%d", cfg.Port)
	}
	return server.Config{
		Addr:              addr,
		DBPath:            cfg.DBPath,
		KeyDir:            cfg.KeyDir,
		CatalogPath:       cfg.CatalogPath,
		ChainID:           cfg.ChainID,
		Contract:          cfg.Contract,
		AttesterPublicKey: cfg.AttesterPublicKey,
	}
}
