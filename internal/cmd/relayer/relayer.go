// Package relayer parses relayer flags and starts the attestation and
// decryption service.
package relayer

import (
	"context"
	"flag"
	"fmt"

	entrypoint "github.com/louisbranch/fheworlds/internal/platform/cmd"
	"github.com/louisbranch/fheworlds/internal/platform/config"
	server "github.com/louisbranch/fheworlds/internal/services/relayer/app"
	"github.com/louisbranch/fheworlds/internal/userdecrypt"
)

// Config holds relayer command configuration.
type Config struct {
	Port               int    `env:"FHEWORLDS_RELAYER_PORT" envDefault:"8092"`
	PayrollAddr        string `env:"FHEWORLDS_PAYROLL_ADDR" envDefault:"localhost:8090"`
	KeyDir             string `env:"FHEWORLDS_FHE_KEY_DIR" envDefault:"data/fhe"`
	ChainID            uint64 `env:"FHEWORLDS_CHAIN_ID" envDefault:"31337"`
	AttesterPrivateKey string `env:"FHEWORLDS_ATTESTER_PRIVATE_KEY"`
	MaxDurationDays    int    `env:"FHEWORLDS_DECRYPT_MAX_DAYS" envDefault:"365"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The relayer HTTP port")
	fs.StringVar(&cfg.PayrollAddr, "payroll-addr", cfg.PayrollAddr, "Payroll ledger gRPC address")
	fs.StringVar(&cfg.KeyDir, "key-dir", cfg.KeyDir, "Directory holding the FHE key set, secret key included")
	fs.Uint64Var(&cfg.ChainID, "chain-id", cfg.ChainID, "Chain identifier proofs and grants are bound to")
	fs.IntVar(&cfg.MaxDurationDays, "max-days", cfg.MaxDurationDays, "Longest decryption grant accepted, in days")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the relayer HTTP service.
func Run(ctx context.Context, cfg Config) error {
	if err := config.RequireValues(map[string]string{
		"FHEWORLDS_ATTESTER_PRIVATE_KEY": cfg.AttesterPrivateKey,
	}); err != nil {
		return err
	}
	if cfg.MaxDurationDays <= 0 || cfg.MaxDurationDays > userdecrypt.MaxDurationDays {
		return fmt.Errorf("max days must be between 1 and %d", userdecrypt.MaxDurationDays)
	}
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceRelayer, func(context.Context) error {
		return server.Run(ctx, server.Config{
			HTTPAddr:           fmt.Sprintf(":%d", cfg.Port),
			PayrollAddr:        cfg.PayrollAddr,
			KeyDir:             cfg.KeyDir,
			ChainID:            cfg.ChainID,
			AttesterPrivateKey: cfg.AttesterPrivateKey,
			MaxDurationDays:    cfg.MaxDurationDays,
		})
	})
}
