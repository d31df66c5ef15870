// Package keygen creates the key material an FHE Worlds deployment needs.
package keygen

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/louisbranch/fheworlds/internal/fhe"
	"github.com/louisbranch/fheworlds/internal/identity"
)

// Config holds configuration for key generation.
type Config struct {
	KeyDir string
	// SkipFHE only prints signing keys.
	SkipFHE bool
}

// ParseConfig parses flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{KeyDir: "data/fhe"}
	fs.StringVar(&cfg.KeyDir, "key-dir", cfg.KeyDir, "directory the FHE key set is written to")
	fs.BoolVar(&cfg.SkipFHE, "skip-fhe", cfg.SkipFHE, "only generate attester, contract and identity keys")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run generates the FHE key set into cfg.KeyDir and writes env assignments
// for the signing keys to out.
func Run(cfg Config, out io.Writer, reader io.Reader) error {
	if out == nil {
		return errors.New("output is required")
	}
	if reader == nil {
		reader = rand.Reader
	}
	if !cfg.SkipFHE {
		if strings.TrimSpace(cfg.KeyDir) == "" {
			return errors.New("key dir is required")
		}
		keys, err := fhe.GenerateKeySet()
		if err != nil {
			return fmt.Errorf("generate fhe keys: %w", err)
		}
		if err := keys.Save(cfg.KeyDir); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(out, "FHEWORLDS_FHE_KEY_DIR=%s\n", cfg.KeyDir); err != nil {
			return err
		}
	}

	attester, err := identity.GenerateKey(reader)
	if err != nil {
		return fmt.Errorf("generate attester key: %w", err)
	}
	contract, err := identity.GenerateKey(reader)
	if err != nil {
		return fmt.Errorf("generate contract key: %w", err)
	}
	participant, err := identity.GenerateKey(reader)
	if err != nil {
		return fmt.Errorf("generate identity key: %w", err)
	}
	attesterPublic := attester.PrivateKey().Public().(ed25519.PublicKey)
	_, err = fmt.Fprintf(out,
		"FHEWORLDS_ATTESTER_PRIVATE_KEY=%s\nFHEWORLDS_ATTESTER_PUBLIC_KEY=%s\nFHEWORLDS_CONTRACT_ADDRESS=%s\nFHEWORLDS_IDENTITY_KEY=%s\n",
		attester.Encode(),
		base64.RawStdEncoding.EncodeToString(attesterPublic),
		contract.Address(),
		participant.Encode(),
	)
	return err
}
