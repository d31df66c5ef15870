// Package worlds is the participant command line: it joins a country, claims
// the salary and decrypts both through the relayer.
package worlds

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/louisbranch/fheworlds/internal/client"
	"github.com/louisbranch/fheworlds/internal/identity"
	entrypoint "github.com/louisbranch/fheworlds/internal/platform/cmd"
	platformgrpc "github.com/louisbranch/fheworlds/internal/platform/grpc"
	"github.com/louisbranch/fheworlds/internal/platform/timeouts"
)

// Task names accepted as the first argument.
const (
	TaskAddress        = "address"
	TaskCountries      = "countries"
	TaskStatus         = "status"
	TaskJoinCountry    = "join-country"
	TaskDecryptCountry = "decrypt-country"
	TaskClaimSalary    = "claim-salary"
	TaskDecryptSalary  = "decrypt-salary"
)

// Config holds worlds command configuration.
type Config struct {
	PayrollAddr string `env:"FHEWORLDS_PAYROLL_ADDR" envDefault:"localhost:8090"`
	RelayerURL  string `env:"FHEWORLDS_RELAYER_URL" envDefault:"http://localhost:8092"`
	IdentityKey string `env:"FHEWORLDS_IDENTITY_KEY"`
	Locale      string `env:"FHEWORLDS_LOCALE"`

	Task      string
	CountryID int
	Contract  string
}

// ParseConfig parses environment, flags and the task argument into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	cfg.CountryID = -1
	fs.StringVar(&cfg.PayrollAddr, "payroll-addr", cfg.PayrollAddr, "Payroll ledger gRPC address")
	fs.StringVar(&cfg.RelayerURL, "relayer-url", cfg.RelayerURL, "Relayer base URL")
	fs.StringVar(&cfg.Locale, "locale", cfg.Locale, "Locale for error messages, e.g. pt-BR")
	fs.IntVar(&cfg.CountryID, "country-id", cfg.CountryID, "Plain country id (join-country)")
	fs.StringVar(&cfg.Contract, "contract", cfg.Contract, "Override the payroll contract address")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	if fs.NArg() != 1 {
		return Config{}, fmt.Errorf("expected one task, one of: %s", strings.Join(taskNames(), ", "))
	}
	cfg.Task = fs.Arg(0)
	return cfg, nil
}

func taskNames() []string {
	return []string{TaskAddress, TaskCountries, TaskStatus, TaskJoinCountry, TaskDecryptCountry, TaskClaimSalary, TaskDecryptSalary}
}

// Run dials the ledger and relayer and executes cfg.Task, writing results to out.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	key, err := identity.ParseKey(cfg.IdentityKey)
	if err != nil {
		return fmt.Errorf("FHEWORLDS_IDENTITY_KEY: %w", err)
	}
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceWorlds, func(ctx context.Context) error {
		conn, err := platformgrpc.DialWithHealth(ctx, nil, cfg.PayrollAddr, timeouts.GRPCDial, log.Printf,
			platformgrpc.DefaultClientDialOptions()...)
		if err != nil {
			return fmt.Errorf("dial payroll gRPC %s: %w", cfg.PayrollAddr, err)
		}
		defer conn.Close()

		payroll, err := client.NewPayroll(conn, key)
		if err != nil {
			return err
		}
		relayer, err := client.NewRelayer(cfg.RelayerURL, nil)
		if err != nil {
			return err
		}
		if cfg.Locale != "" {
			relayer = relayer.WithLocale(cfg.Locale)
		}
		tasks := &Tasks{Payroll: payroll, Relayer: relayer, Key: key, Out: out}
		return tasks.Run(ctx, cfg)
	})
}

// Tasks executes participant tasks against a connected ledger and relayer.
type Tasks struct {
	Payroll *client.Payroll
	Relayer *client.Relayer
	Key     *identity.Key
	Out     io.Writer
	Now     func() time.Time
}

// Run executes cfg.Task.
func (t *Tasks) Run(ctx context.Context, cfg Config) error {
	if t.Now == nil {
		t.Now = time.Now
	}
	info, err := t.Payroll.ContractInfo(ctx)
	if err != nil {
		return fmt.Errorf("contract info: %w", err)
	}
	if cfg.Contract != "" {
		info.Contract, err = identity.ParseAddress(cfg.Contract)
		if err != nil {
			return fmt.Errorf("contract: %w", err)
		}
	}

	switch cfg.Task {
	case TaskAddress:
		return t.printf("FHEWorlds address is %s\n", info.Contract)
	case TaskCountries:
		return t.printf("Supported country ids: %v\n", info.CountryIDs)
	case TaskStatus:
		return t.status(ctx)
	case TaskJoinCountry:
		return t.joinCountry(ctx, info, cfg.CountryID)
	case TaskDecryptCountry:
		return t.decryptCountry(ctx, info)
	case TaskClaimSalary:
		return t.claimSalary(ctx, info)
	case TaskDecryptSalary:
		return t.decryptSalary(ctx, info)
	default:
		return fmt.Errorf("unknown task %q, want one of: %s", cfg.Task, strings.Join(taskNames(), ", "))
	}
}

func (t *Tasks) status(ctx context.Context) error {
	joined, err := t.Payroll.HasJoined(ctx)
	if err != nil {
		return err
	}
	salary, err := t.Payroll.EncryptedSalary(ctx)
	if err != nil {
		return err
	}
	return t.printf("Address %s\nJoined: %t\nSalary claimed: %t\n", t.Payroll.Address(), joined, salary.Claimed)
}

func (t *Tasks) joinCountry(ctx context.Context, info client.ContractInfo, countryID int) error {
	if countryID < 0 {
		return errors.New("-country-id is required")
	}
	keys, err := t.Relayer.Keys(ctx)
	if err != nil {
		return fmt.Errorf("relayer keys: %w", err)
	}
	enc, err := client.NewEncrypter(keys.FHEPublicKey)
	if err != nil {
		return err
	}
	in, err := client.NewInputBuilder(enc, t.Relayer, info.Contract, t.Key).
		AddUint32(uint32(countryID)).
		Encrypt(ctx)
	if err != nil {
		return fmt.Errorf("encrypt country: %w", err)
	}
	country, salary, err := t.Payroll.JoinCountry(ctx, info.Contract, uint32(countryID), in)
	if err != nil {
		return err
	}
	return t.printf("Encrypted country: %s\nEncrypted salary: %s\nCountry %d joined successfully\n", country, salary, countryID)
}

func (t *Tasks) decryptCountry(ctx context.Context, info client.ContractInfo) error {
	h, err := t.Payroll.EncryptedCountry(ctx)
	if err != nil {
		return err
	}
	if h.IsEmpty() {
		return t.printf("No country stored\n")
	}
	values, err := t.Relayer.DecryptOwn(ctx, t.Key, info.ChainID, info.Contract, t.Now(), h)
	if err != nil {
		return err
	}
	return t.printf("Encrypted country: %s\nDecrypted country id: %d\n", h, values[h])
}

func (t *Tasks) claimSalary(ctx context.Context, info client.ContractInfo) error {
	h, err := t.Payroll.ClaimSalary(ctx, info.Contract)
	if err != nil {
		return err
	}
	return t.printf("Encrypted salary: %s\nSalary claimed.\n", h)
}

func (t *Tasks) decryptSalary(ctx context.Context, info client.ContractInfo) error {
	salary, err := t.Payroll.EncryptedSalary(ctx)
	if err != nil {
		return err
	}
	if salary.Handle.IsEmpty() {
		return t.printf("No salary stored\n")
	}
	values, err := t.Relayer.DecryptOwn(ctx, t.Key, info.ChainID, info.Contract, t.Now(), salary.Handle)
	if err != nil {
		return err
	}
	return t.printf("Encrypted salary: %s\nDecrypted salary: %d dollars\n", salary.Handle, values[salary.Handle])
}

func (t *Tasks) printf(format string, args ...any) error {
	_, err := fmt.Fprintf(t.Out, format, args...)
	return err
}
