package worlds

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"flag"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/louisbranch/fheworlds/internal/client"
	"github.com/louisbranch/fheworlds/internal/fhe/fhetest"
	"github.com/louisbranch/fheworlds/internal/identity"
	server "github.com/louisbranch/fheworlds/internal/services/payroll/app"
)

const contract = "0x00000000000000000000000000000000000000000000000000000000c0ffee00"

func TestParseConfig(t *testing.T) {
	fs := flag.NewFlagSet("worlds", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-country-id", "2", "join-country"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Task != TaskJoinCountry || cfg.CountryID != 2 {
		t.Fatalf("config = %+v", cfg)
	}
	if cfg.RelayerURL != "http://localhost:8092" {
		t.Fatalf("relayer url = %q", cfg.RelayerURL)
	}

	fs = flag.NewFlagSet("worlds", flag.ContinueOnError)
	cfg, err = ParseConfig(fs, []string{"status"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.CountryID != -1 {
		t.Fatalf("country id = %d, want unset", cfg.CountryID)
	}
}

func TestParseConfigRequiresOneTask(t *testing.T) {
	for _, args := range [][]string{nil, {"status", "extra"}} {
		fs := flag.NewFlagSet("worlds", flag.ContinueOnError)
		if _, err := ParseConfig(fs, args); err == nil {
			t.Fatalf("ParseConfig(%v) expected error", args)
		}
	}
}

func TestRunRequiresIdentityKey(t *testing.T) {
	err := Run(context.Background(), Config{Task: TaskStatus}, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "FHEWORLDS_IDENTITY_KEY") {
		t.Fatalf("err = %v, want identity key error", err)
	}
}

func newTasks(t *testing.T) (*Tasks, *bytes.Buffer) {
	t.Helper()
	keyDir := t.TempDir()
	if err := fhetest.Keys(t).PublicOnly().Save(keyDir); err != nil {
		t.Fatalf("save keys: %v", err)
	}
	attester := ed25519.NewKeyFromSeed(bytes.Repeat([]byte{2}, ed25519.SeedSize)).Public().(ed25519.PublicKey)
	srv, err := server.New(server.Config{
		Addr:              "127.0.0.1:0",
		DBPath:            filepath.Join(t.TempDir(), "payroll.db"),
		KeyDir:            keyDir,
		ChainID:           31337,
		Contract:          contract,
		AttesterPublicKey: base64.StdEncoding.EncodeToString(attester),
	})
	if err != nil {
		t.Fatalf("new payroll server: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("serve: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("timeout waiting for shutdown")
		}
	})

	conn, err := grpc.NewClient(srv.Addr(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	key, err := identity.GenerateKey(bytes.NewReader(bytes.Repeat([]byte{3}, ed25519.SeedSize)))
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	payroll, err := client.NewPayroll(conn, key)
	if err != nil {
		t.Fatalf("new payroll client: %v", err)
	}
	// Nothing in these tasks reaches the relayer.
	relayer, err := client.NewRelayer("http://127.0.0.1:1", nil)
	if err != nil {
		t.Fatalf("new relayer client: %v", err)
	}
	out := &bytes.Buffer{}
	return &Tasks{Payroll: payroll, Relayer: relayer, Key: key, Out: out}, out
}

func TestTasksForUnjoinedParticipant(t *testing.T) {
	if testing.Short() {
		t.Skip("starts a payroll server")
	}
	tasks, out := newTasks(t)

	tests := []struct {
		task string
		want string
	}{
		{task: TaskAddress, want: "FHEWorlds address is " + contract + "\n"},
		{task: TaskCountries, want: "Supported country ids: [1 2 3 4]\n"},
		{task: TaskDecryptCountry, want: "No country stored\n"},
		{task: TaskDecryptSalary, want: "No salary stored\n"},
	}
	for _, tc := range tests {
		t.Run(tc.task, func(t *testing.T) {
			out.Reset()
			if err := tasks.Run(context.Background(), Config{Task: tc.task}); err != nil {
				t.Fatalf("run %s: %v", tc.task, err)
			}
			if out.String() != tc.want {
				t.Fatalf("output = %q, want %q", out.String(), tc.want)
			}
		})
	}

	out.Reset()
	if err := tasks.Run(context.Background(), Config{Task: TaskStatus}); err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out.String(), "Joined: false") {
		t.Fatalf("status output = %q", out.String())
	}

	if err := tasks.Run(context.Background(), Config{Task: TaskClaimSalary}); err == nil {
		t.Fatal("expected claim before join to fail")
	}
	if err := tasks.Run(context.Background(), Config{Task: TaskJoinCountry, CountryID: -1}); err == nil {
		t.Fatal("expected missing country id error")
	}
	if err := tasks.Run(context.Background(), Config{Task: "dance"}); err == nil {
		t.Fatal("expected unknown task error")
	}
}

func TestTasksContractOverride(t *testing.T) {
	if testing.Short() {
		t.Skip("starts a payroll server")
	}
	tasks, out := newTasks(t)
	other := "0x00000000000000000000000000000000000000000000000000000000000000FF"
	if err := tasks.Run(context.Background(), Config{Task: TaskAddress, Contract: other}); err != nil {
		t.Fatalf("address: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "FHEWorlds address is "+strings.ToLower(other) {
		t.Fatalf("output = %q", got)
	}
	if err := tasks.Run(context.Background(), Config{Task: TaskAddress, Contract: "0x1"}); err == nil {
		t.Fatal("expected invalid contract error")
	}
}
