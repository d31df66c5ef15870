// Package server wires the payroll ledger runtime and gRPC lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"

	payrollv1 "github.com/louisbranch/fheworlds/api/payroll/v1"
	"github.com/louisbranch/fheworlds/internal/catalog"
	"github.com/louisbranch/fheworlds/internal/fhe"
	"github.com/louisbranch/fheworlds/internal/identity"
	platformgrpc "github.com/louisbranch/fheworlds/internal/platform/grpc"
	grpcmeta "github.com/louisbranch/fheworlds/internal/platform/grpc/metadata"
	payrollservice "github.com/louisbranch/fheworlds/internal/services/payroll/api/grpc/payroll"
	"github.com/louisbranch/fheworlds/internal/services/payroll/inputverifier"
	"github.com/louisbranch/fheworlds/internal/services/payroll/ledger"
	payrollsqlite "github.com/louisbranch/fheworlds/internal/services/payroll/storage/sqlite"
)

// Config holds everything the payroll server needs to start.
type Config struct {
	Addr              string
	DBPath            string
	KeyDir            string
	CatalogPath       string
	ChainID           uint64
	Contract          string
	AttesterPublicKey string
}

// Server hosts the payroll gRPC API and storage lifecycle.
type Server struct {
	listener   net.Listener
	grpcServer *grpc.Server
	health     *health.Server
	store      *payrollsqlite.Store
}

// New creates a configured payroll server.
func New(cfg Config) (*Server, error) {
	contract, err := identity.ParseAddress(cfg.Contract)
	if err != nil {
		return nil, fmt.Errorf("contract address: %w", err)
	}
	attester, err := identity.ParsePublicKey(cfg.AttesterPublicKey)
	if err != nil {
		return nil, fmt.Errorf("attester public key: %w", err)
	}
	countries, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}
	keys, err := fhe.LoadKeySet(cfg.KeyDir, false)
	if err != nil {
		return nil, fmt.Errorf("load fhe keys: %w", err)
	}
	evaluator, err := fhe.NewEvaluator(keys)
	if err != nil {
		return nil, err
	}

	listener, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", cfg.Addr, err)
	}
	store, err := openPayrollStore(cfg.DBPath)
	if err != nil {
		_ = listener.Close()
		return nil, err
	}

	verifier, err := inputverifier.New(inputverifier.Config{
		Catalog:  countries,
		Attester: attester,
		ChainID:  cfg.ChainID,
		Contract: contract.String(),
	})
	if err != nil {
		_ = listener.Close()
		_ = store.Close()
		return nil, err
	}
	l, err := ledger.New(ledger.Config{
		Store:            store,
		Catalog:          countries,
		Validator:        verifier,
		Evaluator:        evaluator,
		PlaintextModulus: keys.Params.T(),
		ChainID:          cfg.ChainID,
		Contract:         contract.String(),
	})
	if err != nil {
		_ = listener.Close()
		_ = store.Close()
		return nil, err
	}

	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			grpcmeta.UnaryServerInterceptor(nil),
			payrollservice.CallerInterceptor(contract, identity.AddressFromPublicKey(attester), nil),
		),
	)
	payrollv1.RegisterPayrollServiceServer(grpcServer, payrollservice.NewService(l))
	payrollv1.RegisterCiphertextServiceServer(grpcServer, payrollservice.NewCiphertextService(l.Registry()))
	healthServer := platformgrpc.RegisterHealth(grpcServer, payrollv1.PayrollServiceName, payrollv1.CiphertextServiceName)

	log.Printf("payroll contract %s on chain %d with %d countries", contract, cfg.ChainID, countries.Len())
	return &Server{
		listener:   listener,
		grpcServer: grpcServer,
		health:     healthServer,
		store:      store,
	}, nil
}

// Addr returns the listener address for the server.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run creates and serves a payroll server until context cancellation.
func Run(ctx context.Context, cfg Config) error {
	server, err := New(cfg)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve starts the gRPC server until context cancellation.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.Close()

	log.Printf("payroll server listening at %v", s.listener.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.grpcServer.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		if s.health != nil {
			s.health.Shutdown()
		}
		s.grpcServer.GracefulStop()
		err := <-serveErr
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	case err := <-serveErr:
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	}
}

// Close releases payroll server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.health != nil {
		s.health.Shutdown()
	}
	if s.grpcServer != nil {
		s.grpcServer.Stop()
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("close payroll store: %v", err)
		}
	}
}

func openPayrollStore(path string) (*payrollsqlite.Store, error) {
	if strings.TrimSpace(path) == "" {
		path = filepath.Join("data", "payroll.db")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := payrollsqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open payroll sqlite store: %w", err)
	}
	return store, nil
}
