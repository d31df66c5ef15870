// Package server wires the relayer runtime: input attestation, the user
// decryption KMS and their HTTP surface.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	gogrpc "google.golang.org/grpc"

	payrollv1 "github.com/louisbranch/fheworlds/api/payroll/v1"
	"github.com/louisbranch/fheworlds/internal/fhe"
	"github.com/louisbranch/fheworlds/internal/identity"
	platformgrpc "github.com/louisbranch/fheworlds/internal/platform/grpc"
	"github.com/louisbranch/fheworlds/internal/platform/timeouts"
	relayerhttp "github.com/louisbranch/fheworlds/internal/services/relayer/api/http"
	"github.com/louisbranch/fheworlds/internal/services/relayer/attest"
	"github.com/louisbranch/fheworlds/internal/services/relayer/kms"
)

// Config defines the inputs for the relayer process.
type Config struct {
	HTTPAddr    string
	PayrollAddr string
	KeyDir      string
	ChainID     uint64
	// AttesterPrivateKey is the base64 Ed25519 key input proofs are signed with.
	AttesterPrivateKey string
	MaxDurationDays    int
	GRPCDialTimeout    time.Duration
	ReadHeaderTimeout  time.Duration
	ShutdownTimeout    time.Duration
}

// Server hosts the relayer HTTP process.
type Server struct {
	listener        net.Listener
	httpServer      *http.Server
	payrollConn     *gogrpc.ClientConn
	shutdownTimeout time.Duration
}

// NewServer builds a configured relayer server. It dials the payroll ledger
// and waits for it to report healthy.
func NewServer(ctx context.Context, cfg Config) (*Server, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if strings.TrimSpace(cfg.HTTPAddr) == "" {
		return nil, errors.New("http address is required")
	}
	if strings.TrimSpace(cfg.PayrollAddr) == "" {
		return nil, errors.New("payroll address is required")
	}
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = timeouts.ReadHeader
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = timeouts.Shutdown
	}
	if cfg.GRPCDialTimeout <= 0 {
		cfg.GRPCDialTimeout = timeouts.GRPCDial
	}

	attesterKey, err := identity.ParseKey(cfg.AttesterPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("attester key: %w", err)
	}
	keys, err := fhe.LoadKeySet(cfg.KeyDir, true)
	if err != nil {
		return nil, fmt.Errorf("load fhe keys: %w", err)
	}
	decryptor, err := fhe.NewDecryptor(keys)
	if err != nil {
		return nil, err
	}
	publicKey, err := keys.MarshalPublicKey()
	if err != nil {
		return nil, err
	}
	attester, err := attest.New(attest.Config{
		Key:       attesterKey.PrivateKey(),
		ChainID:   cfg.ChainID,
		Decrypter: decryptor,
	})
	if err != nil {
		return nil, err
	}

	conn, err := platformgrpc.DialWithHealth(ctx, nil, cfg.PayrollAddr, cfg.GRPCDialTimeout, log.Printf,
		platformgrpc.DefaultClientDialOptions()...)
	if err != nil {
		return nil, fmt.Errorf("dial payroll gRPC %s: %w", cfg.PayrollAddr, err)
	}
	contract, err := ledgerContract(ctx, conn, cfg.ChainID)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	source, err := kms.NewLedgerSource(payrollv1.NewCiphertextServiceClient(conn), attesterKey, contract)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	keyService, err := kms.New(kms.Config{
		Source:          source,
		Decrypter:       decryptor,
		ChainID:         cfg.ChainID,
		MaxDurationDays: cfg.MaxDurationDays,
	})
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	handler, err := relayerhttp.NewHandler(attester, keyService, relayerhttp.Keys{
		ChainID:           cfg.ChainID,
		AttesterPublicKey: attester.PublicKey(),
		FHEPublicKey:      publicKey,
		DecryptionDomain:  keyService.Domain().String(),
	})
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	listener, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("listen on %s: %w", cfg.HTTPAddr, err)
	}
	return &Server{
		listener: listener,
		httpServer: &http.Server{
			Handler:           handler.Router(),
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		},
		payrollConn:     conn,
		shutdownTimeout: cfg.ShutdownTimeout,
	}, nil
}

// ledgerContract asks the payroll ledger for its contract address, the
// audience of the relayer's CiphertextService call tokens.
func ledgerContract(ctx context.Context, conn gogrpc.ClientConnInterface, chainID uint64) (identity.Address, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeouts.GRPCRequest)
	defer cancel()
	info, err := payrollv1.NewPayrollServiceClient(conn).GetContractInfo(callCtx, &payrollv1.GetContractInfoRequest{})
	if err != nil {
		return "", fmt.Errorf("payroll contract info: %w", err)
	}
	if info.ChainId != chainID {
		return "", fmt.Errorf("payroll ledger runs chain %d, relayer is configured for %d", info.ChainId, chainID)
	}
	contract, err := identity.ParseAddress(info.ContractAddress)
	if err != nil {
		return "", fmt.Errorf("payroll contract address: %w", err)
	}
	return contract, nil
}

// Addr returns the listener address for the server.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run creates and serves a relayer until the context ends.
func Run(ctx context.Context, cfg Config) error {
	server, err := NewServer(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init relayer: %w", err)
	}
	defer server.Close()

	if err := server.Serve(ctx); err != nil {
		return fmt.Errorf("serve relayer: %w", err)
	}
	return nil
}

// Serve runs the HTTP server until the context ends.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("relayer server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	serveErr := make(chan error, 1)
	log.Printf("relayer listening on %s", s.Addr())
	go func() {
		serveErr <- s.httpServer.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

// Close releases the payroll connection and the listener.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
	if s.payrollConn != nil {
		if err := s.payrollConn.Close(); err != nil {
			log.Printf("close payroll gRPC connection: %v", err)
		}
	}
}
