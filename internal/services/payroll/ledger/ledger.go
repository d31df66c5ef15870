// Package ledger executes payroll commands against stored participant state.
// Transitions are serialized; reads go straight to storage.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/louisbranch/fheworlds/internal/catalog"
	"github.com/louisbranch/fheworlds/internal/fhe/handle"
	apperrors "github.com/louisbranch/fheworlds/internal/platform/errors"
	"github.com/louisbranch/fheworlds/internal/platform/requestctx"
	"github.com/louisbranch/fheworlds/internal/services/payroll/domain"
	"github.com/louisbranch/fheworlds/internal/services/payroll/inputverifier"
	"github.com/louisbranch/fheworlds/internal/services/payroll/registry"
	"github.com/louisbranch/fheworlds/internal/services/payroll/storage"
)

// SalaryType is the encrypted type of a salary.
const SalaryType = handle.TypeUint32

// salaryOp names the computation that derives salary handles.
const salaryOp = "payroll.salary"

var tracer = otel.Tracer("github.com/louisbranch/fheworlds/internal/services/payroll/ledger")

// Validator checks encrypted country submissions.
type Validator interface {
	Validate(ctx context.Context, identity string, countryID uint32, h handle.Handle, proof []byte) (inputverifier.ValidatedInput, error)
}

// Evaluator runs the salary selection circuit over an encrypted country.
type Evaluator interface {
	EvalPolynomial(ciphertext []byte, coeffs []uint64) ([]byte, error)
}

// Config wires a Ledger.
type Config struct {
	Store            storage.Store
	Catalog          *catalog.Catalog
	Validator        Validator
	Evaluator        Evaluator
	PlaintextModulus uint64
	ChainID          uint64
	Contract         string
	Now              func() time.Time
}

// ContractInfo describes the deployed payroll instance.
type ContractInfo struct {
	ChainID    uint64
	Contract   string
	CountryIDs []uint32
}

// Ledger is the membership and payroll state machine.
type Ledger struct {
	mu        sync.Mutex
	store     storage.Store
	registry  *registry.Registry
	catalog   *catalog.Catalog
	validator Validator
	evaluator Evaluator
	salaries  []uint64
	chainID   uint64
	contract  string
	now       func() time.Time
}

// New builds a Ledger and precomputes the salary selection polynomial.
func New(cfg Config) (*Ledger, error) {
	if cfg.Store == nil {
		return nil, errors.New("store is required")
	}
	if cfg.Catalog == nil {
		return nil, errors.New("catalog is required")
	}
	if cfg.Validator == nil {
		return nil, errors.New("validator is required")
	}
	if cfg.Evaluator == nil {
		return nil, errors.New("evaluator is required")
	}
	if strings.TrimSpace(cfg.Contract) == "" {
		return nil, errors.New("contract address is required")
	}
	coeffs, err := cfg.Catalog.SalaryPolynomial(cfg.PlaintextModulus)
	if err != nil {
		return nil, fmt.Errorf("salary polynomial: %w", err)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Ledger{
		store:     cfg.Store,
		registry:  registry.New(cfg.Store),
		catalog:   cfg.Catalog,
		validator: cfg.Validator,
		evaluator: cfg.Evaluator,
		salaries:  coeffs,
		chainID:   cfg.ChainID,
		contract:  strings.ToLower(cfg.Contract),
		now:       now,
	}, nil
}

// Registry exposes the ciphertext registry backing this ledger.
func (l *Ledger) Registry() *registry.Registry {
	return l.registry
}

// ContractInfo returns the instance coordinates and the supported countries.
func (l *Ledger) ContractInfo() ContractInfo {
	return ContractInfo{ChainID: l.chainID, Contract: l.contract, CountryIDs: l.catalog.IDs()}
}

// ListSupportedCountryIDs returns catalog ids in catalog order.
func (l *Ledger) ListSupportedCountryIDs() []uint32 {
	return l.catalog.IDs()
}

// HasJoined reports whether identity has a participant record.
func (l *Ledger) HasJoined(ctx context.Context, identity string) (bool, error) {
	state, err := l.load(ctx, identity)
	if err != nil {
		return false, err
	}
	return state.Joined, nil
}

// GetEncryptedCountry returns the stored country handle, or handle.Empty for
// an identity that has not joined.
func (l *Ledger) GetEncryptedCountry(ctx context.Context, identity string) (handle.Handle, error) {
	state, err := l.load(ctx, identity)
	if err != nil {
		return handle.Empty, err
	}
	return state.CountryHandle, nil
}

// GetEncryptedSalary returns the salary handle and claim flag, or
// (handle.Empty, false) for an identity that has not joined.
func (l *Ledger) GetEncryptedSalary(ctx context.Context, identity string) (handle.Handle, bool, error) {
	state, err := l.load(ctx, identity)
	if err != nil {
		return handle.Empty, false, err
	}
	return state.SalaryHandle, state.Claimed, nil
}

// JoinCountry validates a submission from identity and joins it. A second
// join is reported as ALREADY_JOINED whatever country it names.
func (l *Ledger) JoinCountry(ctx context.Context, identity string, countryID uint32, h handle.Handle, proof []byte) (domain.State, error) {
	ctx, span := tracer.Start(ctx, "ledger.JoinCountry", trace.WithSpanKind(trace.SpanKindInternal))
	state, err := l.joinCountry(ctx, identity, countryID, h, proof)
	endSpan(span, err)
	return state, err
}

func (l *Ledger) joinCountry(ctx context.Context, identity string, countryID uint32, h handle.Handle, proof []byte) (domain.State, error) {
	identity, err := normalizeIdentity(identity)
	if err != nil {
		return domain.State{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	state, err := l.load(ctx, identity)
	if err != nil {
		return domain.State{}, err
	}
	if state.Joined {
		return domain.State{}, apperrors.New(apperrors.CodeAlreadyJoined, "participant already joined")
	}
	input, err := l.validator.Validate(ctx, identity, countryID, h, proof)
	if err != nil {
		return domain.State{}, err
	}
	return l.joinLocked(ctx, state, input)
}

// Join records an already validated input for identity.
func (l *Ledger) Join(ctx context.Context, identity string, input inputverifier.ValidatedInput) (domain.State, error) {
	identity, err := normalizeIdentity(identity)
	if err != nil {
		return domain.State{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	state, err := l.load(ctx, identity)
	if err != nil {
		return domain.State{}, err
	}
	return l.joinLocked(ctx, state, input)
}

func (l *Ledger) joinLocked(ctx context.Context, state domain.State, input inputverifier.ValidatedInput) (domain.State, error) {
	if state.Joined {
		return domain.State{}, apperrors.New(apperrors.CodeAlreadyJoined, "participant already joined")
	}
	replayed, err := l.registry.IsRegisteredInput(ctx, input.Ciphertext)
	if err != nil {
		return domain.State{}, fmt.Errorf("check input ciphertext: %w", err)
	}
	if replayed {
		return domain.State{}, errReplayedInput(nil)
	}
	salaryCT, err := l.evaluator.EvalPolynomial(input.Ciphertext, l.salaries)
	if err != nil {
		return domain.State{}, fmt.Errorf("select salary: %w", err)
	}
	salaryHandle := handle.ForComputation(salaryOp, SalaryType, l.contract, input.Handle)

	payload, err := json.Marshal(domain.JoinPayload{CountryHandle: input.Handle, SalaryHandle: salaryHandle})
	if err != nil {
		return domain.State{}, fmt.Errorf("encode join payload: %w", err)
	}
	cmd := domain.Command{
		Type:        domain.CommandTypeJoin,
		Identity:    state.Identity,
		RequestID:   requestID(ctx),
		PayloadJSON: payload,
	}
	decision := domain.Decide(state, cmd, l.now)
	if err := decision.Err(); err != nil {
		return domain.State{}, err
	}
	next := foldAll(state, decision.Events)

	var batch registry.Batch
	if err := batch.RegisterInput(input.Handle, input.Ciphertext); err != nil {
		return domain.State{}, err
	}
	if err := batch.Register(salaryHandle, salaryCT); err != nil {
		return domain.State{}, err
	}
	batch.Allow(input.Handle, state.Identity, l.contract)
	batch.Allow(salaryHandle, state.Identity, l.contract)

	tr := storage.Transition{Create: true, State: next, Events: decision.Events}
	batch.ApplyTo(&tr)
	if err := l.store.Apply(ctx, tr); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return domain.State{}, apperrors.Wrap(apperrors.CodeAlreadyJoined, "participant already joined", err)
		}
		if errors.Is(err, storage.ErrDuplicateInput) {
			return domain.State{}, errReplayedInput(err)
		}
		return domain.State{}, fmt.Errorf("apply join: %w", err)
	}
	return next, nil
}

// ClaimSalary marks the salary of identity as claimed and returns its handle.
// The handle is the one assigned at join.
func (l *Ledger) ClaimSalary(ctx context.Context, identity string) (handle.Handle, error) {
	ctx, span := tracer.Start(ctx, "ledger.ClaimSalary", trace.WithSpanKind(trace.SpanKindInternal))
	h, err := l.claimSalary(ctx, identity)
	endSpan(span, err)
	return h, err
}

func (l *Ledger) claimSalary(ctx context.Context, identity string) (handle.Handle, error) {
	identity, err := normalizeIdentity(identity)
	if err != nil {
		return handle.Empty, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	state, err := l.load(ctx, identity)
	if err != nil {
		return handle.Empty, err
	}
	cmd := domain.Command{Type: domain.CommandTypeClaim, Identity: identity, RequestID: requestID(ctx)}
	decision := domain.Decide(state, cmd, l.now)
	if err := decision.Err(); err != nil {
		return handle.Empty, err
	}
	next := foldAll(state, decision.Events)
	if err := l.store.Apply(ctx, storage.Transition{State: next, Events: decision.Events}); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return handle.Empty, apperrors.Wrap(apperrors.CodeSalaryAlreadyClaimed, "salary already claimed", err)
		}
		return handle.Empty, fmt.Errorf("apply claim: %w", err)
	}
	return next.SalaryHandle, nil
}

func (l *Ledger) load(ctx context.Context, identity string) (domain.State, error) {
	identity, err := normalizeIdentity(identity)
	if err != nil {
		return domain.State{}, err
	}
	state, err := l.store.GetParticipant(ctx, identity)
	if errors.Is(err, storage.ErrNotFound) {
		return domain.State{Identity: identity}, nil
	}
	if err != nil {
		return domain.State{}, fmt.Errorf("load participant: %w", err)
	}
	return state, nil
}

// errReplayedInput rejects a ciphertext that already backs another handle.
func errReplayedInput(cause error) error {
	return apperrors.Wrap(apperrors.CodeProofInvalid, "encrypted country is already registered", cause)
}

// endSpan records err on span without exposing any plaintext.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, string(apperrors.CodeOf(err)))
	}
	span.End()
}

func requestID(ctx context.Context) string {
	if id := requestctx.RequestIDFromContext(ctx); id != "" {
		return id
	}
	return uuid.NewString()
}

func foldAll(state domain.State, events []domain.Event) domain.State {
	for _, evt := range events {
		state = domain.Fold(state, evt)
	}
	return state
}

func normalizeIdentity(identity string) (string, error) {
	identity = strings.ToLower(strings.TrimSpace(identity))
	if identity == "" {
		return "", apperrors.New(apperrors.CodeUnauthenticated, "caller identity is required")
	}
	return identity, nil
}
