// Package storage defines persistence contracts for the payroll ledger.
package storage

import (
	"context"
	"errors"

	"github.com/louisbranch/fheworlds/internal/fhe/handle"
	"github.com/louisbranch/fheworlds/internal/services/payroll/domain"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates a participant record already exists.
	ErrAlreadyExists = errors.New("record already exists")
	// ErrConflict indicates the stored state moved under a transition.
	ErrConflict = errors.New("record changed concurrently")
	// ErrDuplicateInput indicates an input ciphertext is already registered
	// under some handle.
	ErrDuplicateInput = errors.New("input ciphertext already registered")
)

// Ciphertext is one registered ciphertext and the handle that names it.
// Input marks attested client ciphertexts; each may be registered once.
type Ciphertext struct {
	Handle handle.Handle
	Data   []byte
	Input  bool
}

// Grant allows account to decrypt handle.
type Grant struct {
	Handle  handle.Handle
	Account string
}

// Transition is everything one accepted command writes. It is applied in a
// single transaction.
type Transition struct {
	// Create inserts State as a new participant; otherwise the existing
	// unclaimed record is updated.
	Create      bool
	State       domain.State
	Events      []domain.Event
	Ciphertexts []Ciphertext
	Grants      []Grant
}

// ParticipantStore reads participant records.
type ParticipantStore interface {
	GetParticipant(ctx context.Context, identity string) (domain.State, error)
	ListEvents(ctx context.Context, identity string) ([]domain.Event, error)
}

// CiphertextStore reads registered ciphertexts and their access lists.
type CiphertextStore interface {
	GetCiphertext(ctx context.Context, h handle.Handle) (Ciphertext, error)
	IsAllowed(ctx context.Context, h handle.Handle, account string) (bool, error)
	HasInputCiphertext(ctx context.Context, data []byte) (bool, error)
}

// Store is the full ledger persistence contract.
type Store interface {
	ParticipantStore
	CiphertextStore
	Apply(ctx context.Context, t Transition) error
	Close() error
}
