// Package registry maps handles to the ciphertexts they name and tracks who
// may decrypt them.
package registry

import (
	"context"
	"errors"
	"strings"

	"github.com/louisbranch/fheworlds/internal/fhe/handle"
	"github.com/louisbranch/fheworlds/internal/services/payroll/storage"
)

// Registry reads registered ciphertexts and their access lists.
type Registry struct {
	store storage.CiphertextStore
}

// New wraps a ciphertext store.
func New(store storage.CiphertextStore) *Registry {
	return &Registry{store: store}
}

// Lookup returns the ciphertext behind h. The empty handle and unregistered
// handles return storage.ErrNotFound.
func (r *Registry) Lookup(ctx context.Context, h handle.Handle) ([]byte, error) {
	if h.IsEmpty() {
		return nil, storage.ErrNotFound
	}
	ct, err := r.store.GetCiphertext(ctx, h)
	if err != nil {
		return nil, err
	}
	return ct.Data, nil
}

// IsAllowed reports whether account may decrypt h.
func (r *Registry) IsAllowed(ctx context.Context, h handle.Handle, account string) (bool, error) {
	if h.IsEmpty() || strings.TrimSpace(account) == "" {
		return false, nil
	}
	return r.store.IsAllowed(ctx, h, account)
}

// IsRegisteredInput reports whether data was already accepted as an input
// under any handle.
func (r *Registry) IsRegisteredInput(ctx context.Context, data []byte) (bool, error) {
	return r.store.HasInputCiphertext(ctx, data)
}

// Batch collects registrations and grants that must land with one transition.
type Batch struct {
	ciphertexts []storage.Ciphertext
	grants      []storage.Grant
	seen        map[handle.Handle]bool
}

// Register stages computed data under h. Registering the same handle twice
// keeps the first ciphertext.
func (b *Batch) Register(h handle.Handle, data []byte) error {
	return b.register(storage.Ciphertext{Handle: h, Data: data})
}

// RegisterInput stages an attested client ciphertext under h. The store
// refuses an input it has seen before.
func (b *Batch) RegisterInput(h handle.Handle, data []byte) error {
	return b.register(storage.Ciphertext{Handle: h, Data: data, Input: true})
}

func (b *Batch) register(ct storage.Ciphertext) error {
	h, data := ct.Handle, ct.Data
	if h.IsEmpty() {
		return errors.New("cannot register the empty handle")
	}
	if len(data) == 0 {
		return errors.New("ciphertext is required")
	}
	if b.seen == nil {
		b.seen = make(map[handle.Handle]bool)
	}
	if b.seen[h] {
		return nil
	}
	b.seen[h] = true
	b.ciphertexts = append(b.ciphertexts, ct)
	return nil
}

// Allow stages decrypt grants on h for each account.
func (b *Batch) Allow(h handle.Handle, accounts ...string) {
	for _, account := range accounts {
		account = strings.ToLower(strings.TrimSpace(account))
		if account == "" {
			continue
		}
		b.grants = append(b.grants, storage.Grant{Handle: h, Account: account})
	}
}

// ApplyTo copies the staged rows into t.
func (b *Batch) ApplyTo(t *storage.Transition) {
	t.Ciphertexts = append(t.Ciphertexts, b.ciphertexts...)
	t.Grants = append(t.Grants, b.grants...)
}
