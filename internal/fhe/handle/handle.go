// Package handle defines the opaque 32-byte references that stand in for
// ciphertexts on the ledger.
package handle

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Size is the byte length of a handle.
const Size = 32

// Version is the handle layout version written in the last byte.
const Version uint8 = 0

// Type tags the encrypted type a handle refers to (byte 30).
type Type uint8

const (
	TypeBool   Type = 0
	TypeUint8  Type = 2
	TypeUint16 Type = 3
	TypeUint32 Type = 4
	TypeUint64 Type = 5
)

func (t Type) String() string {
	switch t {
	case TypeBool:
		return "ebool"
	case TypeUint8:
		return "euint8"
	case TypeUint16:
		return "euint16"
	case TypeUint32:
		return "euint32"
	case TypeUint64:
		return "euint64"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

// Handle identifies a ciphertext. The zero value is Empty.
type Handle [Size]byte

// Empty means "no ciphertext stored".
var Empty Handle

// ErrInvalid reports text or bytes that do not form a handle.
var ErrInvalid = errors.New("invalid handle")

// IsEmpty reports whether h is the empty sentinel.
func (h Handle) IsEmpty() bool {
	return h == Empty
}

// Type returns the encrypted type tag.
func (h Handle) Type() Type {
	return Type(h[30])
}

// Version returns the layout version byte.
func (h Handle) Version() uint8 {
	return h[31]
}

// String returns the 0x-prefixed lowercase hex form.
func (h Handle) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

// Bytes returns a copy of the raw handle bytes.
func (h Handle) Bytes() []byte {
	out := make([]byte, Size)
	copy(out, h[:])
	return out
}

// MarshalText implements encoding.TextMarshaler.
func (h Handle) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Handle) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// Parse reads a handle from 64 hex digits with an optional 0x prefix.
func Parse(s string) (Handle, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s) != 2*Size {
		return Empty, fmt.Errorf("%w: want %d hex digits, got %d", ErrInvalid, 2*Size, len(s))
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return Empty, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return FromBytes(raw)
}

// FromBytes copies a 32-byte slice into a handle.
func FromBytes(b []byte) (Handle, error) {
	var h Handle
	if len(b) != Size {
		return Empty, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalid, Size, len(b))
	}
	copy(h[:], b)
	return h, nil
}

// Binding is the context a client input is bound to. An input encrypted for
// one identity or contract derives a different handle anywhere else.
type Binding struct {
	ChainID  uint64
	Contract string
	Identity string
}

// ForInput derives the handle of the index-th ciphertext in a client input.
func ForInput(ciphertext []byte, index uint8, typ Type, b Binding) Handle {
	digest := sha3.Sum256(ciphertext)
	hasher := sha3.New256()
	hasher.Write([]byte("fheworlds/input"))
	hasher.Write(digest[:])
	hasher.Write([]byte{index})
	writeUint64(hasher, b.ChainID)
	writeString(hasher, strings.ToLower(b.Contract))
	writeString(hasher, strings.ToLower(b.Identity))
	return seal(hasher.Sum(nil), typ)
}

// ForComputation derives the handle of a homomorphic result. The same
// operation over the same inputs always yields the same handle.
func ForComputation(op string, typ Type, contract string, inputs ...Handle) Handle {
	hasher := sha3.New256()
	hasher.Write([]byte("fheworlds/compute"))
	writeString(hasher, op)
	writeString(hasher, strings.ToLower(contract))
	for _, in := range inputs {
		hasher.Write(in[:])
	}
	return seal(hasher.Sum(nil), typ)
}

func seal(sum []byte, typ Type) Handle {
	var h Handle
	copy(h[:], sum)
	h[30] = byte(typ)
	h[31] = Version
	if h.IsEmpty() {
		// A derived handle must never collide with the sentinel.
		h[0] = 1
	}
	return h
}

type byteWriter interface {
	Write([]byte) (int, error)
}

func writeUint64(w byteWriter, v uint64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	w.Write(buf[:])
}

func writeString(w byteWriter, s string) {
	writeUint64(w, uint64(len(s)))
	w.Write([]byte(s))
}
