// Package sqlite provides the SQLite-backed ledger store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/sha3"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/louisbranch/fheworlds/internal/fhe/handle"
	sqlitemigrate "github.com/louisbranch/fheworlds/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/fheworlds/internal/services/payroll/domain"
	"github.com/louisbranch/fheworlds/internal/services/payroll/storage"
	"github.com/louisbranch/fheworlds/internal/services/payroll/storage/sqlite/migrations"
)

// Store persists ledger state in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite ledger store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlitemigrate.ApplyMigrations(context.Background(), sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// GetParticipant returns the record for identity or storage.ErrNotFound.
func (s *Store) GetParticipant(ctx context.Context, identity string) (domain.State, error) {
	if err := ctx.Err(); err != nil {
		return domain.State{}, err
	}
	var (
		country, salary []byte
		claimed         bool
		joinedAt        int64
		claimedAt       sql.NullInt64
	)
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT country_handle, salary_handle, claimed, joined_at, claimed_at
		   FROM participants WHERE identity = ?`,
		identity,
	).Scan(&country, &salary, &claimed, &joinedAt, &claimedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.State{}, storage.ErrNotFound
	}
	if err != nil {
		return domain.State{}, fmt.Errorf("get participant: %w", err)
	}
	countryHandle, err := handle.FromBytes(country)
	if err != nil {
		return domain.State{}, fmt.Errorf("decode country handle: %w", err)
	}
	salaryHandle, err := handle.FromBytes(salary)
	if err != nil {
		return domain.State{}, fmt.Errorf("decode salary handle: %w", err)
	}
	state := domain.State{
		Identity:      identity,
		Joined:        true,
		Claimed:       claimed,
		CountryHandle: countryHandle,
		SalaryHandle:  salaryHandle,
		JoinedAt:      fromMillis(joinedAt),
	}
	if claimedAt.Valid {
		state.ClaimedAt = fromMillis(claimedAt.Int64)
	}
	return state, nil
}

// ListEvents returns the events recorded for identity in order.
func (s *Store) ListEvents(ctx context.Context, identity string) ([]domain.Event, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT event_type, request_id, payload_json, occurred_at
		   FROM events WHERE identity = ? ORDER BY seq`,
		identity,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var (
			evt        domain.Event
			eventType  string
			occurredAt int64
		)
		if err := rows.Scan(&eventType, &evt.RequestID, &evt.PayloadJSON, &occurredAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		evt.Type = domain.EventType(eventType)
		evt.Identity = identity
		evt.Timestamp = fromMillis(occurredAt)
		events = append(events, evt)
	}
	return events, rows.Err()
}

// GetCiphertext returns the ciphertext registered under h.
func (s *Store) GetCiphertext(ctx context.Context, h handle.Handle) (storage.Ciphertext, error) {
	var data []byte
	err := s.sqlDB.QueryRowContext(ctx, `SELECT data FROM ciphertexts WHERE handle = ?`, h[:]).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Ciphertext{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.Ciphertext{}, fmt.Errorf("get ciphertext: %w", err)
	}
	return storage.Ciphertext{Handle: h, Data: data}, nil
}

// IsAllowed reports whether account appears on the ACL of h.
func (s *Store) IsAllowed(ctx context.Context, h handle.Handle, account string) (bool, error) {
	var found int
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT 1 FROM acl WHERE handle = ? AND account = ?`,
		h[:], strings.ToLower(account),
	).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check acl: %w", err)
	}
	return true, nil
}

// HasInputCiphertext reports whether data is already registered as an input.
func (s *Store) HasInputCiphertext(ctx context.Context, data []byte) (bool, error) {
	digest := inputDigest(data)
	var found int
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT 1 FROM ciphertexts WHERE input_digest = ?`, digest[:],
	).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check input digest: %w", err)
	}
	return true, nil
}

// Apply writes a transition atomically. A create that collides with an
// existing participant returns storage.ErrAlreadyExists; an update of a
// record that is missing or already claimed returns storage.ErrConflict. An
// input ciphertext registered before returns storage.ErrDuplicateInput.
func (s *Store) Apply(ctx context.Context, t storage.Transition) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(t.State.Identity) == "" {
		return fmt.Errorf("participant identity is required")
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transition: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := writeParticipant(ctx, tx, t); err != nil {
		return err
	}
	now := toMillis(time.Now())
	for _, ct := range t.Ciphertexts {
		var digest []byte
		if ct.Input {
			sum := inputDigest(ct.Data)
			digest = sum[:]
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO ciphertexts (handle, data, input_digest, created_at) VALUES (?, ?, ?, ?)
			 ON CONFLICT(handle) DO NOTHING`,
			ct.Handle[:], ct.Data, digest, now,
		); err != nil {
			if isUniqueViolation(err) {
				return storage.ErrDuplicateInput
			}
			return fmt.Errorf("insert ciphertext: %w", err)
		}
	}
	for _, g := range t.Grants {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO acl (handle, account) VALUES (?, ?)`,
			g.Handle[:], strings.ToLower(g.Account),
		); err != nil {
			return fmt.Errorf("insert acl grant: %w", err)
		}
	}
	for _, evt := range t.Events {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO events (identity, event_type, request_id, payload_json, occurred_at) VALUES (?, ?, ?, ?, ?)`,
			t.State.Identity, string(evt.Type), evt.RequestID, evt.PayloadJSON, toMillis(evt.Timestamp),
		); err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transition: %w", err)
	}
	return nil
}

func writeParticipant(ctx context.Context, tx *sql.Tx, t storage.Transition) error {
	st := t.State
	if t.Create {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO participants (identity, country_handle, salary_handle, claimed, joined_at)
			 VALUES (?, ?, ?, 0, ?)`,
			st.Identity, st.CountryHandle[:], st.SalaryHandle[:], toMillis(st.JoinedAt),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return storage.ErrAlreadyExists
			}
			return fmt.Errorf("insert participant: %w", err)
		}
		return nil
	}
	if !st.Claimed {
		return fmt.Errorf("only claims update an existing participant")
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE participants SET claimed = 1, claimed_at = ? WHERE identity = ? AND claimed = 0`,
		toMillis(st.ClaimedAt), st.Identity,
	)
	if err != nil {
		return fmt.Errorf("update participant: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update participant: %w", err)
	}
	if n != 1 {
		return storage.ErrConflict
	}
	return nil
}

func inputDigest(data []byte) [32]byte {
	return sha3.Sum256(data)
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

var _ storage.Store = (*Store)(nil)
