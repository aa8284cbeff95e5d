package webhookledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/AlexZinkM/joint-wallet/internal/crypto"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS ledger_meta (
	key   TEXT PRIMARY KEY,
	value BLOB NOT NULL
);
CREATE TABLE IF NOT EXISTS delegated_access (
	event_id         TEXT PRIMARY KEY,
	id               TEXT NOT NULL UNIQUE,
	wallet_id        TEXT NOT NULL,
	chain            TEXT NOT NULL,
	owner_user_id    TEXT NOT NULL,
	delegate_user_id TEXT NOT NULL,
	delegate_email   TEXT NOT NULL DEFAULT '',
	public_key       TEXT NOT NULL,
	share_sealed     TEXT NOT NULL,
	api_key_sealed   TEXT NOT NULL,
	status           TEXT NOT NULL,
	created_at       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS delegated_access_wallet ON delegated_access (wallet_id);
`

// SQLiteStore persists records in SQLite with sealed secrets.
type SQLiteStore struct {
	db     *sql.DB
	sealer *crypto.Sealer
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(ctx context.Context, path string, passphrase []byte, params crypto.ScryptParams) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	store, err := NewSQLiteStore(ctx, db, passphrase, params)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLiteStore migrates db and derives the sealing key from passphrase
// and the salt persisted in ledger_meta.
func NewSQLiteStore(ctx context.Context, db *sql.DB, passphrase []byte, params crypto.ScryptParams) (*SQLiteStore, error) {
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return nil, fmt.Errorf("failed to migrate sqlite ledger: %w", err)
	}

	salt, err := crypto.NewSalt()
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx,
		`INSERT INTO ledger_meta (key, value) VALUES ('kdf_salt', ?) ON CONFLICT (key) DO NOTHING`, salt); err != nil {
		return nil, fmt.Errorf("failed to store salt: %w", err)
	}
	if err := db.QueryRowContext(ctx, `SELECT value FROM ledger_meta WHERE key = 'kdf_salt'`).Scan(&salt); err != nil {
		return nil, fmt.Errorf("failed to load salt: %w", err)
	}

	sealer, err := crypto.NewSealer(passphrase, salt, params)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db, sealer: sealer}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, eventID string) (*Record, error) {
	var sr sealedRecord
	var status, createdAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, event_id, wallet_id, chain, owner_user_id, delegate_user_id, delegate_email,
		       public_key, share_sealed, api_key_sealed, status, created_at
		FROM delegated_access WHERE event_id = ?`, eventID,
	).Scan(&sr.ID, &sr.EventID, &sr.WalletID, &sr.Chain, &sr.OwnerUserID, &sr.DelegateUserID,
		&sr.DelegateEmail, &sr.PublicKey, &sr.ShareSealed, &sr.APIKeySealed, &status, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load delegation record: %w", err)
	}

	sr.Status = Status(status)
	if sr.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("invalid created_at %q: %w", createdAt, err)
	}
	return unseal(s.sealer, &sr)
}

func (s *SQLiteStore) InsertIfAbsent(ctx context.Context, rec *Record) (*Record, bool, error) {
	sr, err := seal(s.sealer, rec)
	if err != nil {
		return nil, false, err
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO delegated_access (event_id, id, wallet_id, chain, owner_user_id, delegate_user_id,
			delegate_email, public_key, share_sealed, api_key_sealed, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (event_id) DO NOTHING`,
		sr.EventID, sr.ID, sr.WalletID, sr.Chain, sr.OwnerUserID, sr.DelegateUserID,
		sr.DelegateEmail, sr.PublicKey, sr.ShareSealed, sr.APIKeySealed, string(sr.Status),
		sr.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert delegation record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to read insert result: %w", err)
	}
	if n == 0 {
		existing, err := s.Get(ctx, rec.EventID)
		return existing, false, err
	}
	return rec.clone(), true, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
