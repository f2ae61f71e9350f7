package sqlite

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/ericfisherdev/duopanel/internal/domain/model"
	"github.com/ericfisherdev/duopanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.AccountCache = (*AccountRepo)(nil)

// AccountRepo is the SQLite implementation of the AccountCache port.
// Secrets are encrypted with AES-256-GCM before write and decrypted after
// read, so a leaked cache file alone does not expose TOTP keys.
type AccountRepo struct {
	db  *DB
	key []byte // 32-byte AES-256 key; nil when caching is disabled.
}

// NewAccountRepo creates a new AccountRepo. key must be 32 bytes for
// AES-256-GCM, or nil to disable the cache (all operations will return
// ErrCacheKeyNotSet).
func NewAccountRepo(db *DB, key []byte) *AccountRepo {
	return &AccountRepo{db: db, key: key}
}

// Load returns the cached account set in store order.
func (r *AccountRepo) Load(ctx context.Context) ([]model.Account, error) {
	if r.key == nil {
		return nil, driven.ErrCacheKeyNotSet
	}

	const query = `SELECT label, issuer, secret, digits, period, algorithm FROM accounts ORDER BY position`
	rows, err := r.db.Conn().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("load cached accounts: %w", err)
	}
	defer rows.Close()

	var accounts []model.Account
	for rows.Next() {
		var account model.Account
		var encrypted, algorithm string
		if err := rows.Scan(&account.Label, &account.Issuer, &encrypted, &account.Digits, &account.Period, &algorithm); err != nil {
			return nil, fmt.Errorf("scan cached account: %w", err)
		}

		secret, err := r.decrypt(encrypted)
		if err != nil {
			return nil, fmt.Errorf("decrypt secret for %q: %w", account.Label, err)
		}
		account.Secret = secret
		account.Algorithm = model.Algorithm(algorithm)

		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cached accounts: %w", err)
	}

	return accounts, nil
}

// Replace swaps the cached set for the given accounts in one transaction so
// readers never observe a partially written set.
func (r *AccountRepo) Replace(ctx context.Context, accounts []model.Account) error {
	if r.key == nil {
		return driven.ErrCacheKeyNotSet
	}

	tx, err := r.db.Conn().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin cache replace: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM accounts`); err != nil {
		return fmt.Errorf("clear cached accounts: %w", err)
	}

	const insert = `INSERT INTO accounts (position, label, issuer, secret, digits, period, algorithm, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`
	for i, account := range accounts {
		encrypted, err := r.encrypt(account.Secret)
		if err != nil {
			return fmt.Errorf("encrypt secret for %q: %w", account.Label, err)
		}
		if _, err := tx.ExecContext(ctx, insert,
			i, account.Label, account.Issuer, encrypted, account.Digits, account.Period, string(account.Algorithm),
		); err != nil {
			return fmt.Errorf("insert cached account %q: %w", account.Label, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit cache replace: %w", err)
	}
	return nil
}

// encrypt encrypts a secret using AES-256-GCM and returns a base64-encoded
// string containing the nonce (12 bytes) prepended to the ciphertext.
func (r *AccountRepo) encrypt(secret []byte) (string, error) {
	block, err := aes.NewCipher(r.key)
	if err != nil {
		return "", fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("cipher.NewGCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("rand nonce: %w", err)
	}

	// Seal appends the ciphertext to nonce, producing: nonce || ciphertext || tag.
	ciphertext := gcm.Seal(nonce, nonce, secret, nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// decrypt decrypts a base64-encoded AES-256-GCM ciphertext.
func (r *AccountRepo) decrypt(encoded string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("base64 decode: %w", err)
	}

	block, err := aes.NewCipher(r.key)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return nil, errors.New("ciphertext too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("gcm.Open: %w", err)
	}

	return plaintext, nil
}

// Count reports the number of cached accounts. The composition root logs it
// at startup.
func (r *AccountRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.Conn().QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&n)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("count cached accounts: %w", err)
	}
	return n, nil
}
