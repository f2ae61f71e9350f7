// Package playchain reads authenticator accounts out of the PlayChain
// keychain database that PlayCover maintains for Duo Mobile. The database is
// an external, read-only resource: it is opened transiently for each load
// and never written to or held open across orchestration steps.
package playchain

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	_ "modernc.org/sqlite"

	"github.com/ericfisherdev/duopanel/internal/domain/model"
	"github.com/ericfisherdev/duopanel/internal/domain/port/driven"
)

// DefaultAccessGroup is the keychain access group Duo Mobile writes its
// generic-password records under.
const DefaultAccessGroup = "group.com.duosecurity.duomobile"

// Compile-time interface satisfaction check.
var _ driven.AccountSource = (*Reader)(nil)

// Reader is the SQLite implementation of the AccountSource port against a
// PlayChain keychain database.
type Reader struct {
	path        string
	accessGroup string
}

// NewReader creates a Reader for the database at path, filtering records to
// the given access group. An empty accessGroup falls back to
// DefaultAccessGroup.
func NewReader(path, accessGroup string) *Reader {
	if accessGroup == "" {
		accessGroup = DefaultAccessGroup
	}
	return &Reader{path: path, accessGroup: accessGroup}
}

// record is the JSON payload Duo Mobile stores in the keychain's v_Data
// column. otpSecretKeyNew supersedes otpSecretKey when both are present.
type record struct {
	DisplayLabel string `json:"displayLabel"`
	AccountName  string `json:"accountName"`
	Issuer       string `json:"issuer"`
	SecretKeyNew string `json:"otpSecretKeyNew"`
	SecretKey    string `json:"otpSecretKey"`
	Digits       int    `json:"otpDigits"`
	Period       int    `json:"otpPeriod"`
	Algorithm    string `json:"otpAlgorithm"`
}

// LoadAccounts opens the store read-only, decodes every record in the
// configured access group, and returns the accounts in record (rowid) order.
// Individual undecodable records are skipped and counted; the call fails
// with ErrNoAccountsFound only when zero valid records result, and with
// ErrStoreUnavailable when the database is missing or unreadable.
func (r *Reader) LoadAccounts(ctx context.Context) ([]model.Account, error) {
	if _, err := os.Stat(r.path); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", driven.ErrStoreUnavailable, r.path, err)
	}

	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(5000)", r.path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", driven.ErrStoreUnavailable, r.path, err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Warn("error closing credential store", "path", r.path, "error", closeErr)
		}
	}()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("%w: ping %s: %v", driven.ErrStoreUnavailable, r.path, err)
	}

	const query = `SELECT v_Data FROM genp WHERE agrp = ? ORDER BY rowid`
	rows, err := db.QueryContext(ctx, query, r.accessGroup)
	if err != nil {
		// A database without the keychain schema was never initialized by
		// the external application.
		return nil, fmt.Errorf("%w: query %s: %v", driven.ErrStoreUnavailable, r.path, err)
	}
	defer rows.Close()

	var accounts []model.Account
	var skipped int

	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}

		account, ok := decodeRecord(data)
		if !ok {
			skipped++
			continue
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}

	if skipped > 0 {
		slog.Warn("skipped undecodable credential records", "count", skipped, "path", r.path)
	}

	if len(accounts) == 0 {
		return nil, fmt.Errorf("%w: %s", driven.ErrNoAccountsFound, r.path)
	}

	return accounts, nil
}

// decodeRecord converts one v_Data payload into an account. The secret
// string's UTF-8 bytes become the HMAC key as-is; decoding it as base32
// would produce codes that do not match Duo Mobile.
func decodeRecord(data []byte) (model.Account, bool) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return model.Account{}, false
	}

	secret := rec.SecretKeyNew
	if secret == "" {
		secret = rec.SecretKey
	}
	if secret == "" {
		return model.Account{}, false
	}

	if rec.Algorithm != "" && rec.Algorithm != string(model.AlgorithmSHA1) {
		return model.Account{}, false
	}

	label := rec.DisplayLabel
	if label == "" {
		label = rec.AccountName
	}
	if label == "" {
		label = "Unknown"
	}

	digits := rec.Digits
	if digits <= 0 {
		digits = model.DefaultDigits
	}
	period := rec.Period
	if period <= 0 {
		period = model.DefaultPeriod
	}

	return model.Account{
		Label:     label,
		Issuer:    rec.Issuer,
		Secret:    []byte(secret),
		Digits:    digits,
		Period:    period,
		Algorithm: model.AlgorithmSHA1,
	}, true
}
