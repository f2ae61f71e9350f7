package model

import "time"

// Algorithm identifies the HMAC hash used for code derivation. Duo Mobile
// records are SHA1-only; records declaring anything else are skipped at load.
type Algorithm string

const AlgorithmSHA1 Algorithm = "SHA1"

// Default OTP parameters for records that omit them.
const (
	DefaultDigits = 6
	DefaultPeriod = 30
)

// Account is one authenticator entry extracted from the credential store.
// The secret is the raw byte sequence used directly as the HMAC key — it is
// never base32-decoded, matching Duo Mobile's own derivation. Accounts are
// immutable once loaded and replaced wholesale on each successful reload.
type Account struct {
	Label     string
	Issuer    string
	Secret    []byte
	Digits    int
	Period    int
	Algorithm Algorithm
}

// Key returns the label+issuer pair that uniquely identifies an account.
func (a Account) Key() string {
	return a.Label + "/" + a.Issuer
}

// CodeSnapshot is the derived per-account view recomputed on every scheduler
// tick. A code is valid for now in [WindowStart, WindowEnd).
type CodeSnapshot struct {
	Account     Account
	Code        string
	WindowStart time.Time
	WindowEnd   time.Time
}

// SecondsRemaining returns the whole seconds left in the snapshot's validity
// window, clamped at zero.
func (s CodeSnapshot) SecondsRemaining(now time.Time) int {
	remaining := int(s.WindowEnd.Sub(now).Seconds())
	if remaining < 0 {
		return 0
	}
	return remaining
}
