// Package totp generates time-based one-time passwords from raw-byte
// secrets with RFC 6238 semantics (HMAC-SHA1, 30-second steps, 6 digits).
package totp

import (
	"encoding/base32"
	"errors"
	"fmt"
	"time"

	"github.com/pquerna/otp"
	ptotp "github.com/pquerna/otp/totp"

	"github.com/ericfisherdev/duopanel/internal/domain/model"
)

// ErrInvalidSecret is returned when the secret is empty. The algorithm is
// unconditionally defined for any non-empty byte key, so no other error
// path exists for well-formed parameters.
var ErrInvalidSecret = errors.New("totp: secret must not be empty")

// Code is one generated code with its validity window. The code is valid
// for now in [WindowStart, WindowEnd).
type Code struct {
	Value       string
	WindowStart time.Time
	WindowEnd   time.Time
}

// Generate computes the code for the given raw secret bytes at the given
// instant. The secret is used directly as the HMAC key; Duo Mobile derives
// codes from the UTF-8 bytes of its stored secret string, so callers must
// not base32-decode it first. Zero period or digits fall back to the
// 30s/6-digit defaults. Pure: identical inputs yield identical output.
func Generate(secret []byte, now time.Time, period, digits int) (Code, error) {
	if len(secret) == 0 {
		return Code{}, ErrInvalidSecret
	}
	if period <= 0 {
		period = model.DefaultPeriod
	}
	if digits <= 0 {
		digits = model.DefaultDigits
	}

	// The otp library takes base32 text; wrap the raw key bytes so it
	// unwraps to exactly the same HMAC key.
	encoded := base32.StdEncoding.EncodeToString(secret)

	value, err := ptotp.GenerateCodeCustom(encoded, now, ptotp.ValidateOpts{
		Period:    uint(period),
		Digits:    otp.Digits(digits),
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return Code{}, fmt.Errorf("generate code: %w", err)
	}

	step := now.Unix() / int64(period)
	start := time.Unix(step*int64(period), 0).UTC()

	return Code{
		Value:       value,
		WindowStart: start,
		WindowEnd:   start.Add(time.Duration(period) * time.Second),
	}, nil
}

// Snapshot generates the current code snapshot for an account.
func Snapshot(account model.Account, now time.Time) (model.CodeSnapshot, error) {
	code, err := Generate(account.Secret, now, account.Period, account.Digits)
	if err != nil {
		return model.CodeSnapshot{}, err
	}
	return model.CodeSnapshot{
		Account:     account,
		Code:        code.Value,
		WindowStart: code.WindowStart,
		WindowEnd:   code.WindowEnd,
	}, nil
}

// Remaining returns the time left until the current window rolls over.
func Remaining(now time.Time, period int) time.Duration {
	if period <= 0 {
		period = model.DefaultPeriod
	}
	p := int64(period)
	return time.Duration(p-now.Unix()%p) * time.Second
}
