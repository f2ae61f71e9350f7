package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/duopanel/internal/domain/model"
)

// ErrStoreUnavailable is returned when the credential store path does not
// exist or the store cannot be opened (permission denied, the external app
// never initialized it).
var ErrStoreUnavailable = errors.New("credential store unavailable")

// ErrNoAccountsFound is returned when the store is readable but contains no
// decodable authenticator records.
var ErrNoAccountsFound = errors.New("no authenticator accounts found")

// AccountSource defines the driven port for reading authenticator accounts
// out of the external application's credential store. Implementations open
// the store transiently per call and never write to it.
//
// For an unchanged store, repeated calls return the same account set in the
// same order, so downstream display ordering is stable.
type AccountSource interface {
	LoadAccounts(ctx context.Context) ([]model.Account, error)
}
