package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/duopanel/internal/domain/model"
)

// ErrCacheKeyNotSet is returned by AccountCache operations when
// DUOPANEL_SECRET_KEY has not been configured.
var ErrCacheKeyNotSet = errors.New("cache encryption key not configured: set DUOPANEL_SECRET_KEY")

// AccountCache defines the driven port for last-known-good account
// persistence across runs. Secrets are encrypted at rest by the adapter;
// this interface operates on plaintext accounts at the domain boundary.
type AccountCache interface {
	// Load returns the cached account set in its original store order.
	// Returns ErrCacheKeyNotSet if the adapter was constructed without an
	// encryption key.
	Load(ctx context.Context) ([]model.Account, error)

	// Replace atomically swaps the cached set for the given accounts.
	Replace(ctx context.Context, accounts []model.Account) error
}
