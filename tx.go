package tierledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/xraph/tierledger/account"
	"github.com/xraph/tierledger/types"
)

// retryConflicts runs op until it succeeds, fails with something other than
// ErrStorageConflict, or the retry budget is spent. A spent budget is reported
// as ErrTransactionFailed wrapping the last conflict.
func retryConflicts[T any](ctx context.Context, l *Ledger, name string, op func() (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = l.retryInterval
	b.MaxInterval = 20 * l.retryInterval
	b.Multiplier = 2

	attempt := 0
	v, err := backoff.Retry(ctx, func() (T, error) {
		attempt++
		v, err := op()
		if err == nil {
			return v, nil
		}
		if errors.Is(err, ErrStorageConflict) {
			return v, err
		}
		return v, backoff.Permanent(err)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(l.maxRetries+1)), //nolint:gosec // maxRetries is never negative
		backoff.WithNotify(func(err error, next time.Duration) {
			l.logger.Debug("retrying after conflict",
				"op", name,
				"attempt", attempt,
				"next", next,
				"error", err,
			)
		}),
	)
	if err == nil {
		return v, nil
	}

	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Err
	}
	if errors.Is(err, ErrStorageConflict) {
		l.logger.Warn("write abandoned after conflicts",
			"op", name,
			"attempts", attempt,
		)
		var zero T
		return zero, fmt.Errorf("%w: %s after %d attempts: %w", ErrTransactionFailed, name, attempt, err)
	}
	return v, err
}

// mutateFunc edits a private copy of the account. Returning an error aborts
// the write without retrying.
type mutateFunc func(a *account.Account, today types.Date) error

// mutateAccount applies fn to a fresh copy of the user's account and writes it
// back conditionally, re-reading and re-applying on conflict. With ensure set,
// a missing account is created first. The returned account reflects the
// committed state.
func (l *Ledger) mutateAccount(ctx context.Context, name string, userID int64, ensure bool, fn mutateFunc) (*account.Account, error) {
	return retryConflicts(ctx, l, name, func() (*account.Account, error) {
		var (
			cur *account.Account
			err error
		)
		if ensure {
			cur, err = l.EnsureAccount(ctx, userID)
		} else {
			cur, err = l.store.GetAccount(ctx, userID)
		}
		if err != nil {
			return nil, err
		}

		next := cur.Clone()
		if err := fn(next, l.today()); err != nil {
			return nil, err
		}
		next.TouchAt(l.now())

		if err := l.store.UpdateAccount(ctx, next); err != nil {
			return nil, err
		}
		return next, nil
	})
}
