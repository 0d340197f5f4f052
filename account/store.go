package account

import "context"

type Store interface {
	Create(ctx context.Context, a *Account) error
	Get(ctx context.Context, userID int64) (*Account, error)
	// Update writes a only if the stored version still equals a.Version,
	// then advances a.Version.
	Update(ctx context.Context, a *Account) error
}
