// Package store defines the interfaces of the account directory and the credential store.
package store

import (
	"context"
	"errors"
)

// Directory maps accounts to the wallets owning them.
type Directory interface {
	// Wallet returns the wallet owning account or ErrNotFound.
	Wallet(ctx context.Context, account string) (string, error)
	// Register makes wallet the owner of account.
	Register(ctx context.Context, account, wallet string) error
	Close() error
}

// Credentials is the table read by the broker to authenticate and authorise clients.
type Credentials interface {
	// Insert writes c atomically. A row with the same key returns ErrDuplicate.
	Insert(ctx context.Context, c AccountCredential) error
	Close() error
}

// Errors returned
var (
	ErrNotFound  = errors.New("account was not found in store")
	ErrDuplicate = errors.New("credential already exists in store")
)
