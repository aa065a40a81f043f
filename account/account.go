// Package account provisions the broker credentials of new wallet accounts.
package account

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/tarancss/canoed/lib/metrics"
	"github.com/tarancss/canoed/lib/store"
)

// Mountpoint of every provisioned account.
const Mountpoint = ""

// Cost of the bcrypt hashes. Hashes are $2a$, the variant pgcrypto crypt() verifies as 'bf'.
var Cost = bcrypt.DefaultCost //nolint:gochecknoglobals // lowered in tests

// Errors returned to create_account requests.
var (
	ErrAccountExists = errors.New("account already exists")
	ErrBadRequest    = errors.New("token and tokenpass are required")
	ErrBadSecret     = errors.New("tokenpass cannot be hashed")
	ErrFailed        = errors.New("account could not be created")
	ErrBadACL        = errors.New("ACL template is not valid JSON")
)

// Provisioner creates account credentials with fixed publish and subscribe ACL templates.
type Provisioner struct {
	creds  store.Credentials
	pubACL json.RawMessage
	subACL json.RawMessage
	logger *zap.Logger
}

// New returns a Provisioner writing to creds. pubACL and subACL are given to every account.
func New(creds store.Credentials, pubACL, subACL json.RawMessage, logger *zap.Logger) (*Provisioner, error) {
	if !json.Valid(pubACL) || !json.Valid(subACL) {
		return nil, ErrBadACL
	}

	return &Provisioner{creds: creds, pubACL: pubACL, subACL: subACL, logger: logger}, nil
}

// CreateAccount stores the credential of account token with a freshly salted hash of tokenSecret. Creating an
// account twice returns ErrAccountExists; any other store failure returns ErrFailed.
func (p *Provisioner) CreateAccount(ctx context.Context, token, tokenSecret string) error {
	if token == "" || tokenSecret == "" {
		return ErrBadRequest
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(tokenSecret), Cost)
	if err != nil {
		p.logger.Warn("Cannot hash account secret", zap.String("account", token), zap.Error(err))
		metrics.Accounts.WithLabelValues(metrics.Failed).Inc()

		return fmt.Errorf("%w: %v", ErrBadSecret, err)
	}

	err = p.creds.Insert(ctx, store.AccountCredential{
		Mountpoint:   Mountpoint,
		ClientID:     token,
		Username:     token,
		Password:     string(hash),
		PublishACL:   p.pubACL,
		SubscribeACL: p.subACL,
	})

	switch {
	case err == nil:
		p.logger.Info("Account created", zap.String("account", token))
		metrics.Accounts.WithLabelValues(metrics.Created).Inc()

		return nil
	case errors.Is(err, store.ErrDuplicate):
		p.logger.Info("Account already exists", zap.String("account", token))
		metrics.Accounts.WithLabelValues(metrics.Exists).Inc()

		return ErrAccountExists
	}

	p.logger.Error("Cannot create account", zap.String("account", token), zap.Error(err))
	metrics.Accounts.WithLabelValues(metrics.Failed).Inc()

	return fmt.Errorf("%w: %v", ErrFailed, err)
}
