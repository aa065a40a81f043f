// Package postgres implements the credential store on the PostgreSQL table read by the VerneMQ auth plugin.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq" // registers the postgres driver, pq.Error carries the SQLSTATE

	"github.com/tarancss/canoed/lib/store"
)

// uniqueViolation is the SQLSTATE of a primary key clash.
const uniqueViolation = "23505"

const schema = `CREATE TABLE IF NOT EXISTS vmq_auth_acl
(
  mountpoint character varying(10) NOT NULL,
  client_id character varying(128) NOT NULL,
  username character varying(128) NOT NULL,
  password character varying(128),
  publish_acl json,
  subscribe_acl json,
  CONSTRAINT vmq_auth_acl_primary_key PRIMARY KEY (mountpoint, client_id, username)
)`

const insert = `INSERT INTO vmq_auth_acl (mountpoint, client_id, username, password, publish_acl, subscribe_acl)
VALUES ($1, $2, $3, $4, $5, $6)`

// Postgres is a pool of connections to the credential database.
type Postgres struct {
	db *sql.DB
}

// New returns a postgres client connection to the specified database in 'connection'. At most maxConns
// connections are kept open.
func New(connection string, maxConns int) (*Postgres, error) {
	db, err := sql.Open("postgres", connection)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to DB: %w", err)
	}

	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
		db.SetMaxIdleConns(maxConns)
	}

	return &Postgres{db: db}, nil
}

// NewWithDB wraps an already opened pool.
func NewWithDB(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Close closes the pool. Must be called at termination time.
func (p *Postgres) Close() error {
	return p.db.Close()
}

// Ping checks the database is reachable.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// InitSchema creates the vmq_auth_acl table if it does not exist.
func (p *Postgres) InitSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("cannot create vmq_auth_acl: %w", err)
	}

	return nil
}

// Insert writes the credential row in a single statement, so either the whole row is stored or nothing is.
// Each call takes a connection from the pool and returns it when done.
func (p *Postgres) Insert(ctx context.Context, c store.AccountCredential) error {
	_, err := p.db.ExecContext(ctx, insert,
		c.Mountpoint, c.ClientID, c.Username, c.Password, string(c.PublishACL), string(c.SubscribeACL))
	if err == nil {
		return nil
	}

	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", store.ErrDuplicate, c.Username)
	}

	return fmt.Errorf("could not insert credential in db: %w", err)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	// other drivers sharing the schema, ie. sqlite in tests
	message := strings.ToLower(err.Error())

	return strings.Contains(message, "unique constraint failed") ||
		strings.Contains(message, "duplicate key value violates unique constraint")
}

var _ store.Credentials = (*Postgres)(nil)
