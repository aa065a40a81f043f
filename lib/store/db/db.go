// Package db implements the opening and graceful closing of the account directory connections.
package db

import (
	"context"
	"fmt"

	"github.com/tarancss/canoed/lib/config"
	"github.com/tarancss/canoed/lib/store"
	"github.com/tarancss/canoed/lib/store/mongo"
	"github.com/tarancss/canoed/lib/store/redis"
)

// New returns a new account directory connection according to the directory type in conf.
func New(ctx context.Context, conf config.ServiceConfig) (store.Directory, error) {
	switch conf.Directory.Type {
	case config.DirRedis:
		r, err := redis.New(ctx, conf.Redis)
		if err != nil {
			return nil, err
		}

		return r, nil
	case config.DirMongo:
		m, err := mongo.New(conf.Directory.Conn)
		if err != nil {
			return nil, err
		}

		return m, nil
	}

	return nil, fmt.Errorf("%w: %s", config.ErrBadDirectory, conf.Directory.Type)
}

// Close gracefully closes the directory connection.
func Close(dir store.Directory) error {
	if dir == nil {
		return nil
	}

	return dir.Close()
}
