// Package block defines the interface required for the connection to the node.
package block

import (
	"context"
	"encoding/json"
	"time"

	"github.com/tarancss/canoed/lib/block/rainode"
	"github.com/tarancss/canoed/lib/config"
)

// Node is the request/response RPC of the node. Call POSTs the JSON payload and returns the JSON answer as is.
type Node interface {
	Call(ctx context.Context, payload []byte) (json.RawMessage, error)
}

// Init returns the client to the node read from the config.
func Init(c config.RainodeConfig) Node {
	return rainode.New("http://"+c.Host+":"+c.Port, time.Duration(c.Timeout)*time.Second)
}
