// Package router routes the blocks confirmed by the node to the wallets owning their accounts. Every callback is
// classified by block type, the account it concerns is looked up in the account directory and, when a wallet
// owns it, the callback is republished untouched on the wallet topic wallet/<wallet>/<event>.
//
// Routing is fire-and-forget: nothing is returned to the caller, failures are logged and the block is dropped.
// No block is retried or queued.
package router

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/tarancss/canoed/lib/block/types"
	"github.com/tarancss/canoed/lib/metrics"
	"github.com/tarancss/canoed/lib/store"
)

// Router routes blocks. It holds no mutable state, so Route can be called concurrently.
type Router struct {
	dir    store.Directory
	pub    *Publisher
	logger *zap.Logger
}

// New returns a Router looking up wallets in dir and publishing with pub.
func New(dir store.Directory, pub *Publisher, logger *zap.Logger) *Router {
	return &Router{dir: dir, pub: pub, logger: logger}
}

// Topic returns the topic of the wallet for blocks of kind k. Kinds without an event return false.
func Topic(wallet string, k types.Kind) (string, bool) {
	ev, ok := k.Event()
	if !ok {
		return "", false
	}

	return "wallet/" + wallet + "/" + ev, true
}

// Route routes the callback body data.
func (r *Router) Route(ctx context.Context, data []byte) {
	b, err := types.Parse(data)
	if err != nil {
		if errors.Is(err, types.ErrUnknownType) {
			r.logger.Error("Unknown block type", zap.String("account", b.Account), zap.String("type", b.Contents.Type))
			metrics.Blocks.WithLabelValues("unknown", metrics.Unknown).Inc()

			return
		}

		r.logger.Error("Cannot parse block callback", zap.Error(err))
		metrics.Blocks.WithLabelValues("unknown", metrics.Malformed).Inc()

		return
	}

	r.logger.Debug("Block", zap.String("account", b.Account), zap.Stringer("type", b.Kind),
		zap.ByteString("amount", b.Amount))

	kind := b.Kind.String()

	subject, ok := b.Subject()
	if !ok {
		if b.Kind == types.Change {
			r.logger.Debug("A change block ignored", zap.String("account", b.Account))
		} else {
			r.logger.Warn("Block without account to notify", zap.Stringer("type", b.Kind), zap.String("hash", b.Hash))
		}

		metrics.Blocks.WithLabelValues(kind, metrics.Ignored).Inc()

		return
	}

	wallet, err := r.dir.Wallet(ctx, subject)
	if errors.Is(err, store.ErrNotFound) {
		metrics.Blocks.WithLabelValues(kind, metrics.Miss).Inc()

		return
	}

	if err != nil {
		r.logger.Error("Cannot look up wallet, block dropped", zap.String("account", subject),
			zap.Stringer("type", b.Kind), zap.Error(err))
		metrics.Blocks.WithLabelValues(kind, metrics.LookupError).Inc()

		return
	}

	topic, _ := Topic(wallet, b.Kind)
	if !r.pub.Publish(topic, data) {
		metrics.Blocks.WithLabelValues(kind, metrics.PublishErr).Inc()

		return
	}

	metrics.Blocks.WithLabelValues(kind, metrics.Published).Inc()
}
