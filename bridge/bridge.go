// Package bridge implements the canoed microservice.
//
// The bridge serves two HTTP endpoints: /callback, where the node posts every confirmed block, and /rpc, where
// Canoe wallets send their actions. Blocks are acknowledged immediately and routed to the wallets by a pool of
// workers. The bridge also consumes the control topic of the message broker.
package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"

	"github.com/tarancss/canoed/lib/block"
	"github.com/tarancss/canoed/lib/msg"
	"github.com/tarancss/canoed/lib/store"
)

// ControlTopic is the broker topic carrying control messages for the bridge.
const ControlTopic = "canoecontrol"

// Provisioner creates wallet accounts.
type Provisioner interface {
	CreateAccount(ctx context.Context, token, tokenSecret string) error
}

// Router routes block callbacks.
type Router interface {
	Route(ctx context.Context, data []byte)
}

// Services are the collaborators of the bridge.
type Services struct {
	Accounts  Provisioner
	Router    Router
	Node      block.Node
	Directory store.Directory
	Broker    msg.Broker
}

// Bridge contains the data necessary to deliver the service
type Bridge struct {
	svc        Services
	statusFile string
	logger     *zap.Logger

	pool   pond.Pool       // block routing workers
	ctx    context.Context // context of the routing work, cancelled on Stop
	cancel context.CancelFunc

	mu      sync.Mutex
	s       *http.Server  // http server
	stopped bool          // set by Stop, so a later Init does not serve
	sc      chan struct{} // http server channel used for graceful shutdowns
	once    sync.Once
}

// New returns a pointer to a new Bridge service. Up to workers blocks are routed concurrently and statusFile is
// the document replied to canoe_server_status.
func New(svc Services, workers int, statusFile string, logger *zap.Logger) *Bridge {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Bridge{
		svc:        svc,
		statusFile: statusFile,
		logger:     logger,
		pool:       pond.NewPool(workers),
		ctx:        ctx,
		cancel:     cancel,
		sc:         make(chan struct{}),
	}
}

// Stop shuts down the http server, waits for the blocks being routed and releases Init. It can be called more
// than once.
func (b *Bridge) Stop() {
	b.once.Do(func() {
		b.mu.Lock()
		b.stopped = true
		s := b.s
		b.mu.Unlock()

		if s != nil {
			if err := s.Shutdown(context.Background()); err != nil {
				b.logger.Error("Error in http server shutdown", zap.Error(err))
			}
		}

		b.pool.StopAndWait()
		b.cancel()
		close(b.sc) // close server channel to indicate shutdowns have finished
	})
}

// ManageControl subscribes to the control topic.
func (b *Bridge) ManageControl() error {
	return b.svc.Broker.Subscribe(ControlTopic, b.handleMessage)
}

// handleMessage is where all subscribed messages come in.
func (b *Bridge) handleMessage(topic string, payload []byte) {
	switch topic {
	case ControlTopic:
		b.handleControl(payload)

		return
	}

	b.logger.Error("No handler for topic", zap.String("topic", topic))
}

// handleControl parses control messages. No control command is acted upon yet.
func (b *Bridge) handleControl(payload []byte) {
	var control map[string]interface{}
	if err := json.Unmarshal(payload, &control); err != nil {
		b.logger.Error("Cannot parse control message", zap.Error(err))

		return
	}

	b.logger.Debug("Parsed control", zap.Any("control", control))
}
