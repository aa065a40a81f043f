package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"go.uber.org/zap"

	"github.com/tarancss/canoed/account"
	"github.com/tarancss/canoed/lib/metrics"
)

// maxBody is the largest request body accepted.
const maxBody = 100 << 10

// Errors returned to client requests.
var (
	ErrBadRequest    = errors.New("bad request")
	ErrUnknownAction = errors.New("unknown action")
	ErrNoWallet      = errors.New("wallet and accounts are required")
	ErrBadStatus     = errors.New("server status is not valid JSON")
)

// ErrorResponse is replied when an action fails.
type ErrorResponse struct {
	Error string `json:"error"`
}

// request is the part of the RPC body common to all actions.
type request struct {
	Action string `json:"action"`
}

// AccountReq is the create_account request.
type AccountReq struct {
	Token     string `json:"token"`
	TokenPass string `json:"tokenpass"`
}

// ServerMapReq is the update_server_map request: the accounts owned by wallet.
type ServerMapReq struct {
	Wallet   string   `json:"wallet"`
	Accounts []string `json:"accounts"`
}

// reply writes v as the JSON response. json.RawMessage values are written untouched.
func reply(rw http.ResponseWriter, status int, v interface{}) {
	rw.Header().Set("Content-Type", "application/json;charset=utf8")
	rw.WriteHeader(status)

	if raw, ok := v.(json.RawMessage); ok {
		_, _ = rw.Write(raw)

		return
	}

	_ = json.NewEncoder(rw).Encode(v)
}

// readBody reads the request body. Bodies are always JSON whatever their content type, node callbacks come
// without one.
func readBody(rw http.ResponseWriter, r *http.Request) ([]byte, error) {
	return io.ReadAll(http.MaxBytesReader(rw, r.Body, maxBody))
}

// callbackHandler acknowledges a node callback and hands the block to the routing workers. The node always gets
// an empty JSON object, whatever happens to the block.
func (b *Bridge) callbackHandler(rw http.ResponseWriter, r *http.Request) {
	data, err := readBody(rw, r)
	if err != nil {
		b.logger.Error("Cannot read callback", zap.String("remote", r.RemoteAddr), zap.Error(err))
	} else {
		b.pool.Submit(func() {
			b.svc.Router.Route(b.ctx, data)
		})
	}

	reply(rw, http.StatusOK, struct{}{})
}

// rpcHandler dispatches the RPC actions. Action failures are replied as an ErrorResponse.
func (b *Bridge) rpcHandler(rw http.ResponseWriter, r *http.Request) {
	var req request

	data, err := readBody(rw, r)
	if err == nil {
		err = json.Unmarshal(data, &req)
	}

	if err != nil {
		b.logger.Debug("Bad RPC request", zap.String("remote", r.RemoteAddr), zap.Error(err))
		reply(rw, http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("%s: %s", ErrBadRequest, err)})

		return
	}

	act, ok := ParseAction(req.Action)
	metrics.Requests.WithLabelValues(act.String()).Inc()

	if !ok {
		b.logger.Debug("Unknown action", zap.String("action", req.Action))
		reply(rw, http.StatusOK, ErrorResponse{Error: ErrUnknownAction.Error()})

		return
	}

	res, err := b.dispatch(r.Context(), act, data)
	if err != nil {
		b.logger.Debug("Action failed", zap.Stringer("action", act), zap.Error(err))
		reply(rw, http.StatusOK, ErrorResponse{Error: reason(err)})

		return
	}

	reply(rw, http.StatusOK, res)
}

func (b *Bridge) dispatch(ctx context.Context, act Action, data []byte) (interface{}, error) {
	switch act {
	case CreateAccount:
		return b.createAccount(ctx, data)
	case CanoeServerStatus:
		return b.canoeServerStatus()
	case QuotaFull:
		return map[string]bool{"full": false}, nil
	case UpdateServerMap:
		return b.updateServerMap(ctx, data)
	case AvailableSupply:
		return b.svc.Node.Call(ctx, data)
	}

	return nil, ErrUnknownAction
}

// reason returns the message replied for err. Store failures are not detailed to clients.
func reason(err error) string {
	for _, e := range []error{account.ErrAccountExists, account.ErrFailed, account.ErrBadSecret} {
		if errors.Is(err, e) {
			return e.Error()
		}
	}

	return err.Error()
}

// createAccount creates the credentials of a new account.
func (b *Bridge) createAccount(ctx context.Context, data []byte) (interface{}, error) {
	var req AccountReq
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}

	if err := b.svc.Accounts.CreateAccount(ctx, req.Token, req.TokenPass); err != nil {
		return nil, err
	}

	return struct{}{}, nil
}

// canoeServerStatus replies the status document if present, so wallets can show a message when calls fail.
func (b *Bridge) canoeServerStatus() (interface{}, error) {
	status, err := os.ReadFile(b.statusFile)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{"status": "ok"}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("cannot read server status: %w", err)
	}

	if !json.Valid(status) {
		return nil, ErrBadStatus
	}

	return json.RawMessage(status), nil
}

// updateServerMap registers the accounts of a wallet in the account directory. Blocks of the accounts are
// routed to the wallet as soon as this returns.
func (b *Bridge) updateServerMap(ctx context.Context, data []byte) (interface{}, error) {
	var req ServerMapReq
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}

	if req.Wallet == "" || len(req.Accounts) == 0 {
		return nil, ErrNoWallet
	}

	for _, acc := range req.Accounts {
		if acc == "" {
			return nil, ErrNoWallet
		}
	}

	for _, acc := range req.Accounts {
		if err := b.svc.Directory.Register(ctx, acc, req.Wallet); err != nil {
			b.logger.Error("Cannot register account", zap.String("account", acc), zap.Error(err))

			return nil, fmt.Errorf("cannot register account %s", acc)
		}
	}

	b.logger.Info("Server map updated", zap.String("wallet", req.Wallet), zap.Int("accounts", len(req.Accounts)))

	return map[string]string{"status": "ok"}, nil
}
