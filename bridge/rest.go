package bridge

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const timeout = 15

// Handler returns the API definition.
func (b *Bridge) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/rpc", b.rpcHandler).Methods("POST")           // actions of Canoe wallets
	r.HandleFunc("/callback", b.callbackHandler).Methods("POST") // node block callbacks

	return r
}

// Init sets up and starts the http server on the specified endpoint and port. It returns once Stop has been
// called or the server could not be started.
func (b *Bridge) Init(endpoint, port string) string {
	var err error

	s := &http.Server{
		Handler: b.Handler(),
		Addr:    endpoint + ":" + port,
		// Good practice: enforce timeouts for servers you create!
		WriteTimeout: timeout * time.Second,
		ReadTimeout:  timeout * time.Second,
	}

	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()

		return fmt.Sprintf("shutdown http server, err:%v", err)
	}

	b.s = s
	b.mu.Unlock()

	done := make(chan struct{})

	go func() {
		defer close(done)

		if err = s.ListenAndServe(); errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
	}()

	b.logger.Info("Listening to http requests", zap.String("endpoint", endpoint), zap.String("port", port))

	// wait for server to be shutdown or to fail
	select {
	case <-b.sc:
		<-done
	case <-done:
	}

	return fmt.Sprintf("shutdown http server, err:%v", err)
}
