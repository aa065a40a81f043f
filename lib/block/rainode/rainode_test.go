package rainode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockHandler answers like the node: it echoes the action it was asked for.
var mockHandler = func(w http.ResponseWriter, r *http.Request) {
	var req map[string]interface{}

	body, _ := io.ReadAll(r.Body)
	if err := json.Unmarshal(body, &req); err != nil {
		w.WriteHeader(http.StatusBadRequest)

		return
	}

	switch req["action"] {
	case "available_supply":
		_, _ = w.Write([]byte(`{"available":"133248061996216572282917317807824970865"}`))
	case "garbage":
		_, _ = w.Write([]byte(`not json`))
	case "slow":
		time.Sleep(300 * time.Millisecond)
		_, _ = w.Write([]byte(`{}`))
	default:
		_, _ = w.Write([]byte(`{"error":"Unknown command"}`))
	}
}

func TestCall(t *testing.T) {
	mock := httptest.NewServer(http.HandlerFunc(mockHandler))
	defer mock.Close()

	n := New(mock.URL, 100*time.Millisecond)

	cases := []struct {
		name string
		req  string
		res  string
		err  error
	}{
		{"supply", `{"action":"available_supply"}`, `{"available":"133248061996216572282917317807824970865"}`, nil},
		{"node_error", `{"action":"nope"}`, `{"error":"Unknown command"}`, nil},
		{"garbage", `{"action":"garbage"}`, "", ErrBadAnswer},
		{"status", `{"action"`, "", ErrStatus},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			res, err := n.Call(context.Background(), []byte(c.req))
			if c.err != nil {
				assert.ErrorIs(t, err, c.err)

				return
			}

			require.NoError(t, err)
			assert.JSONEq(t, c.res, string(res))
		})
	}
}

func TestCallTimeout(t *testing.T) {
	mock := httptest.NewServer(http.HandlerFunc(mockHandler))
	defer mock.Close()

	_, err := New(mock.URL, 50*time.Millisecond).Call(context.Background(), []byte(`{"action":"slow"}`))
	assert.Error(t, err)
}

func TestCallUnreachable(t *testing.T) {
	_, err := New("http://127.0.0.1:1", time.Second).Call(context.Background(), []byte(`{}`))
	assert.Error(t, err)
}
