package router

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/tarancss/canoed/lib/block/types"
	"github.com/tarancss/canoed/lib/metrics"
	"github.com/tarancss/canoed/lib/msg"
	"github.com/tarancss/canoed/lib/store"
)

// mockDirectory is an in-memory account directory. err is returned by every lookup when set.
type mockDirectory struct {
	m   map[string]string
	err error
}

func (d *mockDirectory) Wallet(_ context.Context, account string) (string, error) {
	if d.err != nil {
		return "", d.err
	}

	w, ok := d.m[account]
	if !ok {
		return "", store.ErrNotFound
	}

	return w, nil
}

func (d *mockDirectory) Register(_ context.Context, account, wallet string) error {
	d.m[account] = wallet

	return nil
}

func (d *mockDirectory) Close() error { return nil }

type published struct {
	topic   string
	payload string
	opts    msg.Opts
}

// mockBroker records the published messages.
type mockBroker struct {
	mu  sync.Mutex
	got []published
	err error
}

func (b *mockBroker) Setup() error { return nil }
func (b *mockBroker) Close() error { return nil }

func (b *mockBroker) Publish(topic string, payload []byte, opts msg.Opts) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.err != nil {
		return b.err
	}

	b.got = append(b.got, published{topic, string(payload), opts})

	return nil
}

func (b *mockBroker) Subscribe(string, msg.Handler) error { return nil }

func newTestRouter(t *testing.T, dir map[string]string) (*Router, *mockDirectory, *mockBroker) {
	t.Helper()

	d := &mockDirectory{m: dir}
	mb := &mockBroker{}
	logger := zaptest.NewLogger(t)

	return New(d, NewPublisher(mb, msg.Opts{QoS: 2}, logger), logger), d, mb
}

func TestRoute(t *testing.T) {
	dir := map[string]string{"A1": "W1", "A2": "W2", "A3": "W3", "A4": "W4"}

	cases := []struct {
		name  string
		block string
		topic string // empty when nothing must be published
	}{
		{"open", `{"account":"A1","amount":"5","block":"{\"type\":\"open\"}"}`, "wallet/W1/open"},
		{"open_numeric_amount", `{"account":"A1","amount":5,"block":"{\"type\":\"open\"}"}`, "wallet/W1/open"},
		{"receive_big_amount", `{"account":"A4","amount":1000000000000000000000000000000,"block":{"type":"receive"}}`,
			"wallet/W4/receive"},
		{"receive", `{"account":"A4","block":"{\"type\":\"receive\"}"}`, "wallet/W4/receive"},
		{"send_to_recipient", `{"account":"A1","destination":"A2","block":"{\"type\":\"send\"}"}`, "wallet/W2/send"},
		{"send_nested_dest", `{"account":"A1","block":{"type":"send","destination":"A3"}}`, "wallet/W3/send"},
		{"send_unmapped_dest", `{"account":"A1","destination":"A9","block":"{\"type\":\"send\"}"}`, ""},
		{"change", `{"account":"A3","block":"{\"type\":\"change\"}"}`, ""},
		{"unknown_type", `{"account":"A1","block":"{\"type\":\"epoch\"}"}`, ""},
		{"miss", `{"account":"A7","block":"{\"type\":\"open\"}"}`, ""},
		{"malformed", `{"account":"A1","block":`, ""},
		{"malformed_nested", `{"account":"A1","block":"{\"type\""}`, ""},
		{"no_block", `{"account":"A1"}`, ""},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r, _, mb := newTestRouter(t, dir)

			r.Route(context.Background(), []byte(c.block))

			if c.topic == "" {
				assert.Empty(t, mb.got)

				return
			}

			require.Len(t, mb.got, 1)
			assert.Equal(t, c.topic, mb.got[0].topic)
			assert.Equal(t, c.block, mb.got[0].payload, "payload must be the untouched callback")
			assert.Equal(t, msg.Opts{QoS: 2}, mb.got[0].opts)
		})
	}
}

func TestRouteLookupError(t *testing.T) {
	r, d, mb := newTestRouter(t, map[string]string{"A1": "W1"})
	d.err = errors.New("connection refused")

	before := testutil.ToFloat64(metrics.Blocks.WithLabelValues("open", metrics.LookupError))

	assert.NotPanics(t, func() {
		r.Route(context.Background(), []byte(`{"account":"A1","block":"{\"type\":\"open\"}"}`))
	})
	assert.Empty(t, mb.got)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.Blocks.WithLabelValues("open", metrics.LookupError)))

	// the next block is routed once the directory is back
	d.err = nil
	r.Route(context.Background(), []byte(`{"account":"A1","block":"{\"type\":\"open\"}"}`))
	assert.Len(t, mb.got, 1)
}

func TestRoutePublishError(t *testing.T) {
	r, _, mb := newTestRouter(t, map[string]string{"A1": "W1"})
	mb.err = msg.ErrClosed

	before := testutil.ToFloat64(metrics.Blocks.WithLabelValues("open", metrics.PublishErr))

	r.Route(context.Background(), []byte(`{"account":"A1","block":"{\"type\":\"open\"}"}`))
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.Blocks.WithLabelValues("open", metrics.PublishErr)))
}

func TestRouteConcurrent(t *testing.T) {
	r, _, mb := newTestRouter(t, map[string]string{"A1": "W1", "A2": "W2"})

	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			if i%2 == 0 {
				r.Route(context.Background(), []byte(`{"account":"A1","block":"{\"type\":\"open\"}"}`))
			} else {
				r.Route(context.Background(), []byte(`{"account":"A1","destination":"A2","block":"{\"type\":\"send\"}"}`))
			}
		}(i)
	}

	wg.Wait()

	require.Len(t, mb.got, 50)

	counts := map[string]int{}
	for _, p := range mb.got {
		counts[p.topic]++
	}

	assert.Equal(t, map[string]int{"wallet/W1/open": 25, "wallet/W2/send": 25}, counts)
}

func TestTopic(t *testing.T) {
	topic, ok := Topic("W1", types.Receive)
	assert.True(t, ok)
	assert.Equal(t, "wallet/W1/receive", topic)

	_, ok = Topic("W1", types.Change)
	assert.False(t, ok)
}
