package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cases := []struct {
		name    string
		data    string
		kind    Kind
		subject string
		ok      bool
		err     error
	}{
		{"open_string", `{"account":"A1","amount":"10","block":"{\"type\":\"open\"}"}`, Open, "A1", true, nil},
		{"open_number", `{"account":"A1","amount":10,"block":"{\"type\":\"open\"}"}`, Open, "A1", true, nil},
		{"open_object", `{"account":"A1","block":{"type":"open","account":"A1"}}`, Open, "A1", true, nil},
		{"receive", `{"account":"A4","block":"{\"type\":\"receive\",\"source\":\"xx\"}"}`, Receive, "A4", true, nil},
		{"send_top", `{"account":"A1","destination":"A2","block":"{\"type\":\"send\"}"}`, Send, "A2", true, nil},
		{"send_nested", `{"account":"A1","block":"{\"type\":\"send\",\"destination\":\"A5\"}"}`, Send, "A5", true, nil},
		{"send_no_dest", `{"account":"A1","block":"{\"type\":\"send\"}"}`, Send, "", false, nil},
		{"change", `{"account":"A3","block":"{\"type\":\"change\"}"}`, Change, "", false, nil},
		{"unknown", `{"account":"A3","block":"{\"type\":\"state\"}"}`, 0, "", false, ErrUnknownType},
		{"no_block", `{"account":"A3"}`, 0, "", false, ErrNoContents},
		{"null_block", `{"account":"A3","block":null}`, 0, "", false, ErrNoContents},
		{"bad_json", `{"account":`, 0, "", false, ErrBadBlock},
		{"bad_nested", `{"account":"A3","block":"{type"}`, 0, "", false, ErrBadBlock},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			b, err := Parse([]byte(c.data))
			if c.err != nil {
				require.ErrorIs(t, err, c.err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, c.kind, b.Kind)

			subject, ok := b.Subject()
			assert.Equal(t, c.ok, ok)
			assert.Equal(t, c.subject, subject)
		})
	}
}

func TestParseAmount(t *testing.T) {
	b, err := Parse([]byte(`{"account":"A1","amount":340282366920938463463374607431768211455,"block":{"type":"open"}}`))
	require.NoError(t, err)
	assert.Equal(t, "340282366920938463463374607431768211455", string(b.Amount))

	b, err = Parse([]byte(`{"account":"A1","amount":"10","block":{"type":"open"}}`))
	require.NoError(t, err)
	assert.Equal(t, `"10"`, string(b.Amount))
}

func TestKind(t *testing.T) {
	for _, name := range []string{"open", "send", "receive", "change"} {
		k, err := ParseKind(name)
		require.NoError(t, err)
		assert.Equal(t, name, k.String())
	}

	ev, ok := Send.Event()
	assert.True(t, ok)
	assert.Equal(t, "send", ev)

	_, ok = Change.Event()
	assert.False(t, ok)

	_, ok = Kind(0).Event()
	assert.False(t, ok)
	assert.Equal(t, "unknown", Kind(42).String())

	_, err := ParseKind("OPEN")
	assert.ErrorIs(t, err, ErrUnknownType)
}
