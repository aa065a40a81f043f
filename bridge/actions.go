package bridge

// Action is an RPC action. The set is closed: ParseAction only returns the constants below.
type Action int

// RPC actions offered to Canoe.
const (
	CreateAccount Action = iota + 1
	CanoeServerStatus
	QuotaFull
	UpdateServerMap
	AvailableSupply
)

var actions = map[string]Action{ //nolint:gochecknoglobals // lookup table
	"create_account":      CreateAccount,
	"canoe_server_status": CanoeServerStatus,
	"quota_full":          QuotaFull,
	"update_server_map":   UpdateServerMap,
	"available_supply":    AvailableSupply,
}

// ParseAction returns the action named s.
func ParseAction(s string) (Action, bool) {
	a, ok := actions[s]

	return a, ok
}

func (a Action) String() string {
	for name, v := range actions {
		if v == a {
			return name
		}
	}

	return "unknown"
}
