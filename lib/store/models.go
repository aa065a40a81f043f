package store

import "encoding/json"

// AccountCredential contains the fields of a vmq_auth_acl row. ClientID and Username are both the account and
// Password holds the bcrypt hash of the account secret.
type AccountCredential struct {
	Mountpoint   string          `json:"mountpoint"`
	ClientID     string          `json:"client_id"`
	Username     string          `json:"username"`
	Password     string          `json:"-"`
	PublishACL   json.RawMessage `json:"publish_acl"`
	SubscribeACL json.RawMessage `json:"subscribe_acl"`
}
