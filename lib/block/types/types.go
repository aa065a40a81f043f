// Package types defines the blocks delivered by the node callback.
package types

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind is the type of a block. The set is closed: ParseKind only returns the constants below.
type Kind int

// Block kinds.
const (
	Open Kind = iota + 1
	Send
	Receive
	Change
)

var kinds = map[string]Kind{ //nolint:gochecknoglobals // lookup table
	"open":    Open,
	"send":    Send,
	"receive": Receive,
	"change":  Change,
}

// ParseKind returns the Kind named s or ErrUnknownType.
func ParseKind(s string) (Kind, error) {
	if k, ok := kinds[s]; ok {
		return k, nil
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownType, s)
}

func (k Kind) String() string {
	switch k {
	case Open:
		return "open"
	case Send:
		return "send"
	case Receive:
		return "receive"
	case Change:
		return "change"
	}

	return "unknown"
}

// Event returns the topic event of blocks of this kind. Change blocks are not delivered to wallets and have no
// event.
func (k Kind) Event() (string, bool) {
	switch k {
	case Open, Send, Receive:
		return k.String(), true
	case Change:
	}

	return "", false
}

// Callback is the body the node POSTs for every confirmed block. Block holds the block contents, either as a
// JSON encoded string or as a JSON object depending on the node version. Amount is kept raw, nodes send it as a
// string or as a number.
type Callback struct {
	Account     string          `json:"account"`
	Hash        string          `json:"hash,omitempty"`
	Amount      json.RawMessage `json:"amount,omitempty"`
	Destination string          `json:"destination,omitempty"`
	Block       json.RawMessage `json:"block"`
}

// Contents holds the fields of the nested block that routing needs.
type Contents struct {
	Type        string `json:"type"`
	Account     string `json:"account,omitempty"`
	Destination string `json:"destination,omitempty"`
	Previous    string `json:"previous,omitempty"`
	Source      string `json:"source,omitempty"`
	Balance     string `json:"balance,omitempty"`
}

// Block is a parsed callback.
type Block struct {
	Callback
	Contents Contents
	Kind     Kind
}

// Errors returned when parsing callbacks.
var (
	ErrBadBlock    = errors.New("unable to decode callback data into Block type")
	ErrNoContents  = errors.New("callback data does not contain a block")
	ErrUnknownType = errors.New("unknown block type")
)

// Parse decodes a callback body and its nested block. An unknown block type returns the parsed block together
// with ErrUnknownType so the caller can still log its fields.
func Parse(data []byte) (Block, error) {
	var b Block

	if err := json.Unmarshal(data, &b.Callback); err != nil {
		return b, fmt.Errorf("%w: %v", ErrBadBlock, err)
	}

	if len(b.Block) == 0 || string(b.Block) == "null" {
		return b, ErrNoContents
	}

	raw := []byte(b.Block)
	// legacy nodes send the block as a JSON encoded string
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		raw = []byte(s)
	}

	if err := json.Unmarshal(raw, &b.Contents); err != nil {
		return b, fmt.Errorf("%w: nested block: %v", ErrBadBlock, err)
	}

	var err error
	b.Kind, err = ParseKind(b.Contents.Type)

	return b, err
}

// Subject returns the account whose wallet must be notified of the block: the recipient for send blocks and the
// block account otherwise. Change blocks have no subject.
func (b Block) Subject() (string, bool) {
	var acc string

	switch b.Kind {
	case Open, Receive:
		acc = b.Account
		if acc == "" {
			acc = b.Contents.Account
		}
	case Send:
		acc = b.Destination
		if acc == "" {
			acc = b.Contents.Destination
		}
	case Change:
		return "", false
	}

	return acc, acc != ""
}
