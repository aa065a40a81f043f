// Package metrics defines the Prometheus collectors exported by the service at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Block routing outcomes.
const (
	Published   = "published"
	Miss        = "miss"
	Ignored     = "ignored"
	Malformed   = "malformed"
	Unknown     = "unknown"
	LookupError = "lookup_error"
	PublishErr  = "publish_error"
)

// Account provisioning outcomes.
const (
	Created = "created"
	Exists  = "exists"
	Failed  = "failed"
)

var (
	// Blocks counts the node callbacks by block type and routing outcome.
	Blocks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "canoed",
		Name:      "blocks_total",
		Help:      "Block callbacks received by type and routing outcome.",
	}, []string{"type", "outcome"})

	// Accounts counts create_account requests by outcome.
	Accounts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "canoed",
		Name:      "accounts_total",
		Help:      "Account provisioning requests by outcome.",
	}, []string{"outcome"})

	// Requests counts RPC requests by action.
	Requests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "canoed",
		Name:      "rpc_requests_total",
		Help:      "RPC requests received by action.",
	}, []string{"action"})
)
