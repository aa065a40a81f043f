// Package canoed and its sub-packages implement the backend bridge between a Nano node and Canoe wallets.
/*
canoed is a single microservice (cmd/canoed) that sits between a node and the wallets that use it.

Architecture

The node is configured to POST a callback for every confirmed block. The bridge acknowledges the callback at
once and hands the block to the router (package router), which classifies it by block type, works out which
account the block concerns, looks up the wallet owning that account in the account directory and republishes
the untouched block on the wallet topic wallet/<wallet>/<event> of the message broker. Wallets subscribe to
their topics and are notified in real-time. The message broker is implemented as a product agnostic layer
(package lib/msg) with MQTT and AMQP implementations selected in the JSON config file.

Wallets authenticate against the broker with credentials kept in a PostgreSQL table read by the broker's
authentication plugin (vmq_auth_acl). The create_account RPC action (package account) provisions one salted,
hashed credential row per account with the publish/subscribe ACL templates given in the config.

The account directory (package lib/store) maps accounts to wallets. It lives in Redis or MongoDB and is
populated with the update_server_map RPC action.

Other RPC actions are relayed to the node (available_supply) or answered locally (canoe_server_status,
quota_full).

The microservice can also be monitored via a Prometheus API by setting the flag "-m" at startup.
*/
package canoed
