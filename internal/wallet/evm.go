package wallet

import (
	"context"
	"encoding/json"

	"github.com/mrz1836/linkbridge/internal/chain/evm/rpc"
	"github.com/mrz1836/linkbridge/internal/provider"
)

// approvalMethods are the EIP-1193 methods that sign or change the
// wallet's state, with the action shown in the prompt. Other calls go
// straight to the node.
var approvalMethods = map[string]string{ //nolint:gochecknoglobals // lookup table
	"eth_requestAccounts":        "connect",
	"eth_sendTransaction":        "send a transaction",
	"eth_signTransaction":        "sign a transaction",
	"eth_sign":                   "sign raw data",
	"personal_sign":              "sign a message",
	"eth_signTypedData_v4":       "sign typed data",
	"wallet_switchEthereumChain": "switch network",
	"wallet_addEthereumChain":    "add a network",
	"wallet_sendCalls":           "send a batch of calls",
	"wallet_requestPermissions":  "grant permissions",
	"wallet_revokePermissions":   "revoke permissions",
	"wallet_watchAsset":          "watch an asset",
}

// RPCWallet is an EIP-1193 provider backed by a node that manages its own
// accounts, such as a development node or a signer proxy. Requests that
// sign or change state are approved first.
type RPCWallet struct {
	name     string
	client   *rpc.Client
	approver Approver
}

// NewRPCWallet creates a wallet forwarding to the JSON-RPC endpoint.
func NewRPCWallet(name, endpoint, brand string, approver Approver) *RPCWallet {
	return &RPCWallet{
		name:     name,
		client:   rpc.NewClient(endpoint, rpc.WithFlags(BrandFlags(brand))),
		approver: approver,
	}
}

// Name returns the configured wallet name.
func (w *RPCWallet) Name() string {
	return w.name
}

// Flags implements provider.Flagged.
func (w *RPCWallet) Flags() provider.Flags {
	return w.client.Flags()
}

// Request implements provider.EVM.
func (w *RPCWallet) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	if action, ok := approvalMethods[method]; ok {
		detail, _ := json.Marshal(params)
		approved, err := w.approver.Approve(ctx, Request{Wallet: w.name, Action: action, Detail: string(detail)})
		if err != nil {
			return nil, err
		}
		if !approved {
			return nil, errRejected
		}
	}

	// Nodes that manage accounts answer eth_requestAccounts as eth_accounts.
	if method == "eth_requestAccounts" {
		method = "eth_accounts"
	}
	return w.client.Request(ctx, method, params...)
}

// Close releases idle connections.
func (w *RPCWallet) Close() {
	w.client.Close()
}
