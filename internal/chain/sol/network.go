package sol

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"

	"github.com/mrz1836/linkbridge/internal/chain"
	linkerr "github.com/mrz1836/linkbridge/pkg/errors"
)

// DefaultRPCEndpoint is the public mainnet endpoint used when none is configured.
const DefaultRPCEndpoint = rpc.MainNetBeta_RPC

// Network is the chain access the strategy needs besides the wallet.
type Network interface {
	AccountExists(ctx context.Context, account solana.PublicKey) (bool, error)
	LatestBlockhash(ctx context.Context) (solana.Hash, error)
	SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
}

// RPCNetwork is a Network backed by a Solana JSON-RPC node.
type RPCNetwork struct {
	client *rpc.Client
	retry  chain.RetryConfig
}

// NewRPCNetwork creates a network client for the endpoint.
func NewRPCNetwork(endpoint string) *RPCNetwork {
	if endpoint == "" {
		endpoint = DefaultRPCEndpoint
	}
	return &RPCNetwork{
		client: rpc.New(endpoint),
		retry:  chain.DefaultRetryConfig(),
	}
}

// AccountExists reports whether the account is allocated on chain.
func (n *RPCNetwork) AccountExists(ctx context.Context, account solana.PublicKey) (bool, error) {
	return chain.RetryWithConfig(ctx, n.retry, func() (bool, error) {
		_, err := n.client.GetAccountInfo(ctx, account)
		if errors.Is(err, rpc.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, classify(err, "get account info")
		}
		return true, nil
	})
}

// LatestBlockhash fetches a finalized blockhash.
func (n *RPCNetwork) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	return chain.RetryWithConfig(ctx, n.retry, func() (solana.Hash, error) {
		res, err := n.client.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
		if err != nil {
			return solana.Hash{}, classify(err, "get latest blockhash")
		}
		return res.Value.Blockhash, nil
	})
}

// SendTransaction broadcasts a signed transaction. Resending the same signed
// transaction is idempotent, so transport failures are retried.
func (n *RPCNetwork) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	return chain.RetryWithConfig(ctx, n.retry, func() (solana.Signature, error) {
		sig, err := n.client.SendTransaction(ctx, tx)
		if err != nil {
			return solana.Signature{}, classify(err, "send transaction")
		}
		return sig, nil
	})
}

// classify marks transport failures retryable. Node-side JSON-RPC errors
// are final.
func classify(err error, op string) error {
	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) {
		return linkerr.WithDetails(linkerr.WithCause(linkerr.ErrProviderFailure, err), map[string]string{
			"operation": op,
			"message":   rpcErr.Message,
		})
	}
	return chain.WrapRetryable(linkerr.Wrap(err, "%s", op))
}
