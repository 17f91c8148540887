package evm_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/linkbridge/internal/chain"
	"github.com/mrz1836/linkbridge/internal/chain/evm"
	"github.com/mrz1836/linkbridge/internal/discovery"
	"github.com/mrz1836/linkbridge/internal/provider"
	linkerr "github.com/mrz1836/linkbridge/pkg/errors"
)

const (
	account   = "0x742d35Cc6634C0532925a3b844Bc454e4438f44e"
	recipient = "0x8ba1f109551bD432803012645Ac136ddd64DBA72"
	txHash    = "0x5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b22060"
)

type handler func(params []any) (any, error)

// scriptedWallet answers EIP-1193 requests from a method table.
type scriptedWallet struct {
	mu       sync.Mutex
	flags    provider.Flags
	handlers map[string]handler
	calls    []string
	params   map[string][]any
}

func newWallet(flags provider.Flags) *scriptedWallet {
	w := &scriptedWallet{flags: flags, handlers: map[string]handler{}, params: map[string][]any{}}
	w.on("eth_accounts", func([]any) (any, error) { return []string{account}, nil })
	w.on("eth_chainId", func([]any) (any, error) { return "0x1", nil })
	w.on("eth_sendTransaction", func([]any) (any, error) { return txHash, nil })
	w.on("eth_getTransactionReceipt", func([]any) (any, error) {
		return map[string]any{"transactionHash": txHash, "status": "0x1", "blockNumber": "0x10"}, nil
	})
	w.on("eth_gasPrice", func([]any) (any, error) { return "0x64", nil })
	return w
}

func (w *scriptedWallet) on(method string, h handler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[method] = h
}

func (w *scriptedWallet) Flags() provider.Flags { return w.flags }

func (w *scriptedWallet) Request(_ context.Context, method string, params ...any) (json.RawMessage, error) {
	w.mu.Lock()
	w.calls = append(w.calls, method)
	w.params[method] = params
	h, ok := w.handlers[method]
	w.mu.Unlock()
	if !ok {
		return nil, &provider.Error{Code: provider.CodeUnsupportedMethod, Message: "method not supported: " + method}
	}
	res, err := h(params)
	if err != nil {
		return nil, err
	}
	return json.Marshal(res)
}

func (w *scriptedWallet) called(method string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, c := range w.calls {
		if c == method {
			n++
		}
	}
	return n
}

func (w *scriptedWallet) lastParams(method string) []any {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.params[method]
}

func newStrategy(t *testing.T, w *scriptedWallet) *evm.Strategy {
	t.Helper()
	env := discovery.NewEnvironment()
	env.Announce(provider.Announcement{UUID: "uuid-1", Name: "MetaMask", RDNS: "io.metamask", Provider: w})
	return evm.New(env,
		evm.WithRateLimiter(chain.NewRateLimiter(1000, 10)),
		evm.WithConfirmationTimeout(2*time.Second),
	)
}

func connect(t *testing.T, s *evm.Strategy) {
	t.Helper()
	_, err := s.Connect(context.Background(), chain.ConnectRequest{IntegrationName: "MetaMask"})
	require.NoError(t, err)
}

func txParam(t *testing.T, w *scriptedWallet) map[string]any {
	t.Helper()
	params := w.lastParams("eth_sendTransaction")
	require.Len(t, params, 1)
	b, err := json.Marshal(params[0])
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	return m
}

func TestConnect_ExistingAccountsSkipPrompt(t *testing.T) {
	t.Parallel()
	w := newWallet(provider.Flags{IsMetaMask: true})
	s := newStrategy(t, w)

	res, err := s.Connect(context.Background(), chain.ConnectRequest{IntegrationName: "metamask"})
	require.NoError(t, err)
	assert.Equal(t, []string{account}, res.Accounts)
	assert.Equal(t, "1", res.ChainID.String())
	assert.True(t, res.IsConnected)
	assert.Equal(t, 0, w.called("eth_requestAccounts"))
}

func TestConnect_RequestsAccountsWhenNoneExposed(t *testing.T) {
	t.Parallel()
	w := newWallet(provider.Flags{})
	w.on("eth_accounts", func([]any) (any, error) { return []string{}, nil })
	w.on("eth_requestAccounts", func([]any) (any, error) { return []string{account}, nil })
	s := newStrategy(t, w)

	res, err := s.Connect(context.Background(), chain.ConnectRequest{IntegrationName: "MetaMask"})
	require.NoError(t, err)
	assert.Equal(t, []string{account}, res.Accounts)
	assert.Equal(t, 1, w.called("eth_requestAccounts"))
}

func TestConnect_SwitchesToTargetChain(t *testing.T) {
	t.Parallel()
	w := newWallet(provider.Flags{})
	var mu sync.Mutex
	current := "0x1"
	w.on("eth_chainId", func([]any) (any, error) {
		mu.Lock()
		defer mu.Unlock()
		return current, nil
	})
	w.on("wallet_switchEthereumChain", func(params []any) (any, error) {
		mu.Lock()
		defer mu.Unlock()
		current = params[0].(map[string]string)["chainId"]
		return nil, nil
	})
	s := newStrategy(t, w)

	res, err := s.Connect(context.Background(), chain.ConnectRequest{IntegrationName: "MetaMask", TargetChainID: "137"})
	require.NoError(t, err)
	assert.Equal(t, "137", res.ChainID.String())
	assert.Equal(t, 1, w.called("wallet_switchEthereumChain"))
}

func TestConnect_Rejected(t *testing.T) {
	t.Parallel()
	w := newWallet(provider.Flags{})
	w.on("eth_accounts", func([]any) (any, error) { return []string{}, nil })
	w.on("eth_requestAccounts", func([]any) (any, error) {
		return nil, &provider.Error{Code: provider.CodeUserRejected, Message: "User rejected the request."}
	})
	s := newStrategy(t, w)

	_, err := s.Connect(context.Background(), chain.ConnectRequest{IntegrationName: "MetaMask"})
	require.ErrorIs(t, err, linkerr.ErrUserRejected)
	assert.Equal(t, "Transaction rejected by user", err.Error())
}

func TestSwitchChain(t *testing.T) {
	t.Parallel()

	t.Run("unrecognized chain", func(t *testing.T) {
		t.Parallel()
		w := newWallet(provider.Flags{})
		w.on("wallet_switchEthereumChain", func([]any) (any, error) {
			return nil, &provider.Error{Code: provider.CodeUnrecognizedChain, Message: "Unrecognized chain ID"}
		})
		s := newStrategy(t, w)
		connect(t, s)

		_, err := s.SwitchChain(context.Background(), chain.SwitchChainRequest{ChainID: "8453"})
		require.ErrorIs(t, err, linkerr.ErrChainNotConfigured)
	})

	t.Run("reads state afterwards", func(t *testing.T) {
		t.Parallel()
		w := newWallet(provider.Flags{})
		w.on("wallet_switchEthereumChain", func([]any) (any, error) {
			w.on("eth_chainId", func([]any) (any, error) { return "0x2105", nil })
			return nil, nil
		})
		s := newStrategy(t, w)
		connect(t, s)

		res, err := s.SwitchChain(context.Background(), chain.SwitchChainRequest{ChainID: "0x2105"})
		require.NoError(t, err)
		assert.Equal(t, "8453", res.ChainID.String())
		assert.Equal(t, []string{account}, res.Accounts)

		// The recorded chain follows the switch, so transfers proceed.
		_, err = s.SendNativeTransfer(context.Background(), chain.TransferRequest{
			ToAddress: recipient, Amount: "1", DecimalPlaces: 18, Account: account,
		})
		require.NoError(t, err)
	})
}

func TestSignMessage(t *testing.T) {
	t.Parallel()
	w := newWallet(provider.Flags{})
	w.on("personal_sign", func(params []any) (any, error) {
		assert.Equal(t, "0x68656c6c6f", params[0])
		assert.Equal(t, account, params[1])
		return "0xsignature", nil
	})
	s := newStrategy(t, w)
	connect(t, s)

	sig, err := s.SignMessage(context.Background(), chain.SignRequest{Address: account, Message: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "0xsignature", sig)
}

func TestSendNativeTransfer(t *testing.T) {
	t.Parallel()
	w := newWallet(provider.Flags{})
	s := newStrategy(t, w)
	connect(t, s)

	hash, err := s.SendNativeTransfer(context.Background(), chain.TransferRequest{
		ToAddress:     recipient,
		Amount:        "0.5",
		DecimalPlaces: 18,
		Account:       account,
		GasLimit:      "21000",
		MaxFeePerGas:  "0x3b9aca00",
	})
	require.NoError(t, err)
	assert.Equal(t, txHash, hash)

	tx := txParam(t, w)
	assert.Equal(t, "0x6f05b59d3b20000", tx["value"])
	assert.Equal(t, "0x5208", tx["gas"])
	assert.Equal(t, "0x3b9aca00", tx["maxFeePerGas"])
	assert.NotContains(t, tx, "gasPrice")
	assert.Equal(t, 0, w.called("eth_gasPrice"))
}

func TestSendNativeTransfer_Preconditions(t *testing.T) {
	t.Parallel()

	t.Run("no active provider", func(t *testing.T) {
		t.Parallel()
		s := newStrategy(t, newWallet(provider.Flags{}))
		_, err := s.SendNativeTransfer(context.Background(), chain.TransferRequest{ToAddress: recipient, Amount: "1"})
		require.ErrorIs(t, err, linkerr.ErrNoActiveProvider)
	})

	t.Run("network changed since connect", func(t *testing.T) {
		t.Parallel()
		w := newWallet(provider.Flags{})
		s := newStrategy(t, w)
		connect(t, s)
		w.on("eth_chainId", func([]any) (any, error) { return "0x89", nil })

		_, err := s.SendNativeTransfer(context.Background(), chain.TransferRequest{ToAddress: recipient, Amount: "1", Account: account})
		require.ErrorIs(t, err, linkerr.ErrNetworkChanged)
		assert.Equal(t, 0, w.called("eth_sendTransaction"))
	})

	t.Run("invalid recipient", func(t *testing.T) {
		t.Parallel()
		s := newStrategy(t, newWallet(provider.Flags{}))
		connect(t, s)
		_, err := s.SendNativeTransfer(context.Background(), chain.TransferRequest{ToAddress: "0x123", Amount: "1"})
		require.ErrorIs(t, err, linkerr.ErrInvalidAddress)
	})

	t.Run("rejected by wallet", func(t *testing.T) {
		t.Parallel()
		w := newWallet(provider.Flags{})
		w.on("eth_sendTransaction", func([]any) (any, error) {
			return nil, errors.New("MetaMask Tx Signature: User denied transaction signature.")
		})
		s := newStrategy(t, w)
		connect(t, s)
		_, err := s.SendNativeTransfer(context.Background(), chain.TransferRequest{ToAddress: recipient, Amount: "1", Account: account})
		require.ErrorIs(t, err, linkerr.ErrUserRejected)
	})

	t.Run("reverted", func(t *testing.T) {
		t.Parallel()
		w := newWallet(provider.Flags{})
		w.on("eth_getTransactionReceipt", func([]any) (any, error) {
			return map[string]any{"transactionHash": txHash, "status": "0x0", "blockNumber": "0x10"}, nil
		})
		s := newStrategy(t, w)
		connect(t, s)
		_, err := s.SendNativeTransfer(context.Background(), chain.TransferRequest{ToAddress: recipient, Amount: "1", Account: account})
		require.ErrorIs(t, err, linkerr.ErrTransactionReverted)
	})
}

func TestSendNativeTransfer_WaitsForReceipt(t *testing.T) {
	t.Parallel()
	w := newWallet(provider.Flags{})
	var mu sync.Mutex
	polls := 0
	w.on("eth_getTransactionReceipt", func([]any) (any, error) {
		mu.Lock()
		defer mu.Unlock()
		polls++
		if polls < 3 {
			return nil, nil
		}
		return map[string]any{"transactionHash": txHash, "status": "0x1", "blockNumber": "0x11"}, nil
	})
	s := newStrategy(t, w)
	connect(t, s)

	hash, err := s.SendNativeTransfer(context.Background(), chain.TransferRequest{ToAddress: recipient, Amount: "1", Account: account})
	require.NoError(t, err)
	assert.Equal(t, txHash, hash)
	assert.Equal(t, 3, w.called("eth_getTransactionReceipt"))
}

const erc20ABI = `[{"type":"function","name":"transfer","stateMutability":"nonpayable",
"inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],
"outputs":[{"name":"","type":"bool"}]},
{"type":"function","name":"deposit","stateMutability":"payable","inputs":[],"outputs":[]}]`

func TestSendSmartContractInteraction(t *testing.T) {
	t.Parallel()
	w := newWallet(provider.Flags{})
	s := newStrategy(t, w)
	connect(t, s)

	hash, err := s.SendSmartContractInteraction(context.Background(), chain.ContractCallRequest{
		Address:      recipient,
		ABI:          erc20ABI,
		FunctionName: "transfer",
		Args:         []json.RawMessage{json.RawMessage(`"` + account + `"`), json.RawMessage(`"1000"`)},
		Account:      account,
		Kind:         chain.ContractSpend,
	})
	require.NoError(t, err)
	assert.Equal(t, txHash, hash)

	tx := txParam(t, w)
	data, ok := tx["data"].(string)
	require.True(t, ok)
	assert.Equal(t, "0xa9059cbb", data[:10])
	assert.Equal(t, "0x78", tx["gasPrice"], "gas price is bumped by 20%")
	assert.NotContains(t, tx, "value")
}

func TestSendSmartContractInteraction_NativeDeposit(t *testing.T) {
	t.Parallel()
	w := newWallet(provider.Flags{})
	s := newStrategy(t, w)
	connect(t, s)

	_, err := s.SendSmartContractInteraction(context.Background(), chain.ContractCallRequest{
		Address:      recipient,
		ABI:          erc20ABI,
		FunctionName: "deposit",
		Value:        "1000000000000000000",
		Account:      account,
		Kind:         chain.ContractNativeDeposit,
	})
	require.NoError(t, err)
	assert.Equal(t, "0xde0b6b3a7640000", txParam(t, w)["value"])
}

func TestSendSmartContractInteraction_BadABI(t *testing.T) {
	t.Parallel()
	s := newStrategy(t, newWallet(provider.Flags{}))
	connect(t, s)

	tests := []struct {
		name string
		req  chain.ContractCallRequest
	}{
		{"unparseable abi", chain.ContractCallRequest{Address: recipient, ABI: "{", FunctionName: "transfer"}},
		{"unknown function", chain.ContractCallRequest{Address: recipient, ABI: erc20ABI, FunctionName: "mint"}},
		{"argument count", chain.ContractCallRequest{Address: recipient, ABI: erc20ABI, FunctionName: "transfer"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := s.SendSmartContractInteraction(context.Background(), tt.req)
			require.ErrorIs(t, err, linkerr.ErrInvalidABI)
		})
	}
}

func TestSendTransactionBatch(t *testing.T) {
	t.Parallel()
	w := newWallet(provider.Flags{})
	w.on("wallet_sendCalls", func(params []any) (any, error) {
		b, err := json.Marshal(params[0])
		require.NoError(t, err)
		var req map[string]any
		require.NoError(t, json.Unmarshal(b, &req))
		assert.Equal(t, "2.0.0", req["version"])
		assert.Equal(t, "0x1", req["chainId"])
		assert.Equal(t, true, req["atomicRequired"])
		return map[string]string{"id": "batch-1"}, nil
	})
	w.on("wallet_getCallsStatus", func(params []any) (any, error) {
		assert.Equal(t, "batch-1", params[0])
		return map[string]any{
			"status": 200,
			"receipts": []map[string]any{
				{"transactionHash": "0xaaa", "status": "0x1"},
				{"transactionHash": txHash, "status": "0x1"},
			},
		}, nil
	})
	s := newStrategy(t, w)
	connect(t, s)

	hash, err := s.SendTransactionBatch(context.Background(), chain.BatchRequest{
		From:    account,
		ChainID: "1",
		Calls:   []chain.BatchCall{{To: recipient, Value: "0x1"}, {To: recipient, Data: "0x"}},
	})
	require.NoError(t, err)
	assert.Equal(t, txHash, hash)
}

func TestSendTransactionBatch_Failed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status any
	}{
		{name: "numeric", status: 500},
		{name: "string", status: "FAILED"},
		{name: "lowercase string", status: "failed"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			w := newWallet(provider.Flags{})
			w.on("wallet_sendCalls", func([]any) (any, error) { return "legacy-id", nil })
			w.on("wallet_getCallsStatus", func([]any) (any, error) { return map[string]any{"status": tc.status}, nil })
			s := newStrategy(t, w)
			connect(t, s)

			_, err := s.SendTransactionBatch(context.Background(), chain.BatchRequest{
				From: account, ChainID: "1", Calls: []chain.BatchCall{{To: recipient}},
			})
			require.ErrorIs(t, err, linkerr.ErrBatchFailed)
			require.NotErrorIs(t, err, linkerr.ErrConfirmationTimeout)
		})
	}
}

func TestGetWalletCapabilities(t *testing.T) {
	t.Parallel()

	t.Run("reports atomic status", func(t *testing.T) {
		t.Parallel()
		w := newWallet(provider.Flags{})
		w.on("wallet_getCapabilities", func([]any) (any, error) {
			return map[string]any{"0x1": map[string]any{"atomic": map[string]string{"status": "supported"}}}, nil
		})
		s := newStrategy(t, w)
		connect(t, s)

		caps, err := s.GetWalletCapabilities(context.Background(), chain.CapabilitiesRequest{From: account, ChainID: "1"})
		require.NoError(t, err)
		assert.Equal(t, chain.CapabilitySupported, caps.Atomic.Status)
	})

	t.Run("failure degrades to default", func(t *testing.T) {
		t.Parallel()
		s := newStrategy(t, newWallet(provider.Flags{}))
		connect(t, s)

		caps, err := s.GetWalletCapabilities(context.Background(), chain.CapabilitiesRequest{From: account, ChainID: "1"})
		require.NoError(t, err)
		assert.Equal(t, chain.DefaultCapabilities(), caps)
	})
}

func TestDisconnect(t *testing.T) {
	t.Parallel()
	s := newStrategy(t, newWallet(provider.Flags{}))
	require.NoError(t, s.Disconnect(context.Background(), chain.DisconnectRequest{}))

	connect(t, s)
	require.NoError(t, s.Disconnect(context.Background(), chain.DisconnectRequest{WalletName: "MetaMask"}))

	_, err := s.SendNativeTransfer(context.Background(), chain.TransferRequest{ToAddress: recipient, Amount: "1"})
	require.ErrorIs(t, err, linkerr.ErrNoActiveProvider)
}

func TestUnsupported(t *testing.T) {
	t.Parallel()
	s := newStrategy(t, newWallet(provider.Flags{}))
	_, err := s.SendTransactionWithInstructions(context.Background(), chain.InstructionTransferRequest{})
	require.ErrorIs(t, err, linkerr.ErrNotImplemented)
	assert.Equal(t, chain.EVM, s.Family())
	require.Len(t, s.Providers(), 1)
	assert.Equal(t, "io.metamask", s.Providers()[0].ID)
}
