package wallet

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/linkbridge/internal/chain"
	"github.com/mrz1836/linkbridge/internal/provider"
)

var (
	_ provider.EVM     = (*RPCWallet)(nil)
	_ provider.Flagged = (*RPCWallet)(nil)
)

type node struct {
	mu      sync.Mutex
	methods []string
}

func (n *node) serve(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     uint64 `json:"id"`
			Method string `json:"method"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		n.mu.Lock()
		n.methods = append(n.methods, req.Method)
		n.mu.Unlock()

		result := `"0x1"`
		if req.Method == "eth_accounts" {
			result = `["0x00000000000000000000000000000000000000aa"]`
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":` + jsonNumber(req.ID) + `,"result":` + result + `}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func jsonNumber(n uint64) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func TestRPCWallet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	n := &node{}
	srv := n.serve(t)
	approver := &recordingApprover{answer: true}
	w := NewRPCWallet("dev", srv.URL, "rabby", approver)
	t.Cleanup(w.Close)

	assert.Equal(t, "dev", w.Name())
	assert.True(t, w.Flags().IsRabby)

	accounts, err := w.Request(ctx, "eth_requestAccounts")
	require.NoError(t, err)
	assert.JSONEq(t, `["0x00000000000000000000000000000000000000aa"]`, string(accounts))

	_, err = w.Request(ctx, "eth_chainId")
	require.NoError(t, err)

	_, err = w.Request(ctx, "personal_sign", "0x68656c6c6f", "0x00000000000000000000000000000000000000aa")
	require.NoError(t, err)

	assert.Equal(t, []string{"eth_accounts", "eth_chainId", "personal_sign"}, n.methods)
	require.Len(t, approver.requests, 2)
	assert.Equal(t, "connect", approver.requests[0].Action)
	assert.Equal(t, "sign a message", approver.requests[1].Action)
	assert.Contains(t, approver.requests[1].Detail, "0x68656c6c6f")
}

func TestRPCWallet_Declined(t *testing.T) {
	t.Parallel()

	n := &node{}
	srv := n.serve(t)
	w := NewRPCWallet("dev", srv.URL, "", &recordingApprover{answer: false})

	_, err := w.Request(context.Background(), "eth_sendTransaction", map[string]string{"to": "0x01"})
	require.True(t, chain.IsUserRejection(err, chain.EVMRejectionPhrases))
	assert.Empty(t, n.methods)

	_, err = w.Request(context.Background(), "eth_blockNumber")
	require.NoError(t, err)
}
