package link_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/linkbridge/internal/bridge"
	"github.com/mrz1836/linkbridge/internal/chain"
	"github.com/mrz1836/linkbridge/internal/chain/sol/txbuilder"
	"github.com/mrz1836/linkbridge/internal/discovery"
	"github.com/mrz1836/linkbridge/internal/provider"
	linkerr "github.com/mrz1836/linkbridge/pkg/errors"
	"github.com/mrz1836/linkbridge/pkg/link"
)

const (
	catalogURL    = "https://example.test/catalog"
	catalogOrigin = "https://example.test"
	otherURL      = "https://other.test/catalog"
	otherOrigin   = "https://other.test"
)

type recordingFrame struct {
	mu        sync.Mutex
	navigated []string
	posts     []link.Message
	closed    bool
}

func (f *recordingFrame) Navigate(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.navigated = append(f.navigated, url)
	return nil
}

func (f *recordingFrame) Post(_ context.Context, msg link.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts = append(f.posts, msg)
	return nil
}

func (f *recordingFrame) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *recordingFrame) find(t *testing.T, msgType string) link.Message {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.posts {
		if m.Type == msgType {
			return m
		}
	}
	require.Failf(t, "message not posted", "%s", msgType)
	return link.Message{}
}

func (f *recordingFrame) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.posts))
	for _, m := range f.posts {
		out = append(out, m.Type)
	}
	return out
}

// evmWallet answers EIP-1193 requests from a fixed table.
type evmWallet struct {
	results map[string]any
	errs    map[string]error
}

func (w *evmWallet) Flags() provider.Flags { return provider.Flags{IsMetaMask: true} }

func (w *evmWallet) Request(_ context.Context, method string, _ ...any) (json.RawMessage, error) {
	if err, ok := w.errs[method]; ok {
		return nil, err
	}
	res, ok := w.results[method]
	if !ok {
		return nil, &provider.Error{Code: provider.CodeUnsupportedMethod, Message: method}
	}
	return json.Marshal(res)
}

// solWallet signs with a real key and records what it was asked to send.
type solWallet struct {
	mu      sync.Mutex
	key     solana.PrivateKey
	signErr error
	sent    []*solana.Transaction
}

func newSolWallet(t *testing.T) *solWallet {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return &solWallet{key: key}
}

func (w *solWallet) Flags() provider.Flags { return provider.Flags{IsPhantom: true} }

func (w *solWallet) Connect(context.Context, bool) (solana.PublicKey, error) {
	return w.key.PublicKey(), nil
}

func (w *solWallet) Disconnect(context.Context) error { return nil }

func (w *solWallet) PublicKey() (solana.PublicKey, bool) { return w.key.PublicKey(), true }

func (w *solWallet) SignMessage(_ context.Context, msg []byte) (solana.Signature, error) {
	if w.signErr != nil {
		return solana.Signature{}, w.signErr
	}
	return w.key.Sign(msg)
}

func (w *solWallet) SignTransaction(_ context.Context, tx *solana.Transaction) (*solana.Transaction, error) {
	return tx, w.signErr
}

func (w *solWallet) SignAndSendTransaction(_ context.Context, tx *solana.Transaction) (solana.Signature, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.signErr != nil {
		return solana.Signature{}, w.signErr
	}
	w.sent = append(w.sent, tx)
	return solana.Signature{7}, nil
}

func (w *solWallet) lastSent(t *testing.T) *solana.Transaction {
	t.Helper()
	w.mu.Lock()
	defer w.mu.Unlock()
	require.NotEmpty(t, w.sent)
	return w.sent[len(w.sent)-1]
}

// offlineNetwork has no allocated accounts and a fixed blockhash.
type offlineNetwork struct {
	existing map[solana.PublicKey]bool
}

func (n offlineNetwork) AccountExists(_ context.Context, pk solana.PublicKey) (bool, error) {
	return n.existing[pk], nil
}

func (offlineNetwork) LatestBlockhash(context.Context) (solana.Hash, error) {
	return solana.Hash{4, 2}, nil
}

func (offlineNetwork) SendTransaction(context.Context, *solana.Transaction) (solana.Signature, error) {
	return solana.Signature{}, errors.New("offline")
}

func token(t *testing.T, url string) string {
	t.Helper()
	tok, err := link.EncodeToken(url)
	require.NoError(t, err)
	return tok
}

func send(l *link.Link, origin, msgType, payload string) {
	msg := link.Message{Type: msgType}
	if payload != "" {
		msg.Payload = json.RawMessage(payload)
	}
	l.Window().Dispatch(context.Background(), link.Event{Origin: origin, Data: msg})
}

func programs(tx *solana.Transaction) []solana.PublicKey {
	out := make([]solana.PublicKey, 0, len(tx.Message.Instructions))
	for _, ix := range tx.Message.Instructions {
		out = append(out, tx.Message.AccountKeys[ix.ProgramIDIndex])
	}
	return out
}

func TestOpen_InvalidTokenNeverCreatesFrame(t *testing.T) {
	t.Parallel()

	for _, tok := range []string{"", "!!", "ZnRwOi8vZXhhbXBsZS50ZXN0"} {
		var exits []string
		presented := false
		l := link.New(link.Options{
			OnExit: func(msg string, summary *link.SessionSummary) {
				assert.Nil(t, summary)
				exits = append(exits, msg)
			},
		}, link.WithPresenter(link.PresenterFunc(func(context.Context, string, *link.Window) (link.Frame, error) {
			presented = true
			return &recordingFrame{}, nil
		})))

		frame := &recordingFrame{}
		err := l.Open(context.Background(), tok, frame)
		require.ErrorIs(t, err, linkerr.ErrInvalidLinkToken)
		assert.Equal(t, []string{link.InvalidTokenMessage}, exits)
		assert.Empty(t, frame.navigated)
		assert.False(t, presented)
		assert.Empty(t, l.SessionID())
	}
}

func TestOpen_IntegrationConnectedEndToEnd(t *testing.T) {
	t.Parallel()

	var (
		connected []link.LinkPayload
		events    []link.Message
	)
	l := link.New(link.Options{
		ClientID: "client-1",
		AccessTokens: []link.IntegrationAccessToken{
			{AccountID: "acc-1", AccountName: "Main", AccessToken: "tok", BrokerType: "robinhood", BrokerName: "Robinhood"},
		},
		OnIntegrationConnected: func(p link.LinkPayload) { connected = append(connected, p) },
		OnEvent:                func(m link.Message) { events = append(events, m) },
	})

	frame := &recordingFrame{}
	require.NoError(t, l.Open(context.Background(), token(t, catalogURL), frame))
	assert.Equal(t, []string{catalogURL + "?lng=en"}, frame.navigated)

	send(l, catalogOrigin, bridge.TypeLoaded, "")
	assert.Equal(t, []string{bridge.TypeSDKSpecs, bridge.TypeInjectedWalletProviders, bridge.TypeAccessTokens}, frame.types())
	assert.JSONEq(t, `[{"accountId":"acc-1","accountName":"Main","accessToken":"tok","brokerType":"robinhood","brokerName":"Robinhood"}]`,
		string(frame.find(t, bridge.TypeAccessTokens).Payload))

	payload := `{"accessToken":{"accountTokens":[{"account":{"accountId":"a1","accountName":"Main"},"accessToken":"at"}],"brokerBrandInfo":{"brokerLogo":"logo"},"brokerType":"robinhood","brokerName":"Robinhood"}}`
	send(l, catalogOrigin, link.EventIntegrationConnected, payload)

	require.Len(t, connected, 1)
	require.NotNil(t, connected[0].AccessToken)
	assert.Nil(t, connected[0].DelayedAuth)
	assert.Equal(t, "Robinhood", connected[0].AccessToken.BrokerName)
	assert.Equal(t, "at", connected[0].AccessToken.AccountTokens[0].AccessToken)

	require.Len(t, events, 2)
	assert.Equal(t, link.EventPageLoaded, events[0].Type)
	assert.Equal(t, link.EventIntegrationConnected, events[1].Type)
	assert.JSONEq(t, payload, string(events[1].Payload))
}

func TestOpen_TransferFinishedIsTyped(t *testing.T) {
	t.Parallel()

	var got []link.TransferFinishedPayload
	l := link.New(link.Options{OnTransferFinished: func(p link.TransferFinishedPayload) { got = append(got, p) }})
	require.NoError(t, l.Open(context.Background(), token(t, catalogURL), &recordingFrame{}))

	send(l, catalogOrigin, bridge.TypeTransferFinished, `{"status":"success","txId":"0xabc","symbol":"ETH","amount":0.25,"networkId":"eth"}`)
	send(l, catalogOrigin, bridge.TypeTransferFinished, `{"status":"error","errorMessage":"insufficient funds"}`)

	require.Len(t, got, 2)
	assert.True(t, got[0].Succeeded())
	assert.Equal(t, json.Number("0.25"), got[0].Amount)
	assert.False(t, got[1].Succeeded())
	assert.Equal(t, "insufficient funds", got[1].ErrorMessage)
}

func TestOpen_SupersessionIsolatesSessions(t *testing.T) {
	t.Parallel()

	var events, exits int
	l := link.New(link.Options{
		OnEvent: func(link.Message) { events++ },
		OnExit:  func(string, *link.SessionSummary) { exits++ },
	})

	firstFrame, secondFrame := &recordingFrame{}, &recordingFrame{}
	require.NoError(t, l.Open(context.Background(), token(t, catalogURL), firstFrame))
	firstID := l.SessionID()
	require.NoError(t, l.Open(context.Background(), token(t, otherURL), secondFrame))

	assert.Equal(t, 1, l.Window().ListenerCount())
	assert.NotEqual(t, firstID, l.SessionID())
	assert.True(t, firstFrame.closed)
	assert.Zero(t, exits, "supersession does not report an exit")

	send(l, catalogOrigin, "customBusinessEvent", `{}`)
	assert.Zero(t, events, "events from the old origin are dropped")

	send(l, otherOrigin, "customBusinessEvent", `{}`)
	assert.Equal(t, 1, events)

	send(l, otherOrigin, bridge.TypeLoaded, "")
	assert.Empty(t, firstFrame.types())
	assert.Contains(t, secondFrame.types(), bridge.TypeSDKSpecs)
}

func TestWalletOperation_RejectionIsCanonicalAcrossFamilies(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		evmErr  error
		solErr  error
		address string
	}{
		{"evm code 4001", &provider.Error{Code: provider.CodeUserRejected, Message: "nope"}, nil, "0x742d35Cc6634C0532925a3b844Bc454e4438f44e"},
		{"evm message", &provider.Error{Code: -32000, Message: "MetaMask Tx Signature: User REJECTED the request."}, nil, "0x742d35Cc6634C0532925a3b844Bc454e4438f44e"},
		{"solana message", nil, errors.New("User rejected the request."), ""},
		{"solana code", nil, &provider.Error{Code: provider.CodeUserRejected, Message: "declined"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := link.NewEnvironment()
			env.SetEthereum(&evmWallet{errs: map[string]error{"personal_sign": tt.evmErr}})
			wallet := newSolWallet(t)
			wallet.signErr = tt.solErr
			env.SetSolana(discovery.SlotGeneric, wallet)

			l := link.New(link.Options{}, link.WithEnvironment(env), link.WithSolanaNetwork(offlineNetwork{}))
			frame := &recordingFrame{}
			require.NoError(t, l.Open(context.Background(), token(t, catalogURL), frame))

			address := tt.address
			if address == "" {
				address = wallet.key.PublicKey().String()
			}
			send(l, catalogOrigin, bridge.TypeSignRequest, `{"address":"`+address+`","message":"hello"}`)
			l.Wait()

			var p struct {
				Error string `json:"error"`
			}
			require.NoError(t, json.Unmarshal(frame.find(t, bridge.CompletionSign).Payload, &p))
			assert.Equal(t, "Transaction rejected by user", p.Error)
		})
	}
}

func TestWalletOperation_SolanaTransferInstructions(t *testing.T) {
	t.Parallel()

	recipient, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	mintKey, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	to, mint := recipient.PublicKey(), mintKey.PublicKey()

	tests := []struct {
		name     string
		payload  string
		programs []solana.PublicKey
	}{
		{
			name:     "native asset",
			payload:  `{"toAddress":"` + to.String() + `","amount":0.5,"decimalPlaces":9,"networkType":"solana"}`,
			programs: []solana.PublicKey{solana.SystemProgramID},
		},
		{
			name:     "token to a recipient without an account",
			payload:  `{"toAddress":"` + to.String() + `","amount":1.5,"decimalPlaces":6,"tokenMint":"` + mint.String() + `","networkType":"solana"}`,
			programs: []solana.PublicKey{txbuilder.AssociatedTokenProgramID, txbuilder.TokenProgramID},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := link.NewEnvironment()
			wallet := newSolWallet(t)
			env.SetSolana(discovery.SlotGeneric, wallet)

			l := link.New(link.Options{}, link.WithEnvironment(env), link.WithSolanaNetwork(offlineNetwork{}))
			frame := &recordingFrame{}
			require.NoError(t, l.Open(context.Background(), token(t, catalogURL), frame))

			send(l, catalogOrigin, bridge.TypeNativeTransferRequest, tt.payload)
			l.Wait()

			assert.JSONEq(t, `{"txHash":"`+solana.Signature{7}.String()+`"}`,
				string(frame.find(t, bridge.CompletionNativeTransfer).Payload))

			tx := wallet.lastSent(t)
			assert.Equal(t, tt.programs, programs(tx))
			assert.Equal(t, wallet.key.PublicKey(), tx.Message.AccountKeys[0], "wallet pays")
		})
	}
}

func TestClose_ReportsExitOnce(t *testing.T) {
	t.Parallel()

	var exits []string
	l := link.New(link.Options{OnExit: func(msg string, _ *link.SessionSummary) { exits = append(exits, msg) }})
	frame := &recordingFrame{}
	require.NoError(t, l.Open(context.Background(), token(t, catalogURL), frame))

	l.Close()
	l.Close()
	send(l, catalogOrigin, bridge.TypeDone, "")

	assert.Equal(t, []string{""}, exits)
	assert.True(t, frame.closed)
	assert.Zero(t, l.Window().ListenerCount())
	assert.Empty(t, l.SessionID())
}

func TestDefaultRegistry(t *testing.T) {
	t.Parallel()

	reg := link.DefaultRegistry(link.NewEnvironment(), nil, "http://127.0.0.1:1", chain.NopLogger{})
	assert.Equal(t, []chain.Family{chain.EVM, chain.Solana}, reg.Families())

	strategies, err := reg.All()
	require.NoError(t, err)
	require.Len(t, strategies, 2)
	assert.Equal(t, chain.EVM, strategies[0].Family())
	assert.Equal(t, chain.Solana, strategies[1].Family())
}

func TestNew_WithRegistry(t *testing.T) {
	t.Parallel()

	reg := chain.NewRegistry()
	l := link.New(link.Options{}, link.WithRegistry(reg), link.WithSolanaRPC("http://127.0.0.1:1"))
	require.NotNil(t, l)
	assert.Empty(t, reg.Families(), "a supplied registry is used as is")
	assert.Empty(t, l.SessionID())
}
