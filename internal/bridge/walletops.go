package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mrz1836/linkbridge/internal/chain"
	linkerr "github.com/mrz1836/linkbridge/pkg/errors"
)

// runFunc performs one wallet operation and returns the family it ran on
// and the completion payload.
type runFunc func(ctx context.Context, reg *chain.Registry, payload json.RawMessage) (chain.Family, any, error)

type walletOperation struct {
	name       string
	completion string
	run        runFunc
}

// walletOperations maps each request type to its operation and completion.
var walletOperations = map[string]walletOperation{
	TypeWalletSelected:                {"connect", CompletionConnection, runConnect},
	TypeSignRequest:                   {"sign_message", CompletionSign, runSignMessage},
	TypeChainSwitchRequest:            {"switch_chain", CompletionSwitchChain, runSwitchChain},
	TypeNativeTransferRequest:         {"native_transfer", CompletionNativeTransfer, runNativeTransfer},
	TypeNonNativeTransferRequest:      {"non_native_transfer", CompletionNonNativeTransfer, runContractCall(chain.ContractSpend)},
	TypeNativeSmartDeposit:            {"native_smart_deposit", CompletionNativeSmartDeposit, runContractCall(chain.ContractNativeDeposit)},
	TypeNonNativeSmartDeposit:         {"non_native_smart_deposit", CompletionNonNativeSmartDeposit, runContractCall(chain.ContractTokenDeposit)},
	TypeTransactionBatchRequest:       {"transaction_batch", CompletionTransactionBatch, runBatch},
	TypeWalletCapabilities:            {"wallet_capabilities", CompletionWalletCapabilities, runCapabilities},
	TypeDisconnect:                    {"disconnect", CompletionDisconnect, runDisconnect},
	TypeSolanaTransferWithInstruction: {"transfer_with_instructions", CompletionNonNativeTransfer, runInstructionTransfer},
}

// dispatchWalletOperation runs the operation on its own goroutine and posts
// the completion if sess is still live when it finishes. The provider call
// is not cancelled when the session ends.
func (b *Bridge) dispatchWalletOperation(ctx context.Context, sess *Session, msg Message) {
	op := walletOperations[msg.Type]
	opCtx := context.WithoutCancel(ctx)

	b.ops.Add(1)
	go func() {
		defer b.ops.Done()

		start := time.Now()
		family, result, err := b.runSafely(opCtx, op, msg.Payload)
		label := family.String()
		if label == "" {
			label = "none"
		}
		b.recorder.WalletOperation(label, op.name, outcome(err), time.Since(start))

		if !b.isLive(sess) {
			b.logger.Debug("session %s ended before %s completed", sess.ID, op.name)
			b.recorder.MessageDropped(DropStale)
			return
		}

		var payload any = result
		if err != nil {
			b.logger.Error("%s failed: %v", op.name, err)
			payload = errorPayload{Error: err.Error()}
		}
		b.deliver(opCtx, sess, op.completion, payload)
	}()
}

// runSafely turns a panicking strategy into an error completion.
func (b *Bridge) runSafely(ctx context.Context, op walletOperation, payload json.RawMessage) (family chain.Family, result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = linkerr.WithCause(linkerr.ErrProviderFailure, fmt.Errorf("%s panicked: %v", op.name, r)) //nolint:err113 // panic value
		}
	}()
	return op.run(ctx, b.registry, payload)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case linkerr.Is(err, linkerr.ErrUserRejected):
		return "rejected"
	default:
		return "error"
	}
}

// decode unmarshals a request payload. A missing payload decodes to the zero value.
func decode[T any](payload json.RawMessage) (T, error) {
	var req T
	if len(payload) == 0 || string(payload) == "null" {
		return req, nil
	}
	if err := json.Unmarshal(payload, &req); err != nil {
		return req, linkerr.WithCause(linkerr.ErrInvalidPayload, err)
	}
	return req, nil
}

func strategyFor(reg *chain.Registry, hint, address string) (chain.Strategy, chain.Family, error) {
	family, err := chain.ResolveFamily(hint, address)
	if err != nil {
		return nil, "", err
	}
	s, err := reg.Strategy(family)
	if err != nil {
		return nil, family, err
	}
	return s, family, nil
}

// connectionPayload answers connect and switch-chain requests.
type connectionPayload struct {
	Accounts    []string     `json:"accounts"`
	ChainID     json.Number  `json:"chainId"`
	NetworkType chain.Family `json:"networkType"`
}

func runConnect(ctx context.Context, reg *chain.Registry, payload json.RawMessage) (chain.Family, any, error) {
	req, err := decode[chain.ConnectRequest](payload)
	if err != nil {
		return "", nil, err
	}
	s, family, err := strategyFor(reg, req.NetworkType, "")
	if err != nil {
		return family, nil, err
	}
	res, err := s.Connect(ctx, req)
	if err != nil {
		return family, nil, err
	}
	return family, connectionPayload{Accounts: res.Accounts, ChainID: res.ChainID, NetworkType: family}, nil
}

func runSignMessage(ctx context.Context, reg *chain.Registry, payload json.RawMessage) (chain.Family, any, error) {
	req, err := decode[chain.SignRequest](payload)
	if err != nil {
		return "", nil, err
	}
	s, family, err := strategyFor(reg, req.NetworkType, req.Address)
	if err != nil {
		return family, nil, err
	}
	sig, err := s.SignMessage(ctx, req)
	if err != nil {
		return family, nil, err
	}
	return family, sig, nil
}

func runSwitchChain(ctx context.Context, reg *chain.Registry, payload json.RawMessage) (chain.Family, any, error) {
	req, err := decode[chain.SwitchChainRequest](payload)
	if err != nil {
		return "", nil, err
	}
	s, family, err := strategyFor(reg, req.NetworkType, "")
	if err != nil {
		return family, nil, err
	}
	res, err := s.SwitchChain(ctx, req)
	if err != nil {
		return family, nil, err
	}
	return family, connectionPayload{Accounts: res.Accounts, ChainID: res.ChainID, NetworkType: family}, nil
}

func runNativeTransfer(ctx context.Context, reg *chain.Registry, payload json.RawMessage) (chain.Family, any, error) {
	req, err := decode[chain.TransferRequest](payload)
	if err != nil {
		return "", nil, err
	}
	s, family, err := strategyFor(reg, req.FamilyHint(), req.ToAddress)
	if err != nil {
		return family, nil, err
	}
	hash, err := s.SendNativeTransfer(ctx, req)
	if err != nil {
		return family, nil, err
	}
	return family, chain.TxHashResult{TxHash: hash}, nil
}

func runContractCall(kind chain.ContractCallKind) runFunc {
	return func(ctx context.Context, reg *chain.Registry, payload json.RawMessage) (chain.Family, any, error) {
		req, err := decode[chain.ContractCallRequest](payload)
		if err != nil {
			return "", nil, err
		}
		req.Kind = kind
		s, family, err := strategyFor(reg, req.NetworkType, req.Address)
		if err != nil {
			return family, nil, err
		}
		hash, err := s.SendSmartContractInteraction(ctx, req)
		if err != nil {
			return family, nil, err
		}
		return family, chain.TxHashResult{TxHash: hash}, nil
	}
}

func runBatch(ctx context.Context, reg *chain.Registry, payload json.RawMessage) (chain.Family, any, error) {
	req, err := decode[chain.BatchRequest](payload)
	if err != nil {
		return "", nil, err
	}
	s, family, err := strategyFor(reg, req.NetworkType, req.From)
	if err != nil {
		return family, nil, err
	}
	hash, err := s.SendTransactionBatch(ctx, req)
	if err != nil {
		return family, nil, err
	}
	return family, chain.TxHashResult{TxHash: hash}, nil
}

func runCapabilities(ctx context.Context, reg *chain.Registry, payload json.RawMessage) (chain.Family, any, error) {
	req, err := decode[chain.CapabilitiesRequest](payload)
	if err != nil {
		return "", nil, err
	}
	s, family, err := strategyFor(reg, req.NetworkType, req.From)
	if err != nil {
		return family, nil, err
	}
	caps, err := s.GetWalletCapabilities(ctx, req)
	if err != nil {
		return family, nil, err
	}
	return family, caps, nil
}

// runDisconnect disconnects one family, or every registered family when
// the request names none.
func runDisconnect(ctx context.Context, reg *chain.Registry, payload json.RawMessage) (chain.Family, any, error) {
	req, err := decode[chain.DisconnectRequest](payload)
	if err != nil {
		return "", nil, err
	}

	if req.NetworkType != "" {
		s, family, err := strategyFor(reg, req.NetworkType, "")
		if err != nil {
			return family, nil, err
		}
		return family, nil, s.Disconnect(ctx, req)
	}

	all, err := reg.All()
	if err != nil {
		return "", nil, err
	}
	for _, s := range all {
		if err := s.Disconnect(ctx, req); err != nil {
			return s.Family(), nil, err
		}
	}
	return "", nil, nil
}

func runInstructionTransfer(ctx context.Context, reg *chain.Registry, payload json.RawMessage) (chain.Family, any, error) {
	req, err := decode[chain.InstructionTransferRequest](payload)
	if err != nil {
		return chain.Solana, nil, err
	}
	s, err := reg.Strategy(chain.Solana)
	if err != nil {
		return chain.Solana, nil, err
	}
	hash, err := s.SendTransactionWithInstructions(ctx, req)
	if err != nil {
		return chain.Solana, nil, err
	}
	return chain.Solana, chain.TxHashResult{TxHash: hash}, nil
}
