package evm

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/mrz1836/linkbridge/internal/chain"
	"github.com/mrz1836/linkbridge/internal/provider"
	linkerr "github.com/mrz1836/linkbridge/pkg/errors"
)

// Contract calls pay the node's gas price plus 20%.
const (
	gasPriceBumpNumerator   = 120
	gasPriceBumpDenominator = 100
)

// sendCallsVersion is the EIP-5792 request version.
const sendCallsVersion = "2.0.0"

// txRequest is an eth_sendTransaction parameter object.
type txRequest struct {
	From                 string `json:"from"`
	To                   string `json:"to"`
	Value                string `json:"value,omitempty"`
	Data                 string `json:"data,omitempty"`
	Gas                  string `json:"gas,omitempty"`
	GasPrice             string `json:"gasPrice,omitempty"`
	MaxFeePerGas         string `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas string `json:"maxPriorityFeePerGas,omitempty"`
}

// feeQuote holds fee fields supplied by the frame.
type feeQuote struct {
	gasLimit, maxFee, maxPriority *big.Int
}

func parseFeeQuote(gasLimit, maxFee, maxPriority json.Number) (feeQuote, error) {
	var q feeQuote
	var err error
	if q.gasLimit, err = chain.ParseQuantity(gasLimit); err != nil {
		return q, err
	}
	if q.maxFee, err = chain.ParseQuantity(maxFee); err != nil {
		return q, err
	}
	if q.maxPriority, err = chain.ParseQuantity(maxPriority); err != nil {
		return q, err
	}
	return q, nil
}

func (q feeQuote) hasFees() bool {
	return q.maxFee != nil || q.maxPriority != nil
}

func (q feeQuote) apply(tx *txRequest) {
	if q.gasLimit != nil {
		tx.Gas = hexutil.EncodeBig(q.gasLimit)
	}
	if q.maxFee != nil {
		tx.MaxFeePerGas = hexutil.EncodeBig(q.maxFee)
	}
	if q.maxPriority != nil {
		tx.MaxPriorityFeePerGas = hexutil.EncodeBig(q.maxPriority)
	}
}

// SendNativeTransfer sends the chain's native asset and waits for one confirmation.
func (s *Strategy) SendNativeTransfer(ctx context.Context, req chain.TransferRequest) (string, error) {
	p, recorded, err := s.requireActive()
	if err != nil {
		return "", err
	}
	if err := ensureNetwork(ctx, p, recorded); err != nil {
		return "", opError(err, "send EVM native transfer")
	}

	if !common.IsHexAddress(req.ToAddress) {
		return "", linkerr.WithDetails(linkerr.ErrInvalidAddress, map[string]string{"field": "toAddress", "address": req.ToAddress})
	}
	value, err := chain.ScaleAmount(req.Amount, req.DecimalPlaces)
	if err != nil {
		return "", err
	}
	quote, err := parseFeeQuote(req.GasLimit, req.MaxFeePerGas, req.MaxPriorityFeePerGas)
	if err != nil {
		return "", err
	}

	tx := txRequest{
		From:  req.Account,
		To:    common.HexToAddress(req.ToAddress).Hex(),
		Value: hexutil.EncodeBig(value),
	}
	quote.apply(&tx)

	hash, err := s.sendAndWait(ctx, p, tx)
	if err != nil {
		return "", opError(err, "send EVM native transfer")
	}
	return hash, nil
}

// SendSmartContractInteraction packs the named function call against the
// ABI and sends it. Native deposits attach Value, given in base units.
func (s *Strategy) SendSmartContractInteraction(ctx context.Context, req chain.ContractCallRequest) (string, error) {
	p, recorded, err := s.requireActive()
	if err != nil {
		return "", err
	}
	if err := ensureNetwork(ctx, p, recorded); err != nil {
		return "", opError(err, "send EVM smart contract interaction")
	}

	if !common.IsHexAddress(req.Address) {
		return "", linkerr.WithDetails(linkerr.ErrInvalidAddress, map[string]string{"field": "address", "address": req.Address})
	}
	data, err := PackCall(req.ABI, req.FunctionName, req.Args)
	if err != nil {
		return "", err
	}

	tx := txRequest{
		From: req.Account,
		To:   common.HexToAddress(req.Address).Hex(),
		Data: hexutil.Encode(data),
	}

	if req.Kind == chain.ContractNativeDeposit {
		value, err := chain.ParseQuantity(req.Value)
		if err != nil {
			return "", err
		}
		if value != nil && value.Sign() > 0 {
			tx.Value = hexutil.EncodeBig(value)
		}
	}

	quote, err := parseFeeQuote(req.GasLimit, req.MaxFeePerGas, req.MaxPriorityFeePerGas)
	if err != nil {
		return "", err
	}
	quote.apply(&tx)
	if !quote.hasFees() {
		price, err := bumpedGasPrice(ctx, p)
		if err != nil {
			s.logger.Debug("eth_gasPrice unavailable, letting the wallet price the call: %v", err)
		} else {
			tx.GasPrice = hexutil.EncodeBig(price)
		}
	}

	hash, err := s.sendAndWait(ctx, p, tx)
	if err != nil {
		return "", opError(err, "send EVM smart contract interaction")
	}
	return hash, nil
}

// PackCall encodes a function call from a JSON ABI and JSON arguments.
func PackCall(abiJSON, functionName string, args []json.RawMessage) ([]byte, error) {
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return nil, linkerr.WithCause(linkerr.ErrInvalidABI, err)
	}
	method, ok := parsed.Methods[functionName]
	if !ok {
		return nil, linkerr.WithDetails(linkerr.ErrInvalidABI, map[string]string{"function": functionName})
	}
	if len(args) != len(method.Inputs) {
		return nil, linkerr.WithDetails(linkerr.ErrInvalidABI, map[string]string{
			"function": functionName,
			"expected": fmt.Sprint(len(method.Inputs)),
			"got":      fmt.Sprint(len(args)),
		})
	}

	values := make([]any, len(args))
	for i, input := range method.Inputs {
		v, err := convertArg(input.Type, args[i])
		if err != nil {
			return nil, linkerr.WithDetails(linkerr.WithCause(linkerr.ErrInvalidABI, err), map[string]string{
				"function": functionName,
				"argument": input.Name,
			})
		}
		values[i] = v
	}

	data, err := parsed.Pack(functionName, values...)
	if err != nil {
		return nil, linkerr.WithCause(linkerr.ErrInvalidABI, err)
	}
	return data, nil
}

func bumpedGasPrice(ctx context.Context, p provider.EVM) (*big.Int, error) {
	var raw string
	if err := call(ctx, p, &raw, "eth_gasPrice"); err != nil {
		return nil, err
	}
	price, err := hexutil.DecodeBig(raw)
	if err != nil {
		return nil, err
	}
	price.Mul(price, big.NewInt(gasPriceBumpNumerator))
	return price.Div(price, big.NewInt(gasPriceBumpDenominator)), nil
}

// receipt holds the receipt fields the strategy reads.
type receipt struct {
	TransactionHash string          `json:"transactionHash"`
	Status          *hexutil.Uint64 `json:"status"`
	BlockNumber     *hexutil.Big    `json:"blockNumber"`
}

// failed reports a reverted receipt. Receipts without a status predate
// Byzantium and are treated as successful.
func (r receipt) failed() bool {
	return r.Status != nil && uint64(*r.Status) == types.ReceiptStatusFailed
}

func (s *Strategy) sendAndWait(ctx context.Context, p provider.EVM, tx txRequest) (string, error) {
	var hash string
	if err := call(ctx, p, &hash, "eth_sendTransaction", tx); err != nil {
		return "", err
	}
	s.logger.Debug("EVM transaction %s sent, waiting for receipt", hash)

	rc, err := chain.WaitFor(ctx, s.limiter, chain.PollConfig{Endpoint: "eth_getTransactionReceipt", Timeout: s.timeout},
		func(ctx context.Context) (*receipt, bool, error) {
			var rc *receipt
			if err := call(ctx, p, &rc, "eth_getTransactionReceipt", hash); err != nil {
				return nil, false, err
			}
			return rc, rc != nil && rc.BlockNumber != nil, nil
		})
	if err != nil {
		return "", linkerr.WithDetails(err, map[string]string{"txHash": hash})
	}
	if rc.failed() {
		return "", linkerr.WithDetails(linkerr.ErrTransactionReverted, map[string]string{"txHash": hash})
	}
	if rc.TransactionHash != "" {
		return rc.TransactionHash, nil
	}
	return hash, nil
}

// sendCallsRequest is the EIP-5792 wallet_sendCalls parameter.
type sendCallsRequest struct {
	Version        string            `json:"version"`
	ChainID        string            `json:"chainId"`
	From           string            `json:"from"`
	AtomicRequired bool              `json:"atomicRequired"`
	Calls          []chain.BatchCall `json:"calls"`
}

// callsStatus is the wallet_getCallsStatus result. Status is a numeric code
// in version 2 and a string in earlier wallets.
type callsStatus struct {
	Status   json.RawMessage `json:"status"`
	Receipts []receipt       `json:"receipts"`
}

// Batch status codes from EIP-5792.
const (
	batchPending   = 100
	batchConfirmed = 200
	batchFailed    = 400
)

func (c callsStatus) code() int {
	var n int
	if err := json.Unmarshal(c.Status, &n); err == nil {
		return n
	}
	var s string
	if err := json.Unmarshal(c.Status, &s); err == nil {
		switch strings.ToUpper(s) {
		case "CONFIRMED":
			return batchConfirmed
		case "FAILED":
			return batchFailed
		case "PENDING", "":
			return batchPending
		}
	}
	return 0
}

// SendTransactionBatch submits an atomic batch and returns the last
// receipt's transaction hash once confirmed.
func (s *Strategy) SendTransactionBatch(ctx context.Context, req chain.BatchRequest) (string, error) {
	p, _, err := s.requireActive()
	if err != nil {
		return "", err
	}

	id, err := chain.ParseQuantity(req.ChainID)
	if err != nil || id == nil {
		return "", linkerr.WithDetails(linkerr.ErrInvalidInput, map[string]string{"field": "chainId"})
	}
	if len(req.Calls) == 0 {
		return "", linkerr.WithDetails(linkerr.ErrInvalidInput, map[string]string{"field": "calls"})
	}

	res, err := p.Request(ctx, "wallet_sendCalls", sendCallsRequest{
		Version:        sendCallsVersion,
		ChainID:        hexutil.EncodeBig(id),
		From:           req.From,
		AtomicRequired: true,
		Calls:          req.Calls,
	})
	if err != nil {
		return "", opError(err, "send EVM transaction batch")
	}
	batchID, err := parseBatchID(res)
	if err != nil {
		return "", opError(err, "send EVM transaction batch")
	}

	status, err := chain.WaitFor(ctx, s.limiter, chain.PollConfig{Endpoint: "wallet_getCallsStatus", Timeout: s.timeout},
		func(ctx context.Context) (callsStatus, bool, error) {
			var st callsStatus
			if err := call(ctx, p, &st, "wallet_getCallsStatus", batchID); err != nil {
				return st, false, err
			}
			return st, st.code() >= batchConfirmed, nil
		})
	if err != nil {
		return "", opError(linkerr.WithDetails(err, map[string]string{"batchId": batchID}), "send EVM transaction batch")
	}

	if code := status.code(); code != batchConfirmed {
		return "", linkerr.WithDetails(linkerr.ErrBatchFailed, map[string]string{"batchId": batchID, "status": fmt.Sprint(code)})
	}
	if len(status.Receipts) == 0 {
		return "", linkerr.WithDetails(linkerr.ErrBatchFailed, map[string]string{"batchId": batchID, "reason": "no receipts"})
	}
	last := status.Receipts[len(status.Receipts)-1]
	if last.failed() {
		return "", linkerr.WithDetails(linkerr.ErrTransactionReverted, map[string]string{"txHash": last.TransactionHash})
	}
	return last.TransactionHash, nil
}

// SendTransactionWithInstructions has no EVM counterpart.
func (s *Strategy) SendTransactionWithInstructions(context.Context, chain.InstructionTransferRequest) (string, error) {
	return "", linkerr.WithDetails(linkerr.ErrNotImplemented, map[string]string{"operation": "transfer with instructions", "family": "evm"})
}

// parseBatchID accepts both the object result of version 2 and the bare id
// string returned by earlier wallets.
func parseBatchID(res json.RawMessage) (string, error) {
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(res, &obj); err == nil && obj.ID != "" {
		return obj.ID, nil
	}
	var id string
	if err := json.Unmarshal(res, &id); err == nil && id != "" {
		return id, nil
	}
	return "", linkerr.WithDetails(linkerr.ErrBatchFailed, map[string]string{"reason": "wallet returned no batch id"})
}
