package chain

import (
	"encoding/json"
)

// ConnectRequest is the payload of an injected-wallet selection.
type ConnectRequest struct {
	IntegrationName string      `json:"integrationName"`
	NetworkType     string      `json:"networkType,omitempty"`
	TargetChainID   json.Number `json:"targetChainId,omitempty"`
}

// ConnectResult is returned by Connect.
type ConnectResult struct {
	Accounts    []string    `json:"accounts"`
	ChainID     json.Number `json:"chainId"`
	IsConnected bool        `json:"isConnected"`
	NetworkType Family      `json:"networkType,omitempty"`
}

// DisconnectRequest asks a family, or every family when NetworkType is empty, to disconnect.
type DisconnectRequest struct {
	WalletName  string `json:"walletName,omitempty"`
	NetworkType string `json:"networkType,omitempty"`
}

// SignRequest asks the wallet to sign a UTF-8 message.
type SignRequest struct {
	WalletName  string `json:"walletName,omitempty"`
	Address     string `json:"address"`
	Message     string `json:"message"`
	NetworkType string `json:"networkType,omitempty"`
}

// SwitchChainRequest asks the wallet to move to another chain.
type SwitchChainRequest struct {
	ChainID     json.Number `json:"chainId"`
	NetworkType string      `json:"networkType,omitempty"`
}

// SwitchChainResult is returned by SwitchChain.
type SwitchChainResult struct {
	ChainID     json.Number `json:"chainId"`
	Accounts    []string    `json:"accounts"`
	NetworkType Family      `json:"networkType,omitempty"`
}

// TransferRequest describes a native-asset or token transfer.
// Amount is a decimal in whole units; DecimalPlaces scales it to base units.
type TransferRequest struct {
	ToAddress     string      `json:"toAddress"`
	Amount        json.Number `json:"amount"`
	DecimalPlaces int         `json:"decimalPlaces"`
	ChainID       json.Number `json:"chainId,omitempty"`
	Account       string      `json:"account"`
	Network       string      `json:"network,omitempty"`
	NetworkType   string      `json:"networkType,omitempty"`
	WalletName    string      `json:"walletName,omitempty"`

	// EVM fee quote. Zero values let the wallet estimate.
	GasLimit             json.Number `json:"gasLimit,omitempty"`
	MaxFeePerGas         json.Number `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas json.Number `json:"maxPriorityFeePerGas,omitempty"`

	// Solana fields.
	Blockhash     string `json:"blockhash,omitempty"`
	TokenMint     string `json:"tokenMint,omitempty"`
	TokenProgram  string `json:"tokenProgram,omitempty"`
	TokenDecimals *int   `json:"tokenDecimals,omitempty"`

	// CreateATA is the frame's view of whether the recipient token account
	// is missing. The account is probed first; the hint applies only when
	// the probe fails.
	CreateATA *bool `json:"createATA,omitempty"`
}

// FamilyHint returns whichever of the explicit family fields is set.
func (r TransferRequest) FamilyHint() string {
	if r.NetworkType != "" {
		return r.NetworkType
	}
	return r.Network
}

// ContractCallKind tells apart the request types that share ContractCallRequest.
type ContractCallKind string

// Contract call kinds.
const (
	ContractSpend         ContractCallKind = "nonNativeTransfer"
	ContractNativeDeposit ContractCallKind = "nativeSmartDeposit"
	ContractTokenDeposit  ContractCallKind = "nonNativeSmartDeposit"
)

// ContractCallRequest is a smart-contract interaction. ABI is a JSON ABI
// document, Args are encoded against the named function's inputs.
type ContractCallRequest struct {
	Address      string            `json:"address"`
	ABI          string            `json:"abi"`
	FunctionName string            `json:"functionName"`
	Args         []json.RawMessage `json:"args"`
	Value        json.Number       `json:"value,omitempty"`
	Account      string            `json:"account"`
	NetworkType  string            `json:"networkType,omitempty"`

	GasLimit             json.Number `json:"gasLimit,omitempty"`
	MaxFeePerGas         json.Number `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas json.Number `json:"maxPriorityFeePerGas,omitempty"`

	Kind ContractCallKind `json:"-"`
}

// BatchCall is one call of a wallet_sendCalls batch.
type BatchCall struct {
	To    string `json:"to"`
	Data  string `json:"data,omitempty"`
	Value string `json:"value,omitempty"`
}

// BatchRequest is an atomic batch of calls.
type BatchRequest struct {
	From        string      `json:"from"`
	ChainID     json.Number `json:"chainId"`
	Calls       []BatchCall `json:"calls"`
	NetworkType string      `json:"networkType,omitempty"`
}

// CapabilitiesRequest asks which capabilities a wallet supports on a chain.
type CapabilitiesRequest struct {
	From        string      `json:"from"`
	ChainID     json.Number `json:"chainId"`
	NetworkType string      `json:"networkType,omitempty"`
}

// Capability status values.
const (
	CapabilitySupported   = "supported"
	CapabilityReady       = "ready"
	CapabilityUnsupported = "unsupported"
)

// AtomicCapability reports atomic batch support.
type AtomicCapability struct {
	Status string `json:"status"`
}

// Capabilities is the capability report sent to the frame.
type Capabilities struct {
	Atomic AtomicCapability `json:"atomic"`
}

// DefaultCapabilities is the conservative answer when a wallet cannot be queried.
func DefaultCapabilities() *Capabilities {
	return &Capabilities{Atomic: AtomicCapability{Status: CapabilityUnsupported}}
}

// Fillable account slots.
const (
	FillableNative    = "native"
	FillableTokenMint = "tokenMint"
)

// AccountMeta is an account reference of an externally authored instruction.
// An empty PubKey must be marked Fillable.
type AccountMeta struct {
	PubKey     string `json:"pubKey,omitempty"`
	IsSigner   bool   `json:"isSigner"`
	IsWritable bool   `json:"isWritable"`
	Fillable   string `json:"fillable,omitempty"`
}

// InstructionSpec is an externally authored instruction. Data is base64.
type InstructionSpec struct {
	ProgramID string        `json:"programId"`
	Accounts  []AccountMeta `json:"accounts"`
	Data      string        `json:"data"`
}

// LookupTableState is an address lookup table snapshot supplied by the frame.
type LookupTableState struct {
	Key       string   `json:"key"`
	Addresses []string `json:"addresses"`
}

// InstructionSet groups externally authored instructions with their context.
type InstructionSet struct {
	WalletName   string             `json:"walletName,omitempty"`
	Blockhash    string             `json:"blockhash,omitempty"`
	Instructions []InstructionSpec  `json:"instructions"`
	LookupTables []LookupTableState `json:"addressLookupTableAccounts,omitempty"`
}

// InstructionTransferRequest is a transfer preceded by externally authored instructions.
type InstructionTransferRequest struct {
	TransferRequest
	TransactionInstructions InstructionSet `json:"transactionInstructions"`
}

// TxHashResult is the completion payload of hash-returning operations.
type TxHashResult struct {
	TxHash string `json:"txHash"`
}
