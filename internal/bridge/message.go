// Package bridge implements the host side of the link protocol: the session
// lifecycle, origin discipline for business events, and the routing of
// wallet-operation requests to the chain strategies.
package bridge

import (
	"encoding/json"
)

// Message is one {type, payload} frame exchanged with the link frame.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewMessage builds a message, encoding payload when it is not already raw JSON.
func NewMessage(msgType string, payload any) (Message, error) {
	msg := Message{Type: msgType}
	if payload == nil {
		return msg, nil
	}
	if raw, ok := payload.(json.RawMessage); ok {
		msg.Payload = raw
		return msg, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return msg, err
	}
	msg.Payload = b
	return msg, nil
}

// Inbound control messages.
const (
	TypeLoaded                      = "loaded"
	TypeClose                       = "close"
	TypeDone                        = "done"
	TypeBrokerageAccountAccessToken = "brokerageAccountAccessToken"
	TypeDelayedAuthentication       = "delayedAuthentication"
	TypeTransferFinished            = "transferFinished"
	TypeOAuthLinkOpen               = "oauthLinkOpen"
)

// Business events forwarded to the host.
const (
	EventIntegrationConnected = "integrationConnected"
	EventTransferCompleted    = "transferCompleted"
	EventPageLoaded           = "pageLoaded"
)

// Outbound init messages.
const (
	TypeSDKSpecs                  = "meshSDKSpecs"
	TypeInjectedWalletProviders   = "SDKinjectedWalletProviders"
	TypeAccessTokens              = "frontAccessTokens"
	TypeTransferDestinationTokens = "frontTransferDestinationTokens"
)

// Wallet-operation requests.
const (
	TypeWalletSelected                = "walletBrowserInjectedWalletSelected"
	TypeSignRequest                   = "walletBrowserSignRequest"
	TypeChainSwitchRequest            = "walletBrowserChainSwitchRequest"
	TypeNativeTransferRequest         = "walletBrowserNativeTransferRequest"
	TypeNonNativeTransferRequest      = "walletBrowserNonNativeTransferRequest"
	TypeNativeSmartDeposit            = "walletBrowserNativeSmartDeposit"
	TypeNonNativeSmartDeposit         = "walletBrowserNonNativeSmartDeposit"
	TypeTransactionBatchRequest       = "walletBrowserTransactionBatchRequest"
	TypeWalletCapabilities            = "walletBrowserWalletCapabilities"
	TypeDisconnect                    = "walletBrowserDisconnect"
	TypeSolanaTransferWithInstruction = "walletBrowserSolanaTransferWithInstructionsRequest"
)

// Wallet-operation completions.
const (
	CompletionConnection            = "SDKinjectedConnectionCompleted"
	CompletionSign                  = "SDKsignRequestCompleted"
	CompletionSwitchChain           = "SDKswitchChainCompleted"
	CompletionNativeTransfer        = "SDKnativeTransferCompleted"
	CompletionNonNativeTransfer     = "SDKnonNativeTransferCompleted"
	CompletionNativeSmartDeposit    = "SDKnativeSmartDepositCompleted"
	CompletionNonNativeSmartDeposit = "SDKnonNativeSmartDepositCompleted"
	CompletionTransactionBatch      = "SDKtransactionBatchCompleted"
	CompletionWalletCapabilities    = "SDKwalletCapabilitiesCompleted"
	CompletionDisconnect            = "SDKdisconnectSuccess"
)

// controlTypes are handled by the bridge itself.
var controlTypes = map[string]bool{
	TypeLoaded:                      true,
	TypeClose:                       true,
	TypeDone:                        true,
	TypeBrokerageAccountAccessToken: true,
	TypeDelayedAuthentication:       true,
	TypeTransferFinished:            true,
	TypeOAuthLinkOpen:               true,
}

// businessEventTypes are forwarded verbatim to the event callback.
var businessEventTypes = map[string]bool{
	EventIntegrationConnected:             true,
	"integrationConnectionError":          true,
	"integrationMfaRequired":              true,
	"integrationMfaEntered":               true,
	"integrationOAuthStarted":             true,
	"integrationAccountSelectionRequired": true,
	"integrationSelected":                 true,
	"credentialsEntered":                  true,
	"transferStarted":                     true,
	"transferPreviewed":                   true,
	"transferPreviewError":                true,
	"transferExecutionError":              true,
	"transferExecuted":                    true,
	"transferInitiated":                   true,
	"transferNoEligibleAssets":            true,
	EventTransferCompleted:                true,
	"walletMessageSigned":                 true,
	"verifyWalletRejected":                true,
	"verifyDonePage":                      true,
	"connectionDeclined":                  true,
	"connectionUnavailable":               true,
	"legalTermsViewed":                    true,
	"seeWhatHappenedClicked":              true,
	"fundingOptionsUpdated":               true,
	"fundingOptionsViewed":                true,
	EventPageLoaded:                       true,
}

// IsWalletOperation reports whether msgType is a wallet-operation request.
func IsWalletOperation(msgType string) bool {
	_, ok := walletOperations[msgType]
	return ok
}

// IsLinkEvent reports whether msgType is a control message or business event.
func IsLinkEvent(msgType string) bool {
	return controlTypes[msgType] || businessEventTypes[msgType]
}

// errorPayload is the completion payload of a failed wallet operation.
type errorPayload struct {
	Error string `json:"error"`
}

// SessionSummary is the structured summary carried by close and done.
type SessionSummary struct {
	Page                string          `json:"page,omitempty"`
	SelectedIntegration json.RawMessage `json:"selectedIntegration,omitempty"`
	Transfer            json.RawMessage `json:"transfer,omitempty"`
	ErrorMessage        string          `json:"errorMessage,omitempty"`
}

// linkPayload wraps tokens delivered through the control messages.
type linkPayload struct {
	AccessToken json.RawMessage `json:"accessToken,omitempty"`
	DelayedAuth json.RawMessage `json:"delayedAuth,omitempty"`
}
