package link

import (
	"encoding/json"
)

// IntegrationAccessToken is a previously obtained integration token pushed
// to the frame after it loads, so the user is not asked to connect again.
type IntegrationAccessToken struct {
	AccountID   string `json:"accountId"`
	AccountName string `json:"accountName"`
	AccessToken string `json:"accessToken"`
	BrokerType  string `json:"brokerType"`
	BrokerName  string `json:"brokerName"`
}

// BrokerAccount is an account reached through a connected integration.
type BrokerAccount struct {
	AccountID     string   `json:"accountId"`
	AccountName   string   `json:"accountName"`
	Fund          *float64 `json:"fund,omitempty"`
	Cash          *float64 `json:"cash,omitempty"`
	IsReconnected bool     `json:"isReconnected,omitempty"`
}

// BrokerAccountToken pairs an account with its tokens.
type BrokerAccountToken struct {
	Account      BrokerAccount `json:"account"`
	AccessToken  string        `json:"accessToken"`
	RefreshToken string        `json:"refreshToken,omitempty"`
}

// BrandInfo describes how the integration is presented.
type BrandInfo struct {
	Logo         string `json:"brokerLogo"`
	PrimaryColor string `json:"brokerPrimaryColor,omitempty"`
}

// AccessTokenPayload is delivered when an integration connects.
type AccessTokenPayload struct {
	AccountTokens                []BrokerAccountToken `json:"accountTokens"`
	BrandInfo                    BrandInfo            `json:"brokerBrandInfo"`
	ExpiresInSeconds             *int64               `json:"expiresInSeconds,omitempty"`
	RefreshTokenExpiresInSeconds *int64               `json:"refreshTokenExpiresInSeconds,omitempty"`
	BrokerType                   string               `json:"brokerType"`
	BrokerName                   string               `json:"brokerName"`
}

// DelayedAuthPayload is delivered when authentication completes later.
type DelayedAuthPayload struct {
	RefreshTokenExpiresInSeconds *int64    `json:"refreshTokenExpiresInSeconds,omitempty"`
	BrokerType                   string    `json:"brokerType"`
	RefreshToken                 string    `json:"refreshToken"`
	BrokerName                   string    `json:"brokerName"`
	BrandInfo                    BrandInfo `json:"brokerBrandInfo"`
}

// LinkPayload is the integration-connected payload. Exactly one field is set.
type LinkPayload struct {
	AccessToken *AccessTokenPayload `json:"accessToken,omitempty"`
	DelayedAuth *DelayedAuthPayload `json:"delayedAuth,omitempty"`
}

// Transfer statuses.
const (
	TransferSuccess = "success"
	TransferError   = "error"
)

// TransferFinishedPayload reports the outcome of a transfer. The transfer
// fields are set on success, ErrorMessage on failure.
type TransferFinishedPayload struct {
	Status       string      `json:"status"`
	TxID         string      `json:"txId,omitempty"`
	FromAddress  string      `json:"fromAddress,omitempty"`
	ToAddress    string      `json:"toAddress,omitempty"`
	Symbol       string      `json:"symbol,omitempty"`
	Amount       json.Number `json:"amount,omitempty"`
	NetworkID    string      `json:"networkId,omitempty"`
	ErrorMessage string      `json:"errorMessage,omitempty"`
}

// Succeeded reports whether the transfer completed.
func (p TransferFinishedPayload) Succeeded() bool {
	return p.Status == TransferSuccess
}
