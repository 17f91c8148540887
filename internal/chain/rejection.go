package chain

import (
	"errors"
	"strings"

	linkerr "github.com/mrz1836/linkbridge/pkg/errors"
)

// RejectionCode is the EIP-1193 "user rejected request" code. Solana wallets
// reuse it.
const RejectionCode = 4001

// Rejection phrases matched case-insensitively against provider error messages.
var (
	EVMRejectionPhrases    = []string{"user rejected", "user denied", "rejected the request"}
	SolanaRejectionPhrases = []string{"user rejected", "declined", "cancelled", "denied"}
)

// CodedError is implemented by provider errors that carry a numeric code.
type CodedError interface {
	error
	ErrorCode() int
}

// IsUserRejection reports whether err is a wallet rejection: the canonical
// error, a coded error with RejectionCode, or a message containing any phrase.
func IsUserRejection(err error, phrases []string) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, linkerr.ErrUserRejected) {
		return true
	}

	var coded CodedError
	if errors.As(err, &coded) && coded.ErrorCode() == RejectionCode {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range phrases {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// NormalizeRejection maps any wallet rejection to ErrUserRejected and leaves
// other errors untouched.
func NormalizeRejection(err error, phrases []string) error {
	if IsUserRejection(err, phrases) {
		return linkerr.ErrUserRejected
	}
	return err
}
