package chain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/linkbridge/internal/chain"
	linkerr "github.com/mrz1836/linkbridge/pkg/errors"
)

type codedErr struct {
	code int
	msg  string
}

func (e *codedErr) Error() string  { return e.msg }
func (e *codedErr) ErrorCode() int { return e.code }

var errUnrelated = errors.New("insufficient funds for gas")

func TestIsUserRejection(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		err     error
		phrases []string
		want    bool
	}{
		{"nil", nil, chain.EVMRejectionPhrases, false},
		{"code 4001", &codedErr{code: 4001, msg: "whatever"}, chain.EVMRejectionPhrases, true},
		{"code 4001 solana", &codedErr{code: 4001, msg: "whatever"}, chain.SolanaRejectionPhrases, true},
		{"wrapped code", fmt.Errorf("send: %w", &codedErr{code: 4001}), chain.EVMRejectionPhrases, true},
		{"other code", &codedErr{code: -32000, msg: "execution reverted"}, chain.EVMRejectionPhrases, false},
		{"phrase any case evm", errors.New("MetaMask Tx Signature: User Rejected transaction"), chain.EVMRejectionPhrases, true},
		{"phrase any case solana", errors.New("USER REJECTED the request"), chain.SolanaRejectionPhrases, true},
		{"solana declined", errors.New("Transaction declined"), chain.SolanaRejectionPhrases, true},
		{"solana cancelled", errors.New("Request cancelled"), chain.SolanaRejectionPhrases, true},
		{"canonical error", linkerr.ErrUserRejected, nil, true},
		{"unrelated", errUnrelated, chain.SolanaRejectionPhrases, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, chain.IsUserRejection(tt.err, tt.phrases))
		})
	}
}

func TestNormalizeRejection_SameErrorForBothFamilies(t *testing.T) {
	t.Parallel()
	evm := chain.NormalizeRejection(&codedErr{code: 4001, msg: "denied"}, chain.EVMRejectionPhrases)
	sol := chain.NormalizeRejection(errors.New("user rejected the request"), chain.SolanaRejectionPhrases)

	require.ErrorIs(t, evm, linkerr.ErrUserRejected)
	require.ErrorIs(t, sol, linkerr.ErrUserRejected)
	assert.Equal(t, evm.Error(), sol.Error())

	assert.Equal(t, errUnrelated, chain.NormalizeRejection(errUnrelated, chain.EVMRejectionPhrases))
}
