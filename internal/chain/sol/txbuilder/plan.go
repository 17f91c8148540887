package txbuilder

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/mrz1836/linkbridge/internal/chain"
	linkerr "github.com/mrz1836/linkbridge/pkg/errors"
)

// Plan is an unsigned transaction ready to compile.
type Plan struct {
	Payer        solana.PublicKey
	Blockhash    solana.Hash
	Instructions []solana.Instruction
	LookupTables map[solana.PublicKey]solana.PublicKeySlice
}

// Compile builds a versioned (v0) transaction from the plan.
func (p Plan) Compile() (*solana.Transaction, error) {
	if len(p.Instructions) == 0 {
		return nil, linkerr.WithDetails(linkerr.ErrInvalidInstruction, map[string]string{"reason": "no instructions"})
	}

	opts := []solana.TransactionOption{solana.TransactionPayer(p.Payer)}
	if len(p.LookupTables) > 0 {
		opts = append(opts, solana.TransactionAddressTables(p.LookupTables))
	}

	tx, err := solana.NewTransaction(p.Instructions, p.Blockhash, opts...)
	if err != nil {
		return nil, fmt.Errorf("compiling transaction: %w", err)
	}
	tx.Message.SetVersion(solana.MessageVersionV0)
	return tx, nil
}

// ParseLookupTables converts lookup table snapshots into the form the
// compiler expects. Tables without addresses are skipped.
func ParseLookupTables(states []chain.LookupTableState) (map[solana.PublicKey]solana.PublicKeySlice, error) {
	if len(states) == 0 {
		return nil, nil //nolint:nilnil // no tables is a valid result
	}

	out := make(map[solana.PublicKey]solana.PublicKeySlice, len(states))
	for i, st := range states {
		key, err := solana.PublicKeyFromBase58(st.Key)
		if err != nil {
			return nil, lookupError(i, "invalid table key")
		}
		if len(st.Addresses) == 0 {
			continue
		}
		addrs := make(solana.PublicKeySlice, 0, len(st.Addresses))
		for _, a := range st.Addresses {
			pk, err := solana.PublicKeyFromBase58(a)
			if err != nil {
				return nil, lookupError(i, fmt.Sprintf("invalid address %q", a))
			}
			addrs = append(addrs, pk)
		}
		out[key] = addrs
	}
	return out, nil
}

// ParseBlockhash parses a base58 blockhash. An empty string yields the zero hash.
func ParseBlockhash(s string) (solana.Hash, bool, error) {
	if s == "" {
		return solana.Hash{}, false, nil
	}
	h, err := solana.HashFromBase58(s)
	if err != nil {
		return solana.Hash{}, false, linkerr.WithDetails(linkerr.ErrInvalidInput, map[string]string{"field": "blockhash"})
	}
	return h, true, nil
}

func lookupError(table int, reason string) error {
	return linkerr.WithDetails(linkerr.ErrInvalidInstruction, map[string]string{
		"lookupTable": fmt.Sprint(table),
		"reason":      reason,
	})
}
