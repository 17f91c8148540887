// Package txbuilder builds Solana transfer transactions: native transfers,
// token transfers with associated-account creation, and externally authored
// instruction sets with fillable account slots.
package txbuilder

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"

	"github.com/mrz1836/linkbridge/internal/chain"
	linkerr "github.com/mrz1836/linkbridge/pkg/errors"
)

// Program ids used by token transfers.
//
//nolint:gochecknoglobals // program id constants
var (
	TokenProgramID             = solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	Token2022ProgramID         = solana.MustPublicKeyFromBase58("TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb")
	AssociatedTokenProgramID   = solana.MustPublicKeyFromBase58("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
	SystemProgramID            = solana.SystemProgramID
	defaultTokenDecimals uint8 = 9
)

// AccountChecker reports whether an on-chain account exists.
type AccountChecker interface {
	AccountExists(ctx context.Context, account solana.PublicKey) (bool, error)
}

// TransferParams describes a native or token transfer in base units.
type TransferParams struct {
	From   solana.PublicKey
	To     solana.PublicKey
	Amount uint64

	// Mint is nil for a native transfer.
	Mint *solana.PublicKey

	// TokenProgram overrides the runtime program probe when set.
	TokenProgram *solana.PublicKey

	// Decimals is encoded into checked transfers.
	Decimals *uint8

	// CreateATA decides the recipient account creation when its probe fails.
	CreateATA *bool
}

// IsToken reports whether the transfer moves a token rather than the native asset.
func (p TransferParams) IsToken() bool {
	return p.Mint != nil
}

// Builder turns transfer parameters into ordered instructions.
type Builder struct {
	accounts AccountChecker
}

// New creates a builder probing accounts through the checker.
func New(accounts AccountChecker) *Builder {
	return &Builder{accounts: accounts}
}

// AssociatedTokenAddress derives the associated token account of owner for
// mint under the given token program.
func AssociatedTokenAddress(owner, tokenProgram, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{owner[:], tokenProgram[:], mint[:]},
		AssociatedTokenProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("deriving associated token address: %w", err)
	}
	return addr, nil
}

// ResolveTokenProgram picks the token program for a transfer. Token-2022 is
// used only when the owner already holds the mint under it.
func (b *Builder) ResolveTokenProgram(ctx context.Context, owner, mint solana.PublicKey) (solana.PublicKey, error) {
	ata, err := AssociatedTokenAddress(owner, Token2022ProgramID, mint)
	if err != nil {
		return solana.PublicKey{}, err
	}
	exists, err := b.accounts.AccountExists(ctx, ata)
	if err != nil {
		return solana.PublicKey{}, linkerr.Wrap(err, "probe token program")
	}
	if exists {
		return Token2022ProgramID, nil
	}
	return TokenProgramID, nil
}

// TransferInstructions returns the instructions of a transfer in execution
// order: an optional associated-account creation followed by the transfer.
func (b *Builder) TransferInstructions(ctx context.Context, p TransferParams) ([]solana.Instruction, error) {
	if !p.IsToken() {
		return []solana.Instruction{
			system.NewTransferInstruction(p.Amount, p.From, p.To).Build(),
		}, nil
	}

	mint := *p.Mint
	program := TokenProgramID
	if p.TokenProgram != nil {
		program = *p.TokenProgram
	} else {
		var err error
		if program, err = b.ResolveTokenProgram(ctx, p.From, mint); err != nil {
			return nil, err
		}
	}

	source, err := AssociatedTokenAddress(p.From, program, mint)
	if err != nil {
		return nil, err
	}
	destination, err := AssociatedTokenAddress(p.To, program, mint)
	if err != nil {
		return nil, err
	}

	var out []solana.Instruction
	exists, err := b.accounts.AccountExists(ctx, destination)
	if err != nil {
		if p.CreateATA == nil {
			return nil, linkerr.Wrap(err, "check recipient token account")
		}
		exists = !*p.CreateATA
	}
	if !exists {
		out = append(out, CreateAssociatedAccountInstruction(p.From, destination, p.To, mint, program))
	}

	transfer, err := tokenTransferInstruction(program, source, destination, p.From, mint, p.Amount, p.Decimals)
	if err != nil {
		return nil, err
	}
	return append(out, transfer), nil
}

// CreateAssociatedAccountInstruction creates owner's associated account for
// mint, paid by payer.
func CreateAssociatedAccountInstruction(payer, associated, owner, mint, tokenProgram solana.PublicKey) solana.Instruction {
	return solana.NewInstruction(
		AssociatedTokenProgramID,
		solana.AccountMetaSlice{
			solana.NewAccountMeta(payer, true, true),
			solana.NewAccountMeta(associated, true, false),
			solana.NewAccountMeta(owner, false, false),
			solana.NewAccountMeta(mint, false, false),
			solana.NewAccountMeta(SystemProgramID, false, false),
			solana.NewAccountMeta(tokenProgram, false, false),
		},
		[]byte{},
	)
}

// tokenTransferInstruction emits TransferChecked under Token-2022 and a
// plain Transfer under the legacy program. The token package hardcodes the
// legacy program id, so the encoded instruction is re-addressed.
func tokenTransferInstruction(
	program, source, destination, owner, mint solana.PublicKey,
	amount uint64, decimals *uint8,
) (solana.Instruction, error) {
	var ix solana.Instruction
	if program.Equals(Token2022ProgramID) {
		d := defaultTokenDecimals
		if decimals != nil {
			d = *decimals
		}
		ix = token.NewTransferCheckedInstruction(amount, d, source, mint, destination, owner, nil).Build()
	} else {
		ix = token.NewTransferInstruction(amount, source, destination, owner, nil).Build()
	}

	data, err := ix.Data()
	if err != nil {
		return nil, fmt.Errorf("encoding token transfer: %w", err)
	}
	return solana.NewInstruction(program, ix.Accounts(), data), nil
}

// Fill supplies the keys substituted into fillable account slots.
type Fill struct {
	// Payer replaces "native" slots.
	Payer solana.PublicKey

	// TokenAccount replaces "tokenMint" slots. Nil when the transfer has no mint.
	TokenAccount *solana.PublicKey
}

// ResolveInstructions converts externally authored instructions, filling
// account slots that carry no key.
func ResolveInstructions(specs []chain.InstructionSpec, fill Fill) ([]solana.Instruction, error) {
	out := make([]solana.Instruction, 0, len(specs))
	for i, spec := range specs {
		program, err := solana.PublicKeyFromBase58(spec.ProgramID)
		if err != nil {
			return nil, instructionError(i, -1, "invalid program id")
		}

		metas := make(solana.AccountMetaSlice, 0, len(spec.Accounts))
		for j, meta := range spec.Accounts {
			key, err := resolveAccount(meta, fill)
			if err != nil {
				return nil, instructionError(i, j, err.Error())
			}
			metas = append(metas, solana.NewAccountMeta(key, meta.IsWritable, meta.IsSigner))
		}

		data, err := base64.StdEncoding.DecodeString(spec.Data)
		if err != nil {
			return nil, instructionError(i, -1, "data is not base64")
		}
		out = append(out, solana.NewInstruction(program, metas, data))
	}
	return out, nil
}

func resolveAccount(meta chain.AccountMeta, fill Fill) (solana.PublicKey, error) {
	if meta.PubKey != "" {
		key, err := solana.PublicKeyFromBase58(meta.PubKey)
		if err != nil {
			return solana.PublicKey{}, fmt.Errorf("invalid pubKey %q", meta.PubKey) //nolint:err113 // surfaced through instructionError
		}
		return key, nil
	}

	switch meta.Fillable {
	case chain.FillableNative:
		return fill.Payer, nil
	case chain.FillableTokenMint:
		if fill.TokenAccount == nil {
			return solana.PublicKey{}, fmt.Errorf("tokenMint slot needs a token transfer") //nolint:err113 // surfaced through instructionError
		}
		return *fill.TokenAccount, nil
	default:
		return solana.PublicKey{}, fmt.Errorf("has no pubKey and is not fillable") //nolint:err113 // surfaced through instructionError
	}
}

func instructionError(instruction, account int, reason string) error {
	details := map[string]string{
		"instruction": fmt.Sprint(instruction),
		"reason":      reason,
	}
	if account >= 0 {
		details["account"] = fmt.Sprint(account)
	}
	return linkerr.WithDetails(linkerr.ErrInvalidInstruction, details)
}
