package sol

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"

	"github.com/mrz1836/linkbridge/internal/chain"
	"github.com/mrz1836/linkbridge/internal/provider"
	linkerr "github.com/mrz1836/linkbridge/pkg/errors"
)

// errUnsupported reports that a signing method does not apply to the wallet.
var errUnsupported = errors.New("signing method unsupported")

// signingMethod signs and broadcasts a transaction through one wallet primitive.
type signingMethod struct {
	name string
	run  func(ctx context.Context, p provider.Solana, tx *solana.Transaction) (solana.Signature, error)
}

// signingMethods returns the methods tried in order. Manual-only wallets
// never see the combined primitive.
func (s *Strategy) signingMethods(manualOnly bool) []signingMethod {
	methods := make([]signingMethod, 0, 3)
	if !manualOnly {
		methods = append(methods, signingMethod{name: "signAndSend", run: signAndSend})
	}
	return append(methods,
		signingMethod{name: "signThenBroadcast", run: s.signThenBroadcast},
		signingMethod{name: "signThenProviderSend", run: signThenProviderSend},
	)
}

// submit walks the signing methods until one returns a signature. A
// rejection stops the walk; other failures fall through to the next method.
func (s *Strategy) submit(ctx context.Context, target resolved, tx *solana.Transaction) (string, error) {
	var lastErr error
	for _, m := range s.signingMethods(target.manualOnly) {
		sig, err := m.run(ctx, target.provider, tx)
		switch {
		case err == nil:
			s.logger.Debug("solana transaction %s submitted via %s", sig, m.name)
			return sig.String(), nil
		case errors.Is(err, errUnsupported):
			continue
		case chain.IsUserRejection(err, chain.SolanaRejectionPhrases):
			return "", linkerr.ErrUserRejected
		default:
			s.logger.Debug("solana signing method %s failed: %v", m.name, err)
			lastErr = err
		}
	}

	if lastErr == nil {
		return "", linkerr.WithDetails(linkerr.ErrNotSupported, map[string]string{"wallet": target.name})
	}
	return "", lastErr
}

func signAndSend(ctx context.Context, p provider.Solana, tx *solana.Transaction) (solana.Signature, error) {
	ss, ok := p.(provider.SolanaSignAndSender)
	if !ok {
		return solana.Signature{}, errUnsupported
	}
	return ss.SignAndSendTransaction(ctx, tx)
}

func (s *Strategy) signThenBroadcast(ctx context.Context, p provider.Solana, tx *solana.Transaction) (solana.Signature, error) {
	if s.network == nil {
		return solana.Signature{}, errUnsupported
	}
	signed, err := p.SignTransaction(ctx, tx)
	if err != nil {
		return solana.Signature{}, err
	}
	return s.network.SendTransaction(ctx, signed)
}

func signThenProviderSend(ctx context.Context, p provider.Solana, tx *solana.Transaction) (solana.Signature, error) {
	sender, ok := p.(provider.SolanaSender)
	if !ok {
		return solana.Signature{}, errUnsupported
	}
	signed, err := p.SignTransaction(ctx, tx)
	if err != nil {
		return solana.Signature{}, err
	}
	return sender.SendTransaction(ctx, signed)
}
