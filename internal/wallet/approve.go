package wallet

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// ErrNotTerminal is returned when an interactive prompt has no terminal to read from.
var ErrNotTerminal = errors.New("approval requires an interactive terminal")

// Request describes what the frame asks a wallet to do.
type Request struct {
	Wallet string
	Action string
	// Detail is shown under the action, such as the message to sign.
	Detail string
}

// Approver decides whether a wallet request goes ahead.
type Approver interface {
	Approve(ctx context.Context, req Request) (bool, error)
}

// ApproverFunc adapts a function to Approver.
type ApproverFunc func(ctx context.Context, req Request) (bool, error)

// Approve implements Approver.
func (f ApproverFunc) Approve(ctx context.Context, req Request) (bool, error) {
	return f(ctx, req)
}

// AutoApprove approves every request. Use it only for unattended test setups.
func AutoApprove() Approver {
	return ApproverFunc(func(context.Context, Request) (bool, error) { return true, nil })
}

// TerminalApprover asks on the controlling terminal. Prompts are serialized,
// so concurrent wallet requests are answered one at a time.
type TerminalApprover struct {
	mu  sync.Mutex
	fd  int
	in  *bufio.Reader
	out io.Writer
}

// NewTerminalApprover prompts on stderr and reads answers from stdin.
func NewTerminalApprover() *TerminalApprover {
	return &TerminalApprover{
		fd:  int(os.Stdin.Fd()), //nolint:gosec // fd fits in int
		in:  bufio.NewReader(os.Stdin),
		out: os.Stderr,
	}
}

// Approve prints the request and waits for a y/N answer. Without a terminal
// on stdin it fails instead of approving silently.
func (a *TerminalApprover) Approve(ctx context.Context, req Request) (bool, error) {
	if !term.IsTerminal(a.fd) {
		return false, ErrNotTerminal
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	return confirm(ctx, a.in, a.out, req)
}

// confirm writes the prompt to out and reads a single answer line from in.
func confirm(ctx context.Context, in *bufio.Reader, out io.Writer, req Request) (bool, error) {
	_, _ = fmt.Fprintf(out, "\n%s wants to %s\n", req.Wallet, req.Action)
	if req.Detail != "" {
		_, _ = fmt.Fprintf(out, "  %s\n", req.Detail)
	}
	_, _ = fmt.Fprint(out, "Approve? [y/N]: ")

	type answer struct {
		line string
		err  error
	}
	ch := make(chan answer, 1)
	go func() {
		line, err := in.ReadString('\n')
		ch <- answer{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case a := <-ch:
		if a.err != nil && !errors.Is(a.err, io.EOF) {
			return false, fmt.Errorf("reading answer: %w", a.err)
		}
		response := strings.ToLower(strings.TrimSpace(a.line))
		return response == "y" || response == "yes", nil
	}
}

// ReadPassphrase prompts for a passphrase with hidden input.
// The caller is responsible for zeroing the returned bytes after use.
func ReadPassphrase(prompt string) ([]byte, error) {
	fd := int(os.Stdin.Fd()) //nolint:gosec // fd fits in int
	if !term.IsTerminal(fd) {
		return nil, ErrNotTerminal
	}

	_, _ = fmt.Fprint(os.Stderr, prompt)
	passphrase, err := term.ReadPassword(fd)
	_, _ = fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("reading passphrase: %w", err)
	}
	return passphrase, nil
}
